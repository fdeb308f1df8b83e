// Package model contains domain entities passed between layers.
package model

import "time"

// Role is the league role attached to a player profile.
type Role string

// League roles.
const (
	RolePlayer  Role = "Player"
	RoleCaptain Role = "Captain"
	RoleAdmin   Role = "Admin"
)

// Default rating for a freshly created player card.
const DefaultRating = 50

// Ratings holds the four skill attributes. Every attribute stays within
// [0, 99] and is rounded to one decimal place on write.
type Ratings struct {
	Pace        float64 `json:"pace"`
	Technical   float64 `json:"technical"`
	Physical    float64 `json:"physical"`
	Reliability float64 `json:"reliability"`
}

// NewRatings returns the starting ratings for a new player.
func NewRatings() Ratings {
	return Ratings{
		Pace:        DefaultRating,
		Technical:   DefaultRating,
		Physical:    DefaultRating,
		Reliability: DefaultRating,
	}
}

// CareerStats holds cumulative counters. They only move forward except by
// explicit captain correction.
type CareerStats struct {
	Goals         int `json:"goals"`
	Assists       int `json:"assists"`
	MatchesPlayed int `json:"matchesPlayed"`
	MVPs          int `json:"mvps"`
	Wins          int `json:"wins"`
	Losses        int `json:"losses"`
	Draws         int `json:"draws"`
}

// FormLength bounds the rolling outcome history shown on a player card.
const FormLength = 5

// Player is a public player card scoped to an area.
type Player struct {
	ID          string      `json:"id"`
	AuthID      string      `json:"authId,omitempty"`
	Name        string      `json:"name"`
	DiskiName   string      `json:"diskiName"`
	Area        string      `json:"area"`
	Position    string      `json:"position,omitempty"`
	Role        Role        `json:"role"`
	IsPioneer   bool        `json:"isPioneer,omitempty"`
	Ratings     Ratings     `json:"ratings"`
	CareerStats CareerStats `json:"careerStats"`
	// LastChange records the most recent computed delta per attribute.
	// Display only; the authoritative values live in Ratings.
	LastChange Ratings   `json:"lastChange"`
	Form       []string  `json:"form"`
	CreatedAt  time.Time `json:"createdAt"`
}
