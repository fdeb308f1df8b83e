package model

import "time"

// Status is the match lifecycle state. The only observed transition is
// Pending -> Verified; Contested is reserved for a future dispute flow and
// currently has no entry path.
type Status string

// Match states.
const (
	StatusPending   Status = "Pending"
	StatusVerified  Status = "Verified"
	StatusContested Status = "Contested"
)

// Team names the two sides of a match.
type Team string

// Match sides.
const (
	TeamA Team = "teamA"
	TeamB Team = "teamB"
)

// Valid reports whether t names a real side.
func (t Team) Valid() bool {
	return t == TeamA || t == TeamB
}

// Score is the final score as submitted.
type Score struct {
	TeamA int `json:"teamA"`
	TeamB int `json:"teamB"`
}

// Lineups holds the two disjoint sets of player IDs.
type Lineups struct {
	TeamA []string `json:"teamA"`
	TeamB []string `json:"teamB"`
}

// Side returns the lineup for the named team.
func (l Lineups) Side(t Team) []string {
	if t == TeamA {
		return l.TeamA
	}
	return l.TeamB
}

// Contains reports whether playerID appears in either lineup.
func (l Lineups) Contains(playerID string) bool {
	for _, id := range l.TeamA {
		if id == playerID {
			return true
		}
	}
	for _, id := range l.TeamB {
		if id == playerID {
			return true
		}
	}
	return false
}

// Performance captures who did what in one specific match.
type Performance struct {
	PlayerID string `json:"playerId"`
	Goals    int    `json:"goals"`
	Assists  int    `json:"assists"`
	IsMVP    bool   `json:"isMVP"`
}

// Match is a submitted match working its way toward crowd verification.
// Once Verified it is immutable.
type Match struct {
	ID          string        `json:"id"`
	AreaID      string        `json:"areaId"`
	SubmittedBy string        `json:"submittedBy"`
	Status      Status        `json:"status"`
	Score       Score         `json:"score"`
	Lineups     Lineups       `json:"lineups"`
	Performance []Performance `json:"playerPerformance"`
	// ExpectedConfirmations is the denominator of the consensus threshold.
	// It starts at the initial lineup size and grows by one per late join.
	ExpectedConfirmations int `json:"expectedConfirmations"`
	// Verifications is the set of distinct identities that confirmed the
	// result. The submitter is included at creation.
	Verifications []string  `json:"verifications"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Verified reports whether identity already confirmed this match.
func (m *Match) VerifiedBy(identity string) bool {
	for _, v := range m.Verifications {
		if v == identity {
			return true
		}
	}
	return false
}
