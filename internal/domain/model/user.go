package model

import "time"

// UserStatus tracks league membership approval.
type UserStatus string

// Membership states.
const (
	UserPending  UserStatus = "Pending"
	UserApproved UserStatus = "Approved"
)

// User is the private registration record behind a player card. Identity
// tokens are issued externally; AuthID is the externally issued subject.
type User struct {
	AuthID         string     `json:"authId"`
	DiskiName      string     `json:"diskiName"`
	Email          string     `json:"email,omitempty"`
	PhoneNumber    string     `json:"phoneNumber,omitempty"`
	Position       string     `json:"position,omitempty"`
	AreaID         string     `json:"areaId"`
	Role           Role       `json:"role"`
	Status         UserStatus `json:"status"`
	LinkedPlayerID string     `json:"linkedPlayerId,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
}

// Approved reports whether the user may submit and confirm matches.
func (u *User) Approved() bool {
	return u.Status == UserApproved
}
