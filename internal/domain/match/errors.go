package match

import "errors"

// Sentinel kinds for aggregate mutations. The HTTP layer maps these to
// status codes with errors.Is.
var (
	ErrValidation           = errors.New("invalid match")
	ErrAlreadyFinalized     = errors.New("match already finalized")
	ErrMatchLocked          = errors.New("match is verified and locked")
	ErrDuplicateParticipant = errors.New("already in the lineup")
	ErrInvalidTeam          = errors.New("invalid team selection")
)
