package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/diskilabs/diskirater/internal/adapters/repository"
	"github.com/diskilabs/diskirater/internal/domain/model"
	"github.com/diskilabs/diskirater/internal/domain/rating"
	"github.com/diskilabs/diskirater/pkg/logger"
)

// Roster and membership operations. These sit outside the verification core
// but feed it: match submission checks membership approval, and late joins
// resolve player cards created here.

// CreatePlayerInput mirrors the POST /api/players payload.
type CreatePlayerInput struct {
	Name      string     `json:"name"`
	DiskiName string     `json:"diskiName"`
	Area      string     `json:"area"`
	Position  string     `json:"position"`
	Role      model.Role `json:"role"`
	AuthID    string     `json:"authId"`
	IsPioneer bool       `json:"isPioneer"`
}

// CreatePlayer creates a player card with default ratings.
func (s *Service) CreatePlayer(ctx context.Context, in CreatePlayerInput) (model.Player, error) {
	if in.Name == "" || in.Area == "" {
		return model.Player{}, fmt.Errorf("%w: name and area are required", ErrValidation)
	}
	role := in.Role
	if role == "" {
		role = model.RolePlayer
	}
	diski := in.DiskiName
	if diski == "" {
		diski = in.Name
	}
	p := model.Player{
		ID:        s.newID(),
		AuthID:    in.AuthID,
		Name:      in.Name,
		DiskiName: diski,
		Area:      in.Area,
		Position:  in.Position,
		Role:      role,
		IsPioneer: in.IsPioneer,
		Ratings:   model.NewRatings(),
		Form:      []string{},
		CreatedAt: s.now(),
	}
	if err := s.players.CreatePlayer(ctx, p); err != nil {
		return model.Player{}, fmt.Errorf("create player: %w", err)
	}
	return p, nil
}

// ListPlayers returns every player card, newest first.
func (s *Service) ListPlayers(ctx context.Context) ([]model.Player, error) {
	return s.players.ListPlayers(ctx)
}

// GetPlayer returns one player card.
func (s *Service) GetPlayer(ctx context.Context, id string) (model.Player, error) {
	return s.players.GetPlayer(ctx, id)
}

// PlayerPatch carries the fields a captain may edit. Nil fields are left
// untouched. Rating edits pass through the same clamp-and-round guard as
// finalization writes.
type PlayerPatch struct {
	DiskiName *string        `json:"diskiName,omitempty"`
	Position  *string        `json:"position,omitempty"`
	Role      *model.Role    `json:"role,omitempty"`
	Ratings   *model.Ratings `json:"ratings,omitempty"`
}

// UpdatePlayer applies a captain edit to a player card.
func (s *Service) UpdatePlayer(ctx context.Context, id string, patch PlayerPatch) (model.Player, error) {
	p, err := s.players.GetPlayer(ctx, id)
	if err != nil {
		return model.Player{}, err
	}
	if patch.DiskiName != nil {
		p.DiskiName = *patch.DiskiName
	}
	if patch.Position != nil {
		p.Position = *patch.Position
	}
	if patch.Role != nil {
		p.Role = *patch.Role
	}
	if patch.Ratings != nil {
		p.Ratings = rating.Sanitize(*patch.Ratings)
	}
	if err := s.players.UpdatePlayer(ctx, p); err != nil {
		return model.Player{}, fmt.Errorf("update player: %w", err)
	}
	return p, nil
}

// RegisterUserInput mirrors the POST /api/users payload.
type RegisterUserInput struct {
	AuthID      string `json:"authId"`
	DiskiName   string `json:"diskiName"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phoneNumber"`
	Position    string `json:"position"`
	AreaID      string `json:"areaId"`
}

// RegisterResult carries the new user plus the pioneer flag so clients can
// show a special welcome.
type RegisterResult struct {
	User      model.User `json:"user"`
	IsPioneer bool       `json:"isPioneer"`
}

// RegisterUser creates a registration. The first person in an area is a
// pioneer: auto-approved with a player card created immediately, so every
// area always has at least one member able to log matches.
func (s *Service) RegisterUser(ctx context.Context, in RegisterUserInput) (RegisterResult, error) {
	if in.AuthID == "" || in.DiskiName == "" || in.AreaID == "" {
		return RegisterResult{}, fmt.Errorf("%w: authId, diskiName and areaId are required", ErrValidation)
	}
	if _, err := s.users.GetUser(ctx, in.AuthID); err == nil {
		return RegisterResult{}, ErrUserExists
	}

	userInArea, err := s.users.AnyUserInArea(ctx, in.AreaID)
	if err != nil {
		return RegisterResult{}, fmt.Errorf("check area users: %w", err)
	}
	playerInArea, err := s.players.AnyPlayerInArea(ctx, in.AreaID)
	if err != nil {
		return RegisterResult{}, fmt.Errorf("check area players: %w", err)
	}
	isPioneer := !userInArea && !playerInArea

	status := model.UserPending
	linkedPlayerID := ""
	if isPioneer {
		p, err := s.CreatePlayer(ctx, CreatePlayerInput{
			Name:      in.DiskiName,
			DiskiName: in.DiskiName,
			Area:      in.AreaID,
			Position:  in.Position,
			Role:      model.RolePlayer,
			AuthID:    in.AuthID,
			IsPioneer: true,
		})
		if err != nil {
			return RegisterResult{}, err
		}
		status = model.UserApproved
		linkedPlayerID = p.ID
		s.log.Info(ctx, "pioneer auto-approved",
			logger.String("diskiName", in.DiskiName),
			logger.String("area", in.AreaID),
		)
	}

	u := model.User{
		AuthID:         in.AuthID,
		DiskiName:      in.DiskiName,
		Email:          in.Email,
		PhoneNumber:    in.PhoneNumber,
		Position:       in.Position,
		AreaID:         in.AreaID,
		Role:           model.RolePlayer,
		Status:         status,
		LinkedPlayerID: linkedPlayerID,
		CreatedAt:      s.now(),
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return RegisterResult{}, ErrUserExists
		}
		return RegisterResult{}, fmt.Errorf("create user: %w", err)
	}
	return RegisterResult{User: u, IsPioneer: isPioneer}, nil
}

// GetUser returns one registration by auth ID.
func (s *Service) GetUser(ctx context.Context, authID string) (model.User, error) {
	return s.users.GetUser(ctx, authID)
}

// ListPendingUsers returns registrations awaiting captain approval.
func (s *Service) ListPendingUsers(ctx context.Context) ([]model.User, error) {
	return s.users.ListPendingUsers(ctx)
}

// ApproveUser approves a registration. When no existing player card is
// given, a fresh one is created and linked.
func (s *Service) ApproveUser(ctx context.Context, authID, linkedPlayerID string) (model.User, error) {
	u, err := s.users.GetUser(ctx, authID)
	if err != nil {
		return model.User{}, err
	}

	if linkedPlayerID == "" {
		p, err := s.CreatePlayer(ctx, CreatePlayerInput{
			Name:      u.DiskiName,
			DiskiName: u.DiskiName,
			Area:      u.AreaID,
			Position:  u.Position,
			Role:      u.Role,
			AuthID:    u.AuthID,
		})
		if err != nil {
			return model.User{}, err
		}
		linkedPlayerID = p.ID
	}

	u.Status = model.UserApproved
	u.LinkedPlayerID = linkedPlayerID
	if err := s.users.UpdateUser(ctx, u); err != nil {
		return model.User{}, fmt.Errorf("approve user: %w", err)
	}
	return u, nil
}
