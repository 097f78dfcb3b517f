package user

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrNotFound    = errors.New("user: not found")
	ErrInvalidRole = errors.New("user: invalid role")
)

type ID string

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

func ParseRole(raw string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case RoleUser, "":
		return RoleUser, nil
	case RoleAdmin:
		return RoleAdmin, nil
	default:
		return "", ErrInvalidRole
	}
}

// Principal is the already-verified caller identity supplied by the auth layer.
type Principal struct {
	ID   string
	Role Role
}

func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }

// Profile is the subset of the user record the booking views show.
type Profile struct {
	ID    ID
	Name  string
	Email string
}

// DisplayName falls back to the e-mail local part, then to a generic label.
func (p Profile) DisplayName() string {
	if name := strings.TrimSpace(p.Name); name != "" {
		return name
	}
	if local, _, ok := strings.Cut(strings.TrimSpace(p.Email), "@"); ok && local != "" {
		return local
	}
	return "user " + string(p.ID)
}

// Directory looks up user profiles owned by the identity service.
type Directory interface {
	ByID(ctx context.Context, id ID) (*Profile, error)
}
