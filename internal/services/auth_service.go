package services

import (
	"errors"

	"stockroom/internal/domain"
	"stockroom/internal/permissions"
	"stockroom/internal/repos"

	"golang.org/x/crypto/bcrypt"
)

var ErrBadCreds = errors.New("invalid email or password")

type AuthService struct {
	Users *repos.UserRepo
	Roles *repos.RoleRepo
}

func (s *AuthService) Login(sid, email, password string) (*domain.User, error) {
	u, err := s.Users.ByEmail(email)
	if err != nil || u == nil {
		return nil, ErrBadCreds
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Hash), []byte(password)) != nil {
		return nil, ErrBadCreds
	}
	if err := s.Users.BindSession(sid, u.ID); err != nil {
		return nil, err
	}
	return s.withRoles(u)
}

func (s *AuthService) Logout(sid string) error {
	return s.Users.UnbindSession(sid)
}

// CurrentUser resolves the session cookie to a user with roles loaded.
// Returns nil when the session is unbound.
func (s *AuthService) CurrentUser(sid string) (*domain.User, error) {
	u, err := s.Users.SessionUser(sid)
	if err != nil || u == nil {
		return nil, err
	}
	return s.withRoles(u)
}

// HasPermission reports whether any of the user's roles carries the
// permission claim. Store errors count as "no".
func (s *AuthService) HasPermission(u *domain.User, permission string) bool {
	if u == nil {
		return false
	}
	for _, role := range u.Roles {
		if ok, err := s.Roles.HasClaim(role, permissions.ClaimType, permission); err == nil && ok {
			return true
		}
	}
	return false
}

func (s *AuthService) withRoles(u *domain.User) (*domain.User, error) {
	roles, err := s.Users.RolesOf(u.ID)
	if err != nil {
		return nil, err
	}
	u.Roles = roles
	return u, nil
}
