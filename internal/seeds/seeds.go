// Package seeds provisions baseline data at startup: the Admin and Basic
// roles, two demo accounts, and the Admin role's permission claims for the
// Products module. Every step is idempotent, so Run is safe on every start.
package seeds

import (
	"stockroom/internal/domain"
	"stockroom/internal/permissions"
	"stockroom/internal/repos"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
)

const (
	AdminRole = "Admin"
	BasicRole = "Basic"

	BasicEmail = "basic@stockroom.test"
	AdminEmail = "admin@stockroom.test"

	// Demo-only credential; a real deployment replaces the seed accounts.
	DemoPassword = "123Pa$$word!"

	ProductsModule = "Products"
)

func Run(db *sqlx.DB) error {
	users := repos.NewUserRepo(db)
	roles := repos.NewRoleRepo(db)

	if err := seedRoles(roles); err != nil {
		return err
	}
	if err := seedBasicUser(users, roles); err != nil {
		return err
	}
	return seedAdminUser(users, roles)
}

func seedRoles(roles *repos.RoleRepo) error {
	if err := roles.Ensure(AdminRole); err != nil {
		return err
	}
	return roles.Ensure(BasicRole)
}

func seedBasicUser(users *repos.UserRepo, roles *repos.RoleRepo) error {
	u, err := users.ByEmail(BasicEmail)
	if err != nil {
		return err
	}
	if u == nil {
		nu, err := newUser(BasicEmail, "Basic User")
		if err != nil {
			return err
		}
		if err := users.Create(nu); err != nil {
			return err
		}
		if err := roles.AddUserToRole(nu.ID, BasicRole); err != nil {
			return err
		}
	}
	return nil
}

func seedAdminUser(users *repos.UserRepo, roles *repos.RoleRepo) error {
	u, err := users.ByEmail(AdminEmail)
	if err != nil {
		return err
	}
	if u == nil {
		nu, err := newUser(AdminEmail, "Admin")
		if err != nil {
			return err
		}
		if err := users.Create(nu); err != nil {
			return err
		}
		if err := roles.AddUserToRole(nu.ID, BasicRole); err != nil {
			return err
		}
		if err := roles.AddUserToRole(nu.ID, AdminRole); err != nil {
			return err
		}
	}
	// Claims are (re)granted on every run; each grant is guarded by an exact
	// type+value existence check, so a prior run never produces duplicates.
	return seedAdminClaims(roles, ProductsModule)
}

// seedAdminClaims grants the Admin role one Permission claim per CRUD action
// of the given module.
func seedAdminClaims(roles *repos.RoleRepo, module string) error {
	for _, perm := range permissions.ForModule(module) {
		has, err := roles.HasClaim(AdminRole, permissions.ClaimType, perm)
		if err != nil {
			return err
		}
		if has {
			continue
		}
		if err := roles.AddClaim(AdminRole, permissions.ClaimType, perm); err != nil {
			return err
		}
	}
	return nil
}

func newUser(email, name string) (*domain.User, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), 12)
	if err != nil {
		return nil, err
	}
	return &domain.User{ID: uuid.NewString(), Email: email, Name: name, Hash: string(h)}, nil
}
