package repos

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

type RoleRepo struct{ db *sqlx.DB }

func NewRoleRepo(db *sqlx.DB) *RoleRepo { return &RoleRepo{db: db} }

// Ensure creates the role if it does not exist yet. Safe to call on every
// startup.
func (r *RoleRepo) Ensure(name string) error {
	_, err := r.db.Exec(`INSERT INTO roles(name) VALUES(?) ON CONFLICT(name) DO NOTHING`, name)
	return err
}

// AddUserToRole grants a role by name; granting an already-held role is a
// no-op. The role must exist.
func (r *RoleRepo) AddUserToRole(userID, roleName string) error {
	res, err := r.db.Exec(`
		INSERT INTO user_roles(user_id, role_id)
		SELECT ?, id FROM roles WHERE name = ?
		ON CONFLICT(user_id, role_id) DO NOTHING
	`, userID, roleName)
	if err != nil {
		return err
	}
	// Zero rows with no conflict means the SELECT found no role.
	if n, _ := res.RowsAffected(); n == 0 {
		if ok, err := r.exists(roleName); err != nil {
			return err
		} else if !ok {
			return fmt.Errorf("role %q does not exist", roleName)
		}
	}
	return nil
}

func (r *RoleRepo) exists(name string) (bool, error) {
	var n int
	if err := r.db.Get(&n, `SELECT COUNT(*) FROM roles WHERE name=?`, name); err != nil {
		return false, err
	}
	return n > 0, nil
}

// HasClaim reports whether the role carries the exact claim (type+value).
func (r *RoleRepo) HasClaim(roleName, claimType, claimValue string) (bool, error) {
	var n int
	err := r.db.Get(&n, `
		SELECT COUNT(*)
		FROM role_claims rc
		JOIN roles ro ON ro.id = rc.role_id
		WHERE ro.name = ? AND rc.claim_type = ? AND rc.claim_value = ?
	`, roleName, claimType, claimValue)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *RoleRepo) AddClaim(roleName, claimType, claimValue string) error {
	res, err := r.db.Exec(`
		INSERT INTO role_claims(role_id, claim_type, claim_value)
		SELECT id, ?, ? FROM roles WHERE name = ?
		ON CONFLICT(role_id, claim_type, claim_value) DO NOTHING
	`, claimType, claimValue, roleName)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if ok, err := r.exists(roleName); err != nil {
			return err
		} else if !ok {
			return fmt.Errorf("role %q does not exist", roleName)
		}
	}
	return nil
}

// Claims returns the claim values of a given type attached to a role.
func (r *RoleRepo) Claims(roleName, claimType string) ([]string, error) {
	var out []string
	err := r.db.Select(&out, `
		SELECT rc.claim_value
		FROM role_claims rc
		JOIN roles ro ON ro.id = rc.role_id
		WHERE ro.name = ? AND rc.claim_type = ?
		ORDER BY rc.claim_value
	`, roleName, claimType)
	return out, err
}

// CountByName returns how many role rows carry the name (seeding assertions).
func (r *RoleRepo) CountByName(name string) (int, error) {
	var n int
	err := r.db.Get(&n, `SELECT COUNT(*) FROM roles WHERE name=?`, name)
	return n, err
}
