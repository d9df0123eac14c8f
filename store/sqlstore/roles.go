package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/MrEthical07/goGate/access"
)

// Roles implements access.RoleProvider over gogate_roles.
type Roles struct {
	db *sql.DB
}

// NewRoles returns a RoleProvider backed by db.
func NewRoles(db *sql.DB) *Roles {
	return &Roles{db: db}
}

const roleColumns = "id, name, parent_id"

func scanRole(row interface{ Scan(...any) error }) (*access.Role, error) {
	var (
		r      access.Role
		parent sql.NullInt64
	)
	if err := row.Scan(&r.ID, &r.Name, &parent); err != nil {
		return nil, err
	}
	r.ParentID = parent.Int64
	return &r, nil
}

// GetAllRoles returns every role ordered by id.
func (s *Roles) GetAllRoles(ctx context.Context) ([]*access.Role, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+roleColumns+" FROM gogate_roles ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	defer rows.Close()

	var roles []*access.Role
	for rows.Next() {
		r, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		roles = append(roles, r)
	}
	return roles, rows.Err()
}

// GetRoleWithID returns the role with id.
func (s *Roles) GetRoleWithID(ctx context.Context, id int64) (*access.Role, error) {
	return s.one(ctx, "SELECT "+roleColumns+" FROM gogate_roles WHERE id = $1", id)
}

// GetRoleWithName returns the role named name.
func (s *Roles) GetRoleWithName(ctx context.Context, name string) (*access.Role, error) {
	return s.one(ctx, "SELECT "+roleColumns+" FROM gogate_roles WHERE name = $1", name)
}

func (s *Roles) one(ctx context.Context, query string, arg any) (*access.Role, error) {
	r, err := scanRole(s.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, access.ErrRoleNotFound
		}
		return nil, fmt.Errorf("get role: %w", err)
	}
	return r, nil
}

// Create inserts a role and sets its ID.
func (s *Roles) Create(ctx context.Context, r *access.Role) error {
	var parent sql.NullInt64
	if r.ParentID != 0 {
		parent = sql.NullInt64{Int64: r.ParentID, Valid: true}
	}
	err := s.db.QueryRowContext(ctx,
		"INSERT INTO gogate_roles (name, parent_id) VALUES ($1, $2) RETURNING id",
		r.Name, parent,
	).Scan(&r.ID)
	if err != nil {
		return fmt.Errorf("create role %q: %w", r.Name, err)
	}
	return nil
}

// UserRoles implements access.UserProvider over gogate_user_roles.
type UserRoles struct {
	db *sql.DB
}

// NewUserRoles returns a UserRoleProvider backed by db.
func NewUserRoles(db *sql.DB) *UserRoles {
	return &UserRoles{db: db}
}

// Update replaces the stored role set of user.
func (s *UserRoles) Update(ctx context.Context, user access.User) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM gogate_user_roles WHERE user_id = $1", user.GetID()); err != nil {
		return fmt.Errorf("clear user roles: %w", err)
	}
	for _, r := range user.GetRoles() {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO gogate_user_roles (user_id, role_id) VALUES ($1, $2) ON CONFLICT DO NOTHING",
			user.GetID(), r.ID,
		); err != nil {
			return fmt.Errorf("add user role %q: %w", r.Name, err)
		}
	}
	return tx.Commit()
}

// RolesFor loads the roles directly assigned to userID.
func (s *UserRoles) RolesFor(ctx context.Context, userID int64) ([]*access.Role, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT r.id, r.name, r.parent_id FROM gogate_roles r
		JOIN gogate_user_roles ur ON ur.role_id = r.id
		WHERE ur.user_id = $1 ORDER BY r.id`, userID)
	if err != nil {
		return nil, fmt.Errorf("load user roles: %w", err)
	}
	defer rows.Close()

	var roles []*access.Role
	for rows.Next() {
		r, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		roles = append(roles, r)
	}
	return roles, rows.Err()
}
