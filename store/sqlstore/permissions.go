package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/MrEthical07/goGate/access"
	"github.com/lib/pq"
)

// GroupPermissions implements access.GroupPermissionProvider. Actions are
// stored as a Postgres text array.
type GroupPermissions struct {
	db *sql.DB
}

// NewGroupPermissions returns a GroupPermissionProvider backed by db.
func NewGroupPermissions(db *sql.DB) *GroupPermissions {
	return &GroupPermissions{db: db}
}

const groupColumns = "id, role_id, resource_class, resource_id, actions"

// GetPermissions returns every role grant on one resource.
func (s *GroupPermissions) GetPermissions(ctx context.Context, class, id string) ([]*access.GroupPermission, error) {
	return s.query(ctx,
		"SELECT "+groupColumns+" FROM gogate_group_permissions WHERE resource_class = $1 AND resource_id = $2 ORDER BY id",
		class, id)
}

// GetPermissionsByClass returns every role grant on resources of class.
func (s *GroupPermissions) GetPermissionsByClass(ctx context.Context, class string) ([]*access.GroupPermission, error) {
	return s.query(ctx,
		"SELECT "+groupColumns+" FROM gogate_group_permissions WHERE resource_class = $1 ORDER BY id",
		class)
}

func (s *GroupPermissions) query(ctx context.Context, query string, args ...any) ([]*access.GroupPermission, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query group permissions: %w", err)
	}
	defer rows.Close()

	var out []*access.GroupPermission
	for rows.Next() {
		var p access.GroupPermission
		if err := rows.Scan(&p.ID, &p.RoleID, &p.ResourceClass, &p.ResourceID, pq.Array(&p.Actions)); err != nil {
			return nil, err
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

// Create inserts p and sets its id.
func (s *GroupPermissions) Create(ctx context.Context, p *access.GroupPermission) error {
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO gogate_group_permissions (role_id, resource_class, resource_id, actions)
		VALUES ($1, $2, $3, $4) RETURNING id`,
		p.RoleID, p.ResourceClass, p.ResourceID, pq.Array(p.Actions),
	).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("create group permission: %w", err)
	}
	return nil
}

// Save updates the actions of an existing grant.
func (s *GroupPermissions) Save(ctx context.Context, p *access.GroupPermission) error {
	return execOne(ctx, s.db,
		"UPDATE gogate_group_permissions SET actions = $1 WHERE id = $2",
		pq.Array(p.Actions), p.ID)
}

// UserPermissions implements access.UserPermissionProvider.
type UserPermissions struct {
	db *sql.DB
}

// NewUserPermissions returns a UserPermissionProvider backed by db.
func NewUserPermissions(db *sql.DB) *UserPermissions {
	return &UserPermissions{db: db}
}

// GetUserPermission returns the user's grant on one resource, or nil if none exists.
func (s *UserPermissions) GetUserPermission(ctx context.Context, userID int64, class, id string) (*access.UserPermission, error) {
	var p access.UserPermission
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, resource_class, resource_id, actions FROM gogate_user_permissions
		WHERE user_id = $1 AND resource_class = $2 AND resource_id = $3`,
		userID, class, id,
	).Scan(&p.ID, &p.UserID, &p.ResourceClass, &p.ResourceID, pq.Array(&p.Actions))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user permission: %w", err)
	}
	return &p, nil
}

// Create inserts p and sets its id.
func (s *UserPermissions) Create(ctx context.Context, p *access.UserPermission) error {
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO gogate_user_permissions (user_id, resource_class, resource_id, actions)
		VALUES ($1, $2, $3, $4) RETURNING id`,
		p.UserID, p.ResourceClass, p.ResourceID, pq.Array(p.Actions),
	).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("create user permission: %w", err)
	}
	return nil
}

// Save updates the actions of an existing user grant.
func (s *UserPermissions) Save(ctx context.Context, p *access.UserPermission) error {
	return execOne(ctx, s.db,
		"UPDATE gogate_user_permissions SET actions = $1 WHERE id = $2",
		pq.Array(p.Actions), p.ID)
}

// ErrNotFound is returned by Save when no row has the permission's ID.
var ErrNotFound = errors.New("sqlstore: row not found")

func execOne(ctx context.Context, db *sql.DB, query string, args ...any) error {
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update permission: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Providers wires every access collaborator to db.
func Providers(db *sql.DB) access.Providers {
	return access.Providers{
		Roles:            NewRoles(db),
		GroupPermissions: NewGroupPermissions(db),
		UserPermissions:  NewUserPermissions(db),
		Users:            NewUserRoles(db),
	}
}
