package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS gogate_roles (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		parent_id BIGINT REFERENCES gogate_roles(id)
	)`,
	`CREATE TABLE IF NOT EXISTS gogate_group_permissions (
		id BIGSERIAL PRIMARY KEY,
		role_id BIGINT NOT NULL REFERENCES gogate_roles(id) ON DELETE CASCADE,
		resource_class TEXT NOT NULL,
		resource_id TEXT NOT NULL,
		actions TEXT[] NOT NULL DEFAULT '{}',
		UNIQUE (role_id, resource_class, resource_id)
	)`,
	`CREATE INDEX IF NOT EXISTS gogate_group_permissions_resource
		ON gogate_group_permissions (resource_class, resource_id)`,
	`CREATE TABLE IF NOT EXISTS gogate_user_permissions (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL,
		resource_class TEXT NOT NULL,
		resource_id TEXT NOT NULL,
		actions TEXT[] NOT NULL DEFAULT '{}',
		UNIQUE (user_id, resource_class, resource_id)
	)`,
	`CREATE TABLE IF NOT EXISTS gogate_user_roles (
		user_id BIGINT NOT NULL,
		role_id BIGINT NOT NULL REFERENCES gogate_roles(id) ON DELETE CASCADE,
		PRIMARY KEY (user_id, role_id)
	)`,
}

// Migrate creates the access tables if they do not exist.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i+1, err)
		}
	}
	return nil
}
