package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	goGate "github.com/MrEthical07/goGate"
	"github.com/MrEthical07/goGate/access"
	"github.com/MrEthical07/goGate/store/sqlstore"
)

// account is both the authentication identity and the authorization
// subject of a user.
type account struct {
	id     int64
	email  string
	roles  []*access.Role
	record *goGate.AuthenticationRecord
}

func (a *account) GetID() int64                                           { return a.id }
func (a *account) GetEmail() string                                       { return a.email }
func (a *account) GetRoles() []*access.Role                               { return a.roles }
func (a *account) AddRole(r *access.Role)                                 { a.roles = append(a.roles, r) }
func (a *account) AuthenticationRecord() *goGate.AuthenticationRecord     { return a.record }
func (a *account) SetAuthenticationRecord(r *goGate.AuthenticationRecord) { a.record = r }

// accountStore is the application user table the handlers depend on.
type accountStore interface {
	goGate.UserProvider
	Insert(ctx context.Context, email string) (*account, error)
	Delete(ctx context.Context, id int64) error
}

var errEmailExists = errors.New("email already registered")

const accountsSchema = `CREATE TABLE IF NOT EXISTS gogate_accounts (
	id    BIGSERIAL PRIMARY KEY,
	email TEXT NOT NULL UNIQUE
)`

type accounts struct {
	db    *sql.DB
	roles *sqlstore.UserRoles
}

func newAccounts(db *sql.DB) *accounts {
	return &accounts{db: db, roles: sqlstore.NewUserRoles(db)}
}

func (a *accounts) migrate(ctx context.Context) error {
	if _, err := a.db.ExecContext(ctx, accountsSchema); err != nil {
		return fmt.Errorf("migrate accounts: %w", err)
	}
	return nil
}

func (a *accounts) FindByID(ctx context.Context, id int64) (goGate.User, error) {
	acc := &account{id: id}
	err := a.db.QueryRowContext(ctx, `SELECT email FROM gogate_accounts WHERE id = $1`, id).Scan(&acc.email)
	return a.withRoles(ctx, acc, err)
}

func (a *accounts) FindByEmail(ctx context.Context, email string) (goGate.User, error) {
	acc := &account{}
	err := a.db.QueryRowContext(ctx,
		`SELECT id, email FROM gogate_accounts WHERE lower(email) = lower($1)`, email,
	).Scan(&acc.id, &acc.email)
	return a.withRoles(ctx, acc, err)
}

func (a *accounts) withRoles(ctx context.Context, acc *account, err error) (goGate.User, error) {
	if errors.Is(err, sql.ErrNoRows) {
		return nil, goGate.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load account: %w", err)
	}
	roles, err := a.roles.RolesFor(ctx, acc.id)
	if err != nil {
		return nil, err
	}
	acc.roles = roles
	return acc, nil
}

func (a *accounts) Insert(ctx context.Context, email string) (*account, error) {
	acc := &account{email: email}
	err := a.db.QueryRowContext(ctx,
		`INSERT INTO gogate_accounts (email) VALUES ($1) ON CONFLICT (email) DO NOTHING RETURNING id`, email,
	).Scan(&acc.id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errEmailExists
	}
	if err != nil {
		return nil, fmt.Errorf("insert account: %w", err)
	}
	return acc, nil
}

func (a *accounts) Delete(ctx context.Context, id int64) error {
	if _, err := a.db.ExecContext(ctx, `DELETE FROM gogate_accounts WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	return nil
}
