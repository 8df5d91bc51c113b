package issuer

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"canteen-platform/internal/identity"
)

// Account is a credential-store row. Passwords are stored as bcrypt
// hashes only.
type Account struct {
	ID           int64
	Username     string
	PasswordHash string
	Role         identity.Role
	Disabled     bool
}

var ErrAccountNotFound = errors.New("account not found")

// Store is the credential-store contract consumed by the Issuer.
type Store interface {
	FindByUsername(ctx context.Context, username string) (Account, error)
	TouchLastLogin(ctx context.Context, id int64, at time.Time) error
}

// PGStore reads accounts from Postgres.
//
// Assumed schema:
//
//	CREATE TABLE accounts (
//	    id            BIGSERIAL PRIMARY KEY,
//	    username      TEXT NOT NULL UNIQUE,
//	    password_hash TEXT NOT NULL,
//	    role          TEXT NOT NULL,
//	    disabled      BOOLEAN NOT NULL DEFAULT FALSE,
//	    last_login_at TIMESTAMPTZ
//	)
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore { return &PGStore{db: db} }

func (s *PGStore) FindByUsername(ctx context.Context, username string) (Account, error) {
	const q = `
SELECT id, username, password_hash, role, disabled
FROM accounts
WHERE username = $1
`
	var a Account
	var role string
	err := s.db.QueryRowContext(ctx, q, username).Scan(
		&a.ID,
		&a.Username,
		&a.PasswordHash,
		&role,
		&a.Disabled,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Account{}, ErrAccountNotFound
		}
		return Account{}, err
	}
	a.Role = identity.Role(role)
	return a, nil
}

func (s *PGStore) TouchLastLogin(ctx context.Context, id int64, at time.Time) error {
	const q = `UPDATE accounts SET last_login_at = $2 WHERE id = $1`
	_, err := s.db.ExecContext(ctx, q, id, at)
	return err
}
