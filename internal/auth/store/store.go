package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/studybuddy/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")

	// ErrCodeMismatch is returned when a conditional code update finds no
	// account whose pending code matches and is still live.
	ErrCodeMismatch = errors.New("store: code mismatch")
)

// Store is the root data access interface. Concrete drivers (mongo, sqlite,
// memory) implement this. Accounts are exposed as a sub-repository to keep
// the driver surface small and testable.
type Store interface {
	Accounts() Accounts

	// Ping verifies the backing database is reachable.
	Ping(ctx context.Context) error

	// Close releases any underlying resources.
	Close() error

	// Name identifies the driver ("mongo", "sqlite", "memory").
	Name() string
}

// Accounts is the account repository. Every mutating method touches exactly
// one record and is atomic with respect to it.
type Accounts interface {
	// GetByEmail returns the account stored under email.
	GetByEmail(ctx context.Context, email string) (domain.Account, error)

	// Create inserts a new account. Returns ErrAlreadyExists when the email
	// is taken.
	Create(ctx context.Context, a domain.Account) error

	// RefreshUnverified replaces name, password hash and signup code of an
	// account that has not been verified yet. Returns ErrNotFound when there
	// is no account and ErrAlreadyExists when it is already verified.
	RefreshUnverified(ctx context.Context, email, name, passwordHash, codeHash string, expiry time.Time) error

	// SetCode stores a fresh pending code for purpose, overwriting any
	// previous one. Returns ErrNotFound when there is no account.
	SetCode(ctx context.Context, p domain.CodePurpose, email, codeHash string, expiry time.Time) error

	// ConsumeCode clears the pending code for purpose if, and only if, it
	// equals codeHash and expires after now. A consumed signup code marks
	// the account verified; a consumed reset code installs newPasswordHash.
	// Returns the updated account, or ErrCodeMismatch when the condition
	// does not hold.
	ConsumeCode(ctx context.Context, p domain.CodePurpose, email, codeHash string, now time.Time, newPasswordHash string) (domain.Account, error)

	// ClearExpiredCodes drops every pending code that expired at or before
	// now and returns how many codes were removed.
	ClearExpiredCodes(ctx context.Context, now time.Time) (int64, error)

	// Count returns the number of stored accounts.
	Count(ctx context.Context) (int64, error)
}
