// Package memory is a process-local account store. Nothing survives a
// restart; it backs development runs and stands in when the durable
// database is unreachable.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/aussiebroadwan/studybuddy/internal/auth/domain"
	"github.com/aussiebroadwan/studybuddy/internal/auth/store"
)

type Store struct {
	mu       sync.Mutex
	accounts map[string]domain.Account // keyed by email
}

func NewStore() *Store {
	return &Store{accounts: make(map[string]domain.Account)}
}

func (s *Store) Accounts() store.Accounts       { return &accountsRepo{s: s} }
func (s *Store) Ping(ctx context.Context) error { return nil }
func (s *Store) Close() error                   { return nil }
func (s *Store) Name() string                   { return "memory" }

type accountsRepo struct {
	s *Store
}

func (r *accountsRepo) GetByEmail(ctx context.Context, email string) (domain.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a, ok := r.s.accounts[email]
	if !ok {
		return domain.Account{}, store.ErrNotFound
	}
	return a, nil
}

func (r *accountsRepo) Create(ctx context.Context, a domain.Account) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.accounts[a.Email]; ok {
		return store.ErrAlreadyExists
	}
	r.s.accounts[a.Email] = a
	return nil
}

func (r *accountsRepo) RefreshUnverified(ctx context.Context, email, name, passwordHash, codeHash string, expiry time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a, ok := r.s.accounts[email]
	if !ok {
		return store.ErrNotFound
	}
	if a.Verified {
		return store.ErrAlreadyExists
	}
	a.Name = name
	a.PasswordHash = passwordHash
	a.OTPHash = codeHash
	a.OTPExpiry = &expiry
	a.UpdatedAt = time.Now().UTC()
	r.s.accounts[email] = a
	return nil
}

func (r *accountsRepo) SetCode(ctx context.Context, p domain.CodePurpose, email, codeHash string, expiry time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a, ok := r.s.accounts[email]
	if !ok {
		return store.ErrNotFound
	}
	if p == domain.CodeReset {
		a.ResetOTPHash, a.ResetExpiry = codeHash, &expiry
	} else {
		a.OTPHash, a.OTPExpiry = codeHash, &expiry
	}
	a.UpdatedAt = time.Now().UTC()
	r.s.accounts[email] = a
	return nil
}

func (r *accountsRepo) ConsumeCode(ctx context.Context, p domain.CodePurpose, email, codeHash string, now time.Time, newPasswordHash string) (domain.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a, ok := r.s.accounts[email]
	if !ok || !a.CodeValid(p, codeHash, now) {
		return domain.Account{}, store.ErrCodeMismatch
	}

	if p == domain.CodeReset {
		a.ResetOTPHash, a.ResetExpiry = "", nil
		a.PasswordHash = newPasswordHash
	} else {
		a.OTPHash, a.OTPExpiry = "", nil
		a.Verified = true
	}
	a.UpdatedAt = now.UTC()
	r.s.accounts[email] = a
	return a, nil
}

func (r *accountsRepo) ClearExpiredCodes(ctx context.Context, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for email, a := range r.s.accounts {
		changed := false
		if a.OTPExpiry != nil && !a.OTPExpiry.After(now) {
			a.OTPHash, a.OTPExpiry = "", nil
			changed = true
			n++
		}
		if a.ResetExpiry != nil && !a.ResetExpiry.After(now) {
			a.ResetOTPHash, a.ResetExpiry = "", nil
			changed = true
			n++
		}
		if changed {
			r.s.accounts[email] = a
		}
	}
	return n, nil
}

func (r *accountsRepo) Count(ctx context.Context) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return int64(len(r.s.accounts)), nil
}
