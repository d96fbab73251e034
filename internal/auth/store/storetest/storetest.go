// Package storetest is a conformance suite every store driver must pass.
package storetest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/studybuddy/internal/auth/domain"
	"github.com/aussiebroadwan/studybuddy/internal/auth/store"
	"github.com/aussiebroadwan/studybuddy/pkg/idx"
	"github.com/stretchr/testify/require"
)

// Opener returns an empty store for one subtest.
type Opener func(t *testing.T) store.Store

// Stored timestamps may lose sub-millisecond precision.
const precision = time.Millisecond

func newAccount(email string, now time.Time) domain.Account {
	exp := now.Add(5 * time.Minute)
	return domain.Account{
		ID:           idx.New().String(),
		Name:         "Ana",
		Email:        email,
		PasswordHash: "argon2-hash",
		OTPHash:      "code-1",
		OTPExpiry:    &exp,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Run exercises open against the Accounts contract.
func Run(t *testing.T, open Opener) {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(precision)

	t.Run("CreateAndGet", func(t *testing.T) {
		s := open(t)
		a := newAccount("ana@x.com", now)
		require.NoError(t, s.Accounts().Create(ctx, a))

		got, err := s.Accounts().GetByEmail(ctx, "ana@x.com")
		require.NoError(t, err)
		require.Equal(t, a.ID, got.ID)
		require.Equal(t, "Ana", got.Name)
		require.False(t, got.Verified)
		require.Equal(t, "code-1", got.OTPHash)
		require.NotNil(t, got.OTPExpiry)
		require.WithinDuration(t, *a.OTPExpiry, *got.OTPExpiry, precision)
		require.Nil(t, got.ResetExpiry)
	})

	t.Run("EmailIsCaseSensitive", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Accounts().Create(ctx, newAccount("ana@x.com", now)))

		_, err := s.Accounts().GetByEmail(ctx, "ANA@x.com")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("CreateDuplicate", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Accounts().Create(ctx, newAccount("ana@x.com", now)))
		err := s.Accounts().Create(ctx, newAccount("ana@x.com", now))
		require.ErrorIs(t, err, store.ErrAlreadyExists)
	})

	t.Run("ConcurrentCreateOnlyOneWins", func(t *testing.T) {
		s := open(t)

		var wg sync.WaitGroup
		errs := make([]error, 8)
		for i := range errs {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs[i] = s.Accounts().Create(ctx, newAccount("race@x.com", now))
			}()
		}
		wg.Wait()

		ok := 0
		for _, err := range errs {
			if err == nil {
				ok++
			} else {
				require.ErrorIs(t, err, store.ErrAlreadyExists)
			}
		}
		require.Equal(t, 1, ok)
	})

	t.Run("GetMissing", func(t *testing.T) {
		s := open(t)
		_, err := s.Accounts().GetByEmail(ctx, "nobody@x.com")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("RefreshUnverified", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Accounts().Create(ctx, newAccount("ana@x.com", now)))

		exp := now.Add(10 * time.Minute)
		require.NoError(t, s.Accounts().RefreshUnverified(ctx, "ana@x.com", "Ana B", "new-hash", "code-2", exp))

		got, err := s.Accounts().GetByEmail(ctx, "ana@x.com")
		require.NoError(t, err)
		require.Equal(t, "Ana B", got.Name)
		require.Equal(t, "new-hash", got.PasswordHash)
		require.Equal(t, "code-2", got.OTPHash)
		require.WithinDuration(t, exp, *got.OTPExpiry, precision)

		err = s.Accounts().RefreshUnverified(ctx, "nobody@x.com", "x", "x", "x", exp)
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("RefreshVerifiedRejected", func(t *testing.T) {
		s := open(t)
		a := newAccount("ana@x.com", now)
		require.NoError(t, s.Accounts().Create(ctx, a))
		_, err := s.Accounts().ConsumeCode(ctx, domain.CodeSignup, a.Email, "code-1", now, "")
		require.NoError(t, err)

		err = s.Accounts().RefreshUnverified(ctx, a.Email, "x", "x", "x", now.Add(time.Minute))
		require.ErrorIs(t, err, store.ErrAlreadyExists)

		got, err := s.Accounts().GetByEmail(ctx, a.Email)
		require.NoError(t, err)
		require.Equal(t, "argon2-hash", got.PasswordHash)
	})

	t.Run("ConsumeSignupCode", func(t *testing.T) {
		s := open(t)
		a := newAccount("ana@x.com", now)
		require.NoError(t, s.Accounts().Create(ctx, a))

		_, err := s.Accounts().ConsumeCode(ctx, domain.CodeSignup, a.Email, "wrong", now, "")
		require.ErrorIs(t, err, store.ErrCodeMismatch)

		got, err := s.Accounts().ConsumeCode(ctx, domain.CodeSignup, a.Email, "code-1", now, "")
		require.NoError(t, err)
		require.True(t, got.Verified)
		require.Empty(t, got.OTPHash)
		require.Nil(t, got.OTPExpiry)

		// Spent codes cannot be replayed.
		_, err = s.Accounts().ConsumeCode(ctx, domain.CodeSignup, a.Email, "code-1", now, "")
		require.ErrorIs(t, err, store.ErrCodeMismatch)
	})

	t.Run("ConsumeExpiredCode", func(t *testing.T) {
		s := open(t)
		a := newAccount("ana@x.com", now)
		require.NoError(t, s.Accounts().Create(ctx, a))

		_, err := s.Accounts().ConsumeCode(ctx, domain.CodeSignup, a.Email, "code-1", a.OTPExpiry.Add(time.Second), "")
		require.ErrorIs(t, err, store.ErrCodeMismatch)

		got, err := s.Accounts().GetByEmail(ctx, a.Email)
		require.NoError(t, err)
		require.False(t, got.Verified)
	})

	t.Run("ConsumeIsSingleUseUnderConcurrency", func(t *testing.T) {
		s := open(t)
		a := newAccount("ana@x.com", now)
		require.NoError(t, s.Accounts().Create(ctx, a))

		var wg sync.WaitGroup
		errs := make([]error, 8)
		for i := range errs {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, errs[i] = s.Accounts().ConsumeCode(ctx, domain.CodeSignup, a.Email, "code-1", now, "")
			}()
		}
		wg.Wait()

		ok := 0
		for _, err := range errs {
			if err == nil {
				ok++
			} else {
				require.ErrorIs(t, err, store.ErrCodeMismatch)
			}
		}
		require.Equal(t, 1, ok)
	})

	t.Run("ResetCodeFlow", func(t *testing.T) {
		s := open(t)
		a := newAccount("ana@x.com", now)
		require.NoError(t, s.Accounts().Create(ctx, a))

		exp := now.Add(5 * time.Minute)
		require.NoError(t, s.Accounts().SetCode(ctx, domain.CodeReset, a.Email, "reset-1", exp))
		require.ErrorIs(t, s.Accounts().SetCode(ctx, domain.CodeReset, "nobody@x.com", "r", exp), store.ErrNotFound)

		// The signup code is untouched by reset traffic.
		got, err := s.Accounts().GetByEmail(ctx, a.Email)
		require.NoError(t, err)
		require.Equal(t, "code-1", got.OTPHash)
		require.Equal(t, "reset-1", got.ResetOTPHash)

		_, err = s.Accounts().ConsumeCode(ctx, domain.CodeReset, a.Email, "code-1", now, "new-hash")
		require.ErrorIs(t, err, store.ErrCodeMismatch)

		got, err = s.Accounts().ConsumeCode(ctx, domain.CodeReset, a.Email, "reset-1", now, "new-hash")
		require.NoError(t, err)
		require.Equal(t, "new-hash", got.PasswordHash)
		require.Empty(t, got.ResetOTPHash)
		require.Nil(t, got.ResetExpiry)
		require.False(t, got.Verified)
	})

	t.Run("SetCodeOverwrites", func(t *testing.T) {
		s := open(t)
		a := newAccount("ana@x.com", now)
		require.NoError(t, s.Accounts().Create(ctx, a))
		require.NoError(t, s.Accounts().SetCode(ctx, domain.CodeSignup, a.Email, "code-2", now.Add(time.Minute)))

		_, err := s.Accounts().ConsumeCode(ctx, domain.CodeSignup, a.Email, "code-1", now, "")
		require.ErrorIs(t, err, store.ErrCodeMismatch)
		_, err = s.Accounts().ConsumeCode(ctx, domain.CodeSignup, a.Email, "code-2", now, "")
		require.NoError(t, err)
	})

	t.Run("ClearExpiredCodes", func(t *testing.T) {
		s := open(t)
		stale := newAccount("stale@x.com", now)
		past := now.Add(-time.Minute)
		stale.OTPExpiry = &past
		stale.ResetOTPHash = "reset"
		stale.ResetExpiry = &past
		require.NoError(t, s.Accounts().Create(ctx, stale))

		fresh := newAccount("fresh@x.com", now)
		require.NoError(t, s.Accounts().Create(ctx, fresh))

		n, err := s.Accounts().ClearExpiredCodes(ctx, now)
		require.NoError(t, err)
		require.EqualValues(t, 2, n)

		got, err := s.Accounts().GetByEmail(ctx, "stale@x.com")
		require.NoError(t, err)
		require.Empty(t, got.OTPHash)
		require.Nil(t, got.OTPExpiry)
		require.Empty(t, got.ResetOTPHash)

		got, err = s.Accounts().GetByEmail(ctx, "fresh@x.com")
		require.NoError(t, err)
		require.Equal(t, "code-1", got.OTPHash)
	})

	t.Run("Count", func(t *testing.T) {
		s := open(t)
		n, err := s.Accounts().Count(ctx)
		require.NoError(t, err)
		require.Zero(t, n)

		require.NoError(t, s.Accounts().Create(ctx, newAccount("a@x.com", now)))
		require.NoError(t, s.Accounts().Create(ctx, newAccount("b@x.com", now)))
		n, err = s.Accounts().Count(ctx)
		require.NoError(t, err)
		require.EqualValues(t, 2, n)
	})

	t.Run("Ping", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Ping(ctx))
		require.NotEmpty(t, s.Name())
	})
}
