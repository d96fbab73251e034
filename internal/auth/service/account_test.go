package service

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/studybuddy/internal/auth/domain"
	"github.com/aussiebroadwan/studybuddy/internal/auth/store/drivers/memory"
	"github.com/aussiebroadwan/studybuddy/pkg/cryptox"
	"github.com/aussiebroadwan/studybuddy/pkg/jwtx"
	"github.com/aussiebroadwan/studybuddy/pkg/slogx"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "studybuddy-service")
	if err != nil {
		panic(err)
	}
	cryptox.SetPepperPath(filepath.Join(dir, "pepper"))
	code := m.Run()
	_ = os.RemoveAll(dir)
	os.Exit(code)
}

// fakeMailer records every delivery and can be told to fail.
type fakeMailer struct {
	mu   sync.Mutex
	sent []CodeMessage
	fail bool
}

func (m *fakeMailer) SendCode(ctx context.Context, msg CodeMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("smtp: connection refused")
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *fakeMailer) last(t *testing.T) CodeMessage {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.sent, "no code was mailed")
	return m.sent[len(m.sent)-1]
}

type fixture struct {
	svc    *AccountService
	mailer *fakeMailer
	store  *memory.Store
	now    time.Time
}

func (f *fixture) advance(d time.Duration) { f.now = f.now.Add(d) }

func newFixture(t *testing.T) *fixture {
	t.Helper()

	_, key, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	keys, err := jwtx.NewSessionKeys(key, "studybuddy", time.Hour)
	require.NoError(t, err)

	f := &fixture{
		mailer: &fakeMailer{},
		store:  memory.NewStore(),
		now:    time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	f.svc = &AccountService{
		Store:    f.store,
		Mailer:   f.mailer,
		Sessions: keys,
		CodeTTL:  5 * time.Minute,
		Now:      func() time.Time { return f.now },
	}
	keys.Now = func() time.Time { return f.now }
	return f
}

func wrongCode(code string) string {
	if code == "000000" {
		return "111111"
	}
	return "000000"
}

func TestSignupVerifyLoginScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	res, err := f.svc.Signup(ctx, "Ana", "ana@x.com", "secret1")
	require.NoError(t, err)
	require.True(t, res.EmailSent)
	require.False(t, res.Reissued)

	acct, err := f.store.Accounts().GetByEmail(ctx, "ana@x.com")
	require.NoError(t, err)
	require.False(t, acct.Verified)
	require.Equal(t, f.now.Add(5*time.Minute), *acct.OTPExpiry)

	code := f.mailer.last(t).Code
	require.Len(t, code, 6)
	require.NotEqual(t, code, acct.OTPHash, "codes are stored hashed")

	require.ErrorIs(t, f.svc.VerifyOTP(ctx, "ana@x.com", wrongCode(code)), ErrInvalidOTP)
	acct, _ = f.store.Accounts().GetByEmail(ctx, "ana@x.com")
	require.False(t, acct.Verified)

	require.NoError(t, f.svc.VerifyOTP(ctx, "ana@x.com", code))
	acct, _ = f.store.Accounts().GetByEmail(ctx, "ana@x.com")
	require.True(t, acct.Verified)
	require.Empty(t, acct.OTPHash)
	require.Nil(t, acct.OTPExpiry)

	// A spent code never verifies twice.
	require.ErrorIs(t, f.svc.VerifyOTP(ctx, "ana@x.com", code), ErrInvalidOTP)

	sess, err := f.svc.Login(ctx, "ana@x.com", "secret1")
	require.NoError(t, err)
	require.Equal(t, "Ana", sess.Account.Name)
	require.NotEmpty(t, sess.Token)

	_, err = f.svc.Login(ctx, "ana@x.com", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestSignupValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	for _, tc := range []struct{ name, email, password string }{
		{"", "a@x.com", "pw"},
		{"Ana", "  ", "pw"},
		{"Ana", "a@x.com", ""},
	} {
		_, err := f.svc.Signup(ctx, tc.name, tc.email, tc.password)
		require.ErrorIs(t, err, ErrMissingFields)
	}
}

func TestSignupTrimsEmailButKeepsCase(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.Signup(ctx, "Ana", "  Ana@X.com ", "pw")
	require.NoError(t, err)

	_, err = f.store.Accounts().GetByEmail(ctx, "Ana@X.com")
	require.NoError(t, err)
	require.ErrorIs(t, f.svc.VerifyOTP(ctx, "ana@x.com", f.mailer.last(t).Code), ErrNotFound)
}

func TestSignupDuplicateVerified(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.Signup(ctx, "Ana", "ana@x.com", "secret1")
	require.NoError(t, err)
	require.NoError(t, f.svc.VerifyOTP(ctx, "ana@x.com", f.mailer.last(t).Code))

	_, err = f.svc.Signup(ctx, "Ana", "ana@x.com", "other")
	require.ErrorIs(t, err, ErrDuplicateAccount)
}

func TestSignupReissuesForUnverified(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.Signup(ctx, "Ana", "ana@x.com", "secret1")
	require.NoError(t, err)
	first := f.mailer.last(t).Code

	f.advance(time.Minute)
	res, err := f.svc.Signup(ctx, "Ana", "ana@x.com", "secret2")
	require.NoError(t, err)
	require.True(t, res.Reissued)
	second := f.mailer.last(t).Code

	n, _ := f.store.Accounts().Count(ctx)
	require.EqualValues(t, 1, n)

	if first != second {
		require.ErrorIs(t, f.svc.VerifyOTP(ctx, "ana@x.com", first), ErrInvalidOTP, "old code is invalidated")
	}
	require.NoError(t, f.svc.VerifyOTP(ctx, "ana@x.com", second))

	_, err = f.svc.Login(ctx, "ana@x.com", "secret2")
	require.NoError(t, err)
}

func TestSignupMailFailureKeepsAccount(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.mailer.fail = true

	res, err := f.svc.Signup(ctx, "Ana", "ana@x.com", "secret1")
	require.NoError(t, err)
	require.False(t, res.EmailSent)

	acct, err := f.store.Accounts().GetByEmail(ctx, "ana@x.com")
	require.NoError(t, err)
	require.NotEmpty(t, acct.OTPHash)

	// Resend works once mail is back.
	f.mailer.fail = false
	d, err := f.svc.ResendOTP(ctx, "ana@x.com")
	require.NoError(t, err)
	require.True(t, d.EmailSent)
	require.NoError(t, f.svc.VerifyOTP(ctx, "ana@x.com", f.mailer.last(t).Code))
}

func TestVerifyOTPExpired(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.Signup(ctx, "Ana", "ana@x.com", "secret1")
	require.NoError(t, err)
	code := f.mailer.last(t).Code

	f.advance(5 * time.Minute)
	require.ErrorIs(t, f.svc.VerifyOTP(ctx, "ana@x.com", code), ErrInvalidOTP)

	acct, _ := f.store.Accounts().GetByEmail(ctx, "ana@x.com")
	require.False(t, acct.Verified)
}

func TestVerifyOTPUnknownAccount(t *testing.T) {
	f := newFixture(t)
	require.ErrorIs(t, f.svc.VerifyOTP(context.Background(), "nobody@x.com", "123456"), ErrNotFound)
	require.ErrorIs(t, f.svc.VerifyOTP(context.Background(), "nobody@x.com", ""), ErrMissingFields)
}

func TestResendOTP(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.ResendOTP(ctx, "nobody@x.com")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = f.svc.ResendOTP(ctx, "")
	require.ErrorIs(t, err, ErrMissingFields)

	_, err = f.svc.Signup(ctx, "Ana", "ana@x.com", "secret1")
	require.NoError(t, err)

	f.advance(10 * time.Minute) // first code is long dead
	d, err := f.svc.ResendOTP(ctx, "ana@x.com")
	require.NoError(t, err)
	require.True(t, d.EmailSent)

	msg := f.mailer.last(t)
	require.Equal(t, domain.CodeSignup, msg.Purpose)
	require.Equal(t, "Ana", msg.Name)
	require.NoError(t, f.svc.VerifyOTP(ctx, "ana@x.com", msg.Code))
}

func TestResendMailFailureIsNonFatal(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.svc.Signup(ctx, "Ana", "ana@x.com", "secret1")
	require.NoError(t, err)

	f.mailer.fail = true
	d, err := f.svc.ResendOTP(ctx, "ana@x.com")
	require.NoError(t, err)
	require.False(t, d.EmailSent)
}

func TestLoginUnverifiedCheckedBeforePassword(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.Signup(ctx, "Ana", "ana@x.com", "secret1")
	require.NoError(t, err)

	_, err = f.svc.Login(ctx, "ana@x.com", "secret1")
	require.ErrorIs(t, err, ErrUnverifiedAccount)
	_, err = f.svc.Login(ctx, "ana@x.com", "wrong")
	require.ErrorIs(t, err, ErrUnverifiedAccount)

	_, err = f.svc.Login(ctx, "nobody@x.com", "secret1")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestVerifyAndLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("success issues session and verifies", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Signup(ctx, "Ana", "ana@x.com", "secret1")
		require.NoError(t, err)

		sess, err := f.svc.VerifyAndLogin(ctx, "ana@x.com", f.mailer.last(t).Code, "secret1")
		require.NoError(t, err)
		require.True(t, sess.Account.Verified)
		require.NotEmpty(t, sess.Token)
		require.Equal(t, f.now.Add(time.Hour).Unix(), sess.ExpiresAt.Unix())
	})

	t.Run("wrong password still spends the code", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Signup(ctx, "Ana", "ana@x.com", "secret1")
		require.NoError(t, err)
		code := f.mailer.last(t).Code

		_, err = f.svc.VerifyAndLogin(ctx, "ana@x.com", code, "wrong")
		require.ErrorIs(t, err, ErrInvalidCredentials)

		_, err = f.svc.VerifyAndLogin(ctx, "ana@x.com", code, "secret1")
		require.ErrorIs(t, err, ErrInvalidOTP)
	})

	t.Run("bad or expired code", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Signup(ctx, "Ana", "ana@x.com", "secret1")
		require.NoError(t, err)
		code := f.mailer.last(t).Code

		_, err = f.svc.VerifyAndLogin(ctx, "ana@x.com", wrongCode(code), "secret1")
		require.ErrorIs(t, err, ErrInvalidOTP)

		f.advance(6 * time.Minute)
		_, err = f.svc.VerifyAndLogin(ctx, "ana@x.com", code, "secret1")
		require.ErrorIs(t, err, ErrInvalidOTP)

		_, err = f.svc.VerifyAndLogin(ctx, "nobody@x.com", code, "secret1")
		require.ErrorIs(t, err, ErrInvalidOTP)
	})

	t.Run("concurrent attempts consume once", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Signup(ctx, "Ana", "ana@x.com", "secret1")
		require.NoError(t, err)
		code := f.mailer.last(t).Code

		var wg sync.WaitGroup
		errs := make([]error, 4)
		for i := range errs {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, errs[i] = f.svc.VerifyAndLogin(ctx, "ana@x.com", code, "secret1")
			}()
		}
		wg.Wait()

		ok := 0
		for _, err := range errs {
			if err == nil {
				ok++
			} else {
				require.ErrorIs(t, err, ErrInvalidOTP)
			}
		}
		require.Equal(t, 1, ok)
	})
}

func TestForgotAndResetPassword(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.ForgotPassword(ctx, "nobody@x.com")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.Signup(ctx, "Ana", "ana@x.com", "secret1")
	require.NoError(t, err)
	require.NoError(t, f.svc.VerifyOTP(ctx, "ana@x.com", f.mailer.last(t).Code))

	d, err := f.svc.ForgotPassword(ctx, "ana@x.com")
	require.NoError(t, err)
	require.True(t, d.EmailSent)
	msg := f.mailer.last(t)
	require.Equal(t, domain.CodeReset, msg.Purpose)

	require.ErrorIs(t, f.svc.ResetPassword(ctx, "ana@x.com", wrongCode(msg.Code), "secret2"), ErrInvalidOTP)
	_, err = f.svc.Login(ctx, "ana@x.com", "secret1")
	require.NoError(t, err, "password unchanged after a failed reset")

	require.NoError(t, f.svc.ResetPassword(ctx, "ana@x.com", msg.Code, "secret2"))
	_, err = f.svc.Login(ctx, "ana@x.com", "secret1")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.svc.Login(ctx, "ana@x.com", "secret2")
	require.NoError(t, err)

	acct, _ := f.store.Accounts().GetByEmail(ctx, "ana@x.com")
	require.Empty(t, acct.ResetOTPHash)
	require.Nil(t, acct.ResetExpiry)

	require.ErrorIs(t, f.svc.ResetPassword(ctx, "ana@x.com", msg.Code, "secret3"), ErrInvalidOTP)
}

func TestResetPasswordExpired(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.Signup(ctx, "Ana", "ana@x.com", "secret1")
	require.NoError(t, err)
	_, err = f.svc.ForgotPassword(ctx, "ana@x.com")
	require.NoError(t, err)
	code := f.mailer.last(t).Code

	f.advance(5*time.Minute + time.Second)
	require.ErrorIs(t, f.svc.ResetPassword(ctx, "ana@x.com", code, "secret2"), ErrInvalidOTP)
	require.ErrorIs(t, f.svc.ResetPassword(ctx, "nobody@x.com", code, "secret2"), ErrInvalidOTP)
}

func TestForgotPasswordMailFailureIsNonFatal(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.svc.Signup(ctx, "Ana", "ana@x.com", "secret1")
	require.NoError(t, err)

	f.mailer.fail = true
	d, err := f.svc.ForgotPassword(ctx, "ana@x.com")
	require.NoError(t, err)
	require.False(t, d.EmailSent)

	acct, _ := f.store.Accounts().GetByEmail(ctx, "ana@x.com")
	require.NotEmpty(t, acct.ResetOTPHash, "reset code exists even though mail failed")
}

func TestHousekeepingSweep(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.Signup(ctx, "Ana", "ana@x.com", "secret1")
	require.NoError(t, err)

	hk := NewHousekeepingService(f.store, slogx.Discard(), time.Minute)
	hk.Now = func() time.Time { return f.now }
	require.Zero(t, hk.Sweep(ctx))

	f.advance(time.Hour)
	require.EqualValues(t, 1, hk.Sweep(ctx))

	acct, _ := f.store.Accounts().GetByEmail(ctx, "ana@x.com")
	require.Empty(t, acct.OTPHash)
}

func TestHousekeepingStartStop(t *testing.T) {
	hk := NewHousekeepingService(memory.NewStore(), slogx.Discard(), 10*time.Millisecond)
	hk.Start()
	time.Sleep(25 * time.Millisecond)
	hk.Stop()
}
