package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/aussiebroadwan/studybuddy/internal/auth/domain"
	"github.com/aussiebroadwan/studybuddy/internal/auth/store"
	"github.com/aussiebroadwan/studybuddy/pkg/cryptox"
	"github.com/aussiebroadwan/studybuddy/pkg/idx"
	"github.com/aussiebroadwan/studybuddy/pkg/slogx"
)

// DefaultCodeTTL is how long an issued one-time code stays valid.
const DefaultCodeTTL = 5 * time.Minute

var (
	ErrMissingFields      = errors.New("missing_fields")
	ErrNotFound           = errors.New("account_not_found")
	ErrInvalidOTP         = errors.New("invalid_otp")
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrUnverifiedAccount  = errors.New("unverified_account")
	ErrDuplicateAccount   = errors.New("duplicate_account")
)

// Mailer delivers one-time codes.
type Mailer interface {
	SendCode(ctx context.Context, msg CodeMessage) error
}

// CodeMessage is a single code delivery.
type CodeMessage struct {
	To      string
	Name    string
	Code    string
	Purpose domain.CodePurpose
	TTL     time.Duration
}

// SessionIssuer mints a session token for a logged in account.
type SessionIssuer interface {
	Issue(subject, email, name string) (string, time.Time, error)
}

// Delivery reports whether the code email went out. The code is stored
// either way; callers offer a resend when EmailSent is false.
type Delivery struct {
	EmailSent bool
}

// SignupResult is returned by Signup.
type SignupResult struct {
	Delivery
	// Reissued is true when an unverified account already existed and got
	// a fresh code instead of a new record.
	Reissued bool
}

// Session is returned by the login paths.
type Session struct {
	Account   domain.Account
	Token     string // empty when no SessionIssuer is configured
	ExpiresAt time.Time
}

// AccountService owns the account lifecycle: signup, verification, login
// and password reset.
type AccountService struct {
	Store    store.Store
	Mailer   Mailer
	Sessions SessionIssuer
	CodeTTL  time.Duration

	// Now is overridable for tests.
	Now func() time.Time
}

func (s *AccountService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *AccountService) ttl() time.Duration {
	if s.CodeTTL > 0 {
		return s.CodeTTL
	}
	return DefaultCodeTTL
}

// normaliseEmail trims whitespace; case is kept as given.
func normaliseEmail(email string) string { return strings.TrimSpace(email) }

// Signup creates an unverified account and emails it a code. Signing up
// again before verifying replaces the pending code (and name/password).
func (s *AccountService) Signup(ctx context.Context, name, email, password string) (SignupResult, error) {
	name, email = strings.TrimSpace(name), normaliseEmail(email)
	if name == "" || email == "" || password == "" {
		return SignupResult{}, ErrMissingFields
	}
	log := slogx.FromContext(ctx)

	existing, err := s.Store.Accounts().GetByEmail(ctx, email)
	found := err == nil
	switch {
	case found && existing.Verified:
		return SignupResult{}, ErrDuplicateAccount
	case err != nil && !errors.Is(err, store.ErrNotFound):
		return SignupResult{}, err
	}

	pwHash, err := cryptox.HashPassword(password)
	if err != nil {
		return SignupResult{}, err
	}
	code, codeHash, err := newCode()
	if err != nil {
		return SignupResult{}, err
	}
	now := s.now()
	expiry := now.Add(s.ttl())

	if !found {
		err = s.Store.Accounts().Create(ctx, domain.Account{
			ID:           idx.NewAt(now).String(),
			Name:         name,
			Email:        email,
			PasswordHash: pwHash,
			OTPHash:      codeHash,
			OTPExpiry:    &expiry,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
		switch {
		case errors.Is(err, store.ErrAlreadyExists):
			found = true // lost a race with a concurrent signup
		case err != nil:
			return SignupResult{}, err
		}
	}

	var res SignupResult
	if found {
		err = s.Store.Accounts().RefreshUnverified(ctx, email, name, pwHash, codeHash, expiry)
		if errors.Is(err, store.ErrAlreadyExists) {
			return SignupResult{}, ErrDuplicateAccount
		}
		if err != nil {
			return SignupResult{}, err
		}
		res.Reissued = true
	}

	res.Delivery = s.deliver(ctx, CodeMessage{To: email, Name: name, Code: code, Purpose: domain.CodeSignup, TTL: s.ttl()})
	log.Info("signup code issued", "email", email, "reissued", res.Reissued, "email_sent", res.EmailSent)
	return res, nil
}

// VerifyOTP marks the account verified if code is its live signup code.
func (s *AccountService) VerifyOTP(ctx context.Context, email, code string) error {
	email, code = normaliseEmail(email), strings.TrimSpace(code)
	if email == "" || code == "" {
		return ErrMissingFields
	}

	if _, err := s.Store.Accounts().GetByEmail(ctx, email); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}

	_, err := s.consume(ctx, domain.CodeSignup, email, code, "")
	return err
}

// ResendOTP issues a fresh signup code regardless of verification state.
func (s *AccountService) ResendOTP(ctx context.Context, email string) (Delivery, error) {
	return s.issue(ctx, domain.CodeSignup, email)
}

// VerifyAndLogin consumes the signup code and checks the password in one
// step. The code is spent even when the password turns out wrong.
func (s *AccountService) VerifyAndLogin(ctx context.Context, email, code, password string) (Session, error) {
	email, code = normaliseEmail(email), strings.TrimSpace(code)
	if email == "" || code == "" || password == "" {
		return Session{}, ErrMissingFields
	}

	acct, err := s.consume(ctx, domain.CodeSignup, email, code, "")
	if err != nil {
		return Session{}, err
	}
	if err := cryptox.VerifyPassword(password, acct.PasswordHash); err != nil {
		slogx.FromContext(ctx).Info("verify-and-login password mismatch", "email", email)
		return Session{}, ErrInvalidCredentials
	}
	return s.session(acct)
}

// Login checks verification before the password, so an unverified account
// never reveals whether the password was right.
func (s *AccountService) Login(ctx context.Context, email, password string) (Session, error) {
	email = normaliseEmail(email)
	if email == "" || password == "" {
		return Session{}, ErrMissingFields
	}

	acct, err := s.Store.Accounts().GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, err
	}
	if !acct.Verified {
		return Session{}, ErrUnverifiedAccount
	}
	if err := cryptox.VerifyPassword(password, acct.PasswordHash); err != nil {
		slogx.FromContext(ctx).Info("login password mismatch", "email", email)
		return Session{}, ErrInvalidCredentials
	}
	return s.session(acct)
}

// ForgotPassword issues a reset code.
func (s *AccountService) ForgotPassword(ctx context.Context, email string) (Delivery, error) {
	return s.issue(ctx, domain.CodeReset, email)
}

// ResetPassword installs newPassword if code is the live reset code.
func (s *AccountService) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	email, code = normaliseEmail(email), strings.TrimSpace(code)
	if email == "" || code == "" || newPassword == "" {
		return ErrMissingFields
	}

	pwHash, err := cryptox.HashPassword(newPassword)
	if err != nil {
		return err
	}
	_, err = s.consume(ctx, domain.CodeReset, email, code, pwHash)
	return err
}

// Account returns the account stored under email.
func (s *AccountService) Account(ctx context.Context, email string) (domain.Account, error) {
	acct, err := s.Store.Accounts().GetByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Account{}, ErrNotFound
	}
	return acct, err
}

func (s *AccountService) issue(ctx context.Context, p domain.CodePurpose, email string) (Delivery, error) {
	email = normaliseEmail(email)
	if email == "" {
		return Delivery{}, ErrMissingFields
	}

	acct, err := s.Store.Accounts().GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Delivery{}, ErrNotFound
		}
		return Delivery{}, err
	}

	code, codeHash, err := newCode()
	if err != nil {
		return Delivery{}, err
	}
	if err := s.Store.Accounts().SetCode(ctx, p, email, codeHash, s.now().Add(s.ttl())); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Delivery{}, ErrNotFound
		}
		return Delivery{}, err
	}

	d := s.deliver(ctx, CodeMessage{To: email, Name: acct.Name, Code: code, Purpose: p, TTL: s.ttl()})
	slogx.FromContext(ctx).Info("code issued", "purpose", p, "email", email, "email_sent", d.EmailSent)
	return d, nil
}

func (s *AccountService) consume(ctx context.Context, p domain.CodePurpose, email, code, newPasswordHash string) (domain.Account, error) {
	acct, err := s.Store.Accounts().ConsumeCode(ctx, p, email, cryptox.FingerprintToken(code), s.now(), newPasswordHash)
	if errors.Is(err, store.ErrCodeMismatch) {
		return domain.Account{}, ErrInvalidOTP
	}
	return acct, err
}

// deliver never fails the surrounding operation.
func (s *AccountService) deliver(ctx context.Context, msg CodeMessage) Delivery {
	if s.Mailer == nil {
		return Delivery{}
	}
	if err := s.Mailer.SendCode(ctx, msg); err != nil {
		slogx.FromContext(ctx).Warn("code email failed", "purpose", msg.Purpose, "email", msg.To, "err", err)
		return Delivery{}
	}
	return Delivery{EmailSent: true}
}

func (s *AccountService) session(acct domain.Account) (Session, error) {
	out := Session{Account: acct}
	if s.Sessions == nil {
		return out, nil
	}
	tok, exp, err := s.Sessions.Issue(acct.ID, acct.Email, acct.Name)
	if err != nil {
		return Session{}, err
	}
	out.Token, out.ExpiresAt = tok, exp
	return out, nil
}

func newCode() (code, hash string, err error) {
	code, err = cryptox.GenerateOTP()
	if err != nil {
		return "", "", err
	}
	return code, cryptox.FingerprintToken(code), nil
}
