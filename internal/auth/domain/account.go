package domain

import "time"

// CodePurpose says which pending one-time code on an account is meant.
type CodePurpose string

const (
	CodeSignup CodePurpose = "signup"
	CodeReset  CodePurpose = "reset"
)

// Account is a registered user. Email is unique and compared as stored.
//
// OTPHash/ResetOTPHash hold fingerprints of the issued codes, never the
// codes themselves. A code is pending while its hash is set; it is valid
// only while its expiry is in the future.
type Account struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string // argon2 encoded
	Verified     bool

	OTPHash   string
	OTPExpiry *time.Time

	ResetOTPHash string
	ResetExpiry  *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// PendingCode returns the stored hash and expiry for purpose.
func (a Account) PendingCode(p CodePurpose) (string, *time.Time) {
	if p == CodeReset {
		return a.ResetOTPHash, a.ResetExpiry
	}
	return a.OTPHash, a.OTPExpiry
}

// CodeValid reports whether hash matches a pending, unexpired code.
func (a Account) CodeValid(p CodePurpose, hash string, now time.Time) bool {
	stored, exp := a.PendingCode(p)
	return stored != "" && stored == hash && exp != nil && now.Before(*exp)
}
