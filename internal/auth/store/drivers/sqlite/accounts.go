package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/aussiebroadwan/studybuddy/internal/auth/domain"
	"github.com/aussiebroadwan/studybuddy/internal/auth/store"
)

const accountColumns = `id, name, email, password_hash, verified,
	otp_hash, otp_expiry, reset_otp_hash, reset_expiry, created_at, updated_at`

type accountsRepo struct {
	db *sql.DB
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (domain.Account, error) {
	var (
		a                    domain.Account
		otpHash, resetHash   sql.NullString
		otpExpiry, resetExp  sql.NullInt64
		createdAt, updatedAt int64
	)
	if err := row.Scan(&a.ID, &a.Name, &a.Email, &a.PasswordHash, &a.Verified,
		&otpHash, &otpExpiry, &resetHash, &resetExp, &createdAt, &updatedAt); err != nil {
		return domain.Account{}, mapNotFound(err)
	}

	a.OTPHash = mapNullString(otpHash)
	a.OTPExpiry = mapNullMillisPtr(otpExpiry)
	a.ResetOTPHash = mapNullString(resetHash)
	a.ResetExpiry = mapNullMillisPtr(resetExp)
	a.CreatedAt = fromMillis(createdAt)
	a.UpdatedAt = fromMillis(updatedAt)
	return a, nil
}

func (r *accountsRepo) GetByEmail(ctx context.Context, email string) (domain.Account, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE email = ?`, email)
	return scanAccount(row)
}

func (r *accountsRepo) Create(ctx context.Context, a domain.Account) error {
	var otpExpiry, resetExpiry sql.NullInt64
	if a.OTPExpiry != nil {
		otpExpiry = sql.NullInt64{Int64: toMillis(*a.OTPExpiry), Valid: true}
	}
	if a.ResetExpiry != nil {
		resetExpiry = sql.NullInt64{Int64: toMillis(*a.ResetExpiry), Valid: true}
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO accounts (`+accountColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Name, a.Email, a.PasswordHash, a.Verified,
		nullIfEmpty(a.OTPHash), otpExpiry, nullIfEmpty(a.ResetOTPHash), resetExpiry,
		toMillis(a.CreatedAt), toMillis(a.UpdatedAt),
	)
	if err != nil && isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	return err
}

func (r *accountsRepo) RefreshUnverified(ctx context.Context, email, name, passwordHash, codeHash string, expiry time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE accounts
		SET name = ?, password_hash = ?, otp_hash = ?, otp_expiry = ?, updated_at = ?
		WHERE email = ? AND verified = 0`,
		name, passwordHash, codeHash, toMillis(expiry), toMillis(time.Now()), email,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return nil
	}

	// Nothing updated: either missing or already verified.
	if _, err := r.GetByEmail(ctx, email); err != nil {
		return err
	}
	return store.ErrAlreadyExists
}

func (r *accountsRepo) SetCode(ctx context.Context, p domain.CodePurpose, email, codeHash string, expiry time.Time) error {
	hashCol, expCol := codeColumns(p)
	res, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET `+hashCol+` = ?, `+expCol+` = ?, updated_at = ? WHERE email = ?`,
		codeHash, toMillis(expiry), toMillis(time.Now()), email,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *accountsRepo) ConsumeCode(ctx context.Context, p domain.CodePurpose, email, codeHash string, now time.Time, newPasswordHash string) (domain.Account, error) {
	hashCol, expCol := codeColumns(p)

	effect := `verified = 1`
	args := []any{}
	if p == domain.CodeReset {
		effect = `password_hash = ?`
		args = append(args, newPasswordHash)
	}
	args = append(args, toMillis(now), email, codeHash, toMillis(now))

	row := r.db.QueryRowContext(ctx, `
		UPDATE accounts
		SET `+hashCol+` = NULL, `+expCol+` = NULL, `+effect+`, updated_at = ?
		WHERE email = ? AND `+hashCol+` = ? AND `+expCol+` > ?
		RETURNING `+accountColumns, args...)

	a, err := scanAccount(row)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Account{}, store.ErrCodeMismatch
	}
	return a, err
}

func (r *accountsRepo) ClearExpiredCodes(ctx context.Context, now time.Time) (int64, error) {
	var total int64
	for _, p := range []domain.CodePurpose{domain.CodeSignup, domain.CodeReset} {
		hashCol, expCol := codeColumns(p)
		res, err := r.db.ExecContext(ctx,
			`UPDATE accounts SET `+hashCol+` = NULL, `+expCol+` = NULL WHERE `+expCol+` <= ?`,
			toMillis(now),
		)
		if err != nil {
			return total, err
		}
		n, _ := res.RowsAffected()
		total += n
	}
	return total, nil
}

func (r *accountsRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts`).Scan(&n)
	return n, err
}

func codeColumns(p domain.CodePurpose) (hash, expiry string) {
	if p == domain.CodeReset {
		return "reset_otp_hash", "reset_expiry"
	}
	return "otp_hash", "otp_expiry"
}

func nullIfEmpty(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
