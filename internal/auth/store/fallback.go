package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/aussiebroadwan/studybuddy/internal/auth/domain"
)

// DefaultPingTimeout bounds the per-call reachability check on the primary.
const DefaultPingTimeout = 2 * time.Second

// Fallback routes every call to Primary while it answers a ping, and to
// Secondary otherwise. Reachability is checked per call so the service
// returns to Primary on its own once it comes back.
type Fallback struct {
	Primary     Store
	Secondary   Store
	PingTimeout time.Duration
	Log         *slog.Logger

	onPrimary atomic.Bool
	prepared  atomic.Bool
}

// Preparer is implemented by stores that need setup against a live server,
// such as creating indexes, before they may serve calls.
type Preparer interface {
	Prepare(ctx context.Context) error
}

// NewFallback returns a Fallback that assumes Primary is up until a ping
// says otherwise.
func NewFallback(primary, secondary Store, log *slog.Logger) *Fallback {
	if log == nil {
		log = slog.Default()
	}
	f := &Fallback{
		Primary:     primary,
		Secondary:   secondary,
		PingTimeout: DefaultPingTimeout,
		Log:         log,
	}
	f.onPrimary.Store(true)
	return f
}

// Status describes which backend the last call used.
type Status struct {
	Primary          string
	Secondary        string
	PrimaryConnected bool
	SecondaryCount   int64
}

// Active pings Primary and returns whichever store should serve this call.
func (f *Fallback) Active(ctx context.Context) Store {
	timeout := f.PingTimeout
	if timeout <= 0 {
		timeout = DefaultPingTimeout
	}
	pctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := f.Primary.Ping(pctx)
	if err == nil && !f.prepared.Load() {
		err = f.prepare(pctx)
	}
	up := err == nil
	if was := f.onPrimary.Swap(up); was != up {
		if up {
			f.Log.Info("primary store reachable again", "driver", f.Primary.Name())
		} else {
			f.Log.Warn("primary store unreachable, using fallback",
				"driver", f.Primary.Name(), "fallback", f.Secondary.Name(), "err", err)
		}
	}
	if up {
		return f.Primary
	}
	return f.Secondary
}

// prepare runs Primary's Preparer until it succeeds once. Until then the
// primary is treated as unreachable.
func (f *Fallback) prepare(ctx context.Context) error {
	if p, ok := f.Primary.(Preparer); ok {
		if err := p.Prepare(ctx); err != nil {
			return fmt.Errorf("prepare %s: %w", f.Primary.Name(), err)
		}
		f.Log.Info("primary store prepared", "driver", f.Primary.Name())
	}
	f.prepared.Store(true)
	return nil
}

// Status reports primary reachability and how many accounts live only in
// the secondary store.
func (f *Fallback) Status(ctx context.Context) Status {
	active := f.Active(ctx)
	n, _ := f.Secondary.Accounts().Count(ctx)
	return Status{
		Primary:          f.Primary.Name(),
		Secondary:        f.Secondary.Name(),
		PrimaryConnected: active == f.Primary,
		SecondaryCount:   n,
	}
}

func (f *Fallback) Accounts() Accounts { return &fallbackAccounts{f: f} }

func (f *Fallback) Name() string { return f.Primary.Name() + "+" + f.Secondary.Name() }

// Ping succeeds while either backend is usable.
func (f *Fallback) Ping(ctx context.Context) error {
	return f.Active(ctx).Ping(ctx)
}

func (f *Fallback) Close() error {
	return errors.Join(f.Primary.Close(), f.Secondary.Close())
}

type fallbackAccounts struct {
	f *Fallback
}

func (a *fallbackAccounts) repo(ctx context.Context) Accounts {
	return a.f.Active(ctx).Accounts()
}

func (a *fallbackAccounts) GetByEmail(ctx context.Context, email string) (domain.Account, error) {
	return a.repo(ctx).GetByEmail(ctx, email)
}

func (a *fallbackAccounts) Create(ctx context.Context, acct domain.Account) error {
	return a.repo(ctx).Create(ctx, acct)
}

func (a *fallbackAccounts) RefreshUnverified(ctx context.Context, email, name, passwordHash, codeHash string, expiry time.Time) error {
	return a.repo(ctx).RefreshUnverified(ctx, email, name, passwordHash, codeHash, expiry)
}

func (a *fallbackAccounts) SetCode(ctx context.Context, p domain.CodePurpose, email, codeHash string, expiry time.Time) error {
	return a.repo(ctx).SetCode(ctx, p, email, codeHash, expiry)
}

func (a *fallbackAccounts) ConsumeCode(ctx context.Context, p domain.CodePurpose, email, codeHash string, now time.Time, newPasswordHash string) (domain.Account, error) {
	return a.repo(ctx).ConsumeCode(ctx, p, email, codeHash, now, newPasswordHash)
}

// ClearExpiredCodes sweeps both backends; the secondary may hold accounts
// created while the primary was down.
func (a *fallbackAccounts) ClearExpiredCodes(ctx context.Context, now time.Time) (int64, error) {
	n, err := a.f.Secondary.Accounts().ClearExpiredCodes(ctx, now)
	if err != nil {
		return n, err
	}
	if a.f.Active(ctx) != a.f.Primary {
		return n, nil
	}
	m, err := a.f.Primary.Accounts().ClearExpiredCodes(ctx, now)
	return n + m, err
}

func (a *fallbackAccounts) Count(ctx context.Context) (int64, error) {
	return a.repo(ctx).Count(ctx)
}
