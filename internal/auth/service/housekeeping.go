package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/studybuddy/internal/auth/store"
)

// HousekeepingService periodically drops expired signup and reset codes.
// Expired codes already fail verification; this only removes stale data.
type HousekeepingService struct {
	Store    store.Store
	Logger   *slog.Logger
	Interval time.Duration

	// Now is overridable for tests.
	Now func() time.Time

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a new housekeeping service with the given interval.
// If interval is 0 or negative, defaults to 15 minutes.
func NewHousekeepingService(store store.Store, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 15 * time.Minute
	}

	return &HousekeepingService{
		Store:    store,
		Logger:   logger,
		Interval: interval,
		Now:      time.Now,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background worker. Call Stop to shut it down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop blocks until any in-progress sweep has finished.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.Sweep(context.Background())

	for {
		select {
		case <-ticker.C:
			s.Sweep(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// Sweep clears expired codes once and returns how many were removed.
func (s *HousekeepingService) Sweep(ctx context.Context) int64 {
	n, err := s.Store.Accounts().ClearExpiredCodes(ctx, s.Now().UTC())
	if err != nil {
		s.Logger.Error("failed to clear expired codes", "error", err)
		return n
	}
	s.Logger.Debug("housekeeping sweep completed", "codes_cleared", n)
	return n
}
