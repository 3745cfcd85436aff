package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

const (
	// DefaultRefreshLead is how long before expiry the scheduler refreshes,
	// so a 15-minute token is renewed around the 14-minute mark.
	DefaultRefreshLead = time.Minute

	refreshCallTimeout = 30 * time.Second
)

// RefreshScheduler schedules a single refresh attempt ahead of token expiry.
// Arming is coalescing: there is at most one scheduled attempt and at most
// one refresh in flight, however many times Arm is called.
type RefreshScheduler struct {
	mu       sync.Mutex
	timer    *time.Timer
	inFlight bool

	lead     time.Duration
	refresh  func(ctx context.Context) error
	teardown func(ctx context.Context)
	logger   *slog.Logger
	ended    chan struct{}
	nowFunc  func() time.Time
}

func newRefreshScheduler(
	lead time.Duration,
	refresh func(ctx context.Context) error,
	teardown func(ctx context.Context),
	logger *slog.Logger,
) *RefreshScheduler {
	if lead <= 0 {
		lead = DefaultRefreshLead
	}
	return &RefreshScheduler{
		lead:     lead,
		refresh:  refresh,
		teardown: teardown,
		logger:   logger,
		ended:    make(chan struct{}, 1),
		nowFunc:  time.Now,
	}
}

// SessionEnded signals a background refresh failure that tore the session
// down.
func (s *RefreshScheduler) SessionEnded() <-chan struct{} {
	return s.ended
}

// Arm schedules one refresh attempt shortly before expiresAt. A second Arm
// replaces the pending attempt rather than adding another, so concurrent
// arms still produce exactly one outbound refresh.
func (s *RefreshScheduler) Arm(expiresAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delay := expiresAt.Sub(s.nowFunc()) - s.lead
	if delay < 0 {
		delay = 0
	}

	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(delay, s.fire)
}

// Cancel stops any pending attempt. It is idempotent and safe to call
// before the scheduler was ever armed; a refresh already in flight is left
// to finish, its result discarded by the controller's logged-in check.
func (s *RefreshScheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *RefreshScheduler) fire() {
	s.mu.Lock()
	s.timer = nil
	if s.inFlight {
		s.mu.Unlock()
		return
	}
	s.inFlight = true
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), refreshCallTimeout)
	defer cancel()

	err := s.refresh(ctx)

	s.mu.Lock()
	s.inFlight = false
	s.mu.Unlock()

	if err == nil {
		// The controller re-armed for the next cycle while persisting.
		return
	}
	if errors.Is(err, ErrNoSession) {
		// Nothing to refresh; stay quiet.
		return
	}

	s.logger.Warn("background refresh failed; ending session",
		slog.String("error", err.Error()),
	)
	s.teardown(ctx)

	select {
	case s.ended <- struct{}{}:
	default:
	}
}
