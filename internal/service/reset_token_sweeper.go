package service

import (
	"context"
	"sync"
	"time"

	"github.com/gestionfin/operaciones/operaciones-backend/internal/domain"
	"github.com/rs/zerolog"
)

// DefaultSweepInterval is how often expired reset tokens are purged when no interval is configured
const DefaultSweepInterval = 10 * time.Minute

// ResetTokenSweeper is a background worker that periodically clears expired password
// reset tokens so stale links stop resolving to an account
type ResetTokenSweeper struct {
	usuarioRepo domain.UsuarioRepository
	logger      zerolog.Logger
	interval    time.Duration
	now         func() time.Time
	stopCh      chan struct{}
	doneCh      chan struct{}
	mu          sync.Mutex
	running     bool
}

// NewResetTokenSweeper creates a new sweeper. A non-positive interval uses DefaultSweepInterval.
func NewResetTokenSweeper(usuarioRepo domain.UsuarioRepository, logger zerolog.Logger, interval time.Duration) *ResetTokenSweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &ResetTokenSweeper{
		usuarioRepo: usuarioRepo,
		logger:      logger.With().Str("component", "reset_token_sweeper").Logger(),
		interval:    interval,
		now:         time.Now,
	}
}

// Start begins the background sweep. Calling it while the sweeper runs has no effect; a
// stopped sweeper can be started again.
func (w *ResetTokenSweeper) Start(ctx context.Context) {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	stop, done := w.stopCh, w.doneCh
	w.mu.Unlock()

	w.logger.Info().Dur("interval", w.interval).Msg("Starting reset token sweeper")
	go w.run(ctx, stop, done)
}

// Stop ends the current run and waits for its pass to finish. Concurrent and repeated
// calls are safe.
func (w *ResetTokenSweeper) Stop() {
	w.mu.Lock()
	stop, done := w.stopCh, w.doneCh
	w.stopCh = nil
	w.mu.Unlock()
	if stop == nil {
		return
	}

	close(stop)
	<-done
	w.logger.Info().Msg("Reset token sweeper stopped")
}

func (w *ResetTokenSweeper) run(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
	}()

	w.Sweep(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			w.Sweep(ctx)
		}
	}
}

// Sweep runs one purge pass and returns the number of cleared tokens
func (w *ResetTokenSweeper) Sweep(ctx context.Context) int64 {
	start := time.Now()
	n, err := w.usuarioRepo.ClearExpiredResetTokens(ctx, w.now())
	if err != nil {
		w.logger.Error().Err(err).Msg("Failed to clear expired reset tokens")
		return 0
	}
	if n > 0 {
		w.logger.Info().
			Int64("cleared", n).
			Dur("elapsed", time.Since(start)).
			Msg("Cleared expired reset tokens")
	}
	return n
}

// IsRunning returns whether the sweeper loop is active
func (w *ResetTokenSweeper) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}
