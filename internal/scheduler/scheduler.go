// Package scheduler drives periodic and on-demand cache refreshes across
// the fleet of active accounts.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Darryldn9/Direla-Hedera-Frontend-sub003/internal/cache"
	"github.com/Darryldn9/Direla-Hedera-Frontend-sub003/internal/logging"
	"github.com/Darryldn9/Direla-Hedera-Frontend-sub003/internal/types"
)

// AccountLister lists the fleet of accounts eligible for refresh
type AccountLister interface {
	ListAccounts(ctx context.Context) ([]types.AccountDescriptor, error)
}

// AccountRefresher refreshes the full cache for one account
type AccountRefresher interface {
	UpdateCacheForAccount(ctx context.Context, accountID string) (*cache.RefreshResult, error)
}

// Scheduler runs the refresh control loop. It is either Stopped or
// Running; Start and Stop are the only transitions and both are
// idempotent.
type Scheduler struct {
	refresher AccountRefresher
	directory AccountLister

	interval   time.Duration
	batchSize  int
	batchDelay time.Duration

	mu      sync.RWMutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}

	lastPassTime time.Time
}

// Config holds scheduler configuration
type Config struct {
	Refresher  AccountRefresher
	Directory  AccountLister
	Interval   time.Duration // default 5 minutes
	BatchSize  int           // default 3
	BatchDelay time.Duration // default 1 second
}

// New creates a new scheduler
func New(cfg *Config) (*Scheduler, error) {
	if cfg.Refresher == nil {
		return nil, fmt.Errorf("refresher cannot be nil")
	}
	if cfg.Directory == nil {
		return nil, fmt.Errorf("account directory cannot be nil")
	}

	interval := cfg.Interval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 3
	}
	batchDelay := cfg.BatchDelay
	if batchDelay < 0 {
		batchDelay = time.Second
	}

	return &Scheduler{
		refresher:  cfg.Refresher,
		directory:  cfg.Directory,
		interval:   interval,
		batchSize:  batchSize,
		batchDelay: batchDelay,
	}, nil
}

// Start transitions the scheduler to Running, arms the periodic timer,
// and triggers one refresh pass immediately without waiting for the
// first tick. Starting a running scheduler logs a warning and is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		logging.FromContext(ctx).Warn("Scheduler already running, ignoring start")
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	stopCh, doneCh := s.stopCh, s.doneCh
	s.mu.Unlock()

	logging.FromContext(ctx).WithField("interval", s.interval.String()).Info("Scheduler started")

	go s.run(ctx, stopCh, doneCh)
}

// Stop transitions the scheduler to Stopped. A pass already in flight
// runs to completion; cancellation is cooperative at pass boundaries.
// Stopping a stopped scheduler logs a warning and is a no-op.
func (s *Scheduler) Stop(ctx context.Context) {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		logging.FromContext(ctx).Warn("Scheduler not running, ignoring stop")
		return
	}
	s.running = false
	close(s.stopCh)
	doneCh := s.doneCh
	s.mu.Unlock()

	select {
	case <-doneCh:
		logging.FromContext(ctx).Info("Scheduler stopped")
	case <-ctx.Done():
		logging.FromContext(ctx).Warn("Scheduler stop wait cancelled, pass still in flight")
	case <-time.After(30 * time.Second):
		logging.FromContext(ctx).Warn("Scheduler stop timed out waiting for in-flight pass")
	}
}

// IsRunning reflects the current scheduler state
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// LastPassTime returns when the most recent pass started
func (s *Scheduler) LastPassTime() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastPassTime
}

// ScheduleAccountUpdate triggers an immediate refresh for one account,
// independent of the periodic cycle. Failures are logged and swallowed;
// a manual refresh racing a periodic one is harmless because refreshes
// are idempotent.
func (s *Scheduler) ScheduleAccountUpdate(ctx context.Context, accountID string) {
	go func() {
		logger := logging.FromContext(ctx).WithField("accountId", accountID)
		if _, err := s.refresher.UpdateCacheForAccount(context.WithoutCancel(ctx), accountID); err != nil {
			logger.WithError(err).Error("On-demand cache refresh failed")
			return
		}
		logger.Debug("On-demand cache refresh completed")
	}()
}

// run is the periodic control loop
func (s *Scheduler) run(ctx context.Context, stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	// Immediate first pass, then tick
	s.runPassLogged(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case <-ticker.C:
			s.runPassLogged(ctx)
		}
	}
}

// runPassLogged runs one pass and logs failures without escalating them;
// the next tick retries from scratch.
func (s *Scheduler) runPassLogged(ctx context.Context) {
	s.mu.Lock()
	s.lastPassTime = time.Now()
	s.mu.Unlock()

	if err := s.RunPass(ctx); err != nil {
		logging.FromContext(ctx).WithError(err).Error("Scheduler pass aborted")
	}
}

// RunPass refreshes every active account once: list the fleet, filter to
// active accounts, then process fixed-size batches strictly sequentially
// with all accounts in a batch refreshed concurrently. One account's
// failure is logged and never cancels its siblings or the pass. A fixed
// delay separates consecutive batches, skipped after the final one. Only
// a directory listing failure aborts the pass.
func (s *Scheduler) RunPass(ctx context.Context) error {
	logger := logging.FromContext(ctx)
	startTime := time.Now()

	accounts, err := s.directory.ListAccounts(ctx)
	if err != nil {
		return fmt.Errorf("failed to list accounts: %w", err)
	}

	active := make([]string, 0, len(accounts))
	for _, acct := range accounts {
		if acct.IsActive {
			active = append(active, acct.AccountID)
		}
	}

	if len(active) == 0 {
		logger.Debug("No active accounts to refresh")
		return nil
	}

	batches := chunkAccounts(active, s.batchSize)

	var refreshed, failed int
	for i, batch := range batches {
		r, f := s.refreshBatch(ctx, batch)
		refreshed += r
		failed += f

		if i < len(batches)-1 {
			time.Sleep(s.batchDelay)
		}
	}

	logger.WithFields(map[string]interface{}{
		"accounts": len(active),
		"batches":  len(batches),
		"failed":   failed,
		"duration": time.Since(startTime).String(),
	}).Info("Scheduler pass completed")

	return nil
}

// refreshBatch refreshes all accounts in one batch concurrently and
// independently, returning success and failure counts.
func (s *Scheduler) refreshBatch(ctx context.Context, batch []string) (refreshed, failed int) {
	logger := logging.FromContext(ctx)

	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, accountID := range batch {
		wg.Add(1)
		go func(accountID string) {
			defer wg.Done()

			if _, err := s.refresher.UpdateCacheForAccount(ctx, accountID); err != nil {
				logger.WithError(err).WithField("accountId", accountID).Error("Account refresh failed")
				mu.Lock()
				failed++
				mu.Unlock()
				return
			}

			mu.Lock()
			refreshed++
			mu.Unlock()
		}(accountID)
	}

	wg.Wait()
	return refreshed, failed
}

// chunkAccounts partitions accounts into fixed-size batches, preserving order
func chunkAccounts(accounts []string, size int) [][]string {
	var batches [][]string
	for start := 0; start < len(accounts); start += size {
		end := start + size
		if end > len(accounts) {
			end = len(accounts)
		}
		batches = append(batches, accounts[start:end])
	}
	return batches
}
