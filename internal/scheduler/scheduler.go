package scheduler

import (
	"context"
	"sync"
	"time"

	"mosaic/backend/internal/banlist"
	"mosaic/backend/internal/logger"
)

// Scheduler periodically sweeps the ban list so records written without a
// TTL do not outlive their recorded expiry.
type Scheduler struct {
	bans       banlist.Service
	interval   time.Duration
	stopCh     chan struct{}
	wg         sync.WaitGroup
	cancelFunc context.CancelFunc // cancels the current sweep
	mu         sync.Mutex         // protects cancelFunc
}

func New(bans banlist.Service, interval time.Duration) *Scheduler {
	return &Scheduler{
		bans:     bans,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

func (s *Scheduler) Start() {
	s.wg.Add(1)
	go s.run()
	logger.Info("sweep scheduler started", "interval", s.interval)
}

func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.cancelFunc != nil {
		s.cancelFunc()
	}
	s.mu.Unlock()

	close(s.stopCh)
	s.wg.Wait()
	logger.Info("sweep scheduler stopped")
}

func (s *Scheduler) run() {
	defer s.wg.Done()

	// Run immediately on start
	s.sweep()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stopCh:
			return
		}
	}
}

func (s *Scheduler) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), s.interval)

	s.mu.Lock()
	s.cancelFunc = cancel
	s.mu.Unlock()

	defer func() {
		cancel()
		s.mu.Lock()
		s.cancelFunc = nil
		s.mu.Unlock()
	}()

	removed, err := s.bans.Sweep(ctx)
	if err != nil {
		if ctx.Err() != nil {
			logger.Info("scheduled sweep cancelled")
			return
		}
		logger.Error("scheduled sweep", "error", err)
		return
	}
	if removed > 0 {
		logger.Info("scheduled sweep completed", "removed", removed)
	}
}
