package worker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// CacheConn is the part of the cache manager the supervisor drives.
type CacheConn interface {
	Connect(ctx context.Context) error
	Connected() bool
	HealthCheck(ctx context.Context) bool
}

// Supervisor probes the cache periodically and reconnects it after a failed
// startup dial.
type Supervisor struct {
	Cache    CacheConn
	Interval time.Duration

	logger    zerolog.Logger
	cancelCtx context.CancelFunc
	wg        sync.WaitGroup
}

// NewSupervisor creates a new background worker for cache supervision.
func NewSupervisor(cache CacheConn, interval time.Duration, logger zerolog.Logger) *Supervisor {
	return &Supervisor{
		Cache:    cache,
		Interval: interval,
		logger:   logger.With().Str("component", "supervisor").Logger(),
	}
}

func (s *Supervisor) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.cancelCtx = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.Interval)
		defer ticker.Stop()

		s.logger.Info().Dur("interval", s.Interval).Msg("started cache monitor")

		for {
			select {
			case <-ctx.Done():
				s.logger.Info().Msg("stopped")
				return
			case <-ticker.C:
				s.check(ctx)
			}
		}
	}()
}

// Stop gracefully stops the background worker and waits for it to exit.
func (s *Supervisor) Stop() {
	if s.cancelCtx != nil {
		s.cancelCtx()
	}
	s.wg.Wait()
}

// check reconnects a disconnected cache, otherwise probes it. It reports
// whether the cache is usable afterwards.
func (s *Supervisor) check(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, s.Interval)
	defer cancel()

	if !s.Cache.Connected() {
		if err := s.Cache.Connect(ctx); err != nil {
			s.logger.Debug().Err(err).Msg("cache still unreachable")
			s.Cache.HealthCheck(ctx)
			return false
		}
		s.logger.Info().Msg("cache reconnected")
	}

	return s.Cache.HealthCheck(ctx)
}
