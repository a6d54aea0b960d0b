package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/sandevgo/recalld/pkg/log"
)

const (
	defaultSweepInterval = time.Minute
	defaultSweepBatch    = 500
)

// Sweeper periodically reclaims expired entries and prunes their edges and
// tag index state. Correctness does not depend on it: reads lazily hide
// expired entries; the sweep only frees space.
type Sweeper struct {
	svc       *Service
	Interval  time.Duration
	BatchSize int
}

func NewSweeper(svc *Service) *Sweeper {
	interval := svc.cfg.SweepInterval
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	batch := svc.cfg.SweepBatch
	if batch <= 0 {
		batch = defaultSweepBatch
	}
	return &Sweeper{
		svc:       svc,
		Interval:  interval,
		BatchSize: batch,
	}
}

func (s *Sweeper) Start(ctx context.Context) error {
	logger := log.FromCtx(ctx)
	logger.Info().Dur("interval", s.Interval).Msg("starting expiry sweeper")

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := s.SweepOnce(ctx); err != nil {
				logger.Error().Err(err).Msg("expiry sweep failed")
			}
		}
	}
}

func (s *Sweeper) Shutdown(ctx context.Context) error {
	return nil
}

// SweepOnce removes one batch of expired entries. Repeats until the batch
// comes back short, so a backlog larger than BatchSize still drains in a
// single run.
func (s *Sweeper) SweepOnce(ctx context.Context) error {
	total := 0
	for {
		ids, err := s.svc.entries.ListExpiredIDs(ctx, time.Now().UTC(), s.BatchSize)
		if err != nil {
			return fmt.Errorf("list expired: %w", err)
		}
		if len(ids) == 0 {
			break
		}

		for _, id := range ids {
			if err := s.svc.entries.Delete(ctx, id); err != nil {
				return fmt.Errorf("delete entry %s: %w", id, err)
			}
			if err := s.svc.rels.DeleteByEntry(ctx, id); err != nil {
				return fmt.Errorf("delete relationships of %s: %w", id, err)
			}
			s.svc.graph.RemoveEntry(id)
			s.svc.tags.RemoveEntry(id)
		}
		total += len(ids)

		if len(ids) < s.BatchSize {
			break
		}
	}

	if total > 0 {
		log.FromCtx(ctx).Info().Int("count", total).Msg("swept expired memory entries")
	}
	return nil
}
