package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/outcomefi/engine/internal/domain"
)

// archiveLockKey serializes archive sweeps across daemon instances.
const archiveLockKey = "lock:archiver"

// Notifier is the slice of the ops notification system the runner uses.
type Notifier interface {
	Notify(ctx context.Context, event, title, message string) error
}

// ArchiveRunner periodically sweeps closed markets into cold storage. A
// market is archived once its close timestamp is older than the retention
// window; archived markets transition to the settled state so the next sweep
// skips them.
type ArchiveRunner struct {
	markets   domain.MarketStore
	archiver  domain.Archiver
	locks     domain.LockManager
	notifier  Notifier
	interval  time.Duration
	retention time.Duration
	logger    *slog.Logger
}

// NewArchiveRunner creates an ArchiveRunner. The notifier may be nil when no
// notification channels are configured.
func NewArchiveRunner(
	markets domain.MarketStore,
	archiver domain.Archiver,
	locks domain.LockManager,
	notifier Notifier,
	interval, retention time.Duration,
	logger *slog.Logger,
) *ArchiveRunner {
	return &ArchiveRunner{
		markets:   markets,
		archiver:  archiver,
		locks:     locks,
		notifier:  notifier,
		interval:  interval,
		retention: retention,
		logger:    logger,
	}
}

// Run sweeps on the configured interval until the context is cancelled. The
// first sweep runs immediately.
func (r *ArchiveRunner) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.sweep(ctx)
		}
	}
}

// sweep archives every eligible closed market under the distributed lock.
// A held lock means another instance is sweeping; that is not an error.
func (r *ArchiveRunner) sweep(ctx context.Context) {
	unlock, err := r.locks.Acquire(ctx, archiveLockKey, r.interval)
	if err != nil {
		if errors.Is(err, domain.ErrLockHeld) {
			r.logger.DebugContext(ctx, "archive: sweep already running elsewhere")
			return
		}
		r.logger.WarnContext(ctx, "archive: lock acquire failed",
			slog.String("error", err.Error()),
		)
		return
	}
	defer unlock()

	cutoff := time.Now().UTC().Add(-r.retention)
	var archived int

	for offset := 0; ; offset += batchSize {
		markets, err := r.markets.ListByStatus(ctx, domain.MarketStatusClosed, domain.ListOpts{
			Limit:  batchSize,
			Offset: offset,
		})
		if err != nil {
			r.logger.ErrorContext(ctx, "archive: list closed markets failed",
				slog.String("error", err.Error()),
			)
			return
		}
		if len(markets) == 0 {
			break
		}

		for _, m := range markets {
			if m.ClosedAt == nil || m.ClosedAt.After(cutoff) {
				continue
			}
			if err := r.archiveMarket(ctx, m.ID); err != nil {
				continue
			}
			archived++
		}
		if len(markets) < batchSize {
			break
		}
	}

	if archived > 0 {
		r.logger.InfoContext(ctx, "archive: sweep complete",
			slog.Int("archived", archived),
		)
	}
}

func (r *ArchiveRunner) archiveMarket(ctx context.Context, marketID string) error {
	pruned, err := r.archiver.ArchiveMarket(ctx, marketID)
	if err != nil {
		r.logger.ErrorContext(ctx, "archive: market failed",
			slog.String("market_id", marketID),
			slog.String("error", err.Error()),
		)
		r.notify(ctx, "archive_failed", "Archive failed",
			fmt.Sprintf("market %s: %v", marketID, err))
		return err
	}

	// Settled markets are excluded from future sweeps.
	if err := r.markets.UpdateStatus(ctx, marketID, domain.MarketStatusSettled); err != nil {
		r.logger.ErrorContext(ctx, "archive: settle transition failed",
			slog.String("market_id", marketID),
			slog.String("error", err.Error()),
		)
		return err
	}

	r.logger.InfoContext(ctx, "archive: market archived",
		slog.String("market_id", marketID),
		slog.Int64("trades_pruned", pruned),
	)
	return nil
}

func (r *ArchiveRunner) notify(ctx context.Context, event, title, message string) {
	if r.notifier == nil {
		return
	}
	if err := r.notifier.Notify(ctx, event, title, message); err != nil {
		r.logger.WarnContext(ctx, "archive: notification failed",
			slog.String("error", err.Error()),
		)
	}
}
