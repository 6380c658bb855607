package holds

import (
	"context"
	"log/slog"
	"time"

	"github.com/abidoyedimeji-cell/dana/libs/db"
	"github.com/abidoyedimeji-cell/dana/services/booking-service/internal/storage"
)

// Worker returns expired deposit holds to their wallets. Bookings
// that settle through decline, cancel or completion mark their holds
// released inside those transactions, so the worker only ever sees
// deposits nobody settled within the hold window.
type Worker struct {
	pool      *db.Pool
	payments  *storage.PaymentRepository
	wallets   *storage.WalletRepository
	logger    *slog.Logger
	interval  time.Duration
	batchSize int
}

type WorkerConfig struct {
	Interval  time.Duration
	BatchSize int
}

func NewWorker(pool *db.Pool, payments *storage.PaymentRepository, wallets *storage.WalletRepository, logger *slog.Logger, cfg WorkerConfig) *Worker {
	if cfg.Interval <= 0 {
		cfg.Interval = 1 * time.Minute
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	return &Worker{
		pool:      pool,
		payments:  payments,
		wallets:   wallets,
		logger:    logger,
		interval:  cfg.Interval,
		batchSize: cfg.BatchSize,
	}
}

func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.processBatch(ctx); err != nil {
				w.logger.Error("hold release batch failed", "err", err)
			}
		}
	}
}

func (w *Worker) processBatch(ctx context.Context) error {
	tx, err := w.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	expired, err := w.payments.FetchExpired(ctx, tx, w.batchSize)
	if err != nil {
		return err
	}
	if len(expired) == 0 {
		return tx.Commit(ctx)
	}

	now := time.Now().UTC()
	var ids []int64
	for _, p := range expired {
		if err := w.wallets.ReleaseHold(ctx, tx, p.UserID, p.AmountPence); err != nil {
			return err
		}
		if err := w.wallets.RecordTransaction(ctx, tx, storage.WalletTransaction{
			UserID:      p.UserID,
			AmountPence: p.AmountPence,
			Kind:        "deposit_release",
			BookingID:   p.BookingID,
			Note:        "hold window expired",
		}); err != nil {
			return err
		}
		ids = append(ids, p.ID)
	}
	if err := w.payments.MarkReleased(ctx, tx, ids, now); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}
	w.logger.Info("released expired deposit holds", "count", len(ids))
	return nil
}
