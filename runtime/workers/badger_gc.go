package workers

import (
	"context"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// BadgerGCWorker reclaims value-log space. Badger only garbage collects
// when asked, and messages are append-heavy, so this runs on a slow ticker.
type BadgerGCWorker struct {
	db       *badger.DB
	log      *slog.Logger
	interval time.Duration
}

func NewBadgerGCWorker(db *badger.DB, log *slog.Logger, interval time.Duration) *BadgerGCWorker {
	return &BadgerGCWorker{db: db, log: log, interval: interval}
}

func (w *BadgerGCWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			// Rewrite at most one log file per tick; ErrNoRewrite just
			// means there was nothing worth collecting.
			if err := w.db.RunValueLogGC(0.5); err != nil && err != badger.ErrNoRewrite {
				w.log.Warn("Value log GC failed", "err", err)
			}
		}
	}
}
