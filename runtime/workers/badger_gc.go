package workers

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// BadgerGCWorker triggers Badger value-log garbage collection on a fixed
// interval. Badger never reclaims value-log space on its own; without this
// worker the data directory grows unbounded on a long-lived relay.
type BadgerGCWorker struct {
	db         *badger.DB
	log        *slog.Logger
	gcInterval time.Duration
}

func NewBadgerGCWorker(db *badger.DB, log *slog.Logger, gcInterval time.Duration) *BadgerGCWorker {
	return &BadgerGCWorker{db: db, log: log, gcInterval: gcInterval}
}

func (w *BadgerGCWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.gcInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping badger GC")
			return nil
		case <-ticker.C:
			w.collect()
		}
	}
}

// collect keeps rewriting value-log files until Badger reports there is
// nothing left worth rewriting.
func (w *BadgerGCWorker) collect() {
	for {
		err := w.db.RunValueLogGC(0.5)
		if err == nil {
			continue
		}
		if !errors.Is(err, badger.ErrNoRewrite) {
			w.log.Warn("value log GC failed", "error", err)
		}
		return
	}
}
