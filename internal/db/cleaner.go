package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// ItemPurger removes soft-deleted catalog items for good once they have
// been deleted for longer than Retention. Cart rows referencing a purged
// item are dropped by the foreign key cascade.
type ItemPurger struct {
	DB        *sql.DB
	Retention time.Duration
	Log       *zap.Logger

	now func() time.Time
}

// NewItemPurger returns a purger keeping deleted items for retention.
func NewItemPurger(db *sql.DB, retention time.Duration, log *zap.Logger) *ItemPurger {
	if log == nil {
		log = zap.NewNop()
	}
	return &ItemPurger{DB: db, Retention: retention, Log: log, now: time.Now}
}

// PurgeOnce deletes expired items and returns how many went.
func (p *ItemPurger) PurgeOnce(ctx context.Context) (int64, error) {
	cutoff := p.now().Add(-p.Retention)
	res, err := p.DB.ExecContext(ctx,
		`DELETE FROM items WHERE deleted = true AND updated_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge deleted items: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge deleted items: %w", err)
	}
	return n, nil
}

// Start runs PurgeOnce every interval in the background until ctx is done.
func (p *ItemPurger) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := p.PurgeOnce(ctx)
				switch {
				case err != nil:
					p.Log.Error("item purge failed", zap.Error(err))
				case n > 0:
					p.Log.Info("purged deleted items", zap.Int64("removed", n), zap.Duration("retention", p.Retention))
				}
			}
		}
	}()
}
