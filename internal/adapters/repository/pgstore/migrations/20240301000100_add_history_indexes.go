package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			// history is always read by username set
			if _, err := tx.ExecContext(ctx, `
				CREATE INDEX IF NOT EXISTS idx_confirmations_username ON confirmations(username);
				CREATE INDEX IF NOT EXISTS idx_confirmations_event_id ON confirmations(event_id);
				CREATE INDEX IF NOT EXISTS idx_applications_event_id ON applications(event_id);
				CREATE INDEX IF NOT EXISTS idx_events_date ON events(date);
			`); err != nil {
				return fmt.Errorf("failed to add history indexes: %w", err)
			}
			return nil
		})
	}, func(ctx context.Context, db *bun.DB) error {
		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.ExecContext(ctx, `
				DROP INDEX IF EXISTS idx_confirmations_username;
				DROP INDEX IF EXISTS idx_confirmations_event_id;
				DROP INDEX IF EXISTS idx_applications_event_id;
				DROP INDEX IF EXISTS idx_events_date;
			`); err != nil {
				return fmt.Errorf("failed to drop history indexes: %w", err)
			}
			return nil
		})
	})
}
