package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS events (
					id UUID PRIMARY KEY,
					title TEXT NOT NULL DEFAULT '',
					date DATE,
					legacy_date TEXT,
					driver_capacity INTEGER,
					attendant_capacity INTEGER,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);
			`); err != nil {
				return fmt.Errorf("failed to create events table: %w", err)
			}

			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS applications (
					id BIGSERIAL PRIMARY KEY,
					event_id UUID NOT NULL REFERENCES events(id) ON DELETE CASCADE,
					username TEXT NOT NULL,
					role TEXT NOT NULL CHECK (role IN ('driver', 'attendant')),
					applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					UNIQUE (event_id, username, role)
				);
			`); err != nil {
				return fmt.Errorf("failed to create applications table: %w", err)
			}

			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS confirmations (
					id BIGSERIAL PRIMARY KEY,
					event_id UUID NOT NULL REFERENCES events(id) ON DELETE CASCADE,
					username TEXT NOT NULL,
					role TEXT NOT NULL CHECK (role IN ('driver', 'attendant')),
					decided_at TIMESTAMPTZ
				);
			`); err != nil {
				return fmt.Errorf("failed to create confirmations table: %w", err)
			}
			return nil
		})
	}, func(ctx context.Context, db *bun.DB) error {
		if _, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS confirmations, applications, events;`); err != nil {
			return fmt.Errorf("failed to drop tables: %w", err)
		}
		return nil
	})
}
