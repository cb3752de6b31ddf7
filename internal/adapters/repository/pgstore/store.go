// Package pgstore implements the repository contracts on Postgres via bun.
package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/okian/rota/internal/adapters/repository"
	"github.com/okian/rota/internal/adapters/repository/pgstore/migrations"
	"github.com/okian/rota/internal/domain/model"
	"github.com/okian/rota/pkg/metrics"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
)

const (
	dateLayout         = "2006-01-02"
	defaultMaxOpenConn = 10
	uniqueViolation    = "23505"
)

// Option applies a configuration option to Open.
type Option func(*options)

type options struct {
	maxOpenConns int
}

// WithMaxOpenConns caps the connection pool.
func WithMaxOpenConns(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxOpenConns = n
		}
	}
}

// Store reads and writes rota records in Postgres.
type Store struct {
	db *bun.DB
}

var (
	_ repository.Store  = (*Store)(nil)
	_ repository.Writer = (*Store)(nil)
)

// Open connects to dsn and pings the server.
func Open(ctx context.Context, dsn string, opts ...Option) (*Store, error) {
	o := options{maxOpenConns: defaultMaxOpenConn}
	for _, opt := range opts {
		opt(&o)
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	sqldb.SetMaxOpenConns(o.maxOpenConns)
	sqldb.SetMaxIdleConns(o.maxOpenConns)

	db := bun.NewDB(sqldb, pgdialect.New())
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pgstore.Open: %w", err)
	}
	return &Store{db: db}, nil
}

// New wraps an existing bun handle.
func New(db *bun.DB) *Store { return &Store{db: db} }

// DB exposes the underlying handle for migrations.
func (s *Store) DB() *bun.DB { return s.db }

// Close releases the pool.
func (s *Store) Close() error { return s.db.Close() }

// Migrator returns a migrator over the bundled migrations.
func (s *Store) Migrator() *migrate.Migrator {
	return migrate.NewMigrator(s.db, migrations.Migrations)
}

// Migrate creates the bookkeeping tables if needed and applies pending migrations.
func (s *Store) Migrate(ctx context.Context) (*migrate.MigrationGroup, error) {
	m := s.Migrator()
	if err := m.Init(ctx); err != nil {
		return nil, fmt.Errorf("pgstore.Migrate: init: %w", err)
	}
	group, err := m.Migrate(ctx)
	if err != nil {
		return nil, fmt.Errorf("pgstore.Migrate: %w", err)
	}
	return group, nil
}

func observe(op string, start time.Time, err *error) {
	metrics.RecordStoreQuery(op, metrics.Since(start), *err)
}

// GetEvent implements repository.Store.
func (s *Store) GetEvent(ctx context.Context, eventID uuid.UUID) (_ model.Event, err error) {
	defer observe("get_event", time.Now(), &err)

	row := new(Event)
	if err = s.db.NewSelect().Model(row).Where("e.id = ?", eventID).Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Event{}, repository.ErrNotFound
		}
		return model.Event{}, fmt.Errorf("pgstore.GetEvent: %w", err)
	}
	return row.toModel(), nil
}

// ListApplications implements repository.Store.
func (s *Store) ListApplications(ctx context.Context, eventID uuid.UUID) (_ []model.Application, err error) {
	defer observe("list_applications", time.Now(), &err)

	var rows []Application
	if err = s.db.NewSelect().Model(&rows).
		Where("a.event_id = ?", eventID).
		Order("a.applied_at ASC", "a.id ASC").
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("pgstore.ListApplications: %w", err)
	}
	out := make([]model.Application, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toModel())
	}
	return out, nil
}

// ListConfirmations implements repository.Store.
func (s *Store) ListConfirmations(ctx context.Context, eventID uuid.UUID) (_ []model.Confirmation, err error) {
	defer observe("list_confirmations", time.Now(), &err)

	var rows []Confirmation
	if err = s.db.NewSelect().Model(&rows).
		Where("c.event_id = ?", eventID).
		Order("c.id ASC").
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("pgstore.ListConfirmations: %w", err)
	}
	out := make([]model.Confirmation, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toModel())
	}
	return out, nil
}

// ListConfirmationsForUsers implements repository.Store with one joined
// query over the whole username set.
func (s *Store) ListConfirmationsForUsers(ctx context.Context, usernames []string, before time.Time, since *time.Time) (_ []model.HistoryRecord, err error) {
	defer observe("list_confirmations_for_users", time.Now(), &err)

	if len(usernames) == 0 {
		return nil, nil
	}

	q := s.db.NewSelect().
		TableExpr("confirmations AS c").
		Join("JOIN events AS e ON e.id = c.event_id").
		ColumnExpr("c.event_id, c.username, c.role, c.decided_at").
		ColumnExpr("e.date AS event_date, e.legacy_date AS event_legacy_date, e.created_at AS event_created_at").
		Where("c.username IN (?)", bun.In(usernames)).
		Where("(e.date IS NULL OR e.date < ?::date)", before.Format(dateLayout))
	if since != nil {
		q = q.Where("(e.date IS NULL OR e.date >= ?::date)", since.Format(dateLayout))
	}
	q = q.OrderExpr("c.username ASC, c.id ASC")

	var rows []historyRow
	if err = q.Scan(ctx, &rows); err != nil {
		return nil, fmt.Errorf("pgstore.ListConfirmationsForUsers: %w", err)
	}
	out := make([]model.HistoryRecord, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toModel())
	}
	return out, nil
}

// PutEvent implements repository.Writer. Existing events are replaced.
func (s *Store) PutEvent(ctx context.Context, e model.Event) (err error) {
	defer observe("put_event", time.Now(), &err)

	if _, err = s.db.NewInsert().Model(eventFromModel(e)).
		On("CONFLICT (id) DO UPDATE").
		Set("title = EXCLUDED.title").
		Set("date = EXCLUDED.date").
		Set("legacy_date = EXCLUDED.legacy_date").
		Set("driver_capacity = EXCLUDED.driver_capacity").
		Set("attendant_capacity = EXCLUDED.attendant_capacity").
		Exec(ctx); err != nil {
		return fmt.Errorf("pgstore.PutEvent: %w", err)
	}
	return nil
}

// PutApplication implements repository.Writer.
func (s *Store) PutApplication(ctx context.Context, a model.Application) (err error) {
	defer observe("put_application", time.Now(), &err)

	if _, err = s.db.NewInsert().Model(applicationFromModel(a)).Exec(ctx); err != nil {
		return fmt.Errorf("pgstore.PutApplication: %w", translate(err))
	}
	return nil
}

// PutConfirmation implements repository.Writer.
func (s *Store) PutConfirmation(ctx context.Context, c model.Confirmation) (err error) {
	defer observe("put_confirmation", time.Now(), &err)

	if _, err = s.db.NewInsert().Model(confirmationFromModel(c)).Exec(ctx); err != nil {
		return fmt.Errorf("pgstore.PutConfirmation: %w", err)
	}
	return nil
}

// InsertEvents writes events in one statement.
func (s *Store) InsertEvents(ctx context.Context, events []model.Event) (err error) {
	defer observe("insert_events", time.Now(), &err)

	if len(events) == 0 {
		return nil
	}
	rows := make([]*Event, 0, len(events))
	for _, e := range events {
		rows = append(rows, eventFromModel(e))
	}
	if _, err = s.db.NewInsert().Model(&rows).Exec(ctx); err != nil {
		return fmt.Errorf("pgstore.InsertEvents: %w", err)
	}
	return nil
}

// InsertApplications writes applications in one statement, skipping
// (event, username, role) pairs that already exist.
func (s *Store) InsertApplications(ctx context.Context, apps []model.Application) (err error) {
	defer observe("insert_applications", time.Now(), &err)

	if len(apps) == 0 {
		return nil
	}
	rows := make([]*Application, 0, len(apps))
	for _, a := range apps {
		rows = append(rows, applicationFromModel(a))
	}
	if _, err = s.db.NewInsert().Model(&rows).
		On("CONFLICT (event_id, username, role) DO NOTHING").
		Exec(ctx); err != nil {
		return fmt.Errorf("pgstore.InsertApplications: %w", err)
	}
	return nil
}

// InsertConfirmations writes confirmations in one statement.
func (s *Store) InsertConfirmations(ctx context.Context, confs []model.Confirmation) (err error) {
	defer observe("insert_confirmations", time.Now(), &err)

	if len(confs) == 0 {
		return nil
	}
	rows := make([]*Confirmation, 0, len(confs))
	for _, c := range confs {
		rows = append(rows, confirmationFromModel(c))
	}
	if _, err = s.db.NewInsert().Model(&rows).Exec(ctx); err != nil {
		return fmt.Errorf("pgstore.InsertConfirmations: %w", err)
	}
	return nil
}

func translate(err error) error {
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) && pgErr.Field('C') == uniqueViolation {
		return fmt.Errorf("%w: %w", repository.ErrDuplicate, err)
	}
	return err
}
