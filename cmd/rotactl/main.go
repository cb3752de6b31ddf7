// Command rotactl manages the rota database and checks a running server.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/okian/rota/internal/adapters/repository/pgstore"
	"github.com/okian/rota/internal/seed"
	"github.com/okian/rota/internal/verify"
	"github.com/okian/rota/pkg/logger"
	"github.com/urfave/cli/v2"
)

var errNoDSN = errors.New("--dsn or ROTA_DATABASE_DSN is required")

func main() {
	if err := newApp().Run(os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "rotactl",
		Usage: "rota database and verification tooling",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "dsn",
				Usage:   "postgres connection string",
				EnvVars: []string{"ROTA_DATABASE_DSN"},
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "text or json",
				Value: "text",
			},
		},
		Before: func(c *cli.Context) error {
			return logger.Init(logger.WithFormat(c.String("log-format")), logger.WithOutput(c.App.ErrWriter))
		},
		Commands: []*cli.Command{
			newMigrateCommand(),
			newSeedCommand(),
			newVerifyCommand(),
		},
	}
}

func openStore(c *cli.Context) (*pgstore.Store, error) {
	dsn := c.String("dsn")
	if dsn == "" {
		return nil, errNoDSN
	}
	return pgstore.Open(c.Context, dsn)
}

func newMigrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "database migrations",
		Subcommands: []*cli.Command{
			{
				Name:  "init",
				Usage: "create migration tables",
				Action: func(c *cli.Context) error {
					st, err := openStore(c)
					if err != nil {
						return err
					}
					defer func() { _ = st.Close() }()
					return st.Migrator().Init(c.Context)
				},
			},
			{
				Name:  "up",
				Usage: "apply pending migrations",
				Action: func(c *cli.Context) error {
					st, err := openStore(c)
					if err != nil {
						return err
					}
					defer func() { _ = st.Close() }()
					group, err := st.Migrate(c.Context)
					if err != nil {
						return err
					}
					if group.IsZero() {
						_, _ = fmt.Fprintln(c.App.Writer, "no new migrations to run")
						return nil
					}
					_, _ = fmt.Fprintf(c.App.Writer, "migrated to %s\n", group)
					return nil
				},
			},
			{
				Name:  "down",
				Usage: "roll back the last migration group",
				Action: func(c *cli.Context) error {
					st, err := openStore(c)
					if err != nil {
						return err
					}
					defer func() { _ = st.Close() }()
					group, err := st.Migrator().Rollback(c.Context)
					if err != nil {
						return err
					}
					if group.IsZero() {
						_, _ = fmt.Fprintln(c.App.Writer, "no groups to roll back")
						return nil
					}
					_, _ = fmt.Fprintf(c.App.Writer, "rolled back %s\n", group)
					return nil
				},
			},
			{
				Name:  "status",
				Usage: "print migrations status",
				Action: func(c *cli.Context) error {
					st, err := openStore(c)
					if err != nil {
						return err
					}
					defer func() { _ = st.Close() }()
					ms, err := st.Migrator().MigrationsWithStatus(c.Context)
					if err != nil {
						return err
					}
					_, _ = fmt.Fprintf(c.App.Writer, "migrations: %s\n", ms)
					_, _ = fmt.Fprintf(c.App.Writer, "applied: %s\n", ms.Applied())
					_, _ = fmt.Fprintf(c.App.Writer, "unapplied: %s\n", ms.Unapplied())
					return nil
				},
			},
		},
	}
}

func newSeedCommand() *cli.Command {
	return &cli.Command{
		Name:  "seed",
		Usage: "write a synthetic participation history",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "events", Usage: "past events to generate", Value: 52},
			&cli.IntFlag{Name: "users", Usage: "volunteer population size", Value: 40},
			&cli.IntFlag{Name: "upcoming", Usage: "future events to generate", Value: 2},
			&cli.Uint64Flag{Name: "seed", Usage: "random seed; 0 picks one from the clock"},
			&cli.BoolFlag{Name: "migrate", Usage: "apply migrations first"},
		},
		Action: func(c *cli.Context) error {
			log := logger.Get().Named("seed")
			st, err := openStore(c)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			if c.Bool("migrate") {
				if _, err := st.Migrate(c.Context); err != nil {
					return err
				}
			}

			s := c.Uint64("seed")
			if s == 0 {
				s = uint64(time.Now().UnixNano())
			}
			ds := seed.Generate(seed.Config{
				Events:   c.Int("events"),
				Users:    c.Int("users"),
				Upcoming: c.Int("upcoming"),
				Seed:     s,
			})
			if err := seed.Write(c.Context, st, ds, log); err != nil {
				return err
			}
			log.Info(c.Context, "seed complete", logger.Any("seed", s))
			for _, id := range ds.Upcoming {
				_, _ = fmt.Fprintln(c.App.Writer, id)
			}
			return nil
		},
	}
}

func newVerifyCommand() *cli.Command {
	return &cli.Command{
		Name:  "verify",
		Usage: "check priority lists served by a running server",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Usage: "server base URL", Value: "http://localhost:9080"},
			&cli.StringSliceFlag{Name: "event", Usage: "event id to check (repeatable)", Required: true},
			&cli.IntFlag{Name: "workers", Usage: "concurrent requests", Value: verify.DefaultWorkers},
			&cli.DurationFlag{Name: "timeout", Usage: "per-request timeout", Value: verify.DefaultTimeout},
			&cli.Float64Flag{Name: "rps", Usage: "request rate cap; 0 is unlimited"},
		},
		Action: func(c *cli.Context) error {
			return runVerify(c.Context, c, verify.Config{
				BaseURL:  c.String("url"),
				EventIDs: c.StringSlice("event"),
				Workers:  c.Int("workers"),
				Timeout:  c.Duration("timeout"),
				RPS:      c.Float64("rps"),
			})
		},
	}
}

func runVerify(ctx context.Context, c *cli.Context, cfg verify.Config) error {
	log := logger.Get().Named("verify")
	report, err := verify.Run(ctx, cfg, log)
	if err != nil {
		return err
	}
	for _, issue := range report.Issues {
		_, _ = fmt.Fprintln(c.App.Writer, issue.String())
	}
	log.Info(ctx, "verification finished",
		logger.Int("events", report.Checked),
		logger.Int("candidates", report.Candidates),
		logger.Int("issues", len(report.Issues)),
		logger.Duration("duration", report.Duration),
	)
	if !report.OK() {
		return cli.Exit(fmt.Sprintf("%d issue(s) found", len(report.Issues)), 1)
	}
	return nil
}
