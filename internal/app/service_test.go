package service_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/okian/rota/internal/adapters/repository"
	service "github.com/okian/rota/internal/app"
	"github.com/okian/rota/internal/config"
	"github.com/okian/rota/internal/domain/model"
	"github.com/okian/rota/internal/domain/ranking"
	"github.com/okian/rota/internal/domain/scoring"
	"github.com/okian/rota/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()

		Convey("Then it should report sensible defaults", func() {
			stats := svc.GetStats()
			So(stats["started"], ShouldEqual, false)
			So(stats["store"], ShouldEqual, config.StoreMemory)
			So(stats["windowDays"], ShouldEqual, 30)
			So(stats["locale"], ShouldEqual, "ja")
		})
	})

	Convey("Given options mapped from config", t, func() {
		cfg := config.New(context.Background())
		cfg.WindowDays = 14
		cfg.WeightGap = 2
		svc := service.New(service.FromConfig(cfg)...)

		Convey("Then they should be applied", func() {
			stats := svc.GetStats()
			So(stats["windowDays"], ShouldEqual, 14)
			So(stats["weights"].(map[string]float64)["gap"], ShouldEqual, 2.0)
			So(stats["timezone"], ShouldEqual, "Asia/Tokyo")
		})
	})
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc := service.New()
		defer svc.Stop()

		Convey("When asking for priority before starting", func() {
			_, err := svc.Priority(context.Background(), uuid.New())

			Convey("Then it should refuse", func() {
				So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			})
		})

		Convey("When starting the service", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			err := svc.Start(ctx)

			Convey("Then it should start successfully", func() {
				So(err, ShouldBeNil)
				So(svc.GetStats()["started"], ShouldEqual, true)
				So(svc.GetStats()["events"], ShouldEqual, 0)
			})

			Convey("And starting twice should be a no-op", func() {
				So(svc.Start(ctx), ShouldBeNil)
			})

			Convey("And stopping should mark it stopped", func() {
				svc.Stop()
				So(svc.GetStats()["started"], ShouldEqual, false)
			})
		})
	})

	Convey("Given an unknown store kind", t, func() {
		svc := service.New(service.WithStoreKind("redis"))

		Convey("Then Start should fail", func() {
			So(svc.Start(context.Background()), ShouldNotBeNil)
		})
	})

	Convey("Given an unknown timezone", t, func() {
		svc := service.New(service.WithTimezone("Mars/Olympus"))

		Convey("Then Start should fail", func() {
			So(svc.Start(context.Background()), ShouldNotBeNil)
		})
	})
}

func TestService_Priority(t *testing.T) {
	Convey("Given a started service over an injected store", t, func() {
		ctx := context.Background()
		store := repository.NewInMemoryStore()
		d := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
		past := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
		target := model.Event{ID: uuid.New(), Date: &d}
		prev := model.Event{ID: uuid.New(), Date: &past}
		So(store.PutEvent(ctx, target), ShouldBeNil)
		So(store.PutEvent(ctx, prev), ShouldBeNil)
		So(store.PutApplication(ctx, model.Application{EventID: target.ID, Username: "alice", Role: model.RoleDriver}), ShouldBeNil)
		So(store.PutApplication(ctx, model.Application{EventID: target.ID, Username: "bob", Role: model.RoleDriver}), ShouldBeNil)
		So(store.PutConfirmation(ctx, model.Confirmation{EventID: prev.ID, Username: "alice", Role: model.RoleDriver}), ShouldBeNil)

		svc := service.New(
			service.WithStore(store),
			service.WithWeights(scoring.Weights{Total: 4, Role: 1, Gap: 3}),
			service.WithTimezone("UTC"),
		)
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("When computing priority for the event", func() {
			res, err := svc.Priority(ctx, target.ID)

			Convey("Then the fresh volunteer should come first", func() {
				So(err, ShouldBeNil)
				So(res.Driver, ShouldHaveLength, 2)
				So(res.Driver[0].Username, ShouldEqual, "bob")
				So(res.Driver[1].GapDays, ShouldEqual, 9)
				So(svc.GetStats()["served"], ShouldEqual, int64(1))
			})
		})

		Convey("When the event is unknown", func() {
			_, err := svc.Priority(ctx, uuid.New())

			Convey("Then the engine error should pass through and count as failed", func() {
				So(errors.Is(err, ranking.ErrNotFound), ShouldBeTrue)
				So(svc.GetStats()["failed"], ShouldEqual, int64(1))
			})
		})
	})

	Convey("Given a memory service with seeding enabled", t, func() {
		ctx := context.Background()
		svc := service.New(service.WithSeed(8, 12))
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("Then the store should hold the generated history", func() {
			stats := svc.GetStats()
			So(stats["events"], ShouldEqual, 10)
			So(stats["applications"], ShouldBeGreaterThan, 0)
		})
	})
}

type brokenHistoryStore struct {
	*repository.InMemoryStore
}

func (b brokenHistoryStore) ListConfirmationsForUsers(context.Context, []string, time.Time, *time.Time) ([]model.HistoryRecord, error) {
	return nil, errors.New("connection reset")
}

func TestService_DataSourceFailure(t *testing.T) {
	Convey("Given a service whose history reads fail", t, func() {
		ctx := context.Background()
		var buf bytes.Buffer
		So(logger.Init(logger.WithOutput(&buf)), ShouldBeNil)
		defer func() { _ = logger.Init() }()

		mem := repository.NewInMemoryStore()
		d := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
		ev := model.Event{ID: uuid.New(), Date: &d}
		So(mem.PutEvent(ctx, ev), ShouldBeNil)
		So(mem.PutApplication(ctx, model.Application{EventID: ev.ID, Username: "alice", Role: model.RoleDriver, AppliedAt: d}), ShouldBeNil)

		svc := service.New(service.WithStore(brokenHistoryStore{mem}), service.WithLogger(logger.Get()))
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()
		buf.Reset()

		Convey("When computing priority", func() {
			_, err := svc.Priority(ctx, ev.ID)

			Convey("Then the error is returned with its stage and left to the caller to log", func() {
				So(errors.Is(err, ranking.ErrDataSource), ShouldBeTrue)
				So(ranking.StageOf(err), ShouldBeIn, []ranking.Stage{ranking.StageWindow, ranking.StageLast})
				So(svc.GetStats()["failed"], ShouldEqual, int64(1))
				So(buf.String(), ShouldNotContainSubstring, "level=ERROR")
			})
		})
	})
}
