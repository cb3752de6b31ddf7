package seed_test

import (
	"context"
	"testing"
	"time"

	"github.com/okian/rota/internal/adapters/repository"
	"github.com/okian/rota/internal/domain/model"
	"github.com/okian/rota/internal/domain/ranking"
	"github.com/okian/rota/internal/seed"
	. "github.com/smartystreets/goconvey/convey"
)

func TestGenerate(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	Convey("Given a fixed seed", t, func() {
		cfg := seed.Config{Events: 30, Users: 15, Upcoming: 3, Seed: 42, Now: now}

		first := seed.Generate(cfg)
		second := seed.Generate(cfg)

		Convey("Then generation should be deterministic", func() {
			So(len(second.Events), ShouldEqual, len(first.Events))
			So(second.Events[0].ID, ShouldEqual, first.Events[0].ID)
			So(len(second.Applications), ShouldEqual, len(first.Applications))
			So(len(second.Confirmations), ShouldEqual, len(first.Confirmations))
		})

		Convey("Then it should produce past and upcoming events", func() {
			So(first.Events, ShouldHaveLength, 33)
			So(first.Upcoming, ShouldHaveLength, 3)
			for _, id := range first.Upcoming {
				for _, c := range first.Confirmations {
					So(c.EventID, ShouldNotEqual, id)
				}
			}
		})

		Convey("Then upcoming events should carry a structured future date", func() {
			byID := make(map[string]model.Event)
			for _, e := range first.Events {
				byID[e.ID.String()] = e
			}
			for _, id := range first.Upcoming {
				e := byID[id.String()]
				So(e.Date, ShouldNotBeNil)
				So(e.Date.After(now), ShouldBeTrue)
			}
		})

		Convey("Then applications should be unique per event, user and role", func() {
			seen := make(map[string]struct{})
			for _, a := range first.Applications {
				k := a.EventID.String() + "/" + a.Username + "/" + string(a.Role)
				_, dup := seen[k]
				So(dup, ShouldBeFalse)
				seen[k] = struct{}{}
				So(a.Role.Valid(), ShouldBeTrue)
			}
		})
	})
}

func TestWrite(t *testing.T) {
	Convey("Given a generated dataset and an in-memory store", t, func() {
		ctx := context.Background()
		ds := seed.Generate(seed.Config{Events: 12, Users: 10, Seed: 7, Now: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)})
		store := repository.NewInMemoryStore()

		err := seed.Write(ctx, store, ds, nil)

		Convey("Then every record should be stored", func() {
			So(err, ShouldBeNil)
			events, apps, confs := store.Count()
			So(events, ShouldEqual, len(ds.Events))
			So(apps, ShouldEqual, len(ds.Applications))
			So(confs, ShouldEqual, len(ds.Confirmations))
		})

		Convey("Then every upcoming event should rank", func() {
			engine := ranking.New(store)
			for _, id := range ds.Upcoming {
				res, err := engine.Compute(ctx, id)
				So(err, ShouldBeNil)
				So(len(res.Driver)+len(res.Attendant), ShouldBeGreaterThan, 0)
			}
		})
	})
}
