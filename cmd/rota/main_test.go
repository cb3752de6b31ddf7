package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/okian/rota/internal/adapters/repository"
	service "github.com/okian/rota/internal/app"
	"github.com/okian/rota/internal/config"
	"github.com/okian/rota/internal/domain/model"
	"github.com/okian/rota/pkg/logger"
	"github.com/okian/rota/pkg/metrics"
	"github.com/smartystreets/goconvey/convey"
)

func TestMainFunction(t *testing.T) {
	convey.Convey("Given the main application", t, func() {
		convey.Convey("When loading configuration from the environment", func() {
			_ = os.Setenv("ROTA_ADDR", ":8080")
			_ = os.Setenv("ROTA_WINDOW_DAYS", "21")
			defer func() {
				_ = os.Unsetenv("ROTA_ADDR")
				_ = os.Unsetenv("ROTA_WINDOW_DAYS")
			}()

			convey.Convey("Then configuration should be loadable", func() {
				cfg, err := config.Load(context.Background())
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.WindowDays, convey.ShouldEqual, 21)
			})
		})

		convey.Convey("When wiring the HTTP handler to a started service", func() {
			ctx := context.Background()
			cfg := config.New(ctx)

			store := repository.NewInMemoryStore()
			eventID := uuid.New()
			day := time.Date(2024, 5, 12, 0, 0, 0, 0, time.UTC)
			_ = store.PutEvent(ctx, model.Event{ID: eventID, Title: "Sunday run", Date: &day})
			_ = store.PutApplication(ctx, model.Application{EventID: eventID, Username: "alice", Role: model.RoleDriver, AppliedAt: day.Add(-72 * time.Hour)})

			svc := service.New(append(service.FromConfig(cfg),
				service.WithStore(store),
				service.WithLogger(logger.Discard()))...)
			convey.So(svc.Start(ctx), convey.ShouldBeNil)
			defer svc.Stop()

			h := newHandler(ctx, cfg, svc, logger.Discard())

			convey.Convey("Then the priority route serves the event", func() {
				w := httptest.NewRecorder()
				h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/events/"+eventID.String()+"/priority", http.NoBody))
				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)

				var body struct {
					EventDate string `json:"event_date"`
					Driver    []struct {
						Username string `json:"username"`
						Rank     int    `json:"rank"`
					} `json:"driver"`
				}
				convey.So(json.Unmarshal(w.Body.Bytes(), &body), convey.ShouldBeNil)
				convey.So(body.EventDate, convey.ShouldEqual, "2024-05-12")
				convey.So(body.Driver, convey.ShouldHaveLength, 1)
				convey.So(body.Driver[0].Username, convey.ShouldEqual, "alice")
				convey.So(body.Driver[0].Rank, convey.ShouldEqual, 1)
			})

			convey.Convey("And the docs and health routes are mounted", func() {
				for _, path := range []string{"/healthz", "/metrics", "/stats", "/openapi.yaml", "/api-docs"} {
					w := httptest.NewRecorder()
					h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, http.NoBody))
					convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
				}
			})

			convey.Convey("And an unknown event is a 404", func() {
				w := httptest.NewRecorder()
				h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/events/"+uuid.NewString()+"/priority", http.NoBody))
				convey.So(w.Code, convey.ShouldEqual, http.StatusNotFound)
			})
		})

		convey.Convey("When updating system metrics", func() {
			updateSystemMetrics()

			convey.Convey("Then the gauges should be registered", func() {
				families, err := metrics.GetRegistry().Gather()
				convey.So(err, convey.ShouldBeNil)
				names := map[string]bool{}
				for _, f := range families {
					names[f.GetName()] = true
				}
				convey.So(names["rota_priority_system_goroutines"], convey.ShouldBeTrue)
				convey.So(names["rota_priority_system_memory_bytes"], convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the metrics updater runs on a short interval", func() {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			go startSystemMetricsUpdater(ctx, 5*time.Millisecond)

			convey.Convey("Then it should sample the goroutine gauge", func() {
				deadline := time.Now().Add(time.Second)
				var sampled float64
				for time.Now().Before(deadline) && sampled == 0 {
					time.Sleep(10 * time.Millisecond)
					sampled = gaugeValue("rota_priority_system_goroutines")
				}
				convey.So(sampled, convey.ShouldBeGreaterThan, 0)
			})
		})

		convey.Convey("When the metrics updater context is cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan struct{})
			go func() {
				startSystemMetricsUpdater(ctx, metrics.RefreshInterval())
				close(done)
			}()
			cancel()

			convey.Convey("Then it should return", func() {
				select {
				case <-done:
				case <-time.After(time.Second):
					t.Fatal("metrics updater did not stop")
				}
			})
		})
	})
}

func gaugeValue(name string) float64 {
	families, err := metrics.GetRegistry().Gather()
	if err != nil {
		return 0
	}
	for _, f := range families {
		if f.GetName() == name && len(f.GetMetric()) > 0 {
			return f.GetMetric()[0].GetGauge().GetValue()
		}
	}
	return 0
}
