package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/bookpickr/internal/adapters/repository"
	"github.com/okian/bookpickr/internal/config"
	"github.com/okian/bookpickr/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init(logger.WithWriter(io.Discard)); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

// fakeLibrary answers search requests with one hit and everything else
// with 404, which is enough for the wiring to come up.
func fakeLibrary() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/search.json" {
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{"docs":[{"title":"Dune","author_name":["Frank Herbert"],"cover_i":42}]}`)
			return
		}
		http.NotFound(w, r)
	}))
}

func testConfig(upstream string) *config.Config {
	cfg := config.New()
	cfg.Addr = "127.0.0.1:0"
	cfg.CatalogBaseURL = upstream
	cfg.CoversBaseURL = upstream
	cfg.PrefetchWorkers = 1
	return cfg
}

func TestConfigFromEnvironment(t *testing.T) {
	convey.Convey("Given the main application", t, func() {
		convey.Convey("When configuration comes from the environment", func() {
			_ = os.Setenv("BOOKPICKR_ADDR", ":8080")
			_ = os.Setenv("BOOKPICKR_PREFETCH_WORKERS", "3")
			defer func() {
				_ = os.Unsetenv("BOOKPICKR_ADDR")
				_ = os.Unsetenv("BOOKPICKR_PREFETCH_WORKERS")
			}()

			convey.Convey("Then it is applied over the defaults", func() {
				cfg, err := config.Load(context.Background())
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.PrefetchWorkers, convey.ShouldEqual, 3)
			})
		})

		convey.Convey("When the configuration is invalid", func() {
			_ = os.Setenv("BOOKPICKR_ADDR", "")
			defer func() { _ = os.Unsetenv("BOOKPICKR_ADDR") }()

			convey.Convey("Then loading fails", func() {
				cfg, err := config.Load(context.Background())
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the log format is json", func() {
			cfg := config.New()
			cfg.LogFormat = "json"
			cfg.LogLevel = "debug"

			convey.Convey("Then logging is set up without error", func() {
				convey.So(setupLogging(context.Background(), cfg), convey.ShouldBeNil)
				convey.So(logger.Init(logger.WithWriter(io.Discard)), convey.ShouldBeNil)
			})
		})
	})
}

func TestHandlerWiring(t *testing.T) {
	convey.Convey("Given a service wired the way main wires it", t, func() {
		upstream := fakeLibrary()
		defer upstream.Close()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		cfg := testConfig(upstream.URL)
		store, err := repository.Open(ctx)
		convey.So(err, convey.ShouldBeNil)
		defer store.Close()

		svc := newService(cfg, newCatalog(cfg), store)
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer svc.Stop()

		h := newHandler(ctx, cfg, svc)
		get := func(path string) *httptest.ResponseRecorder {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest("GET", path, http.NoBody))
			return w
		}

		convey.Convey("Then the page, docs and API are all served", func() {
			convey.So(get("/").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(get("/openapi.yaml").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(get("/api-docs").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(get("/healthz").Code, convey.ShouldEqual, http.StatusOK)

			w := get("/state")
			convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			convey.So(w.Body.String(), convey.ShouldContainSubstring, `"state":"ready"`)
			convey.So(w.Header().Get("X-Request-ID"), convey.ShouldNotBeEmpty)
		})

		convey.Convey("Then the pair is enriched from the catalog", func() {
			w := get("/pair")
			convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			convey.So(w.Body.String(), convey.ShouldContainSubstring, "/b/id/42-L.jpg")
		})

		convey.Convey("Then a pick round-trips through the API", func() {
			st := get("/state").Body.String()
			idx := st[strings.Index(st, `"championIndex":`)+len(`"championIndex":`):]
			idx = idx[:strings.IndexAny(idx, ",}")]

			w := httptest.NewRecorder()
			req := httptest.NewRequest("POST", "/pick", strings.NewReader(`{"index":`+idx+`}`))
			h.ServeHTTP(w, req)
			convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			convey.So(w.Body.String(), convey.ShouldContainSubstring, `"rounds":1`)
		})

		convey.Convey("Then the metrics updater runs without panicking", func() {
			convey.So(func() { updateServiceMetrics(svc) }, convey.ShouldNotPanic)

			short, stop := context.WithTimeout(ctx, 20*time.Millisecond)
			defer stop()
			convey.So(func() { startServiceMetricsUpdater(short, svc) }, convey.ShouldNotPanic)
		})
	})
}

func TestRun(t *testing.T) {
	convey.Convey("Given a configuration on an ephemeral port", t, func() {
		upstream := fakeLibrary()
		defer upstream.Close()
		cfg := testConfig(upstream.URL)

		convey.Convey("When the context is cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan error, 1)
			go func() { done <- run(ctx, cfg) }()
			time.Sleep(50 * time.Millisecond)
			cancel()

			convey.Convey("Then run shuts down cleanly", func() {
				select {
				case err := <-done:
					convey.So(err, convey.ShouldBeNil)
				case <-time.After(5 * time.Second):
					convey.So("run did not return", convey.ShouldBeEmpty)
				}
			})
		})

		convey.Convey("When the address cannot be bound", func() {
			cfg.Addr = "256.0.0.1:1"
			err := run(context.Background(), cfg)

			convey.Convey("Then run reports the listener failure", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})
	})
}
