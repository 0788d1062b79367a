package service_test

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"testing"
	"time"

	service "github.com/okian/bookpickr/internal/app"
	"github.com/okian/bookpickr/internal/adapters/repository"
	"github.com/okian/bookpickr/internal/domain/model"
	"github.com/okian/bookpickr/internal/domain/pool"
	"github.com/okian/bookpickr/internal/domain/selection"
	"github.com/okian/bookpickr/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMain(m *testing.M) {
	if err := logger.Init(logger.WithWriter(io.Discard)); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

// fakeCatalog answers every lookup locally.
type fakeCatalog struct {
	mu       sync.Mutex
	covers   map[string]int
	subjects []string
	workErr  error
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{covers: map[string]int{}}
}

func (f *fakeCatalog) ResolveCover(_ context.Context, title, _ string) (string, bool) {
	f.mu.Lock()
	f.covers[title]++
	f.mu.Unlock()
	return "https://covers.test/" + title + ".jpg", true
}

func (f *fakeCatalog) ResolveSynopsis(_ context.Context, title, _ string) (string, bool) {
	if title == "Emma" {
		return "", false
	}
	return "About " + title, true
}

func (f *fakeCatalog) SearchSubjectPool(_ context.Context, subject string, limit, offset int) ([]model.CandidateItem, int) {
	f.mu.Lock()
	f.subjects = append(f.subjects, subject)
	f.mu.Unlock()
	items := []model.CandidateItem{{ID: 1, Title: "Dune", Author: "Frank Herbert"}}
	if limit < len(items) || offset > 0 {
		return nil, 1
	}
	return items, 1
}

func (f *fakeCatalog) SearchAuthorPool(_ context.Context, name string, _ int) []model.CandidateItem {
	return []model.CandidateItem{{ID: 1, Title: "Emma", Author: name}}
}

func (f *fakeCatalog) SearchAuthorSuggestions(_ context.Context, query string, limit int) []model.AuthorHit {
	if query == "" {
		return nil
	}
	hits := make([]model.AuthorHit, limit)
	for i := range hits {
		hits[i] = model.AuthorHit{Key: "OL1A", Name: query}
	}
	return hits
}

func (f *fakeCatalog) FetchWork(_ context.Context, id string) (model.WorkDetail, error) {
	if f.workErr != nil {
		return model.WorkDetail{}, f.workErr
	}
	return model.WorkDetail{Key: "/works/" + id, Title: "Dune"}, nil
}

func (f *fakeCatalog) Stats() map[string]interface{} {
	return map[string]interface{}{"breaker_state": "closed"}
}

func (f *fakeCatalog) coverCalls(title string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.covers[title]
}

func items(titles ...string) []model.CandidateItem {
	out := make([]model.CandidateItem, len(titles))
	for i, t := range titles {
		out[i] = model.CandidateItem{Title: t, Author: "Author " + t}
	}
	return out
}

func eventually(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func startService(opts ...service.Option) (*service.Service, *fakeCatalog) {
	cat := newFakeCatalog()
	svc := service.New(append([]service.Option{
		service.WithCatalog(cat),
		service.WithWorkerCount(2),
	}, opts...)...)
	So(svc.Start(context.Background()), ShouldBeNil)
	return svc, cat
}

func TestServiceLifecycle(t *testing.T) {
	Convey("Given a service that was never started", t, func() {
		svc := service.New(service.WithCatalog(newFakeCatalog()))
		ctx := context.Background()

		Convey("Then session operations report it", func() {
			_, err := svc.State(ctx)
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			_, err = svc.Pick(ctx, 0)
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			_, err = svc.Pair(ctx)
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			So(svc.GetStats()["started"], ShouldEqual, false)
		})

		Convey("Then Stop is a no-op", func() {
			So(func() { svc.Stop() }, ShouldNotPanic)
		})
	})

	Convey("Given a started service without a stored pool", t, func() {
		svc, _ := startService()
		defer svc.Stop()
		ctx := context.Background()

		Convey("Then the default pool is active and ready", func() {
			st, err := svc.State(ctx)
			So(err, ShouldBeNil)
			So(st.State, ShouldEqual, "ready")
			So(st.PoolSize, ShouldEqual, len(pool.Default()))
			So(st.Rounds, ShouldEqual, 0)
			So(st.Champion, ShouldNotBeNil)
			So(st.Challenger, ShouldNotBeNil)
			So(*st.Champion, ShouldNotEqual, *st.Challenger)
			So(st.Label, ShouldBeNil)
		})

		Convey("Then starting again is harmless", func() {
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.GetStats()["started"], ShouldEqual, true)
		})

		Convey("When it is stopped", func() {
			svc.Stop()

			Convey("Then it reports stopped", func() {
				So(svc.GetStats()["started"], ShouldEqual, false)
			})
		})
	})
}

func TestServicePicking(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc, _ := startService()
		defer svc.Stop()
		ctx := context.Background()

		st, err := svc.State(ctx)
		So(err, ShouldBeNil)
		champion, challenger := *st.Champion, *st.Challenger

		Convey("When an index outside the pair is picked", func() {
			other := 0
			for other == champion || other == challenger {
				other++
			}
			_, err := svc.Pick(ctx, other)

			Convey("Then it is rejected and nothing changes", func() {
				So(errors.Is(err, selection.ErrNotInPair), ShouldBeTrue)
				after, _ := svc.State(ctx)
				So(after.Rounds, ShouldEqual, 0)
			})
		})

		Convey("When the challenger is picked", func() {
			after, err := svc.Pick(ctx, challenger)
			So(err, ShouldBeNil)

			Convey("Then it becomes champion and a new challenger is drawn", func() {
				So(after.Rounds, ShouldEqual, 1)
				So(*after.Champion, ShouldEqual, challenger)
				So(*after.Challenger, ShouldNotEqual, challenger)
				So(after.Generation, ShouldBeGreaterThan, st.Generation)
			})

			Convey("Then the leaderboard shows the win with the book", func() {
				board, err := svc.Leaderboard(ctx, 0)
				So(err, ShouldBeNil)
				So(len(board), ShouldEqual, 1)
				So(board[0].Rank, ShouldEqual, 1)
				So(board[0].Index, ShouldEqual, challenger)
				So(board[0].Wins, ShouldEqual, 1)
				So(board[0].Title, ShouldEqual, pool.Default()[challenger].Title)
			})

			Convey("Then reset clears the tally", func() {
				reset, err := svc.Reset(ctx)
				So(err, ShouldBeNil)
				So(reset.Rounds, ShouldEqual, 0)
				board, _ := svc.Leaderboard(ctx, 0)
				So(board, ShouldBeEmpty)
			})
		})

		Convey("When many rounds are played", func() {
			for i := 0; i < 20; i++ {
				cur, _ := svc.State(ctx)
				_, err := svc.Pick(ctx, *cur.Champion)
				So(err, ShouldBeNil)
			}

			Convey("Then wins sum to rounds and the limit is capped", func() {
				board, err := svc.Leaderboard(ctx, 1000)
				So(err, ShouldBeNil)
				total := 0
				for _, e := range board {
					total += e.Wins
				}
				So(total, ShouldEqual, 20)
				short, _ := svc.Leaderboard(ctx, 1)
				So(len(short), ShouldEqual, 1)
			})
		})
	})
}

func TestServicePair(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc, _ := startService()
		defer svc.Stop()
		ctx := context.Background()

		Convey("When the pair is requested", func() {
			pair, err := svc.Pair(ctx)
			So(err, ShouldBeNil)

			Convey("Then both sides carry their enrichment", func() {
				st, _ := svc.State(ctx)
				So(pair.Generation, ShouldEqual, st.Generation)
				So(pair.Champion.Index, ShouldEqual, *st.Champion)
				So(pair.Challenger.Index, ShouldEqual, *st.Challenger)
				So(pair.Champion.CoverURL, ShouldEqual, "https://covers.test/"+pair.Champion.Title+".jpg")
				if pair.Champion.Title != "Emma" {
					So(pair.Champion.Synopsis, ShouldEqual, "About "+pair.Champion.Title)
				}
			})
		})
	})
}

func TestServicePools(t *testing.T) {
	Convey("Given a started service over a shared store", t, func() {
		ctx := context.Background()
		store, err := repository.Open(ctx)
		So(err, ShouldBeNil)
		defer store.Close()

		svc, cat := startService(service.WithStore(store))
		defer svc.Stop()

		Convey("When a pool with duplicates is committed", func() {
			label := &model.Label{Kind: model.LabelSubject, Value: "science_fiction"}
			st, err := svc.CommitPool(ctx, items("Dune", "DUNE", "Emma", "Solaris"), label)
			So(err, ShouldBeNil)

			Convey("Then duplicates are dropped and the label is kept", func() {
				So(st.PoolSize, ShouldEqual, 3)
				So(st.State, ShouldEqual, "ready")
				So(st.Label, ShouldResemble, label)
				active, err := svc.ActivePool(ctx)
				So(err, ShouldBeNil)
				So(active.Items[0].ID, ShouldEqual, 1)
				So(active.Items[1].Title, ShouldEqual, "Emma")
			})

			Convey("Then the new books are prefetched", func() {
				So(eventually(func() bool { return cat.coverCalls("Solaris") >= 1 }), ShouldBeTrue)
			})

			Convey("Then a restarted service picks the pool up again", func() {
				svc.Stop()
				again, _ := startService(service.WithStore(store))
				defer again.Stop()
				st, err := again.State(ctx)
				So(err, ShouldBeNil)
				So(st.PoolSize, ShouldEqual, 3)
				So(st.Label, ShouldResemble, label)
			})

			Convey("Then clearing goes back to the default pool", func() {
				st, err := svc.ClearPool(ctx)
				So(err, ShouldBeNil)
				So(st.PoolSize, ShouldEqual, len(pool.Default()))
				So(st.Label, ShouldBeNil)
			})
		})

		Convey("When a single book is committed", func() {
			st, err := svc.CommitPool(ctx, items("Dune"), nil)
			So(err, ShouldBeNil)

			Convey("Then picking is blocked", func() {
				So(st.State, ShouldEqual, "blocked")
				So(st.Champion, ShouldBeNil)
				_, err := svc.Pick(ctx, 0)
				So(errors.Is(err, selection.ErrBlocked), ShouldBeTrue)
				_, err = svc.Pair(ctx)
				So(errors.Is(err, selection.ErrBlocked), ShouldBeTrue)
				_, err = svc.ShareToken(ctx)
				So(errors.Is(err, selection.ErrBlocked), ShouldBeTrue)
			})
		})

		Convey("When a single labelled book is committed and the service restarts", func() {
			label := &model.Label{Kind: model.LabelAuthor, Value: "Frank Herbert"}
			st, err := svc.CommitPool(ctx, items("Dune"), label)
			So(err, ShouldBeNil)
			So(st.State, ShouldEqual, "blocked")
			svc.Stop()

			again, _ := startService(service.WithStore(store))
			defer again.Stop()

			Convey("Then the default pool comes back without the stale label", func() {
				st, err := again.State(ctx)
				So(err, ShouldBeNil)
				So(st.PoolSize, ShouldEqual, len(pool.Default()))
				So(st.Label, ShouldBeNil)
				active, err := again.ActivePool(ctx)
				So(err, ShouldBeNil)
				So(active.Label, ShouldBeNil)
				So(active.Items[0].Title, ShouldEqual, "1984")
			})
		})

		Convey("When an empty or badly labelled pool is committed", func() {
			_, errEmpty := svc.CommitPool(ctx, items("  "), nil)
			_, errLabel := svc.CommitPool(ctx, items("Dune", "Emma"), &model.Label{Kind: "genre", Value: "x"})

			Convey("Then both are rejected", func() {
				So(errors.Is(errEmpty, pool.ErrEmptyPool), ShouldBeTrue)
				So(errors.Is(errLabel, service.ErrInvalidArgument), ShouldBeTrue)
			})
		})
	})
}

func TestServiceCatalogPassThrough(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc, cat := startService(service.WithSuggestionLimit(3))
		defer svc.Stop()
		ctx := context.Background()

		Convey("Then previews require a query", func() {
			_, _, err := svc.SubjectPool(ctx, " ", 0, 0)
			So(errors.Is(err, service.ErrInvalidArgument), ShouldBeTrue)
			_, err = svc.AuthorPool(ctx, "", 0)
			So(errors.Is(err, service.ErrInvalidArgument), ShouldBeTrue)
		})

		Convey("Then subject previews use the default page size", func() {
			got, total, err := svc.SubjectPool(ctx, "Science Fiction", 0, -4)
			So(err, ShouldBeNil)
			So(total, ShouldEqual, 1)
			So(got[0].Title, ShouldEqual, "Dune")
		})

		Convey("Then suggestions default to the configured limit", func() {
			So(len(svc.AuthorSuggestions(ctx, "tolk", 0)), ShouldEqual, 3)
			So(svc.AuthorSuggestions(ctx, "", 0), ShouldBeEmpty)
		})

		Convey("Then work lookups surface upstream errors", func() {
			w, err := svc.WorkDetail(ctx, "OL1W")
			So(err, ShouldBeNil)
			So(w.Title, ShouldEqual, "Dune")

			cat.workErr = errors.New("HTTP 503")
			_, err = svc.WorkDetail(ctx, "OL1W")
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "HTTP 503")
		})

		Convey("Then stats include the catalog", func() {
			stats := svc.GetStats()
			So(stats["catalog"], ShouldNotBeNil)
			So(stats["poolSize"], ShouldEqual, len(pool.Default()))
		})
	})
}

func TestServiceShare(t *testing.T) {
	Convey("Given a session with a few picks", t, func() {
		svc, _ := startService()
		defer svc.Stop()
		ctx := context.Background()

		for i := 0; i < 3; i++ {
			st, _ := svc.State(ctx)
			_, err := svc.Pick(ctx, *st.Challenger)
			So(err, ShouldBeNil)
		}
		before, _ := svc.Leaderboard(ctx, 10)
		st, _ := svc.State(ctx)

		Convey("When the share token is restored after a reset", func() {
			token, err := svc.ShareToken(ctx)
			So(err, ShouldBeNil)
			_, err = svc.Reset(ctx)
			So(err, ShouldBeNil)

			restored, err := svc.RestoreShare(ctx, "#s="+token)
			So(err, ShouldBeNil)

			Convey("Then rounds, champion and wins come back", func() {
				So(restored.Rounds, ShouldEqual, 3)
				So(*restored.Champion, ShouldEqual, *st.Champion)
				after, _ := svc.Leaderboard(ctx, 10)
				So(len(after), ShouldEqual, len(before))
				total := 0
				for _, e := range after {
					total += e.Wins
				}
				So(total, ShouldEqual, 3)
			})
		})

		Convey("When a garbage token is restored", func() {
			_, err := svc.RestoreShare(ctx, "not-a-token!")

			Convey("Then it is rejected", func() {
				So(errors.Is(err, service.ErrInvalidShareToken), ShouldBeTrue)
			})
		})
	})
}
