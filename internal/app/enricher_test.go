package service_test

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	service "github.com/okian/bookpickr/internal/app"
	"github.com/okian/bookpickr/internal/domain/types"
	"github.com/okian/bookpickr/pkg/metrics"
	. "github.com/smartystreets/goconvey/convey"
)

// gatedWarmer blocks lookups for "slow" titles until release is closed.
type gatedWarmer struct {
	release chan struct{}
}

func (g *gatedWarmer) ResolveCover(ctx context.Context, title, _ string) (string, bool) {
	if title == "slow" {
		select {
		case <-g.release:
		case <-ctx.Done():
		}
	}
	return "cover-" + title, true
}

func (g *gatedWarmer) ResolveSynopsis(_ context.Context, title, _ string) (string, bool) {
	return "", false
}

func pairOf(gen uint64, champion, challenger string) types.Pair {
	return types.Pair{
		Generation: gen,
		Champion:   types.PairItem{Index: 0, Title: champion},
		Challenger: types.PairItem{Index: 1, Title: challenger},
	}
}

func TestEnricherDiscardsStaleResults(t *testing.T) {
	Convey("Given an enricher whose first lookup is slow", t, func() {
		warmer := &gatedWarmer{release: make(chan struct{})}
		e := service.NewEnricher(warmer)
		var gen atomic.Uint64
		gen.Store(1)
		current := func() uint64 { return gen.Load() }

		Convey("When the pair changes before the slow lookup returns", func() {
			type result struct {
				pair types.Pair
				err  error
			}
			slow := make(chan result, 1)
			go func() {
				p, err := e.Enrich(context.Background(), pairOf(1, "slow", "b"), current)
				slow <- result{p, err}
			}()

			gen.Store(2)
			fresh, err := e.Enrich(context.Background(), pairOf(2, "c", "d"), current)
			So(err, ShouldBeNil)
			close(warmer.release)
			stale := <-slow

			Convey("Then the late result is discarded", func() {
				So(errors.Is(stale.err, service.ErrStaleGeneration), ShouldBeTrue)
			})

			Convey("Then the latest enrichment is the fresh pair", func() {
				latest, ok := e.Latest()
				So(ok, ShouldBeTrue)
				So(latest, ShouldResemble, fresh)
				So(latest.Champion.CoverURL, ShouldEqual, "cover-c")
				So(latest.Challenger.Synopsis, ShouldBeEmpty)
			})
		})

		Convey("When a newer pair was stored but the counter reads old", func() {
			gen.Store(5)
			_, err := e.Enrich(context.Background(), pairOf(5, "e", "f"), current)
			So(err, ShouldBeNil)
			_, err = e.Enrich(context.Background(), pairOf(3, "g", "h"), func() uint64 { return 3 })

			Convey("Then the older one never overwrites it", func() {
				So(errors.Is(err, service.ErrStaleGeneration), ShouldBeTrue)
				latest, _ := e.Latest()
				So(latest.Generation, ShouldEqual, 5)
			})
		})

		Convey("When nothing has been enriched yet", func() {
			_, ok := e.Latest()

			Convey("Then there is no latest pair", func() {
				So(ok, ShouldBeFalse)
			})
		})
	})
}

// missingTotal reads enrichment_missing_total{kind} from the registry.
func missingTotal(kind string) float64 {
	families, _ := metrics.GetRegistry().Gather()
	for _, f := range families {
		if !strings.HasSuffix(f.GetName(), "enrichment_missing_total") {
			continue
		}
		for _, m := range f.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "kind" && l.GetValue() == kind {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestEnricherCountsEachMissOnce(t *testing.T) {
	Convey("Given a warmer that finds covers but never a synopsis", t, func() {
		warmer := &gatedWarmer{release: make(chan struct{})}
		e := service.NewEnricher(warmer)
		covers, synopses := missingTotal("cover"), missingTotal("synopsis")

		Convey("When one pair is enriched", func() {
			_, err := e.Enrich(context.Background(), pairOf(1, "a", "b"), func() uint64 { return 1 })
			So(err, ShouldBeNil)

			Convey("Then each missing synopsis is counted exactly once", func() {
				So(missingTotal("synopsis")-synopses, ShouldEqual, 2)
				So(missingTotal("cover")-covers, ShouldEqual, 0)
			})
		})
	})
}
