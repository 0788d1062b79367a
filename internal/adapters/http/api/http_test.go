package api_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/bookpickr/internal/adapters/catalog"
	"github.com/okian/bookpickr/internal/adapters/http/api"
	service "github.com/okian/bookpickr/internal/app"
	"github.com/okian/bookpickr/internal/domain/model"
	"github.com/okian/bookpickr/internal/domain/pool"
	"github.com/okian/bookpickr/internal/domain/selection"
	"github.com/okian/bookpickr/internal/domain/types"
	"github.com/okian/bookpickr/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init(logger.WithWriter(io.Discard)); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type mockDependencies struct {
	session     types.Session
	pair        types.Pair
	entries     []types.Entry
	active      types.ActivePool
	err         error
	pickErr     error
	workErr     error
	picked      []int
	committed   []model.CandidateItem
	label       *model.Label
	leaderLimit int
	subject     string
	token       string
}

func (m *mockDependencies) State(context.Context) (types.Session, error) { return m.session, m.err }
func (m *mockDependencies) Pair(context.Context) (types.Pair, error)     { return m.pair, m.err }
func (m *mockDependencies) Reset(context.Context) (types.Session, error) { return m.session, m.err }

func (m *mockDependencies) Pick(_ context.Context, index int) (types.Session, error) {
	m.picked = append(m.picked, index)
	return m.session, m.pickErr
}

func (m *mockDependencies) Leaderboard(_ context.Context, n int) ([]types.Entry, error) {
	m.leaderLimit = n
	return m.entries, m.err
}

func (m *mockDependencies) ActivePool(context.Context) (types.ActivePool, error) {
	return m.active, m.err
}

func (m *mockDependencies) CommitPool(_ context.Context, items []model.CandidateItem, label *model.Label) (types.Session, error) {
	m.committed, m.label = items, label
	return m.session, m.err
}

func (m *mockDependencies) ClearPool(context.Context) (types.Session, error) { return m.session, m.err }

func (m *mockDependencies) SubjectPool(_ context.Context, subject string, _, _ int) ([]model.CandidateItem, int, error) {
	m.subject = subject
	return []model.CandidateItem{{ID: 1, Title: "Dune", Author: "Frank Herbert"}}, 42, m.err
}

func (m *mockDependencies) AuthorPool(_ context.Context, name string, _ int) ([]model.CandidateItem, error) {
	if name == "" {
		return nil, service.ErrInvalidArgument
	}
	return nil, m.err
}

func (m *mockDependencies) AuthorSuggestions(_ context.Context, q string, _ int) []model.AuthorHit {
	if q == "" {
		return nil
	}
	return []model.AuthorHit{{Key: "OL26320A", Name: "J. R. R. Tolkien"}}
}

func (m *mockDependencies) WorkDetail(_ context.Context, id string) (model.WorkDetail, error) {
	if m.workErr != nil {
		return model.WorkDetail{}, m.workErr
	}
	return model.WorkDetail{Key: "/works/" + id, Title: "Dune"}, nil
}

func (m *mockDependencies) ShareToken(context.Context) (string, error) { return "abc", m.err }

func (m *mockDependencies) RestoreShare(_ context.Context, token string) (types.Session, error) {
	m.token = token
	return m.session, m.err
}

type mockStatsProvider struct {
	stats map[string]interface{}
}

func (m *mockStatsProvider) GetStats() map[string]interface{} { return m.stats }

func newMux(deps *mockDependencies) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(deps, &mockStatsProvider{stats: map[string]interface{}{"started": true}}, 10).
		Register(context.Background(), mux)
	return mux
}

func do(mux http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var r io.Reader = http.NoBody
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func errorCode(w *httptest.ResponseRecorder) string {
	var body struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return body.Code
}

func TestServerRoutes(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		champion, challenger := 2, 5
		deps := &mockDependencies{
			session: types.Session{State: "ready", Champion: &champion, Challenger: &challenger, PoolSize: 10},
			pair: types.Pair{
				Generation: 3,
				Champion:   types.PairItem{Index: 2, Title: "Dune", CoverURL: "https://covers.test/1-L.jpg"},
				Challenger: types.PairItem{Index: 5, Title: "Emma"},
			},
			entries: []types.Entry{{Rank: 1, Index: 2, Title: "Dune", Wins: 3}},
		}
		mux := newMux(deps)

		Convey("Then health serves the metrics exposition", func() {
			w := do(mux, "GET", "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("Then stats are returned as JSON", func() {
			w := do(mux, "GET", "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"started":true`)
		})

		Convey("Then state and pair are returned", func() {
			w := do(mux, "GET", "/state", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"championIndex":2`)

			w = do(mux, "GET", "/pair", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			var pair types.Pair
			So(json.Unmarshal(w.Body.Bytes(), &pair), ShouldBeNil)
			So(pair.Champion.CoverURL, ShouldEqual, "https://covers.test/1-L.jpg")
			So(pair.Generation, ShouldEqual, 3)
		})

		Convey("Then a pick is forwarded", func() {
			w := do(mux, "POST", "/pick", `{"index":5}`)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.picked, ShouldResemble, []int{5})
		})

		Convey("Then an index of zero is a valid pick", func() {
			w := do(mux, "POST", "/pick", `{"index":0}`)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.picked, ShouldResemble, []int{0})
		})

		Convey("Then malformed picks are rejected before the engine", func() {
			for _, body := range []string{`{}`, `{"index":-1}`, `not json`, ``} {
				w := do(mux, "POST", "/pick", body)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(errorCode(w), ShouldEqual, "bad_request")
			}
			So(deps.picked, ShouldBeEmpty)
		})

		Convey("Then a pick outside the pair is a 400", func() {
			deps.pickErr = selection.ErrNotInPair
			w := do(mux, "POST", "/pick", `{"index":7}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(errorCode(w), ShouldEqual, "not_in_pair")
		})

		Convey("Then a pick on a blocked pool is a 409 pointing at /pool", func() {
			deps.pickErr = selection.ErrBlocked
			w := do(mux, "POST", "/pick", `{"index":0}`)
			So(w.Code, ShouldEqual, http.StatusConflict)
			So(errorCode(w), ShouldEqual, "blocked")
			So(w.Body.String(), ShouldContainSubstring, "/pool")
		})

		Convey("Then the wrong method is refused", func() {
			w := do(mux, "GET", "/pick", "")
			So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
		})

		Convey("Then reset returns the session", func() {
			w := do(mux, "POST", "/reset", "")
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("Then unknown paths are 404", func() {
			w := do(mux, "GET", "/unknown", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestLeaderboardRoute(t *testing.T) {
	Convey("Given a registered API server with max limit 10", t, func() {
		deps := &mockDependencies{}
		mux := newMux(deps)

		Convey("When no limit is given", func() {
			w := do(mux, "GET", "/leaderboard", "")

			Convey("Then the service default applies and an empty list is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.leaderLimit, ShouldEqual, 0)
				So(strings.TrimSpace(w.Body.String()), ShouldEqual, "[]")
			})
		})

		Convey("When a limit is given", func() {
			w := do(mux, "GET", "/leaderboard?limit=3", "")

			Convey("Then it is forwarded", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.leaderLimit, ShouldEqual, 3)
			})
		})

		Convey("When the limit is invalid or too large", func() {
			bad := do(mux, "GET", "/leaderboard?limit=abc", "")
			neg := do(mux, "GET", "/leaderboard?limit=-1", "")
			big := do(mux, "GET", "/leaderboard?limit=11", "")

			Convey("Then the request is rejected", func() {
				So(bad.Code, ShouldEqual, http.StatusBadRequest)
				So(neg.Code, ShouldEqual, http.StatusBadRequest)
				So(big.Code, ShouldEqual, http.StatusBadRequest)
				So(errorCode(big), ShouldEqual, "limit_exceeded")
			})
		})

		Convey("When the service is not running", func() {
			deps.err = service.ErrNotStarted
			w := do(mux, "GET", "/leaderboard", "")

			Convey("Then it is reported as unavailable", func() {
				So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
			})
		})
	})
}

func TestPoolRoutes(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		deps := &mockDependencies{session: types.Session{State: "ready", PoolSize: 2}}
		mux := newMux(deps)

		Convey("When a pool is committed with a label", func() {
			w := do(mux, "POST", "/pool",
				`{"items":[{"title":"Dune","author":"Frank Herbert","workKey":"/works/OL893415W"},{"title":"Emma"}],"label":{"type":"subject","value":"fiction"}}`)

			Convey("Then items and label reach the service", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(len(deps.committed), ShouldEqual, 2)
				So(*deps.committed[0].WorkKey, ShouldEqual, "/works/OL893415W")
				So(deps.label, ShouldResemble, &model.Label{Kind: model.LabelSubject, Value: "fiction"})
			})
		})

		Convey("When the body is invalid", func() {
			empty := do(mux, "POST", "/pool", `{"items":[]}`)
			untitled := do(mux, "POST", "/pool", `{"items":[{"author":"x"}]}`)
			label := do(mux, "POST", "/pool", `{"items":[{"title":"Dune"}],"label":{"type":"genre","value":"x"}}`)

			Convey("Then it is rejected", func() {
				So(empty.Code, ShouldEqual, http.StatusBadRequest)
				So(untitled.Code, ShouldEqual, http.StatusBadRequest)
				So(label.Code, ShouldEqual, http.StatusBadRequest)
				So(deps.committed, ShouldBeNil)
			})
		})

		Convey("When the service rejects an empty pool", func() {
			deps.err = pool.ErrEmptyPool
			w := do(mux, "POST", "/pool", `{"items":[{"title":"Dune"}]}`)

			Convey("Then it is a bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the pool is read and cleared", func() {
			get := do(mux, "GET", "/pool", "")
			del := do(mux, "DELETE", "/pool", "")

			Convey("Then both succeed", func() {
				So(get.Code, ShouldEqual, http.StatusOK)
				So(del.Code, ShouldEqual, http.StatusOK)
			})
		})
	})
}

func TestCatalogRoutes(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		deps := &mockDependencies{}
		mux := newMux(deps)

		Convey("Then subject previews carry the slug and total", func() {
			w := do(mux, "GET", "/catalog/subjects/Science%20Fiction?limit=5&offset=10", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.subject, ShouldEqual, "Science Fiction")
			So(w.Body.String(), ShouldContainSubstring, `"subject":"science_fiction"`)
			So(w.Body.String(), ShouldContainSubstring, `"total":42`)
		})

		Convey("Then a non-numeric offset is rejected", func() {
			w := do(mux, "GET", "/catalog/subjects/fantasy?offset=x", "")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("Then an author preview needs a name", func() {
			w := do(mux, "GET", "/catalog/authors", "")
			So(w.Code, ShouldEqual, http.StatusBadRequest)

			w = do(mux, "GET", "/catalog/authors?name=Jane%20Austen", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"items":[]`)
		})

		Convey("Then suggestions always return a list", func() {
			w := do(mux, "GET", "/catalog/author-suggestions?q=tolk", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "Tolkien")

			w = do(mux, "GET", "/catalog/author-suggestions", "")
			So(w.Body.String(), ShouldContainSubstring, `"authors":[]`)
		})

		Convey("Then work detail is returned", func() {
			w := do(mux, "GET", "/works/OL893415W", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"key":"/works/OL893415W"`)
		})

		Convey("Then upstream failures surface as 502 with the reason", func() {
			deps.workErr = &catalog.StatusError{Code: 503}
			w := do(mux, "GET", "/works/OL893415W", "")
			So(w.Code, ShouldEqual, http.StatusBadGateway)
			So(errorCode(w), ShouldEqual, "upstream_error")
			So(w.Body.String(), ShouldContainSubstring, "HTTP 503")
		})

		Convey("Then a malformed work id is a 400", func() {
			deps.workErr = catalog.ErrInvalidWorkID
			w := do(mux, "GET", "/works/nope", "")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestShareRoutes(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		deps := &mockDependencies{}
		mux := newMux(deps)

		Convey("Then the token is returned", func() {
			w := do(mux, "GET", "/share", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"token":"abc"`)
		})

		Convey("Then a token is restored", func() {
			w := do(mux, "POST", "/share", `{"token":"s=xyz"}`)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.token, ShouldEqual, "s=xyz")
		})

		Convey("Then a missing token is rejected", func() {
			w := do(mux, "POST", "/share", `{}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("Then a bad token is reported", func() {
			deps.err = service.ErrInvalidShareToken
			w := do(mux, "POST", "/share", `{"token":"zzz"}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(errorCode(w), ShouldEqual, "invalid_share")
		})

		Convey("Then sharing a blocked session conflicts", func() {
			deps.err = selection.ErrBlocked
			w := do(mux, "GET", "/share", "")
			So(w.Code, ShouldEqual, http.StatusConflict)
		})
	})
}

func TestRequestIDMiddleware(t *testing.T) {
	Convey("Given a handler behind the request id middleware", t, func() {
		var seen string
		h := api.RequestIDMiddleware(api.AccessLogMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = api.RequestID(r.Context())
		})))

		Convey("When no id is sent", func() {
			w := do(h, "GET", "/", "")

			Convey("Then one is generated and echoed", func() {
				So(seen, ShouldNotBeEmpty)
				So(w.Header().Get(api.RequestIDHeader), ShouldEqual, seen)
			})
		})

		Convey("When the client sends an id", func() {
			req := httptest.NewRequest("GET", "/", http.NoBody)
			req.Header.Set(api.RequestIDHeader, "req-1")
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			Convey("Then it is kept", func() {
				So(seen, ShouldEqual, "req-1")
				So(w.Header().Get(api.RequestIDHeader), ShouldEqual, "req-1")
			})
		})
	})
}

func TestOpError(t *testing.T) {
	Convey("Given an op-tagged error", t, func() {
		cause := errors.New("boom")
		err := api.WrapKind("api.x", api.ErrBadRequest, cause)

		Convey("Then it unwraps to kind and cause", func() {
			So(errors.Is(err, api.ErrBadRequest), ShouldBeTrue)
			So(errors.Is(err, cause), ShouldBeTrue)
			So(err.Error(), ShouldEqual, "api.x: bad request: boom")
		})

		Convey("Then the other constructors format sensibly", func() {
			So(api.NewKind("api.y", api.ErrUpstream).Error(), ShouldEqual, "api.y: upstream error")
			So(api.Wrap("api.z", cause).Error(), ShouldEqual, "api.z: boom")
			So(api.Wrap("api.z", nil), ShouldBeNil)
		})
	})
}
