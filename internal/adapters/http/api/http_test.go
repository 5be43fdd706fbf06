package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/okian/grouprank/internal/adapters/http/api"
	"github.com/okian/grouprank/internal/adapters/repository"
	service "github.com/okian/grouprank/internal/app"
	"github.com/okian/grouprank/internal/domain/model"
	"github.com/okian/grouprank/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

type harness struct {
	svc *service.Service
	mux *http.ServeMux
}

func newHarness() *harness {
	svc := service.New(repository.NewMemoryStore(), service.WithSeedGroups([]model.Group{
		{ID: "1", Name: "Path finder"},
		{ID: "2", Name: "Nova"},
		{ID: "3", Name: "Fusion force"},
	}))
	if err := svc.Start(context.Background()); err != nil {
		panic(err)
	}
	mux := http.NewServeMux()
	api.NewServer(svc, svc, api.WithPollInterval(5*time.Second)).Register(context.Background(), mux)
	return &harness{svc: svc, mux: mux}
}

func (h *harness) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, http.NoBody)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.mux.ServeHTTP(w, req)
	return w
}

func decode(w *httptest.ResponseRecorder) map[string]any {
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		panic(fmt.Sprintf("decode %q: %v", w.Body.String(), err))
	}
	return out
}

const rateBody = `{"userId":"U","userName":"Ursula","groupId":"2",
	"scores":{"communication":10,"presentation":20,"content":30,
	"helpfulForCompany":40,"helpfulForInterns":0,"participation":5},
	"comment":"good"}`

func TestCommands(t *testing.T) {
	Convey("Given an API server over a fresh service", t, func() {
		h := newHarness()
		defer h.svc.Stop()

		Convey("When a user joins a group", func() {
			w := h.do(http.MethodPost, "/join", `{"userId":"alice","displayName":"Alice","branch":"Berlin","groupId":"1"}`)

			Convey("Then it responds 200 and lists the member", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(decode(w)["status"], ShouldEqual, "joined")

				m := h.do(http.MethodGet, "/groups/1/members", "")
				So(m.Code, ShouldEqual, http.StatusOK)
				members := decode(m)["members"].([]any)
				So(len(members), ShouldEqual, 1)
				So(members[0].(map[string]any)["branch"], ShouldEqual, "Berlin")
			})

			Convey("Then joining again is a 409", func() {
				w := h.do(http.MethodPost, "/join", `{"userId":"alice","groupId":"2"}`)
				So(w.Code, ShouldEqual, http.StatusConflict)
				So(decode(w)["code"], ShouldEqual, "already_member")
			})

			Convey("Then leaving a different group is a 409", func() {
				w := h.do(http.MethodPost, "/leave", `{"userId":"alice","groupId":"2"}`)
				So(w.Code, ShouldEqual, http.StatusConflict)
				So(decode(w)["code"], ShouldEqual, "not_member")
			})

			Convey("Then leaving the group succeeds", func() {
				w := h.do(http.MethodPost, "/leave", `{"userId":"alice","groupId":"1"}`)
				So(w.Code, ShouldEqual, http.StatusOK)
				So(decode(w)["status"], ShouldEqual, "left")
			})

			Convey("Then rating as a member is a 403", func() {
				body := strings.Replace(rateBody, `"userId":"U"`, `"userId":"alice"`, 1)
				w := h.do(http.MethodPost, "/rate", body)
				So(w.Code, ShouldEqual, http.StatusForbidden)
				So(decode(w)["code"], ShouldEqual, "not_eligible")
			})
		})

		Convey("When a non-member rates a group", func() {
			w := h.do(http.MethodPost, "/rate", rateBody)

			Convey("Then it responds 201 with the created rating", func() {
				So(w.Code, ShouldEqual, http.StatusCreated)
				body := decode(w)
				So(body["points"], ShouldEqual, 105.0)
				So(body["raterName"], ShouldEqual, "Ursula")
				So(body["comment"], ShouldEqual, "good")
				So(body["scores"].(map[string]any)["helpfulForCompany"], ShouldEqual, 40.0)
			})

			Convey("Then a second rating is a 409 until removed", func() {
				w := h.do(http.MethodPost, "/rate", rateBody)
				So(w.Code, ShouldEqual, http.StatusConflict)
				So(decode(w)["code"], ShouldEqual, "duplicate_rating")

				d := h.do(http.MethodDelete, "/rating", `{"userId":"U","groupId":"2"}`)
				So(d.Code, ShouldEqual, http.StatusOK)

				d = h.do(http.MethodDelete, "/rating", `{"userId":"U","groupId":"2"}`)
				So(d.Code, ShouldEqual, http.StatusNotFound)

				w = h.do(http.MethodPost, "/rate", rateBody)
				So(w.Code, ShouldEqual, http.StatusCreated)
			})

			Convey("Then the history lists it", func() {
				r := h.do(http.MethodGet, "/groups/2/ratings", "")
				So(r.Code, ShouldEqual, http.StatusOK)
				list := decode(r)["ratings"].([]any)
				So(len(list), ShouldEqual, 1)
				So(list[0].(map[string]any)["points"], ShouldEqual, 105.0)
			})
		})

		Convey("When scores are invalid", func() {
			cases := []string{
				strings.Replace(rateBody, `"participation":5`, `"participation":41`, 1),
				strings.Replace(rateBody, `"participation":5`, `"participation":-1`, 1),
				strings.Replace(rateBody, `"participation":5`, `"participation":4.5`, 1),
				strings.Replace(rateBody, `,"participation":5`, ``, 1),
				strings.Replace(rateBody, `"communication":10`, `"communication":"ten"`, 1),
				strings.Replace(rateBody, `"participation":5`, `"participation":null`, 1),
				strings.Replace(rateBody, `"participation":5`, `"participation":[5]`, 1),
				`{"userId":"U","groupId":"2","scores":"high"}`,
				`{"userId":"U","groupId":"2"}`,
				strings.Replace(rateBody, `"good"`, `"`+strings.Repeat("x", 501)+`"`, 1),
			}

			Convey("Then each is rejected with 422 and nothing is stored", func() {
				for _, body := range cases {
					w := h.do(http.MethodPost, "/rate", body)
					So(w.Code, ShouldEqual, http.StatusUnprocessableEntity)
					So(decode(w)["code"], ShouldEqual, "invalid_score")
				}
				r := h.do(http.MethodGet, "/groups/2/ratings", "")
				So(decode(r)["ratings"], ShouldBeEmpty)
			})
		})

		Convey("When requests are malformed", func() {
			So(h.do(http.MethodPost, "/join", `{not json`).Code, ShouldEqual, http.StatusBadRequest)
			So(h.do(http.MethodPost, "/join", `{"groupId":"1"}`).Code, ShouldEqual, http.StatusBadRequest)
			So(h.do(http.MethodPost, "/leave", `{"userId":"a"}`).Code, ShouldEqual, http.StatusBadRequest)
			So(h.do(http.MethodDelete, "/rating", `{"userId":" ","groupId":"1"}`).Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the group does not exist", func() {
			So(h.do(http.MethodPost, "/join", `{"userId":"a","groupId":"99"}`).Code, ShouldEqual, http.StatusNotFound)
			So(h.do(http.MethodGet, "/groups/99/ratings", "").Code, ShouldEqual, http.StatusNotFound)
			So(h.do(http.MethodGet, "/groups/99/members", "").Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("When the wrong method is used", func() {
			So(h.do(http.MethodGet, "/join", "").Code, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})
}

func TestQueries(t *testing.T) {
	Convey("Given a server with one rated group", t, func() {
		h := newHarness()
		defer h.svc.Stop()
		So(h.do(http.MethodPost, "/rate", rateBody).Code, ShouldEqual, http.StatusCreated)
		So(h.do(http.MethodPost, "/join", `{"userId":"m","groupId":"1"}`).Code, ShouldEqual, http.StatusOK)

		Convey("When listing groups anonymously", func() {
			w := h.do(http.MethodGet, "/groups", "")

			Convey("Then groups are ranked with display values and no viewer flags", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				groups := decode(w)["groups"].([]any)
				So(len(groups), ShouldEqual, 3)
				first := groups[0].(map[string]any)
				So(first["id"], ShouldEqual, "2")
				So(first["rankLabel"], ShouldEqual, "1st")
				So(first["display"].(map[string]any)["totalRating"], ShouldEqual, 105.0)
				So(first, ShouldNotContainKey, "canRate")

				second := groups[1].(map[string]any)
				So(second["id"], ShouldEqual, "1")
				So(second["rankLabel"], ShouldEqual, "2nd")
				So(second["memberCount"], ShouldEqual, 1.0)
			})
		})

		Convey("When listing groups for a viewer", func() {
			w := h.do(http.MethodGet, "/groups?userId=U", "")

			Convey("Then each group carries the viewer's flags", func() {
				groups := decode(w)["groups"].([]any)
				for _, g := range groups {
					row := g.(map[string]any)
					So(row["isMember"], ShouldEqual, false)
					So(row["hasRated"], ShouldEqual, row["id"] == "2")
					So(row["canRate"], ShouldEqual, row["id"] != "2")
				}
			})
		})

		Convey("When polling the live feed", func() {
			w := h.do(http.MethodGet, "/live-feed?userId=U", "")

			Convey("Then the event is marked as the viewer's own", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Cache-Control"), ShouldEqual, "no-store")
				body := decode(w)
				So(body["pollIntervalMs"], ShouldEqual, 5000.0)
				events := body["events"].([]any)
				So(len(events), ShouldEqual, 1)
				ev := events[0].(map[string]any)
				So(ev["isSelf"], ShouldEqual, true)
				So(ev["points"], ShouldEqual, 105.0)
				So(ev["groupName"], ShouldEqual, "Nova")
				So(ev, ShouldNotContainKey, "raterUserId")
			})
		})

		Convey("When reading stats and metrics", func() {
			s := h.do(http.MethodGet, "/stats", "")
			So(s.Code, ShouldEqual, http.StatusOK)
			So(decode(s)["started"], ShouldEqual, true)

			m := h.do(http.MethodGet, "/healthz", "")
			So(m.Code, ShouldEqual, http.StatusOK)
			So(m.Body.String(), ShouldContainSubstring, "grouprank_")
		})
	})
}

type failingDeps struct{ err error }

func (f failingDeps) Join(context.Context, model.User, string) error { return f.err }
func (f failingDeps) Leave(context.Context, string, string) error     { return f.err }
func (f failingDeps) Rate(context.Context, model.User, string, model.Scores, string) (model.Rating, error) {
	return model.Rating{}, f.err
}
func (f failingDeps) RemoveRating(context.Context, string, string) error { return f.err }
func (f failingDeps) Leaderboard(context.Context, string) ([]model.RankedGroup, error) {
	return nil, f.err
}
func (f failingDeps) History(context.Context, string) ([]model.Rating, error) { return nil, f.err }
func (f failingDeps) Members(context.Context, string) ([]model.Member, error) { return nil, f.err }
func (f failingDeps) LiveFeed(context.Context, string) []model.LiveEvent     { return nil }
func (f failingDeps) GetStats() map[string]any                                 { return map[string]any{} }

func TestInfrastructureFailures(t *testing.T) {
	Convey("Given dependencies whose store is unavailable", t, func() {
		deps := failingDeps{err: fmt.Errorf("load group 1: %w", fmt.Errorf("sqlite: %w: %w", repository.ErrUnavailable, errors.New("disk I/O error")))}
		mux := http.NewServeMux()
		api.NewServer(deps, deps).Register(context.Background(), mux)

		Convey("Then commands and queries respond 503 without leaking details", func() {
			for _, tc := range []struct{ method, path, body string }{
				{http.MethodPost, "/join", `{"userId":"a","groupId":"1"}`},
				{http.MethodGet, "/groups", ""},
				{http.MethodGet, "/groups/1/ratings", ""},
			} {
				req := httptest.NewRequest(tc.method, tc.path, strings.NewReader(tc.body))
				w := httptest.NewRecorder()
				mux.ServeHTTP(w, req)

				So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
				body := decode(w)
				So(body["code"], ShouldEqual, "unavailable")
				So(body["message"], ShouldNotContainSubstring, "disk")
			}
		})

		Convey("Then an empty live feed is still an empty list", func() {
			req := httptest.NewRequest(http.MethodGet, "/live-feed", http.NoBody)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode(w)["events"], ShouldResemble, []any{})
		})
	})

	Convey("Given dependencies failing with an unexpected error", t, func() {
		deps := failingDeps{err: errors.New("boom")}
		mux := http.NewServeMux()
		api.NewServer(deps, deps).Register(context.Background(), mux)

		Convey("Then the API responds 500", func() {
			req := httptest.NewRequest(http.MethodPost, "/leave", strings.NewReader(`{"userId":"a","groupId":"1"}`))
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)
			So(w.Code, ShouldEqual, http.StatusInternalServerError)
			So(decode(w)["code"], ShouldEqual, "internal_error")
		})
	})
}
