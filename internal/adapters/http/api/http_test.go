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

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/tallybot/internal/adapters/history"
	"github.com/okian/tallybot/internal/adapters/http/api"
	"github.com/okian/tallybot/internal/app"
	"github.com/okian/tallybot/internal/domain/model"
)

type mockDeps struct {
	enqueueErr error
	enqueued   []model.Inbound

	reply    app.Reply
	queryErr error
	queries  []app.QueryRequest

	entries  map[int64][]history.Entry
	cleared  []int64
	storeErr error
}

func (m *mockDeps) Enqueue(_ context.Context, in model.Inbound) error {
	if m.enqueueErr != nil {
		return m.enqueueErr
	}
	m.enqueued = append(m.enqueued, in)
	return nil
}

func (m *mockDeps) Query(_ context.Context, req app.QueryRequest) (app.Reply, error) {
	m.queries = append(m.queries, req)
	return m.reply, m.queryErr
}

func (m *mockDeps) History(_ context.Context, id int64) ([]history.Entry, error) {
	return m.entries[id], m.storeErr
}

func (m *mockDeps) ClearHistory(_ context.Context, id int64) error {
	m.cleared = append(m.cleared, id)
	return m.storeErr
}

type mockStats map[string]any

func (m mockStats) GetStats() map[string]any { return m }

func newMux(deps *mockDeps) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(deps, mockStats{"started": true}).Register(context.Background(), mux)
	return mux
}

func do(mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decode(w *httptest.ResponseRecorder) map[string]any {
	var out map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return out
}

const inboundBody = `{"id": 77, "type": "private", "sender_id": 3, "content": "sp23", "timestamp": "2023-04-03T09:00:00Z"}`

func TestPostMessages(t *testing.T) {
	Convey("Given the API server", t, func() {
		deps := &mockDeps{}
		mux := newMux(deps)

		Convey("A valid message is accepted for asynchronous handling", func() {
			w := do(mux, http.MethodPost, "/messages", inboundBody)
			So(w.Code, ShouldEqual, http.StatusAccepted)
			So(decode(w)["status"], ShouldEqual, "accepted")
			So(deps.enqueued, ShouldHaveLength, 1)
			So(deps.enqueued[0].ID, ShouldEqual, int64(77))
			So(deps.enqueued[0].Kind, ShouldEqual, model.KindPrivate)
		})

		Convey("A duplicate message id is acknowledged with 200", func() {
			deps.enqueueErr = fmt.Errorf("%w: 77", app.ErrDuplicate)
			w := do(mux, http.MethodPost, "/messages", inboundBody)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode(w)["duplicate"], ShouldEqual, true)
		})

		Convey("A full queue answers 429", func() {
			deps.enqueueErr = app.ErrQueueFull
			w := do(mux, http.MethodPost, "/messages", inboundBody)
			So(w.Code, ShouldEqual, http.StatusTooManyRequests)
			So(decode(w)["code"], ShouldEqual, "backpressure")
		})

		Convey("A stopped service answers 503", func() {
			deps.enqueueErr = app.ErrNotStarted
			w := do(mux, http.MethodPost, "/messages", inboundBody)
			So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
		})

		Convey("Malformed JSON is rejected", func() {
			w := do(mux, http.MethodPost, "/messages", `{"id":`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(deps.enqueued, ShouldBeEmpty)
		})

		Convey("Unknown fields are rejected", func() {
			w := do(mux, http.MethodPost, "/messages", `{"id": 1, "type": "private", "sender_id": 3, "extra": true}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("Validation failures name the fields", func() {
			w := do(mux, http.MethodPost, "/messages", `{"id": 1, "type": "stream", "sender_id": 3}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			body := decode(w)
			So(body["code"], ShouldEqual, "bad_request")
			fields, _ := body["fields"].([]any)
			So(fields, ShouldHaveLength, 1)
			So(fields[0].(map[string]any)["field"], ShouldEqual, "Stream")
		})

		Convey("Other methods are not allowed", func() {
			w := do(mux, http.MethodGet, "/messages", "")
			So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})
}

func TestPostTally(t *testing.T) {
	Convey("Given the API server", t, func() {
		deps := &mockDeps{}
		mux := newMux(deps)
		body := `{"requester_id": 1, "stream": "CS 35L", "query": "ali"}`

		Convey("A successful query returns the reply", func() {
			deps.reply = app.Reply{Kind: app.ReplyVerbose, Text: "Current RQ Count: 1", Chunks: []string{"Current RQ Count: 1"}}
			w := do(mux, http.MethodPost, "/tally", body)
			So(w.Code, ShouldEqual, http.StatusOK)
			got := decode(w)
			So(got["kind"], ShouldEqual, "verbose")
			So(got["text"], ShouldEqual, "Current RQ Count: 1")
			So(deps.queries, ShouldResemble, []app.QueryRequest{{RequesterID: 1, Stream: "CS 35L", Query: "ali"}})
		})

		Convey("A missing stream is a bad request", func() {
			w := do(mux, http.MethodPost, "/tally", `{"requester_id": 1}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(deps.queries, ShouldBeEmpty)
		})

		Convey("Failures map to explicit statuses with the reply text", func() {
			cases := []struct {
				err    error
				status int
				code   string
			}{
				{app.ErrUnknownStream, http.StatusNotFound, "unknown_stream"},
				{app.ErrUnknownRequester, http.StatusNotFound, "unknown_requester"},
				{&model.MalformedError{MessageID: 5, Field: "timestamp", Reason: "missing"}, http.StatusUnprocessableEntity, "malformed_message"},
				{fmt.Errorf("x: %w", app.ErrFetchFailed), http.StatusBadGateway, "fetch_failed"},
				{errors.New("boom"), http.StatusInternalServerError, "internal_error"},
			}
			for _, c := range cases {
				deps.queryErr = c.err
				deps.reply = app.Reply{Kind: app.ReplyError, Text: "explained"}
				w := do(mux, http.MethodPost, "/tally", body)
				So(w.Code, ShouldEqual, c.status)
				got := decode(w)
				So(got["code"], ShouldEqual, c.code)
				So(got["message"], ShouldEqual, "explained")
			}
		})
	})
}

func TestHistoryRoutes(t *testing.T) {
	Convey("Given the API server", t, func() {
		entry := history.NewEntry(history.DirectionIn, "sp23")
		deps := &mockDeps{entries: map[int64][]history.Entry{3: {entry}}}
		mux := newMux(deps)

		Convey("GET returns the requester's entries", func() {
			w := do(mux, http.MethodGet, "/history/3", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			got := decode(w)
			So(got["requester_id"], ShouldEqual, float64(3))
			entries := got["entries"].([]any)
			So(entries, ShouldHaveLength, 1)
			So(entries[0].(map[string]any)["text"], ShouldEqual, "sp23")
		})

		Convey("GET for an empty history returns an empty list", func() {
			w := do(mux, http.MethodGet, "/history/9", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"entries":[]`)
		})

		Convey("DELETE clears the history", func() {
			w := do(mux, http.MethodDelete, "/history/3", "")
			So(w.Code, ShouldEqual, http.StatusNoContent)
			So(deps.cleared, ShouldResemble, []int64{3})
		})

		Convey("A non-numeric requester is rejected", func() {
			So(do(mux, http.MethodGet, "/history/ali", "").Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, http.MethodDelete, "/history/-1", "").Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("Store failures answer 500", func() {
			deps.storeErr = history.ErrStore
			So(do(mux, http.MethodGet, "/history/3", "").Code, ShouldEqual, http.StatusInternalServerError)
		})
	})
}

func TestHealthAndStats(t *testing.T) {
	Convey("Given the API server", t, func() {
		mux := newMux(&mockDeps{})

		Convey("/healthz serves Prometheus metrics", func() {
			do(mux, http.MethodGet, "/stats", "")
			w := do(mux, http.MethodGet, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "tallybot_core_http_requests_total")
		})

		Convey("/stats serves the provider's statistics", func() {
			w := do(mux, http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode(w)["started"], ShouldEqual, true)
		})
	})
}

func TestErrorHelpers(t *testing.T) {
	Convey("Error helpers keep both the kind and the cause", t, func() {
		cause := errors.New("eof")
		err := api.WrapKind("api.op", api.ErrBadRequest, cause)
		So(errors.Is(err, api.ErrBadRequest), ShouldBeTrue)
		So(errors.Is(err, cause), ShouldBeTrue)
		So(err.Error(), ShouldEqual, "api.op: bad request: eof")
		So(api.Wrap("api.op", nil), ShouldBeNil)
		So(api.NewKind("api.op", api.ErrBackpressure).Error(), ShouldEqual, "api.op: backpressure")
	})
}
