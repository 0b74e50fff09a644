package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestClassify(t *testing.T) {
	Convey("Failed responses are classified by status", t, func() {
		cases := []struct {
			status   int
			class    string
			severity string
		}{
			{http.StatusBadGateway, "fetch_failed", "high"},
			{http.StatusServiceUnavailable, "unavailable", "high"},
			{http.StatusTooManyRequests, "backpressure", "medium"},
			{http.StatusUnprocessableEntity, "malformed", "medium"},
			{http.StatusNotFound, "not_found", "low"},
			{http.StatusInternalServerError, "server_error", "high"},
			{http.StatusBadRequest, "client_error", "low"},
		}
		for _, c := range cases {
			class, severity := classify(c.status)
			So(class, ShouldEqual, c.class)
			So(severity, ShouldEqual, c.severity)
		}
	})
}

func TestMetricsMiddleware(t *testing.T) {
	Convey("Given a handler wrapped in the metrics middleware", t, func() {
		h := MetricsMiddleware(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}, "/messages")

		Convey("The handler's status passes through", func() {
			rec := httptest.NewRecorder()
			h(rec, httptest.NewRequest(http.MethodPost, "/messages", http.NoBody))
			So(rec.Code, ShouldEqual, http.StatusTooManyRequests)
		})
	})
}
