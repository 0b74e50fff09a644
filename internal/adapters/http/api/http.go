// Package api serves the bot inbox, synchronous tallies, conversation
// history and service health over HTTP.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/okian/tallybot/internal/adapters/history"
	"github.com/okian/tallybot/internal/app"
	"github.com/okian/tallybot/internal/domain/model"
	"github.com/okian/tallybot/internal/validator"
)

// Dependencies required by HTTP handlers.
type Dependencies interface {
	// Enqueue accepts an inbound bot message for asynchronous handling.
	Enqueue(ctx context.Context, in model.Inbound) error

	Query(ctx context.Context, req app.QueryRequest) (app.Reply, error)

	History(ctx context.Context, requesterID int64) ([]history.Entry, error)
	ClearHistory(ctx context.Context, requesterID int64) error
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	messagesHandler *MessagesHandler
	tallyHandler    *TallyHandler
	historyHandler  *HistoryHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	v := validator.New()
	return &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(statsProvider),
		messagesHandler: NewMessagesHandler(deps, v),
		tallyHandler:    NewTallyHandler(deps, v),
		historyHandler:  NewHistoryHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("POST /messages", MetricsMiddleware(s.messagesHandler.HandlePostMessage, "messages"))
	mux.HandleFunc("POST /tally", MetricsMiddleware(s.tallyHandler.HandlePostTally, "tally"))
	mux.HandleFunc("GET /history/{requester}", MetricsMiddleware(s.historyHandler.HandleGetHistory, "history"))
	mux.HandleFunc("DELETE /history/{requester}", MetricsMiddleware(s.historyHandler.HandleDeleteHistory, "history"))
}

type ackResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

type errorResponse struct {
	Code    string                      `json:"code"`
	Message string                      `json:"message"`
	Fields  []validator.ValidationError `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// decodeValid decodes a JSON body into out and validates its struct tags.
// It writes the 400 response itself and reports whether to continue.
func decodeValid(w http.ResponseWriter, r *http.Request, v *validator.Validator, op string, out any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return false
	}
	if errs := v.ValidateStruct(out); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Code:    "bad_request",
			Message: WrapKind(op, ErrBadRequest, validator.Err(errs)).Error(),
			Fields:  errs,
		})
		return false
	}
	return true
}
