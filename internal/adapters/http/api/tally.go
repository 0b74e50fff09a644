package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/okian/tallybot/internal/app"
	"github.com/okian/tallybot/internal/domain/model"
	"github.com/okian/tallybot/internal/validator"
)

// TallyDependencies answers synchronous tally queries.
type TallyDependencies interface {
	Query(ctx context.Context, req app.QueryRequest) (app.Reply, error)
}

// TallyHandler serves synchronous tallies.
type TallyHandler struct {
	deps      TallyDependencies
	validator *validator.Validator
}

// NewTallyHandler creates a new tally handler.
func NewTallyHandler(deps TallyDependencies, v *validator.Validator) *TallyHandler {
	return &TallyHandler{deps: deps, validator: v}
}

// HandlePostTally handles POST /tally.
func (h *TallyHandler) HandlePostTally(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_tally"
	var req app.QueryRequest
	if !decodeValid(w, r, h.validator, op, &req) {
		return
	}

	reply, err := h.deps.Query(r.Context(), req)
	if err != nil {
		status, code := queryStatus(err)
		writeJSON(w, status, errorResponse{Code: code, Message: reply.Text})
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

// queryStatus maps a query failure to its HTTP status and error code.
func queryStatus(err error) (int, string) {
	switch {
	case errors.Is(err, app.ErrUnknownStream):
		return http.StatusNotFound, "unknown_stream"
	case errors.Is(err, app.ErrUnknownRequester):
		return http.StatusNotFound, "unknown_requester"
	case errors.Is(err, model.ErrMalformedMessage):
		return http.StatusUnprocessableEntity, "malformed_message"
	case errors.Is(err, app.ErrFetchFailed):
		return http.StatusBadGateway, "fetch_failed"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
