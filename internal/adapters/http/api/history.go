package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/okian/tallybot/internal/adapters/history"
)

// HistoryDependencies exposes the conversation store.
type HistoryDependencies interface {
	History(ctx context.Context, requesterID int64) ([]history.Entry, error)
	ClearHistory(ctx context.Context, requesterID int64) error
}

// HistoryHandler serves a requester's conversation with the bot.
type HistoryHandler struct {
	deps HistoryDependencies
}

// NewHistoryHandler creates a new history handler.
func NewHistoryHandler(deps HistoryDependencies) *HistoryHandler {
	return &HistoryHandler{deps: deps}
}

type historyResponse struct {
	RequesterID int64           `json:"requester_id"`
	Entries     []history.Entry `json:"entries"`
}

func requesterID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("requester"), 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrBadRequest
	}
	return id, nil
}

// HandleGetHistory handles GET /history/{requester}.
func (h *HistoryHandler) HandleGetHistory(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_history"
	id, err := requesterID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, err))
		return
	}
	entries, err := h.deps.History(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	if entries == nil {
		entries = []history.Entry{}
	}
	writeJSON(w, http.StatusOK, historyResponse{RequesterID: id, Entries: entries})
}

// HandleDeleteHistory handles DELETE /history/{requester}.
func (h *HistoryHandler) HandleDeleteHistory(w http.ResponseWriter, r *http.Request) {
	const op = "api.delete_history"
	id, err := requesterID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, err))
		return
	}
	if err := h.deps.ClearHistory(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
