package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/okian/tallybot/internal/app"
	"github.com/okian/tallybot/internal/domain/model"
	"github.com/okian/tallybot/internal/validator"
)

// MessageDependencies accepts inbound bot messages.
type MessageDependencies interface {
	Enqueue(ctx context.Context, in model.Inbound) error
}

// MessagesHandler is the bot inbox.
type MessagesHandler struct {
	deps      MessageDependencies
	validator *validator.Validator
}

// NewMessagesHandler creates a new inbox handler.
func NewMessagesHandler(deps MessageDependencies, v *validator.Validator) *MessagesHandler {
	return &MessagesHandler{deps: deps, validator: v}
}

// HandlePostMessage handles POST /messages. The message is answered
// asynchronously; repeats of a message id are acknowledged as duplicates.
func (h *MessagesHandler) HandlePostMessage(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_message"
	var in model.Inbound
	if !decodeValid(w, r, h.validator, op, &in) {
		return
	}

	err := h.deps.Enqueue(r.Context(), in)
	switch {
	case err == nil:
		writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted"})
	case errors.Is(err, app.ErrDuplicate):
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", Duplicate: true})
	case errors.Is(err, app.ErrQueueFull):
		writeError(w, http.StatusTooManyRequests, "backpressure", WrapKind(op, ErrBackpressure, err))
	case errors.Is(err, app.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "unavailable", WrapKind(op, ErrUnavailable, err))
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
	}
}
