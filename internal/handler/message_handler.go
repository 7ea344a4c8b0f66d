package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"guestbook-board/internal/arrangement"
	"guestbook-board/internal/domain"
	"guestbook-board/internal/observability"
)

const maxBodyBytes = 1 << 20

// BoardService is the message service as seen by the HTTP layer
type BoardService interface {
	Mode() arrangement.Mode
	List(ctx context.Context) ([]*domain.Message, error)
	Create(ctx context.Context, title, content string) (*domain.Message, error)
	Edit(ctx context.Context, id int64, title, content *string) (*domain.Message, error)
	Rearrange(ctx context.Context, items []domain.ArrangementItem) (int, error)
}

// MessageHandler handles the /api/messages endpoints
type MessageHandler struct {
	board BoardService
}

// NewMessageHandler creates a new message handler
func NewMessageHandler(board BoardService) *MessageHandler {
	return &MessageHandler{board: board}
}

// CreateMessageRequest represents message creation request
type CreateMessageRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// EditMessageRequest represents a content edit. Omitted fields are kept.
type EditMessageRequest struct {
	ID      *int64  `json:"id"`
	Title   *string `json:"title"`
	Content *string `json:"content"`
}

// RearrangeRequest carries a list reorder or a batch of spatial moves
type RearrangeRequest struct {
	Order     []domain.ArrangementItem `json:"order"`
	Positions []domain.ArrangementItem `json:"positions"`
}

// List returns the whole board in display order
func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	messages, err := h.board.List(r.Context())
	if err != nil {
		writeError(r.Context(), w, "list messages", err, "Failed to load messages")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"messages": messages,
		"mode":     h.board.Mode(),
	})
}

// Create posts a new message
func (h *MessageHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateMessageRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid request body", "INVALID_BODY")
		return
	}

	message, err := h.board.Create(r.Context(), req.Title, req.Content)
	if err != nil {
		writeError(r.Context(), w, "create message", err, "Failed to create message")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message": message,
	})
}

// Edit updates the title and/or content of a message
func (h *MessageHandler) Edit(w http.ResponseWriter, r *http.Request) {
	var req EditMessageRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid request body", "INVALID_BODY")
		return
	}

	if req.ID == nil || *req.ID <= 0 {
		writeJSONError(w, http.StatusBadRequest, "Message id is required", "ID_REQUIRED")
		return
	}

	message, err := h.board.Edit(r.Context(), *req.ID, req.Title, req.Content)
	if err != nil {
		writeError(r.Context(), w, "edit message", err, "Failed to update message")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": message,
	})
}

// Rearrange applies a reorder (list mode) or a batch of moves (spatial mode)
func (h *MessageHandler) Rearrange(w http.ResponseWriter, r *http.Request) {
	var req RearrangeRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(r.Context(), w, "rearrange", domain.ErrInvalidBatchShape, "")
		return
	}

	items := req.Order
	if h.board.Mode() == arrangement.ModeSpatial || items == nil {
		items = req.Positions
	}

	applied, err := h.board.Rearrange(r.Context(), items)
	if err != nil {
		writeError(r.Context(), w, "rearrange", err, "Failed to update the board")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":      true,
		"applied": applied,
	})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(v)
}

// statusFor maps domain errors onto HTTP status codes. Only an unreachable
// store is a server-side condition; the rest are caller errors.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrContentRequired),
		errors.Is(err, domain.ErrNothingToUpdate),
		errors.Is(err, domain.ErrInvalidBatchShape):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrArrangementExhausted):
		return http.StatusConflict
	case errors.Is(err, domain.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func messageFor(err error, fallback string) string {
	switch {
	case errors.Is(err, domain.ErrContentRequired):
		return "Content must not be blank"
	case errors.Is(err, domain.ErrNotFound):
		return "Message not found"
	case errors.Is(err, domain.ErrNothingToUpdate):
		return "Nothing to update"
	case errors.Is(err, domain.ErrInvalidBatchShape):
		return "Invalid arrangement data"
	case errors.Is(err, domain.ErrArrangementExhausted):
		return "The board is out of room for new messages, reorder it first"
	case errors.Is(err, domain.ErrStoreUnavailable):
		return "Message store is unavailable, check the DATABASE_URL setting"
	default:
		return fallback
	}
}

func writeError(ctx context.Context, w http.ResponseWriter, op string, err error, fallback string) {
	status := statusFor(err)
	log := observability.FromContext(ctx)
	if status >= http.StatusInternalServerError {
		log.Error(op+" failed", "error", err.Error())
	} else {
		log.Debug(op+" rejected", "error", err.Error())
	}

	writeJSONError(w, status, messageFor(err, fallback), domain.Code(err))
}

func writeJSONError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, map[string]string{
		"error": message,
		"code":  code,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
