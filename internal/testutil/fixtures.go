package testutil

import (
	"fmt"
	"sync/atomic"
	"time"

	"guestbook-board/internal/domain"
)

// Counter for generating unique IDs
var idCounter atomic.Int64

// MessageOptions allows customizing message fixture creation
type MessageOptions struct {
	ID         int64
	Title      string
	Content    string
	OrderIndex int
	PosX       int
	PosY       int
	CreatedAt  time.Time
}

// NewTestMessage creates a test message with sensible defaults
// Pass options to override specific fields
func NewTestMessage(opts ...func(*MessageOptions)) *domain.Message {
	id := idCounter.Add(1)
	o := &MessageOptions{
		ID:      id,
		Title:   fmt.Sprintf("note %d", id),
		Content: "Hello, World!",
	}

	for _, opt := range opts {
		opt(o)
	}

	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now()
	}

	return &domain.Message{
		ID:         o.ID,
		Title:      o.Title,
		Content:    o.Content,
		OrderIndex: o.OrderIndex,
		PosX:       o.PosX,
		PosY:       o.PosY,
		CreatedAt:  o.CreatedAt,
		UpdatedAt:  o.CreatedAt,
	}
}

// Message option functions

// WithMessageID sets the message ID
func WithMessageID(id int64) func(*MessageOptions) {
	return func(o *MessageOptions) {
		o.ID = id
	}
}

// WithTitle sets the message title
func WithTitle(title string) func(*MessageOptions) {
	return func(o *MessageOptions) {
		o.Title = title
	}
}

// WithContent sets the message content
func WithContent(content string) func(*MessageOptions) {
	return func(o *MessageOptions) {
		o.Content = content
	}
}

// WithOrderIndex sets the list position
func WithOrderIndex(index int) func(*MessageOptions) {
	return func(o *MessageOptions) {
		o.OrderIndex = index
	}
}

// WithPosition sets the spatial coordinates
func WithPosition(x, y int) func(*MessageOptions) {
	return func(o *MessageOptions) {
		o.PosX = x
		o.PosY = y
	}
}

// WithMessageCreatedAt sets the message creation time
func WithMessageCreatedAt(t time.Time) func(*MessageOptions) {
	return func(o *MessageOptions) {
		o.CreatedAt = t
	}
}

// Batch creation helpers

// NewTestMessages creates count messages with consecutive order indices
// 0..count-1, each created one second after the previous one
func NewTestMessages(count int) []*domain.Message {
	base := time.Now().Add(-time.Duration(count) * time.Second)
	messages := make([]*domain.Message, count)
	for i := 0; i < count; i++ {
		messages[i] = NewTestMessage(
			WithOrderIndex(i),
			WithMessageCreatedAt(base.Add(time.Duration(i)*time.Second)),
		)
	}
	return messages
}

// OrderItem builds a list-mode arrangement item
func OrderItem(id int64, index int) domain.ArrangementItem {
	return domain.ArrangementItem{ID: &id, OrderIndex: &index}
}

// PositionItem builds a spatial-mode arrangement item
func PositionItem(id int64, x, y int) domain.ArrangementItem {
	return domain.ArrangementItem{ID: &id, PosX: &x, PosY: &y}
}

// Ptr returns a pointer to v
func Ptr[T any](v T) *T {
	return &v
}

// ResetIDCounter resets the ID counter (useful for deterministic tests)
func ResetIDCounter() {
	idCounter.Store(0)
}
