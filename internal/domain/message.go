package domain

import (
	"context"
	"time"
)

const (
	// DefaultTitle replaces a blank title
	DefaultTitle = "untitled"

	MaxTitleLength   = 120
	MaxContentLength = 2000
)

// Message represents a note posted on the guestbook board
type Message struct {
	ID         int64     `json:"id"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	OrderIndex int       `json:"order_index"`
	PosX       int       `json:"pos_x"`
	PosY       int       `json:"pos_y"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// BoardStats summarises the board for placing a new message
type BoardStats struct {
	Count         int
	MaxOrderIndex int
}

// HasMessages reports whether the board holds at least one message
func (s BoardStats) HasMessages() bool {
	return s.Count > 0
}

// MessageRepository defines the interface for message data access
type MessageRepository interface {
	List(ctx context.Context) ([]*Message, error)
	Stats(ctx context.Context) (BoardStats, error)
	// Create inserts message. A non-nil place is called with the board stats
	// inside the insert transaction, serialised against other creates.
	Create(ctx context.Context, message *Message, place PlaceFunc) error
	UpdateContent(ctx context.Context, id int64, title, content *string) (*Message, error)
	ApplyOrder(ctx context.Context, updates []OrderUpdate) error
	ApplyPositions(ctx context.Context, updates []PositionUpdate) error
}
