package domain

import (
	"context"
	"time"
)

const (
	EventMessageCreated  = "message.created"
	EventMessageEdited   = "message.edited"
	EventBoardRearranged = "board.rearranged"
)

// BoardEvent describes a committed change to the board
type BoardEvent struct {
	ID         string            `json:"id"`
	Type       string            `json:"type"`
	Mode       string            `json:"mode"`
	Message    *Message          `json:"message,omitempty"`
	Items      []ArrangementItem `json:"items,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// EventPublisher hands board events to downstream consumers
type EventPublisher interface {
	Publish(ctx context.Context, event *BoardEvent) error
}
