package domain

import "math"

// MaxArrangementValue is the largest value an INTEGER arrangement column holds
const MaxArrangementValue = math.MaxInt32

// ArrangementItem is one entry of a client-submitted rearrangement batch.
// Fields are pointers so that a missing field can be told apart from zero.
type ArrangementItem struct {
	ID         *int64 `json:"id"`
	OrderIndex *int   `json:"order_index,omitempty"`
	PosX       *int   `json:"pos_x,omitempty"`
	PosY       *int   `json:"pos_y,omitempty"`
}

// OrderUpdate reassigns the list position of one message
type OrderUpdate struct {
	ID         int64 `json:"id"`
	OrderIndex int   `json:"order_index"`
}

// PositionUpdate moves one message on the spatial board
type PositionUpdate struct {
	ID   int64 `json:"id"`
	PosX int   `json:"pos_x"`
	PosY int   `json:"pos_y"`
}

// Placement is the arrangement assigned to a new message
type Placement struct {
	OrderIndex int
	PosX       int
	PosY       int
}

// PlaceFunc computes the placement of a new message from the board as it is
// at insert time
type PlaceFunc func(stats BoardStats) (Placement, error)
