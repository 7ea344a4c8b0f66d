// Package arrangement decides where new messages land on the board and
// applies client-submitted rearrangements.
//
// The board runs in one of two modes. In list mode every message carries an
// order index and the board is a vertical list. In spatial mode messages carry
// pixel coordinates in the 32-bit integer range; the order index is kept only as a
// tiebreaker for iteration.
//
// Rearrangements are last-write-wins: concurrent batches from different
// clients are not merged or rejected, the last committed write per row stays.
// Submitted indices are persisted as given, without density or uniqueness
// checks; clients send a dense 0..N-1 sequence computed from their local view.
package arrangement

import (
	"context"
	"fmt"
	"strings"

	"guestbook-board/internal/domain"
	"guestbook-board/internal/observability"

	"github.com/samber/lo"
)

// Mode selects how a board is arranged
type Mode string

const (
	ModeList    Mode = "list"
	ModeSpatial Mode = "spatial"
)

// Grid used for the initial spatial placement
const (
	GridColumns = 3
	GridOrigin  = 32
	GridColumnW = 260
	GridRowH    = 180
)

// ParseMode converts a configuration value into a Mode
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeList, "":
		return ModeList, nil
	case ModeSpatial:
		return ModeSpatial, nil
	default:
		return "", fmt.Errorf("unknown arrangement mode %q (want %q or %q)", s, ModeList, ModeSpatial)
	}
}

// Store is the subset of the message repository the engine writes through
type Store interface {
	ApplyOrder(ctx context.Context, updates []domain.OrderUpdate) error
	ApplyPositions(ctx context.Context, updates []domain.PositionUpdate) error
}

// Engine places and rearranges messages for one arrangement mode
type Engine struct {
	mode  Mode
	store Store
}

// NewEngine creates a new arrangement engine
func NewEngine(mode Mode, store Store) *Engine {
	return &Engine{mode: mode, store: store}
}

// Mode returns the arrangement mode of the engine
func (e *Engine) Mode() Mode {
	return e.mode
}

// InitialPlacement computes the arrangement of a message about to be created.
// New messages append after the highest order index, so existing indices
// never shift. The grid slot follows the current message count.
//
// It fails with domain.ErrArrangementExhausted when the next index or slot
// does not fit the stored column range; reordering the board frees it.
func (e *Engine) InitialPlacement(stats domain.BoardStats) (domain.Placement, error) {
	next := 0
	if stats.HasMessages() {
		if stats.MaxOrderIndex >= domain.MaxArrangementValue {
			return domain.Placement{}, fmt.Errorf("order index %d is at the limit: %w",
				stats.MaxOrderIndex, domain.ErrArrangementExhausted)
		}
		next = stats.MaxOrderIndex + 1
	}

	x, y := GridSlot(stats.Count)
	if y > domain.MaxArrangementValue {
		return domain.Placement{}, fmt.Errorf("grid slot %d is out of range: %w",
			stats.Count, domain.ErrArrangementExhausted)
	}
	return domain.Placement{
		OrderIndex: next,
		PosX:       x,
		PosY:       y,
	}, nil
}

// GridSlot returns the pixel offset of the k-th slot (0-indexed) of the grid
func GridSlot(k int) (int, int) {
	if k < 0 {
		k = 0
	}
	col := k % GridColumns
	row := k / GridColumns
	return GridOrigin + col*GridColumnW, GridOrigin + row*GridRowH
}

// Rearrange applies a validated batch in submission order and returns the
// number of rows written. Items must carry the fields of the engine's mode.
func (e *Engine) Rearrange(ctx context.Context, items []domain.ArrangementItem) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}

	var err error
	switch e.mode {
	case ModeSpatial:
		err = e.store.ApplyPositions(ctx, lo.Map(items, func(item domain.ArrangementItem, _ int) domain.PositionUpdate {
			return domain.PositionUpdate{
				ID:   lo.FromPtr(item.ID),
				PosX: lo.FromPtr(item.PosX),
				PosY: lo.FromPtr(item.PosY),
			}
		}))
	default:
		err = e.store.ApplyOrder(ctx, lo.Map(items, func(item domain.ArrangementItem, _ int) domain.OrderUpdate {
			return domain.OrderUpdate{
				ID:         lo.FromPtr(item.ID),
				OrderIndex: lo.FromPtr(item.OrderIndex),
			}
		}))
	}
	if err != nil {
		return 0, fmt.Errorf("failed to rearrange board: %w", err)
	}

	observability.ArrangementUpdates.WithLabelValues(string(e.mode)).Add(float64(len(items)))
	return len(items), nil
}
