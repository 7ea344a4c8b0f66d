package service

import (
	"context"
	"fmt"
	"time"

	"guestbook-board/internal/arrangement"
	"guestbook-board/internal/domain"
	"guestbook-board/internal/observability"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
)

const publishTimeout = 2 * time.Second

var validate = validator.New()

// Arrangement values must fit the INTEGER columns
type orderItem struct {
	ID         *int64 `validate:"required"`
	OrderIndex *int   `validate:"required,min=-2147483648,max=2147483647"`
}

type positionItem struct {
	ID   *int64 `validate:"required"`
	PosX *int   `validate:"required,min=-2147483648,max=2147483647"`
	PosY *int   `validate:"required,min=-2147483648,max=2147483647"`
}

type orderBatch struct {
	Items []orderItem `validate:"dive"`
}

type positionBatch struct {
	Items []positionItem `validate:"dive"`
}

// BoardService validates board operations and orchestrates the store,
// the arrangement engine and the event publisher
type BoardService struct {
	repo   domain.MessageRepository
	engine *arrangement.Engine
	events domain.EventPublisher
}

// NewBoardService creates a new board service. events may be nil.
func NewBoardService(repo domain.MessageRepository, engine *arrangement.Engine, events domain.EventPublisher) *BoardService {
	return &BoardService{
		repo:   repo,
		engine: engine,
		events: events,
	}
}

// Mode returns the arrangement mode of the board
func (s *BoardService) Mode() arrangement.Mode {
	return s.engine.Mode()
}

// List returns every message in board order
func (s *BoardService) List(ctx context.Context) ([]*domain.Message, error) {
	return s.repo.List(ctx)
}

// Create posts a new message at the engine's initial placement
func (s *BoardService) Create(ctx context.Context, title, content string) (*domain.Message, error) {
	content = sanitizeContent(content)
	if content == "" {
		return nil, domain.ErrContentRequired
	}

	msg := &domain.Message{
		Title:   sanitizeTitle(title),
		Content: content,
	}
	if err := s.repo.Create(ctx, msg, s.engine.InitialPlacement); err != nil {
		return nil, err
	}

	observability.MessagesCreated.Inc()
	observability.FromContext(ctx).Info("message created",
		"message_id", msg.ID,
		"order_index", msg.OrderIndex)

	s.publish(ctx, &domain.BoardEvent{Type: domain.EventMessageCreated, Message: msg})
	return msg, nil
}

// Edit updates the title and/or content of a message. A nil field is left
// unchanged.
func (s *BoardService) Edit(ctx context.Context, id int64, title, content *string) (*domain.Message, error) {
	if content != nil {
		content = lo.ToPtr(sanitizeContent(*content))
		if *content == "" {
			return nil, domain.ErrContentRequired
		}
	}
	if title != nil {
		title = lo.ToPtr(sanitizeTitle(*title))
	}
	if title == nil && content == nil {
		return nil, domain.ErrNothingToUpdate
	}

	ctx = observability.WithMessageID(ctx, id)
	msg, err := s.repo.UpdateContent(ctx, id, title, content)
	if err != nil {
		return nil, err
	}

	observability.MessagesEdited.Inc()
	observability.FromContext(ctx).Info("message edited")

	s.publish(ctx, &domain.BoardEvent{Type: domain.EventMessageEdited, Message: msg})
	return msg, nil
}

// Rearrange validates the whole batch for the board's mode, then applies it.
// A malformed item rejects the batch before anything is written.
func (s *BoardService) Rearrange(ctx context.Context, items []domain.ArrangementItem) (int, error) {
	mode := string(s.engine.Mode())

	if err := s.validateBatch(items); err != nil {
		observability.RearrangeBatches.WithLabelValues(mode, "rejected").Inc()
		return 0, err
	}

	applied, err := s.engine.Rearrange(ctx, items)
	if err != nil {
		observability.RearrangeBatches.WithLabelValues(mode, "failed").Inc()
		observability.FromContext(ctx).Warn("rearrange failed",
			"items", len(items),
			"error", err.Error())
		return 0, err
	}

	observability.RearrangeBatches.WithLabelValues(mode, "applied").Inc()
	if applied > 0 {
		s.publish(ctx, &domain.BoardEvent{Type: domain.EventBoardRearranged, Items: items})
	}
	return applied, nil
}

func (s *BoardService) validateBatch(items []domain.ArrangementItem) error {
	if items == nil {
		return fmt.Errorf("%w: missing items", domain.ErrInvalidBatchShape)
	}

	var batch interface{}
	switch s.engine.Mode() {
	case arrangement.ModeSpatial:
		batch = positionBatch{Items: lo.Map(items, func(item domain.ArrangementItem, _ int) positionItem {
			return positionItem{ID: item.ID, PosX: item.PosX, PosY: item.PosY}
		})}
	default:
		batch = orderBatch{Items: lo.Map(items, func(item domain.ArrangementItem, _ int) orderItem {
			return orderItem{ID: item.ID, OrderIndex: item.OrderIndex}
		})}
	}

	if err := validate.Struct(batch); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidBatchShape, err)
	}
	return nil
}

// publish is best-effort: the change is already committed, so a broker
// failure is logged and counted but never returned
func (s *BoardService) publish(ctx context.Context, event *domain.BoardEvent) {
	if s.events == nil {
		return
	}

	event.Mode = string(s.engine.Mode())
	event.OccurredAt = time.Now().UTC()

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := s.events.Publish(pubCtx, event); err != nil {
		observability.EventsPublished.WithLabelValues(event.Type, "failure").Inc()
		observability.FromContext(ctx).Warn("failed to publish board event",
			"type", event.Type,
			"error", err.Error())
		return
	}
	observability.EventsPublished.WithLabelValues(event.Type, "success").Inc()
}
