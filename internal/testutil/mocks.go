// Package testutil provides shared test utilities, mocks, and fixtures
// for testing the guestbook-board application.
package testutil

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"guestbook-board/internal/domain"
)

// Common test errors
var (
	ErrMockNotImplemented = errors.New("mock function not implemented")
	ErrMockUnavailable    = fmt.Errorf("mock: %w", domain.ErrStoreUnavailable)
)

// MockMessageRepository implements domain.MessageRepository for testing.
// Without overrides it behaves like the Postgres store: batches are
// all-or-nothing and an unknown id fails the whole batch.
type MockMessageRepository struct {
	mu     sync.RWMutex
	nextID int64

	// Function overrides - set these to customize behavior
	ListFunc           func(ctx context.Context) ([]*domain.Message, error)
	StatsFunc          func(ctx context.Context) (domain.BoardStats, error)
	CreateFunc         func(ctx context.Context, message *domain.Message, place domain.PlaceFunc) error
	UpdateContentFunc  func(ctx context.Context, id int64, title, content *string) (*domain.Message, error)
	ApplyOrderFunc     func(ctx context.Context, updates []domain.OrderUpdate) error
	ApplyPositionsFunc func(ctx context.Context, updates []domain.PositionUpdate) error

	// In-memory storage for simple tests
	Messages map[int64]*domain.Message

	// Call counters for store-untouched assertions
	WriteCalls int
}

// NewMockMessageRepository creates a new MockMessageRepository with initialized maps
func NewMockMessageRepository() *MockMessageRepository {
	return &MockMessageRepository{
		Messages: make(map[int64]*domain.Message),
	}
}

// Seed stores messages as-is, keeping their ids
func (m *MockMessageRepository) Seed(messages ...*domain.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Messages == nil {
		m.Messages = make(map[int64]*domain.Message)
	}
	for _, msg := range messages {
		m.Messages[msg.ID] = msg
		if msg.ID > m.nextID {
			m.nextID = msg.ID
		}
	}
}

func (m *MockMessageRepository) List(ctx context.Context) ([]*domain.Message, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	messages := make([]*domain.Message, 0, len(m.Messages))
	for _, msg := range m.Messages {
		copied := *msg
		messages = append(messages, &copied)
	}

	// order_index ASC, created_at DESC, id DESC
	sort.Slice(messages, func(i, j int) bool {
		a, b := messages[i], messages[j]
		if a.OrderIndex != b.OrderIndex {
			return a.OrderIndex < b.OrderIndex
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
	return messages, nil
}

func (m *MockMessageRepository) Stats(ctx context.Context) (domain.BoardStats, error) {
	if m.StatsFunc != nil {
		return m.StatsFunc(ctx)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.statsLocked(), nil
}

func (m *MockMessageRepository) statsLocked() domain.BoardStats {
	stats := domain.BoardStats{Count: len(m.Messages), MaxOrderIndex: -1}
	for _, msg := range m.Messages {
		if msg.OrderIndex > stats.MaxOrderIndex {
			stats.MaxOrderIndex = msg.OrderIndex
		}
	}
	return stats
}

// Create holds the write lock while placing, like the Postgres placement lock
func (m *MockMessageRepository) Create(ctx context.Context, message *domain.Message, place domain.PlaceFunc) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, message, place)
	}
	if message.Content == "" {
		return domain.ErrContentRequired
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Messages == nil {
		m.Messages = make(map[int64]*domain.Message)
	}
	if place != nil {
		p, err := place(m.statsLocked())
		if err != nil {
			return err
		}
		message.OrderIndex, message.PosX, message.PosY = p.OrderIndex, p.PosX, p.PosY
	}
	m.WriteCalls++
	m.nextID++
	now := time.Now()

	message.ID = m.nextID
	message.CreatedAt = now
	message.UpdatedAt = now

	copied := *message
	m.Messages[message.ID] = &copied
	return nil
}

func (m *MockMessageRepository) UpdateContent(ctx context.Context, id int64, title, content *string) (*domain.Message, error) {
	if m.UpdateContentFunc != nil {
		return m.UpdateContentFunc(ctx, id, title, content)
	}
	if title == nil && content == nil {
		return nil, domain.ErrNothingToUpdate
	}
	if content != nil && *content == "" {
		return nil, domain.ErrContentRequired
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.WriteCalls++
	msg, ok := m.Messages[id]
	if !ok {
		return nil, fmt.Errorf("message %d: %w", id, domain.ErrNotFound)
	}
	if title != nil {
		msg.Title = *title
	}
	if content != nil {
		msg.Content = *content
	}
	msg.UpdatedAt = time.Now()

	copied := *msg
	return &copied, nil
}

func (m *MockMessageRepository) ApplyOrder(ctx context.Context, updates []domain.OrderUpdate) error {
	if m.ApplyOrderFunc != nil {
		return m.ApplyOrderFunc(ctx, updates)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.WriteCalls++
	for _, u := range updates {
		if _, ok := m.Messages[u.ID]; !ok {
			return fmt.Errorf("message %d: %w", u.ID, domain.ErrNotFound)
		}
	}
	for _, u := range updates {
		m.Messages[u.ID].OrderIndex = u.OrderIndex
	}
	return nil
}

func (m *MockMessageRepository) ApplyPositions(ctx context.Context, updates []domain.PositionUpdate) error {
	if m.ApplyPositionsFunc != nil {
		return m.ApplyPositionsFunc(ctx, updates)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.WriteCalls++
	for _, u := range updates {
		if _, ok := m.Messages[u.ID]; !ok {
			return fmt.Errorf("message %d: %w", u.ID, domain.ErrNotFound)
		}
	}
	for _, u := range updates {
		m.Messages[u.ID].PosX = u.PosX
		m.Messages[u.ID].PosY = u.PosY
	}
	return nil
}

// Get returns a copy of a stored message
func (m *MockMessageRepository) Get(id int64) (domain.Message, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	msg, ok := m.Messages[id]
	if !ok {
		return domain.Message{}, false
	}
	return *msg, true
}

// MockEventPublisher records published events
type MockEventPublisher struct {
	mu sync.Mutex

	PublishFunc func(ctx context.Context, event *domain.BoardEvent) error

	Events []*domain.BoardEvent
}

// NewMockEventPublisher creates a new MockEventPublisher
func NewMockEventPublisher() *MockEventPublisher {
	return &MockEventPublisher{}
}

func (m *MockEventPublisher) Publish(ctx context.Context, event *domain.BoardEvent) error {
	m.mu.Lock()
	m.Events = append(m.Events, event)
	m.mu.Unlock()

	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, event)
	}
	return nil
}

// Types returns the types of the recorded events in publish order
func (m *MockEventPublisher) Types() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	types := make([]string, len(m.Events))
	for i, e := range m.Events {
		types[i] = e.Type
	}
	return types
}
