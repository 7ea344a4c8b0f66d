package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"
	"time"

	"guestbook-board/internal/observability"

	"golang.org/x/sync/singleflight"
)

const (
	schemaKey         = "guestbook_messages"
	schemaInitTimeout = 10 * time.Second
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS guestbook_messages (
		id SERIAL PRIMARY KEY,
		title TEXT NOT NULL,
		content TEXT NOT NULL,
		order_index INTEGER NOT NULL DEFAULT 0,
		pos_x INTEGER NOT NULL DEFAULT 0,
		pos_y INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS guestbook_messages_order_idx
		ON guestbook_messages (order_index ASC, created_at DESC)`,
}

// SchemaInitializer creates the guestbook table on first use.
//
// Concurrent callers during a cold start share one in-flight attempt. Once an
// attempt succeeds the result is latched for the lifetime of the process; a
// failed attempt is not latched, so the next caller tries again.
type SchemaInitializer struct {
	db    *sql.DB
	group singleflight.Group
	ready atomic.Bool
}

// NewSchemaInitializer creates a new schema initializer
func NewSchemaInitializer(db *sql.DB) *SchemaInitializer {
	return &SchemaInitializer{db: db}
}

// Ensure blocks until the schema exists or ctx is done
func (s *SchemaInitializer) Ensure(ctx context.Context) error {
	if s.ready.Load() {
		return nil
	}

	ch := s.group.DoChan(schemaKey, func() (interface{}, error) {
		return nil, s.initialize(ctx)
	})

	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		return res.Err
	}
}

// Ready reports whether the schema has been created by this process
func (s *SchemaInitializer) Ready() bool {
	return s.ready.Load()
}

func (s *SchemaInitializer) initialize(ctx context.Context) error {
	if s.ready.Load() {
		return nil
	}

	// Shared by every waiter, so it must outlive the caller that started it.
	initCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), schemaInitTimeout)
	defer cancel()

	start := time.Now()
	for _, stmt := range schemaStatements {
		if _, err := s.db.ExecContext(initCtx, stmt); err != nil && !IsConcurrentDDL(err) {
			observability.SchemaInitializations.WithLabelValues("failure").Inc()
			return fmt.Errorf("failed to initialize schema: %w", classify(err))
		}
	}
	observability.DBQueryDuration.WithLabelValues("ensure_schema", schemaKey).Observe(time.Since(start).Seconds())

	s.ready.Store(true)
	observability.SchemaInitializations.WithLabelValues("success").Inc()
	observability.FromContext(ctx).Info("guestbook schema ready")
	return nil
}
