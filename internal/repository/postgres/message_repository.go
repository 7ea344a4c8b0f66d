package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"guestbook-board/internal/domain"
	"guestbook-board/internal/observability"
)

const messagesTable = "guestbook_messages"

// placementLockKey serialises placement of new messages across processes
const placementLockKey int64 = 0x6775657374626f6b

// queryer is satisfied by both *sql.DB and *sql.Tx
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

const (
	listMessagesQuery = `
		SELECT id, title, content, order_index, pos_x, pos_y, created_at, updated_at
		FROM guestbook_messages
		ORDER BY order_index ASC, created_at DESC, id DESC
	`
	boardStatsQuery = `
		SELECT COUNT(*), COALESCE(MAX(order_index), -1)
		FROM guestbook_messages
	`
	lockPlacementQuery = `SELECT pg_advisory_xact_lock($1)`
	createMessageQuery = `
		INSERT INTO guestbook_messages (title, content, order_index, pos_x, pos_y)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`
	updateContentQuery = `
		UPDATE guestbook_messages
		SET title = COALESCE($1, title),
			content = COALESCE($2, content),
			updated_at = NOW()
		WHERE id = $3
		RETURNING id, title, content, order_index, pos_x, pos_y, created_at, updated_at
	`
	updateOrderQuery = `
		UPDATE guestbook_messages
		SET order_index = $1, updated_at = NOW()
		WHERE id = $2
	`
	updatePositionQuery = `
		UPDATE guestbook_messages
		SET pos_x = $1, pos_y = $2, updated_at = NOW()
		WHERE id = $3
	`
)

// MessageRepository implements domain.MessageRepository for PostgreSQL
type MessageRepository struct {
	db     *sql.DB
	schema *SchemaInitializer
	tx     *TxManager
}

// NewMessageRepository creates a new PostgreSQL message repository.
// The table is created lazily on the first call that needs it.
func NewMessageRepository(db *sql.DB) *MessageRepository {
	return &MessageRepository{
		db:     db,
		schema: NewSchemaInitializer(db),
		tx:     NewTxManager(db),
	}
}

// List returns every message in board order
func (r *MessageRepository) List(ctx context.Context) ([]*domain.Message, error) {
	if err := r.schema.Ensure(ctx); err != nil {
		return nil, err
	}
	defer observeQuery("list", time.Now())

	rows, err := r.db.QueryContext(ctx, listMessagesQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", classify(err))
	}
	defer rows.Close()

	return collectMessages(rows)
}

// messageRows is the subset of *sql.Rows used to read a message listing
type messageRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

func collectMessages(rows messageRows) ([]*domain.Message, error) {
	messages := make([]*domain.Message, 0)
	for rows.Next() {
		msg := &domain.Message{}
		err := rows.Scan(
			&msg.ID,
			&msg.Title,
			&msg.Content,
			&msg.OrderIndex,
			&msg.PosX,
			&msg.PosY,
			&msg.CreatedAt,
			&msg.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", classify(err))
		}
		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", classify(err))
	}

	return messages, nil
}

// Stats returns the message count and the highest order index (-1 when empty)
func (r *MessageRepository) Stats(ctx context.Context) (domain.BoardStats, error) {
	var stats domain.BoardStats
	if err := r.schema.Ensure(ctx); err != nil {
		return stats, err
	}
	defer observeQuery("stats", time.Now())

	return readStats(ctx, r.db)
}

func readStats(ctx context.Context, q queryer) (domain.BoardStats, error) {
	var stats domain.BoardStats
	if err := q.QueryRowContext(ctx, boardStatsQuery).Scan(&stats.Count, &stats.MaxOrderIndex); err != nil {
		return stats, fmt.Errorf("failed to read board stats: %w", classify(err))
	}
	return stats, nil
}

// Create inserts a new message and fills in its id and timestamps.
//
// When place is set, the board stats are read and the placement is computed
// inside the insert transaction while holding a transaction-scoped advisory
// lock, so concurrent creates never share an order index or grid slot.
func (r *MessageRepository) Create(ctx context.Context, message *domain.Message, place domain.PlaceFunc) error {
	if strings.TrimSpace(message.Content) == "" {
		return domain.ErrContentRequired
	}
	if err := r.schema.Ensure(ctx); err != nil {
		return err
	}
	defer observeQuery("create", time.Now())

	return r.tx.WithTx(ctx, func(tx *sql.Tx) error {
		if place != nil {
			if _, err := tx.ExecContext(ctx, lockPlacementQuery, placementLockKey); err != nil {
				return fmt.Errorf("failed to lock placement: %w", classify(err))
			}
			stats, err := readStats(ctx, tx)
			if err != nil {
				return err
			}
			p, err := place(stats)
			if err != nil {
				return err
			}
			message.OrderIndex, message.PosX, message.PosY = p.OrderIndex, p.PosX, p.PosY
		}

		err := tx.QueryRowContext(ctx, createMessageQuery,
			message.Title,
			message.Content,
			message.OrderIndex,
			message.PosX,
			message.PosY,
		).Scan(&message.ID, &message.CreatedAt, &message.UpdatedAt)

		if IsOutOfRange(err) {
			return fmt.Errorf("failed to create message: %w: %w", domain.ErrArrangementExhausted, err)
		}
		if err != nil {
			return fmt.Errorf("failed to create message: %w", classify(err))
		}
		return nil
	})
}

// UpdateContent overwrites the title and/or content of a message. A nil field
// keeps its stored value.
func (r *MessageRepository) UpdateContent(ctx context.Context, id int64, title, content *string) (*domain.Message, error) {
	if content != nil && strings.TrimSpace(*content) == "" {
		return nil, domain.ErrContentRequired
	}
	if title == nil && content == nil {
		return nil, domain.ErrNothingToUpdate
	}
	if err := r.schema.Ensure(ctx); err != nil {
		return nil, err
	}
	defer observeQuery("update_content", time.Now())

	msg := &domain.Message{}
	err := r.db.QueryRowContext(ctx, updateContentQuery,
		nullString(title),
		nullString(content),
		id,
	).Scan(
		&msg.ID,
		&msg.Title,
		&msg.Content,
		&msg.OrderIndex,
		&msg.PosX,
		&msg.PosY,
		&msg.CreatedAt,
		&msg.UpdatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("message %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update message: %w", classify(err))
	}
	return msg, nil
}

// ApplyOrder writes every order index of the batch in one transaction.
// An unknown id aborts the whole batch with domain.ErrNotFound.
func (r *MessageRepository) ApplyOrder(ctx context.Context, updates []domain.OrderUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	if err := r.schema.Ensure(ctx); err != nil {
		return err
	}
	defer observeQuery("apply_order", time.Now())

	return r.tx.WithTx(ctx, func(tx *sql.Tx) error {
		for _, u := range updates {
			res, err := tx.ExecContext(ctx, updateOrderQuery, u.OrderIndex, u.ID)
			if IsOutOfRange(err) {
				return fmt.Errorf("message %d order index %d: %w", u.ID, u.OrderIndex, domain.ErrInvalidBatchShape)
			}
			if err != nil {
				return fmt.Errorf("failed to reorder message %d: %w", u.ID, classify(err))
			}
			if err := requireRow(res, u.ID); err != nil {
				return err
			}
		}
		return nil
	})
}

// ApplyPositions writes every coordinate pair of the batch in one transaction.
// An unknown id aborts the whole batch with domain.ErrNotFound.
func (r *MessageRepository) ApplyPositions(ctx context.Context, updates []domain.PositionUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	if err := r.schema.Ensure(ctx); err != nil {
		return err
	}
	defer observeQuery("apply_positions", time.Now())

	return r.tx.WithTx(ctx, func(tx *sql.Tx) error {
		for _, u := range updates {
			res, err := tx.ExecContext(ctx, updatePositionQuery, u.PosX, u.PosY, u.ID)
			if IsOutOfRange(err) {
				return fmt.Errorf("message %d position (%d,%d): %w", u.ID, u.PosX, u.PosY, domain.ErrInvalidBatchShape)
			}
			if err != nil {
				return fmt.Errorf("failed to move message %d: %w", u.ID, classify(err))
			}
			if err := requireRow(res, u.ID); err != nil {
				return err
			}
		}
		return nil
	})
}

func requireRow(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("message %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func observeQuery(operation string, start time.Time) {
	observability.DBQueryDuration.WithLabelValues(operation, messagesTable).Observe(time.Since(start).Seconds())
}
