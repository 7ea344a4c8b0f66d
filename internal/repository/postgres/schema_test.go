package postgres

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"guestbook-board/internal/domain"
	"guestbook-board/internal/observability"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	createTablePattern = "CREATE TABLE IF NOT EXISTS guestbook_messages"
	createIndexPattern = "CREATE INDEX IF NOT EXISTS guestbook_messages_order_idx"
)

func expectSchema(mock sqlmock.Sqlmock) {
	mock.ExpectExec(createTablePattern).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(createIndexPattern).WillReturnResult(sqlmock.NewResult(0, 0))
}

func TestSchemaInitializer_Ensure(t *testing.T) {
	t.Run("runs_once_then_latches", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		schema := NewSchemaInitializer(db)
		expectSchema(mock)

		require.NoError(t, schema.Ensure(context.Background()))
		require.NoError(t, schema.Ensure(context.Background()))

		assert.True(t, schema.Ready())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failure_is_not_latched", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		schema := NewSchemaInitializer(db)
		before := promtest.ToFloat64(observability.SchemaInitializations.WithLabelValues("failure"))

		mock.ExpectExec(createTablePattern).
			WillReturnError(&pq.Error{Code: "08006", Message: "connection failure"})

		err = schema.Ensure(context.Background())
		assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
		assert.False(t, schema.Ready())
		assert.Equal(t, before+1, promtest.ToFloat64(observability.SchemaInitializations.WithLabelValues("failure")))

		// The database came back
		expectSchema(mock)
		require.NoError(t, schema.Ensure(context.Background()))
		assert.True(t, schema.Ready())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("concurrent_ddl_counts_as_success", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		schema := NewSchemaInitializer(db)

		mock.ExpectExec(createTablePattern).
			WillReturnError(&pq.Error{Code: "23505", Constraint: "pg_type_typname_nsp_index"})
		mock.ExpectExec(createIndexPattern).
			WillReturnError(&pq.Error{Code: "42P07"})

		require.NoError(t, schema.Ensure(context.Background()))
		assert.True(t, schema.Ready())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("other_errors_fail", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		schema := NewSchemaInitializer(db)

		mock.ExpectExec(createTablePattern).WillReturnError(errors.New("permission denied for schema public"))

		err = schema.Ensure(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to initialize schema")
		assert.NotErrorIs(t, err, domain.ErrStoreUnavailable)
	})

	t.Run("concurrent_cold_start_shares_one_attempt", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		schema := NewSchemaInitializer(db)

		// A single set of expectations: a second attempt would fail on an
		// unexpected exec
		mock.ExpectExec(createTablePattern).
			WillDelayFor(50 * time.Millisecond).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(createIndexPattern).WillReturnResult(sqlmock.NewResult(0, 0))

		const callers = 20
		var wg sync.WaitGroup
		errs := make(chan error, callers)
		for i := 0; i < callers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs <- schema.Ensure(context.Background())
			}()
		}
		wg.Wait()
		close(errs)

		for err := range errs {
			assert.NoError(t, err)
		}
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("caller_timeout_does_not_abort_shared_attempt", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		schema := NewSchemaInitializer(db)

		mock.ExpectExec(createTablePattern).
			WillDelayFor(100 * time.Millisecond).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(createIndexPattern).WillReturnResult(sqlmock.NewResult(0, 0))

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		err = schema.Ensure(ctx)
		assert.ErrorIs(t, err, context.DeadlineExceeded)

		// A patient caller joins the in-flight attempt
		require.NoError(t, schema.Ensure(context.Background()))
		assert.True(t, schema.Ready())
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
