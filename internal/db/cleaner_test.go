package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestItemPurger_PurgeOnceUsesCutoff(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	now := time.Date(2024, 3, 31, 12, 0, 0, 0, time.UTC)
	p := NewItemPurger(conn, 30*24*time.Hour, nil)
	p.now = func() time.Time { return now }

	mock.ExpectExec(`DELETE FROM items WHERE deleted = true AND updated_at < \$1`).
		WithArgs(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := p.PurgeOnce(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestItemPurger_StartLogsPurge(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	mock.ExpectExec("DELETE FROM items").
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 2))

	core, logs := observer.New(zapcore.InfoLevel)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	NewItemPurger(conn, time.Hour, zap.New(core)).Start(ctx, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		return logs.FilterMessage("purged deleted items").Len() > 0
	}, time.Second, 5*time.Millisecond)
	cancel()

	entry := logs.FilterMessage("purged deleted items").All()[0]
	assert.Equal(t, int64(2), entry.ContextMap()["removed"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestItemPurger_StartLogsFailure(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	mock.ExpectExec("DELETE FROM items").
		WithArgs(sqlmock.AnyArg()).
		WillReturnError(errors.New("db fail"))

	core, logs := observer.New(zapcore.ErrorLevel)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	NewItemPurger(conn, time.Hour, zap.New(core)).Start(ctx, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		return logs.FilterMessage("item purge failed").Len() > 0
	}, time.Second, 5*time.Millisecond)
	cancel()

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestItemPurger_StopsWithContext(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	NewItemPurger(conn, time.Hour, nil).Start(ctx, 100*time.Millisecond)
	cancel()

	time.Sleep(150 * time.Millisecond)
	assert.NoError(t, mock.ExpectationsWereMet(), "no statements expected after cancel")
}
