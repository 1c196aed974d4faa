package extraction

import (
	"context"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateInsertsPendingRun(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := newStoreWithQuerier(mock)
	mock.ExpectExec(`(?s)INSERT INTO extractions .* VALUES \(\$1, \$2, \$3, 0, 0, \$4\)`).
		WithArgs(pgxmock.AnyArg(), "ws-1", "int-1", []byte(`{"maxResults":3}`)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	id, err := store.Create(context.Background(), "ws-1", "int-1", map[string]any{"maxResults": 3})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkSuccessGuardedByPending(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := newStoreWithQuerier(mock)
	mock.ExpectExec(`(?s)UPDATE extractions .* WHERE id = \$1 AND status = 0`).
		WithArgs("run-1", 7).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, store.MarkSuccess(context.Background(), "run-1", 7))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkErrorMergesDiagnosticIntoData(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := newStoreWithQuerier(mock)
	mock.ExpectExec(`(?s)UPDATE extractions.*data = coalesce\(data, '\{\}'::jsonb\) \|\| jsonb_build_object\('error', \$2::text\).*WHERE id = \$1 AND status = 0`).
		WithArgs("run-1", "vendor exploded").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, store.MarkError(context.Background(), "run-1", "vendor exploded"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkErrorOnAlreadyTerminalRunIsNoop(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := newStoreWithQuerier(mock)
	mock.ExpectExec("UPDATE extractions").
		WithArgs("run-1", "vendor exploded").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery("SELECT status FROM extractions").
		WithArgs("run-1").
		WillReturnRows(pgxmock.NewRows([]string{"status"}).AddRow(int16(1)))

	require.NoError(t, store.MarkError(context.Background(), "run-1", "vendor exploded"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkSuccessMissingRun(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := newStoreWithQuerier(mock)
	mock.ExpectExec("UPDATE extractions").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery("SELECT status FROM extractions").
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"status"}))

	err = store.MarkSuccess(context.Background(), "ghost", 1)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestGetRun(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := newStoreWithQuerier(mock)
	now := time.Now()
	mock.ExpectQuery(`(?s)SELECT id, workspace_id, integration_id, status`).
		WithArgs("ws-1", "run-1").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "workspace_id", "integration_id", "status", "results_count",
			"data", "created_at", "extract_started_at", "extract_ended_at",
		}).AddRow("run-1", "ws-1", "int-1", int16(-1), 0,
			[]byte(`{"debug":true,"error":"boom"}`), now, now, &now))

	run, err := store.Get(context.Background(), "ws-1", "run-1")
	require.NoError(t, err)
	assert.Equal(t, StatusError, run.Status)
	assert.Equal(t, "boom", run.ErrorMessage)
	assert.Nil(t, run.ResultsCount)
	assert.Equal(t, map[string]any{"debug": true}, run.Params)
}

func TestGetSuccessfulRunCarriesCount(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := newStoreWithQuerier(mock)
	now := time.Now()
	mock.ExpectQuery(`(?s)SELECT id, workspace_id, integration_id, status`).
		WithArgs("ws-1", "run-2").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "workspace_id", "integration_id", "status", "results_count",
			"data", "created_at", "extract_started_at", "extract_ended_at",
		}).AddRow("run-2", "ws-1", "int-1", int16(1), 11, []byte(`{}`), now, now, &now))

	run, err := store.Get(context.Background(), "ws-1", "run-2")
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, run.Status)
	require.NotNil(t, run.ResultsCount)
	assert.Equal(t, 11, *run.ResultsCount)
	assert.Empty(t, run.ErrorMessage)
}
