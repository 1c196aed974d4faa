package integration

import (
	"context"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caremesh/erpbridge/internal/erp"
	"github.com/caremesh/erpbridge/internal/faults"
)

var integrationColumnNames = []string{
	"id", "workspace_id", "vendor", "base_url",
	"bearer_token", "api_key", "username", "password", "timeout_ms", "timezone",
}

func TestGetResolvesVendorAndTimeout(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := newStoreWithQuerier(mock)
	mock.ExpectQuery(`(?s)SELECT .* FROM integrations`).
		WithArgs("ws-1", "int-1").
		WillReturnRows(pgxmock.NewRows(integrationColumnNames).
			AddRow("int-1", "ws-1", "medware", "https://erp.example", "tok", "", "", "", int64(8000), "America/Sao_Paulo"))

	integ, err := store.Get(context.Background(), "ws-1", "int-1")
	require.NoError(t, err)
	assert.Equal(t, erp.VendorMedware, integ.Vendor)
	assert.Equal(t, 8*time.Second, integ.Timeout)
	assert.Equal(t, "tok", integ.Credentials.BearerToken)
	assert.Equal(t, "America/Sao_Paulo", integ.Timezone)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := newStoreWithQuerier(mock)
	mock.ExpectQuery(`(?s)SELECT .* FROM integrations`).
		WithArgs("ws-1", "missing").
		WillReturnRows(pgxmock.NewRows(integrationColumnNames))

	_, err = store.Get(context.Background(), "ws-1", "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestGetUnknownVendorTagFailsClosed(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := newStoreWithQuerier(mock)
	mock.ExpectQuery(`(?s)SELECT .* FROM integrations`).
		WithArgs("ws-1", "int-2").
		WillReturnRows(pgxmock.NewRows(integrationColumnNames).
			AddRow("int-2", "ws-1", "futuresoft", "https://erp.example", "", "", "", "", int64(0), ""))

	_, err = store.Get(context.Background(), "ws-1", "int-2")
	require.Error(t, err)
	assert.True(t, faults.IsKind(err, faults.KindNotImplemented))
}

func TestListByWorkspace(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := newStoreWithQuerier(mock)
	mock.ExpectQuery(`(?s)SELECT .* FROM integrations .* ORDER BY id`).
		WithArgs("ws-1").
		WillReturnRows(pgxmock.NewRows(integrationColumnNames).
			AddRow("int-1", "ws-1", "medware", "https://a.example", "tok", "", "", "", int64(0), "").
			AddRow("int-2", "ws-1", "sollux", "https://b.example", "", "", "u", "p", int64(0), ""))

	out, err := store.ListByWorkspace(context.Background(), "ws-1")
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, erp.VendorSollux, out[1].Vendor)
	assert.Equal(t, "u", out[1].Credentials.Username)
}
