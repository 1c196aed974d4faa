// Package integration loads tenant ERP connections from Postgres and turns
// them into adapter-ready configurations.
package integration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/caremesh/erpbridge/internal/erp"
	"github.com/caremesh/erpbridge/internal/faults"
)

// ErrNotFound is returned when no integration matches the lookup.
var ErrNotFound = errors.New("integration: not found")

type rowQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	db rowQuerier
}

func NewStore(pool *pgxpool.Pool) *Store {
	if pool == nil {
		panic("integration: pgx pool required")
	}
	return &Store{db: pool}
}

func newStoreWithQuerier(db rowQuerier) *Store {
	if db == nil {
		panic("integration: querier required")
	}
	return &Store{db: db}
}

const integrationColumns = `id, workspace_id, vendor, base_url,
	bearer_token, api_key, username, password, timeout_ms, timezone`

// Get loads one enabled integration scoped to the workspace. The stored
// vendor tag is parsed on the way out so a row written for a vendor this
// build does not know surfaces as a classified fault, not a blind dispatch.
func (s *Store) Get(ctx context.Context, workspaceID, id string) (*erp.Integration, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+integrationColumns+`
		FROM integrations
		WHERE workspace_id = $1 AND id = $2 AND enabled`,
		workspaceID, id,
	)
	integ, err := scanIntegration(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("integration: get %s: %w", id, err)
	}
	return integ, nil
}

// ListByWorkspace returns every enabled integration of one workspace.
func (s *Store) ListByWorkspace(ctx context.Context, workspaceID string) ([]erp.Integration, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+integrationColumns+`
		FROM integrations
		WHERE workspace_id = $1 AND enabled
		ORDER BY id`,
		workspaceID,
	)
	if err != nil {
		return nil, fmt.Errorf("integration: list: %w", err)
	}
	defer rows.Close()

	var out []erp.Integration
	for rows.Next() {
		integ, err := scanIntegration(rows)
		if err != nil {
			return nil, fmt.Errorf("integration: scan: %w", err)
		}
		out = append(out, *integ)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("integration: list: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIntegration(row rowScanner) (*erp.Integration, error) {
	var (
		integ     erp.Integration
		vendorTag string
		timeoutMS int64
	)
	err := row.Scan(
		&integ.ID, &integ.WorkspaceID, &vendorTag, &integ.BaseURL,
		&integ.Credentials.BearerToken, &integ.Credentials.APIKey,
		&integ.Credentials.Username, &integ.Credentials.Password,
		&timeoutMS, &integ.Timezone,
	)
	if err != nil {
		return nil, err
	}
	vendor, err := erp.ParseVendor(vendorTag)
	if err != nil {
		// A stored tag that fails syntax is corrupt data, not caller input.
		if faults.IsKind(err, faults.KindBadRequest) {
			return nil, fmt.Errorf("corrupt vendor tag %q: %w", vendorTag, err)
		}
		return nil, err
	}
	integ.Vendor = vendor
	integ.Timeout = time.Duration(timeoutMS) * time.Millisecond
	return &integ, nil
}
