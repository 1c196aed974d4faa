package extraction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a run id does not exist.
var ErrNotFound = errors.New("extraction: run not found")

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	db querier
}

func NewStore(pool *pgxpool.Pool) *Store {
	if pool == nil {
		panic("extraction: pgx pool required")
	}
	return &Store{db: pool}
}

func newStoreWithQuerier(db querier) *Store {
	if db == nil {
		panic("extraction: querier required")
	}
	return &Store{db: db}
}

// Create inserts a pending run and returns its id. The row exists before the
// vendor is called so a crash mid-run still leaves evidence.
func (s *Store) Create(ctx context.Context, workspaceID, integrationID string, params map[string]any) (string, error) {
	data, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("extraction: marshal params: %w", err)
	}
	id := uuid.NewString()
	_, err = s.db.Exec(ctx, `
		INSERT INTO extractions (id, workspace_id, integration_id, status, results_count, data)
		VALUES ($1, $2, $3, 0, 0, $4)`,
		id, workspaceID, integrationID, data,
	)
	if err != nil {
		return "", fmt.Errorf("extraction: create run: %w", err)
	}
	return id, nil
}

// MarkSuccess moves a pending run to success. A run already in a terminal
// state is left untouched.
func (s *Store) MarkSuccess(ctx context.Context, id string, resultsCount int) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE extractions
		SET status = 1, results_count = $2, extract_ended_at = now()
		WHERE id = $1 AND status = 0`,
		id, resultsCount,
	)
	if err != nil {
		return fmt.Errorf("extraction: mark success %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return s.classifyNoop(ctx, id)
	}
	return nil
}

// MarkError moves a pending run to error. The diagnostic joins the request
// params in the run's data document under the "error" key.
func (s *Store) MarkError(ctx context.Context, id, message string) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE extractions
		SET status = -1, extract_ended_at = now(),
		    data = coalesce(data, '{}'::jsonb) || jsonb_build_object('error', $2::text)
		WHERE id = $1 AND status = 0`,
		id, message,
	)
	if err != nil {
		return fmt.Errorf("extraction: mark error %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return s.classifyNoop(ctx, id)
	}
	return nil
}

// classifyNoop distinguishes "run missing" from "run already terminal" after
// a guarded update touched nothing. Already-terminal is not an error: the
// guard exists exactly so a duplicate finish is ignored.
func (s *Store) classifyNoop(ctx context.Context, id string) error {
	var status int16
	err := s.db.QueryRow(ctx, `SELECT status FROM extractions WHERE id = $1`, id).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("extraction: lookup %s: %w", id, err)
	}
	return nil
}

// Get loads one run. The stored data document mixes request params with the
// error diagnostic; they are split back apart for callers, and resultsCount
// is only meaningful for successful runs.
func (s *Store) Get(ctx context.Context, workspaceID, id string) (*Run, error) {
	var (
		run     Run
		status  int16
		results int
		data    []byte
	)
	err := s.db.QueryRow(ctx, `
		SELECT id, workspace_id, integration_id, status, results_count, data,
		       created_at, extract_started_at, extract_ended_at
		FROM extractions
		WHERE workspace_id = $1 AND id = $2`,
		workspaceID, id,
	).Scan(&run.ID, &run.WorkspaceID, &run.IntegrationID, &status, &results,
		&data, &run.CreatedAt, &run.StartedAt, &run.EndedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("extraction: get %s: %w", id, err)
	}
	run.Status = Status(status)
	if run.Status == StatusSuccess {
		run.ResultsCount = &results
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &run.Params); err != nil {
			return nil, fmt.Errorf("extraction: decode params: %w", err)
		}
		if msg, ok := run.Params["error"].(string); ok {
			run.ErrorMessage = msg
			delete(run.Params, "error")
			if len(run.Params) == 0 {
				run.Params = nil
			}
		}
	}
	return &run, nil
}
