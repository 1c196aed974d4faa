package extraction

import (
	"context"

	"github.com/caremesh/erpbridge/internal/canonical"
	"github.com/caremesh/erpbridge/internal/erp"
	"github.com/caremesh/erpbridge/internal/faults"
	"github.com/caremesh/erpbridge/internal/observability/metrics"
	"github.com/caremesh/erpbridge/pkg/logging"
)

type runStore interface {
	Create(ctx context.Context, workspaceID, integrationID string, params map[string]any) (string, error)
	MarkSuccess(ctx context.Context, id string, resultsCount int) error
	MarkError(ctx context.Context, id, message string) error
}

type scheduleWriter interface {
	UpsertBatch(ctx context.Context, schedules []canonical.Schedule) (int, error)
}

type adapterSource interface {
	Adapter(integ erp.Integration) (erp.Adapter, error)
}

// Tracker runs batch extractions and records each attempt as a run row.
type Tracker struct {
	runs      runStore
	schedules scheduleWriter
	adapters  adapterSource
	metrics   *metrics.IntegrationMetrics
	logger    *logging.Logger
}

func NewTracker(runs runStore, schedules scheduleWriter, adapters adapterSource, m *metrics.IntegrationMetrics, logger *logging.Logger) *Tracker {
	if logger == nil {
		logger = logging.Default()
	}
	return &Tracker{runs: runs, schedules: schedules, adapters: adapters, metrics: m, logger: logger}
}

// Result summarizes one finished extraction run.
type Result struct {
	RunID        string `json:"runId"`
	ResultsCount int    `json:"resultsCount"`
}

// Run pulls the vendor's schedules for the requested window, persists them,
// and tracks the whole attempt. The pending row is written before the vendor
// is called; every failure after that point lands in the run as a terminal
// error state. Concurrent runs for the same window are not deduplicated:
// upserts are idempotent, so overlapping runs converge on the same rows.
func (t *Tracker) Run(ctx context.Context, integ erp.Integration, req canonical.ListSchedulesToConfirmRequest) (*Result, error) {
	const op = "extraction.Run"

	// Bad input is the caller's problem, not a failed extraction; no run row.
	if err := req.Validate(); err != nil {
		return nil, err
	}

	runID, err := t.runs.Create(ctx, integ.WorkspaceID, integ.ID, req.ErpParams)
	if err != nil {
		return nil, faults.Wrap(faults.KindExtractionFailed, op, err)
	}

	// Failures past this point carry the run id so callers can point at the
	// recorded attempt.
	adapter, err := t.adapters.Adapter(integ)
	if err != nil {
		return &Result{RunID: runID}, t.fail(ctx, runID, op, err)
	}
	if !adapter.Capabilities().Has(erp.CapListSchedulesToConfirm) {
		return &Result{RunID: runID}, t.fail(ctx, runID, op,
			faults.New(faults.KindNotImplemented, op, "vendor %s does not list schedules", integ.Vendor))
	}

	schedules, err := adapter.ListSchedulesToConfirm(ctx, req)
	if err != nil {
		return &Result{RunID: runID}, t.fail(ctx, runID, op, err)
	}

	for i := range schedules {
		schedules[i].WorkspaceID = integ.WorkspaceID
		schedules[i].IntegrationID = integ.ID
	}

	written, err := t.schedules.UpsertBatch(ctx, schedules)
	if err != nil {
		return &Result{RunID: runID}, t.fail(ctx, runID, op, err)
	}

	// An empty window is a successful run that found nothing.
	if err := t.runs.MarkSuccess(ctx, runID, written); err != nil {
		return &Result{RunID: runID}, t.fail(ctx, runID, op, err)
	}
	t.metrics.ObserveExtractionRun(StatusSuccess.String())
	t.logger.Info("extraction run finished",
		"run_id", runID, "integration_id", integ.ID, "results", written)
	return &Result{RunID: runID, ResultsCount: written}, nil
}

// fail records the terminal error on the run and converts the cause into the
// extraction fault callers see. Failing to record is logged, not masked: the
// original cause always wins.
func (t *Tracker) fail(ctx context.Context, runID, op string, cause error) error {
	if err := t.runs.MarkError(ctx, runID, cause.Error()); err != nil {
		t.logger.Error("failed to record extraction error",
			"run_id", runID, "error", err, "cause", cause)
	}
	t.metrics.ObserveExtractionRun(StatusError.String())
	return faults.Wrapf(faults.KindExtractionFailed, op, cause, "run %s", runID)
}
