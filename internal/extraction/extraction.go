// Package extraction records batch schedule pulls as tracked runs. Every run
// leaves a row: pending while the vendor call is in flight, then success or
// error, so operators can audit what each sync did long after it finished.
package extraction

import "time"

// Run statuses. A run is created pending and moves exactly once to a terminal
// state.
type Status int

const (
	StatusError   Status = -1
	StatusPending Status = 0
	StatusSuccess Status = 1
)

func (s Status) String() string {
	switch s {
	case StatusError:
		return "error"
	case StatusPending:
		return "pending"
	case StatusSuccess:
		return "success"
	default:
		return "invalid"
	}
}

// Run is one tracked extraction attempt. ResultsCount is set only on
// successful runs; pending and failed runs carry no count.
type Run struct {
	ID            string         `json:"id"`
	WorkspaceID   string         `json:"workspaceId"`
	IntegrationID string         `json:"integrationId"`
	Status        Status         `json:"status"`
	ResultsCount  *int           `json:"resultsCount,omitempty"`
	ErrorMessage  string         `json:"errorMessage,omitempty"`
	Params        map[string]any `json:"params,omitempty"`
	CreatedAt     time.Time      `json:"createdAt"`
	StartedAt     time.Time      `json:"extractStartedAt"`
	EndedAt       *time.Time     `json:"extractEndedAt,omitempty"`
}
