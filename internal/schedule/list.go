package schedule

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/caremesh/erpbridge/internal/canonical"
)

// ListQuery is the persisted-side filter set of the confirmation list
// pipeline. WorkspaceID is always required; everything else narrows.
type ListQuery struct {
	WorkspaceID   string
	IntegrationID string

	StartDate time.Time
	EndDate   time.Time

	Statuses []canonical.Status

	DoctorCode           string
	ProcedureCode        string
	SpecialityCode       string
	OrganizationUnitCode string
	PatientCode          string
	PatientName          string

	Limit  int
	Offset int
}

// Page is one page of schedules plus the paging envelope callers use to walk
// the full result set.
type Page struct {
	Count       int                  `json:"count"`
	CurrentPage int                  `json:"currentPage"`
	NextPage    *int                 `json:"nextPage"`
	Data        []canonical.Schedule `json:"data"`
}

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// List runs the confirmation list pipeline: count the matching set, then
// return one page ordered by (schedule_date, schedule_code) so repeated calls
// over an unchanged set page deterministically.
func (s *Store) List(ctx context.Context, q ListQuery) (*Page, error) {
	if q.WorkspaceID == "" {
		return nil, fmt.Errorf("schedule: list requires a workspace")
	}

	limit := q.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	where, args := buildFilter(q)

	var count int
	err := s.db.QueryRow(ctx, "SELECT count(*) FROM schedules WHERE "+where, args...).Scan(&count)
	if err != nil {
		return nil, fmt.Errorf("schedule: count: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT `+scheduleColumns+`
		FROM schedules
		WHERE %s
		ORDER BY schedule_date, schedule_code
		LIMIT $%d OFFSET $%d`, where, len(args)+1, len(args)+2)
	rows, err := s.db.Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, fmt.Errorf("schedule: list: %w", err)
	}
	defer rows.Close()

	data := make([]canonical.Schedule, 0, limit)
	for rows.Next() {
		sched, err := scanSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("schedule: scan: %w", err)
		}
		data = append(data, *sched)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("schedule: list: %w", err)
	}

	page := &Page{
		Count:       count,
		CurrentPage: offset/limit + 1,
		Data:        data,
	}
	if offset+limit < count {
		next := page.CurrentPage + 1
		page.NextPage = &next
	}
	return page, nil
}

func buildFilter(q ListQuery) (string, []any) {
	clauses := []string{"workspace_id = $1"}
	args := []any{q.WorkspaceID}

	add := func(clause string, arg any) {
		args = append(args, arg)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}

	if q.IntegrationID != "" {
		add("integration_id = $%d", q.IntegrationID)
	}
	if !q.StartDate.IsZero() {
		add("schedule_date >= $%d", q.StartDate)
	}
	if !q.EndDate.IsZero() {
		add("schedule_date <= $%d", q.EndDate)
	}
	if len(q.Statuses) > 0 {
		statuses := make([]int16, len(q.Statuses))
		for i, st := range q.Statuses {
			statuses[i] = int16(st)
		}
		add("schedule_status = ANY($%d)", statuses)
	}
	if q.DoctorCode != "" {
		add("doctor_code = $%d", q.DoctorCode)
	}
	if q.ProcedureCode != "" {
		add("procedure_code = $%d", q.ProcedureCode)
	}
	if q.SpecialityCode != "" {
		add("speciality_code = $%d", q.SpecialityCode)
	}
	if q.OrganizationUnitCode != "" {
		add("organization_unit_code = $%d", q.OrganizationUnitCode)
	}
	if q.PatientCode != "" {
		add("patient_code = $%d", q.PatientCode)
	}
	if q.PatientName != "" {
		add("patient_name ILIKE $%d", "%"+q.PatientName+"%")
	}

	return strings.Join(clauses, " AND "), args
}
