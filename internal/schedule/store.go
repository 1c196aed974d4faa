// Package schedule persists canonical schedule records and serves the
// confirmation list pipeline over them. The schedules table is hash
// partitioned by workspace_id (see migrations) so per-tenant index size
// stays bounded; this layer only ever addresses the parent table.
package schedule

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/caremesh/erpbridge/internal/canonical"
)

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	db querier
}

func NewStore(pool *pgxpool.Pool) *Store {
	if pool == nil {
		panic("schedule: pgx pool required")
	}
	return &Store{db: pool}
}

func newStoreWithQuerier(db querier) *Store {
	if db == nil {
		panic("schedule: querier required")
	}
	return &Store{db: db}
}

const scheduleColumns = `workspace_id, integration_id, schedule_code, schedule_date, schedule_status,
	patient_code, patient_name, patient_phone, patient_email, patient_national_id,
	speciality_code, speciality_name, procedure_code, procedure_name,
	appointment_type_code, appointment_type_name, insurance_code, insurance_name,
	insurance_plan_code, insurance_plan_name, insurance_sub_plan_code, insurance_sub_plan_name,
	insurance_category_code, insurance_category_name, doctor_code, doctor_name,
	organization_unit_code, organization_unit_name, first_come_first_served, data`

// Upsert writes one canonical schedule. The status guard keeps transitions
// one-directional: an incoming extracted(0) never reverts a row that is
// already confirmed or canceled.
func (s *Store) Upsert(ctx context.Context, sched canonical.Schedule) error {
	if sched.WorkspaceID == "" || sched.IntegrationID == "" || sched.ScheduleCode == "" {
		return fmt.Errorf("schedule: workspace, integration and schedule code are required")
	}
	data, err := json.Marshal(sched.Data)
	if err != nil {
		return fmt.Errorf("schedule: marshal data: %w", err)
	}

	query := `
		INSERT INTO schedules (` + scheduleColumns + `)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26,$27,$28,$29,$30)
		ON CONFLICT (workspace_id, integration_id, schedule_code) DO UPDATE SET
			schedule_date = EXCLUDED.schedule_date,
			schedule_status = CASE
				WHEN schedules.schedule_status <> 0 AND EXCLUDED.schedule_status = 0
				THEN schedules.schedule_status
				ELSE EXCLUDED.schedule_status
			END,
			patient_code = EXCLUDED.patient_code,
			patient_name = EXCLUDED.patient_name,
			patient_phone = EXCLUDED.patient_phone,
			patient_email = EXCLUDED.patient_email,
			patient_national_id = EXCLUDED.patient_national_id,
			speciality_code = EXCLUDED.speciality_code,
			speciality_name = EXCLUDED.speciality_name,
			procedure_code = EXCLUDED.procedure_code,
			procedure_name = EXCLUDED.procedure_name,
			appointment_type_code = EXCLUDED.appointment_type_code,
			appointment_type_name = EXCLUDED.appointment_type_name,
			insurance_code = EXCLUDED.insurance_code,
			insurance_name = EXCLUDED.insurance_name,
			insurance_plan_code = EXCLUDED.insurance_plan_code,
			insurance_plan_name = EXCLUDED.insurance_plan_name,
			insurance_sub_plan_code = EXCLUDED.insurance_sub_plan_code,
			insurance_sub_plan_name = EXCLUDED.insurance_sub_plan_name,
			insurance_category_code = EXCLUDED.insurance_category_code,
			insurance_category_name = EXCLUDED.insurance_category_name,
			doctor_code = EXCLUDED.doctor_code,
			doctor_name = EXCLUDED.doctor_name,
			organization_unit_code = EXCLUDED.organization_unit_code,
			organization_unit_name = EXCLUDED.organization_unit_name,
			first_come_first_served = EXCLUDED.first_come_first_served,
			data = EXCLUDED.data,
			updated_at = now()`

	_, err = s.db.Exec(ctx, query,
		sched.WorkspaceID, sched.IntegrationID, sched.ScheduleCode, sched.ScheduleDate, int16(sched.Status),
		sched.Patient.Code, sched.Patient.Name, sched.Patient.Phone, sched.Patient.Email, sched.Patient.NationalID,
		sched.Speciality.Code, sched.Speciality.Name, sched.Procedure.Code, sched.Procedure.Name,
		sched.AppointmentType.Code, sched.AppointmentType.Name, sched.Insurance.Code, sched.Insurance.Name,
		sched.InsurancePlan.Code, sched.InsurancePlan.Name, sched.InsuranceSubPlan.Code, sched.InsuranceSubPlan.Name,
		sched.InsuranceCategory.Code, sched.InsuranceCategory.Name, sched.Doctor.Code, sched.Doctor.Name,
		sched.OrganizationUnit.Code, sched.OrganizationUnit.Name, sched.FirstComeFirstServed, data,
	)
	if err != nil {
		return fmt.Errorf("schedule: upsert %s: %w", sched.ScheduleCode, err)
	}
	return nil
}

// UpsertBatch writes the records of one extraction run and returns how many
// were written.
func (s *Store) UpsertBatch(ctx context.Context, schedules []canonical.Schedule) (int, error) {
	for i, sched := range schedules {
		if err := s.Upsert(ctx, sched); err != nil {
			return i, err
		}
	}
	return len(schedules), nil
}

// ErrNotFound is returned when a schedule row does not exist.
var ErrNotFound = errors.New("schedule: not found")

// UpdateStatus moves one schedule to the requested status, honoring the
// one-directional transition rules in SQL. It reports false when the row
// exists but the transition is illegal.
func (s *Store) UpdateStatus(ctx context.Context, workspaceID, integrationID, scheduleCode string, next canonical.Status) (bool, error) {
	if !next.Valid() || next == canonical.StatusExtracted {
		return false, fmt.Errorf("schedule: cannot move a record to status %s", next)
	}

	// Legal sources for each target mirror canonical.Status.CanBecome.
	var sources []int16
	switch next {
	case canonical.StatusConfirmed:
		sources = []int16{int16(canonical.StatusExtracted)}
	case canonical.StatusCanceled:
		sources = []int16{int16(canonical.StatusExtracted), int16(canonical.StatusConfirmed)}
	}

	tag, err := s.db.Exec(ctx, `
		UPDATE schedules
		SET schedule_status = $4, updated_at = now()
		WHERE workspace_id = $1 AND integration_id = $2 AND schedule_code = $3
		  AND schedule_status = ANY($5)`,
		workspaceID, integrationID, scheduleCode, int16(next), sources,
	)
	if err != nil {
		return false, fmt.Errorf("schedule: update status %s: %w", scheduleCode, err)
	}
	if tag.RowsAffected() > 0 {
		return true, nil
	}

	var exists int
	err = s.db.QueryRow(ctx, `
		SELECT 1 FROM schedules
		WHERE workspace_id = $1 AND integration_id = $2 AND schedule_code = $3`,
		workspaceID, integrationID, scheduleCode,
	).Scan(&exists)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, ErrNotFound
	}
	if err != nil {
		return false, fmt.Errorf("schedule: lookup %s: %w", scheduleCode, err)
	}
	return false, nil
}

// Get loads one schedule by its identity triple.
func (s *Store) Get(ctx context.Context, workspaceID, integrationID, scheduleCode string) (*canonical.Schedule, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+scheduleColumns+`
		FROM schedules
		WHERE workspace_id = $1 AND integration_id = $2 AND schedule_code = $3`,
		workspaceID, integrationID, scheduleCode,
	)
	sched, err := scanSchedule(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("schedule: get %s: %w", scheduleCode, err)
	}
	return sched, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSchedule(row rowScanner) (*canonical.Schedule, error) {
	var (
		sched  canonical.Schedule
		status int16
		data   []byte
	)
	err := row.Scan(
		&sched.WorkspaceID, &sched.IntegrationID, &sched.ScheduleCode, &sched.ScheduleDate, &status,
		&sched.Patient.Code, &sched.Patient.Name, &sched.Patient.Phone, &sched.Patient.Email, &sched.Patient.NationalID,
		&sched.Speciality.Code, &sched.Speciality.Name, &sched.Procedure.Code, &sched.Procedure.Name,
		&sched.AppointmentType.Code, &sched.AppointmentType.Name, &sched.Insurance.Code, &sched.Insurance.Name,
		&sched.InsurancePlan.Code, &sched.InsurancePlan.Name, &sched.InsuranceSubPlan.Code, &sched.InsuranceSubPlan.Name,
		&sched.InsuranceCategory.Code, &sched.InsuranceCategory.Name, &sched.Doctor.Code, &sched.Doctor.Name,
		&sched.OrganizationUnit.Code, &sched.OrganizationUnit.Name, &sched.FirstComeFirstServed, &data,
	)
	if err != nil {
		return nil, err
	}
	sched.Status = canonical.Status(status)
	if len(data) > 0 {
		if err := json.Unmarshal(data, &sched.Data); err != nil {
			return nil, fmt.Errorf("decode data payload: %w", err)
		}
	}
	return &sched, nil
}
