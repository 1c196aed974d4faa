package canonical

import (
	"testing"

	"github.com/caremesh/erpbridge/internal/faults"
)

func validCreateRequest() CreateAppointmentRequest {
	return CreateAppointmentRequest{
		Patient:     PatientParam{Code: "P1"},
		Appointment: AppointmentParam{Code: "A1", Date: "2024-01-10T10:00:00"},
		Insurance:   CodeRef{Code: "INS1"},
		Procedure:   ProcedureParam{Code: "PR1", SpecialityCode: "SP1", SpecialityType: "exam"},
	}
}

func TestCreateAppointmentValidate(t *testing.T) {
	if err := validCreateRequest().Validate(); err != nil {
		t.Fatalf("valid request rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*CreateAppointmentRequest)
	}{
		{"missing patient code", func(r *CreateAppointmentRequest) { r.Patient.Code = "" }},
		{"missing appointment code", func(r *CreateAppointmentRequest) { r.Appointment.Code = "" }},
		{"missing appointment date", func(r *CreateAppointmentRequest) { r.Appointment.Date = "" }},
		{"missing insurance code", func(r *CreateAppointmentRequest) { r.Insurance.Code = "" }},
		{"missing procedure code", func(r *CreateAppointmentRequest) { r.Procedure.Code = "" }},
		{"missing speciality code", func(r *CreateAppointmentRequest) { r.Procedure.SpecialityCode = "" }},
		{"unparseable date", func(r *CreateAppointmentRequest) { r.Appointment.Date = "10/01/2024" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validCreateRequest()
			tt.mutate(&req)
			err := req.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !faults.IsKind(err, faults.KindBadRequest) {
				t.Fatalf("kind = %s, want bad_request", faults.KindOf(err))
			}
		})
	}
}

func TestCancelAppointmentValidate(t *testing.T) {
	req := CancelAppointmentRequest{AppointmentCode: "A1", PatientCode: "P1"}
	if err := req.Validate(); err != nil {
		t.Fatalf("valid cancel rejected: %v", err)
	}
	if err := (CancelAppointmentRequest{AppointmentCode: "A1"}).Validate(); !faults.IsKind(err, faults.KindBadRequest) {
		t.Fatalf("missing patientCode: kind = %s, want bad_request", faults.KindOf(err))
	}
	if err := (CancelAppointmentV2Request{}).Validate(); !faults.IsKind(err, faults.KindBadRequest) {
		t.Fatal("v2 without scheduleCode must be rejected")
	}
}

func TestRescheduleValidateDelegatesToReplacement(t *testing.T) {
	req := RescheduleAppointmentRequest{
		ScheduleToCancelCode: "OLD1",
		Replacement:          validCreateRequest(),
	}
	if err := req.Validate(); err != nil {
		t.Fatalf("valid reschedule rejected: %v", err)
	}
	req.Replacement.Insurance.Code = ""
	if err := req.Validate(); !faults.IsKind(err, faults.KindBadRequest) {
		t.Fatal("incomplete replacement must be rejected")
	}
}

func TestListSchedulesWindowAndPaging(t *testing.T) {
	req := ListSchedulesToConfirmRequest{StartDate: "2024-01-01", EndDate: "2024-01-31"}
	if err := req.Validate(); err != nil {
		t.Fatalf("valid list rejected: %v", err)
	}
	if got := req.PageSize(); got != defaultPageSize {
		t.Fatalf("default page size = %d, want %d", got, defaultPageSize)
	}

	req.Page, req.Limit = 3, 20
	if got := req.Offset(); got != 40 {
		t.Fatalf("offset = %d, want 40", got)
	}
	req.Limit = 10000
	if got := req.PageSize(); got != maxPageSize {
		t.Fatalf("page size cap = %d, want %d", got, maxPageSize)
	}

	inverted := ListSchedulesToConfirmRequest{StartDate: "2024-02-01", EndDate: "2024-01-01"}
	if err := inverted.Validate(); !faults.IsKind(err, faults.KindBadRequest) {
		t.Fatal("inverted window must be rejected")
	}
}

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to Status
		ok       bool
	}{
		{StatusExtracted, StatusConfirmed, true},
		{StatusExtracted, StatusCanceled, true},
		{StatusConfirmed, StatusCanceled, true},
		{StatusConfirmed, StatusExtracted, false},
		{StatusCanceled, StatusExtracted, false},
		{StatusCanceled, StatusConfirmed, false},
	}
	for _, tt := range tests {
		if got := tt.from.CanBecome(tt.to); got != tt.ok {
			t.Errorf("%s -> %s = %v, want %v", tt.from, tt.to, got, tt.ok)
		}
	}
}
