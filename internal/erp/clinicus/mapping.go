package clinicus

import (
	"fmt"
	"time"

	"github.com/caremesh/erpbridge/internal/canonical"
	"github.com/caremesh/erpbridge/internal/faults"
)

// Clinicus wire shapes, private to this package. Dates and clocks travel in
// separate fields ("booking_date": "2024-01-10", "booking_time": "10:00").

type bookingPayload struct {
	BookingRef    string `json:"booking_ref"`
	BookingDate   string `json:"booking_date"`
	BookingTime   string `json:"booking_time"`
	PatientRef    string `json:"patient_ref"`
	PatientName   string `json:"patient_name,omitempty"`
	PatientPhone  string `json:"patient_phone,omitempty"`
	InsuranceRef  string `json:"insurance_ref"`
	ProcedureRef  string `json:"procedure_ref"`
	SpecialityRef string `json:"speciality_ref"`
	SpecialityTp  string `json:"speciality_type"`
	DoctorRef     string `json:"doctor_ref,omitempty"`
	TypeRef       string `json:"type_ref,omitempty"`
	UnitRef       string `json:"unit_ref,omitempty"`
}

type bookingRecord struct {
	BookingRef    string         `json:"booking_ref"`
	BookingDate   string         `json:"booking_date"`
	BookingTime   string         `json:"booking_time"`
	State         string         `json:"state"` // "open", "confirmed", "void"
	PatientRef    string         `json:"patient_ref"`
	PatientName   string         `json:"patient_name"`
	PatientPhone  string         `json:"patient_phone"`
	PatientEmail  string         `json:"patient_email"`
	InsuranceRef  string         `json:"insurance_ref"`
	InsuranceName string         `json:"insurance_name"`
	PlanRef       string         `json:"plan_ref"`
	PlanName      string         `json:"plan_name"`
	DoctorRef     string         `json:"doctor_ref"`
	DoctorName    string         `json:"doctor_name"`
	ProcedureRef  string         `json:"procedure_ref"`
	ProcedureName string         `json:"procedure_name"`
	UnitRef       string         `json:"unit_ref"`
	UnitName      string         `json:"unit_name"`
	WalkIn        bool           `json:"walk_in"`
	Raw           map[string]any `json:"raw"`
}

func bookingBody(req canonical.CreateAppointmentRequest, loc *time.Location) (bookingPayload, error) {
	when, err := req.AppointmentDate(loc)
	if err != nil {
		return bookingPayload{}, err
	}
	body := bookingPayload{
		BookingRef:    req.Appointment.Code,
		BookingDate:   when.Format("2006-01-02"),
		BookingTime:   when.Format("15:04"),
		PatientRef:    req.Patient.Code,
		PatientName:   req.Patient.Name,
		PatientPhone:  req.Patient.Phone,
		InsuranceRef:  req.Insurance.Code,
		ProcedureRef:  req.Procedure.Code,
		SpecialityRef: req.Procedure.SpecialityCode,
		SpecialityTp:  req.Procedure.SpecialityType,
	}
	if req.Doctor != nil {
		body.DoctorRef = req.Doctor.Code
	}
	if req.AppointmentType != nil {
		body.TypeRef = req.AppointmentType.Code
	}
	if req.OrganizationUnit != nil {
		body.UnitRef = req.OrganizationUnit.Code
	}
	return body, nil
}

func (c *Client) toCanonical(op string, rec bookingRecord) (*canonical.Schedule, error) {
	if rec.BookingRef == "" {
		return nil, faults.Wrap(faults.KindUpstreamError, op, fmt.Errorf("booking record without booking_ref"))
	}
	when, err := canonical.CombineDateTime(rec.BookingDate, rec.BookingTime, c.loc)
	if err != nil {
		return nil, faults.Wrap(faults.KindUpstreamError, op, err)
	}
	return &canonical.Schedule{
		WorkspaceID:   c.integ.WorkspaceID,
		IntegrationID: c.integ.ID,
		ScheduleCode:  rec.BookingRef,
		ScheduleDate:  when,
		Status:        stateToStatus(rec.State),
		Patient: canonical.Patient{
			Code:  rec.PatientRef,
			Name:  rec.PatientName,
			Phone: rec.PatientPhone,
			Email: rec.PatientEmail,
		},
		Insurance:            canonical.Entity{Code: rec.InsuranceRef, Name: rec.InsuranceName},
		InsurancePlan:        canonical.Entity{Code: rec.PlanRef, Name: rec.PlanName},
		Doctor:               canonical.Entity{Code: rec.DoctorRef, Name: rec.DoctorName},
		Procedure:            canonical.Entity{Code: rec.ProcedureRef, Name: rec.ProcedureName},
		OrganizationUnit:     canonical.Entity{Code: rec.UnitRef, Name: rec.UnitName},
		FirstComeFirstServed: rec.WalkIn,
		Data:                 rec.Raw,
	}, nil
}

func stateToStatus(state string) canonical.Status {
	switch state {
	case "void":
		return canonical.StatusCanceled
	case "confirmed":
		return canonical.StatusConfirmed
	default:
		return canonical.StatusExtracted
	}
}
