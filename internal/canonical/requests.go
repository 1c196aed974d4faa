package canonical

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/caremesh/erpbridge/internal/faults"
)

// Request shapes are validated here, before any adapter is resolved. Dates
// arrive as vendor-agnostic strings and are parsed through ParseVendorTime.

var validate = validator.New(validator.WithRequiredStructEnabled())

// CodeRef references an entity by its vendor code.
type CodeRef struct {
	Code string `json:"code" validate:"required"`
}

// OptionalCodeRef is a CodeRef the caller may omit entirely.
type OptionalCodeRef struct {
	Code string `json:"code,omitempty"`
}

type PatientParam struct {
	Code       string `json:"code" validate:"required"`
	Name       string `json:"name,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Email      string `json:"email,omitempty"`
	NationalID string `json:"nationalId,omitempty"`
}

type AppointmentParam struct {
	Code string `json:"code" validate:"required"`
	Date string `json:"appointmentDate" validate:"required"`
}

type ProcedureParam struct {
	Code           string `json:"code" validate:"required"`
	SpecialityCode string `json:"specialityCode" validate:"required"`
	SpecialityType string `json:"specialityType" validate:"required"`
}

type CreateAppointmentRequest struct {
	Patient          PatientParam     `json:"patient" validate:"required"`
	Appointment      AppointmentParam `json:"appointment" validate:"required"`
	Insurance        CodeRef          `json:"insurance" validate:"required"`
	Procedure        ProcedureParam   `json:"procedure" validate:"required"`
	Doctor           *OptionalCodeRef `json:"doctor,omitempty"`
	AppointmentType  *OptionalCodeRef `json:"appointmentType,omitempty"`
	TypeOfService    *OptionalCodeRef `json:"typeOfService,omitempty"`
	OrganizationUnit *OptionalCodeRef `json:"organizationUnit,omitempty"`
	Speciality       *OptionalCodeRef `json:"speciality,omitempty"`
	Data             map[string]any   `json:"data,omitempty"`
}

func (r CreateAppointmentRequest) Validate() error {
	const op = "canonical.CreateAppointment"
	if err := validate.Struct(r); err != nil {
		return faults.Wrap(faults.KindBadRequest, op, err)
	}
	if _, err := ParseVendorTime(r.Appointment.Date, nil); err != nil {
		return faults.Wrap(faults.KindBadRequest, op, err)
	}
	return nil
}

// AppointmentDate parses the requested instant in loc (UTC when nil).
func (r CreateAppointmentRequest) AppointmentDate(loc *time.Location) (time.Time, error) {
	return ParseVendorTime(r.Appointment.Date, loc)
}

type CancelAppointmentRequest struct {
	AppointmentCode string `json:"appointmentCode" validate:"required"`
	PatientCode     string `json:"patientCode" validate:"required"`
	// Optional detail for vendors that need it to disambiguate the booking.
	Procedure *OptionalCodeRef `json:"procedure,omitempty"`
	Patient   *PatientParam    `json:"patient,omitempty"`
	ErpParams map[string]any   `json:"erpParams,omitempty"`
}

func (r CancelAppointmentRequest) Validate() error {
	if err := validate.StructPartial(r, "AppointmentCode", "PatientCode"); err != nil {
		return faults.Wrap(faults.KindBadRequest, "canonical.CancelAppointment", err)
	}
	return nil
}

// CancelAppointmentV2Request cancels by the opaque schedule code instead of
// vendor appointment identifiers.
type CancelAppointmentV2Request struct {
	ScheduleCode string         `json:"scheduleCode" validate:"required"`
	ErpParams    map[string]any `json:"erpParams,omitempty"`
}

func (r CancelAppointmentV2Request) Validate() error {
	if err := validate.Struct(r); err != nil {
		return faults.Wrap(faults.KindBadRequest, "canonical.CancelAppointmentV2", err)
	}
	return nil
}

type RescheduleAppointmentRequest struct {
	ScheduleToCancelCode string                   `json:"scheduleToCancelCode" validate:"required"`
	Patient              *PatientParam            `json:"patient,omitempty"`
	Replacement          CreateAppointmentRequest `json:"replacement" validate:"required"`
}

func (r RescheduleAppointmentRequest) Validate() error {
	const op = "canonical.RescheduleAppointment"
	if r.ScheduleToCancelCode == "" {
		return faults.New(faults.KindBadRequest, op, "scheduleToCancelCode is required")
	}
	if err := r.Replacement.Validate(); err != nil {
		return err
	}
	return nil
}

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

type ListSchedulesToConfirmRequest struct {
	StartDate    string `json:"startDate" validate:"required"`
	EndDate      string `json:"endDate" validate:"required"`
	ScheduleCode string `json:"scheduleCode,omitempty"`
	Page         int    `json:"page,omitempty"`
	Limit        int    `json:"limit,omitempty"`
	// ErpParams carries vendor-specific knobs untouched: debug limits,
	// forced phone override, extract-type selector.
	ErpParams      map[string]any `json:"erpParams,omitempty"`
	BuildShortLink bool           `json:"buildShortLink,omitempty"`
}

func (r ListSchedulesToConfirmRequest) Validate() error {
	const op = "canonical.ListSchedulesToConfirm"
	if err := validate.Struct(r); err != nil {
		return faults.Wrap(faults.KindBadRequest, op, err)
	}
	start, end, err := r.Window(nil)
	if err != nil {
		return faults.Wrap(faults.KindBadRequest, op, err)
	}
	if end.Before(start) {
		return faults.New(faults.KindBadRequest, op, "endDate precedes startDate")
	}
	return nil
}

// Window parses the requested date range in loc.
func (r ListSchedulesToConfirmRequest) Window(loc *time.Location) (time.Time, time.Time, error) {
	start, err := ParseVendorTime(r.StartDate, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := ParseVendorTime(r.EndDate, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

// PageSize returns the effective page size with default and cap applied.
func (r ListSchedulesToConfirmRequest) PageSize() int {
	switch {
	case r.Limit <= 0:
		return defaultPageSize
	case r.Limit > maxPageSize:
		return maxPageSize
	default:
		return r.Limit
	}
}

// Offset converts the 1-based page to a row offset.
func (r ListSchedulesToConfirmRequest) Offset() int {
	if r.Page <= 1 {
		return 0
	}
	return (r.Page - 1) * r.PageSize()
}

// AppointmentValueRequest prices a prospective appointment before booking.
type AppointmentValueRequest struct {
	Insurance        CodeRef          `json:"insurance" validate:"required"`
	Procedure        *OptionalCodeRef `json:"procedure,omitempty"`
	Speciality       *OptionalCodeRef `json:"speciality,omitempty"`
	Doctor           *OptionalCodeRef `json:"doctor,omitempty"`
	AppointmentType  *OptionalCodeRef `json:"appointmentType,omitempty"`
	OrganizationUnit *OptionalCodeRef `json:"organizationUnit,omitempty"`
}

func (r AppointmentValueRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return faults.Wrap(faults.KindBadRequest, "canonical.AppointmentValue", err)
	}
	return nil
}

type SlotsRequest struct {
	StartDate        string           `json:"startDate" validate:"required"`
	EndDate          string           `json:"endDate" validate:"required"`
	Doctor           *OptionalCodeRef `json:"doctor,omitempty"`
	Procedure        *OptionalCodeRef `json:"procedure,omitempty"`
	OrganizationUnit *OptionalCodeRef `json:"organizationUnit,omitempty"`
}

func (r SlotsRequest) Validate() error {
	const op = "canonical.ListAvailableSlots"
	if err := validate.Struct(r); err != nil {
		return faults.Wrap(faults.KindBadRequest, op, err)
	}
	if _, err := ParseVendorTime(r.StartDate, nil); err != nil {
		return faults.Wrap(faults.KindBadRequest, op, err)
	}
	if _, err := ParseVendorTime(r.EndDate, nil); err != nil {
		return faults.Wrap(faults.KindBadRequest, op, err)
	}
	return nil
}
