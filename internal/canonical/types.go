// Package canonical defines the vendor-neutral scheduling domain model. Every
// other component speaks these shapes; vendor wire formats never leave their
// adapter package.
package canonical

import "time"

// Status is the lifecycle state of a canonical schedule. Transitions are
// one-directional: extracted may become confirmed or canceled, confirmed may
// become canceled, and a terminal record is never reverted to extracted by a
// later sync.
type Status int

const (
	StatusCanceled  Status = -1
	StatusExtracted Status = 0
	StatusConfirmed Status = 1
)

func (s Status) String() string {
	switch s {
	case StatusCanceled:
		return "canceled"
	case StatusExtracted:
		return "extracted"
	case StatusConfirmed:
		return "confirmed"
	default:
		return "invalid"
	}
}

// Valid reports whether s is one of the three known states.
func (s Status) Valid() bool {
	return s == StatusCanceled || s == StatusExtracted || s == StatusConfirmed
}

// CanBecome reports whether the transition s -> next is legal.
func (s Status) CanBecome(next Status) bool {
	switch s {
	case StatusExtracted:
		return next == StatusConfirmed || next == StatusCanceled
	case StatusConfirmed:
		return next == StatusCanceled
	default:
		return false
	}
}

// Entity is an optional code+name pair (doctor, procedure, insurance plan...).
// A vendor that does not expose a field leaves it zero; nothing is synthesized.
type Entity struct {
	Code string `json:"code,omitempty"`
	Name string `json:"name,omitempty"`
}

func (e Entity) IsZero() bool { return e.Code == "" && e.Name == "" }

// Patient holds the identity and contact fields of a schedule's patient.
type Patient struct {
	Code       string `json:"code,omitempty"`
	Name       string `json:"name,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Email      string `json:"email,omitempty"`
	NationalID string `json:"nationalId,omitempty"`
}

// Schedule is the canonical appointment record. It is identified by
// (WorkspaceID, IntegrationID, ScheduleCode); ScheduleCode is vendor-opaque
// and never parsed for meaning.
type Schedule struct {
	WorkspaceID   string `json:"workspaceId"`
	IntegrationID string `json:"integrationId"`
	ScheduleCode  string `json:"scheduleCode"`

	ScheduleDate time.Time `json:"scheduleDate"`
	Status       Status    `json:"scheduleStatus"`

	Patient Patient `json:"patient"`

	Speciality        Entity `json:"speciality,omitzero"`
	Procedure         Entity `json:"procedure,omitzero"`
	AppointmentType   Entity `json:"appointmentType,omitzero"`
	Insurance         Entity `json:"insurance,omitzero"`
	InsurancePlan     Entity `json:"insurancePlan,omitzero"`
	InsuranceSubPlan  Entity `json:"insuranceSubPlan,omitzero"`
	InsuranceCategory Entity `json:"insuranceCategory,omitzero"`
	Doctor            Entity `json:"doctor,omitzero"`
	OrganizationUnit  Entity `json:"organizationUnit,omitzero"`

	FirstComeFirstServed bool `json:"isFirstComeFirstServed"`

	// Data carries free-form vendor payload kept for diagnostics.
	Data map[string]any `json:"data,omitempty"`
}

// Slot is an available appointment slot returned by a vendor.
type Slot struct {
	Code             string    `json:"code"`
	Date             time.Time `json:"date"`
	Doctor           Entity    `json:"doctor,omitzero"`
	OrganizationUnit Entity    `json:"organizationUnit,omitzero"`
}

// AppointmentValue is the price of a prospective appointment.
type AppointmentValue struct {
	AmountCents int64  `json:"amountCents"`
	Currency    string `json:"currency"`
}

// ReferenceKind selects which reference-entity catalog to list from a vendor.
type ReferenceKind string

const (
	RefDoctors           ReferenceKind = "doctors"
	RefProcedures        ReferenceKind = "procedures"
	RefSpecialities      ReferenceKind = "specialities"
	RefInsurances        ReferenceKind = "insurances"
	RefAppointmentTypes  ReferenceKind = "appointment_types"
	RefOrganizationUnits ReferenceKind = "organization_units"
)

// KnownReferenceKind reports whether k names a catalog this layer understands.
func KnownReferenceKind(k ReferenceKind) bool {
	switch k {
	case RefDoctors, RefProcedures, RefSpecialities, RefInsurances, RefAppointmentTypes, RefOrganizationUnits:
		return true
	}
	return false
}
