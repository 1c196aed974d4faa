// Package erp defines the contract every vendor adapter implements against
// the canonical scheduling model. Vendor transport, auth and field names stay
// inside each adapter package; only canonical types cross this boundary.
package erp

import (
	"context"
	"time"

	"github.com/caremesh/erpbridge/internal/canonical"
)

// Capability names one operation an adapter may support. A vendor that lacks
// a capability declares its absence here; it never no-ops silently.
type Capability string

const (
	CapCreateAppointment      Capability = "create_appointment"
	CapCancelAppointment      Capability = "cancel_appointment"
	CapConfirmAppointment     Capability = "confirm_appointment"
	CapRescheduleAppointment  Capability = "reschedule_appointment"
	CapListAvailableSlots     Capability = "list_available_slots"
	CapListSchedulesToConfirm Capability = "list_schedules_to_confirm"
	CapListReferenceEntities  Capability = "list_reference_entities"
	CapAppointmentValue       Capability = "appointment_value"
)

// CapabilitySet is the declared capability surface of one adapter.
type CapabilitySet map[Capability]bool

func (s CapabilitySet) Has(c Capability) bool { return s[c] }

// Credentials parameterize one tenant's adapter instance. Which fields are
// used depends on the vendor's auth scheme.
type Credentials struct {
	BearerToken string
	APIKey      string
	Username    string
	Password    string
}

// Integration is one tenant's connection to one vendor back office.
// Adapters built from it hold no cross-tenant mutable state.
type Integration struct {
	ID          string
	WorkspaceID string
	Vendor      Vendor
	BaseURL     string
	Credentials Credentials
	// Timeout bounds every outbound vendor call. Zero means the registry
	// default applies.
	Timeout time.Duration
	// Timezone interprets naive vendor dates. Empty means UTC.
	Timezone string
}

// Location resolves the integration's timezone, falling back to UTC.
func (i Integration) Location() *time.Location {
	if i.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(i.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Adapter translates canonical requests into one vendor's dialect and vendor
// responses back into canonical records.
type Adapter interface {
	Vendor() Vendor
	Capabilities() CapabilitySet

	CreateAppointment(ctx context.Context, req canonical.CreateAppointmentRequest) (*canonical.Schedule, error)
	CancelAppointment(ctx context.Context, req canonical.CancelAppointmentRequest) error
	ConfirmAppointment(ctx context.Context, scheduleCode string) error
	RescheduleAppointment(ctx context.Context, req canonical.RescheduleAppointmentRequest) (*canonical.Schedule, error)
	ListAvailableSlots(ctx context.Context, req canonical.SlotsRequest) ([]canonical.Slot, error)
	ListSchedulesToConfirm(ctx context.Context, req canonical.ListSchedulesToConfirmRequest) ([]canonical.Schedule, error)
	ListReferenceEntities(ctx context.Context, kind canonical.ReferenceKind) ([]canonical.Entity, error)
	GetAppointmentValue(ctx context.Context, req canonical.AppointmentValueRequest) (*canonical.AppointmentValue, error)
}
