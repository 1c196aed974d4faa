package registry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/caremesh/erpbridge/internal/canonical"
	"github.com/caremesh/erpbridge/internal/erp"
	"github.com/caremesh/erpbridge/internal/faults"
	"github.com/caremesh/erpbridge/internal/observability/metrics"
)

// instrumented decorates an adapter with a span and a vendor-call metric per
// operation. Failures keep their taxonomy kind as the metric status label.
type instrumented struct {
	next    erp.Adapter
	metrics *metrics.IntegrationMetrics
	tracer  trace.Tracer
}

func (a *instrumented) Vendor() erp.Vendor              { return a.next.Vendor() }
func (a *instrumented) Capabilities() erp.CapabilitySet { return a.next.Capabilities() }

func (a *instrumented) observe(ctx context.Context, op string, fn func(context.Context) error) error {
	vendor := a.next.Vendor().String()
	ctx, span := a.tracer.Start(ctx, "erp."+op,
		trace.WithAttributes(attribute.String("erp.vendor", vendor)))
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	status := "ok"
	if err != nil {
		status = faults.KindOf(err).String()
		span.RecordError(err)
	}
	a.metrics.ObserveVendorCall(vendor, op, status, time.Since(start).Seconds())
	return err
}

func (a *instrumented) CreateAppointment(ctx context.Context, req canonical.CreateAppointmentRequest) (*canonical.Schedule, error) {
	var out *canonical.Schedule
	err := a.observe(ctx, "CreateAppointment", func(ctx context.Context) error {
		var err error
		out, err = a.next.CreateAppointment(ctx, req)
		return err
	})
	return out, err
}

func (a *instrumented) CancelAppointment(ctx context.Context, req canonical.CancelAppointmentRequest) error {
	return a.observe(ctx, "CancelAppointment", func(ctx context.Context) error {
		return a.next.CancelAppointment(ctx, req)
	})
}

func (a *instrumented) ConfirmAppointment(ctx context.Context, scheduleCode string) error {
	return a.observe(ctx, "ConfirmAppointment", func(ctx context.Context) error {
		return a.next.ConfirmAppointment(ctx, scheduleCode)
	})
}

func (a *instrumented) RescheduleAppointment(ctx context.Context, req canonical.RescheduleAppointmentRequest) (*canonical.Schedule, error) {
	var out *canonical.Schedule
	err := a.observe(ctx, "RescheduleAppointment", func(ctx context.Context) error {
		var err error
		out, err = a.next.RescheduleAppointment(ctx, req)
		return err
	})
	return out, err
}

func (a *instrumented) ListAvailableSlots(ctx context.Context, req canonical.SlotsRequest) ([]canonical.Slot, error) {
	var out []canonical.Slot
	err := a.observe(ctx, "ListAvailableSlots", func(ctx context.Context) error {
		var err error
		out, err = a.next.ListAvailableSlots(ctx, req)
		return err
	})
	return out, err
}

func (a *instrumented) ListSchedulesToConfirm(ctx context.Context, req canonical.ListSchedulesToConfirmRequest) ([]canonical.Schedule, error) {
	var out []canonical.Schedule
	err := a.observe(ctx, "ListSchedulesToConfirm", func(ctx context.Context) error {
		var err error
		out, err = a.next.ListSchedulesToConfirm(ctx, req)
		return err
	})
	return out, err
}

func (a *instrumented) ListReferenceEntities(ctx context.Context, kind canonical.ReferenceKind) ([]canonical.Entity, error) {
	var out []canonical.Entity
	err := a.observe(ctx, "ListReferenceEntities", func(ctx context.Context) error {
		var err error
		out, err = a.next.ListReferenceEntities(ctx, kind)
		return err
	})
	return out, err
}

func (a *instrumented) GetAppointmentValue(ctx context.Context, req canonical.AppointmentValueRequest) (*canonical.AppointmentValue, error) {
	var out *canonical.AppointmentValue
	err := a.observe(ctx, "GetAppointmentValue", func(ctx context.Context) error {
		var err error
		out, err = a.next.GetAppointmentValue(ctx, req)
		return err
	})
	return out, err
}
