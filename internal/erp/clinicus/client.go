// Package clinicus implements the erp.Adapter contract for the Clinicus
// back office. Clinicus authenticates with an API key header and splits every
// instant into separate date and time fields.
package clinicus

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/caremesh/erpbridge/internal/canonical"
	"github.com/caremesh/erpbridge/internal/erp"
	"github.com/caremesh/erpbridge/internal/faults"
)

const defaultTimeout = 15 * time.Second

type Client struct {
	integ   erp.Integration
	http    *http.Client
	loc     *time.Location
	timeout time.Duration
}

func New(integ erp.Integration, httpClient *http.Client) (*Client, error) {
	if integ.BaseURL == "" {
		return nil, fmt.Errorf("clinicus: base URL is required")
	}
	if integ.Credentials.APIKey == "" {
		return nil, fmt.Errorf("clinicus: API key is required")
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	timeout := integ.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	return &Client{integ: integ, http: httpClient, loc: integ.Location(), timeout: timeout}, nil
}

func (c *Client) Vendor() erp.Vendor { return erp.VendorClinicus }

// Clinicus has no slot discovery API; availability checks stay with the
// caller's fallback flow.
func (c *Client) Capabilities() erp.CapabilitySet {
	return erp.CapabilitySet{
		erp.CapCreateAppointment:      true,
		erp.CapCancelAppointment:      true,
		erp.CapConfirmAppointment:     true,
		erp.CapRescheduleAppointment:  true,
		erp.CapListSchedulesToConfirm: true,
		erp.CapListReferenceEntities:  true,
		erp.CapAppointmentValue:       true,
	}
}

func (c *Client) CreateAppointment(ctx context.Context, req canonical.CreateAppointmentRequest) (*canonical.Schedule, error) {
	const op = "clinicus.CreateAppointment"
	body, err := bookingBody(req, c.loc)
	if err != nil {
		return nil, faults.Wrap(faults.KindBadRequest, op, err)
	}
	var rec bookingRecord
	if err := c.do(ctx, op, http.MethodPost, "/api/bookings", nil, body, &rec); err != nil {
		return nil, err
	}
	return c.toCanonical(op, rec)
}

func (c *Client) CancelAppointment(ctx context.Context, req canonical.CancelAppointmentRequest) error {
	const op = "clinicus.CancelAppointment"
	body := map[string]any{
		"booking_ref": req.AppointmentCode,
		"patient_ref": req.PatientCode,
	}
	if req.Patient != nil && req.Patient.NationalID != "" {
		body["patient_document"] = req.Patient.NationalID
	}
	// Opaque vendor knobs pass through untouched.
	for k, v := range req.ErpParams {
		body[k] = v
	}
	return c.do(ctx, op, http.MethodPost, "/api/bookings/cancel", nil, body, nil)
}

func (c *Client) ConfirmAppointment(ctx context.Context, scheduleCode string) error {
	const op = "clinicus.ConfirmAppointment"
	body := map[string]string{"booking_ref": scheduleCode}
	return c.do(ctx, op, http.MethodPost, "/api/bookings/confirm", nil, body, nil)
}

// RescheduleAppointment is cancel-then-book: Clinicus has no native move
// operation.
func (c *Client) RescheduleAppointment(ctx context.Context, req canonical.RescheduleAppointmentRequest) (*canonical.Schedule, error) {
	cancel := canonical.CancelAppointmentRequest{
		AppointmentCode: req.ScheduleToCancelCode,
		PatientCode:     req.Replacement.Patient.Code,
	}
	if req.Patient != nil {
		cancel.PatientCode = req.Patient.Code
		cancel.Patient = req.Patient
	}
	if err := c.CancelAppointment(ctx, cancel); err != nil {
		return nil, err
	}
	return c.CreateAppointment(ctx, req.Replacement)
}

func (c *Client) ListAvailableSlots(ctx context.Context, req canonical.SlotsRequest) ([]canonical.Slot, error) {
	return nil, faults.New(faults.KindNotImplemented, "clinicus.ListAvailableSlots", "clinicus does not expose slot discovery")
}

func (c *Client) ListSchedulesToConfirm(ctx context.Context, req canonical.ListSchedulesToConfirmRequest) ([]canonical.Schedule, error) {
	const op = "clinicus.ListSchedulesToConfirm"
	start, end, err := req.Window(c.loc)
	if err != nil {
		return nil, faults.Wrap(faults.KindBadRequest, op, err)
	}
	q := url.Values{}
	q.Set("date_from", start.Format("2006-01-02"))
	q.Set("date_to", end.Format("2006-01-02"))
	q.Set("pending_confirmation", "1")
	q.Set("offset", fmt.Sprint(req.Offset()))
	q.Set("max_results", fmt.Sprint(req.PageSize()))
	if req.ScheduleCode != "" {
		q.Set("booking_ref", req.ScheduleCode)
	}
	var resp struct {
		Bookings []bookingRecord `json:"bookings"`
	}
	if err := c.do(ctx, op, http.MethodGet, "/api/bookings", q, nil, &resp); err != nil {
		return nil, err
	}
	schedules := make([]canonical.Schedule, 0, len(resp.Bookings))
	for _, rec := range resp.Bookings {
		sched, err := c.toCanonical(op, rec)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, *sched)
	}
	return schedules, nil
}

func (c *Client) ListReferenceEntities(ctx context.Context, kind canonical.ReferenceKind) ([]canonical.Entity, error) {
	const op = "clinicus.ListReferenceEntities"
	path, ok := catalogPaths[kind]
	if !ok {
		return nil, faults.New(faults.KindBadRequest, op, "unknown reference kind %q", kind)
	}
	var resp struct {
		Records []struct {
			Ref  string `json:"ref"`
			Name string `json:"name"`
		} `json:"records"`
	}
	if err := c.do(ctx, op, http.MethodGet, path, nil, nil, &resp); err != nil {
		return nil, err
	}
	entities := make([]canonical.Entity, 0, len(resp.Records))
	for _, rec := range resp.Records {
		entities = append(entities, canonical.Entity{Code: rec.Ref, Name: rec.Name})
	}
	return entities, nil
}

func (c *Client) GetAppointmentValue(ctx context.Context, req canonical.AppointmentValueRequest) (*canonical.AppointmentValue, error) {
	const op = "clinicus.GetAppointmentValue"
	q := url.Values{}
	q.Set("insurance_ref", req.Insurance.Code)
	if req.Procedure != nil {
		q.Set("procedure_ref", req.Procedure.Code)
	}
	if req.Doctor != nil {
		q.Set("doctor_ref", req.Doctor.Code)
	}
	var resp struct {
		Price    float64 `json:"price"`
		Currency string  `json:"currency"`
	}
	if err := c.do(ctx, op, http.MethodGet, "/api/pricing", q, nil, &resp); err != nil {
		return nil, err
	}
	currency := resp.Currency
	if currency == "" {
		currency = "BRL"
	}
	return &canonical.AppointmentValue{
		AmountCents: int64(resp.Price * 100),
		Currency:    currency,
	}, nil
}

var catalogPaths = map[canonical.ReferenceKind]string{
	canonical.RefDoctors:           "/api/catalog/doctors",
	canonical.RefProcedures:        "/api/catalog/procedures",
	canonical.RefSpecialities:      "/api/catalog/specialities",
	canonical.RefInsurances:        "/api/catalog/insurances",
	canonical.RefAppointmentTypes:  "/api/catalog/booking-types",
	canonical.RefOrganizationUnits: "/api/catalog/units",
}

func (c *Client) do(ctx context.Context, op, method, path string, q url.Values, body, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	endpoint := strings.TrimSuffix(c.integ.BaseURL, "/") + path
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return faults.Wrap(faults.KindUpstreamError, op, err)
		}
		reader = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return faults.Wrap(faults.KindUpstreamError, op, err)
	}
	req.Header.Set("X-Api-Key", c.integ.Credentials.APIKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return faults.FromUpstream(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return faults.New(faults.KindUpstreamError, op, "vendor status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return faults.Wrap(faults.KindUpstreamError, op, err)
	}
	return nil
}
