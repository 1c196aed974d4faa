// Package medware implements the erp.Adapter contract for the Medware REST
// API. Medware authenticates with a bearer token and sends combined ISO
// datetime strings.
package medware

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

// New builds a fresh adapter for one tenant integration. httpClient may be
// shared across tenants; all per-tenant state lives in the Integration.
func New(integ erp.Integration, httpClient *http.Client) (*Client, error) {
	if integ.BaseURL == "" {
		return nil, fmt.Errorf("medware: base URL is required")
	}
	if integ.Credentials.BearerToken == "" {
		return nil, fmt.Errorf("medware: bearer token is required")
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	timeout := integ.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	return &Client{
		integ:   integ,
		http:    httpClient,
		loc:     integ.Location(),
		timeout: timeout,
	}, nil
}

func (c *Client) Vendor() erp.Vendor { return erp.VendorMedware }

func (c *Client) Capabilities() erp.CapabilitySet {
	return erp.CapabilitySet{
		erp.CapCreateAppointment:      true,
		erp.CapCancelAppointment:      true,
		erp.CapConfirmAppointment:     true,
		erp.CapRescheduleAppointment:  true,
		erp.CapListAvailableSlots:     true,
		erp.CapListSchedulesToConfirm: true,
		erp.CapListReferenceEntities:  true,
		erp.CapAppointmentValue:       true,
	}
}

func (c *Client) CreateAppointment(ctx context.Context, req canonical.CreateAppointmentRequest) (*canonical.Schedule, error) {
	const op = "medware.CreateAppointment"
	payload, err := bookingPayload(req, c.loc)
	if err != nil {
		return nil, faults.Wrap(faults.KindBadRequest, op, err)
	}
	var rec apptRecord
	if err := c.do(ctx, op, http.MethodPost, "/v1/appointments", nil, payload, &rec); err != nil {
		return nil, err
	}
	sched, err := c.toCanonical(rec)
	if err != nil {
		return nil, faults.Wrap(faults.KindUpstreamError, op, err)
	}
	return sched, nil
}

func (c *Client) CancelAppointment(ctx context.Context, req canonical.CancelAppointmentRequest) error {
	const op = "medware.CancelAppointment"
	body := cancelPayload{PatientCd: req.PatientCode, Params: req.ErpParams}
	if req.Procedure != nil {
		body.ProcedureCd = req.Procedure.Code
	}
	path := "/v1/appointments/" + url.PathEscape(req.AppointmentCode) + "/cancel"
	return c.do(ctx, op, http.MethodPost, path, nil, body, nil)
}

func (c *Client) ConfirmAppointment(ctx context.Context, scheduleCode string) error {
	const op = "medware.ConfirmAppointment"
	path := "/v1/appointments/" + url.PathEscape(scheduleCode) + "/confirm"
	return c.do(ctx, op, http.MethodPost, path, nil, struct{}{}, nil)
}

func (c *Client) RescheduleAppointment(ctx context.Context, req canonical.RescheduleAppointmentRequest) (*canonical.Schedule, error) {
	const op = "medware.RescheduleAppointment"
	replacement, err := bookingPayload(req.Replacement, c.loc)
	if err != nil {
		return nil, faults.Wrap(faults.KindBadRequest, op, err)
	}
	body := reschedulePayload{Replacement: replacement}
	if req.Patient != nil {
		body.PatientCd = req.Patient.Code
	}
	path := "/v1/appointments/" + url.PathEscape(req.ScheduleToCancelCode) + "/reschedule"
	var rec apptRecord
	if err := c.do(ctx, op, http.MethodPost, path, nil, body, &rec); err != nil {
		return nil, err
	}
	sched, err := c.toCanonical(rec)
	if err != nil {
		return nil, faults.Wrap(faults.KindUpstreamError, op, err)
	}
	return sched, nil
}

func (c *Client) ListAvailableSlots(ctx context.Context, req canonical.SlotsRequest) ([]canonical.Slot, error) {
	const op = "medware.ListAvailableSlots"
	q := url.Values{}
	q.Set("from", req.StartDate)
	q.Set("to", req.EndDate)
	if req.Doctor != nil {
		q.Set("doctorCd", req.Doctor.Code)
	}
	if req.Procedure != nil {
		q.Set("procedureCd", req.Procedure.Code)
	}
	if req.OrganizationUnit != nil {
		q.Set("unitCd", req.OrganizationUnit.Code)
	}
	var resp slotsResponse
	if err := c.do(ctx, op, http.MethodGet, "/v1/slots", q, nil, &resp); err != nil {
		return nil, err
	}
	slots := make([]canonical.Slot, 0, len(resp.Slots))
	for _, s := range resp.Slots {
		when, err := canonical.ParseVendorTime(s.SlotDt, c.loc)
		if err != nil {
			return nil, faults.Wrap(faults.KindUpstreamError, op, err)
		}
		slots = append(slots, canonical.Slot{
			Code:             s.SlotCd,
			Date:             when,
			Doctor:           canonical.Entity{Code: s.DoctorCd, Name: s.DoctorNm},
			OrganizationUnit: canonical.Entity{Code: s.UnitCd, Name: s.UnitNm},
		})
	}
	return slots, nil
}

func (c *Client) ListSchedulesToConfirm(ctx context.Context, req canonical.ListSchedulesToConfirmRequest) ([]canonical.Schedule, error) {
	const op = "medware.ListSchedulesToConfirm"
	start, end, err := req.Window(c.loc)
	if err != nil {
		return nil, faults.Wrap(faults.KindBadRequest, op, err)
	}
	q := url.Values{}
	q.Set("from", start.Format(time.RFC3339))
	q.Set("to", end.Format(time.RFC3339))
	q.Set("needsConfirmation", "true")
	q.Set("page", fmt.Sprint(max(req.Page, 1)))
	q.Set("pageSize", fmt.Sprint(req.PageSize()))
	if req.ScheduleCode != "" {
		q.Set("apptCd", req.ScheduleCode)
	}
	var resp apptListResponse
	if err := c.do(ctx, op, http.MethodGet, "/v1/appointments", q, nil, &resp); err != nil {
		return nil, err
	}

	schedules := make([]canonical.Schedule, 0, len(resp.Appointments))
	for _, rec := range resp.Appointments {
		sched, err := c.toCanonical(rec)
		if err != nil {
			return nil, faults.Wrap(faults.KindUpstreamError, op, err)
		}
		schedules = append(schedules, *sched)
	}
	return applyErpParams(schedules, req.ErpParams), nil
}

func (c *Client) ListReferenceEntities(ctx context.Context, kind canonical.ReferenceKind) ([]canonical.Entity, error) {
	const op = "medware.ListReferenceEntities"
	if !canonical.KnownReferenceKind(kind) {
		return nil, faults.New(faults.KindBadRequest, op, "unknown reference kind %q", kind)
	}
	var resp catalogResponse
	if err := c.do(ctx, op, http.MethodGet, "/v1/catalog/"+string(kind), nil, nil, &resp); err != nil {
		return nil, err
	}
	entities := make([]canonical.Entity, 0, len(resp.Items))
	for _, it := range resp.Items {
		entities = append(entities, canonical.Entity{Code: it.Cd, Name: it.Nm})
	}
	return entities, nil
}

func (c *Client) GetAppointmentValue(ctx context.Context, req canonical.AppointmentValueRequest) (*canonical.AppointmentValue, error) {
	const op = "medware.GetAppointmentValue"
	body := quotePayload{InsuranceCd: req.Insurance.Code}
	if req.Procedure != nil {
		body.ProcedureCd = req.Procedure.Code
	}
	if req.Speciality != nil {
		body.SpecialityCd = req.Speciality.Code
	}
	if req.Doctor != nil {
		body.DoctorCd = req.Doctor.Code
	}
	if req.OrganizationUnit != nil {
		body.UnitCd = req.OrganizationUnit.Code
	}
	var resp quoteResponse
	if err := c.do(ctx, op, http.MethodPost, "/v1/appointments/quote", nil, body, &resp); err != nil {
		return nil, err
	}
	currency := resp.Currency
	if currency == "" {
		currency = "BRL"
	}
	return &canonical.AppointmentValue{AmountCents: resp.AmountCents, Currency: currency}, nil
}

// do issues one bounded vendor call and normalizes transport failures into
// the shared taxonomy.
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
	req.Header.Set("Authorization", "Bearer "+c.integ.Credentials.BearerToken)
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
