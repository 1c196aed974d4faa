// Package sollux implements the erp.Adapter contract for the Sollux back
// office. Sollux authenticates with HTTP basic auth, sends pure date strings
// (its agenda is first-come-first-served within a day) and exposes only the
// read/confirm side of the contract.
package sollux

import (
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

const defaultTimeout = 20 * time.Second

type Client struct {
	integ   erp.Integration
	http    *http.Client
	loc     *time.Location
	timeout time.Duration
}

func New(integ erp.Integration, httpClient *http.Client) (*Client, error) {
	if integ.BaseURL == "" {
		return nil, fmt.Errorf("sollux: base URL is required")
	}
	if integ.Credentials.Username == "" || integ.Credentials.Password == "" {
		return nil, fmt.Errorf("sollux: basic auth credentials are required")
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

func (c *Client) Vendor() erp.Vendor { return erp.VendorSollux }

func (c *Client) Capabilities() erp.CapabilitySet {
	return erp.CapabilitySet{
		erp.CapCancelAppointment:      true,
		erp.CapConfirmAppointment:     true,
		erp.CapListSchedulesToConfirm: true,
		erp.CapListReferenceEntities:  true,
	}
}

func (c *Client) CreateAppointment(ctx context.Context, req canonical.CreateAppointmentRequest) (*canonical.Schedule, error) {
	return nil, c.notImplemented("CreateAppointment")
}

func (c *Client) RescheduleAppointment(ctx context.Context, req canonical.RescheduleAppointmentRequest) (*canonical.Schedule, error) {
	return nil, c.notImplemented("RescheduleAppointment")
}

func (c *Client) ListAvailableSlots(ctx context.Context, req canonical.SlotsRequest) ([]canonical.Slot, error) {
	return nil, c.notImplemented("ListAvailableSlots")
}

func (c *Client) GetAppointmentValue(ctx context.Context, req canonical.AppointmentValueRequest) (*canonical.AppointmentValue, error) {
	return nil, c.notImplemented("GetAppointmentValue")
}

func (c *Client) notImplemented(method string) error {
	return faults.New(faults.KindNotImplemented, "sollux."+method, "sollux does not support %s", method)
}

func (c *Client) CancelAppointment(ctx context.Context, req canonical.CancelAppointmentRequest) error {
	const op = "sollux.CancelAppointment"
	q := url.Values{}
	q.Set("agenda_id", req.AppointmentCode)
	q.Set("patient_id", req.PatientCode)
	return c.do(ctx, op, http.MethodPost, "/agenda/cancel", q, nil)
}

func (c *Client) ConfirmAppointment(ctx context.Context, scheduleCode string) error {
	const op = "sollux.ConfirmAppointment"
	q := url.Values{}
	q.Set("agenda_id", scheduleCode)
	return c.do(ctx, op, http.MethodPost, "/agenda/confirm", q, nil)
}

func (c *Client) ListSchedulesToConfirm(ctx context.Context, req canonical.ListSchedulesToConfirmRequest) ([]canonical.Schedule, error) {
	const op = "sollux.ListSchedulesToConfirm"
	start, end, err := req.Window(c.loc)
	if err != nil {
		return nil, faults.Wrap(faults.KindBadRequest, op, err)
	}
	q := url.Values{}
	q.Set("start", start.Format("2006-01-02"))
	q.Set("end", end.Format("2006-01-02"))
	var resp struct {
		Agenda []agendaEntry `json:"agenda"`
	}
	if err := c.do(ctx, op, http.MethodGet, "/agenda/pending", q, &resp); err != nil {
		return nil, err
	}
	schedules := make([]canonical.Schedule, 0, len(resp.Agenda))
	for _, entry := range resp.Agenda {
		sched, err := c.toCanonical(entry)
		if err != nil {
			return nil, faults.Wrap(faults.KindUpstreamError, op, err)
		}
		schedules = append(schedules, *sched)
	}
	return schedules, nil
}

func (c *Client) ListReferenceEntities(ctx context.Context, kind canonical.ReferenceKind) ([]canonical.Entity, error) {
	const op = "sollux.ListReferenceEntities"
	if !canonical.KnownReferenceKind(kind) {
		return nil, faults.New(faults.KindBadRequest, op, "unknown reference kind %q", kind)
	}
	q := url.Values{}
	q.Set("table", string(kind))
	var resp struct {
		Rows []struct {
			ID   string `json:"id"`
			Desc string `json:"desc"`
		} `json:"rows"`
	}
	if err := c.do(ctx, op, http.MethodGet, "/tables", q, &resp); err != nil {
		return nil, err
	}
	entities := make([]canonical.Entity, 0, len(resp.Rows))
	for _, row := range resp.Rows {
		entities = append(entities, canonical.Entity{Code: row.ID, Name: row.Desc})
	}
	return entities, nil
}

type agendaEntry struct {
	AgendaID    string         `json:"agenda_id"`
	AgendaDate  string         `json:"agenda_date"` // date only, no clock
	Situation   string         `json:"situation"`   // "P" pending, "C" confirmed, "X" canceled
	PatientID   string         `json:"patient_id"`
	PatientName string         `json:"patient_name"`
	Phone       string         `json:"phone"`
	DoctorID    string         `json:"doctor_id"`
	DoctorName  string         `json:"doctor_name"`
	UnitID      string         `json:"unit_id"`
	UnitName    string         `json:"unit_name"`
	Payload     map[string]any `json:"payload"`
}

func (c *Client) toCanonical(entry agendaEntry) (*canonical.Schedule, error) {
	if entry.AgendaID == "" {
		return nil, fmt.Errorf("sollux: agenda entry without agenda_id")
	}
	when, err := canonical.ParseVendorTime(entry.AgendaDate, c.loc)
	if err != nil {
		return nil, fmt.Errorf("sollux: agenda %s: %w", entry.AgendaID, err)
	}
	status := canonical.StatusExtracted
	switch entry.Situation {
	case "C":
		status = canonical.StatusConfirmed
	case "X":
		status = canonical.StatusCanceled
	}
	return &canonical.Schedule{
		WorkspaceID:   c.integ.WorkspaceID,
		IntegrationID: c.integ.ID,
		ScheduleCode:  entry.AgendaID,
		ScheduleDate:  when,
		Status:        status,
		Patient: canonical.Patient{
			Code:  entry.PatientID,
			Name:  entry.PatientName,
			Phone: entry.Phone,
		},
		Doctor:           canonical.Entity{Code: entry.DoctorID, Name: entry.DoctorName},
		OrganizationUnit: canonical.Entity{Code: entry.UnitID, Name: entry.UnitName},
		// Date-only agendas are first-come-first-served by definition.
		FirstComeFirstServed: true,
		Data:                 entry.Payload,
	}, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, q url.Values, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	endpoint := strings.TrimSuffix(c.integ.BaseURL, "/") + path
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		return faults.Wrap(faults.KindUpstreamError, op, err)
	}
	req.SetBasicAuth(c.integ.Credentials.Username, c.integ.Credentials.Password)
	req.Header.Set("Accept", "application/json")

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
