package medware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/caremesh/erpbridge/internal/canonical"
	"github.com/caremesh/erpbridge/internal/erp"
	"github.com/caremesh/erpbridge/internal/faults"
)

func testIntegration(baseURL string) erp.Integration {
	return erp.Integration{
		ID:          "int-1",
		WorkspaceID: "ws-1",
		Vendor:      erp.VendorMedware,
		BaseURL:     baseURL,
		Credentials: erp.Credentials{BearerToken: "tok-123"},
	}
}

func TestCreateAppointmentMapsToCanonical(t *testing.T) {
	var gotAuth string
	var gotBody bookingBody
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/appointments", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(apptRecord{
			ApptCd:       "A1",
			ApptDt:       "2024-01-10T10:00:00",
			StatusCd:     "booked",
			PatientCd:    "P1",
			PatientNm:    "Maria Souza",
			InsuranceCd:  "INS1",
			InsuranceNm:  "Vida Care",
			ProcedureCd:  "PR1",
			SpecialityCd: "SP1",
		})
	}))
	defer srv.Close()

	client, err := New(testIntegration(srv.URL), srv.Client())
	require.NoError(t, err)

	sched, err := client.CreateAppointment(context.Background(), canonical.CreateAppointmentRequest{
		Patient:     canonical.PatientParam{Code: "P1", Name: "Maria Souza"},
		Appointment: canonical.AppointmentParam{Code: "A1", Date: "2024-01-10T10:00:00"},
		Insurance:   canonical.CodeRef{Code: "INS1"},
		Procedure:   canonical.ProcedureParam{Code: "PR1", SpecialityCode: "SP1", SpecialityType: "exam"},
	})
	require.NoError(t, err)

	require.Equal(t, "Bearer tok-123", gotAuth)
	require.Equal(t, "P1", gotBody.PatientCd)
	require.Equal(t, "PR1", gotBody.ProcedureCd)

	require.Equal(t, "ws-1", sched.WorkspaceID)
	require.Equal(t, "int-1", sched.IntegrationID)
	require.Equal(t, "A1", sched.ScheduleCode)
	require.Equal(t, canonical.StatusExtracted, sched.Status)
	require.Equal(t, "Vida Care", sched.Insurance.Name)
	require.True(t, sched.Doctor.IsZero(), "absent vendor fields must stay unset")
	require.Equal(t, time.Date(2024, 1, 10, 10, 0, 0, 0, time.UTC), sched.ScheduleDate.UTC())
}

func TestListSchedulesToConfirmErpParams(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/appointments", r.URL.Path)
		require.Equal(t, "true", r.URL.Query().Get("needsConfirmation"))
		json.NewEncoder(w).Encode(apptListResponse{Appointments: []apptRecord{
			{ApptCd: "A1", ApptDt: "2024-01-10", StatusCd: "pending", PatientPhone: "+5511900000001"},
			{ApptCd: "A2", ApptDt: "2024-01-11", StatusCd: "pending", PatientPhone: "+5511900000002"},
			{ApptCd: "A3", ApptDt: "2024-01-12", StatusCd: "pending", PatientPhone: "+5511900000003"},
		}})
	}))
	defer srv.Close()

	client, err := New(testIntegration(srv.URL), srv.Client())
	require.NoError(t, err)

	schedules, err := client.ListSchedulesToConfirm(context.Background(), canonical.ListSchedulesToConfirmRequest{
		StartDate: "2024-01-01",
		EndDate:   "2024-01-31",
		ErpParams: map[string]any{"maxResults": float64(2), "forcePhone": "+5511999999999"},
	})
	require.NoError(t, err)
	require.Len(t, schedules, 2)
	for _, s := range schedules {
		require.Equal(t, "+5511999999999", s.Patient.Phone)
	}
}

func TestCancelForwardsOpaqueParams(t *testing.T) {
	var gotBody cancelPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/appointments/A1/cancel", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client, err := New(testIntegration(srv.URL), srv.Client())
	require.NoError(t, err)

	err = client.CancelAppointment(context.Background(), canonical.CancelAppointmentRequest{
		AppointmentCode: "A1",
		PatientCode:     "P1",
		ErpParams:       map[string]any{"motivo": "paciente desistiu"},
	})
	require.NoError(t, err)
	require.Equal(t, "P1", gotBody.PatientCd)
	require.Equal(t, map[string]any{"motivo": "paciente desistiu"}, gotBody.Params)
}

func TestVendorErrorBecomesUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"slot taken"}`, http.StatusConflict)
	}))
	defer srv.Close()

	client, err := New(testIntegration(srv.URL), srv.Client())
	require.NoError(t, err)

	err = client.CancelAppointment(context.Background(), canonical.CancelAppointmentRequest{
		AppointmentCode: "A1", PatientCode: "P1",
	})
	require.Error(t, err)
	require.Equal(t, faults.KindUpstreamError, faults.KindOf(err))
}

func TestSlowVendorBecomesUpstreamTimeout(t *testing.T) {
	blocked := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-blocked
	}))
	defer srv.Close()
	defer close(blocked)

	integ := testIntegration(srv.URL)
	integ.Timeout = 50 * time.Millisecond
	client, err := New(integ, srv.Client())
	require.NoError(t, err)

	err = client.ConfirmAppointment(context.Background(), "A1")
	require.Error(t, err)
	require.Equal(t, faults.KindUpstreamTimeout, faults.KindOf(err))
}

func TestListReferenceEntitiesRejectsUnknownKind(t *testing.T) {
	client, err := New(testIntegration("http://unused.invalid"), nil)
	require.NoError(t, err)

	_, err = client.ListReferenceEntities(context.Background(), canonical.ReferenceKind("pets"))
	require.Equal(t, faults.KindBadRequest, faults.KindOf(err))
}

func TestMalformedVendorDateBecomesUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(apptRecord{ApptCd: "A1", ApptDt: "10/01/2024", StatusCd: "booked"})
	}))
	defer srv.Close()

	client, err := New(testIntegration(srv.URL), srv.Client())
	require.NoError(t, err)

	_, err = client.CreateAppointment(context.Background(), canonical.CreateAppointmentRequest{
		Patient:     canonical.PatientParam{Code: "P1"},
		Appointment: canonical.AppointmentParam{Code: "A1", Date: "2024-01-10T10:00:00"},
		Insurance:   canonical.CodeRef{Code: "INS1"},
		Procedure:   canonical.ProcedureParam{Code: "PR1", SpecialityCode: "SP1", SpecialityType: "exam"},
	})
	require.Equal(t, faults.KindUpstreamError, faults.KindOf(err))
}
