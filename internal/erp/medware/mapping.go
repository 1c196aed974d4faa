package medware

import (
	"fmt"
	"time"

	"github.com/caremesh/erpbridge/internal/canonical"
)

// Medware wire shapes. These never leave this package.

type bookingBody struct {
	ApptCd        string `json:"apptCd"`
	ApptDt        string `json:"apptDt"`
	PatientCd     string `json:"patientCd"`
	PatientNm     string `json:"patientNm,omitempty"`
	PatientPhone  string `json:"patientPhone,omitempty"`
	PatientEmail  string `json:"patientEmail,omitempty"`
	InsuranceCd   string `json:"insuranceCd"`
	ProcedureCd   string `json:"procedureCd"`
	SpecialityCd  string `json:"specialityCd"`
	SpecialityTp  string `json:"specialityTp"`
	DoctorCd      string `json:"doctorCd,omitempty"`
	ApptTypeCd    string `json:"apptTypeCd,omitempty"`
	ServiceTypeCd string `json:"serviceTypeCd,omitempty"`
	UnitCd        string `json:"unitCd,omitempty"`
}

type cancelPayload struct {
	PatientCd   string         `json:"patientCd"`
	ProcedureCd string         `json:"procedureCd,omitempty"`
	Params      map[string]any `json:"params,omitempty"`
}

type reschedulePayload struct {
	PatientCd   string      `json:"patientCd,omitempty"`
	Replacement bookingBody `json:"replacement"`
}

type apptRecord struct {
	ApptCd       string         `json:"apptCd"`
	ApptDt       string         `json:"apptDt"`
	StatusCd     string         `json:"statusCd"`
	PatientCd    string         `json:"patientCd"`
	PatientNm    string         `json:"patientNm"`
	PatientPhone string         `json:"patientPhone"`
	PatientEmail string         `json:"patientEmail"`
	PatientDoc   string         `json:"patientDoc"`
	SpecialityCd string         `json:"specialityCd"`
	SpecialityNm string         `json:"specialityNm"`
	ProcedureCd  string         `json:"procedureCd"`
	ProcedureNm  string         `json:"procedureNm"`
	ApptTypeCd   string         `json:"apptTypeCd"`
	ApptTypeNm   string         `json:"apptTypeNm"`
	InsuranceCd  string         `json:"insuranceCd"`
	InsuranceNm  string         `json:"insuranceNm"`
	PlanCd       string         `json:"planCd"`
	PlanNm       string         `json:"planNm"`
	SubPlanCd    string         `json:"subPlanCd"`
	SubPlanNm    string         `json:"subPlanNm"`
	CategoryCd   string         `json:"categoryCd"`
	CategoryNm   string         `json:"categoryNm"`
	DoctorCd     string         `json:"doctorCd"`
	DoctorNm     string         `json:"doctorNm"`
	UnitCd       string         `json:"unitCd"`
	UnitNm       string         `json:"unitNm"`
	Fcfs         bool           `json:"fcfs"`
	Extra        map[string]any `json:"extra"`
}

type apptListResponse struct {
	Appointments []apptRecord `json:"appointments"`
}

type slotRecord struct {
	SlotCd   string `json:"slotCd"`
	SlotDt   string `json:"slotDt"`
	DoctorCd string `json:"doctorCd"`
	DoctorNm string `json:"doctorNm"`
	UnitCd   string `json:"unitCd"`
	UnitNm   string `json:"unitNm"`
}

type slotsResponse struct {
	Slots []slotRecord `json:"slots"`
}

type catalogItem struct {
	Cd string `json:"cd"`
	Nm string `json:"nm"`
}

type catalogResponse struct {
	Items []catalogItem `json:"items"`
}

type quotePayload struct {
	InsuranceCd  string `json:"insuranceCd"`
	ProcedureCd  string `json:"procedureCd,omitempty"`
	SpecialityCd string `json:"specialityCd,omitempty"`
	DoctorCd     string `json:"doctorCd,omitempty"`
	UnitCd       string `json:"unitCd,omitempty"`
}

type quoteResponse struct {
	AmountCents int64  `json:"amountCents"`
	Currency    string `json:"currency"`
}

// bookingPayload maps a canonical create request onto the Medware dialect.
func bookingPayload(req canonical.CreateAppointmentRequest, loc *time.Location) (bookingBody, error) {
	when, err := req.AppointmentDate(loc)
	if err != nil {
		return bookingBody{}, err
	}
	body := bookingBody{
		ApptCd:       req.Appointment.Code,
		ApptDt:       when.Format(time.RFC3339),
		PatientCd:    req.Patient.Code,
		PatientNm:    req.Patient.Name,
		PatientPhone: req.Patient.Phone,
		PatientEmail: req.Patient.Email,
		InsuranceCd:  req.Insurance.Code,
		ProcedureCd:  req.Procedure.Code,
		SpecialityCd: req.Procedure.SpecialityCode,
		SpecialityTp: req.Procedure.SpecialityType,
	}
	if req.Doctor != nil {
		body.DoctorCd = req.Doctor.Code
	}
	if req.AppointmentType != nil {
		body.ApptTypeCd = req.AppointmentType.Code
	}
	if req.TypeOfService != nil {
		body.ServiceTypeCd = req.TypeOfService.Code
	}
	if req.OrganizationUnit != nil {
		body.UnitCd = req.OrganizationUnit.Code
	}
	return body, nil
}

// toCanonical maps a Medware appointment record into the canonical schedule.
// Absent vendor fields stay unset.
func (c *Client) toCanonical(rec apptRecord) (*canonical.Schedule, error) {
	if rec.ApptCd == "" {
		return nil, fmt.Errorf("medware: appointment record without apptCd")
	}
	when, err := canonical.ParseVendorTime(rec.ApptDt, c.loc)
	if err != nil {
		return nil, fmt.Errorf("medware: appointment %s: %w", rec.ApptCd, err)
	}
	return &canonical.Schedule{
		WorkspaceID:   c.integ.WorkspaceID,
		IntegrationID: c.integ.ID,
		ScheduleCode:  rec.ApptCd,
		ScheduleDate:  when,
		Status:        statusFromVendor(rec.StatusCd),
		Patient: canonical.Patient{
			Code:       rec.PatientCd,
			Name:       rec.PatientNm,
			Phone:      rec.PatientPhone,
			Email:      rec.PatientEmail,
			NationalID: rec.PatientDoc,
		},
		Speciality:           canonical.Entity{Code: rec.SpecialityCd, Name: rec.SpecialityNm},
		Procedure:            canonical.Entity{Code: rec.ProcedureCd, Name: rec.ProcedureNm},
		AppointmentType:      canonical.Entity{Code: rec.ApptTypeCd, Name: rec.ApptTypeNm},
		Insurance:            canonical.Entity{Code: rec.InsuranceCd, Name: rec.InsuranceNm},
		InsurancePlan:        canonical.Entity{Code: rec.PlanCd, Name: rec.PlanNm},
		InsuranceSubPlan:     canonical.Entity{Code: rec.SubPlanCd, Name: rec.SubPlanNm},
		InsuranceCategory:    canonical.Entity{Code: rec.CategoryCd, Name: rec.CategoryNm},
		Doctor:               canonical.Entity{Code: rec.DoctorCd, Name: rec.DoctorNm},
		OrganizationUnit:     canonical.Entity{Code: rec.UnitCd, Name: rec.UnitNm},
		FirstComeFirstServed: rec.Fcfs,
		Data:                 rec.Extra,
	}, nil
}

func statusFromVendor(statusCd string) canonical.Status {
	switch statusCd {
	case "canceled", "cancelled":
		return canonical.StatusCanceled
	case "confirmed":
		return canonical.StatusConfirmed
	default:
		// "pending", "booked" and anything new from the vendor land in
		// extracted; the tracker owns promotion to a terminal state.
		return canonical.StatusExtracted
	}
}

// applyErpParams honors the opaque debug knobs campaigns pass through:
// maxResults truncates, forcePhone overrides every patient phone.
func applyErpParams(schedules []canonical.Schedule, params map[string]any) []canonical.Schedule {
	if len(params) == 0 {
		return schedules
	}
	if v, ok := params["maxResults"]; ok {
		if n, ok := asInt(v); ok && n >= 0 && n < len(schedules) {
			schedules = schedules[:n]
		}
	}
	if phone, ok := params["forcePhone"].(string); ok && phone != "" {
		for i := range schedules {
			schedules[i].Patient.Phone = phone
		}
	}
	return schedules
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}
