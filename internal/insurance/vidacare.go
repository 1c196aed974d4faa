package insurance

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/caremesh/erpbridge/internal/faults"
)

// VidacareClient queries the Vidacare beneficiary REST API.
type VidacareClient struct {
	baseURL string
	token   string
	http    *http.Client
	timeout time.Duration
}

func NewVidacareClient(baseURL, token string, httpClient *http.Client, timeout time.Duration) *VidacareClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &VidacareClient{baseURL: baseURL, token: token, http: httpClient, timeout: timeout}
}

type vidacarePlan struct {
	Plan struct {
		Code     string `json:"code"`
		Name     string `json:"name"`
		Contract string `json:"contract"`
	} `json:"plan"`
	SubPlan struct {
		Code string `json:"code"`
		Name string `json:"name"`
	} `json:"subPlan"`
	Card struct {
		Number string `json:"number"`
		Holder string `json:"holder"`
	} `json:"card"`
	Active bool `json:"active"`
}

func (c *VidacareClient) ActivePlan(ctx context.Context, nationalID string) (*PlanRef, error) {
	const op = "vidacare.ActivePlan"

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	url := fmt.Sprintf("%s/beneficiaries/%s/active-plan", c.baseURL, nationalID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, faults.Wrap(faults.KindUpstreamError, op, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, faults.FromUpstream(op, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, faults.New(faults.KindUpstreamError, op, "carrier returned %d: %s", resp.StatusCode, body)
	}

	var payload vidacarePlan
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, faults.Wrap(faults.KindUpstreamError, op, err)
	}
	if !payload.Active {
		return nil, ErrNotFound
	}
	return &PlanRef{
		PlanCode:    payload.Plan.Code,
		PlanName:    payload.Plan.Name,
		SubPlanCode: payload.SubPlan.Code,
		SubPlanName: payload.SubPlan.Name,
		ContractRef: payload.Plan.Contract,
		CardNumber:  payload.Card.Number,
		HolderName:  payload.Card.Holder,
	}, nil
}
