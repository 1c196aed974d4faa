package insurance

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/caremesh/erpbridge/internal/faults"
)

// PlanmedClient queries the Planmed eligibility endpoint, a legacy form-POST
// API that answers JSON.
type PlanmedClient struct {
	baseURL  string
	clientID string
	secret   string
	http     *http.Client
	timeout  time.Duration
}

func NewPlanmedClient(baseURL, clientID, secret string, httpClient *http.Client, timeout time.Duration) *PlanmedClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &PlanmedClient{baseURL: baseURL, clientID: clientID, secret: secret, http: httpClient, timeout: timeout}
}

type planmedAnswer struct {
	Situacao string `json:"situacao"`
	Plano    struct {
		Codigo string `json:"codigo"`
		Nome   string `json:"nome"`
	} `json:"plano"`
	Subplano struct {
		Codigo string `json:"codigo"`
		Nome   string `json:"nome"`
	} `json:"subplano"`
	Carteirinha string `json:"carteirinha"`
	Titular     string `json:"titular"`
}

func (c *PlanmedClient) ActivePlan(ctx context.Context, nationalID string) (*PlanRef, error) {
	const op = "planmed.ActivePlan"

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	form := url.Values{}
	form.Set("cliente", c.clientID)
	form.Set("chave", c.secret)
	form.Set("documento", nationalID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/elegibilidade", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, faults.Wrap(faults.KindUpstreamError, op, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, faults.FromUpstream(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, faults.New(faults.KindUpstreamError, op, "carrier returned %d: %s", resp.StatusCode, body)
	}

	var payload planmedAnswer
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, faults.Wrap(faults.KindUpstreamError, op, err)
	}

	// Planmed reports absence in-band instead of via status codes.
	switch payload.Situacao {
	case "ATIVO":
	case "INEXISTENTE", "CANCELADO", "SUSPENSO":
		return nil, ErrNotFound
	default:
		return nil, faults.New(faults.KindUpstreamError, op, "unexpected situacao %q", payload.Situacao)
	}

	return &PlanRef{
		PlanCode:    payload.Plano.Codigo,
		PlanName:    payload.Plano.Nome,
		SubPlanCode: payload.Subplano.Codigo,
		SubPlanName: payload.Subplano.Nome,
		CardNumber:  payload.Carteirinha,
		HolderName:  payload.Titular,
	}, nil
}
