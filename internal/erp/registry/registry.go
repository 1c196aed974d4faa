// Package registry resolves the adapter instance for a tenant integration.
// The vendor set is closed: dispatch is a switch over erp.Vendor values built
// at compile time, with no default adapter and no string-keyed reflection.
package registry

import (
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/caremesh/erpbridge/internal/erp"
	"github.com/caremesh/erpbridge/internal/erp/clinicus"
	"github.com/caremesh/erpbridge/internal/erp/medware"
	"github.com/caremesh/erpbridge/internal/erp/sollux"
	"github.com/caremesh/erpbridge/internal/faults"
	"github.com/caremesh/erpbridge/internal/observability/metrics"
)

type Options struct {
	// HTTPClient is shared by all adapters; per-call deadlines come from
	// each integration's timeout.
	HTTPClient *http.Client
	// DefaultTimeout applies when an integration does not set its own.
	DefaultTimeout time.Duration
	Metrics        *metrics.IntegrationMetrics
	Tracer         trace.Tracer
}

type Registry struct {
	httpClient     *http.Client
	defaultTimeout time.Duration
	metrics        *metrics.IntegrationMetrics
	tracer         trace.Tracer
}

func New(opts Options) *Registry {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	timeout := opts.DefaultTimeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = otel.Tracer("erpbridge/erp")
	}
	return &Registry{
		httpClient:     httpClient,
		defaultTimeout: timeout,
		metrics:        opts.Metrics,
		tracer:         tracer,
	}
}

// Adapter builds a fresh, instrumented adapter for the integration. Unknown
// vendors fail closed with NotImplemented.
func (r *Registry) Adapter(integ erp.Integration) (erp.Adapter, error) {
	if integ.Timeout == 0 {
		integ.Timeout = r.defaultTimeout
	}

	var (
		adapter erp.Adapter
		err     error
	)
	switch integ.Vendor {
	case erp.VendorMedware:
		adapter, err = medware.New(integ, r.httpClient)
	case erp.VendorClinicus:
		adapter, err = clinicus.New(integ, r.httpClient)
	case erp.VendorSollux:
		adapter, err = sollux.New(integ, r.httpClient)
	default:
		return nil, faults.New(faults.KindNotImplemented, "registry.Adapter", "no adapter registered for vendor %q", integ.Vendor)
	}
	if err != nil {
		return nil, faults.Wrap(faults.KindBadRequest, "registry.Adapter", err)
	}
	return &instrumented{next: adapter, metrics: r.metrics, tracer: r.tracer}, nil
}
