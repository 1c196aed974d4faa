package insurance

import (
	"context"

	"github.com/caremesh/erpbridge/internal/faults"
)

// Carrier answers active-plan queries for one external insurance system.
type Carrier interface {
	ActivePlan(ctx context.Context, nationalID string) (*PlanRef, error)
}

// Lookup dispatches plan queries to the configured carrier clients. The set
// is fixed at construction; there is no runtime registration surface.
type Lookup struct {
	carriers map[Provider]Carrier
}

func NewLookup(carriers map[Provider]Carrier) *Lookup {
	return &Lookup{carriers: carriers}
}

// ActivePlan resolves the carrier from its tag and runs the query. A tag this
// deployment has no client for fails as NotImplemented even when the build
// knows the provider: carriers are opt-in per environment.
func (l *Lookup) ActivePlan(ctx context.Context, providerTag, nationalID string) (*PlanRef, error) {
	const op = "insurance.ActivePlan"

	provider, err := ParseProvider(providerTag)
	if err != nil {
		return nil, err
	}
	if !ValidNationalID(nationalID) {
		return nil, faults.New(faults.KindBadRequest, op, "malformed national id")
	}
	carrier, ok := l.carriers[provider]
	if !ok {
		return nil, faults.New(faults.KindNotImplemented, op, "provider %s not configured", provider)
	}
	return carrier.ActivePlan(ctx, nationalID)
}
