// Package insurance resolves a patient's active insurance plan from external
// carrier systems. Each carrier speaks its own dialect behind one small
// polymorphic surface; unlike the ERP side there is no per-tenant state, a
// carrier client is configured once at startup.
package insurance

import (
	"errors"
	"regexp"

	"github.com/caremesh/erpbridge/internal/faults"
)

// ErrNotFound means the carrier answered and knows no active plan for the
// national id. It is a domain answer, not a transport failure.
var ErrNotFound = errors.New("insurance: no active plan")

// PlanRef is the carrier's answer: the plan/sub-plan identifier pair the
// patient currently holds. Carriers without a sub-plan tier leave it empty.
type PlanRef struct {
	PlanCode    string `json:"planCode"`
	PlanName    string `json:"planName"`
	SubPlanCode string `json:"subPlanCode,omitempty"`
	SubPlanName string `json:"subPlanName,omitempty"`
	CardNumber  string `json:"cardNumber,omitempty"`
	HolderName  string `json:"holderName,omitempty"`
	ContractRef string `json:"contractRef,omitempty"`
}

// Provider is the closed set of supported carriers.
type Provider int

const (
	ProviderUnknown Provider = iota
	ProviderVidacare
	ProviderPlanmed
)

func (p Provider) String() string {
	switch p {
	case ProviderVidacare:
		return "vidacare"
	case ProviderPlanmed:
		return "planmed"
	default:
		return "unknown"
	}
}

var validProviderTag = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)

// ParseProvider maps a carrier tag to the enum. A syntactically invalid tag
// is the caller's mistake; a well-formed tag this build does not carry is a
// missing capability.
func ParseProvider(tag string) (Provider, error) {
	const op = "insurance.ParseProvider"
	if !validProviderTag.MatchString(tag) {
		return ProviderUnknown, faults.New(faults.KindBadRequest, op, "invalid provider tag %q", tag)
	}
	switch tag {
	case "vidacare":
		return ProviderVidacare, nil
	case "planmed":
		return ProviderPlanmed, nil
	default:
		return ProviderUnknown, faults.New(faults.KindNotImplemented, op, "unsupported provider %q", tag)
	}
}

var nationalIDPattern = regexp.MustCompile(`^[0-9]{8,14}$`)

// ValidNationalID reports whether the id has a plausible document shape.
func ValidNationalID(id string) bool {
	return nationalIDPattern.MatchString(id)
}
