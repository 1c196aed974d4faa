package erp

import (
	"strings"

	"github.com/caremesh/erpbridge/internal/faults"
)

// Vendor is the closed set of ERP back offices this layer can talk to.
// Dispatch is a compile-time switch over these values; there is no
// string-keyed lookup into arbitrary code and no default adapter.
type Vendor int

const (
	VendorUnknown Vendor = iota
	VendorMedware
	VendorClinicus
	VendorSollux
)

func (v Vendor) String() string {
	switch v {
	case VendorMedware:
		return "medware"
	case VendorClinicus:
		return "clinicus"
	case VendorSollux:
		return "sollux"
	default:
		return "unknown"
	}
}

// Vendors lists every registered vendor, for capability discovery endpoints
// and tests.
func Vendors() []Vendor {
	return []Vendor{VendorMedware, VendorClinicus, VendorSollux}
}

func validTagSyntax(tag string) bool {
	if tag == "" || len(tag) > 64 {
		return false
	}
	for _, r := range tag {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}

// ParseVendor resolves a vendor tag. A syntactically invalid tag fails
// BadRequest; a well-formed but unregistered tag fails NotImplemented.
func ParseVendor(tag string) (Vendor, error) {
	const op = "erp.ParseVendor"
	normalized := strings.ToLower(strings.TrimSpace(tag))
	if !validTagSyntax(normalized) {
		return VendorUnknown, faults.New(faults.KindBadRequest, op, "invalid vendor tag %q", tag)
	}
	switch normalized {
	case "medware":
		return VendorMedware, nil
	case "clinicus":
		return VendorClinicus, nil
	case "sollux":
		return VendorSollux, nil
	default:
		return VendorUnknown, faults.New(faults.KindNotImplemented, op, "vendor %q is not registered", normalized)
	}
}
