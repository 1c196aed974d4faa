// Package api holds the shared HTTP plumbing: JSON responses and the mapping
// from the internal fault taxonomy to status codes.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/caremesh/erpbridge/internal/faults"
	"github.com/caremesh/erpbridge/pkg/logging"
)

// WriteJSON writes v as a JSON body with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v)
	}
}

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// StatusForKind maps a fault kind to the HTTP status the gateway returns.
func StatusForKind(kind faults.Kind) int {
	switch kind {
	case faults.KindBadRequest:
		return http.StatusBadRequest
	case faults.KindNotImplemented:
		return http.StatusNotImplemented
	case faults.KindUpstreamTimeout:
		return http.StatusGatewayTimeout
	case faults.KindUpstreamError:
		return http.StatusBadGateway
	case faults.KindExtractionFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// WriteError classifies err and writes the matching status plus a small JSON
// body. Unclassified errors are logged and returned as a bare 500 so internal
// detail never reaches callers.
func WriteError(w http.ResponseWriter, logger *logging.Logger, err error) {
	kind := faults.KindOf(err)
	status := StatusForKind(kind)
	if status == http.StatusInternalServerError {
		if logger == nil {
			logger = logging.Default()
		}
		logger.Error("unclassified request failure", "error", err)
		WriteJSON(w, status, errorBody{Error: "internal error", Kind: kind.String()})
		return
	}
	WriteJSON(w, status, errorBody{Error: err.Error(), Kind: kind.String()})
}
