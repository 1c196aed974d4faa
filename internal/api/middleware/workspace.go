package middleware

import (
	"net/http"

	"github.com/caremesh/erpbridge/internal/tenancy"
)

// WorkspaceHeader is the header tenants identify themselves with.
const WorkspaceHeader = "X-Workspace-ID"

// RequireWorkspace reads the workspace header into the request context. Every
// tenant-scoped route sits behind it; requests without the header stop here.
func RequireWorkspace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		workspaceID := r.Header.Get(WorkspaceHeader)
		if workspaceID == "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"missing ` + WorkspaceHeader + ` header"}`))
			return
		}
		ctx := tenancy.WithWorkspaceID(r.Context(), workspaceID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
