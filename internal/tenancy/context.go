package tenancy

import "context"

type ctxKey string

const workspaceKey ctxKey = "erpbridge.workspace_id"

// WithWorkspaceID stores the workspace id in context.
func WithWorkspaceID(ctx context.Context, workspaceID string) context.Context {
	return context.WithValue(ctx, workspaceKey, workspaceID)
}

// WorkspaceIDFromContext extracts the workspace id if present.
func WorkspaceIDFromContext(ctx context.Context) (string, bool) {
	val := ctx.Value(workspaceKey)
	if val == nil {
		return "", false
	}
	workspaceID, ok := val.(string)
	return workspaceID, ok && workspaceID != ""
}
