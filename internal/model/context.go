package model

import "context"

// ContextManager stores and retrieves the viewer id on request contexts.
type ContextManager interface {
	SetUserIDToContext(ctx context.Context, userID int64) context.Context
	GetUserIDFromContext(ctx context.Context) (int64, bool)
}
