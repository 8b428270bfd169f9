package http

import (
	"context"

	"github.com/memocracy/gatekeeper/core"
)

// Context keys
type contextKey string

const (
	// SessionKey is the key for the authenticated session in the context
	SessionKey contextKey = "session"
)

// NewContextWithSession adds the authenticated session to the context
func NewContextWithSession(ctx context.Context, session *core.Session) context.Context {
	return context.WithValue(ctx, SessionKey, session)
}

// SessionFromContext extracts the authenticated session from the context
func SessionFromContext(ctx context.Context) (*core.Session, bool) {
	session, ok := ctx.Value(SessionKey).(*core.Session)
	return session, ok && session != nil
}
