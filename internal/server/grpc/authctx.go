package grpcserver

import (
	"context"
)

type ctxKey string

const principalKey ctxKey = "mdd.principal"

// WithPrincipal stores the authenticated principal (token subject) in context.
func WithPrincipal(ctx context.Context, principal string) context.Context {
	return context.WithValue(ctx, principalKey, principal)
}

// PrincipalFromCtx fetches the principal from context.
func PrincipalFromCtx(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(principalKey).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}
