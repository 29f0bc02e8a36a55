package auth

import (
	"context"

	"membercore/internal/token"
)

type ctxKey string

const claimsKey ctxKey = "sessionClaims"

func WithClaims(ctx context.Context, c *token.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, c)
}

func FromContext(ctx context.Context) *token.Claims {
	if v, ok := ctx.Value(claimsKey).(*token.Claims); ok {
		return v
	}
	return &token.Claims{}
}

func Subject(ctx context.Context) string {
	return FromContext(ctx).Name
}
