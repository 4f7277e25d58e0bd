package apiclient

import (
	"context"

	"github.com/luiggiberaldi/sistema-cotizaciones-whatsapp/shared/auth/middleware"
	xerrors "github.com/luiggiberaldi/sistema-cotizaciones-whatsapp/shared/utils/errors"
)

// TokenSource yields the bearer token for an outbound request.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a fixed token, for the CLI.
type StaticToken string

func (t StaticToken) Token(context.Context) (string, error) {
	if t == "" {
		return "", xerrors.ErrNoToken
	}
	return string(t), nil
}

// ForwardedToken relays the operator token the auth middleware stored on
// the request context.
type ForwardedToken struct{}

func (ForwardedToken) Token(ctx context.Context) (string, error) {
	if tok, ok := middleware.GetToken(ctx); ok {
		return tok, nil
	}
	return "", xerrors.ErrNoToken
}
