package xerrors

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type RepoError struct {
	Entity string
	Code   string
	Msg    string
}

func (e *RepoError) Error() string {
	return e.Entity + ": " + e.Msg + " (" + e.Code + ")"
}

func ParsePGErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code // e.g. 42P01 for undefined_table
	}
	return "unknown"
}

// FromPG maps driver errors onto the sentinels below.
func FromPG(entity string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return &RepoError{Entity: entity, Code: ParsePGErrorCode(err), Msg: err.Error()}
}

// Generic
var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrInternalServer = errors.New("internal server error")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrNotFound       = errors.New("not found")
	ErrInvalidInput   = errors.New("invalid input provided")
)

// Token
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("expired token")
	ErrNoToken      = errors.New("no session token available")
)

// Broadcast
var (
	ErrUnknownTemplate = errors.New("unknown template")
	ErrNoClients       = errors.New("at least one client is required")
	ErrTemplateName    = errors.New("template_name is required")
	ErrInvalidPhone    = errors.New("invalid phone number")
)

// Composer
var (
	ErrComposerClosed = errors.New("composer is closed")
	ErrComposerBusy   = errors.New("composer is sending")
	ErrParamIndex     = errors.New("parameter index out of range")
	ErrSessionExpired = errors.New("composer session expired")
)
