package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/luiggiberaldi/sistema-cotizaciones-whatsapp/services/broadcast-service/internal/domain"
	xerrors "github.com/luiggiberaldi/sistema-cotizaciones-whatsapp/shared/utils/errors"
)

type QuoteRepository interface {
	// LatestByPhone returns the newest quote for a normalized phone, or
	// xerrors.ErrNotFound.
	LatestByPhone(ctx context.Context, phone string) (*domain.Quote, error)
}

type pgQuoteRepo struct {
	db *pgxpool.Pool
}

func NewQuoteRepository(db *pgxpool.Pool) QuoteRepository {
	return &pgQuoteRepo{db: db}
}

func (p *pgQuoteRepo) LatestByPhone(ctx context.Context, phone string) (*domain.Quote, error) {
	query := `
		SELECT id, client_phone, total::text, COALESCE(status, 'draft'), created_at
		FROM quotes
		WHERE regexp_replace(client_phone, '[^0-9]', '', 'g') = $1
		ORDER BY created_at DESC
		LIMIT 1
	`

	var q domain.Quote
	var total string
	err := p.db.QueryRow(ctx, query, phone).Scan(&q.ID, &q.ClientPhone, &total, &q.Status, &q.CreatedAt)
	if err != nil {
		return nil, xerrors.FromPG("quote", err)
	}
	q.Total, err = decimal.NewFromString(total)
	if err != nil {
		return nil, fmt.Errorf("quote %d: parse total %q: %w", q.ID, total, err)
	}
	return &q, nil
}
