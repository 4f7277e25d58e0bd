package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/luiggiberaldi/sistema-cotizaciones-whatsapp/shared/broadcast"
	xerrors "github.com/luiggiberaldi/sistema-cotizaciones-whatsapp/shared/utils/errors"
)

// CustomerRepository reads the consumers table. A customer's status is the
// status of their most recent quote.
type CustomerRepository interface {
	List(ctx context.Context, filter broadcast.CustomerFilter, limit int) ([]broadcast.Customer, error)
}

type pgCustomerRepo struct {
	db *pgxpool.Pool
}

func NewCustomerRepository(db *pgxpool.Pool) CustomerRepository {
	return &pgCustomerRepo{db: db}
}

func (p *pgCustomerRepo) List(ctx context.Context, filter broadcast.CustomerFilter, limit int) ([]broadcast.Customer, error) {
	query := `
		SELECT c.phone, COALESCE(c.name, ''), COALESCE(q.status, 'draft')
		FROM consumers c
		LEFT JOIN LATERAL (
			SELECT status
			FROM quotes
			WHERE client_phone = c.phone
			ORDER BY created_at DESC
			LIMIT 1
		) q ON true
		WHERE ($1 = '' OR c.name ILIKE '%' || $1 || '%' OR c.phone ILIKE '%' || $1 || '%')
		  AND ($2 = '' OR COALESCE(q.status, 'draft') = $2)
		ORDER BY c.created_at DESC
		LIMIT $3
	`

	rows, err := p.db.Query(ctx, query, filter.Q, filter.Status, limit)
	if err != nil {
		return nil, xerrors.FromPG("customer", err)
	}
	defer rows.Close()

	customers := make([]broadcast.Customer, 0)
	for rows.Next() {
		var c broadcast.Customer
		var status string
		if err := rows.Scan(&c.PhoneNumber, &c.FullName, &status); err != nil {
			return nil, xerrors.FromPG("customer", err)
		}
		c.Status = broadcast.CustomerStatus(status)
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, xerrors.FromPG("customer", err)
	}
	return customers, nil
}
