package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Quote is the subset of a stored quote the broadcast flow needs.
type Quote struct {
	ID          int64
	ClientPhone string
	Total       decimal.Decimal
	Status      string
	CreatedAt   time.Time
}

// FormattedTotal renders the total the way the dashboard shows money.
func (q *Quote) FormattedTotal() string {
	if q == nil {
		return "$0.00"
	}
	return "$" + q.Total.StringFixed(2)
}
