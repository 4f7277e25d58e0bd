package composer

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/luiggiberaldi/sistema-cotizaciones-whatsapp/shared/broadcast"
	"github.com/luiggiberaldi/sistema-cotizaciones-whatsapp/shared/utils/phone"
)

const fallbackRecipientName = "Cliente"

// InitialEntry is a caller-supplied preselected recipient, e.g. a quote row.
type InitialEntry struct {
	Name    string   `json:"name"`
	Phone   string   `json:"phone"`
	QuoteID QuoteRef `json:"quote_id,omitempty"`
}

// QuoteRef is a quote id as the caller sent it. It accepts a JSON number or
// string so that non-numeric values survive decoding and resolve to no id.
type QuoteRef string

func (q *QuoteRef) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*q = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*q = QuoteRef(s)
		return nil
	}
	*q = QuoteRef(b)
	return nil
}

// Int returns the numeric quote id, or nil when absent or not an integer.
func (q QuoteRef) Int() *int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(string(q)), 10, 64)
	if err != nil {
		return nil
	}
	return &n
}

// Resolver maps a phone identity to the record sent to the backend. A
// fetched customer wins over an initial entry; when several initial entries
// share an identity the last one wins.
type Resolver struct {
	customers map[string]broadcast.Customer
	initial   map[string]InitialEntry
}

func NewResolver(customers []broadcast.Customer, initial []InitialEntry) *Resolver {
	r := &Resolver{
		customers: make(map[string]broadcast.Customer, len(customers)),
		initial:   make(map[string]InitialEntry, len(initial)),
	}
	for _, c := range customers {
		r.customers[phone.Normalize(c.PhoneNumber)] = c
	}
	for _, e := range initial {
		r.initial[phone.Normalize(e.Phone)] = e
	}
	return r
}

func (r *Resolver) Resolve(identity string) broadcast.ClientInfo {
	client := broadcast.ClientInfo{Phone: identity, Name: fallbackRecipientName}

	entry, hasEntry := r.initial[identity]
	if c, ok := r.customers[identity]; ok && strings.TrimSpace(c.FullName) != "" {
		client.Name = c.FullName
	} else if hasEntry && strings.TrimSpace(entry.Name) != "" {
		client.Name = entry.Name
	}
	if hasEntry {
		client.QuoteID = entry.QuoteID.Int()
	}
	return client
}
