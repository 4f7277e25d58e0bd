package composer

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luiggiberaldi/sistema-cotizaciones-whatsapp/shared/broadcast"
)

func TestResolverPrecedence(t *testing.T) {
	r := NewResolver(
		[]broadcast.Customer{
			{PhoneNumber: "+58 412-111", FullName: "Cliente Tabla"},
			{PhoneNumber: "222", FullName: ""},
		},
		[]InitialEntry{
			{Name: "Desde Fila", Phone: "58412111", QuoteID: "7"},
			{Name: "Beto", Phone: "222", QuoteID: "abc"},
		},
	)

	got := r.Resolve("58412111")
	assert.Equal(t, "Cliente Tabla", got.Name)
	require.NotNil(t, got.QuoteID)
	assert.Equal(t, int64(7), *got.QuoteID)

	got = r.Resolve("222")
	assert.Equal(t, "Beto", got.Name)
	assert.Nil(t, got.QuoteID)

	got = r.Resolve("333")
	assert.Equal(t, broadcast.ClientInfo{Phone: "333", Name: "Cliente"}, got)
}

func TestResolverLastInitialEntryWins(t *testing.T) {
	r := NewResolver(nil, []InitialEntry{
		{Name: "Primera", Phone: "111", QuoteID: "1"},
		{Name: "Segunda", Phone: "1-11", QuoteID: "2"},
	})
	got := r.Resolve("111")
	assert.Equal(t, "Segunda", got.Name)
	assert.Equal(t, int64(2), *got.QuoteID)
}

func TestQuoteRefDecoding(t *testing.T) {
	var entries []InitialEntry
	require.NoError(t, json.Unmarshal([]byte(`[
		{"name":"a","phone":"1","quote_id":7},
		{"name":"b","phone":"2","quote_id":"8"},
		{"name":"c","phone":"3","quote_id":null},
		{"name":"d","phone":"4"}
	]`), &entries))

	assert.Equal(t, int64(7), *entries[0].QuoteID.Int())
	assert.Equal(t, int64(8), *entries[1].QuoteID.Int())
	assert.Nil(t, entries[2].QuoteID.Int())
	assert.Nil(t, entries[3].QuoteID.Int())
}
