package composer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/luiggiberaldi/sistema-cotizaciones-whatsapp/shared/broadcast"
)

func customers(phones ...string) []broadcast.Customer {
	out := make([]broadcast.Customer, len(phones))
	for i, p := range phones {
		out[i] = broadcast.Customer{PhoneNumber: p, FullName: "C" + p}
	}
	return out
}

func TestToggleIsItsOwnInverse(t *testing.T) {
	s := NewRecipientSet()
	s.Toggle("+58 412-111")

	for _, p := range []string{"+58 412-111", "58412222", " +1-555 "} {
		before := s.Contains(p)
		s.Toggle(p)
		s.Toggle(p)
		assert.Equal(t, before, s.Contains(p), p)
	}
}

func TestToggleDeduplicatesFormatting(t *testing.T) {
	s := NewRecipientSet()
	assert.True(t, s.Toggle("+555-1234"))
	assert.True(t, s.Contains("555 1234"))
	assert.False(t, s.Toggle("5551234"))
	assert.Empty(t, s)
}

func TestToggleIgnoresEmptyIdentity(t *testing.T) {
	s := NewRecipientSet()
	assert.False(t, s.Toggle(" + - "))
	assert.Empty(t, s)
}

func TestSeedOnlyWhenEmpty(t *testing.T) {
	s := NewRecipientSet()
	assert.True(t, s.Seed([]InitialEntry{{Phone: "+555-1234"}, {Phone: "555 1234"}, {Phone: ""}}))
	assert.Equal(t, []string{"5551234"}, s.Identities())

	assert.False(t, s.Seed([]InitialEntry{{Phone: "999"}}))
	assert.Equal(t, []string{"5551234"}, s.Identities())
}

func TestSelectAllVisibleKeepsOutsideSelections(t *testing.T) {
	s := NewRecipientSet()
	s.Toggle("111")
	visible := customers("+222", "3-33")

	assert.False(t, s.IsAllVisibleSelected(visible))
	s.SelectAllVisible(visible)
	assert.True(t, s.IsAllVisibleSelected(visible))
	assert.Equal(t, []string{"111", "222", "333"}, s.Identities())

	s.DeselectAllVisible(visible)
	assert.Equal(t, []string{"111"}, s.Identities())
}

func TestIsAllVisibleSelectedEmptyList(t *testing.T) {
	s := NewRecipientSet()
	s.Toggle("111")
	assert.False(t, s.IsAllVisibleSelected(nil))
}
