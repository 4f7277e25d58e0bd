package composer

import (
	"sort"

	"github.com/luiggiberaldi/sistema-cotizaciones-whatsapp/shared/broadcast"
	"github.com/luiggiberaldi/sistema-cotizaciones-whatsapp/shared/utils/phone"
)

// RecipientSet is the set of selected phone identities. Every entry point
// normalizes its input; empty identities are never stored.
type RecipientSet map[string]struct{}

func NewRecipientSet() RecipientSet {
	return make(RecipientSet)
}

// Seed adds the phones of initial, but only while the set is empty. It
// reports whether seeding happened.
func (s RecipientSet) Seed(initial []InitialEntry) bool {
	if len(s) > 0 {
		return false
	}
	for _, e := range initial {
		s.add(e.Phone)
	}
	return true
}

// Toggle flips membership of rawPhone and returns the new membership.
func (s RecipientSet) Toggle(rawPhone string) bool {
	id := phone.Normalize(rawPhone)
	if id == "" {
		return false
	}
	if _, ok := s[id]; ok {
		delete(s, id)
		return false
	}
	s[id] = struct{}{}
	return true
}

func (s RecipientSet) Contains(rawPhone string) bool {
	_, ok := s[phone.Normalize(rawPhone)]
	return ok
}

// SelectAllVisible adds every visible customer. Selections outside visible
// are kept.
func (s RecipientSet) SelectAllVisible(visible []broadcast.Customer) {
	for _, c := range visible {
		s.add(c.PhoneNumber)
	}
}

// DeselectAllVisible removes only the visible customers.
func (s RecipientSet) DeselectAllVisible(visible []broadcast.Customer) {
	for _, c := range visible {
		delete(s, phone.Normalize(c.PhoneNumber))
	}
}

// IsAllVisibleSelected is false for an empty list.
func (s RecipientSet) IsAllVisibleSelected(visible []broadcast.Customer) bool {
	if len(visible) == 0 {
		return false
	}
	for _, c := range visible {
		if !s.Contains(c.PhoneNumber) {
			return false
		}
	}
	return true
}

// Identities returns the members in ascending order.
func (s RecipientSet) Identities() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (s RecipientSet) add(rawPhone string) {
	if id := phone.Normalize(rawPhone); id != "" {
		s[id] = struct{}{}
	}
}
