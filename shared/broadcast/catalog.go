package broadcast

import (
	"fmt"
	"strings"

	xerrors "github.com/luiggiberaldi/sistema-cotizaciones-whatsapp/shared/utils/errors"
)

// Template is a Meta-approved message skeleton. Body uses positional
// placeholders {{1}}..{{n}}; ParamLabels and Defaults are indexed the same way.
type Template struct {
	ID           string   `json:"id"`
	Label        string   `json:"label"`
	Body         string   `json:"body"`
	ParamLabels  []string `json:"param_labels"`
	Defaults     []string `json:"defaults"`
	LanguageCode string   `json:"language_code"`
}

// Placeholder returns the positional marker for zero-based slot i.
func Placeholder(i int) string {
	return fmt.Sprintf("{{%d}}", i+1)
}

// DefaultBindings returns a fresh binding slice sized to the template's
// parameter count, filled from its defaults.
func (t Template) DefaultBindings() []string {
	out := make([]string, len(t.ParamLabels))
	for i := range out {
		if i < len(t.Defaults) {
			out[i] = t.Defaults[i]
		}
	}
	return out
}

// Catalog is an ordered, read-only registry of templates.
type Catalog struct {
	order []Template
	byID  map[string]int
}

// NewCatalog validates and indexes the given templates. The first entry is
// the one a composer resets to.
func NewCatalog(templates ...Template) (*Catalog, error) {
	if len(templates) == 0 {
		return nil, fmt.Errorf("catalog: %w: no templates", xerrors.ErrInvalidInput)
	}
	c := &Catalog{byID: make(map[string]int, len(templates))}
	for _, t := range templates {
		if strings.TrimSpace(t.ID) == "" {
			return nil, fmt.Errorf("catalog: %w: template without id", xerrors.ErrInvalidInput)
		}
		if _, dup := c.byID[t.ID]; dup {
			return nil, fmt.Errorf("catalog: %w: duplicate template %q", xerrors.ErrInvalidInput, t.ID)
		}
		if len(t.Defaults) > len(t.ParamLabels) {
			return nil, fmt.Errorf("catalog: %w: template %q has more defaults than params", xerrors.ErrInvalidInput, t.ID)
		}
		c.byID[t.ID] = len(c.order)
		c.order = append(c.order, t)
	}
	return c, nil
}

// First returns the catalog's first entry.
func (c *Catalog) First() Template {
	return c.order[0]
}

// Lookup finds a template by id.
func (c *Catalog) Lookup(id string) (Template, error) {
	i, ok := c.byID[id]
	if !ok {
		return Template{}, fmt.Errorf("%w: %s", xerrors.ErrUnknownTemplate, id)
	}
	return c.order[i], nil
}

// All returns the templates in catalog order.
func (c *Catalog) All() []Template {
	out := make([]Template, len(c.order))
	copy(out, c.order)
	return out
}

var defaultCatalog = mustCatalog(
	Template{
		ID:           "hello_world",
		Label:        "Hello World",
		Body:         "Hola! Gracias por comunicarte con nosotros.",
		LanguageCode: "es",
	},
	Template{
		ID:           "generic_reminder",
		Label:        "Recordatorio genérico",
		Body:         "Hola {{1}}, te recordamos que tu cotización por {{2}} sigue disponible. Fecha: {{3}}.",
		ParamLabels:  []string{"Nombre del cliente", "Total de la cotización", "Fecha"},
		Defaults:     []string{TokenName, TokenTotal, TokenFecha},
		LanguageCode: "es",
	},
	Template{
		ID:           "quote_notification",
		Label:        "Notificación de cotización",
		Body:         "Hola {{1}}, tu cotización {{2}} está lista. Responde a este mensaje para confirmarla.",
		ParamLabels:  []string{"Nombre del cliente", "Número de cotización"},
		Defaults:     []string{TokenName, TokenQuoteID},
		LanguageCode: "es",
	},
	Template{
		ID:           "payment_reminder",
		Label:        "Recordatorio de pago",
		Body:         "Hola {{1}}, tienes un pago pendiente de {{2}}. Vence: {{3}}.",
		ParamLabels:  []string{"Nombre del cliente", "Monto", "Fecha de vencimiento"},
		Defaults:     []string{TokenName, TokenTotal, ""},
		LanguageCode: "es",
	},
)

func mustCatalog(templates ...Template) *Catalog {
	c, err := NewCatalog(templates...)
	if err != nil {
		panic(err)
	}
	return c
}

// DefaultCatalog is the process-wide template registry.
func DefaultCatalog() *Catalog {
	return defaultCatalog
}
