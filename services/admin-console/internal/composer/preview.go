package composer

import (
	"strings"

	"github.com/luiggiberaldi/sistema-cotizaciones-whatsapp/shared/broadcast"
)

// Sample values shown in place of magic tokens. They are display-only.
var previewSamples = map[string]string{
	broadcast.TokenName:    "Juan Pérez",
	broadcast.TokenTotal:   "$150.00",
	broadcast.TokenFecha:   "25/12/2025",
	broadcast.TokenQuoteID: "#1024",
}

// RenderPreview fills tpl's positional placeholders with bindings. Empty
// slots show "[label]" and magic tokens show their sample value.
func RenderPreview(tpl broadcast.Template, bindings []string) string {
	pairs := make([]string, 0, 2*len(tpl.ParamLabels))
	for i, label := range tpl.ParamLabels {
		var value string
		if i < len(bindings) {
			value = strings.TrimSpace(bindings[i])
		}
		switch {
		case broadcast.IsMagicToken(value):
			value = previewSamples[value]
		case value == "":
			value = "[" + label + "]"
		}
		pairs = append(pairs, broadcast.Placeholder(i), value)
	}
	if len(pairs) == 0 {
		return tpl.Body
	}
	return strings.NewReplacer(pairs...).Replace(tpl.Body)
}
