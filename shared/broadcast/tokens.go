package broadcast

// Magic tokens are parameter values the backend replaces per recipient at
// send time. The dashboard passes them through untouched.
const (
	TokenName    = "{{name}}"
	TokenTotal   = "{{total}}"
	TokenFecha   = "{{fecha}}"
	TokenQuoteID = "{{quote_id}}"
)

var magicTokens = map[string]struct{}{
	TokenName:    {},
	TokenTotal:   {},
	TokenFecha:   {},
	TokenQuoteID: {},
}

// IsMagicToken reports whether v is one of the tokens shared with the backend.
func IsMagicToken(v string) bool {
	_, ok := magicTokens[v]
	return ok
}
