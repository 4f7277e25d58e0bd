package broadcast

// ClientInfo is one recipient of a template broadcast.
type ClientInfo struct {
	Phone   string `json:"phone"`
	Name    string `json:"name"`
	QuoteID *int64 `json:"quote_id"`
}

// SendTemplateRequest is the body of POST /broadcast/send-template.
type SendTemplateRequest struct {
	Clients      []ClientInfo `json:"clients"`
	TemplateName string       `json:"template_name"`
	LanguageCode string       `json:"language_code"`
	Parameters   []string     `json:"parameters"`
}

// SendResult is the per-recipient outcome of a broadcast.
type SendResult struct {
	Phone     string `json:"phone"`
	Success   bool   `json:"success"`
	MessageID string `json:"message_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

// SendResponse is the backend's answer to a broadcast.
type SendResponse struct {
	Status       string       `json:"status"`
	TotalClients int          `json:"total_clients"`
	Successful   int          `json:"successful"`
	Failed       int          `json:"failed"`
	Results      []SendResult `json:"results"`
}

// CustomerStatus is the lifecycle state of a customer record.
type CustomerStatus string

const (
	StatusDraft    CustomerStatus = "draft"
	StatusApproved CustomerStatus = "approved"
)

// Customer is a row of the customer list as the backend returns it.
type Customer struct {
	PhoneNumber string         `json:"phone_number"`
	FullName    string         `json:"full_name"`
	Status      CustomerStatus `json:"status"`
}

// CustomerFilter narrows the customer list.
type CustomerFilter struct {
	Q      string `json:"q"`
	Status string `json:"status"`
}
