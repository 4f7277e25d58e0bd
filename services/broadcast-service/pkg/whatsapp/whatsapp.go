// Package whatsapp is a minimal WhatsApp Cloud API client for template
// messages.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type Client struct {
	baseURL       string
	phoneNumberID string
	accessToken   string
	http          *http.Client
}

func NewClient(apiURL, version, phoneNumberID, accessToken string) *Client {
	return &Client{
		baseURL:       strings.TrimRight(apiURL, "/") + "/" + version,
		phoneNumberID: phoneNumberID,
		accessToken:   accessToken,
		http:          &http.Client{Timeout: 15 * time.Second},
	}
}

// APIError is a non-2xx answer from the Graph API.
type APIError struct {
	Status  int
	Code    int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("whatsapp api status %d", e.Status)
	}
	return fmt.Sprintf("whatsapp api status %d: %s", e.Status, e.Message)
}

type textParam struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type component struct {
	Type       string      `json:"type"`
	Parameters []textParam `json:"parameters"`
}

type templatePayload struct {
	Name     string `json:"name"`
	Language struct {
		Code string `json:"code"`
	} `json:"language"`
	Components []component `json:"components"`
}

type messageRequest struct {
	MessagingProduct string          `json:"messaging_product"`
	RecipientType    string          `json:"recipient_type"`
	To               string          `json:"to"`
	Type             string          `json:"type"`
	Template         templatePayload `json:"template"`
}

type messageResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// SendTemplate sends an approved template to one number (international
// format, no "+") and returns the WhatsApp message id.
func (c *Client) SendTemplate(ctx context.Context, to, name, languageCode string, params []string) (string, error) {
	payload := messageRequest{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               to,
		Type:             "template",
	}
	payload.Template.Name = name
	payload.Template.Language.Code = languageCode
	payload.Template.Components = []component{}
	if len(params) > 0 {
		body := component{Type: "body"}
		for _, p := range params {
			body.Parameters = append(body.Parameters, textParam{Type: "text", Text: p})
		}
		payload.Template.Components = append(payload.Template.Components, body)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal template message: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", c.baseURL, c.phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("whatsapp http error: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		var er errorResponse
		if json.Unmarshal(body, &er) == nil {
			apiErr.Code = er.Error.Code
			apiErr.Message = er.Error.Message
		}
		return "", apiErr
	}

	var mr messageResponse
	if err := json.Unmarshal(body, &mr); err != nil {
		return "", fmt.Errorf("decode whatsapp response: %w", err)
	}
	if len(mr.Messages) == 0 {
		return "", nil
	}
	return mr.Messages[0].ID, nil
}
