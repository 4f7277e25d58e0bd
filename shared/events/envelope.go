package events

import (
	"time"

	"github.com/google/uuid"
)

// Meta describes an emitted event.
type Meta struct {
	ID            string    `json:"id"`
	CorrelationID string    `json:"correlation_id,omitempty"`
	Producer      string    `json:"producer,omitempty"`
	Time          time.Time `json:"time"`
	Type          string    `json:"type"`
}

type Envelope struct {
	Meta Meta `json:"meta"`
	Data any  `json:"data"`
}

// NewEnvelope stamps data with a fresh id and the current UTC time.
func NewEnvelope(eventType, producer, correlationID string, data any) Envelope {
	id := uuid.NewString()
	if correlationID == "" {
		correlationID = id
	}
	return Envelope{
		Meta: Meta{
			ID:            id,
			CorrelationID: correlationID,
			Producer:      producer,
			Time:          time.Now().UTC(),
			Type:          eventType,
		},
		Data: data,
	}
}

const BroadcastCompletedV1 = "broadcast.completed.v1"

// BroadcastCompleted summarises one send-template call.
type BroadcastCompleted struct {
	BroadcastID  string `json:"broadcast_id"`
	OperatorID   string `json:"operator_id,omitempty"`
	TemplateName string `json:"template_name"`
	LanguageCode string `json:"language_code"`
	TotalClients int    `json:"total_clients"`
	Successful   int    `json:"successful"`
	Failed       int    `json:"failed"`
}
