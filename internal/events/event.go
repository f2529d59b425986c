package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	GasConsumptionCreated = "GAS_CONSUMPTION_CREATED"
	GasConsumptionUpdated = "GAS_CONSUMPTION_UPDATED"
	GccCreated            = "GCC_CREATED"
	GccApprovedByAdmin    = "GCC_APPROVED_BY_ADMIN"
	GccApprovedByCustomer = "GCC_APPROVED_BY_CUSTOMER"
	GccDue                = "GCC_DUE"
	InvoiceAdviceCreated  = "INVOICE_ADVICE_CREATED"
	InvoiceCreated        = "INVOICE_CREATED"
	InvoicePaid           = "INVOICE_PAID"
)

// Event is the JSON envelope written to every queue.
type Event struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload"`
}

func NewEvent(eventType string, payload any, now time.Time) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		OccurredAt: now.UTC(),
		Payload:    payload,
	}
}

func (e Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}
