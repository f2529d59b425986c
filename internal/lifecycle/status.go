// Package lifecycle defines the ordered status pipeline a gas consumption
// certificate moves through, from creation to confirmed payment.
package lifecycle

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Status is the stored stage of a certificate. Lower values are further along.
type Status int

const (
	PaymentConfirmed         Status = 1
	CustomerInvoicePayment   Status = 2
	InvoiceApprovedBy        Status = 3
	InvoiceCreated           Status = 4
	InvoiceAdviceApprovedBy  Status = 5
	InvoiceAdviceConfirmedBy Status = 6
	InvoiceAdviceCheckedBy   Status = 7
	InvoiceAdviceCreated     Status = 8
	GccApprovedByCustomer    Status = 9
	GccApprovedByAdmin       Status = 10
	GccCreated               Status = 11
)

var (
	ErrInvalidStatus     = errors.New("invalid_status")
	ErrInvalidTransition = errors.New("invalid_transition")
)

var names = map[Status]string{
	GccCreated:               "GCCCREATED",
	GccApprovedByAdmin:       "GCCAPPROVEDBYADMIN",
	GccApprovedByCustomer:    "GCCAPPROVEDBYCUSTOMER",
	InvoiceAdviceCreated:     "INVOICEADVICECREATED",
	InvoiceAdviceCheckedBy:   "INVOICEADVICECHECKEDBY",
	InvoiceAdviceConfirmedBy: "INVOICEADVICECONFIRMEDBY",
	InvoiceAdviceApprovedBy:  "INVOICEADVICEAPPROVEDBY",
	InvoiceCreated:           "INVOICECREATED",
	InvoiceApprovedBy:        "INVOICEAPPROVEDBY",
	CustomerInvoicePayment:   "CUSTOMERINVOICEPAYMENT",
	PaymentConfirmed:         "PAYMENTCONFIRMED",
}

// Initial is the status every certificate starts in.
func Initial() Status {
	return GccCreated
}

func (s Status) Valid() bool {
	_, ok := names[s]
	return ok
}

func (s Status) String() string {
	if name, ok := names[s]; ok {
		return name
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Terminal reports whether no further transition exists.
func (s Status) Terminal() bool {
	return s == PaymentConfirmed
}

// Next returns the single status that may follow s.
func (s Status) Next() (Status, bool) {
	if !s.Valid() || s.Terminal() {
		return 0, false
	}
	return s - 1, true
}

// Reached reports whether s is at or beyond target in the pipeline.
func (s Status) Reached(target Status) bool {
	return s.Valid() && target.Valid() && s <= target
}

// CanTransition reports whether moving from current to target is a legal single step.
func CanTransition(current, target Status) bool {
	next, ok := current.Next()
	return ok && next == target
}

// Transition validates a move and returns ErrInvalidTransition when it is out of order.
func Transition(current, target Status) error {
	if !current.Valid() || !target.Valid() {
		return ErrInvalidStatus
	}
	if !CanTransition(current, target) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, target)
	}
	return nil
}

// Parse accepts either the stored integer or the status name.
func Parse(raw string) (Status, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, ErrInvalidStatus
	}
	if n, err := strconv.Atoi(raw); err == nil {
		s := Status(n)
		if !s.Valid() {
			return 0, ErrInvalidStatus
		}
		return s, nil
	}
	upper := strings.ToUpper(raw)
	for status, name := range names {
		if name == upper {
			return status, nil
		}
	}
	return 0, ErrInvalidStatus
}

// MarshalJSON keeps the wire format as the stored integer.
func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(int(s))
}

func (s *Status) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return ErrInvalidStatus
	}
	parsed := Status(n)
	if !parsed.Valid() {
		return ErrInvalidStatus
	}
	*s = parsed
	return nil
}
