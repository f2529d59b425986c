package format

import (
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

const DefaultInvoiceNumberTemplate = "INV-{YYYY}{MM}-{ULID}"

// FormatInvoiceNumber expands template for an invoice issued at issuedAt.
// {ULID} takes the full identifier and {ULID8} its last eight characters.
func FormatInvoiceNumber(template string, issuedAt time.Time, id ulid.ULID) (string, error) {
	if template == "" {
		return "", fmt.Errorf("invoice number template is empty")
	}
	if !strings.Contains(template, "{ULID") {
		return "", fmt.Errorf("invoice number template %q has no {ULID} token", template)
	}

	raw := id.String()
	out := template
	out = strings.ReplaceAll(out, "{YYYY}", issuedAt.Format("2006"))
	out = strings.ReplaceAll(out, "{YY}", issuedAt.Format("06"))
	out = strings.ReplaceAll(out, "{MM}", issuedAt.Format("01"))
	out = strings.ReplaceAll(out, "{DD}", issuedAt.Format("02"))
	out = strings.ReplaceAll(out, "{ULID8}", raw[len(raw)-8:])
	out = strings.ReplaceAll(out, "{ULID}", raw)

	if strings.Contains(out, "{") || strings.Contains(out, "}") {
		return "", fmt.Errorf("unresolved token in invoice format: %s", out)
	}
	return out, nil
}

// NewInvoiceNumber formats a fresh ULID issued at issuedAt.
func NewInvoiceNumber(template string, issuedAt time.Time) (string, error) {
	id, err := ulid.New(ulid.Timestamp(issuedAt), ulid.DefaultEntropy())
	if err != nil {
		return "", err
	}
	return FormatInvoiceNumber(template, issuedAt, id)
}
