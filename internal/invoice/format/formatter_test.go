package format

import (
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatInvoiceNumber(t *testing.T) {
	issued := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	id := ulid.MustParse("01HRBZ2Q3W8N5V6X7Y8Z9A0B1C")

	got, err := FormatInvoiceNumber(DefaultInvoiceNumberTemplate, issued, id)
	require.NoError(t, err)
	assert.Equal(t, "INV-202403-01HRBZ2Q3W8N5V6X7Y8Z9A0B1C", got)

	got, err = FormatInvoiceNumber("NGML/{YY}{MM}{DD}/{ULID8}", issued, id)
	require.NoError(t, err)
	assert.Equal(t, "NGML/240305/"+id.String()[18:], got)
}

func TestFormatInvoiceNumberRejectsBadTemplates(t *testing.T) {
	id := ulid.Make()
	_, err := FormatInvoiceNumber("", time.Now(), id)
	assert.Error(t, err)

	_, err = FormatInvoiceNumber("INV-{YYYY}", time.Now(), id)
	assert.Error(t, err)

	_, err = FormatInvoiceNumber("INV-{ULID}-{SEQ}", time.Now(), id)
	assert.Error(t, err)
}

func TestNewInvoiceNumberIsUnique(t *testing.T) {
	issued := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	seen := map[string]struct{}{}
	for i := 0; i < 50; i++ {
		n, err := NewInvoiceNumber(DefaultInvoiceNumberTemplate, issued)
		require.NoError(t, err)
		_, dup := seen[n]
		require.False(t, dup, n)
		seen[n] = struct{}{}
	}
}
