package pdf

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileName(t *testing.T) {
	assert.Equal(t, "gcc-acme-steel-ikeja-2024-02.pdf", FileName("gcc", "Acme Steel", "Ikeja", "2024-02"))
	assert.Equal(t, "invoice.pdf", FileName("invoice"))
	assert.Equal(t, "document.pdf", FileName(""))
}

func TestGenerateCertificate(t *testing.T) {
	doc, err := New().GenerateCertificate(context.Background(), CertificateData{
		Reference:    "1790000000000000001",
		GccDate:      "2024-02-14",
		Period:       "February 2024",
		CustomerName: "Acme Steel",
		SiteName:     "Ikeja",
		Items: []CertificateItem{
			{Date: "2024-02-03", Volume: "1000.00"},
			{Date: "2024-02-04", Volume: "1000.00"},
		},
		TotalVolume: "2000.00",
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(doc, []byte("%PDF")))
}

func TestGenerateInvoiceHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New().GenerateInvoice(ctx, InvoiceData{InvoiceNumber: "INV-1"})
	assert.ErrorIs(t, err, context.Canceled)
}
