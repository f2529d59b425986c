package pdf

import (
	"context"
	"strings"

	"github.com/gosimple/slug"
	"go.uber.org/fx"
)

type Provider interface {
	GenerateCertificate(ctx context.Context, data CertificateData) ([]byte, error)
	GenerateInvoice(ctx context.Context, data InvoiceData) ([]byte, error)
}

var Module = fx.Module("providers.pdf",
	fx.Provide(New),
)

type PDFProvider struct{}

func New() Provider {
	return &PDFProvider{}
}

// FileName builds a download name such as "gcc-acme-steel-ikeja-2024-02.pdf".
func FileName(kind string, parts ...string) string {
	name := slug.Make(strings.Join(append([]string{kind}, parts...), " "))
	if name == "" {
		name = "document"
	}
	return name + ".pdf"
}
