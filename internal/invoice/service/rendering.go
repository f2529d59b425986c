package service

import (
	"context"
	"errors"

	invoicedomain "github.com/smallbiznis/gascustody/internal/invoice/domain"
	invoiceadvicedomain "github.com/smallbiznis/gascustody/internal/invoiceadvice/domain"
	ngmlaccountdomain "github.com/smallbiznis/gascustody/internal/ngmlaccount/domain"
	"github.com/smallbiznis/gascustody/internal/providers/pdf"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

// Render produces the invoice PDF with the remittance account printed under
// the totals.
func (s *Service) Render(ctx context.Context, id string) (invoicedomain.Document, error) {
	if s.pdf == nil {
		return invoicedomain.Document{}, invoicedomain.ErrDocumentUnavailable
	}

	invoice, err := s.GetByID(ctx, id)
	if err != nil {
		return invoicedomain.Document{}, err
	}
	advice, err := s.advices.FindByID(ctx, s.db, invoice.InvoiceAdviceID)
	if err != nil {
		return invoicedomain.Document{}, err
	}
	if advice == nil {
		return invoicedomain.Document{}, invoiceadvicedomain.ErrNotFound
	}
	customer, site, err := s.customers.ResolveSite(ctx, invoice.CustomerID, invoice.CustomerSiteID)
	if err != nil {
		return invoicedomain.Document{}, err
	}
	bank, err := s.bankDetails(ctx)
	if err != nil {
		return invoicedomain.Document{}, err
	}

	loc := s.billing.Get().Location()
	data := pdf.InvoiceData{
		InvoiceNumber:  invoice.InvoiceNumber,
		IssueDate:      invoice.IssuedAt.In(loc).Format(dateLayout),
		ServicePeriod:  advice.PeriodStart.In(loc).Format(dateLayout) + " to " + advice.PeriodEnd.In(loc).AddDate(0, 0, -1).Format(dateLayout),
		Status:         invoice.Status.String(),
		BillToName:     customer.Name,
		BillToAddress:  customer.Address,
		BillToEmail:    customer.Email,
		SiteName:       site.Name,
		TotalVolume:    invoice.TotalVolumePaidFor.StringFixed(2),
		AmountInDollar: invoice.ConsumedVolumeAmountInDollar.StringFixed(2),
		ExchangeRate:   invoice.DollarToNairaConvertionRate.StringFixed(4),
		AmountInNaira:  invoice.ConsumedVolumeAmountInNaira.StringFixed(2),
		VAT:            invoice.VatAmount.StringFixed(2),
		Total:          invoice.Total().StringFixed(2),
		Bank:           bank,
	}

	content, err := s.pdf.GenerateInvoice(ctx, data)
	if err != nil {
		s.log.Error("failed to render invoice", zap.String("invoice_id", invoice.ID.String()), zap.Error(err))
		return invoicedomain.Document{}, err
	}

	return invoicedomain.Document{
		FileName: pdf.FileName("invoice", invoice.InvoiceNumber),
		Content:  content,
	}, nil
}

// bankDetails returns the default remittance account, or empty details when
// none has been registered.
func (s *Service) bankDetails(ctx context.Context) (pdf.BankDetails, error) {
	if s.accounts == nil {
		return pdf.BankDetails{}, nil
	}
	account, err := s.accounts.Default(ctx)
	if err != nil {
		if errors.Is(err, ngmlaccountdomain.ErrNotFound) {
			return pdf.BankDetails{}, nil
		}
		return pdf.BankDetails{}, err
	}
	return pdf.BankDetails{
		BankName:      account.BankName,
		BankAddress:   account.BankAddress,
		AccountName:   account.AccountName,
		AccountNumber: account.AccountNumber,
		SortCode:      account.SortCode,
		TIN:           account.TIN,
	}, nil
}
