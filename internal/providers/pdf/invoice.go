package pdf

import (
	"context"
	"fmt"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

type InvoiceData struct {
	InvoiceNumber string
	IssueDate     string
	ServicePeriod string
	Status        string

	BillToName    string
	BillToAddress string
	BillToEmail   string
	SiteName      string

	TotalVolume    string
	AmountInDollar string
	ExchangeRate   string
	AmountInNaira  string
	VAT            string
	Total          string

	Bank BankDetails
}

// BankDetails is the remittance account printed under the totals.
type BankDetails struct {
	BankName      string
	BankAddress   string
	AccountName   string
	AccountNumber string
	SortCode      string
	TIN           string
}

func (p *PDFProvider) GenerateInvoice(ctx context.Context, invoice InvoiceData) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m := maroto.New(pageConfig())

	m.AddRow(10,
		text.NewCol(12, "Invoice", props.Text{
			Size:  20,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
	)

	m.AddRow(20,
		col.New(6).Add(
			text.New("Invoice number: "+invoice.InvoiceNumber, props.Text{Top: 0}),
			text.New("Date of issue: "+invoice.IssueDate, props.Text{Top: 4}),
			text.New("Service period: "+invoice.ServicePeriod, props.Text{Top: 8}),
			text.New("Status: "+invoice.Status, props.Text{Top: 12}),
		),
		col.New(6).Add(
			text.New("Bill to", props.Text{Style: fontstyle.Bold}),
			text.New(invoice.BillToName, props.Text{Top: 5}),
			text.New(invoice.BillToAddress, props.Text{Top: 9}),
			text.New(invoice.BillToEmail, props.Text{Top: 13}),
			text.New("Site: "+invoice.SiteName, props.Text{Top: 17}),
		),
	)

	m.AddRow(10,
		text.NewCol(8, "Description", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(4, "Amount", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)
	m.AddRow(2, line.NewCol(12))

	for _, row := range [][2]string{
		{"Total volume paid for", invoice.TotalVolume},
		{"Consumed volume (USD)", invoice.AmountInDollar},
		{"Exchange rate (NGN per USD)", invoice.ExchangeRate},
		{"Consumed volume (NGN)", invoice.AmountInNaira},
		{"VAT", invoice.VAT},
	} {
		m.AddRow(8,
			text.NewCol(8, row[0], props.Text{Size: 9}),
			text.NewCol(4, row[1], props.Text{Size: 9, Align: align.Right}),
		)
	}

	m.AddRow(2, line.NewCol(12))
	m.AddRow(10,
		col.New(6),
		text.NewCol(2, "Amount due", props.Text{Style: fontstyle.Bold, Size: 10}),
		text.NewCol(4, invoice.Total, props.Text{Style: fontstyle.Bold, Size: 10, Align: align.Right}),
	)

	bank := invoice.Bank
	m.AddRow(35,
		col.New(12).Add(
			text.New("Remit to", props.Text{Style: fontstyle.Bold, Top: 4}),
			text.New(bank.AccountName, props.Text{Size: 9, Top: 10}),
			text.New(fmt.Sprintf("%s, %s", bank.BankName, bank.BankAddress), props.Text{Size: 9, Top: 14}),
			text.New("Account number: "+bank.AccountNumber, props.Text{Size: 9, Top: 18}),
			text.New("Sort code: "+bank.SortCode, props.Text{Size: 9, Top: 22}),
			text.New("TIN: "+bank.TIN, props.Text{Size: 9, Top: 26}),
		),
	)

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("generate invoice: %w", err)
	}
	return doc.GetBytes(), nil
}
