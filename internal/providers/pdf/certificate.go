package pdf

import (
	"context"
	"fmt"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core/entity"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

// CertificateData is the printable view of a gas consumption certificate.
type CertificateData struct {
	Reference       string
	GccDate         string
	Period          string
	Status          string
	CustomerName    string
	CustomerAddress string
	SiteName        string
	Letter          string

	Items       []CertificateItem
	TotalVolume string

	AdminApprovedAt   string
	CustomerSignedBy  string
	CustomerSignedAt  string
	CustomerSignature string
	CapexRecovery     string
}

type CertificateItem struct {
	Date       string
	Volume     string
	Inlet      string
	Outlet     string
	Allocation string
	Nomination string
}

func (p *PDFProvider) GenerateCertificate(ctx context.Context, data CertificateData) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m := maroto.New(pageConfig())

	m.AddRow(12,
		text.NewCol(12, "Gas Consumption Certificate", props.Text{
			Size:  18,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
	)

	m.AddRow(22,
		col.New(6).Add(
			text.New("Reference: "+data.Reference, props.Text{Top: 0}),
			text.New("Certificate date: "+data.GccDate, props.Text{Top: 4}),
			text.New("Billing period: "+data.Period, props.Text{Top: 8}),
			text.New("Status: "+data.Status, props.Text{Top: 12}),
		),
		col.New(6).Add(
			text.New(data.CustomerName, props.Text{Style: fontstyle.Bold}),
			text.New(data.CustomerAddress, props.Text{Top: 5}),
			text.New("Site: "+data.SiteName, props.Text{Top: 12}),
		),
	)

	if data.Letter != "" {
		m.AddRow(20,
			text.NewCol(12, data.Letter, props.Text{Size: 9, Top: 2}),
		)
	}

	m.AddRow(8,
		text.NewCol(3, "Date", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, "Volume", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Inlet", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Outlet", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(1, "Alloc.", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Nomination", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)
	m.AddRow(2, line.NewCol(12))

	for _, item := range data.Items {
		m.AddRow(7,
			text.NewCol(3, item.Date, props.Text{Size: 9}),
			text.NewCol(2, item.Volume, props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, item.Inlet, props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, item.Outlet, props.Text{Size: 9, Align: align.Right}),
			text.NewCol(1, item.Allocation, props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, item.Nomination, props.Text{Size: 9, Align: align.Right}),
		)
	}

	m.AddRow(2, line.NewCol(12))
	m.AddRow(10,
		col.New(6),
		text.NewCol(3, "Total volume", props.Text{Style: fontstyle.Bold, Size: 10}),
		text.NewCol(3, data.TotalVolume, props.Text{Style: fontstyle.Bold, Size: 10, Align: align.Right}),
	)
	if data.CapexRecovery != "" {
		m.AddRow(8,
			col.New(6),
			text.NewCol(3, "Capex recovery", props.Text{Size: 9}),
			text.NewCol(3, data.CapexRecovery, props.Text{Size: 9, Align: align.Right}),
		)
	}

	m.AddRow(30,
		col.New(6).Add(
			text.New("Approved by custody", props.Text{Style: fontstyle.Bold, Top: 4}),
			text.New(orPending(data.AdminApprovedAt), props.Text{Top: 10}),
		),
		col.New(6).Add(
			text.New("Accepted by customer", props.Text{Style: fontstyle.Bold, Top: 4}),
			text.New(orPending(data.CustomerSignedBy), props.Text{Top: 10}),
			text.New(data.CustomerSignature, props.Text{Top: 15, Style: fontstyle.Italic}),
			text.New(data.CustomerSignedAt, props.Text{Top: 20}),
		),
	)

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("generate certificate: %w", err)
	}
	return doc.GetBytes(), nil
}

func pageConfig() *entity.Config {
	return config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()
}

func orPending(v string) string {
	if v == "" {
		return "Pending"
	}
	return v
}
