package service

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/gascustody/internal/clock"
	"github.com/smallbiznis/gascustody/internal/config"
	customerdomain "github.com/smallbiznis/gascustody/internal/customer/domain"
	customerrepo "github.com/smallbiznis/gascustody/internal/customer/repository"
	customerservice "github.com/smallbiznis/gascustody/internal/customer/service"
	gccdomain "github.com/smallbiznis/gascustody/internal/gcc/domain"
	gccrepo "github.com/smallbiznis/gascustody/internal/gcc/repository"
	"github.com/smallbiznis/gascustody/internal/invoice/domain"
	"github.com/smallbiznis/gascustody/internal/invoice/repository"
	invoiceadvicedomain "github.com/smallbiznis/gascustody/internal/invoiceadvice/domain"
	invoiceadvicerepo "github.com/smallbiznis/gascustody/internal/invoiceadvice/repository"
	"github.com/smallbiznis/gascustody/internal/lifecycle"
	"github.com/smallbiznis/gascustody/internal/providers/pdf"
	"github.com/smallbiznis/gascustody/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	svc   domain.Service
	db    *gorm.DB
	node  *snowflake.Node
	clock *clock.FakeClock
	site  customerdomain.CustomerSite
}

func setup(t *testing.T) fixture {
	t.Helper()

	db := dbtest.Open(t,
		&customerdomain.Customer{},
		&customerdomain.CustomerSite{},
		&gccdomain.Gcc{},
		&invoiceadvicedomain.InvoiceAdvice{},
		&domain.Invoice{},
	)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	fake := clock.NewFakeClock(time.Date(2024, 3, 25, 9, 0, 0, 0, time.UTC))

	customers := customerservice.New(customerservice.Params{DB: db, Log: zap.NewNop(), GenID: node, Repo: customerrepo.Provide()})
	ctx := context.Background()
	customer, err := customers.Create(ctx, customerdomain.CreateCustomerRequest{Name: "Acme Steel", Email: "ops@acme.test"})
	require.NoError(t, err)
	site, err := customers.CreateSite(ctx, customerdomain.CreateSiteRequest{CustomerID: customer.ID.String(), Name: "Ikeja"})
	require.NoError(t, err)

	svc := NewService(ServiceParam{
		DB:        db,
		Log:       zap.NewNop(),
		GenID:     node,
		Clock:     fake,
		Billing:   config.NewStaticBillingConfigHolder(config.DefaultBillingConfig()),
		Repo:      repository.Provide(),
		Advices:   invoiceadvicerepo.Provide(),
		Gccs:      gccrepo.Provide(),
		Customers: customers,
		PDF:       pdf.New(),
	})

	return fixture{svc: svc, db: db, node: node, clock: fake, site: site}
}

// approvedAdvice stores a fully approved January 2024 advice. A certificate in
// gccStatus is linked when gccStatus is set.
func (f fixture) approvedAdvice(t *testing.T, withVat bool, gccStatus lifecycle.Status) invoiceadvicedomain.InvoiceAdvice {
	t.Helper()
	now := f.clock.Now()
	advice := invoiceadvicedomain.InvoiceAdvice{
		ID:                       f.node.Generate(),
		CustomerID:               f.site.CustomerID,
		CustomerSiteID:           f.site.ID,
		WithVat:                  withVat,
		CapexRecoveryAmount:      decimal.RequireFromString("150.00"),
		Date:                     now,
		Status:                   lifecycle.InvoiceAdviceApprovedBy,
		Department:               "Commercial",
		TotalQuantityOfGas:       1234.5,
		PeriodStart:              time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		PeriodEnd:                time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		InvoiceAdviceCreatedByID: 2,
		CreatedAt:                now,
		UpdatedAt:                now,
	}
	if gccStatus != 0 {
		gcc := gccdomain.Gcc{
			ID:             f.node.Generate(),
			CustomerID:     f.site.CustomerID,
			CustomerSiteID: f.site.ID,
			GccDate:        now,
			WithVat:        withVat,
			Status:         gccStatus,
			PeriodStart:    advice.PeriodStart,
			PeriodEnd:      advice.PeriodEnd,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		require.NoError(t, f.db.Create(&gcc).Error)
		advice.GccID = &gcc.ID
	}
	require.NoError(t, f.db.Create(&advice).Error)
	return advice
}

func (f fixture) gccStatus(t *testing.T, id snowflake.ID) lifecycle.Status {
	t.Helper()
	var gcc gccdomain.Gcc
	require.NoError(t, f.db.First(&gcc, "id = ?", id).Error)
	return gcc.Status
}

func amount(v string) *decimal.Decimal {
	d := decimal.RequireFromString(v)
	return &d
}

func createRequest(advice invoiceadvicedomain.InvoiceAdvice) domain.CreateRequest {
	return domain.CreateRequest{
		InvoiceAdviceID:              advice.ID.String(),
		ConsumedVolumeAmountInNaira:  amount("1000000"),
		ConsumedVolumeAmountInDollar: amount("650.25"),
		DollarToNairaConvertionRate:  amount("1537.8316"),
	}
}

func TestFullLifecycleAdvancesCertificate(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	advice := f.approvedAdvice(t, true, lifecycle.InvoiceAdviceApprovedBy)

	invoice, err := f.svc.Create(ctx, 3, createRequest(advice))
	require.NoError(t, err)
	assert.Equal(t, lifecycle.InvoiceCreated, invoice.Status)
	assert.Equal(t, "75000", invoice.VatAmount.String())
	assert.Equal(t, "1075000.00", invoice.Total().StringFixed(2))
	assert.Equal(t, "1234.5", invoice.TotalVolumePaidFor.String())
	assert.True(t, strings.HasPrefix(invoice.InvoiceNumber, "INV-202403-"), invoice.InvoiceNumber)
	assert.Equal(t, lifecycle.InvoiceCreated, f.gccStatus(t, *advice.GccID))

	invoice, err = f.svc.Approve(ctx, 3, invoice.ID.String())
	require.NoError(t, err)
	assert.Equal(t, lifecycle.InvoiceApprovedBy, invoice.Status)
	assert.Equal(t, lifecycle.InvoiceApprovedBy, f.gccStatus(t, *advice.GccID))

	paidAt := time.Date(2024, 3, 28, 14, 0, 0, 0, time.UTC)
	invoice, err = f.svc.RecordPayment(ctx, 3, domain.PaymentRequest{ID: invoice.ID.String(), PaidAt: &paidAt})
	require.NoError(t, err)
	require.NotNil(t, invoice.PaidAt)
	assert.Equal(t, paidAt, invoice.PaidAt.UTC())
	assert.Equal(t, lifecycle.CustomerInvoicePayment, f.gccStatus(t, *advice.GccID))

	invoice, err = f.svc.ConfirmPayment(ctx, 3, invoice.ID.String())
	require.NoError(t, err)
	require.NotNil(t, invoice.PaymentConfirmedAt)
	assert.Equal(t, lifecycle.PaymentConfirmed, invoice.Status)
	assert.Equal(t, lifecycle.PaymentConfirmed, f.gccStatus(t, *advice.GccID))

	_, err = f.svc.ConfirmPayment(ctx, 3, invoice.ID.String())
	assert.ErrorIs(t, err, lifecycle.ErrInvalidTransition)

	stored, err := f.svc.GetByID(ctx, invoice.ID.String())
	require.NoError(t, err)
	assert.Equal(t, lifecycle.PaymentConfirmed, stored.Status)
	require.NotNil(t, stored.PaidAt)
}

func TestTransitionsFollowOrder(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	advice := f.approvedAdvice(t, false, 0)

	invoice, err := f.svc.Create(ctx, 3, createRequest(advice))
	require.NoError(t, err)
	assert.True(t, invoice.VatAmount.IsZero())

	_, err = f.svc.RecordPayment(ctx, 3, domain.PaymentRequest{ID: invoice.ID.String()})
	assert.ErrorIs(t, err, lifecycle.ErrInvalidTransition)

	_, err = f.svc.ConfirmPayment(ctx, 3, invoice.ID.String())
	assert.ErrorIs(t, err, lifecycle.ErrInvalidTransition)

	_, err = f.svc.Approve(ctx, 3, "424242")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	paid, err := f.svc.Approve(ctx, 3, invoice.ID.String())
	require.NoError(t, err)
	paid, err = f.svc.RecordPayment(ctx, 3, domain.PaymentRequest{ID: paid.ID.String()})
	require.NoError(t, err)
	require.NotNil(t, paid.PaidAt)
	assert.Equal(t, f.clock.Now().UTC(), paid.PaidAt.UTC())
}

func TestCreateRequiresApprovedAdvice(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	advice := f.approvedAdvice(t, true, lifecycle.InvoiceAdviceApprovedBy)
	require.NoError(t, f.db.Model(&invoiceadvicedomain.InvoiceAdvice{}).
		Where("id = ?", advice.ID).
		Update("status", lifecycle.InvoiceAdviceConfirmedBy).Error)

	_, err := f.svc.Create(ctx, 3, createRequest(advice))
	assert.ErrorIs(t, err, domain.ErrAdviceNotApproved)

	_, err = f.svc.Create(ctx, 3, domain.CreateRequest{
		InvoiceAdviceID:              "999",
		ConsumedVolumeAmountInNaira:  amount("1"),
		ConsumedVolumeAmountInDollar: amount("1"),
		DollarToNairaConvertionRate:  amount("1"),
	})
	assert.ErrorIs(t, err, invoiceadvicedomain.ErrNotFound)

	req := createRequest(advice)
	req.ConsumedVolumeAmountInNaira = amount("-1")
	_, err = f.svc.Create(ctx, 3, req)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	req = createRequest(advice)
	req.DollarToNairaConvertionRate = nil
	_, err = f.svc.Create(ctx, 3, req)
	require.Error(t, err)

	assert.Equal(t, lifecycle.InvoiceAdviceApprovedBy, f.gccStatus(t, *advice.GccID))
}

func TestCreateOncePerAdvice(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	advice := f.approvedAdvice(t, true, lifecycle.InvoiceAdviceApprovedBy)

	req := createRequest(advice)
	req.InvoiceNumber = "  NGML/2024/001 "
	invoice, err := f.svc.Create(ctx, 3, req)
	require.NoError(t, err)
	assert.Equal(t, "NGML/2024/001", invoice.InvoiceNumber)

	_, err = f.svc.Create(ctx, 3, createRequest(advice))
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)

	other := f.approvedAdvice(t, false, 0)
	req = createRequest(other)
	req.InvoiceNumber = "NGML/2024/001"
	_, err = f.svc.Create(ctx, 3, req)
	assert.ErrorIs(t, err, domain.ErrDuplicateNumber)
}

func TestUpdateAndDeleteBeforeApproval(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	advice := f.approvedAdvice(t, true, lifecycle.InvoiceAdviceApprovedBy)

	invoice, err := f.svc.Create(ctx, 3, createRequest(advice))
	require.NoError(t, err)

	number := "NGML/2024/009"
	updated, err := f.svc.Update(ctx, 3, domain.UpdateRequest{
		ID:                          invoice.ID.String(),
		InvoiceNumber:               &number,
		ConsumedVolumeAmountInNaira: amount("2000000"),
	})
	require.NoError(t, err)
	assert.Equal(t, number, updated.InvoiceNumber)
	assert.Equal(t, "150000", updated.VatAmount.String())

	blank := " "
	_, err = f.svc.Update(ctx, 3, domain.UpdateRequest{ID: invoice.ID.String(), InvoiceNumber: &blank})
	require.Error(t, err)

	require.NoError(t, f.svc.Delete(ctx, 3, invoice.ID.String()))
	_, err = f.svc.GetByID(ctx, invoice.ID.String())
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, lifecycle.InvoiceCreated, f.gccStatus(t, *advice.GccID))

	reissued, err := f.svc.Create(ctx, 3, createRequest(advice))
	require.NoError(t, err)
	_, err = f.svc.Approve(ctx, 3, reissued.ID.String())
	require.NoError(t, err)

	_, err = f.svc.Update(ctx, 3, domain.UpdateRequest{ID: reissued.ID.String(), VatAmount: amount("1")})
	assert.ErrorIs(t, err, domain.ErrNotEditable)
	assert.ErrorIs(t, f.svc.Delete(ctx, 3, reissued.ID.String()), domain.ErrNotEditable)
}

func TestListFilters(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	first := createRequest(f.approvedAdvice(t, false, 0))
	first.InvoiceNumber = "NGML/A/1"
	a, err := f.svc.Create(ctx, 3, first)
	require.NoError(t, err)

	f.clock.Advance(time.Minute)
	second := createRequest(f.approvedAdvice(t, false, 0))
	second.InvoiceNumber = "NGML/B/2"
	b, err := f.svc.Create(ctx, 3, second)
	require.NoError(t, err)
	_, err = f.svc.Approve(ctx, 3, b.ID.String())
	require.NoError(t, err)

	all, err := f.svc.List(ctx, domain.ListInvoiceRequest{})
	require.NoError(t, err)
	require.Len(t, all.Invoices, 2)
	assert.Equal(t, b.ID, all.Invoices[0].ID)

	created, err := f.svc.List(ctx, domain.ListInvoiceRequest{Status: "INVOICECREATED"})
	require.NoError(t, err)
	require.Len(t, created.Invoices, 1)
	assert.Equal(t, a.ID, created.Invoices[0].ID)

	byNumber, err := f.svc.List(ctx, domain.ListInvoiceRequest{InvoiceNumber: "B/2"})
	require.NoError(t, err)
	require.Len(t, byNumber.Invoices, 1)
	assert.Equal(t, b.ID, byNumber.Invoices[0].ID)

	_, err = f.svc.List(ctx, domain.ListInvoiceRequest{Status: "SHIPPED"})
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
}

func TestRenderProducesPDF(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	req := createRequest(f.approvedAdvice(t, true, 0))
	req.InvoiceNumber = "NGML/2024/001"

	invoice, err := f.svc.Create(ctx, 3, req)
	require.NoError(t, err)

	doc, err := f.svc.Render(ctx, invoice.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "invoice-ngml-2024-001.pdf", doc.FileName)
	assert.True(t, bytes.HasPrefix(doc.Content, []byte("%PDF")))

	_, err = f.svc.Render(ctx, "31337")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
