package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/gascustody/internal/clock"
	"github.com/smallbiznis/gascustody/internal/config"
	customerdomain "github.com/smallbiznis/gascustody/internal/customer/domain"
	customerrepo "github.com/smallbiznis/gascustody/internal/customer/repository"
	customerservice "github.com/smallbiznis/gascustody/internal/customer/service"
	dailyvolumedomain "github.com/smallbiznis/gascustody/internal/dailyvolume/domain"
	dailyvolumerepo "github.com/smallbiznis/gascustody/internal/dailyvolume/repository"
	dailyvolumeservice "github.com/smallbiznis/gascustody/internal/dailyvolume/service"
	gccdomain "github.com/smallbiznis/gascustody/internal/gcc/domain"
	gccrepo "github.com/smallbiznis/gascustody/internal/gcc/repository"
	"github.com/smallbiznis/gascustody/internal/invoiceadvice/domain"
	"github.com/smallbiznis/gascustody/internal/invoiceadvice/repository"
	"github.com/smallbiznis/gascustody/internal/lifecycle"
	"github.com/smallbiznis/gascustody/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	svc     domain.Service
	db      *gorm.DB
	node    *snowflake.Node
	clock   *clock.FakeClock
	volumes dailyvolumedomain.Service
	site    customerdomain.CustomerSite
}

func setup(t *testing.T) fixture {
	t.Helper()

	db := dbtest.Open(t,
		&customerdomain.Customer{},
		&customerdomain.CustomerSite{},
		&dailyvolumedomain.DailyVolume{},
		&gccdomain.Gcc{},
		&domain.InvoiceAdvice{},
		&domain.InvoiceAdviceListItem{},
		&domain.InvoiceAdviceApproval{},
	)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	fake := clock.NewFakeClock(time.Date(2024, 3, 20, 9, 0, 0, 0, time.UTC))

	customers := customerservice.New(customerservice.Params{DB: db, Log: zap.NewNop(), GenID: node, Repo: customerrepo.Provide()})
	volumes := dailyvolumeservice.New(dailyvolumeservice.Params{
		DB:        db,
		Log:       zap.NewNop(),
		GenID:     node,
		Clock:     fake,
		Repo:      dailyvolumerepo.Provide(),
		Customers: customers,
	})

	ctx := context.Background()
	customer, err := customers.Create(ctx, customerdomain.CreateCustomerRequest{Name: "Acme Steel", Email: "ops@acme.test"})
	require.NoError(t, err)
	site, err := customers.CreateSite(ctx, customerdomain.CreateSiteRequest{CustomerID: customer.ID.String(), Name: "Ikeja"})
	require.NoError(t, err)

	svc := New(Params{
		DB:        db,
		Log:       zap.NewNop(),
		GenID:     node,
		Clock:     fake,
		Billing:   config.NewStaticBillingConfigHolder(config.DefaultBillingConfig()),
		Repo:      repository.Provide(),
		Gccs:      gccrepo.Provide(),
		Customers: customers,
		Volumes:   volumes,
	})

	return fixture{svc: svc, db: db, node: node, clock: fake, volumes: volumes, site: site}
}

func (f fixture) record(t *testing.T, volume float64, at time.Time) {
	t.Helper()
	_, err := f.volumes.Create(context.Background(), 1, dailyvolumedomain.CreateRequest{
		CustomerID:     f.site.CustomerID.String(),
		CustomerSiteID: f.site.ID.String(),
		Volume:         &volume,
		CreatedAt:      &at,
	})
	require.NoError(t, err)
}

// insertGcc stores a certificate for January 2024 in the given status.
func (f fixture) insertGcc(t *testing.T, status lifecycle.Status) gccdomain.Gcc {
	t.Helper()
	now := f.clock.Now()
	gcc := gccdomain.Gcc{
		ID:                  f.node.Generate(),
		CustomerID:          f.site.CustomerID,
		CustomerSiteID:      f.site.ID,
		GccDate:             now,
		CapexRecoveryAmount: decimal.RequireFromString("150.00"),
		WithVat:             true,
		DepartmentID:        3,
		GccCreatedBy:        11,
		LetterID:            1,
		Status:              status,
		PeriodStart:         time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		PeriodEnd:           time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	require.NoError(t, f.db.Create(&gcc).Error)
	return gcc
}

func (f fixture) gccStatus(t *testing.T, id snowflake.ID) lifecycle.Status {
	t.Helper()
	var gcc gccdomain.Gcc
	require.NoError(t, f.db.First(&gcc, "id = ?", id).Error)
	return gcc.Status
}

func TestCreateFromGccUsesPersistedWindow(t *testing.T) {
	f := setup(t)
	f.record(t, 400, time.Date(2024, 1, 5, 8, 0, 0, 0, time.UTC))
	f.record(t, 600, time.Date(2024, 1, 30, 8, 0, 0, 0, time.UTC))
	f.record(t, 999, time.Date(2024, 2, 2, 8, 0, 0, 0, time.UTC))
	gcc := f.insertGcc(t, lifecycle.GccApprovedByCustomer)

	detail, err := f.svc.Create(context.Background(), 21, domain.CreateRequest{GccID: gcc.ID.String()})
	require.NoError(t, err)

	advice := detail.InvoiceAdvice
	require.NotNil(t, advice.GccID)
	assert.Equal(t, gcc.ID, *advice.GccID)
	assert.Equal(t, 1000.0, advice.TotalQuantityOfGas)
	require.NotNil(t, advice.FromDate)
	require.NotNil(t, advice.ToDate)
	assert.Equal(t, time.Date(2024, 1, 5, 8, 0, 0, 0, time.UTC), advice.FromDate.UTC())
	assert.Equal(t, time.Date(2024, 1, 30, 8, 0, 0, 0, time.UTC), advice.ToDate.UTC())
	assert.True(t, advice.WithVat)
	assert.Equal(t, "150", advice.CapexRecoveryAmount.String())
	assert.Equal(t, "3", advice.Department)
	require.NotNil(t, advice.GccCreatedByID)
	assert.Equal(t, int64(11), *advice.GccCreatedByID)
	assert.Equal(t, int64(21), advice.InvoiceAdviceCreatedByID)
	assert.Len(t, detail.ListItem, 2)
	assert.Equal(t, lifecycle.InvoiceAdviceCreated, f.gccStatus(t, gcc.ID))

	_, err = f.svc.Create(context.Background(), 21, domain.CreateRequest{GccID: gcc.ID.String()})
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
}

func TestCreateFromGccRequiresCustomerApproval(t *testing.T) {
	f := setup(t)
	gcc := f.insertGcc(t, lifecycle.GccApprovedByAdmin)

	_, err := f.svc.Create(context.Background(), 1, domain.CreateRequest{GccID: gcc.ID.String()})
	assert.ErrorIs(t, err, domain.ErrGccNotReady)

	_, err = f.svc.Create(context.Background(), 1, domain.CreateRequest{GccID: "777"})
	assert.ErrorIs(t, err, gccdomain.ErrGccNotFound)

	var count int64
	require.NoError(t, f.db.Model(&domain.InvoiceAdvice{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCreateDirectBillsPreviousMonth(t *testing.T) {
	f := setup(t)
	f.record(t, 250, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))
	f.record(t, 250, time.Date(2024, 2, 29, 23, 0, 0, 0, time.UTC))
	f.record(t, 999, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))

	detail, err := f.svc.Create(context.Background(), 2, domain.CreateRequest{
		CustomerID:     f.site.CustomerID.String(),
		CustomerSiteID: f.site.ID.String(),
		Department:     "Commercial",
	})
	require.NoError(t, err)
	assert.Nil(t, detail.InvoiceAdvice.GccID)
	assert.Equal(t, 500.0, detail.InvoiceAdvice.TotalQuantityOfGas)
	assert.Equal(t, "Commercial", detail.InvoiceAdvice.Department)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), detail.InvoiceAdvice.PeriodStart.UTC())
}

func TestCreateDirectWithoutReadings(t *testing.T) {
	f := setup(t)

	detail, err := f.svc.Create(context.Background(), 2, domain.CreateRequest{
		CustomerID:     f.site.CustomerID.String(),
		CustomerSiteID: f.site.ID.String(),
	})
	require.NoError(t, err)
	assert.Zero(t, detail.InvoiceAdvice.TotalQuantityOfGas)
	assert.Nil(t, detail.InvoiceAdvice.FromDate)
	assert.Nil(t, detail.InvoiceAdvice.ToDate)
	assert.Empty(t, detail.ListItem)
}

func TestApprovalsAdvanceInOrder(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.record(t, 1000, time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC))
	gcc := f.insertGcc(t, lifecycle.GccApprovedByCustomer)

	detail, err := f.svc.Create(ctx, 1, domain.CreateRequest{GccID: gcc.ID.String()})
	require.NoError(t, err)
	id := detail.InvoiceAdvice.ID.String()

	_, err = f.svc.Approve(ctx, 5, domain.ApproveRequest{ID: id, ApprovalFor: domain.ApprovalConfirmed})
	assert.ErrorIs(t, err, domain.ErrApprovalOutOfOrder)

	_, err = f.svc.Approve(ctx, 5, domain.ApproveRequest{ID: id, ApprovalFor: "bogus"})
	require.Error(t, err)

	steps := []struct {
		approvalFor domain.ApprovalFor
		want        lifecycle.Status
	}{
		{domain.ApprovalChecked, lifecycle.InvoiceAdviceCheckedBy},
		{domain.ApprovalConfirmed, lifecycle.InvoiceAdviceConfirmedBy},
		{domain.ApprovalApproved, lifecycle.InvoiceAdviceApprovedBy},
	}
	for _, step := range steps {
		got, err := f.svc.Approve(ctx, 5, domain.ApproveRequest{ID: id, ApprovalFor: step.approvalFor})
		require.NoError(t, err, step.approvalFor)
		assert.Equal(t, step.want, got.InvoiceAdvice.Status)
		assert.Equal(t, step.want, f.gccStatus(t, gcc.ID))
	}

	_, err = f.svc.Approve(ctx, 5, domain.ApproveRequest{ID: id, ApprovalFor: domain.ApprovalChecked})
	assert.ErrorIs(t, err, domain.ErrAlreadyApproved)

	approvals, err := f.svc.ListApprovals(ctx, domain.ListApprovalsRequest{InvoiceAdviceID: id})
	require.NoError(t, err)
	assert.Len(t, approvals.Approvals, 3)

	got, err := f.svc.GetApproval(ctx, approvals.Approvals[0].ID.String())
	require.NoError(t, err)
	assert.Equal(t, int64(5), got.UserID)

	assert.ErrorIs(t, f.svc.Delete(ctx, 1, id), domain.ErrNotDeletable)
}

func TestDeleteAllowsRebilling(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.record(t, 1000, time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC))
	gcc := f.insertGcc(t, lifecycle.GccApprovedByCustomer)

	first, err := f.svc.Create(ctx, 1, domain.CreateRequest{GccID: gcc.ID.String()})
	require.NoError(t, err)
	require.NoError(t, f.svc.Delete(ctx, 1, first.InvoiceAdvice.ID.String()))

	_, err = f.svc.GetByID(ctx, first.InvoiceAdvice.ID.String())
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, lifecycle.InvoiceAdviceCreated, f.gccStatus(t, gcc.ID))

	second, err := f.svc.Create(ctx, 1, domain.CreateRequest{GccID: gcc.ID.String()})
	require.NoError(t, err)
	assert.NotEqual(t, first.InvoiceAdvice.ID, second.InvoiceAdvice.ID)
	assert.Equal(t, lifecycle.InvoiceAdviceCreated, f.gccStatus(t, gcc.ID))
}

func TestListFilters(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	withVat := true
	_, err := f.svc.Create(ctx, 1, domain.CreateRequest{
		CustomerID:     f.site.CustomerID.String(),
		CustomerSiteID: f.site.ID.String(),
		WithVat:        &withVat,
	})
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, 1, domain.CreateRequest{
		CustomerID:     f.site.CustomerID.String(),
		CustomerSiteID: f.site.ID.String(),
	})
	require.NoError(t, err)

	resp, err := f.svc.List(ctx, domain.ListRequest{WithVat: &withVat})
	require.NoError(t, err)
	assert.Len(t, resp.InvoiceAdvices, 1)

	resp, err = f.svc.List(ctx, domain.ListRequest{CustomerSiteID: f.site.ID.String(), Status: "INVOICEADVICECREATED"})
	require.NoError(t, err)
	assert.Len(t, resp.InvoiceAdvices, 2)

	_, err = f.svc.List(ctx, domain.ListRequest{Status: "nope"})
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
}
