package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/gascustody/internal/clock"
	"github.com/smallbiznis/gascustody/internal/config"
	customerdomain "github.com/smallbiznis/gascustody/internal/customer/domain"
	customerrepo "github.com/smallbiznis/gascustody/internal/customer/repository"
	customerservice "github.com/smallbiznis/gascustody/internal/customer/service"
	"github.com/smallbiznis/gascustody/internal/dailyvolume/domain"
	"github.com/smallbiznis/gascustody/internal/dailyvolume/repository"
	"github.com/smallbiznis/gascustody/internal/events"
	"github.com/smallbiznis/gascustody/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type capturePublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *capturePublisher) Publish(_ context.Context, _ string, _ string, body []byte) error {
	var evt events.Event
	if err := json.Unmarshal(body, &evt); err != nil {
		return err
	}
	p.mu.Lock()
	p.events = append(p.events, evt)
	p.mu.Unlock()
	return nil
}

func (p *capturePublisher) Close() error { return nil }

func (p *capturePublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, evt := range p.events {
		out = append(out, evt.Type)
	}
	return out
}

type fixture struct {
	svc       domain.Service
	db        *gorm.DB
	clock     *clock.FakeClock
	published *capturePublisher
	events    *events.Dispatcher
	customer  customerdomain.Customer
	site      customerdomain.CustomerSite
}

func setup(t *testing.T) fixture {
	t.Helper()

	db := dbtest.Open(t, &customerdomain.Customer{}, &customerdomain.CustomerSite{}, &domain.DailyVolume{})
	require.NoError(t, db.Exec("CREATE TABLE gcc_list_items (id INTEGER PRIMARY KEY, daily_volume_id INTEGER)").Error)
	require.NoError(t, db.Exec("CREATE TABLE invoice_advice_list_items (id INTEGER PRIMARY KEY, daily_volume_id INTEGER)").Error)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	customers := customerservice.New(customerservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  customerrepo.Provide(),
	})
	ctx := context.Background()
	customer, err := customers.Create(ctx, customerdomain.CreateCustomerRequest{Name: "Acme Steel", Email: "ops@acme.test"})
	require.NoError(t, err)
	site, err := customers.CreateSite(ctx, customerdomain.CreateSiteRequest{CustomerID: customer.ID.String(), Name: "Ikeja"})
	require.NoError(t, err)

	published := &capturePublisher{}
	dispatcher := events.NewDispatcher(events.DispatcherParams{
		Billing:   config.NewStaticBillingConfigHolder(config.DefaultBillingConfig()),
		Publisher: published,
		Log:       zap.NewNop(),
	})

	fake := clock.NewFakeClock(time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC))
	svc := New(Params{
		DB:         db,
		Log:        zap.NewNop(),
		GenID:      node,
		Clock:      fake,
		Repo:       repository.Provide(),
		Customers:  customers,
		Dispatcher: dispatcher,
	})

	return fixture{svc: svc, db: db, clock: fake, published: published, events: dispatcher, customer: customer, site: site}
}

func floatPtr(v float64) *float64 { return &v }

func TestCreateFromFormFieldAnswersBackdates(t *testing.T) {
	f := setup(t)

	capturedAt := time.Date(2024, 3, 10, 7, 30, 0, 0, time.UTC)
	volume, err := f.svc.Create(context.Background(), 77, domain.CreateRequest{
		CustomerID:     f.customer.ID.String(),
		CustomerSiteID: f.site.ID.String(),
		CreatedAt:      &capturedAt,
		FormFieldAnswers: []domain.FormFieldAnswer{
			{Key: "volume", Value: "1250.5"},
			{Key: "inlet_pressure", Value: 42.0},
			{Key: "meter_reader", Value: "J. Okafor"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 1250.5, volume.Volume)
	assert.Equal(t, 42.0, volume.InletPressure)
	assert.Equal(t, int64(77), volume.CreatedBy)
	assert.True(t, volume.CreatedAt.Equal(capturedAt.AddDate(0, 0, -1)))
	assert.Equal(t, "J. Okafor", volume.FormFieldAnswers["meter_reader"])
	f.events.Wait()
	assert.Equal(t, []string{events.GasConsumptionCreated}, f.published.types())
}

func TestCreateRejectsBeforeWriting(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, 1, domain.CreateRequest{
		CustomerID:     f.customer.ID.String(),
		CustomerSiteID: f.site.ID.String(),
		Volume:         floatPtr(-1),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidVolume)

	_, err = f.svc.Create(ctx, 1, domain.CreateRequest{
		CustomerID:     f.customer.ID.String(),
		CustomerSiteID: "99",
		Volume:         floatPtr(10),
	})
	assert.ErrorIs(t, err, customerdomain.ErrSiteNotFound)

	_, err = f.svc.Create(ctx, 1, domain.CreateRequest{
		CustomerSiteID: f.site.ID.String(),
		Volume:         floatPtr(10),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidCustomer)

	var count int64
	require.NoError(t, f.db.Model(&domain.DailyVolume{}).Count(&count).Error)
	assert.Zero(t, count)
	f.events.Wait()
	assert.Empty(t, f.published.types())
}

func TestUpdateDispatchesUpdatedEvent(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, 1, domain.CreateRequest{
		CustomerID:     f.customer.ID.String(),
		CustomerSiteID: f.site.ID.String(),
		Volume:         floatPtr(1000),
	})
	require.NoError(t, err)

	f.clock.Advance(time.Hour)
	approver := int64(9)
	updated, err := f.svc.Update(ctx, 2, domain.UpdateRequest{
		ID:         created.ID.String(),
		Volume:     floatPtr(1100),
		ApprovedBy: &approver,
	})
	require.NoError(t, err)
	assert.Equal(t, 1100.0, updated.Volume)
	assert.Equal(t, int64(9), updated.ApprovedBy)

	got, err := f.svc.GetByID(ctx, created.ID.String())
	require.NoError(t, err)
	assert.Equal(t, 1100.0, got.Volume)
	f.events.Wait()
	assert.Equal(t, []string{events.GasConsumptionCreated, events.GasConsumptionUpdated}, f.published.types())

	_, err = f.svc.Update(ctx, 2, domain.UpdateRequest{ID: "12345", Volume: floatPtr(1)})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteRefusedWhileReferenced(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, 1, domain.CreateRequest{
		CustomerID:     f.customer.ID.String(),
		CustomerSiteID: f.site.ID.String(),
		Volume:         floatPtr(1000),
	})
	require.NoError(t, err)

	require.NoError(t, f.db.Exec("INSERT INTO gcc_list_items (id, daily_volume_id) VALUES (1, ?)", created.ID).Error)
	assert.ErrorIs(t, f.svc.Delete(ctx, created.ID.String()), domain.ErrVolumeInUse)

	require.NoError(t, f.db.Exec("DELETE FROM gcc_list_items").Error)
	require.NoError(t, f.svc.Delete(ctx, created.ID.String()))

	_, err = f.svc.GetByID(ctx, created.ID.String())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListInWindowIsHalfOpen(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	start := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for _, at := range []time.Time{
		start.Add(-time.Second),
		start,
		time.Date(2024, 2, 14, 12, 0, 0, 0, time.UTC),
		end,
	} {
		_, err := f.svc.Create(ctx, 1, domain.CreateRequest{
			CustomerID:     f.customer.ID.String(),
			CustomerSiteID: f.site.ID.String(),
			Volume:         floatPtr(500),
			CreatedAt:      &at,
		})
		require.NoError(t, err)
	}

	rows, err := f.svc.ListInWindow(ctx, f.customer.ID, f.site.ID, start, end)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.True(t, rows[0].CreatedAt.Equal(start))
	assert.True(t, rows[0].CreatedAt.Before(rows[1].CreatedAt))

	page, err := f.svc.List(ctx, domain.ListRequest{CustomerSiteID: f.site.ID.String()})
	require.NoError(t, err)
	assert.Len(t, page.DailyVolumes, 4)
}
