package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/smallbiznis/gascustody/internal/aggregation"
	"github.com/smallbiznis/gascustody/internal/clock"
	"github.com/smallbiznis/gascustody/internal/config"
	customerdomain "github.com/smallbiznis/gascustody/internal/customer/domain"
	dailyvolumedomain "github.com/smallbiznis/gascustody/internal/dailyvolume/domain"
	"github.com/smallbiznis/gascustody/internal/events"
	gccdomain "github.com/smallbiznis/gascustody/internal/gcc/domain"
	obsmetrics "github.com/smallbiznis/gascustody/internal/observability/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeCustomers struct {
	customerdomain.Service
	sites []customerdomain.CustomerSite
	calls int
}

func (f *fakeCustomers) ListAllSites(_ context.Context, afterID snowflake.ID, limit int) ([]customerdomain.CustomerSite, error) {
	f.calls++
	out := []customerdomain.CustomerSite{}
	for _, site := range f.sites {
		if site.ID > afterID && len(out) < limit {
			out = append(out, site)
		}
	}
	return out, nil
}

type fakeGccs struct {
	gccdomain.Service
	results map[string]gccdomain.InitiateResult
	errs    map[string]error
}

func (f *fakeGccs) Initiate(_ context.Context, req gccdomain.InitiateRequest) (gccdomain.InitiateResult, error) {
	if err := f.errs[req.CustomerSiteID]; err != nil {
		return gccdomain.InitiateResult{}, err
	}
	if res, ok := f.results[req.CustomerSiteID]; ok {
		return res, nil
	}
	return gccdomain.InitiateResult{ListItem: []dailyvolumedomain.DailyVolume{}}, nil
}

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

func newTestScheduler(t *testing.T, customers *fakeCustomers, gccs *fakeGccs, jobs *obsmetrics.JobMetrics) (*Scheduler, *capturePublisher) {
	t.Helper()

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	billing := config.DefaultBillingConfig()
	billing.Queues = map[string][]string{events.GccDue: {"gcc-planner"}}
	published := &capturePublisher{}
	dispatcher := events.NewDispatcher(events.DispatcherParams{
		Billing:   config.NewStaticBillingConfigHolder(billing),
		Publisher: published,
		Log:       zap.NewNop(),
	})

	s, err := New(Params{
		Log:        zap.NewNop(),
		GenID:      node,
		Clock:      clock.NewFakeClock(time.Date(2024, 3, 1, 6, 0, 0, 0, time.UTC)),
		Customers:  customers,
		Gccs:       gccs,
		Dispatcher: dispatcher,
		Jobs:       jobs,
		Config:     Config{BatchSize: 2},
	})
	require.NoError(t, err)
	return s, published
}

func site(id int64, name string) customerdomain.CustomerSite {
	return customerdomain.CustomerSite{ID: snowflake.ID(id), CustomerID: 900, Name: name}
}

func TestGccDueAnnouncesSitesWithoutCertificate(t *testing.T) {
	window := aggregation.Window{
		Start: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	customers := &fakeCustomers{sites: []customerdomain.CustomerSite{
		site(1, "Ikeja"), site(2, "Apapa"), site(3, "Agbara"), site(4, "Ota"), site(5, "Lekki"),
	}}
	gccs := &fakeGccs{
		results: map[string]gccdomain.InitiateResult{
			"1": {ListItem: []dailyvolumedomain.DailyVolume{
				{Volume: 400, CreatedAt: window.Start.Add(24 * time.Hour)},
				{Volume: 600, CreatedAt: window.Start.Add(48 * time.Hour)},
			}, Window: window},
			"2": {ListItem: []gccdomain.GccListItem{{}}, Gcc: &gccdomain.Gcc{ID: 77}},
			"5": {ListItem: []dailyvolumedomain.DailyVolume{{Volume: 50, CreatedAt: window.Start}}, Window: window},
		},
		errs: map[string]error{"4": errors.New("boom")},
	}
	registry := prometheus.NewRegistry()
	s, published := newTestScheduler(t, customers, gccs, obsmetrics.NewJobMetrics(registry, obsmetrics.Config{}))

	err := s.RunGccDue(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, "boom")
	assert.Equal(t, 3, customers.calls)

	s.dispatcher.Wait()
	require.Len(t, published.events, 2)
	first := published.events[0]
	assert.Equal(t, events.GccDue, first.Type)
	payload, ok := first.Payload.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "1", payload["customer_site_id"])
	assert.Equal(t, "Ikeja", payload["site_name"])
	assert.Equal(t, 1000.0, payload["total_quantity_of_gas"])
	assert.Equal(t, 2.0, payload["count"])
	assert.Equal(t, "2024-02-01T00:00:00Z", payload["period_start"])

	second, ok := published.events[1].Payload.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "5", second["customer_site_id"])

	count, err := testutil.GatherAndCount(registry, "gascustody_scheduler_items_processed_total")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestGccDueWithoutSites(t *testing.T) {
	s, published := newTestScheduler(t, &fakeCustomers{}, &fakeGccs{}, nil)

	require.NoError(t, s.RunGccDue(context.Background()))
	s.dispatcher.Wait()
	assert.Empty(t, published.events)
}

func TestRunJobTimeoutIsNotAnError(t *testing.T) {
	registry := prometheus.NewRegistry()
	s, _ := newTestScheduler(t, &fakeCustomers{}, &fakeGccs{}, obsmetrics.NewJobMetrics(registry, obsmetrics.Config{}))

	err := s.runJob(context.Background(), "timeout_job", 1, 5*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	require.NoError(t, err)

	timeouts, err := testutil.GatherAndCount(registry, "gascustody_scheduler_job_timeouts_total")
	require.NoError(t, err)
	assert.Equal(t, 1, timeouts)

	errs, err := testutil.GatherAndCount(registry, "gascustody_scheduler_job_errors_total")
	require.NoError(t, err)
	assert.Equal(t, 1, errs)
}

func TestRunJobWrapsFailures(t *testing.T) {
	s, _ := newTestScheduler(t, &fakeCustomers{}, &fakeGccs{}, nil)
	boom := errors.New("boom")

	err := s.runJob(context.Background(), "failing", 1, time.Second, func(ctx context.Context) error {
		run := jobRunFromContext(ctx)
		require.NotNil(t, run)
		assert.Equal(t, "failing", run.job)
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.ErrorContains(t, err, "failing:")
}

func TestNewRejectsBadSpec(t *testing.T) {
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	_, err = New(Params{
		Log:       zap.NewNop(),
		GenID:     node,
		Clock:     clock.NewFakeClock(time.Now()),
		Customers: &fakeCustomers{},
		Gccs:      &fakeGccs{},
		Config:    Config{GccDueSpec: "every tuesday"},
	})
	assert.ErrorIs(t, err, ErrInvalidSpec)

	_, err = New(Params{Log: zap.NewNop()})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestProvideConfigDefaults(t *testing.T) {
	cfg := ProvideConfig(config.Config{Scheduler: config.SchedulerConfig{Enabled: true}})
	assert.True(t, cfg.Enabled)
	assert.Equal(t, "0 6 1 * *", cfg.GccDueSpec)
	assert.Equal(t, 10*time.Minute, cfg.JobTimeout)
	assert.Equal(t, 100, cfg.BatchSize)
}
