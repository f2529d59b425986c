package events

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/smallbiznis/gascustody/internal/config"
	"github.com/smallbiznis/gascustody/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	defaultPublishTimeout = 5 * time.Second
	dispatchBacklog       = 1024
)

const (
	outcomeSuccess = "success"
	outcomeFailure = "failure"
	outcomeEncode  = "encode_error"
	outcomeDropped = "dropped"
)

type delivery struct {
	ctx       context.Context
	eventType string
	key       string
	queues    []string
	body      []byte
}

type DispatcherParams struct {
	fx.In

	Lifecycle fx.Lifecycle `optional:"true"`
	Cfg       config.Config
	Billing   *config.BillingConfigHolder
	Publisher Publisher
	Log       *zap.Logger
	Metrics   *metrics.Metrics `optional:"true"`
}

// Dispatcher fans a domain event out to every queue routed for its type.
// It is called after commit and never reports failure to the caller. Publishing
// happens on a single background worker so events leave in the order they were
// dispatched; Wait blocks until the backlog is drained.
type Dispatcher struct {
	backlog   chan delivery
	start     sync.Once
	inflight  sync.WaitGroup
	billing   *config.BillingConfigHolder
	publisher Publisher
	log       *zap.Logger
	metrics   *metrics.Metrics
	timeout   time.Duration
	now       func() time.Time
}

func NewDispatcher(p DispatcherParams) *Dispatcher {
	timeout := p.Cfg.Queue.PublishTimeout
	if timeout <= 0 {
		timeout = defaultPublishTimeout
	}
	d := &Dispatcher{
		billing:   p.Billing,
		publisher: p.Publisher,
		log:       p.Log.Named("events.dispatcher"),
		metrics:   p.Metrics,
		timeout:   timeout,
		now:       time.Now,
		backlog:   make(chan delivery, dispatchBacklog),
	}
	if p.Lifecycle != nil {
		p.Lifecycle.Append(fx.StopHook(d.Wait))
	}
	return d
}

// Wait blocks until every event accepted by Dispatch has been published or
// has failed.
func (d *Dispatcher) Wait() {
	if d == nil {
		return
	}
	d.inflight.Wait()
}

// Dispatch publishes payload to the queues configured for eventType.
func (d *Dispatcher) Dispatch(ctx context.Context, eventType string, key string, payload any) {
	if d == nil || d.publisher == nil {
		return
	}

	queues := d.billing.Get().QueuesFor(eventType)
	if len(queues) == 0 {
		return
	}

	body, err := NewEvent(eventType, payload, d.now()).Encode()
	if err != nil {
		d.log.Error("encode event failed", zap.String("event_type", eventType), zap.Error(err))
		d.metrics.RecordDispatch(ctx, "", eventType, outcomeEncode)
		return
	}

	d.start.Do(func() { go d.run() })

	// publishes outlive request cancellation
	job := delivery{ctx: context.WithoutCancel(ctx), eventType: eventType, key: key, queues: queues, body: body}
	d.inflight.Add(1)
	select {
	case d.backlog <- job:
	default:
		d.inflight.Done()
		d.log.Warn("dispatch backlog full, event dropped",
			zap.String("event_type", eventType),
			zap.String("key", key),
		)
		d.metrics.RecordDispatch(ctx, "", eventType, outcomeDropped)
	}
}

func (d *Dispatcher) run() {
	for job := range d.backlog {
		for _, queue := range job.queues {
			if queue = strings.TrimSpace(queue); queue != "" {
				d.publish(job.ctx, job.eventType, queue, job.key, job.body)
			}
		}
		d.inflight.Done()
	}
}

func (d *Dispatcher) publish(ctx context.Context, eventType, queue, key string, body []byte) {
	pubCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	if err := d.publisher.Publish(pubCtx, queue, key, body); err != nil {
		d.log.Warn("dispatch event failed",
			zap.String("event_type", eventType),
			zap.String("queue", queue),
			zap.String("key", key),
			zap.Error(err),
		)
		d.metrics.RecordDispatch(ctx, queue, eventType, outcomeFailure)
		return
	}
	d.log.Debug("event dispatched",
		zap.String("event_type", eventType),
		zap.String("queue", queue),
		zap.String("key", key),
	)
	d.metrics.RecordDispatch(ctx, queue, eventType, outcomeSuccess)
}
