package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/segmentio/kafka-go"
	"github.com/smallbiznis/gascustody/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type published struct {
	queue string
	key   string
	body  []byte
}

type fakePublisher struct {
	mu     sync.Mutex
	sent   []published
	failOn map[string]error
}

func (f *fakePublisher) Publish(_ context.Context, queue string, key string, body []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failOn[queue]; err != nil {
		return err
	}
	f.sent = append(f.sent, published{queue: queue, key: key, body: body})
	return nil
}

func (f *fakePublisher) Close() error { return nil }

func newTestDispatcher(pub Publisher, queues map[string][]string) *Dispatcher {
	billing := config.DefaultBillingConfig()
	billing.Queues = queues
	d := NewDispatcher(DispatcherParams{
		Billing:   config.NewStaticBillingConfigHolder(billing),
		Publisher: pub,
		Log:       zap.NewNop(),
	})
	d.now = func() time.Time { return time.Date(2024, 3, 2, 6, 0, 0, 0, time.UTC) }
	return d
}

func TestDispatchFansOutToConfiguredQueues(t *testing.T) {
	pub := &fakePublisher{}
	d := newTestDispatcher(pub, map[string][]string{
		"gas_consumption_created": {"gas-consumption", "gcc-planner"},
	})

	d.Dispatch(context.Background(), GasConsumptionCreated, "42", map[string]any{"volume": 1000})
	d.Wait()

	require.Len(t, pub.sent, 2)
	assert.Equal(t, "gas-consumption", pub.sent[0].queue)
	assert.Equal(t, "gcc-planner", pub.sent[1].queue)

	var evt Event
	require.NoError(t, json.Unmarshal(pub.sent[0].body, &evt))
	assert.Equal(t, GasConsumptionCreated, evt.Type)
	assert.NotEmpty(t, evt.ID)
	assert.Equal(t, "42", pub.sent[0].key)
}

func TestDispatchSkipsUnroutedEvents(t *testing.T) {
	pub := &fakePublisher{}
	d := newTestDispatcher(pub, map[string][]string{})

	d.Dispatch(context.Background(), GccDue, "1", nil)
	d.Wait()

	assert.Empty(t, pub.sent)
}

func TestDispatchContinuesAfterQueueFailure(t *testing.T) {
	pub := &fakePublisher{failOn: map[string]error{"gas-consumption": errors.New("broker down")}}
	d := newTestDispatcher(pub, map[string][]string{
		"gas_consumption_updated": {"gas-consumption", "gcc-planner"},
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.Dispatch(ctx, GasConsumptionUpdated, "7", map[string]any{})
	d.Wait()

	require.Len(t, pub.sent, 1)
	assert.Equal(t, "gcc-planner", pub.sent[0].queue)
}

type blockingPublisher struct {
	fakePublisher
	release chan struct{}
}

func (b *blockingPublisher) Publish(ctx context.Context, queue string, key string, body []byte) error {
	<-b.release
	return b.fakePublisher.Publish(ctx, queue, key, body)
}

func TestDispatchDoesNotWaitForBroker(t *testing.T) {
	pub := &blockingPublisher{release: make(chan struct{})}
	d := newTestDispatcher(pub, map[string][]string{
		"gcc_created": {"gcc"},
	})

	returned := make(chan struct{})
	go func() {
		d.Dispatch(context.Background(), GccCreated, "1", nil)
		d.Dispatch(context.Background(), GccApprovedByAdmin, "1", nil)
		close(returned)
	}()

	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("dispatch blocked on a stalled broker")
	}

	close(pub.release)
	d.Wait()
	require.Len(t, pub.sent, 1)
	assert.Equal(t, "gcc", pub.sent[0].queue)
}

func TestDispatchKeepsOrder(t *testing.T) {
	pub := &fakePublisher{}
	d := newTestDispatcher(pub, map[string][]string{
		"gas_consumption_created": {"gas-consumption"},
		"gas_consumption_updated": {"gas-consumption"},
	})

	for _, key := range []string{"1", "2", "3"} {
		d.Dispatch(context.Background(), GasConsumptionCreated, key, nil)
		d.Dispatch(context.Background(), GasConsumptionUpdated, key, nil)
	}
	d.Wait()

	var keys []string
	for _, msg := range pub.sent {
		keys = append(keys, msg.key)
	}
	assert.Equal(t, []string{"1", "1", "2", "2", "3", "3"}, keys)
}

func TestNilDispatcherIsNoop(t *testing.T) {
	var d *Dispatcher
	d.Dispatch(context.Background(), GccCreated, "1", nil)
	d.Wait()
}

type fakeWriter struct {
	msgs []kafka.Message
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestKafkaPublisherUsesQueueAsTopic(t *testing.T) {
	w := &fakeWriter{}
	p := NewKafkaPublisherWithWriter(w)

	require.NoError(t, p.Publish(context.Background(), "gas-consumption", "9", []byte(`{}`)))

	require.Len(t, w.msgs, 1)
	assert.Equal(t, "gas-consumption", w.msgs[0].Topic)
	assert.Equal(t, []byte("9"), w.msgs[0].Key)
}

type fakeChannel struct {
	declared  []string
	published []amqp.Publishing
	keys      []string
}

func (c *fakeChannel) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error) {
	c.declared = append(c.declared, name)
	return amqp.Queue{Name: name}, nil
}

func (c *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	c.keys = append(c.keys, key)
	c.published = append(c.published, msg)
	return nil
}

func (c *fakeChannel) Close() error { return nil }

func TestRabbitMQPublisherDeclaresQueueOnce(t *testing.T) {
	ch := &fakeChannel{}
	p := NewRabbitMQPublisher(ch)

	require.NoError(t, p.Publish(context.Background(), "gas-consumption", "1", []byte(`{}`)))
	require.NoError(t, p.Publish(context.Background(), "gas-consumption", "2", []byte(`{}`)))

	assert.Equal(t, []string{"gas-consumption"}, ch.declared)
	require.Len(t, ch.published, 2)
	assert.Equal(t, amqp.Persistent, ch.published[0].DeliveryMode)
	assert.Equal(t, "application/json", ch.published[0].ContentType)
	assert.Equal(t, []string{"gas-consumption", "gas-consumption"}, ch.keys)
}
