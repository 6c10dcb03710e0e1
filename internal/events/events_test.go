package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

func TestMessageJSON(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.FixedZone("CET", 3600))
	msg := NewMessage(KindCreated, "abc", now)

	body, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	got, err := MessageFromJSON(body)
	if err != nil {
		t.Fatalf("MessageFromJSON: %v", err)
	}
	if got.Kind != KindCreated || got.ID != "abc" || !got.Timestamp.Equal(now) {
		t.Errorf("got %+v", got)
	}
}

func TestMessageFromJSONRejects(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `nope`},
		{"unknown kind", `{"kind":"updated","id":"x"}`},
		{"missing id", `{"kind":"deleted"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := MessageFromJSON([]byte(tt.body)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestNop(t *testing.T) {
	var p Publisher = Nop{}
	if err := p.Publish(context.Background(), KindDeleted, "x"); err != nil {
		t.Errorf("Nop.Publish: %v", err)
	}
}

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second},
		{12, 30 * time.Second},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("attempt_%d", tt.attempt), func(t *testing.T) {
			if got := exponentialBackoff(tt.attempt); got != tt.expected {
				t.Errorf("exponentialBackoff(%d) = %v, want %v", tt.attempt, got, tt.expected)
			}
		})
	}
}

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"refused", errors.New("dial tcp: connection refused"), true},
		{"channel closed", fmt.Errorf("consume: %w", ErrChannelClosed), true},
		{"amqp closed", amqp091.ErrClosed, true},
		{"other", errors.New("access refused: bad credentials"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isConnectionError(tt.err); got != tt.want {
				t.Errorf("isConnectionError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

type queueDeclare struct {
	name                           string
	durable, autoDelete, exclusive bool
}

type binding struct {
	queue, key, exchange string
}

// fakeChannel records declarations and serves deliveries from a Go channel.
type fakeChannel struct {
	exchanges  []string
	queues     []queueDeclare
	bindings   []binding
	consumed   string
	exclusive  bool
	published  []amqp091.Publishing
	publishKey string
	deliveries chan amqp091.Delivery
}

func (f *fakeChannel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp091.Table) error {
	f.exchanges = append(f.exchanges, name)
	return nil
}

func (f *fakeChannel) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp091.Table) (amqp091.Queue, error) {
	f.queues = append(f.queues, queueDeclare{name, durable, autoDelete, exclusive})
	return amqp091.Queue{Name: "amq.gen-test"}, nil
}

func (f *fakeChannel) QueueBind(name, key, exchange string, noWait bool, args amqp091.Table) error {
	f.bindings = append(f.bindings, binding{name, key, exchange})
	return nil
}

func (f *fakeChannel) Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp091.Table) (<-chan amqp091.Delivery, error) {
	f.consumed = queue
	f.exclusive = exclusive
	return f.deliveries, nil
}

func (f *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error {
	f.publishKey = key
	f.published = append(f.published, msg)
	return nil
}

func (f *fakeChannel) Close() error { return nil }

type fakeAcker struct {
	mu    sync.Mutex
	acked []uint64
}

func (a *fakeAcker) Ack(tag uint64, multiple bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.acked = append(a.acked, tag)
	return nil
}

func (a *fakeAcker) Nack(tag uint64, multiple, requeue bool) error { return nil }

func (a *fakeAcker) Reject(tag uint64, requeue bool) error { return nil }

func TestSetupDeclaresExchangeOnly(t *testing.T) {
	ch := &fakeChannel{}
	c := newClient(ch, "housesplit", "expense.changed", nil)
	if err := c.setup(); err != nil {
		t.Fatalf("setup: %v", err)
	}
	if len(ch.exchanges) != 1 || ch.exchanges[0] != "housesplit" {
		t.Errorf("exchanges = %v, want [housesplit]", ch.exchanges)
	}
	if len(ch.queues) != 0 || len(ch.bindings) != 0 {
		t.Errorf("publisher declared queues %v and bindings %v", ch.queues, ch.bindings)
	}

	if err := c.Publish(context.Background(), KindCreated, "abc"); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if ch.publishKey != "expense.changed" {
		t.Errorf("routing key = %q, want expense.changed", ch.publishKey)
	}
	if got := ch.published[0].DeliveryMode; got != amqp091.Transient {
		t.Errorf("delivery mode = %d, want transient", got)
	}
}

func TestConsumeUsesPrivateQueue(t *testing.T) {
	ch := &fakeChannel{deliveries: make(chan amqp091.Delivery, 1)}
	c := newClient(ch, "housesplit", "expense.changed", nil)

	body, err := NewMessage(KindDeleted, "abc", time.Now()).ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	acker := &fakeAcker{}
	ch.deliveries <- amqp091.Delivery{Acknowledger: acker, DeliveryTag: 7, Body: body}

	ctx, cancel := context.WithCancel(context.Background())
	var got *Message
	err = c.Consume(ctx, func(m *Message) error {
		got = m
		cancel()
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Consume returned %v, want context.Canceled", err)
	}

	want := []queueDeclare{{name: "", durable: false, autoDelete: true, exclusive: true}}
	if len(ch.queues) != 1 || ch.queues[0] != want[0] {
		t.Errorf("queue declarations = %+v, want %+v", ch.queues, want)
	}
	wantBinding := binding{queue: "amq.gen-test", key: "expense.changed", exchange: "housesplit"}
	if len(ch.bindings) != 1 || ch.bindings[0] != wantBinding {
		t.Errorf("bindings = %+v, want %+v", ch.bindings, wantBinding)
	}
	if ch.consumed != "amq.gen-test" || !ch.exclusive {
		t.Errorf("consumed %q exclusive=%v, want amq.gen-test exclusive", ch.consumed, ch.exclusive)
	}
	if got == nil || got.Kind != KindDeleted || got.ID != "abc" {
		t.Errorf("handler got %+v", got)
	}
	if len(acker.acked) != 1 || acker.acked[0] != 7 {
		t.Errorf("acked = %v, want [7]", acker.acked)
	}
}

func TestConsumeChannelClosed(t *testing.T) {
	ch := &fakeChannel{deliveries: make(chan amqp091.Delivery)}
	close(ch.deliveries)
	c := newClient(ch, "housesplit", "expense.changed", nil)

	err := c.Consume(context.Background(), func(*Message) error { return nil })
	if !errors.Is(err, ErrChannelClosed) {
		t.Errorf("Consume returned %v, want ErrChannelClosed", err)
	}
}
