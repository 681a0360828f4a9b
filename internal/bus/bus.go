// Package bus is the in-process fan-out layer between the sensing
// pipeline and its output channels. Producers publish onto named topics
// without ever blocking; each subscriber owns a delivery goroutine and a
// bounded mailbox, so one slow consumer cannot stall the capture loop or
// starve its peers.
package bus

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/mudra/internal/logger"
	"github.com/ayusman/mudra/internal/metrics"
)

// Topic names a stream of envelopes.
type Topic string

const (
	// TopicGestureActions carries discrete gesture events.
	TopicGestureActions Topic = "gesture-actions"
	// TopicSpatial carries smoothed coordinate updates.
	TopicSpatial Topic = "spatial-coordinates"
	// TopicVisualization carries annotated frames and hand telemetry
	// for the monitoring surfaces.
	TopicVisualization Topic = "visualization-frame"
)

// Envelope wraps one published payload with its ordering metadata.
type Envelope struct {
	Topic   Topic
	Seq     uint64
	At      time.Time
	Payload any
}

// Sink consumes envelopes from a subscription's delivery goroutine.
// Deliver is called sequentially per subscription and may block; the
// mailbox policy decides what happens upstream while it does.
type Sink interface {
	Name() string
	Deliver(env Envelope) error
}

// Policy selects the mailbox behavior on backpressure.
type Policy int

const (
	// PolicyLatest keeps a single slot: a newer envelope replaces an
	// undelivered older one. The freshest value always arrives.
	PolicyLatest Policy = iota
	// PolicyDropOldest keeps a bounded queue and evicts the head when
	// full. Bursts keep their order but lose their oldest entries.
	PolicyDropOldest
)

// ErrClosed is returned by Subscribe after the bus has shut down.
var ErrClosed = errors.New("bus: closed")

type subscription struct {
	id     string
	topic  Topic
	sink   Sink
	policy Policy
	mbox   chan Envelope
	done   chan struct{}
}

// Bus routes envelopes from publishers to subscribed sinks. Safe for
// concurrent use.
type Bus struct {
	cfg options

	mu     sync.Mutex
	subs   map[Topic][]*subscription
	seq    map[Topic]uint64
	closed bool
	wg     sync.WaitGroup
}

// New returns a started bus.
func New(opts ...Option) *Bus {
	cfg := defaultOptions()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Bus{
		cfg:  cfg,
		subs: make(map[Topic][]*subscription),
		seq:  make(map[Topic]uint64),
	}
}

// Subscribe attaches a sink to a topic and returns the registration id
// used to unsubscribe. Delivery order across sinks of a topic follows
// registration order for each published envelope.
func (b *Bus) Subscribe(topic Topic, sink Sink, opts ...SubscribeOption) (string, error) {
	cfg := subscribeOptions{
		policy: PolicyLatest,
		buffer: b.cfg.buffer,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	buffer := cfg.buffer
	if cfg.policy == PolicyLatest {
		buffer = 1
	}
	sub := &subscription{
		id:     uuid.NewString(),
		topic:  topic,
		sink:   sink,
		policy: cfg.policy,
		mbox:   make(chan Envelope, buffer),
		done:   make(chan struct{}),
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return "", ErrClosed
	}
	b.subs[topic] = append(b.subs[topic], sub)
	b.wg.Add(1)
	go b.deliver(sub)
	return sub.id, nil
}

// Unsubscribe detaches a registration and stops its delivery goroutine.
// Unknown ids are ignored.
func (b *Bus) Unsubscribe(id string) {
	b.mu.Lock()
	var victim *subscription
	for topic, subs := range b.subs {
		for i, sub := range subs {
			if sub.id == id {
				victim = sub
				b.subs[topic] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
		if victim != nil {
			break
		}
	}
	b.mu.Unlock()

	if victim != nil {
		close(victim.done)
	}
}

// Publish fans an envelope out to every sink on the topic. It never
// blocks: full mailboxes shed load according to each subscription's
// policy. Publishing on a closed bus is a no-op.
func (b *Bus) Publish(topic Topic, at time.Time, payload any) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.seq[topic]++
	env := Envelope{Topic: topic, Seq: b.seq[topic], At: at, Payload: payload}
	subs := b.subs[topic]
	b.mu.Unlock()

	metrics.RecordPublish(string(topic))
	for _, sub := range subs {
		b.offer(sub, env)
	}
}

// offer places an envelope into a mailbox without blocking, evicting
// according to the subscription policy when the mailbox is full.
func (b *Bus) offer(sub *subscription, env Envelope) {
	select {
	case sub.mbox <- env:
		return
	default:
	}

	// Mailbox full: evict one entry and retry once. The delivery
	// goroutine may have drained in between, so the retry can still
	// succeed without eviction.
	select {
	case <-sub.mbox:
		metrics.RecordSuperseded(string(sub.topic), sub.sink.Name())
	default:
	}
	select {
	case sub.mbox <- env:
	default:
		metrics.RecordSuperseded(string(sub.topic), sub.sink.Name())
	}
}

// deliver is the per-subscription pump. Envelopes that are older than
// the last delivered one are stale replays and are skipped.
func (b *Bus) deliver(sub *subscription) {
	defer b.wg.Done()

	var lastSeq uint64
	for {
		select {
		case env := <-sub.mbox:
			if env.Seq <= lastSeq {
				metrics.RecordSuperseded(string(sub.topic), sub.sink.Name())
				continue
			}
			lastSeq = env.Seq
			if err := sub.sink.Deliver(env); err != nil {
				metrics.RecordSinkError(string(sub.topic), sub.sink.Name())
				logger.Logger().Warnw("sink delivery failed",
					"topic", sub.topic,
					"sink", sub.sink.Name(),
					"error", err,
				)
				continue
			}
			metrics.RecordDelivery(string(sub.topic), sub.sink.Name())
		case <-sub.done:
			return
		}
	}
}

// Close stops accepting publishes, detaches every sink, and waits for
// in-flight deliveries to finish. Envelopes still queued in mailboxes
// are dropped.
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	var all []*subscription
	for _, subs := range b.subs {
		all = append(all, subs...)
	}
	b.subs = make(map[Topic][]*subscription)
	b.mu.Unlock()

	for _, sub := range all {
		close(sub.done)
	}
	b.wg.Wait()
	return nil
}
