package persistence

import (
	"context"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"ai-reading-be/internal/pkg/logger"
	"ai-reading-be/pkg/reading"
)

const logModule = "PERSISTENCE"

const DefaultDebounce = 2500 * time.Millisecond

type pendingSnapshot struct {
	env   Envelope
	timer *time.Timer
	gen   uint64
}

// Debouncer coalesces bursts of snapshots per session and publishes only the
// latest one once the session has been quiet for the debounce delay.
type Debouncer struct {
	publisher message.Publisher
	topic     string
	delay     time.Duration
	logger    logger.ILogger

	mu      sync.Mutex
	pending map[string]*pendingSnapshot
	gen     uint64
	closed  bool
	wg      sync.WaitGroup
}

func NewDebouncer(publisher message.Publisher, topic string, delay time.Duration, log logger.ILogger) *Debouncer {
	if topic == "" {
		topic = DefaultTopic
	}
	if delay <= 0 {
		delay = DefaultDebounce
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Debouncer{
		publisher: publisher,
		topic:     topic,
		delay:     delay,
		logger:    log,
		pending:   make(map[string]*pendingSnapshot),
	}
}

// Observe replaces the pending snapshot for env's session and restarts its
// timer. Ignored after Close.
func (d *Debouncer) Observe(env Envelope) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}

	key := env.Key()
	d.gen++
	gen := d.gen
	if p, ok := d.pending[key]; ok {
		p.timer.Stop()
	}
	d.pending[key] = &pendingSnapshot{
		env: env,
		gen: gen,
		timer: time.AfterFunc(d.delay, func() {
			d.fire(key, gen)
		}),
	}
}

// Pending reports how many sessions have an unpublished snapshot.
func (d *Debouncer) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// Flush publishes the pending snapshot for key immediately, if any.
func (d *Debouncer) Flush(key string) {
	d.mu.Lock()
	p, ok := d.take(key, 0)
	d.mu.Unlock()
	if ok {
		d.publish(p.env)
	}
}

// Cancel drops the pending snapshot for key without publishing it.
func (d *Debouncer) Cancel(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.take(key, 0)
}

// Close flushes every pending snapshot and waits for in-flight publishes.
func (d *Debouncer) Close() {
	d.mu.Lock()
	d.closed = true
	var flush []Envelope
	for key := range d.pending {
		if p, ok := d.take(key, 0); ok {
			flush = append(flush, p.env)
		}
	}
	d.mu.Unlock()

	for _, env := range flush {
		d.publish(env)
	}
	d.wg.Wait()
}

// ForSession adapts the debouncer to a reading.Observer for one user.
func (d *Debouncer) ForSession(userID string) reading.Observer {
	return sessionObserver{d: d, userID: userID}
}

type sessionObserver struct {
	d      *Debouncer
	userID string
}

func (o sessionObserver) Observe(documentID string, snapshot reading.Snapshot) {
	o.d.Observe(Envelope{DocumentID: documentID, UserID: o.userID, Snapshot: snapshot})
}

func (d *Debouncer) fire(key string, gen uint64) {
	d.mu.Lock()
	p, ok := d.take(key, gen)
	if ok {
		d.wg.Add(1)
	}
	d.mu.Unlock()
	if !ok {
		return
	}
	defer d.wg.Done()
	d.publish(p.env)
}

// take removes the pending entry for key. A non-zero gen must match the entry,
// so a timer that lost the race to a newer Observe does nothing. Callers hold mu.
func (d *Debouncer) take(key string, gen uint64) (*pendingSnapshot, bool) {
	p, ok := d.pending[key]
	if !ok || (gen != 0 && p.gen != gen) {
		return nil, false
	}
	p.timer.Stop()
	delete(d.pending, key)
	return p, true
}

func (d *Debouncer) publish(env Envelope) {
	msg, err := Encode(env)
	if err != nil {
		d.logger.Error(logModule, "Failed to encode snapshot", map[string]interface{}{
			"document_id": env.DocumentID,
			"error":       err.Error(),
		})
		return
	}
	msg.SetContext(context.Background())
	if err := d.publisher.Publish(d.topic, msg); err != nil {
		d.logger.Error(logModule, "Failed to publish snapshot", map[string]interface{}{
			"document_id": env.DocumentID,
			"user_id":     env.UserID,
			"error":       err.Error(),
		})
		return
	}
	d.logger.Debug(logModule, "Snapshot published", map[string]interface{}{
		"document_id": env.DocumentID,
		"stage":       string(env.Snapshot.Stage),
	})
}
