package realtime

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/resource-mgmt/console/internal/metrics"
)

const (
	// PingInterval and PongWait are used for heartbeat.
	PingInterval = 30
	PongWait     = 60
)

// Subscriber receives change events for the tables it subscribed to.
type Subscriber interface {
	SubscriberID() string
	// Deliver must not block; it reports false when the event was dropped.
	Deliver(ch Change) bool
}

// RedisPublisher is the interface for publishing to Redis (for cross-instance broadcast).
type RedisPublisher interface {
	PublishTableEvent(table string, payload []byte) error
}

// RedisSubscriber subscribes to table channels and invokes handler for incoming events.
type RedisSubscriber interface {
	SubscribeTable(table string, handler func(payload []byte)) (cancel func(), err error)
}

// Hub keeps one shared subscription per table, reference counted by local subscribers.
// The table's Redis channel is opened on the first subscriber and closed when the last one leaves.
// A table whose channel could not be opened is served locally and the channel is retried on the
// next Subscribe.
type Hub struct {
	// table -> map[subscriberID]Subscriber
	tables   map[string]map[string]Subscriber
	subs     map[string]func() // cancel Redis subscription per table
	opening  map[string]bool
	mu       sync.RWMutex
	logger   *zap.Logger
	redis    RedisPublisher
	redisSub RedisSubscriber
}

// NewHub creates a hub. redisPub and redisSub may be nil for single-instance use.
func NewHub(logger *zap.Logger, redisPub RedisPublisher, redisSub RedisSubscriber) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		tables:   make(map[string]map[string]Subscriber),
		subs:     make(map[string]func()),
		opening:  make(map[string]bool),
		logger:   logger,
		redis:    redisPub,
		redisSub: redisSub,
	}
}

// Subscribe adds s to table and makes sure the table's Redis channel is open.
func (h *Hub) Subscribe(table string, s Subscriber) {
	h.mu.Lock()
	if h.tables[table] == nil {
		h.tables[table] = make(map[string]Subscriber)
	}
	h.tables[table][s.SubscriberID()] = s
	count := len(h.tables[table])
	open := h.redisSub != nil && h.subs[table] == nil && !h.opening[table]
	if open {
		h.opening[table] = true
	}
	h.mu.Unlock()

	if open {
		h.openChannel(table)
	}
	metrics.RealtimeSubscribers.WithLabelValues(table).Set(float64(count))
	h.logger.Debug("subscribed", zap.String("subscriber_id", s.SubscriberID()), zap.String("table", table))
}

// openChannel subscribes to the table's Redis channel outside the lock and installs it if the
// table still has subscribers.
func (h *Hub) openChannel(table string) {
	cancel, err := h.redisSub.SubscribeTable(table, func(payload []byte) {
		var ch Change
		if err := json.Unmarshal(payload, &ch); err != nil {
			h.logger.Warn("invalid change payload", zap.String("table", table), zap.Error(err))
			return
		}
		h.Broadcast(ch)
	})

	h.mu.Lock()
	delete(h.opening, table)
	install := err == nil && len(h.tables[table]) > 0 && h.subs[table] == nil
	if install {
		h.subs[table] = cancel
	}
	h.mu.Unlock()

	switch {
	case err != nil:
		h.logger.Error("redis subscribe failed, serving table locally", zap.String("table", table), zap.Error(err))
	case !install:
		cancel()
	}
}

// relayed reports whether changes on table come back through its Redis channel.
func (h *Hub) relayed(table string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.subs[table]
	return ok
}

// Unsubscribe removes s from table. Cancels the Redis subscription when the last subscriber leaves.
func (h *Hub) Unsubscribe(table string, s Subscriber) {
	h.mu.Lock()
	count := h.removeLocked(table, s.SubscriberID())
	h.mu.Unlock()

	metrics.RealtimeSubscribers.WithLabelValues(table).Set(float64(count))
	h.logger.Debug("unsubscribed", zap.String("subscriber_id", s.SubscriberID()), zap.String("table", table))
}

// UnsubscribeAll removes s from every table it joined.
func (h *Hub) UnsubscribeAll(s Subscriber) {
	id := s.SubscriberID()
	counts := make(map[string]int)
	h.mu.Lock()
	for table, m := range h.tables {
		if _, ok := m[id]; ok {
			counts[table] = h.removeLocked(table, id)
		}
	}
	h.mu.Unlock()

	for table, n := range counts {
		metrics.RealtimeSubscribers.WithLabelValues(table).Set(float64(n))
	}
}

func (h *Hub) removeLocked(table, id string) int {
	m, ok := h.tables[table]
	if !ok {
		return 0
	}
	delete(m, id)
	if len(m) > 0 {
		return len(m)
	}
	delete(h.tables, table)
	if cancel, ok := h.subs[table]; ok {
		cancel()
		delete(h.subs, table)
	}
	return 0
}

// Broadcast delivers ch to local subscribers of its table only.
func (h *Hub) Broadcast(ch Change) {
	h.mu.RLock()
	m := h.tables[ch.Table]
	targets := make([]Subscriber, 0, len(m))
	for _, s := range m {
		targets = append(targets, s)
	}
	h.mu.RUnlock()

	for _, s := range targets {
		if !s.Deliver(ch) {
			h.logger.Warn("subscriber buffer full, change dropped",
				zap.String("subscriber_id", s.SubscriberID()), zap.String("table", ch.Table))
		}
	}
}

// Publish emits ch to every instance. When the table's Redis channel is open the event goes to
// Redis only and the channel delivers it locally, so each local subscriber receives it once.
func (h *Hub) Publish(ch Change) {
	metrics.RealtimeChanges.WithLabelValues(ch.Table, string(ch.Type)).Inc()
	if h.redis != nil {
		data, err := json.Marshal(ch)
		if err != nil {
			return
		}
		err = h.redis.PublishTableEvent(ch.Table, data)
		if err == nil && h.relayed(ch.Table) {
			return
		}
		if err != nil {
			h.logger.Warn("redis publish failed, delivering locally", zap.String("table", ch.Table), zap.Error(err))
		}
	}
	h.Broadcast(ch)
}

// SubscriberCount returns the number of local subscribers of table.
func (h *Hub) SubscriberCount(table string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.tables[table])
}

// Listen registers an in-process callback for table and returns a function that removes it.
// fn runs on the delivering goroutine and must return quickly.
func (h *Hub) Listen(table string, fn func(Change)) (stop func()) {
	l := &listener{id: "listener-" + uuid.New().String(), fn: fn}
	h.Subscribe(table, l)
	var once sync.Once
	return func() {
		once.Do(func() { h.Unsubscribe(table, l) })
	}
}

type listener struct {
	id string
	fn func(Change)
}

func (l *listener) SubscriberID() string { return l.id }

func (l *listener) Deliver(ch Change) bool {
	l.fn(ch)
	return true
}
