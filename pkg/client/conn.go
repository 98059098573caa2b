package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Status is the state of a table subscription.
type Status string

const (
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusDisconnected Status = "disconnected"
)

const writeWait = 10 * time.Second

// ErrClosed is returned when using a connection that has been closed or lost.
var ErrClosed = errors.New("live update connection closed")

type wireMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type tableData struct {
	Table string `json:"table"`
}

// Options configures Dial.
type Options struct {
	// Header is sent with the WebSocket handshake.
	Header http.Header
	// OnStatus, if set, is called whenever a table subscription changes status.
	OnStatus func(table string, status Status)
}

// Conn is one WebSocket connection to the console. Subscriptions to the same table share a
// single server-side subscription; the server is told to unsubscribe when the last one closes.
type Conn struct {
	ws       *websocket.Conn
	opts     Options
	writeMu  sync.Mutex
	mu       sync.Mutex
	tables   map[string]*tableState
	nextID   int
	closed   bool
	done     chan struct{}
	closeErr error
}

type tableState struct {
	status   Status
	handlers map[int]func(Change)
}

// Dial connects to the live update endpoint (e.g. ws://host/api/v1/ws) authenticating with token.
func Dial(ctx context.Context, endpoint, token string, opts Options) (*Conn, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()

	ws, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), opts.Header)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	c := &Conn{
		ws:     ws,
		opts:   opts,
		tables: make(map[string]*tableState),
		done:   make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// Subscription is a handle on one consumer of a table's changes.
type Subscription struct {
	conn  *Conn
	table string
	id    int
	once  sync.Once
	err   error
}

// Table returns the subscribed table.
func (s *Subscription) Table() string { return s.table }

// Status reports the shared subscription status of the table.
func (s *Subscription) Status() Status { return s.conn.Status(s.table) }

// Close removes this consumer. The table is unsubscribed on the server when no consumers remain.
func (s *Subscription) Close() error {
	s.once.Do(func() { s.err = s.conn.release(s.table, s.id) })
	return s.err
}

// Subscribe registers fn for changes on table. fn runs on the connection's read goroutine.
func (c *Conn) Subscribe(table string, fn func(Change)) (*Subscription, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	c.nextID++
	id := c.nextID
	st, ok := c.tables[table]
	first := !ok
	if first {
		st = &tableState{status: StatusConnecting, handlers: make(map[int]func(Change))}
		c.tables[table] = st
	}
	st.handlers[id] = fn
	c.mu.Unlock()

	if first {
		c.notify(table, StatusConnecting)
		if err := c.send("subscribe", tableData{Table: table}); err != nil {
			_ = c.release(table, id)
			return nil, err
		}
	}
	return &Subscription{conn: c, table: table, id: id}, nil
}

// Status returns the status of table's subscription; tables never subscribed are disconnected.
func (c *Conn) Status(table string) Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	if st, ok := c.tables[table]; ok {
		return st.status
	}
	return StatusDisconnected
}

// Done is closed when the connection is lost or closed.
func (c *Conn) Done() <-chan struct{} { return c.done }

// Close closes the connection; every subscription becomes disconnected.
func (c *Conn) Close() error {
	c.writeMu.Lock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	_ = c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.writeMu.Unlock()
	err := c.ws.Close()
	<-c.done
	return err
}

func (c *Conn) release(table string, id int) error {
	c.mu.Lock()
	st, ok := c.tables[table]
	if !ok {
		c.mu.Unlock()
		return nil
	}
	delete(st.handlers, id)
	last := len(st.handlers) == 0
	if last {
		delete(c.tables, table)
	}
	closed := c.closed
	c.mu.Unlock()

	if !last {
		return nil
	}
	c.notify(table, StatusDisconnected)
	if closed {
		return nil
	}
	return c.send("unsubscribe", tableData{Table: table})
}

func (c *Conn) send(event string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.ws.WriteJSON(wireMessage{Event: event, Data: data}); err != nil {
		return fmt.Errorf("%s %w", event, err)
	}
	return nil
}

func (c *Conn) setStatus(table string, status Status) {
	c.mu.Lock()
	st, ok := c.tables[table]
	changed := ok && st.status != status
	if changed {
		st.status = status
	}
	c.mu.Unlock()
	if changed {
		c.notify(table, status)
	}
}

func (c *Conn) notify(table string, status Status) {
	if c.opts.OnStatus != nil {
		c.opts.OnStatus(table, status)
	}
}

func (c *Conn) handlersFor(table string) []func(Change) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.tables[table]
	if !ok {
		return nil
	}
	out := make([]func(Change), 0, len(st.handlers))
	for _, h := range st.handlers {
		out = append(out, h)
	}
	return out
}

func (c *Conn) readLoop() {
	defer c.shutdown()
	for {
		var msg wireMessage
		if err := c.ws.ReadJSON(&msg); err != nil {
			c.mu.Lock()
			c.closeErr = err
			c.mu.Unlock()
			return
		}
		switch msg.Event {
		case "subscribed":
			var td tableData
			if json.Unmarshal(msg.Data, &td) == nil {
				c.setStatus(td.Table, StatusConnected)
			}
		case "change":
			var ch Change
			if err := json.Unmarshal(msg.Data, &ch); err != nil {
				continue
			}
			for _, h := range c.handlersFor(ch.Table) {
				h(ch)
			}
		}
	}
}

func (c *Conn) shutdown() {
	c.mu.Lock()
	c.closed = true
	tables := make([]string, 0, len(c.tables))
	for t, st := range c.tables {
		if st.status != StatusDisconnected {
			st.status = StatusDisconnected
			tables = append(tables, t)
		}
	}
	c.mu.Unlock()
	for _, t := range tables {
		c.notify(t, StatusDisconnected)
	}
	close(c.done)
}

// Follow keeps list in step with table. Errors applying a change are passed to onErr when set.
func Follow[T any](ctx context.Context, c *Conn, table string, list *LiveList[T], onErr func(error)) (*Subscription, error) {
	return c.Subscribe(table, func(ch Change) {
		if err := list.Apply(ctx, ch); err != nil && onErr != nil {
			onErr(err)
		}
	})
}
