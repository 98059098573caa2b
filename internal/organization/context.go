package organization

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/resource-mgmt/console/internal/models"
	"github.com/resource-mgmt/console/internal/realtime"
)

// State is the load state of the organization context.
type State string

const (
	StateLoading State = "loading"
	StateReady   State = "ready"
	StateError   State = "error"
)

// Store loads and saves the organization row.
type Store interface {
	Ensure(ctx context.Context) (*models.Organization, error)
	Update(ctx context.Context, o *models.Organization) (*models.Organization, error)
}

// Listener registers in-process change callbacks; *realtime.Hub implements it.
type Listener interface {
	Listen(table string, fn func(realtime.Change)) (stop func())
}

// Snapshot is a consistent view of the context.
type Snapshot struct {
	State        State                `json:"state"`
	Organization *models.Organization `json:"organization,omitempty"`
	Error        string               `json:"error,omitempty"`
}

// Context holds the current organization for the whole process. It is loaded once at startup,
// handed to the handlers that stamp org ids, and refreshed whenever the row changes.
type Context struct {
	mu     sync.RWMutex
	state  State
	org    *models.Organization
	err    error
	store  Store
	logger *zap.Logger
}

// NewContext creates a context in the loading state.
func NewContext(store Store, logger *zap.Logger) *Context {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Context{state: StateLoading, store: store, logger: logger}
}

// Load fetches the organization, creating the default row if needed.
func (c *Context) Load(ctx context.Context) error {
	org, err := c.store.Ensure(ctx)
	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.state, c.err = StateError, err
		c.logger.Error("load organization failed", zap.Error(err))
		return err
	}
	c.state, c.org, c.err = StateReady, org, nil
	return nil
}

// Set replaces the current organization, e.g. after a successful update.
func (c *Context) Set(org *models.Organization) {
	c.mu.Lock()
	c.state, c.org, c.err = StateReady, org, nil
	c.mu.Unlock()
}

// Snapshot returns the current state.
func (c *Context) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := Snapshot{State: c.state}
	if c.org != nil {
		cp := *c.org
		s.Organization = &cp
	}
	if c.err != nil {
		s.Error = c.err.Error()
	}
	return s
}

// ID returns the organization id to stamp on new rows.
func (c *Context) ID() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.org == nil {
		return models.DefaultOrganizationID
	}
	return c.org.ID
}

// Watch refreshes the context on organization changes until stop is called.
func (c *Context) Watch(l Listener) (stop func()) {
	return l.Listen(realtime.TableOrganization, func(ch realtime.Change) {
		if ch.Type == realtime.Delete || len(ch.Record) == 0 {
			go c.reload()
			return
		}
		var org models.Organization
		if err := json.Unmarshal(ch.Record, &org); err != nil {
			go c.reload()
			return
		}
		c.Set(&org)
	})
}

func (c *Context) reload() {
	_ = c.Load(context.Background())
}
