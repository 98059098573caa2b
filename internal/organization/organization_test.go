package organization

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/resource-mgmt/console/internal/models"
	"github.com/resource-mgmt/console/internal/realtime"
)

type memStore struct {
	mu      sync.Mutex
	org     *models.Organization
	ensures int
	fail    error
}

func (m *memStore) Ensure(context.Context) (*models.Organization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensures++
	if m.fail != nil {
		return nil, m.fail
	}
	if m.org == nil {
		d := models.DefaultOrganization()
		m.org = &d
	}
	cp := *m.org
	return &cp, nil
}

func (m *memStore) Update(_ context.Context, o *models.Organization) (*models.Organization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *o
	cp.ID = models.DefaultOrganizationID
	m.org = &cp
	out := cp
	return &out, nil
}

func TestContext_LoadCreatesDefaultOnce(t *testing.T) {
	store := &memStore{}
	oc := NewContext(store, nil)
	require.Equal(t, StateLoading, oc.Snapshot().State)

	require.NoError(t, oc.Load(context.Background()))
	require.NoError(t, oc.Load(context.Background()))

	snap := oc.Snapshot()
	require.Equal(t, StateReady, snap.State)
	require.Equal(t, "Default Organization", snap.Organization.Name)
	require.Equal(t, 1, oc.ID())
}

func TestContext_LoadError(t *testing.T) {
	oc := NewContext(&memStore{fail: errors.New("relation does not exist")}, nil)
	require.Error(t, oc.Load(context.Background()))

	snap := oc.Snapshot()
	require.Equal(t, StateError, snap.State)
	require.Equal(t, "relation does not exist", snap.Error)
	require.Equal(t, models.DefaultOrganizationID, oc.ID())
}

func TestContext_RefreshesOnChange(t *testing.T) {
	hub := realtime.NewHub(nil, nil, nil)
	oc := NewContext(&memStore{}, nil)
	require.NoError(t, oc.Load(context.Background()))
	stop := oc.Watch(hub)
	defer stop()

	renamed := models.DefaultOrganization()
	renamed.Name = "Acme Framing"
	hub.Publish(realtime.NewChange(realtime.TableOrganization, realtime.Update, "1", renamed))

	require.Equal(t, "Acme Framing", oc.Snapshot().Organization.Name)
}

func TestHandler_Update(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := &memStore{}
	oc := NewContext(store, nil)
	var published []realtime.Change
	h := NewHandler(store, oc, realtime.PublisherFunc(func(ch realtime.Change) { published = append(published, ch) }), zap.NewNop())
	r := gin.New()
	r.GET("/organization", h.Get)
	r.PUT("/organization", h.Update)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/organization", nil))
	require.Equal(t, http.StatusOK, w.Code)

	body, _ := json.Marshal(UpdateRequest{Name: ""})
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/organization", bytes.NewReader(body)))
	require.Equal(t, http.StatusBadRequest, w.Code)

	body, _ = json.Marshal(UpdateRequest{Name: "Acme", City: "Pune", ZipCode: 411001})
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/organization", bytes.NewReader(body)))
	require.Equal(t, http.StatusOK, w.Code)

	require.Equal(t, "Acme", oc.Snapshot().Organization.Name)
	require.Len(t, published, 1)
	require.Equal(t, realtime.TableOrganization, published[0].Table)
	require.Equal(t, "1", published[0].Key)
}
