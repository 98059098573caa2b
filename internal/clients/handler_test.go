package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/resource-mgmt/console/internal/confirm"
	"github.com/resource-mgmt/console/internal/crud"
	"github.com/resource-mgmt/console/internal/models"
	"github.com/resource-mgmt/console/internal/realtime"
	"github.com/resource-mgmt/console/pkg/idgen"
)

type memStore struct {
	mu   sync.Mutex
	rows map[string]models.Client
}

func newMemStore(rows ...models.Client) *memStore {
	m := &memStore{rows: map[string]models.Client{}}
	for _, r := range rows {
		m.rows[r.ID] = r
	}
	return m
}

func (m *memStore) List(_ context.Context, status *bool) ([]models.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Client{}
	for _, r := range m.rows {
		if status == nil || r.Status == *status {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) Get(_ context.Context, id string) (*models.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok {
		return nil, crud.ErrNotFound
	}
	return &r, nil
}

func (m *memStore) nextLocked() (string, error) {
	last := ""
	for id := range m.rows {
		if last == "" || len(id) > len(last) || (len(id) == len(last) && id > last) {
			last = id
		}
	}
	return idgen.Next(idgen.PrefixClient, idgen.DefaultWidth, last)
}

func (m *memStore) NextID(context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.nextLocked()
}

func (m *memStore) Create(_ context.Context, c *models.Client) (*models.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, err := m.nextLocked()
	if err != nil {
		return nil, err
	}
	cp := *c
	cp.ID = id
	m.rows[id] = cp
	return &cp, nil
}

func (m *memStore) Update(_ context.Context, c *models.Client) (*models.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[c.ID]; !ok {
		return nil, crud.ErrNotFound
	}
	m.rows[c.ID] = *c
	cp := *c
	return &cp, nil
}

func (m *memStore) ToggleStatus(_ context.Context, id string) (*models.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok {
		return nil, crud.ErrNotFound
	}
	r.Status = !r.Status
	m.rows[id] = r
	return &r, nil
}

func (m *memStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return crud.ErrNotFound
	}
	delete(m.rows, id)
	return nil
}

type fixedOrg int

func (o fixedOrg) ID() int { return int(o) }

type recorder struct {
	mu      sync.Mutex
	changes []realtime.Change
}

func (r *recorder) Publish(ch realtime.Change) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, ch)
}

func newRouter(store Store, pub realtime.Publisher) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(store, fixedOrg(1), crud.Lifecycle{
		Confirm: confirm.NewMemoryStore(time.Minute),
		Pub:     pub,
		Logger:  zap.NewNop(),
	})
	r := gin.New()
	r.GET("/clients", h.List)
	r.GET("/clients/next-id", h.NextID)
	r.GET("/clients/:id", h.Get)
	r.POST("/clients", h.Create)
	r.PUT("/clients/:id", h.Update)
	r.PATCH("/clients/:id/status", h.ToggleStatus())
	r.POST("/clients/:id/delete-request", h.RequestDeletion())
	r.DELETE("/clients/:id", h.Remove())
	return r
}

func doJSON(r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func validRequest() ClientRequest {
	return ClientRequest{
		Name:    "Acme Framing",
		Street1: "1 Main St",
		City:    "Austin",
		State:   "TX",
		Country: "USA",
		Zipcode: "73301",
		Phone:   "5125550100",
	}
}

func TestValidate_FirstFailureWins(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(r *ClientRequest)
		msg    string
	}{
		{"name", func(r *ClientRequest) { r.Name = " "; r.City = "" }, "Client name is required"},
		{"street", func(r *ClientRequest) { r.Street1 = "" }, "Street address is required"},
		{"city", func(r *ClientRequest) { r.City = "" }, "City is required"},
		{"state", func(r *ClientRequest) { r.State = "" }, "State is required"},
		{"country", func(r *ClientRequest) { r.Country = "" }, "Country is required"},
		{"zip", func(r *ClientRequest) { r.Zipcode = "" }, "ZIP code is required"},
		{"zip numeric", func(r *ClientRequest) { r.Zipcode = "7330A" }, "ZIP code must be a number"},
		{"phone numeric", func(r *ClientRequest) { r.Phone = "555-0100" }, "Phone must be a number"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := validRequest()
			tc.mutate(&req)
			_, err := req.Validate()
			require.EqualError(t, err, tc.msg)
		})
	}
}

func TestValidate_ParsesNumbers(t *testing.T) {
	req := validRequest()
	req.Phone = ""
	c, err := req.Validate()
	require.NoError(t, err)
	require.Equal(t, int64(73301), c.Zipcode)
	require.Nil(t, c.Phone)
	require.True(t, c.Status)
}

func TestCreate_AllocatesCodeAndPublishes(t *testing.T) {
	store := newMemStore(models.Client{ID: "CL007", Name: "Old", Status: true})
	pub := &recorder{}
	r := newRouter(store, pub)

	w := doJSON(r, http.MethodGet, "/clients/next-id", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"id":"CL008"}`, string(decode(t, w).Data))

	w = doJSON(r, http.MethodPost, "/clients", validRequest())
	require.Equal(t, http.StatusCreated, w.Code)
	var created models.Client
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &created))
	require.Equal(t, "CL008", created.ID)
	require.Equal(t, 1, created.OrgID)

	require.Len(t, pub.changes, 1)
	require.Equal(t, realtime.Insert, pub.changes[0].Type)
	require.Equal(t, "CL008", pub.changes[0].Key)
}

func TestCreate_ValidationFailureWritesNothing(t *testing.T) {
	store := newMemStore()
	pub := &recorder{}
	r := newRouter(store, pub)

	req := validRequest()
	req.Country = ""
	w := doJSON(r, http.MethodPost, "/clients", req)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "Country is required", decode(t, w).Error)
	require.Empty(t, store.rows)
	require.Empty(t, pub.changes)
}

func TestUpdate_ReplacesFields(t *testing.T) {
	store := newMemStore(models.Client{ID: "CL001", Name: "Old", Status: true})
	pub := &recorder{}
	r := newRouter(store, pub)

	req := validRequest()
	req.Name = "Renamed"
	w := doJSON(r, http.MethodPut, "/clients/CL001", req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "Renamed", store.rows["CL001"].Name)
	require.Equal(t, realtime.Update, pub.changes[0].Type)

	w = doJSON(r, http.MethodPut, "/clients/CL404", req)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestList_StatusFilter(t *testing.T) {
	store := newMemStore(
		models.Client{ID: "CL001", Status: true},
		models.Client{ID: "CL002", Status: false},
	)
	r := newRouter(store, realtime.Discard)

	var all, inactive []models.Client
	require.NoError(t, json.Unmarshal(decode(t, doJSON(r, http.MethodGet, "/clients", nil)).Data, &all))
	require.Len(t, all, 2)
	require.NoError(t, json.Unmarshal(decode(t, doJSON(r, http.MethodGet, "/clients?status=inactive", nil)).Data, &inactive))
	require.Len(t, inactive, 1)
	require.Equal(t, "CL002", inactive[0].ID)

	require.Equal(t, http.StatusBadRequest, doJSON(r, http.MethodGet, "/clients?status=maybe", nil).Code)
}

func TestToggleAndDelete(t *testing.T) {
	store := newMemStore(models.Client{ID: "CL001", Status: true}, models.Client{ID: "CL002", Status: true})
	pub := &recorder{}
	r := newRouter(store, pub)

	require.Equal(t, http.StatusOK, doJSON(r, http.MethodPatch, "/clients/CL001/status", nil).Code)
	require.False(t, store.rows["CL001"].Status)

	w := doJSON(r, http.MethodPost, "/clients/CL001/delete-request", nil)
	require.Equal(t, http.StatusAccepted, w.Code)
	var pending confirm.Pending
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &pending))

	require.Equal(t, http.StatusNoContent, doJSON(r, http.MethodDelete, "/clients/CL001?confirm="+pending.Token, nil).Code)
	require.NotContains(t, store.rows, "CL001")
	require.Contains(t, store.rows, "CL002")
	require.Equal(t, realtime.Delete, pub.changes[len(pub.changes)-1].Type)
}
