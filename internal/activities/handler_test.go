package activities

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/resource-mgmt/console/internal/confirm"
	"github.com/resource-mgmt/console/internal/crud"
	"github.com/resource-mgmt/console/internal/models"
	"github.com/resource-mgmt/console/internal/realtime"
)

type memStore struct {
	next  int64
	rows  map[int64]models.Activity
	inUse map[int64]bool
}

func (m *memStore) List(_ context.Context, status *bool) ([]models.Activity, error) {
	out := []models.Activity{}
	for id := int64(1); id < m.next; id++ {
		if a, ok := m.rows[id]; ok && (status == nil || a.Status == *status) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memStore) Get(_ context.Context, id int64) (*models.Activity, error) {
	a, ok := m.rows[id]
	if !ok {
		return nil, crud.ErrNotFound
	}
	return &a, nil
}

func (m *memStore) Create(_ context.Context, a *models.Activity) (*models.Activity, error) {
	cp := *a
	cp.ID = m.next
	m.next++
	m.rows[cp.ID] = cp
	return &cp, nil
}

func (m *memStore) Update(_ context.Context, a *models.Activity) (*models.Activity, error) {
	if _, ok := m.rows[a.ID]; !ok {
		return nil, crud.ErrNotFound
	}
	m.rows[a.ID] = *a
	return a, nil
}

func (m *memStore) ToggleStatus(_ context.Context, id int64) (*models.Activity, error) {
	a, ok := m.rows[id]
	if !ok {
		return nil, crud.ErrNotFound
	}
	a.Status = !a.Status
	m.rows[id] = a
	return &a, nil
}

func (m *memStore) Delete(_ context.Context, id int64) error {
	if m.inUse[id] {
		return &pgconn.PgError{Code: "23503", Message: `update or delete on table "activities" violates foreign key constraint`}
	}
	if _, ok := m.rows[id]; !ok {
		return crud.ErrNotFound
	}
	delete(m.rows, id)
	return nil
}

type fixedOrg int

func (o fixedOrg) ID() int { return int(o) }

func newRouter(store Store) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(store, fixedOrg(1), crud.Lifecycle{
		Confirm: confirm.NewMemoryStore(time.Minute),
		Pub:     realtime.Discard,
		Logger:  zap.NewNop(),
	})
	r := gin.New()
	r.GET("/activities", h.List)
	r.GET("/activities/:id", h.Get)
	r.POST("/activities", h.Create)
	r.PUT("/activities/:id", h.Update)
	r.PATCH("/activities/:id/status", h.ToggleStatus())
	r.POST("/activities/:id/delete-request", h.RequestDeletion())
	r.DELETE("/activities/:id", h.Remove())
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

func pendingToken(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Data confirm.Pending `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Data.Token
}

func TestActivities(t *testing.T) {
	store := &memStore{next: 1, rows: map[int64]models.Activity{}, inUse: map[int64]bool{}}
	r := newRouter(store)

	w := doJSON(r, http.MethodPost, "/activities", ActivityRequest{Name: "  "})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "Activity name is required")

	require.Equal(t, http.StatusCreated, doJSON(r, http.MethodPost, "/activities", ActivityRequest{Name: "Framing"}).Code)
	require.Equal(t, http.StatusCreated, doJSON(r, http.MethodPost, "/activities", ActivityRequest{Name: "Detailing"}).Code)
	require.Equal(t, 1, store.rows[1].OrgID)

	require.Equal(t, http.StatusOK, doJSON(r, http.MethodPatch, "/activities/2/status", nil).Code)
	w = doJSON(r, http.MethodGet, "/activities?status=active", nil)
	var body struct {
		Data []models.Activity `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	require.Equal(t, "Framing", body.Data[0].Name)

	store.inUse[1] = true
	token := pendingToken(t, doJSON(r, http.MethodPost, "/activities/1/delete-request", nil))
	w = doJSON(r, http.MethodDelete, "/activities/1?confirm="+token, nil)
	require.Equal(t, http.StatusConflict, w.Code)
	require.Contains(t, w.Body.String(), "violates foreign key constraint")
	require.Contains(t, store.rows, int64(1))
}
