package teams

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/resource-mgmt/console/internal/confirm"
	"github.com/resource-mgmt/console/internal/crud"
	"github.com/resource-mgmt/console/internal/models"
	"github.com/resource-mgmt/console/internal/realtime"
)

// memStore mirrors the two tables so member cleanup on delete is observable.
type memStore struct {
	next      int64
	teams     map[int64]models.Team
	members   map[int64][]models.TeamMember
	employees map[string]string
}

func newMemStore() *memStore {
	return &memStore{
		next:      1,
		teams:     map[int64]models.Team{},
		members:   map[int64][]models.TeamMember{},
		employees: map[string]string{"EMP001": "Ana Ruiz", "EMP002": "Li Wei", "EMP003": "Sam Okafor"},
	}
}

func (m *memStore) load(t models.Team) models.Team {
	t.Members = append([]models.TeamMember{}, m.members[t.ID]...)
	if t.LeadID != nil {
		t.LeadName = m.employees[*t.LeadID]
	}
	return t
}

func (m *memStore) List(_ context.Context, status *bool) ([]models.Team, error) {
	out := []models.Team{}
	for id := int64(1); id < m.next; id++ {
		if t, ok := m.teams[id]; ok && (status == nil || t.Status == *status) {
			out = append(out, m.load(t))
		}
	}
	return out, nil
}

func (m *memStore) Get(_ context.Context, id int64) (*models.Team, error) {
	t, ok := m.teams[id]
	if !ok {
		return nil, crud.ErrNotFound
	}
	t = m.load(t)
	return &t, nil
}

func (m *memStore) write(t *models.Team) error {
	rows := []models.TeamMember{}
	for _, mem := range t.Members {
		name, ok := m.employees[mem.EmployeeID]
		if !ok {
			return crud.Invalid("Selected team member not found")
		}
		rows = append(rows, models.TeamMember{TeamID: t.ID, EmployeeID: mem.EmployeeID, EmployeeName: name})
	}
	m.members[t.ID] = rows
	cp := *t
	cp.Members = nil
	m.teams[t.ID] = cp
	return nil
}

func (m *memStore) Create(ctx context.Context, t *models.Team) (*models.Team, error) {
	cp := *t
	cp.ID = m.next
	if err := m.write(&cp); err != nil {
		return nil, err
	}
	m.next++
	return m.Get(ctx, cp.ID)
}

func (m *memStore) Update(ctx context.Context, t *models.Team) (*models.Team, error) {
	if _, ok := m.teams[t.ID]; !ok {
		return nil, crud.ErrNotFound
	}
	if err := m.write(t); err != nil {
		return nil, err
	}
	return m.Get(ctx, t.ID)
}

func (m *memStore) ToggleStatus(ctx context.Context, id int64) (*models.Team, error) {
	t, ok := m.teams[id]
	if !ok {
		return nil, crud.ErrNotFound
	}
	t.Status = !t.Status
	m.teams[id] = t
	return m.Get(ctx, id)
}

func (m *memStore) Delete(_ context.Context, id int64) error {
	if _, ok := m.teams[id]; !ok {
		return crud.ErrNotFound
	}
	delete(m.members, id)
	delete(m.teams, id)
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
	r.GET("/teams", h.List)
	r.GET("/teams/:id", h.Get)
	r.POST("/teams", h.Create)
	r.PUT("/teams/:id", h.Update)
	r.PATCH("/teams/:id/status", h.ToggleStatus())
	r.POST("/teams/:id/delete-request", h.RequestDeletion())
	r.DELETE("/teams/:id", h.Remove())
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

func TestTeamValidation(t *testing.T) {
	_, err := TeamRequest{Name: "Framing crew"}.validate()
	require.EqualError(t, err, "Please fill in all required fields")
	_, err = TeamRequest{LeadID: "EMP001"}.validate()
	require.EqualError(t, err, "Please fill in all required fields")

	team, err := TeamRequest{Name: "Crew", LeadID: "EMP001", MemberIDs: []string{"EMP002", "EMP002", " "}}.validate()
	require.NoError(t, err)
	require.Len(t, team.Members, 1)
}

func TestTeamLifecycle(t *testing.T) {
	store := newMemStore()
	r := newRouter(store)

	w := doJSON(r, http.MethodPost, "/teams", TeamRequest{Name: "Crew A", LeadID: "EMP001", MemberIDs: []string{"EMP002", "EMP003"}})
	require.Equal(t, http.StatusCreated, w.Code)
	var body struct {
		Data models.Team `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, "Ana Ruiz", body.Data.LeadName)
	require.Len(t, body.Data.Members, 2)

	require.Equal(t, http.StatusOK, doJSON(r, http.MethodPut, "/teams/1", TeamRequest{Name: "Crew A", LeadID: "EMP001", MemberIDs: []string{"EMP003"}}).Code)
	require.Len(t, store.members[1], 1)
	require.Equal(t, "Sam Okafor", store.members[1][0].EmployeeName)

	w = doJSON(r, http.MethodPut, "/teams/1", TeamRequest{Name: "Crew A", LeadID: "EMP001", MemberIDs: []string{"EMP999"}})
	require.Equal(t, http.StatusBadRequest, w.Code)

	require.Equal(t, http.StatusOK, doJSON(r, http.MethodPatch, "/teams/1/status", nil).Code)
	w = doJSON(r, http.MethodGet, "/teams?status=inactive", nil)
	var list struct {
		Data []models.Team `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Data, 1)

	w = doJSON(r, http.MethodPost, "/teams/1/delete-request", nil)
	var pending struct {
		Data confirm.Pending `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &pending))
	require.Equal(t, http.StatusNoContent, doJSON(r, http.MethodDelete, "/teams/1?confirm="+pending.Data.Token, nil).Code)
	require.Empty(t, store.teams)
	require.Empty(t, store.members)
}
