package employees

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
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
	last string
	rows map[string]models.Employee
}

func newMemStore() *memStore {
	return &memStore{rows: map[string]models.Employee{}}
}

func (m *memStore) List(_ context.Context, status *bool) ([]models.Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Employee{}
	for _, e := range m.rows {
		if status == nil || e.Status == *status {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memStore) Get(_ context.Context, id string) (*models.Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.rows[id]
	if !ok {
		return nil, crud.ErrNotFound
	}
	return &e, nil
}

func (m *memStore) NextID(context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return idgen.Next(idgen.PrefixEmployee, idgen.DefaultWidth, m.last)
}

func (m *memStore) Create(_ context.Context, e *models.Employee) (*models.Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, err := idgen.Next(idgen.PrefixEmployee, idgen.DefaultWidth, m.last)
	if err != nil {
		return nil, err
	}
	m.last = id
	cp := *e
	cp.ID = id
	m.rows[id] = cp
	return &cp, nil
}

func (m *memStore) Update(_ context.Context, e *models.Employee) (*models.Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[e.ID]; !ok {
		return nil, crud.ErrNotFound
	}
	m.rows[e.ID] = *e
	cp := *e
	return &cp, nil
}

func (m *memStore) ToggleStatus(_ context.Context, id string) (*models.Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.rows[id]
	if !ok {
		return nil, crud.ErrNotFound
	}
	e.Status = !e.Status
	m.rows[id] = e
	return &e, nil
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

var today = time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC)

func newRouter(store Store, pub realtime.Publisher) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(store, fixedOrg(1), crud.Lifecycle{
		Confirm: confirm.NewMemoryStore(time.Minute),
		Pub:     pub,
		Logger:  zap.NewNop(),
	})
	h.now = func() time.Time { return today }
	r := gin.New()
	r.GET("/employees", h.List)
	r.GET("/employees/next-id", h.NextID)
	r.GET("/employees/:id", h.Get)
	r.POST("/employees", h.Create)
	r.PUT("/employees/:id", h.Update)
	r.PATCH("/employees/:id/status", h.ToggleStatus())
	r.POST("/employees/:id/delete-request", h.RequestDeletion())
	r.DELETE("/employees/:id", h.Remove())
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
	Success bool              `json:"success"`
	Data    json.RawMessage   `json:"data"`
	Error   string            `json:"error"`
	Fields  map[string]string `json:"fields"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func validEmployee() EmployeeRequest {
	role := models.RoleIDEmployee
	return EmployeeRequest{
		FirstName:  "Ana",
		LastName:   "Ruiz",
		Email:      "Ana.Ruiz@Example.com",
		Street1:    "4 Elm St",
		City:       "Pune",
		State:      "MH",
		Country:    "India",
		Zipcode:    "411001",
		NationalID: "123456789012",
		RoleID:     &role,
		Skills:     []SkillRequest{{SkillID: 2, Proficiency: models.ProficiencyAdvanced}},
	}
}

func TestValidate_AggregatesAllFailures(t *testing.T) {
	req := EmployeeRequest{NationalID: "12345", Skills: []SkillRequest{{SkillID: 1}}}
	_, err := req.Validate(today)
	ve, ok := err.(*crud.ValidationError)
	require.True(t, ok)
	require.Equal(t, "Please fix the validation errors before submitting", ve.Message)
	require.Equal(t, map[string]string{
		"first_name":  "First name is required",
		"last_name":   "Last name is required",
		"email":       "Email is required",
		"role_id":     "Role is required",
		"street1":     "Street address is required",
		"city":        "City is required",
		"state":       "State is required",
		"country":     "Country is required",
		"zipcode":     "ZIP code is required",
		"national_id": "National ID must be exactly 12 digits",
		"skills":      "Please select a skill and proficiency level",
	}, ve.Fields)
}

func TestValidate_Defaults(t *testing.T) {
	req := validEmployee()
	req.NationalID = ""
	e, err := req.Validate(today)
	require.NoError(t, err)
	require.Equal(t, "ana.ruiz@example.com", e.Email)
	require.Equal(t, models.ShiftDay, e.WorkingShift)
	require.Equal(t, "2026-10-16", e.DateJoined.String())
	require.Nil(t, e.NationalID)
	require.True(t, e.Status)
}

func TestValidate_DuplicateSkill(t *testing.T) {
	req := validEmployee()
	req.Skills = append(req.Skills, SkillRequest{SkillID: 2, Proficiency: models.ProficiencyExpert})
	_, err := req.Validate(today)
	require.Equal(t, "Skill already added", err.(*crud.ValidationError).Fields["skills"])
}

func TestCreate_FieldErrorsInEnvelope(t *testing.T) {
	store := newMemStore()
	r := newRouter(store, realtime.Discard)

	req := validEmployee()
	req.FirstName = ""
	w := doJSON(r, http.MethodPost, "/employees", req)
	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decode(t, w)
	require.Equal(t, "Please fix the validation errors before submitting", body.Error)
	require.Equal(t, map[string]string{"first_name": "First name is required"}, body.Fields)
	require.Empty(t, store.rows)
}

func TestCreateUpdateToggle(t *testing.T) {
	store := newMemStore()
	var published []realtime.Change
	r := newRouter(store, realtime.PublisherFunc(func(ch realtime.Change) { published = append(published, ch) }))

	w := doJSON(r, http.MethodGet, "/employees/next-id", nil)
	require.JSONEq(t, `{"id":"EMP001"}`, string(decode(t, w).Data))

	w = doJSON(r, http.MethodPost, "/employees", validEmployee())
	require.Equal(t, http.StatusCreated, w.Code)
	require.Contains(t, store.rows, "EMP001")
	require.Len(t, store.rows["EMP001"].Skills, 1)

	req := validEmployee()
	req.Skills = nil
	req.LastName = "Ruiz-Garcia"
	w = doJSON(r, http.MethodPut, "/employees/EMP001", req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "Ruiz-Garcia", store.rows["EMP001"].LastName)
	require.Empty(t, store.rows["EMP001"].Skills)

	require.Equal(t, http.StatusOK, doJSON(r, http.MethodPatch, "/employees/EMP001/status", nil).Code)
	require.False(t, store.rows["EMP001"].Status)

	require.Len(t, published, 3)
	require.Equal(t, []realtime.ChangeType{realtime.Insert, realtime.Update, realtime.Update},
		[]realtime.ChangeType{published[0].Type, published[1].Type, published[2].Type})
}

func TestDeleteRequiresConfirmation(t *testing.T) {
	store := newMemStore()
	_, _ = store.Create(context.Background(), &models.Employee{FirstName: "A"})
	r := newRouter(store, realtime.Discard)

	require.Equal(t, http.StatusConflict, doJSON(r, http.MethodDelete, "/employees/EMP001?confirm=nope", nil).Code)
	w := doJSON(r, http.MethodPost, "/employees/EMP001/delete-request", nil)
	var pending confirm.Pending
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &pending))
	require.Equal(t, http.StatusNoContent, doJSON(r, http.MethodDelete, "/employees/EMP001?confirm="+pending.Token, nil).Code)
	require.Empty(t, store.rows)
}
