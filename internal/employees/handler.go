package employees

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/resource-mgmt/console/internal/crud"
	"github.com/resource-mgmt/console/internal/models"
	"github.com/resource-mgmt/console/internal/realtime"
	"github.com/resource-mgmt/console/pkg/response"
	"github.com/resource-mgmt/console/pkg/utils"
)

// Store is the employee persistence the handler needs.
type Store interface {
	List(ctx context.Context, status *bool) ([]models.Employee, error)
	Get(ctx context.Context, id string) (*models.Employee, error)
	NextID(ctx context.Context) (string, error)
	Create(ctx context.Context, e *models.Employee) (*models.Employee, error)
	Update(ctx context.Context, e *models.Employee) (*models.Employee, error)
	ToggleStatus(ctx context.Context, id string) (*models.Employee, error)
	Delete(ctx context.Context, id string) error
}

// OrgIDSource supplies the organization id stamped on new rows.
type OrgIDSource interface {
	ID() int
}

const msgFixErrors = "Please fix the validation errors before submitting"

// SkillRequest is one skill row of the employee form.
type SkillRequest struct {
	SkillID     int64  `json:"skill_id"`
	Proficiency string `json:"proficiency"`
}

// EmployeeRequest is the body for POST /employees and PUT /employees/:id.
type EmployeeRequest struct {
	FirstName      string         `json:"first_name"`
	LastName       string         `json:"last_name"`
	Email          string         `json:"email"`
	Phone          string         `json:"phone"`
	DateJoined     *models.Date   `json:"date_joined"`
	Street1        string         `json:"street1"`
	Street2        string         `json:"street2"`
	City           string         `json:"city"`
	State          string         `json:"state"`
	Country        string         `json:"country"`
	Zipcode        string         `json:"zipcode"`
	WorkingShift   string         `json:"working_shift"`
	Status         *bool          `json:"status"`
	DateTerminated *models.Date   `json:"date_terminated"`
	NationalID     string         `json:"national_id"`
	RoleID         *int64         `json:"role_id"`
	Skills         []SkillRequest `json:"skills"`
}

func validProficiency(p string) bool {
	for _, v := range models.Proficiencies {
		if v == p {
			return true
		}
	}
	return false
}

// Validate checks every field and reports all failures at once, keyed by field.
func (r EmployeeRequest) Validate(today time.Time) (*models.Employee, error) {
	fields := map[string]string{}
	required := []struct{ key, value, msg string }{
		{"first_name", r.FirstName, "First name is required"},
		{"last_name", r.LastName, "Last name is required"},
		{"email", r.Email, "Email is required"},
		{"street1", r.Street1, "Street address is required"},
		{"city", r.City, "City is required"},
		{"state", r.State, "State is required"},
		{"country", r.Country, "Country is required"},
		{"zipcode", r.Zipcode, "ZIP code is required"},
	}
	for _, f := range required {
		if utils.Blank(f.value) {
			fields[f.key] = f.msg
		}
	}
	if r.RoleID == nil || *r.RoleID <= 0 {
		fields["role_id"] = "Role is required"
	}
	nationalID := strings.TrimSpace(r.NationalID)
	if nationalID != "" && !utils.IsDigits(nationalID, 12) {
		fields["national_id"] = "National ID must be exactly 12 digits"
	}
	seen := map[int64]bool{}
	for _, s := range r.Skills {
		if s.SkillID <= 0 || !validProficiency(s.Proficiency) {
			fields["skills"] = "Please select a skill and proficiency level"
			break
		}
		if seen[s.SkillID] {
			fields["skills"] = "Skill already added"
			break
		}
		seen[s.SkillID] = true
	}
	if len(fields) > 0 {
		return nil, &crud.ValidationError{Message: msgFixErrors, Fields: fields}
	}

	e := &models.Employee{
		FirstName:      strings.TrimSpace(r.FirstName),
		LastName:       strings.TrimSpace(r.LastName),
		Email:          strings.ToLower(strings.TrimSpace(r.Email)),
		Phone:          strings.TrimSpace(r.Phone),
		DateJoined:     r.DateJoined,
		Street1:        strings.TrimSpace(r.Street1),
		Street2:        r.Street2,
		City:           strings.TrimSpace(r.City),
		State:          strings.TrimSpace(r.State),
		Country:        strings.TrimSpace(r.Country),
		Zipcode:        strings.TrimSpace(r.Zipcode),
		WorkingShift:   r.WorkingShift,
		Status:         true,
		DateTerminated: r.DateTerminated,
		RoleID:         r.RoleID,
		Skills:         make([]models.EmployeeSkill, 0, len(r.Skills)),
	}
	if r.Status != nil {
		e.Status = *r.Status
	}
	if e.WorkingShift == "" {
		e.WorkingShift = models.ShiftDay
	}
	if e.DateJoined == nil || e.DateJoined.IsZero() {
		d := models.NewDate(today)
		e.DateJoined = &d
	}
	if nationalID != "" {
		e.NationalID = &nationalID
	}
	for _, s := range r.Skills {
		e.Skills = append(e.Skills, models.EmployeeSkill{SkillID: s.SkillID, Proficiency: s.Proficiency})
	}
	return e, nil
}

// Handler handles employee HTTP endpoints.
type Handler struct {
	store Store
	org   OrgIDSource
	now   func() time.Time
	crud.Lifecycle
}

// NewHandler creates an employees handler.
func NewHandler(store Store, org OrgIDSource, lc crud.Lifecycle) *Handler {
	lc.Table = realtime.TableEmployees
	return &Handler{store: store, org: org, now: time.Now, Lifecycle: lc}
}

// List handles GET /employees.
func (h *Handler) List(c *gin.Context) {
	status, ok := crud.StatusFilter(c)
	if !ok {
		return
	}
	list, err := h.store.List(c.Request.Context(), status)
	if err != nil {
		crud.Fail(c, h.Logger, "list employees", err)
		return
	}
	response.OK(c, list)
}

// Get handles GET /employees/:id.
func (h *Handler) Get(c *gin.Context) {
	id, ok := crud.CodeKey(c)
	if !ok {
		return
	}
	e, err := h.store.Get(c.Request.Context(), id)
	if err != nil {
		crud.Fail(c, h.Logger, "get employee", err)
		return
	}
	response.OK(c, e)
}

// NextID handles GET /employees/next-id.
func (h *Handler) NextID(c *gin.Context) {
	id, err := h.store.NextID(c.Request.Context())
	if err != nil {
		crud.Fail(c, h.Logger, "next employee id", err)
		return
	}
	response.OK(c, gin.H{"id": id})
}

// Create handles POST /employees.
func (h *Handler) Create(c *gin.Context) {
	var req EmployeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	e, err := req.Validate(h.now())
	if err != nil {
		crud.Fail(c, h.Logger, "validate employee", err)
		return
	}
	e.OrgID = h.org.ID()
	created, err := h.store.Create(c.Request.Context(), e)
	if err != nil {
		crud.Fail(c, h.Logger, "create employee", err)
		return
	}
	h.Pub.Publish(realtime.NewChange(realtime.TableEmployees, realtime.Insert, created.ID, created))
	response.Created(c, created)
}

// Update handles PUT /employees/:id. Skill rows are replaced wholesale.
func (h *Handler) Update(c *gin.Context) {
	id, ok := crud.CodeKey(c)
	if !ok {
		return
	}
	var req EmployeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	e, err := req.Validate(h.now())
	if err != nil {
		crud.Fail(c, h.Logger, "validate employee", err)
		return
	}
	e.ID = id
	e.OrgID = h.org.ID()
	updated, err := h.store.Update(c.Request.Context(), e)
	if err != nil {
		crud.Fail(c, h.Logger, "update employee", err)
		return
	}
	h.Pub.Publish(realtime.NewChange(realtime.TableEmployees, realtime.Update, updated.ID, updated))
	response.OK(c, updated)
}

// ToggleStatus handles PATCH /employees/:id/status.
func (h *Handler) ToggleStatus() gin.HandlerFunc {
	return h.Toggle(crud.CodeKey, func(ctx context.Context, id string) (interface{}, error) {
		return h.store.ToggleStatus(ctx, id)
	})
}

// RequestDeletion handles POST /employees/:id/delete-request.
func (h *Handler) RequestDeletion() gin.HandlerFunc {
	return h.RequestDelete(crud.CodeKey, func(ctx context.Context, id string) error {
		_, err := h.store.Get(ctx, id)
		return err
	})
}

// Remove handles DELETE /employees/:id?confirm=<token>.
func (h *Handler) Remove() gin.HandlerFunc {
	return h.Delete(crud.CodeKey, h.store.Delete)
}
