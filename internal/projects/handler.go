package projects

import (
	"context"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/resource-mgmt/console/internal/crud"
	"github.com/resource-mgmt/console/internal/models"
	"github.com/resource-mgmt/console/internal/realtime"
	"github.com/resource-mgmt/console/pkg/response"
	"github.com/resource-mgmt/console/pkg/utils"
)

// Store is the project persistence the handler needs.
type Store interface {
	List(ctx context.Context, status *bool) ([]models.Project, error)
	Get(ctx context.Context, id int64) (*models.Project, error)
	Activities(ctx context.Context, projectID int64) ([]models.ProjectActivity, error)
	Create(ctx context.Context, p *models.Project) (*models.Project, error)
	Update(ctx context.Context, p *models.Project) (*models.Project, error)
	ToggleStatus(ctx context.Context, id int64) (*models.Project, error)
	Exists(ctx context.Context, id int64) error
	Delete(ctx context.Context, id int64) error
}

// OrgIDSource supplies the organization id stamped on new rows.
type OrgIDSource interface {
	ID() int
}

// ResourceRequest is one resource row of an activity.
type ResourceRequest struct {
	EmployeeID    string `json:"employee_id"`
	EmployeeName  string `json:"employee_name"`
	SkillName     string `json:"skill_name"`
	HoursAllotted int    `json:"hours_allotted"`
}

func (r ResourceRequest) model() models.ResourceAllocation {
	return models.ResourceAllocation{
		EmployeeID:    strings.TrimSpace(r.EmployeeID),
		EmployeeName:  r.EmployeeName,
		SkillName:     strings.TrimSpace(r.SkillName),
		HoursAllotted: r.HoursAllotted,
	}
}

// ActivityRequest is one activity of a project with its resources.
type ActivityRequest struct {
	ActivityID    int64             `json:"activity_id"`
	ActivityName  string            `json:"activity_name"`
	HoursAllotted int               `json:"hours_allotted"`
	StartDate     *models.Date      `json:"start_date"`
	EndDate       *models.Date      `json:"end_date"`
	WorkStatus    string            `json:"work_status"`
	Resources     []ResourceRequest `json:"resources"`
}

// ProjectRequest is the body for POST /projects and PUT /projects/:id. Zip and areas arrive as
// text and must parse as numbers.
type ProjectRequest struct {
	Name           string            `json:"name"`
	Description    string            `json:"description"`
	ClientID       string            `json:"client_id"`
	StartDate      models.Date       `json:"start_date"`
	PlannedEndDate models.Date       `json:"planned_end_date"`
	ActualEndDate  *models.Date      `json:"actual_end_date"`
	Street1        string            `json:"street1"`
	Street2        string            `json:"street2"`
	City           string            `json:"city"`
	County         string            `json:"county"`
	State          string            `json:"state"`
	Country        string            `json:"country"`
	Zipcode        string            `json:"zipcode"`
	CountyZone     string            `json:"county_zone"`
	Status         *bool             `json:"status"`
	ProgressStatus string            `json:"progress_status"`
	FloorBuiltArea string            `json:"floor_built_area"`
	WallArea       string            `json:"wall_area"`
	RoofArea       string            `json:"roof_area"`
	ScopeArea      string            `json:"scope_area"`
	Activities     []ActivityRequest `json:"activities"`
}

func parseArea(label, raw string) (*float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 {
		return nil, crud.Invalid(label + " must be a number")
	}
	return &v, nil
}

// Validate runs the form checklist, stopping at the first failure, then applies the commit
// rule to every activity.
func (r ProjectRequest) Validate() (*models.Project, error) {
	required := []struct{ value, msg string }{
		{r.Name, "Project name is required"},
		{r.ClientID, "Client is required"},
		{r.Street1, "Street address is required"},
		{r.City, "City is required"},
		{r.State, "State is required"},
		{r.Country, "Country is required"},
		{r.Zipcode, "ZIP code is required"},
		{r.CountyZone, "County zone is required"},
	}
	for _, f := range required {
		if utils.Blank(f.value) {
			return nil, crud.Invalid(f.msg)
		}
	}
	zip, err := utils.ParseIntField("ZIP code", r.Zipcode)
	if err != nil {
		return nil, crud.Invalid(err.Error())
	}
	if r.StartDate.IsZero() {
		return nil, crud.Invalid("Start date is required")
	}
	if r.PlannedEndDate.IsZero() {
		return nil, crud.Invalid("Planned end date is required")
	}
	if r.PlannedEndDate.Before(r.StartDate.Time) {
		return nil, crud.Invalid("Planned end date must not be before start date")
	}
	p := &models.Project{
		Name:           strings.TrimSpace(r.Name),
		Description:    r.Description,
		ClientID:       strings.TrimSpace(r.ClientID),
		StartDate:      r.StartDate,
		PlannedEndDate: r.PlannedEndDate,
		ActualEndDate:  r.ActualEndDate,
		Street1:        strings.TrimSpace(r.Street1),
		Street2:        r.Street2,
		City:           strings.TrimSpace(r.City),
		County:         r.County,
		State:          strings.TrimSpace(r.State),
		Country:        strings.TrimSpace(r.Country),
		Zipcode:        zip,
		CountyZone:     strings.TrimSpace(r.CountyZone),
		Status:         true,
		ProgressStatus: r.ProgressStatus,
	}
	if r.Status != nil {
		p.Status = *r.Status
	}
	if p.ProgressStatus == "" {
		p.ProgressStatus = models.ProgressInitiated
	}
	areas := []struct {
		label string
		raw   string
		dst   **float64
	}{
		{"Floor built area", r.FloorBuiltArea, &p.FloorBuiltArea},
		{"Wall area", r.WallArea, &p.WallArea},
		{"Roof area", r.RoofArea, &p.RoofArea},
		{"Scope area", r.ScopeArea, &p.ScopeArea},
	}
	for _, a := range areas {
		v, err := parseArea(a.label, a.raw)
		if err != nil {
			return nil, err
		}
		*a.dst = v
	}
	for _, ar := range r.Activities {
		a := models.ProjectActivity{
			ActivityID:    ar.ActivityID,
			ActivityName:  ar.ActivityName,
			HoursAllotted: ar.HoursAllotted,
			StartDate:     ar.StartDate,
			EndDate:       ar.EndDate,
			WorkStatus:    ar.WorkStatus,
			ClientID:      p.ClientID,
			Resources:     make([]models.ResourceAllocation, 0, len(ar.Resources)),
		}
		if a.WorkStatus == "" {
			a.WorkStatus = models.WorkNotStarted
		}
		for _, rr := range ar.Resources {
			a.Resources = append(a.Resources, rr.model())
		}
		if err := ValidateActivityCommit(a); err != nil {
			return nil, err
		}
		p.Activities = append(p.Activities, a)
	}
	return p, nil
}

// AllocationCheckRequest is the body for POST /projects/allocations/check.
type AllocationCheckRequest struct {
	ActivityHours int               `json:"activity_hours"`
	Resources     []ResourceRequest `json:"resources"`
	EditingIndex  *int              `json:"editing_index"`
	Candidate     ResourceRequest   `json:"candidate"`
}

// Handler handles project HTTP endpoints.
type Handler struct {
	store Store
	org   OrgIDSource
	crud.Lifecycle
}

// NewHandler creates a projects handler.
func NewHandler(store Store, org OrgIDSource, lc crud.Lifecycle) *Handler {
	lc.Table = realtime.TableProjects
	return &Handler{store: store, org: org, Lifecycle: lc}
}

func projectID(c *gin.Context) (int64, bool) {
	return crud.Int64Param(c, "id")
}

// List handles GET /projects.
func (h *Handler) List(c *gin.Context) {
	status, ok := crud.StatusFilter(c)
	if !ok {
		return
	}
	list, err := h.store.List(c.Request.Context(), status)
	if err != nil {
		crud.Fail(c, h.Logger, "list projects", err)
		return
	}
	response.OK(c, list)
}

// Get handles GET /projects/:id.
func (h *Handler) Get(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}
	p, err := h.store.Get(c.Request.Context(), id)
	if err != nil {
		crud.Fail(c, h.Logger, "get project", err)
		return
	}
	response.OK(c, p)
}

// Activities handles GET /projects/:id/activities.
func (h *Handler) Activities(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}
	if err := h.store.Exists(c.Request.Context(), id); err != nil {
		crud.Fail(c, h.Logger, "get project", err)
		return
	}
	acts, err := h.store.Activities(c.Request.Context(), id)
	if err != nil {
		crud.Fail(c, h.Logger, "list project activities", err)
		return
	}
	response.OK(c, acts)
}

// CheckAllocation handles POST /projects/allocations/check. It answers 422 with the
// over-allocation message when the candidate does not fit.
func (h *Handler) CheckAllocation(c *gin.Context) {
	var req AllocationCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	candidate := req.Candidate.model()
	if err := ValidateResource(candidate); err != nil {
		crud.Fail(c, h.Logger, "check allocation", err)
		return
	}
	existing := make([]models.ResourceAllocation, 0, len(req.Resources))
	for _, r := range req.Resources {
		existing = append(existing, r.model())
	}
	editing := -1
	if req.EditingIndex != nil {
		editing = *req.EditingIndex
	}
	if err := CheckResourceAdd(req.ActivityHours, existing, editing, candidate.HoursAllotted); err != nil {
		response.Unprocessable(c, err.Error())
		return
	}
	allocated := AllocatedHours(existing, editing) + candidate.HoursAllotted
	response.OK(c, gin.H{
		"allocated_hours": allocated,
		"available_hours": req.ActivityHours - allocated,
	})
}

// Create handles POST /projects.
func (h *Handler) Create(c *gin.Context) {
	var req ProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	p, err := req.Validate()
	if err != nil {
		crud.Fail(c, h.Logger, "validate project", err)
		return
	}
	p.OrgID = h.org.ID()
	created, err := h.store.Create(c.Request.Context(), p)
	if err != nil {
		crud.Fail(c, h.Logger, "create project", err)
		return
	}
	h.Pub.Publish(realtime.NewChange(realtime.TableProjects, realtime.Insert, crud.Key(created.ID), created))
	response.Created(c, created)
}

// Update handles PUT /projects/:id. Activities and resources are replaced wholesale.
func (h *Handler) Update(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}
	var req ProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	p, err := req.Validate()
	if err != nil {
		crud.Fail(c, h.Logger, "validate project", err)
		return
	}
	p.ID = id
	p.OrgID = h.org.ID()
	updated, err := h.store.Update(c.Request.Context(), p)
	if err != nil {
		crud.Fail(c, h.Logger, "update project", err)
		return
	}
	h.Pub.Publish(realtime.NewChange(realtime.TableProjects, realtime.Update, crud.Key(updated.ID), updated))
	response.OK(c, updated)
}

// ToggleStatus handles PATCH /projects/:id/status.
func (h *Handler) ToggleStatus() gin.HandlerFunc {
	return h.Toggle(crud.NumericKey, func(ctx context.Context, key string) (interface{}, error) {
		return h.store.ToggleStatus(ctx, crud.MustInt64(key))
	})
}

// RequestDeletion handles POST /projects/:id/delete-request.
func (h *Handler) RequestDeletion() gin.HandlerFunc {
	return h.RequestDelete(crud.NumericKey, func(ctx context.Context, key string) error {
		return h.store.Exists(ctx, crud.MustInt64(key))
	})
}

// Remove handles DELETE /projects/:id?confirm=<token>.
func (h *Handler) Remove() gin.HandlerFunc {
	return h.Delete(crud.NumericKey, func(ctx context.Context, key string) error {
		return h.store.Delete(ctx, crud.MustInt64(key))
	})
}
