package timetracking

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/resource-mgmt/console/internal/auth"
	"github.com/resource-mgmt/console/internal/crud"
	"github.com/resource-mgmt/console/internal/models"
	"github.com/resource-mgmt/console/internal/realtime"
	"github.com/resource-mgmt/console/pkg/response"
	"github.com/resource-mgmt/console/pkg/utils"
)

const (
	defaultEntriesLimit = 50
	maxEntriesLimit     = 500
)

// Option is one entry of a form dropdown.
type Option struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Store is the persistence the timer needs.
type Store interface {
	ResolveEmployee(ctx context.Context, email string, orgID int) (*models.Employee, bool, error)
	Start(ctx context.Context, e *models.TimeEntry, now time.Time) (started, closed *models.TimeEntry, err error)
	Stop(ctx context.Context, employeeID string, now time.Time) (*models.TimeEntry, error)
	Active(ctx context.Context, employeeID string) (*models.TimeEntry, error)
	Entries(ctx context.Context, employeeID string, limit int) ([]models.TimeEntry, error)
	ActiveClients(ctx context.Context) ([]Option, error)
	ActiveProjects(ctx context.Context, clientID string) ([]Option, error)
	ActiveActivities(ctx context.Context) ([]Option, error)
}

// OrgIDSource supplies the organization id stamped on new rows.
type OrgIDSource interface {
	ID() int
}

// StartRequest is the body for POST /time-tracking/start.
type StartRequest struct {
	ClientID   string `json:"client_id"`
	ProjectID  int64  `json:"project_id"`
	ActivityID int64  `json:"activity_id"`
	SkillID    int64  `json:"skill_id"`
}

// StartResponse reports the new entry and the one it replaced.
type StartResponse struct {
	Entry   *models.TimeEntry `json:"entry"`
	Stopped *models.TimeEntry `json:"stopped,omitempty"`
}

// ActiveTimer is the open entry plus elapsed time derived from the wall clock.
type ActiveTimer struct {
	Entry          *models.TimeEntry `json:"entry"`
	ElapsedSeconds int64             `json:"elapsed_seconds"`
	Elapsed        string            `json:"elapsed"`
}

// Elapsed builds the live view of a running entry at now.
func Elapsed(e *models.TimeEntry, now time.Time) ActiveTimer {
	d := e.Duration(now)
	return ActiveTimer{Entry: e, ElapsedSeconds: int64(d / time.Second), Elapsed: utils.FormatClock(d)}
}

// Handler serves the employee time tracker.
type Handler struct {
	store  Store
	org    OrgIDSource
	pub    realtime.Publisher
	logger *zap.Logger
	now    func() time.Time
}

// NewHandler creates a time tracking handler.
func NewHandler(store Store, org OrgIDSource, pub realtime.Publisher, logger *zap.Logger) *Handler {
	return &Handler{store: store, org: org, pub: pub, logger: logger, now: time.Now}
}

// employee resolves the signed-in user's employee row, answering the request on failure.
func (h *Handler) employee(c *gin.Context) (*models.Employee, bool) {
	email := strings.TrimSpace(c.GetString(auth.ContextUserEmail))
	if email == "" {
		response.Unauthorized(c, "Authentication error. Please login again.")
		return nil, false
	}
	emp, created, err := h.store.ResolveEmployee(c.Request.Context(), email, h.org.ID())
	if err != nil {
		crud.Fail(c, h.logger, "resolve employee", err)
		return nil, false
	}
	if created {
		h.logger.Info("employee provisioned for login", zap.String("employee_id", emp.ID), zap.String("email", emp.Email))
		h.pub.Publish(realtime.NewChange(realtime.TableEmployees, realtime.Insert, emp.ID, emp))
	}
	return emp, true
}

// Me handles GET /time-tracking/me.
func (h *Handler) Me(c *gin.Context) {
	emp, ok := h.employee(c)
	if !ok {
		return
	}
	response.OK(c, emp)
}

// Start handles POST /time-tracking/start.
func (h *Handler) Start(c *gin.Context) {
	var req StartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if utils.Blank(req.ClientID) || req.ProjectID <= 0 || req.ActivityID <= 0 {
		response.BadRequest(c, "Please select a client, project, and activity")
		return
	}
	emp, ok := h.employee(c)
	if !ok {
		return
	}
	skill := req.SkillID
	if skill <= 0 {
		skill = models.DefaultSkillID
	}
	entry := &models.TimeEntry{
		EmployeeID:   emp.ID,
		EmployeeName: emp.FullName(),
		ProjectID:    req.ProjectID,
		ActivityID:   req.ActivityID,
		ClientID:     strings.TrimSpace(req.ClientID),
		SkillID:      skill,
		OrgID:        h.org.ID(),
	}
	started, closed, err := h.store.Start(c.Request.Context(), entry, h.now())
	if err != nil {
		crud.Fail(c, h.logger, "start timer", err)
		return
	}
	if closed != nil {
		h.pub.Publish(realtime.NewChange(realtime.TableTimeEntries, realtime.Update, crud.Key(closed.ID), closed))
	}
	h.pub.Publish(realtime.NewChange(realtime.TableTimeEntries, realtime.Insert, crud.Key(started.ID), started))
	response.Created(c, StartResponse{Entry: started, Stopped: closed})
}

// Stop handles POST /time-tracking/stop.
func (h *Handler) Stop(c *gin.Context) {
	emp, ok := h.employee(c)
	if !ok {
		return
	}
	entry, err := h.store.Stop(c.Request.Context(), emp.ID, h.now())
	if errors.Is(err, ErrNotRunning) {
		response.Conflict(c, err.Error())
		return
	}
	if err != nil {
		crud.Fail(c, h.logger, "stop timer", err)
		return
	}
	withDuration(entry, h.now())
	h.pub.Publish(realtime.NewChange(realtime.TableTimeEntries, realtime.Update, crud.Key(entry.ID), entry))
	response.OK(c, entry)
}

// Active handles GET /time-tracking/active. Data is null when no timer runs.
func (h *Handler) Active(c *gin.Context) {
	emp, ok := h.employee(c)
	if !ok {
		return
	}
	entry, err := h.store.Active(c.Request.Context(), emp.ID)
	if errors.Is(err, pgx.ErrNoRows) {
		response.OK(c, nil)
		return
	}
	if err != nil {
		crud.Fail(c, h.logger, "active timer", err)
		return
	}
	response.OK(c, Elapsed(entry, h.now()))
}

// Entries handles GET /time-tracking/entries[?limit=N].
func (h *Handler) Entries(c *gin.Context) {
	limit := defaultEntriesLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			response.BadRequest(c, "limit must be a positive number")
			return
		}
		if n > maxEntriesLimit {
			n = maxEntriesLimit
		}
		limit = n
	}
	emp, ok := h.employee(c)
	if !ok {
		return
	}
	list, err := h.store.Entries(c.Request.Context(), emp.ID, limit)
	if err != nil {
		crud.Fail(c, h.logger, "list time entries", err)
		return
	}
	now := h.now()
	for i := range list {
		withDuration(&list[i], now)
	}
	response.OK(c, list)
}

func withDuration(e *models.TimeEntry, now time.Time) {
	secs := int64(e.Duration(now) / time.Second)
	e.DurationSeconds = &secs
}

// Clients handles GET /time-tracking/clients.
func (h *Handler) Clients(c *gin.Context) {
	h.lookup(c, "list active clients", h.store.ActiveClients)
}

// Projects handles GET /time-tracking/projects?client_id=.
func (h *Handler) Projects(c *gin.Context) {
	clientID := strings.TrimSpace(c.Query("client_id"))
	if clientID == "" {
		response.BadRequest(c, "client_id is required")
		return
	}
	h.lookup(c, "list client projects", func(ctx context.Context) ([]Option, error) {
		return h.store.ActiveProjects(ctx, clientID)
	})
}

// Activities handles GET /time-tracking/activities.
func (h *Handler) Activities(c *gin.Context) {
	h.lookup(c, "list active activities", h.store.ActiveActivities)
}

func (h *Handler) lookup(c *gin.Context, op string, fn func(ctx context.Context) ([]Option, error)) {
	opts, err := fn(c.Request.Context())
	if err != nil {
		crud.Fail(c, h.logger, op, err)
		return
	}
	response.OK(c, opts)
}
