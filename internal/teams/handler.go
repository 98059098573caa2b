package teams

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/resource-mgmt/console/internal/crud"
	"github.com/resource-mgmt/console/internal/models"
	"github.com/resource-mgmt/console/internal/realtime"
	"github.com/resource-mgmt/console/pkg/response"
	"github.com/resource-mgmt/console/pkg/utils"
)

// Store is the team persistence the handler needs.
type Store interface {
	List(ctx context.Context, status *bool) ([]models.Team, error)
	Get(ctx context.Context, id int64) (*models.Team, error)
	Create(ctx context.Context, t *models.Team) (*models.Team, error)
	Update(ctx context.Context, t *models.Team) (*models.Team, error)
	ToggleStatus(ctx context.Context, id int64) (*models.Team, error)
	Delete(ctx context.Context, id int64) error
}

// OrgIDSource supplies the organization id stamped on new rows.
type OrgIDSource interface {
	ID() int
}

// TeamRequest is the body for POST /teams and PUT /teams/:id.
type TeamRequest struct {
	Name      string   `json:"name"`
	LeadID    string   `json:"lead_id"`
	Status    *bool    `json:"status"`
	MemberIDs []string `json:"member_ids"`
}

func (r TeamRequest) validate() (*models.Team, error) {
	if utils.Blank(r.Name) || utils.Blank(r.LeadID) {
		return nil, crud.Invalid("Please fill in all required fields")
	}
	lead := strings.TrimSpace(r.LeadID)
	t := &models.Team{Name: strings.TrimSpace(r.Name), LeadID: &lead, Status: true, Members: []models.TeamMember{}}
	if r.Status != nil {
		t.Status = *r.Status
	}
	seen := map[string]bool{}
	for _, id := range r.MemberIDs {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		t.Members = append(t.Members, models.TeamMember{EmployeeID: id})
	}
	return t, nil
}

// Handler handles team HTTP endpoints.
type Handler struct {
	store Store
	org   OrgIDSource
	crud.Lifecycle
}

// NewHandler creates a teams handler.
func NewHandler(store Store, org OrgIDSource, lc crud.Lifecycle) *Handler {
	lc.Table = realtime.TableTeams
	return &Handler{store: store, org: org, Lifecycle: lc}
}

// List handles GET /teams[?status=active|inactive].
func (h *Handler) List(c *gin.Context) {
	status, ok := crud.StatusFilter(c)
	if !ok {
		return
	}
	list, err := h.store.List(c.Request.Context(), status)
	if err != nil {
		crud.Fail(c, h.Logger, "list teams", err)
		return
	}
	response.OK(c, list)
}

// Get handles GET /teams/:id.
func (h *Handler) Get(c *gin.Context) {
	id, ok := crud.Int64Param(c, "id")
	if !ok {
		return
	}
	t, err := h.store.Get(c.Request.Context(), id)
	if err != nil {
		crud.Fail(c, h.Logger, "get team", err)
		return
	}
	response.OK(c, t)
}

// Create handles POST /teams.
func (h *Handler) Create(c *gin.Context) {
	var req TeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	t, err := req.validate()
	if err != nil {
		crud.Fail(c, h.Logger, "validate team", err)
		return
	}
	t.OrgID = h.org.ID()
	created, err := h.store.Create(c.Request.Context(), t)
	if err != nil {
		crud.Fail(c, h.Logger, "create team", err)
		return
	}
	h.Pub.Publish(realtime.NewChange(realtime.TableTeams, realtime.Insert, crud.Key(created.ID), created))
	response.Created(c, created)
}

// Update handles PUT /teams/:id. Member rows are replaced wholesale.
func (h *Handler) Update(c *gin.Context) {
	id, ok := crud.Int64Param(c, "id")
	if !ok {
		return
	}
	var req TeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	t, err := req.validate()
	if err != nil {
		crud.Fail(c, h.Logger, "validate team", err)
		return
	}
	t.ID = id
	t.OrgID = h.org.ID()
	updated, err := h.store.Update(c.Request.Context(), t)
	if err != nil {
		crud.Fail(c, h.Logger, "update team", err)
		return
	}
	h.Pub.Publish(realtime.NewChange(realtime.TableTeams, realtime.Update, crud.Key(updated.ID), updated))
	response.OK(c, updated)
}

// ToggleStatus handles PATCH /teams/:id/status.
func (h *Handler) ToggleStatus() gin.HandlerFunc {
	return h.Toggle(crud.NumericKey, func(ctx context.Context, key string) (interface{}, error) {
		return h.store.ToggleStatus(ctx, crud.MustInt64(key))
	})
}

// RequestDeletion handles POST /teams/:id/delete-request.
func (h *Handler) RequestDeletion() gin.HandlerFunc {
	return h.RequestDelete(crud.NumericKey, func(ctx context.Context, key string) error {
		_, err := h.store.Get(ctx, crud.MustInt64(key))
		return err
	})
}

// Remove handles DELETE /teams/:id?confirm=<token>. Members go with the team.
func (h *Handler) Remove() gin.HandlerFunc {
	return h.Delete(crud.NumericKey, func(ctx context.Context, key string) error {
		return h.store.Delete(ctx, crud.MustInt64(key))
	})
}
