package skills

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

// Store is the skill persistence the handler needs.
type Store interface {
	List(ctx context.Context, skillType string) ([]models.Skill, error)
	Get(ctx context.Context, id int64) (*models.Skill, error)
	Create(ctx context.Context, s *models.Skill) (*models.Skill, error)
	Update(ctx context.Context, s *models.Skill) (*models.Skill, error)
	Delete(ctx context.Context, id int64) error
}

// OrgIDSource supplies the organization id stamped on new rows.
type OrgIDSource interface {
	ID() int
}

// SkillRequest is the body for POST /skills and PUT /skills/:id.
type SkillRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Type        string `json:"type"`
}

func knownType(t string) bool {
	for _, v := range models.SkillTypes {
		if v == t {
			return true
		}
	}
	return false
}

func (r SkillRequest) validate() (*models.Skill, error) {
	if utils.Blank(r.Name) {
		return nil, crud.Invalid("Skill name is required")
	}
	typ := strings.ToUpper(strings.TrimSpace(r.Type))
	if typ == "" {
		return nil, crud.Invalid("Skill type is required")
	}
	if !knownType(typ) {
		return nil, crud.Invalid("Skill type must be one of " + strings.Join(models.SkillTypes, ", "))
	}
	return &models.Skill{Name: strings.TrimSpace(r.Name), Description: r.Description, Type: typ}, nil
}

// Handler handles skill HTTP endpoints.
type Handler struct {
	store Store
	org   OrgIDSource
	crud.Lifecycle
}

// NewHandler creates a skills handler.
func NewHandler(store Store, org OrgIDSource, lc crud.Lifecycle) *Handler {
	lc.Table = realtime.TableSkills
	return &Handler{store: store, org: org, Lifecycle: lc}
}

// List handles GET /skills[?type=REVIT].
func (h *Handler) List(c *gin.Context) {
	typ := strings.ToUpper(c.Query("type"))
	if typ != "" && !knownType(typ) {
		response.BadRequest(c, "unknown skill type")
		return
	}
	list, err := h.store.List(c.Request.Context(), typ)
	if err != nil {
		crud.Fail(c, h.Logger, "list skills", err)
		return
	}
	response.OK(c, list)
}

// Types handles GET /skills/types.
func (h *Handler) Types(c *gin.Context) {
	response.OK(c, models.SkillTypes)
}

// Get handles GET /skills/:id.
func (h *Handler) Get(c *gin.Context) {
	id, ok := crud.Int64Param(c, "id")
	if !ok {
		return
	}
	s, err := h.store.Get(c.Request.Context(), id)
	if err != nil {
		crud.Fail(c, h.Logger, "get skill", err)
		return
	}
	response.OK(c, s)
}

// Create handles POST /skills.
func (h *Handler) Create(c *gin.Context) {
	var req SkillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	s, err := req.validate()
	if err != nil {
		crud.Fail(c, h.Logger, "validate skill", err)
		return
	}
	s.OrgID = h.org.ID()
	created, err := h.store.Create(c.Request.Context(), s)
	if err != nil {
		crud.Fail(c, h.Logger, "create skill", err)
		return
	}
	h.Pub.Publish(realtime.NewChange(realtime.TableSkills, realtime.Insert, crud.Key(created.ID), created))
	response.Created(c, created)
}

// Update handles PUT /skills/:id.
func (h *Handler) Update(c *gin.Context) {
	id, ok := crud.Int64Param(c, "id")
	if !ok {
		return
	}
	var req SkillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	s, err := req.validate()
	if err != nil {
		crud.Fail(c, h.Logger, "validate skill", err)
		return
	}
	s.ID = id
	updated, err := h.store.Update(c.Request.Context(), s)
	if err != nil {
		crud.Fail(c, h.Logger, "update skill", err)
		return
	}
	h.Pub.Publish(realtime.NewChange(realtime.TableSkills, realtime.Update, crud.Key(updated.ID), updated))
	response.OK(c, updated)
}

// RequestDeletion handles POST /skills/:id/delete-request.
func (h *Handler) RequestDeletion() gin.HandlerFunc {
	return h.RequestDelete(crud.NumericKey, func(ctx context.Context, key string) error {
		_, err := h.store.Get(ctx, crud.MustInt64(key))
		return err
	})
}

// Remove handles DELETE /skills/:id?confirm=<token>.
func (h *Handler) Remove() gin.HandlerFunc {
	return h.Delete(crud.NumericKey, func(ctx context.Context, key string) error {
		return h.store.Delete(ctx, crud.MustInt64(key))
	})
}
