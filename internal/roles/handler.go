package roles

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

// Store is the role persistence the handler needs.
type Store interface {
	List(ctx context.Context, status *bool) ([]models.Role, error)
	Get(ctx context.Context, id int64) (*models.Role, error)
	Create(ctx context.Context, r *models.Role) (*models.Role, error)
	Update(ctx context.Context, r *models.Role) (*models.Role, error)
	ToggleStatus(ctx context.Context, id int64) (*models.Role, error)
	Delete(ctx context.Context, id int64) error
}

// RoleRequest is the body for POST /roles and PUT /roles/:id.
type RoleRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Status      *bool  `json:"status"`
}

func (r RoleRequest) validate() (*models.Role, error) {
	if utils.Blank(r.Name) {
		return nil, crud.Invalid("Role name is required")
	}
	role := &models.Role{Name: strings.TrimSpace(r.Name), Description: r.Description, Status: true}
	if r.Status != nil {
		role.Status = *r.Status
	}
	return role, nil
}

// Handler handles role HTTP endpoints.
type Handler struct {
	store Store
	crud.Lifecycle
}

// NewHandler creates a roles handler.
func NewHandler(store Store, lc crud.Lifecycle) *Handler {
	lc.Table = realtime.TableRoles
	return &Handler{store: store, Lifecycle: lc}
}

// List handles GET /roles.
func (h *Handler) List(c *gin.Context) {
	status, ok := crud.StatusFilter(c)
	if !ok {
		return
	}
	list, err := h.store.List(c.Request.Context(), status)
	if err != nil {
		crud.Fail(c, h.Logger, "list roles", err)
		return
	}
	response.OK(c, list)
}

// Get handles GET /roles/:id.
func (h *Handler) Get(c *gin.Context) {
	id, ok := crud.Int64Param(c, "id")
	if !ok {
		return
	}
	role, err := h.store.Get(c.Request.Context(), id)
	if err != nil {
		crud.Fail(c, h.Logger, "get role", err)
		return
	}
	response.OK(c, role)
}

// Create handles POST /roles.
func (h *Handler) Create(c *gin.Context) {
	var req RoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	role, err := req.validate()
	if err != nil {
		crud.Fail(c, h.Logger, "validate role", err)
		return
	}
	created, err := h.store.Create(c.Request.Context(), role)
	if err != nil {
		crud.Fail(c, h.Logger, "create role", err)
		return
	}
	h.Pub.Publish(realtime.NewChange(realtime.TableRoles, realtime.Insert, crud.Key(created.ID), created))
	response.Created(c, created)
}

// Update handles PUT /roles/:id.
func (h *Handler) Update(c *gin.Context) {
	id, ok := crud.Int64Param(c, "id")
	if !ok {
		return
	}
	var req RoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	role, err := req.validate()
	if err != nil {
		crud.Fail(c, h.Logger, "validate role", err)
		return
	}
	role.ID = id
	updated, err := h.store.Update(c.Request.Context(), role)
	if err != nil {
		crud.Fail(c, h.Logger, "update role", err)
		return
	}
	h.Pub.Publish(realtime.NewChange(realtime.TableRoles, realtime.Update, crud.Key(updated.ID), updated))
	response.OK(c, updated)
}

// ToggleStatus handles PATCH /roles/:id/status.
func (h *Handler) ToggleStatus() gin.HandlerFunc {
	return h.Toggle(crud.NumericKey, func(ctx context.Context, key string) (interface{}, error) {
		return h.store.ToggleStatus(ctx, crud.MustInt64(key))
	})
}

// RequestDeletion handles POST /roles/:id/delete-request.
func (h *Handler) RequestDeletion() gin.HandlerFunc {
	return h.RequestDelete(crud.NumericKey, func(ctx context.Context, key string) error {
		_, err := h.store.Get(ctx, crud.MustInt64(key))
		return err
	})
}

// Remove handles DELETE /roles/:id?confirm=<token>.
func (h *Handler) Remove() gin.HandlerFunc {
	return h.Delete(crud.NumericKey, func(ctx context.Context, key string) error {
		return h.store.Delete(ctx, crud.MustInt64(key))
	})
}
