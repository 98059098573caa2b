package activities

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

// Store is the activity persistence the handler needs.
type Store interface {
	List(ctx context.Context, status *bool) ([]models.Activity, error)
	Get(ctx context.Context, id int64) (*models.Activity, error)
	Create(ctx context.Context, a *models.Activity) (*models.Activity, error)
	Update(ctx context.Context, a *models.Activity) (*models.Activity, error)
	ToggleStatus(ctx context.Context, id int64) (*models.Activity, error)
	Delete(ctx context.Context, id int64) error
}

// OrgIDSource supplies the organization id stamped on new rows.
type OrgIDSource interface {
	ID() int
}

// ActivityRequest is the body for POST /activities and PUT /activities/:id.
type ActivityRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Status      *bool  `json:"status"`
}

// Handler handles activity catalog endpoints.
type Handler struct {
	store Store
	org   OrgIDSource
	crud.Lifecycle
}

// NewHandler creates an activities handler.
func NewHandler(store Store, org OrgIDSource, lc crud.Lifecycle) *Handler {
	lc.Table = realtime.TableActivities
	return &Handler{store: store, org: org, Lifecycle: lc}
}

func (h *Handler) bind(c *gin.Context) (*models.Activity, bool) {
	var req ActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return nil, false
	}
	if utils.Blank(req.Name) {
		response.BadRequest(c, "Activity name is required")
		return nil, false
	}
	a := &models.Activity{Name: strings.TrimSpace(req.Name), Description: req.Description, Status: true}
	if req.Status != nil {
		a.Status = *req.Status
	}
	return a, true
}

// List handles GET /activities.
func (h *Handler) List(c *gin.Context) {
	status, ok := crud.StatusFilter(c)
	if !ok {
		return
	}
	list, err := h.store.List(c.Request.Context(), status)
	if err != nil {
		crud.Fail(c, h.Logger, "list activities", err)
		return
	}
	response.OK(c, list)
}

// Get handles GET /activities/:id.
func (h *Handler) Get(c *gin.Context) {
	id, ok := crud.Int64Param(c, "id")
	if !ok {
		return
	}
	a, err := h.store.Get(c.Request.Context(), id)
	if err != nil {
		crud.Fail(c, h.Logger, "get activity", err)
		return
	}
	response.OK(c, a)
}

// Create handles POST /activities.
func (h *Handler) Create(c *gin.Context) {
	a, ok := h.bind(c)
	if !ok {
		return
	}
	a.OrgID = h.org.ID()
	created, err := h.store.Create(c.Request.Context(), a)
	if err != nil {
		crud.Fail(c, h.Logger, "create activity", err)
		return
	}
	h.Pub.Publish(realtime.NewChange(realtime.TableActivities, realtime.Insert, crud.Key(created.ID), created))
	response.Created(c, created)
}

// Update handles PUT /activities/:id.
func (h *Handler) Update(c *gin.Context) {
	id, ok := crud.Int64Param(c, "id")
	if !ok {
		return
	}
	a, ok := h.bind(c)
	if !ok {
		return
	}
	a.ID = id
	updated, err := h.store.Update(c.Request.Context(), a)
	if err != nil {
		crud.Fail(c, h.Logger, "update activity", err)
		return
	}
	h.Pub.Publish(realtime.NewChange(realtime.TableActivities, realtime.Update, crud.Key(updated.ID), updated))
	response.OK(c, updated)
}

// ToggleStatus handles PATCH /activities/:id/status.
func (h *Handler) ToggleStatus() gin.HandlerFunc {
	return h.Toggle(crud.NumericKey, func(ctx context.Context, key string) (interface{}, error) {
		return h.store.ToggleStatus(ctx, crud.MustInt64(key))
	})
}

// RequestDeletion handles POST /activities/:id/delete-request.
func (h *Handler) RequestDeletion() gin.HandlerFunc {
	return h.RequestDelete(crud.NumericKey, func(ctx context.Context, key string) error {
		_, err := h.store.Get(ctx, crud.MustInt64(key))
		return err
	})
}

// Remove handles DELETE /activities/:id?confirm=<token>.
func (h *Handler) Remove() gin.HandlerFunc {
	return h.Delete(crud.NumericKey, func(ctx context.Context, key string) error {
		return h.store.Delete(ctx, crud.MustInt64(key))
	})
}
