package organization

import (
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/resource-mgmt/console/internal/crud"
	"github.com/resource-mgmt/console/internal/models"
	"github.com/resource-mgmt/console/internal/realtime"
	"github.com/resource-mgmt/console/pkg/response"
)

// UpdateRequest is the body for PUT /organization.
type UpdateRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Address1    string `json:"address_1"`
	City        string `json:"city"`
	State       string `json:"state"`
	Country     string `json:"country"`
	ZipCode     int    `json:"zip_code"`
	ContactName string `json:"contact_name"`
	Phone       string `json:"phone"`
	Email       string `json:"email"`
	Website     string `json:"website"`
}

// Handler handles organization HTTP endpoints.
type Handler struct {
	store  Store
	orgCtx *Context
	pub    realtime.Publisher
	logger *zap.Logger
}

// NewHandler creates an organization handler.
func NewHandler(store Store, orgCtx *Context, pub realtime.Publisher, logger *zap.Logger) *Handler {
	return &Handler{store: store, orgCtx: orgCtx, pub: pub, logger: logger}
}

// Get handles GET /organization.
func (h *Handler) Get(c *gin.Context) {
	org, err := h.store.Ensure(c.Request.Context())
	if err != nil {
		crud.Fail(c, h.logger, "load organization", err)
		return
	}
	response.OK(c, org)
}

// Context handles GET /organization/context: the process-wide state handlers stamp rows with.
func (h *Handler) Context(c *gin.Context) {
	response.OK(c, h.orgCtx.Snapshot())
}

// Update handles PUT /organization.
func (h *Handler) Update(c *gin.Context) {
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		response.BadRequest(c, "Organization name is required")
		return
	}
	org, err := h.store.Update(c.Request.Context(), &models.Organization{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Address1:    req.Address1,
		City:        req.City,
		State:       req.State,
		Country:     req.Country,
		ZipCode:     req.ZipCode,
		ContactName: req.ContactName,
		Phone:       req.Phone,
		Email:       req.Email,
		Website:     req.Website,
	})
	if err != nil {
		crud.Fail(c, h.logger, "update organization", err)
		return
	}
	h.orgCtx.Set(org)
	h.pub.Publish(realtime.NewChange(realtime.TableOrganization, realtime.Update, "1", org))
	response.OK(c, org)
}
