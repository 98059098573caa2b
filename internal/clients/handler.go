package clients

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

// Store is the client persistence the handler needs.
type Store interface {
	List(ctx context.Context, status *bool) ([]models.Client, error)
	Get(ctx context.Context, id string) (*models.Client, error)
	NextID(ctx context.Context) (string, error)
	Create(ctx context.Context, c *models.Client) (*models.Client, error)
	Update(ctx context.Context, c *models.Client) (*models.Client, error)
	ToggleStatus(ctx context.Context, id string) (*models.Client, error)
	Delete(ctx context.Context, id string) error
}

// OrgIDSource supplies the organization id stamped on new rows.
type OrgIDSource interface {
	ID() int
}

// ClientRequest is the body for POST /clients and PUT /clients/:id. Zip and phone arrive as
// text and must parse as numbers.
type ClientRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Status      *bool  `json:"status"`
	Street1     string `json:"street1"`
	Street2     string `json:"street2"`
	City        string `json:"city"`
	State       string `json:"state"`
	Country     string `json:"country"`
	Zipcode     string `json:"zipcode"`
	ContactName string `json:"contact_name"`
	Phone       string `json:"phone"`
	Website     string `json:"website"`
	Resource    string `json:"resource"`
}

// Validate runs the form checklist and stops at the first failure.
func (r ClientRequest) Validate() (*models.Client, error) {
	required := []struct{ value, msg string }{
		{r.Name, "Client name is required"},
		{r.Street1, "Street address is required"},
		{r.City, "City is required"},
		{r.State, "State is required"},
		{r.Country, "Country is required"},
		{r.Zipcode, "ZIP code is required"},
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
	var phone *int64
	if !utils.Blank(r.Phone) {
		p, err := utils.ParseIntField("Phone", r.Phone)
		if err != nil {
			return nil, crud.Invalid(err.Error())
		}
		phone = &p
	}
	status := true
	if r.Status != nil {
		status = *r.Status
	}
	return &models.Client{
		Name:        strings.TrimSpace(r.Name),
		Description: r.Description,
		Status:      status,
		Street1:     strings.TrimSpace(r.Street1),
		Street2:     r.Street2,
		City:        strings.TrimSpace(r.City),
		State:       strings.TrimSpace(r.State),
		Country:     strings.TrimSpace(r.Country),
		Zipcode:     zip,
		ContactName: r.ContactName,
		Phone:       phone,
		Website:     r.Website,
		Resource:    r.Resource,
	}, nil
}

// Handler handles client HTTP endpoints.
type Handler struct {
	store Store
	org   OrgIDSource
	crud.Lifecycle
}

// NewHandler creates a clients handler.
func NewHandler(store Store, org OrgIDSource, lc crud.Lifecycle) *Handler {
	lc.Table = realtime.TableClients
	return &Handler{store: store, org: org, Lifecycle: lc}
}

// List handles GET /clients.
func (h *Handler) List(c *gin.Context) {
	status, ok := crud.StatusFilter(c)
	if !ok {
		return
	}
	list, err := h.store.List(c.Request.Context(), status)
	if err != nil {
		crud.Fail(c, h.Logger, "list clients", err)
		return
	}
	response.OK(c, list)
}

// Get handles GET /clients/:id.
func (h *Handler) Get(c *gin.Context) {
	id, ok := crud.CodeKey(c)
	if !ok {
		return
	}
	client, err := h.store.Get(c.Request.Context(), id)
	if err != nil {
		crud.Fail(c, h.Logger, "get client", err)
		return
	}
	response.OK(c, client)
}

// NextID handles GET /clients/next-id.
func (h *Handler) NextID(c *gin.Context) {
	id, err := h.store.NextID(c.Request.Context())
	if err != nil {
		crud.Fail(c, h.Logger, "next client id", err)
		return
	}
	response.OK(c, gin.H{"id": id})
}

// Create handles POST /clients.
func (h *Handler) Create(c *gin.Context) {
	var req ClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	client, err := req.Validate()
	if err != nil {
		crud.Fail(c, h.Logger, "validate client", err)
		return
	}
	client.OrgID = h.org.ID()
	created, err := h.store.Create(c.Request.Context(), client)
	if err != nil {
		crud.Fail(c, h.Logger, "create client", err)
		return
	}
	h.Pub.Publish(realtime.NewChange(realtime.TableClients, realtime.Insert, created.ID, created))
	response.Created(c, created)
}

// Update handles PUT /clients/:id.
func (h *Handler) Update(c *gin.Context) {
	id, ok := crud.CodeKey(c)
	if !ok {
		return
	}
	var req ClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	client, err := req.Validate()
	if err != nil {
		crud.Fail(c, h.Logger, "validate client", err)
		return
	}
	client.ID = id
	updated, err := h.store.Update(c.Request.Context(), client)
	if err != nil {
		crud.Fail(c, h.Logger, "update client", err)
		return
	}
	h.Pub.Publish(realtime.NewChange(realtime.TableClients, realtime.Update, updated.ID, updated))
	response.OK(c, updated)
}

// ToggleStatus handles PATCH /clients/:id/status.
func (h *Handler) ToggleStatus() gin.HandlerFunc {
	return h.Toggle(crud.CodeKey, func(ctx context.Context, id string) (interface{}, error) {
		return h.store.ToggleStatus(ctx, id)
	})
}

// RequestDeletion handles POST /clients/:id/delete-request.
func (h *Handler) RequestDeletion() gin.HandlerFunc {
	return h.RequestDelete(crud.CodeKey, func(ctx context.Context, id string) error {
		_, err := h.store.Get(ctx, id)
		return err
	})
}

// Remove handles DELETE /clients/:id?confirm=<token>.
func (h *Handler) Remove() gin.HandlerFunc {
	return h.Delete(crud.CodeKey, h.store.Delete)
}
