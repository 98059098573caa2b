// Package emaillogs exposes the outbound message log written by the worker.
package emaillogs

import (
	"context"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/resource-mgmt/console/internal/crud"
	"github.com/resource-mgmt/console/internal/models"
	"github.com/resource-mgmt/console/pkg/response"
)

const (
	defaultLimit = 100
	maxLimit     = 500
)

// Store lists recorded messages.
type Store interface {
	List(ctx context.Context, recipient string, limit int) ([]*models.EmailLog, error)
}

// Handler handles email log HTTP endpoints.
type Handler struct {
	store  Store
	logger *zap.Logger
}

// NewHandler creates an email logs handler.
func NewHandler(store Store, logger *zap.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

// List handles GET /email-logs?recipient=&limit=.
func (h *Handler) List(c *gin.Context) {
	limit := defaultLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			response.BadRequest(c, "limit must be a positive number")
			return
		}
		limit = n
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	logs, err := h.store.List(c.Request.Context(), strings.TrimSpace(c.Query("recipient")), limit)
	if err != nil {
		crud.Fail(c, h.logger, "list email logs", err)
		return
	}
	if logs == nil {
		logs = []*models.EmailLog{}
	}
	response.OK(c, logs)
}
