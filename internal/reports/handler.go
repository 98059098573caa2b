// Package reports serves the client report, the admin dashboard and report exports.
package reports

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/resource-mgmt/console/internal/auth"
	"github.com/resource-mgmt/console/internal/crud"
	"github.com/resource-mgmt/console/internal/models"
	"github.com/resource-mgmt/console/internal/timetracking"
	"github.com/resource-mgmt/console/pkg/queue"
	"github.com/resource-mgmt/console/pkg/response"
)

// ClientSummary is one row of the client report.
type ClientSummary struct {
	ClientID          string  `json:"client_id"`
	ClientName        string  `json:"client_name"`
	ClientStatus      bool    `json:"client_status"`
	TotalProjects     int     `json:"total_projects"`
	ActiveProjects    int     `json:"active_projects"`
	CompletedProjects int     `json:"completed_projects"`
	TrackedSeconds    int64   `json:"tracked_seconds"`
	TrackedHours      float64 `json:"total_hours"`
}

// Counts are the dashboard tiles.
type Counts struct {
	Clients          int `json:"clients"`
	ActiveClients    int `json:"active_clients"`
	Projects         int `json:"projects"`
	ActiveProjects   int `json:"active_projects"`
	Employees        int `json:"employees"`
	ActiveEmployees  int `json:"active_employees"`
	Teams            int `json:"teams"`
	ActiveActivities int `json:"active_activities"`
}

// Dashboard is the GET /dashboard payload.
type Dashboard struct {
	Counts
	RunningTimers []timetracking.ActiveTimer `json:"running_timers"`
	GeneratedAt   time.Time                  `json:"generated_at"`
}

// ExportStatus is returned while an export is queued or after it finished.
type ExportStatus struct {
	JobID       string      `json:"job_id"`
	State       queue.State `json:"state"`
	DownloadURL string      `json:"download_url,omitempty"`
	Error       string      `json:"error,omitempty"`
}

// Hours converts seconds to hours rounded to two decimals.
func Hours(seconds int64) float64 {
	return math.Round(float64(seconds)/36) / 100
}

// Store is the reporting persistence the handler needs.
type Store interface {
	ClientSummaries(ctx context.Context) ([]ClientSummary, error)
	Counts(ctx context.Context) (*Counts, error)
	RunningTimers(ctx context.Context) ([]*models.TimeEntry, error)
}

// Exports enqueues export jobs and reports their status.
type Exports interface {
	EnqueueClientReportExport(ctx context.Context, payload queue.ClientReportExportPayload) (string, error)
	GetStatus(ctx context.Context, jobID string) (*queue.Status, error)
}

// URLSigner issues download links for stored workbooks.
type URLSigner interface {
	ReportDownloadURL(ctx context.Context, key string) (string, error)
}

// OrgIDSource supplies the organization id recorded on export jobs.
type OrgIDSource interface {
	ID() int
}

// Handler handles report endpoints.
type Handler struct {
	store   Store
	exports Exports
	signer  URLSigner
	org     OrgIDSource
	logger  *zap.Logger
	now     func() time.Time
}

// NewHandler creates a reports handler.
func NewHandler(store Store, exports Exports, signer URLSigner, org OrgIDSource, logger *zap.Logger) *Handler {
	return &Handler{store: store, exports: exports, signer: signer, org: org, logger: logger, now: time.Now}
}

// Clients handles GET /reports/clients.
func (h *Handler) Clients(c *gin.Context) {
	rows, err := h.store.ClientSummaries(c.Request.Context())
	if err != nil {
		crud.Fail(c, h.logger, "client report", err)
		return
	}
	if rows == nil {
		rows = []ClientSummary{}
	}
	response.OK(c, rows)
}

// Dashboard handles GET /dashboard.
func (h *Handler) Dashboard(c *gin.Context) {
	ctx := c.Request.Context()
	counts, err := h.store.Counts(ctx)
	if err != nil {
		crud.Fail(c, h.logger, "dashboard counts", err)
		return
	}
	open, err := h.store.RunningTimers(ctx)
	if err != nil {
		crud.Fail(c, h.logger, "running timers", err)
		return
	}
	now := h.now()
	timers := make([]timetracking.ActiveTimer, 0, len(open))
	for _, e := range open {
		timers = append(timers, timetracking.Elapsed(e, now))
	}
	response.OK(c, Dashboard{Counts: *counts, RunningTimers: timers, GeneratedAt: now.UTC()})
}

// Export handles POST /reports/clients/export.
func (h *Handler) Export(c *gin.Context) {
	jobID, err := h.exports.EnqueueClientReportExport(c.Request.Context(), queue.ClientReportExportPayload{
		RequestedBy: c.GetString(auth.ContextUserEmail),
		OrgID:       h.org.ID(),
	})
	if err != nil {
		h.logger.Error("enqueue client report export", zap.Error(err))
		response.ServiceUnavailable(c, "could not queue export")
		return
	}
	h.logger.Info("client report export queued", zap.String("job_id", jobID))
	response.Accepted(c, ExportStatus{JobID: jobID, State: queue.StatePending})
}

// DownloadURL handles GET /reports/exports/:id/download-url.
func (h *Handler) DownloadURL(c *gin.Context) {
	jobID := strings.TrimSpace(c.Param("id"))
	if jobID == "" {
		response.BadRequest(c, "invalid id")
		return
	}
	ctx := c.Request.Context()
	st, err := h.exports.GetStatus(ctx, jobID)
	if errors.Is(err, queue.ErrStatusNotFound) {
		response.NotFound(c, "export not found")
		return
	}
	if err != nil {
		crud.Fail(c, h.logger, "export status", err)
		return
	}
	out := ExportStatus{JobID: st.JobID, State: st.State, Error: st.Error}
	switch st.State {
	case queue.StatePending:
		response.Accepted(c, out)
	case queue.StateFailed:
		response.Conflict(c, "export failed: "+st.Error)
	default:
		url, err := h.signer.ReportDownloadURL(ctx, st.ObjectKey)
		if err != nil {
			crud.Fail(c, h.logger, "presign report", err)
			return
		}
		out.DownloadURL = url
		response.OK(c, out)
	}
}
