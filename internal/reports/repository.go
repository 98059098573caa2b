package reports

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/resource-mgmt/console/internal/models"
)

// Repository runs the reporting queries.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a reports repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ClientSummaries aggregates projects and closed time entries per client.
func (r *Repository) ClientSummaries(ctx context.Context) ([]ClientSummary, error) {
	const q = `SELECT c.id, c.name, c.status,
		COUNT(p.id),
		COUNT(p.id) FILTER (WHERE p.status),
		COUNT(p.id) FILTER (WHERE p.progress_status = 'Completed'),
		(SELECT COALESCE(SUM(EXTRACT(EPOCH FROM t.end_time - t.start_time)), 0)::bigint
			FROM time_entries t WHERE t.client_id = c.id AND t.end_time IS NOT NULL)
		FROM clients c
		LEFT JOIN projects p ON p.client_id = c.id
		GROUP BY c.id, c.name, c.status
		ORDER BY c.name, c.id`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ClientSummary
	for rows.Next() {
		var s ClientSummary
		if err := rows.Scan(&s.ClientID, &s.ClientName, &s.ClientStatus,
			&s.TotalProjects, &s.ActiveProjects, &s.CompletedProjects, &s.TrackedSeconds); err != nil {
			return nil, err
		}
		s.TrackedHours = Hours(s.TrackedSeconds)
		out = append(out, s)
	}
	return out, rows.Err()
}

// Counts returns the dashboard entity counters.
func (r *Repository) Counts(ctx context.Context) (*Counts, error) {
	const q = `SELECT
		(SELECT COUNT(*) FROM clients),
		(SELECT COUNT(*) FROM clients WHERE status),
		(SELECT COUNT(*) FROM projects),
		(SELECT COUNT(*) FROM projects WHERE status),
		(SELECT COUNT(*) FROM employees),
		(SELECT COUNT(*) FROM employees WHERE status),
		(SELECT COUNT(*) FROM teams),
		(SELECT COUNT(*) FROM activities WHERE status)`
	var n Counts
	err := r.pool.QueryRow(ctx, q).Scan(&n.Clients, &n.ActiveClients, &n.Projects, &n.ActiveProjects,
		&n.Employees, &n.ActiveEmployees, &n.Teams, &n.ActiveActivities)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// RunningTimers returns every open time entry, oldest first.
func (r *Repository) RunningTimers(ctx context.Context) ([]*models.TimeEntry, error) {
	const q = `SELECT t.id, t.employee_id, t.employee_name, t.project_id, p.name, t.activity_id, a.name,
		t.client_id, t.skill_id, t.org_id, t.start_time, t.end_time
		FROM time_entries t
		JOIN projects p ON p.id = t.project_id
		JOIN activities a ON a.id = t.activity_id
		WHERE t.end_time IS NULL
		ORDER BY t.start_time`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*models.TimeEntry, error) {
		var e models.TimeEntry
		err := row.Scan(&e.ID, &e.EmployeeID, &e.EmployeeName, &e.ProjectID, &e.ProjectName,
			&e.ActivityID, &e.ActivityName, &e.ClientID, &e.SkillID, &e.OrgID, &e.StartTime, &e.EndTime)
		return &e, err
	})
}
