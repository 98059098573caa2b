package timetracking

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/resource-mgmt/console/internal/crud"
	"github.com/resource-mgmt/console/internal/employees"
	"github.com/resource-mgmt/console/internal/models"
	"github.com/resource-mgmt/console/pkg/database"
)

// ErrNotRunning is returned by Stop when the employee has no open entry.
var ErrNotRunning = errors.New("no timer is running")

// Repository handles time entries and the lookups the timer form needs.
type Repository struct {
	pool      *pgxpool.Pool
	employees *employees.Repository
}

// NewRepository creates a time tracking repository.
func NewRepository(pool *pgxpool.Pool, emps *employees.Repository) *Repository {
	return &Repository{pool: pool, employees: emps}
}

// ResolveEmployee returns the employee for email, creating a minimal record when none exists.
// created reports whether a row was inserted.
func (r *Repository) ResolveEmployee(ctx context.Context, email string, orgID int) (*models.Employee, bool, error) {
	emp, err := r.employees.FindByEmail(ctx, email)
	if err == nil {
		return emp, false, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, err
	}
	draft := ProvisionedEmployee(email, orgID)
	err = database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM roles WHERE id = $1)`, models.RoleIDEmployee).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			draft.RoleID = nil
		}
		_, err := employees.InsertTx(ctx, tx, draft)
		return err
	})
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		// Lost a race with a concurrent request for the same email.
		emp, err = r.employees.FindByEmail(ctx, email)
		return emp, false, err
	}
	if err != nil {
		return nil, false, err
	}
	emp, err = r.employees.FindByEmail(ctx, email)
	return emp, err == nil, err
}

// ProvisionedEmployee builds the record created for a signed-in user with no employee row.
func ProvisionedEmployee(email string, orgID int) *models.Employee {
	email = strings.ToLower(strings.TrimSpace(email))
	first := "New"
	if at := strings.IndexByte(email, '@'); at > 0 {
		first = email[:at]
	}
	role := models.RoleIDEmployee
	return &models.Employee{
		FirstName:    first,
		LastName:     "User",
		Email:        email,
		WorkingShift: models.ShiftDay,
		Status:       true,
		RoleID:       &role,
		OrgID:        orgID,
	}
}

const entryColumns = `t.id, t.employee_id, t.employee_name, t.project_id, COALESCE(p.name, ''), t.activity_id,
	COALESCE(a.name, ''), t.client_id, t.skill_id, t.org_id, t.start_time, t.end_time`

const entryFrom = ` FROM time_entries t
	LEFT JOIN projects p ON p.id = t.project_id
	LEFT JOIN activities a ON a.id = t.activity_id`

func scanEntry(row pgx.Row) (*models.TimeEntry, error) {
	var e models.TimeEntry
	err := row.Scan(&e.ID, &e.EmployeeID, &e.EmployeeName, &e.ProjectID, &e.ProjectName, &e.ActivityID,
		&e.ActivityName, &e.ClientID, &e.SkillID, &e.OrgID, &e.StartTime, &e.EndTime)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *Repository) entry(ctx context.Context, q interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}, id int64) (*models.TimeEntry, error) {
	return scanEntry(q.QueryRow(ctx, `SELECT `+entryColumns+entryFrom+` WHERE t.id = $1`, id))
}

// Start closes any open entry of the employee at now and opens a new one, atomically.
// The project must belong to the client. closed is the entry that was stopped, if any.
func (r *Repository) Start(ctx context.Context, e *models.TimeEntry, now time.Time) (started, closed *models.TimeEntry, err error) {
	err = database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := database.LockKey(ctx, tx, "timer:"+e.EmployeeID); err != nil {
			return err
		}
		var closedID int64
		err := tx.QueryRow(ctx, `UPDATE time_entries SET end_time = $2
			WHERE employee_id = $1 AND end_time IS NULL RETURNING id`, e.EmployeeID, now).Scan(&closedID)
		switch {
		case errors.Is(err, pgx.ErrNoRows):
		case err != nil:
			return err
		default:
			if closed, err = r.entry(ctx, tx, closedID); err != nil {
				return err
			}
		}

		const q = `INSERT INTO time_entries (employee_id, employee_name, project_id, activity_id, client_id,
			skill_id, org_id, start_time)
			SELECT $1::text, $2::text, p.id, $4::bigint, p.client_id, $6::bigint, $7::integer, $8::timestamptz
			FROM projects p WHERE p.id = $3 AND p.client_id = $5
			RETURNING id`
		var id int64
		err = tx.QueryRow(ctx, q, e.EmployeeID, e.EmployeeName, e.ProjectID, e.ActivityID, e.ClientID,
			e.SkillID, e.OrgID, now).Scan(&id)
		if errors.Is(err, pgx.ErrNoRows) {
			return crud.Invalid("Project does not belong to the selected client")
		}
		if err != nil {
			return err
		}
		started, err = r.entry(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return started, closed, nil
}

// Stop ends the employee's open entry at now.
func (r *Repository) Stop(ctx context.Context, employeeID string, now time.Time) (*models.TimeEntry, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `UPDATE time_entries SET end_time = $2
		WHERE employee_id = $1 AND end_time IS NULL RETURNING id`, employeeID, now).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotRunning
	}
	if err != nil {
		return nil, err
	}
	return r.entry(ctx, r.pool, id)
}

// Active returns the employee's open entry, or pgx.ErrNoRows.
func (r *Repository) Active(ctx context.Context, employeeID string) (*models.TimeEntry, error) {
	return scanEntry(r.pool.QueryRow(ctx, `SELECT `+entryColumns+entryFrom+`
		WHERE t.employee_id = $1 AND t.end_time IS NULL`, employeeID))
}

// Entries returns the employee's entries, newest first.
func (r *Repository) Entries(ctx context.Context, employeeID string, limit int) ([]models.TimeEntry, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+entryColumns+entryFrom+`
		WHERE t.employee_id = $1 ORDER BY t.start_time DESC LIMIT $2`, employeeID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.TimeEntry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *e)
	}
	return list, rows.Err()
}

func (r *Repository) options(ctx context.Context, q string, args ...any) ([]Option, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Option{}
	for rows.Next() {
		var o Option
		if err := rows.Scan(&o.ID, &o.Name); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// ActiveClients lists clients with status on.
func (r *Repository) ActiveClients(ctx context.Context) ([]Option, error) {
	return r.options(ctx, `SELECT id, name FROM clients WHERE status ORDER BY name`)
}

// ActiveProjects lists active projects of a client.
func (r *Repository) ActiveProjects(ctx context.Context, clientID string) ([]Option, error) {
	return r.options(ctx, `SELECT id::text, name FROM projects WHERE client_id = $1 AND status ORDER BY name`, clientID)
}

// ActiveActivities lists catalog activities with status on.
func (r *Repository) ActiveActivities(ctx context.Context) ([]Option, error) {
	return r.options(ctx, `SELECT id::text, name FROM activities WHERE status ORDER BY name`)
}
