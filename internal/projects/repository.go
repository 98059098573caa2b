package projects

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/resource-mgmt/console/internal/crud"
	"github.com/resource-mgmt/console/internal/models"
	"github.com/resource-mgmt/console/pkg/database"
)

// Repository handles projects together with their activities and resource allocations.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a projects repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const projectColumns = `p.id, p.name, p.description, p.client_id, COALESCE(c.name, ''), p.org_id, p.start_date,
	p.planned_end_date, p.actual_end_date, p.street_1, p.street_2, p.city, p.county, p.state, p.country,
	p.zipcode, p.county_zone, p.status, p.progress_status, p.floor_built_area, p.wall_area, p.roof_area,
	p.scope_area, p.created_at, p.updated_at`

const projectFrom = ` FROM projects p LEFT JOIN clients c ON c.id = p.client_id`

func scanProject(row pgx.Row) (*models.Project, error) {
	var p models.Project
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.ClientID, &p.ClientName, &p.OrgID, &p.StartDate,
		&p.PlannedEndDate, &p.ActualEndDate, &p.Street1, &p.Street2, &p.City, &p.County, &p.State, &p.Country,
		&p.Zipcode, &p.CountyZone, &p.Status, &p.ProgressStatus, &p.FloorBuiltArea, &p.WallArea, &p.RoofArea,
		&p.ScopeArea, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// List returns projects with their client name, newest first.
func (r *Repository) List(ctx context.Context, status *bool) ([]models.Project, error) {
	q := `SELECT ` + projectColumns + projectFrom + `
		WHERE ($1::boolean IS NULL OR p.status = $1)
		ORDER BY p.id DESC`
	rows, err := r.pool.Query(ctx, q, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *p)
	}
	return list, rows.Err()
}

// Get returns one project with its activities and resources.
func (r *Repository) Get(ctx context.Context, id int64) (*models.Project, error) {
	p, err := scanProject(r.pool.QueryRow(ctx, `SELECT `+projectColumns+projectFrom+` WHERE p.id = $1`, id))
	if err != nil {
		return nil, err
	}
	p.Activities, err = r.Activities(ctx, id)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Activities returns the activities of a project in insertion order, each with its resources.
func (r *Repository) Activities(ctx context.Context, projectID int64) ([]models.ProjectActivity, error) {
	const qa = `SELECT id, project_id, activity_id, activity_name, hours_allotted, start_date, end_date,
		work_status, org_id, client_id
		FROM project_activities WHERE project_id = $1 ORDER BY id`
	rows, err := r.pool.Query(ctx, qa, projectID)
	if err != nil {
		return nil, err
	}
	acts := []models.ProjectActivity{}
	index := map[int64]int{}
	for rows.Next() {
		var a models.ProjectActivity
		if err := rows.Scan(&a.ID, &a.ProjectID, &a.ActivityID, &a.ActivityName, &a.HoursAllotted, &a.StartDate,
			&a.EndDate, &a.WorkStatus, &a.OrgID, &a.ClientID); err != nil {
			rows.Close()
			return nil, err
		}
		a.Resources = []models.ResourceAllocation{}
		index[a.ID] = len(acts)
		acts = append(acts, a)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	const qr = `SELECT id, project_activity_id, project_id, employee_id, employee_name, skill_name,
		hours_allotted, hours_actual, org_id, client_id
		FROM project_activity_resources WHERE project_id = $1 ORDER BY id`
	rows, err = r.pool.Query(ctx, qr, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var res models.ResourceAllocation
		if err := rows.Scan(&res.ID, &res.ProjectActivityID, &res.ProjectID, &res.EmployeeID, &res.EmployeeName,
			&res.SkillName, &res.HoursAllotted, &res.HoursActual, &res.OrgID, &res.ClientID); err != nil {
			return nil, err
		}
		if i, ok := index[res.ProjectActivityID]; ok {
			acts[i].Resources = append(acts[i].Resources, res)
		}
	}
	return acts, rows.Err()
}

// Create inserts a project and its activities in one transaction.
func (r *Repository) Create(ctx context.Context, p *models.Project) (*models.Project, error) {
	var id int64
	err := database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		const q = `INSERT INTO projects (name, description, client_id, org_id, start_date, planned_end_date,
			actual_end_date, street_1, street_2, city, county, state, country, zipcode, county_zone, status,
			progress_status, floor_built_area, wall_area, roof_area, scope_area)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
			RETURNING id`
		if err := tx.QueryRow(ctx, q, p.Name, p.Description, p.ClientID, p.OrgID, p.StartDate, p.PlannedEndDate,
			p.ActualEndDate, p.Street1, p.Street2, p.City, p.County, p.State, p.Country, p.Zipcode, p.CountyZone,
			p.Status, p.ProgressStatus, p.FloorBuiltArea, p.WallArea, p.RoofArea, p.ScopeArea).Scan(&id); err != nil {
			return err
		}
		return insertActivities(ctx, tx, id, p)
	})
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, id)
}

// Update overwrites a project and replaces all of its activities and resources in one transaction.
func (r *Repository) Update(ctx context.Context, p *models.Project) (*models.Project, error) {
	err := database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		const q = `UPDATE projects SET name = $2, description = $3, client_id = $4, start_date = $5,
			planned_end_date = $6, actual_end_date = $7, street_1 = $8, street_2 = $9, city = $10, county = $11,
			state = $12, country = $13, zipcode = $14, county_zone = $15, status = $16, progress_status = $17,
			floor_built_area = $18, wall_area = $19, roof_area = $20, scope_area = $21, updated_at = NOW()
			WHERE id = $1`
		tag, err := tx.Exec(ctx, q, p.ID, p.Name, p.Description, p.ClientID, p.StartDate, p.PlannedEndDate,
			p.ActualEndDate, p.Street1, p.Street2, p.City, p.County, p.State, p.Country, p.Zipcode, p.CountyZone,
			p.Status, p.ProgressStatus, p.FloorBuiltArea, p.WallArea, p.RoofArea, p.ScopeArea)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return crud.ErrNotFound
		}
		if _, err := tx.Exec(ctx, `DELETE FROM project_activity_resources WHERE project_id = $1`, p.ID); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM project_activities WHERE project_id = $1`, p.ID); err != nil {
			return err
		}
		return insertActivities(ctx, tx, p.ID, p)
	})
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, p.ID)
}

func insertActivities(ctx context.Context, tx pgx.Tx, projectID int64, p *models.Project) error {
	const qa = `INSERT INTO project_activities (project_id, activity_id, activity_name, hours_allotted,
		start_date, end_date, work_status, org_id, client_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`
	const qr = `INSERT INTO project_activity_resources (project_activity_id, project_id, employee_id,
		employee_name, skill_name, hours_allotted, org_id, client_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	for _, a := range p.Activities {
		var actID int64
		if err := tx.QueryRow(ctx, qa, projectID, a.ActivityID, a.ActivityName, a.HoursAllotted, a.StartDate,
			a.EndDate, a.WorkStatus, p.OrgID, p.ClientID).Scan(&actID); err != nil {
			return err
		}
		batch := &pgx.Batch{}
		for _, res := range a.Resources {
			batch.Queue(qr, actID, projectID, res.EmployeeID, res.EmployeeName, res.SkillName, res.HoursAllotted,
				p.OrgID, p.ClientID)
		}
		if batch.Len() == 0 {
			continue
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return err
		}
	}
	return nil
}

// ToggleStatus flips the status flag.
func (r *Repository) ToggleStatus(ctx context.Context, id int64) (*models.Project, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE projects SET status = NOT status, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, crud.ErrNotFound
	}
	return scanProject(r.pool.QueryRow(ctx, `SELECT `+projectColumns+projectFrom+` WHERE p.id = $1`, id))
}

// Exists fails with pgx.ErrNoRows when the project is missing.
func (r *Repository) Exists(ctx context.Context, id int64) error {
	var one int
	return r.pool.QueryRow(ctx, `SELECT 1 FROM projects WHERE id = $1`, id).Scan(&one)
}

// Delete removes a project; activities and resources cascade.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return crud.ErrNotFound
	}
	return nil
}
