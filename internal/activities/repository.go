package activities

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/resource-mgmt/console/internal/crud"
	"github.com/resource-mgmt/console/internal/models"
)

// Repository handles the activity catalog.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an activities repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const activityColumns = `id, name, COALESCE(description, ''), status, org_id, created_at`

func scanActivity(row pgx.Row) (*models.Activity, error) {
	var a models.Activity
	if err := row.Scan(&a.ID, &a.Name, &a.Description, &a.Status, &a.OrgID, &a.CreatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}

// List returns activities ordered by name.
func (r *Repository) List(ctx context.Context, status *bool) ([]models.Activity, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+activityColumns+` FROM activities
		WHERE ($1::boolean IS NULL OR status = $1) ORDER BY name, id`, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.Activity{}
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *a)
	}
	return list, rows.Err()
}

// Get returns one activity.
func (r *Repository) Get(ctx context.Context, id int64) (*models.Activity, error) {
	return scanActivity(r.pool.QueryRow(ctx, `SELECT `+activityColumns+` FROM activities WHERE id = $1`, id))
}

// Create inserts an activity.
func (r *Repository) Create(ctx context.Context, a *models.Activity) (*models.Activity, error) {
	const q = `INSERT INTO activities (name, description, status, org_id) VALUES ($1, NULLIF($2, ''), $3, $4)
		RETURNING ` + activityColumns
	return scanActivity(r.pool.QueryRow(ctx, q, a.Name, a.Description, a.Status, a.OrgID))
}

// Update overwrites an activity.
func (r *Repository) Update(ctx context.Context, a *models.Activity) (*models.Activity, error) {
	const q = `UPDATE activities SET name = $2, description = NULLIF($3, ''), status = $4 WHERE id = $1
		RETURNING ` + activityColumns
	return scanActivity(r.pool.QueryRow(ctx, q, a.ID, a.Name, a.Description, a.Status))
}

// ToggleStatus flips the status flag.
func (r *Repository) ToggleStatus(ctx context.Context, id int64) (*models.Activity, error) {
	const q = `UPDATE activities SET status = NOT status WHERE id = $1 RETURNING ` + activityColumns
	return scanActivity(r.pool.QueryRow(ctx, q, id))
}

// Delete removes an activity. Activities scheduled on projects are rejected by the foreign key.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM activities WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return crud.ErrNotFound
	}
	return nil
}
