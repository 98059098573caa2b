package roles

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/resource-mgmt/console/internal/crud"
	"github.com/resource-mgmt/console/internal/models"
)

// Repository handles role persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a roles repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const roleColumns = `id, name, description, status, created_at`

func scanRole(row pgx.Row) (*models.Role, error) {
	var r models.Role
	if err := row.Scan(&r.ID, &r.Name, &r.Description, &r.Status, &r.CreatedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

// List returns roles ordered by id.
func (r *Repository) List(ctx context.Context, status *bool) ([]models.Role, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+roleColumns+` FROM roles
		WHERE ($1::boolean IS NULL OR status = $1) ORDER BY id`, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.Role{}
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *role)
	}
	return list, rows.Err()
}

// Get returns one role.
func (r *Repository) Get(ctx context.Context, id int64) (*models.Role, error) {
	return scanRole(r.pool.QueryRow(ctx, `SELECT `+roleColumns+` FROM roles WHERE id = $1`, id))
}

// Create inserts a role.
func (r *Repository) Create(ctx context.Context, role *models.Role) (*models.Role, error) {
	const q = `INSERT INTO roles (name, description, status) VALUES ($1, $2, $3) RETURNING ` + roleColumns
	return scanRole(r.pool.QueryRow(ctx, q, role.Name, role.Description, role.Status))
}

// Update overwrites a role.
func (r *Repository) Update(ctx context.Context, role *models.Role) (*models.Role, error) {
	const q = `UPDATE roles SET name = $2, description = $3, status = $4 WHERE id = $1 RETURNING ` + roleColumns
	return scanRole(r.pool.QueryRow(ctx, q, role.ID, role.Name, role.Description, role.Status))
}

// ToggleStatus flips the status flag.
func (r *Repository) ToggleStatus(ctx context.Context, id int64) (*models.Role, error) {
	const q = `UPDATE roles SET status = NOT status WHERE id = $1 RETURNING ` + roleColumns
	return scanRole(r.pool.QueryRow(ctx, q, id))
}

// Delete removes a role. Employees holding it keep a NULL role.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return crud.ErrNotFound
	}
	return nil
}
