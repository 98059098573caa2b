package skills

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/resource-mgmt/console/internal/crud"
	"github.com/resource-mgmt/console/internal/models"
)

// Repository handles skill catalog persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a skills repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const skillColumns = `id, name, COALESCE(description, ''), type, org_id, created_at`

func scanSkill(row pgx.Row) (*models.Skill, error) {
	var s models.Skill
	if err := row.Scan(&s.ID, &s.Name, &s.Description, &s.Type, &s.OrgID, &s.CreatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

// List returns skills, optionally of one type.
func (r *Repository) List(ctx context.Context, skillType string) ([]models.Skill, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+skillColumns+` FROM skills
		WHERE ($1::text = '' OR type = $1) ORDER BY name, id`, skillType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.Skill{}
	for rows.Next() {
		s, err := scanSkill(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *s)
	}
	return list, rows.Err()
}

// Get returns one skill.
func (r *Repository) Get(ctx context.Context, id int64) (*models.Skill, error) {
	return scanSkill(r.pool.QueryRow(ctx, `SELECT `+skillColumns+` FROM skills WHERE id = $1`, id))
}

// Create inserts a skill.
func (r *Repository) Create(ctx context.Context, s *models.Skill) (*models.Skill, error) {
	const q = `INSERT INTO skills (name, description, type, org_id) VALUES ($1, NULLIF($2, ''), $3, $4)
		RETURNING ` + skillColumns
	return scanSkill(r.pool.QueryRow(ctx, q, s.Name, s.Description, s.Type, s.OrgID))
}

// Update overwrites a skill.
func (r *Repository) Update(ctx context.Context, s *models.Skill) (*models.Skill, error) {
	const q = `UPDATE skills SET name = $2, description = NULLIF($3, ''), type = $4 WHERE id = $1
		RETURNING ` + skillColumns
	return scanSkill(r.pool.QueryRow(ctx, q, s.ID, s.Name, s.Description, s.Type))
}

// Delete removes a skill; employee skill rows referencing it cascade.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM skills WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return crud.ErrNotFound
	}
	return nil
}
