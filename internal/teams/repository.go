package teams

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/resource-mgmt/console/internal/crud"
	"github.com/resource-mgmt/console/internal/models"
	"github.com/resource-mgmt/console/pkg/database"
)

// Repository handles teams and their member rows.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a teams repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const teamColumns = `t.id, t.name, t.lead_id, COALESCE(e.first_name || ' ' || e.last_name, ''), t.status, t.org_id,
	t.created_at`

const teamFrom = ` FROM teams t LEFT JOIN employees e ON e.id = t.lead_id`

func scanTeam(row pgx.Row) (*models.Team, error) {
	var t models.Team
	if err := row.Scan(&t.ID, &t.Name, &t.LeadID, &t.LeadName, &t.Status, &t.OrgID, &t.CreatedAt); err != nil {
		return nil, err
	}
	t.Members = []models.TeamMember{}
	return &t, nil
}

// List returns teams with lead names and members, ordered by name.
func (r *Repository) List(ctx context.Context, status *bool) ([]models.Team, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+teamColumns+teamFrom+`
		WHERE ($1::boolean IS NULL OR t.status = $1) ORDER BY t.name, t.id`, status)
	if err != nil {
		return nil, err
	}
	list := []models.Team{}
	index := map[int64]int{}
	for rows.Next() {
		t, err := scanTeam(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		index[t.ID] = len(list)
		list = append(list, *t)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return list, nil
	}

	ids := make([]int64, 0, len(list))
	for _, t := range list {
		ids = append(ids, t.ID)
	}
	members, err := r.members(ctx, `WHERE team_id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	for _, m := range members {
		if i, ok := index[m.TeamID]; ok {
			list[i].Members = append(list[i].Members, m)
		}
	}
	return list, nil
}

// Get returns one team with its members.
func (r *Repository) Get(ctx context.Context, id int64) (*models.Team, error) {
	t, err := scanTeam(r.pool.QueryRow(ctx, `SELECT `+teamColumns+teamFrom+` WHERE t.id = $1`, id))
	if err != nil {
		return nil, err
	}
	if t.Members, err = r.members(ctx, `WHERE team_id = $1`, id); err != nil {
		return nil, err
	}
	return t, nil
}

func (r *Repository) members(ctx context.Context, where string, arg any) ([]models.TeamMember, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, team_id, employee_id, employee_name FROM team_members `+where+` ORDER BY id`, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []models.TeamMember{}
	for rows.Next() {
		var m models.TeamMember
		if err := rows.Scan(&m.ID, &m.TeamID, &m.EmployeeID, &m.EmployeeName); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Create inserts a team and its members in one transaction.
func (r *Repository) Create(ctx context.Context, t *models.Team) (*models.Team, error) {
	var id int64
	err := database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		const q = `INSERT INTO teams (name, lead_id, status, org_id) VALUES ($1, $2, $3, $4) RETURNING id`
		if err := tx.QueryRow(ctx, q, t.Name, t.LeadID, t.Status, t.OrgID).Scan(&id); err != nil {
			return err
		}
		return replaceMembers(ctx, tx, id, t)
	})
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, id)
}

// Update overwrites a team and replaces its members in one transaction.
func (r *Repository) Update(ctx context.Context, t *models.Team) (*models.Team, error) {
	err := database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE teams SET name = $2, lead_id = $3, status = $4 WHERE id = $1`,
			t.ID, t.Name, t.LeadID, t.Status)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return crud.ErrNotFound
		}
		return replaceMembers(ctx, tx, t.ID, t)
	})
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, t.ID)
}

// replaceMembers rewrites the member rows of a team, taking names from the employees table.
func replaceMembers(ctx context.Context, tx pgx.Tx, teamID int64, t *models.Team) error {
	if _, err := tx.Exec(ctx, `DELETE FROM team_members WHERE team_id = $1`, teamID); err != nil {
		return err
	}
	if len(t.Members) == 0 {
		return nil
	}
	ids := make([]string, 0, len(t.Members))
	for _, m := range t.Members {
		ids = append(ids, m.EmployeeID)
	}
	const q = `INSERT INTO team_members (team_id, employee_id, employee_name, org_id)
		SELECT $1::bigint, e.id, e.first_name || ' ' || e.last_name, $3::integer
		FROM employees e WHERE e.id = ANY($2)`
	tag, err := tx.Exec(ctx, q, teamID, ids, t.OrgID)
	if err != nil {
		return err
	}
	if int(tag.RowsAffected()) != len(ids) {
		return crud.Invalid("Selected team member not found")
	}
	return nil
}

// ToggleStatus flips the status flag.
func (r *Repository) ToggleStatus(ctx context.Context, id int64) (*models.Team, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE teams SET status = NOT status WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, crud.ErrNotFound
	}
	return r.Get(ctx, id)
}

// Delete removes the team's member rows and then the team, in one transaction.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	return database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM team_members WHERE team_id = $1`, id); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM teams WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return crud.ErrNotFound
		}
		return nil
	})
}
