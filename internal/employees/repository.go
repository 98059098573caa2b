package employees

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/resource-mgmt/console/internal/crud"
	"github.com/resource-mgmt/console/internal/models"
	"github.com/resource-mgmt/console/pkg/database"
	"github.com/resource-mgmt/console/pkg/idgen"
)

const msgUnknownSkill = "Selected skill not found"

// Repository handles employees and their skill rows.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an employees repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const employeeColumns = `e.id, e.first_name, e.last_name, e.email, e.phone, e.date_joined, e.street_1, e.street_2,
	e.city, e.state, e.country, e.zipcode, e.working_shift, e.status, e.date_terminated, e.national_id, e.role_id,
	r.name, r.description, e.org_id, e.created_at, e.updated_at`

const employeeFrom = ` FROM employees e LEFT JOIN roles r ON r.id = e.role_id`

func scanEmployee(row pgx.Row) (*models.Employee, error) {
	var e models.Employee
	err := row.Scan(&e.ID, &e.FirstName, &e.LastName, &e.Email, &e.Phone, &e.DateJoined, &e.Street1, &e.Street2,
		&e.City, &e.State, &e.Country, &e.Zipcode, &e.WorkingShift, &e.Status, &e.DateTerminated, &e.NationalID,
		&e.RoleID, &e.RoleName, &e.RoleDescription, &e.OrgID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// List returns employees with their role name and description.
func (r *Repository) List(ctx context.Context, status *bool) ([]models.Employee, error) {
	q := `SELECT ` + employeeColumns + employeeFrom + `
		WHERE ($1::boolean IS NULL OR e.status = $1)
		ORDER BY length(e.id), e.id`
	rows, err := r.pool.Query(ctx, q, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.Employee{}
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *e)
	}
	return list, rows.Err()
}

// Get returns one employee with skills.
func (r *Repository) Get(ctx context.Context, id string) (*models.Employee, error) {
	e, err := scanEmployee(r.pool.QueryRow(ctx, `SELECT `+employeeColumns+employeeFrom+` WHERE e.id = $1`, id))
	if err != nil {
		return nil, err
	}
	if e.Skills, err = r.skills(ctx, r.pool, id); err != nil {
		return nil, err
	}
	return e, nil
}

// FindByEmail returns the employee whose email matches case-insensitively.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.Employee, error) {
	q := `SELECT ` + employeeColumns + employeeFrom + ` WHERE lower(e.email) = lower($1)`
	return scanEmployee(r.pool.QueryRow(ctx, q, strings.TrimSpace(email)))
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (r *Repository) skills(ctx context.Context, q querier, employeeID string) ([]models.EmployeeSkill, error) {
	const sq = `SELECT id, employee_id, skill_id, skill_name, proficiency
		FROM employee_skills WHERE employee_id = $1 ORDER BY id`
	rows, err := q.Query(ctx, sq, employeeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []models.EmployeeSkill{}
	for rows.Next() {
		var s models.EmployeeSkill
		if err := rows.Scan(&s.ID, &s.EmployeeID, &s.SkillID, &s.SkillName, &s.Proficiency); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// NextID previews the code the next created employee will get.
func (r *Repository) NextID(ctx context.Context) (string, error) {
	return idgen.Peek(ctx, r.pool, "employees", idgen.PrefixEmployee)
}

// Create allocates an EMP code, inserts the employee and its skills in one transaction.
func (r *Repository) Create(ctx context.Context, e *models.Employee) (*models.Employee, error) {
	var id string
	err := database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var err error
		id, err = InsertTx(ctx, tx, e)
		if err != nil {
			return err
		}
		return replaceSkills(ctx, tx, id, e)
	})
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, id)
}

// InsertTx allocates the next EMP code and inserts e inside tx. Skills are not written.
func InsertTx(ctx context.Context, tx pgx.Tx, e *models.Employee) (string, error) {
	id, err := idgen.Allocate(ctx, tx, "employees", idgen.PrefixEmployee)
	if err != nil {
		return "", err
	}
	const q = `INSERT INTO employees (id, first_name, last_name, email, phone, date_joined, street_1, street_2,
		city, state, country, zipcode, working_shift, status, date_terminated, national_id, role_id, org_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`
	_, err = tx.Exec(ctx, q, id, e.FirstName, e.LastName, e.Email, e.Phone, e.DateJoined, e.Street1, e.Street2,
		e.City, e.State, e.Country, e.Zipcode, e.WorkingShift, e.Status, e.DateTerminated, e.NationalID, e.RoleID,
		e.OrgID)
	if err != nil {
		return "", err
	}
	return id, nil
}

// Update overwrites an employee and replaces its skills in one transaction.
func (r *Repository) Update(ctx context.Context, e *models.Employee) (*models.Employee, error) {
	err := database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		const q = `UPDATE employees SET first_name = $2, last_name = $3, email = $4, phone = $5, date_joined = $6,
			street_1 = $7, street_2 = $8, city = $9, state = $10, country = $11, zipcode = $12, working_shift = $13,
			status = $14, date_terminated = $15, national_id = $16, role_id = $17, updated_at = NOW()
			WHERE id = $1`
		tag, err := tx.Exec(ctx, q, e.ID, e.FirstName, e.LastName, e.Email, e.Phone, e.DateJoined, e.Street1,
			e.Street2, e.City, e.State, e.Country, e.Zipcode, e.WorkingShift, e.Status, e.DateTerminated,
			e.NationalID, e.RoleID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return crud.ErrNotFound
		}
		return replaceSkills(ctx, tx, e.ID, e)
	})
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, e.ID)
}

// replaceSkills deletes the employee's skill rows and inserts e.Skills, taking skill names
// from the catalog.
func replaceSkills(ctx context.Context, tx pgx.Tx, employeeID string, e *models.Employee) error {
	if _, err := tx.Exec(ctx, `DELETE FROM employee_skills WHERE employee_id = $1`, employeeID); err != nil {
		return err
	}
	const q = `INSERT INTO employee_skills (employee_id, skill_id, skill_name, proficiency, org_id)
		SELECT $1::text, s.id, s.name, $3::text, $4::integer FROM skills s WHERE s.id = $2`
	for _, s := range e.Skills {
		tag, err := tx.Exec(ctx, q, employeeID, s.SkillID, s.Proficiency, e.OrgID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return crud.Invalid(msgUnknownSkill)
		}
	}
	return nil
}

// ToggleStatus flips the status flag.
func (r *Repository) ToggleStatus(ctx context.Context, id string) (*models.Employee, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE employees SET status = NOT status, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, crud.ErrNotFound
	}
	return scanEmployee(r.pool.QueryRow(ctx, `SELECT `+employeeColumns+employeeFrom+` WHERE e.id = $1`, id))
}

// Delete removes an employee; skill rows cascade.
func (r *Repository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM employees WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return crud.ErrNotFound
	}
	return nil
}
