package clients

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/resource-mgmt/console/internal/crud"
	"github.com/resource-mgmt/console/internal/models"
	"github.com/resource-mgmt/console/pkg/database"
	"github.com/resource-mgmt/console/pkg/idgen"
)

// Repository handles client persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a clients repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const clientColumns = `id, name, description, status, street_1, street_2, city, state, country, zipcode,
	contact_name, phone, website, resource, org_id, created_at, updated_at`

func scanClient(row pgx.Row) (*models.Client, error) {
	var c models.Client
	err := row.Scan(&c.ID, &c.Name, &c.Description, &c.Status, &c.Street1, &c.Street2, &c.City, &c.State,
		&c.Country, &c.Zipcode, &c.ContactName, &c.Phone, &c.Website, &c.Resource, &c.OrgID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// List returns clients ordered by id, optionally filtered by status.
func (r *Repository) List(ctx context.Context, status *bool) ([]models.Client, error) {
	q := `SELECT ` + clientColumns + ` FROM clients WHERE ($1::boolean IS NULL OR status = $1)
		ORDER BY length(id), id`
	rows, err := r.pool.Query(ctx, q, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.Client{}
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *c)
	}
	return list, rows.Err()
}

// Get returns one client.
func (r *Repository) Get(ctx context.Context, id string) (*models.Client, error) {
	q := `SELECT ` + clientColumns + ` FROM clients WHERE id = $1`
	return scanClient(r.pool.QueryRow(ctx, q, id))
}

// NextID previews the code the next created client will get.
func (r *Repository) NextID(ctx context.Context) (string, error) {
	return idgen.Peek(ctx, r.pool, "clients", idgen.PrefixClient)
}

// Create allocates the next CL code and inserts the client in one transaction.
func (r *Repository) Create(ctx context.Context, c *models.Client) (*models.Client, error) {
	var out *models.Client
	err := database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		id, err := idgen.Allocate(ctx, tx, "clients", idgen.PrefixClient)
		if err != nil {
			return err
		}
		q := `INSERT INTO clients (id, name, description, status, street_1, street_2, city, state, country,
			zipcode, contact_name, phone, website, resource, org_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
			RETURNING ` + clientColumns
		out, err = scanClient(tx.QueryRow(ctx, q, id, c.Name, c.Description, c.Status, c.Street1, c.Street2,
			c.City, c.State, c.Country, c.Zipcode, c.ContactName, c.Phone, c.Website, c.Resource, c.OrgID))
		return err
	})
	return out, err
}

// Update overwrites the editable fields of a client.
func (r *Repository) Update(ctx context.Context, c *models.Client) (*models.Client, error) {
	q := `UPDATE clients SET name = $2, description = $3, status = $4, street_1 = $5, street_2 = $6, city = $7,
		state = $8, country = $9, zipcode = $10, contact_name = $11, phone = $12, website = $13, resource = $14,
		updated_at = NOW()
		WHERE id = $1
		RETURNING ` + clientColumns
	return scanClient(r.pool.QueryRow(ctx, q, c.ID, c.Name, c.Description, c.Status, c.Street1, c.Street2,
		c.City, c.State, c.Country, c.Zipcode, c.ContactName, c.Phone, c.Website, c.Resource))
}

// ToggleStatus flips the status flag and returns the row.
func (r *Repository) ToggleStatus(ctx context.Context, id string) (*models.Client, error) {
	q := `UPDATE clients SET status = NOT status, updated_at = NOW() WHERE id = $1 RETURNING ` + clientColumns
	return scanClient(r.pool.QueryRow(ctx, q, id))
}

// Delete removes one client.
func (r *Repository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM clients WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return crud.ErrNotFound
	}
	return nil
}
