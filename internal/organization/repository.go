package organization

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/resource-mgmt/console/internal/models"
)

// Repository handles persistence of the singleton organization row.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an organization repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const orgColumns = `id, name, description, address_1, city, state, country, zip_code, contact_name,
	COALESCE(phone, ''), COALESCE(email, ''), COALESCE(website, ''), updated_at`

func scanOrg(row interface{ Scan(...any) error }) (*models.Organization, error) {
	var o models.Organization
	err := row.Scan(&o.ID, &o.Name, &o.Description, &o.Address1, &o.City, &o.State, &o.Country,
		&o.ZipCode, &o.ContactName, &o.Phone, &o.Email, &o.Website, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// Ensure returns the organization row, inserting the default row first if it is missing.
// The insert is a no-op when the row exists, so concurrent first loads create it once.
func (r *Repository) Ensure(ctx context.Context) (*models.Organization, error) {
	d := models.DefaultOrganization()
	const ins = `INSERT INTO organization (id, name, description, address_1, city, state, country, zip_code, contact_name)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING`
	if _, err := r.pool.Exec(ctx, ins, d.ID, d.Name, d.Description, d.Address1, d.City, d.State, d.Country, d.ZipCode, d.ContactName); err != nil {
		return nil, err
	}
	q := `SELECT ` + orgColumns + ` FROM organization WHERE id = $1`
	return scanOrg(r.pool.QueryRow(ctx, q, d.ID))
}

// Update overwrites the organization row and returns it.
func (r *Repository) Update(ctx context.Context, o *models.Organization) (*models.Organization, error) {
	q := `UPDATE organization SET name = $2, description = $3, address_1 = $4, city = $5, state = $6,
		country = $7, zip_code = $8, contact_name = $9, phone = NULLIF($10, ''), email = NULLIF($11, ''),
		website = NULLIF($12, ''), updated_at = NOW()
		WHERE id = $1
		RETURNING ` + orgColumns
	return scanOrg(r.pool.QueryRow(ctx, q, models.DefaultOrganizationID, o.Name, o.Description, o.Address1, o.City,
		o.State, o.Country, o.ZipCode, o.ContactName, o.Phone, o.Email, o.Website))
}
