// Package dbtest opens a migrated PostgreSQL database for repository tests. Tests are skipped when
// TEST_DATABASE_URL is unset.
package dbtest

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/resource-mgmt/console/pkg/database"
)

// EnvDSN names the variable holding the test database DSN.
const EnvDSN = "TEST_DATABASE_URL"

// Open connects to the test database, applies the migrations and empties every data table.
// A session advisory lock is held until the test ends so packages running in parallel take turns.
func Open(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv(EnvDSN)
	if dsn == "" {
		t.Skipf("%s is not set", EnvDSN)
	}
	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, dsn, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	conn, err := pool.Acquire(ctx)
	require.NoError(t, err)
	_, err = conn.Exec(ctx, `SELECT pg_advisory_lock(hashtext('dbtest'))`)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = conn.Exec(context.Background(), `SELECT pg_advisory_unlock(hashtext('dbtest'))`)
		conn.Release()
	})

	require.NoError(t, database.Migrate(ctx, pool, zap.NewNop()))
	_, err = pool.Exec(ctx, `TRUNCATE time_entries, project_activity_resources, project_activities, projects,
		team_members, teams, employee_skills, employees, clients, activities, skills, organization, email_logs
		RESTART IDENTITY CASCADE`)
	require.NoError(t, err)
	return pool
}

// SeedClient inserts an active client with the given code.
func SeedClient(t *testing.T, pool *pgxpool.Pool, id, name string) {
	t.Helper()
	_, err := pool.Exec(context.Background(), `INSERT INTO clients (id, name, street_1, city, state, country, zipcode)
		VALUES ($1, $2, '1 Main St', 'Austin', 'TX', 'USA', 78701)`, id, name)
	require.NoError(t, err)
}

// SeedActivity inserts a catalog activity and returns its id.
func SeedActivity(t *testing.T, pool *pgxpool.Pool, name string) int64 {
	t.Helper()
	var id int64
	err := pool.QueryRow(context.Background(), `INSERT INTO activities (name) VALUES ($1) RETURNING id`, name).Scan(&id)
	require.NoError(t, err)
	return id
}

// SeedProject inserts an active project for clientID and returns its id.
func SeedProject(t *testing.T, pool *pgxpool.Pool, clientID, name string) int64 {
	t.Helper()
	var id int64
	err := pool.QueryRow(context.Background(), `INSERT INTO projects (name, client_id, start_date, planned_end_date,
		street_1, city, state, country, zipcode, county_zone)
		VALUES ($1, $2, DATE '2026-01-05', DATE '2026-06-30', '1 Main St', 'Austin', 'TX', 'USA', 78701, 'Central')
		RETURNING id`, name, clientID).Scan(&id)
	require.NoError(t, err)
	return id
}

// SeedEmployee inserts an active employee with the given code and email.
func SeedEmployee(t *testing.T, pool *pgxpool.Pool, id, email string) {
	t.Helper()
	_, err := pool.Exec(context.Background(), `INSERT INTO employees (id, first_name, last_name, email, working_shift)
		VALUES ($1, 'Test', 'Employee', $2, 'Day')`, id, email)
	require.NoError(t, err)
}

// Count returns the result of a SELECT count(*) query.
func Count(t *testing.T, pool *pgxpool.Pool, sql string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, pool.QueryRow(context.Background(), sql, args...).Scan(&n))
	return n
}
