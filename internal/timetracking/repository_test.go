package timetracking

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/resource-mgmt/console/internal/crud"
	"github.com/resource-mgmt/console/internal/employees"
	"github.com/resource-mgmt/console/internal/models"
	"github.com/resource-mgmt/console/pkg/database/dbtest"
)

func TestRepository_StartClosesPreviousEntry(t *testing.T) {
	pool := dbtest.Open(t)
	repo := NewRepository(pool, employees.NewRepository(pool))
	ctx := context.Background()

	dbtest.SeedClient(t, pool, "CL001", "Acme")
	dbtest.SeedClient(t, pool, "CL002", "Globex")
	warehouse := dbtest.SeedProject(t, pool, "CL001", "Warehouse")
	office := dbtest.SeedProject(t, pool, "CL002", "Office")
	framing := dbtest.SeedActivity(t, pool, "Framing")

	emp, created, err := repo.ResolveEmployee(ctx, "ann@example.com", 1)
	require.NoError(t, err)
	require.True(t, created)

	entry := func(projectID int64, clientID string) *models.TimeEntry {
		return &models.TimeEntry{
			EmployeeID:   emp.ID,
			EmployeeName: emp.FullName(),
			ProjectID:    projectID,
			ActivityID:   framing,
			ClientID:     clientID,
			SkillID:      models.DefaultSkillID,
			OrgID:        1,
		}
	}

	t0 := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	first, closed, err := repo.Start(ctx, entry(warehouse, "CL001"), t0)
	require.NoError(t, err)
	require.Nil(t, closed)
	require.True(t, first.Running())
	require.Equal(t, "Warehouse", first.ProjectName)

	t1 := t0.Add(95 * time.Minute)
	second, closed, err := repo.Start(ctx, entry(office, "CL002"), t1)
	require.NoError(t, err)
	require.NotNil(t, closed)
	require.Equal(t, first.ID, closed.ID)
	require.NotNil(t, closed.EndTime)
	require.True(t, closed.EndTime.Equal(t1))
	require.False(t, closed.EndTime.After(second.StartTime))
	require.Equal(t, "CL002", second.ClientID)

	require.Equal(t, 1, dbtest.Count(t, pool, `SELECT count(*) FROM time_entries WHERE employee_id = $1 AND end_time IS NULL`, emp.ID))
	active, err := repo.Active(ctx, emp.ID)
	require.NoError(t, err)
	require.Equal(t, second.ID, active.ID)
}

func TestRepository_StartRejectsForeignProjectAndKeepsTimer(t *testing.T) {
	pool := dbtest.Open(t)
	repo := NewRepository(pool, employees.NewRepository(pool))
	ctx := context.Background()

	dbtest.SeedClient(t, pool, "CL001", "Acme")
	dbtest.SeedClient(t, pool, "CL002", "Globex")
	warehouse := dbtest.SeedProject(t, pool, "CL001", "Warehouse")
	framing := dbtest.SeedActivity(t, pool, "Framing")
	dbtest.SeedEmployee(t, pool, "EMP001", "ann@example.com")

	e := &models.TimeEntry{EmployeeID: "EMP001", EmployeeName: "Test Employee", ProjectID: warehouse,
		ActivityID: framing, ClientID: "CL001", SkillID: models.DefaultSkillID, OrgID: 1}
	t0 := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	running, _, err := repo.Start(ctx, e, t0)
	require.NoError(t, err)

	wrong := *e
	wrong.ClientID = "CL002"
	_, _, err = repo.Start(ctx, &wrong, t0.Add(time.Hour))
	var ve *crud.ValidationError
	require.ErrorAs(t, err, &ve)

	active, err := repo.Active(ctx, "EMP001")
	require.NoError(t, err)
	require.Equal(t, running.ID, active.ID)
	require.Nil(t, active.EndTime)
}

func TestRepository_StopWithoutTimer(t *testing.T) {
	pool := dbtest.Open(t)
	repo := NewRepository(pool, employees.NewRepository(pool))
	dbtest.SeedEmployee(t, pool, "EMP001", "ann@example.com")

	_, err := repo.Stop(context.Background(), "EMP001", time.Now())
	require.ErrorIs(t, err, ErrNotRunning)
}
