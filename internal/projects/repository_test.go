package projects

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/resource-mgmt/console/internal/models"
	"github.com/resource-mgmt/console/pkg/database/dbtest"
)

func TestRepository_UpdateReplacesActivitiesAndResources(t *testing.T) {
	pool := dbtest.Open(t)
	repo := NewRepository(pool)
	ctx := context.Background()

	dbtest.SeedClient(t, pool, "CL001", "Acme")
	framing := dbtest.SeedActivity(t, pool, "Framing")
	roofing := dbtest.SeedActivity(t, pool, "Roofing")
	dbtest.SeedEmployee(t, pool, "EMP001", "ann@example.com")
	dbtest.SeedEmployee(t, pool, "EMP002", "bo@example.com")

	p := &models.Project{
		Name:           "Warehouse",
		ClientID:       "CL001",
		OrgID:          1,
		StartDate:      models.NewDate(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)),
		PlannedEndDate: models.NewDate(time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)),
		Street1:        "9 Dock Rd",
		City:           "Austin",
		State:          "TX",
		Country:        "USA",
		Zipcode:        78701,
		CountyZone:     "East",
		Status:         true,
		ProgressStatus: models.ProgressInitiated,
		Activities: []models.ProjectActivity{{
			ActivityID:    framing,
			ActivityName:  "Framing",
			HoursAllotted: 8,
			WorkStatus:    models.WorkNotStarted,
			Resources: []models.ResourceAllocation{
				{EmployeeID: "EMP001", EmployeeName: "Ann Lee", SkillName: "Carpentry", HoursAllotted: 8},
			},
		}},
	}
	created, err := repo.Create(ctx, p)
	require.NoError(t, err)
	require.Len(t, created.Activities, 1)
	require.Len(t, created.Activities[0].Resources, 1)

	p.ID = created.ID
	p.ProgressStatus = models.ProgressInProgress
	p.Activities = []models.ProjectActivity{{
		ActivityID:    roofing,
		ActivityName:  "Roofing",
		HoursAllotted: 10,
		WorkStatus:    models.WorkInProgress,
		Resources: []models.ResourceAllocation{
			{EmployeeID: "EMP001", EmployeeName: "Ann Lee", SkillName: "Roofing", HoursAllotted: 6},
			{EmployeeID: "EMP002", EmployeeName: "Bo Park", SkillName: "Roofing", HoursAllotted: 4},
		},
	}}
	updated, err := repo.Update(ctx, p)
	require.NoError(t, err)

	require.Equal(t, models.ProgressInProgress, updated.ProgressStatus)
	require.Len(t, updated.Activities, 1)
	act := updated.Activities[0]
	require.Equal(t, roofing, act.ActivityID)
	require.Equal(t, "CL001", act.ClientID)
	require.Len(t, act.Resources, 2)
	require.Equal(t, "EMP001", act.Resources[0].EmployeeID)
	require.Equal(t, 6, act.Resources[0].HoursAllotted)
	require.Equal(t, "EMP002", act.Resources[1].EmployeeID)

	require.Equal(t, 1, dbtest.Count(t, pool, `SELECT count(*) FROM project_activities WHERE project_id = $1`, p.ID))
	require.Equal(t, 2, dbtest.Count(t, pool, `SELECT count(*) FROM project_activity_resources WHERE project_id = $1`, p.ID))
	require.Equal(t, 0, dbtest.Count(t, pool, `SELECT count(*) FROM project_activities WHERE activity_id = $1`, framing))
}

func TestRepository_UpdateMissingProjectWritesNothing(t *testing.T) {
	pool := dbtest.Open(t)
	repo := NewRepository(pool)

	dbtest.SeedClient(t, pool, "CL001", "Acme")
	act := dbtest.SeedActivity(t, pool, "Framing")

	_, err := repo.Update(context.Background(), &models.Project{
		ID:         404,
		Name:       "Ghost",
		ClientID:   "CL001",
		Activities: []models.ProjectActivity{{ActivityID: act, ActivityName: "Framing", HoursAllotted: 1}},
	})
	require.Error(t, err)
	require.Equal(t, 0, dbtest.Count(t, pool, `SELECT count(*) FROM project_activities`))
}
