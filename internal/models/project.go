package models

import "time"

// Project progress states.
const (
	ProgressInitiated  = "Initiated"
	ProgressInProgress = "In Progress"
	ProgressOnHold     = "On Hold"
	ProgressCompleted  = "Completed"
)

// Activity work states.
const (
	WorkNotStarted = "Not Started"
	WorkInProgress = "In Progress"
	WorkCompleted  = "Completed"
)

// Project is a unit of client work.
type Project struct {
	ID             int64             `json:"id"`
	Name           string            `json:"name"`
	Description    string            `json:"description"`
	ClientID       string            `json:"client_id"`
	ClientName     string            `json:"client_name,omitempty"`
	OrgID          int               `json:"org_id"`
	StartDate      Date              `json:"start_date"`
	PlannedEndDate Date              `json:"planned_end_date"`
	ActualEndDate  *Date             `json:"actual_end_date"`
	Street1        string            `json:"street1"`
	Street2        string            `json:"street2"`
	City           string            `json:"city"`
	County         string            `json:"county"`
	State          string            `json:"state"`
	Country        string            `json:"country"`
	Zipcode        int64             `json:"zipcode"`
	CountyZone     string            `json:"county_zone"`
	Status         bool              `json:"status"`
	ProgressStatus string            `json:"progress_status"`
	FloorBuiltArea *float64          `json:"floor_built_area"`
	WallArea       *float64          `json:"wall_area"`
	RoofArea       *float64          `json:"roof_area"`
	ScopeArea      *float64          `json:"scope_area"`
	Activities     []ProjectActivity `json:"activities,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// ProjectActivity is an activity scheduled on a project with a declared hour budget.
type ProjectActivity struct {
	ID            int64                `json:"id"`
	ProjectID     int64                `json:"project_id"`
	ActivityID    int64                `json:"activity_id"`
	ActivityName  string               `json:"activity_name"`
	HoursAllotted int                  `json:"hours_allotted"`
	StartDate     *Date                `json:"start_date"`
	EndDate       *Date                `json:"end_date"`
	WorkStatus    string               `json:"work_status"`
	OrgID         int                  `json:"org_id"`
	ClientID      string               `json:"client_id"`
	Resources     []ResourceAllocation `json:"resources"`
}

// ResourceAllocation assigns an employee and a number of hours to a project activity.
type ResourceAllocation struct {
	ID                int64  `json:"id"`
	ProjectActivityID int64  `json:"project_activity_id"`
	ProjectID         int64  `json:"project_id"`
	EmployeeID        string `json:"employee_id"`
	EmployeeName      string `json:"employee_name"`
	SkillName         string `json:"skill_name"`
	HoursAllotted     int    `json:"hours_allotted"`
	HoursActual       *int   `json:"hours_actual"`
	OrgID             int    `json:"org_id"`
	ClientID          string `json:"client_id"`
}
