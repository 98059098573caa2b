package models

import "time"

// DefaultSkillID is recorded on time entries when no skill is chosen.
const DefaultSkillID int64 = 1

// TimeEntry is one tracked interval of work. EndTime is nil while the timer runs.
type TimeEntry struct {
	ID              int64      `json:"id"`
	EmployeeID      string     `json:"employee_id"`
	EmployeeName    string     `json:"employee_name"`
	ProjectID       int64      `json:"project_id"`
	ProjectName     string     `json:"project_name,omitempty"`
	ActivityID      int64      `json:"activity_id"`
	ActivityName    string     `json:"activity_name,omitempty"`
	ClientID        string     `json:"client_id"`
	SkillID         int64      `json:"skill_id"`
	OrgID           int        `json:"org_id"`
	StartTime       time.Time  `json:"start_time"`
	EndTime         *time.Time `json:"end_time"`
	DurationSeconds *int64     `json:"duration_seconds,omitempty"`
}

// Running reports whether the entry has no end time.
func (e *TimeEntry) Running() bool {
	return e.EndTime == nil
}

// Duration returns end - start, or now - start while running.
func (e *TimeEntry) Duration(now time.Time) time.Duration {
	end := now
	if e.EndTime != nil {
		end = *e.EndTime
	}
	if end.Before(e.StartTime) {
		return 0
	}
	return end.Sub(e.StartTime)
}
