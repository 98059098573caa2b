package models

import "time"

// Team groups employees under a lead.
type Team struct {
	ID        int64        `json:"id"`
	Name      string       `json:"name"`
	LeadID    *string      `json:"lead_id"`
	LeadName  string       `json:"lead_name,omitempty"`
	Status    bool         `json:"status"`
	OrgID     int          `json:"org_id"`
	Members   []TeamMember `json:"members"`
	CreatedAt time.Time    `json:"created_at"`
}

// TeamMember is one employee on a team.
type TeamMember struct {
	ID           int64  `json:"id"`
	TeamID       int64  `json:"team_id"`
	EmployeeID   string `json:"employee_id"`
	EmployeeName string `json:"employee_name"`
}
