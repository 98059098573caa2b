package models

import "time"

// Working shifts.
const (
	ShiftDay   = "Day"
	ShiftNight = "Night"
)

// Proficiency levels for employee skills.
const (
	ProficiencyBeginner     = "Beginner"
	ProficiencyIntermediate = "Intermediate"
	ProficiencyAdvanced     = "Advanced"
	ProficiencyExpert       = "Expert"
)

// Proficiencies lists valid proficiency levels in ascending order.
var Proficiencies = []string{ProficiencyBeginner, ProficiencyIntermediate, ProficiencyAdvanced, ProficiencyExpert}

// Employee is a staff member. ID is a code such as EMP001.
type Employee struct {
	ID              string          `json:"id"`
	FirstName       string          `json:"first_name"`
	LastName        string          `json:"last_name"`
	Email           string          `json:"email"`
	Phone           string          `json:"phone"`
	DateJoined      *Date           `json:"date_joined"`
	Street1         string          `json:"street1"`
	Street2         string          `json:"street2"`
	City            string          `json:"city"`
	State           string          `json:"state"`
	Country         string          `json:"country"`
	Zipcode         string          `json:"zipcode"`
	WorkingShift    string          `json:"working_shift"`
	Status          bool            `json:"status"`
	DateTerminated  *Date           `json:"date_terminated"`
	NationalID      *string         `json:"national_id"`
	RoleID          *int64          `json:"role_id"`
	RoleName        *string         `json:"role_name,omitempty"`
	RoleDescription *string         `json:"role_description,omitempty"`
	OrgID           int             `json:"org_id"`
	Skills          []EmployeeSkill `json:"skills,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// FullName joins first and last name.
func (e *Employee) FullName() string {
	if e.LastName == "" {
		return e.FirstName
	}
	return e.FirstName + " " + e.LastName
}

// EmployeeSkill links an employee to a skill at a proficiency level.
type EmployeeSkill struct {
	ID          int64  `json:"id"`
	EmployeeID  string `json:"employee_id"`
	SkillID     int64  `json:"skill_id"`
	SkillName   string `json:"skill_name"`
	Proficiency string `json:"proficiency"`
}
