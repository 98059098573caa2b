package models

import "time"

// Role ids seeded by the schema.
const (
	RoleIDAdmin    int64 = 1
	RoleIDManager  int64 = 2
	RoleIDEmployee int64 = 3
)

// Role is a job role employees are assigned to.
type Role struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Status      bool      `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// Skill types.
const (
	SkillRevit      = "REVIT"
	SkillVertex     = "VERTEX"
	SkillStrucsoft  = "STRUCSOFT"
	SkillFramecad   = "FRAMECAD"
	SkillScottsdale = "SCOTTSDALE"
	SkillMWF        = "MWF"
)

// SkillTypes lists valid skill types.
var SkillTypes = []string{SkillRevit, SkillVertex, SkillStrucsoft, SkillFramecad, SkillScottsdale, SkillMWF}

// Skill is a tool or discipline employees can be proficient in.
type Skill struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Type        string    `json:"type"`
	OrgID       int       `json:"org_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// Activity is a catalog entry for a kind of work (e.g. Framing, Detailing).
type Activity struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Status      bool      `json:"status"`
	OrgID       int       `json:"org_id"`
	CreatedAt   time.Time `json:"created_at"`
}
