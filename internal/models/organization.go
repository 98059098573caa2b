package models

import "time"

// DefaultOrganizationID is the id of the single organization row.
const DefaultOrganizationID = 1

// Organization is the singleton company profile.
type Organization struct {
	ID          int       `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Address1    string    `json:"address_1"`
	City        string    `json:"city"`
	State       string    `json:"state"`
	Country     string    `json:"country"`
	ZipCode     int       `json:"zip_code"`
	ContactName string    `json:"contact_name"`
	Phone       string    `json:"phone"`
	Email       string    `json:"email"`
	Website     string    `json:"website"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// DefaultOrganization is inserted when the organization row is missing.
func DefaultOrganization() Organization {
	return Organization{
		ID:          DefaultOrganizationID,
		Name:        "Default Organization",
		Description: "Default organization for the system",
		Address1:    "123 Main St",
		City:        "City",
		State:       "State",
		Country:     "Country",
		ZipCode:     12345,
		ContactName: "Admin",
	}
}
