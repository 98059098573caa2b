package models

import "time"

// Client is a customer organization that owns projects. ID is a code such as CL001.
type Client struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Status      bool      `json:"status"`
	Street1     string    `json:"street1"`
	Street2     string    `json:"street2"`
	City        string    `json:"city"`
	State       string    `json:"state"`
	Country     string    `json:"country"`
	Zipcode     int64     `json:"zipcode"`
	ContactName string    `json:"contact_name"`
	Phone       *int64    `json:"phone"`
	Website     string    `json:"website"`
	Resource    string    `json:"resource"`
	OrgID       int       `json:"org_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
