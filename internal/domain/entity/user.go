package entity

import "time"

// Location is a geocoded address
type Location struct {
	Address   string  `json:"address"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// User is a collaborator, approver or administrator.
// Users are never hard-deleted; RemovedAt marks soft removal.
type User struct {
	ID                string     `json:"id"`
	LastName          string     `json:"last_name"`
	FirstName         string     `json:"first_name"`
	Email             string     `json:"email"`
	Role              Role       `json:"role"`
	Entity            string     `json:"entity,omitempty"`
	Unit              string     `json:"unit,omitempty"`
	HasFixedAllowance bool       `json:"has_fixed_allowance"`
	AdminGrantedBy    string     `json:"admin_granted_by,omitempty"`
	AdminSince        *time.Time `json:"admin_since,omitempty"`
	Workplace         *Location  `json:"workplace,omitempty"`
	Home              *Location  `json:"home,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
	RemovedAt         *time.Time `json:"removed_at,omitempty"`
}

// FullName returns "FirstName LastName"
func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// IsRemoved returns true once the user has been soft-removed
func (u *User) IsRemoved() bool {
	return u.RemovedAt != nil
}
