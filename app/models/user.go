package models

import (
	"time"
)

// UserRole represents what a staff account is allowed to do
type UserRole string

const (
	RoleManager  UserRole = "manager"
	RoleEmployee UserRole = "employee"
)

// Valid reports whether r is a known role
func (r UserRole) Valid() bool {
	switch r {
	case RoleManager, RoleEmployee:
		return true
	}
	return false
}

// Label returns the display name of the role
func (r UserRole) Label() string {
	switch r {
	case RoleManager:
		return "Manager"
	case RoleEmployee:
		return "Employé"
	}
	return "Inconnu"
}

// User is a staff account; it is the actor recorded on ledger and expense rows
type User struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Username    string     `gorm:"size:150;not null;uniqueIndex" json:"username"`
	Password    string     `gorm:"not null" json:"-"` // bcrypt hash
	FullName    string     `gorm:"size:150" json:"full_name"`
	Phone       string     `gorm:"size:15" json:"phone"`
	Role        UserRole   `gorm:"size:10;not null" json:"role"`
	IsActive    bool       `gorm:"default:true" json:"is_active"`
	CreatedByID *uint      `json:"created_by_id,omitempty"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (u *User) IsManager() bool {
	return u.Role == RoleManager
}

func (u *User) CanManageUsers() bool {
	return u.IsManager()
}

func (u *User) CanManageProducts() bool {
	return u.IsManager()
}

func (u *User) CanManageReplenishment() bool {
	return u.IsManager()
}

func (u *User) CanViewAnalytics() bool {
	return u.IsManager()
}
