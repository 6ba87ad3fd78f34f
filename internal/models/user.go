package models

import (
	"strings"
	"time"
)

type UserRole string

const (
	RoleAdmin           UserRole = "admin"
	RoleManager         UserRole = "manager"
	RoleEngineer        UserRole = "engineer"
	RoleBackendEngineer UserRole = "backend_engineer"
	RoleFieldEngineer   UserRole = "field_engineer"
)

// Valid reports whether r is a known role.
func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleEngineer, RoleBackendEngineer, RoleFieldEngineer:
		return true
	}
	return false
}

// IsSupervisor reports whether the role sees every task.
func (r UserRole) IsSupervisor() bool {
	return r == RoleAdmin || r == RoleManager
}

type User struct {
	ID           uint64    `gorm:"primarykey" json:"id"`
	Username     string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"username"`
	Email        string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"type:varchar(255);not null" json:"-"`
	FirstName    string    `gorm:"type:varchar(100)" json:"first_name"`
	LastName     string    `gorm:"type:varchar(100)" json:"last_name"`
	Phone        string    `gorm:"type:varchar(50)" json:"phone"`
	Role         UserRole  `gorm:"type:varchar(30);not null;default:'engineer';index" json:"role"`
	IsActive     bool      `gorm:"not null" json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// DisplayName returns "First Last", falling back to the username.
func (u User) DisplayName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Username
	}
	return name
}
