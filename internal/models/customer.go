package models

import "time"

type Customer struct {
	ID                 uint64     `gorm:"primarykey" json:"id"`
	Name               string     `gorm:"type:varchar(255);not null" json:"name"`
	ContactPerson      string     `gorm:"type:varchar(255)" json:"contact_person"`
	Email              string     `gorm:"type:varchar(255);index" json:"email"`
	Phone              string     `gorm:"type:varchar(50)" json:"phone"`
	Address            string     `gorm:"type:text" json:"address"`
	City               string     `gorm:"type:varchar(100)" json:"city"`
	State              string     `gorm:"type:varchar(100)" json:"state"`
	ServicePlan        string     `gorm:"type:varchar(100)" json:"service_plan"`
	ConnectionID       string     `gorm:"type:varchar(100)" json:"connection_id"`
	IsActive           bool       `gorm:"not null" json:"is_active"`
	PortalUsername     *string    `gorm:"type:varchar(100);uniqueIndex" json:"portal_username"`
	PortalPasswordHash string     `gorm:"type:varchar(255)" json:"-"`
	PortalAccess       bool       `gorm:"not null;default:false" json:"portal_access"`
	PortalLastLogin    *time.Time `json:"portal_last_login"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}
