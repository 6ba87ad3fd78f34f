package database

import (
	"gorm.io/gorm"

	"github.com/wizone/it-support-api/internal/models"
	"github.com/wizone/it-support-api/internal/utils"
)

// Paginate applies pagination to a GORM query
func Paginate(params utils.PaginationParams) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Offset(params.Offset).Limit(params.Limit)
	}
}

// VisibleTo restricts a tasks query to the rows a user with the given role may see.
func VisibleTo(role models.UserRole, userID uint64) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if role.IsSupervisor() {
			return db
		}
		switch role {
		case models.RoleFieldEngineer:
			return db.Where("tasks.field_engineer_id = ?", userID)
		case models.RoleEngineer, models.RoleBackendEngineer:
			return db.Where(
				"(tasks.assigned_to = ? OR tasks.field_engineer_id = ? OR (tasks.assigned_to IS NULL AND tasks.field_engineer_id IS NULL))",
				userID, userID,
			)
		default:
			return db.Where("1 = 0")
		}
	}
}
