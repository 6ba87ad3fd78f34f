package services

import (
	"github.com/wizone/it-support-api/internal/models"
	"github.com/wizone/it-support-api/internal/repository"
)

// Actor is the authenticated employee performing an operation.
type Actor struct {
	UserID uint64
	Role   models.UserRole
}

func (a Actor) id() *uint64 {
	id := a.UserID
	return &id
}

func (a Actor) viewer() *repository.Viewer {
	return &repository.Viewer{UserID: a.UserID, Role: a.Role}
}

// Visible reports whether the actor may see the task. It mirrors the
// database.VisibleTo predicate for single rows that are already loaded.
func Visible(actor Actor, task *models.Task) bool {
	if actor.Role.IsSupervisor() {
		return true
	}
	switch actor.Role {
	case models.RoleFieldEngineer:
		return isUser(task.FieldEngineerID, actor.UserID)
	case models.RoleEngineer, models.RoleBackendEngineer:
		if isUser(task.AssignedTo, actor.UserID) || isUser(task.FieldEngineerID, actor.UserID) {
			return true
		}
		return task.AssignedTo == nil && task.FieldEngineerID == nil
	default:
		return false
	}
}

func isUser(ref *uint64, userID uint64) bool {
	return ref != nil && *ref == userID
}
