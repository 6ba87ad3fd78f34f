package repository

import (
	"context"

	"github.com/wizone/it-support-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormTaskUpdateRepository is a GORM implementation of TaskUpdateRepository
type GormTaskUpdateRepository struct {
	db *gorm.DB
}

// NewTaskUpdateRepository creates a new TaskUpdateRepository
func NewTaskUpdateRepository(db *gorm.DB) TaskUpdateRepository {
	return &GormTaskUpdateRepository{db: db}
}

// Create appends one audit entry
func (r *GormTaskUpdateRepository) Create(ctx context.Context, update *models.TaskUpdate) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(update).Error
}

// ListByTask returns the trail of a task in creation order
func (r *GormTaskUpdateRepository) ListByTask(ctx context.Context, taskID uint64) ([]models.TaskUpdate, error) {
	var updates []models.TaskUpdate
	err := r.db.WithContext(ctx).
		Preload("Actor").
		Where("task_id = ?", taskID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&updates).Error
	if err != nil {
		return nil, err
	}
	return updates, nil
}
