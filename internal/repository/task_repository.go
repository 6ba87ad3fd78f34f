package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/wizone/it-support-api/internal/database"
	"github.com/wizone/it-support-api/internal/models"
	"github.com/wizone/it-support-api/internal/utils"
)

// GormTaskRepository is a GORM implementation of TaskRepository
type GormTaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &GormTaskRepository{db: db}
}

// Create inserts a task and its initial audit entries in one transaction
func (r *GormTaskRepository) Create(ctx context.Context, task *models.Task, updates ...models.TaskUpdate) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(task).Error; err != nil {
			return err
		}
		return insertUpdates(tx, task.ID, updates)
	})
	return translate(err)
}

// FindByID finds a task by ID with optional preloading
func (r *GormTaskRepository) FindByID(ctx context.Context, id uint64, preload ...string) (*models.Task, error) {
	var task models.Task
	query := r.db.WithContext(ctx)

	for _, p := range preload {
		query = query.Preload(p)
	}

	if err := query.First(&task, id).Error; err != nil {
		return nil, err
	}

	return &task, nil
}

// List retrieves tasks with filtering and pagination
func (r *GormTaskRepository) List(ctx context.Context, filter TaskFilter) ([]models.Task, int64, error) {
	var tasks []models.Task

	query := r.db.WithContext(ctx).Model(&models.Task{})

	if filter.Viewer != nil {
		query = query.Scopes(database.VisibleTo(filter.Viewer.Role, filter.Viewer.UserID))
	}
	if filter.Status != nil {
		query = query.Where("tasks.status = ?", *filter.Status)
	}
	if filter.Priority != nil {
		query = query.Where("tasks.priority = ?", *filter.Priority)
	}
	if filter.CustomerID != nil {
		query = query.Where("tasks.customer_id = ?", *filter.CustomerID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	listQuery := query.Order("tasks.created_at DESC").Order("tasks.id DESC")
	if filter.Page > 0 && filter.PageSize > 0 {
		listQuery = listQuery.Scopes(database.Paginate(utils.NewPaginationParams(filter.Page, filter.PageSize)))
	}

	if err := listQuery.Preload("Customer").Find(&tasks).Error; err != nil {
		return nil, 0, err
	}

	return tasks, total, nil
}

// CountByStatus counts the viewer's tasks grouped by status
func (r *GormTaskRepository) CountByStatus(ctx context.Context, viewer *Viewer) (map[models.TaskStatus]int64, error) {
	type row struct {
		Status models.TaskStatus
		Count  int64
	}

	query := r.db.WithContext(ctx).Model(&models.Task{})
	if viewer != nil {
		query = query.Scopes(database.VisibleTo(viewer.Role, viewer.UserID))
	}

	var rows []row
	if err := query.Select("tasks.status AS status, COUNT(*) AS count").Group("tasks.status").Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[models.TaskStatus]int64, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.Count
	}
	return counts, nil
}

// UpdateLocked performs a locked, version-checked read-modify-write
func (r *GormTaskRepository) UpdateLocked(ctx context.Context, id uint64, expectedVersion *uint64, mutate TaskMutation) (*models.Task, error) {
	var task models.Task

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&task, id).Error; err != nil {
			return err
		}
		if expectedVersion != nil && *expectedVersion != task.Version {
			return ErrVersionConflict
		}

		updates, err := mutate(&task)
		if err != nil {
			return err
		}

		readVersion := task.Version
		task.Version = readVersion + 1
		task.UpdatedAt = time.Now()

		result := tx.Model(&task).
			Where("version = ?", readVersion).
			Select("*").
			Omit("id", "ticket_number", "created_at", clause.Associations).
			Updates(&task)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrVersionConflict
		}

		return insertUpdates(tx, task.ID, updates)
	})
	if err != nil {
		return nil, translate(err)
	}

	return &task, nil
}

// Delete removes a task and its audit trail in a transaction
func (r *GormTaskRepository) Delete(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", id).Delete(&models.TaskUpdate{}).Error; err != nil {
			return err
		}

		result := tx.Delete(&models.Task{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// ListAutoCompleteDue returns IDs of resolved tasks whose auto-complete time has passed
func (r *GormTaskRepository) ListAutoCompleteDue(ctx context.Context, now time.Time, limit int) ([]uint64, error) {
	var ids []uint64
	err := r.db.WithContext(ctx).
		Model(&models.Task{}).
		Where("status = ? AND auto_complete_at IS NOT NULL AND auto_complete_at <= ?", models.TaskStatusResolved, now).
		Order("auto_complete_at ASC").
		Limit(limit).
		Pluck("id", &ids).Error
	return ids, err
}

func insertUpdates(tx *gorm.DB, taskID uint64, updates []models.TaskUpdate) error {
	for i := range updates {
		updates[i].TaskID = taskID
		if err := tx.Omit(clause.Associations).Create(&updates[i]).Error; err != nil {
			return err
		}
	}
	return nil
}
