package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/wizone/it-support-api/internal/models"
)

func setupSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Customer{}, &models.Task{}, &models.TaskUpdate{}))
	return db
}

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	return db, mock
}

func seedTask(t *testing.T, db *gorm.DB, repo TaskRepository, ticket string, status models.TaskStatus) *models.Task {
	t.Helper()
	var customer models.Customer
	if err := db.First(&customer).Error; err != nil {
		customer = models.Customer{Name: "Acme", IsActive: true}
		require.NoError(t, db.Create(&customer).Error)
	}

	task := &models.Task{
		TicketNumber: ticket,
		CustomerID:   customer.ID,
		Title:        "Link down",
		Priority:     models.PriorityHigh,
		Status:       status,
		Version:      1,
	}
	require.NoError(t, repo.Create(context.Background(), task, models.TaskUpdate{
		ActorType:  models.ActorSystem,
		UpdateType: models.UpdateTypeCreated,
	}))
	return task
}

func TestUpdateLocked_LocksRowForUpdate(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewTaskRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "tasks" WHERE "tasks"."id" = \$1 .*FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "ticket_number", "status", "version"}).
			AddRow(1, "WZ-1", "open", 3))
	mock.ExpectRollback()

	stale := uint64(2)
	_, err := repo.UpdateLocked(context.Background(), 1, &stale, func(*models.Task) ([]models.TaskUpdate, error) {
		t.Fatal("mutation must not run on a stale version")
		return nil, nil
	})
	assert.ErrorIs(t, err, ErrVersionConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateLocked_ConcurrentWriteRollsBack(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewTaskRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "tasks" .*FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "ticket_number", "status", "version"}).
			AddRow(1, "WZ-1", "open", 3))
	mock.ExpectExec(`UPDATE "tasks" SET .* WHERE .*version = `).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := repo.UpdateLocked(context.Background(), 1, nil, func(task *models.Task) ([]models.TaskUpdate, error) {
		task.Status = models.TaskStatusInProgress
		return []models.TaskUpdate{{ActorType: models.ActorSystem, UpdateType: models.UpdateTypeStatusChange}}, nil
	})
	assert.ErrorIs(t, err, ErrVersionConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateLocked_BumpsVersionAndAppendsUpdates(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewTaskRepository(db)
	updates := NewTaskUpdateRepository(db)
	task := seedTask(t, db, repo, "WZ-1", models.TaskStatusOpen)

	version := uint64(1)
	updated, err := repo.UpdateLocked(context.Background(), task.ID, &version, func(task *models.Task) ([]models.TaskUpdate, error) {
		task.Status = models.TaskStatusInProgress
		return []models.TaskUpdate{{ActorType: models.ActorSystem, UpdateType: models.UpdateTypeStatusChange}}, nil
	})
	require.NoError(t, err)
	assert.EqualValues(t, 2, updated.Version)

	stored, err := repo.FindByID(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusInProgress, stored.Status)
	assert.EqualValues(t, 2, stored.Version)
	assert.Equal(t, "WZ-1", stored.TicketNumber)

	trail, err := updates.ListByTask(context.Background(), task.ID)
	require.NoError(t, err)
	require.Len(t, trail, 2)
	assert.Equal(t, models.UpdateTypeCreated, trail[0].UpdateType)
	assert.Equal(t, models.UpdateTypeStatusChange, trail[1].UpdateType)
}

func TestUpdateLocked_MutationErrorWritesNothing(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewTaskRepository(db)
	task := seedTask(t, db, repo, "WZ-1", models.TaskStatusOpen)

	boom := errors.New("boom")
	_, err := repo.UpdateLocked(context.Background(), task.ID, nil, func(task *models.Task) ([]models.TaskUpdate, error) {
		task.Status = models.TaskStatusCancelled
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)

	stored, err := repo.FindByID(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusOpen, stored.Status)
	assert.EqualValues(t, 1, stored.Version)

	_, err = repo.UpdateLocked(context.Background(), 9999, nil, func(*models.Task) ([]models.TaskUpdate, error) { return nil, nil })
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestCreate_DuplicateTicketNumber(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewTaskRepository(db)
	first := seedTask(t, db, repo, "WZ-1", models.TaskStatusOpen)

	dup := &models.Task{TicketNumber: "WZ-1", CustomerID: first.CustomerID, Title: "x", Priority: models.PriorityLow, Status: models.TaskStatusOpen, Version: 1}
	err := repo.Create(context.Background(), dup)
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestDelete_RemovesTrail(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewTaskRepository(db)
	task := seedTask(t, db, repo, "WZ-1", models.TaskStatusOpen)

	require.NoError(t, repo.Delete(context.Background(), task.ID))

	var count int64
	require.NoError(t, db.Model(&models.TaskUpdate{}).Where("task_id = ?", task.ID).Count(&count).Error)
	assert.Zero(t, count)

	assert.ErrorIs(t, repo.Delete(context.Background(), task.ID), gorm.ErrRecordNotFound)
}

func TestListAndCountByStatus(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewTaskRepository(db)
	seedTask(t, db, repo, "WZ-1", models.TaskStatusOpen)
	seedTask(t, db, repo, "WZ-2", models.TaskStatusOpen)
	seedTask(t, db, repo, "WZ-3", models.TaskStatusResolved)

	open := models.TaskStatusOpen
	tasks, total, err := repo.List(context.Background(), TaskFilter{Status: &open, Page: 1, PageSize: 1})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, tasks, 1)
	assert.Equal(t, "Acme", tasks[0].Customer.Name)

	counts, err := repo.CountByStatus(context.Background(), &Viewer{UserID: 1, Role: models.RoleAdmin})
	require.NoError(t, err)
	assert.EqualValues(t, 2, counts[models.TaskStatusOpen])
	assert.EqualValues(t, 1, counts[models.TaskStatusResolved])

	counts, err = repo.CountByStatus(context.Background(), &Viewer{UserID: 1, Role: models.RoleFieldEngineer})
	require.NoError(t, err)
	assert.Empty(t, counts)
}

func TestListAutoCompleteDue(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewTaskRepository(db)
	now := time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)

	due := seedTask(t, db, repo, "WZ-1", models.TaskStatusResolved)
	notYet := seedTask(t, db, repo, "WZ-2", models.TaskStatusResolved)
	reopened := seedTask(t, db, repo, "WZ-3", models.TaskStatusInProgress)

	setDue := func(id uint64, at time.Time) {
		require.NoError(t, db.Model(&models.Task{}).Where("id = ?", id).Update("auto_complete_at", at).Error)
	}
	setDue(due.ID, now.Add(-time.Minute))
	setDue(notYet.ID, now.Add(time.Minute))
	setDue(reopened.ID, now.Add(-time.Hour))

	ids, err := repo.ListAutoCompleteDue(context.Background(), now, 10)
	require.NoError(t, err)
	assert.Equal(t, []uint64{due.ID}, ids)
}
