package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/wizone/it-support-api/internal/events"
	"github.com/wizone/it-support-api/internal/models"
	"github.com/wizone/it-support-api/internal/repository"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type serviceTestEnv struct {
	db         *gorm.DB
	clock      *testClock
	dispatcher *events.InMemoryDispatcher
	deps       TaskServiceDeps
	tasks      *TaskService
	assign     *AssignmentService
	audit      *AuditService
	customer   *models.Customer
}

func setupServiceTestEnv(t *testing.T) serviceTestEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		sqlDB.Close()
	})

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Customer{},
		&models.Task{},
		&models.TaskUpdate{},
	))

	clock := &testClock{now: time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)}
	dispatcher := events.NewInMemoryDispatcher(nil)

	deps := TaskServiceDeps{
		Tasks:             repository.NewTaskRepository(db),
		Updates:           repository.NewTaskUpdateRepository(db),
		Users:             repository.NewUserRepository(db),
		Customers:         repository.NewCustomerRepository(db),
		Dispatcher:        dispatcher,
		AutoCompleteDelay: 5 * time.Minute,
		Now:               clock.Now,
	}
	tasks := NewTaskService(deps)

	customer := &models.Customer{Name: "Acme Corp", ContactPerson: "Ravi", Phone: "555-0100", IsActive: true}
	require.NoError(t, db.Create(customer).Error)

	return serviceTestEnv{
		db:         db,
		clock:      clock,
		dispatcher: dispatcher,
		deps:       deps,
		tasks:      tasks,
		assign:     NewAssignmentService(tasks),
		audit:      NewAuditService(deps.Tasks, deps.Updates),
		customer:   customer,
	}
}

func (env serviceTestEnv) createUser(t *testing.T, username string, role models.UserRole) Actor {
	t.Helper()
	user := &models.User{
		Username:     username,
		Email:        fmt.Sprintf("%s@wizone.test", username),
		PasswordHash: "x",
		FirstName:    username,
		LastName:     "Tester",
		Role:         role,
		IsActive:     true,
	}
	require.NoError(t, env.db.Create(user).Error)
	return Actor{UserID: user.ID, Role: role}
}

func (env serviceTestEnv) createTask(t *testing.T, actor Actor, title string) *models.Task {
	t.Helper()
	task, err := env.tasks.CreateTask(context.Background(), CreateTaskInput{
		CustomerID: env.customer.ID,
		Title:      title,
		Status:     string(models.TaskStatusPending),
	}, actor)
	require.NoError(t, err)
	return task
}

func (env serviceTestEnv) updatesOfType(t *testing.T, taskID uint64, updateType models.UpdateType) []models.TaskUpdate {
	t.Helper()
	all, err := env.audit.History(context.Background(), taskID)
	require.NoError(t, err)

	var out []models.TaskUpdate
	for _, u := range all {
		if u.UpdateType == updateType {
			out = append(out, u)
		}
	}
	return out
}

func strp(s string) *string { return &s }
