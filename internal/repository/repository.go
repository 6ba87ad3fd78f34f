package repository

import (
	"context"
	"time"

	"github.com/wizone/it-support-api/internal/models"
)

// TaskMutation mutates a locked task in place and returns the audit
// entries to append in the same transaction.
type TaskMutation func(task *models.Task) ([]models.TaskUpdate, error)

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	// Create inserts a task together with its initial audit entries
	Create(ctx context.Context, task *models.Task, updates ...models.TaskUpdate) error

	// FindByID finds a task by ID with optional preloading
	FindByID(ctx context.Context, id uint64, preload ...string) (*models.Task, error)

	// List retrieves tasks with filtering and pagination
	List(ctx context.Context, filter TaskFilter) ([]models.Task, int64, error)

	// CountByStatus counts tasks per status for the given viewer
	CountByStatus(ctx context.Context, viewer *Viewer) (map[models.TaskStatus]int64, error)

	// UpdateLocked runs a read-modify-write on one task inside a transaction.
	// The row is read with SELECT ... FOR UPDATE and written back only if its
	// version is unchanged. A non-nil expectedVersion must match the stored one.
	UpdateLocked(ctx context.Context, id uint64, expectedVersion *uint64, mutate TaskMutation) (*models.Task, error)

	// Delete removes a task and all of its audit entries
	Delete(ctx context.Context, id uint64) error

	// ListAutoCompleteDue returns resolved tasks whose deferred close is due
	ListAutoCompleteDue(ctx context.Context, now time.Time, limit int) ([]uint64, error)
}

// TaskFilter holds filtering options for listing tasks
type TaskFilter struct {
	Viewer     *Viewer
	Status     *models.TaskStatus
	Priority   *models.TaskPriority
	CustomerID *uint64
	Page       int
	PageSize   int
}

// Viewer narrows task queries to what a user may see.
type Viewer struct {
	UserID uint64
	Role   models.UserRole
}

// TaskUpdateRepository defines the interface for the append-only audit trail
type TaskUpdateRepository interface {
	// Create appends one audit entry
	Create(ctx context.Context, update *models.TaskUpdate) error

	// ListByTask returns the trail of a task in creation order
	ListByTask(ctx context.Context, taskID uint64) ([]models.TaskUpdate, error)
}

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user
	Create(ctx context.Context, user *models.User) error

	// FindByID finds a user by ID
	FindByID(ctx context.Context, id uint64) (*models.User, error)

	// FindByUsername finds a user by username
	FindByUsername(ctx context.Context, username string) (*models.User, error)

	// ExistsByUsernameOrEmail reports whether either value is already taken
	ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error)

	// List lists users, optionally by role and active flag
	List(ctx context.Context, filter UserFilter) ([]models.User, error)
}

// UserFilter holds filtering options for listing users
type UserFilter struct {
	Role       *models.UserRole
	ActiveOnly bool
}

// CustomerRepository defines the interface for customer data access
type CustomerRepository interface {
	// Create creates a new customer
	Create(ctx context.Context, customer *models.Customer) error

	// FindByID finds a customer by ID
	FindByID(ctx context.Context, id uint64) (*models.Customer, error)

	// FindByPortalUsername finds a customer by portal login
	FindByPortalUsername(ctx context.Context, username string) (*models.Customer, error)

	// List retrieves customers matching an optional search term
	List(ctx context.Context, search string, page, pageSize int) ([]models.Customer, int64, error)

	// Update saves all customer fields
	Update(ctx context.Context, customer *models.Customer) error
}
