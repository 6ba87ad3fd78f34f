package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/wizone/it-support-api/internal/constants"
	"github.com/wizone/it-support-api/internal/events"
	"github.com/wizone/it-support-api/internal/models"
	"github.com/wizone/it-support-api/internal/repository"
	"github.com/wizone/it-support-api/internal/utils"
)

var (
	ErrTaskNotFound         = errors.New("task not found")
	ErrCustomerNotFound     = errors.New("customer not found")
	ErrAssigneeNotFound     = errors.New("assignee not found")
	ErrTitleRequired        = errors.New("title is required")
	ErrTitleEmpty           = errors.New("title cannot be empty")
	ErrInvalidPriority      = errors.New("priority must be one of low, medium, high, critical")
	ErrInvalidInitialStatus = errors.New("a new task must start as pending or open")
	ErrInvalidEstimate      = errors.New("estimated time must not be negative")
	ErrVersionConflict      = errors.New("task was modified by someone else")
	ErrTaskClosed           = errors.New("task is closed")
	ErrTaskAlreadyCompleted = errors.New("task is already completed")
)

const maxTicketNumberAttempts = 3

// taskPreloads are the relations returned with a single task.
var taskPreloads = []string{"Customer", "Assignee", "FieldEngineer"}

// TaskServiceDeps bundles the collaborators of TaskService.
type TaskServiceDeps struct {
	Tasks      repository.TaskRepository
	Updates    repository.TaskUpdateRepository
	Users      repository.UserRepository
	Customers  repository.CustomerRepository
	Dispatcher events.Dispatcher
	Logger     *zap.Logger

	// AutoCompleteDelay is how long a task resolved by a field engineer
	// stays resolved before it is closed automatically.
	AutoCompleteDelay time.Duration

	// Now overrides the clock in tests.
	Now func() time.Time
}

// TaskService handles task business logic
type TaskService struct {
	tasks             repository.TaskRepository
	audit             *AuditService
	users             repository.UserRepository
	customers         repository.CustomerRepository
	dispatcher        events.Dispatcher
	logger            *zap.Logger
	autoCompleteDelay time.Duration
	now               func() time.Time
}

// NewTaskService creates a new TaskService
func NewTaskService(deps TaskServiceDeps) *TaskService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	delay := deps.AutoCompleteDelay
	if delay <= 0 {
		delay = constants.DefaultAutoCompleteDelay
	}
	return &TaskService{
		tasks:             deps.Tasks,
		audit:             NewAuditService(deps.Tasks, deps.Updates),
		users:             deps.Users,
		customers:         deps.Customers,
		dispatcher:        deps.Dispatcher,
		logger:            logger,
		autoCompleteDelay: delay,
		now:               now,
	}
}

// CreateTaskInput represents input for creating a task
type CreateTaskInput struct {
	CustomerID    uint64
	Title         string
	Description   string
	Priority      string
	IssueType     string
	Status        string
	AssignedTo    *uint64
	ContactPerson string
	ContactPhone  string
	EstimatedTime *int
}

// ListTasksInput represents filters for listing tasks
type ListTasksInput struct {
	Status     string
	Priority   string
	CustomerID *uint64
	Page       int
	PageSize   int
}

// UpdateTaskInput represents input for updating a task. Nil fields are left unchanged.
type UpdateTaskInput struct {
	Title         *string
	Description   *string
	Priority      *string
	IssueType     *string
	ContactPerson *string
	ContactPhone  *string
	EstimatedTime *int
	Status        *string
	AssignedTo    *uint64
	Unassign      bool
	Note          string
	Attachments   []string

	// Version, when set, must equal the stored version.
	Version *uint64
}

// CreateTask creates a task on behalf of an employee
func (s *TaskService) CreateTask(ctx context.Context, input CreateTaskInput, actor Actor) (*models.Task, error) {
	task, err := s.newTask(ctx, input)
	if err != nil {
		return nil, err
	}
	task.CreatedBy = actor.id()

	if input.AssignedTo != nil {
		if _, err := s.activeUser(ctx, *input.AssignedTo); err != nil {
			return nil, err
		}
		task.AssignedTo = input.AssignedTo
	}

	created := userEntry(actor, models.UpdateTypeCreated, nil, strPtr(string(task.Status)), "Task created")
	if err := s.insert(ctx, task, created); err != nil {
		return nil, err
	}

	s.publish(ctx, events.New(events.EventTaskCreated, task, events.Actor{Type: models.ActorUser, UserID: actor.id()},
		events.TaskCreatedPayload{CustomerID: task.CustomerID, Priority: task.Priority, Title: task.Title}))

	return s.reload(ctx, task.ID)
}

// CreatePortalTask creates a task raised by a customer through the portal
func (s *TaskService) CreatePortalTask(ctx context.Context, customerID uint64, input CreateTaskInput) (*models.Task, error) {
	input.CustomerID = customerID
	input.Status = string(models.TaskStatusOpen)
	input.AssignedTo = nil

	task, err := s.newTask(ctx, input)
	if err != nil {
		return nil, err
	}

	created := models.TaskUpdate{
		ActorType:  models.ActorCustomer,
		UpdateType: models.UpdateTypeCreated,
		NewValue:   strPtr(string(task.Status)),
		Note:       "Task created from customer portal",
	}
	if err := s.insert(ctx, task, created); err != nil {
		return nil, err
	}

	cid := customerID
	s.publish(ctx, events.New(events.EventTaskCreated, task, events.Actor{Type: models.ActorCustomer, CustomerID: &cid},
		events.TaskCreatedPayload{CustomerID: task.CustomerID, Priority: task.Priority, Title: task.Title}))

	return s.reload(ctx, task.ID)
}

// ListTasks returns the tasks visible to the actor
func (s *TaskService) ListTasks(ctx context.Context, input ListTasksInput, actor Actor) ([]models.Task, int64, error) {
	filter := repository.TaskFilter{
		Viewer:     actor.viewer(),
		CustomerID: input.CustomerID,
		Page:       input.Page,
		PageSize:   input.PageSize,
	}

	if input.Status != "" {
		status, err := models.ParseTaskStatus(input.Status)
		if err != nil {
			return nil, 0, err
		}
		filter.Status = &status
	}
	if input.Priority != "" {
		priority := models.TaskPriority(strings.ToLower(strings.TrimSpace(input.Priority)))
		if !priority.Valid() {
			return nil, 0, ErrInvalidPriority
		}
		filter.Priority = &priority
	}

	tasks, total, err := s.tasks.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, total, nil
}

// ListCustomerTasks returns every task owned by a customer
func (s *TaskService) ListCustomerTasks(ctx context.Context, customerID uint64, page, pageSize int) ([]models.Task, int64, error) {
	tasks, total, err := s.tasks.List(ctx, repository.TaskFilter{
		CustomerID: &customerID,
		Page:       page,
		PageSize:   pageSize,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list customer tasks: %w", err)
	}
	return tasks, total, nil
}

// GetTask returns a visible task, applying a due auto-close first
func (s *TaskService) GetTask(ctx context.Context, taskID uint64, actor Actor) (*models.Task, error) {
	task, err := s.findTask(ctx, taskID, taskPreloads...)
	if err != nil {
		return nil, err
	}
	if !Visible(actor, task) {
		return nil, ErrTaskNotFound
	}

	if task.AutoCompleteDue(s.now()) {
		if _, err := s.CompleteIfDue(ctx, task.ID); err != nil {
			return nil, err
		}
		return s.reload(ctx, task.ID)
	}

	return task, nil
}

// UpdateTask applies field edits, an optional assignment and an optional
// status change in one locked transaction.
func (s *TaskService) UpdateTask(ctx context.Context, taskID uint64, input UpdateTaskInput, actor Actor) (*models.Task, error) {
	note, err := validateNote(input.Note, input.Attachments)
	if err != nil {
		return nil, err
	}

	var target *models.TaskStatus
	if input.Status != nil {
		status, err := models.ParseTaskStatus(*input.Status)
		if err != nil {
			return nil, err
		}
		target = &status
	}

	var priority *models.TaskPriority
	if input.Priority != nil {
		p := models.TaskPriority(strings.ToLower(strings.TrimSpace(*input.Priority)))
		if !p.Valid() {
			return nil, ErrInvalidPriority
		}
		priority = &p
	}
	if input.Title != nil && strings.TrimSpace(*input.Title) == "" {
		return nil, ErrTitleEmpty
	}
	if input.EstimatedTime != nil && *input.EstimatedTime < 0 {
		return nil, ErrInvalidEstimate
	}
	var assignee *models.User
	if input.AssignedTo != nil && !input.Unassign {
		if assignee, err = s.activeUser(ctx, *input.AssignedTo); err != nil {
			return nil, err
		}
	}

	var (
		oldStatus     models.TaskStatus
		statusChanged bool
		assignChanged bool
	)

	task, err := s.tasks.UpdateLocked(ctx, taskID, input.Version, func(task *models.Task) ([]models.TaskUpdate, error) {
		if !Visible(actor, task) {
			return nil, ErrTaskNotFound
		}

		var entries []models.TaskUpdate
		edited := applyEdits(task, input, priority)

		if input.Unassign || input.AssignedTo != nil {
			newAssignee := input.AssignedTo
			if input.Unassign {
				newAssignee = nil
			}
			if !sameRef(task.AssignedTo, newAssignee) {
				entries = append(entries, userEntry(actor, models.UpdateTypeAssignment,
					idPtrString(task.AssignedTo), idPtrString(newAssignee), assignmentNote(assignee)))
				task.AssignedTo = newAssignee
				assignChanged = true
			}
		}

		oldStatus = task.Status
		if target != nil {
			changed, err := models.ApplyTransition(task, models.Transition{
				To:                *target,
				Note:              note,
				ActorID:           actor.id(),
				ActorRole:         actor.Role,
				Now:               s.now(),
				AutoCompleteDelay: s.autoCompleteDelay,
			})
			if err != nil {
				return nil, err
			}
			statusChanged = changed
		}

		switch {
		case statusChanged:
			entries = append(entries, statusEntry(actor, oldStatus, task.Status, note))
		case note != "":
			entries = append(entries, userEntry(actor, models.UpdateTypeNoteAdded, nil, nil, note))
		case !assignChanged && len(input.Attachments) == 0:
			msg := detailsUpdatedNote
			if !edited {
				msg = "Task saved without changes"
			}
			entries = append(entries, userEntry(actor, models.UpdateTypeNoteAdded, nil, nil, msg))
		}

		if len(input.Attachments) > 0 {
			entry, err := attachmentEntry(actor, input.Attachments)
			if err != nil {
				return nil, err
			}
			entries = append(entries, entry)
		}

		return entries, nil
	})
	if err != nil {
		return nil, s.mutationError(err)
	}

	userActor := events.Actor{Type: models.ActorUser, UserID: actor.id()}
	if assignChanged {
		s.publish(ctx, events.New(events.EventTaskAssigned, task, userActor,
			events.TaskAssignedPayload{AssignedTo: task.AssignedTo, FieldEngineerID: task.FieldEngineerID}))
	}
	if statusChanged {
		s.publishStatusChange(ctx, task, userActor, oldStatus, note, false)
	}

	return s.reload(ctx, task.ID)
}

// DeleteTask removes a task and its audit trail
func (s *TaskService) DeleteTask(ctx context.Context, taskID uint64) error {
	if err := s.tasks.Delete(ctx, taskID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTaskNotFound
		}
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return nil
}

// AddNote appends a note and optional attachments without touching the task row
func (s *TaskService) AddNote(ctx context.Context, taskID uint64, note string, attachments []string, actor Actor) ([]models.TaskUpdate, error) {
	note, err := validateNote(note, attachments)
	if err != nil {
		return nil, err
	}
	if note == "" && len(attachments) == 0 {
		return nil, ErrEmptyUpdate
	}

	task, err := s.findTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !Visible(actor, task) {
		return nil, ErrTaskNotFound
	}

	var entries []models.TaskUpdate
	if note != "" {
		entries = append(entries, userEntry(actor, models.UpdateTypeNoteAdded, nil, nil, note))
	}
	if len(attachments) > 0 {
		entry, err := attachmentEntry(actor, attachments)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	for i := range entries {
		entries[i].TaskID = task.ID
		if err := s.audit.Record(ctx, &entries[i]); err != nil {
			return nil, err
		}
	}
	return entries, nil
}

// TaskHistory returns the audit trail of a task visible to the actor
func (s *TaskService) TaskHistory(ctx context.Context, taskID uint64, actor Actor) ([]models.TaskUpdate, error) {
	task, err := s.findTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !Visible(actor, task) {
		return nil, ErrTaskNotFound
	}
	return s.history(ctx, task.ID)
}

// CustomerTaskHistory returns the audit trail of a task owned by the customer
func (s *TaskService) CustomerTaskHistory(ctx context.Context, customerID, taskID uint64) ([]models.TaskUpdate, error) {
	task, err := s.findTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.CustomerID != customerID {
		return nil, ErrTaskNotFound
	}
	return s.history(ctx, task.ID)
}

// TaskStats counts the actor's visible tasks per status
func (s *TaskService) TaskStats(ctx context.Context, actor Actor) (map[models.TaskStatus]int64, int64, error) {
	counts, err := s.tasks.CountByStatus(ctx, actor.viewer())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count tasks: %w", err)
	}
	var total int64
	for _, n := range counts {
		total += n
	}
	return counts, total, nil
}

func (s *TaskService) newTask(ctx context.Context, input CreateTaskInput) (*models.Task, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}

	priority := models.PriorityMedium
	if p := strings.TrimSpace(input.Priority); p != "" {
		priority = models.TaskPriority(strings.ToLower(p))
		if !priority.Valid() {
			return nil, ErrInvalidPriority
		}
	}

	status := models.TaskStatusPending
	if input.Status != "" {
		parsed, err := models.ParseTaskStatus(input.Status)
		if err != nil {
			return nil, err
		}
		if parsed != models.TaskStatusPending && parsed != models.TaskStatusOpen {
			return nil, ErrInvalidInitialStatus
		}
		status = parsed
	}

	if input.EstimatedTime != nil && *input.EstimatedTime < 0 {
		return nil, ErrInvalidEstimate
	}

	customer, err := s.customers.FindByID(ctx, input.CustomerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCustomerNotFound
		}
		return nil, fmt.Errorf("failed to find customer: %w", err)
	}

	contactPerson := strings.TrimSpace(input.ContactPerson)
	if contactPerson == "" {
		contactPerson = customer.ContactPerson
	}
	contactPhone := strings.TrimSpace(input.ContactPhone)
	if contactPhone == "" {
		contactPhone = customer.Phone
	}

	return &models.Task{
		CustomerID:    customer.ID,
		Title:         title,
		Description:   strings.TrimSpace(input.Description),
		Priority:      priority,
		IssueType:     strings.TrimSpace(input.IssueType),
		Status:        status,
		ContactPerson: contactPerson,
		ContactPhone:  contactPhone,
		EstimatedTime: input.EstimatedTime,
		Version:       1,
	}, nil
}

// insert stores the task, retrying with a fresh ticket number on collision.
func (s *TaskService) insert(ctx context.Context, task *models.Task, created models.TaskUpdate) error {
	for attempt := 1; ; attempt++ {
		number, err := utils.GenerateTicketNumber(s.now())
		if err != nil {
			return err
		}
		task.ID = 0
		task.TicketNumber = number

		err = s.tasks.Create(ctx, task, created)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repository.ErrDuplicate) || attempt >= maxTicketNumberAttempts {
			return fmt.Errorf("failed to create task: %w", err)
		}
		s.logger.Warn("ticket number collision, retrying", zap.String("ticket_number", number), zap.Int("attempt", attempt))
	}
}

func (s *TaskService) findTask(ctx context.Context, taskID uint64, preload ...string) (*models.Task, error) {
	task, err := s.tasks.FindByID(ctx, taskID, preload...)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	return task, nil
}

func (s *TaskService) reload(ctx context.Context, taskID uint64) (*models.Task, error) {
	return s.findTask(ctx, taskID, taskPreloads...)
}

func (s *TaskService) history(ctx context.Context, taskID uint64) ([]models.TaskUpdate, error) {
	return s.audit.History(ctx, taskID)
}

func (s *TaskService) activeUser(ctx context.Context, userID uint64) (*models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAssigneeNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if !user.IsActive {
		return nil, ErrAssigneeNotFound
	}
	return user, nil
}

// mutationError maps repository failures of a locked update onto service errors.
func (s *TaskService) mutationError(err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrTaskNotFound
	case errors.Is(err, repository.ErrVersionConflict):
		return ErrVersionConflict
	case errors.Is(err, ErrTaskNotFound),
		errors.Is(err, ErrTaskClosed),
		errors.Is(err, ErrTaskAlreadyCompleted),
		errors.Is(err, models.ErrTransitionNotAllowed),
		errors.Is(err, models.ErrCompletionNoteMissing):
		return err
	default:
		return fmt.Errorf("failed to update task: %w", err)
	}
}

func (s *TaskService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish event", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}

func (s *TaskService) publishStatusChange(ctx context.Context, task *models.Task, actor events.Actor, oldStatus models.TaskStatus, note string, automatic bool) {
	s.publish(ctx, events.New(events.EventTaskStatusChanged, task, actor,
		events.TaskStatusChangedPayload{OldStatus: oldStatus, NewStatus: task.Status, Note: note}))
	if task.Status == models.TaskStatusCompleted {
		s.publish(ctx, events.New(events.EventTaskCompleted, task, actor,
			events.TaskCompletedPayload{CompletionNote: task.CompletionNote, ActualTime: task.ActualTime, Automatic: automatic}))
	}
}

func applyEdits(task *models.Task, input UpdateTaskInput, priority *models.TaskPriority) bool {
	edited := false
	setString := func(dst *string, src *string) {
		if src == nil {
			return
		}
		v := strings.TrimSpace(*src)
		if *dst != v {
			*dst = v
			edited = true
		}
	}

	setString(&task.Title, input.Title)
	setString(&task.Description, input.Description)
	setString(&task.IssueType, input.IssueType)
	setString(&task.ContactPerson, input.ContactPerson)
	setString(&task.ContactPhone, input.ContactPhone)

	if priority != nil && task.Priority != *priority {
		task.Priority = *priority
		edited = true
	}
	if input.EstimatedTime != nil && (task.EstimatedTime == nil || *task.EstimatedTime != *input.EstimatedTime) {
		v := *input.EstimatedTime
		task.EstimatedTime = &v
		edited = true
	}
	return edited
}

func sameRef(a, b *uint64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func assignmentNote(assignee *models.User) string {
	if assignee == nil {
		return "Engineer unassigned"
	}
	return "Assigned to engineer " + assignee.DisplayName()
}
