package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/wizone/it-support-api/internal/dto"
	apierrors "github.com/wizone/it-support-api/internal/errors"
	"github.com/wizone/it-support-api/internal/middleware"
	"github.com/wizone/it-support-api/internal/models"
	"github.com/wizone/it-support-api/internal/services"
	"github.com/wizone/it-support-api/internal/utils"
)

type TaskHandler struct {
	taskService       *services.TaskService
	assignmentService *services.AssignmentService
	triageService     *services.TriageService
}

func NewTaskHandler(taskService *services.TaskService, assignmentService *services.AssignmentService, triageService *services.TriageService) *TaskHandler {
	return &TaskHandler{
		taskService:       taskService,
		assignmentService: assignmentService,
		triageService:     triageService,
	}
}

// ListTasks returns the tasks visible to the current user
// Can filter by status, priority and customer_id
func (h *TaskHandler) ListTasks(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	input := services.ListTasksInput{
		Status:   c.Query("status"),
		Priority: c.Query("priority"),
	}
	if input.Status != "" {
		if _, err := models.ParseTaskStatus(input.Status); err != nil {
			apierrors.BadRequest(c, err.Error())
			return
		}
	}
	if raw := c.Query("customer_id"); raw != "" {
		customerID, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			apierrors.BadRequest(c, "Invalid customer_id")
			return
		}
		input.CustomerID = &customerID
	}

	params := utils.GetPaginationParams(c)
	input.Page = params.Page
	input.PageSize = params.Limit

	tasks, total, err := h.taskService.ListTasks(c.Request.Context(), input, actor)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskListResponse(tasks, params.Page, params.Limit, total))
}

// GetTask returns a specific task by ID
// Visibility is already checked by RequireTaskAccess middleware
func (h *TaskHandler) GetTask(c *gin.Context) {
	actor, taskID, ok := h.taskRequest(c)
	if !ok {
		return
	}

	task, err := h.taskService.GetTask(c.Request.Context(), taskID, actor)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

// CreateTask creates a new task
func (h *TaskHandler) CreateTask(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	type CreateTaskRequest struct {
		CustomerID    uint64  `json:"customer_id" binding:"required"`
		Title         string  `json:"title"`
		Description   string  `json:"description"`
		Priority      string  `json:"priority"`
		IssueType     string  `json:"issue_type"`
		Status        string  `json:"status"`
		AssignedTo    *uint64 `json:"assigned_to"`
		ContactPerson string  `json:"contact_person"`
		ContactPhone  string  `json:"contact_phone"`
		EstimatedTime *int    `json:"estimated_time"`
	}

	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	task, err := h.taskService.CreateTask(c.Request.Context(), services.CreateTaskInput{
		CustomerID:    req.CustomerID,
		Title:         req.Title,
		Description:   req.Description,
		Priority:      req.Priority,
		IssueType:     req.IssueType,
		Status:        req.Status,
		AssignedTo:    req.AssignedTo,
		ContactPerson: req.ContactPerson,
		ContactPhone:  req.ContactPhone,
		EstimatedTime: req.EstimatedTime,
	}, actor)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToTaskDTO(*task))
}

// UpdateTask edits fields, assignment and status of a task
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	actor, taskID, ok := h.taskRequest(c)
	if !ok {
		return
	}

	type UpdateTaskRequest struct {
		Title         *string         `json:"title"`
		Description   *string         `json:"description"`
		Priority      *string         `json:"priority"`
		IssueType     *string         `json:"issue_type"`
		ContactPerson *string         `json:"contact_person"`
		ContactPhone  *string         `json:"contact_phone"`
		EstimatedTime *int            `json:"estimated_time"`
		Status        *string         `json:"status"`
		AssignedTo    json.RawMessage `json:"assigned_to"`
		Note          string          `json:"note"`
		Attachments   []string        `json:"attachments"`
		Version       *uint64         `json:"version"`
	}

	var req UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	input := services.UpdateTaskInput{
		Title:         req.Title,
		Description:   req.Description,
		Priority:      req.Priority,
		IssueType:     req.IssueType,
		ContactPerson: req.ContactPerson,
		ContactPhone:  req.ContactPhone,
		EstimatedTime: req.EstimatedTime,
		Status:        req.Status,
		Note:          req.Note,
		Attachments:   req.Attachments,
		Version:       req.Version,
	}

	// assigned_to: absent leaves it, null clears it, a number sets it
	assignee, present, err := optionalID(req.AssignedTo)
	if err != nil {
		apierrors.BadRequest(c, "Invalid assigned_to")
		return
	}
	if present {
		input.AssignedTo = assignee
		input.Unassign = assignee == nil
	}

	task, err := h.taskService.UpdateTask(c.Request.Context(), taskID, input, actor)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

// DeleteTask deletes a task and its audit trail
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	_, taskID, ok := h.taskRequest(c)
	if !ok {
		return
	}

	if err := h.taskService.DeleteTask(c.Request.Context(), taskID); err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Task deleted successfully",
	})
}

// ListUpdates returns the ordered audit trail of a task
func (h *TaskHandler) ListUpdates(c *gin.Context) {
	actor, taskID, ok := h.taskRequest(c)
	if !ok {
		return
	}

	updates, err := h.taskService.TaskHistory(c.Request.Context(), taskID, actor)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"updates": dto.ToTaskUpdateDTOs(updates)})
}

// AddUpdate appends a note and optional attachments to a task
func (h *TaskHandler) AddUpdate(c *gin.Context) {
	actor, taskID, ok := h.taskRequest(c)
	if !ok {
		return
	}

	type AddUpdateRequest struct {
		Note        string   `json:"note"`
		Attachments []string `json:"attachments"`
	}

	var req AddUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	updates, err := h.taskService.AddNote(c.Request.Context(), taskID, req.Note, req.Attachments, actor)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"updates": dto.ToTaskUpdateDTOs(updates)})
}

// AssignFieldEngineer dispatches a field engineer to a task
func (h *TaskHandler) AssignFieldEngineer(c *gin.Context) {
	actor, taskID, ok := h.taskRequest(c)
	if !ok {
		return
	}

	type AssignFieldEngineerRequest struct {
		FieldEngineerID      json.RawMessage `json:"field_engineer_id"`
		FieldEngineerIDCamel json.RawMessage `json:"fieldEngineerId"`
	}

	var req AssignFieldEngineerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	engineerID, _, err := optionalID(firstSent(req.FieldEngineerID, req.FieldEngineerIDCamel))
	if err != nil {
		apierrors.BadRequest(c, "Invalid field_engineer_id")
		return
	}
	if engineerID == nil || *engineerID == 0 {
		apierrors.BadRequestWithDetails(c, "Missing required field", gin.H{"field": "field_engineer_id"})
		return
	}

	task, err := h.assignmentService.AssignFieldEngineer(c.Request.Context(), taskID, *engineerID, actor)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

// AssignEngineer sets or clears the office engineer of a task
func (h *TaskHandler) AssignEngineer(c *gin.Context) {
	actor, taskID, ok := h.taskRequest(c)
	if !ok {
		return
	}

	type AssignEngineerRequest struct {
		EngineerID      json.RawMessage `json:"engineer_id"`
		EngineerIDCamel json.RawMessage `json:"engineerId"`
	}

	var req AssignEngineerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	// null clears the assignee; the key itself is required
	engineerID, present, err := optionalID(firstSent(req.EngineerID, req.EngineerIDCamel))
	if err != nil {
		apierrors.BadRequest(c, "Invalid engineer_id")
		return
	}
	if !present {
		apierrors.BadRequestWithDetails(c, "Missing required field", gin.H{"field": "engineer_id"})
		return
	}

	task, err := h.assignmentService.AssignEngineer(c.Request.Context(), taskID, engineerID, actor)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

// UpdateFieldStatus moves a task through the field workflow
func (h *TaskHandler) UpdateFieldStatus(c *gin.Context) {
	actor, taskID, ok := h.taskRequest(c)
	if !ok {
		return
	}

	type FieldStatusRequest struct {
		Status string `json:"status" binding:"required"`
		Note   string `json:"note"`
	}

	var req FieldStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	task, err := h.taskService.UpdateFieldStatus(c.Request.Context(), taskID, req.Status, req.Note, actor)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

// CompleteTask closes a task with a completion note
func (h *TaskHandler) CompleteTask(c *gin.Context) {
	actor, taskID, ok := h.taskRequest(c)
	if !ok {
		return
	}

	type CompleteTaskRequest struct {
		CompletionNote      string   `json:"completion_note"`
		CompletionNoteCamel string   `json:"completionNote"`
		Files               []string `json:"files"`
	}

	var req CompleteTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	note := firstNonEmpty(req.CompletionNote, req.CompletionNoteCamel)
	task, err := h.taskService.CompleteTask(c.Request.Context(), taskID, note, req.Files, actor)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

// Triage suggests a priority and issue type for a ticket description
func (h *TaskHandler) Triage(c *gin.Context) {
	if !h.triageService.Enabled() {
		apierrors.ServiceUnavailable(c, "Ticket triage is not configured")
		return
	}

	type TriageRequest struct {
		Description string `json:"description" binding:"required"`
	}

	var req TriageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	suggestion, err := h.triageService.Suggest(c.Request.Context(), req.Description)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, suggestion)
}

// Stats returns per-status counts over the caller's visible tasks
func (h *TaskHandler) Stats(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	counts, total, err := h.taskService.TaskStats(c.Request.Context(), actor)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.StatsDTO{Total: total, ByStatus: counts})
}

// taskRequest resolves the actor and the task loaded by RequireTaskAccess.
func (h *TaskHandler) taskRequest(c *gin.Context) (services.Actor, uint64, bool) {
	actor, ok := currentActor(c)
	if !ok {
		return services.Actor{}, 0, false
	}
	task, exists := middleware.GetTask(c)
	if !exists {
		apierrors.InternalError(c, "Task not found in context")
		return services.Actor{}, 0, false
	}
	return actor, task.ID, true
}

func currentActor(c *gin.Context) (services.Actor, bool) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return services.Actor{}, false
	}
	return actor, true
}
