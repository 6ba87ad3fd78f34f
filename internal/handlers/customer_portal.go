package handlers

import (
	"net/http"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"github.com/wizone/it-support-api/internal/constants"
	"github.com/wizone/it-support-api/internal/dto"
	apierrors "github.com/wizone/it-support-api/internal/errors"
	"github.com/wizone/it-support-api/internal/middleware"
	"github.com/wizone/it-support-api/internal/services"
	"github.com/wizone/it-support-api/internal/utils"
)

// CustomerPortalHandler serves the customer self-service endpoints.
type CustomerPortalHandler struct {
	customerService *services.CustomerService
	taskService     *services.TaskService
}

// NewCustomerPortalHandler creates a new CustomerPortalHandler.
func NewCustomerPortalHandler(customerService *services.CustomerService, taskService *services.TaskService) *CustomerPortalHandler {
	return &CustomerPortalHandler{
		customerService: customerService,
		taskService:     taskService,
	}
}

// Login authenticates a customer and initializes the portal session.
func (h *CustomerPortalHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	token, expiresAt, customer, err := h.customerService.IssuePortalToken(c.Request.Context(), services.LoginInput{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		respondAuthError(c, err)
		return
	}

	session := sessions.Default(c)
	session.Clear()
	session.Set(constants.ContextKeyCustomerID, customer.ID)
	if err := session.Save(); err != nil {
		apierrors.InternalError(c, "Failed to save session")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"customer":   dto.ToCustomerDTO(*customer),
		"token":      token,
		"expires_at": expiresAt.UTC().Format(time.RFC3339),
	})
}

// Logout ends the portal session.
func (h *CustomerPortalHandler) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	if err := session.Save(); err != nil {
		apierrors.InternalError(c, "Failed to logout")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Logged out successfully",
	})
}

// ListTasks returns the tickets of the signed-in customer.
func (h *CustomerPortalHandler) ListTasks(c *gin.Context) {
	customerID, ok := h.ownCustomer(c)
	if !ok {
		return
	}
	params := utils.GetPaginationParams(c)

	tasks, total, err := h.taskService.ListCustomerTasks(c.Request.Context(), customerID, params.Page, params.Limit)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskListResponse(tasks, params.Page, params.Limit, total))
}

// CreateTask opens a new ticket on behalf of the signed-in customer.
func (h *CustomerPortalHandler) CreateTask(c *gin.Context) {
	customerID, ok := middleware.GetCustomerID(c)
	if !ok {
		apierrors.Unauthorized(c, "Customer login required")
		return
	}

	type CreatePortalTaskRequest struct {
		Title         string `json:"title" binding:"required"`
		Description   string `json:"description"`
		Priority      string `json:"priority"`
		IssueType     string `json:"issue_type"`
		ContactPerson string `json:"contact_person"`
		ContactPhone  string `json:"contact_phone"`
	}

	var req CreatePortalTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	task, err := h.taskService.CreatePortalTask(c.Request.Context(), customerID, services.CreateTaskInput{
		Title:         req.Title,
		Description:   req.Description,
		Priority:      req.Priority,
		IssueType:     req.IssueType,
		ContactPerson: req.ContactPerson,
		ContactPhone:  req.ContactPhone,
	})
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToTaskDTO(*task))
}

// ListTaskUpdates returns the audit trail of one of the customer's tickets.
func (h *CustomerPortalHandler) ListTaskUpdates(c *gin.Context) {
	customerID, ok := h.ownCustomer(c)
	if !ok {
		return
	}
	taskID, ok := parseIDParam(c, "taskId", "Invalid task ID")
	if !ok {
		return
	}

	updates, err := h.taskService.CustomerTaskHistory(c.Request.Context(), customerID, taskID)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"updates": dto.ToTaskUpdateDTOs(updates)})
}

// ownCustomer checks that :customerId names the signed-in customer.
func (h *CustomerPortalHandler) ownCustomer(c *gin.Context) (uint64, bool) {
	customerID, ok := middleware.GetCustomerID(c)
	if !ok {
		apierrors.Unauthorized(c, "Customer login required")
		return 0, false
	}
	requested, ok := parseIDParam(c, "customerId", "Invalid customer ID")
	if !ok {
		return 0, false
	}
	if requested != customerID {
		apierrors.Forbidden(c, "You can only view your own tickets")
		return 0, false
	}
	return customerID, true
}
