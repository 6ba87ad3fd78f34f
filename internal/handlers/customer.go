package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/wizone/it-support-api/internal/dto"
	apierrors "github.com/wizone/it-support-api/internal/errors"
	"github.com/wizone/it-support-api/internal/services"
	"github.com/wizone/it-support-api/internal/utils"
)

// CustomerHandler serves customer management endpoints for staff.
type CustomerHandler struct {
	customerService *services.CustomerService
}

// NewCustomerHandler creates a new CustomerHandler.
func NewCustomerHandler(customerService *services.CustomerService) *CustomerHandler {
	return &CustomerHandler{customerService: customerService}
}

type customerRequest struct {
	Name          *string `json:"name"`
	ContactPerson *string `json:"contact_person"`
	Email         *string `json:"email"`
	Phone         *string `json:"phone"`
	Address       *string `json:"address"`
	City          *string `json:"city"`
	State         *string `json:"state"`
	ServicePlan   *string `json:"service_plan"`
	ConnectionID  *string `json:"connection_id"`
	IsActive      *bool   `json:"is_active"`
}

func (r customerRequest) input() services.CustomerInput {
	return services.CustomerInput{
		Name:          r.Name,
		ContactPerson: r.ContactPerson,
		Email:         r.Email,
		Phone:         r.Phone,
		Address:       r.Address,
		City:          r.City,
		State:         r.State,
		ServicePlan:   r.ServicePlan,
		ConnectionID:  r.ConnectionID,
		IsActive:      r.IsActive,
	}
}

// ListCustomers returns customers matching ?search=
func (h *CustomerHandler) ListCustomers(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	customers, total, err := h.customerService.ListCustomers(c.Request.Context(), c.Query("search"), params.Page, params.Limit)
	if err != nil {
		respondCustomerError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToCustomerListResponse(customers, params.Page, params.Limit, total))
}

// CreateCustomer creates a new customer
func (h *CustomerHandler) CreateCustomer(c *gin.Context) {
	var req customerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	customer, err := h.customerService.CreateCustomer(c.Request.Context(), req.input())
	if err != nil {
		respondCustomerError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToCustomerDTO(*customer))
}

// GetCustomer returns a customer by ID
func (h *CustomerHandler) GetCustomer(c *gin.Context) {
	id, ok := parseIDParam(c, "id", "Invalid customer ID")
	if !ok {
		return
	}

	customer, err := h.customerService.GetCustomer(c.Request.Context(), id)
	if err != nil {
		respondCustomerError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToCustomerDTO(*customer))
}

// UpdateCustomer edits a customer
func (h *CustomerHandler) UpdateCustomer(c *gin.Context) {
	id, ok := parseIDParam(c, "id", "Invalid customer ID")
	if !ok {
		return
	}

	var req customerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	customer, err := h.customerService.UpdateCustomer(c.Request.Context(), id, req.input())
	if err != nil {
		respondCustomerError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToCustomerDTO(*customer))
}

// SetPortalAccess configures the self-service login of a customer
func (h *CustomerHandler) SetPortalAccess(c *gin.Context) {
	id, ok := parseIDParam(c, "id", "Invalid customer ID")
	if !ok {
		return
	}

	type PortalAccessRequest struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password"`
		Enabled  bool   `json:"enabled"`
	}

	var req PortalAccessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	customer, err := h.customerService.SetPortalAccess(c.Request.Context(), id, services.PortalAccessInput{
		Username: req.Username,
		Password: req.Password,
		Enabled:  req.Enabled,
	})
	if err != nil {
		respondCustomerError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToCustomerDTO(*customer))
}

func parseIDParam(c *gin.Context, name, message string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, message)
		return 0, false
	}
	return id, true
}
