package dto

import (
	"time"

	"github.com/wizone/it-support-api/internal/models"
)

// CustomerDTO represents a customer in API responses
type CustomerDTO struct {
	ID              uint64     `json:"id"`
	Name            string     `json:"name"`
	ContactPerson   string     `json:"contact_person"`
	Email           string     `json:"email"`
	Phone           string     `json:"phone"`
	Address         string     `json:"address"`
	City            string     `json:"city"`
	State           string     `json:"state"`
	ServicePlan     string     `json:"service_plan"`
	ConnectionID    string     `json:"connection_id"`
	IsActive        bool       `json:"is_active"`
	PortalUsername  *string    `json:"portal_username"`
	PortalAccess    bool       `json:"portal_access"`
	PortalLastLogin *time.Time `json:"portal_last_login"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// CustomerSummaryDTO is the short form embedded in tasks
type CustomerSummaryDTO struct {
	ID            uint64 `json:"id"`
	Name          string `json:"name"`
	ContactPerson string `json:"contact_person"`
	Phone         string `json:"phone"`
	ConnectionID  string `json:"connection_id"`
}

// CustomerListResponse represents a paginated list of customers
type CustomerListResponse struct {
	Customers  []CustomerDTO `json:"customers"`
	Page       int           `json:"page"`
	PageSize   int           `json:"page_size"`
	TotalCount int64         `json:"total_count"`
	TotalPages int           `json:"total_pages"`
}

// ToCustomerDTO converts a Customer model to CustomerDTO
func ToCustomerDTO(c models.Customer) CustomerDTO {
	return CustomerDTO{
		ID:              c.ID,
		Name:            c.Name,
		ContactPerson:   c.ContactPerson,
		Email:           c.Email,
		Phone:           c.Phone,
		Address:         c.Address,
		City:            c.City,
		State:           c.State,
		ServicePlan:     c.ServicePlan,
		ConnectionID:    c.ConnectionID,
		IsActive:        c.IsActive,
		PortalUsername:  c.PortalUsername,
		PortalAccess:    c.PortalAccess,
		PortalLastLogin: c.PortalLastLogin,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
}

// ToCustomerListResponse converts a page of customers
func ToCustomerListResponse(customers []models.Customer, page, pageSize int, totalCount int64) CustomerListResponse {
	items := make([]CustomerDTO, len(customers))
	for i, c := range customers {
		items[i] = ToCustomerDTO(c)
	}
	return CustomerListResponse{
		Customers:  items,
		Page:       page,
		PageSize:   pageSize,
		TotalCount: totalCount,
		TotalPages: totalPages(totalCount, pageSize),
	}
}

func toCustomerSummary(c models.Customer) *CustomerSummaryDTO {
	if c.ID == 0 {
		return nil
	}
	return &CustomerSummaryDTO{
		ID:            c.ID,
		Name:          c.Name,
		ContactPerson: c.ContactPerson,
		Phone:         c.Phone,
		ConnectionID:  c.ConnectionID,
	}
}
