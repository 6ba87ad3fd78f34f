package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/wizone/it-support-api/internal/auth"
	"github.com/wizone/it-support-api/internal/constants"
	"github.com/wizone/it-support-api/internal/models"
	"github.com/wizone/it-support-api/internal/repository"
)

var (
	ErrCustomerNameRequired   = errors.New("customer name is required")
	ErrPortalUsernameRequired = errors.New("portal username is required")
	ErrPortalUsernameTaken    = errors.New("portal username already exists")
	ErrPortalPasswordRequired = errors.New("a portal password is required when enabling access for the first time")
	ErrPortalAccessDisabled   = errors.New("portal access is disabled")
)

// CustomerService manages customers and their portal credentials.
type CustomerService struct {
	customerRepo repository.CustomerRepository
	tokens       *auth.TokenManager
	bcryptCost   int
	now          func() time.Time
}

// NewCustomerService creates a new CustomerService.
func NewCustomerService(customerRepo repository.CustomerRepository, tokens *auth.TokenManager, bcryptCost int) *CustomerService {
	return &CustomerService{
		customerRepo: customerRepo,
		tokens:       tokens,
		bcryptCost:   bcryptCost,
		now:          time.Now,
	}
}

// CustomerInput carries editable customer fields. Nil fields are left unchanged on update.
type CustomerInput struct {
	Name          *string
	ContactPerson *string
	Email         *string
	Phone         *string
	Address       *string
	City          *string
	State         *string
	ServicePlan   *string
	ConnectionID  *string
	IsActive      *bool
}

// PortalAccessInput configures the self-service credentials of a customer.
type PortalAccessInput struct {
	Username string
	Password string
	Enabled  bool
}

// CreateCustomer stores a new customer.
func (s *CustomerService) CreateCustomer(ctx context.Context, input CustomerInput) (*models.Customer, error) {
	if input.Name == nil || strings.TrimSpace(*input.Name) == "" {
		return nil, ErrCustomerNameRequired
	}

	customer := &models.Customer{IsActive: true}
	applyCustomerInput(customer, input)

	if err := s.customerRepo.Create(ctx, customer); err != nil {
		return nil, fmt.Errorf("failed to create customer: %w", err)
	}
	return customer, nil
}

// GetCustomer retrieves a customer by ID.
func (s *CustomerService) GetCustomer(ctx context.Context, id uint64) (*models.Customer, error) {
	customer, err := s.customerRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCustomerNotFound
		}
		return nil, fmt.Errorf("failed to find customer: %w", err)
	}
	return customer, nil
}

// ListCustomers searches customers by name, email, contact or connection id.
func (s *CustomerService) ListCustomers(ctx context.Context, search string, page, pageSize int) ([]models.Customer, int64, error) {
	customers, total, err := s.customerRepo.List(ctx, search, page, pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list customers: %w", err)
	}
	return customers, total, nil
}

// UpdateCustomer edits a customer's details.
func (s *CustomerService) UpdateCustomer(ctx context.Context, id uint64, input CustomerInput) (*models.Customer, error) {
	if input.Name != nil && strings.TrimSpace(*input.Name) == "" {
		return nil, ErrCustomerNameRequired
	}

	customer, err := s.GetCustomer(ctx, id)
	if err != nil {
		return nil, err
	}
	applyCustomerInput(customer, input)

	if err := s.customerRepo.Update(ctx, customer); err != nil {
		return nil, fmt.Errorf("failed to update customer: %w", err)
	}
	return customer, nil
}

// SetPortalAccess sets the portal login of a customer and toggles access.
func (s *CustomerService) SetPortalAccess(ctx context.Context, id uint64, input PortalAccessInput) (*models.Customer, error) {
	username := strings.TrimSpace(input.Username)
	if username == "" {
		return nil, ErrPortalUsernameRequired
	}

	customer, err := s.GetCustomer(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Password != "" {
		if len(input.Password) < constants.MinPasswordLength {
			return nil, ErrPasswordTooShort
		}
		hash, err := auth.HashPassword(input.Password, s.bcryptCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		customer.PortalPasswordHash = hash
	}
	if input.Enabled && customer.PortalPasswordHash == "" {
		return nil, ErrPortalPasswordRequired
	}

	customer.PortalUsername = &username
	customer.PortalAccess = input.Enabled

	if err := s.customerRepo.Update(ctx, customer); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrPortalUsernameTaken
		}
		return nil, fmt.Errorf("failed to update portal access: %w", err)
	}
	return customer, nil
}

// PortalLogin authenticates a customer against the portal credentials.
func (s *CustomerService) PortalLogin(ctx context.Context, input LoginInput) (*models.Customer, error) {
	customer, err := s.customerRepo.FindByPortalUsername(ctx, strings.TrimSpace(input.Username))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find customer: %w", err)
	}

	if customer.PortalPasswordHash == "" || auth.ComparePassword(customer.PortalPasswordHash, input.Password) != nil {
		return nil, ErrInvalidCredentials
	}
	if !customer.PortalAccess || !customer.IsActive {
		return nil, ErrPortalAccessDisabled
	}

	now := s.now()
	customer.PortalLastLogin = &now
	if err := s.customerRepo.Update(ctx, customer); err != nil {
		return nil, fmt.Errorf("failed to record portal login: %w", err)
	}
	return customer, nil
}

// IssuePortalToken authenticates a customer and signs a bearer token.
func (s *CustomerService) IssuePortalToken(ctx context.Context, input LoginInput) (string, time.Time, *models.Customer, error) {
	customer, err := s.PortalLogin(ctx, input)
	if err != nil {
		return "", time.Time{}, nil, err
	}
	token, expiresAt, err := s.tokens.GenerateToken(customer.ID, auth.SubjectCustomer, "")
	if err != nil {
		return "", time.Time{}, nil, fmt.Errorf("failed to sign token: %w", err)
	}
	return token, expiresAt, customer, nil
}

func applyCustomerInput(c *models.Customer, in CustomerInput) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	set(&c.Name, in.Name)
	set(&c.ContactPerson, in.ContactPerson)
	set(&c.Email, in.Email)
	set(&c.Phone, in.Phone)
	set(&c.Address, in.Address)
	set(&c.City, in.City)
	set(&c.State, in.State)
	set(&c.ServicePlan, in.ServicePlan)
	set(&c.ConnectionID, in.ConnectionID)
	if in.IsActive != nil {
		c.IsActive = *in.IsActive
	}
}
