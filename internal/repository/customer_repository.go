package repository

import (
	"context"
	"strings"

	"github.com/wizone/it-support-api/internal/database"
	"github.com/wizone/it-support-api/internal/models"
	"github.com/wizone/it-support-api/internal/utils"
	"gorm.io/gorm"
)

// GormCustomerRepository is a GORM implementation of CustomerRepository
type GormCustomerRepository struct {
	db *gorm.DB
}

// NewCustomerRepository creates a new CustomerRepository
func NewCustomerRepository(db *gorm.DB) CustomerRepository {
	return &GormCustomerRepository{db: db}
}

// Create creates a new customer
func (r *GormCustomerRepository) Create(ctx context.Context, customer *models.Customer) error {
	return translate(r.db.WithContext(ctx).Create(customer).Error)
}

// FindByID finds a customer by ID
func (r *GormCustomerRepository) FindByID(ctx context.Context, id uint64) (*models.Customer, error) {
	var customer models.Customer
	if err := r.db.WithContext(ctx).First(&customer, id).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

// FindByPortalUsername finds a customer by portal login
func (r *GormCustomerRepository) FindByPortalUsername(ctx context.Context, username string) (*models.Customer, error) {
	var customer models.Customer
	if err := r.db.WithContext(ctx).Where("portal_username = ?", username).First(&customer).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

// List retrieves customers matching an optional search term
func (r *GormCustomerRepository) List(ctx context.Context, search string, page, pageSize int) ([]models.Customer, int64, error) {
	var customers []models.Customer

	query := r.db.WithContext(ctx).Model(&models.Customer{})
	if term := strings.TrimSpace(search); term != "" {
		like := "%" + strings.ToLower(term) + "%"
		query = query.Where(
			"LOWER(name) LIKE ? OR LOWER(email) LIKE ? OR LOWER(contact_person) LIKE ? OR LOWER(connection_id) LIKE ?",
			like, like, like, like,
		)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := query.
		Order("name ASC").Order("id ASC").
		Scopes(database.Paginate(utils.NewPaginationParams(page, pageSize))).
		Find(&customers).Error; err != nil {
		return nil, 0, err
	}

	return customers, total, nil
}

// Update saves all customer fields
func (r *GormCustomerRepository) Update(ctx context.Context, customer *models.Customer) error {
	return translate(r.db.WithContext(ctx).Save(customer).Error)
}
