package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/wizone/it-support-api/internal/auth"
	"github.com/wizone/it-support-api/internal/constants"
	"github.com/wizone/it-support-api/internal/models"
	"github.com/wizone/it-support-api/internal/repository"
)

var (
	ErrUsernameTaken    = errors.New("username or email already exists")
	ErrPasswordTooShort = errors.New("password too short")
	ErrUsernameRequired = errors.New("username is required")
	ErrInvalidEmail     = errors.New("a valid email is required")
	ErrInvalidRole      = errors.New("unknown role")
)

// UserService manages employee accounts.
type UserService struct {
	userRepo   repository.UserRepository
	bcryptCost int
}

// NewUserService creates a new UserService.
func NewUserService(userRepo repository.UserRepository, bcryptCost int) *UserService {
	return &UserService{userRepo: userRepo, bcryptCost: bcryptCost}
}

// CreateUserInput represents input for creating an employee.
type CreateUserInput struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
	Phone     string
	Role      string
}

// CreateUser validates and stores a new employee.
func (s *UserService) CreateUser(ctx context.Context, input CreateUserInput) (*models.User, error) {
	username := strings.TrimSpace(input.Username)
	if username == "" {
		return nil, ErrUsernameRequired
	}
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, ErrInvalidEmail
	}
	if len(input.Password) < constants.MinPasswordLength {
		return nil, ErrPasswordTooShort
	}

	role := models.RoleEngineer
	if r := strings.TrimSpace(input.Role); r != "" {
		role = models.UserRole(strings.ToLower(r))
		if !role.Valid() {
			return nil, ErrInvalidRole
		}
	}

	taken, err := s.userRepo.ExistsByUsernameOrEmail(ctx, username, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if taken {
		return nil, ErrUsernameTaken
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		Phone:        strings.TrimSpace(input.Phone),
		Role:         role,
		IsActive:     true,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// ListUsers lists employees, optionally narrowed to one role.
func (s *UserService) ListUsers(ctx context.Context, role string) ([]models.User, error) {
	filter := repository.UserFilter{}
	if role != "" {
		r := models.UserRole(strings.ToLower(strings.TrimSpace(role)))
		if !r.Valid() {
			return nil, ErrInvalidRole
		}
		filter.Role = &r
	}

	users, err := s.userRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// ListFieldEngineers lists active field engineers available for dispatch.
func (s *UserService) ListFieldEngineers(ctx context.Context) ([]models.User, error) {
	role := models.RoleFieldEngineer
	users, err := s.userRepo.List(ctx, repository.UserFilter{Role: &role, ActiveOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to list field engineers: %w", err)
	}
	return users, nil
}
