package dto

import (
	"time"

	"github.com/wizone/it-support-api/internal/models"
)

// UserDTO represents an employee in API responses
type UserDTO struct {
	ID        uint64          `json:"id"`
	Username  string          `json:"username"`
	Email     string          `json:"email"`
	FirstName string          `json:"first_name"`
	LastName  string          `json:"last_name"`
	Phone     string          `json:"phone"`
	Role      models.UserRole `json:"role"`
	IsActive  bool            `json:"is_active"`
	CreatedAt time.Time       `json:"created_at"`
}

// UserSummaryDTO is the short form embedded in tasks and audit entries
type UserSummaryDTO struct {
	ID       uint64          `json:"id"`
	Username string          `json:"username"`
	Name     string          `json:"name"`
	Role     models.UserRole `json:"role"`
}

// ToUserDTO converts a User model to UserDTO
func ToUserDTO(user models.User) UserDTO {
	return UserDTO{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Phone:     user.Phone,
		Role:      user.Role,
		IsActive:  user.IsActive,
		CreatedAt: user.CreatedAt,
	}
}

// ToUserDTOs converts a slice of users
func ToUserDTOs(users []models.User) []UserDTO {
	out := make([]UserDTO, len(users))
	for i, u := range users {
		out[i] = ToUserDTO(u)
	}
	return out
}

func toUserSummary(user *models.User) *UserSummaryDTO {
	if user == nil || user.ID == 0 {
		return nil
	}
	return &UserSummaryDTO{
		ID:       user.ID,
		Username: user.Username,
		Name:     user.DisplayName(),
		Role:     user.Role,
	}
}
