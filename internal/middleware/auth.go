package middleware

import (
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"github.com/wizone/it-support-api/internal/auth"
	"github.com/wizone/it-support-api/internal/constants"
	apierrors "github.com/wizone/it-support-api/internal/errors"
	"github.com/wizone/it-support-api/internal/models"
	"github.com/wizone/it-support-api/internal/services"
)

// RequireAuth checks if an employee is authenticated via session or bearer token
func RequireAuth(tokens *auth.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		userID := session.Get(constants.ContextKeyUserID)
		role, _ := session.Get(constants.ContextKeyUserRole).(string)

		if userID == nil {
			claims, ok := bearerClaims(c, tokens, auth.SubjectUser)
			if !ok {
				apierrors.Unauthorized(c, "")
				c.Abort()
				return
			}
			id, err := claims.SubjectID()
			if err != nil {
				apierrors.Unauthorized(c, "Invalid token")
				c.Abort()
				return
			}
			userID = id
			role = string(claims.Role)
		}

		// Store user ID and role in context for easy access in handlers
		c.Set(constants.ContextKeyUserID, userID)
		c.Set(constants.ContextKeyUserRole, models.UserRole(role))
		c.Next()
	}
}

// RequireRole rejects employees whose role is not listed
func RequireRole(roles ...models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := GetUserRole(c)
		if !ok {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}
		for _, allowed := range roles {
			if role == allowed {
				c.Next()
				return
			}
		}
		apierrors.Forbidden(c, "Insufficient permissions")
		c.Abort()
	}
}

// RequireCustomer checks if a portal customer is authenticated
func RequireCustomer(tokens *auth.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		customerID := session.Get(constants.ContextKeyCustomerID)

		if customerID == nil {
			claims, ok := bearerClaims(c, tokens, auth.SubjectCustomer)
			if !ok {
				apierrors.Unauthorized(c, "Customer login required")
				c.Abort()
				return
			}
			id, err := claims.SubjectID()
			if err != nil {
				apierrors.Unauthorized(c, "Invalid token")
				c.Abort()
				return
			}
			customerID = id
		}

		c.Set(constants.ContextKeyCustomerID, customerID)
		c.Next()
	}
}

func bearerClaims(c *gin.Context, tokens *auth.TokenManager, subject auth.SubjectType) (*auth.Claims, bool) {
	if tokens == nil {
		return nil, false
	}
	header := c.GetHeader("Authorization")
	raw, found := strings.CutPrefix(header, "Bearer ")
	if !found || strings.TrimSpace(raw) == "" {
		return nil, false
	}
	claims, err := tokens.ParseToken(strings.TrimSpace(raw))
	if err != nil || claims.Subject != subject {
		return nil, false
	}
	return claims, true
}

// GetUserID retrieves the current user ID from context
func GetUserID(c *gin.Context) (uint64, bool) {
	userID, exists := c.Get(constants.ContextKeyUserID)
	if !exists {
		return 0, false
	}
	return toUint64(userID)
}

// GetUserRole retrieves the current user role from context
func GetUserRole(c *gin.Context) (models.UserRole, bool) {
	role, exists := c.Get(constants.ContextKeyUserRole)
	if !exists {
		return "", false
	}
	switch v := role.(type) {
	case models.UserRole:
		return v, v != ""
	case string:
		return models.UserRole(v), v != ""
	default:
		return "", false
	}
}

// GetCustomerID retrieves the current portal customer ID from context
func GetCustomerID(c *gin.Context) (uint64, bool) {
	customerID, exists := c.Get(constants.ContextKeyCustomerID)
	if !exists {
		return 0, false
	}
	return toUint64(customerID)
}

// CurrentActor builds the service actor of the authenticated employee
func CurrentActor(c *gin.Context) (services.Actor, bool) {
	userID, ok := GetUserID(c)
	if !ok {
		return services.Actor{}, false
	}
	role, _ := GetUserRole(c)
	return services.Actor{UserID: userID, Role: role}, true
}

func toUint64(value interface{}) (uint64, bool) {
	switch v := value.(type) {
	case uint64:
		return v, true
	case uint:
		return uint64(v), true
	case int:
		if v < 0 {
			return 0, false
		}
		return uint64(v), true
	case int64:
		if v < 0 {
			return 0, false
		}
		return uint64(v), true
	default:
		return 0, false
	}
}
