package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/wizone/it-support-api/internal/constants"
	"github.com/wizone/it-support-api/internal/database"
	apierrors "github.com/wizone/it-support-api/internal/errors"
	"github.com/wizone/it-support-api/internal/models"
)

// RequireTaskAccess checks if the user may see the task in the :id parameter
func RequireTaskAccess() gin.HandlerFunc {
	return func(c *gin.Context) {
		taskID, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			apierrors.BadRequest(c, "Invalid task ID")
			c.Abort()
			return
		}

		actor, exists := CurrentActor(c)
		if !exists {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		// Return 404 instead of 403 to avoid leaking task existence
		var task models.Task
		if err := database.GetDB().
			WithContext(c.Request.Context()).
			Scopes(database.VisibleTo(actor.Role, actor.UserID)).
			First(&task, taskID).Error; err != nil {
			apierrors.NotFound(c, "Task not found")
			c.Abort()
			return
		}

		c.Set(constants.ContextKeyTask, task)
		c.Next()
	}
}

// GetTask returns the task loaded by RequireTaskAccess
func GetTask(c *gin.Context) (models.Task, bool) {
	value, exists := c.Get(constants.ContextKeyTask)
	if !exists {
		return models.Task{}, false
	}
	task, ok := value.(models.Task)
	return task, ok
}
