package handlers

import (
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/wizone/it-support-api/internal/constants"
	apierrors "github.com/wizone/it-support-api/internal/errors"
	"github.com/wizone/it-support-api/internal/models"
	"github.com/wizone/it-support-api/internal/services"
)

func respondTaskError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrTaskNotFound),
		errors.Is(err, services.ErrEngineerNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrCustomerNotFound),
		errors.Is(err, services.ErrAssigneeNotFound),
		errors.Is(err, services.ErrNotFieldEngineer),
		errors.Is(err, services.ErrTitleRequired),
		errors.Is(err, services.ErrTitleEmpty),
		errors.Is(err, services.ErrInvalidPriority),
		errors.Is(err, services.ErrInvalidEstimate),
		errors.Is(err, services.ErrNoteTooLong),
		errors.Is(err, services.ErrTooManyAttachments),
		errors.Is(err, services.ErrEmptyUpdate),
		errors.Is(err, services.ErrDescriptionRequired):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, models.ErrUnknownStatus),
		errors.Is(err, models.ErrTransitionNotAllowed),
		errors.Is(err, models.ErrCompletionNoteMissing),
		errors.Is(err, services.ErrInvalidInitialStatus),
		errors.Is(err, services.ErrTaskClosed),
		errors.Is(err, services.ErrTaskAlreadyCompleted):
		apierrors.InvalidStatusTransition(c, err.Error())
	case errors.Is(err, services.ErrVersionConflict):
		apierrors.Conflict(c, err.Error())
	case errors.Is(err, services.ErrTriageNotConfigured):
		apierrors.ServiceUnavailable(c, "Ticket triage is not configured")
	case errors.Is(err, services.ErrTriageUnavailable),
		errors.Is(err, services.ErrTriageNoSuggestion):
		_ = c.Error(err)
		apierrors.ServiceUnavailable(c, "Ticket triage is temporarily unavailable")
	default:
		internalError(c, err)
	}
}

func respondAuthError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidCredentials):
		apierrors.InvalidCredentials(c, err.Error())
	case errors.Is(err, services.ErrAccountDisabled),
		errors.Is(err, services.ErrPortalAccessDisabled):
		apierrors.Unauthorized(c, err.Error())
	case errors.Is(err, services.ErrUserNotFound):
		apierrors.NotFound(c, err.Error())
	default:
		internalError(c, err)
	}
}

func respondUserError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrPasswordTooShort):
		apierrors.BadRequest(c, fmt.Sprintf("Password must be at least %d characters", constants.MinPasswordLength))
	case errors.Is(err, services.ErrUsernameRequired),
		errors.Is(err, services.ErrInvalidEmail),
		errors.Is(err, services.ErrInvalidRole):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrUsernameTaken):
		apierrors.Conflict(c, err.Error())
	default:
		internalError(c, err)
	}
}

func respondCustomerError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrCustomerNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrPasswordTooShort):
		apierrors.BadRequest(c, fmt.Sprintf("Password must be at least %d characters", constants.MinPasswordLength))
	case errors.Is(err, services.ErrCustomerNameRequired),
		errors.Is(err, services.ErrPortalUsernameRequired),
		errors.Is(err, services.ErrPortalPasswordRequired):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrPortalUsernameTaken):
		apierrors.Conflict(c, err.Error())
	default:
		internalError(c, err)
	}
}

// internalError hides the cause from the client; the request logger records it.
func internalError(c *gin.Context, err error) {
	_ = c.Error(err)
	apierrors.InternalError(c, "")
}
