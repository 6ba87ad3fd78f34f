package constants

import "time"

// Session and context keys
const (
	SessionCookieName    = "wizone_session"
	ContextKeyUserID     = "user_id"
	ContextKeyUserRole   = "user_role"
	ContextKeyCustomerID = "customer_id"
	ContextKeyTask       = "task"
	ContextKeyErrorCode  = "error_code"
)

// Validation limits
const (
	MinPasswordLength = 8
	MaxNoteLength     = 5000
	MaxAttachments    = 10
)

// Pagination
const (
	MinPageSize     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Lifecycle defaults
const (
	DefaultAutoCompleteDelay   = 5 * time.Minute
	DefaultSweepInterval       = 30 * time.Second
	AutoCompleteSweepBatchSize = 100
	SweepLockKey               = "wizone:lock:auto-complete-sweep"
	NotificationChannel        = "wizone:notifications"
)
