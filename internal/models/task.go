package models

import "time"

type TaskPriority string

const (
	PriorityLow      TaskPriority = "low"
	PriorityMedium   TaskPriority = "medium"
	PriorityHigh     TaskPriority = "high"
	PriorityCritical TaskPriority = "critical"
)

// Valid reports whether p is one of the known priorities.
func (p TaskPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

type Task struct {
	ID           uint64       `gorm:"primarykey" json:"id"`
	TicketNumber string       `gorm:"type:varchar(32);uniqueIndex;not null" json:"ticket_number"`
	CustomerID   uint64       `gorm:"not null;index" json:"customer_id"`
	Title        string       `gorm:"type:varchar(255);not null" json:"title"`
	Description  string       `gorm:"type:text" json:"description"`
	Priority     TaskPriority `gorm:"type:varchar(20);not null" json:"priority"`
	IssueType    string       `gorm:"type:varchar(100)" json:"issue_type"`
	Status       TaskStatus   `gorm:"type:varchar(30);not null;index" json:"status"`

	AssignedTo      *uint64 `gorm:"index" json:"assigned_to"`
	FieldEngineerID *uint64 `gorm:"index" json:"field_engineer_id"`
	CreatedBy       *uint64 `json:"created_by"`
	ResolvedBy      *uint64 `json:"resolved_by"`

	ContactPerson      string `gorm:"type:varchar(255)" json:"contact_person"`
	ContactPhone       string `gorm:"type:varchar(50)" json:"contact_phone"`
	Resolution         string `gorm:"type:text" json:"resolution"`
	CompletionNote     string `gorm:"type:text" json:"completion_note"`
	FieldWaitingReason string `gorm:"type:text" json:"field_waiting_reason"`

	StartTime        *time.Time `json:"start_time"`
	CompletionTime   *time.Time `json:"completion_time"`
	FieldStartTime   *time.Time `json:"field_start_time"`
	FieldWaitingTime *time.Time `json:"field_waiting_time"`
	ResolvedAt       *time.Time `json:"resolved_at"`
	AutoCompleteAt   *time.Time `gorm:"index" json:"auto_complete_at"`
	EstimatedTime    *int       `json:"estimated_time"`
	ActualTime       *int       `json:"actual_time"`

	Version   uint64    `gorm:"not null;default:1" json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Customer      Customer     `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	Assignee      *User        `gorm:"foreignKey:AssignedTo" json:"assignee,omitempty"`
	FieldEngineer *User        `gorm:"foreignKey:FieldEngineerID" json:"field_engineer,omitempty"`
	Updates       []TaskUpdate `gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE" json:"-"`
}

// AutoCompleteDue reports whether the deferred close of a resolved task has come due.
func (t Task) AutoCompleteDue(now time.Time) bool {
	return t.Status == TaskStatusResolved && t.AutoCompleteAt != nil && !t.AutoCompleteAt.After(now)
}
