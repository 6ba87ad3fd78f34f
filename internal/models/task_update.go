package models

import (
	"time"

	"gorm.io/datatypes"
)

type UpdateType string

const (
	UpdateTypeCreated       UpdateType = "created"
	UpdateTypeStatusChange  UpdateType = "status_change"
	UpdateTypeAssignment    UpdateType = "assignment"
	UpdateTypeCompletion    UpdateType = "completion"
	UpdateTypeNoteAdded     UpdateType = "note_added"
	UpdateTypeFileUploaded  UpdateType = "file_uploaded"
	UpdateTypeAutoCompleted UpdateType = "auto_completed"
)

type ActorType string

const (
	ActorUser     ActorType = "user"
	ActorCustomer ActorType = "customer"
	ActorSystem   ActorType = "system"
)

// TaskUpdate is an append-only audit entry. Rows are never modified.
type TaskUpdate struct {
	ID          uint64         `gorm:"primarykey" json:"id"`
	TaskID      uint64         `gorm:"not null;index:idx_task_updates_task_created,priority:1" json:"task_id"`
	UpdatedBy   *uint64        `json:"updated_by"`
	ActorType   ActorType      `gorm:"type:varchar(20);not null" json:"actor_type"`
	UpdateType  UpdateType     `gorm:"type:varchar(30);not null" json:"update_type"`
	OldValue    *string        `gorm:"type:text" json:"old_value"`
	NewValue    *string        `gorm:"type:text" json:"new_value"`
	Note        string         `gorm:"type:text" json:"note"`
	Attachments datatypes.JSON `json:"attachments,omitempty"`
	CreatedAt   time.Time      `gorm:"index:idx_task_updates_task_created,priority:2" json:"created_at"`

	Actor *User `gorm:"foreignKey:UpdatedBy" json:"actor,omitempty"`
}
