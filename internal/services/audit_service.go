package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/wizone/it-support-api/internal/constants"
	"github.com/wizone/it-support-api/internal/models"
	"github.com/wizone/it-support-api/internal/repository"
)

var (
	ErrNoteTooLong        = fmt.Errorf("note exceeds %d characters", constants.MaxNoteLength)
	ErrTooManyAttachments = fmt.Errorf("at most %d attachments are allowed", constants.MaxAttachments)
	ErrEmptyUpdate        = errors.New("a note or at least one attachment is required")
)

const detailsUpdatedNote = "Task details updated"

// AuditService reads and appends task audit entries.
type AuditService struct {
	tasks   repository.TaskRepository
	updates repository.TaskUpdateRepository
}

// NewAuditService creates a new AuditService.
func NewAuditService(tasks repository.TaskRepository, updates repository.TaskUpdateRepository) *AuditService {
	return &AuditService{tasks: tasks, updates: updates}
}

// Record appends one entry to an existing task's trail.
func (s *AuditService) Record(ctx context.Context, entry *models.TaskUpdate) error {
	if _, err := s.tasks.FindByID(ctx, entry.TaskID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTaskNotFound
		}
		return fmt.Errorf("failed to find task: %w", err)
	}
	if err := s.updates.Create(ctx, entry); err != nil {
		return fmt.Errorf("failed to record task update: %w", err)
	}
	return nil
}

// History returns the trail of a task in creation order.
func (s *AuditService) History(ctx context.Context, taskID uint64) ([]models.TaskUpdate, error) {
	updates, err := s.updates.ListByTask(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list task updates: %w", err)
	}
	return updates, nil
}

// StatusSequence replays the trail into the statuses the task held.
func (s *AuditService) StatusSequence(ctx context.Context, taskID uint64) ([]models.TaskStatus, error) {
	updates, err := s.History(ctx, taskID)
	if err != nil {
		return nil, err
	}
	return replayStatuses(updates), nil
}

func replayStatuses(updates []models.TaskUpdate) []models.TaskStatus {
	var seq []models.TaskStatus
	for _, u := range updates {
		if u.NewValue == nil {
			continue
		}
		if u.UpdateType == models.UpdateTypeCreated || u.UpdateType == models.UpdateTypeStatusChange {
			seq = append(seq, models.TaskStatus(*u.NewValue))
		}
	}
	return seq
}

func validateNote(note string, attachments []string) (string, error) {
	note = strings.TrimSpace(note)
	if len([]rune(note)) > constants.MaxNoteLength {
		return "", ErrNoteTooLong
	}
	if len(attachments) > constants.MaxAttachments {
		return "", ErrTooManyAttachments
	}
	return note, nil
}

func strPtr(s string) *string {
	return &s
}

func idPtrString(id *uint64) *string {
	if id == nil {
		return nil
	}
	return strPtr(strconv.FormatUint(*id, 10))
}

func userEntry(actor Actor, updateType models.UpdateType, oldValue, newValue *string, note string) models.TaskUpdate {
	return models.TaskUpdate{
		UpdatedBy:  actor.id(),
		ActorType:  models.ActorUser,
		UpdateType: updateType,
		OldValue:   oldValue,
		NewValue:   newValue,
		Note:       note,
	}
}

func systemEntry(updateType models.UpdateType, oldValue, newValue *string, note string) models.TaskUpdate {
	return models.TaskUpdate{
		ActorType:  models.ActorSystem,
		UpdateType: updateType,
		OldValue:   oldValue,
		NewValue:   newValue,
		Note:       note,
	}
}

func statusEntry(actor Actor, from, to models.TaskStatus, note string) models.TaskUpdate {
	return userEntry(actor, models.UpdateTypeStatusChange, strPtr(string(from)), strPtr(string(to)), note)
}

func attachmentEntry(actor Actor, attachments []string) (models.TaskUpdate, error) {
	raw, err := json.Marshal(attachments)
	if err != nil {
		return models.TaskUpdate{}, fmt.Errorf("failed to encode attachments: %w", err)
	}
	entry := userEntry(actor, models.UpdateTypeFileUploaded, nil, nil,
		fmt.Sprintf("%d file(s) attached", len(attachments)))
	entry.Attachments = datatypes.JSON(raw)
	return entry, nil
}
