package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/wizone/it-support-api/internal/models"
)

var (
	ErrTriageNotConfigured = errors.New("triage service is not configured")
	ErrDescriptionRequired = errors.New("description is required")
	ErrTriageNoSuggestion  = errors.New("triage returned no suggestion")
	ErrTriageUnavailable   = errors.New("triage model is unavailable")
)

// ChatCompleter is the subset of the OpenAI client used for triage.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// TriageSuggestion is a proposed classification for a new ticket.
type TriageSuggestion struct {
	Priority  models.TaskPriority `json:"priority"`
	IssueType string              `json:"issue_type"`
	Summary   string              `json:"summary"`
}

// TriageService classifies ticket descriptions with an LLM.
type TriageService struct {
	client ChatCompleter
	model  string
}

// NewTriageService creates a TriageService backed by OpenAI. An empty key
// yields a service that reports ErrTriageNotConfigured.
func NewTriageService(apiKey string) *TriageService {
	if strings.TrimSpace(apiKey) == "" {
		return &TriageService{}
	}
	return NewTriageServiceWithClient(openai.NewClient(apiKey))
}

// NewTriageServiceWithClient creates a TriageService with a custom client.
func NewTriageServiceWithClient(client ChatCompleter) *TriageService {
	return &TriageService{client: client, model: openai.GPT4oMini}
}

// Enabled reports whether a model client is configured.
func (s *TriageService) Enabled() bool {
	return s != nil && s.client != nil
}

// Suggest proposes a priority and issue type for a ticket description.
func (s *TriageService) Suggest(ctx context.Context, description string) (*TriageSuggestion, error) {
	if !s.Enabled() {
		return nil, ErrTriageNotConfigured
	}
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, ErrDescriptionRequired
	}

	prompt := fmt.Sprintf(`You triage support tickets for an internet service provider.
Classify the ticket below and answer with JSON only:
{"priority": "low|medium|high|critical", "issue_type": "short category such as connectivity, billing, hardware, installation", "summary": "one sentence"}

Ticket:
%s`, description)

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.2,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTriageUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return nil, ErrTriageNoSuggestion
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var suggestion TriageSuggestion
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &suggestion); err != nil {
		return nil, fmt.Errorf("%w: unparsable response: %w", ErrTriageNoSuggestion, err)
	}

	suggestion.Priority = models.TaskPriority(strings.ToLower(strings.TrimSpace(string(suggestion.Priority))))
	if !suggestion.Priority.Valid() {
		suggestion.Priority = models.PriorityMedium
	}
	suggestion.IssueType = strings.TrimSpace(suggestion.IssueType)

	return &suggestion, nil
}
