package notifications

import (
	"time"

	"github.com/dmitrymomot/notifykit/pkg/validator"
)

const (
	maxSubjectLength = 255
	maxRetriesLimit  = 10
)

// CreateRequest asks the Manager to notify a user.
type CreateRequest struct {
	UserID       string     `json:"userId"`
	Channel      Channel    `json:"type"`
	TemplateName string     `json:"templateName,omitempty"`
	Subject      string     `json:"subject,omitempty"`
	Content      string     `json:"content,omitempty"`
	Priority     Priority   `json:"priority,omitempty"`
	ScheduledAt  *time.Time `json:"scheduledAt,omitempty"`
	// Variables feed template placeholders. When nil, Metadata is used instead.
	Variables  map[string]any `json:"variables,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	MaxRetries int            `json:"maxRetries,omitempty"`
}

// Validate reports malformed requests as a *ValidationError.
func (r CreateRequest) Validate() error {
	return newValidationError(validator.Apply(
		validator.RequiredString("userId", r.UserID),
		validator.InList("type", r.Channel, Channels),
		validator.When(r.TemplateName == "", validator.RequiredString("content", r.Content)),
		validator.When(r.Priority != "", validator.InList("priority", r.Priority, Priorities)),
		validator.MaxLenString("subject", r.Subject, maxSubjectLength),
		validator.MinNum("maxRetries", r.MaxRetries, 0),
		validator.MaxNum("maxRetries", r.MaxRetries, maxRetriesLimit),
	))
}

func (r CreateRequest) templateVars() map[string]any {
	if r.Variables != nil {
		return r.Variables
	}
	return r.Metadata
}

// TemplateInput is the payload for creating a template.
type TemplateInput struct {
	Name      string         `json:"name" yaml:"name"`
	Channel   Channel        `json:"type" yaml:"type"`
	Subject   string         `json:"subject,omitempty" yaml:"subject"`
	Content   string         `json:"content" yaml:"content"`
	Variables map[string]any `json:"variables,omitempty" yaml:"variables"`
	// IsActive defaults to true when nil.
	IsActive *bool `json:"isActive,omitempty" yaml:"isActive"`
}

// Validate reports malformed input as a *ValidationError.
func (in TemplateInput) Validate() error {
	return newValidationError(validator.Apply(
		validator.RequiredString("name", in.Name),
		validator.MaxLenString("name", in.Name, 100),
		validator.InList("type", in.Channel, Channels),
		validator.RequiredString("content", in.Content),
		validator.MaxLenString("subject", in.Subject, maxSubjectLength),
	))
}

// Validate reports malformed updates as a *ValidationError.
func (u PreferencesUpdate) Validate() error {
	return newValidationError(validator.Apply(
		validator.RequiredString("userId", u.UserID),
		validator.When(u.EmailAddress != nil && *u.EmailAddress != "",
			validator.ValidEmail("emailAddress", deref(u.EmailAddress))),
		validator.When(u.PhoneNumber != nil && *u.PhoneNumber != "",
			validator.ValidPhone("phoneNumber", deref(u.PhoneNumber))),
	))
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
