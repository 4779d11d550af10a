package notifications

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/dmitrymomot/notifykit/pkg/logger"
)

// CreateTemplate stores a new template and publishes template.created.
func (m *Manager) CreateTemplate(ctx context.Context, in TemplateInput) (*Template, error) {
	t, err := m.createTemplate(ctx, in)
	if err != nil {
		return nil, err
	}

	m.publish(ctx, EventsTopic, RoutingKeyTemplateCreated, TemplateCreatedEvent{
		TemplateID: t.ID,
		Name:       t.Name,
		Channel:    t.Channel,
		Timestamp:  t.CreatedAt,
	})
	return t, nil
}

func (m *Manager) createTemplate(ctx context.Context, in TemplateInput) (*Template, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	now := m.now().UTC()
	t := Template{
		ID:        uuid.NewString(),
		Name:      in.Name,
		Channel:   in.Channel,
		Subject:   in.Subject,
		Content:   in.Content,
		Variables: cloneMap(in.Variables),
		IsActive:  in.IsActive == nil || *in.IsActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := m.store.CreateTemplate(ctx, t); err != nil {
		return nil, err
	}

	m.logger.LogAttrs(ctx, slog.LevelInfo, "template created",
		logger.TemplateName(t.Name),
		logger.Channel(t.Channel.String()),
	)
	return &t, nil
}

// GetTemplate returns an active template by name.
func (m *Manager) GetTemplate(ctx context.Context, name string) (*Template, error) {
	return m.store.TemplateByName(ctx, name)
}

// ListTemplates returns every stored template, active or not.
func (m *Manager) ListTemplates(ctx context.Context) ([]Template, error) {
	return m.store.Templates(ctx)
}

// SeedTemplates creates the templates that do not exist yet and returns how
// many were created. Existing names are left untouched and no events are published.
func (m *Manager) SeedTemplates(ctx context.Context, inputs []TemplateInput) (int, error) {
	created := 0
	for _, in := range inputs {
		_, err := m.createTemplate(ctx, in)
		switch {
		case err == nil:
			created++
		case errors.Is(err, ErrTemplateAlreadyExists):
			// already seeded
		default:
			return created, fmt.Errorf("seed template %q: %w", in.Name, err)
		}
	}
	return created, nil
}

type templateFile struct {
	Templates []TemplateInput `yaml:"templates"`
}

// LoadTemplates decodes a YAML document of the form
//
//	templates:
//	  - name: welcome_email
//	    type: email
//	    subject: "Welcome, {{firstName}}"
//	    content: "..."
func LoadTemplates(r io.Reader) ([]TemplateInput, error) {
	var f templateFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("decode templates: %w", err)
	}
	return f.Templates, nil
}
