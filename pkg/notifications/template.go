package notifications

import (
	"fmt"
	"strings"
	"time"
)

// Template is reusable content with {{key}} placeholders.
type Template struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Channel   Channel        `json:"type"`
	Subject   string         `json:"subject,omitempty"`
	Content   string         `json:"content"`
	Variables map[string]any `json:"variables,omitempty"`
	IsActive  bool           `json:"isActive"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// Render resolves the template's subject and content against vars.
func (t Template) Render(vars map[string]any) (subject, content string) {
	return Render(t.Subject, vars), Render(t.Content, vars)
}

func (t Template) clone() Template {
	t.Variables = cloneMap(t.Variables)
	return t
}

// Render replaces every {{key}} whose key exists in vars with the value's
// string form. Unknown placeholders are left as written. The text is scanned
// once from left to right, so substituted values are never expanded again.
func Render(text string, vars map[string]any) string {
	if len(vars) == 0 || !strings.Contains(text, "{{") {
		return text
	}

	var b strings.Builder
	b.Grow(len(text))
	rest := text
	for {
		open := strings.Index(rest, "{{")
		if open < 0 {
			break
		}
		end := strings.Index(rest[open+2:], "}}")
		if end < 0 {
			break
		}
		key := rest[open+2 : open+2+end]
		v, ok := vars[key]
		if !ok {
			// Keep the opening braces and resume right after them so a
			// placeholder nested inside an unknown one is still found.
			b.WriteString(rest[:open+2])
			rest = rest[open+2:]
			continue
		}
		b.WriteString(rest[:open])
		b.WriteString(stringify(v))
		rest = rest[open+2+end+2:]
	}
	b.WriteString(rest)
	return b.String()
}

func stringify(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case time.Time:
		return s.Format(time.RFC3339)
	default:
		return fmt.Sprint(v)
	}
}
