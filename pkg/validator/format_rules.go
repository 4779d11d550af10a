package validator

import (
	"net/mail"
	"regexp"
	"strings"
)

// E.164: optional plus, up to fifteen digits, no leading zero.
var phoneRegex = regexp.MustCompile(`^\+?[1-9]\d{1,14}$`)

// ValidEmail validates that a string is a valid email address.
func ValidEmail(field, value string) Rule {
	return Rule{
		Check: func() bool {
			return IsEmail(value)
		},
		Error: ValidationError{
			Field:   field,
			Message: "must be a valid email address",
			Code:    "validation.email",
			Values:  map[string]any{"field": field},
		},
	}
}

// IsEmail reports whether value is a bare address with a dotted domain.
func IsEmail(value string) bool {
	if strings.TrimSpace(value) == "" {
		return false
	}
	addr, err := mail.ParseAddress(value)
	if err != nil || addr.Address != value {
		return false
	}
	local, domain, ok := strings.Cut(addr.Address, "@")
	if !ok || local == "" {
		return false
	}
	if !strings.Contains(domain, ".") || strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") {
		return false
	}
	for part := range strings.SplitSeq(domain, ".") {
		if part == "" {
			return false
		}
	}
	return true
}

// ValidPhone validates that a string is a phone number in international format.
// Spaces and dashes are ignored.
func ValidPhone(field, value string) Rule {
	return Rule{
		Check: func() bool {
			cleaned := strings.ReplaceAll(strings.ReplaceAll(value, " ", ""), "-", "")
			if len(cleaned) < 7 {
				return false
			}
			return phoneRegex.MatchString(cleaned)
		},
		Error: ValidationError{
			Field:   field,
			Message: "must be a valid phone number in international format",
			Code:    "validation.phone",
			Values:  map[string]any{"field": field},
		},
	}
}
