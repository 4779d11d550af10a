package validator

import (
	"fmt"
	"slices"
)

// InList validates that value is one of allowedValues.
func InList[T comparable](field string, value T, allowedValues []T) Rule {
	return Rule{
		Check: func() bool {
			return slices.Contains(allowedValues, value)
		},
		Error: ValidationError{
			Field:   field,
			Message: fmt.Sprintf("must be one of: %v", allowedValues),
			Code:    "validation.in_list",
			Values:  map[string]any{"field": field, "allowed_values": allowedValues},
		},
	}
}
