package sms

import (
	"fmt"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// Normalize parses num and formats it as E.164.
// Numbers without a leading + are parsed in region; with an empty region they
// are rejected.
func Normalize(num, region string) (string, error) {
	num = strings.TrimSpace(num)
	if num == "" {
		return "", fmt.Errorf("%w: missing number", ErrInvalidNumber)
	}
	if !strings.HasPrefix(num, "+") && region == "" {
		return "", fmt.Errorf("%w: %q must be in E.164 format", ErrInvalidNumber, num)
	}

	parsed, err := phonenumbers.Parse(num, strings.ToUpper(region))
	if err != nil || !phonenumbers.IsValidNumber(parsed) {
		return "", fmt.Errorf("%w: %q", ErrInvalidNumber, num)
	}
	return phonenumbers.Format(parsed, phonenumbers.E164), nil
}
