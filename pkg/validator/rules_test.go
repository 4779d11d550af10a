package validator_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/notifykit/pkg/validator"
)

func TestRules(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		rule validator.Rule
		want bool
	}{
		{"required ok", validator.RequiredString("f", "v"), true},
		{"required blank", validator.RequiredString("f", " \t"), false},
		{"max len ok", validator.MaxLenString("f", "héllo", 5), true},
		{"max len exceeded", validator.MaxLenString("f", "hello!", 5), false},
		{"in list ok", validator.InList("f", "sms", []string{"email", "sms"}), true},
		{"in list miss", validator.InList("f", "fax", []string{"email", "sms"}), false},
		{"min ok", validator.MinNum("f", 0, 0), true},
		{"min miss", validator.MinNum("f", -1, 0), false},
		{"max ok", validator.MaxNum("f", 10, 10), true},
		{"max miss", validator.MaxNum("f", 11, 10), false},
		{"email ok", validator.ValidEmail("f", "a@b.com"), true},
		{"email display name", validator.ValidEmail("f", "Bob <a@b.com>"), false},
		{"email no dot", validator.ValidEmail("f", "a@localhost"), false},
		{"email empty", validator.ValidEmail("f", ""), false},
		{"phone ok", validator.ValidPhone("f", "+1 415-555-2671"), true},
		{"phone short", validator.ValidPhone("f", "+1234"), false},
		{"phone letters", validator.ValidPhone("f", "+1415CALLME"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.rule.Check())
		})
	}
}
