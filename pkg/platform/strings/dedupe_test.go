package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeAndTrim(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{name: "nil slice", input: nil, expected: nil},
		{name: "empty slice", input: []string{}, expected: []string{}},
		{
			name:     "removes duplicates preserving order",
			input:    []string{"  foo ", "bar", "foo", "", "  ", "bar"},
			expected: []string{"foo", "bar"},
		},
		{
			name:     "preserves case",
			input:    []string{"Foo", "foo"},
			expected: []string{"Foo", "foo"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DedupeAndTrim(tt.input))
		})
	}
}

func TestDedupeAndTrimUpper(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{name: "nil slice", input: nil, expected: nil},
		{
			name:     "case-insensitive duplicates collapse to first",
			input:    []string{" wvwzzz1jz3w386752 ", "WVWZZZ1JZ3W386752", "jtdkb20u993456789"},
			expected: []string{"WVWZZZ1JZ3W386752", "JTDKB20U993456789"},
		},
		{
			name:     "drops blanks",
			input:    []string{"", "  ", "abc"},
			expected: []string{"ABC"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DedupeAndTrimUpper(tt.input))
		})
	}
}

func TestDedupeBy(t *testing.T) {
	type car struct {
		vin  string
		pool string
	}
	input := []car{{"A", "p1"}, {"B", "p1"}, {"A", "p2"}, {"", "p3"}}

	result := DedupeBy(input, func(c car) string { return c.vin })

	assert.Equal(t, []car{{"A", "p1"}, {"B", "p1"}}, result)
}
