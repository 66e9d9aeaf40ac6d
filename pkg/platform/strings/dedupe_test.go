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
		{name: "trims and keeps order", input: []string{"  https://b.example ", "https://a.example"}, expected: []string{"https://b.example", "https://a.example"}},
		{name: "drops empties and repeats", input: []string{"x", "", "  ", "x ", "y"}, expected: []string{"x", "y"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DedupeAndTrim(tt.input))
		})
	}
}

func TestDedupeAndTrimUpper(t *testing.T) {
	assert.Equal(t, []string{"CLIENT", "ADMIN"}, DedupeAndTrimUpper([]string{" client", "Admin", "CLIENT", ""}))
}

func TestSplitList(t *testing.T) {
	assert.Nil(t, SplitList("   "))
	assert.Equal(t, []string{"broker-1:9092", "broker-2:9092"}, SplitList("broker-1:9092, broker-2:9092,,broker-1:9092"))
}
