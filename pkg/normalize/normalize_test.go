package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "lowercases and collapses whitespace",
			input: "  Sunshine   Academy  ",
			want:  "sunshine academy",
		},
		{
			name:  "drops legal suffix",
			input: "Sunshine Academy LLC",
			want:  "sunshine academy",
		},
		{
			name:  "drops stacked legal suffixes",
			input: "Little Stars Inc LLC",
			want:  "little stars",
		},
		{
			name:  "strips punctuation",
			input: "St. Mary's Preschool!",
			want:  "st marys preschool",
		},
		{
			name:  "folds diacritics",
			input: "Crèche Française",
			want:  "creche francaise",
		},
		{
			name:  "hyphen splits words",
			input: "Happy-Kids Day-Care",
			want:  "happy kids day care",
		},
		{
			name:  "empty input",
			input: "",
			want:  "",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Name(tt.input))
		})
	}
}

func TestAddress(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "expands street abbreviation",
			input: "123 Main St",
			want:  "123 main street",
		},
		{
			name:  "expands direction and suite",
			input: "500 N Point Ste 2",
			want:  "500 north point suite 2",
		},
		{
			name:  "already long form unchanged",
			input: "123 Main Street",
			want:  "123 main street",
		},
		{
			name:  "abbreviation with trailing period",
			input: "42 Ocean Ave.",
			want:  "42 ocean avenue",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Address(tt.input))
		})
	}
}

func TestPhone(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "4155550100", Phone("(415) 555-0100"))
	assert.Equal(t, "4155550100", Phone("+1 415.555.0100"))
	assert.Equal(t, "4155550100", Phone("415-555-0100"))
	assert.Equal(t, "", Phone("n/a"))
}

func TestNewSignature(t *testing.T) {
	t.Parallel()

	a := NewSignature("Sunshine Academy LLC", "123 Main St", "(415) 555-0100")
	b := NewSignature("Sunshine Academy", "123 Main Street", "+1 415 555 0100")
	assert.Equal(t, a, b)
}
