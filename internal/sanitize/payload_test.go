package sanitize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractStructuredPayload(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected string
	}{
		{
			name:     "json fence",
			raw:      "```json\n{\"organ\":\"heart\",\"labels\":[\"left ventricle\"]}\n```",
			expected: `{"organ":"heart","labels":["left ventricle"]}`,
		},
		{
			name:     "bare fence",
			raw:      "```\n{\"organ\":\"liver\"}\n```",
			expected: `{"organ":"liver"}`,
		},
		{
			name:     "prose around object",
			raw:      "Sure! Here is the answer: {\"organ\": \"brain\", \"labels\": []} Hope this helps.",
			expected: `{"organ": "brain", "labels": []}`,
		},
		{
			name:     "nested object keeps outer braces",
			raw:      `{"organ":"lung","meta":{"side":"left"}}`,
			expected: `{"organ":"lung","meta":{"side":"left"}}`,
		},
		{
			name:     "no braces returns trimmed text",
			raw:      "   I cannot identify this image.  ",
			expected: "I cannot identify this image.",
		},
		{
			name:     "closing before opening",
			raw:      "} nothing {",
			expected: "} nothing {",
		},
		{
			name:     "empty",
			raw:      "   ",
			expected: "",
		},
		{
			name:     "fence without trailing counterpart",
			raw:      "```json\n{\"organ\":\"eye\"}",
			expected: `{"organ":"eye"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExtractStructuredPayload(tt.raw))
		})
	}
}
