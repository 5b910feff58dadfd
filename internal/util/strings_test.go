package util

import "testing"

func TestSafeTruncate(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		maxLen int
		want   string
	}{
		{
			name:   "string shorter than max",
			input:  "short",
			maxLen: 10,
			want:   "short",
		},
		{
			name:   "string equal to max",
			input:  "exact",
			maxLen: 5,
			want:   "exact",
		},
		{
			name:   "string longer than max",
			input:  "very-long-token-abc123",
			maxLen: 8,
			want:   "very-lon",
		},
		{
			name:   "zero max length",
			input:  "anything",
			maxLen: 0,
			want:   "",
		},
		{
			name:   "negative max length",
			input:  "test",
			maxLen: -1,
			want:   "",
		},
		{
			name:   "empty string",
			input:  "",
			maxLen: 5,
			want:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SafeTruncate(tt.input, tt.maxLen)
			if got != tt.want {
				t.Errorf("SafeTruncate(%q, %d) = %q, want %q", tt.input, tt.maxLen, got, tt.want)
			}
		})
	}
}
