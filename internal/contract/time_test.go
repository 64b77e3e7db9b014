package contract

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestParseWindowDuration covers compact, Go-native and human formats.
func TestParseWindowDuration(t *testing.T) {
	tests := []struct {
		input    string
		expected time.Duration
		wantErr  bool
	}{
		{"7d", 7 * 24 * time.Hour, false},
		{"168h", 168 * time.Hour, false},
		{"30m", 30 * time.Minute, false},
		{"2 weeks", 14 * 24 * time.Hour, false},
		{"3 months", 90 * 24 * time.Hour, false},
		{"1 year", 365 * 24 * time.Hour, false},
		{"36 hours", 36 * time.Hour, false},
		{" 1 day ", 24 * time.Hour, false},
		{"1w", 7 * 24 * time.Hour, false},
		{"", 0, true},
		{"0h", 0, true},
		{"-2h", 0, true},
		{"soon", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			d, err := ParseWindowDuration(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, d)
		})
	}
}

func TestWindowHours(t *testing.T) {
	assert.Equal(t, 168.0, WindowHours(7*24*time.Hour))
	assert.Equal(t, 0.5, WindowHours(30*time.Minute))
}
