package bookshelf_test

import (
	"testing"
	"time"

	bookshelf "github.com/goliatone/go-bookshelf"
	"github.com/stretchr/testify/assert"
)

func TestIsWithinThresholdPeriodAt(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name          string
		inputTime     time.Time
		thresholdExpr string
		expected      bool
		expectErr     bool
	}{
		{
			name:          "Within 1 hour threshold",
			inputTime:     now.Add(-30 * time.Minute),
			thresholdExpr: "1h",
			expected:      true,
		},
		{
			name:          "Outside 1 hour threshold",
			inputTime:     now.Add(-90 * time.Minute),
			thresholdExpr: "1h",
			expected:      false,
		},
		{
			name:          "At exact threshold",
			inputTime:     now.Add(-1 * time.Hour),
			thresholdExpr: "1h",
			expected:      false, // we check if time is AFTER threshold
		},
		{
			name:          "Complex threshold (2h30m)",
			inputTime:     now.Add(-2 * time.Hour),
			thresholdExpr: "2h30m",
			expected:      true,
		},
		{
			name:          "Future time",
			inputTime:     now.Add(1 * time.Hour),
			thresholdExpr: "2h",
			expected:      true,
		},
		{
			name:          "Within resend cooldown",
			inputTime:     now.Add(-23 * time.Hour),
			thresholdExpr: bookshelf.ActivationCooldownPeriod,
			expected:      true,
		},
		{
			name:          "Outside resend cooldown",
			inputTime:     now.Add(-25 * time.Hour),
			thresholdExpr: bookshelf.ActivationCooldownPeriod,
			expected:      false,
		},
		{
			name:          "Invalid threshold expression",
			inputTime:     now,
			thresholdExpr: "one day",
			expectErr:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := bookshelf.IsWithinThresholdPeriodAt(now, tt.inputTime, tt.thresholdExpr)

			if tt.expectErr {
				assert.Error(t, err)
				return
			}

			assert.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestIsOutsideThresholdPeriod(t *testing.T) {
	got, err := bookshelf.IsOutsideThresholdPeriod(time.Now().Add(-48*time.Hour), "24h")
	assert.NoError(t, err)
	assert.True(t, got)

	got, err = bookshelf.IsOutsideThresholdPeriod(time.Now().Add(-time.Minute), "24h")
	assert.NoError(t, err)
	assert.False(t, got)

	_, err = bookshelf.IsOutsideThresholdPeriod(time.Now(), "bogus")
	assert.Error(t, err)
}
