package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRemainingExcludesReservedCodes(t *testing.T) {
	tests := []struct {
		name     string
		batch    CodeBatch
		expected int
	}{
		{
			name:     "no reserved rows",
			batch:    CodeBatch{TotalCodes: 10, UsedCodes: 4},
			expected: 6,
		},
		{
			name:     "reserved rows held back",
			batch:    CodeBatch{TotalCodes: 10, ReservedCodes: 3, UsedCodes: 4},
			expected: 3,
		},
		{
			name:     "public pool drained with reserved rows left",
			batch:    CodeBatch{TotalCodes: 10, ReservedCodes: 3, UsedCodes: 7},
			expected: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.batch.Remaining())
		})
	}
}

func TestLowThresholdCrossed(t *testing.T) {
	tests := []struct {
		name      string
		remaining int
		threshold int
		expected  bool
	}{
		{name: "lands exactly on threshold", remaining: 5, threshold: 5, expected: true},
		{name: "still above threshold", remaining: 6, threshold: 5, expected: false},
		{name: "already below before the claim", remaining: 4, threshold: 5, expected: false},
		{name: "batch started below threshold", remaining: 2, threshold: 5, expected: false},
		{name: "threshold disabled", remaining: 0, threshold: 0, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, LowThresholdCrossed(tt.remaining, tt.threshold))
		})
	}
}
