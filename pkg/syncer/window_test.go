package syncer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNextWindow(t *testing.T) {
	tests := []struct {
		name          string
		lastRead      int64
		lastConfirmed int64
		maxWindow     int64
		wantFrom      int64
		wantTo        int64
		wantOK        bool
	}{
		{
			name:          "first pass starts at genesis",
			lastRead:      0,
			lastConfirmed: 50,
			maxWindow:     1000,
			wantFrom:      0,
			wantTo:        50,
			wantOK:        true,
		},
		{
			name:          "continues after last read block",
			lastRead:      100,
			lastConfirmed: 150,
			maxWindow:     1000,
			wantFrom:      101,
			wantTo:        150,
			wantOK:        true,
		},
		{
			name:          "clamps to max window",
			lastRead:      100,
			lastConfirmed: 500,
			maxWindow:     200,
			wantFrom:      300,
			wantTo:        500,
			wantOK:        true,
		},
		{
			name:          "clamp never goes below genesis",
			lastRead:      0,
			lastConfirmed: 100,
			maxWindow:     999999,
			wantFrom:      0,
			wantTo:        100,
			wantOK:        true,
		},
		{
			name:          "not enough confirmations",
			lastRead:      500,
			lastConfirmed: 400,
			maxWindow:     1000,
			wantFrom:      501,
			wantTo:        400,
			wantOK:        false,
		},
		{
			name:          "single block window is valid",
			lastRead:      99,
			lastConfirmed: 100,
			maxWindow:     1000,
			wantFrom:      100,
			wantTo:        100,
			wantOK:        true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			from, to, ok := NextWindow(tt.lastRead, tt.lastConfirmed, tt.maxWindow)
			assert.Equal(t, tt.wantFrom, from)
			assert.Equal(t, tt.wantTo, to)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}
