package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectPlatform(t *testing.T) {
	tests := []struct {
		name      string
		userAgent string
		expected  Platform
		detected  bool
	}{
		{
			name:      "iphone",
			userAgent: "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15",
			expected:  PlatformIOS,
			detected:  true,
		},
		{
			name:      "ipad",
			userAgent: "Mozilla/5.0 (iPad; CPU OS 16_6 like Mac OS X)",
			expected:  PlatformIOS,
			detected:  true,
		},
		{
			name:      "android",
			userAgent: "Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36",
			expected:  PlatformAndroid,
			detected:  true,
		},
		{
			name:      "playstation",
			userAgent: "Mozilla/5.0 (PlayStation 5/SmartTV) AppleWebKit/605.1.15",
			expected:  PlatformPlaystation,
			detected:  true,
		},
		{
			name:      "xbox resolves to console despite windows token",
			userAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64; Xbox; Xbox Series X)",
			expected:  PlatformXbox,
			detected:  true,
		},
		{
			name:      "nintendo switch",
			userAgent: "Mozilla/5.0 (Nintendo Switch; WifiWebAuthApplet) AppleWebKit/606.4",
			expected:  PlatformNintendo,
			detected:  true,
		},
		{
			name:      "steam overlay",
			userAgent: "Mozilla/5.0 (Windows; U) Valve Steam GameOverlay/1700000000",
			expected:  PlatformSteam,
			detected:  true,
		},
		{
			name:      "macos after apple mobile devices",
			userAgent: "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36",
			expected:  PlatformMacOS,
			detected:  true,
		},
		{
			name:      "windows desktop",
			userAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36",
			expected:  PlatformWindows,
			detected:  true,
		},
		{
			name:      "unknown",
			userAgent: "curl/8.4.0",
			detected:  false,
		},
		{
			name:      "empty",
			userAgent: "",
			detected:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			platform, ok := DetectPlatform(tt.userAgent)
			assert.Equal(t, tt.detected, ok)
			assert.Equal(t, tt.expected, platform)
		})
	}
}

func TestPlatformValid(t *testing.T) {
	for _, platform := range Platforms {
		assert.True(t, platform.Valid(), platform)
	}
	assert.False(t, Platform("gameboy").Valid())
	assert.False(t, Platform("").Valid())
}

func TestMilestonesCrossed(t *testing.T) {
	tests := []struct {
		name     string
		prev     int64
		cur      int64
		expected []int64
	}{
		{name: "no boundary", prev: 10, cur: 50},
		{name: "single boundary", prev: 99, cur: 100, expected: []int64{100}},
		{name: "jump over one boundary", prev: 80, cur: 120, expected: []int64{100}},
		{name: "bundle jumping two boundaries", prev: 498, cur: 1002, expected: []int64{500, 1000}},
		{name: "already past", prev: 100, cur: 105},
		{name: "top boundary", prev: 9999, cur: 10000, expected: []int64{10000}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, MilestonesCrossed(tt.prev, tt.cur))
		})
	}
}
