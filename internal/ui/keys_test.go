// ABOUTME: Tests for the playback key map
// ABOUTME: Checks key name matching and the overlay hint line
package ui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeysMatch(t *testing.T) {
	tests := []struct {
		name string
		ev   Event
		want bool
	}{
		{"space toggles", KeyEvent(" "), true},
		{"named space toggles", KeyEvent("space"), true},
		{"k toggles", KeyEvent("k"), true},
		{"q does not toggle", KeyEvent("q"), false},
		{"resize is not a key", ResizeEvent(80, 24), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Matches(tt.ev, Keys.Toggle))
		})
	}

	assert.True(t, Matches(KeyEvent("ctrl+c"), Keys.Quit))
	assert.True(t, Matches(KeyEvent("left"), Keys.Back))
	assert.True(t, Matches(KeyEvent("right"), Keys.Forward))
}

func TestKeysHints(t *testing.T) {
	assert.Equal(t, "k pause  j/l seek  q quit", Keys.Hints())
}
