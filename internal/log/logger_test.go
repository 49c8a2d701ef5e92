package log

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetLevelFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetLevel("info")

	SetLevel("info")
	Debug("hidden message")
	assert.NotContains(t, buf.String(), "hidden message")

	SetLevel("debug")
	Debug("visible message", "kind", "FSDJump")
	assert.Contains(t, buf.String(), "visible message")
	assert.Contains(t, buf.String(), "kind=FSDJump")
}

func TestSetLevelUnknownFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetLevel("info")

	SetLevel("chatty")
	Debug("dropped")
	Info("kept")

	assert.NotContains(t, buf.String(), "dropped")
	assert.Contains(t, buf.String(), "level=INFO")
}
