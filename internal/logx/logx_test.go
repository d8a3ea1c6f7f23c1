package logx

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCategoryAndLevelAreTagged(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)

	Info("LEDGER", "applied ", 3, " ops")
	assert.Contains(t, buf.String(), "[INFO][LEDGER]")
	assert.Contains(t, buf.String(), "applied 3 ops")
}

func TestDebugIsGatedByLevel(t *testing.T) {
	var buf bytes.Buffer

	Init(Options{Level: "info"})
	SetOutput(&buf)
	Debug("LEDGER", "hidden")
	assert.Empty(t, buf.String())

	Init(Options{Level: "debug"})
	SetOutput(&buf)
	Debug("LEDGER", "shown")
	assert.Contains(t, buf.String(), "[DEBUG][LEDGER]")
}
