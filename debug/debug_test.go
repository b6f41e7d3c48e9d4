package debug

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLabels(t *testing.T) {
	SetDebug("PROCMGR; SYSCALL")
	defer SetDebug("")

	assert.True(t, WillBePrinted(PROCMGR))
	assert.True(t, WillBePrinted(SYSCALL))
	assert.False(t, WillBePrinted(FS))
	assert.True(t, WillBePrinted(ALWAYS), "ALWAYS")
}

func TestNoLabels(t *testing.T) {
	SetDebug("")
	assert.False(t, WillBePrinted(TASK))
}
