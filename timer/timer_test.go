package timer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMonotonic(t *testing.T) {
	c := NewMonotonic()
	t0 := c.NowMs()
	time.Sleep(5 * time.Millisecond)
	assert.GreaterOrEqual(t, c.NowMs(), t0+5)
}

func TestManual(t *testing.T) {
	c := NewManual(10)
	assert.Equal(t, uint64(10), c.NowMs())
	c.Advance(15)
	assert.Equal(t, uint64(25), c.NowMs())
}
