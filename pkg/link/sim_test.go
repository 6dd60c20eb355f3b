package link

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSimCounter(t *testing.T) {
	var c simCounter

	c.advance(100)
	assert.Zero(t, c.Count(), "stopped counter does not advance")

	c.Start()
	c.advance(100)
	c.advance(23.9)
	assert.Equal(t, uint32(123), c.Count())
	assert.False(t, c.Overflowed())

	c.advance(math.MaxUint32)
	assert.True(t, c.Overflowed())

	c.Reset()
	assert.Zero(t, c.Count())
	assert.False(t, c.Overflowed())
}

func TestSimEXTI(t *testing.T) {
	var e simEXTI
	e.Unmask(LineGenerator)
	e.Unmask(LineButton)
	assert.True(t, e.enabled(LineGenerator))
	assert.False(t, e.enabled(Line555))

	e.Mask(LineGenerator)
	assert.False(t, e.enabled(LineGenerator))
	assert.True(t, e.enabled(LineButton))
}

func TestTriangle(t *testing.T) {
	assert.InDelta(t, 0, triangle(0, 4095), 1e-9)
	assert.InDelta(t, 2047.5, triangle(0.25, 4095), 1e-9)
	assert.InDelta(t, 4095, triangle(0.5, 4095), 1e-9)
	assert.InDelta(t, 2047.5, triangle(1.75, 4095), 1e-9)
}
