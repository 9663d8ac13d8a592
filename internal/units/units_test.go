package units

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMphConversionRoundTrip(t *testing.T) {
	assert.InDelta(t, 26.8224, MphToMps(60), 1e-9)
	assert.InDelta(t, 60, MpsToMph(MphToMps(60)), 1e-9)
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0.0, Clamp(-1, 0, 1))
	assert.Equal(t, 1.0, Clamp(2, 0, 1))
	assert.Equal(t, 0.5, Clamp(0.5, 0, 1))
}

func TestRescale(t *testing.T) {
	assert.Equal(t, 0.0, Rescale(-0.95, -0.95, -0.1))
	assert.Equal(t, 1.0, Rescale(-0.1, -0.95, -0.1))
	assert.InDelta(t, 0.5, Rescale(-0.525, -0.95, -0.1), 1e-9)
	// Degenerate interval collapses to zero instead of dividing by zero.
	assert.Equal(t, 0.0, Rescale(5, 3, 3))
}
