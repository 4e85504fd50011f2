package diagnostics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCaptureComputesMeanAndViolations(t *testing.T) {
	pos := []mgl32.Vec3{{0, 0, 0}, {100, 0, 0}}
	vel := []mgl32.Vec3{{1, 0, 0}, {3, 0, 0}}
	stats := Capture(5, pos, vel, [3]float32{10, 10, 10}, 3)

	assert.Equal(t, 5, stats.Frame)
	assert.InDelta(t, 2.0, stats.MeanSpeed, 1e-6)
	assert.Equal(t, 1, stats.BoundsViolations)
	assert.Equal(t, 3, stats.FoamLiveCount)
}

func TestCSVWriterRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stats.csv")

	w, err := NewCSVWriter(path)
	require.NoError(t, err)
	require.NoError(t, w.Write(FrameStats{Frame: 1, MeanSpeed: 0.5}))
	require.NoError(t, w.Write(FrameStats{Frame: 2, MeanSpeed: 0.6}))
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "frame")
	assert.Contains(t, string(data), "0.5")
}
