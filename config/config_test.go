package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPassesValidate(t *testing.T) {
	c := Default()
	assert.NoError(t, Validate(c))
}

func TestValidateRejectsNonPositiveRadius(t *testing.T) {
	c := Default()
	c.SmoothingRadius = 0
	err := Validate(c)
	require.Error(t, err)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Error(), "smoothingRadius")
}

func TestValidateRejectsEmptySpawnRegions(t *testing.T) {
	c := Default()
	c.SpawnRegions = nil
	err := Validate(c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "spawnRegions must not be empty")
}

func TestValidateRejectsNegativeDensity(t *testing.T) {
	c := Default()
	c.SpawnDensity = -1
	err := Validate(c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "spawnDensity")
}

func TestValidateAggregatesMultipleProblems(t *testing.T) {
	c := Default()
	c.SmoothingRadius = -1
	c.ParticleRadius = 0
	c.SpawnRegions = nil
	err := Validate(c)
	require.Error(t, err)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Problems, 3)
}

func TestValidateRejectsBadObstacleConfig(t *testing.T) {
	c := Default()
	c.ObstacleEnabled = true
	c.ObstacleShape = "box"
	c.ObstacleSize = [3]float32{0, 1, 1}
	err := Validate(c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "obstacleSize")
}

func TestWriteDefaultAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fluidkit.yaml")
	require.NoError(t, WriteDefault(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotEmpty(t, data)

	loader, err := NewLoader(path)
	require.NoError(t, err)
	c, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, Default().SmoothingRadius, c.SmoothingRadius)
	assert.Equal(t, Default().Foam.Capacity, c.Foam.Capacity)
}

func TestLoaderAppliesDefaultsForOmittedFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "partial.yaml")
	require.NoError(t, os.WriteFile(path, []byte("gravity: 20\n"), 0o644))

	loader, err := NewLoader(path)
	require.NoError(t, err)
	c, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, float32(20), c.Gravity)
	assert.Equal(t, Default().SmoothingRadius, c.SmoothingRadius)
}
