package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeYAML(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "extra.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadYAMLMap(t *testing.T) {
	path := writeYAML(t, "learning_rate: 0.01\nmodel: resnet18\nepochs: 30\n")

	m, err := loadYAMLMap(path)
	require.NoError(t, err)
	assert.Equal(t, 0.01, m["learning_rate"])
	assert.Equal(t, "resnet18", m["model"])
	assert.Equal(t, 30, m["epochs"])
}

func TestLoadYAMLMapEmptyPath(t *testing.T) {
	m, err := loadYAMLMap("")
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestLoadYAMLMapMissingFileSkipped(t *testing.T) {
	m, err := loadYAMLMap(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestLoadYAMLMapInvalid(t *testing.T) {
	path := writeYAML(t, "{not yaml: [")

	_, err := loadYAMLMap(path)
	require.Error(t, err)
}

func TestLoadYAMLMetrics(t *testing.T) {
	path := writeYAML(t, "final_accuracy: 0.97\nsteps: 1200\n")

	m, err := loadYAMLMetrics(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"final_accuracy": 0.97, "steps": 1200}, m)
}

func TestLoadYAMLMetricsRejectsNonNumeric(t *testing.T) {
	path := writeYAML(t, "status: done\n")

	_, err := loadYAMLMetrics(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a number")
}
