package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeStrandsYAML(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "strands.yaml"), []byte(content), 0o600))
}

const minimalStrandsYAML = `
system:
  log_level: info
providers:
  - name: prometheus-prod
    priority: 10
    severity_map:
      page: critical
      warn: warning
decision:
  policy: BALANCED
  model_version: v1
  default_automation: MANUAL
adapters:
  generator_api_key_env: ANTHROPIC_API_KEY
`

func TestInitialize_LoadsAndValidatesMinimalConfig(t *testing.T) {
	dir := t.TempDir()
	writeStrandsYAML(t, dir, minimalStrandsYAML)

	cfg, err := Initialize(context.Background(), dir)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, dir, cfg.ConfigDir())
	assert.Equal(t, "BALANCED", cfg.Decision.Policy)
	assert.Equal(t, "v1", cfg.Decision.ModelVersion)
	assert.NotEmpty(t, cfg.Decision.Weights.Weights)
	assert.Equal(t, DefaultTickIntervalS, cfg.System.TickIntervalS)

	provider, err := cfg.GetProvider("prometheus-prod")
	require.NoError(t, err)
	assert.Equal(t, 10, provider.Priority)
	assert.Equal(t, "critical", provider.SeverityMap["page"])

	// Built-in specialist registry applies since strands.yaml omits it.
	stats := cfg.Stats()
	assert.Equal(t, 1, stats.Providers)
	assert.Equal(t, len(DefaultSpecialists()), stats.Specialists)
}

func TestInitialize_EnvOverridesTickInterval(t *testing.T) {
	dir := t.TempDir()
	writeStrandsYAML(t, dir, minimalStrandsYAML)
	t.Setenv("TICK_INTERVAL_S", "45")

	cfg, err := Initialize(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 45, cfg.System.TickIntervalS)
}

func TestInitialize_MissingFileReturnsLoadError(t *testing.T) {
	dir := t.TempDir()
	_, err := Initialize(context.Background(), dir)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfigNotFound)
}

func TestInitialize_NoProvidersFailsValidation(t *testing.T) {
	dir := t.TempDir()
	writeStrandsYAML(t, dir, `
decision:
  policy: BALANCED
`)
	_, err := Initialize(context.Background(), dir)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingRequiredField)
}

func TestInitialize_WeightsFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	writeStrandsYAML(t, dir, minimalStrandsYAML)

	weightsPath := filepath.Join(dir, "weights.yaml")
	require.NoError(t, os.WriteFile(weightsPath, []byte(`
version: v2
weights:
  metrics: 0.9
`), 0o600))
	t.Setenv("WEIGHTS_FILE", weightsPath)

	cfg, err := Initialize(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, "v2", cfg.Decision.Weights.Version)
	assert.Equal(t, 0.9, cfg.Decision.Weights.Weights["metrics"])
}
