package config

import "time"

// Shared types used across configuration structs.

// ProviderConfig describes one alert provider's registration, mirroring this codebase's config.MCPServerConfig
// registration pattern: a static descriptor consumed at startup to build
// the runtime registry, not the runtime object itself.
type ProviderConfig struct {
	Name     string `yaml:"name" validate:"required"`
	Priority int    `yaml:"priority"`

	// SeverityMap translates a provider's native severity strings (e.g.
	// "page", "warn") to the canonical names models.ParseSeverity accepts.
	SeverityMap map[string]string `yaml:"severity_map,omitempty"`
}

// SpecialistConfig describes one swarm specialist's registration, mirroring
// this codebase's config.SubAgentRegistry per-agent entries.
type SpecialistConfig struct {
	ID      string `yaml:"id" validate:"required"`
	Enabled bool   `yaml:"enabled"`
}

// WeightsConfig is the YAML shape of a weight matrix file.
type WeightsConfig struct {
	Version string             `yaml:"version"`
	Weights map[string]float64 `yaml:"weights"`
}

// DecisionConfig configures C6's fusion stage: named threshold policy,
// weight matrix, model version and default automation ceiling.
type DecisionConfig struct {
	Policy            string         `yaml:"policy"`
	ModelVersion      string         `yaml:"model_version"`
	DefaultAutomation string         `yaml:"default_automation"`
	Weights           *WeightsConfig `yaml:"weights,omitempty"`
}

// AdapterConfig holds connection details for each C2 external-system
// adapter.
type AdapterConfig struct {
	MetricsURL         string `yaml:"metrics_url"`
	GraphDSN           string `yaml:"graph_dsn"`
	VectorURL          string `yaml:"vector_url"`
	GeneratorAPIKeyEnv string `yaml:"generator_api_key_env"`
	Kubeconfig         string `yaml:"kubeconfig,omitempty"`
}

// NotifyConfig configures pkg/notify's Slack review-thread integration
//, mirroring this codebase's SlackYAMLConfig shape.
type NotifyConfig struct {
	Enabled      bool   `yaml:"enabled"`
	TokenEnv     string `yaml:"token_env"`
	Channel      string `yaml:"channel"`
	DashboardURL string `yaml:"dashboard_url"`
}

// SystemConfig groups system-wide operational settings. The
// *_s YAML fields are seconds on disk; TickInterval/GlobalDeadline are the
// parsed time.Duration values the rest of the system consumes, resolved by
// resolveSystemConfig.
type SystemConfig struct {
	LogLevel string `yaml:"log_level"`

	TickIntervalS   int `yaml:"tick_interval_s"`
	GlobalDeadlineS int `yaml:"global_deadline_s"`

	TickInterval   time.Duration `yaml:"-"`
	GlobalDeadline time.Duration `yaml:"-"`
}

// StrandsYAMLConfig is the on-disk shape of strands.yaml, the single
// configuration file this package loads, grouped the same way this
// codebase's other top-level YAML configs are grouped.
type StrandsYAMLConfig struct {
	System      *SystemConfig      `yaml:"system"`
	Providers   []ProviderConfig   `yaml:"providers"`
	Specialists []SpecialistConfig `yaml:"specialists"`
	Decision    *DecisionConfig    `yaml:"decision"`
	Adapters    *AdapterConfig     `yaml:"adapters"`
	Notify      *NotifyConfig      `yaml:"notify"`
}
