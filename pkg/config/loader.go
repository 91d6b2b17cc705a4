package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// Initialize loads, validates, and returns ready-to-use configuration.
// This is the primary entry point for configuration loading.
//
// Steps performed:
//  1. Load strands.yaml from configDir
//  2. Expand environment variables
//  3. Parse YAML into structs
//  4. Apply a WEIGHTS_FILE override, if set, over the built-in/YAML weights
//  5. Build in-memory registries
//  6. Apply default values
//  7. Validate all configuration
//  8. Return Config ready for use
func Initialize(ctx context.Context, configDir string) (*Config, error) {
	log := slog.With("config_dir", configDir)
	log.Info("Initializing configuration")

	cfg, err := load(configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	stats := cfg.Stats()
	log.Info("Configuration initialized successfully",
		"providers", stats.Providers,
		"specialists", stats.Specialists,
		"policy", cfg.Decision.Policy,
		"model_version", cfg.Decision.ModelVersion)

	return cfg, nil
}

func load(configDir string) (*Config, error) {
	loader := &configLoader{configDir: configDir}

	yamlCfg, err := loader.loadStrandsYAML()
	if err != nil {
		return nil, NewLoadError("strands.yaml", err)
	}

	specialists := yamlCfg.Specialists
	if len(specialists) == 0 {
		specialists = DefaultSpecialists()
	}

	decisionCfg, err := resolveDecisionConfig(yamlCfg.Decision)
	if err != nil {
		return nil, NewLoadError("decision config", err)
	}

	systemCfg := resolveSystemConfig(yamlCfg.System)
	adaptersCfg := resolveAdapterConfig(yamlCfg.Adapters)
	notifyCfg := resolveNotifyConfig(yamlCfg.Notify)

	return &Config{
		configDir:          configDir,
		System:             systemCfg,
		Decision:           decisionCfg,
		Adapters:           adaptersCfg,
		Notify:             notifyCfg,
		ProviderRegistry:   NewProviderRegistry(yamlCfg.Providers),
		SpecialistRegistry: NewSpecialistRegistry(specialists),
	}, nil
}

func validate(cfg *Config) error {
	validator := NewValidator(cfg)
	return validator.ValidateAll()
}

type configLoader struct {
	configDir string
}

func (l *configLoader) loadYAML(filename string, target any) error {
	path := filepath.Join(l.configDir, filename)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return err
	}

	// Expand environment variables using shell-style syntax. Note: ExpandEnv
	// passes through original data on parse/execution errors, allowing the
	// YAML parser to handle the content (or fail with a clearer message).
	data = ExpandEnv(data)

	if err := yaml.Unmarshal(data, target); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}

	return nil
}

func (l *configLoader) loadStrandsYAML() (*StrandsYAMLConfig, error) {
	var cfg StrandsYAMLConfig
	if err := l.loadYAML("strands.yaml", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// resolveDecisionConfig applies built-in defaults for any unset fields and
// merges a WEIGHTS_FILE override (if the env var names a readable file)
// over the YAML-declared weight matrix, using dario.cat/mergo the same way
// this codebase's loader merges queue config onto its defaults.
func resolveDecisionConfig(d *DecisionConfig) (*DecisionConfig, error) {
	cfg := &DecisionConfig{
		Policy:            string(DefaultPolicy),
		ModelVersion:      DefaultModelVersion,
		DefaultAutomation: string(DefaultDefaultAutomation),
	}
	defaultWeights := DefaultWeights()
	cfg.Weights = &defaultWeights

	if d != nil {
		if err := mergo.Merge(cfg, d, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("merge decision config: %w", err)
		}
	}

	if env := os.Getenv("POLICY_NAME"); env != "" {
		cfg.Policy = env
	}
	if env := os.Getenv("MODEL_VERSION"); env != "" {
		cfg.ModelVersion = env
	}

	if path := os.Getenv("WEIGHTS_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read WEIGHTS_FILE %q: %w", path, err)
		}
		var override WeightsConfig
		if err := yaml.Unmarshal(ExpandEnv(data), &override); err != nil {
			return nil, fmt.Errorf("%w: WEIGHTS_FILE %s: %v", ErrInvalidYAML, path, err)
		}
		if err := mergo.Merge(cfg.Weights, &override, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("merge WEIGHTS_FILE: %w", err)
		}
	}

	return cfg, nil
}

// resolveSystemConfig applies built-in defaults and converts the *_s
// second-counts to time.Duration.
func resolveSystemConfig(sys *SystemConfig) *SystemConfig {
	cfg := &SystemConfig{
		LogLevel:        string(DefaultLogLevel),
		TickIntervalS:   DefaultTickIntervalS,
		GlobalDeadlineS: DefaultGlobalDeadlineS,
	}

	if sys != nil {
		if sys.LogLevel != "" {
			cfg.LogLevel = sys.LogLevel
		}
		if sys.TickIntervalS > 0 {
			cfg.TickIntervalS = sys.TickIntervalS
		}
		if sys.GlobalDeadlineS > 0 {
			cfg.GlobalDeadlineS = sys.GlobalDeadlineS
		}
	}

	if env := os.Getenv("LOG_LEVEL"); env != "" {
		cfg.LogLevel = env
	}
	if env := os.Getenv("TICK_INTERVAL_S"); env != "" {
		if v, err := parsePositiveInt(env); err == nil {
			cfg.TickIntervalS = v
		} else {
			slog.Warn("invalid TICK_INTERVAL_S, keeping resolved value", "value", env, "resolved", cfg.TickIntervalS)
		}
	}
	if env := os.Getenv("GLOBAL_DEADLINE_S"); env != "" {
		if v, err := parsePositiveInt(env); err == nil {
			cfg.GlobalDeadlineS = v
		} else {
			slog.Warn("invalid GLOBAL_DEADLINE_S, keeping resolved value", "value", env, "resolved", cfg.GlobalDeadlineS)
		}
	}
	cfg.TickInterval = time.Duration(cfg.TickIntervalS) * time.Second
	cfg.GlobalDeadline = time.Duration(cfg.GlobalDeadlineS) * time.Second

	return cfg
}

func resolveAdapterConfig(a *AdapterConfig) *AdapterConfig {
	cfg := &AdapterConfig{GeneratorAPIKeyEnv: "ANTHROPIC_API_KEY"}
	if a != nil {
		if a.MetricsURL != "" {
			cfg.MetricsURL = a.MetricsURL
		}
		if a.GraphDSN != "" {
			cfg.GraphDSN = a.GraphDSN
		}
		if a.VectorURL != "" {
			cfg.VectorURL = a.VectorURL
		}
		if a.GeneratorAPIKeyEnv != "" {
			cfg.GeneratorAPIKeyEnv = a.GeneratorAPIKeyEnv
		}
		if a.Kubeconfig != "" {
			cfg.Kubeconfig = a.Kubeconfig
		}
	}
	if env := os.Getenv("METRICS_URL"); env != "" {
		cfg.MetricsURL = env
	}
	if env := os.Getenv("GRAPH_URL"); env != "" {
		cfg.GraphDSN = env
	}
	if env := os.Getenv("VECTOR_URL"); env != "" {
		cfg.VectorURL = env
	}
	return cfg
}

func resolveNotifyConfig(n *NotifyConfig) *NotifyConfig {
	cfg := &NotifyConfig{TokenEnv: "SLACK_BOT_TOKEN", DashboardURL: "http://localhost:5173"}
	if n != nil {
		cfg.Enabled = n.Enabled
		if n.TokenEnv != "" {
			cfg.TokenEnv = n.TokenEnv
		}
		if n.Channel != "" {
			cfg.Channel = n.Channel
		}
		if n.DashboardURL != "" {
			cfg.DashboardURL = n.DashboardURL
		}
	}
	if env := os.Getenv("SLACK_BOT_TOKEN"); env != "" {
		cfg.Enabled = true
	}
	if env := os.Getenv("SLACK_CHANNEL_ID"); env != "" {
		cfg.Channel = env
	}
	return cfg
}

func parsePositiveInt(s string) (int, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if v <= 0 {
		return 0, fmt.Errorf("must be positive, got %d", v)
	}
	return v, nil
}
