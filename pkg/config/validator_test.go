package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	weights := DefaultWeights()
	return &Config{
		System: &SystemConfig{
			LogLevel:        string(LogLevelInfo),
			TickIntervalS:   30,
			TickInterval:    30 * time.Second,
			GlobalDeadlineS: 5,
			GlobalDeadline:  5 * time.Second,
		},
		Decision: &DecisionConfig{
			Policy:            string(PolicyNameBalanced),
			ModelVersion:      "v1",
			DefaultAutomation: string(AutomationLevelManual),
			Weights:           &weights,
		},
		Adapters: &AdapterConfig{GeneratorAPIKeyEnv: "ANTHROPIC_API_KEY"},
		Notify:   &NotifyConfig{Enabled: false},
		ProviderRegistry: NewProviderRegistry([]ProviderConfig{
			{Name: "prometheus-prod", Priority: 10},
		}),
		SpecialistRegistry: NewSpecialistRegistry(DefaultSpecialists()),
	}
}

func TestValidator_ValidateAll_AcceptsValidConfig(t *testing.T) {
	require.NoError(t, NewValidator(validConfig()).ValidateAll())
}

func TestValidator_ValidateAll_RejectsUnknownPolicy(t *testing.T) {
	cfg := validConfig()
	cfg.Decision.Policy = "UNKNOWN"
	err := NewValidator(cfg).ValidateAll()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestValidator_ValidateAll_RejectsEmptyWeights(t *testing.T) {
	cfg := validConfig()
	cfg.Decision.Weights = &WeightsConfig{}
	err := NewValidator(cfg).ValidateAll()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestValidator_ValidateAll_RejectsNegativeWeight(t *testing.T) {
	cfg := validConfig()
	cfg.Decision.Weights.Weights["metrics"] = -0.1
	err := NewValidator(cfg).ValidateAll()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestValidator_ValidateAll_RejectsNoProviders(t *testing.T) {
	cfg := validConfig()
	cfg.ProviderRegistry = NewProviderRegistry(nil)
	err := NewValidator(cfg).ValidateAll()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingRequiredField)
}

func TestValidator_ValidateAll_RejectsDuplicatePriority(t *testing.T) {
	cfg := validConfig()
	cfg.ProviderRegistry = NewProviderRegistry([]ProviderConfig{
		{Name: "a", Priority: 10},
		{Name: "b", Priority: 10},
	})
	err := NewValidator(cfg).ValidateAll()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestValidator_ValidateAll_NotifyEnabledRequiresChannel(t *testing.T) {
	cfg := validConfig()
	cfg.Notify = &NotifyConfig{Enabled: true, TokenEnv: "SLACK_BOT_TOKEN"}
	err := NewValidator(cfg).ValidateAll()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingRequiredField)
}
