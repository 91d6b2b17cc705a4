package config

import "fmt"

// Validator validates configuration comprehensively with clear error
// messages, mirroring this codebase's Validator/ValidateAll shape.
type Validator struct {
	cfg *Config
}

// NewValidator creates a validator for the given configuration.
func NewValidator(cfg *Config) *Validator {
	return &Validator{cfg: cfg}
}

// ValidateAll performs comprehensive validation (fail-fast — stops at the
// first error), validating in dependency order: system → decision →
// providers → specialists → adapters → notify.
func (v *Validator) ValidateAll() error {
	if err := v.validateSystem(); err != nil {
		return fmt.Errorf("system validation failed: %w", err)
	}
	if err := v.validateDecision(); err != nil {
		return fmt.Errorf("decision validation failed: %w", err)
	}
	if err := v.validateProviders(); err != nil {
		return fmt.Errorf("provider validation failed: %w", err)
	}
	if err := v.validateSpecialists(); err != nil {
		return fmt.Errorf("specialist validation failed: %w", err)
	}
	if err := v.validateAdapters(); err != nil {
		return fmt.Errorf("adapter validation failed: %w", err)
	}
	if err := v.validateNotify(); err != nil {
		return fmt.Errorf("notify validation failed: %w", err)
	}
	return nil
}

func (v *Validator) validateSystem() error {
	sys := v.cfg.System
	if sys == nil {
		return NewValidationError("system", "", "", fmt.Errorf("%w: system config is nil", ErrMissingRequiredField))
	}
	if !LogLevel(sys.LogLevel).IsValid() {
		return NewValidationError("system", "", "log_level", fmt.Errorf("%w: %q", ErrInvalidValue, sys.LogLevel))
	}
	if sys.TickInterval <= 0 {
		return NewValidationError("system", "", "tick_interval_s", fmt.Errorf("%w: must be positive, got %v", ErrInvalidValue, sys.TickInterval))
	}
	if sys.GlobalDeadline <= 0 {
		return NewValidationError("system", "", "global_deadline_s", fmt.Errorf("%w: must be positive, got %v", ErrInvalidValue, sys.GlobalDeadline))
	}
	return nil
}

func (v *Validator) validateDecision() error {
	d := v.cfg.Decision
	if d == nil {
		return NewValidationError("decision", "", "", fmt.Errorf("%w: decision config is nil", ErrMissingRequiredField))
	}
	if !PolicyName(d.Policy).IsValid() {
		return NewValidationError("decision", "", "policy", fmt.Errorf("%w: %q", ErrInvalidValue, d.Policy))
	}
	if !AutomationLevelName(d.DefaultAutomation).IsValid() {
		return NewValidationError("decision", "", "default_automation", fmt.Errorf("%w: %q", ErrInvalidValue, d.DefaultAutomation))
	}
	if d.ModelVersion == "" {
		return NewValidationError("decision", "", "model_version", fmt.Errorf("%w", ErrMissingRequiredField))
	}
	if d.Weights == nil || len(d.Weights.Weights) == 0 {
		return NewValidationError("decision", "", "weights", fmt.Errorf("%w: weight matrix must not be empty", ErrInvalidValue))
	}
	for id, w := range d.Weights.Weights {
		if w < 0 {
			return NewValidationError("decision", id, "weights", fmt.Errorf("%w: weight must be non-negative, got %v", ErrInvalidValue, w))
		}
	}
	return nil
}

func (v *Validator) validateProviders() error {
	providers := v.cfg.ProviderRegistry.GetAll()
	if len(providers) == 0 {
		return NewValidationError("providers", "", "", fmt.Errorf("%w: at least one provider must be configured", ErrMissingRequiredField))
	}
	seenPriority := map[int]string{}
	for name, p := range providers {
		if p.Name == "" {
			return NewValidationError("provider", name, "name", fmt.Errorf("%w", ErrMissingRequiredField))
		}
		if other, exists := seenPriority[p.Priority]; exists && other != name {
			return NewValidationError("provider", name, "priority", fmt.Errorf("%w: priority %d already used by %q", ErrInvalidValue, p.Priority, other))
		}
		seenPriority[p.Priority] = name
	}
	return nil
}

func (v *Validator) validateSpecialists() error {
	specialists := v.cfg.SpecialistRegistry.GetAll()
	if len(specialists) == 0 {
		return NewValidationError("specialists", "", "", fmt.Errorf("%w: at least one specialist must be configured", ErrMissingRequiredField))
	}
	for id, s := range specialists {
		if s.ID == "" {
			return NewValidationError("specialist", id, "id", fmt.Errorf("%w", ErrMissingRequiredField))
		}
	}
	return nil
}

func (v *Validator) validateAdapters() error {
	a := v.cfg.Adapters
	if a == nil {
		return NewValidationError("adapters", "", "", fmt.Errorf("%w: adapter config is nil", ErrMissingRequiredField))
	}
	if a.GeneratorAPIKeyEnv == "" {
		return NewValidationError("adapters", "", "generator_api_key_env", fmt.Errorf("%w", ErrMissingRequiredField))
	}
	return nil
}

func (v *Validator) validateNotify() error {
	n := v.cfg.Notify
	if n == nil {
		return nil
	}
	if n.Enabled && n.Channel == "" {
		return NewValidationError("notify", "", "channel", fmt.Errorf("%w: channel is required when notify is enabled", ErrMissingRequiredField))
	}
	if n.Enabled && n.TokenEnv == "" {
		return NewValidationError("notify", "", "token_env", fmt.Errorf("%w: token_env is required when notify is enabled", ErrMissingRequiredField))
	}
	return nil
}
