package masking

import "log/slog"

// AlertMaskingConfig holds alert and cluster-data masking settings.
type AlertMaskingConfig struct {
	Enabled      bool
	PatternGroup string
}

// Service applies data masking to alert payloads and cluster data (pod logs,
// events) fetched by the Kubernetes adapter, before either reaches storage,
// chat transcripts, or Slack notifications. Created once at application
// startup (singleton). Thread-safe and stateless aside from compiled patterns.
type Service struct {
	patterns        map[string]*CompiledPattern // Built-in compiled patterns
	patternGroups   map[string][]string         // Group name → pattern names
	codeMaskers     map[string]Masker           // Registered code-based maskers
	codeMaskerNames []string                    // Names available to pattern groups
	alertMasking    AlertMaskingConfig          // Alert payload masking settings
}

// NewService creates a masking service with compiled patterns and registered
// maskers. All patterns are compiled eagerly at creation time. Invalid
// patterns are logged and skipped.
func NewService(alertCfg AlertMaskingConfig) *Service {
	s := &Service{
		patterns:        make(map[string]*CompiledPattern),
		patternGroups:   builtinPatternGroups(),
		codeMaskers:     make(map[string]Masker),
		codeMaskerNames: builtinCodeMaskers(),
		alertMasking:    alertCfg,
	}

	s.compileBuiltinPatterns()
	s.registerMasker(&KubernetesSecretMasker{})

	slog.Info("masking service initialized",
		"compiled_patterns", len(s.patterns),
		"code_maskers", len(s.codeMaskers),
		"alert_masking_enabled", alertCfg.Enabled)

	return s
}

// MaskAlertData applies masking to an alert payload using the configured
// pattern group. Returns masked data. On masking failure, returns original
// data (fail-open — an incident should never be lost to a masking bug).
func (s *Service) MaskAlertData(data string) string {
	if !s.alertMasking.Enabled || data == "" {
		return data
	}
	return s.applyGroup(data, s.alertMasking.PatternGroup, "alert masking failed, continuing with unmasked data (fail-open)")
}

// MaskClusterData applies the "kubernetes" pattern group (code-based Secret
// masking plus CA/credential regex sweep) to pod logs or event messages
// fetched by the Kubernetes adapter before they are persisted or summarized.
// Fail-open for the same reason as MaskAlertData.
func (s *Service) MaskClusterData(data string) string {
	if data == "" {
		return data
	}
	return s.applyGroup(data, "kubernetes", "cluster data masking failed, continuing with unmasked data (fail-open)")
}

func (s *Service) applyGroup(data, group, failureMsg string) string {
	resolved := s.resolvePatternsFromGroup(group)
	if len(resolved.codeMaskerNames) == 0 && len(resolved.regexPatterns) == 0 {
		return data
	}

	masked, err := s.applyMasking(data, resolved)
	if err != nil {
		slog.Error(failureMsg, "error", err)
		return data
	}
	return masked
}

// applyMasking applies code-based maskers then regex patterns to content.
func (s *Service) applyMasking(content string, resolved *resolvedPatterns) (string, error) {
	masked := content

	// Phase 1: Code-based maskers (more specific, structural awareness)
	for _, maskerName := range resolved.codeMaskerNames {
		masker, ok := s.codeMaskers[maskerName]
		if !ok {
			continue
		}
		if masker.AppliesTo(masked) {
			masked = masker.Mask(masked)
		}
	}

	// Phase 2: Regex patterns (general sweep)
	for _, pattern := range resolved.regexPatterns {
		masked = pattern.Regex.ReplaceAllString(masked, pattern.Replacement)
	}

	return masked, nil
}

// registerMasker registers a code-based masker by its name.
func (s *Service) registerMasker(m Masker) {
	s.codeMaskers[m.Name()] = m
}
