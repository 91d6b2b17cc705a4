package config

import "testing"

func TestPolicyName_IsValid(t *testing.T) {
	cases := map[PolicyName]bool{
		PolicyNameStrict:     true,
		PolicyNameBalanced:   true,
		PolicyNamePermissive: true,
		PolicyName("bogus"):  false,
		PolicyName(""):       false,
	}
	for name, want := range cases {
		if got := name.IsValid(); got != want {
			t.Errorf("PolicyName(%q).IsValid() = %v, want %v", name, got, want)
		}
	}
}

func TestAutomationLevelName_IsValid(t *testing.T) {
	cases := map[AutomationLevelName]bool{
		AutomationLevelManual:       true,
		AutomationLevelAssisted:     true,
		AutomationLevelFull:         true,
		AutomationLevelName("bogus"): false,
	}
	for name, want := range cases {
		if got := name.IsValid(); got != want {
			t.Errorf("AutomationLevelName(%q).IsValid() = %v, want %v", name, got, want)
		}
	}
}

func TestLogLevel_IsValid(t *testing.T) {
	cases := map[LogLevel]bool{
		LogLevelDebug:    true,
		LogLevelInfo:     true,
		LogLevelWarn:     true,
		LogLevelError:    true,
		LogLevel("fine"): false,
	}
	for name, want := range cases {
		if got := name.IsValid(); got != want {
			t.Errorf("LogLevel(%q).IsValid() = %v, want %v", name, got, want)
		}
	}
}
