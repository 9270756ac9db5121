// Package validation provides environment variable validation for boot
// profiles and child process environments.
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// EnvironmentValidatorConfig configures the environment validator.
type EnvironmentValidatorConfig struct {
	// AllowedVars are environment variables that are allowed.
	// Supports wildcards: "PATH", "LC_*", etc. Empty means all are allowed.
	AllowedVars []string

	// DeniedVars are environment variables that are denied.
	// Supports wildcards: "*_SECRET", "*_PASSWORD", etc.
	DeniedVars []string

	// MaxVars is the maximum number of environment variables.
	MaxVars int

	// MaxKeyLength is the maximum length of a variable name.
	MaxKeyLength int

	// MaxValueLength is the maximum length of a variable value.
	MaxValueLength int

	// AllowEmpty allows empty values.
	AllowEmpty bool
}

// DefaultEnvironmentValidatorConfig returns the configuration used for
// boot profiles: no allowlist (profiles assign device-specific names like
// FINGERPRINT and STAGING_ROOT), dynamic-linker injection denied.
func DefaultEnvironmentValidatorConfig() *EnvironmentValidatorConfig {
	return &EnvironmentValidatorConfig{
		DeniedVars: []string{
			"LD_PRELOAD",
			"LD_LIBRARY_PATH",
			"DYLD_*",
		},
		MaxVars:        128,
		MaxKeyLength:   256,
		MaxValueLength: 8192,
		AllowEmpty:     true,
	}
}

// EnvironmentValidator validates environment variables.
type EnvironmentValidator struct {
	config        *EnvironmentValidatorConfig
	allowedRegexp []*regexp.Regexp
	deniedRegexp  []*regexp.Regexp
}

// NewEnvironmentValidator creates a new environment validator.
// A nil config uses DefaultEnvironmentValidatorConfig.
func NewEnvironmentValidator(config *EnvironmentValidatorConfig) *EnvironmentValidator {
	if config == nil {
		config = DefaultEnvironmentValidatorConfig()
	}

	v := &EnvironmentValidator{
		config: config,
	}

	for _, pattern := range config.AllowedVars {
		if re := wildcardToRegexp(pattern); re != nil {
			v.allowedRegexp = append(v.allowedRegexp, re)
		}
	}

	for _, pattern := range config.DeniedVars {
		if re := wildcardToRegexp(pattern); re != nil {
			v.deniedRegexp = append(v.deniedRegexp, re)
		}
	}

	return v
}

// Name returns the validator name.
func (v *EnvironmentValidator) Name() string {
	return "environment_validator"
}

// ValidateVars validates a full set of environment variables.
func (v *EnvironmentValidator) ValidateVars(env map[string]string) error {
	if v.config.MaxVars > 0 && len(env) > v.config.MaxVars {
		return fmt.Errorf("too many environment variables (%d > %d)",
			len(env), v.config.MaxVars)
	}

	for key, value := range env {
		if err := v.ValidateVar(key, value); err != nil {
			return err
		}
	}

	return nil
}

// ValidateVar validates a single environment variable.
func (v *EnvironmentValidator) ValidateVar(key, value string) error {
	if len(key) > v.config.MaxKeyLength {
		return fmt.Errorf("environment key %q too long (%d > %d)",
			key, len(key), v.config.MaxKeyLength)
	}

	if len(value) > v.config.MaxValueLength {
		return fmt.Errorf("environment value for %q too long (%d > %d)",
			key, len(value), v.config.MaxValueLength)
	}

	if !v.config.AllowEmpty && value == "" {
		return fmt.Errorf("empty environment value for %q not allowed", key)
	}

	// Key format (must be valid identifier)
	if !IsValidEnvKey(key) {
		return fmt.Errorf("invalid environment key %q", key)
	}

	// Denied patterns win over allowed patterns
	for _, re := range v.deniedRegexp {
		if re.MatchString(key) {
			return fmt.Errorf("environment variable %q matches denied pattern", key)
		}
	}

	if len(v.allowedRegexp) > 0 {
		allowed := false
		for _, re := range v.allowedRegexp {
			if re.MatchString(key) {
				allowed = true
				break
			}
		}
		if !allowed {
			return fmt.Errorf("environment variable %q not in allowlist", key)
		}
	}

	if err := validateEnvValue(value); err != nil {
		return fmt.Errorf("invalid value for %q: %w", key, err)
	}

	return nil
}

// wildcardToRegexp converts a wildcard pattern to a regexp.
func wildcardToRegexp(pattern string) *regexp.Regexp {
	// Escape special characters except *
	escaped := regexp.QuoteMeta(pattern)
	// Replace \* with .* for wildcard matching
	escaped = strings.ReplaceAll(escaped, "\\*", ".*")
	// Anchor the pattern
	escaped = "^" + escaped + "$"

	re, err := regexp.Compile(escaped)
	if err != nil {
		return nil
	}
	return re
}

// IsValidEnvKey checks if a key is a valid environment variable name.
func IsValidEnvKey(key string) bool {
	if len(key) == 0 {
		return false
	}

	// Must start with letter or underscore
	first := key[0]
	if !((first >= 'a' && first <= 'z') ||
		(first >= 'A' && first <= 'Z') ||
		first == '_') {
		return false
	}

	// Rest must be alphanumeric or underscore
	for i := 1; i < len(key); i++ {
		c := key[i]
		if !((c >= 'a' && c <= 'z') ||
			(c >= 'A' && c <= 'Z') ||
			(c >= '0' && c <= '9') ||
			c == '_') {
			return false
		}
	}

	return true
}

// validateEnvValue checks if a value is safe.
func validateEnvValue(value string) error {
	if strings.ContainsRune(value, 0) {
		return fmt.Errorf("value contains null byte")
	}

	return nil
}

// FilterEnvironment filters environment variables based on allowlist/denylist.
func FilterEnvironment(env map[string]string, allowed, denied []string) map[string]string {
	result := make(map[string]string)

	var allowedRe, deniedRe []*regexp.Regexp
	for _, p := range allowed {
		if re := wildcardToRegexp(p); re != nil {
			allowedRe = append(allowedRe, re)
		}
	}
	for _, p := range denied {
		if re := wildcardToRegexp(p); re != nil {
			deniedRe = append(deniedRe, re)
		}
	}

	for key, value := range env {
		isDenied := false
		for _, re := range deniedRe {
			if re.MatchString(key) {
				isDenied = true
				break
			}
		}
		if isDenied {
			continue
		}

		if len(allowedRe) > 0 {
			isAllowed := false
			for _, re := range allowedRe {
				if re.MatchString(key) {
					isAllowed = true
					break
				}
			}
			if !isAllowed {
				continue
			}
		}

		result[key] = value
	}

	return result
}
