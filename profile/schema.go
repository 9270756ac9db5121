// Package profile provides YAML loading for boot profiles.
package profile

import (
	"fmt"

	"github.com/victoralfred/golaunch/bootstrap"
	"github.com/victoralfred/golaunch/validation"
)

// Config represents the YAML boot profile structure.
type Config struct {
	Metadata Metadata  `yaml:"metadata"`
	Version  string    `yaml:"version"`
	Env      EnvConfig `yaml:"env"`
}

// Metadata contains profile metadata.
type Metadata struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Created     string `yaml:"created"`
	Updated     string `yaml:"updated"`
}

// EnvConfig contains the environment assignment sections.
type EnvConfig struct {
	// Set entries unconditionally overwrite any pre-existing value.
	Set []Assignment `yaml:"set"`

	// Defaults entries assign only when the variable is unset or empty.
	Defaults []Assignment `yaml:"defaults"`

	// Files entries source a variable from a file that may be absent.
	Files []FileSource `yaml:"files"`
}

// Assignment is a key-value environment entry.
type Assignment struct {
	Key   string `yaml:"key"`
	Value string `yaml:"value"`
}

// FileSource sources an environment variable from a file path.
type FileSource struct {
	Key  string `yaml:"key"`
	Path string `yaml:"path"`
}

// Compile converts the configuration into an applicable profile.
// Variable names are validated; values pass through as-is.
func (c *Config) Compile() (*bootstrap.Profile, error) {
	v := validation.NewEnvironmentValidator(nil)

	rules := make([]bootstrap.Rule, 0, len(c.Env.Set)+len(c.Env.Defaults)+len(c.Env.Files))

	for _, a := range c.Env.Set {
		if err := v.ValidateVar(a.Key, a.Value); err != nil {
			return nil, fmt.Errorf("set entry: %w", err)
		}
		rules = append(rules, bootstrap.SetRule{Name: a.Key, Value: a.Value})
	}

	for _, a := range c.Env.Defaults {
		if err := v.ValidateVar(a.Key, a.Value); err != nil {
			return nil, fmt.Errorf("defaults entry: %w", err)
		}
		rules = append(rules, bootstrap.DefaultRule{Name: a.Key, Value: a.Value})
	}

	for _, f := range c.Env.Files {
		if !validation.IsValidEnvKey(f.Key) {
			return nil, fmt.Errorf("files entry: invalid environment key %q", f.Key)
		}
		if f.Path == "" {
			return nil, fmt.Errorf("files entry %q: path is required", f.Key)
		}
		rules = append(rules, bootstrap.FileRule{Name: f.Key, Path: f.Path})
	}

	name := c.Metadata.Name
	if name == "" {
		name = "unnamed"
	}

	return bootstrap.NewProfile(name, rules...), nil
}

// Validator validates a profile configuration before compilation.
type Validator interface {
	Validate(config *Config) error
}

// DefaultValidator validates profile configuration.
type DefaultValidator struct{}

// Validate validates the profile configuration.
func (v *DefaultValidator) Validate(config *Config) error {
	if config.Version == "" {
		return fmt.Errorf("profile version is required")
	}

	for i, a := range config.Env.Set {
		if a.Key == "" {
			return fmt.Errorf("set entry %d: key is required", i)
		}
	}

	for i, a := range config.Env.Defaults {
		if a.Key == "" {
			return fmt.Errorf("defaults entry %d: key is required", i)
		}
	}

	for i, f := range config.Env.Files {
		if f.Key == "" {
			return fmt.Errorf("files entry %d: key is required", i)
		}
		if f.Path == "" {
			return fmt.Errorf("files entry %d: path is required", i)
		}
	}

	return nil
}

// ExampleConfig returns an example boot profile configuration.
// It mirrors the built-in device profile.
func ExampleConfig() *Config {
	return &Config{
		Version: "1.0",
		Metadata: Metadata{
			Name:        "device",
			Description: "Boot environment for the device process manager",
		},
		Env: EnvConfig{
			Set: []Assignment{
				{Key: "OMP_NUM_THREADS", Value: "1"},
				{Key: "MKL_NUM_THREADS", Value: "1"},
				{Key: "NUMEXPR_NUM_THREADS", Value: "1"},
				{Key: "OPENBLAS_NUM_THREADS", Value: "1"},
				{Key: "VECLIB_MAXIMUM_THREADS", Value: "1"},
				{Key: "STAGING_ROOT", Value: "/data/safe_staging"},
				{Key: "SKIP_FW_QUERY", Value: "1"},
				{Key: "FINGERPRINT", Value: "VOLKSWAGEN SHARAN 2ND GEN"},
			},
			Defaults: []Assignment{
				{Key: "AGNOS_VERSION", Value: "8.2"},
				{Key: "PASSIVE", Value: "1"},
			},
			Files: []FileSource{
				{Key: "MAPBOX_TOKEN", Path: bootstrap.DefaultTokenPath},
			},
		},
	}
}
