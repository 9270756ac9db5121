package bootstrap

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/victoralfred/gowritter/safepath"
)

// DefaultTokenPath is the device-local file the navigation token is
// sourced from.
const DefaultTokenPath = "/data/media/0/dp_nav_mapbox_token"

// Rule is a single environment assignment.
type Rule interface {
	// Key returns the variable name the rule assigns.
	Key() string

	// apply performs the assignment against env.
	apply(ctx context.Context, env Environment) error
}

// SetRule unconditionally assigns Value to Name, overwriting any
// pre-existing value.
type SetRule struct {
	Name  string
	Value string
}

// Key implements Rule.Key.
func (r SetRule) Key() string { return r.Name }

func (r SetRule) apply(_ context.Context, env Environment) error {
	return env.Set(r.Name, r.Value)
}

// DefaultRule assigns Value to Name only if the variable is currently
// unset or empty.
type DefaultRule struct {
	Name  string
	Value string
}

// Key implements Rule.Key.
func (r DefaultRule) Key() string { return r.Name }

func (r DefaultRule) apply(_ context.Context, env Environment) error {
	if current, ok := env.Lookup(r.Name); ok && current != "" {
		return nil
	}
	return env.Set(r.Name, r.Value)
}

// FileRule assigns the full contents of the file at Path to Name.
// An absent or unreadable file, or an empty file, results in no
// assignment and no error. Contents are used as-is: no whitespace is
// trimmed, and emptiness means zero bytes exactly.
type FileRule struct {
	Name string
	Path string
}

// Key implements Rule.Key.
func (r FileRule) Key() string { return r.Name }

func (r FileRule) apply(_ context.Context, env Environment) error {
	content, ok := readOptionalFile(r.Path)
	if !ok || len(content) == 0 {
		return nil
	}
	return env.Set(r.Name, string(content))
}

// readOptionalFile reads a file that may legitimately not exist.
// Any read failure is reported as absence.
func readOptionalFile(path string) ([]byte, bool) {
	sp, err := safepath.New(filepath.Dir(path))
	if err != nil {
		return nil, false
	}

	data, err := sp.ReadFile(filepath.Base(path))
	if err != nil {
		return nil, false
	}

	return data, true
}

// Profile is an ordered set of environment assignment rules.
//
// Set and Default rules apply in declaration order. File rules always
// apply after every fixed assignment, in their declaration order
// relative to one another.
type Profile struct {
	Name  string
	Rules []Rule
}

// NewProfile creates a profile with the given rules.
func NewProfile(name string, rules ...Rule) *Profile {
	return &Profile{
		Name:  name,
		Rules: rules,
	}
}

// DeviceProfile returns the boot profile the device launcher applies
// before starting managed processes.
//
// Thread-count caps for numeric libraries are pinned to 1 so model
// processes do not oversubscribe the SoC. AGNOS_VERSION and PASSIVE are
// defaulted but never overwritten, so an outer launcher can pin them.
func DeviceProfile() *Profile {
	return NewProfile("device",
		SetRule{"OMP_NUM_THREADS", "1"},
		SetRule{"MKL_NUM_THREADS", "1"},
		SetRule{"NUMEXPR_NUM_THREADS", "1"},
		SetRule{"OPENBLAS_NUM_THREADS", "1"},
		SetRule{"VECLIB_MAXIMUM_THREADS", "1"},
		DefaultRule{"AGNOS_VERSION", "8.2"},
		DefaultRule{"PASSIVE", "1"},
		SetRule{"STAGING_ROOT", "/data/safe_staging"},
		SetRule{"SKIP_FW_QUERY", "1"},
		SetRule{"FINGERPRINT", "VOLKSWAGEN SHARAN 2ND GEN"},
		FileRule{"MAPBOX_TOKEN", DefaultTokenPath},
	)
}

// Apply runs every rule against env. Fixed assignments run first in
// declaration order, then file-sourced assignments. Applying the same
// profile twice yields the same final state as applying it once.
func (p *Profile) Apply(ctx context.Context, env Environment) error {
	if env == nil {
		return fmt.Errorf("bootstrap: environment is required")
	}

	var fileRules []Rule
	for _, rule := range p.Rules {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if _, ok := rule.(FileRule); ok {
			fileRules = append(fileRules, rule)
			continue
		}

		if err := rule.apply(ctx, env); err != nil {
			return fmt.Errorf("bootstrap: applying %s: %w", rule.Key(), err)
		}
	}

	for _, rule := range fileRules {
		if err := rule.apply(ctx, env); err != nil {
			return fmt.Errorf("bootstrap: applying %s: %w", rule.Key(), err)
		}
	}

	return nil
}

// Resolve applies the profile to a copy of base and returns the resulting
// mapping. The base map is not modified. This is the pure form of Apply
// for callers that build a child environment instead of mutating the
// process environment block.
func (p *Profile) Resolve(ctx context.Context, base map[string]string) (map[string]string, error) {
	env := NewMapEnvironment(base)
	if err := p.Apply(ctx, env); err != nil {
		return nil, err
	}
	return env.Map(), nil
}

// Keys returns the variable names the profile may assign, in rule order.
func (p *Profile) Keys() []string {
	keys := make([]string, 0, len(p.Rules))
	for _, rule := range p.Rules {
		keys = append(keys, rule.Key())
	}
	return keys
}
