// Package bootstrap prepares a process environment from a declarative
// boot profile.
//
// A Profile is an ordered list of assignment rules applied once at
// process-tree root, before any downstream process is launched. Fixed
// assignments always overwrite, default assignments preserve existing
// non-empty values, and file-sourced assignments are skipped silently
// when the source file is absent or empty.
package bootstrap

import (
	"os"
	"sort"
)

// Environment is the mutable key-value mapping a profile is applied to.
// Implementations must treat an empty value as distinct from an unset key
// only for Lookup's second return value; profile default rules treat both
// as "unset".
type Environment interface {
	// Lookup returns the value for key and whether it is set.
	Lookup(key string) (string, bool)

	// Set assigns a value to key, overwriting any existing value.
	Set(key, value string) error
}

// OSEnvironment applies assignments to the live process environment.
// Variables set through it are inherited by every child process spawned
// afterwards.
type OSEnvironment struct{}

// NewOSEnvironment returns an Environment backed by the process
// environment block.
func NewOSEnvironment() *OSEnvironment {
	return &OSEnvironment{}
}

// Lookup implements Environment.Lookup.
func (e *OSEnvironment) Lookup(key string) (string, bool) {
	return os.LookupEnv(key)
}

// Set implements Environment.Set.
func (e *OSEnvironment) Set(key, value string) error {
	return os.Setenv(key, value)
}

// MapEnvironment is a map-backed Environment, used to build child process
// environments without mutating the parent's.
type MapEnvironment struct {
	vars map[string]string
}

// NewMapEnvironment creates a MapEnvironment seeded with the given
// variables. A nil seed creates an empty environment.
func NewMapEnvironment(seed map[string]string) *MapEnvironment {
	vars := make(map[string]string, len(seed))
	for k, v := range seed {
		vars[k] = v
	}
	return &MapEnvironment{vars: vars}
}

// Lookup implements Environment.Lookup.
func (e *MapEnvironment) Lookup(key string) (string, bool) {
	v, ok := e.vars[key]
	return v, ok
}

// Set implements Environment.Set.
func (e *MapEnvironment) Set(key, value string) error {
	e.vars[key] = value
	return nil
}

// Map returns a copy of the environment contents.
func (e *MapEnvironment) Map() map[string]string {
	result := make(map[string]string, len(e.vars))
	for k, v := range e.vars {
		result[k] = v
	}
	return result
}

// Keys returns the environment keys in sorted order.
func (e *MapEnvironment) Keys() []string {
	keys := make([]string, 0, len(e.vars))
	for k := range e.vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
