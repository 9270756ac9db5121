// Package envutil provides environment variable utilities.
package envutil

import (
	"fmt"
	"os"
	"strings"
)

// MinimalEnvironment returns a minimal safe environment for launched processes.
func MinimalEnvironment() map[string]string {
	return map[string]string{
		"PATH":   "/usr/bin:/bin",
		"LANG":   "C.UTF-8",
		"LC_ALL": "C.UTF-8",
		"HOME":   "/tmp",
		"USER":   "nobody",
	}
}

// Snapshot captures the current process environment as a map.
func Snapshot() map[string]string {
	environ := os.Environ()
	result := make(map[string]string, len(environ))

	for _, kv := range environ {
		if idx := strings.IndexByte(kv, '='); idx > 0 {
			result[kv[:idx]] = kv[idx+1:]
		}
	}

	return result
}

// MergeEnvironment merges base environment with overrides.
// Overrides take precedence.
func MergeEnvironment(base, override map[string]string) map[string]string {
	result := make(map[string]string, len(base)+len(override))

	for k, v := range base {
		result[k] = v
	}

	for k, v := range override {
		result[k] = v
	}

	return result
}

// SetDefaults assigns each entry only if the key is currently unset or
// holds the empty string. Existing non-empty values are left untouched.
func SetDefaults(env, defaults map[string]string) {
	for k, v := range defaults {
		if current, ok := env[k]; !ok || current == "" {
			env[k] = v
		}
	}
}

// BuildEnv creates an environment slice from a map, suitable for os/exec.
func BuildEnv(env map[string]string) []string {
	result := make([]string, 0, len(env))
	for k, v := range env {
		result = append(result, fmt.Sprintf("%s=%s", k, v))
	}
	return result
}
