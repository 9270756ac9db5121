package profile

import (
	"context"
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/victoralfred/gowritter/safepath"
	"gopkg.in/yaml.v3"

	"github.com/victoralfred/golaunch/bootstrap"
)

// Loader loads and manages boot profiles from YAML files.
type Loader struct {
	path       string
	safePath   *safepath.SafePath
	profile    *bootstrap.Profile
	mu         sync.RWMutex
	lastHash   []byte
	lastLoad   time.Time
	validators []Validator
	onChange   []func(*bootstrap.Profile)
	watchStop  chan struct{}
}

// LoaderOption configures the loader.
type LoaderOption func(*Loader)

// WithValidator adds a profile validator.
func WithValidator(v Validator) LoaderOption {
	return func(l *Loader) {
		l.validators = append(l.validators, v)
	}
}

// WithOnChange adds a callback for profile changes.
func WithOnChange(fn func(*bootstrap.Profile)) LoaderOption {
	return func(l *Loader) {
		l.onChange = append(l.onChange, fn)
	}
}

// NewLoader creates a new profile loader.
func NewLoader(basePath, profileFile string, opts ...LoaderOption) (*Loader, error) {
	sp, err := safepath.New(basePath)
	if err != nil {
		return nil, fmt.Errorf("creating safe path: %w", err)
	}

	l := &Loader{
		path:       profileFile,
		safePath:   sp,
		validators: []Validator{&DefaultValidator{}},
		onChange:   make([]func(*bootstrap.Profile), 0),
	}

	for _, opt := range opts {
		opt(l)
	}

	return l, nil
}

// Load loads the profile from the file.
func (l *Loader) Load(ctx context.Context) (*bootstrap.Profile, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	data, err := l.safePath.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("reading profile file: %w", err)
	}

	// Skip recompilation if the file has not changed
	hash := sha256.Sum256(data)
	if l.profile != nil && string(hash[:]) == string(l.lastHash) {
		return l.profile, nil
	}

	config, err := ParseYAML(data)
	if err != nil {
		return nil, fmt.Errorf("parsing profile YAML: %w", err)
	}

	for _, v := range l.validators {
		if err := v.Validate(config); err != nil {
			return nil, fmt.Errorf("profile validation failed: %w", err)
		}
	}

	compiled, err := config.Compile()
	if err != nil {
		return nil, fmt.Errorf("compiling profile: %w", err)
	}

	l.profile = compiled
	l.lastHash = hash[:]
	l.lastLoad = time.Now()

	for _, fn := range l.onChange {
		fn(compiled)
	}

	return compiled, nil
}

// Get returns the current profile without reloading.
func (l *Loader) Get() *bootstrap.Profile {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.profile
}

// Reload reloads the profile from the file.
func (l *Loader) Reload(ctx context.Context) error {
	_, err := l.Load(ctx)
	return err
}

// Watch starts watching for profile file changes.
func (l *Loader) Watch(ctx context.Context, interval time.Duration) {
	l.watchStop = make(chan struct{})

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-l.watchStop:
				return
			case <-ticker.C:
				if _, err := l.Load(ctx); err != nil {
					// Keep the last good profile and continue watching
					_ = err
				}
			}
		}
	}()
}

// StopWatch stops watching for profile changes.
func (l *Loader) StopWatch() {
	if l.watchStop != nil {
		close(l.watchStop)
	}
}

// ParseYAML parses a YAML profile configuration.
func ParseYAML(data []byte) (*Config, error) {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, err
	}
	return &config, nil
}
