package providers

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Credential modes registered by DefaultRegistry.
const (
	ModePlaintext = "plaintext"
	ModeSHA512    = "sha512"
	ModeBcrypt    = "bcrypt"
)

var (
	// ErrModeExists is returned when attempting to register a credential mode more than once.
	ErrModeExists = errors.New("verifier registry: mode already registered")
	// ErrUnknownMode is returned when no factory exists for the requested mode.
	ErrUnknownMode = errors.New("verifier registry: unknown mode")
)

// VerifierConfig carries the settings a factory may need.
type VerifierConfig struct {
	Iterations int
	Logger     *zap.Logger
}

// Factory builds a verifier from configuration.
type Factory func(cfg VerifierConfig) (CredentialVerifier, error)

// Registry maps credential storage modes to verifier factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// DefaultRegistry returns a registry with the plaintext, sha512 and bcrypt modes.
func DefaultRegistry() *Registry {
	reg := NewRegistry()
	_ = reg.Register(ModePlaintext, func(VerifierConfig) (CredentialVerifier, error) {
		return PlaintextVerifier{}, nil
	})
	_ = reg.Register(ModeSHA512, func(cfg VerifierConfig) (CredentialVerifier, error) {
		if cfg.Iterations < 0 {
			return nil, fmt.Errorf("sha512 iterations must not be negative, got %d", cfg.Iterations)
		}
		return NewSaltedHashVerifier(cfg.Iterations, cfg.Logger), nil
	})
	_ = reg.Register(ModeBcrypt, func(VerifierConfig) (CredentialVerifier, error) {
		return BcryptVerifier{}, nil
	})
	return reg
}

// Register adds a factory, enforcing uniqueness by mode.
func (r *Registry) Register(mode string, factory Factory) error {
	mode = normaliseMode(mode)
	if mode == "" {
		return errors.New("verifier registry: mode is required")
	}
	if factory == nil {
		return errors.New("verifier registry: factory is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[mode]; exists {
		return fmt.Errorf("%w: %s", ErrModeExists, mode)
	}
	r.factories[mode] = factory
	return nil
}

// Modes lists the registered modes in lexical order.
func (r *Registry) Modes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	modes := make([]string, 0, len(r.factories))
	for mode := range r.factories {
		modes = append(modes, mode)
	}
	sort.Strings(modes)
	return modes
}

// FactoryFor retrieves the factory for mode, if registered.
func (r *Registry) FactoryFor(mode string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	factory, ok := r.factories[normaliseMode(mode)]
	return factory, ok
}

// Build instantiates the verifier for mode.
func (r *Registry) Build(mode string, cfg VerifierConfig) (CredentialVerifier, error) {
	factory, ok := r.FactoryFor(mode)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
	return factory(cfg)
}

func normaliseMode(mode string) string {
	return strings.ToLower(strings.TrimSpace(mode))
}
