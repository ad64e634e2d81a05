package providers

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/charlesng35/sessiongate/internal/models"
	"github.com/charlesng35/sessiongate/pkg/crypto"
	"github.com/charlesng35/sessiongate/pkg/logger"
)

// LocalConfig defines tunable behaviour for the local provider.
type LocalConfig struct {
	// Mode selects the credential storage format (plaintext, sha512 or bcrypt). Empty means plaintext.
	Mode       string
	Iterations int
	// Verifier overrides Mode when set.
	Verifier CredentialVerifier
	Logger   *zap.Logger
}

// LocalProvider checks a password against candidate directory records.
type LocalProvider struct {
	verifier CredentialVerifier
	mode     string
}

// NewLocalProvider resolves the configured verifier.
func NewLocalProvider(cfg LocalConfig) (*LocalProvider, error) {
	if cfg.Verifier != nil {
		return &LocalProvider{verifier: cfg.Verifier, mode: cfg.Mode}, nil
	}

	mode := cfg.Mode
	if mode == "" {
		mode = ModePlaintext
	}
	iterations := cfg.Iterations
	if iterations == 0 {
		iterations = crypto.DefaultHashIterations
	}
	log := cfg.Logger
	if log == nil {
		log = logger.WithModule("auth.local")
	}
	verifier, err := DefaultRegistry().Build(mode, VerifierConfig{Iterations: iterations, Logger: log})
	if err != nil {
		return nil, fmt.Errorf("local provider: %w", err)
	}
	return &LocalProvider{verifier: verifier, mode: normaliseMode(mode)}, nil
}

// Mode reports the credential mode the provider was built for.
func (p *LocalProvider) Mode() string {
	return p.mode
}

// Authenticate partitions candidates into those whose credential matches password and the rest.
// Locked records are evaluated like any other but always land in failed. Order is preserved.
func (p *LocalProvider) Authenticate(candidates []*models.User, password string) (passed, failed []*models.User) {
	for _, candidate := range candidates {
		if candidate == nil {
			continue
		}
		matched := p.verifier.Verify(candidate, password)
		if matched && !candidate.IsLocked {
			passed = append(passed, candidate)
			continue
		}
		failed = append(failed, candidate)
	}
	return passed, failed
}
