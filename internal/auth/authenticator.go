// Package auth selects and applies request authentication for the backend client.
package auth

import (
	"fmt"
	"net/http"

	"github.com/IBM/go-sdk-core/v5/core"
	"go.uber.org/zap"

	"github.com/tareqmamari/logan-mcp-server/internal/config"
)

// Authenticator handles backend authentication
type Authenticator struct {
	authenticator core.Authenticator
	logger        *zap.Logger
}

// New creates the authenticator named by cfg.AuthType.
func New(cfg *config.Config, logger *zap.Logger) (*Authenticator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		authenticator core.Authenticator
		err           error
	)
	switch cfg.AuthType {
	case config.AuthOCISignature:
		authenticator, err = NewOCISigner(cfg.TenancyID, cfg.UserID, cfg.Fingerprint, cfg.Region, cfg.PrivateKeyPath, cfg.PrivateKeyPassphrase)
	case config.AuthBearer:
		authenticator, err = core.NewBearerTokenAuthenticator(cfg.BearerToken)
	case config.AuthBasic:
		authenticator, err = core.NewBasicAuthenticator(cfg.Username, cfg.Password)
	case config.AuthNone:
		authenticator, err = core.NewNoAuthAuthenticator()
	default:
		return nil, fmt.Errorf("unknown auth type: %s", cfg.AuthType)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s authenticator: %w", cfg.AuthType, err)
	}

	return Wrap(authenticator, logger)
}

// Wrap validates an existing core.Authenticator and wraps it.
func Wrap(authenticator core.Authenticator, logger *zap.Logger) (*Authenticator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := authenticator.Validate(); err != nil {
		return nil, fmt.Errorf("failed to validate authenticator: %w", err)
	}

	logger.Info("Authenticator initialized", zap.String("type", authenticator.AuthenticationType()))
	return &Authenticator{
		authenticator: authenticator,
		logger:        logger,
	}, nil
}

// Authenticate adds authentication to an HTTP request
func (a *Authenticator) Authenticate(req *http.Request) error {
	if req == nil {
		return fmt.Errorf("request cannot be nil")
	}

	if err := a.authenticator.Authenticate(req); err != nil {
		a.logger.Error("Authentication failed", zap.Error(err))
		return fmt.Errorf("authentication failed: %w", err)
	}
	return nil
}

// Type reports the underlying authentication scheme.
func (a *Authenticator) Type() string {
	return a.authenticator.AuthenticationType()
}

// Check re-validates the credentials. Used by the health endpoint.
func (a *Authenticator) Check() error {
	return a.authenticator.Validate()
}
