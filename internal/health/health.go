package health

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Status represents the health status
type Status string

// Health states, worst last.
const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// Check represents a health check result
type Check struct {
	Name      string        `json:"name"`
	Status    Status        `json:"status"`
	Message   string        `json:"message,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
	Duration  time.Duration `json:"duration"`
}

// Pinger is the backend connectivity probe (a namespace read).
type Pinger interface {
	Ping(ctx context.Context) error
	BreakerState() string
}

// CredentialChecker re-validates the configured credentials.
type CredentialChecker interface {
	Check() error
}

// Checker performs health checks
type Checker struct {
	backend     Pinger
	credentials CredentialChecker
	logger      *zap.Logger
	slow        time.Duration
}

// New creates a new health checker
func New(backend Pinger, credentials CredentialChecker, logger *zap.Logger) *Checker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Checker{
		backend:     backend,
		credentials: credentials,
		logger:      logger,
		slow:        3 * time.Second,
	}
}

// CheckAll performs all health checks
func (c *Checker) CheckAll(ctx context.Context) (Status, []Check) {
	checks := []Check{
		c.checkCredentials(),
		c.checkBreaker(),
		c.checkAPIConnectivity(ctx),
	}

	overallStatus := StatusHealthy
	for _, check := range checks {
		if check.Status == StatusUnhealthy {
			overallStatus = StatusUnhealthy
			break
		} else if check.Status == StatusDegraded && overallStatus == StatusHealthy {
			overallStatus = StatusDegraded
		}
	}

	return overallStatus, checks
}

func (c *Checker) checkCredentials() Check {
	start := time.Now()
	check := Check{
		Name:      "credentials",
		Timestamp: start,
	}

	err := c.credentials.Check()
	check.Duration = time.Since(start)

	if err != nil {
		check.Status = StatusUnhealthy
		check.Message = fmt.Sprintf("Credential validation failed: %v", err)
		c.logger.Error("Health check failed: credentials", zap.Error(err))
	} else {
		check.Status = StatusHealthy
		check.Message = "Credentials valid"
	}
	return check
}

func (c *Checker) checkBreaker() Check {
	state := c.backend.BreakerState()
	check := Check{
		Name:      "circuit_breaker",
		Timestamp: time.Now(),
		Status:    StatusHealthy,
		Message:   state,
	}
	switch state {
	case "open":
		check.Status = StatusUnhealthy
	case "half-open":
		check.Status = StatusDegraded
	}
	return check
}

func (c *Checker) checkAPIConnectivity(ctx context.Context) Check {
	start := time.Now()
	check := Check{
		Name:      "api_connectivity",
		Timestamp: start,
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := c.backend.Ping(checkCtx)
	check.Duration = time.Since(start)

	switch {
	case err != nil:
		check.Status = StatusUnhealthy
		check.Message = fmt.Sprintf("API unreachable: %v", err)
		c.logger.Warn("Health check failed: API connectivity",
			zap.Error(err),
			zap.Duration("duration", check.Duration),
		)
	case check.Duration > c.slow:
		check.Status = StatusDegraded
		check.Message = "API responding slowly"
	default:
		check.Status = StatusHealthy
		check.Message = "API reachable"
	}
	return check
}
