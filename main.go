// Package main implements the OCI Logging Analytics MCP (Model Context Protocol) server.
//
// The server translates structured tool calls into Logging Analytics queries,
// runs them against a namespace and returns the results over MCP stdio.
//
// Configuration is provided through environment variables (optionally from a
// .env file) and an optional YAML file named by CONFIG_FILE:
//   - LOGAN_NAMESPACE: Object Storage namespace of the tenancy (required)
//   - LOGAN_REGION or LOGAN_SERVICE_URL: service endpoint (required)
//   - LOGAN_AUTH_TYPE: oci_signature (default), bearer, basic or none
//   - LOGAN_TENANCY_ID, LOGAN_USER_ID, LOGAN_FINGERPRINT, LOGAN_PRIVATE_KEY_PATH: API signing key
//   - ENVIRONMENT: set to "production" for JSON production logging
//
// Example usage:
//
//	export LOGAN_NAMESPACE="mytenancy"
//	export LOGAN_REGION="us-ashburn-1"
//	./logan-mcp-server serve
//	./logan-mcp-server compile --time-range 1h "* | stats count by 'Log Source'"
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/tareqmamari/logan-mcp-server/internal/config"
	"github.com/tareqmamari/logan-mcp-server/internal/server"
	"github.com/tareqmamari/logan-mcp-server/internal/tracing"
)

// Build information - set at build time via ldflags
var (
	version = "dev"     // e.g., "v0.4.0" or "dev"
	commit  = "unknown" // Git commit SHA
	builtBy = "manual"  // "goreleaser" or "manual"
)

const serviceName = "logan-mcp-server"

func main() {
	// Load .env file if it exists (optional, for development)
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   serviceName,
		Short: "MCP server for OCI Logging Analytics",
		Long: `logan-mcp-server exposes OCI Logging Analytics to MCP clients over stdio.

Run without a subcommand to serve. The validate, fix and compile subcommands
work offline and never contact the service.`,
		Version:       fmt.Sprintf("%s (commit %s, built by %s)", version, commit, builtBy),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Serve MCP over stdio (default)",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runServe(cmd.Context())
			},
		},
		newValidateCmd(),
		newFixCmd(),
		newCompileCmd(),
		newVersionCmd(),
	)
	return root
}

func runServe(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		return err
	}

	logger, err := initLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return err
	}
	defer func() {
		_ = logger.Sync() // Ignore error on cleanup
	}()

	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid configuration", zap.Error(err))
		return err
	}

	shutdownTracing, err := tracing.InitOTel(tracing.OTelConfig{
		ServiceName:    serviceName,
		ServiceVersion: version,
		Environment:    cfg.Environment,
		Enabled:        cfg.EnableTracing,
		Writer:         os.Stderr,
	})
	if err != nil {
		logger.Error("Failed to initialize tracing", zap.Error(err))
		return err
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warn("Failed to flush traces", zap.Error(err))
		}
	}()

	logger.Info("Starting OCI Logging Analytics MCP Server",
		zap.String("version", version),
		zap.String("commit", commit),
		zap.String("built_by", builtBy),
		zap.String("endpoint", cfg.ServiceURL),
		zap.String("namespace", cfg.Namespace),
		zap.String("auth_type", cfg.AuthType),
	)

	mcpServer, err := server.New(cfg, logger, version)
	if err != nil {
		logger.Error("Failed to create MCP server", zap.Error(err))
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- mcpServer.Start(ctx)
	}()

	select {
	case sig := <-sigChan:
		logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
	case err := <-serverDone:
		if err != nil && ctx.Err() == nil {
			logger.Error("Server error", zap.Error(err))
			return err
		}
		return nil
	}

	logger.Info("Initiating graceful shutdown", zap.Duration("timeout", cfg.ShutdownTimeout))
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	select {
	case <-serverDone:
		logger.Info("Server shutdown complete")
	case <-shutdownCtx.Done():
		logger.Warn("Shutdown timeout exceeded, forcing exit",
			zap.Duration("timeout", cfg.ShutdownTimeout))
	}

	// Allow a brief moment for final cleanup
	time.Sleep(100 * time.Millisecond)
	return nil
}

// initLogger builds a zap logger on stderr; stdout carries the MCP stream.
// Production environments get JSON output, everything else the development
// console encoder unless LOG_FORMAT says otherwise.
func initLogger(cfg *config.Config) (*zap.Logger, error) {
	var zcfg zap.Config
	if strings.EqualFold(cfg.Environment, "production") {
		zcfg = zap.NewProductionConfig()
	} else {
		zcfg = zap.NewDevelopmentConfig()
	}

	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)

	switch strings.ToLower(cfg.LogFormat) {
	case "json":
		zcfg.Encoding = "json"
	case "console":
		zcfg.Encoding = "console"
	}
	zcfg.OutputPaths = []string{"stderr"}
	zcfg.ErrorOutputPaths = []string{"stderr"}

	return zcfg.Build(zap.Fields(zap.String("service", serviceName)))
}
