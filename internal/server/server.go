// Package server provides the MCP server implementation for OCI Logging Analytics.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/tareqmamari/logan-mcp-server/internal/audit"
	"github.com/tareqmamari/logan-mcp-server/internal/auth"
	"github.com/tareqmamari/logan-mcp-server/internal/client"
	"github.com/tareqmamari/logan-mcp-server/internal/config"
	"github.com/tareqmamari/logan-mcp-server/internal/health"
	"github.com/tareqmamari/logan-mcp-server/internal/metrics"
	"github.com/tareqmamari/logan-mcp-server/internal/prompts"
	"github.com/tareqmamari/logan-mcp-server/internal/resources"
	"github.com/tareqmamari/logan-mcp-server/internal/security"
	"github.com/tareqmamari/logan-mcp-server/internal/tools"
	"github.com/tareqmamari/logan-mcp-server/internal/tracing"
)

const serverName = "OCI Logging Analytics MCP Server"

// Server represents the MCP server
type Server struct {
	mcpServer     *mcp.Server
	apiClient     *client.Client
	config        *config.Config
	logger        *zap.Logger
	metrics       *metrics.Metrics
	audit         *audit.Logger
	version       string
	healthServer  *health.Server
	authenticator *auth.Authenticator
	tools         []tools.Tool
}

// New creates a new MCP server instance.
func New(cfg *config.Config, logger *zap.Logger, version string) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	authenticator, err := auth.New(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create authenticator: %w", err)
	}

	metricsTracker := metrics.New(logger)

	apiClient, err := client.New(cfg, authenticator, logger, version, client.WithRecorder(metricsTracker))
	if err != nil {
		return nil, fmt.Errorf("failed to create API client: %w", err)
	}

	mcpServer := mcp.NewServer(&mcp.Implementation{
		Name:    serverName,
		Version: version,
	}, &mcp.ServerOptions{
		HasTools:     true,
		HasPrompts:   true,
		HasResources: true,
	})

	s := &Server{
		mcpServer:     mcpServer,
		apiClient:     apiClient,
		config:        cfg,
		logger:        logger,
		metrics:       metricsTracker,
		audit:         audit.NewLogger(logger, cfg.EnableAuditLog),
		version:       version,
		authenticator: authenticator,
	}

	if cfg.HealthPort > 0 {
		checker := health.New(apiClient, authenticator, logger)
		s.healthServer = health.NewServer(checker, logger, cfg.HealthPort, "", metricsTracker.Registry())
	}

	s.registerTools()
	s.registerPrompts()
	s.registerResources()

	return s, nil
}

func (s *Server) toolDeps() tools.Deps {
	return tools.Deps{
		Backend:  s.apiClient,
		Recorder: s.metrics,
		Limits: tools.Limits{
			DefaultTimeRange: s.config.DefaultTimeRange,
			DefaultMaxCount:  s.config.DefaultMaxCount,
			MaxCountLimit:    s.config.MaxCountLimit,
			CompartmentID:    s.config.CompartmentID,
		},
		Logger: s.logger,
	}
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	s.tools = tools.GetAllTools(s.toolDeps())
	for _, t := range s.tools {
		s.registerTool(t)
	}

	counts := tools.CountByCategory(s.tools)
	fields := []zap.Field{zap.Int("count", len(s.tools))}
	for category, n := range counts {
		fields = append(fields, zap.Int(string(category), n))
	}
	s.logger.Info("Registered all MCP tools", fields...)
}

func (s *Server) registerTool(t tools.Tool) {
	mcpTool := &mcp.Tool{
		Name:        t.Name(),
		Description: t.Description(),
		InputSchema: t.InputSchema(),
		Annotations: t.Annotations(),
	}
	s.mcpServer.AddTool(mcpTool, s.toolHandler(t))
	s.logger.Debug("Registered tool", zap.String("tool", mcpTool.Name))
}

// toolTimeout is the tool's own deadline, with query tools following the
// configured query timeout.
func (s *Server) toolTimeout(t tools.Tool) time.Duration {
	timeout := t.DefaultTimeout()
	if timeout == tools.DefaultQueryTimeout && s.config.QueryTimeout > 0 {
		return s.config.QueryTimeout
	}
	return timeout
}

// toolHandler wraps Execute with tracing, a deadline, metrics and an audit entry.
func (s *Server) toolHandler(t tools.Tool) mcp.ToolHandler {
	toolName := t.Name()

	return func(ctx context.Context, request *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()

		ctx, span := tracing.ToolSpan(ctx, toolName)
		defer span.End()

		var args map[string]interface{}
		if request.Params != nil && len(request.Params.Arguments) > 0 {
			if err := json.Unmarshal(request.Params.Arguments, &args); err != nil {
				s.metrics.RecordToolExecution(toolName, false, time.Since(start))
				tracing.RecordError(span, err)
				return nil, fmt.Errorf("failed to unmarshal arguments: %w", err)
			}
		}
		if args == nil {
			args = map[string]interface{}{}
		}
		tracing.AddToolAttributes(span, args)

		if timeout := s.toolTimeout(t); timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		ctx, info := tools.WithCallInfo(ctx)

		result, err := t.Execute(ctx, args)
		duration := time.Since(start)
		success := err == nil && (result == nil || !result.IsError)
		s.metrics.RecordToolExecution(toolName, success, duration)

		call := info.Snapshot()
		entry := audit.Entry{
			Tool:        toolName,
			Family:      call.Family,
			Query:       call.Query,
			Placement:   call.Placement,
			Fallback:    call.Fallback,
			DryRun:      call.DryRun,
			RequestID:   call.RequestID,
			Success:     success,
			Duration:    duration,
			InputHash:   audit.HashInput(args),
			ResultCount: call.ResultCount,
		}
		switch {
		case err != nil:
			entry.ErrorCode = call.ErrorCode()
			entry.ErrorMsg = security.SanitizeError(err)
			tracing.RecordError(span, err)
		case !success:
			entry.ErrorCode = call.ErrorCode()
			if entry.ErrorCode == "" {
				entry.ErrorCode = resultErrorCode(result)
			}
			entry.ErrorMsg = security.SanitizeError(call.Err)
			if call.Err != nil {
				tracing.RecordError(span, call.Err)
			}
		default:
			tracing.SetSuccess(span)
		}
		s.audit.Log(ctx, entry)

		return result, err
	}
}

// resultErrorCode reads the code of a structured error result.
func resultErrorCode(result *mcp.CallToolResult) string {
	if result == nil || len(result.Content) == 0 {
		return ""
	}
	text, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		return ""
	}
	var body struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal([]byte(text.Text), &body); err != nil {
		return ""
	}
	return body.Code
}

// registerPrompts registers all available MCP prompts
func (s *Server) registerPrompts() {
	registry := prompts.NewRegistry(s.logger)

	for _, p := range registry.GetPrompts() {
		s.mcpServer.AddPrompt(p.Prompt, p.Handler)
		s.logger.Debug("Registered prompt", zap.String("prompt", p.Prompt.Name))
	}

	s.logger.Info("Registered all MCP prompts", zap.Int("count", len(registry.GetPrompts())))
}

// registerResources registers all available MCP resources and resource templates
func (s *Server) registerResources() {
	registry := resources.NewRegistry(s.config, s.metrics, s.audit, s.logger, s.version)

	for _, r := range registry.GetResources() {
		s.mcpServer.AddResource(r.Resource, r.Handler)
		s.logger.Debug("Registered resource", zap.String("uri", r.Resource.URI))
	}

	templateHandler := registry.GetTemplateHandler()
	for _, t := range registry.GetResourceTemplates() {
		s.mcpServer.AddResourceTemplate(&t, templateHandler)
		s.logger.Debug("Registered resource template", zap.String("uri_template", t.URITemplate))
	}

	s.logger.Info("Registered all MCP resources",
		zap.Int("static_count", len(registry.GetResources())),
		zap.Int("template_count", len(registry.GetResourceTemplates())),
	)
}

// Start serves MCP over stdio until ctx is cancelled or the client disconnects.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting MCP server",
		zap.String("namespace", s.config.Namespace),
		zap.String("auth_type", s.authenticator.Type()),
	)

	if s.healthServer != nil {
		go func() {
			if err := s.healthServer.Start(); err != nil {
				s.logger.Error("Health server error", zap.Error(err))
			}
		}()
		s.healthServer.SetReady(true)
	}

	defer s.shutdown()

	return s.mcpServer.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) shutdown() {
	s.metrics.LogStats()

	if s.healthServer != nil {
		s.healthServer.SetReady(false)
		timeout := s.config.ShutdownTimeout
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := s.healthServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("Failed to shutdown health server", zap.Error(err))
		}
	}

	if err := s.apiClient.Close(); err != nil {
		s.logger.Error("Failed to close API client", zap.Error(err))
	}
}

// GetMetrics returns the server's metrics tracker for external access
func (s *Server) GetMetrics() *metrics.Metrics {
	return s.metrics
}

// GetAuditLog returns the in-memory audit trail.
func (s *Server) GetAuditLog() *audit.Logger {
	return s.audit
}
