// Package audit records one structured entry per tool invocation: what was
// asked, which query was compiled, and how the call ended.
package audit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tareqmamari/logan-mcp-server/internal/security"
	"github.com/tareqmamari/logan-mcp-server/internal/tracing"
)

// Entry represents a single audit log entry
type Entry struct {
	ID          string        `json:"id"`
	Timestamp   time.Time     `json:"timestamp"`
	TraceID     string        `json:"trace_id,omitempty"`
	SpanID      string        `json:"span_id,omitempty"`
	Tool        string        `json:"tool"`
	Family      string        `json:"family,omitempty"`
	Query       string        `json:"query,omitempty"`
	Placement   string        `json:"time_placement,omitempty"`
	Fallback    bool          `json:"fallback,omitempty"`
	DryRun      bool          `json:"dry_run,omitempty"`
	RequestID   string        `json:"request_id,omitempty"`
	Success     bool          `json:"success"`
	Duration    time.Duration `json:"duration_ms"`
	ErrorCode   string        `json:"error_code,omitempty"`
	ErrorMsg    string        `json:"error_message,omitempty"`
	InputHash   string        `json:"input_hash,omitempty"`
	ResultCount int           `json:"result_count,omitempty"`
}

// Logger handles audit logging
type Logger struct {
	enabled bool
	logger  *zap.Logger

	mu         sync.RWMutex
	entries    []Entry
	maxEntries int
}

// NewLogger creates a new audit logger
func NewLogger(logger *zap.Logger, enabled bool) *Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Logger{
		enabled:    enabled,
		logger:     logger.Named("audit"),
		entries:    make([]Entry, 0, 256),
		maxEntries: 1000,
	}
}

// Log records an audit entry and returns its ID. Disabled loggers return "".
func (l *Logger) Log(ctx context.Context, entry Entry) string {
	if !l.enabled {
		return ""
	}

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	traceInfo := tracing.FromContext(ctx)
	if traceInfo.TraceID != "" {
		entry.TraceID = traceInfo.TraceID
		entry.SpanID = traceInfo.SpanID
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	entry.ErrorMsg = security.MaskSensitiveData(entry.ErrorMsg)

	fields := []zap.Field{
		zap.String("audit_id", entry.ID),
		zap.String("tool", entry.Tool),
		zap.Bool("success", entry.Success),
		zap.Duration("duration", entry.Duration),
	}
	if entry.TraceID != "" {
		fields = append(fields, zap.String("trace_id", entry.TraceID))
	}
	if entry.Family != "" {
		fields = append(fields, zap.String("family", entry.Family))
	}
	if entry.Query != "" {
		fields = append(fields,
			zap.String("query", entry.Query),
			zap.String("time_placement", entry.Placement),
			zap.Bool("fallback", entry.Fallback),
			zap.Bool("dry_run", entry.DryRun),
		)
	}
	if entry.RequestID != "" {
		fields = append(fields, zap.String("request_id", entry.RequestID))
	}
	if entry.ErrorCode != "" {
		fields = append(fields, zap.String("error_code", entry.ErrorCode))
	}
	if entry.ErrorMsg != "" {
		fields = append(fields, zap.String("error_message", entry.ErrorMsg))
	}
	if entry.InputHash != "" {
		fields = append(fields, zap.String("input_hash", entry.InputHash))
	}
	if entry.ResultCount > 0 {
		fields = append(fields, zap.Int("result_count", entry.ResultCount))
	}

	l.logger.Info("audit", fields...)

	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.entries) >= l.maxEntries {
		l.entries = l.entries[1:]
	}
	l.entries = append(l.entries, entry)
	return entry.ID
}

// HashInput fingerprints tool arguments so entries can be correlated without
// storing the arguments themselves.
func HashInput(args map[string]interface{}) string {
	if len(args) == 0 {
		return ""
	}
	// encoding/json sorts map keys, so equal maps hash equally.
	data, err := json.Marshal(args)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:8])
}

// GetRecentEntries returns the most recent audit entries, newest first.
func (l *Logger) GetRecentEntries(limit int) []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if limit <= 0 || limit > len(l.entries) {
		limit = len(l.entries)
	}

	result := make([]Entry, 0, limit)
	for i := len(l.entries) - 1; i >= 0 && len(result) < limit; i-- {
		result = append(result, l.entries[i])
	}
	return result
}

// GetEntriesByTool returns audit entries for a specific tool, newest first.
func (l *Logger) GetEntriesByTool(toolName string, limit int) []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var result []Entry
	for i := len(l.entries) - 1; i >= 0 && len(result) < limit; i-- {
		if l.entries[i].Tool == toolName {
			result = append(result, l.entries[i])
		}
	}
	return result
}

// Stats contains aggregated audit statistics
type Stats struct {
	TotalEntries    int            `json:"total_entries"`
	SuccessRate     float64        `json:"success_rate_pct"`
	FallbackCount   int            `json:"fallback_count"`
	AverageDuration time.Duration  `json:"average_duration"`
	ToolUsage       map[string]int `json:"tool_usage"`
	FamilyCounts    map[string]int `json:"family_counts"`
	ErrorCounts     map[string]int `json:"error_counts"`
}

// GetStats returns statistics about audit entries
func (l *Logger) GetStats() Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()

	stats := Stats{
		TotalEntries: len(l.entries),
		ToolUsage:    make(map[string]int),
		FamilyCounts: make(map[string]int),
		ErrorCounts:  make(map[string]int),
	}

	var successCount int
	var totalDuration time.Duration
	for _, entry := range l.entries {
		stats.ToolUsage[entry.Tool]++
		if entry.Family != "" {
			stats.FamilyCounts[entry.Family]++
		}
		if entry.Fallback {
			stats.FallbackCount++
		}
		if entry.Success {
			successCount++
		} else if entry.ErrorCode != "" {
			stats.ErrorCounts[entry.ErrorCode]++
		}
		totalDuration += entry.Duration
	}

	if len(l.entries) > 0 {
		stats.SuccessRate = float64(successCount) / float64(len(l.entries)) * 100
		stats.AverageDuration = totalDuration / time.Duration(len(l.entries))
	}
	return stats
}

// IsEnabled returns whether audit logging is enabled
func (l *Logger) IsEnabled() bool {
	return l.enabled
}
