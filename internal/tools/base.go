package tools

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/tareqmamari/logan-mcp-server/internal/client"
	mcperrors "github.com/tareqmamari/logan-mcp-server/internal/errors"
	"github.com/tareqmamari/logan-mcp-server/internal/query"
	"github.com/tareqmamari/logan-mcp-server/internal/timerange"
	"github.com/tareqmamari/logan-mcp-server/internal/tracing"
)

// Backend is the part of the Logging Analytics client the tools use.
type Backend interface {
	NewQueryRequest(queryString string, tf *timerange.TimeFilter, maxCount int) client.QueryRequest
	Query(ctx context.Context, q client.QueryRequest, limit int) (*client.QueryResponse, error)
	List(ctx context.Context, resource string, params url.Values) (*client.ListResponse, error)
	GetNamespace(ctx context.Context) (map[string]interface{}, error)
	GetLookup(ctx context.Context, name string) (map[string]interface{}, error)
	Suggest(ctx context.Context, queryString string) (map[string]interface{}, error)
	Parse(ctx context.Context, queryString string) (map[string]interface{}, error)
	Ping(ctx context.Context) error
	Namespace() string
	BreakerState() string
}

// CompileRecorder receives one event per compiled query.
type CompileRecorder interface {
	RecordCompilation(family, placement string, fallback bool)
}

type nopRecorder struct{}

func (nopRecorder) RecordCompilation(string, string, bool) {}

// Limits are the configured query bounds.
type Limits struct {
	DefaultTimeRange string
	DefaultMaxCount  int
	MaxCountLimit    int
	CompartmentID    string
}

// Deps are the collaborators shared by every tool.
type Deps struct {
	Backend     Backend
	Transformer *query.Transformer
	Resolver    *timerange.Resolver
	Recorder    CompileRecorder
	Limits      Limits
	Logger      *zap.Logger
}

var errNoBackend = mcperrors.NewServiceUnavailable().
	WithDetails(map[string]interface{}{"reason": "no Logging Analytics client configured"})

// BaseTool provides common functionality for all tools
type BaseTool struct {
	backend     Backend
	transformer *query.Transformer
	resolver    *timerange.Resolver
	recorder    CompileRecorder
	limits      Limits
	logger      *zap.Logger
}

// NewBaseTool fills unset dependencies with working defaults.
func NewBaseTool(d Deps) *BaseTool {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Transformer == nil {
		d.Transformer = query.NewTransformer(d.Logger)
	}
	if d.Resolver == nil {
		d.Resolver = timerange.NewResolver()
	}
	if d.Recorder == nil {
		d.Recorder = nopRecorder{}
	}
	if d.Limits.DefaultTimeRange == "" {
		d.Limits.DefaultTimeRange = timerange.DefaultToken
	}
	if d.Limits.MaxCountLimit <= 0 {
		d.Limits.MaxCountLimit = 10000
	}
	if d.Limits.DefaultMaxCount <= 0 || d.Limits.DefaultMaxCount > d.Limits.MaxCountLimit {
		d.Limits.DefaultMaxCount = min(1000, d.Limits.MaxCountLimit)
	}
	return &BaseTool{
		backend:     d.Backend,
		transformer: d.Transformer,
		resolver:    d.Resolver,
		recorder:    d.Recorder,
		limits:      d.Limits,
		logger:      d.Logger,
	}
}

// DefaultTimeout is the query timeout; offline tools override it.
func (t *BaseTool) DefaultTimeout() time.Duration {
	return DefaultQueryTimeout
}

// queryOptions are the arguments shared by every query-producing tool.
type queryOptions struct {
	window   timerange.Window
	maxCount int
	dryRun   bool
	strict   bool
	compile  []query.CompileOption
}

// parseQueryOptions reads time_range, time_range_minutes, max_count and dry_run.
func (t *BaseTool) parseQueryOptions(args map[string]interface{}) (queryOptions, error) {
	var opts queryOptions

	token, err := GetStringParam(args, "time_range", false)
	if err != nil {
		return opts, err
	}
	minutes, err := GetIntParam(args, "time_range_minutes", false)
	if err != nil {
		return opts, err
	}
	switch {
	case minutes < 0:
		return opts, fmt.Errorf("time_range_minutes must be positive")
	case minutes > 0:
		opts.window = t.resolver.ResolveMinutes(minutes)
	case token != "":
		opts.window = t.resolver.Resolve(token)
	default:
		opts.window = t.resolver.Resolve(t.limits.DefaultTimeRange)
	}

	opts.maxCount, err = GetIntParam(args, "max_count", false)
	if err != nil {
		return opts, err
	}
	if opts.maxCount == 0 {
		opts.maxCount = t.limits.DefaultMaxCount
	}
	if opts.maxCount < 1 || opts.maxCount > t.limits.MaxCountLimit {
		return opts, fmt.Errorf("max_count must be between 1 and %d", t.limits.MaxCountLimit)
	}

	if opts.dryRun, err = GetBoolParam(args, "dry_run", false); err != nil {
		return opts, err
	}
	return opts, nil
}

// QueryResult is the JSON body returned by query-producing tools.
type QueryResult struct {
	Query          string                   `json:"query"`
	TimeFilter     *timerange.TimeFilter    `json:"time_filter,omitempty"`
	TimePeriod     string                   `json:"time_period"`
	TimePlacement  string                   `json:"time_placement"`
	Family         string                   `json:"family"`
	Category       string                   `json:"category,omitempty"`
	Fallback       bool                     `json:"fallback"`
	FallbackReason string                   `json:"fallback_reason,omitempty"`
	Corrections    []string                 `json:"corrections,omitempty"`
	Validation     *query.ValidationResult  `json:"validation,omitempty"`
	DryRun         bool                     `json:"dry_run,omitempty"`
	Columns        []string                 `json:"columns,omitempty"`
	Results        []map[string]interface{} `json:"results"`
	TotalCount     int                      `json:"total_count"`
	Partial        bool                     `json:"partial,omitempty"`
	PartialReason  string                   `json:"partial_reason,omitempty"`
	ExecutionMs    int64                    `json:"execution_ms,omitempty"`
	RequestID      string                   `json:"request_id,omitempty"`
	Truncated      *Truncation              `json:"truncated,omitempty"`

	all []map[string]interface{}
}

// compile runs the transformer inside a span and records the outcome.
func (t *BaseTool) compile(ctx context.Context, intent query.Intent, opts queryOptions) (*query.CompiledQuery, error) {
	family := "nil"
	if intent != nil {
		family = string(intent.Family())
	}
	_, span := tracing.CompileSpan(ctx, family)
	defer span.End()

	compiled, err := t.transformer.Compile(intent, opts.window, opts.compile...)
	if err != nil {
		tracing.RecordError(span, err)
		recordCall(ctx, func(c *CallInfo) { c.Err = err })
		return nil, err
	}
	tracing.SetQuery(span, compiled.QueryString, compiled.TimePlacement, compiled.Fallback)
	tracing.SetSuccess(span)
	t.recorder.RecordCompilation(string(compiled.Family), compiled.TimePlacement, compiled.Fallback)

	recordCall(ctx, func(c *CallInfo) {
		c.Family = string(compiled.Family)
		c.Query = compiled.QueryString
		c.Placement = compiled.TimePlacement
		c.Fallback = compiled.Fallback
		c.DryRun = opts.dryRun
	})
	return compiled, nil
}

// run compiles intent and, unless dry_run is set, executes it.
func (t *BaseTool) run(ctx context.Context, toolName string, intent query.Intent, opts queryOptions) (*mcp.CallToolResult, error) {
	compiled, err := t.compile(ctx, intent, opts)
	if err != nil {
		return HandleError(err, toolName), nil
	}

	result := newQueryResult(compiled)
	if compiled.Validation != nil && !compiled.Validation.IsValid && opts.strict {
		se := mcperrors.NewQueryValidationFailed(compiled.Validation.Errors).
			WithDetails(map[string]interface{}{"query": compiled.QueryString, "errors": compiled.Validation.Errors})
		recordCall(ctx, func(c *CallInfo) { c.Err = se })
		return NewStructuredErrorResult(se), nil
	}
	if opts.dryRun {
		result.DryRun = true
		return t.FormatResponse(result)
	}

	resp, err := t.execute(ctx, compiled.QueryString, compiled.TimeFilter, opts.maxCount)
	if err != nil {
		return HandleError(err, toolName), nil
	}
	result.fill(resp)
	return t.FormatResponse(result)
}

// runQuery compiles and executes intent for tools that post-process rows.
// With dry_run set the result carries only the compiled query.
func (t *BaseTool) runQuery(ctx context.Context, intent query.Intent, opts queryOptions) (*QueryResult, error) {
	compiled, err := t.compile(ctx, intent, opts)
	if err != nil {
		return nil, err
	}
	result := newQueryResult(compiled)
	if opts.dryRun {
		result.DryRun = true
		result.Results = []map[string]interface{}{}
		return result, nil
	}
	resp, err := t.execute(ctx, compiled.QueryString, compiled.TimeFilter, opts.maxCount)
	if err != nil {
		return nil, err
	}
	result.fill(resp)
	return result, nil
}

// execute sends one query and records its outcome on the call.
func (t *BaseTool) execute(ctx context.Context, queryString string, tf *timerange.TimeFilter, maxCount int) (*client.QueryResponse, error) {
	if t.backend == nil {
		return nil, errNoBackend
	}
	resp, err := t.backend.Query(ctx, t.backend.NewQueryRequest(queryString, tf, maxCount), maxCount)
	recordCall(ctx, func(c *CallInfo) {
		c.Err = err
		if resp != nil {
			c.RequestID = resp.RequestID
			c.ResultCount = len(resp.Items)
		}
	})
	return resp, err
}

func newQueryResult(c *query.CompiledQuery) *QueryResult {
	return &QueryResult{
		Query:          c.QueryString,
		TimeFilter:     c.TimeFilter,
		TimePeriod:     c.TimePeriod,
		TimePlacement:  c.TimePlacement,
		Family:         string(c.Family),
		Category:       c.Category,
		Fallback:       c.Fallback,
		FallbackReason: c.FallbackReason,
		Corrections:    c.Corrections,
		Validation:     c.Validation,
	}
}

func (r *QueryResult) fill(resp *client.QueryResponse) {
	r.Results = resp.Items
	if r.Results == nil {
		r.Results = []map[string]interface{}{}
	}
	for _, col := range resp.Columns {
		r.Columns = append(r.Columns, col.DisplayName)
	}
	r.TotalCount = resp.TotalCount
	if r.TotalCount == 0 {
		r.TotalCount = len(resp.Items)
	}
	r.Partial = resp.ArePartialResults
	r.PartialReason = resp.PartialResultReason
	r.ExecutionMs = resp.QueryExecutionMs
	r.RequestID = resp.RequestID
}
