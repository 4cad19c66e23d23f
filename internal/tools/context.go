package tools

import (
	"context"
	"sync"
)

type contextKey string

const callInfoContextKey contextKey = "call_info"

// CallInfo collects what a tool compiled and executed during one call, so the
// server can audit it after Execute returns.
type CallInfo struct {
	mu          sync.Mutex
	Family      string
	Query       string
	Placement   string
	Fallback    bool
	DryRun      bool
	RequestID   string
	ResultCount int
	Err         error
}

// WithCallInfo attaches an empty CallInfo to ctx and returns both.
func WithCallInfo(ctx context.Context) (context.Context, *CallInfo) {
	info := &CallInfo{}
	return context.WithValue(ctx, callInfoContextKey, info), info
}

// CallInfoFromContext returns the CallInfo attached to ctx, or nil.
func CallInfoFromContext(ctx context.Context) *CallInfo {
	info, _ := ctx.Value(callInfoContextKey).(*CallInfo)
	return info
}

// Snapshot returns a copy safe to read after the call.
func (c *CallInfo) Snapshot() CallInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CallInfo{
		Family:      c.Family,
		Query:       c.Query,
		Placement:   c.Placement,
		Fallback:    c.Fallback,
		DryRun:      c.DryRun,
		RequestID:   c.RequestID,
		ResultCount: c.ResultCount,
		Err:         c.Err,
	}
}

// ErrorCode is the structured error code of the recorded failure, if any.
func (c *CallInfo) ErrorCode() string {
	return errorCode(c.Err)
}

func recordCall(ctx context.Context, update func(*CallInfo)) {
	info := CallInfoFromContext(ctx)
	if info == nil {
		return
	}
	info.mu.Lock()
	defer info.mu.Unlock()
	update(info)
}
