package tools

import (
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

// Response size limits
const (
	// MaxResultSize keeps tool results small enough for client context windows.
	MaxResultSize = 100 * 1024

	// MinRowsAfterTruncation is the fewest rows a truncated result keeps.
	MinRowsAfterTruncation = 10

	// WarningMessageBuffer is reserved for the truncation notice.
	WarningMessageBuffer = 1000
)

// Truncation reports how many rows a response dropped.
type Truncation struct {
	OriginalCount int    `json:"original_count"`
	ShownCount    int    `json:"shown_count"`
	Hint          string `json:"hint"`
}

// truncatable is implemented by responses carrying a row slice.
type truncatable interface {
	rowCount() int
	keepRows(n int)
}

func (r *QueryResult) rowCount() int {
	if r.all != nil {
		return len(r.all)
	}
	return len(r.Results)
}

func (r *QueryResult) keepRows(n int) {
	if r.all == nil {
		r.all = r.Results
	}
	r.Results = r.all[:n]
	r.Truncated = &Truncation{
		OriginalCount: len(r.all),
		ShownCount:    n,
		Hint:          "narrow the filter, shorten time_range or lower max_count",
	}
}

// FormatResponse formats the response as indented JSON text content.
// Results over MaxResultSize lose rows until they fit.
func (t *BaseTool) FormatResponse(result interface{}) (*mcp.CallToolResult, error) {
	jsonBytes, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to format response: %w", err)
	}

	if len(jsonBytes) > MaxResultSize {
		if tr, ok := result.(truncatable); ok {
			if trimmed := truncateRows(result, tr, MaxResultSize); trimmed != nil {
				t.logger.Warn("Result truncated due to size limit",
					zap.Int("original_size", len(jsonBytes)),
					zap.Int("truncated_size", len(trimmed)),
					zap.Int("total_rows", tr.rowCount()),
				)
				jsonBytes = trimmed
			}
		}
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(jsonBytes)}},
	}, nil
}

// truncateRows binary-searches the largest row count that fits maxSize.
func truncateRows(result interface{}, tr truncatable, maxSize int) []byte {
	total := tr.rowCount()
	if total <= MinRowsAfterTruncation {
		return nil
	}

	low, high := MinRowsAfterTruncation, total
	best := MinRowsAfterTruncation
	for low <= high {
		mid := (low + high) / 2
		tr.keepRows(mid)
		b, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return nil
		}
		if len(b) <= maxSize-WarningMessageBuffer {
			best = mid
			low = mid + 1
		} else {
			high = mid - 1
		}
	}

	tr.keepRows(best)
	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return nil
	}
	return out
}
