package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	mcperrors "github.com/tareqmamari/logan-mcp-server/internal/errors"
	"github.com/tareqmamari/logan-mcp-server/internal/query"
	"github.com/tareqmamari/logan-mcp-server/internal/timerange"
)

// SubSystemLog is the only sub-system queried by this server.
const SubSystemLog = "LOG"

// QueryRequest is the body of search/actions/query.
type QueryRequest struct {
	SubSystem               string                `json:"subSystem"`
	QueryString             string                `json:"queryString"`
	TimeFilter              *timerange.TimeFilter `json:"timeFilter,omitempty"`
	CompartmentID           string                `json:"compartmentId"`
	CompartmentIDInSubtree  bool                  `json:"compartmentIdInSubtree"`
	MaxTotalCount           int                   `json:"maxTotalCount,omitempty"`
	ShouldRunAsync          bool                  `json:"shouldRunAsync"`
	ShouldIncludeTotalCount bool                  `json:"shouldIncludeTotalCount"`
}

// Column describes one result column.
type Column struct {
	DisplayName  string `json:"displayName"`
	InternalName string `json:"internalName,omitempty"`
	ValueType    string `json:"valueType,omitempty"`
}

// QueryResponse is the synchronous query result.
type QueryResponse struct {
	Columns             []Column                 `json:"columns"`
	Fields              []Column                 `json:"fields,omitempty"`
	Items               []map[string]interface{} `json:"items"`
	TotalCount          int                      `json:"totalCount"`
	TotalMatchedCount   int                      `json:"totalMatchedCount,omitempty"`
	ArePartialResults   bool                     `json:"arePartialResults"`
	PartialResultReason string                   `json:"partialResultReason,omitempty"`
	QueryExecutionMs    int64                    `json:"queryExecutionTimeInMs,omitempty"`
	RequestID           string                   `json:"-"`
}

// ListResponse is the common shape of management list endpoints.
type ListResponse struct {
	Items    []map[string]interface{} `json:"items"`
	NextPage string                   `json:"-"`
}

// NewQueryRequest fills a query body from the configured compartment.
func (c *Client) NewQueryRequest(queryString string, tf *timerange.TimeFilter, maxCount int) QueryRequest {
	return QueryRequest{
		SubSystem:               SubSystemLog,
		QueryString:             queryString,
		TimeFilter:              tf,
		CompartmentID:           c.config.CompartmentID,
		CompartmentIDInSubtree:  c.config.CompartmentIDInSubtree,
		MaxTotalCount:           maxCount,
		ShouldRunAsync:          false,
		ShouldIncludeTotalCount: true,
	}
}

// Query runs a synchronous search. A request that carries a separate time
// filter must not also constrain Time in its query string.
func (c *Client) Query(ctx context.Context, q QueryRequest, limit int) (*QueryResponse, error) {
	if q.QueryString == "" {
		return nil, mcperrors.NewMissingParameter("queryString")
	}
	if q.TimeFilter != nil && query.HasTimePredicate(q.QueryString) {
		return nil, mcperrors.NewInvalidQuery("query string constrains Time while a separate time filter is set").
			WithDetails(map[string]interface{}{"query": q.QueryString})
	}
	if q.SubSystem == "" {
		q.SubSystem = SubSystemLog
	}
	if q.CompartmentID == "" {
		q.CompartmentID = c.config.CompartmentID
	}

	params := url.Values{}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	resp, err := c.Do(ctx, &Request{
		Method: http.MethodPost,
		Path:   "search/actions/query",
		Query:  params,
		Body:   q,
	})
	if err != nil {
		return nil, err
	}

	var out QueryResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return nil, fmt.Errorf("failed to decode query response: %w", err)
	}
	out.RequestID = resp.RequestID

	c.logger.Info("Query executed",
		zap.String("request_id", resp.RequestID),
		zap.Bool("separate_time_filter", q.TimeFilter != nil),
		zap.Int("rows", len(out.Items)),
		zap.Bool("partial", out.ArePartialResults),
	)
	return &out, nil
}

// List fetches one page of a management collection such as "sources" or "parsers".
func (c *Client) List(ctx context.Context, resource string, params url.Values) (*ListResponse, error) {
	resp, err := c.Do(ctx, &Request{
		Method: http.MethodGet,
		Path:   resource,
		Query:  params,
	})
	if err != nil {
		return nil, err
	}

	var out ListResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return nil, fmt.Errorf("failed to decode %s list: %w", resource, err)
	}
	out.NextPage = resp.Headers.Get("opc-next-page")
	return &out, nil
}

// Get fetches a single management object. An empty path returns the namespace itself.
func (c *Client) Get(ctx context.Context, path string) (map[string]interface{}, error) {
	resp, err := c.Do(ctx, &Request{Method: http.MethodGet, Path: path})
	if err != nil {
		return nil, err
	}
	var out map[string]interface{}
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return out, nil
}

// GetNamespace returns the namespace details.
func (c *Client) GetNamespace(ctx context.Context) (map[string]interface{}, error) {
	return c.Get(ctx, "")
}

// GetLookup returns one lookup table by name.
func (c *Client) GetLookup(ctx context.Context, name string) (map[string]interface{}, error) {
	if name == "" {
		return nil, mcperrors.NewMissingParameter("lookup_name")
	}
	return c.Get(ctx, "lookups/"+url.PathEscape(name))
}

// Suggest asks the backend for completions of a partial query.
func (c *Client) Suggest(ctx context.Context, queryString string) (map[string]interface{}, error) {
	return c.searchAction(ctx, "suggest", queryString)
}

// Parse asks the backend to parse a query and describe its structure.
func (c *Client) Parse(ctx context.Context, queryString string) (map[string]interface{}, error) {
	return c.searchAction(ctx, "parse", queryString)
}

func (c *Client) searchAction(ctx context.Context, action, queryString string) (map[string]interface{}, error) {
	if queryString == "" {
		return nil, mcperrors.NewMissingParameter("query")
	}
	resp, err := c.Do(ctx, &Request{
		Method: http.MethodPost,
		Path:   "search/actions/" + action,
		Body: map[string]interface{}{
			"queryString": queryString,
			"subSystem":   SubSystemLog,
		},
	})
	if err != nil {
		return nil, err
	}
	var out map[string]interface{}
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return nil, fmt.Errorf("failed to decode %s response: %w", action, err)
	}
	return out, nil
}

// Ping checks connectivity and credentials with a namespace read.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.GetNamespace(ctx)
	return err
}
