package tools

import (
	"context"
	"encoding/json"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tareqmamari/logan-mcp-server/internal/client"
	"github.com/tareqmamari/logan-mcp-server/internal/timerange"
)

var testNow = time.Date(2025, 3, 14, 9, 26, 53, 589000000, time.UTC)

const testCompartment = "ocid1.compartment.oc1..test"

type listCall struct {
	resource string
	params   url.Values
}

// fakeBackend records every call and answers from canned values.
type fakeBackend struct {
	mu sync.Mutex

	queries   []client.QueryRequest
	queryResp *client.QueryResponse
	queryErr  error
	// respond, when set, answers each query instead of queryResp/queryErr.
	respond func(q client.QueryRequest) (*client.QueryResponse, error)

	listCalls []listCall
	lists     map[string]*client.ListResponse
	listErr   error

	object    map[string]interface{}
	objectErr error
	objectArg string

	pingErr error
}

func (f *fakeBackend) NewQueryRequest(qs string, tf *timerange.TimeFilter, maxCount int) client.QueryRequest {
	return client.QueryRequest{
		SubSystem:               client.SubSystemLog,
		QueryString:             qs,
		TimeFilter:              tf,
		CompartmentID:           testCompartment,
		CompartmentIDInSubtree:  true,
		MaxTotalCount:           maxCount,
		ShouldIncludeTotalCount: true,
	}
}

func (f *fakeBackend) Query(ctx context.Context, q client.QueryRequest, _ int) (*client.QueryResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.respond != nil {
		return f.respond(q)
	}
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	if f.queryResp == nil {
		return &client.QueryResponse{RequestID: "req-1"}, nil
	}
	return f.queryResp, nil
}

func (f *fakeBackend) List(_ context.Context, resource string, params url.Values) (*client.ListResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls = append(f.listCalls, listCall{resource: resource, params: params})
	if f.listErr != nil {
		return nil, f.listErr
	}
	if resp, ok := f.lists[resource]; ok {
		return resp, nil
	}
	return &client.ListResponse{}, nil
}

func (f *fakeBackend) answer(arg string) (map[string]interface{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objectArg = arg
	return f.object, f.objectErr
}

func (f *fakeBackend) GetNamespace(context.Context) (map[string]interface{}, error) {
	return f.answer("")
}

func (f *fakeBackend) GetLookup(_ context.Context, name string) (map[string]interface{}, error) {
	return f.answer(name)
}

func (f *fakeBackend) Suggest(_ context.Context, q string) (map[string]interface{}, error) {
	return f.answer(q)
}

func (f *fakeBackend) Parse(_ context.Context, q string) (map[string]interface{}, error) {
	return f.answer(q)
}

func (f *fakeBackend) Ping(context.Context) error { return f.pingErr }
func (f *fakeBackend) Namespace() string          { return "testns" }
func (f *fakeBackend) BreakerState() string       { return "closed" }

type compileEvent struct {
	family, placement string
	fallback          bool
}

type fakeRecorder struct {
	mu     sync.Mutex
	events []compileEvent
}

func (r *fakeRecorder) RecordCompilation(family, placement string, fallback bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, compileEvent{family, placement, fallback})
}

func testDeps(b Backend) Deps {
	return Deps{
		Backend:  b,
		Resolver: timerange.NewResolverWithClock(func() time.Time { return testNow }),
		Limits: Limits{
			DefaultTimeRange: "24h",
			DefaultMaxCount:  1000,
			MaxCountLimit:    10000,
			CompartmentID:    testCompartment,
		},
		Logger: zap.NewNop(),
	}
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", res.Content[0])
	return text.Text
}

// decodeOK asserts a successful result and decodes its JSON body.
func decodeOK(t *testing.T, res *mcp.CallToolResult) map[string]interface{} {
	t.Helper()
	body := resultText(t, res)
	require.False(t, res.IsError, "unexpected error result: %s", body)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(body), &out))
	return out
}

// decodeError asserts an error result and decodes its structured body.
func decodeError(t *testing.T, res *mcp.CallToolResult) map[string]interface{} {
	t.Helper()
	body := resultText(t, res)
	require.True(t, res.IsError, "expected an error result, got: %s", body)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(body), &out), body)
	return out
}

func execute(t *testing.T, tool Tool, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	res, err := tool.Execute(context.Background(), args)
	require.NoError(t, err)
	return res
}
