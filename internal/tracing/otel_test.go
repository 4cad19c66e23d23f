package tracing

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitOTel_Disabled(t *testing.T) {
	shutdown, err := InitOTel(OTelConfig{Enabled: false})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))

	ctx, span := ToolSpan(context.Background(), "validate_query")
	defer span.End()
	assert.Equal(t, TraceInfo{}, FromContext(ctx))
}

func TestInitOTel_ExportsSpans(t *testing.T) {
	var buf bytes.Buffer
	shutdown, err := InitOTel(OTelConfig{
		ServiceName:    "logan-mcp-server",
		ServiceVersion: "test",
		Environment:    "test",
		Enabled:        true,
		Writer:         &buf,
	})
	require.NoError(t, err)

	ctx, span := ToolSpan(context.Background(), "execute_logan_query")
	info := FromContext(ctx)
	assert.Len(t, info.TraceID, 32)
	assert.Len(t, info.SpanID, 16)

	_, api := APISpan(ctx, "POST", "/20200601/namespaces/ns/search/actions/query")
	RecordError(api, errors.New("boom"))
	api.End()

	AddToolAttributes(span, map[string]interface{}{"time_range": "24h", "max_count": 10, "dry_run": true})
	SetQuery(span, "* | stats count", "separate", false)
	SetSuccess(span)
	span.End()

	require.NoError(t, shutdown(context.Background()))
	assert.Contains(t, buf.String(), "mcp.tool.execute_logan_query")
	assert.Contains(t, buf.String(), "logan.api.POST")
}
