package client_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/mcp-client-go/pkg/client"
	mcperrors "github.com/ajitpratap0/mcp-client-go/pkg/errors"
	"github.com/ajitpratap0/mcp-client-go/pkg/protocol"
	"github.com/ajitpratap0/mcp-client-go/pkg/transport/transporttest"
)

func pagedTools(pages map[string]protocol.ListToolsResult) transporttest.HandlerFunc {
	return func(req *protocol.Request) *protocol.Response {
		var params protocol.ListToolsParams
		if len(req.Params) > 0 {
			_ = json.Unmarshal(req.Params, &params)
		}
		page, ok := pages[params.Cursor]
		if !ok {
			return transporttest.ErrorReply(req, protocol.InvalidParams, "unknown cursor", nil)
		}
		return transporttest.Result(req, page)
	}
}

func TestListTools(t *testing.T) {
	server := transporttest.NewServer()
	server.HandleResult(protocol.MethodListTools, map[string]interface{}{
		"tools": []map[string]interface{}{
			{"name": "read_file", "description": "Read a file", "inputSchema": map[string]string{"type": "object"}},
		},
		"nextCursor": "p2",
	})
	c, _ := newClient(t, server)
	connect(t, c)

	result, err := c.ListTools(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, result.Tools, 1)
	assert.Equal(t, "read_file", result.Tools[0].Name)
	assert.Equal(t, "Read a file", result.Tools[0].Description)
	assert.JSONEq(t, `{"type":"object"}`, string(result.Tools[0].InputSchema))
	assert.Equal(t, "p2", result.NextCursor)

	// the first page is requested without params
	reqs := server.Requests(protocol.MethodListTools)
	require.Len(t, reqs, 1)
	assert.Empty(t, reqs[0].Params)
}

func TestListToolsEmpty(t *testing.T) {
	server := transporttest.NewServer()
	server.HandleResult(protocol.MethodListTools, map[string]interface{}{})
	c, _ := newClient(t, server)
	connect(t, c)

	result, err := c.ListTools(context.Background(), "")
	require.NoError(t, err)
	assert.NotNil(t, result.Tools)
	assert.Empty(t, result.Tools)
}

func TestListToolsInvalidResult(t *testing.T) {
	server := transporttest.NewServer()
	server.HandleResult(protocol.MethodListTools, map[string]interface{}{"tools": "nope"})
	c, _ := newClient(t, server)
	connect(t, c)

	_, err := c.ListTools(context.Background(), "")
	assert.True(t, mcperrors.IsCode(err, mcperrors.CodeInvalidResponse))
}

func TestListAllToolsFollowsCursor(t *testing.T) {
	server := transporttest.NewServer()
	server.Handle(protocol.MethodListTools, pagedTools(map[string]protocol.ListToolsResult{
		"":   {Tools: []protocol.Tool{{Name: "a"}, {Name: "b"}}, NextCursor: "p2"},
		"p2": {Tools: []protocol.Tool{{Name: "c"}}, NextCursor: "p3"},
		"p3": {Tools: []protocol.Tool{}},
	}))
	c, _ := newClient(t, server)
	connect(t, c)

	tools, err := c.ListAllTools(context.Background())
	require.NoError(t, err)

	names := make([]string, 0, len(tools))
	for _, tool := range tools {
		names = append(names, tool.Name)
	}
	assert.Equal(t, []string{"a", "b", "c"}, names)
	assert.Len(t, server.Requests(protocol.MethodListTools), 3)
}

func TestListAllToolsRejectsCursorLoop(t *testing.T) {
	server := transporttest.NewServer()
	server.Handle(protocol.MethodListTools, pagedTools(map[string]protocol.ListToolsResult{
		"":   {Tools: []protocol.Tool{{Name: "a"}}, NextCursor: "p2"},
		"p2": {Tools: []protocol.Tool{{Name: "b"}}, NextCursor: "p2"},
	}))
	c, _ := newClient(t, server)
	connect(t, c)

	_, err := c.ListAllTools(context.Background())
	require.Error(t, err)
	assert.True(t, mcperrors.IsCode(err, mcperrors.CodeInvalidResponse))
	assert.Len(t, server.Requests(protocol.MethodListTools), 2)
}

func TestCallTool(t *testing.T) {
	server := transporttest.NewServer()
	server.HandleResult(protocol.MethodCallTool, protocol.CallToolResult{
		Content: []protocol.Content{
			{Type: protocol.ContentTypeText, Text: "line one"},
			{Type: protocol.ContentTypeImage, Data: "aGk=", MimeType: "image/png"},
			{Type: protocol.ContentTypeText, Text: "line two"},
		},
	})
	c, _ := newClient(t, server)
	connect(t, c)

	result, err := c.CallTool(context.Background(), "read_file", map[string]string{"path": "/tmp/x"})
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Len(t, result.Content, 3)
	assert.Equal(t, "line one\nline two", result.Text())

	reqs := server.Requests(protocol.MethodCallTool)
	require.Len(t, reqs, 1)
	assert.JSONEq(t, `{"name":"read_file","arguments":{"path":"/tmp/x"}}`, string(reqs[0].Params))
}

func TestCallToolRawArgumentsAndNoArguments(t *testing.T) {
	server := transporttest.NewServer()
	server.HandleResult(protocol.MethodCallTool, protocol.CallToolResult{Content: []protocol.Content{}})
	c, _ := newClient(t, server)
	connect(t, c)

	_, err := c.CallTool(context.Background(), "now", nil)
	require.NoError(t, err)
	_, err = c.CallTool(context.Background(), "echo", json.RawMessage(`{"x":1}`))
	require.NoError(t, err)

	reqs := server.Requests(protocol.MethodCallTool)
	require.Len(t, reqs, 2)
	assert.JSONEq(t, `{"name":"now"}`, string(reqs[0].Params))
	assert.JSONEq(t, `{"name":"echo","arguments":{"x":1}}`, string(reqs[1].Params))
}

func TestCallToolReportsToolErrorsInResult(t *testing.T) {
	server := transporttest.NewServer()
	server.HandleResult(protocol.MethodCallTool, protocol.CallToolResult{
		Content: []protocol.Content{{Type: protocol.ContentTypeText, Text: "file not found"}},
		IsError: true,
	})
	c, _ := newClient(t, server)
	connect(t, c)

	result, err := c.CallTool(context.Background(), "read_file", nil)
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Equal(t, "file not found", result.Text())
}

func TestCallToolValidatesName(t *testing.T) {
	server := transporttest.NewServer()
	c, _ := newClient(t, server)
	connect(t, c)
	before := server.BytesReceived()

	_, err := c.CallTool(context.Background(), "", nil)
	assert.True(t, mcperrors.IsCategory(err, mcperrors.CategoryValidation))
	assert.Equal(t, before, server.BytesReceived())
}

func TestToolsRequireCapability(t *testing.T) {
	server := transporttest.NewServer()
	server.Capabilities = protocol.Capabilities{
		string(protocol.CapabilityPrompts): json.RawMessage(`{}`),
	}
	c, _ := newClient(t, server)
	connect(t, c)
	before := server.BytesReceived()

	_, err := c.ListTools(context.Background(), "")
	require.Error(t, err)
	assert.True(t, mcperrors.IsCode(err, mcperrors.CodeCapabilityError))
	assert.JSONEq(t, `{"capability":"tools"}`, string(mcperrors.RawData(err)))

	_, err = c.ListAllTools(context.Background())
	assert.True(t, mcperrors.IsCode(err, mcperrors.CodeCapabilityError))

	_, err = c.CallTool(context.Background(), "read_file", nil)
	assert.True(t, mcperrors.IsCode(err, mcperrors.CodeCapabilityError))

	assert.Equal(t, before, server.BytesReceived())
	assert.Empty(t, server.Requests(protocol.MethodListTools))
	assert.Empty(t, server.Requests(protocol.MethodCallTool))
}

func TestToolsBeforeConnectReportNotInitialized(t *testing.T) {
	server := transporttest.NewServer()
	c, _ := newClient(t, server)

	_, err := c.ListTools(context.Background(), "")
	require.Error(t, err)
	assert.True(t, mcperrors.IsCode(err, mcperrors.CodeNotInitialized), err.Error())
	assert.True(t, mcperrors.IsCategory(err, mcperrors.CategoryConnection))

	_, err = c.ListAllTools(context.Background())
	assert.True(t, mcperrors.IsCode(err, mcperrors.CodeNotInitialized), err.Error())

	_, err = c.CallTool(context.Background(), "read_file", nil)
	assert.True(t, mcperrors.IsCode(err, mcperrors.CodeNotInitialized), err.Error())

	assert.Zero(t, server.Launches())
	assert.Zero(t, server.BytesReceived())
}

func TestListToolsFromListChangedHandler(t *testing.T) {
	server := transporttest.NewServer()
	server.HandleResult(protocol.MethodListTools, map[string]interface{}{
		"tools": []map[string]interface{}{{"name": "read_file"}},
	})
	c, _ := newClient(t, server)
	connect(t, c)

	type refresh struct {
		tools   *protocol.ListToolsResult
		err     error
		elapsed time.Duration
	}
	refreshed := make(chan refresh, 1)
	require.NoError(t, c.OnNotification(func(ctx context.Context, n *protocol.Notification) error {
		if n.Method != protocol.MethodToolsListChanged {
			return nil
		}
		start := time.Now()
		tools, err := c.ListTools(ctx, "")
		refreshed <- refresh{tools: tools, err: err, elapsed: time.Since(start)}
		return err
	}))

	require.NoError(t, server.Notify(protocol.MethodToolsListChanged, nil))

	select {
	case r := <-refreshed:
		require.NoError(t, r.err)
		require.Len(t, r.tools.Tools, 1)
		assert.Equal(t, "read_file", r.tools.Tools[0].Name)
		assert.Less(t, r.elapsed, time.Second)
	case <-time.After(3 * time.Second):
		t.Fatal("tools were not refreshed from the notification handler")
	}
	assert.Equal(t, client.StateReady, c.State())
}
