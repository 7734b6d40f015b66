package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListToolsResultDecode(t *testing.T) {
	raw := `{
		"tools": [
			{"name": "echo", "description": "Echo text", "inputSchema": {"type": "object", "properties": {"text": {"type": "string"}}}},
			{"name": "add", "title": "Adder", "inputSchema": {"type": "object"}}
		],
		"nextCursor": "page-2"
	}`

	var result ListToolsResult
	require.NoError(t, json.Unmarshal([]byte(raw), &result))

	require.Len(t, result.Tools, 2)
	assert.Equal(t, "echo", result.Tools[0].Name)
	assert.Equal(t, "Echo text", result.Tools[0].Description)
	assert.JSONEq(t, `{"type":"object","properties":{"text":{"type":"string"}}}`, string(result.Tools[0].InputSchema))
	assert.Equal(t, "Adder", result.Tools[1].Title)
	assert.Equal(t, "page-2", result.NextCursor)
}

func TestListToolsParamsOmitEmptyCursor(t *testing.T) {
	data, err := json.Marshal(ListToolsParams{})
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(data))

	data, err = json.Marshal(ListToolsParams{Cursor: "abc"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"cursor":"abc"}`, string(data))
}

func TestCallToolParams(t *testing.T) {
	params := CallToolParams{Name: "echo", Arguments: json.RawMessage(`{"text":"hi"}`)}
	data, err := json.Marshal(params)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"echo","arguments":{"text":"hi"}}`, string(data))
}

func TestCallToolResult(t *testing.T) {
	raw := `{
		"content": [
			{"type": "text", "text": "line one"},
			{"type": "image", "data": "aGVsbG8=", "mimeType": "image/png"},
			{"type": "text", "text": "line two"}
		],
		"isError": true
	}`

	var result CallToolResult
	require.NoError(t, json.Unmarshal([]byte(raw), &result))

	assert.True(t, result.IsError)
	require.Len(t, result.Content, 3)
	assert.Equal(t, ContentTypeImage, result.Content[1].Type)
	assert.Equal(t, "image/png", result.Content[1].MimeType)
	assert.Equal(t, "line one\nline two", result.Text())
}
