package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	mcperrors "github.com/ajitpratap0/mcp-client-go/pkg/errors"
	"github.com/ajitpratap0/mcp-client-go/pkg/protocol"
)

var errNoResponse = errors.New("transport returned no response")

// ListTools fetches one page of the server's tools. An empty cursor
// requests the first page.
func (c *Client) ListTools(ctx context.Context, cursor string) (*protocol.ListToolsResult, error) {
	if err := c.requireReadyWith(protocol.MethodListTools, protocol.CapabilityTools); err != nil {
		return nil, err
	}

	var params interface{}
	if cursor != "" {
		params = protocol.ListToolsParams{Cursor: cursor}
	}

	raw, err := c.Invoke(ctx, protocol.MethodListTools, params)
	if err != nil {
		return nil, err
	}

	var result protocol.ListToolsResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, mcperrors.InvalidResponse(protocol.MethodListTools, err)
	}
	if result.Tools == nil {
		result.Tools = []protocol.Tool{}
	}
	return &result, nil
}

// ListAllTools follows nextCursor until the server reports no more pages.
// A cursor the server already returned is treated as an invalid response.
func (c *Client) ListAllTools(ctx context.Context) ([]protocol.Tool, error) {
	var (
		tools  []protocol.Tool
		cursor string
		seen   = map[string]struct{}{}
	)

	for {
		page, err := c.ListTools(ctx, cursor)
		if err != nil {
			return nil, err
		}
		tools = append(tools, page.Tools...)

		if page.NextCursor == "" {
			break
		}
		if _, dup := seen[page.NextCursor]; dup {
			return nil, mcperrors.InvalidResponse(protocol.MethodListTools,
				fmt.Errorf("cursor %q repeated", page.NextCursor))
		}
		seen[page.NextCursor] = struct{}{}
		cursor = page.NextCursor
	}

	if tools == nil {
		tools = []protocol.Tool{}
	}
	return tools, nil
}

// CallTool invokes the named tool. args is marshalled as the arguments
// object; nil omits it. A result with IsError set is returned without an
// error since the tool itself ran.
func (c *Client) CallTool(ctx context.Context, name string, args interface{}) (*protocol.CallToolResult, error) {
	if name == "" {
		return nil, mcperrors.ValidationError("tool name must not be empty")
	}
	if err := c.requireReadyWith(protocol.MethodCallTool, protocol.CapabilityTools); err != nil {
		return nil, err
	}

	params := protocol.CallToolParams{Name: name}
	if args != nil {
		switch v := args.(type) {
		case json.RawMessage:
			params.Arguments = v
		default:
			data, err := json.Marshal(args)
			if err != nil {
				return nil, mcperrors.EncodeFailed("tool arguments", err)
			}
			params.Arguments = data
		}
	}

	raw, err := c.Invoke(ctx, protocol.MethodCallTool, params)
	if err != nil {
		return nil, err
	}

	var result protocol.CallToolResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, mcperrors.InvalidResponse(protocol.MethodCallTool, err)
	}
	return &result, nil
}
