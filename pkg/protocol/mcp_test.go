package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitializeParamsShape(t *testing.T) {
	params := InitializeParams{
		ProtocolVersion: DefaultProtocolVersion,
		Capabilities:    DefaultClientCapabilities(),
		ClientInfo:      Implementation{Name: "mcp-client-go", Version: "1.0.0"},
	}

	data, err := json.Marshal(params)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"protocolVersion": "2024-11-05",
		"capabilities": {"roots": {"listChanged": true}},
		"clientInfo": {"name": "mcp-client-go", "version": "1.0.0"}
	}`, string(data))
}

func TestInitializeResultDecode(t *testing.T) {
	raw := `{
		"protocolVersion": "2024-11-05",
		"capabilities": {"tools": {}, "logging": {"level": "info"}},
		"serverInfo": {"name": "srv", "version": "0.1"}
	}`

	var result InitializeResult
	require.NoError(t, json.Unmarshal([]byte(raw), &result))

	assert.Equal(t, "2024-11-05", result.ProtocolVersion)
	assert.Equal(t, Implementation{Name: "srv", Version: "0.1"}, result.ServerInfo)
	assert.True(t, result.Capabilities.Has(CapabilityTools))
	assert.True(t, result.Capabilities.Has(CapabilityLogging))
	assert.False(t, result.Capabilities.Has(CapabilityResources))
	assert.Equal(t, []string{"logging", "tools"}, result.Capabilities.Names())
	assert.JSONEq(t, `{"level":"info"}`, string(result.Capabilities["logging"]))
}

func TestCapabilitiesClone(t *testing.T) {
	var nilCaps Capabilities
	assert.Nil(t, nilCaps.Clone())
	assert.False(t, nilCaps.Has(CapabilityTools))

	caps := Capabilities{"tools": json.RawMessage(`{"listChanged":true}`)}
	clone := caps.Clone()
	clone["tools"][2] = 'X'
	delete(clone, "tools")

	assert.True(t, caps.Has(CapabilityTools))
	assert.JSONEq(t, `{"listChanged":true}`, string(caps["tools"]))
}

func TestDefaultClientCapabilitiesAreFresh(t *testing.T) {
	a := DefaultClientCapabilities()
	a["sampling"] = json.RawMessage(`{}`)

	b := DefaultClientCapabilities()
	assert.False(t, b.Has(CapabilitySampling))
	assert.True(t, b.Has(CapabilityRoots))
}
