package protocol

import (
	"encoding/json"
	"sort"
)

const (
	// DefaultProtocolVersion is the protocol revision this client negotiates
	DefaultProtocolVersion = "2024-11-05"

	// Methods for lifecycle management
	MethodInitialize  = "initialize"
	MethodInitialized = "notifications/initialized"
	MethodPing        = "ping"

	// Methods for server features
	MethodListTools = "tools/list"
	MethodCallTool  = "tools/call"

	// Server notifications
	MethodToolsListChanged = "notifications/tools/list_changed"
	MethodLogMessage       = "notifications/message"
	MethodProgress         = "notifications/progress"
	MethodCancelled        = "notifications/cancelled"
)

// CapabilityType names a capability a peer may declare
type CapabilityType string

const (
	// CapabilityTools indicates the server supports tools
	CapabilityTools CapabilityType = "tools"

	// CapabilityResources indicates the server supports resources
	CapabilityResources CapabilityType = "resources"

	// CapabilityPrompts indicates the server supports prompts
	CapabilityPrompts CapabilityType = "prompts"

	// CapabilityLogging indicates the server emits log notifications
	CapabilityLogging CapabilityType = "logging"

	// CapabilityRoots indicates the client exposes filesystem roots
	CapabilityRoots CapabilityType = "roots"

	// CapabilitySampling indicates the client supports sampling
	CapabilitySampling CapabilityType = "sampling"
)

// Capabilities maps a capability name to its opaque descriptor. A key being
// present means the capability is supported; the descriptor is passed
// through without interpretation.
type Capabilities map[string]json.RawMessage

// Has reports whether the capability is declared.
func (c Capabilities) Has(name CapabilityType) bool {
	if c == nil {
		return false
	}
	_, ok := c[string(name)]
	return ok
}

// Names returns the declared capability names in sorted order.
func (c Capabilities) Names() []string {
	names := make([]string, 0, len(c))
	for k := range c {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Clone returns a copy that shares no map with the receiver.
func (c Capabilities) Clone() Capabilities {
	if c == nil {
		return nil
	}
	out := make(Capabilities, len(c))
	for k, v := range c {
		dup := make(json.RawMessage, len(v))
		copy(dup, v)
		out[k] = dup
	}
	return out
}

// DefaultClientCapabilities returns the capabilities advertised by the
// client when none are configured.
func DefaultClientCapabilities() Capabilities {
	return Capabilities{
		string(CapabilityRoots): json.RawMessage(`{"listChanged":true}`),
	}
}

// Implementation identifies a client or server by name and version
type Implementation struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// InitializeParams defines the parameters for the initialize request
type InitializeParams struct {
	ProtocolVersion string         `json:"protocolVersion"`
	Capabilities    Capabilities   `json:"capabilities"`
	ClientInfo      Implementation `json:"clientInfo"`
}

// InitializeResult defines the response for the initialize request
type InitializeResult struct {
	ProtocolVersion string         `json:"protocolVersion"`
	Capabilities    Capabilities   `json:"capabilities"`
	ServerInfo      Implementation `json:"serverInfo"`
	Instructions    string         `json:"instructions,omitempty"`
}

// LogMessageParams is carried by notifications/message
type LogMessageParams struct {
	Level  string          `json:"level"`
	Logger string          `json:"logger,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// ProgressParams is carried by notifications/progress
type ProgressParams struct {
	ProgressToken json.RawMessage `json:"progressToken"`
	Progress      float64         `json:"progress"`
	Total         float64         `json:"total,omitempty"`
	Message       string          `json:"message,omitempty"`
}
