package mcp

import (
	"github.com/ajitpratap0/mcp-client-go/pkg/client"
	"github.com/ajitpratap0/mcp-client-go/pkg/config"
	"github.com/ajitpratap0/mcp-client-go/pkg/protocol"
	"github.com/ajitpratap0/mcp-client-go/pkg/transport"
)

// Version represents the current version of the module
const Version = "1.0.0"

// ProtocolVersion is the protocol revision the client negotiates by default
const ProtocolVersion = protocol.DefaultProtocolVersion

// These exports provide direct access to the core components
var (
	// NewClient creates a client over an existing transport
	NewClient = client.New

	// NewStdioClient creates a client that spawns its server over stdio
	NewStdioClient = client.NewStdioClient

	// NewStdioTransport creates a bare stdio transport
	NewStdioTransport = transport.NewStdioTransport

	// DefaultTransportConfig returns the default transport settings
	DefaultTransportConfig = transport.DefaultTransportConfig

	// LoadConfig reads a TOML config file
	LoadConfig = config.Load
)

// Protocol constants for capabilities
const (
	CapabilityTools     = protocol.CapabilityTools
	CapabilityResources = protocol.CapabilityResources
	CapabilityPrompts   = protocol.CapabilityPrompts
	CapabilityLogging   = protocol.CapabilityLogging
	CapabilityRoots     = protocol.CapabilityRoots
	CapabilitySampling  = protocol.CapabilitySampling
)

// Client options
var (
	WithClientName      = client.WithName
	WithClientVersion   = client.WithVersion
	WithCapability      = client.WithCapability
	WithProtocolVersion = client.WithProtocolVersion
	WithLogger          = client.WithLogger
	WithTracer          = client.WithTracer
)
