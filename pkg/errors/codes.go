package errors

// JSON-RPC 2.0 Standard Error Codes
const (
	// ParseError indicates invalid JSON was received by the server
	CodeParseError int = -32700

	// InvalidRequest indicates the JSON sent is not a valid Request object
	CodeInvalidRequest int = -32600

	// MethodNotFound indicates the method does not exist / is not available
	CodeMethodNotFound int = -32601

	// InvalidParams indicates invalid method parameter(s)
	CodeInvalidParams int = -32602

	// InternalError indicates internal JSON-RPC error
	CodeInternalError int = -32603
)

// Implementation-defined server codes. These may arrive in error frames
// from the peer; CodeCapabilityError is also produced locally by gating.
const (
	CodeServerError     int = -32000
	CodeCapabilityError int = -32001
	CodeResourceError   int = -32002
	CodeToolError       int = -32003
)

// Local client codes. These never travel on the wire; they identify
// failures detected on this side of the connection.
const (
	// Connection errors (-32500 to -32519)
	CodeNoTransport      int = -32500
	CodeAlreadyConnected int = -32501
	CodeNotInitialized   int = -32502
	CodeNotConnected     int = -32503
	CodeConnectionLost   int = -32504
	CodeDisconnected     int = -32505

	// Transport errors (-32520 to -32539)
	CodeTransportError int = -32520
	CodeSpawnFailed    int = -32521
	CodeWriteFailed    int = -32522
	CodeEncodeFailed   int = -32523
	CodeRequestTimeout int = -32524
	CodeCircuitOpen    int = -32525
	CodeRequestAborted int = -32526

	// Validation errors (-32540 to -32559)
	CodeValidationError int = -32540
	CodeVersionMismatch int = -32541
	CodeInvalidConfig   int = -32542

	// Protocol errors detected locally (-32560 to -32579)
	CodeInvalidResponse int = -32560
)

// ErrorCodeInfo provides human-readable information about error codes
type ErrorCodeInfo struct {
	Code        int
	Name        string
	Description string
	Category    Category
	Severity    Severity
}

var errorCodeRegistry = map[int]ErrorCodeInfo{
	CodeParseError:     {CodeParseError, "ParseError", "Invalid JSON was received", CategoryProtocol, SeverityError},
	CodeInvalidRequest: {CodeInvalidRequest, "InvalidRequest", "Invalid Request object", CategoryProtocol, SeverityError},
	CodeMethodNotFound: {CodeMethodNotFound, "MethodNotFound", "Method does not exist", CategoryProtocol, SeverityError},
	CodeInvalidParams:  {CodeInvalidParams, "InvalidParams", "Invalid method parameters", CategoryProtocol, SeverityError},
	CodeInternalError:  {CodeInternalError, "InternalError", "Internal JSON-RPC error", CategoryProtocol, SeverityError},

	CodeServerError:     {CodeServerError, "ServerError", "Server error", CategoryProtocol, SeverityError},
	CodeCapabilityError: {CodeCapabilityError, "CapabilityError", "Capability not supported", CategoryProtocol, SeverityError},
	CodeResourceError:   {CodeResourceError, "ResourceError", "Resource error", CategoryProtocol, SeverityError},
	CodeToolError:       {CodeToolError, "ToolError", "Tool error", CategoryProtocol, SeverityError},

	CodeNoTransport:      {CodeNoTransport, "NoTransport", "No transport configured", CategoryConnection, SeverityError},
	CodeAlreadyConnected: {CodeAlreadyConnected, "AlreadyConnected", "Client already connected", CategoryConnection, SeverityWarning},
	CodeNotInitialized:   {CodeNotInitialized, "NotInitialized", "Session not initialized", CategoryConnection, SeverityError},
	CodeNotConnected:     {CodeNotConnected, "NotConnected", "Transport not connected", CategoryConnection, SeverityError},
	CodeConnectionLost:   {CodeConnectionLost, "ConnectionLost", "Peer process exited", CategoryConnection, SeverityCritical},
	CodeDisconnected:     {CodeDisconnected, "Disconnected", "Transport disconnected", CategoryConnection, SeverityInfo},

	CodeTransportError: {CodeTransportError, "TransportError", "Transport error", CategoryTransport, SeverityError},
	CodeSpawnFailed:    {CodeSpawnFailed, "SpawnFailed", "Failed to start server process", CategoryTransport, SeverityCritical},
	CodeWriteFailed:    {CodeWriteFailed, "WriteFailed", "Failed to write message", CategoryTransport, SeverityError},
	CodeEncodeFailed:   {CodeEncodeFailed, "EncodeFailed", "Failed to encode message", CategoryTransport, SeverityError},
	CodeRequestTimeout: {CodeRequestTimeout, "RequestTimeout", "Request timed out", CategoryTransport, SeverityError},
	CodeCircuitOpen:    {CodeCircuitOpen, "CircuitOpen", "Circuit breaker is open", CategoryTransport, SeverityWarning},
	CodeRequestAborted: {CodeRequestAborted, "RequestAborted", "Request abandoned by caller", CategoryTransport, SeverityInfo},

	CodeValidationError: {CodeValidationError, "ValidationError", "Validation error", CategoryValidation, SeverityError},
	CodeVersionMismatch: {CodeVersionMismatch, "VersionMismatch", "Protocol version mismatch", CategoryValidation, SeverityError},
	CodeInvalidConfig:   {CodeInvalidConfig, "InvalidConfig", "Invalid configuration", CategoryValidation, SeverityError},

	CodeInvalidResponse: {CodeInvalidResponse, "InvalidResponse", "Malformed response result", CategoryProtocol, SeverityError},
}

// GetErrorCodeInfo returns information about an error code
func GetErrorCodeInfo(code int) (ErrorCodeInfo, bool) {
	info, exists := errorCodeRegistry[code]
	return info, exists
}

// GetErrorCodeName returns the name of an error code
func GetErrorCodeName(code int) string {
	if info, exists := errorCodeRegistry[code]; exists {
		return info.Name
	}
	return "UnknownError"
}

// GetErrorCodeCategory returns the category of an error code. Codes not in
// the registry came from the peer and are protocol errors.
func GetErrorCodeCategory(code int) Category {
	if info, exists := errorCodeRegistry[code]; exists {
		return info.Category
	}
	return CategoryProtocol
}

// IsStandardJSONRPCCode checks if a code is in the JSON-RPC reserved range
func IsStandardJSONRPCCode(code int) bool {
	return code >= -32768 && code <= -32000
}

// IsLocalCode reports whether code is one of the client-side codes that
// never appear on the wire.
func IsLocalCode(code int) bool {
	return code <= -32500 && code >= -32579
}
