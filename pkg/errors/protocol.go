package errors

import (
	"encoding/json"
	"fmt"
)

// RemoteError builds the error surfaced when the peer answers with an
// error frame. Code and message are carried verbatim; data stays raw.
func RemoteError(code int, message string, data json.RawMessage) MCPError {
	err := NewError(code, message, CategoryProtocol, SeverityError)
	if len(data) > 0 {
		err = err.WithData(data)
	}
	return err
}

// CapabilityMissing is produced locally, before any I/O, when an operation
// needs a capability the server did not declare
func CapabilityMissing(capability string) MCPError {
	data, _ := json.Marshal(map[string]string{"capability": capability})
	return NewError(
		CodeCapabilityError,
		fmt.Sprintf("server does not support capability %q", capability),
		CategoryProtocol,
		SeverityError,
	).WithData(json.RawMessage(data))
}

// InvalidResponse reports a result that could not be decoded into the
// shape the method promises
func InvalidResponse(method string, cause error) MCPError {
	return WrapError(
		cause,
		CodeInvalidResponse,
		fmt.Sprintf("invalid %s result: %s", method, reason(cause)),
		CategoryProtocol,
		SeverityError,
	)
}

// RawData returns the structured data of err as raw JSON. Remote errors
// and capability errors carry json.RawMessage already; other data is
// marshalled.
func RawData(err error) json.RawMessage {
	mcpErr, ok := AsMCPError(err)
	if !ok || mcpErr.Data() == nil {
		return nil
	}
	if raw, ok := mcpErr.Data().(json.RawMessage); ok {
		return raw
	}
	raw, mErr := json.Marshal(mcpErr.Data())
	if mErr != nil {
		return nil
	}
	return raw
}
