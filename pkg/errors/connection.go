package errors

import "fmt"

// ConnectionErrorData contains structured data for connection-related errors
type ConnectionErrorData struct {
	State    string `json:"state,omitempty"`
	Method   string `json:"method,omitempty"`
	ExitCode *int   `json:"exit_code,omitempty"`
	Stderr   string `json:"stderr,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// NoTransport is returned when a client was built without a transport
func NoTransport() MCPError {
	return NewError(
		CodeNoTransport,
		"no transport configured",
		CategoryConnection,
		SeverityError,
	)
}

// AlreadyConnected is returned by Connect when the session is not idle
func AlreadyConnected(state string) MCPError {
	return NewError(
		CodeAlreadyConnected,
		"client already connected",
		CategoryConnection,
		SeverityWarning,
	).WithData(&ConnectionErrorData{State: state})
}

// NotInitialized is returned when a method is invoked before the handshake
// completed
func NotInitialized(method, state string) MCPError {
	return NewError(
		CodeNotInitialized,
		"client not initialized",
		CategoryConnection,
		SeverityError,
	).WithData(&ConnectionErrorData{State: state, Method: method})
}

// NotConnected is returned by a transport asked to send while down
func NotConnected(operation string) MCPError {
	return NewErrorf(
		CodeNotConnected,
		CategoryConnection,
		SeverityError,
		"transport not connected: cannot %s", operation,
	)
}

// ProcessExited fails pending requests when the server process ends
// without being asked to
func ProcessExited(exitCode int, stderr string, cause error) MCPError {
	code := exitCode
	message := fmt.Sprintf("server process exited with code %d", exitCode)
	if exitCode < 0 {
		message = "server process exited"
	}

	return WrapError(
		cause,
		CodeConnectionLost,
		message,
		CategoryConnection,
		SeverityCritical,
	).WithData(&ConnectionErrorData{
		ExitCode: &code,
		Stderr:   stderr,
		Reason:   reason(cause),
	})
}

// ConnectionLost reports a stream that closed or failed underneath a
// live session
func ConnectionLost(reasonText string, cause error) MCPError {
	return WrapError(
		cause,
		CodeConnectionLost,
		fmt.Sprintf("connection lost: %s", reasonText),
		CategoryConnection,
		SeverityError,
	).WithData(&ConnectionErrorData{Reason: reasonText})
}

// Disconnected fails pending requests during an intentional teardown
func Disconnected() MCPError {
	return NewError(
		CodeDisconnected,
		"transport disconnected",
		CategoryConnection,
		SeverityInfo,
	)
}
