package errors

import (
	"fmt"
	"strings"
	"time"
)

// TransportErrorData contains structured data for transport-related errors
type TransportErrorData struct {
	Transport string        `json:"transport"`
	Operation string        `json:"operation,omitempty"`
	Command   string        `json:"command,omitempty"`
	RequestID string        `json:"request_id,omitempty"`
	Method    string        `json:"method,omitempty"`
	Timeout   time.Duration `json:"timeout,omitempty"`
	Retryable bool          `json:"retryable"`
	Reason    string        `json:"reason,omitempty"`
}

func reason(cause error) string {
	if cause == nil {
		return ""
	}
	return cause.Error()
}

// TransportError creates a generic stdio transport error
func TransportError(operation string, cause error) MCPError {
	message := fmt.Sprintf("stdio transport error during %s", operation)
	if cause != nil {
		message = fmt.Sprintf("%s: %s", message, cause.Error())
	}

	return WrapError(
		cause,
		CodeTransportError,
		message,
		CategoryTransport,
		SeverityError,
	).WithData(&TransportErrorData{
		Transport: "stdio",
		Operation: operation,
		Reason:    reason(cause),
	})
}

// SpawnFailed reports that the server process could not be started
func SpawnFailed(command string, args []string, cause error) MCPError {
	cmdline := strings.TrimSpace(command + " " + strings.Join(args, " "))
	message := fmt.Sprintf("failed to start server process %q", cmdline)
	if cause != nil {
		message = fmt.Sprintf("%s: %s", message, cause.Error())
	}

	return WrapError(
		cause,
		CodeSpawnFailed,
		message,
		CategoryTransport,
		SeverityCritical,
	).WithData(&TransportErrorData{
		Transport: "stdio",
		Operation: "spawn",
		Command:   cmdline,
		Retryable: true,
		Reason:    reason(cause),
	})
}

// WriteFailed reports a failed write to the server's stdin
func WriteFailed(method string, cause error) MCPError {
	message := "failed to write message"
	if method != "" {
		message = fmt.Sprintf("failed to write %s", method)
	}
	if cause != nil {
		message = fmt.Sprintf("%s: %s", message, cause.Error())
	}

	return WrapError(
		cause,
		CodeWriteFailed,
		message,
		CategoryTransport,
		SeverityError,
	).WithData(&TransportErrorData{
		Transport: "stdio",
		Operation: "write",
		Method:    method,
		Reason:    reason(cause),
	})
}

// EncodeFailed reports a message that could not be serialized
func EncodeFailed(kind string, cause error) MCPError {
	return WrapError(
		cause,
		CodeEncodeFailed,
		fmt.Sprintf("failed to encode %s: %s", kind, reason(cause)),
		CategoryTransport,
		SeverityError,
	).WithData(&TransportErrorData{
		Transport: "stdio",
		Operation: "encode",
		Reason:    reason(cause),
	})
}

// RequestTimeout reports a request that got no response in time
func RequestTimeout(method, requestID string, timeout time.Duration) MCPError {
	message := fmt.Sprintf("request %s timed out after %v", requestID, timeout)
	if method != "" {
		message = fmt.Sprintf("request %s (%s) timed out after %v", requestID, method, timeout)
	}

	return NewError(
		CodeRequestTimeout,
		message,
		CategoryTransport,
		SeverityError,
	).WithData(&TransportErrorData{
		Transport: "stdio",
		Operation: "await_response",
		RequestID: requestID,
		Method:    method,
		Timeout:   timeout,
		Retryable: true,
		Reason:    "timeout",
	})
}

// RequestAborted reports a request whose caller gave up before a response
// arrived. The caller's context error is the cause.
func RequestAborted(method, requestID string, cause error) MCPError {
	return WrapError(
		cause,
		CodeRequestAborted,
		fmt.Sprintf("request %s (%s) abandoned: %s", requestID, method, reason(cause)),
		CategoryTransport,
		SeverityInfo,
	).WithData(&TransportErrorData{
		Transport: "stdio",
		Operation: "await_response",
		RequestID: requestID,
		Method:    method,
		Reason:    reason(cause),
	})
}

// CircuitOpen reports that calls are being short-circuited after repeated
// transport failures
func CircuitOpen(method string, retryAfter time.Duration) MCPError {
	return NewError(
		CodeCircuitOpen,
		"circuit breaker is open",
		CategoryTransport,
		SeverityWarning,
	).WithData(&TransportErrorData{
		Transport: "stdio",
		Operation: "circuit_breaker_check",
		Method:    method,
		Timeout:   retryAfter,
		Retryable: true,
	})
}
