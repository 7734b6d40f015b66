package errors

import (
	"context"
	stderrors "errors"

	"github.com/ajitpratap0/mcp-client-go/pkg/protocol"
)

// FromProtocolError converts an error frame received from the peer
func FromProtocolError(rpcErr *protocol.Error) MCPError {
	if rpcErr == nil {
		return nil
	}
	return RemoteError(int(rpcErr.Code), rpcErr.Message, rpcErr.Data)
}

// ToProtocolError converts any error into an error object suitable for
// writing back to the peer. Local codes are reported as InternalError.
func ToProtocolError(err error) *protocol.Error {
	if err == nil {
		return nil
	}

	mcpErr, ok := AsMCPError(err)
	if !ok {
		return &protocol.Error{Code: protocol.InternalError, Message: err.Error()}
	}

	code := mcpErr.Code()
	if IsLocalCode(code) {
		code = CodeInternalError
	}
	return &protocol.Error{
		Code:    protocol.ErrorCode(code),
		Message: mcpErr.Message(),
		Data:    RawData(mcpErr),
	}
}

// MethodNotFound builds the error returned to a peer that calls a method
// this client does not serve
func MethodNotFound(method string) MCPError {
	return NewErrorf(
		CodeMethodNotFound,
		CategoryProtocol,
		SeverityWarning,
		"method not found: %s", method,
	)
}

// IsRetryableError reports whether a request that failed with err never
// reached the peer and may be attempted again. Remote errors, timeouts and
// validation failures are never retried.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return false
	}

	mcpErr, ok := AsMCPError(err)
	if !ok {
		return false
	}

	switch mcpErr.Code() {
	case CodeSpawnFailed, CodeNotConnected:
		return true
	}
	return false
}
