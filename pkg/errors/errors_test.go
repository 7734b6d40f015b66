package errors

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/ajitpratap0/mcp-client-go/pkg/protocol"
)

func TestMCPErrorInterface(t *testing.T) {
	tests := []struct {
		name     string
		err      MCPError
		wantCode int
		wantCat  Category
	}{
		{"no transport", NoTransport(), CodeNoTransport, CategoryConnection},
		{"already connected", AlreadyConnected("ready"), CodeAlreadyConnected, CategoryConnection},
		{"not initialized", NotInitialized("tools/list", "disconnected"), CodeNotInitialized, CategoryConnection},
		{"not connected", NotConnected("send"), CodeNotConnected, CategoryConnection},
		{"process exited", ProcessExited(1, "", nil), CodeConnectionLost, CategoryConnection},
		{"disconnected", Disconnected(), CodeDisconnected, CategoryConnection},
		{"transport", TransportError("read", fmt.Errorf("boom")), CodeTransportError, CategoryTransport},
		{"spawn", SpawnFailed("srv", []string{"-x"}, fmt.Errorf("enoent")), CodeSpawnFailed, CategoryTransport},
		{"write", WriteFailed("ping", fmt.Errorf("epipe")), CodeWriteFailed, CategoryTransport},
		{"timeout", RequestTimeout("ping", "1", time.Second), CodeRequestTimeout, CategoryTransport},
		{"aborted", RequestAborted("ping", "1", context.Canceled), CodeRequestAborted, CategoryTransport},
		{"circuit", CircuitOpen("ping", time.Second), CodeCircuitOpen, CategoryTransport},
		{"version", VersionMismatch("2024-11-05", "2025-03-26"), CodeVersionMismatch, CategoryValidation},
		{"config", InvalidConfig("command", "empty"), CodeInvalidConfig, CategoryValidation},
		{"remote", RemoteError(-32601, "Method not found", nil), -32601, CategoryProtocol},
		{"capability", CapabilityMissing("tools"), CodeCapabilityError, CategoryProtocol},
		{"invalid response", InvalidResponse("tools/list", fmt.Errorf("eof")), CodeInvalidResponse, CategoryProtocol},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Code(); got != tt.wantCode {
				t.Errorf("Code() = %v, want %v", got, tt.wantCode)
			}
			if got := tt.err.Category(); got != tt.wantCat {
				t.Errorf("Category() = %v, want %v", got, tt.wantCat)
			}
			if msg := tt.err.Error(); msg == "" {
				t.Error("Error() returned empty string")
			}
			if tt.err.Context() == nil {
				t.Error("Context() should never be nil for constructed errors")
			}
		})
	}
}

func TestErrorContext(t *testing.T) {
	err := NotInitialized("tools/call", "disconnected")
	created := err.Context().Timestamp

	withCtx := err.WithContext(&Context{
		RequestID: "7",
		Method:    "tools/call",
		SessionID: "session-456",
		Component: "client",
	})

	got := withCtx.Context()
	if got.RequestID != "7" || got.SessionID != "session-456" {
		t.Errorf("WithContext() lost fields: %+v", got)
	}
	if !got.Timestamp.Equal(created) {
		t.Errorf("WithContext() should keep the creation timestamp, got %v want %v", got.Timestamp, created)
	}
	if err.Context().RequestID != "" {
		t.Error("Original error was modified by WithContext()")
	}
}

func TestErrorChaining(t *testing.T) {
	cause := fmt.Errorf("underlying cause")
	err := TransportError("write", cause)

	if unwrapped := err.Unwrap(); unwrapped != cause {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, cause)
	}

	wrapped := fmt.Errorf("outer: %w", err)
	if !IsCategory(wrapped, CategoryTransport) {
		t.Error("IsCategory() should see through fmt wrapping")
	}
	if !IsCode(wrapped, CodeTransportError) {
		t.Error("IsCode() should see through fmt wrapping")
	}
	if CategoryOf(fmt.Errorf("plain")) != "" {
		t.Error("CategoryOf() of a plain error should be empty")
	}
}

func TestRemoteErrorCarriesFrame(t *testing.T) {
	frame := &protocol.Error{
		Code:    protocol.ToolError,
		Message: "tool exploded",
		Data:    json.RawMessage(`{"tool":"echo"}`),
	}

	err := FromProtocolError(frame)
	if err.Code() != -32003 {
		t.Errorf("Code() = %d, want -32003", err.Code())
	}
	if err.Message() != "tool exploded" {
		t.Errorf("Message() = %q", err.Message())
	}
	if err.Error() != "tool exploded" {
		t.Errorf("Error() = %q", err.Error())
	}
	if string(RawData(err)) != `{"tool":"echo"}` {
		t.Errorf("RawData() = %s", RawData(err))
	}
	if FromProtocolError(nil) != nil {
		t.Error("FromProtocolError(nil) should be nil")
	}
}

func TestCapabilityMissingData(t *testing.T) {
	err := CapabilityMissing("tools")

	var data map[string]string
	if jErr := json.Unmarshal(RawData(err), &data); jErr != nil {
		t.Fatalf("RawData() is not JSON: %v", jErr)
	}
	if data["capability"] != "tools" {
		t.Errorf("capability = %q, want tools", data["capability"])
	}
}

func TestVersionMismatchData(t *testing.T) {
	err := VersionMismatch("2024-11-05", "1999-01-01")
	data, ok := err.Data().(*ValidationErrorData)
	if !ok {
		t.Fatalf("Data() = %T, want *ValidationErrorData", err.Data())
	}
	if data.Expected != "2024-11-05" || data.Got != "1999-01-01" {
		t.Errorf("unexpected data %+v", data)
	}
}

func TestProcessExitedMessage(t *testing.T) {
	err := ProcessExited(3, "fatal: bad flag", nil)
	if err.Message() != "server process exited with code 3" {
		t.Errorf("Message() = %q", err.Message())
	}
	data := err.Data().(*ConnectionErrorData)
	if data.ExitCode == nil || *data.ExitCode != 3 {
		t.Errorf("ExitCode = %v", data.ExitCode)
	}
	if data.Stderr != "fatal: bad flag" {
		t.Errorf("Stderr = %q", data.Stderr)
	}
}

func TestErrorSerialization(t *testing.T) {
	err := RequestTimeout("tools/call", "5", 30*time.Second).
		WithContext(&Context{RequestID: "5", Method: "tools/call"})

	data, jErr := json.Marshal(err)
	if jErr != nil {
		t.Fatalf("Marshal() error = %v", jErr)
	}

	var decoded map[string]interface{}
	if jErr := json.Unmarshal(data, &decoded); jErr != nil {
		t.Fatalf("Unmarshal() error = %v", jErr)
	}

	if decoded["category"] != "transport" {
		t.Errorf("category = %v", decoded["category"])
	}
	if int(decoded["code"].(float64)) != CodeRequestTimeout {
		t.Errorf("code = %v", decoded["code"])
	}
	if _, ok := decoded["context"]; !ok {
		t.Error("context missing from JSON")
	}
}

func TestToProtocolError(t *testing.T) {
	local := ToProtocolError(NotInitialized("x", "disconnected"))
	if local.Code != protocol.InternalError {
		t.Errorf("local codes must map to InternalError, got %d", local.Code)
	}

	notFound := ToProtocolError(MethodNotFound("sampling/createMessage"))
	if notFound.Code != protocol.MethodNotFound {
		t.Errorf("Code = %d", notFound.Code)
	}

	plain := ToProtocolError(fmt.Errorf("oops"))
	if plain.Code != protocol.InternalError || plain.Message != "oops" {
		t.Errorf("unexpected %+v", plain)
	}

	if ToProtocolError(nil) != nil {
		t.Error("ToProtocolError(nil) should be nil")
	}
}

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{SpawnFailed("srv", nil, fmt.Errorf("x")), true},
		{NotConnected("send"), true},
		{RequestTimeout("ping", "1", time.Second), false},
		{RemoteError(-32603, "internal", nil), false},
		{VersionMismatch("a", "b"), false},
		{context.Canceled, false},
		{fmt.Errorf("plain"), false},
	}

	for i, tt := range tests {
		if got := IsRetryableError(tt.err); got != tt.want {
			t.Errorf("case %d: IsRetryableError(%v) = %v, want %v", i, tt.err, got, tt.want)
		}
	}
}

func TestErrorRegistry(t *testing.T) {
	for _, code := range []int{CodeParseError, CodeCapabilityError, CodeNotInitialized, CodeRequestTimeout, CodeVersionMismatch} {
		info, ok := GetErrorCodeInfo(code)
		if !ok {
			t.Errorf("code %d not registered", code)
			continue
		}
		if info.Code != code {
			t.Errorf("registry entry for %d has code %d", code, info.Code)
		}
	}

	if GetErrorCodeName(12345) != "UnknownError" {
		t.Error("unknown codes should be named UnknownError")
	}
	if GetErrorCodeCategory(-31999) != CategoryProtocol {
		t.Error("unregistered codes come from the peer and are protocol errors")
	}
	if !IsLocalCode(CodeRequestTimeout) || IsLocalCode(CodeCapabilityError) {
		t.Error("IsLocalCode() misclassified a code")
	}
}

func TestCombineValidationErrors(t *testing.T) {
	if CombineValidationErrors(nil) != nil {
		t.Error("empty input should give nil")
	}

	single := InvalidConfig("command", "empty")
	if CombineValidationErrors([]MCPError{single}) != single {
		t.Error("single input should be returned unchanged")
	}

	combined := CombineValidationErrors([]MCPError{single, InvalidConfig("timeout", "negative")})
	if combined.Category() != CategoryValidation {
		t.Errorf("Category() = %v", combined.Category())
	}
	if combined.Message() != "2 validation errors" {
		t.Errorf("Message() = %q", combined.Message())
	}
}

func BenchmarkErrorCreation(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = RequestTimeout("tools/call", "1", time.Second)
	}
}
