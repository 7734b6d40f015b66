package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

const (
	// JSONRPCVersion is the supported JSON-RPC version
	JSONRPCVersion = "2.0"
)

// ErrorCode represents a JSON-RPC 2.0 error code
type ErrorCode int

// Standard error codes as per JSON-RPC 2.0 specification
const (
	ParseError     ErrorCode = -32700
	InvalidRequest ErrorCode = -32600
	MethodNotFound ErrorCode = -32601
	InvalidParams  ErrorCode = -32602
	InternalError  ErrorCode = -32603
)

// Implementation-defined codes in the server error range
const (
	// ServerError is a generic server-side failure
	ServerError ErrorCode = -32000
	// CapabilityError indicates the peer did not declare a required capability
	CapabilityError ErrorCode = -32001
	// ResourceError indicates a resource could not be served
	ResourceError ErrorCode = -32002
	// ToolError indicates a tool failed outside of its normal result channel
	ToolError ErrorCode = -32003
)

// String returns the symbolic name of a reserved code.
func (c ErrorCode) String() string {
	switch c {
	case ParseError:
		return "ParseError"
	case InvalidRequest:
		return "InvalidRequest"
	case MethodNotFound:
		return "MethodNotFound"
	case InvalidParams:
		return "InvalidParams"
	case InternalError:
		return "InternalError"
	case ServerError:
		return "ServerError"
	case CapabilityError:
		return "CapabilityError"
	case ResourceError:
		return "ResourceError"
	case ToolError:
		return "ToolError"
	default:
		return "ErrorCode(" + strconv.Itoa(int(c)) + ")"
	}
}

// MessageKind discriminates the three wire message shapes.
type MessageKind int

const (
	KindRequest MessageKind = iota + 1
	KindResponse
	KindNotification
)

func (k MessageKind) String() string {
	switch k {
	case KindRequest:
		return "request"
	case KindResponse:
		return "response"
	case KindNotification:
		return "notification"
	default:
		return "unknown"
	}
}

// Message is implemented by Request, Response and Notification.
type Message interface {
	Kind() MessageKind
}

// JSONRPCMessage represents a JSON-RPC 2.0 message
type JSONRPCMessage struct {
	JSONRPC string `json:"jsonrpc"`
}

// ID is a request identifier carrying either an integer or a string.
// The zero value is the JSON null id.
type ID struct {
	value interface{}
}

// NewIntID returns an integer request id.
func NewIntID(n int64) ID {
	return ID{value: n}
}

// NewStringID returns a string request id.
func NewStringID(s string) ID {
	return ID{value: s}
}

// IsNull reports whether the id is absent or JSON null.
func (id ID) IsNull() bool {
	return id.value == nil
}

// Int returns the integer value and whether the id is an integer.
func (id ID) Int() (int64, bool) {
	n, ok := id.value.(int64)
	return n, ok
}

// Raw returns the underlying int64, string or nil.
func (id ID) Raw() interface{} {
	return id.value
}

// Key returns a map key that keeps integer and string ids apart,
// so 1 and "1" never address the same pending request.
func (id ID) Key() string {
	switch v := id.value.(type) {
	case int64:
		return "n:" + strconv.FormatInt(v, 10)
	case string:
		return "s:" + v
	default:
		return "null"
	}
}

func (id ID) String() string {
	switch v := id.value.(type) {
	case int64:
		return strconv.FormatInt(v, 10)
	case string:
		return v
	default:
		return "null"
	}
}

// MarshalJSON implements json.Marshaler
func (id ID) MarshalJSON() ([]byte, error) {
	switch v := id.value.(type) {
	case int64:
		return []byte(strconv.FormatInt(v, 10)), nil
	case string:
		return json.Marshal(v)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON implements json.Unmarshaler
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		id.value = nil
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		id.value = s
		return nil
	}
	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("id must be an integer or a string, got %s", data)
	}
	id.value = n
	return nil
}

// Request represents a JSON-RPC 2.0 request
type Request struct {
	JSONRPCMessage
	ID     ID              `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// Kind implements Message
func (r *Request) Kind() MessageKind { return KindRequest }

// NewRequest creates a new JSON-RPC 2.0 request
func NewRequest(id ID, method string, params interface{}) (*Request, error) {
	paramsJSON, err := marshalPayload(params)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal params: %w", err)
	}

	return &Request{
		JSONRPCMessage: JSONRPCMessage{JSONRPC: JSONRPCVersion},
		ID:             id,
		Method:         method,
		Params:         paramsJSON,
	}, nil
}

// Response represents a JSON-RPC 2.0 response
type Response struct {
	JSONRPCMessage
	ID     ID              `json:"id"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *Error          `json:"error,omitempty"`
}

// Kind implements Message
func (r *Response) Kind() MessageKind { return KindResponse }

// Validate checks that exactly one of result and error is present.
func (r *Response) Validate() error {
	hasResult := len(r.Result) > 0
	hasError := r.Error != nil
	switch {
	case hasResult && hasError:
		return errors.New("response carries both result and error")
	case !hasResult && !hasError:
		return errors.New("response carries neither result nor error")
	}
	return nil
}

// NewResponse creates a new JSON-RPC 2.0 success response
func NewResponse(id ID, result interface{}) (*Response, error) {
	resultJSON, err := marshalPayload(result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}
	if resultJSON == nil {
		resultJSON = json.RawMessage("null")
	}

	return &Response{
		JSONRPCMessage: JSONRPCMessage{JSONRPC: JSONRPCVersion},
		ID:             id,
		Result:         resultJSON,
	}, nil
}

// NewErrorResponse creates a new JSON-RPC 2.0 error response
func NewErrorResponse(id ID, code ErrorCode, message string, data interface{}) (*Response, error) {
	dataJSON, err := marshalPayload(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal error data: %w", err)
	}

	return &Response{
		JSONRPCMessage: JSONRPCMessage{JSONRPC: JSONRPCVersion},
		ID:             id,
		Error: &Error{
			Code:    code,
			Message: message,
			Data:    dataJSON,
		},
	}, nil
}

// Notification represents a JSON-RPC 2.0 notification
type Notification struct {
	JSONRPCMessage
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// Kind implements Message
func (n *Notification) Kind() MessageKind { return KindNotification }

// NewNotification creates a new JSON-RPC 2.0 notification
func NewNotification(method string, params interface{}) (*Notification, error) {
	paramsJSON, err := marshalPayload(params)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal params: %w", err)
	}

	return &Notification{
		JSONRPCMessage: JSONRPCMessage{JSONRPC: JSONRPCVersion},
		Method:         method,
		Params:         paramsJSON,
	}, nil
}

// Error represents a JSON-RPC 2.0 error object
type Error struct {
	Code    ErrorCode       `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Error implements the error interface
func (e *Error) Error() string {
	return fmt.Sprintf("rpc error: code = %d desc = %s", e.Code, e.Message)
}

// wireEnvelope is the union of every field a message may carry.
type wireEnvelope struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
	Result  json.RawMessage `json:"result"`
	Error   *Error          `json:"error"`
}

// ErrUnknownMessage is returned for a well-formed JSON value that is not
// a request, response or notification.
var ErrUnknownMessage = errors.New("message is neither request, response nor notification")

// DecodeMessage parses one JSON record and classifies it. A record with
// result or error is a response; one with a method and a non-null id is a
// request; one with a method and no id is a notification.
func DecodeMessage(data []byte) (Message, error) {
	var env wireEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if env.JSONRPC != JSONRPCVersion {
		return nil, fmt.Errorf("unsupported jsonrpc version %q", env.JSONRPC)
	}

	var id ID
	hasID := len(env.ID) > 0
	if hasID {
		if err := id.UnmarshalJSON(env.ID); err != nil {
			return nil, err
		}
	}

	header := JSONRPCMessage{JSONRPC: env.JSONRPC}

	switch {
	case len(env.Result) > 0 || env.Error != nil:
		if !hasID {
			return nil, errors.New("response without id")
		}
		resp := &Response{JSONRPCMessage: header, ID: id, Result: env.Result, Error: env.Error}
		if err := resp.Validate(); err != nil {
			return nil, err
		}
		return resp, nil
	case env.Method != "" && hasID && !id.IsNull():
		return &Request{JSONRPCMessage: header, ID: id, Method: env.Method, Params: env.Params}, nil
	case env.Method != "" && !hasID:
		return &Notification{JSONRPCMessage: header, Method: env.Method, Params: env.Params}, nil
	default:
		return nil, ErrUnknownMessage
	}
}

// EncodeMessage serializes a message as a single JSON record with no
// trailing delimiter.
func EncodeMessage(msg Message) ([]byte, error) {
	if msg == nil {
		return nil, errors.New("nil message")
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", msg.Kind(), err)
	}
	if bytes.IndexByte(data, '\n') >= 0 {
		return nil, fmt.Errorf("encoded %s contains a newline", msg.Kind())
	}
	return data, nil
}

// marshalPayload encodes an optional params/result/data value. Raw JSON is
// passed through untouched; nil stays absent.
func marshalPayload(v interface{}) (json.RawMessage, error) {
	switch p := v.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		if len(p) == 0 {
			return nil, nil
		}
		if !json.Valid(p) {
			return nil, errors.New("raw payload is not valid JSON")
		}
		return p, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return data, nil
}
