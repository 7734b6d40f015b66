// Package protocol defines the wire types of the MCP control protocol.
//
// Messages are JSON-RPC 2.0 records. Every record is exactly one of:
//
//   - Request: carries an id and a method, expects exactly one Response
//   - Response: carries the id of the Request it answers and either a
//     result or an error, never both
//   - Notification: carries a method and no id, expects nothing back
//
// DecodeMessage classifies a raw record and EncodeMessage produces a
// single-line record suitable for newline-delimited framing.
//
// # Identifiers
//
// Request ids are integers or strings. ID.Key gives a canonical map key
// that keeps the two kinds distinct.
//
// # Handshake
//
// A session starts with an initialize request carrying InitializeParams.
// The server answers with InitializeResult, after which the client sends
// the notifications/initialized notification.
//
// # Payloads
//
// Params, results, error data and capability descriptors are kept as
// json.RawMessage and decoded only by the caller that understands them.
package protocol
