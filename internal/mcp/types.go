package mcp

import "encoding/json"

// Request is a JSON-RPC 2.0 request carried over Content-Length framing.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      string          `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response is the matching JSON-RPC 2.0 response envelope.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      string          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error codes used by the provider. CodeDiffConflict signals that a guarded
// write was rejected because the repository changed since preview time.
const (
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternal       = -32603
	CodeDiffConflict   = -32009
)

// Store roots the provider serves. Every document lives under exactly one root.
const (
	RootRequirements = "requirements"
	RootArchitecture = "architecture"
)
