package jsonrpc

import (
	"encoding/json"

	"github.com/openagentic/a2a-core/pkg/errors"
)

/*
Response is the outbound JSON-RPC envelope.  The ID is carried as raw
JSON so the caller's string, number, or null id is echoed verbatim.
*/
type Response struct {
	JSONRPC string           `json:"jsonrpc"`
	ID      json.RawMessage  `json:"id"`
	Result  any              `json:"result,omitempty"`
	Error   *errors.RpcError `json:"error,omitempty"`
}

// NewResponse wraps a result for the given request id.
func NewResponse(id json.RawMessage, result any) Response {
	return Response{
		JSONRPC: Version,
		ID:      normalizeID(id),
		Result:  result,
	}
}

// NewErrorResponse wraps an error for the given request id.
func NewErrorResponse(id json.RawMessage, e *errors.RpcError) Response {
	if e == nil {
		e = errors.ErrInternal
	}

	return Response{
		JSONRPC: Version,
		ID:      normalizeID(id),
		Error:   e,
	}
}

// normalizeID maps an absent id to explicit null so the response always
// carries the id field.
func normalizeID(id json.RawMessage) json.RawMessage {
	if len(id) == 0 {
		return json.RawMessage("null")
	}

	return id
}
