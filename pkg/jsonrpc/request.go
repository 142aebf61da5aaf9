// Package jsonrpc implements the JSON-RPC 2.0 envelope: request parsing,
// envelope validation, and response construction. Method dispatch lives
// in the service layer.
package jsonrpc

import (
	"bytes"
	"encoding/json"

	"github.com/openagentic/a2a-core/pkg/errors"
)

// Version is the only protocol version the envelope accepts.
const Version = "2.0"

type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"` // string | number | null
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

/*
ParseRequest decodes a request body into a validated envelope.  Malformed
JSON yields ErrParseError; a structurally valid document that violates
the envelope rules yields ErrInvalidRequest.
*/
func ParseRequest(body []byte) (*Request, *errors.RpcError) {
	body = bytes.TrimSpace(body)

	if len(body) == 0 {
		return nil, errors.ErrParseError
	}

	var req Request

	if err := json.Unmarshal(body, &req); err != nil {
		return nil, errors.ErrParseError
	}

	if rpcErr := req.Validate(); rpcErr != nil {
		return &req, rpcErr
	}

	return &req, nil
}

/*
Validate checks the envelope rules: the version marker must be "2.0",
the method must be non-empty, the id (when present) must be a string,
number, or null, and params (when present) must be a JSON object.
*/
func (req *Request) Validate() *errors.RpcError {
	if req.JSONRPC != Version {
		return errors.ErrInvalidRequest.WithMessagef(
			"jsonrpc must be %q", Version,
		)
	}

	if req.Method == "" {
		return errors.ErrInvalidRequest.WithMessagef("method is required")
	}

	if !validID(req.ID) {
		return errors.ErrInvalidRequest.WithMessagef(
			"id must be a string, number, or null",
		)
	}

	if len(req.Params) > 0 && !isObject(req.Params) {
		return errors.ErrInvalidRequest.WithMessagef(
			"params must be an object",
		)
	}

	return nil
}

// validID accepts an absent id, null, a JSON string, or a JSON number.
func validID(id json.RawMessage) bool {
	id = bytes.TrimSpace(id)

	if len(id) == 0 || bytes.Equal(id, []byte("null")) {
		return true
	}

	switch id[0] {
	case '"':
		var s string
		return json.Unmarshal(id, &s) == nil
	case '{', '[', 't', 'f':
		return false
	default:
		var n json.Number
		return json.Unmarshal(id, &n) == nil
	}
}

func isObject(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '{'
}
