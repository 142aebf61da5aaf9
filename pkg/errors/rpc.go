package errors

import "fmt"

/*
RpcError represents a JSON-RPC error response.
*/
type RpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

/*
Error implements the error interface for RpcError.
*/
func (e *RpcError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// Convenience errors (JSON‑RPC reserved codes  -32700 .. -32600)
// A2A specific codes live in the -32000 .. -32099 range.
var (
	ErrParseError     = &RpcError{Code: -32700, Message: "Parse error"}
	ErrInvalidRequest = &RpcError{Code: -32600, Message: "Invalid Request"}
	ErrMethodNotFound = &RpcError{Code: -32601, Message: "Method not found"}
	ErrInvalidParams  = &RpcError{Code: -32602, Message: "Invalid params"}
	ErrInternal       = &RpcError{Code: -32603, Message: "Internal error"}

	ErrTaskNotFound                 = &RpcError{Code: -32001, Message: "Task not found"}
	ErrTaskNotCancelable            = &RpcError{Code: -32002, Message: "Task cannot be canceled"}
	ErrPushNotificationNotSupported = &RpcError{Code: -32003, Message: "Push Notification is not supported"}
	ErrUnsupportedOperation         = &RpcError{Code: -32004, Message: "This operation is not supported"}
	ErrContentTypeNotSupported      = &RpcError{Code: -32005, Message: "Incompatible content types"}
	ErrInvalidAgentResponse         = &RpcError{Code: -32006, Message: "Invalid agent response"}
	ErrExtendedCardNotConfigured    = &RpcError{Code: -32007, Message: "Authenticated Extended Card is not configured"}
	ErrAuthenticationRequired       = &RpcError{Code: -32008, Message: "Authentication required"}
)

// WithMessagef creates a *copy* of an RpcError with a formatted message.
// It does not modify the original error variable.
func (e *RpcError) WithMessagef(format string, args ...any) *RpcError {
	newErr := *e
	newErr.Message = fmt.Sprintf(format, args...)
	return &newErr
}

// WithData creates a copy of an RpcError carrying additional detail data.
func (e *RpcError) WithData(data any) *RpcError {
	newErr := *e
	newErr.Data = data
	return &newErr
}

// FromError normalizes any error into an RpcError. RpcError values pass
// through untouched; anything else becomes an internal error with a generic
// message so the detail only reaches the logs.
func FromError(err error) *RpcError {
	if err == nil {
		return nil
	}
	if rpcErr, ok := err.(*RpcError); ok {
		return rpcErr
	}
	return ErrInternal
}
