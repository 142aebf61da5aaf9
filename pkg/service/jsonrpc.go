package service

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"
	fiberadaptor "github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/openagentic/a2a-core/pkg/a2a"
	"github.com/openagentic/a2a-core/pkg/errors"
	"github.com/openagentic/a2a-core/pkg/jsonrpc"
	"github.com/openagentic/a2a-core/pkg/metrics"
)

/*
handleRPC is the single JSON-RPC endpoint.  The envelope is validated
first; dispatch then routes to the orchestrator.  Single-response methods
answer HTTP 200 with errors riding inside the envelope, streaming methods
upgrade to SSE and wrap every event in a response envelope.
*/
func (srv *A2AServer) handleRPC(ctx fiber.Ctx) error {
	req, rpcErr := jsonrpc.ParseRequest(ctx.Body())

	if rpcErr != nil {
		var id json.RawMessage
		if req != nil {
			id = req.ID
		}

		metrics.RecordRPCError(strconv.Itoa(rpcErr.Code))

		return ctx.JSON(jsonrpc.NewErrorResponse(id, rpcErr))
	}

	switch req.Method {
	case "message/stream":
		return srv.handleRPCStream(ctx, req, func(params *a2a.MessageSendParams) (<-chan StreamItem, *errors.RpcError) {
			return srv.orchestrator.SendStreamingMessage(ctx.Context(), params)
		})

	case "tasks/subscribe", "tasks/resubscribe":
		var params a2a.TaskQueryParams

		if rpcErr := decodeParams(req, &params); rpcErr != nil {
			return srv.respondError(ctx, req, rpcErr)
		}

		items, rpcErr := srv.orchestrator.SubscribeToTask(ctx.Context(), &params)

		if rpcErr != nil {
			return srv.respondError(ctx, req, rpcErr)
		}

		return srv.streamRPC(ctx, req.ID, items)
	}

	return srv.handleRPCSingle(ctx, req)
}

// handleRPCSingle covers every method that answers with one envelope.
func (srv *A2AServer) handleRPCSingle(ctx fiber.Ctx, req *jsonrpc.Request) error {
	started := time.Now()
	result, rpcErr := srv.dispatch(ctx, req)

	status := "success"
	if rpcErr != nil {
		status = "error"
		metrics.RecordRPCError(strconv.Itoa(rpcErr.Code))
	}
	metrics.RecordRequest(req.Method, status, time.Since(started).Seconds())

	if rpcErr != nil {
		return ctx.JSON(jsonrpc.NewErrorResponse(req.ID, rpcErr))
	}

	return ctx.JSON(jsonrpc.NewResponse(req.ID, result))
}

func (srv *A2AServer) dispatch(ctx fiber.Ctx, req *jsonrpc.Request) (any, *errors.RpcError) {
	switch req.Method {
	case "message/send":
		var params a2a.MessageSendParams

		if rpcErr := decodeParams(req, &params); rpcErr != nil {
			return nil, rpcErr
		}

		return unwrap(srv.orchestrator.SendMessage(ctx.Context(), &params))

	case "tasks/get":
		var params a2a.TaskQueryParams

		if rpcErr := decodeParams(req, &params); rpcErr != nil {
			return nil, rpcErr
		}

		return unwrap(srv.orchestrator.GetTask(ctx.Context(), &params))

	case "tasks/cancel":
		var params a2a.TaskIDParams

		if rpcErr := decodeParams(req, &params); rpcErr != nil {
			return nil, rpcErr
		}

		return unwrap(srv.orchestrator.CancelTask(ctx.Context(), &params))

	case "tasks/list":
		var params a2a.ListTasksParams

		if len(req.Params) > 0 {
			if rpcErr := decodeParams(req, &params); rpcErr != nil {
				return nil, rpcErr
			}
		}

		return unwrap(srv.orchestrator.ListTasks(ctx.Context(), &params))

	case "tasks/pushNotificationConfig/set":
		var params a2a.TaskPushNotificationConfig

		if rpcErr := decodeParams(req, &params); rpcErr != nil {
			return nil, rpcErr
		}

		return unwrap(srv.push.Set(ctx.Context(), &params))

	case "tasks/pushNotificationConfig/get":
		var params a2a.TaskIDParams

		if rpcErr := decodeParams(req, &params); rpcErr != nil {
			return nil, rpcErr
		}

		return unwrap(srv.push.Get(ctx.Context(), params.ID))

	case "agent/getAuthenticatedExtendedCard":
		if srv.extendedCard == nil {
			return nil, errors.ErrExtendedCardNotConfigured
		}

		return srv.extendedCard, nil
	}

	return nil, errors.ErrMethodNotFound.WithMessagef("unknown method %q", req.Method)
}

// handleRPCStream runs a streaming send and renders it over SSE.
func (srv *A2AServer) handleRPCStream(ctx fiber.Ctx, req *jsonrpc.Request, send func(*a2a.MessageSendParams) (<-chan StreamItem, *errors.RpcError)) error {
	var params a2a.MessageSendParams

	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		return srv.respondError(ctx, req, rpcErr)
	}

	items, rpcErr := send(&params)

	if rpcErr != nil {
		return srv.respondError(ctx, req, rpcErr)
	}

	return srv.streamRPC(ctx, req.ID, items)
}

// streamRPC renders stream items as SSE, each wrapped in a JSON-RPC
// response envelope echoing the request id.
func (srv *A2AServer) streamRPC(ctx fiber.Ctx, id json.RawMessage, items <-chan StreamItem) error {
	handler := func(w http.ResponseWriter, r *http.Request) {
		streamSSE(w, r, items, func(item StreamItem) any {
			if item.Err != nil {
				return jsonrpc.NewErrorResponse(id, item.Err)
			}

			return jsonrpc.NewResponse(id, item.Event)
		})
	}

	return fiberadaptor.HTTPHandler(http.HandlerFunc(handler))(ctx)
}

func (srv *A2AServer) respondError(ctx fiber.Ctx, req *jsonrpc.Request, rpcErr *errors.RpcError) error {
	metrics.RecordRPCError(strconv.Itoa(rpcErr.Code))
	return ctx.JSON(jsonrpc.NewErrorResponse(req.ID, rpcErr))
}

/*
decodeParams unmarshals the request params.  Absent params where a method
requires them is an InvalidParams violation, as is a params object whose
fields do not decode.
*/
func decodeParams(req *jsonrpc.Request, out any) *errors.RpcError {
	if len(req.Params) == 0 {
		return errors.ErrInvalidParams.WithMessagef("params are required for %s", req.Method)
	}

	if err := json.Unmarshal(req.Params, out); err != nil {
		return errors.ErrInvalidParams.WithMessagef("failed to decode params: %v", err)
	}

	return nil
}

// unwrap adapts a typed orchestrator result to the dispatch signature
// without letting a typed nil escape into the response envelope.
func unwrap[T any](result T, rpcErr *errors.RpcError) (any, *errors.RpcError) {
	if rpcErr != nil {
		return nil, rpcErr
	}

	return result, nil
}
