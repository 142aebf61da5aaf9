package service

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"
	fiberadaptor "github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/openagentic/a2a-core/pkg/a2a"
	"github.com/openagentic/a2a-core/pkg/errors"
)

/*
The REST surface mirrors the JSON-RPC methods on resource-style paths.
Errors carry the same taxonomy but are translated to HTTP status codes,
and the streaming path emits raw events instead of JSON-RPC envelopes.
*/

func (srv *A2AServer) handleRestCard(ctx fiber.Ctx) error {
	return ctx.JSON(srv.card)
}

func (srv *A2AServer) handleRestGetTask(ctx fiber.Ctx) error {
	params := a2a.TaskQueryParams{
		TaskIDParams: a2a.TaskIDParams{ID: ctx.Params("id")},
	}

	history, rpcErr := queryInt(ctx, "historyLength")

	if rpcErr != nil {
		return restError(ctx, rpcErr)
	}

	params.HistoryLength = history

	task, rpcErr := srv.orchestrator.GetTask(ctx.Context(), &params)

	if rpcErr != nil {
		return restError(ctx, rpcErr)
	}

	return ctx.JSON(task)
}

func (srv *A2AServer) handleRestCancelTask(ctx fiber.Ctx) error {
	params := a2a.TaskIDParams{ID: ctx.Params("id")}

	task, rpcErr := srv.orchestrator.CancelTask(ctx.Context(), &params)

	if rpcErr != nil {
		return restError(ctx, rpcErr)
	}

	return ctx.JSON(task)
}

func (srv *A2AServer) handleRestListTasks(ctx fiber.Ctx) error {
	params := a2a.ListTasksParams{
		ContextID: ctx.Query("contextId"),
		State:     a2a.TaskState(ctx.Query("status")),
		PageToken: ctx.Query("pageToken"),
	}

	pageSize, rpcErr := queryInt(ctx, "pageSize")

	if rpcErr != nil {
		return restError(ctx, rpcErr)
	}

	if pageSize != nil {
		params.PageSize = *pageSize
	}

	history, rpcErr := queryInt(ctx, "historyLength")

	if rpcErr != nil {
		return restError(ctx, rpcErr)
	}

	params.HistoryLength = history
	params.IncludeArtifacts = ctx.Query("includeArtifacts") == "true"

	if after := ctx.Query("statusTimestampAfter"); after != "" {
		ts, err := time.Parse(time.RFC3339, after)

		if err != nil {
			return restError(ctx, errors.ErrInvalidParams.WithMessagef(
				"statusTimestampAfter must be RFC 3339",
			))
		}

		params.StatusTimestampAfter = &ts
	}

	page, rpcErr := srv.orchestrator.ListTasks(ctx.Context(), &params)

	if rpcErr != nil {
		return restError(ctx, rpcErr)
	}

	return ctx.JSON(page)
}

func (srv *A2AServer) handleRestSendMessage(ctx fiber.Ctx) error {
	var params a2a.MessageSendParams

	if err := ctx.Bind().Body(&params); err != nil {
		return restError(ctx, errors.ErrParseError.WithMessagef("invalid request body: %v", err))
	}

	result, rpcErr := srv.orchestrator.SendMessage(ctx.Context(), &params)

	if rpcErr != nil {
		return restError(ctx, rpcErr)
	}

	return ctx.JSON(result)
}

func (srv *A2AServer) handleRestStreamMessage(ctx fiber.Ctx) error {
	var params a2a.MessageSendParams

	if err := ctx.Bind().Body(&params); err != nil {
		return restError(ctx, errors.ErrParseError.WithMessagef("invalid request body: %v", err))
	}

	items, rpcErr := srv.orchestrator.SendStreamingMessage(ctx.Context(), &params)

	if rpcErr != nil {
		return restError(ctx, rpcErr)
	}

	handler := func(w http.ResponseWriter, r *http.Request) {
		streamSSE(w, r, items, func(item StreamItem) any {
			if item.Err != nil {
				return item.Err
			}

			return item.Event
		})
	}

	return fiberadaptor.HTTPHandler(http.HandlerFunc(handler))(ctx)
}

func (srv *A2AServer) handleRestSetPushConfig(ctx fiber.Ctx) error {
	var config a2a.PushNotificationConfig

	if err := ctx.Bind().Body(&config); err != nil {
		return restError(ctx, errors.ErrParseError.WithMessagef("invalid request body: %v", err))
	}

	params := a2a.TaskPushNotificationConfig{
		TaskID: ctx.Params("id"),
		Config: config,
	}

	result, rpcErr := srv.push.Set(ctx.Context(), &params)

	if rpcErr != nil {
		return restError(ctx, rpcErr)
	}

	return ctx.JSON(result)
}

func (srv *A2AServer) handleRestListPushConfigs(ctx fiber.Ctx) error {
	configs, rpcErr := srv.push.List(ctx.Context(), ctx.Params("id"))

	if rpcErr != nil {
		return restError(ctx, rpcErr)
	}

	return ctx.JSON(configs)
}

func (srv *A2AServer) handleRestGetPushConfig(ctx fiber.Ctx) error {
	configs, rpcErr := srv.push.List(ctx.Context(), ctx.Params("id"))

	if rpcErr != nil {
		return restError(ctx, rpcErr)
	}

	configID := ctx.Params("configId")

	for _, cfg := range configs {
		if cfg.Config.ID == configID {
			return ctx.JSON(cfg)
		}
	}

	return restError(ctx, errors.ErrTaskNotFound.WithMessagef(
		"no push notification config %s for task %s", configID, ctx.Params("id"),
	))
}

func (srv *A2AServer) handleRestDeletePushConfig(ctx fiber.Ctx) error {
	if rpcErr := srv.push.Delete(ctx.Context(), ctx.Params("id"), ctx.Params("configId")); rpcErr != nil {
		return restError(ctx, rpcErr)
	}

	return ctx.SendStatus(fiber.StatusNoContent)
}

// restError renders a taxonomy error with its HTTP status.
func restError(ctx fiber.Ctx, rpcErr *errors.RpcError) error {
	return ctx.Status(httpStatus(rpcErr)).JSON(rpcErr)
}

// httpStatus translates the error taxonomy to HTTP status codes.
func httpStatus(rpcErr *errors.RpcError) int {
	switch rpcErr.Code {
	case errors.ErrTaskNotFound.Code, errors.ErrMethodNotFound.Code:
		return fiber.StatusNotFound
	case errors.ErrInvalidRequest.Code,
		errors.ErrInvalidParams.Code,
		errors.ErrParseError.Code,
		errors.ErrTaskNotCancelable.Code,
		errors.ErrUnsupportedOperation.Code,
		errors.ErrPushNotificationNotSupported.Code:
		return fiber.StatusBadRequest
	case errors.ErrContentTypeNotSupported.Code:
		return fiber.StatusUnprocessableEntity
	default:
		return fiber.StatusInternalServerError
	}
}

// queryInt parses an optional integer query parameter.
func queryInt(ctx fiber.Ctx, key string) (*int, *errors.RpcError) {
	raw := ctx.Query(key)

	if raw == "" {
		return nil, nil
	}

	value, err := strconv.Atoi(raw)

	if err != nil {
		return nil, errors.ErrInvalidParams.WithMessagef("%s must be an integer", key)
	}

	return &value, nil
}
