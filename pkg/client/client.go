// Package client is the Go client for the protocol: JSON-RPC calls over
// HTTP plus an SSE consumer for the streaming methods.
package client

import (
	"context"
	"encoding/json"
	"strconv"
	"sync/atomic"

	"github.com/charmbracelet/log"
	fiberClient "github.com/gofiber/fiber/v3/client"
	"github.com/openagentic/a2a-core/pkg/a2a"
	"github.com/openagentic/a2a-core/pkg/errors"
	"github.com/openagentic/a2a-core/pkg/jsonrpc"
)

/*
Client talks to one agent server.  Single-response methods go through the
fiber client; streaming methods use a dedicated SSE reader.  Protocol
errors come back as *errors.RpcError values.
*/
type Client struct {
	baseURL string
	conn    *fiberClient.Client
	nextID  atomic.Int64
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		conn:    fiberClient.New().SetBaseURL(baseURL),
	}
}

// Call performs one JSON-RPC request and returns the raw result.
func (c *Client) Call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	req, err := c.newRequest(method, params)

	if err != nil {
		return nil, err
	}

	res, err := c.conn.Post("/rpc", fiberClient.Config{
		Ctx: ctx,
		Header: map[string]string{
			"Content-Type": "application/json",
		},
		Body: req,
	})

	if err != nil {
		return nil, err
	}

	var envelope struct {
		Result json.RawMessage  `json:"result"`
		Error  *errors.RpcError `json:"error"`
	}

	if err = json.Unmarshal(res.Body(), &envelope); err != nil {
		log.Error("failed to decode rpc response", "method", method, "error", err)
		return nil, err
	}

	if envelope.Error != nil {
		return nil, envelope.Error
	}

	return envelope.Result, nil
}

// SendMessage runs message/send and returns the task or message result.
func (c *Client) SendMessage(ctx context.Context, params *a2a.MessageSendParams) (a2a.Event, error) {
	result, err := c.Call(ctx, "message/send", params)

	if err != nil {
		return nil, err
	}

	ev, rpcErr := a2a.UnmarshalEvent(result)

	if rpcErr != nil {
		return nil, rpcErr
	}

	return ev, nil
}

// GetTask fetches a task projection.
func (c *Client) GetTask(ctx context.Context, params *a2a.TaskQueryParams) (*a2a.Task, error) {
	result, err := c.Call(ctx, "tasks/get", params)

	if err != nil {
		return nil, err
	}

	var task a2a.Task

	if err = json.Unmarshal(result, &task); err != nil {
		return nil, err
	}

	return &task, nil
}

// CancelTask cancels a running task and returns the final projection.
func (c *Client) CancelTask(ctx context.Context, params *a2a.TaskIDParams) (*a2a.Task, error) {
	result, err := c.Call(ctx, "tasks/cancel", params)

	if err != nil {
		return nil, err
	}

	var task a2a.Task

	if err = json.Unmarshal(result, &task); err != nil {
		return nil, err
	}

	return &task, nil
}

// ListTasks pages through the server's tasks.
func (c *Client) ListTasks(ctx context.Context, params *a2a.ListTasksParams) (*a2a.ListTasksResult, error) {
	result, err := c.Call(ctx, "tasks/list", params)

	if err != nil {
		return nil, err
	}

	var page a2a.ListTasksResult

	if err = json.Unmarshal(result, &page); err != nil {
		return nil, err
	}

	return &page, nil
}

// AgentCard fetches the discovery document.
func (c *Client) AgentCard(ctx context.Context) (*a2a.AgentCard, error) {
	res, err := c.conn.Get("/.well-known/agent.json", fiberClient.Config{Ctx: ctx})

	if err != nil {
		return nil, err
	}

	var card a2a.AgentCard

	if err = json.Unmarshal(res.Body(), &card); err != nil {
		return nil, err
	}

	return &card, nil
}

func (c *Client) newRequest(method string, params any) (*jsonrpc.Request, error) {
	req := &jsonrpc.Request{
		JSONRPC: jsonrpc.Version,
		ID:      json.RawMessage(strconv.FormatInt(c.nextID.Add(1), 10)),
		Method:  method,
	}

	if params != nil {
		raw, err := json.Marshal(params)

		if err != nil {
			return nil, err
		}

		req.Params = raw
	}

	return req, nil
}
