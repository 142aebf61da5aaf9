package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openagentic/a2a-core/pkg/a2a"
	"github.com/openagentic/a2a-core/pkg/errors"
	"github.com/openagentic/a2a-core/pkg/jsonrpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeServer answers /rpc with canned per-method handlers.
func fakeServer(t *testing.T, handlers map[string]func(req *jsonrpc.Request) (any, *errors.RpcError)) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()

	mux.HandleFunc("/rpc", func(w http.ResponseWriter, r *http.Request) {
		var req jsonrpc.Request
		require.Nil(t, json.NewDecoder(r.Body).Decode(&req))

		handle, ok := handlers[req.Method]
		require.True(t, ok, "unexpected method %s", req.Method)

		result, rpcErr := handle(&req)
		w.Header().Set("Content-Type", "application/json")

		if rpcErr != nil {
			require.Nil(t, json.NewEncoder(w).Encode(jsonrpc.NewErrorResponse(req.ID, rpcErr)))
			return
		}

		require.Nil(t, json.NewEncoder(w).Encode(jsonrpc.NewResponse(req.ID, result)))
	})

	mux.HandleFunc("/.well-known/agent.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		require.Nil(t, json.NewEncoder(w).Encode(a2a.AgentCard{
			Name:    "Fake Agent",
			URL:     "http://fake.local",
			Version: "0.1.0",
		}))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return server
}

func TestSendMessageDecodesResult(t *testing.T) {
	server := fakeServer(t, map[string]func(*jsonrpc.Request) (any, *errors.RpcError){
		"message/send": func(req *jsonrpc.Request) (any, *errors.RpcError) {
			var params a2a.MessageSendParams
			require.Nil(t, json.Unmarshal(req.Params, &params))
			assert.Equal(t, "hello", params.Message.Text())

			return a2a.NewTextMessage(a2a.RoleAgent, "Echo: hello"), nil
		},
	})

	c := NewClient(server.URL)

	result, err := c.SendMessage(context.Background(), &a2a.MessageSendParams{
		Message: *a2a.NewTextMessage(a2a.RoleUser, "hello"),
	})
	require.Nil(t, err)

	msg, ok := result.(*a2a.Message)
	require.True(t, ok)
	assert.Equal(t, "Echo: hello", msg.Text())
}

func TestCallSurfacesProtocolErrors(t *testing.T) {
	server := fakeServer(t, map[string]func(*jsonrpc.Request) (any, *errors.RpcError){
		"tasks/get": func(*jsonrpc.Request) (any, *errors.RpcError) {
			return nil, errors.ErrTaskNotFound.WithMessagef("task missing not found")
		},
	})

	c := NewClient(server.URL)

	_, err := c.GetTask(context.Background(), &a2a.TaskQueryParams{
		TaskIDParams: a2a.TaskIDParams{ID: "missing"},
	})
	require.NotNil(t, err)

	rpcErr, ok := err.(*errors.RpcError)
	require.True(t, ok)
	assert.Equal(t, errors.ErrTaskNotFound.Code, rpcErr.Code)
}

func TestGetTaskDecodesProjection(t *testing.T) {
	server := fakeServer(t, map[string]func(*jsonrpc.Request) (any, *errors.RpcError){
		"tasks/get": func(*jsonrpc.Request) (any, *errors.RpcError) {
			task := a2a.NewTask("task-1", "ctx-1")
			task.Status = a2a.NewTaskStatus(a2a.TaskStateCompleted, nil)
			return task, nil
		},
	})

	c := NewClient(server.URL)

	task, err := c.GetTask(context.Background(), &a2a.TaskQueryParams{
		TaskIDParams: a2a.TaskIDParams{ID: "task-1"},
	})
	require.Nil(t, err)
	assert.Equal(t, "task-1", task.ID)
	assert.Equal(t, a2a.TaskStateCompleted, task.Status.State)
}

func TestAgentCard(t *testing.T) {
	server := fakeServer(t, nil)
	c := NewClient(server.URL)

	card, err := c.AgentCard(context.Background())
	require.Nil(t, err)
	assert.Equal(t, "Fake Agent", card.Name)
}

func TestStreamConsumesEventsUntilClose(t *testing.T) {
	mux := http.NewServeMux()

	mux.HandleFunc("/rpc", func(w http.ResponseWriter, r *http.Request) {
		var req jsonrpc.Request
		require.Nil(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "message/stream", req.Method)

		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)

		events := []a2a.Event{
			a2a.NewTask("task-1", "ctx-1"),
			a2a.NewStatusUpdate("task-1", "ctx-1", a2a.NewTaskStatus(a2a.TaskStateCompleted, nil), true),
		}

		for _, ev := range events {
			data, err := json.Marshal(jsonrpc.NewResponse(req.ID, ev))
			require.Nil(t, err)

			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	c := NewClient(server.URL)

	stream, err := c.SendStreamingMessage(context.Background(), &a2a.MessageSendParams{
		Message: *a2a.NewTextMessage(a2a.RoleUser, "run it"),
	})
	require.Nil(t, err)

	kinds := make([]string, 0, 2)
	for item := range stream {
		require.Nil(t, item.Err)
		kinds = append(kinds, item.Event.EventKind())
	}

	assert.Equal(t, []string{a2a.KindTask, a2a.KindStatusUpdate}, kinds)
}

func TestStreamStopsOnErrorEnvelope(t *testing.T) {
	mux := http.NewServeMux()

	mux.HandleFunc("/rpc", func(w http.ResponseWriter, r *http.Request) {
		var req jsonrpc.Request
		require.Nil(t, json.NewDecoder(r.Body).Decode(&req))

		w.Header().Set("Content-Type", "text/event-stream")

		data, err := json.Marshal(jsonrpc.NewErrorResponse(req.ID, errors.ErrInternal))
		require.Nil(t, err)

		fmt.Fprintf(w, "data: %s\n\n", data)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	c := NewClient(server.URL)

	stream, err := c.Subscribe(context.Background(), &a2a.TaskQueryParams{
		TaskIDParams: a2a.TaskIDParams{ID: "task-1"},
	})
	require.Nil(t, err)

	item, ok := <-stream
	require.True(t, ok)
	require.NotNil(t, item.Err)

	rpcErr, ok := item.Err.(*errors.RpcError)
	require.True(t, ok)
	assert.Equal(t, errors.ErrInternal.Code, rpcErr.Code)

	_, ok = <-stream
	assert.False(t, ok)
}
