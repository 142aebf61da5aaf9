package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/openagentic/a2a-core/pkg/a2a"
	"github.com/openagentic/a2a-core/pkg/errors"
)

// StreamEvent is one element of a consumed SSE stream. Exactly one of
// Event and Err is set; an Err item is always the last one.
type StreamEvent struct {
	Event a2a.Event
	Err   error
}

// SendStreamingMessage runs message/stream and yields the event stream.
func (c *Client) SendStreamingMessage(ctx context.Context, params *a2a.MessageSendParams) (<-chan StreamEvent, error) {
	return c.stream(ctx, "message/stream", params)
}

// Subscribe attaches to a running task via tasks/resubscribe.
func (c *Client) Subscribe(ctx context.Context, params *a2a.TaskQueryParams) (<-chan StreamEvent, error) {
	return c.stream(ctx, "tasks/resubscribe", params)
}

/*
stream posts a JSON-RPC request and consumes the SSE response.  Each
`data:` record is a JSON-RPC envelope whose result is one event; an error
envelope ends the stream.
*/
func (c *Client) stream(ctx context.Context, method string, params any) (<-chan StreamEvent, error) {
	rpcReq, err := c.newRequest(method, params)

	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(rpcReq)

	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(
		ctx, http.MethodPost, c.baseURL+"/rpc", bytes.NewReader(body),
	)

	if err != nil {
		return nil, err
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := http.DefaultClient.Do(httpReq)

	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, method)
	}

	out := make(chan StreamEvent)

	go func() {
		defer close(out)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

		for scanner.Scan() {
			data, ok := bytes.CutPrefix(scanner.Bytes(), []byte("data: "))

			if !ok {
				continue
			}

			item, done := decodeStreamRecord(data)

			select {
			case out <- item:
			case <-ctx.Done():
				return
			}

			if done {
				return
			}
		}

		if err := scanner.Err(); err != nil && ctx.Err() == nil {
			log.Error("stream read failed", "method", method, "error", err)

			select {
			case out <- StreamEvent{Err: err}:
			case <-ctx.Done():
			}
		}
	}()

	return out, nil
}

func decodeStreamRecord(data []byte) (StreamEvent, bool) {
	var envelope struct {
		Result json.RawMessage  `json:"result"`
		Error  *errors.RpcError `json:"error"`
	}

	if err := json.Unmarshal(data, &envelope); err != nil {
		return StreamEvent{Err: err}, true
	}

	if envelope.Error != nil {
		return StreamEvent{Err: envelope.Error}, true
	}

	ev, rpcErr := a2a.UnmarshalEvent(envelope.Result)

	if rpcErr != nil {
		return StreamEvent{Err: rpcErr}, true
	}

	return StreamEvent{Event: ev}, false
}
