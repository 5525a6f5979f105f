package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/louisbranch/pressroom/internal/platform/timeouts"
)

// maxResponseBytes caps how much of a gateway response is read.
const maxResponseBytes = 8 << 20

// ClientConfig defines the inputs for a gateway client.
type ClientConfig struct {
	// Endpoint is the gateway HTTP URL.
	Endpoint string
	// CallTimeout bounds a single call; timeouts.GatewayCall when zero.
	CallTimeout time.Duration
	// HTTPClient overrides the transport; http.DefaultClient when nil.
	HTTPClient *http.Client
}

// Client issues tool calls against the command gateway over HTTP.
//
// The gateway speaks a JSON-RPC envelope and may answer either with a plain
// JSON document or a streamed event sequence; both are decoded here before
// payload recovery.
type Client struct {
	endpoint   string
	timeout    time.Duration
	httpClient *http.Client
	nextID     atomic.Int64
}

// rpcRequest is the JSON-RPC call envelope the gateway accepts.
type rpcRequest struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      int64     `json:"id"`
	Method  string    `json:"method"`
	Params  rpcParams `json:"params"`
}

// rpcParams carries the tool call payload.
type rpcParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// rpcResponse is the JSON-RPC reply envelope.
type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
}

// rpcError is the protocol-level error field.
type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// rpcResult is the tool result body; text payloads carry the actual data.
type rpcResult struct {
	Content []rpcContent `json:"content"`
	IsError bool         `json:"isError"`
}

// rpcContent is one tagged content block inside a tool result.
type rpcContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// NewClient creates a gateway client.
func NewClient(config ClientConfig) (*Client, error) {
	endpoint := strings.TrimSpace(config.Endpoint)
	if endpoint == "" {
		return nil, errors.New("gateway endpoint is required")
	}
	timeout := config.CallTimeout
	if timeout <= 0 {
		timeout = timeouts.GatewayCall
	}
	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{endpoint: endpoint, timeout: timeout, httpClient: httpClient}, nil
}

// Dispatch sends one command to the gateway and returns the recovered
// payload value. It fails for transport problems and for protocol-level
// gateway errors; a non-JSON payload is returned as raw text, not an error.
func (c *Client) Dispatch(ctx context.Context, cmd Command) (any, error) {
	if c == nil {
		return nil, errors.New("gateway client is not configured")
	}
	if strings.TrimSpace(cmd.Tool) == "" {
		return nil, errors.New("command tool is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	envelope := rpcRequest{
		JSONRPC: "2.0",
		ID:      c.nextID.Add(1),
		Method:  "tools/call",
		Params:  rpcParams{Name: cmd.Tool, Arguments: cmd.Arguments},
	}
	body, err := json.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("encode gateway request: %w", err)
	}

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build gateway request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call gateway: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read gateway response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}

	payload := raw
	if IsEventStream(resp.Header.Get("Content-Type")) {
		payload = LastEventData(raw)
		if len(payload) == 0 {
			return nil, errors.New("gateway event stream carried no data frames")
		}
	}

	var reply rpcResponse
	if err := json.Unmarshal(payload, &reply); err != nil {
		// Not an envelope at all; recover whatever the body holds.
		return RecoverValue(string(payload)), nil
	}
	if reply.Error != nil {
		return nil, fmt.Errorf("gateway error: %s", reply.Error.Message)
	}

	return recoverResult(reply.Result), nil
}

// recoverResult unwraps the tool result content blocks and recovers the
// payload value from their text.
func recoverResult(result json.RawMessage) any {
	if len(result) == 0 {
		return nil
	}

	var toolResult rpcResult
	if err := json.Unmarshal(result, &toolResult); err == nil && len(toolResult.Content) > 0 {
		var texts []string
		for _, block := range toolResult.Content {
			if block.Type == "" || block.Type == "text" {
				texts = append(texts, block.Text)
			}
		}
		if len(texts) > 0 {
			return RecoverValue(strings.Join(texts, "\n"))
		}
	}

	return RecoverValue(string(result))
}
