package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
)

// toolReply builds a JSON-RPC reply whose tool result carries text content.
func toolReply(id int64, text string) string {
	result := map[string]any{
		"content": []map[string]any{{"type": "text", "text": text}},
	}
	reply := map[string]any{"jsonrpc": "2.0", "id": id, "result": result}
	encoded, err := json.Marshal(reply)
	if err != nil {
		panic(err)
	}
	return string(encoded)
}

func TestDispatchSendsToolCallEnvelope(t *testing.T) {
	t.Parallel()

	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &captured); err != nil {
			t.Errorf("request body is not JSON: %v", err)
		}
		if accept := r.Header.Get("Accept"); !strings.Contains(accept, "text/event-stream") {
			t.Errorf("accept = %q, want event-stream offered", accept)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, toolReply(1, `{"ok":true}`))
	}))
	defer server.Close()

	client, err := NewClient(ClientConfig{Endpoint: server.URL})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	if _, err := client.Dispatch(context.Background(), Command{
		Tool:      "execute_sql",
		Arguments: map[string]any{"query": "select 1"},
	}); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}

	if captured["jsonrpc"] != "2.0" {
		t.Fatalf("jsonrpc = %v, want 2.0", captured["jsonrpc"])
	}
	if captured["method"] != "tools/call" {
		t.Fatalf("method = %v, want tools/call", captured["method"])
	}
	params, _ := captured["params"].(map[string]any)
	if params["name"] != "execute_sql" {
		t.Fatalf("params.name = %v, want execute_sql", params["name"])
	}
}

func TestDispatchRecoversPlainJSONResult(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, toolReply(1, `[{"slug":"harbors"},{"slug":"tides"}]`))
	}))
	defer server.Close()

	client, err := NewClient(ClientConfig{Endpoint: server.URL})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	value, err := client.Dispatch(context.Background(), Command{Tool: "execute_sql"})
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	rows, ok := value.([]any)
	if !ok {
		t.Fatalf("Dispatch() = %T, want slice", value)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
}

func TestDispatchEventStreamDoubleEncodedDelimited(t *testing.T) {
	t.Parallel()

	inner := `{"slug":"harbors","tags":["sea","night"]}`
	escaped := strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(inner)
	wrapped := "<untrusted-data-77ab>" + escaped + "</untrusted-data-77ab>"

	replyFrame := toolReply(1, wrapped)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprintf(w, "event: message\ndata: {\"jsonrpc\":\"2.0\",\"id\":0,\"result\":null}\n\n")
		fmt.Fprintf(w, "event: message\ndata: %s\n\n", replyFrame)
	}))
	defer server.Close()

	client, err := NewClient(ClientConfig{Endpoint: server.URL})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	value, err := client.Dispatch(context.Background(), Command{Tool: "execute_sql"})
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}

	want := map[string]any{"slug": "harbors", "tags": []any{"sea", "night"}}
	if !reflect.DeepEqual(value, want) {
		t.Fatalf("Dispatch() = %v, want %v", value, want)
	}
}

func TestDispatchProtocolError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"jsonrpc":"2.0","id":1,"error":{"code":-32000,"message":"query rejected"}}`)
	}))
	defer server.Close()

	client, err := NewClient(ClientConfig{Endpoint: server.URL})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	_, err = client.Dispatch(context.Background(), Command{Tool: "execute_sql"})
	if err == nil || !strings.Contains(err.Error(), "query rejected") {
		t.Fatalf("Dispatch() error = %v, want gateway error with message", err)
	}
}

func TestDispatchNonJSONPayloadIsNotAnError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, toolReply(1, "no rows matched the query"))
	}))
	defer server.Close()

	client, err := NewClient(ClientConfig{Endpoint: server.URL})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	value, err := client.Dispatch(context.Background(), Command{Tool: "execute_sql"})
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if value != "no rows matched the query" {
		t.Fatalf("Dispatch() = %v, want raw text", value)
	}
}

func TestDispatchTransportStatusError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "throttled", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client, err := NewClient(ClientConfig{Endpoint: server.URL})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	if _, err := client.Dispatch(context.Background(), Command{Tool: "execute_sql"}); err == nil {
		t.Fatal("Dispatch() error = nil, want status error")
	}
}
