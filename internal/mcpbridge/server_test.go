package mcpbridge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
)

type call struct {
	method, path, query string
	body                map[string]string
}

func fakeAPI(t *testing.T, calls *[]call) *httptest.Server {
	t.Helper()
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c := call{method: r.Method, path: r.URL.Path, query: r.URL.RawQuery}
		json.NewDecoder(r.Body).Decode(&c.body)
		mu.Lock()
		*calls = append(*calls, c)
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/reminders":
			w.Write([]byte(`{"success":true,"data":[{"id":"github","status":"ok"}]}`))
		case "/api/reminders/nope/touch":
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"success":false,"error":"reminder not found"}`))
		case "/api/reminders/test-notification":
			w.Write([]byte(`{"success":false,"data":{"sent":false,"attempted":0,"failed":0}}`))
		default:
			w.Write([]byte(`{"success":true,"data":{}}`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func callTool(t *testing.T, h func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]any) (string, bool) {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	res, err := h(context.Background(), req)
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if len(res.Content) == 0 {
		t.Fatal("empty result")
	}
	text, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content is %T", res.Content[0])
	}
	return text.Text, res.IsError
}

func TestListReminders(t *testing.T) {
	var calls []call
	s := NewServer(fakeAPI(t, &calls).URL, nil)

	text, isErr := callTool(t, s.handleListReminders, nil)
	if isErr {
		t.Fatalf("unexpected error: %s", text)
	}
	if !strings.Contains(text, `"id": "github"`) {
		t.Errorf("text = %s", text)
	}
}

func TestTouchReminder(t *testing.T) {
	var calls []call
	s := NewServer(fakeAPI(t, &calls).URL, nil)

	if _, isErr := callTool(t, s.handleTouchReminder, map[string]any{"id": "github"}); isErr {
		t.Fatal("touch failed")
	}
	if len(calls) != 1 || calls[0].method != http.MethodPost || calls[0].path != "/api/reminders/github/touch" || calls[0].query != "format=json" {
		t.Errorf("calls = %+v", calls)
	}

	text, isErr := callTool(t, s.handleTouchReminder, map[string]any{"id": "nope"})
	if !isErr || !strings.Contains(text, "reminder not found") {
		t.Errorf("unknown id: %q, %v", text, isErr)
	}

	if _, isErr := callTool(t, s.handleTouchReminder, map[string]any{}); !isErr {
		t.Error("missing id accepted")
	}
}

func TestSendTestNotification(t *testing.T) {
	var calls []call
	s := NewServer(fakeAPI(t, &calls).URL, nil)

	_, isErr := callTool(t, s.handleTestNotification, map[string]any{"priority": "high"})
	if !isErr {
		t.Error("unsent notification reported as success")
	}
	if len(calls) != 1 || calls[0].body["priority"] != "high" {
		t.Errorf("calls = %+v", calls)
	}
}

func TestSpeedtestHistoryLimit(t *testing.T) {
	var calls []call
	s := NewServer(fakeAPI(t, &calls).URL, nil)

	callTool(t, s.handleSpeedtestHistory, map[string]any{"limit": float64(5)})
	callTool(t, s.handleSpeedtestHistory, nil)
	if len(calls) != 2 || calls[0].query != "limit=5" || calls[1].query != "limit=20" {
		t.Errorf("calls = %+v", calls)
	}
}

func TestUnreachableAPI(t *testing.T) {
	s := NewServer("http://127.0.0.1:1", nil)
	text, isErr := callTool(t, s.handleServicesStatus, nil)
	if !isErr || !strings.HasPrefix(text, "Error making request") {
		t.Errorf("got %q, %v", text, isErr)
	}
}

func TestHostMetrics(t *testing.T) {
	var calls []call
	s := NewServer(fakeAPI(t, &calls).URL, nil)

	callTool(t, s.handleHostMetrics, nil)
	callTool(t, s.handleHostMetrics, map[string]any{"period": "7 days"})
	if len(calls) != 2 || calls[0].path != "/api/metrics" || calls[1].path != "/api/metrics/history" || calls[1].query != "period=7+days" {
		t.Errorf("calls = %+v", calls)
	}
}
