// Package mcpbridge exposes the dashboard HTTP API as MCP tools.
package mcpbridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	serverName    = "monitorat"
	serverVersion = "1.0.0"

	DefaultAPIURL = "http://127.0.0.1:6161"
)

// Server forwards tool calls to a running dashboard.
type Server struct {
	mcpServer *server.MCPServer
	apiURL    string
	client    *http.Client
}

func NewServer(apiURL string, client *http.Client) *Server {
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	if client == nil {
		client = &http.Client{Timeout: 2 * time.Minute}
	}
	s := &Server{apiURL: apiURL, client: client}

	s.mcpServer = server.NewMCPServer(
		serverName,
		serverVersion,
		server.WithToolCapabilities(false),
	)
	s.registerTools()
	return s
}

// MCPServer returns the underlying MCP server for serving.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcp.NewTool("list_reminders",
			mcp.WithDescription("List every reminder with its status (never, ok, warning, expired), days since the last touch and days remaining"),
		),
		s.handleListReminders,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("touch_reminder",
			mcp.WithDescription("Mark a reminder as done now, resetting its expiry countdown"),
			mcp.WithString("id", mcp.Required(), mcp.Description("Reminder id as configured under reminders")),
		),
		s.handleTouchReminder,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("send_test_notification",
			mcp.WithDescription("Send a test message to every configured notification target"),
			mcp.WithString("priority", mcp.Description("low, normal or high (default: normal)")),
		),
		s.handleTestNotification,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("services_status",
			mcp.WithDescription("Get the state (ok, down, unknown) of monitored containers, services and timers"),
		),
		s.handleServicesStatus,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("speedtest_history",
			mcp.WithDescription("Get recent internet speed test results, newest first"),
			mcp.WithNumber("limit", mcp.Description("Number of results (default: 20)")),
		),
		s.handleSpeedtestHistory,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("host_metrics",
			mcp.WithDescription("Get current host metrics (uptime, load, memory, temperature, disk) with ok/caution/critical levels, or the recorded history for a period"),
			mcp.WithString("period", mcp.Description("History window such as \"1 hour\" or \"7 days\"; omit for the current reading")),
		),
		s.handleHostMetrics,
	)
}

func (s *Server) handleListReminders(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.apiRequest(ctx, http.MethodGet, "/api/reminders", nil), nil
}

func (s *Server) handleTouchReminder(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	if id == "" {
		return mcp.NewToolResultError("id is required"), nil
	}
	return s.apiRequest(ctx, http.MethodPost, "/api/reminders/"+url.PathEscape(id)+"/touch?format=json", nil), nil
}

func (s *Server) handleTestNotification(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	body := map[string]string{"priority": req.GetString("priority", "normal")}
	return s.apiRequest(ctx, http.MethodPost, "/api/reminders/test-notification", body), nil
}

func (s *Server) handleServicesStatus(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.apiRequest(ctx, http.MethodGet, "/api/services/status", nil), nil
}

func (s *Server) handleSpeedtestHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := int(req.GetFloat("limit", 20))
	return s.apiRequest(ctx, http.MethodGet, "/api/speedtest/history?limit="+strconv.Itoa(limit), nil), nil
}

func (s *Server) handleHostMetrics(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	period := req.GetString("period", "")
	if period == "" {
		return s.apiRequest(ctx, http.MethodGet, "/api/metrics", nil), nil
	}
	return s.apiRequest(ctx, http.MethodGet, "/api/metrics/history?period="+url.QueryEscape(period), nil), nil
}

// apiRequest calls the dashboard and unwraps its response envelope into a
// tool result.
func (s *Server) apiRequest(ctx context.Context, method, path string, body interface{}) *mcp.CallToolResult {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Error encoding request: %v", err))
		}
		reqBody = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.apiURL+path, reqBody)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Error creating request: %v", err))
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Error making request: %v", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Error reading response: %v", err))
	}

	var apiResp struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   string          `json:"error"`
	}
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		if resp.StatusCode >= 400 {
			return mcp.NewToolResultError(string(respBody))
		}
		return mcp.NewToolResultText(string(respBody))
	}

	if !apiResp.Success {
		if apiResp.Error == "" {
			return mcp.NewToolResultError(fmt.Sprintf("API Error: %s", apiResp.Data))
		}
		return mcp.NewToolResultError(fmt.Sprintf("API Error: %s", apiResp.Error))
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, apiResp.Data, "", "  "); err != nil {
		return mcp.NewToolResultText(string(apiResp.Data))
	}
	return mcp.NewToolResultText(pretty.String())
}
