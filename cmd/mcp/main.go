// Command mcp serves the monitorat HTTP API as MCP tools over stdio.
//
// Environment:
//
//	MONITORAT_API_URL  Dashboard base URL (default: http://127.0.0.1:6161)
package main

import (
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"github.com/tazhate/monitorat/internal/mcpbridge"
)

func main() {
	s := mcpbridge.NewServer(os.Getenv("MONITORAT_API_URL"), nil)

	if err := server.ServeStdio(s.MCPServer()); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}
