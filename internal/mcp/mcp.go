// Package mcp provides the ovpnbot MCP server, exposing server status and
// client provisioning to local operator tooling.
package mcp

import (
	_ "embed"

	"github.com/deixis/ovpnbot"
	"github.com/deixis/ovpnbot/internal/provision"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

//go:embed instructions.md
var Instructions string

// handler holds shared dependencies for all tool handlers.
type handler struct {
	prov *provision.Provisioner
}

// NewServer creates an MCP server with all ovpnbot tools registered.
func NewServer(prov *provision.Provisioner) *mcp.Server {
	h := &handler{prov: prov}

	s := mcp.NewServer(&mcp.Implementation{Name: "ovpnbot", Version: ovpnbot.Version}, &mcp.ServerOptions{
		Instructions: Instructions,
		Capabilities: &mcp.ServerCapabilities{
			Tools: &mcp.ToolCapabilities{ListChanged: false},
		},
	})

	mcp.AddTool(s, &mcp.Tool{
		Name:        "vpn_server_status",
		Description: "Report OpenVPN server activity: runs the management script's \"server status\" and returns its output verbatim.",
	}, h.statusHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name: "vpn_add_client",
		Description: `Create a new OpenVPN client and return its .ovpn configuration as text.

The configuration file is deleted from the server after it is read, so the returned text is the only copy.
Fails if the name is invalid or the client already exists.`,
	}, h.addClientHandler)

	return s
}

// textResult is a helper to build a text-only tool result.
func textResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}, nil, nil
}

// errorResult is a helper to build an error tool result.
func errorResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}, nil, nil
}
