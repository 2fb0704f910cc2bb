package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type statusParams struct{}

func (h *handler) statusHandler(ctx context.Context, req *mcp.CallToolRequest, _ statusParams) (*mcp.CallToolResult, any, error) {
	out, err := h.prov.ServerStatus(ctx)
	if err != nil {
		return errorResult(fmt.Sprintf("server status failed: %v", err))
	}
	if out == "" {
		return textResult("(no output)")
	}
	return textResult(out)
}
