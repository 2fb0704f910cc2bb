package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type addClientParams struct {
	Name string `json:"name" jsonschema:"client name: ASCII letters, digits, '_', '-' and '.', at most 64 bytes, not starting with '.' or '-'"`
}

func (h *handler) addClientHandler(ctx context.Context, req *mcp.CallToolRequest, params addClientParams) (*mcp.CallToolResult, any, error) {
	name := strings.TrimSpace(params.Name)

	art, err := h.prov.ProvisionClient(ctx, name)
	if err != nil {
		h.prov.Discard(name)
		return errorResult(fmt.Sprintf("client add failed: %v", err))
	}
	defer func() { _ = art.Remove() }()

	data, err := art.Read()
	if err != nil {
		return errorResult(err.Error())
	}
	return textResult(string(data))
}
