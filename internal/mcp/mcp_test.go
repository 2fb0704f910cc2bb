package mcp

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/deixis/ovpnbot/internal/provision"
	"github.com/deixis/ovpnbot/internal/runner"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// writeScript writes a fake management script into dir.
func writeScript(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "openvpn-install.sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

// setup creates an ovpnbot MCP server + client over in-memory transports,
// backed by a real runner executing the given script body.
func setup(t *testing.T, script string) (*mcp.ClientSession, string) {
	t.Helper()
	ctx := context.Background()

	workDir := t.TempDir()
	prov := &provision.Provisioner{
		Runner: &runner.Runner{
			Program:   writeScript(t, t.TempDir(), script),
			WorkDir:   workDir,
			Timeout:   30 * time.Second,
			MaxOutput: 1 << 20,
		},
		WorkDir:   workDir,
		Extension: "ovpn",
	}

	server := NewServer(prov)

	ct, st := mcp.NewInMemoryTransports()
	ss, err := server.Connect(ctx, st, nil)
	if err != nil {
		t.Fatalf("server.Connect: %v", err)
	}

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	cs, err := client.Connect(ctx, ct, nil)
	if err != nil {
		t.Fatalf("client.Connect: %v", err)
	}

	t.Cleanup(func() {
		_ = cs.Close()
		_ = ss.Wait()
	})

	return cs, workDir
}

func callTool(t *testing.T, cs *mcp.ClientSession, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		t.Fatalf("CallTool(%s): %v", name, err)
	}
	return res
}

func resultText(r *mcp.CallToolResult) string {
	var parts []string
	for _, c := range r.Content {
		if tc, ok := c.(*mcp.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// --- vpn_server_status ---

func TestServerStatus(t *testing.T) {
	cs, _ := setup(t, `[ "$1 $2" = "server status" ] && echo "OpenVPN: active (2 clients)"`)
	res := callTool(t, cs, "vpn_server_status", nil)
	text := resultText(res)
	if res.IsError {
		t.Fatalf("unexpected error: %s", text)
	}
	if text != "OpenVPN: active (2 clients)\n" {
		t.Errorf("text = %q, want script output verbatim", text)
	}
}

func TestServerStatus_Failure(t *testing.T) {
	cs, _ := setup(t, `echo "openvpn@server is inactive" >&2; exit 3`)
	res := callTool(t, cs, "vpn_server_status", nil)
	if !res.IsError {
		t.Fatal("expected IsError for failing script")
	}
	if text := resultText(res); !strings.Contains(text, "inactive") {
		t.Errorf("expected diagnostic in error, got:\n%s", text)
	}
}

// --- vpn_add_client ---

func TestAddClient(t *testing.T) {
	cs, workDir := setup(t, `printf 'client\nremote vpn.example.com 1194\n' > "$3.ovpn"`)
	res := callTool(t, cs, "vpn_add_client", map[string]any{"name": "alice_1000"})
	text := resultText(res)
	if res.IsError {
		t.Fatalf("unexpected error: %s", text)
	}
	if !strings.Contains(text, "remote vpn.example.com 1194") {
		t.Errorf("expected configuration text, got:\n%s", text)
	}
	if _, err := os.Stat(filepath.Join(workDir, "alice_1000.ovpn")); !os.IsNotExist(err) {
		t.Errorf("configuration file still on disk (err=%v)", err)
	}
}

func TestAddClient_ScriptFails(t *testing.T) {
	cs, workDir := setup(t, `touch "$3.ovpn"; echo "quota exceeded" >&2; exit 1`)
	res := callTool(t, cs, "vpn_add_client", map[string]any{"name": "carol_3000"})
	if !res.IsError {
		t.Fatal("expected IsError for failing script")
	}
	if text := resultText(res); !strings.Contains(text, "quota exceeded") {
		t.Errorf("expected diagnostic in error, got:\n%s", text)
	}
	if _, err := os.Stat(filepath.Join(workDir, "carol_3000.ovpn")); !os.IsNotExist(err) {
		t.Errorf("partial file left on disk (err=%v)", err)
	}
}

func TestAddClient_InvalidName(t *testing.T) {
	cs, _ := setup(t, `echo "must not run" >&2; exit 1`)
	res := callTool(t, cs, "vpn_add_client", map[string]any{"name": "../../etc/passwd"})
	if !res.IsError {
		t.Fatal("expected IsError for invalid name")
	}
	if text := resultText(res); !strings.Contains(text, "invalid client name") {
		t.Errorf("expected invalid name error, got:\n%s", text)
	}
}

func TestAddClient_MissingName(t *testing.T) {
	cs, _ := setup(t, `exit 0`)
	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "vpn_add_client",
		Arguments: map[string]any{},
	})
	if err == nil && !res.IsError {
		t.Errorf("expected error for missing name, got:\n%s", resultText(res))
	}
}
