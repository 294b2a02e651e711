package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadResultOverrideJSON(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	path := writeFile(t, t.TempDir(), "mcp.json", `{
		"mcpServers": {
			"local": {"command": "~/bin/calculator-server", "args": ["-v"], "env": {"DATA": "~/data"}},
			"remote": {"transport": {"type": "SSE", "url": "http://localhost:3001/sse"}, "enabled": false}
		}
	}`)
	t.Setenv("MCP_CONFIG_PATH", path)

	res, err := LoadResult()
	require.NoError(t, err)
	assert.Equal(t, []string{"local", "remote"}, res.Order)
	assert.Equal(t, []string{path}, res.Sources)

	local := res.Servers["local"]
	assert.Equal(t, filepath.Join(home, "bin", "calculator-server"), local.Command)
	assert.Equal(t, filepath.Join(home, "data"), local.Env["DATA"])
	assert.True(t, local.EnabledValue())
	assert.Equal(t, "", local.TransportType())

	remote := res.Servers["remote"]
	assert.False(t, remote.EnabledValue())
	assert.Equal(t, TransportSSE, remote.TransportType())
	assert.Equal(t, "http://localhost:3001/sse", remote.Transport.URL)
}

func TestLoadResultOverrideYAML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "mcp.yaml", `
mcpServers:
  ws:
    transport:
      type: websocket
      url: ws://localhost:3001/mcp/ws
`)
	t.Setenv("MCP_CONFIG_PATH", path)

	res, err := LoadResult()
	require.NoError(t, err)
	require.Contains(t, res.Servers, "ws")
	assert.Equal(t, TransportWebSocket, res.Servers["ws"].TransportType())
}

func TestLoadResultOverrideErrors(t *testing.T) {
	t.Setenv("MCP_CONFIG_PATH", filepath.Join(t.TempDir(), "missing.json"))
	_, err := LoadResult()
	assert.ErrorIs(t, err, os.ErrNotExist)

	bad := writeFile(t, t.TempDir(), "mcp.json", `{not json`)
	t.Setenv("MCP_CONFIG_PATH", bad)
	_, err = LoadResult()
	assert.ErrorContains(t, err, "parse")
}

func TestLoadResultMergesWorkspaceAndUser(t *testing.T) {
	workspace := t.TempDir()
	xdg := t.TempDir()
	writeFile(t, workspace, ".mcp-calculator/mcp.json", `{"mcpServers": {"a": {"command": "ws-a"}, "b": {"command": "ws-b"}}}`)
	writeFile(t, xdg, "mcp-calculator/mcp.json", `{"mcpServers": {"b": {"command": "user-b"}}}`)

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(workspace))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("MCP_CONFIG_PATH", "")
	t.Setenv("XDG_CONFIG_HOME", xdg)

	res, err := LoadResult()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, res.Order)
	assert.Len(t, res.Sources, 2)
	assert.Equal(t, "ws-a", res.Servers["a"].Command)
	assert.Equal(t, "user-b", res.Servers["b"].Command)
}

func TestLoadResultNoManifests(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("MCP_CONFIG_PATH", "")
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	res, err := LoadResult()
	require.NoError(t, err)
	assert.Empty(t, res.Order)
	assert.Empty(t, res.Sources)
}
