package main

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/mcp-calculator-lab/internal/logging"
	"github.com/mcp-calculator-lab/internal/mcp"
	mcpconfig "github.com/mcp-calculator-lab/internal/mcp/config"
)

const defaultServerCommand = "calculator-server"

var errNoServer = errors.New("no mcp server could be connected")

// connectServer returns a connected client for the first usable server:
// manifest entries in name order, then MCP_SERVER_URL, then the
// calculator-server command on PATH.
func connectServer(ctx context.Context, clientName, version string) (*mcp.ClientWrapper, error) {
	manifest, err := mcpconfig.LoadResult()
	if err != nil {
		logging.Warnw("failed to load mcp manifest", "err", err)
	} else if len(manifest.Order) > 0 {
		logging.Infow("loaded mcp configuration", "sources", manifest.Sources, "servers", len(manifest.Order))
		for _, name := range manifest.Order {
			server := manifest.Servers[name]
			if !server.EnabledValue() {
				logging.Debugw("skipping disabled mcp server", "server", name)
				continue
			}
			client := mcp.NewClientWrapper(clientName, version)
			if err := connectManifestServer(ctx, client, name, server); err != nil {
				logging.Warnw("mcp connect failed", "server", name, "transport", server.TransportType(), "err", err)
				_ = client.Close()
				continue
			}
			logging.Infow("connected mcp server", "server", name)
			return client, nil
		}
	}

	if raw := os.Getenv("MCP_SERVER_URL"); raw != "" {
		transport, endpoint, err := remoteTarget(raw)
		if err != nil {
			return nil, err
		}
		client := mcp.NewClientWrapper(clientName, version)
		if err := connectRemote(ctx, client, transport, endpoint); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("connect %s: %w", endpoint, err)
		}
		return client, nil
	}

	command, err := exec.LookPath(defaultServerCommand)
	if err != nil {
		return nil, fmt.Errorf("%w: %s not found on PATH", errNoServer, defaultServerCommand)
	}
	client := mcp.NewClientWrapper(clientName, version)
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.ConnectCommand(connectCtx, defaultServerCommand, command, nil, nil); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("start %s: %w", command, err)
	}
	return client, nil
}

func connectManifestServer(ctx context.Context, client *mcp.ClientWrapper, name string, server mcpconfig.ServerConfig) error {
	switch transport := server.TransportType(); transport {
	case mcpconfig.TransportSSE, mcpconfig.TransportWebSocket:
		if server.Transport.URL == "" {
			return fmt.Errorf("missing %s url", transport)
		}
		return connectRemote(ctx, client, transport, server.Transport.URL)
	case "":
		if server.Command == "" {
			return errors.New("missing transport configuration")
		}
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		return client.ConnectCommand(connectCtx, name, server.Command, server.Args, server.Env)
	default:
		return fmt.Errorf("unsupported transport %q", transport)
	}
}

func connectRemote(ctx context.Context, client *mcp.ClientWrapper, transport, endpoint string) error {
	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if transport == mcpconfig.TransportWebSocket {
		return client.ConnectWebSocket(connectCtx, endpoint)
	}
	return client.ConnectSSE(connectCtx, endpoint)
}

// remoteTarget maps MCP_SERVER_URL onto a transport: ws and wss URLs use the
// websocket endpoint, http and https URLs the SSE stream. A bare host gets
// the default path for its transport.
func remoteTarget(raw string) (transport, endpoint string, err error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", "", fmt.Errorf("invalid MCP_SERVER_URL: %w", err)
	}
	var path string
	switch u.Scheme {
	case "ws", "wss":
		transport, path = mcpconfig.TransportWebSocket, mcp.PathWebSocket
	case "http", "https":
		transport, path = mcpconfig.TransportSSE, mcp.PathSSE
	default:
		return "", "", fmt.Errorf("invalid MCP_SERVER_URL %q: scheme must be http, https, ws or wss", raw)
	}
	if u.Host == "" {
		return "", "", fmt.Errorf("invalid MCP_SERVER_URL %q: missing host", raw)
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = path
	}
	return transport, u.String(), nil
}
