package mcp

import (
	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mcp-calculator-lab/internal/joke"
)

const (
	DefaultServerName    = "Calculator MCP Server"
	DefaultSSEServerName = "Calculator SSE MCP Server"
	DefaultServerVersion = "1.0.0"
)

// ServerOptions configures NewCalculatorServer.
type ServerOptions struct {
	Name    string
	Version string
	// Jokes backs the random-joke tool. Nil selects the public API.
	Jokes joke.Fetcher
}

// NewCalculatorServer returns an MCP server with every calculator tool and
// resource registered. The same server may be connected to many sessions.
func NewCalculatorServer(opts ServerOptions) *sdk.Server {
	if opts.Name == "" {
		opts.Name = DefaultServerName
	}
	if opts.Version == "" {
		opts.Version = DefaultServerVersion
	}
	if opts.Jokes == nil {
		opts.Jokes = joke.NewClient("", 0)
	}

	server := sdk.NewServer(&sdk.Implementation{Name: opts.Name, Version: opts.Version}, nil)
	registerTools(server, opts.Jokes)
	registerResources(server)
	return server
}
