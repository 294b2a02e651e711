// Command calculator-server serves the calculator tools over stdin/stdout.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mcp-calculator-lab/internal/config"
	"github.com/mcp-calculator-lab/internal/joke"
	"github.com/mcp-calculator-lab/internal/logging"
	"github.com/mcp-calculator-lab/internal/mcp"
)

func main() {
	// stdout carries the protocol.
	logging.InitTo("stderr")
	defer logging.Sync()

	cfg, err := config.Load()
	if err != nil {
		logging.FatalExitf("failed to load configuration", "err", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := mcp.NewCalculatorServer(mcp.ServerOptions{
		Name:    cfg.Server.Name,
		Version: cfg.Server.Version,
		Jokes:   joke.NewClient(cfg.Joke.URL, cfg.Joke.Timeout),
	})

	logging.Infow("calculator server running on stdio", logging.ServerFields(cfg.Server.Name, "stdio")...)
	if err := server.Run(ctx, &sdk.StdioTransport{}); err != nil && ctx.Err() == nil {
		logging.FatalExitf("calculator server stopped", "err", err)
	}
	logging.Infow("calculator server stopped")
}
