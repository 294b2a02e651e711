// Command calculator-sse serves the calculator tools over HTTP: an SSE
// stream at /sse with POSTs to /messages, plus a websocket at /mcp/ws.
package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mcp-calculator-lab/internal/config"
	"github.com/mcp-calculator-lab/internal/joke"
	"github.com/mcp-calculator-lab/internal/logging"
	"github.com/mcp-calculator-lab/internal/mcp"
)

func main() {
	logging.Init()
	defer logging.Sync()

	cfg, err := config.Load()
	if err != nil {
		logging.FatalExitf("failed to load configuration", "err", err)
	}
	name := cfg.Server.Name
	if name == "" {
		name = mcp.DefaultSSEServerName
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := mcp.NewCalculatorServer(mcp.ServerOptions{
		Name:    name,
		Version: cfg.Server.Version,
		Jokes:   joke.NewClient(cfg.Joke.URL, cfg.Joke.Timeout),
	})
	httpServer := mcp.NewHTTPServer(server, mcp.HTTPOptions{Name: name, Version: cfg.Server.Version})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Infow("calculator sse server listening",
			"addr", srv.Addr,
			"sse", "http://localhost:"+cfg.Server.Port+mcp.PathSSE,
			"messages", "http://localhost:"+cfg.Server.Port+mcp.PathMessages,
			"health", "http://localhost:"+cfg.Server.Port+mcp.PathHealth,
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logging.FatalExitf("http server failed", "err", err)
		}
		return
	case <-ctx.Done():
	}

	logging.Infow("shutdown signal received, closing sessions", "sessions", httpServer.Sessions().Len())
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Warnw("http server shutdown", "err", err)
	}
	logging.Infow("calculator sse server stopped")
}
