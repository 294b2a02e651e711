package mcp

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mcp-calculator-lab/internal/logging"
)

// KeepaliveInterval is how often a connected session is pinged.
var KeepaliveInterval = 30 * time.Second

// ClientWrapper connects to an MCP server over a command (stdio), SSE or
// websocket transport and manages the client session lifecycle.
type ClientWrapper struct {
	client          *sdk.Client
	session         *sdk.ClientSession
	keepaliveCancel context.CancelFunc
	closers         []func() error
	mu              sync.Mutex
}

// NewClientWrapper creates a new wrapper with the given name/version.
func NewClientWrapper(name, version string) *ClientWrapper {
	impl := &sdk.Implementation{Name: name, Version: version}
	c := sdk.NewClient(impl, nil)
	return &ClientWrapper{client: c}
}

// Session returns the active session, or nil before a successful connect.
func (w *ClientWrapper) Session() *sdk.ClientSession {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.session
}

// ConnectWebSocket dials the server websocket endpoint and creates a session.
// http and https URLs are rewritten to ws and wss.
func (w *ClientWrapper) ConnectWebSocket(ctx context.Context, rawurl string) error {
	u, err := url.Parse(rawurl)
	if err != nil {
		return err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return err
	}
	if err := w.connect(ctx, newWebSocketTransport(conn, "")); err != nil {
		_ = conn.Close()
		return err
	}
	logging.Infow("mcp client connected", "url", u.String(), "transport", "websocket")
	return nil
}

// ConnectSSE opens the server's event stream at endpoint (e.g.
// http://localhost:3001/sse) and creates a session.
func (w *ClientWrapper) ConnectSSE(ctx context.Context, endpoint string) error {
	if endpoint == "" {
		return errors.New("sse endpoint is required")
	}
	t := &detachedTransport{Transport: &sdk.SSEClientTransport{Endpoint: endpoint}}
	if err := w.connect(ctx, t); err != nil {
		return err
	}
	logging.Infow("mcp client connected", "url", endpoint, "transport", "sse")
	return nil
}

// detachedTransport keeps a long-lived stream alive after the dial context
// is cancelled. The stream is torn down by closing the session.
type detachedTransport struct {
	sdk.Transport
}

func (d *detachedTransport) Connect(ctx context.Context) (sdk.Connection, error) {
	return d.Transport.Connect(context.WithoutCancel(ctx))
}

// ConnectCommand spawns a local MCP server process and connects via stdio.
func (w *ClientWrapper) ConnectCommand(ctx context.Context, serverName, command string, args []string, env map[string]string) error {
	if command == "" {
		return errors.New("command is required")
	}
	cmd := exec.Command(command, args...)
	if len(env) > 0 {
		merged := os.Environ()
		for k, v := range env {
			merged = append(merged, k+"="+v)
		}
		cmd.Env = merged
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	stdin, err := cmd.StdinPipe()
	if err != nil {
		_ = stdout.Close()
		return err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		_ = stdout.Close()
		_ = stdin.Close()
		return err
	}

	if err := cmd.Start(); err != nil {
		_ = stdout.Close()
		_ = stdin.Close()
		_ = stderr.Close()
		return err
	}

	go func() {
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			logging.Debugw("mcp server stderr", "server", serverName, "line", scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			logging.Debugw("mcp server stderr read error", "server", serverName, "err", err)
		}
	}()

	waitCh := make(chan error, 1)
	go func() {
		waitCh <- cmd.Wait()
	}()

	transport := newCommandTransport(serverName, stdout, stdin)
	if err := w.connect(ctx, transport); err != nil {
		_ = stdout.Close()
		_ = stdin.Close()
		_ = stderr.Close()
		_ = cmd.Process.Kill()
		<-waitCh
		return err
	}

	logging.Infow("mcp command server started", "server", serverName, "command", command, "args", strings.Join(args, " "))

	w.appendCloser(func() error {
		// The session has usually closed stdin already. stderr stays open
		// until the process exits so its last log lines cannot hit a closed
		// pipe.
		var errs []error
		if err := stdin.Close(); err != nil && !isClosedErr(err) {
			errs = append(errs, err)
		}
		var err error
		killed := false
		select {
		case err = <-waitCh:
		case <-time.After(2 * time.Second):
			if cmd.Process != nil {
				_ = cmd.Process.Kill()
				killed = true
			}
			err = <-waitCh
		}
		for _, c := range []io.Closer{stdout, stderr} {
			if cerr := c.Close(); cerr != nil && !isClosedErr(cerr) {
				errs = append(errs, cerr)
			}
		}
		switch {
		case killed:
			logging.Debugw("mcp command server killed after close timeout", "server", serverName)
		case err != nil:
			errs = append(errs, fmt.Errorf("mcp server %s exited: %w", serverName, err))
		default:
			logging.Debugw("mcp command server exited", "server", serverName)
		}
		return errors.Join(errs...)
	})

	return nil
}

func (w *ClientWrapper) appendCloser(fn func() error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closers = append(w.closers, fn)
}

func (w *ClientWrapper) connect(ctx context.Context, transport sdk.Transport) error {
	sess, err := w.client.Connect(ctx, transport, nil)
	if err != nil {
		return err
	}
	kaCtx, cancel := context.WithCancel(context.Background())

	w.mu.Lock()
	w.session = sess
	if prev := w.keepaliveCancel; prev != nil {
		prev()
	}
	w.keepaliveCancel = cancel
	w.mu.Unlock()

	go func() {
		ticker := time.NewTicker(KeepaliveInterval)
		defer ticker.Stop()
		for {
			select {
			case <-kaCtx.Done():
				return
			case <-ticker.C:
				if err := sess.Ping(kaCtx, nil); err != nil && kaCtx.Err() == nil {
					logging.Warnw("mcp keepalive ping failed", "err", err)
				}
			}
		}
	}()
	return nil
}

// Close ends the session and releases transport resources in reverse order.
func (w *ClientWrapper) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	var errs []error
	if w.keepaliveCancel != nil {
		w.keepaliveCancel()
		w.keepaliveCancel = nil
	}
	if w.session != nil {
		if err := w.session.Close(); err != nil && !isClosedErr(err) {
			errs = append(errs, err)
		}
		w.session = nil
	}
	for i := len(w.closers) - 1; i >= 0; i-- {
		if err := w.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	w.closers = nil
	return errors.Join(errs...)
}

// isClosedErr reports errors from closing an already closed pipe, file or
// socket.
func isClosedErr(err error) bool {
	return errors.Is(err, os.ErrClosed) || errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed)
}
