package mcp

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/jsonrpc"
	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mcp-calculator-lab/internal/logging"
)

// maxLoggedFrame bounds how much of a rejected stdout line is logged.
const maxLoggedFrame = 256

// commandTransport speaks newline-delimited JSON-RPC over the pipes of a
// spawned server process.
type commandTransport struct {
	conn *commandConnection
}

func newCommandTransport(serverName string, r io.ReadCloser, w io.WriteCloser) *commandTransport {
	return &commandTransport{conn: newCommandConnection(serverName, r, w)}
}

func (t *commandTransport) Connect(context.Context) (sdk.Connection, error) {
	return t.conn, nil
}

// commandConnection reads one message per stdout line. Blank lines and
// lines that are not JSON-RPC (a banner, stray prints) are logged with the
// server name and skipped; only a read failure ends the connection.
type commandConnection struct {
	serverName string
	reader     io.ReadCloser
	writer     io.WriteCloser
	incoming   chan readResult
	done       chan struct{}
	writeMu    sync.Mutex
	closeOnce  sync.Once
	closeErr   error

	mu      sync.Mutex
	dropped int
}

type readResult struct {
	msg jsonrpc.Message
	err error
}

func newCommandConnection(serverName string, r io.ReadCloser, w io.WriteCloser) *commandConnection {
	c := &commandConnection{
		serverName: serverName,
		reader:     r,
		writer:     w,
		incoming:   make(chan readResult, 1),
		done:       make(chan struct{}),
	}
	go c.readLoop()
	return c
}

func (c *commandConnection) readLoop() {
	defer close(c.incoming)
	br := bufio.NewReader(c.reader)
	for {
		line, err := br.ReadBytes('\n')
		if frame := bytes.TrimSpace(line); len(frame) > 0 {
			msg, decErr := jsonrpc.DecodeMessage(frame)
			if decErr != nil {
				c.drop(frame, decErr)
			} else if !c.deliver(readResult{msg: msg}) {
				return
			}
		}
		if err != nil {
			c.deliver(readResult{err: err})
			return
		}
	}
}

// deliver hands res to Read, or reports false once the connection is closed.
func (c *commandConnection) deliver(res readResult) bool {
	select {
	case c.incoming <- res:
		return true
	case <-c.done:
		return false
	}
}

func (c *commandConnection) drop(frame []byte, err error) {
	c.mu.Lock()
	c.dropped++
	c.mu.Unlock()
	if len(frame) > maxLoggedFrame {
		frame = frame[:maxLoggedFrame]
	}
	logging.Warnw("dropping non-protocol line from mcp server", "server", c.serverName, "line", string(frame), "err", err)
}

// Dropped reports how many stdout lines were skipped as non-protocol output.
func (c *commandConnection) Dropped() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropped
}

func (c *commandConnection) Read(ctx context.Context) (jsonrpc.Message, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res, ok := <-c.incoming:
		if !ok {
			return nil, io.EOF
		}
		if res.err != nil {
			return nil, res.err
		}
		return res.msg, nil
	}
}

func (c *commandConnection) Write(ctx context.Context, msg jsonrpc.Message) error {
	data, err := jsonrpc.EncodeMessage(msg)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_, err = c.writer.Write(data)
	return err
}

func (c *commandConnection) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		c.closeErr = errors.Join(c.reader.Close(), c.writer.Close())
	})
	return c.closeErr
}

func (c *commandConnection) SessionID() string { return "" }
