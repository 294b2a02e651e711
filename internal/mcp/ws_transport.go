package mcp

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/modelcontextprotocol/go-sdk/jsonrpc"
	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// wsTransport implements sdk.Transport for a single websocket.Conn. It is
// used on both ends: the client dials, the HTTP server upgrades.
type wsTransport struct {
	conn      *websocket.Conn
	sessionID string
}

func newWebSocketTransport(conn *websocket.Conn, sessionID string) sdk.Transport {
	return &wsTransport{conn: conn, sessionID: sessionID}
}

func (t *wsTransport) Connect(ctx context.Context) (sdk.Connection, error) {
	return &wsConnection{conn: t.conn, sessionID: t.sessionID}, nil
}

// wsConnection carries one JSON-RPC message per websocket frame.
type wsConnection struct {
	conn      *websocket.Conn
	sessionID string
	writeMu   sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

func (w *wsConnection) Read(ctx context.Context) (jsonrpc.Message, error) {
	if dl, ok := ctx.Deadline(); ok {
		_ = w.conn.SetReadDeadline(dl)
		defer w.conn.SetReadDeadline(time.Time{})
	}
	_, data, err := w.conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	return jsonrpc.DecodeMessage(data)
}

func (w *wsConnection) Write(ctx context.Context, msg jsonrpc.Message) error {
	data, err := jsonrpc.EncodeMessage(msg)
	if err != nil {
		return err
	}
	// gorilla allows one concurrent writer per connection.
	w.writeMu.Lock()
	defer w.writeMu.Unlock()
	if dl, ok := ctx.Deadline(); ok {
		_ = w.conn.SetWriteDeadline(dl)
		defer w.conn.SetWriteDeadline(time.Time{})
	}
	return w.conn.WriteMessage(websocket.BinaryMessage, data)
}

func (w *wsConnection) Close() error {
	w.closeOnce.Do(func() { w.closeErr = w.conn.Close() })
	return w.closeErr
}

func (w *wsConnection) SessionID() string { return w.sessionID }
