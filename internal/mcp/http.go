package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/cors"

	"github.com/mcp-calculator-lab/internal/logging"
)

// HTTP endpoint paths.
const (
	PathSSE       = "/sse"
	PathMessages  = "/messages"
	PathWebSocket = "/mcp/ws"
	PathHealth    = "/health"
	PathInfo      = "/"
)

// HTTPOptions configures NewHTTPServer.
type HTTPOptions struct {
	Name    string
	Version string
}

// HTTPServer serves one MCP server to many clients over SSE and websocket
// and tracks the live sessions.
type HTTPServer struct {
	server   *sdk.Server
	sessions *SessionRegistry
	router   *mux.Router
	handler  http.Handler
	upgrader websocket.Upgrader
	opts     HTTPOptions
	now      func() time.Time
}

// NewHTTPServer wires routes and CORS around server.
func NewHTTPServer(server *sdk.Server, opts HTTPOptions) *HTTPServer {
	if opts.Name == "" {
		opts.Name = DefaultSSEServerName
	}
	if opts.Version == "" {
		opts.Version = DefaultServerVersion
	}
	h := &HTTPServer{
		server:   server,
		sessions: NewSessionRegistry(),
		router:   mux.NewRouter(),
		upgrader: websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		opts:     opts,
		now:      time.Now,
	}
	h.registerRoutes()

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{"Content-Type"},
	})
	h.handler = c.Handler(h.router)
	return h
}

// Handler returns the http.Handler for the server.
func (h *HTTPServer) Handler() http.Handler { return h.handler }

// Sessions exposes the live session registry.
func (h *HTTPServer) Sessions() *SessionRegistry { return h.sessions }

func (h *HTTPServer) registerRoutes() {
	h.router.HandleFunc(PathSSE, h.handleSSE).Methods(http.MethodGet)
	h.router.HandleFunc(PathMessages, h.handleMessage).Methods(http.MethodPost)
	h.router.HandleFunc(PathWebSocket, h.handleWebSocket).Methods(http.MethodGet)
	h.router.HandleFunc(PathHealth, h.handleHealth).Methods(http.MethodGet)
	h.router.HandleFunc(PathInfo, h.handleInfo).Methods(http.MethodGet)
}

func (h *HTTPServer) handleSSE(w http.ResponseWriter, r *http.Request) {
	if _, ok := w.(http.Flusher); !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	sessionID := uuid.NewString()
	ctx := logging.WithFields(r.Context(), logging.SessionFields(sessionID, SessionSSE)...)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	transport := &sdk.SSEServerTransport{
		Endpoint: PathMessages + "?sessionId=" + url.QueryEscape(sessionID),
		Response: w,
	}
	h.sessions.Add(sessionID, SessionSSE, transport)
	defer h.closeSession(ctx, sessionID)

	logging.InfowCtx(ctx, "sse connection established")
	ss, err := h.server.Connect(r.Context(), transport, nil)
	if err != nil {
		logging.WarnwCtx(ctx, "mcp server connect failed", "err", err)
		return
	}
	h.serve(r.Context(), ss)
}

func (h *HTTPServer) handleMessage(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionId")
	if sessionID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "sessionId required"})
		return
	}
	handler, ok := h.sessions.Handler(sessionID)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "no transport found for sessionId: " + sessionID})
		return
	}
	handler.ServeHTTP(w, r)
}

func (h *HTTPServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warnw("ws upgrade failed", "err", err)
		return
	}

	sessionID := uuid.NewString()
	ctx := logging.WithFields(context.Background(), logging.SessionFields(sessionID, SessionWebSocket)...)
	h.sessions.Add(sessionID, SessionWebSocket, nil)
	defer h.closeSession(ctx, sessionID)

	logging.InfowCtx(ctx, "websocket connection established")
	// A hijacked request's context is not cancelled when the peer leaves;
	// the session ends when the websocket read fails.
	ss, err := h.server.Connect(context.Background(), newWebSocketTransport(conn, sessionID), nil)
	if err != nil {
		logging.WarnwCtx(ctx, "mcp server connect failed", "err", err)
		_ = conn.Close()
		return
	}
	h.serve(context.Background(), ss)
}

// serve blocks until ctx is done or the session ends on its own.
func (h *HTTPServer) serve(ctx context.Context, ss *sdk.ServerSession) {
	done := make(chan struct{})
	go func() {
		_ = ss.Wait()
		close(done)
	}()
	select {
	case <-ctx.Done():
	case <-done:
	}
	_ = ss.Close()
}

func (h *HTTPServer) closeSession(ctx context.Context, id string) {
	if h.sessions.Remove(id) {
		logging.InfowCtx(ctx, "connection closed", "connections", h.sessions.Len())
	}
}

type errorBody struct {
	Error string `json:"error"`
}

type healthResponse struct {
	Status      string `json:"status"`
	Server      string `json:"server"`
	Connections int    `json:"connections"`
	Timestamp   string `json:"timestamp"`
}

type infoResponse struct {
	Message           string            `json:"message"`
	Version           string            `json:"version"`
	Endpoints         map[string]string `json:"endpoints"`
	ActiveConnections int               `json:"activeConnections"`
}

func (h *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:      "OK",
		Server:      h.opts.Name,
		Connections: h.sessions.Len(),
		Timestamp:   h.now().UTC().Format(time.RFC3339Nano),
	})
}

func (h *HTTPServer) handleInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, infoResponse{
		Message: h.opts.Name,
		Version: h.opts.Version,
		Endpoints: map[string]string{
			"sse":       PathSSE,
			"messages":  PathMessages,
			"websocket": PathWebSocket,
			"health":    PathHealth,
		},
		ActiveConnections: h.sessions.Len(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Warnw("write json response failed", "err", err)
	}
}
