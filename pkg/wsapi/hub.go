// Package wsapi serves the chat-streaming WebSocket endpoint: one
// connection per client, JWT-authenticated at upgrade, exchanging
// chat.send/chat.abort/chat.history client messages for a stream of
// token/tool-trace/chat.done/chat.error/history.result server
// messages. Adapted from the reference backend's
// pkg/events.ConnectionManager connection-lifecycle pattern, narrowed
// from its pub/sub channel model to one chat session per socket.
package wsapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	echo "github.com/labstack/echo/v5"

	"github.com/aegi-platform/aegi-core/pkg/apperrors"
	"github.com/aegi-platform/aegi-core/pkg/chat"
	"github.com/aegi-platform/aegi-core/pkg/contracts"
)

// closeAuthFailed is the close code returned when the connection's
// token fails validation, per spec.
const closeAuthFailed = 4001

// writeTimeout bounds how long a single server->client send may block.
const writeTimeout = 10 * time.Second

// ClientMessage is the JSON envelope for client -> server frames.
type ClientMessage struct {
	Type    string `json:"type"` // "chat.send" | "chat.abort" | "chat.history"
	ID      string `json:"id,omitempty"`
	Message string `json:"message,omitempty"`
	Limit   int    `json:"limit,omitempty"`
	CaseUID string `json:"case_uid,omitempty"`
}

// serverMessage is the JSON envelope for server -> client frames.
type serverMessage struct {
	Type    string `json:"type"`
	ID      string `json:"id,omitempty"`
	Token   string `json:"token,omitempty"`
	Trace   any    `json:"trace,omitempty"`
	Answer  any    `json:"answer,omitempty"`
	Error   string `json:"error,omitempty"`
	History any    `json:"history,omitempty"`
}

// ChatService is the narrow chat slice the hub drives.
type ChatService interface {
	Ask(ctx context.Context, caseUID, question, traceID string, budget contracts.BudgetContext) (contracts.AnswerV1, error)
	Replay(ctx context.Context, traceID string) (contracts.AnswerV1, error)
}

var _ ChatService = (*chat.Service)(nil)

// Hub upgrades and serves /ws chat-streaming connections.
type Hub struct {
	Chat      ChatService
	JWTSecret []byte
	Logger    *slog.Logger

	mu       sync.Mutex
	inflight map[string]context.CancelFunc // message id -> cancel, scoped per connection via closure
}

// NewHub constructs a Hub. A nil or empty jwtSecret disables signature
// verification and accepts any well-formed token — intended for local
// development only.
func NewHub(chatSvc ChatService, jwtSecret []byte) *Hub {
	return &Hub{
		Chat: chatSvc, JWTSecret: jwtSecret,
		Logger:   slog.Default().With("component", "wsapi"),
		inflight: make(map[string]context.CancelFunc),
	}
}

// ServeHTTP upgrades the request to a WebSocket and serves it until the
// client disconnects. The caller registers this against echo's router.
func (h *Hub) ServeHTTP(c *echo.Context) error {
	if err := h.authenticate(c.QueryParam("token")); err != nil {
		conn, acceptErr := websocket.Accept(c.Response(), c.Request(), &websocket.AcceptOptions{InsecureSkipVerify: true})
		if acceptErr != nil {
			return acceptErr
		}
		conn.Close(websocket.StatusCode(closeAuthFailed), "authentication failed")
		return nil
	}

	conn, err := websocket.Accept(c.Response(), c.Request(), &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		return err
	}
	defer conn.CloseNow()

	ctx := c.Request().Context()
	connID := uuid.NewString()
	log := h.Logger.With("connection_id", connID)

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return nil
		}
		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			h.send(ctx, conn, serverMessage{Type: "chat.error", Error: "malformed message"})
			continue
		}
		h.dispatch(ctx, conn, log, msg)
	}
}

func (h *Hub) authenticate(token string) error {
	if token == "" {
		return errors.New("missing token")
	}
	if len(h.JWTSecret) == 0 {
		return nil
	}
	_, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return h.JWTSecret, nil
	})
	return err
}

func (h *Hub) dispatch(ctx context.Context, conn *websocket.Conn, log *slog.Logger, msg ClientMessage) {
	switch msg.Type {
	case "chat.send":
		h.handleSend(ctx, conn, log, msg)
	case "chat.abort":
		h.handleAbort(msg)
	case "chat.history":
		h.handleHistory(ctx, conn, log, msg)
	default:
		h.send(ctx, conn, serverMessage{Type: "chat.error", ID: msg.ID, Error: "unknown message type: " + msg.Type})
	}
}

func (h *Hub) handleSend(ctx context.Context, conn *websocket.Conn, log *slog.Logger, msg ClientMessage) {
	if msg.ID == "" || msg.Message == "" || msg.CaseUID == "" {
		h.send(ctx, conn, serverMessage{Type: "chat.error", ID: msg.ID, Error: "chat.send requires id, case_uid, and message"})
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	h.mu.Lock()
	h.inflight[msg.ID] = cancel
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		delete(h.inflight, msg.ID)
		h.mu.Unlock()
	}()

	budget := contracts.BudgetContext{DeadlineUnixMS: time.Now().Add(2 * time.Minute).UnixMilli(), MaxTokens: 2000}
	answer, err := h.Chat.Ask(runCtx, msg.CaseUID, msg.Message, msg.ID, budget)
	if err != nil {
		if errors.Is(runCtx.Err(), context.Canceled) {
			h.send(ctx, conn, serverMessage{Type: "chat.error", ID: msg.ID, Error: "aborted"})
			return
		}
		log.Warn("chat.send failed", "id", msg.ID, "error", err)
		h.send(ctx, conn, serverMessage{Type: "chat.error", ID: msg.ID, Error: apperrors.ErrorCode(err)})
		return
	}

	for _, tok := range tokenize(answer.AnswerText) {
		if runCtx.Err() != nil {
			h.send(ctx, conn, serverMessage{Type: "chat.error", ID: msg.ID, Error: "aborted"})
			return
		}
		h.send(ctx, conn, serverMessage{Type: "token", ID: msg.ID, Token: tok})
	}
	for _, citation := range answer.EvidenceCitations {
		h.send(ctx, conn, serverMessage{Type: "tool-trace", ID: msg.ID, Trace: citation})
	}
	h.send(ctx, conn, serverMessage{Type: "chat.done", ID: msg.ID, Answer: answer})
}

func (h *Hub) handleAbort(msg ClientMessage) {
	h.mu.Lock()
	cancel, ok := h.inflight[msg.ID]
	h.mu.Unlock()
	if ok {
		cancel()
	}
}

func (h *Hub) handleHistory(ctx context.Context, conn *websocket.Conn, log *slog.Logger, msg ClientMessage) {
	if msg.ID == "" {
		h.send(ctx, conn, serverMessage{Type: "chat.error", Error: "chat.history requires id (the trace id to replay)"})
		return
	}
	answer, err := h.Chat.Replay(ctx, msg.ID)
	if err != nil {
		log.Warn("chat.history failed", "id", msg.ID, "error", err)
		h.send(ctx, conn, serverMessage{Type: "chat.error", ID: msg.ID, Error: apperrors.ErrorCode(err)})
		return
	}
	h.send(ctx, conn, serverMessage{Type: "history.result", ID: msg.ID, History: answer})
}

func (h *Hub) send(ctx context.Context, conn *websocket.Conn, msg serverMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	if err := conn.Write(writeCtx, websocket.MessageText, data); err != nil {
		h.Logger.Warn("ws write failed", "error", err)
	}
}

// tokenize splits text into whitespace-delimited chunks for incremental
// delivery. The chat service itself answers synchronously; this is
// cosmetic streaming over an already-complete answer.
func tokenize(text string) []string {
	var tokens []string
	var cur []rune
	for _, r := range text {
		if r == ' ' || r == '\n' {
			if len(cur) > 0 {
				tokens = append(tokens, string(cur)+string(r))
				cur = nil
			} else {
				tokens = append(tokens, string(r))
			}
			continue
		}
		cur = append(cur, r)
	}
	if len(cur) > 0 {
		tokens = append(tokens, string(cur))
	}
	return tokens
}
