package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/thraizz/mage-engine-go/internal/config"
	"github.com/thraizz/mage-engine-go/internal/game/engine"
	"github.com/thraizz/mage-engine-go/internal/session"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBuffer     = 256
)

// Client is one WebSocket connection. It follows at most one match.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	mu       sync.RWMutex
	matchID  string
	playerID string
	closed   bool
}

// trySend queues payload without blocking. It reports false when the
// client is gone or its buffer is full.
func (c *Client) trySend(payload []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// closeSend closes the send channel once, which stops the write pump.
func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *Client) subscribe(matchID, playerID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.matchID = matchID
	if playerID != "" {
		c.playerID = playerID
	}
}

func (c *Client) subscription() (matchID, playerID string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.matchID, c.playerID
}

type envelope struct {
	matchID string
	payload []byte
}

// Hub routes client requests to sessions and fans session notifications out
// to the clients following each match.
type Hub struct {
	manager  *session.Manager
	logger   *zap.Logger
	upgrader websocket.Upgrader

	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan envelope
	done       chan struct{}
}

// NewHub creates a hub. Run must be started before clients connect.
func NewHub(manager *session.Manager, cfg config.WebSocketConfig, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	origins := cfg.AllowedOrigins
	return &Hub{
		manager: manager,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  cfg.ReadBufferSize,
			WriteBufferSize: cfg.WriteBufferSize,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return len(origins) == 0 || origin == "" || slices.Contains(origins, origin)
			},
		},
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan envelope, sendBuffer),
		done:       make(chan struct{}),
	}
}

// Run owns the client set until ctx ends.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				client.closeSend()
				delete(h.clients, client)
			}
			return

		case client := <-h.register:
			h.clients[client] = true

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.closeSend()
			}

		case env := <-h.broadcast:
			for client := range h.clients {
				if matchID, _ := client.subscription(); matchID != env.matchID {
					continue
				}
				if !client.trySend(env.payload) {
					h.logger.Warn("dropping slow client", zap.String("match_id", env.matchID))
					client.closeSend()
					delete(h.clients, client)
				}
			}
		}
	}
}

// Notify is a session.NotificationHandler that broadcasts to the match's
// followers.
func (h *Hub) Notify(n session.Notification) {
	payload, err := json.Marshal(notificationMessage(n))
	if err != nil {
		h.logger.Error("failed to encode notification", zap.Error(err))
		return
	}
	select {
	case h.broadcast <- envelope{matchID: n.SessionID, payload: payload}:
	case <-h.done:
	}
}

// ServeHTTP upgrades the request and starts the client pumps.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	client := &Client{hub: h, conn: conn, send: make(chan []byte, sendBuffer)}

	select {
	case h.register <- client:
	case <-h.done:
		_ = conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			var (
				syntaxErr *json.SyntaxError
				typeErr   *json.UnmarshalTypeError
			)
			if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
				c.reply(ServerMessage{Type: MsgError, Error: "malformed message"})
				continue
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Debug("websocket read failed", zap.Error(err))
			}
			return
		}
		c.hub.handleMessage(c, msg)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// reply sends msg to this client only. Replies to a client the hub has
// already dropped are discarded.
func (c *Client) reply(msg ServerMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		c.hub.logger.Error("failed to encode reply", zap.Error(err))
		return
	}
	if !c.trySend(payload) {
		c.hub.logger.Debug("reply dropped", zap.String("type", msg.Type))
	}
}

func (h *Hub) handleMessage(c *Client, msg ClientMessage) {
	h.logger.Debug("websocket message",
		zap.String("type", msg.Type),
		zap.String("match_id", msg.MatchID),
	)
	if err := h.dispatch(c, msg); err != nil {
		c.reply(ServerMessage{Type: MsgError, MatchID: msg.MatchID, Error: err.Error()})
	}
}

func (h *Hub) dispatch(c *Client, msg ClientMessage) error {
	switch msg.Type {
	case MsgCreate:
		if msg.Setup == nil {
			return fmt.Errorf("create needs a setup")
		}
		initial, err := msg.Setup.Build()
		if err != nil {
			return err
		}
		s, err := h.manager.Create(msg.MatchID, initial)
		if err != nil {
			return err
		}
		c.subscribe(s.ID(), msg.PlayerID)
		h.sendState(c, s)
		return nil

	case MsgJoin:
		s, err := h.manager.Get(msg.MatchID)
		if err != nil {
			return err
		}
		c.subscribe(s.ID(), msg.PlayerID)
		h.sendState(c, s)
		return nil
	}

	s, err := h.session(c, msg)
	if err != nil {
		return err
	}
	_, playerID := c.subscription()

	var res engine.Result
	switch msg.Type {
	case MsgState:
		h.sendState(c, s)
		return nil

	case MsgExecute:
		if msg.Effect == nil {
			return fmt.Errorf("execute needs an effect")
		}
		e, err := msg.Effect.Build()
		if err != nil {
			return err
		}
		res, err = s.Execute(e, msg.Context.EffectContext(playerID))
		if err != nil {
			return err
		}

	case MsgRespond:
		resp, err := toResponse(s.State().PendingDecision(), msg.Response)
		if err != nil {
			return err
		}
		res, err = s.Respond(msg.DecisionID, resp)
		if err != nil {
			return err
		}
		if res.Ignored {
			return fmt.Errorf("decision %s is not pending", msg.DecisionID)
		}

	case MsgAdvance:
		if res, err = s.AdvanceStep(); err != nil {
			return err
		}

	case MsgResolveTrigger:
		if res, err = s.ResolveNextTrigger(); err != nil {
			return err
		}

	default:
		return fmt.Errorf("unknown message type %q", msg.Type)
	}

	// followers, the sender included, get results through notifications
	if res.Status == engine.StatusError {
		if matchID, _ := c.subscription(); matchID != s.ID() {
			return res.Err
		}
	}
	return nil
}

func (h *Hub) session(c *Client, msg ClientMessage) (*session.Session, error) {
	matchID := msg.MatchID
	if matchID == "" {
		matchID, _ = c.subscription()
	}
	if matchID == "" {
		return nil, fmt.Errorf("no match selected")
	}
	return h.manager.Get(matchID)
}

func (h *Hub) sendState(c *Client, s *session.Session) {
	c.reply(ServerMessage{
		Type:     MsgState,
		MatchID:  s.ID(),
		Sequence: s.Sequence(),
		State:    stateView(s.State(), s.PendingTriggers()),
	})
}
