package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSMessage is a generic WebSocket message.
type WSMessage struct {
	Type    string          `json:"type"`    // Message type: "search", "iterate", "ping"
	ID      string          `json:"id"`      // Request ID for correlating responses
	Payload json.RawMessage `json:"payload"` // Type-specific payload
}

// WSResponse is a generic WebSocket response.
type WSResponse struct {
	Type    string `json:"type"`              // Response type: "round", "result", "error", "pong"
	ID      string `json:"id,omitempty"`      // Request ID
	Payload any    `json:"payload,omitempty"` // Response data
	Error   string `json:"error,omitempty"`   // Error message if any
	Code    string `json:"code,omitempty"`    // Error code if any
}

// WSClient represents a connected WebSocket client.
type WSClient struct {
	conn     *websocket.Conn
	handlers *Handlers
	sendChan chan WSResponse
	ctx      context.Context
	wg       sync.WaitGroup
}

// WebSocket handles WebSocket connections. Requests run concurrently and
// their responses carry the request's ID.
func (h *Handlers) WebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", slog.Any("error", err))
		return
	}
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	client := &WSClient{conn: conn, handlers: h, sendChan: make(chan WSResponse, 256), ctx: ctx}
	go client.writePump()
	client.readPump(cancel)
}

func (c *WSClient) writePump() {
	defer c.conn.Close()
	for msg := range c.sendChan {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

// readPump cancels in-flight searches when the client goes away and
// closes the send channel once they have all returned.
func (c *WSClient) readPump(cancel context.CancelFunc) {
	defer func() {
		cancel()
		c.wg.Wait()
		close(c.sendChan)
		c.conn.Close()
	}()
	for {
		var msg WSMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}
		c.handleMessage(msg)
	}
}

func (c *WSClient) handleMessage(msg WSMessage) {
	switch msg.Type {
	case "search":
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			c.handleSearch(msg)
		}()
	case "iterate":
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			c.handleIterate(msg)
		}()
	case "ping":
		c.sendChan <- WSResponse{Type: "pong", ID: msg.ID}
	default:
		c.sendChan <- WSResponse{Type: "error", ID: msg.ID, Error: "unknown message type"}
	}
}

func (c *WSClient) fail(id string, e *apiError) {
	c.sendChan <- WSResponse{Type: "error", ID: id, Error: e.Error(), Code: e.code}
}

func (c *WSClient) handleSearch(msg WSMessage) {
	var req SearchRequest
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		c.sendChan <- WSResponse{Type: "error", ID: msg.ID, Error: "invalid payload", Code: "INVALID_JSON"}
		return
	}
	ctx := context.WithValue(c.ctx, requestIDKey, msg.ID)
	resp, aerr := c.handlers.search(ctx, req)
	if aerr != nil {
		c.fail(msg.ID, aerr)
		return
	}
	c.sendChan <- WSResponse{Type: "result", ID: msg.ID, Payload: resp}
}

func (c *WSClient) handleIterate(msg WSMessage) {
	var req IterateRequest
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		c.sendChan <- WSResponse{Type: "error", ID: msg.ID, Error: "invalid payload", Code: "INVALID_JSON"}
		return
	}
	ctx := context.WithValue(c.ctx, requestIDKey, msg.ID)
	resp, aerr := c.handlers.iterate(ctx, req, func(round RoundResponse) {
		c.sendChan <- WSResponse{Type: "round", ID: msg.ID, Payload: round}
	})
	if aerr != nil {
		c.fail(msg.ID, aerr)
		return
	}
	c.sendChan <- WSResponse{Type: "result", ID: msg.ID, Payload: resp}
}
