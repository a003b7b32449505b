package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/bilalinamdar/cloud-slang/internal/events"
	"github.com/bilalinamdar/cloud-slang/pkg/api"
	"github.com/bilalinamdar/cloud-slang/pkg/log"
)

// Client represents a WebSocket client connection for event streaming
type Client struct {
	getRun   RunStateFunc
	conn     *websocket.Conn
	consumer events.Consumer
	filter   events.Filter
	done     chan struct{}
	once     sync.Once
}

// RunStateFunc looks up the current state of a run
type RunStateFunc func(api.RunID) (*api.RunState, error)

const (
	writeWait          = 10 * time.Second
	pongWait           = 60 * time.Second
	pingPeriod         = (pongWait * 9) / 10
	maxMessageSize     = 512
	wsBufferSize       = 1024
	incomingBufferSize = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  wsBufferSize,
	WriteBufferSize: wsBufferSize,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Error("WebSocket upgrade failed",
			log.Error(err))
		return
	}

	client := &Client{
		getRun:   s.engine.GetRun,
		conn:     conn,
		consumer: s.eventHub.NewConsumer(),
		filter:   func(*api.Event) bool { return false },
		done:     make(chan struct{}),
	}
	s.registerWebSocket(client)

	go func() {
		defer s.unregisterWebSocket(client)
		client.run()
	}()
}

// Close stops the client's event stream and closes its connection
func (c *Client) Close() {
	c.once.Do(func() {
		close(c.done)
	})
}

func (c *Client) run() {
	defer func() {
		c.consumer.Close()
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	incoming := make(chan []byte, incomingBufferSize)
	go c.readMessages(incoming)

	for {
		select {
		case message, ok := <-incoming:
			if !ok {
				return
			}
			c.handleSubscribe(message)

		case event, ok := <-c.consumer.Receive():
			if !ok {
				c.sendClose()
				return
			}
			if !c.sendEventIfMatched(event) {
				return
			}

		case <-ticker.C:
			if !c.sendPing() {
				return
			}

		case <-c.done:
			c.sendClose()
			return
		}
	}
}

func (c *Client) readMessages(incoming chan []byte) {
	defer close(incoming)
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		select {
		case incoming <- message:
		case <-c.done:
			return
		}
	}
}

func (c *Client) handleSubscribe(message []byte) {
	var sub api.SubscribeRequest
	if err := json.Unmarshal(message, &sub); err != nil {
		slog.Error("Failed to parse WebSocket message",
			log.Error(err))
		return
	}

	if sub.Type != "subscribe" {
		return
	}
	c.filter = BuildFilter(&sub.Data)
	c.sendSubscribed(sub.Data.RunID)
}

func (c *Client) sendSubscribed(id api.RunID) {
	msg := api.SubscribedResult{
		Type:  "subscribed",
		RunID: id,
	}
	if id != "" && c.getRun != nil {
		state, err := c.getRun(id)
		if err != nil {
			slog.Warn("Subscribed to unknown run",
				log.RunID(id),
				log.Error(err))
		} else {
			msg.State = state
		}
	}

	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteJSON(msg); err != nil {
		slog.Error("WebSocket write failed",
			slog.String("context", "subscribed"),
			log.Error(err))
	}
}

func (c *Client) sendEventIfMatched(event *api.Event) bool {
	if event == nil || !c.filter(event) {
		return true
	}

	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteJSON(event); err != nil {
		slog.Error("WebSocket write failed",
			log.Error(err))
		return false
	}
	return true
}

func (c *Client) sendPing() bool {
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	err := c.conn.WriteMessage(websocket.PingMessage, nil)
	return err == nil
}

func (c *Client) sendClose() {
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// BuildFilter creates an event filter based on client subscription
// preferences for a run and event types
func BuildFilter(sub *api.ClientSubscription) events.Filter {
	var filters []events.Filter
	if sub.RunID != "" {
		filters = append(filters, events.FilterRun(sub.RunID))
	}
	if len(sub.EventTypes) > 0 {
		filters = append(filters, events.FilterTypes(sub.EventTypes...))
	}
	return events.AndFilters(filters...)
}
