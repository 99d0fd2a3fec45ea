package ws

import (
	"context"
	"log"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"

	"github.com/vaporchat/vapor/internal/model"
	"github.com/vaporchat/vapor/internal/names"
)

const (
	writeWait    = 10 * time.Second    // time allowed to write one envelope
	pongWait     = 60 * time.Second    // connection considered dead past this
	pingPeriod   = (pongWait * 9) / 10 // must be less than pongWait
	maxFrameSize = 1 << 16
)

// Client is one open connection and its identity. The identity lives
// exactly as long as the connection.
type Client struct {
	ID        uuid.UUID
	Pseudonym string

	hub  *Hub
	conn *websocket.Conn
	send chan model.Envelope

	mu     sync.Mutex
	closed bool

	// Current-room pointer and the per-room display name map. Owned by
	// this connection, mutated only under the hub lock.
	room  string
	name  string
	names map[string]string
}

// NewClient assigns a fresh identity to a connection.
func NewClient(conn *websocket.Conn, hub *Hub) *Client {
	return &Client{
		ID:        uuid.New(),
		Pseudonym: names.Pseudonym(),
		hub:       hub,
		conn:      conn,
		send:      make(chan model.Envelope, 64),
		names:     make(map[string]string),
	}
}

// enqueue queues an envelope for the write pump. Envelopes for a closed
// connection are silently dropped; a full queue drops the envelope
// rather than stall the sender.
func (c *Client) enqueue(env model.Envelope) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	select {
	case c.send <- env:
	default:
		slog.Warn("dropping envelope for slow client",
			"user_id", c.ID.String(),
			"type", env.Type)
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// ReadPump reads inbound frames until the connection dies, then tears
// the identity down. Runs in the connection handler goroutine.
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.CloseNow()
	}()

	c.conn.SetReadLimit(maxFrameSize)

	for {
		_, p, err := c.conn.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status != websocket.StatusNormalClosure &&
				status != websocket.StatusGoingAway &&
				status != -1 {
				log.Printf("client [%s] read error: %v", c.ID, err)
			}
			return
		}
		c.hub.Dispatch(c, p)
	}
}

// WritePump drains the outbound queue to the socket and keeps the
// connection alive with periodic pings.
func (c *Client) WritePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case env, ok := <-c.send:
			if !ok {
				c.conn.Close(websocket.StatusNormalClosure, "session closed")
				return
			}
			writeCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := wsjson.Write(writeCtx, c.conn, env)
			cancel()
			if err != nil {
				slog.WarnContext(ctx, "failed to write envelope",
					"error", err,
					"user_id", c.ID.String(),
					"type", env.Type)
				return
			}

		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}

		case <-ctx.Done():
			c.conn.Close(websocket.StatusGoingAway, "server shutting down")
			return
		}
	}
}
