package ws

import (
	"log"
	"net/http"

	"github.com/coder/websocket"
)

// ServeWs upgrades the connection and hands it to the hub.
func ServeWs(h *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true,
		})
		if err != nil {
			log.Printf("failed to upgrade connection: %v", err)
			return
		}

		c := NewClient(conn, h)
		h.Register(c)
		log.Printf("client [%s] connected as %s", c.ID, c.Pseudonym)

		// Block on ReadPump; the request context is cancelled the moment
		// this handler returns.
		go c.WritePump(r.Context())
		c.ReadPump(r.Context())
	}
}
