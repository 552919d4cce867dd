package apiclient

import (
	"context"
	"encoding/json"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// OrderEvent is one push notification from the order service's event
// feed. Advisory: consumers treat it as a refresh hint, never as data.
type OrderEvent struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// SubscribeEvents dials the service's websocket feed and delivers events
// to fn until ctx is cancelled. The connection is retried with a flat
// delay; polling remains the fallback, so a dead feed is degradation,
// not failure.
func (c *Client) SubscribeEvents(ctx context.Context, fn func(OrderEvent)) {
	u := strings.Replace(c.baseURL, "http", "ws", 1) + "/ws/orders"
	switch {
	case c.token != "":
		u += "?token=" + c.token
	case c.phone != "":
		u += "?phone=" + url.QueryEscape(c.phone)
	}

	for {
		if ctx.Err() != nil {
			return
		}
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
		if err != nil {
			select {
			case <-ctx.Done():
				return
			case <-time.After(5 * time.Second):
				continue
			}
		}

		c.readEvents(ctx, conn, fn)
		conn.Close()
	}
}

func (c *Client) readEvents(ctx context.Context, conn *websocket.Conn, fn func(OrderEvent)) {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				log.Printf("order event feed closed: %v", err)
			}
			return
		}
		// The hub may batch newline-separated messages into one frame.
		for _, line := range strings.Split(string(data), "\n") {
			if line == "" {
				continue
			}
			var ev OrderEvent
			if err := json.Unmarshal([]byte(line), &ev); err != nil {
				continue
			}
			fn(ev)
		}
	}
}
