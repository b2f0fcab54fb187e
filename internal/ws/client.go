package ws

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tiffindesk/api/internal/aggregate"
	"github.com/tiffindesk/api/internal/model"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10 // must be less than pongWait
	maxMessageSize = 512
	sendBuffer     = 16
)

// MessageFilter is the one message type clients send. It switches the
// connection to another date, meal or customer view:
//
//	{"type":"filter","date":"2024-05-01","meal":"lunch","customer":"asha"}
const MessageFilter = "filter"

type clientMessage struct {
	Type     string `json:"type"`
	Date     string `json:"date"`
	Meal     string `json:"meal"`
	Customer string `json:"customer"`
}

// Client is one dashboard connection. filter is owned by the hub's Run loop.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	filter aggregate.Filter
	send   chan []byte
}

// ReadPump handles filter changes until the connection drops.
func (c *Client) ReadPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn("websocket read", zap.Error(err))
			}
			return
		}
		select {
		case c.hub.refilter <- c.parse(data):
		case <-c.hub.done:
			return
		}
	}
}

// parse turns a client frame into a refilter request.
func (c *Client) parse(data []byte) refilterRequest {
	var msg clientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return refilterRequest{client: c, problem: "message is not valid JSON"}
	}
	if msg.Type != MessageFilter {
		return refilterRequest{client: c, problem: fmt.Sprintf("unknown message type %q", msg.Type)}
	}
	f, err := newFilter(msg.Date, msg.Meal, msg.Customer)
	if err != nil {
		return refilterRequest{client: c, problem: err.Error()}
	}
	return refilterRequest{client: c, filter: f}
}

// WritePump sends queued views and keeps the connection alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func newFilter(date, meal, customer string) (aggregate.Filter, error) {
	if date != "" {
		if _, err := model.ParseDate(date); err != nil {
			return aggregate.Filter{}, err
		}
	}
	return aggregate.Filter{Date: date, MealType: meal, CustomerNamePattern: customer}, nil
}

// FilterFromQuery reads ?date=&meal=&customer=.
func FilterFromQuery(r *http.Request) (aggregate.Filter, error) {
	q := r.URL.Query()
	return newFilter(q.Get("date"), q.Get("meal"), q.Get("customer"))
}

// ServeWS upgrades the request and streams aggregates for its filter.
// Endpoint: WS /ws/orders?token=JWT&date=&meal=&customer=
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	filter, err := FilterFromQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade", zap.Error(err))
		return
	}

	client := &Client{
		hub:    h,
		conn:   conn,
		filter: filter,
		send:   make(chan []byte, sendBuffer),
	}
	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()
}
