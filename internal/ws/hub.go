package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/tiffindesk/api/internal/aggregate"
	"github.com/tiffindesk/api/internal/model"
	"github.com/tiffindesk/api/internal/orders"
	"go.uber.org/zap"
)

// Event types sent to clients.
const (
	// EventAggregate carries an aggregate.Result for the client's filter.
	EventAggregate = "orders.aggregate"
	// EventError carries {"error": msg} after a message the hub refused.
	EventError = "error"
)

// Event represents a WebSocket message sent to clients.
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// OrderSource is satisfied by *orders.Store.
type OrderSource interface {
	SubscribeAll(ctx context.Context, fn orders.Listener) (cancel func(), err error)
}

// Hub keeps one room per aggregation filter and re-derives every room's view
// whenever the order collection changes.
type Hub struct {
	// Registered clients by filter
	rooms map[aggregate.Filter]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	refilter   chan refilterRequest
	done       chan struct{}

	// updates holds at most the newest order collection not yet fanned out.
	updates chan []model.Order

	// latest is the last collection seen, used to prime new clients.
	latest     []model.Order
	haveLatest bool

	engine   aggregate.Engine
	upgrader websocket.Upgrader
	logger   *zap.Logger

	mu sync.RWMutex
}

// refilterRequest moves a client to another filter's room. A non-empty
// problem is reported back to the client instead.
type refilterRequest struct {
	client  *Client
	filter  aggregate.Filter
	problem string
}

// Option configures a Hub.
type Option func(*Hub)

// WithAllowedOrigins limits browser connections to origins. Requests without
// an Origin header are always accepted; an empty list accepts every origin.
func WithAllowedOrigins(origins []string) Option {
	return func(h *Hub) {
		if len(origins) == 0 {
			return
		}
		allowed := make(map[string]bool, len(origins))
		for _, o := range origins {
			allowed[strings.TrimRight(o, "/")] = true
		}
		h.upgrader.CheckOrigin = func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || allowed[origin]
		}
	}
}

// NewHub creates a new Hub instance.
func NewHub(logger *zap.Logger, opts ...Option) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Hub{
		rooms:      make(map[aggregate.Filter]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		refilter:   make(chan refilterRequest),
		done:       make(chan struct{}),
		updates:    make(chan []model.Order, 1),
		engine:     aggregate.Default,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger: logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run starts the hub's main loop and returns when ctx ends.
// This should be called as a goroutine: go hub.Run(ctx)
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			close(h.done)
			return

		case client := <-h.register:
			h.mu.Lock()
			h.attach(client)
			h.mu.Unlock()

		case req := <-h.refilter:
			h.mu.Lock()
			h.move(req)
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			h.drop(client)
			h.mu.Unlock()

		case all := <-h.updates:
			h.mu.Lock()
			h.latest, h.haveLatest = all, true
			for filter, clients := range h.rooms {
				// Marshal once per room
				msg, err := h.render(filter)
				if err != nil {
					h.logger.Error("render aggregate", zap.Error(err))
					continue
				}
				for client := range clients {
					h.deliver(client, msg)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Update replaces the order collection the hub derives views from. Updates
// that arrive faster than the hub fans them out are coalesced.
func (h *Hub) Update(all []model.Order) {
	for {
		select {
		case h.updates <- all:
			return
		default:
		}
		select {
		case <-h.updates:
		default:
		}
	}
}

// Watch feeds the hub from src until ctx ends or cancel is called.
func (h *Hub) Watch(ctx context.Context, src OrderSource) (cancel func(), err error) {
	return src.SubscribeAll(ctx, func(all []model.Order, err error) {
		if err != nil {
			h.logger.Warn("order feed", zap.Error(err))
			return
		}
		h.Update(all)
	})
}

// attach adds client to its filter's room and primes it with the current
// view. Callers hold h.mu.
func (h *Hub) attach(client *Client) {
	if h.rooms[client.filter] == nil {
		h.rooms[client.filter] = make(map[*Client]bool)
	}
	h.rooms[client.filter][client] = true
	if h.haveLatest {
		if msg, err := h.render(client.filter); err == nil {
			h.deliver(client, msg)
		}
	}
}

// move switches a registered client to req.filter. Callers hold h.mu.
func (h *Hub) move(req refilterRequest) {
	client := req.client
	clients, ok := h.rooms[client.filter]
	if !ok || !clients[client] {
		return
	}
	if req.problem != "" {
		h.deliver(client, errorEvent(req.problem))
		return
	}
	if req.filter == client.filter {
		return
	}
	delete(clients, client)
	if len(clients) == 0 {
		delete(h.rooms, client.filter)
	}
	client.filter = req.filter
	h.attach(client)
}

func errorEvent(msg string) []byte {
	payload, _ := json.Marshal(map[string]string{"error": msg})
	b, _ := json.Marshal(Event{Type: EventError, Payload: payload})
	return b
}

// render builds the aggregate event for one filter. Callers hold h.mu.
func (h *Hub) render(f aggregate.Filter) ([]byte, error) {
	payload, err := json.Marshal(h.engine.Aggregate(h.latest, f))
	if err != nil {
		return nil, err
	}
	return json.Marshal(Event{Type: EventAggregate, Payload: payload})
}

// deliver queues msg for client, dropping the client if its buffer is full.
// Callers hold h.mu.
func (h *Hub) deliver(client *Client, msg []byte) {
	select {
	case client.send <- msg:
	default:
		h.drop(client)
	}
}

// drop removes client and closes its send channel. Callers hold h.mu.
func (h *Hub) drop(client *Client) {
	clients, ok := h.rooms[client.filter]
	if !ok {
		return
	}
	if _, exists := clients[client]; !exists {
		return
	}
	delete(clients, client)
	close(client.send)
	// Clean up empty rooms
	if len(clients) == 0 {
		delete(h.rooms, client.filter)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, clients := range h.rooms {
		for client := range clients {
			h.drop(client)
		}
	}
}
