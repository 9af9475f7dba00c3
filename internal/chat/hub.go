package chat

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/valyala/fastjson"
	"go.uber.org/zap"
)

// publishTimeout bounds one relay publish.
const publishTimeout = 2 * time.Second

// Envelope is a frame addressed to a room, or to every connection when Room is empty.
type Envelope struct {
	Room  string          `json:"room"`
	Frame json.RawMessage `json:"frame"`

	// presence envelopes carry no frame; the online list is read when they are dispatched
	presence bool
}

// Relay carries room envelopes between server instances.
type Relay interface {
	Publish(ctx context.Context, env Envelope) error
	Subscribe(ctx context.Context, deliver func(Envelope)) error
}

// Hub is the broadcast dispatcher. The clients map is owned by Run; presence
// and room subscriptions are shared with connection goroutines and guard
// themselves.
type Hub struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	deliver    chan Envelope

	presence *Presence
	rooms    *Rooms
	relay    Relay
	parsers  fastjson.ParserPool
	logger   *zap.Logger

	done     chan struct{}
	stopOnce sync.Once
}

// NewHub returns a hub that fans out in-process, or through relay when it is non-nil.
func NewHub(logger *zap.Logger, relay Relay) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		deliver:    make(chan Envelope, 256),
		presence:   NewPresence(),
		rooms:      NewRooms(),
		relay:      relay,
		logger:     logger,
		done:       make(chan struct{}),
	}
}

func (h *Hub) Run(ctx context.Context) {
	defer h.stop()

	for {
		select {
		case <-ctx.Done():
			for _, c := range h.clients {
				delete(h.clients, c.ID)
				c.gone.Store(true)
				close(c.send)
			}
			h.logger.Info("hub stopped")
			return

		case c := <-h.register:
			h.clients[c.ID] = c
			h.logger.Debug("client registered", zap.String("conn_id", c.ID), zap.Int("clients", len(h.clients)))

		case c := <-h.unregister:
			h.remove(c)

		case env := <-h.deliver:
			h.dispatch(env)
		}
	}
}

func (h *Hub) stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// Done is closed once Run has returned.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
		close(c.send)
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *Hub) enqueue(env Envelope) {
	select {
	case h.deliver <- env:
	case <-h.done:
	}
}

// JoinRoom subscribes a connection to room. No backlog is replayed.
func (h *Hub) JoinRoom(c *Client, room string) {
	h.rooms.Join(c.ID, room)
	// remove may have run concurrently; never leave a dead connection subscribed
	if c.gone.Load() {
		h.rooms.LeaveAll(c.ID)
		return
	}
	h.logger.Debug("joined room", zap.String("conn_id", c.ID), zap.String("room", room), zap.Int("members", h.rooms.Count(room)))
}

func (h *Hub) LeaveRoom(c *Client, room string) {
	h.rooms.Leave(c.ID, room)
}

// Identify records the display name of a connection and pushes the new
// online list to everyone on this instance.
func (h *Hub) Identify(c *Client, name string) {
	h.presence.Join(c.ID, name)
	if c.gone.Load() {
		h.presence.Leave(c.ID)
		return
	}
	h.logger.Debug("identified", zap.String("conn_id", c.ID), zap.String("name", name), zap.Int("identified", h.presence.Len()))
	h.enqueue(Envelope{presence: true})
}

// OnlineUsers is the current deduplicated list of display names.
func (h *Hub) OnlineUsers() []string {
	return h.presence.Names()
}

// BroadcastToRoom pushes event to every connection subscribed to room.
// Delivery is fire-and-forget; connections that join later never see it.
func (h *Hub) BroadcastToRoom(room, event string, payload any) {
	frame, err := encodeFrame(event, payload)
	if err != nil {
		h.logger.Error("encode frame", zap.String("event", event), zap.Error(err))
		return
	}

	env := Envelope{Room: room, Frame: frame}
	if h.relay == nil {
		h.enqueue(env)
		return
	}
	h.publish(env)
}

func (h *Hub) publish(env Envelope) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := h.relay.Publish(ctx, env); err != nil {
		h.logger.Error("relay publish", zap.String("room", env.Room), zap.Error(err))
	}
}

// SubscribeRelay feeds envelopes from other instances (and this one) into
// the dispatcher until ctx is cancelled.
func (h *Hub) SubscribeRelay(ctx context.Context) error {
	if h.relay == nil {
		return nil
	}
	return h.relay.Subscribe(ctx, h.enqueue)
}

// fanOut is BroadcastToRoom for use from inside Run, where enqueue would
// block. Relay publishes leave the loop so a slow Redis cannot stall delivery.
func (h *Hub) fanOut(env Envelope) {
	if h.relay == nil {
		h.dispatch(env)
		return
	}
	go h.publish(env)
}

func (h *Hub) dispatch(env Envelope) {
	frame := env.Frame
	if env.presence {
		var err error
		if frame, err = encodeFrame(EventOnlineUsers, h.presence.Names()); err != nil {
			h.logger.Error("encode online users", zap.Error(err))
			return
		}
	}

	var targets []*Client
	if env.Room == "" {
		targets = make([]*Client, 0, len(h.clients))
		for _, c := range h.clients {
			targets = append(targets, c)
		}
	} else {
		for _, id := range h.rooms.Members(env.Room) {
			if c, ok := h.clients[id]; ok {
				targets = append(targets, c)
			}
		}
	}

	var slow []*Client
	for _, c := range targets {
		select {
		case c.send <- frame:
		default:
			slow = append(slow, c)
		}
	}

	for _, c := range slow {
		h.logger.Warn("dropping slow client", zap.String("conn_id", c.ID))
		h.remove(c)
	}
}

// remove runs the disconnect cascade: forget the connection, drop its room
// subscriptions, announce the new online list and clear any typing state
// its display name left behind.
func (h *Hub) remove(c *Client) {
	if _, ok := h.clients[c.ID]; !ok {
		return
	}
	delete(h.clients, c.ID)
	c.gone.Store(true)
	close(c.send)

	name, identified := h.presence.Leave(c.ID)
	rooms := h.rooms.LeaveAll(c.ID)
	h.logger.Debug("client unregistered", zap.String("conn_id", c.ID), zap.Int("clients", len(h.clients)))

	h.dispatch(Envelope{presence: true})

	if !identified {
		return
	}
	for _, room := range rooms {
		frame, err := encodeFrame(EventUserStoppedTyping, Typing{Name: name, Room: room})
		if err != nil {
			continue
		}
		h.fanOut(Envelope{Room: room, Frame: frame})
	}
}
