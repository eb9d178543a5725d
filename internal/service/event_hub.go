package service

import (
	"bizbox_backend/pkg/logger"
	"bizbox_backend/pkg/monitoring"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 256
	presenceTTL    = 2 * time.Minute
	hubChannel     = "bizbox:events"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Event is the frame exchanged with WebSocket clients, in both directions.
type Event struct {
	Op    string      `json:"op"`
	Topic string      `json:"topic,omitempty"`
	Data  interface{} `json:"data"`
}

// EventPublisher is what services depend on to announce state changes.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, event Event) error
}

// OpHandler persists a client-initiated op. The returned topic and payload are
// rebroadcast under the same op; an empty topic means nothing is broadcast.
type OpHandler func(ctx context.Context, client *HubClient, data json.RawMessage) (topic string, payload interface{}, err error)

func UserNotificationsTopic(userID uint) string {
	return fmt.Sprintf("user:%d:notifications", userID)
}

func UserResultsTopic(userID uint) string {
	return fmt.Sprintf("user:%d:results", userID)
}

func ContactTopic(contactID uint) string {
	return fmt.Sprintf("whatsapp:contact:%d", contactID)
}

type HubClient struct {
	Hub            *EventHub
	Conn           *websocket.Conn
	Send           chan []byte
	UserID         uint
	OrganizationID uint
	Topics         []string
	Limiter        *rate.Limiter

	// closed is guarded by Hub.mu and set once Send is closed.
	closed bool
}

type envelope struct {
	Topic   string          `json:"topic"`
	Payload json.RawMessage `json:"payload"`
}

type EventHub struct {
	mu       sync.RWMutex
	topics   map[string]map[*HubClient]struct{}
	handlers map[string]OpHandler
	Redis    *redis.Client
}

func NewEventHub(rdb *redis.Client) *EventHub {
	return &EventHub{
		topics:   make(map[string]map[*HubClient]struct{}),
		handlers: make(map[string]OpHandler),
		Redis:    rdb,
	}
}

// Handle registers the handler for a client op. Registration happens during
// wiring, before any socket is served.
func (h *EventHub) Handle(op string, handler OpHandler) {
	h.handlers[op] = handler
}

// Run relays events published by every instance to local subscribers until
// ctx is cancelled. Without Redis there is nothing to relay.
func (h *EventHub) Run(ctx context.Context) {
	if h.Redis == nil {
		<-ctx.Done()
		return
	}

	pubsub := h.Redis.Subscribe(ctx, hubChannel)
	defer pubsub.Close()

	heartbeat := time.NewTicker(time.Minute)
	defer heartbeat.Stop()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				logger.Log.Error("PubSub unmarshal error", zap.Error(err))
				continue
			}
			h.deliverLocal(env.Topic, env.Payload)
		case <-heartbeat.C:
			h.refreshPresence(ctx)
		}
	}
}

func (h *EventHub) Publish(ctx context.Context, topic string, event Event) error {
	event.Topic = topic
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	monitoring.EventsPublished.WithLabelValues(event.Op, "out").Inc()

	if h.Redis == nil {
		h.deliverLocal(topic, payload)
		return nil
	}

	raw, err := json.Marshal(envelope{Topic: topic, Payload: payload})
	if err != nil {
		return err
	}
	return h.Redis.Publish(ctx, hubChannel, raw).Err()
}

func (h *EventHub) deliverLocal(topic string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.topics[topic] {
		select {
		case client.Send <- payload:
		default:
			// Slow consumer, drop the frame.
		}
	}
}

func (h *EventHub) register(client *HubClient) {
	h.mu.Lock()
	for _, topic := range client.Topics {
		subs, ok := h.topics[topic]
		if !ok {
			subs = make(map[*HubClient]struct{})
			h.topics[topic] = subs
		}
		subs[client] = struct{}{}
	}
	h.mu.Unlock()

	monitoring.HubConnections.Inc()
	if h.Redis != nil {
		h.Redis.Set(context.Background(), presenceKey(client.UserID), "true", presenceTTL)
	}
}

func (h *EventHub) unregister(client *HubClient) {
	h.mu.Lock()
	removed := false
	for _, topic := range client.Topics {
		subs := h.topics[topic]
		if _, ok := subs[client]; ok {
			delete(subs, client)
			removed = true
		}
		if len(subs) == 0 {
			delete(h.topics, topic)
		}
	}
	if removed && !client.closed {
		close(client.Send)
		client.closed = true
	}
	h.mu.Unlock()

	if !removed {
		return
	}
	monitoring.HubConnections.Dec()
	if h.Redis != nil && !h.hasLocalClient(client.UserID) {
		h.Redis.Del(context.Background(), presenceKey(client.UserID))
	}
}

func (h *EventHub) hasLocalClient(userID uint) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, subs := range h.topics {
		for c := range subs {
			if c.UserID == userID {
				return true
			}
		}
	}
	return false
}

func presenceKey(userID uint) string {
	return fmt.Sprintf("presence:user:%d", userID)
}

func (h *EventHub) refreshPresence(ctx context.Context) {
	seen := map[uint]struct{}{}
	h.mu.RLock()
	for _, subs := range h.topics {
		for c := range subs {
			seen[c.UserID] = struct{}{}
		}
	}
	h.mu.RUnlock()
	if len(seen) == 0 {
		return
	}

	pipe := h.Redis.Pipeline()
	for id := range seen {
		pipe.Expire(ctx, presenceKey(id), presenceTTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		logger.Log.Error("Redis pipeline error", zap.Error(err))
	}
}

// IsUserOnline reports whether the user holds a socket on any instance.
func (h *EventHub) IsUserOnline(ctx context.Context, userID uint) bool {
	if h.hasLocalClient(userID) {
		return true
	}
	if h.Redis == nil {
		return false
	}
	val, err := h.Redis.Get(ctx, presenceKey(userID)).Result()
	return err == nil && val == "true"
}

// Stop closes every local socket.
func (h *EventHub) Stop() {
	h.mu.Lock()
	closed := map[*HubClient]struct{}{}
	for topic, subs := range h.topics {
		for c := range subs {
			if _, done := closed[c]; !done {
				if !c.closed {
					close(c.Send)
					c.closed = true
				}
				closed[c] = struct{}{}
			}
		}
		delete(h.topics, topic)
	}
	h.mu.Unlock()

	if h.Redis != nil {
		for c := range closed {
			h.Redis.Del(context.Background(), presenceKey(c.UserID))
		}
	}
	monitoring.HubConnections.Set(0)
	logger.Log.Info("Event hub stopped", zap.Int("closedConnections", len(closed)))
}

// dispatch runs the handler for an inbound frame and rebroadcasts the result.
func (h *EventHub) dispatch(ctx context.Context, client *HubClient, raw []byte) {
	var frame struct {
		Op   string          `json:"op"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &frame); err != nil {
		return
	}
	monitoring.EventsPublished.WithLabelValues(frame.Op, "in").Inc()

	handler, ok := h.handlers[frame.Op]
	if !ok {
		h.sendError(client, frame.Op, "unknown op")
		return
	}

	topic, payload, err := handler(ctx, client, frame.Data)
	if err != nil {
		logger.Log.Debug("Op handler failed", zap.String("op", frame.Op), zap.Uint("userId", client.UserID), zap.Error(err))
		h.sendError(client, frame.Op, err.Error())
		return
	}
	if topic == "" {
		return
	}
	if err := h.Publish(ctx, topic, Event{Op: frame.Op, Data: payload}); err != nil {
		logger.Log.Error("Publish failed", zap.String("op", frame.Op), zap.Error(err))
	}
}

// sendError replies to the client alone. Clients already dropped by
// unregister or Stop are skipped.
func (h *EventHub) sendError(c *HubClient, op, message string) {
	payload, err := json.Marshal(Event{Op: "error", Data: map[string]string{"op": op, "message": message}})
	if err != nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if c.closed {
		return
	}
	select {
	case c.Send <- payload:
	default:
	}
}

func (c *HubClient) readPump() {
	defer func() {
		c.Hub.unregister(c)
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error { c.Conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Log.Error("WebSocket unexpected close", zap.Error(err), zap.Uint("userId", c.UserID))
			}
			break
		}

		// 30 frames per second, bursts of 50.
		if !c.Limiter.Allow() {
			continue
		}
		c.Hub.dispatch(context.Background(), c, message)
	}
}

func (c *HubClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ServeWs upgrades the request and subscribes the socket to topics.
func ServeWs(hub *EventHub, w http.ResponseWriter, r *http.Request, userID, orgID uint, topics ...string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Error("WebSocket upgrade failed", zap.Error(err), zap.Uint("userId", userID))
		return
	}
	client := &HubClient{
		Hub:            hub,
		Conn:           conn,
		Send:           make(chan []byte, sendBuffer),
		UserID:         userID,
		OrganizationID: orgID,
		Topics:         topics,
		Limiter:        rate.NewLimiter(rate.Limit(30), 50),
	}
	hub.register(client)

	go client.writePump()
	go client.readPump()
}
