package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/ikkim/fleetverify-backend/pkg/events"
	"github.com/ikkim/fleetverify-backend/pkg/logger"
)

const (
	// 클라이언트당 초당 최대 메시지 수
	maxMessagesPerSecond = 10

	// TopicAll receives every event regardless of status.
	TopicAll = "*"
)

// ClientMessage subscribe/unsubscribe 요청
type ClientMessage struct {
	Type   string `json:"type"`   // subscribe, unsubscribe
	Status string `json:"status"` // verification status or "*"
}

// Client 관리자 리뷰 피드 세션
type Client struct {
	Hub           *Hub
	Conn          *Conn
	AdminID       uint
	Send          chan []byte
	Topics        map[string]bool
	mu            sync.RWMutex
	MessageCount  int
	LastResetTime time.Time
	RateMu        sync.Mutex
}

func NewClient(hub *Hub, conn *Conn, adminID uint) *Client {
	return &Client{
		Hub:     hub,
		Conn:    conn,
		AdminID: adminID,
		Send:    make(chan []byte, 64),
		Topics:  map[string]bool{TopicAll: true},
	}
}

func (c *Client) subscribed(topic string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Topics[TopicAll] || c.Topics[topic]
}

// Hub fans verification events out to connected admin sessions.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan *BroadcastMessage
	mu         sync.RWMutex
}

type BroadcastMessage struct {
	Topic   string
	Message []byte
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client, 256),
		unregister: make(chan *Client, 256),
		broadcast:  make(chan *BroadcastMessage, 1024),
	}
}

// Run processes registrations and broadcasts until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				close(client.Send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			logger.Info("Review feed client registered", map[string]interface{}{
				"admin_id":       client.AdminID,
				"total_sessions": total,
			})

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
			}
			h.mu.Unlock()
			logger.Info("Review feed client unregistered", map[string]interface{}{
				"admin_id": client.AdminID,
			})

		case message := <-h.broadcast:
			h.mu.RLock()
			for client := range h.clients {
				if !client.subscribed(message.Topic) {
					continue
				}
				select {
				case client.Send <- message.Message:
				default:
					go h.Unregister(client)
					logger.Warn("Client send buffer full, disconnecting", map[string]interface{}{
						"admin_id": client.AdminID,
					})
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Publish implements events.Publisher. A full broadcast queue drops the event.
func (h *Hub) Publish(_ context.Context, event events.VerificationEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		logger.Error("Failed to marshal review feed event", err, nil)
		return err
	}

	select {
	case h.broadcast <- &BroadcastMessage{Topic: event.Status, Message: data}:
	default:
		logger.Warn("Broadcast channel full, event dropped", map[string]interface{}{
			"driver_id": event.DriverID,
			"type":      event.Type,
		})
	}
	return nil
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HandleClientMessage applies subscribe/unsubscribe requests.
func (h *Hub) HandleClientMessage(client *Client, message []byte) {
	client.RateMu.Lock()
	now := time.Now()
	if now.Sub(client.LastResetTime) >= time.Second {
		client.MessageCount = 0
		client.LastResetTime = now
	}
	client.MessageCount++
	count := client.MessageCount
	client.RateMu.Unlock()

	if count > maxMessagesPerSecond {
		logger.Warn("Rate limit exceeded", map[string]interface{}{
			"admin_id": client.AdminID,
			"count":    count,
		})
		return
	}

	var msg ClientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		logger.Warn("Failed to parse client message", map[string]interface{}{
			"admin_id": client.AdminID,
			"error":    err.Error(),
		})
		return
	}
	if msg.Status == "" {
		return
	}

	client.mu.Lock()
	switch msg.Type {
	case "subscribe":
		if msg.Status != TopicAll {
			// explicit topic replaces the default catch-all
			delete(client.Topics, TopicAll)
		}
		client.Topics[msg.Status] = true
	case "unsubscribe":
		delete(client.Topics, msg.Status)
	}
	client.mu.Unlock()
}
