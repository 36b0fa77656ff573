package events

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/cardhaus/card-exchange-backend/internal/service/bidding"
)

// HubConfig configures the websocket hub
type HubConfig struct {
	WriteTimeout   time.Duration
	PingInterval   time.Duration
	PongTimeout    time.Duration
	SendBufferSize int
}

func DefaultHubConfig() HubConfig {
	return HubConfig{
		WriteTimeout:   10 * time.Second,
		PingInterval:   30 * time.Second,
		PongTimeout:    60 * time.Second,
		SendBufferSize: 64,
	}
}

// wsMessage is the wire form of an auction event
type wsMessage struct {
	Type      string    `json:"type"`
	AuctionID uuid.UUID `json:"auction_id"`
	Amount    string    `json:"amount,omitempty"`
	EndTime   string    `json:"end_time,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// subscriber is one websocket client watching an auction
type subscriber struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans auction events out to websocket subscribers grouped by
// auction. It implements Transport so the emitter can publish into it.
// Sealed maxima never reach the hub; events only carry visible state.
type Hub struct {
	logger   *zap.Logger
	cfg      HubConfig
	upgrader websocket.Upgrader

	mu   sync.RWMutex
	subs map[uuid.UUID]map[*subscriber]struct{}
}

func NewHub(logger *zap.Logger, cfg HubConfig) *Hub {
	return &Hub{
		logger: logger,
		cfg:    cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		subs: make(map[uuid.UUID]map[*subscriber]struct{}),
	}
}

// Publish sends the event to every subscriber of its auction. Slow
// subscribers are disconnected rather than allowed to stall the hub.
func (h *Hub) Publish(ctx context.Context, event bidding.Event) error {
	msg := wsMessage{
		Type:      string(event.Type),
		AuctionID: event.AuctionID,
		Timestamp: event.Timestamp,
	}
	if !event.Amount.IsZero() {
		msg.Amount = event.Amount.Amount().StringFixed(2)
	}
	if !event.EndTime.IsZero() {
		msg.EndTime = event.EndTime.Format(time.RFC3339)
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	h.mu.RLock()
	var stalled []*subscriber
	for sub := range h.subs[event.AuctionID] {
		select {
		case sub.send <- data:
		default:
			stalled = append(stalled, sub)
		}
	}
	h.mu.RUnlock()

	for _, sub := range stalled {
		h.logger.Warn("dropping stalled websocket subscriber",
			zap.String("auction_id", event.AuctionID.String()))
		h.remove(event.AuctionID, sub)
	}

	return nil
}

// ServeAuction upgrades the request and streams events for one auction
// until the client goes away.
func (h *Hub) ServeAuction(w http.ResponseWriter, r *http.Request, auctionID uuid.UUID) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	sub := &subscriber{
		conn: conn,
		send: make(chan []byte, h.cfg.SendBufferSize),
	}

	h.mu.Lock()
	if h.subs[auctionID] == nil {
		h.subs[auctionID] = make(map[*subscriber]struct{})
	}
	h.subs[auctionID][sub] = struct{}{}
	h.mu.Unlock()

	go h.writePump(auctionID, sub)
	h.readPump(auctionID, sub)
}

// SubscriberCount reports how many clients are watching an auction
func (h *Hub) SubscriberCount(auctionID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[auctionID])
}

func (h *Hub) remove(auctionID uuid.UUID, sub *subscriber) {
	h.mu.Lock()
	if set, ok := h.subs[auctionID]; ok {
		if _, present := set[sub]; present {
			delete(set, sub)
			close(sub.send)
			if len(set) == 0 {
				delete(h.subs, auctionID)
			}
		}
	}
	h.mu.Unlock()
	sub.conn.Close()
}

func (h *Hub) writePump(auctionID uuid.UUID, sub *subscriber) {
	ticker := time.NewTicker(h.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case data, ok := <-sub.send:
			if !ok {
				sub.conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(h.cfg.WriteTimeout))
				return
			}
			sub.conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
			if err := sub.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				h.remove(auctionID, sub)
				return
			}
		case <-ticker.C:
			sub.conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
			if err := sub.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.remove(auctionID, sub)
				return
			}
		}
	}
}

// readPump drains client frames so pongs and close messages are
// processed; clients never send application data.
func (h *Hub) readPump(auctionID uuid.UUID, sub *subscriber) {
	defer h.remove(auctionID, sub)

	sub.conn.SetReadLimit(512)
	sub.conn.SetReadDeadline(time.Now().Add(h.cfg.PongTimeout))
	sub.conn.SetPongHandler(func(string) error {
		return sub.conn.SetReadDeadline(time.Now().Add(h.cfg.PongTimeout))
	})

	for {
		if _, _, err := sub.conn.ReadMessage(); err != nil {
			return
		}
	}
}
