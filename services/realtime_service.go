package services

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"market_gateway/models"
	"market_gateway/services/aggregator"
	"market_gateway/services/refresh"
)

// Constants for service configuration
const (
	MaxViewClients        = 100 // Maximum concurrent WebSocket views
	WebSocketWriteTimeout = 10 * time.Second
	WebSocketPongTimeout  = 60 * time.Second
	WebSocketPingInterval = 30 * time.Second
)

// ViewMessage is one frame pushed to a websocket view.
type ViewMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
	Time string      `json:"time"`
}

// viewClient is one connected dashboard session. Each client owns a refresh
// scheduler driving its re-query cadence; subscriptions decide what gets
// re-queried.
type viewClient struct {
	conn       *websocket.Conn
	send       chan []byte
	mu         sync.RWMutex
	subscribed map[string]models.ItemRequest
	sched      *refresh.Scheduler
	cancel     context.CancelFunc
}

func (c *viewClient) requests() []models.ItemRequest {
	c.mu.RLock()
	defer c.mu.RUnlock()

	reqs := make([]models.ItemRequest, 0, len(c.subscribed))
	for _, r := range c.subscribed {
		reqs = append(reqs, r)
	}
	return reqs
}

// RealtimeService maintains the websocket views and pushes fresh aggregates
// to them on each view's refresh cadence.
type RealtimeService struct {
	clients    map[*viewClient]bool
	broadcast  chan ViewMessage
	register   chan *viewClient
	unregister chan *viewClient
	shutdown   chan struct{}
	mu         sync.RWMutex
	upgrader   websocket.Upgrader

	agg             *aggregator.Aggregator
	refreshInterval time.Duration
}

// NewRealtimeService creates the hub and starts its event loop.
func NewRealtimeService(agg *aggregator.Aggregator, refreshInterval time.Duration) *RealtimeService {
	s := &RealtimeService{
		clients:    make(map[*viewClient]bool),
		broadcast:  make(chan ViewMessage, 256),
		register:   make(chan *viewClient),
		unregister: make(chan *viewClient),
		shutdown:   make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		agg:             agg,
		refreshInterval: refreshInterval,
	}

	go s.run()

	log.Println("Realtime view service initialized")
	return s
}

// Shutdown gracefully closes every view.
func (s *RealtimeService) Shutdown() {
	close(s.shutdown)

	s.mu.Lock()
	for client := range s.clients {
		client.sched.Stop()
		client.cancel()
		close(client.send)
		client.conn.Close()
	}
	s.clients = make(map[*viewClient]bool)
	s.mu.Unlock()

	log.Println("Realtime view service shutdown complete")
}

// run is the hub loop: registrations, departures, broadcasts.
func (s *RealtimeService) run() {
	for {
		select {
		case <-s.shutdown:
			return

		case client := <-s.register:
			s.mu.Lock()
			if len(s.clients) >= MaxViewClients {
				s.mu.Unlock()
				client.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "Server at capacity"))
				client.conn.Close()
				client.cancel()
				log.Printf("View rejected: max clients reached (%d)", MaxViewClients)
				continue
			}
			s.clients[client] = true
			clientCount := len(s.clients)
			s.mu.Unlock()
			log.Printf("View connected. Total views: %d", clientCount)

		case client := <-s.unregister:
			s.mu.Lock()
			if _, ok := s.clients[client]; ok {
				delete(s.clients, client)
				client.sched.Stop()
				client.cancel()
				close(client.send)
			}
			clientCount := len(s.clients)
			s.mu.Unlock()
			log.Printf("View disconnected. Total views: %d", clientCount)

		case message := <-s.broadcast:
			data, err := json.Marshal(message)
			if err != nil {
				log.Printf("Error marshaling broadcast message: %v", err)
				continue
			}

			s.mu.Lock()
			deadClients := make([]*viewClient, 0)
			for client := range s.clients {
				select {
				case client.send <- data:
				default:
					deadClients = append(deadClients, client)
				}
			}
			for _, client := range deadClients {
				delete(s.clients, client)
				client.sched.Stop()
				client.cancel()
				close(client.send)
			}
			s.mu.Unlock()
		}
	}
}

// HandleWebSocket upgrades a connection into a view and wires its refresh
// scheduler.
func (s *RealtimeService) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	atCapacity := len(s.clients) >= MaxViewClients
	s.mu.RUnlock()

	if atCapacity {
		http.Error(w, "Server at capacity", http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	client := &viewClient{
		conn:       conn,
		send:       make(chan []byte, 256),
		subscribed: make(map[string]models.ItemRequest),
		cancel:     cancel,
	}
	client.sched = refresh.NewScheduler(s.refreshInterval, func(ctx context.Context) error {
		return s.pushView(ctx, client)
	})

	s.register <- client
	client.sched.Start(ctx)

	go client.writePump()
	go client.readPump(s)
}

// pushView re-queries the aggregator for the client's subscriptions and
// pushes the result. Called only from the client's refresh scheduler.
func (s *RealtimeService) pushView(ctx context.Context, client *viewClient) error {
	reqs := client.requests()
	if len(reqs) == 0 {
		return nil
	}

	resp := s.agg.Resolve(ctx, reqs)
	msg := ViewMessage{
		Type: "aggregate",
		Data: resp,
		Time: time.Now().Format(time.RFC3339),
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	select {
	case client.send <- data:
	default:
		// Client buffer full, drop this frame; the next cycle resends.
	}
	return nil
}

// writePump writes messages to the WebSocket connection
func (c *viewClient) writePump() {
	ticker := time.NewTicker(WebSocketPingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(WebSocketWriteTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(WebSocketWriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump reads subscribe/unsubscribe/refresh commands from the view.
func (c *viewClient) readPump(s *RealtimeService) {
	defer func() {
		s.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(1024)
	c.conn.SetReadDeadline(time.Now().Add(WebSocketPongTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(WebSocketPongTimeout))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket read error: %v", err)
			}
			break
		}

		var cmd struct {
			Action string   `json:"action"`
			Items  []string `json:"items"`
		}
		if err := json.Unmarshal(message, &cmd); err != nil {
			continue
		}

		switch cmd.Action {
		case "subscribe":
			c.mu.Lock()
			for _, item := range cmd.Items {
				req, err := models.ParseItem(item, "")
				if err != nil {
					continue
				}
				c.subscribed[req.CacheKey()] = req
			}
			c.mu.Unlock()
			// Show the new subscription without waiting a full cycle.
			c.sched.Trigger()
		case "unsubscribe":
			c.mu.Lock()
			for _, item := range cmd.Items {
				req, err := models.ParseItem(item, "")
				if err != nil {
					continue
				}
				delete(c.subscribed, req.CacheKey())
			}
			c.mu.Unlock()
		case "refresh":
			c.sched.Trigger()
		}
	}
}

// BroadcastHealth pushes a composite health change to every view.
func (s *RealtimeService) BroadcastHealth(state models.HealthState) {
	select {
	case s.broadcast <- ViewMessage{
		Type: "health",
		Data: map[string]interface{}{"composite": state},
		Time: time.Now().Format(time.RFC3339),
	}:
	default:
	}
}

// GetClientCount returns the number of connected views.
func (s *RealtimeService) GetClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// GetStatus returns hub status info for the realtime status endpoint.
func (s *RealtimeService) GetStatus() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return map[string]interface{}{
		"client_count":         len(s.clients),
		"max_clients":          MaxViewClients,
		"refresh_interval_sec": int(s.refreshInterval.Seconds()),
	}
}
