package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"ShopPOS/app/models"
	"ShopPOS/app/services"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/grandcat/zeroconf"
)

// ErrClientNotFound is returned when a client id is not connected
var ErrClientNotFound = errors.New("client not found")

// MessageType represents the type of WebSocket message
type MessageType string

const (
	TypeOrderUpdate   MessageType = services.EventOrderUpdated
	TypeOrderDeleted  MessageType = services.EventOrderDeleted
	TypePaymentUpdate MessageType = services.EventPaymentRecorded
	TypeStockUpdate   MessageType = services.EventStockChanged
	TypeExpenseNew    MessageType = services.EventExpenseRecorded
	TypeNotification  MessageType = "notification"
	TypeHeartbeat     MessageType = "heartbeat"
	TypeWelcome       MessageType = "welcome"
)

// ClientType represents the type of connected client
type ClientType string

const (
	ClientPOS       ClientType = "pos"
	ClientMobile    ClientType = "mobile"
	ClientDashboard ClientType = "dashboard"
)

const (
	mdnsServiceName = "Shop POS"
	mdnsServiceType = "_shoppos._tcp"
	heartbeatPeriod = 30 * time.Second
	pongWait        = 60 * time.Second
	pingPeriod      = 54 * time.Second
	writeWait       = 10 * time.Second
	sendBufferSize  = 256
)

// Message represents a WebSocket message
type Message struct {
	Type      MessageType     `json:"type"`
	ClientID  string          `json:"client_id,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// Client represents a connected WebSocket client
type Client struct {
	ID          string
	Type        ClientType
	Connection  *websocket.Conn
	Send        chan []byte
	Server      *Server
	ConnectedAt time.Time
	RemoteAddr  string
}

// Server is the live event hub and the REST API of the back office
type Server struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	quit       chan struct{}
	upgrader   websocket.Upgrader
	mu         sync.RWMutex

	port       string
	announce   bool
	rest       *RESTHandlers
	logger     *services.LoggerService
	httpServer *http.Server
	mdnsServer *zeroconf.Server
	startOnce  sync.Once
	stopOnce   sync.Once
}

// NewServer creates a server on port (":8080") serving svc. logger may be nil.
func NewServer(port string, svc *services.Services, logger *services.LoggerService) *Server {
	s := &Server{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		quit:       make(chan struct{}),
		port:       port,
		logger:     logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// Back office devices live on the shop LAN
				return true
			},
		},
	}
	s.rest = NewRESTHandlers(svc)
	return s
}

// EnableMDNS turns the LAN announcement on or off (before Start)
func (s *Server) EnableMDNS(on bool) {
	s.announce = on
}

// Notify implements services.Notifier: the event is pushed to every client
func (s *Server) Notify(event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("WebSocket: cannot encode %s event: %v", event, err)
		return
	}
	s.broadcastToAll(&Message{
		Type:      MessageType(event),
		Timestamp: time.Now(),
		Data:      data,
	})
}

// Handler returns the HTTP handler with every route registered
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/server/status", s.handleStatus)
	mux.HandleFunc("DELETE /api/server/clients/{id}", s.handleDisconnect)
	s.rest.Register(mux)
	return s.logRequests(withCORS(mux))
}

// Start runs the hub and serves HTTP until Shutdown
func (s *Server) Start() error {
	s.startOnce.Do(func() { go s.run() })

	s.httpServer = &http.Server{
		Addr:              s.port,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.announce {
		go s.startMDNS()
	}

	log.Printf("Server starting on port %s", s.port)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the announcement, closes client connections and the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.stopOnce.Do(func() {
		s.mu.Lock()
		close(s.quit)
		mdns := s.mdnsServer
		s.mdnsServer = nil
		for id, client := range s.clients {
			client.Connection.Close()
			delete(s.clients, id)
		}
		s.mu.Unlock()

		if mdns != nil {
			mdns.Shutdown()
			log.Println("mDNS: Service announcement stopped")
		}
		if s.httpServer != nil {
			err = s.httpServer.Shutdown(ctx)
		}
	})
	return err
}

// startMDNS announces the back office via mDNS/Zeroconf
func (s *Server) startMDNS() {
	port, err := strconv.Atoi(strings.TrimPrefix(s.port, ":"))
	if err != nil {
		log.Printf("mDNS: Invalid port format %s: %v", s.port, err)
		return
	}

	server, err := zeroconf.Register(
		mdnsServiceName,
		mdnsServiceType,
		"local.",
		port,
		[]string{"version=1.0", "api=/api"},
		nil,
	)
	if err != nil {
		log.Printf("mDNS: Failed to register service: %v", err)
		return
	}

	// quit is closed under mu, so a registration finishing after Shutdown is withdrawn here
	s.mu.Lock()
	select {
	case <-s.quit:
		s.mu.Unlock()
		server.Shutdown()
		return
	default:
	}
	s.mdnsServer = server
	s.mu.Unlock()
	log.Printf("mDNS: announced on %s.local", mdnsServiceType)
}

// run handles registration and the heartbeat
func (s *Server) run() {
	if s.logger != nil {
		defer s.logger.RecoverPanic()
	}
	ticker := time.NewTicker(heartbeatPeriod)
	defer ticker.Stop()

	for {
		select {
		case client := <-s.register:
			s.mu.Lock()
			s.clients[client.ID] = client
			s.mu.Unlock()
			log.Printf("Client registered: %s (type: %s)", client.ID, client.Type)
			s.sendWelcome(client)

		case client := <-s.unregister:
			s.mu.Lock()
			if _, ok := s.clients[client.ID]; ok {
				delete(s.clients, client.ID)
				close(client.Send)
				log.Printf("Client unregistered: %s", client.ID)
			}
			s.mu.Unlock()

		case <-ticker.C:
			s.sendHeartbeat()

		case <-s.quit:
			return
		}
	}
}

// handleWebSocket handles WebSocket connection upgrades
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	s.startOnce.Do(func() { go s.run() })

	clientType := ClientType(r.URL.Query().Get("type"))
	switch clientType {
	case ClientPOS, ClientMobile, ClientDashboard:
	default:
		clientType = ClientPOS
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	client := &Client{
		ID:          uuid.NewString(),
		Type:        clientType,
		Connection:  conn,
		Send:        make(chan []byte, sendBufferSize),
		Server:      s,
		ConnectedAt: time.Now(),
		RemoteAddr:  r.RemoteAddr,
	}

	select {
	case s.register <- client:
	case <-s.quit:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// handleHealth handles health check endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	clientCount := len(s.clients)
	s.mu.RUnlock()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"clients": clientCount,
		"time":    time.Now(),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := s.GetServerStatus()
	status["clients"] = s.GetConnectedClients()
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.rest.requireUser(w, r, (*models.User).CanManageUsers); !ok {
		return
	}
	err := s.DisconnectClient(r.PathValue("id"))
	if errors.Is(err, ErrClientNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ws" || s.logger == nil {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.LogRequest(r.Method, r.URL.Path, rec.status, time.Since(start))
	})
}

// Client methods

// readPump handles reading messages from the client
func (c *Client) readPump() {
	defer func() {
		select {
		case c.Server.unregister <- c:
		case <-c.Server.quit:
		}
		c.Connection.Close()
	}()

	c.Connection.SetReadDeadline(time.Now().Add(pongWait))
	c.Connection.SetPongHandler(func(string) error {
		c.Connection.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, messageBytes, err := c.Connection.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		var message Message
		if err := json.Unmarshal(messageBytes, &message); err != nil {
			log.Printf("Error parsing message: %v", err)
			continue
		}
		c.handleMessage(&message)
	}
}

// writePump handles writing messages to the client
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Connection.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Connection.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Connection.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Connection.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.Connection.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Connection.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage handles incoming messages from clients. Clients only listen;
// state changes go through the REST API.
func (c *Client) handleMessage(message *Message) {
	switch message.Type {
	case TypeHeartbeat:
		c.sendMessage(Message{
			Type:      TypeHeartbeat,
			Timestamp: time.Now(),
			Data:      json.RawMessage(`{"status":"alive"}`),
		})
	case TypeNotification:
		// Staff messages are relayed to every other screen
		message.ClientID = c.ID
		message.Timestamp = time.Now()
		c.Server.broadcastExcept(message, c.ID)
	default:
		log.Printf("Unknown message type %s from client %s", message.Type, c.ID)
	}
}

// sendMessage queues a message for the client
func (c *Client) sendMessage(message Message) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}

	select {
	case c.Send <- data:
		return nil
	default:
		return fmt.Errorf("client send channel is full")
	}
}

// Server broadcast methods

// broadcastToAll queues a message on every client; full buffers drop the message
func (s *Server) broadcastToAll(message *Message) {
	s.broadcastExcept(message, "")
}

func (s *Server) broadcastExcept(message *Message, skipID string) {
	data, err := json.Marshal(message)
	if err != nil {
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for id, client := range s.clients {
		if id == skipID {
			continue
		}
		select {
		case client.Send <- data:
		default:
			log.Printf("Failed to send to client %s", client.ID)
		}
	}
}

// sendHeartbeat sends heartbeat to all clients
func (s *Server) sendHeartbeat() {
	s.broadcastToAll(&Message{
		Type:      TypeHeartbeat,
		Timestamp: time.Now(),
		Data:      json.RawMessage(`{"ping":"pong"}`),
	})
}

// sendWelcome tells a new client its id
func (s *Server) sendWelcome(client *Client) {
	data, _ := json.Marshal(map[string]interface{}{
		"client_id": client.ID,
		"message":   "Connected successfully",
	})
	client.sendMessage(Message{
		Type:      TypeWelcome,
		ClientID:  client.ID,
		Timestamp: time.Now(),
		Data:      data,
	})
}

// GetConnectedClients returns list of connected clients
func (s *Server) GetConnectedClients() []map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	clients := make([]map[string]interface{}, 0, len(s.clients))
	for _, client := range s.clients {
		clients = append(clients, map[string]interface{}{
			"id":           client.ID,
			"type":         string(client.Type),
			"connected_at": client.ConnectedAt.Format(time.RFC3339),
			"remote_addr":  client.RemoteAddr,
		})
	}
	return clients
}

// GetServerStatus returns current server status
func (s *Server) GetServerStatus() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byType := map[ClientType]int{}
	for _, client := range s.clients {
		byType[client.Type]++
	}

	return map[string]interface{}{
		"running":           true,
		"port":              s.port,
		"mdns":              s.mdnsServer != nil,
		"total_clients":     len(s.clients),
		"pos_clients":       byType[ClientPOS],
		"mobile_clients":    byType[ClientMobile],
		"dashboard_clients": byType[ClientDashboard],
	}
}

// DisconnectClient disconnects a specific client
func (s *Server) DisconnectClient(clientID string) error {
	s.mu.RLock()
	client, exists := s.clients[clientID]
	s.mu.RUnlock()
	if !exists {
		return fmt.Errorf("%w: %s", ErrClientNotFound, clientID)
	}

	// readPump unregisters the client once the read fails
	return client.Connection.Close()
}
