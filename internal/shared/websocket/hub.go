package websocket

import (
	"context"
	"time"

	"github.com/cristianortiz/evauction/internal/shared/logger"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

// Constants for WebSocket configuration
const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512

	// Capacity of the hub queues and of each client's send buffer.
	queueSize = 256
)

// Hub keeps client's registry and handle messages broadcasting
type Hub struct {
	// Registered clients, grouped by auction ID.
	// The inner map keys are clients, and the boolean value is ignored.
	clients map[string]map[*Client]bool
	// Outbound messages for every client watching an auction
	broadcast chan *Message
	// Register requests from the clients.
	register chan *Client
	// Unregister requests from clients.
	unregister      chan *Client
	InboundMessages chan *ClientMessage // listened to by module handlers (e.g, auction handler)
}

// Client represents a ws individual connection
type Client struct {
	Hub *Hub
	// The websocket connection.
	Conn *websocket.Conn
	// Buffered channel of outbound messages.
	Send chan []byte
	// The auction this client is watching.
	AuctionID string
	// Unique identifier for the client
	ID string
	// set once the hub closed Send, only the hub goroutine reads or writes it
	closed bool
}

// Message is queued for delivery by the hub goroutine. When Client is set the
// message goes to that client alone.
type Message struct {
	AuctionID string
	Client    *Client
	Data      []byte
}

// ClientMessage is used for wraping the client and data message received.
// is used to send inbound messages from the client to the hub handlers
type ClientMessage struct {
	Client *Client
	Data   []byte
}

func NewHub() *Hub {
	return &Hub{
		broadcast:       make(chan *Message, queueSize),
		register:        make(chan *Client, queueSize),
		unregister:      make(chan *Client, queueSize),
		clients:         make(map[string]map[*Client]bool),
		InboundMessages: make(chan *ClientMessage, queueSize),
	}
}

// NewClient builds a client for conn watching auctionID, with a buffered send queue.
func NewClient(h *Hub, conn *websocket.Conn, auctionID, id string) *Client {
	return &Client{
		Hub:       h,
		Conn:      conn,
		Send:      make(chan []byte, queueSize),
		AuctionID: auctionID,
		ID:        id,
	}
}

func (c *Client) remoteAddr() string {
	if c.Conn == nil || c.Conn.Conn == nil {
		return ""
	}
	return c.Conn.RemoteAddr().String()
}

func (h *Hub) totalClients() int {
	count := 0
	for _, auctionClients := range h.clients {
		count += len(auctionClients)
	}
	return count
}

// Run starts the hub listening in their channels
func (h *Hub) Run(ctx context.Context) {
	log.Info("Websocket Hub started")
	for {
		select {
		case <-ctx.Done():
			log.Info("WebSocket Hub shutting down due to context cancellation")
			h.closeAll()
			return
		case client := <-h.register:
			h.add(client)

		case client := <-h.unregister:
			h.remove(client)

		case message := <-h.broadcast:
			h.deliver(message)
		}
	}
}

func (h *Hub) add(client *Client) {
	if _, ok := h.clients[client.AuctionID]; !ok {
		h.clients[client.AuctionID] = make(map[*Client]bool)
	}
	h.clients[client.AuctionID][client] = true
	log.Info("Client registered",
		zap.String("clientID", client.ID),
		zap.String("auctionID", client.AuctionID),
		zap.String("remote_addr", client.remoteAddr()),
		zap.Int("total_clients", h.totalClients()),
	)
}

// deliver sends the message to all the clients in the auction group, or to its target client
func (h *Hub) deliver(message *Message) {
	if message.Client != nil {
		h.deliverTo(message.Client, message.Data)
		return
	}
	clients, ok := h.clients[message.AuctionID]
	if !ok {
		return
	}
	log.Debug("Broadcasting message to auction", zap.String("auctionID", message.AuctionID), zap.Int("clients", len(clients)))
	for client := range clients {
		select {
		case client.Send <- message.Data:
		default:
			// slow consumer, drop it rather than stall the whole auction
			log.Warn("Failed to Send message to client, unregistering",
				zap.String("clientID", client.ID),
				zap.String("auctionID", client.AuctionID),
				zap.String("remote_addr", client.remoteAddr()),
			)
			h.remove(client)
		}
	}
}

// deliverTo may run before the client's registration is served, Send is open until closed is set
func (h *Hub) deliverTo(client *Client, data []byte) {
	if client.closed {
		log.Debug("Client gone, direct message dropped", zap.String("clientID", client.ID))
		return
	}
	select {
	case client.Send <- data:
	default:
		log.Warn("Failed to Send direct message to client, unregistering",
			zap.String("clientID", client.ID),
			zap.String("auctionID", client.AuctionID),
		)
		h.remove(client)
	}
}

func (h *Hub) remove(client *Client) {
	clients, ok := h.clients[client.AuctionID]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}
	delete(clients, client)
	client.closed = true
	close(client.Send)
	log.Info("Client unregistered",
		zap.String("clientID", client.ID),
		zap.String("auctionID", client.AuctionID),
		zap.String("remote_addr", client.remoteAddr()),
		zap.Int("total_clients", h.totalClients()),
	)
	if len(clients) == 0 {
		delete(h.clients, client.AuctionID)
		log.Debug("Auction group removed as empty", zap.String("auctionID", client.AuctionID))
	}
}

// closeAll closes every send queue so the write pumps say goodbye to their peers.
func (h *Hub) closeAll() {
	for auctionID, clients := range h.clients {
		for client := range clients {
			client.closed = true
			close(client.Send)
		}
		delete(h.clients, auctionID)
	}
}

// RegisterClient register a new client in the hub
func (h *Hub) RegisterClient(client *Client) {
	select { // Use select to avoid blocking if channel is full
	case h.register <- client:
		log.Debug("Client queued for registration",
			zap.String("clientID", client.ID),
			zap.String("auctionID", client.AuctionID),
		)
	default:
		log.Error("Register channel is full, client registration failed",
			zap.String("clientID", client.ID),
			zap.String("auctionID", client.AuctionID),
		)
		if client.Conn != nil {
			_ = client.Conn.Close()
		}
	}
}

// UnregisterClient delete a client from the hub
func (h *Hub) UnregisterClient(client *Client) {
	select { // Use select to avoid blocking if channel is full
	case h.unregister <- client:
		log.Debug("Client queued for unregistration",
			zap.String("clientID", client.ID),
			zap.String("auctionID", client.AuctionID),
		)
	default:
		log.Error("Unregister channel is full, client unregistration failed",
			zap.String("clientID", client.ID),
			zap.String("auctionID", client.AuctionID),
		)
	}
}

// BroadcastMessageToAuction queues data for every client watching auctionID.
func (h *Hub) BroadcastMessageToAuction(auctionID string, data []byte) {
	select { // Use select to avoid blocking if channel is full
	case h.broadcast <- &Message{AuctionID: auctionID, Data: data}:
		log.Debug("Message queued for broadcast", zap.String("auctionID", auctionID))
	default:
		log.Error("Broadcast channel is full, message dropped", zap.String("auctionID", auctionID))
	}
}

// SendToClient queues data for one client. Delivery runs on the hub goroutine, which owns
// Send, so a client that already went away just misses the message.
func (h *Hub) SendToClient(client *Client, data []byte) {
	select {
	case h.broadcast <- &Message{AuctionID: client.AuctionID, Client: client, Data: data}:
		log.Debug("Message queued for client", zap.String("clientID", client.ID))
	default:
		log.Error("Broadcast channel is full, direct message dropped", zap.String("clientID", client.ID))
	}
}

// ReadPump reads client messages and hands them to the hub's InboundMessages channel.
// Runs in its own goroutine per client.
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.Hub.UnregisterClient(c)
		c.Conn.Close()
		log.Info("ReadPump stopped for client",
			zap.String("clientID", c.ID),
			zap.String("auctionID", c.AuctionID),
			zap.String("remote_addr", c.remoteAddr()),
		)
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error { c.Conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	log.Info("ReadPump started for client",
		zap.String("clientID", c.ID),
		zap.String("auctionID", c.AuctionID),
		zap.String("remote_addr", c.remoteAddr()),
	)

	for {
		select {
		case <-ctx.Done():
			log.Info("ReadPump context cancelled for client",
				zap.String("clientID", c.ID),
				zap.String("auctionID", c.AuctionID),
			)
			return
		default:
		}

		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Error("WebSocket read error",
					zap.String("clientID", c.ID),
					zap.String("auctionID", c.AuctionID),
					zap.String("remote_addr", c.remoteAddr()),
					zap.Error(err),
				)
			} else {
				log.Info("WebSocket connection closed by peer",
					zap.String("clientID", c.ID),
					zap.String("auctionID", c.AuctionID),
					zap.String("remote_addr", c.remoteAddr()),
					zap.Error(err),
				)
			}
			return
		}

		log.Debug("Received message from client",
			zap.String("clientID", c.ID),
			zap.String("auctionID", c.AuctionID),
			zap.ByteString("message", message),
		)

		select {
		case c.Hub.InboundMessages <- &ClientMessage{Client: c, Data: message}:
		default:
			// handlers are not keeping up
			log.Error("Hub InboundMessages channel is full, dropping message",
				zap.String("clientID", c.ID),
				zap.String("auctionID", c.AuctionID),
				zap.ByteString("message", message),
			)
		}
	}
}

// WritePump pumps messages from the hub to the websocket connection.
// A goroutine running WritePump is started for each connection. The
// application ensures that there is at most one writer to a connection by
// invoking WriteControl and WriteMessage from a single goroutine.
func (c *Client) WritePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Hub.UnregisterClient(c)
		c.Conn.Close()
		log.Info("WritePump stopped for client",
			zap.String("clientID", c.ID),
			zap.String("auctionID", c.AuctionID),
			zap.String("remote_addr", c.remoteAddr()),
		)
	}()

	for {
		select {
		case <-ctx.Done():
			err := c.Conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			if err != nil {
				log.Error("Failed to send close control message",
					zap.String("clientID", c.ID),
					zap.String("auctionID", c.AuctionID),
					zap.Error(err),
				)
			}
			return

		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The Hub closed the channel.
				if err := c.Conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
					log.Debug("Failed to write close message after channel close",
						zap.String("clientID", c.ID),
						zap.String("auctionID", c.AuctionID),
						zap.Error(err),
					)
				}
				return
			}

			// one JSON document per frame, clients parse frames independently
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error("Failed to write message to client",
					zap.String("clientID", c.ID),
					zap.String("auctionID", c.AuctionID),
					zap.Error(err),
				)
				return
			}

		case <-ticker.C:
			if err := c.Conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				log.Error("Failed to write ping message to client",
					zap.String("clientID", c.ID),
					zap.String("auctionID", c.AuctionID),
					zap.Error(err),
				)
				return
			}
		}
	}
}
