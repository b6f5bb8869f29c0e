package websocket

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/cristianortiz/evauction/internal/auction/application"
	"github.com/cristianortiz/evauction/internal/auction/domain"
	"github.com/cristianortiz/evauction/internal/shared/logger"
	wshub "github.com/cristianortiz/evauction/internal/shared/websocket"
	"github.com/gofiber/fiber/v2"
	fiberws "github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

// AuctionWSHandler handles the ws inbound msgs wich are specific for auction module (remember is a bounded context)
type AuctionWSHandler struct {
	auctionService application.AuctionService // application layer dependency
	hub            *wshub.Hub                 // shared hub dependency to send msgs
}

// NewAuctionWSHandler creates a new instance of AuctionWSHandler
func NewAuctionWSHandler(auctionService application.AuctionService, hub *wshub.Hub) *AuctionWSHandler {
	return &AuctionWSHandler{
		auctionService: auctionService,
		hub:            hub,
	}
}

// RegisterRoutes mounts the auction room endpoint, GET /ws/auctions/:id.
func (h *AuctionWSHandler) RegisterRoutes(ctx context.Context, router fiber.Router) {
	router.Use("/ws", func(c *fiber.Ctx) error {
		if fiberws.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	router.Get("/ws/auctions/:id", fiberws.New(func(conn *fiberws.Conn) {
		h.serveConn(ctx, conn)
	}))
}

// serveConn blocks for the lifetime of the connection, fiber releases conn on return
func (h *AuctionWSHandler) serveConn(ctx context.Context, conn *fiberws.Conn) {
	auctionID, err := uuid.Parse(conn.Params("id"))
	if err != nil {
		h.rejectConn(conn, domain.ErrInvalidInput, "invalid auction id")
		return
	}
	view, err := h.auctionService.DeriveView(ctx, auctionID)
	if err != nil {
		h.rejectConn(conn, err, err.Error())
		return
	}

	client := wshub.NewClient(h.hub, conn, auctionID.String(), uuid.NewString())
	initial, err := json.Marshal(ServerInitialStateMessage{
		BaseMessage: BaseMessage{Type: MessageTypeServerInitialState},
		Payload:     newAuctionState(view),
	})
	if err != nil {
		log.Error("failed to marshal initial state", zap.String("auctionID", auctionID.String()), zap.Error(err))
		return
	}
	client.Send <- initial
	h.hub.RegisterClient(client)

	go client.WritePump(ctx)
	client.ReadPump(ctx)
}

func (h *AuctionWSHandler) rejectConn(conn *fiberws.Conn, err error, message string) {
	data, merr := json.Marshal(newServerError(err, message))
	if merr != nil {
		log.Error("failed to marshal ServerErrorMessage", zap.Error(merr))
	} else if werr := conn.WriteMessage(fiberws.TextMessage, data); werr != nil {
		log.Debug("failed to write rejection", zap.Error(werr))
	}
	_ = conn.Close()
}

// ListenForMessages starts a go routine that listen the Hub inbound channel for messages and proccess every one of them
func (h *AuctionWSHandler) ListenForMessages(ctx context.Context) {
	log.Info("AuctionWSHandler started listening for inbound messages from hub")
	for {
		select {
		case <-ctx.Done():
			log.Info("AuctionWSHandler stopped listening for inbound messages from hub")
			return
		case msg := <-h.hub.InboundMessages:
			go h.processMessage(ctx, msg.Client, msg.Data)
		}
	}
}

// processMesssage dispatch the message by this type
func (h *AuctionWSHandler) processMessage(ctx context.Context, client *wshub.Client, data []byte) {
	var baseMsg BaseMessage
	if err := json.Unmarshal(data, &baseMsg); err != nil {
		h.sendErrorToClient(client, domain.ErrInvalidInput, "invalid message format")
		return
	}
	switch baseMsg.Type {
	case MessageTypeClientBid:
		h.handleClientBidMessage(ctx, client, data)
	default:
		h.sendErrorToClient(client, domain.ErrInvalidInput, "unknown message type")
	}
}

// handleClientBidMessage places the bid, the room update comes from the event sink
func (h *AuctionWSHandler) handleClientBidMessage(ctx context.Context, client *wshub.Client, data []byte) {
	var bidMsg ClientBidMessage
	if err := json.Unmarshal(data, &bidMsg); err != nil {
		h.sendErrorToClient(client, domain.ErrInvalidInput, "invalid bid message format")
		return
	}

	// a client only bids on the auction it is watching
	if bidMsg.Payload.AuctionID.String() != client.AuctionID {
		h.sendErrorToClient(client, domain.ErrInvalidInput, "auction ID mismatch")
		return
	}

	cmd := application.PlaceBidDTO{
		AuctionID: bidMsg.Payload.AuctionID,
		BidderID:  bidMsg.Payload.BidderID,
		Amount:    bidMsg.Payload.Amount,
	}
	if _, err := h.auctionService.PlaceBidWithRetry(ctx, cmd); err != nil {
		h.sendErrorToClient(client, err, err.Error())
	}
}

func newServerError(err error, message string) ServerErrorMessage {
	errMsg := ServerErrorMessage{
		BaseMessage: BaseMessage{Type: MessageTypeServerError},
	}
	errMsg.Payload.Code = domain.ErrorCode(err)
	errMsg.Payload.Error = message
	errMsg.Payload.Retryable = domain.Retryable(err)
	var tooLow *domain.BidTooLowError
	if errors.As(err, &tooLow) {
		errMsg.Payload.MinAcceptable = tooLow.MinAcceptable
	}
	return errMsg
}

// sendErrorToClient serializes an error msg and hands it to the hub for a specific client
func (h *AuctionWSHandler) sendErrorToClient(client *wshub.Client, err error, message string) {
	data, merr := json.Marshal(newServerError(err, message))
	if merr != nil {
		log.Error("failed to marshal ServerErrorMessage", zap.Error(merr))
		return
	}
	h.hub.SendToClient(client, data)
	log.Debug("queued error message for client", zap.String("clientID", client.ID), zap.String("code", domain.ErrorCode(err)))
}
