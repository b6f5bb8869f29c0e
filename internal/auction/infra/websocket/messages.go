package websocket

import (
	"time"

	"github.com/cristianortiz/evauction/internal/auction/application"
	"github.com/cristianortiz/evauction/internal/auction/domain"
	"github.com/google/uuid"
)

// MessageType defines ws type message
type MessageType string

const (
	MessageTypeClientBid           MessageType = "client_bid"            // client msg to make a bid
	MessageTypeServerAuctionUpdate MessageType = "server_auction_update" // server msg with the refreshed auction view
	MessageTypeServerEvent         MessageType = "server_event"          // server msg carrying a lifecycle event
	MessageTypeServerError         MessageType = "server_error"          // server msg indicating error
	MessageTypeServerInitialState  MessageType = "server_initial_state"  // server msg with auction state on connect
)

// BaseMessage is base struct for all the WS messages, includes a Type field for identify the message type
type BaseMessage struct {
	Type MessageType `json:"type"`
}

// ClientBidMessage is DTO for a bid message sended by the client
type ClientBidMessage struct {
	BaseMessage
	Payload struct {
		AuctionID uuid.UUID `json:"auction_id"`
		BidderID  string    `json:"bidder_id"`
		Amount    int64     `json:"amount"`
	} `json:"payload"`
}

// AuctionState is the auction payload shared by the initial state and update messages
type AuctionState struct {
	AuctionID            uuid.UUID     `json:"auction_id"`
	ListingRef           string        `json:"listing_ref"`
	Status               domain.Status `json:"status"`
	StartingPrice        int64         `json:"starting_price"`
	CurrentPrice         int64         `json:"current_price"`
	MinAcceptable        int64         `json:"min_acceptable"`
	TotalBids            int           `json:"total_bids"`
	ParticipantCount     int           `json:"participant_count"`
	LeadingBidder        string        `json:"leading_bidder,omitempty"`
	StartAt              time.Time     `json:"start_at"`
	EndAt                time.Time     `json:"end_at"`
	TimeRemainingSeconds int64         `json:"time_remaining_seconds"`
}

func newAuctionState(v *application.AuctionView) AuctionState {
	return AuctionState{
		AuctionID:            v.AuctionID,
		ListingRef:           v.ListingRef,
		Status:               v.Status,
		StartingPrice:        v.StartingPrice,
		CurrentPrice:         v.CurrentPrice,
		MinAcceptable:        v.MinAcceptable,
		TotalBids:            v.TotalBids,
		ParticipantCount:     v.ParticipantCount,
		LeadingBidder:        v.LeadingBidder,
		StartAt:              v.StartAt,
		EndAt:                v.EndAt,
		TimeRemainingSeconds: v.TimeRemainingSeconds,
	}
}

// ServerAuctionUpdateMessage is DTO for an auction update msg sended by the server
type ServerAuctionUpdateMessage struct {
	BaseMessage
	Payload AuctionState `json:"payload"`
}

// ServerInitialStateMessage is sent once to a client right after it connects
type ServerInitialStateMessage struct {
	BaseMessage
	Payload AuctionState `json:"payload"`
}

// ServerEventMessage wraps a lifecycle event as it was published
type ServerEventMessage struct {
	BaseMessage
	Payload domain.Event `json:"payload"`
}

type ServerErrorMessage struct {
	BaseMessage
	Payload struct {
		Code          string `json:"code"`
		Error         string `json:"error"`
		MinAcceptable int64  `json:"min_acceptable,omitempty"`
		Retryable     bool   `json:"retryable,omitempty"`
	} `json:"payload"`
}
