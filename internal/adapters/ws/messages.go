package ws

import (
	"encoding/json"
	"fmt"
	"time"

	"gavel-auction-engine/internal/domain/shared"

	"github.com/google/uuid"
)

type MessageType string

const (
	// Client to Server message types
	MessageTypeSubscribe     MessageType = "subscribe"
	MessageTypeUnsubscribe   MessageType = "unsubscribe"
	MessageTypePlaceBid      MessageType = "place_bid"
	MessageTypeCreateAuction MessageType = "create_auction"
	MessageTypeCloseAuction  MessageType = "close_auction"
	MessageTypeCancelAuction MessageType = "cancel_auction"
	MessageTypeGetAuction    MessageType = "get_auction"
	MessageTypeListAuctions  MessageType = "list_auctions"
	MessageTypeBidHistory    MessageType = "bid_history"
	MessageTypeWatch         MessageType = "watch"
	MessageTypeUnwatch       MessageType = "unwatch"
	MessageTypePing          MessageType = "ping"

	// Server to Client message types
	MessageTypeBidResult        MessageType = "bid_result"
	MessageTypeBidAccepted      MessageType = "bid_accepted"
	MessageTypeAuctionSettled   MessageType = "auction_settled"
	MessageTypeAuctionCancelled MessageType = "auction_cancelled"
	MessageTypeAuctionUpdate    MessageType = "auction_update"
	MessageTypeAuctionCreated   MessageType = "auction_created"
	MessageTypeError            MessageType = "error"
	MessageTypePong             MessageType = "pong"
)

// ClientMessage is a message sent from client to server. Amounts travel as
// integer minor units plus currency code.
type ClientMessage struct {
	Type      MessageType            `json:"type"`
	AuctionID *uuid.UUID             `json:"auction_id,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Timestamp int64                  `json:"timestamp"`
}

// ServerMessage represents a message sent from server to client
type ServerMessage struct {
	Type      MessageType            `json:"type"`
	AuctionID *uuid.UUID             `json:"auction_id,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Error     *string                `json:"error,omitempty"`
	Timestamp int64                  `json:"timestamp"`
}

func NewServerMessage(msgType MessageType) *ServerMessage {
	return &ServerMessage{
		Type:      msgType,
		Data:      make(map[string]interface{}),
		Timestamp: time.Now().Unix(),
	}
}

func NewErrorMessage(err string, auctionID *uuid.UUID) *ServerMessage {
	return &ServerMessage{
		Type:      MessageTypeError,
		AuctionID: auctionID,
		Error:     &err,
		Timestamp: time.Now().Unix(),
	}
}

// ParseClientMessage parses a JSON message from client
func ParseClientMessage(data []byte) (*ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse client message: %w", err)
	}

	if msg.Type == "" {
		return nil, shared.ErrMessageTypeRequired
	}
	return &msg, nil
}

func (m *ClientMessage) validateAuctionID() error {
	if m.AuctionID == nil || *m.AuctionID == uuid.Nil {
		return shared.ErrAuctionIDRequired
	}
	return nil
}

// amountMinor extracts an integer minor-unit amount from the data map. JSON
// numbers arrive as float64; an amount with a fractional part is invalid
// rather than silently truncated.
func (m *ClientMessage) amountMinor() (int64, string, error) {
	raw, ok := m.Data["amount_minor"].(float64)
	if !ok || raw != float64(int64(raw)) {
		return 0, "", shared.ErrAmountRequired
	}
	currency, ok := m.Data["currency"].(string)
	if !ok || len(currency) != 3 {
		return 0, "", shared.ErrAmountRequired
	}
	return int64(raw), currency, nil
}

// Validate validates a client message
func (m *ClientMessage) Validate() error {
	switch m.Type {
	case MessageTypeSubscribe, MessageTypeUnsubscribe, MessageTypeGetAuction,
		MessageTypeBidHistory, MessageTypeCloseAuction, MessageTypeCancelAuction:
		return m.validateAuctionID()

	case MessageTypePlaceBid:
		if err := m.validateAuctionID(); err != nil {
			return err
		}
		if _, _, err := m.amountMinor(); err != nil {
			return err
		}

	case MessageTypeCreateAuction:
		if m.Data["item_id"] == nil {
			return shared.ErrItemIDRequired
		}
		if m.Data["start_time"] == nil {
			return shared.ErrStartTimeRequired
		}
		if m.Data["end_time"] == nil {
			return shared.ErrEndTimeRequired
		}
		if _, _, err := m.amountMinor(); err != nil {
			return err
		}

	case MessageTypeWatch, MessageTypeUnwatch:
		if m.Data["item_id"] == nil {
			return shared.ErrItemIDRequired
		}

	case MessageTypeListAuctions, MessageTypePing:

	default:
		return shared.ErrUnknownMessageType
	}
	return nil
}
