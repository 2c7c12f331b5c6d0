package ws

import (
	"context"
	"net/http"
	"sync"
	"time"

	"gavel-auction-engine/internal/domain/auction"
	"gavel-auction-engine/internal/domain/bid"
	"gavel-auction-engine/internal/domain/money"
	"gavel-auction-engine/internal/domain/shared"
	"gavel-auction-engine/internal/ports/inbound"
	"gavel-auction-engine/internal/ports/outbound"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Handler manages WebSocket connections and routes client messages to the
// engines. It is a thin transport: all auction semantics live behind the
// inbound ports.
type Handler struct {
	clients       map[string]*Client // clientID -> Client
	clientsMu     sync.RWMutex
	eventChannels map[string]chan outbound.Event // clientID -> local event channel
	channelsMu    sync.RWMutex
	upgrader      websocket.Upgrader

	auctions   inbound.AuctionService
	bidding    inbound.BiddingEngine
	settlement inbound.SettlementEngine
	watchlist  inbound.WatchlistService

	broadcaster outbound.Broadcaster
	logger      zerolog.Logger
}

type HandlerParams struct {
	Upgrader    websocket.Upgrader
	Auctions    inbound.AuctionService
	Bidding     inbound.BiddingEngine
	Settlement  inbound.SettlementEngine
	Watchlist   inbound.WatchlistService
	Broadcaster outbound.Broadcaster
	Logger      zerolog.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(params HandlerParams) *Handler {
	return &Handler{
		clients:       make(map[string]*Client),
		eventChannels: make(map[string]chan outbound.Event),
		upgrader:      params.Upgrader,
		auctions:      params.Auctions,
		bidding:       params.Bidding,
		settlement:    params.Settlement,
		watchlist:     params.Watchlist,
		broadcaster:   params.Broadcaster,
		logger:        params.Logger.With().Str("component", "ws_handler").Logger(),
	}
}

// HandleWebSocket handles WebSocket connection upgrades. The user ID comes
// from the identity layer in front of this service; here it is an opaque
// query parameter.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	userIDStr := r.URL.Query().Get("user_id")
	if userIDStr == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		http.Error(w, "invalid user_id format", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}

	client := NewClient(ClientParams{
		UserID:  userID,
		Conn:    conn,
		Handler: h,
		Logger:  h.logger,
	})

	h.registerClient(client)
	h.createEventChannel(client.id)
	client.Start()
	go h.forwardEvents(client)
	go func() {
		<-client.ctx.Done()
		h.unregisterClient(client)
	}()

	h.logger.Info().Str("client_id", client.id).Str("user_id", userID.String()).Msg("WebSocket client connected")
}

func (h *Handler) createEventChannel(clientID string) chan outbound.Event {
	h.channelsMu.Lock()
	defer h.channelsMu.Unlock()

	if eventChan, exists := h.eventChannels[clientID]; exists {
		return eventChan
	}
	eventChan := make(chan outbound.Event, 100)
	h.eventChannels[clientID] = eventChan
	return eventChan
}

func (h *Handler) getEventChannel(clientID string) chan outbound.Event {
	h.channelsMu.RLock()
	defer h.channelsMu.RUnlock()
	return h.eventChannels[clientID]
}

func (h *Handler) removeEventChannel(clientID string) {
	h.channelsMu.Lock()
	defer h.channelsMu.Unlock()

	if eventChan, exists := h.eventChannels[clientID]; exists {
		close(eventChan)
		delete(h.eventChannels, clientID)
	}
}

func (h *Handler) registerClient(client *Client) {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()
	h.clients[client.id] = client
}

func (h *Handler) unregisterClient(client *Client) {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()

	delete(h.clients, client.id)
	client.Stop()
	if err := h.broadcaster.UnsubscribeAll(context.Background(), client.id); err != nil {
		h.logger.Error().Err(err).Str("client_id", client.id).Msg("Failed to release broadcaster subscriptions")
	}
	h.removeEventChannel(client.id)

	h.logger.Info().
		Str("client_id", client.id).
		Int("total_clients", len(h.clients)).
		Msg("WebSocket client disconnected")
}

// ConnectedClients returns the number of connected clients
func (h *Handler) ConnectedClients() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}

// forwardEvents drains the client's broadcast channel into its socket.
func (h *Handler) forwardEvents(client *Client) {
	eventChan := h.getEventChannel(client.id)
	if eventChan == nil {
		h.logger.Error().Str("client_id", client.id).Msg("No event channel found for client")
		return
	}

	for {
		select {
		case event, ok := <-eventChan:
			if !ok {
				return
			}
			if err := client.Send(h.eventToMessage(event)); err != nil {
				h.logger.Error().Err(err).Str("client_id", client.id).Msg("Failed to forward event to client")
			}
		case <-client.ctx.Done():
			return
		}
	}
}

func (h *Handler) eventToMessage(event outbound.Event) *ServerMessage {
	msgType := MessageTypeAuctionUpdate
	switch event.Type {
	case outbound.EventTypeBidAccepted:
		msgType = MessageTypeBidAccepted
	case outbound.EventTypeAuctionSettled:
		msgType = MessageTypeAuctionSettled
	case outbound.EventTypeAuctionCancelled:
		msgType = MessageTypeAuctionCancelled
	case outbound.EventTypeAuctionCreated:
		msgType = MessageTypeAuctionCreated
	}
	return &ServerMessage{
		Type:      msgType,
		AuctionID: &event.AuctionID,
		Data:      event.Data,
		Timestamp: event.Timestamp,
	}
}

func (h *Handler) HandleClientMessage(client *Client, msg *ClientMessage) error {
	switch msg.Type {
	case MessageTypeSubscribe:
		return h.handleSubscribe(client, msg)
	case MessageTypeUnsubscribe:
		return h.handleUnsubscribe(client, msg)
	case MessageTypePlaceBid:
		return h.handlePlaceBid(client, msg)
	case MessageTypeCreateAuction:
		return h.handleCreateAuction(client, msg)
	case MessageTypeCloseAuction:
		return h.handleCloseAuction(client, msg)
	case MessageTypeCancelAuction:
		return h.handleCancelAuction(client, msg)
	case MessageTypeGetAuction:
		return h.handleGetAuction(client, msg)
	case MessageTypeListAuctions:
		return h.handleListAuctions(client, msg)
	case MessageTypeBidHistory:
		return h.handleBidHistory(client, msg)
	case MessageTypeWatch:
		return h.handleWatch(client, msg)
	case MessageTypeUnwatch:
		return h.handleUnwatch(client, msg)
	default:
		h.logger.Warn().Str("client_id", client.id).Str("message_type", string(msg.Type)).Msg("Unknown message type")
		return shared.ErrUnknownMessageType
	}
}

func (h *Handler) handleSubscribe(client *Client, msg *ClientMessage) error {
	eventChan := h.getEventChannel(client.id)
	if eventChan == nil {
		return shared.ErrInvalidRequest
	}

	if err := h.broadcaster.Subscribe(context.Background(), *msg.AuctionID, client.id, eventChan); err != nil {
		h.logger.Error().Err(err).Str("client_id", client.id).Str("auction_id", msg.AuctionID.String()).Msg("Failed to subscribe to auction")
		return err
	}

	response := NewServerMessage(MessageTypeAuctionUpdate)
	response.AuctionID = msg.AuctionID
	response.Data["status"] = "subscribed"
	return client.Send(response)
}

func (h *Handler) handleUnsubscribe(client *Client, msg *ClientMessage) error {
	if err := h.broadcaster.Unsubscribe(context.Background(), *msg.AuctionID, client.id); err != nil {
		return err
	}

	response := NewServerMessage(MessageTypeAuctionUpdate)
	response.AuctionID = msg.AuctionID
	response.Data["status"] = "unsubscribed"
	return client.Send(response)
}

func (h *Handler) handlePlaceBid(client *Client, msg *ClientMessage) error {
	amountMinor, currency, err := msg.amountMinor()
	if err != nil {
		return err
	}
	amount, err := money.New(amountMinor, currency)
	if err != nil {
		return shared.ErrAmountRequired
	}

	result, err := h.bidding.PlaceBid(context.Background(), inbound.PlaceBidRequest{
		AuctionID: *msg.AuctionID,
		BidderID:  client.userID,
		ClientID:  client.id,
		Amount:    amount,
	})
	if err != nil {
		return client.Send(NewErrorMessage(err.Error(), msg.AuctionID))
	}

	response := NewServerMessage(MessageTypeBidResult)
	response.AuctionID = msg.AuctionID
	response.Data["outcome"] = string(result.Outcome)
	response.Data["bid_id"] = result.Attempt.ID
	if result.NewPrice != nil {
		response.Data["new_price_minor"] = result.NewPrice.AmountMinor()
		response.Data["currency"] = result.NewPrice.Currency()
	}
	return client.Send(response)
}

func (h *Handler) handleCreateAuction(client *Client, msg *ClientMessage) error {
	itemIDStr, ok := msg.Data["item_id"].(string)
	if !ok {
		return shared.ErrItemIDRequired
	}
	itemID, err := uuid.Parse(itemIDStr)
	if err != nil {
		return shared.ErrItemIDRequired
	}

	startTime, _ := msg.Data["start_time"].(string)
	endTime, _ := msg.Data["end_time"].(string)
	amountMinor, currency, err := msg.amountMinor()
	if err != nil {
		return err
	}
	startingPrice, err := money.New(amountMinor, currency)
	if err != nil {
		return shared.ErrAmountRequired
	}

	created, err := h.auctions.CreateAuction(context.Background(), inbound.CreateAuctionRequest{
		ItemID:        itemID,
		SellerID:      client.userID,
		StartTime:     startTime,
		EndTime:       endTime,
		StartingPrice: startingPrice,
	})
	if err != nil {
		return client.Send(NewErrorMessage(err.Error(), nil))
	}

	h.notifyWatchers(created, client.id)

	return client.Send(h.auctionResponse(created, MessageTypeAuctionCreated, nil))
}

// notifyWatchers pushes an auction-created message to every connected client
// whose user watches the item. The creating client is skipped; it receives
// the create response directly.
func (h *Handler) notifyWatchers(a *auction.Auction, originClientID string) {
	watchers, err := h.watchlist.WatchersForItem(context.Background(), a.ItemID)
	if err != nil {
		h.logger.Error().Err(err).Str("item_id", a.ItemID.String()).Msg("Failed to load watchers for item")
		return
	}
	if len(watchers) == 0 {
		return
	}

	watcherSet := make(map[uuid.UUID]bool, len(watchers))
	for _, userID := range watchers {
		watcherSet[userID] = true
	}

	msg := h.auctionResponse(a, MessageTypeAuctionCreated, &a.ID)

	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	for _, c := range h.clients {
		if c.id == originClientID || !watcherSet[c.userID] {
			continue
		}
		if err := c.Send(msg); err != nil {
			h.logger.Warn().Err(err).
				Str("client_id", c.id).
				Str("auction_id", a.ID.String()).
				Msg("Failed to notify watcher of new auction")
		}
	}
}

func (h *Handler) handleCloseAuction(client *Client, msg *ClientMessage) error {
	if err := h.settlement.Close(context.Background(), *msg.AuctionID, time.Time{}); err != nil {
		return client.Send(NewErrorMessage(err.Error(), msg.AuctionID))
	}

	response := NewServerMessage(MessageTypeAuctionUpdate)
	response.AuctionID = msg.AuctionID
	response.Data["status"] = "closed"
	return client.Send(response)
}

func (h *Handler) handleCancelAuction(client *Client, msg *ClientMessage) error {
	if err := h.settlement.Cancel(context.Background(), *msg.AuctionID, time.Time{}); err != nil {
		return client.Send(NewErrorMessage(err.Error(), msg.AuctionID))
	}

	response := NewServerMessage(MessageTypeAuctionCancelled)
	response.AuctionID = msg.AuctionID
	return client.Send(response)
}

func (h *Handler) handleGetAuction(client *Client, msg *ClientMessage) error {
	a, err := h.auctions.GetAuction(context.Background(), *msg.AuctionID)
	if err != nil {
		return client.Send(NewErrorMessage(err.Error(), msg.AuctionID))
	}
	return client.Send(h.auctionResponse(a, MessageTypeAuctionUpdate, msg.AuctionID))
}

func (h *Handler) handleListAuctions(client *Client, msg *ClientMessage) error {
	limit := 10
	if limitVal, ok := msg.Data["limit"].(float64); ok && limitVal > 0 {
		limit = int(limitVal)
	}
	page := 1
	if pageVal, ok := msg.Data["page"].(float64); ok && pageVal > 0 {
		page = int(pageVal)
	}
	var state *auction.State
	if stateStr, ok := msg.Data["state"].(string); ok {
		s := auction.State(stateStr)
		state = &s
	}

	auctions, err := h.auctions.ListAuctions(context.Background(), inbound.ListAuctionsRequest{
		State:    state,
		Page:     page,
		PageSize: limit,
	})
	if err != nil {
		return client.Send(NewErrorMessage(err.Error(), nil))
	}

	response := NewServerMessage(MessageTypeAuctionUpdate)
	response.Data["auctions"] = auctions
	response.Data["count"] = len(auctions)
	return client.Send(response)
}

func (h *Handler) handleBidHistory(client *Client, msg *ClientMessage) error {
	history, err := h.bidding.BidHistory(context.Background(), *msg.AuctionID)
	if err != nil {
		return client.Send(NewErrorMessage(err.Error(), msg.AuctionID))
	}

	attempts := make([]map[string]interface{}, 0, len(history))
	for _, attempt := range history {
		attempts = append(attempts, bidAttemptData(attempt))
	}

	response := NewServerMessage(MessageTypeAuctionUpdate)
	response.AuctionID = msg.AuctionID
	response.Data["bid_history"] = attempts
	response.Data["count"] = len(attempts)
	return client.Send(response)
}

func (h *Handler) handleWatch(client *Client, msg *ClientMessage) error {
	itemID, err := itemIDFromData(msg)
	if err != nil {
		return err
	}

	if _, err := h.watchlist.Watch(context.Background(), client.userID, itemID); err != nil {
		return client.Send(NewErrorMessage(err.Error(), nil))
	}

	// Watching an item also subscribes the client to its live auctions, so
	// bid and settlement events arrive without a separate subscribe call.
	var auctionIDs []string
	if live, err := h.auctions.LiveAuctionsForItem(context.Background(), itemID, time.Time{}); err == nil {
		eventChan := h.getEventChannel(client.id)
		for _, a := range live {
			auctionIDs = append(auctionIDs, a.ID.String())
			if eventChan == nil {
				continue
			}
			if err := h.broadcaster.Subscribe(context.Background(), a.ID, client.id, eventChan); err != nil {
				h.logger.Error().Err(err).
					Str("client_id", client.id).
					Str("auction_id", a.ID.String()).
					Msg("Failed to subscribe watcher to auction")
			}
		}
	}

	response := NewServerMessage(MessageTypeAuctionUpdate)
	response.Data["status"] = "watching"
	response.Data["item_id"] = itemID
	response.Data["auction_ids"] = auctionIDs
	return client.Send(response)
}

func (h *Handler) handleUnwatch(client *Client, msg *ClientMessage) error {
	itemID, err := itemIDFromData(msg)
	if err != nil {
		return err
	}

	if err := h.watchlist.Unwatch(context.Background(), client.userID, itemID); err != nil {
		return client.Send(NewErrorMessage(err.Error(), nil))
	}

	response := NewServerMessage(MessageTypeAuctionUpdate)
	response.Data["status"] = "unwatched"
	response.Data["item_id"] = itemID
	return client.Send(response)
}

func itemIDFromData(msg *ClientMessage) (uuid.UUID, error) {
	itemIDStr, ok := msg.Data["item_id"].(string)
	if !ok {
		return uuid.Nil, shared.ErrItemIDRequired
	}
	itemID, err := uuid.Parse(itemIDStr)
	if err != nil {
		return uuid.Nil, shared.ErrItemIDRequired
	}
	return itemID, nil
}

func bidAttemptData(attempt *bid.Attempt) map[string]interface{} {
	return map[string]interface{}{
		"bid_id":       attempt.ID,
		"bidder_id":    attempt.BidderID,
		"amount_minor": attempt.Amount.AmountMinor(),
		"currency":     attempt.Amount.Currency(),
		"outcome":      string(attempt.Outcome),
		"submitted_at": attempt.SubmittedAt.Format(time.RFC3339),
		"sequence":     attempt.Sequence,
	}
}

func (h *Handler) auctionResponse(a *auction.Auction, msgType MessageType, auctionID *uuid.UUID) *ServerMessage {
	response := NewServerMessage(msgType)
	if auctionID != nil {
		response.AuctionID = auctionID
	}

	current := a.CurrentPrice()
	response.Data["auction_id"] = a.ID
	response.Data["item_id"] = a.ItemID
	response.Data["seller_id"] = a.SellerID
	response.Data["start_time"] = a.StartTime.Format(time.RFC3339)
	response.Data["end_time"] = a.EndTime.Format(time.RFC3339)
	response.Data["starting_price_minor"] = a.StartingPrice.AmountMinor()
	response.Data["current_price_minor"] = current.AmountMinor()
	response.Data["currency"] = current.Currency()
	response.Data["state"] = string(a.StateAt(time.Now().UTC()))
	return response
}
