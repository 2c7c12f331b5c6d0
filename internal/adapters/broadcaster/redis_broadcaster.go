package broadcaster

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"gavel-auction-engine/internal/ports/outbound"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisBroadcaster implements the broadcaster interface using Redis pub/sub.
// Each auction has one channel; a client holds one pubsub connection and one
// local event channel no matter how many auctions it follows. The event
// channel belongs to the caller that registered it; the broadcaster only
// drops its reference, it never closes the channel.
type RedisBroadcaster struct {
	client           *redis.Client
	subscribers      map[string]chan outbound.Event // clientID -> local channel
	pubsubs          map[string]*redis.PubSub       // clientID -> pubsub instance
	clientsToAuction map[string]map[string]bool     // clientID -> auctionID -> subscribed
	mu               sync.RWMutex
	ctx              context.Context
	cancel           context.CancelFunc
	logger           zerolog.Logger
}

type RedisBroadcasterParams struct {
	RedisClient *redis.Client
	Logger      zerolog.Logger
}

func NewBroadcaster(params RedisBroadcasterParams) *RedisBroadcaster {
	ctx, cancel := context.WithCancel(context.Background())

	return &RedisBroadcaster{
		client:           params.RedisClient,
		subscribers:      make(map[string]chan outbound.Event),
		pubsubs:          make(map[string]*redis.PubSub),
		clientsToAuction: make(map[string]map[string]bool),
		ctx:              ctx,
		cancel:           cancel,
		logger:           params.Logger.With().Str("component", "redis_broadcaster").Logger(),
	}
}

func auctionChannel(auctionID uuid.UUID) string {
	return fmt.Sprintf("auction:%s", auctionID.String())
}

// Subscribe subscribes a client to events for a specific auction
func (r *RedisBroadcaster) Subscribe(ctx context.Context, auctionID uuid.UUID, clientID string, eventChan chan outbound.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.clientsToAuction[clientID] != nil && r.clientsToAuction[clientID][auctionID.String()] {
		r.logger.Debug().
			Str("client_id", clientID).
			Str("auction_id", auctionID.String()).
			Msg("Client already subscribed to auction")
		return nil
	}

	if r.subscribers[clientID] == nil {
		r.subscribers[clientID] = eventChan
	}
	if r.clientsToAuction[clientID] == nil {
		r.clientsToAuction[clientID] = make(map[string]bool)
	}
	r.clientsToAuction[clientID][auctionID.String()] = true

	pubsub, exists := r.pubsubs[clientID]
	if !exists {
		pubsub = r.client.Subscribe(ctx)
		r.pubsubs[clientID] = pubsub
		go r.forwardRedisMessages(pubsub, clientID, eventChan)
	}

	if err := pubsub.Subscribe(ctx, auctionChannel(auctionID)); err != nil {
		r.logger.Error().Err(err).
			Str("client_id", clientID).
			Str("auction_id", auctionID.String()).
			Msg("Failed to subscribe to Redis channel")
		return err
	}

	r.logger.Info().
		Str("client_id", clientID).
		Str("auction_id", auctionID.String()).
		Msg("Client subscribed to auction")
	return nil
}

// Unsubscribe unsubscribes a client from events for a specific auction
func (r *RedisBroadcaster) Unsubscribe(ctx context.Context, auctionID uuid.UUID, clientID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	clientAuctions, exists := r.clientsToAuction[clientID]
	if !exists {
		return nil
	}
	delete(clientAuctions, auctionID.String())

	if len(clientAuctions) == 0 {
		r.dropClientLocked(clientID)
	} else if pubsub, ok := r.pubsubs[clientID]; ok {
		if err := pubsub.Unsubscribe(ctx, auctionChannel(auctionID)); err != nil {
			r.logger.Error().Err(err).
				Str("client_id", clientID).
				Str("auction_id", auctionID.String()).
				Msg("Error unsubscribing from Redis channel")
		}
	}

	r.logger.Info().
		Str("client_id", clientID).
		Str("auction_id", auctionID.String()).
		Msg("Client unsubscribed from auction")
	return nil
}

// UnsubscribeAll removes every subscription a client holds and closes its
// pubsub connection. Called when the client disconnects; without it the
// pubsub and the bookkeeping entries outlive the client.
func (r *RedisBroadcaster) UnsubscribeAll(ctx context.Context, clientID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.clientsToAuction[clientID]; !exists && r.pubsubs[clientID] == nil && r.subscribers[clientID] == nil {
		return nil
	}
	r.dropClientLocked(clientID)

	r.logger.Info().Str("client_id", clientID).Msg("Client unsubscribed from all auctions")
	return nil
}

// dropClientLocked removes a client's bookkeeping and closes its pubsub.
// Caller holds r.mu. The client's event channel is left open for its owner.
func (r *RedisBroadcaster) dropClientLocked(clientID string) {
	delete(r.clientsToAuction, clientID)
	delete(r.subscribers, clientID)

	if pubsub, ok := r.pubsubs[clientID]; ok {
		if err := pubsub.Close(); err != nil {
			r.logger.Error().Err(err).Str("client_id", clientID).Msg("Error closing Redis pubsub for client")
		}
		delete(r.pubsubs, clientID)
	}
}

// Publish publishes an event to all subscribers of an auction via Redis
func (r *RedisBroadcaster) Publish(ctx context.Context, auctionID uuid.UUID, event outbound.Event) error {
	if event.Timestamp == 0 {
		event.Timestamp = time.Now().Unix()
	}

	eventJSON, err := json.Marshal(event)
	if err != nil {
		r.logger.Error().Err(err).Msg("Failed to marshal event")
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	result := r.client.Publish(ctx, auctionChannel(auctionID), eventJSON)
	if err := result.Err(); err != nil {
		r.logger.Error().Err(err).Msg("Failed to publish to Redis")
		return fmt.Errorf("failed to publish to Redis: %w", err)
	}

	r.logger.Debug().
		Str("event_type", string(event.Type)).
		Str("auction_id", auctionID.String()).
		Int64("subscriber_count", result.Val()).
		Msg("Published event to auction")
	return nil
}

// IsSubscribed checks if a client is subscribed to an auction
func (r *RedisBroadcaster) IsSubscribed(ctx context.Context, auctionID uuid.UUID, clientID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	clientAuctions, exists := r.clientsToAuction[clientID]
	if !exists {
		return false
	}
	return clientAuctions[auctionID.String()]
}

// forwardRedisMessages forwards Redis messages to the client's local channel.
func (r *RedisBroadcaster) forwardRedisMessages(pubsub *redis.PubSub, clientID string, localChan chan outbound.Event) {
	defer func() {
		if err := recover(); err != nil {
			r.logger.Error().Interface("panic", err).Str("client_id", clientID).Msg("Redis message forwarder panic")
		}
	}()

	ch := pubsub.Channel()

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				r.logger.Info().Str("client_id", clientID).Msg("Redis channel closed for client")
				return
			}

			var event outbound.Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				r.logger.Error().Err(err).Str("client_id", clientID).Msg("Failed to unmarshal Redis message")
				continue
			}

			select {
			case localChan <- event:
			default:
				r.logger.Warn().Str("client_id", clientID).Msg("Local channel full, dropping event")
			}

		case <-r.ctx.Done():
			return
		}
	}
}

// Close shuts down all client pubsubs and the underlying Redis client.
func (r *RedisBroadcaster) Close() error {
	r.cancel()

	r.mu.Lock()
	defer r.mu.Unlock()

	for clientID := range r.pubsubs {
		r.dropClientLocked(clientID)
	}
	for clientID := range r.subscribers {
		delete(r.subscribers, clientID)
	}
	for clientID := range r.clientsToAuction {
		delete(r.clientsToAuction, clientID)
	}

	return r.client.Close()
}
