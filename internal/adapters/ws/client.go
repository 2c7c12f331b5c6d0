package ws

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gavel-auction-engine/internal/config"

	"github.com/alitto/pond"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Client is one connected websocket peer. Incoming messages are dispatched
// on a per-client worker pool so a slow handler cannot stall the read loop.
type Client struct {
	id         string
	userID     uuid.UUID
	conn       *websocket.Conn
	sendChan   chan *ServerMessage
	ctx        context.Context
	cancel     context.CancelFunc
	handler    *Handler
	workerPool *pond.WorkerPool
	stopped    bool
	mu         sync.Mutex
	logger     zerolog.Logger
}

type ClientParams struct {
	UserID  uuid.UUID
	Conn    *websocket.Conn
	Handler *Handler
	Logger  zerolog.Logger
}

// NewClient creates a new WebSocket client
func NewClient(params ClientParams) *Client {
	ctx, cancel := context.WithCancel(context.Background())

	pool := pond.New(
		config.WSMaxWorkers,
		config.WSMaxCapacity,
		pond.Context(ctx),
		pond.Strategy(pond.Balanced()),
	)

	id := uuid.New().String()
	return &Client{
		id:         id,
		userID:     params.UserID,
		conn:       params.Conn,
		sendChan:   make(chan *ServerMessage, 100),
		ctx:        ctx,
		cancel:     cancel,
		handler:    params.Handler,
		workerPool: pool,
		logger: params.Logger.With().
			Str("component", "ws_client").
			Str("client_id", id).
			Str("user_id", params.UserID.String()).
			Logger(),
	}
}

func (c *Client) Start() {
	go c.messageSender()
	go c.messageReceiver()
}

func (c *Client) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		return
	}
	c.stopped = true

	c.cancel()
	c.conn.Close()

	if c.workerPool != nil {
		c.workerPool.Stop()
	}
}

// Send queues a message for delivery to the client. The send channel is never
// closed; the sender goroutine drains it until the client context is
// cancelled, so Send stays safe against a concurrent Stop.
func (c *Client) Send(msg *ServerMessage) error {
	select {
	case <-c.ctx.Done():
		return fmt.Errorf("client is stopped")
	default:
	}

	select {
	case c.sendChan <- msg:
		return nil
	case <-c.ctx.Done():
		return fmt.Errorf("client is stopped")
	case <-time.After(100 * time.Millisecond):
		return fmt.Errorf("client send channel is full")
	}
}

func (c *Client) messageSender() {
	for {
		select {
		case msg := <-c.sendChan:
			if err := c.conn.WriteJSON(msg); err != nil {
				c.logger.Error().Err(err).Msg("Failed to send message to client")
				return
			}
		case <-c.ctx.Done():
			return
		}
	}
}

func (c *Client) messageReceiver() {
	for {
		select {
		case <-c.ctx.Done():
			return
		default:
			_, message, err := c.conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					c.logger.Error().Err(err).Msg("WebSocket read error")
				} else {
					c.logger.Info().Str("error", err.Error()).Msg("WebSocket connection closed")
				}
				c.cancel()
				return
			}

			c.workerPool.Submit(func() {
				if err := c.handleMessage(message); err != nil {
					c.logger.Error().Err(err).Msg("Failed to handle client message")
					errorMsg := NewErrorMessage(err.Error(), nil)
					c.conn.WriteJSON(errorMsg)
				}
			})
		}
	}
}

func (c *Client) handleMessage(data []byte) error {
	msg, err := ParseClientMessage(data)
	if err != nil {
		return fmt.Errorf("invalid message format: %w", err)
	}
	if err := msg.Validate(); err != nil {
		return fmt.Errorf("message validation failed: %w", err)
	}

	if msg.Type == MessageTypePing {
		return c.Send(NewServerMessage(MessageTypePong))
	}

	if c.handler == nil {
		return fmt.Errorf("handler not available")
	}
	return c.handler.HandleClientMessage(c, msg)
}
