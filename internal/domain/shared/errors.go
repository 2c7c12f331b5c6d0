package shared

import "errors"

// Domain-specific errors
var (
	// Auction errors
	ErrAuctionNotFound      = errors.New("auction not found")
	ErrInvalidTransition    = errors.New("invalid auction state transition")
	ErrAuctionStillOpen     = errors.New("auction is still open")
	ErrInvalidStartTime     = errors.New("start time cannot be in the past")
	ErrInvalidEndTime       = errors.New("end time must be after start time")
	ErrInvalidStartingPrice = errors.New("starting price must be greater than 0")
	ErrItemAlreadyOnAuction = errors.New("item is already on an active auction")

	// Bid errors
	ErrNoBidsFound = errors.New("no bids found")

	// Concurrency errors
	ErrConcurrencyConflict = errors.New("concurrency conflict, auction changed since it was read")

	// User errors
	ErrUserNotFound = errors.New("user not found")

	// Item errors
	ErrItemNotFound = errors.New("item not found")

	// Watchlist errors
	ErrAlreadyWatching    = errors.New("item is already on the watchlist")
	ErrWatchEntryNotFound = errors.New("watch entry not found")

	// Storage errors
	ErrStorageUnavailable = errors.New("storage unavailable")

	// Validation errors
	ErrInvalidTimeFormat = errors.New("invalid time format")
	ErrInvalidRequest    = errors.New("invalid request")

	// WebSocket message validation errors
	ErrMessageTypeRequired = errors.New("message type is required")
	ErrAuctionIDRequired   = errors.New("auction_id is required")
	ErrItemIDRequired      = errors.New("item_id is required")
	ErrAmountRequired      = errors.New("valid amount_minor and currency are required")
	ErrStartTimeRequired   = errors.New("start_time is required")
	ErrEndTimeRequired     = errors.New("end_time is required")
	ErrUnknownMessageType  = errors.New("unknown message type")
)
