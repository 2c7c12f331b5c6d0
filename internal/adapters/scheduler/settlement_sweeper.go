package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"gavel-auction-engine/internal/domain/shared"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const settlementScheduleKey = "auction:settlements"

// SettlementRunner is the slice of the settlement engine the sweeper needs.
type SettlementRunner interface {
	SettleDue(ctx context.Context, auctionID uuid.UUID) (*shared.Settlement, error)
}

// SettlementSweeper is the external settlement trigger: a redis sorted set
// keyed by auction end time, swept periodically. The engine itself owns no
// timers; settlement stays idempotent, so sweeping an already-settled auction
// is harmless.
type SettlementSweeper struct {
	redis      *redis.Client
	settlement SettlementRunner
	interval   time.Duration
	batchSize  int64
	logger     zerolog.Logger
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

type SettlementSweeperParams struct {
	RedisClient *redis.Client
	Settlement  SettlementRunner
	Interval    time.Duration
	BatchSize   int64
	Logger      zerolog.Logger
}

func NewSettlementSweeper(params SettlementSweeperParams) *SettlementSweeper {
	ctx, cancel := context.WithCancel(context.Background())

	interval := params.Interval
	if interval <= 0 {
		interval = time.Second
	}
	batchSize := params.BatchSize
	if batchSize <= 0 {
		batchSize = 10
	}

	return &SettlementSweeper{
		redis:      params.RedisClient,
		settlement: params.Settlement,
		interval:   interval,
		batchSize:  batchSize,
		logger:     params.Logger.With().Str("component", "settlement_sweeper").Logger(),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// ScheduleSettlement adds an auction to the settlement schedule.
func (s *SettlementSweeper) ScheduleSettlement(auctionID uuid.UUID, endTime time.Time) error {
	err := s.redis.ZAdd(s.ctx, settlementScheduleKey, redis.Z{
		Score:  float64(endTime.Unix()),
		Member: auctionID.String(),
	}).Err()

	if err != nil {
		s.logger.Error().Err(err).Str("auction_id", auctionID.String()).Msg("Failed to schedule settlement")
		return fmt.Errorf("failed to schedule settlement: %w", err)
	}

	s.logger.Info().
		Str("auction_id", auctionID.String()).
		Time("end_time", endTime).
		Msg("Auction scheduled for settlement")
	return nil
}

// Start begins the sweep loop
func (s *SettlementSweeper) Start() {
	s.logger.Info().Dur("interval", s.interval).Msg("Starting settlement sweeper")
	s.wg.Add(1)
	go s.sweepLoop()
}

// Stop gracefully stops the sweeper
func (s *SettlementSweeper) Stop() {
	s.logger.Info().Msg("Stopping settlement sweeper")
	s.cancel()
	s.wg.Wait()
}

func (s *SettlementSweeper) sweepLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweepDueAuctions()
		case <-s.ctx.Done():
			s.logger.Info().Msg("Sweep loop stopped")
			return
		}
	}
}

// sweepDueAuctions finds auctions past their end time and settles them.
func (s *SettlementSweeper) sweepDueAuctions() {
	now := time.Now().Unix()

	due, err := s.redis.ZRangeByScore(s.ctx, settlementScheduleKey, &redis.ZRangeBy{
		Min:   "0",
		Max:   strconv.FormatInt(now, 10),
		Count: s.batchSize,
	}).Result()

	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to get due auctions")
		return
	}

	if len(due) > 0 {
		s.logger.Debug().Int("count", len(due)).Msg("Found auctions due for settlement")
	}

	for _, auctionIDStr := range due {
		auctionID, err := uuid.Parse(auctionIDStr)
		if err != nil {
			s.logger.Error().Err(err).Str("auction_id", auctionIDStr).Msg("Invalid auction ID in schedule")
			s.redis.ZRem(s.ctx, settlementScheduleKey, auctionIDStr)
			continue
		}
		go s.settleAuction(auctionID)
	}
}

func (s *SettlementSweeper) settleAuction(auctionID uuid.UUID) {
	s.logger.Info().Str("auction_id", auctionID.String()).Msg("Sweeping auction for settlement")

	result, err := s.settlement.SettleDue(s.ctx, auctionID)
	if err != nil {
		if unschedulable(err) {
			// Cancelled or vanished auctions can never settle; retrying them
			// would keep the entry in the schedule forever.
			s.logger.Info().Err(err).Str("auction_id", auctionID.String()).Msg("Removing unsettleable auction from schedule")
			s.redis.ZRem(s.ctx, settlementScheduleKey, auctionID.String())
			return
		}
		// Transient failure: leave the entry in place so the next sweep
		// retries it.
		s.logger.Error().Err(err).Str("auction_id", auctionID.String()).Msg("Failed to settle auction")
		return
	}

	s.redis.ZRem(s.ctx, settlementScheduleKey, auctionID.String())

	logger := s.logger.Info().Str("auction_id", auctionID.String()).Bool("sold", result.Sold())
	if result.WinnerID != nil {
		logger = logger.Str("winner_id", result.WinnerID.String())
	}
	if result.FinalPrice != nil {
		logger = logger.Int64("final_price_minor", result.FinalPrice.AmountMinor())
	}
	logger.Msg("Auction settled by sweeper")
}

// unschedulable reports whether a settlement failure is permanent. A cancelled
// auction rejects the settle transition on every attempt, and a deleted one is
// never coming back; both would otherwise sit in the schedule forever.
func unschedulable(err error) bool {
	return errors.Is(err, shared.ErrInvalidTransition) || errors.Is(err, shared.ErrAuctionNotFound)
}
