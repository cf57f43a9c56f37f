package services

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/sangaman/lightninggem/internal/common"
	"github.com/sangaman/lightninggem/internal/dbx"
	"github.com/sangaman/lightninggem/internal/lightning"
	"github.com/sangaman/lightninggem/internal/logging"
	"github.com/sangaman/lightninggem/internal/server/config"
	"github.com/sangaman/lightninggem/internal/server/listeners"
	"github.com/sangaman/lightninggem/internal/server/models"
	"github.com/sangaman/lightninggem/internal/server/repositories/repomanager"
)

const (
	// FloorPrice is the price of the genesis gem and of every reset gem.
	FloorPrice = 100

	priceGrowthRate = 1.3
	payoutRate      = 1.25

	recentGemsMaxLength = 6
)

// NextPrice is the price of a non-reset successor gem.
func NextPrice(price int64) int64 {
	return int64(math.Round(float64(price) * priceGrowthRate))
}

// PayoutValue is the amount owed to an owner who paid price for the gem.
func PayoutValue(price int64) int64 {
	return int64(math.Round(float64(price) * payoutRate))
}

// Status is the read-only snapshot served to clients.
type Status struct {
	RecentGems []models.Gem `json:"recentGems"`
	PaidOutSum int64        `json:"paidOutSum"`
}

// AuctionService is the authoritative owner of the mutable current gem. All
// transitions (settlement handling and timeout resets) run under one mutex,
// so the two call sites (settlement subscriber, timeout monitor) are mutually
// exclusive. Invoice issuance reads the current gem without that lock; the
// resulting race is expected and resolved by the stale-invoice path.
type AuctionService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	node        lightning.Node
	secrets     *SecretService
	registry    *listeners.Registry
	logger      logging.Logger
	deadline    time.Duration
	now         func() time.Time

	mu         sync.Mutex
	current    *models.Gem
	recent     []*models.Gem
	paidOutSum int64
}

// NewAuctionService constructs an AuctionService; call Init before use.
func NewAuctionService(db *sql.DB, m repomanager.RepositoryManager, node lightning.Node,
	secrets *SecretService, registry *listeners.Registry, cfg *config.Config, logger logging.Logger) *AuctionService {
	return &AuctionService{
		db:          db,
		repomanager: m,
		node:        node,
		secrets:     secrets,
		registry:    registry,
		logger:      logger.With("module", "auction"),
		deadline:    cfg.OwnershipDeadline,
		now:         time.Now,
	}
}

// Init loads the gem history, creates the genesis gem if the store is empty,
// and rebuilds the recent list and the lifetime payout total.
func (s *AuctionService) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	repo := s.repomanager.Gems(s.db)
	all, err := repo.ListNewestFirst(ctx)
	if err != nil {
		return err
	}

	if len(all) == 0 {
		// The very first gem in the series.
		genesis := &models.Gem{ID: 1, Price: FloorPrice, CreatedAt: s.now()}
		if err := repo.Create(ctx, genesis); err != nil {
			return err
		}
		s.current = genesis
		s.recent = []*models.Gem{genesis}
		s.logger.Info(ctx, "created genesis gem")
		return nil
	}

	s.current = all[0]
	s.paidOutSum = 0
	for i, gem := range all {
		// The payout for a gem was fixed at issuance against the price its
		// owner paid, which is the predecessor gem's price.
		if gem.PaidOut && i+1 < len(all) {
			s.paidOutSum += PayoutValue(all[i+1].Price)
		}
	}

	n := min(len(all), recentGemsMaxLength)
	s.recent = append([]*models.Gem{}, all[:n]...)

	s.logger.Info(ctx, "loaded gem history",
		"current_gem", s.current.ID, "price", s.current.Price, "paid_out_sum", s.paidOutSum)
	return nil
}

// CurrentGem returns a snapshot of the current gem.
func (s *AuctionService) CurrentGem() models.Gem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.current
}

// Status returns the snapshot served by the status endpoint.
func (s *AuctionService) Status() *Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	gems := make([]models.Gem, len(s.recent))
	for i, gem := range s.recent {
		gems[i] = *gem
	}
	return &Status{RecentGems: gems, PaidOutSum: s.paidOutSum}
}

// HandleSettlement is the transition function invoked for every event on the
// settlement stream. Replayed events are no-ops thanks to the invoice status
// check, and a failed transfer leaves the invoice Pending so a later replay
// can re-attempt it.
func (s *AuctionService) HandleSettlement(ctx context.Context, settlement *lightning.Settlement) {
	if !settlement.Settled {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	log := s.logger.With("r_hash", settlement.RHash)
	invoiceRepo := s.repomanager.Invoices(s.db)

	invoice, err := invoiceRepo.GetByRHash(ctx, settlement.RHash)
	if err != nil {
		if !errors.Is(err, common.ErrNotFound) {
			log.Error(ctx, "looking up invoice failed", "error", err)
		}
		return
	}
	if invoice.Status != models.InvoicePending {
		return
	}

	if invoice.GemID != s.current.ID {
		// The gem changed hands between issuance and payment.
		if err := invoiceRepo.UpdateStatus(ctx, invoice.RHash, models.InvoiceStale); err != nil {
			log.Error(ctx, "marking invoice stale failed", "error", err)
			return
		}
		s.registry.Notify(invoice.RHash, listeners.EventStale)
		log.Info(ctx, "stale invoice paid", "invoice_gem", invoice.GemID, "current_gem", s.current.ID)
		return
	}

	reset := false
	if invoice.PayoutRequest != "" {
		reset, err = s.secrets.ShouldReset(ctx, invoice.PayoutRequest)
		if err != nil {
			log.Error(ctx, "reset decision failed", "error", err)
			return
		}
	}

	predecessor := s.current
	successor := s.nextGem(invoice, predecessor, reset)

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Gems(tx).Create(ctx, successor); err != nil {
			return err
		}
		if err := s.repomanager.Invoices(tx).UpdateStatus(ctx, invoice.RHash, models.InvoiceSettled); err != nil {
			return err
		}
		return s.repomanager.Gems(tx).MarkBought(ctx, predecessor.ID, reset)
	})
	if err != nil {
		log.Error(ctx, "transfer failed", "gem_id", predecessor.ID, "error", err)
		return
	}

	predecessor.Bought = true
	predecessor.Reset = reset
	s.advance(successor)

	event := listeners.EventSettled
	if reset {
		event = listeners.EventReset
	}
	s.registry.Resolve(invoice.RHash, event)
	log.Info(ctx, "new gem", "gem_id", successor.ID, "price", successor.Price, "reset", reset)

	if predecessor.PayoutRequest != "" && !reset {
		// Best-effort and decoupled from the transfer, which is already
		// committed: the payment may block on routing for a while and its
		// failure must not roll back ownership. Shutdown does not cancel
		// an in-flight payout.
		go s.dispatchPayout(context.WithoutCancel(ctx), predecessor)
	}
}

// CheckTimeout forces a no-payout reset when the current owner has held the
// gem unresolved beyond the deadline. Called by the timeout monitor.
func (s *AuctionService) CheckTimeout(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current.Owner == "" {
		return
	}
	if s.now().Sub(s.current.CreatedAt) < s.deadline {
		return
	}

	predecessor := s.current
	successor := &models.Gem{ID: predecessor.ID + 1, Price: FloorPrice, CreatedAt: s.now()}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Gems(tx).Create(ctx, successor); err != nil {
			return err
		}
		return s.repomanager.Gems(tx).MarkBought(ctx, predecessor.ID, true)
	})
	if err != nil {
		s.logger.Error(ctx, "gem reset failed", "gem_id", predecessor.ID, "error", err)
		return
	}

	predecessor.Bought = true
	predecessor.Reset = true
	s.advance(successor)

	// No money changed hands, so nothing is paid; all outstanding invoices
	// target a gem that no longer exists.
	s.registry.ExpireAll()
	s.logger.Info(ctx, "gem timed out", "gem_id", predecessor.ID)
}

func (s *AuctionService) nextGem(invoice *models.Invoice, predecessor *models.Gem, reset bool) *models.Gem {
	gem := &models.Gem{ID: predecessor.ID + 1, CreatedAt: s.now()}
	if reset {
		gem.Price = FloorPrice
	} else {
		gem.Price = NextPrice(predecessor.Price)
		gem.Owner = invoice.Name
		gem.URL = invoice.URL
		gem.PayoutRequest = invoice.PayoutRequest
	}
	return gem
}

// advance makes successor the current gem and pushes it onto the bounded
// recent list. Caller holds the mutex.
func (s *AuctionService) advance(successor *models.Gem) {
	s.current = successor
	s.recent = append([]*models.Gem{successor}, s.recent...)
	if len(s.recent) > recentGemsMaxLength {
		s.recent = s.recent[:recentGemsMaxLength]
	}
}

// dispatchPayout pays the previous owner. It runs outside the transition
// mutex; on failure the gem stays bought but unpaid and an operator has to
// intervene, there is no automatic retry.
func (s *AuctionService) dispatchPayout(ctx context.Context, gem *models.Gem) {
	log := s.logger.With("gem_id", gem.ID)

	if err := s.node.SendPayment(ctx, gem.PayoutRequest); err != nil {
		log.Error(ctx, "payout failed", "error", err)
		return
	}
	log.Info(ctx, "paid out", "payout_request", gem.PayoutRequest)

	if err := s.repomanager.Gems(s.db).MarkPaidOut(ctx, gem.ID); err != nil {
		log.Error(ctx, "recording payout failed", "error", err)
	}

	// The decoded payout amount was pinned at issuance to the price the
	// owner paid, i.e. the predecessor gem's price.
	amount := PayoutValue(gem.Price)
	if predecessor, err := s.repomanager.Gems(s.db).GetByID(ctx, gem.ID-1); err == nil {
		amount = PayoutValue(predecessor.Price)
	} else {
		log.Error(ctx, "looking up predecessor for payout total failed", "error", err)
	}

	s.mu.Lock()
	s.paidOutSum += amount
	gem.PaidOut = true
	s.mu.Unlock()
}
