package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sangaman/lightninggem/internal/common"
	"github.com/sangaman/lightninggem/internal/lightning"
	"github.com/sangaman/lightninggem/internal/logging"
	"github.com/sangaman/lightninggem/internal/server/models"
	"github.com/sangaman/lightninggem/internal/server/repositories/repomanager"
)

const (
	invoiceMemo = "Lightning Gem"

	maxNameLength = 50
	maxURLLength  = 150

	// minPayoutExpiry is the minimum remaining validity of a payout request
	// in seconds (12 hours), so it is still payable whenever the owner gets
	// bought out.
	minPayoutExpiry = 43200
)

// IssueRequest carries the buyer-supplied fields of an invoice request.
type IssueRequest struct {
	Name          string
	URL           string
	PayoutRequest string
	GemID         int64
}

// IssuedInvoice is returned to the buyer on success.
type IssuedInvoice struct {
	RHash          string `json:"rHash"`
	PaymentRequest string `json:"paymentRequest"`
}

// InvoiceService validates invoice requests and creates inbound invoices on
// the payment node.
type InvoiceService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	node        lightning.Node
	auction     *AuctionService
	// subscriberAlive reports whether the settlement stream is up; issuing
	// an invoice that could never be observed settling would strand the
	// buyer's payment.
	subscriberAlive func() bool
	logger          logging.Logger
}

// NewInvoiceService constructs an InvoiceService.
func NewInvoiceService(db *sql.DB, m repomanager.RepositoryManager, node lightning.Node,
	auction *AuctionService, subscriberAlive func() bool, logger logging.Logger) *InvoiceService {
	return &InvoiceService{
		db:              db,
		repomanager:     m,
		node:            node,
		auction:         auction,
		subscriberAlive: subscriberAlive,
		logger:          logger.With("module", "invoices"),
	}
}

// Issue validates the request against the current gem, creates an inbound
// invoice on the node, and persists a Pending invoice record keyed by its
// payment hash. Upsert semantics make a retried issuance harmless.
func (s *InvoiceService) Issue(ctx context.Context, req *IssueRequest) (*IssuedInvoice, error) {

	if req.Name == "" || len(req.Name) > maxNameLength {
		return nil, fmt.Errorf("%w: name must be 1-%d characters", common.ErrValidation, maxNameLength)
	}
	if len(req.URL) > maxURLLength {
		return nil, fmt.Errorf("%w: url must be at most %d characters", common.ErrValidation, maxURLLength)
	}

	gem := s.auction.CurrentGem()
	if req.GemID != gem.ID {
		return nil, common.ErrOutOfSync
	}

	if !s.subscriberAlive() {
		return nil, fmt.Errorf("%w: settlement subscription is down", common.ErrUpstreamUnavailable)
	}

	if req.PayoutRequest != "" {
		if err := s.validatePayoutRequest(ctx, req.PayoutRequest, gem.Price); err != nil {
			return nil, err
		}
	}

	created, err := s.node.AddInvoice(ctx, gem.Price, invoiceMemo)
	if err != nil {
		return nil, err
	}

	invoice := &models.Invoice{
		RHash:         created.RHash,
		GemID:         req.GemID,
		Name:          req.Name,
		URL:           req.URL,
		Value:         gem.Price,
		PayoutRequest: req.PayoutRequest,
		Status:        models.InvoicePending,
	}
	if err := s.repomanager.Invoices(s.db).Upsert(ctx, invoice); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInternal, err)
	}

	s.logger.Debug(ctx, "invoice added", "r_hash", created.RHash, "gem_id", req.GemID, "value", gem.Price)
	return &IssuedInvoice{RHash: created.RHash, PaymentRequest: created.PaymentRequest}, nil
}

// validatePayoutRequest decodes the buyer's payout request and checks it has
// never been used, asks for exactly the payout owed at the current price, and
// stays valid long enough to be paid.
func (s *InvoiceService) validatePayoutRequest(ctx context.Context, payoutRequest string, price int64) error {
	used, err := s.repomanager.Invoices(s.db).PayoutRequestUsed(ctx, payoutRequest)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrInternal, err)
	}
	if used {
		return common.ErrAlreadySettled
	}

	decoded, err := s.node.DecodePayReq(ctx, payoutRequest)
	if err != nil {
		return err
	}
	if decoded.NumSatoshis != PayoutValue(price) {
		return common.ErrInvalidPayoutAmount
	}
	if decoded.Expiry < minPayoutExpiry {
		return common.ErrInvalidPayoutExpiry
	}
	return nil
}
