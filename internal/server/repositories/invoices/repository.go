// Package invoices persists issued invoices keyed by their payment hash.
package invoices

import (
	"context"

	"github.com/sangaman/lightninggem/internal/server/models"
)

type Repository interface {
	// Upsert inserts the invoice or replaces an existing row with the same
	// r_hash, so a retried issuance stays idempotent.
	Upsert(ctx context.Context, invoice *models.Invoice) error
	GetByRHash(ctx context.Context, rHash string) (*models.Invoice, error)
	UpdateStatus(ctx context.Context, rHash string, status models.InvoiceStatus) error
	// PayoutRequestUsed reports whether a settled or stale invoice already
	// carries the given payout request.
	PayoutRequestUsed(ctx context.Context, payoutRequest string) (bool, error)
}
