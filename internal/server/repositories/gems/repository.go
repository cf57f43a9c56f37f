// Package gems persists the append-only gem history. Gem rows are never
// deleted; only the bought/reset/paid_out flags are updated in place.
package gems

import (
	"context"

	"github.com/sangaman/lightninggem/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, gem *models.Gem) error
	GetByID(ctx context.Context, id int64) (*models.Gem, error)
	// ListNewestFirst returns the full history ordered by descending id,
	// so the current gem is always the first element.
	ListNewestFirst(ctx context.Context) ([]*models.Gem, error)
	// MarkBought flags a gem as superseded; reset marks a probabilistic or
	// timeout reset.
	MarkBought(ctx context.Context, id int64, reset bool) error
	// MarkPaidOut flags a gem once the payout to its owner was confirmed.
	MarkPaidOut(ctx context.Context, id int64) error
}
