// Package secrets persists the per-day commit-reveal seeds.
package secrets

import (
	"context"

	"github.com/sangaman/lightninggem/internal/server/models"
)

type Repository interface {
	Get(ctx context.Context, day string) (*models.DailySecret, error)
	// Create inserts a secret for a day; if a row for the day already
	// exists it is left untouched (the first writer wins).
	Create(ctx context.Context, secret *models.DailySecret) error
}
