package gems

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sangaman/lightninggem/internal/common"
	"github.com/sangaman/lightninggem/internal/dbx"
	"github.com/sangaman/lightninggem/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, gem *models.Gem) error {

	query :=
		`INSERT INTO gems (id, price, owner, url, payout_request, created_at, bought, reset, paid_out)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 `

	_, err := r.db.ExecContext(ctx, query,
		gem.ID, gem.Price, gem.Owner, gem.URL, gem.PayoutRequest, gem.CreatedAt,
		gem.Bought, gem.Reset, gem.PaidOut)

	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.Gem, error) {
	query :=
		`SELECT id, price, owner, url, payout_request, created_at, bought, reset, paid_out
		 FROM gems
		 WHERE id = $1
		 `

	gem := &models.Gem{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&gem.ID, &gem.Price, &gem.Owner, &gem.URL, &gem.PayoutRequest,
		&gem.CreatedAt, &gem.Bought, &gem.Reset, &gem.PaidOut)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return gem, nil
}

func (r *PostgresRepository) ListNewestFirst(ctx context.Context) ([]*models.Gem, error) {
	query :=
		`SELECT id, price, owner, url, payout_request, created_at, bought, reset, paid_out
		 FROM gems
		 ORDER BY id DESC
		 `

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var gems []*models.Gem
	for rows.Next() {
		gem := &models.Gem{}
		if err := rows.Scan(
			&gem.ID, &gem.Price, &gem.Owner, &gem.URL, &gem.PayoutRequest,
			&gem.CreatedAt, &gem.Bought, &gem.Reset, &gem.PaidOut); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		gems = append(gems, gem)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return gems, nil
}

func (r *PostgresRepository) MarkBought(ctx context.Context, id int64, reset bool) error {
	query :=
		`UPDATE gems SET bought = TRUE, reset = $2
		 WHERE id = $1
		 `

	_, err := r.db.ExecContext(ctx, query, id, reset)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *PostgresRepository) MarkPaidOut(ctx context.Context, id int64) error {
	query :=
		`UPDATE gems SET paid_out = TRUE
		 WHERE id = $1
		 `

	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}
