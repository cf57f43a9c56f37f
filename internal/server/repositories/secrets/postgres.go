package secrets

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

func (r *PostgresRepository) Get(ctx context.Context, day string) (*models.DailySecret, error) {
	query :=
		`SELECT day, secret FROM secrets
		 WHERE day = $1
		 `

	secret := &models.DailySecret{}
	err := r.db.QueryRowContext(ctx, query, day).Scan(&secret.Day, &secret.Secret)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return secret, nil
}

func (r *PostgresRepository) Create(ctx context.Context, secret *models.DailySecret) error {
	query :=
		`INSERT INTO secrets (day, secret)
		 VALUES ($1, $2)
		 ON CONFLICT (day) DO NOTHING
		 `

	_, err := r.db.ExecContext(ctx, query, secret.Day, secret.Secret)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}
