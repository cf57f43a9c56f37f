package invoices

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

func (r *PostgresRepository) Upsert(ctx context.Context, invoice *models.Invoice) error {

	query :=
		`INSERT INTO invoices (r_hash, gem_id, name, url, value, payout_request, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (r_hash) DO UPDATE
		 SET gem_id = EXCLUDED.gem_id, name = EXCLUDED.name, url = EXCLUDED.url,
		     value = EXCLUDED.value, payout_request = EXCLUDED.payout_request,
		     status = EXCLUDED.status
		 `

	_, err := r.db.ExecContext(ctx, query,
		invoice.RHash, invoice.GemID, invoice.Name, invoice.URL,
		invoice.Value, invoice.PayoutRequest, invoice.Status)

	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *PostgresRepository) GetByRHash(ctx context.Context, rHash string) (*models.Invoice, error) {
	query :=
		`SELECT r_hash, gem_id, name, url, value, payout_request, status
		 FROM invoices
		 WHERE r_hash = $1
		 `

	invoice := &models.Invoice{}
	err := r.db.QueryRowContext(ctx, query, rHash).Scan(
		&invoice.RHash, &invoice.GemID, &invoice.Name, &invoice.URL,
		&invoice.Value, &invoice.PayoutRequest, &invoice.Status)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return invoice, nil
}

func (r *PostgresRepository) UpdateStatus(ctx context.Context, rHash string, status models.InvoiceStatus) error {
	query :=
		`UPDATE invoices SET status = $2
		 WHERE r_hash = $1
		 `

	_, err := r.db.ExecContext(ctx, query, rHash, status)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *PostgresRepository) PayoutRequestUsed(ctx context.Context, payoutRequest string) (bool, error) {
	query :=
		`SELECT EXISTS (
		   SELECT 1 FROM invoices
		   WHERE payout_request = $1 AND status IN ($2, $3)
		 )`

	var used bool
	err := r.db.QueryRowContext(ctx, query, payoutRequest,
		models.InvoiceSettled, models.InvoiceStale).Scan(&used)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}

	return used, nil
}
