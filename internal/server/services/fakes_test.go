package services

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sangaman/lightninggem/internal/common"
	"github.com/sangaman/lightninggem/internal/dbx"
	"github.com/sangaman/lightninggem/internal/lightning"
	"github.com/sangaman/lightninggem/internal/logging"
	"github.com/sangaman/lightninggem/internal/server/models"
	"github.com/sangaman/lightninggem/internal/server/repositories/gems"
	"github.com/sangaman/lightninggem/internal/server/repositories/invoices"
	"github.com/sangaman/lightninggem/internal/server/repositories/secrets"
)

// --- helpers ---

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func discardLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// --- fake repositories ---

type fakeGemsRepo struct {
	mu        sync.Mutex
	gems      map[int64]*models.Gem
	history   []*models.Gem // newest first, returned by ListNewestFirst
	createErr error

	created     []*models.Gem
	boughtIDs   []int64
	paidOutIDs  []int64
	boughtReset map[int64]bool
}

func newFakeGemsRepo() *fakeGemsRepo {
	return &fakeGemsRepo{gems: map[int64]*models.Gem{}, boughtReset: map[int64]bool{}}
}

func (f *fakeGemsRepo) Create(ctx context.Context, gem *models.Gem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.gems[gem.ID] = gem
	f.created = append(f.created, gem)
	return nil
}

func (f *fakeGemsRepo) GetByID(ctx context.Context, id int64) (*models.Gem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	gem, ok := f.gems[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	copied := *gem
	return &copied, nil
}

func (f *fakeGemsRepo) ListNewestFirst(ctx context.Context) ([]*models.Gem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.history, nil
}

func (f *fakeGemsRepo) MarkBought(ctx context.Context, id int64, reset bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.boughtIDs = append(f.boughtIDs, id)
	f.boughtReset[id] = reset
	return nil
}

func (f *fakeGemsRepo) MarkPaidOut(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paidOutIDs = append(f.paidOutIDs, id)
	return nil
}

func (f *fakeGemsRepo) paidOut() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64{}, f.paidOutIDs...)
}

type fakeInvoicesRepo struct {
	mu       sync.Mutex
	invoices map[string]*models.Invoice
	used     map[string]bool

	upserted  []*models.Invoice
	upsertErr error
	usedErr   error
}

func newFakeInvoicesRepo() *fakeInvoicesRepo {
	return &fakeInvoicesRepo{invoices: map[string]*models.Invoice{}, used: map[string]bool{}}
}

func (f *fakeInvoicesRepo) Upsert(ctx context.Context, invoice *models.Invoice) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.invoices[invoice.RHash] = invoice
	f.upserted = append(f.upserted, invoice)
	return nil
}

func (f *fakeInvoicesRepo) GetByRHash(ctx context.Context, rHash string) (*models.Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	invoice, ok := f.invoices[rHash]
	if !ok {
		return nil, common.ErrNotFound
	}
	copied := *invoice
	return &copied, nil
}

func (f *fakeInvoicesRepo) UpdateStatus(ctx context.Context, rHash string, status models.InvoiceStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if invoice, ok := f.invoices[rHash]; ok {
		invoice.Status = status
	}
	return nil
}

func (f *fakeInvoicesRepo) PayoutRequestUsed(ctx context.Context, payoutRequest string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.usedErr != nil {
		return false, f.usedErr
	}
	return f.used[payoutRequest], nil
}

func (f *fakeInvoicesRepo) status(rHash string) models.InvoiceStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.invoices[rHash].Status
}

type fakeSecretsRepo struct {
	mu      sync.Mutex
	secrets map[string]*models.DailySecret
	getErr  error
}

func newFakeSecretsRepo() *fakeSecretsRepo {
	return &fakeSecretsRepo{secrets: map[string]*models.DailySecret{}}
}

func (f *fakeSecretsRepo) Get(ctx context.Context, day string) (*models.DailySecret, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	secret, ok := f.secrets[day]
	if !ok {
		return nil, common.ErrNotFound
	}
	return secret, nil
}

func (f *fakeSecretsRepo) Create(ctx context.Context, secret *models.DailySecret) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.secrets[secret.Day]; !ok {
		f.secrets[secret.Day] = secret
	}
	return nil
}

// fakeRepoManager vends the fakes regardless of the DBTX handed in.
type fakeRepoManager struct {
	gemsRepo     *fakeGemsRepo
	invoicesRepo *fakeInvoicesRepo
	secretsRepo  *fakeSecretsRepo
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{
		gemsRepo:     newFakeGemsRepo(),
		invoicesRepo: newFakeInvoicesRepo(),
		secretsRepo:  newFakeSecretsRepo(),
	}
}

func (f *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }

func (f *fakeRepoManager) Gems(dbx.DBTX) gems.Repository { return f.gemsRepo }

func (f *fakeRepoManager) Invoices(dbx.DBTX) invoices.Repository { return f.invoicesRepo }

func (f *fakeRepoManager) Secrets(dbx.DBTX) secrets.Repository { return f.secretsRepo }

// --- fake payment node ---

type fakePaymentNode struct {
	mu sync.Mutex

	addInvoiceResp *lightning.CreatedInvoice
	addInvoiceErr  error
	decodeResp     *lightning.DecodedPayReq
	decodeErr      error
	sendErr        error

	sentPayReqs []string
	sent        chan string
}

func newFakePaymentNode() *fakePaymentNode {
	return &fakePaymentNode{sent: make(chan string, 8)}
}

func (f *fakePaymentNode) AddInvoice(ctx context.Context, value int64, memo string) (*lightning.CreatedInvoice, error) {
	if f.addInvoiceErr != nil {
		return nil, f.addInvoiceErr
	}
	return f.addInvoiceResp, nil
}

func (f *fakePaymentNode) DecodePayReq(ctx context.Context, payReq string) (*lightning.DecodedPayReq, error) {
	if f.decodeErr != nil {
		return nil, f.decodeErr
	}
	return f.decodeResp, nil
}

func (f *fakePaymentNode) SendPayment(ctx context.Context, payReq string) error {
	f.mu.Lock()
	err := f.sendErr
	if err == nil {
		f.sentPayReqs = append(f.sentPayReqs, payReq)
	}
	f.mu.Unlock()
	f.sent <- payReq
	return err
}

func (f *fakePaymentNode) SubscribeSettlements(ctx context.Context) (lightning.SettlementStream, error) {
	return nil, common.ErrUpstreamUnavailable
}
