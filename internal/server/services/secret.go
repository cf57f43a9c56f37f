// Package services contains the server-side business logic: invoice
// issuance, the auction state machine, and the daily commit-reveal secrets.
package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sangaman/lightninggem/internal/common"
	"github.com/sangaman/lightninggem/internal/logging"
	"github.com/sangaman/lightninggem/internal/server/config"
	"github.com/sangaman/lightninggem/internal/server/models"
	"github.com/sangaman/lightninggem/internal/server/repositories/repomanager"
)

const dayFormat = "2006-01-02"

// resetThreshold is the first-byte bound for a reset: 8 out of 256 gives a
// probability of about 3.1% per commit. Changing it (or the hash input
// order below) would break the published, auditable odds.
const resetThreshold = 8

// secretsFileName is the reveal file appended to in the public directory.
const secretsFileName = "secrets.txt"

// SecretService owns the per-day commit-reveal seeds. A day's secret is
// created lazily on first use and must never leave the server before the
// day ends; RevealPrevious publishes it afterwards so the reset decisions
// can be audited.
type SecretService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
	publicDir   string
	now         func() time.Time
}

// NewSecretService constructs a SecretService using repositories and server config.
func NewSecretService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, logger logging.Logger) *SecretService {
	return &SecretService{
		db:          db,
		repomanager: m,
		logger:      logger.With("module", "secrets"),
		publicDir:   cfg.PublicDir,
		now:         time.Now,
	}
}

// Today returns the secret for the current UTC day, creating it on first use.
func (s *SecretService) Today(ctx context.Context) (string, error) {
	repo := s.repomanager.Secrets(s.db)
	day := s.now().UTC().Format(dayFormat)

	secret, err := repo.Get(ctx, day)
	if err == nil {
		return secret.Secret, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return "", fmt.Errorf("reading secret: %w", err)
	}

	generated, err := randomSecret()
	if err != nil {
		return "", err
	}
	if err := repo.Create(ctx, &models.DailySecret{Day: day, Secret: generated}); err != nil {
		return "", fmt.Errorf("creating secret: %w", err)
	}
	// Re-read in case a concurrent writer won the insert.
	secret, err = repo.Get(ctx, day)
	if err != nil {
		return "", fmt.Errorf("reading secret: %w", err)
	}
	return secret.Secret, nil
}

// ShouldReset computes the commit-reveal decision for a settlement carrying
// the given payout request: sha256 over the payout request concatenated with
// today's secret, reset when the first digest byte falls below the threshold.
func (s *SecretService) ShouldReset(ctx context.Context, payoutRequest string) (bool, error) {
	secret, err := s.Today(ctx)
	if err != nil {
		return false, err
	}
	digest := sha256.Sum256([]byte(payoutRequest + secret))
	s.logger.Debug(ctx, "reset draw", "first_byte", digest[0])
	return digest[0] < resetThreshold, nil
}

// RevealPrevious appends the previous UTC day's secret to the public secrets
// file. A missing row (no settlement used a secret that day) is skipped.
func (s *SecretService) RevealPrevious(ctx context.Context) error {
	repo := s.repomanager.Secrets(s.db)
	day := s.now().UTC().AddDate(0, 0, -1).Format(dayFormat)

	secret, err := repo.Get(ctx, day)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			s.logger.Warn(ctx, "no secret to reveal", "day", day)
			return nil
		}
		return fmt.Errorf("reading secret: %w", err)
	}

	f, err := os.OpenFile(filepath.Join(s.publicDir, secretsFileName),
		os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening secrets file: %w", err)
	}
	defer f.Close()

	if _, err := fmt.Fprintf(f, "%s %s\n", secret.Day, secret.Secret); err != nil {
		return fmt.Errorf("writing secrets file: %w", err)
	}

	s.logger.Info(ctx, "revealed secret", "day", day)
	return nil
}

func randomSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
