package repomanager

import (
	"context"
	"database/sql"

	"github.com/sangaman/lightninggem/internal/dbx"
	"github.com/sangaman/lightninggem/internal/server/repositories/gems"
	"github.com/sangaman/lightninggem/internal/server/repositories/invoices"
	"github.com/sangaman/lightninggem/internal/server/repositories/secrets"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Gems(db dbx.DBTX) gems.Repository
	Invoices(db dbx.DBTX) invoices.Repository
	Secrets(db dbx.DBTX) secrets.Repository
}
