package gems

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sangaman/lightninggem/internal/common"
	"github.com/sangaman/lightninggem/internal/server/models"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

const gemColumns = `id,\s*price,\s*owner,\s*url,\s*payout_request,\s*created_at,\s*bought,\s*reset,\s*paid_out`

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^INSERT\s+INTO\s+gems\s*\(` + gemColumns + `\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4,\s*\$5,\s*\$6,\s*\$7,\s*\$8,\s*\$9\)\s*$`

	created := time.Date(2018, 3, 9, 10, 0, 0, 0, time.UTC)
	mock.ExpectExec(q).
		WithArgs(int64(2), int64(130), "alice", "https://example.com", "lntb1payout", created, false, false, false).
		WillReturnResult(sqlmock.NewResult(0, 1))

	gem := &models.Gem{
		ID: 2, Price: 130, Owner: "alice", URL: "https://example.com",
		PayoutRequest: "lntb1payout", CreatedAt: created,
	}
	if err := repo.Create(context.Background(), gem); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)^INSERT\s+INTO\s+gems`).
		WillReturnError(errors.New("db down"))

	err := repo.Create(context.Background(), &models.Gem{ID: 1, Price: 100})
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestGetByID_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT\s+` + gemColumns + `\s+FROM\s+gems\s+WHERE\s+id\s*=\s*\$1\s*$`

	created := time.Date(2018, 3, 9, 10, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "price", "owner", "url", "payout_request", "created_at", "bought", "reset", "paid_out"}).
		AddRow(int64(2), int64(130), "alice", "", "", created, true, false, true)
	mock.ExpectQuery(q).WithArgs(int64(2)).WillReturnRows(rows)

	got, err := repo.GetByID(context.Background(), 2)
	if err != nil {
		t.Fatalf("GetByID error: %v", err)
	}
	if got.ID != 2 || got.Price != 130 || got.Owner != "alice" || !got.Bought || !got.PaidOut {
		t.Fatalf("unexpected gem: %+v", got)
	}
}

func TestGetByID_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^SELECT\s+` + gemColumns + `\s+FROM\s+gems`).
		WithArgs(int64(99)).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), 99)
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListNewestFirst(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT\s+` + gemColumns + `\s+FROM\s+gems\s+ORDER\s+BY\s+id\s+DESC\s*$`

	created := time.Date(2018, 3, 9, 10, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "price", "owner", "url", "payout_request", "created_at", "bought", "reset", "paid_out"}).
		AddRow(int64(2), int64(130), "alice", "", "", created, false, false, false).
		AddRow(int64(1), int64(100), "", "", "", created, true, false, false)
	mock.ExpectQuery(q).WillReturnRows(rows)

	got, err := repo.ListNewestFirst(context.Background())
	if err != nil {
		t.Fatalf("ListNewestFirst error: %v", err)
	}
	if len(got) != 2 || got[0].ID != 2 || got[1].ID != 1 {
		t.Fatalf("unexpected gems: %+v", got)
	}
}

func TestMarkBought(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^UPDATE\s+gems\s+SET\s+bought\s*=\s*TRUE,\s*reset\s*=\s*\$2\s+WHERE\s+id\s*=\s*\$1\s*$`

	mock.ExpectExec(q).WithArgs(int64(1), true).WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.MarkBought(context.Background(), 1, true); err != nil {
		t.Fatalf("MarkBought error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestMarkPaidOut(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^UPDATE\s+gems\s+SET\s+paid_out\s*=\s*TRUE\s+WHERE\s+id\s*=\s*\$1\s*$`

	mock.ExpectExec(q).WithArgs(int64(2)).WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.MarkPaidOut(context.Background(), 2); err != nil {
		t.Fatalf("MarkPaidOut error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
