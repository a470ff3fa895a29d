package files

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/securecloudx/securecloudx/internal/common"
	"github.com/securecloudx/securecloudx/internal/server/models"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now())
	mock.ExpectQuery(`INSERT\s+INTO\s+files`).
		WithArgs("f-1", "u-1", "report.pdf", "files/abc", []byte("iv"), 3).
		WillReturnRows(rows)

	f := &models.File{ID: "f-1", OwnerID: "u-1", Filename: "report.pdf", StorageKey: "files/abc", IV: []byte("iv"), LedgerIndex: 3}
	got, err := repo.Create(context.Background(), f)
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if got.CreatedAt.IsZero() {
		t.Fatalf("expected created_at to be populated")
	}
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`INSERT\s+INTO\s+files`).
		WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), &models.File{ID: "f-1"})
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestGetByID_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"id", "owner_id", "filename", "storage_key", "iv", "ledger_index", "created_at"}).
		AddRow("f-1", "u-1", "report.pdf", "files/abc", []byte("iv"), 3, time.Now())
	mock.ExpectQuery(`SELECT\s+id,\s*owner_id.+WHERE\s+id`).
		WithArgs("f-1").
		WillReturnRows(rows)

	got, err := repo.GetByID(context.Background(), "f-1")
	if err != nil {
		t.Fatalf("GetByID error: %v", err)
	}
	if got.StorageKey != "files/abc" || got.LedgerIndex != 3 {
		t.Fatalf("unexpected file: %+v", got)
	}
}

func TestGetByID_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT\s+id,\s*owner_id.+WHERE\s+id`).
		WithArgs("f-404").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "f-404")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestListByOwner_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"id", "owner_id", "filename", "storage_key", "iv", "ledger_index", "created_at"}).
		AddRow("f-1", "u-1", "a.txt", "files/a", []byte("iv1"), 1, time.Now()).
		AddRow("f-2", "u-1", "b.txt", "files/b", []byte("iv2"), 2, time.Now())
	mock.ExpectQuery(`SELECT\s+id,\s*owner_id.+WHERE\s+owner_id`).
		WithArgs("u-1").
		WillReturnRows(rows)

	got, err := repo.ListByOwner(context.Background(), "u-1")
	if err != nil {
		t.Fatalf("ListByOwner error: %v", err)
	}
	if len(got) != 2 || got[0].Filename != "a.txt" || got[1].Filename != "b.txt" {
		t.Fatalf("unexpected files: %+v", got)
	}
}
