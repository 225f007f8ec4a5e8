package passcodes

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/Vraj260105/Block-Vote/internal/common"
	"github.com/Vraj260105/Block-Vote/internal/server/models"
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

	q := `(?s)^INSERT\s+INTO\s+passcodes\s*\(email,\s*purpose,\s*code,\s*expires_at\)`

	expires := time.Now().Add(10 * time.Minute)
	rows := sqlmock.NewRows([]string{"id"}).AddRow("pc-1")
	mock.ExpectQuery(q).
		WithArgs("u@x.com", models.PurposeLogin, "123456", expires).
		WillReturnRows(rows)

	p := &models.Passcode{Email: "u@x.com", Purpose: models.PurposeLogin, Code: "123456", ExpiresAt: expires}
	got, err := repo.Create(context.Background(), p)
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if got.ID != "pc-1" {
		t.Fatalf("unexpected passcode: %+v", got)
	}
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^INSERT\s+INTO\s+passcodes`

	expires := time.Now()
	mock.ExpectQuery(q).
		WithArgs("u@x.com", models.PurposeLogin, "123456", expires).
		WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), &models.Passcode{
		Email: "u@x.com", Purpose: models.PurposeLogin, Code: "123456", ExpiresAt: expires,
	})
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestInvalidateOutstanding(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^UPDATE\s+passcodes\s+SET\s+used\s*=\s*true\s+WHERE\s+email\s*=\s*\$1\s+AND\s+purpose\s*=\s*\$2\s+AND\s+NOT\s+used\s*$`

	mock.ExpectExec(q).
		WithArgs("u@x.com", models.PurposeRegistration).
		WillReturnResult(sqlmock.NewResult(0, 2))

	if err := repo.InvalidateOutstanding(context.Background(), "u@x.com", models.PurposeRegistration); err != nil {
		t.Fatalf("InvalidateOutstanding error: %v", err)
	}
}

// consumeQuery pins the full shape of the Consume statement. The single-use
// and expiry invariants live in its WHERE clause, so dropping
// "AND NOT used AND expires_at > $4" (or the newest-first LIMIT 1 pick) must
// break this match.
const consumeQuery = `(?s)^UPDATE\s+passcodes\s+SET\s+used\s*=\s*true\s+` +
	`WHERE\s+id\s*=\s*\(\s*SELECT\s+id\s+FROM\s+passcodes\s+` +
	`WHERE\s+email\s*=\s*\$1\s+AND\s+purpose\s*=\s*\$2\s+AND\s+code\s*=\s*\$3\s+` +
	`AND\s+NOT\s+used\s+AND\s+expires_at\s*>\s*\$4\s+` +
	`ORDER\s+BY\s+created_at\s+DESC\s+LIMIT\s+1\s*\)\s+RETURNING\s+id\s*$`

func TestConsume_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := consumeQuery

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id"}).AddRow("pc-1")
	mock.ExpectQuery(q).
		WithArgs("u@x.com", models.PurposeLogin, "123456", now).
		WillReturnRows(rows)

	if err := repo.Consume(context.Background(), "u@x.com", models.PurposeLogin, "123456", now); err != nil {
		t.Fatalf("Consume error: %v", err)
	}
}

func TestConsume_NoMatch(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := consumeQuery

	now := time.Now()
	mock.ExpectQuery(q).
		WithArgs("u@x.com", models.PurposeLogin, "000000", now).
		WillReturnError(sql.ErrNoRows)

	err := repo.Consume(context.Background(), "u@x.com", models.PurposeLogin, "000000", now)
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestDeleteExpired(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^DELETE\s+FROM\s+passcodes\s+WHERE\s+expires_at\s*<=\s*\$1\s*$`

	now := time.Now()
	mock.ExpectExec(q).
		WithArgs(now).
		WillReturnResult(sqlmock.NewResult(0, 3))

	count, err := repo.DeleteExpired(context.Background(), now)
	if err != nil {
		t.Fatalf("DeleteExpired error: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 deleted, got %d", count)
	}
}
