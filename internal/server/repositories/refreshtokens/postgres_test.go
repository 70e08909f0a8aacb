package refreshtokens

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/hushkey/internal/common"
	"github.com/dmitrijs2005/hushkey/internal/server/models"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func sampleToken() *models.RefreshToken {
	return &models.RefreshToken{
		ID:           "t1",
		UserID:       "u1",
		Selector:     "0123456789abcdef",
		VerifierHash: []byte{0xde, 0xad},
		ExpiresAt:    time.Now().Add(30 * 24 * time.Hour),
	}
}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^\s*INSERT\s+INTO\s+refresh_tokens\b.*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4,\s*\$5,\s*\$6\)\s*$`

	token := sampleToken()
	mock.ExpectExec(q).
		WithArgs(token.ID, token.UserID, token.Selector, token.VerifierHash, token.ExpiresAt, false).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Create(context.Background(), token); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`INSERT\s+INTO\s+refresh_tokens`).
		WillReturnError(errors.New("db down"))

	err := repo.Create(context.Background(), sampleToken())
	if !errors.Is(err, common.ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable, got %v", err)
	}
}

func TestFindBySelector_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^\s*SELECT\s+id,\s*user_id,\s*selector,\s*verifier_hash,\s*expires_at,\s*revoked,\s*created_at\s+FROM\s+refresh_tokens\s+WHERE\s+selector\s*=\s*\$1\s*$`

	expires := time.Now().Add(10 * time.Minute)
	created := time.Now().Add(-time.Hour)
	rows := sqlmock.NewRows([]string{"id", "user_id", "selector", "verifier_hash", "expires_at", "revoked", "created_at"}).
		AddRow("t1", "u1", "0123456789abcdef", []byte{0x01}, expires, false, created)

	mock.ExpectQuery(q).
		WithArgs("0123456789abcdef").
		WillReturnRows(rows)

	got, err := repo.FindBySelector(context.Background(), "0123456789abcdef")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.UserID != "u1" || !got.ExpiresAt.Equal(expires) || got.Revoked {
		t.Fatalf("unexpected row: %+v", got)
	}
}

func TestFindBySelector_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT\s+id,`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindBySelector(context.Background(), "missing")
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRevokeIfActive_Winner(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^\s*UPDATE\s+refresh_tokens\s+SET\s+revoked\s*=\s*TRUE\s+WHERE\s+selector\s*=\s*\$1\s+AND\s+NOT\s+revoked\s*$`

	mock.ExpectExec(q).
		WithArgs("sel").
		WillReturnResult(sqlmock.NewResult(0, 1))

	won, err := repo.RevokeIfActive(context.Background(), "sel")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !won {
		t.Fatalf("expected to win the conditional revoke")
	}
}

func TestRevokeIfActive_AlreadyRevoked(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE\s+refresh_tokens`).
		WithArgs("sel").
		WillReturnResult(sqlmock.NewResult(0, 0))

	won, err := repo.RevokeIfActive(context.Background(), "sel")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if won {
		t.Fatalf("revoking an already-revoked row must not report a win")
	}
}

func TestRevokeAllForUser(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE\s+refresh_tokens\s+SET\s+revoked\s*=\s*TRUE\s+WHERE\s+user_id\s*=\s*\$1`).
		WithArgs("u1").
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.RevokeAllForUser(context.Background(), "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 affected rows, got %d", n)
	}
}

func TestDeleteExpired(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`DELETE\s+FROM\s+refresh_tokens\s+WHERE\s+expires_at\s*<\s*now\(\)`).
		WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := repo.DeleteExpired(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 deleted rows, got %d", n)
	}
}
