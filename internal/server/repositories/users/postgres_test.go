package users

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/hushkey/internal/common"
	"github.com/dmitrijs2005/hushkey/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func sampleUser() *models.User {
	return &models.User{
		ID:           "u1",
		Email:        "a@b.com",
		PasswordHash: "$argon2id$...",
		FullName:     "Alice",
		PublicKey:    []byte{0x01, 0x02},
		Envelope:     []byte(`{"salt":"..."}`),
	}
}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^\s*INSERT\s+INTO\s+users\b.*RETURNING\s+created_at\s*$`

	user := sampleUser()
	created := time.Now()
	mock.ExpectQuery(q).
		WithArgs(user.ID, user.Email, user.PasswordHash, user.FullName, user.Phone,
			user.Country, user.PublicKey, user.Envelope).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(created))

	got, err := repo.Create(context.Background(), user)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.CreatedAt.Equal(created) {
		t.Fatalf("created_at not populated: %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreate_DuplicateEmail(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`INSERT\s+INTO\s+users`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})

	_, err := repo.Create(context.Background(), sampleUser())
	if !errors.Is(err, common.ErrEmailInUse) {
		t.Fatalf("expected ErrEmailInUse, got %v", err)
	}
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`INSERT\s+INTO\s+users`).
		WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), sampleUser())
	if !errors.Is(err, common.ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable, got %v", err)
	}
}

func userRows(u *models.User, created time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "email", "password_hash", "full_name", "phone", "country", "public_key", "envelope", "created_at"}).
		AddRow(u.ID, u.Email, u.PasswordHash, u.FullName, u.Phone, u.Country, u.PublicKey, u.Envelope, created)
}

func TestGetByEmail_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	u := sampleUser()
	mock.ExpectQuery(`(?s)SELECT\s+id,.*FROM\s+users\s+WHERE\s+email\s*=\s*\$1`).
		WithArgs("a@b.com").
		WillReturnRows(userRows(u, time.Now()))

	got, err := repo.GetByEmail(context.Background(), "a@b.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != u.ID || got.Email != u.Email {
		t.Fatalf("unexpected user: %+v", got)
	}
}

func TestGetByEmail_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`FROM\s+users\s+WHERE\s+email`).
		WithArgs("missing@x.com").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByEmail(context.Background(), "missing@x.com")
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetByID_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	u := sampleUser()
	mock.ExpectQuery(`(?s)SELECT\s+id,.*FROM\s+users\s+WHERE\s+id\s*=\s*\$1`).
		WithArgs("u1").
		WillReturnRows(userRows(u, time.Now()))

	got, err := repo.GetByID(context.Background(), "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Email != u.Email {
		t.Fatalf("unexpected user: %+v", got)
	}
}
