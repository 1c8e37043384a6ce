package campus

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRepo(t *testing.T) (Repo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRepo(db), mock
}

var userCols = []string{"id", "email", "password", "name", "major", "year", "created_at"}

func TestRepo_CreateUser(t *testing.T) {
	r, mock := newMockRepo(t)
	created := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs("alex@uni.example", "hash", "Alex", "Computer Science", 2).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("b3c1a5f4-0000-4000-8000-000000000001", created))

	u := &User{Email: " Alex@Uni.example ", PasswordHash: "hash", Name: "Alex", Major: strp("Computer Science"), Year: intp(2)}
	require.NoError(t, r.CreateUser(context.Background(), u))

	assert.Equal(t, "b3c1a5f4-0000-4000-8000-000000000001", u.ID)
	assert.Equal(t, created, u.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepo_CreateUserDuplicateEmail(t *testing.T) {
	r, mock := newMockRepo(t)

	mock.ExpectQuery(`INSERT INTO users`).
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"})

	err := r.CreateUser(context.Background(), &User{Email: "a@b.c", PasswordHash: "h", Name: "A"})
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestRepo_GetProfile(t *testing.T) {
	r, mock := newMockRepo(t)

	mock.ExpectQuery(`SELECT id, email, password, name, major, year, created_at\s+FROM users\s+WHERE id = \$1`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows(userCols).AddRow("u1", "a@b.c", "h", "Alex", nil, 3, time.Now()))

	p, err := r.GetProfile(context.Background(), "u1")
	require.NoError(t, err)
	require.NotNil(t, p.Name)
	assert.Equal(t, "Alex", *p.Name)
	assert.Nil(t, p.FieldOfStudy)
	require.NotNil(t, p.AcademicYear)
	assert.Equal(t, 3, *p.AcademicYear)
}

func TestRepo_GetProfileNotFound(t *testing.T) {
	r, mock := newMockRepo(t)

	mock.ExpectQuery(`FROM users`).WithArgs("nobody").WillReturnError(sql.ErrNoRows)

	_, err := r.GetProfile(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRepo_UserByEmailLowercases(t *testing.T) {
	r, mock := newMockRepo(t)

	mock.ExpectQuery(`WHERE email = \$1`).
		WithArgs("alex@uni.example").
		WillReturnRows(sqlmock.NewRows(userCols).AddRow("u1", "alex@uni.example", "h", "Alex", "Law", nil, time.Now()))

	u, err := r.UserByEmail(context.Background(), "ALEX@uni.example")
	require.NoError(t, err)
	require.NotNil(t, u.Major)
	assert.Equal(t, "Law", *u.Major)
	assert.Nil(t, u.Year)
}

func TestRepo_AppendTurn(t *testing.T) {
	r, mock := newMockRepo(t)
	at := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`INSERT INTO conversations`).
		WithArgs("u1", "hello", "user", at).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(41)))

	turn := &Turn{UserID: "u1", Sender: SenderUser, Text: "hello", CreatedAt: at}
	require.NoError(t, r.AppendTurn(context.Background(), turn))
	assert.Equal(t, int64(41), turn.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepo_RecentTurns(t *testing.T) {
	r, mock := newMockRepo(t)
	base := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`ORDER BY timestamp DESC, id DESC\s+LIMIT \$2\s+\) recent\s+ORDER BY timestamp ASC, id ASC`).
		WithArgs("u1", int64(6)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "message", "sender", "timestamp"}).
			AddRow(int64(7), "u1", "q", "user", base).
			AddRow(int64(8), "u1", "a", "ai", base.Add(time.Second)))

	turns, err := r.RecentTurns(context.Background(), "u1", 6)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, SenderUser, turns[0].Sender)
	assert.Equal(t, Sender("ai"), turns[1].Sender)
	assert.Equal(t, "a", turns[1].Text)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepo_RecentTurnsUncapped(t *testing.T) {
	r, mock := newMockRepo(t)

	mock.ExpectQuery(`FROM conversations`).
		WithArgs("u1", nil).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "message", "sender", "timestamp"}))

	turns, err := r.RecentTurns(context.Background(), "u1", 0)
	require.NoError(t, err)
	assert.Empty(t, turns)
	assert.NoError(t, mock.ExpectationsWereMet())
}
