package campus

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

const uniqueViolation = "23505"

type repo struct {
	db *sql.DB
}

func NewRepo(db *sql.DB) Repo {
	return &repo{db: db}
}

func (r *repo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *repo) CreateUser(ctx context.Context, u *User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))

	err := r.db.QueryRowContext(ctx, `
		INSERT INTO users (email, password, name, major, year)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`,
		u.Email,
		u.PasswordHash,
		u.Name,
		u.Major,
		u.Year,
	).Scan(&u.ID, &u.CreatedAt)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *repo) UserByEmail(ctx context.Context, email string) (*User, error) {
	return r.scanUser(r.db.QueryRowContext(ctx, `
		SELECT id, email, password, name, major, year, created_at
		FROM users
		WHERE email = $1
	`, strings.ToLower(strings.TrimSpace(email))))
}

func (r *repo) UserByID(ctx context.Context, id string) (*User, error) {
	return r.scanUser(r.db.QueryRowContext(ctx, `
		SELECT id, email, password, name, major, year, created_at
		FROM users
		WHERE id = $1
	`, id))
}

func (r *repo) scanUser(row *sql.Row) (*User, error) {
	var (
		u     User
		major sql.NullString
		year  sql.NullInt64
	)
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &major, &year, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	if major.Valid {
		u.Major = &major.String
	}
	if year.Valid {
		y := int(year.Int64)
		u.Year = &y
	}
	return &u, nil
}

func (r *repo) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	u, err := r.UserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return u.Profile(), nil
}

func (r *repo) AppendTurn(ctx context.Context, t *Turn) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO conversations (user_id, message, sender, timestamp)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`,
		t.UserID,
		t.Text,
		string(t.Sender),
		t.CreatedAt,
	).Scan(&t.ID)
	if err != nil {
		return fmt.Errorf("insert turn: %w", err)
	}
	return nil
}

// RecentTurns takes the newest rows and returns them oldest first.
// limit <= 0 means no cap.
func (r *repo) RecentTurns(ctx context.Context, userID string, limit int) ([]Turn, error) {
	lim := sql.NullInt64{Int64: int64(limit), Valid: limit > 0}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, message, sender, timestamp
		FROM (
			SELECT id, user_id, message, sender, timestamp
			FROM conversations
			WHERE user_id = $1
			ORDER BY timestamp DESC, id DESC
			LIMIT $2
		) recent
		ORDER BY timestamp ASC, id ASC
	`, userID, lim)
	if err != nil {
		return nil, fmt.Errorf("query turns: %w", err)
	}
	defer rows.Close()

	var out []Turn
	for rows.Next() {
		var t Turn
		var sender string
		if err := rows.Scan(&t.ID, &t.UserID, &t.Text, &sender, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		t.Sender = Sender(sender)
		out = append(out, t)
	}

	return out, rows.Err()
}
