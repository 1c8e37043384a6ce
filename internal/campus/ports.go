package campus

import (
	"context"
	"errors"
	"time"

	"github.com/Vovarama1992/campus-ai-advisor/internal/ai"
)

type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrEmailTaken   = errors.New("user with this email already exists")

	ErrInvalidInput error = ai.KindInvalidInput
)

// Profile - то, что мы знаем о студенте. Пустые поля = nil, не "".
type Profile struct {
	ID           string
	Name         *string
	FieldOfStudy *string
	AcademicYear *int
}

// Turn - одна реплика в логе диалога, только append.
type Turn struct {
	ID        int64
	UserID    string
	Sender    Sender
	Text      string
	CreatedAt time.Time
}

// User is the account row behind a profile.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	Name         string
	Major        *string
	Year         *int
	CreatedAt    time.Time
}

func (u *User) Profile() *Profile {
	p := &Profile{ID: u.ID, FieldOfStudy: u.Major, AcademicYear: u.Year}
	if u.Name != "" {
		name := u.Name
		p.Name = &name
	}
	return p
}

type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (*Profile, error)
}

type HistoryStore interface {
	RecentTurns(ctx context.Context, userID string, limit int) ([]Turn, error)
	AppendTurn(ctx context.Context, turn *Turn) error
}

type UserStore interface {
	CreateUser(ctx context.Context, u *User) error
	UserByEmail(ctx context.Context, email string) (*User, error)
	UserByID(ctx context.Context, id string) (*User, error)
}

// Repo - persistence
type Repo interface {
	ProfileStore
	HistoryStore
	UserStore
	Ping(ctx context.Context) error
}

// Service - оркестрация одного запроса
type Service interface {
	// Chat runs one request. userID == "" means an anonymous caller.
	// The only error is ErrInvalidInput; provider failures live in the outcome.
	Chat(ctx context.Context, userID string, message string) (ai.Outcome, error)
	History(ctx context.Context, userID string, limit int) ([]Turn, error)
}
