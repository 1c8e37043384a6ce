package campus

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepo is an in-process Repo for local runs without DATABASE_URL and for tests.
type MemoryRepo struct {
	mu      sync.RWMutex
	users   map[string]*User
	byEmail map[string]string
	turns   map[string][]Turn
	nextID  int64
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		users:   make(map[string]*User),
		byEmail: make(map[string]string),
		turns:   make(map[string][]Turn),
	}
}

func (r *MemoryRepo) Ping(context.Context) error { return nil }

func (r *MemoryRepo) CreateUser(_ context.Context, u *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	email := strings.ToLower(strings.TrimSpace(u.Email))
	if _, ok := r.byEmail[email]; ok {
		return ErrEmailTaken
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	u.Email = email

	cp := *u
	r.users[u.ID] = &cp
	r.byEmail[email] = u.ID
	return nil
}

func (r *MemoryRepo) UserByEmail(_ context.Context, email string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r.users[id]
	return &cp, nil
}

func (r *MemoryRepo) UserByID(_ context.Context, id string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *MemoryRepo) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	u, err := r.UserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return u.Profile(), nil
}

func (r *MemoryRepo) AppendTurn(_ context.Context, t *Turn) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	t.ID = r.nextID
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	arr := append(r.turns[t.UserID], *t)
	sort.SliceStable(arr, func(i, j int) bool { return arr[i].CreatedAt.Before(arr[j].CreatedAt) })
	r.turns[t.UserID] = arr
	return nil
}

func (r *MemoryRepo) RecentTurns(_ context.Context, userID string, limit int) ([]Turn, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	arr := r.turns[userID]
	if len(arr) == 0 {
		return nil, nil
	}
	if limit <= 0 || limit > len(arr) {
		limit = len(arr)
	}
	out := make([]Turn, limit)
	copy(out, arr[len(arr)-limit:])
	return out, nil
}
