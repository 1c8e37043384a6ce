package campus

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Vovarama1992/campus-ai-advisor/internal/ai"
	"github.com/Vovarama1992/campus-ai-advisor/internal/auth"
)

// AIStatus is the slice of the completion client the health endpoints need.
type AIStatus interface {
	Configured() bool
	Model() string
	Ping(ctx context.Context) (string, ai.FailureKind)
}

type Handler struct {
	svc     Service
	repo    Repo
	gate    *auth.Gate
	ai      AIStatus
	storage string
	log     zerolog.Logger
	now     func() time.Time
}

// NewHandler wires the HTTP surface; storage names the backend ("postgres" | "memory").
func NewHandler(svc Service, repo Repo, gate *auth.Gate, aiStatus AIStatus, storage string, log zerolog.Logger) *Handler {
	return &Handler{
		svc:     svc,
		repo:    repo,
		gate:    gate,
		ai:      aiStatus,
		storage: storage,
		log:     log.With().Str("component", "http").Logger(),
		now:     time.Now,
	}
}

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Response string `json:"response"`
	Type     string `json:"type"`
	Kind     string `json:"kind,omitempty"`
}

type userDTO struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	Name      string     `json:"name"`
	Major     *string    `json:"major"`
	Year      *int       `json:"year"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

type authResponse struct {
	Token string  `json:"token"`
	User  userDTO `json:"user"`
}

type turnDTO struct {
	ID        int64     `json:"id"`
	Sender    string    `json:"sender"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Chat - авторизованный чат с историей и профилем
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())
	h.chat(w, r, userID)
}

// SimpleChat - анонимный одиночный запрос, без истории и без сохранения
func (h *Handler) SimpleChat(w http.ResponseWriter, r *http.Request) {
	h.chat(w, r, "")
}

func (h *Handler) chat(w http.ResponseWriter, r *http.Request, userID string) {
	var req chatRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid json")
		return
	}

	out, err := h.svc.Chat(r.Context(), userID, req.Message)
	if errors.Is(err, ErrInvalidInput) {
		respondError(w, http.StatusBadRequest, ai.KindInvalidInput.Message())
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("chat failed")
		respondJSON(w, http.StatusInternalServerError, chatResponse{
			Response: ai.KindUnknown.Message(),
			Type:     "error",
			Kind:     string(ai.KindUnknown),
		})
		return
	}

	if !out.OK() {
		respondJSON(w, http.StatusOK, chatResponse{
			Response: out.Text(),
			Type:     "error",
			Kind:     string(out.Kind()),
		})
		return
	}
	respondJSON(w, http.StatusOK, chatResponse{Response: out.Text(), Type: "ai_response"})
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email    string  `json:"email"`
		Password string  `json:"password"`
		Name     string  `json:"name"`
		Major    string  `json:"major"`
		Year     flexInt `json:"year"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid json")
		return
	}

	payload.Email = strings.TrimSpace(payload.Email)
	payload.Name = strings.TrimSpace(payload.Name)
	if payload.Email == "" || payload.Password == "" || payload.Name == "" {
		respondError(w, http.StatusBadRequest, "Email, password, and name are required")
		return
	}

	hash, err := auth.HashPassword(payload.Password)
	if err != nil {
		h.log.Error().Err(err).Msg("hash password")
		respondError(w, http.StatusInternalServerError, "Registration failed")
		return
	}

	u := &User{
		Email:        payload.Email,
		PasswordHash: hash,
		Name:         payload.Name,
		Year:         payload.Year.ptr(),
	}
	if m := strings.TrimSpace(payload.Major); m != "" {
		u.Major = &m
	}

	if err := h.repo.CreateUser(r.Context(), u); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			respondError(w, http.StatusBadRequest, "User with this email already exists")
			return
		}
		h.log.Error().Err(err).Msg("create user")
		respondError(w, http.StatusInternalServerError, "Registration failed")
		return
	}

	h.log.Info().Str("user_id", u.ID).Msg("user registered")
	h.respondWithToken(w, u)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid json")
		return
	}

	u, err := h.repo.UserByEmail(r.Context(), payload.Email)
	if errors.Is(err, ErrNotFound) {
		respondError(w, http.StatusBadRequest, "User not found")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("lookup user")
		respondError(w, http.StatusInternalServerError, "Login failed")
		return
	}

	if err := auth.CheckPassword(u.PasswordHash, payload.Password); err != nil {
		h.log.Warn().Str("user_id", u.ID).Msg("invalid password")
		respondError(w, http.StatusBadRequest, "Invalid password")
		return
	}

	h.respondWithToken(w, u)
}

func (h *Handler) respondWithToken(w http.ResponseWriter, u *User) {
	token, err := h.gate.Issue(u.ID)
	if err != nil {
		h.log.Error().Err(err).Msg("issue token")
		respondError(w, http.StatusInternalServerError, "Token generation failed")
		return
	}
	respondJSON(w, http.StatusOK, authResponse{
		Token: token,
		User:  userDTO{ID: u.ID, Email: u.Email, Name: u.Name, Major: u.Major, Year: u.Year},
	})
}

func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	u, err := h.repo.UserByID(r.Context(), userID)
	if errors.Is(err, ErrNotFound) {
		respondError(w, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("fetch profile")
		respondError(w, http.StatusInternalServerError, "Failed to fetch profile")
		return
	}

	created := u.CreatedAt
	respondJSON(w, http.StatusOK, map[string]any{
		"user": userDTO{ID: u.ID, Email: u.Email, Name: u.Name, Major: u.Major, Year: u.Year, CreatedAt: &created},
	})
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	turns, err := h.svc.History(r.Context(), userID, limit)
	if err != nil {
		h.log.Error().Err(err).Msg("fetch history")
		respondError(w, http.StatusInternalServerError, "Failed to fetch history")
		return
	}

	out := make([]turnDTO, 0, len(turns))
	for _, t := range turns {
		out = append(out, turnDTO{ID: t.ID, Sender: string(t.Sender), Message: t.Text, Timestamp: t.CreatedAt})
	}
	respondJSON(w, http.StatusOK, map[string]any{"history": out})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	dbOK := h.repo.Ping(r.Context()) == nil
	respondJSON(w, http.StatusOK, map[string]any{
		"status":    "OK",
		"message":   "Campus AI Advisor is running!",
		"openai":    h.ai.Configured(),
		"storage":   h.storage,
		"database":  dbOK,
		"timestamp": h.now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) AIHealth(w http.ResponseWriter, r *http.Request) {
	text, kind := h.ai.Ping(r.Context())

	resp := map[string]any{
		"ai_service": "OpenAI GPT",
		"timestamp":  h.now().UTC().Format(time.RFC3339),
	}
	if kind != "" {
		resp["status"] = "unhealthy"
		resp["details"] = map[string]any{"kind": string(kind), "error": kind.Message()}
	} else {
		resp["status"] = "healthy"
		resp["details"] = map[string]any{"message": text, "model": h.ai.Model()}
	}
	respondJSON(w, http.StatusOK, resp)
}

// flexInt accepts 2, "2", "" and null, like the registration form sends.
type flexInt struct {
	val *int
}

func (f *flexInt) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	s := strings.TrimSpace(strings.Trim(string(b), `"`))
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	f.val = &n
	return nil
}

func (f flexInt) ptr() *int { return f.val }

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}
