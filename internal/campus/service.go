package campus

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Vovarama1992/campus-ai-advisor/internal/ai"
	"github.com/Vovarama1992/campus-ai-advisor/internal/observability"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
	persistTimeout      = 5 * time.Second
)

type service struct {
	repo    Repo
	ai      ai.Completer
	metrics *observability.Metrics
	log     zerolog.Logger
	window  int
	now     func() time.Time
}

func NewService(repo Repo, aiClient ai.Completer, metrics *observability.Metrics, log zerolog.Logger, window int) Service {
	if window <= 0 {
		window = DefaultWindow
	}
	return &service{
		repo:    repo,
		ai:      aiClient,
		metrics: metrics,
		log:     log.With().Str("component", "svc").Logger(),
		window:  window,
		now:     time.Now,
	}
}

func (s *service) Chat(ctx context.Context, userID string, message string) (ai.Outcome, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return ai.Failure(ai.KindInvalidInput), ErrInvalidInput
	}

	log := s.log.With().Str("user_id", userID).Logger()
	log.Info().Int("len", len(message)).Msg("chat request")

	profile, history := s.loadContext(ctx, log, userID)

	msgs, err := BuildContext(message, profile, history, s.window)
	if err != nil {
		return ai.Failure(ai.KindInvalidInput), err
	}

	start := time.Now()
	out := s.ai.Complete(ctx, msgs)
	s.metrics.ObserveCompletion(string(out.Kind()), time.Since(start))

	if !out.OK() {
		// не сохраняем: вопрос без ответа испортит будущие окна контекста
		log.Warn().Str("kind", string(out.Kind())).Msg("completion failed, nothing persisted")
		return out, nil
	}

	if userID != "" {
		s.persistExchange(ctx, log, userID, message, out.Text())
	}
	return out, nil
}

// loadContext degrades to nil profile / empty history on store errors.
func (s *service) loadContext(ctx context.Context, log zerolog.Logger, userID string) (*Profile, []Turn) {
	if userID == "" {
		return nil, nil
	}

	profile, err := s.repo.GetProfile(ctx, userID)
	switch {
	case errors.Is(err, ErrNotFound):
		log.Debug().Msg("no profile")
		profile = nil
	case err != nil:
		log.Warn().Err(err).Msg("profile fetch failed, continuing without profile")
		s.metrics.StoreError("get_profile")
		profile = nil
	}

	history, err := s.repo.RecentTurns(ctx, userID, s.window)
	if err != nil {
		log.Warn().Err(err).Msg("history fetch failed, continuing without history")
		s.metrics.StoreError("recent_turns")
		history = nil
	}

	log.Debug().Bool("profile", profile != nil).Int("history", len(history)).Msg("context loaded")
	return profile, history
}

// persistExchange appends the user turn then the assistant turn.
// Failures are logged only: the caller already has its answer.
func (s *service) persistExchange(ctx context.Context, log zerolog.Logger, userID, question, answer string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	now := s.now().UTC()
	userTurn := &Turn{UserID: userID, Sender: SenderUser, Text: question, CreatedAt: now}
	if err := s.repo.AppendTurn(ctx, userTurn); err != nil {
		log.Error().Err(err).Msg("append user turn failed, skipping assistant turn")
		s.metrics.StoreError("append_turn")
		return
	}

	aiTurn := &Turn{UserID: userID, Sender: SenderAssistant, Text: answer, CreatedAt: now.Add(time.Microsecond)}
	if err := s.repo.AppendTurn(ctx, aiTurn); err != nil {
		log.Error().Err(err).Msg("append assistant turn failed")
		s.metrics.StoreError("append_turn")
	}
}

func (s *service) History(ctx context.Context, userID string, limit int) ([]Turn, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	return s.repo.RecentTurns(ctx, userID, limit)
}
