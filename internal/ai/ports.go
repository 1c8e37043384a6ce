package ai

import "context"

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Completer - внешний интеллект, не знает ни про студентов, ни про БД
type Completer interface {
	Complete(ctx context.Context, msgs []Message) Outcome
}

// Message - универсальный формат диалога для AI
type Message struct {
	Role string // "user" | "assistant" | "system"
	Text string
}
