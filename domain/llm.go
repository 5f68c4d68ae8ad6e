package domain

import "context"

// Llm abstracts any chat completion provider.
type Llm interface {
	// GetReply sends the persona and userMessage as a fresh conversation and
	// returns the assistant reply. A non-success response is a *ChatAPIError.
	GetReply(ctx context.Context, userMessage, apiKey string) (string, error)
}

type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

type Role string

const (
	UserRole      Role = "user"
	AssistantRole Role = "assistant"
	SystemRole    Role = "system"
)

// Fixed generation policy for every chat call.
const (
	ChatMaxTokens   = 200
	ChatTemperature = float32(0.7)
)
