// Package llm defines the text-generation collaborator used by the
// classifier cascade and the response composer, with Bedrock and Gemini
// implementations.
package llm

import "context"

const (
	ChatRoleSystem    = "system"
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
)

// ChatMessage is an internal message representation that can include system prompts.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type TokenUsage struct {
	InputTokens  int32
	OutputTokens int32
	TotalTokens  int32
}

type Request struct {
	Model       string
	System      []string
	Messages    []ChatMessage
	MaxTokens   int32
	Temperature float32
	TopP        float32
}

type Response struct {
	Text       string
	Usage      TokenUsage
	StopReason string
}

// Client generates text from a chat transcript. Implementations must
// return an error instead of panicking; callers treat any error as
// collaborator absence and fall back locally.
type Client interface {
	Complete(ctx context.Context, req Request) (Response, error)
}
