package llm

import "context"

const (
	// FallbackReply is returned when the provider produced no usable text.
	FallbackReply = "Sorry, I couldn't get a response."

	// GenericFailureReply is shown to the user when a chat request fails.
	GenericFailureReply = "Something went wrong. Please try again."
)

// Strategy names which upstream path produced a reply.
type Strategy string

const (
	StrategyAssistant  Strategy = "assistant"
	StrategyCompletion Strategy = "completion"
)

// CompletionReply is the text produced for a conversation.
type CompletionReply struct {
	Text     string   `json:"text"`
	Strategy Strategy `json:"strategy"`
	Model    string   `json:"model,omitempty"`
}

// Completer turns a conversation into the next assistant reply.
type Completer interface {
	Complete(ctx context.Context, conv Conversation) (*CompletionReply, error)
}

// ChatRequest is the body accepted by POST /api/chat.
type ChatRequest struct {
	Messages Conversation `json:"messages"`
}

// ChatResponse is the body returned by POST /api/chat.
type ChatResponse struct {
	Reply string `json:"reply"`
}

// ErrorResponse is the JSON error body returned by the HTTP API.
type ErrorResponse struct {
	Error string `json:"error"`
}
