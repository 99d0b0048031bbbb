package openai

import (
	"context"
	"net/http"
	"strings"

	"github.com/lillylive/lilly/pkg/llm"
	"github.com/lillylive/lilly/pkg/telemetry"
)

// completeWithChat sends the whole conversation to /chat/completions and
// returns the first choice. Any failure here is final.
func (c *Client) completeWithChat(ctx context.Context, conv llm.Conversation) (reply *llm.CompletionReply, err error) {
	ctx, span := telemetry.StartUpstreamSpan(ctx, string(llm.StrategyCompletion), c.model)
	defer func() {
		telemetry.RecordError(span, err)
		span.End()
	}()

	body := chatRequest{
		Model:       c.model,
		Messages:    make([]chatMessage, 0, len(conv)),
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	}
	for _, m := range conv {
		body.Messages = append(body.Messages, chatMessage{Role: string(m.Role), Content: m.Content})
	}

	var resp chatResponse
	if err := c.do(ctx, http.MethodPost, "/chat/completions", body, &resp, false); err != nil {
		return nil, err
	}

	text := ""
	if len(resp.Choices) > 0 {
		text = resp.Choices[0].Message.Content
	}
	if strings.TrimSpace(text) == "" {
		text = llm.FallbackReply
	}

	model := resp.Model
	if model == "" {
		model = c.model
	}
	return &llm.CompletionReply{Text: text, Strategy: llm.StrategyCompletion, Model: model}, nil
}
