package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/lillylive/lilly/pkg/llm"
	"github.com/lillylive/lilly/pkg/telemetry"
)

// errRunIncomplete wraps a non-completed poll outcome.
var errRunIncomplete = errors.New("assistant run did not complete")

// completeWithAssistant runs the thread flow: create a thread, append the
// user turns, start a run, poll it and read the newest assistant message.
// Threads and runs are left for the provider to expire.
func (c *Client) completeWithAssistant(ctx context.Context, conv llm.Conversation) (reply *llm.CompletionReply, err error) {
	ctx, span := telemetry.StartUpstreamSpan(ctx, string(llm.StrategyAssistant), c.model)
	defer func() {
		telemetry.RecordError(span, err)
		span.End()
	}()

	var th thread
	if err := c.do(ctx, http.MethodPost, "/threads", struct{}{}, &th, true); err != nil {
		return nil, fmt.Errorf("create thread: %w", err)
	}
	threadPath := "/threads/" + url.PathEscape(th.ID)

	for _, m := range conv.UserTurns() {
		msg := threadMessageRequest{Role: string(llm.RoleUser), Content: m.Content}
		if err := c.do(ctx, http.MethodPost, threadPath+"/messages", msg, nil, true); err != nil {
			return nil, fmt.Errorf("append message: %w", err)
		}
	}

	var r run
	if err := c.do(ctx, http.MethodPost, threadPath+"/runs", runRequest{AssistantID: c.assistantID}, &r, true); err != nil {
		return nil, fmt.Errorf("start run: %w", err)
	}
	runPath := threadPath + "/runs/" + url.PathEscape(r.ID)

	outcome := PollRun(ctx, func(ctx context.Context) (string, error) {
		var current run
		if err := c.do(ctx, http.MethodGet, runPath, nil, &current, true); err != nil {
			return "", err
		}
		return current.Status, nil
	}, c.pollInterval, c.maxPollAttempts, c.sleep)

	if outcome.Kind != OutcomeCompleted {
		return nil, fmt.Errorf("%w: %s: %s", errRunIncomplete, outcome.Kind, outcome.Reason)
	}

	var list threadMessageList
	if err := c.do(ctx, http.MethodGet, threadPath+"/messages", nil, &list, true); err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	text, ok := newestAssistantText(list.Data)
	if !ok || strings.TrimSpace(text) == "" {
		text = llm.FallbackReply
	}
	return &llm.CompletionReply{Text: text, Strategy: llm.StrategyAssistant, Model: c.model}, nil
}

// newestAssistantText picks the assistant message with the highest
// created_at and returns its first text segment.
func newestAssistantText(msgs []threadMessage) (string, bool) {
	var newest *threadMessage
	for i := range msgs {
		m := &msgs[i]
		if m.Role != string(llm.RoleAssistant) {
			continue
		}
		if newest == nil || m.CreatedAt > newest.CreatedAt {
			newest = m
		}
	}
	if newest == nil {
		return "", false
	}
	return newest.firstText()
}
