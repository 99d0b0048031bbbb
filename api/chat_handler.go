package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/lillylive/lilly/pkg/eventstream"
	"github.com/lillylive/lilly/pkg/llm"
	"github.com/lillylive/lilly/pkg/persona"
	"github.com/lillylive/lilly/pkg/telemetry"
	"github.com/lillylive/lilly/pkg/worker"
)

const (
	errInvalidMessages  = "Invalid request, messages missing or invalid"
	errProviderNotReady = "OpenAI API key not configured"
)

var errMessagesNotArray = errors.New("messages must be an array")

// parseConversation extracts and validates the messages array of a chat
// request body.
func parseConversation(body []byte) (llm.Conversation, error) {
	var req struct {
		Messages json.RawMessage `json:"messages"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, err
	}

	raw := bytes.TrimSpace(req.Messages)
	if len(raw) == 0 || raw[0] != '[' {
		return nil, errMessagesNotArray
	}

	var conv llm.Conversation
	if err := json.Unmarshal(raw, &conv); err != nil {
		return nil, err
	}
	if len(conv) == 0 {
		return nil, errors.New("messages is empty")
	}
	if err := conv.Validate(); err != nil {
		return nil, err
	}
	return conv, nil
}

// handleChat proxies a conversation to the completion provider and returns
// the next assistant reply.
func (s *Server) handleChat(c *fiber.Ctx) error {
	start := time.Now()
	event := eventstream.NewChatReplyEvent(start)
	defer func() {
		event.DurationMs = time.Since(start).Milliseconds()
		event.HTTPStatus = c.Response().StatusCode()
		s.publish(event)
	}()

	conv, err := parseConversation(c.Body())
	if err != nil {
		event.Failed = true
		s.logger.Debug("rejected chat request", "error", err)
		return c.Status(fiber.StatusBadRequest).JSON(errorBody(errInvalidMessages))
	}
	event.TurnCount = len(conv)

	if s.deps.Completer == nil {
		event.Failed = true
		return c.Status(fiber.StatusInternalServerError).JSON(errorBody(errProviderNotReady))
	}

	prompt := ""
	if s.deps.Persona != nil {
		prompt = s.deps.Persona.Prompt()
	}

	ctx, span := telemetry.StartChatSpan(c.UserContext(), len(conv))
	defer span.End()

	reply, err := s.deps.Completer.Complete(ctx, persona.Apply(conv, prompt))
	if err != nil {
		event.Failed = true
		telemetry.RecordError(span, err)
		s.logger.Error("chat completion failed", "turns", len(conv), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ChatResponse{Reply: llm.GenericFailureReply})
	}

	text := reply.Text
	if llm.IsBlank(text) {
		text = llm.FallbackReply
	}
	event.Strategy = string(reply.Strategy)
	event.Model = reply.Model

	s.logger.Info("chat reply",
		"strategy", reply.Strategy,
		"turns", len(conv),
		"duration", time.Since(start),
	)
	return c.JSON(llm.ChatResponse{Reply: text})
}

func (s *Server) publish(event *eventstream.ChatReplyEvent) {
	if s.deps.Events == nil {
		return
	}
	s.deps.Events.Enqueue(worker.Job{Event: event})
}
