package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	. "github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"

	"github.com/lillylive/lilly/pkg/auth"
	"github.com/lillylive/lilly/pkg/eventstream"
	"github.com/lillylive/lilly/pkg/llm"
	lillylogger "github.com/lillylive/lilly/pkg/logger"
	"github.com/lillylive/lilly/pkg/persona"
	"github.com/lillylive/lilly/pkg/storage/inmemory"
	"github.com/lillylive/lilly/pkg/worker"
)

// fakeCompleter records every conversation it is asked to complete.
type fakeCompleter struct {
	mu    sync.Mutex
	calls []llm.Conversation
	reply *llm.CompletionReply
	err   error
}

func (f *fakeCompleter) Complete(_ context.Context, conv llm.Conversation) (*llm.CompletionReply, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, conv)
	if f.err != nil {
		return nil, f.err
	}
	return f.reply, nil
}

func (f *fakeCompleter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// eventRecorder is an in-process eventstream.Publisher.
type eventRecorder struct {
	mu     sync.Mutex
	events []*eventstream.ChatReplyEvent
}

func (r *eventRecorder) Publish(_ context.Context, e *eventstream.ChatReplyEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *eventRecorder) Close() error { return nil }

func (r *eventRecorder) all() []*eventstream.ChatReplyEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*eventstream.ChatReplyEvent(nil), r.events...)
}

type testEnv struct {
	server    *Server
	store     *inmemory.Driver
	completer *fakeCompleter
	tokens    *auth.TokenManager
	hasher    *auth.PasswordHasher
	events    *eventRecorder
	pool      *worker.Pool
}

func newTestEnv(cfg Config) *testEnv {
	env := &testEnv{
		store:     inmemory.NewDriver(),
		completer: &fakeCompleter{reply: &llm.CompletionReply{Text: "I'm here for you.", Strategy: llm.StrategyCompletion}},
		hasher:    &auth.PasswordHasher{Cost: bcrypt.MinCost},
		events:    &eventRecorder{},
	}

	var err error
	env.tokens, err = auth.NewTokenManager("test-secret")
	Expect(err).NotTo(HaveOccurred())

	env.pool, err = worker.NewPool(&worker.Config{Publisher: env.events, Logger: lillylogger.Nop()})
	Expect(err).NotTo(HaveOccurred())

	env.server, err = NewServer(cfg, Deps{
		Storer:    env.store,
		Completer: env.completer,
		Persona:   persona.Static("You are Lilly."),
		Hasher:    env.hasher,
		Tokens:    env.tokens,
		Events:    env.pool,
	}, lillylogger.Nop())
	Expect(err).NotTo(HaveOccurred())
	return env
}

// drainEvents closes the pool so every queued event has been published.
func (e *testEnv) drainEvents() []*eventstream.ChatReplyEvent {
	e.pool.Close()
	return e.events.all()
}

func doJSON(s *Server, method, path, body string, headers ...string) (*http.Response, map[string]any) {
	req, err := http.NewRequest(method, path, strings.NewReader(body))
	Expect(err).NotTo(HaveOccurred())
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := s.app.Test(req, int(5*time.Second/time.Millisecond))
	Expect(err).NotTo(HaveOccurred())

	raw, err := io.ReadAll(resp.Body)
	Expect(err).NotTo(HaveOccurred())

	var decoded map[string]any
	if len(raw) > 0 && raw[0] == '{' {
		Expect(json.Unmarshal(raw, &decoded)).To(Succeed())
	}
	return resp, decoded
}
