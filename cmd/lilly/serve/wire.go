package servecmder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lillylive/lilly/api"
	"github.com/lillylive/lilly/pkg/auth"
	"github.com/lillylive/lilly/pkg/config"
	"github.com/lillylive/lilly/pkg/dotdir"
	"github.com/lillylive/lilly/pkg/eventstream"
	eventopen "github.com/lillylive/lilly/pkg/eventstream/open"
	"github.com/lillylive/lilly/pkg/llm"
	"github.com/lillylive/lilly/pkg/llm/provider/openai"
	"github.com/lillylive/lilly/pkg/persona"
	"github.com/lillylive/lilly/pkg/storage"
	storageopen "github.com/lillylive/lilly/pkg/storage/open"
	"github.com/lillylive/lilly/pkg/telemetry"
	"github.com/lillylive/lilly/pkg/utils"
	"github.com/lillylive/lilly/pkg/worker"
)

const shutdownTimeout = 5 * time.Second

// stack holds everything the server depends on plus the teardown for it.
type stack struct {
	deps      api.Deps
	store     storage.Driver
	events    *worker.Pool
	publisher eventstream.Publisher
	tracing   *telemetry.Provider
	cancel    context.CancelFunc
}

// close tears the stack down in reverse order of construction.
func (s *stack) close(logger *slog.Logger) {
	if s.cancel != nil {
		s.cancel()
	}
	if s.events != nil {
		s.events.Close()
	}
	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			logger.Error("closing event publisher", "error", err)
		}
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			logger.Error("closing storage", "error", err)
		}
	}
	if s.tracing != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.tracing.Shutdown(ctx); err != nil {
			logger.Error("shutting down tracing", "error", err)
		}
	}
}

// build constructs the server dependencies from cfg. On error everything
// built so far is released.
func build(ctx context.Context, cfg *config.Config, configDir string, logger *slog.Logger) (_ *stack, err error) {
	st := &stack{}
	defer func() {
		if err != nil {
			st.close(logger)
		}
	}()

	tokens, err := auth.NewTokenManager(cfg.Auth.JWTSecret)
	if err != nil {
		return nil, fmt.Errorf("%w: set JWT_SECRET or auth.jwt_secret", err)
	}

	st.tracing, err = telemetry.Init(ctx, &telemetry.Config{
		ServiceName:    "lilly",
		ServiceVersion: utils.Version,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		SampleRate:     cfg.Telemetry.SampleRate,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing tracing: %w", err)
	}

	storeOpts, err := storageOptions(cfg, configDir)
	if err != nil {
		return nil, err
	}
	st.store, err = storageopen.NewDriver(ctx, storeOpts, logger)
	if err != nil {
		return nil, fmt.Errorf("opening %s storage: %w", storeOpts.Provider, err)
	}
	logger.Info("storage ready", "provider", storeOpts.Provider)

	completer, err := newCompleter(cfg, logger)
	if err != nil {
		return nil, err
	}

	watchCtx, cancel := context.WithCancel(ctx)
	st.cancel = cancel
	source, err := newPersona(watchCtx, cfg.Chat.PersonaFile, logger)
	if err != nil {
		return nil, err
	}

	st.publisher, err = eventopen.NewPublisher(eventopen.Options{
		Provider: cfg.EventStream.Provider,
		Brokers:  splitList(cfg.EventStream.Brokers),
		Topic:    cfg.EventStream.Topic,
	})
	if err != nil {
		return nil, fmt.Errorf("creating event publisher: %w", err)
	}
	st.events, err = worker.NewPool(&worker.Config{
		Publisher: st.publisher,
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating worker pool: %w", err)
	}

	st.deps = api.Deps{
		Storer:    st.store,
		Completer: completer,
		Persona:   source,
		Hasher:    auth.NewPasswordHasher(),
		Tokens:    tokens,
		Events:    st.events,
	}
	return st, nil
}

// storageOptions fills in the default file location for the file-backed
// providers.
func storageOptions(cfg *config.Config, configDir string) (storageopen.Options, error) {
	opts := storageopen.Options{
		Provider: cfg.Storage.Provider,
		Target:   cfg.Storage.Target,
		Database: cfg.Storage.Database,
	}
	if opts.Target != "" {
		return opts, nil
	}

	var name string
	switch opts.Provider {
	case storageopen.ProviderSQLite:
		name = "lilly.db"
	case storageopen.ProviderBolt:
		name = "lilly.bolt"
	case storageopen.ProviderPostgres, storageopen.ProviderMongo:
		return opts, fmt.Errorf("storage provider %q requires storage.target", opts.Provider)
	default:
		return opts, nil
	}

	path, err := dotdir.NewManager().File(configDir, name)
	if err != nil {
		return opts, fmt.Errorf("resolving storage path: %w", err)
	}
	opts.Target = path
	return opts, nil
}

// newCompleter returns nil without an API key so /api/chat reports the
// missing key instead of the server refusing to start.
func newCompleter(cfg *config.Config, logger *slog.Logger) (llm.Completer, error) {
	client, err := openai.New(openai.Options{
		APIKey:      cfg.OpenAI.APIKey,
		AssistantID: cfg.OpenAI.AssistantID,
		BaseURL:     cfg.OpenAI.BaseURL,
		Model:       cfg.OpenAI.Model,
		Temperature: cfg.OpenAI.Temperature,
		MaxTokens:   int(cfg.OpenAI.MaxTokens),
		Logger:      logger,
	})
	if errors.Is(err, openai.ErrMissingAPIKey) {
		logger.Warn("no OpenAI API key configured, /api/chat will answer 500")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("creating openai client: %w", err)
	}

	if cfg.OpenAI.AssistantID == "" {
		logger.Info("chat provider ready", "strategy", llm.StrategyCompletion, "model", cfg.OpenAI.Model)
	} else {
		logger.Info("chat provider ready", "strategy", llm.StrategyAssistant, "model", cfg.OpenAI.Model)
	}
	return client, nil
}

// newPersona loads the persona file and watches it for edits until ctx is
// done. Without a file the built-in prompt is used.
func newPersona(ctx context.Context, path string, logger *slog.Logger) (persona.Source, error) {
	if path == "" {
		return persona.Static(persona.DefaultPrompt), nil
	}

	loader, err := persona.NewLoader(path, logger)
	if err != nil {
		return nil, fmt.Errorf("loading persona: %w", err)
	}

	ready := make(chan struct{})
	go func() {
		if err := loader.Watch(ctx, ready); err != nil {
			logger.Warn("persona watch stopped", "path", path, "error", err)
		}
	}()

	select {
	case <-ready:
	case <-ctx.Done():
	case <-time.After(time.Second):
		logger.Warn("persona watch not ready, edits may be missed", "path", path)
	}
	return loader, nil
}

// splitList splits a comma separated list, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
