// Package api provides the lilly HTTP server: the chat endpoint, account
// endpoints and the landing page.
package api

import (
	"github.com/lillylive/lilly/pkg/auth"
	"github.com/lillylive/lilly/pkg/llm"
	"github.com/lillylive/lilly/pkg/persona"
	"github.com/lillylive/lilly/pkg/storage"
	"github.com/lillylive/lilly/pkg/worker"
)

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8080")
	ListenAddr string

	// AllowOrigins is the CORS allow list. Defaults to "*".
	AllowOrigins string

	// AuthRateLimit caps login and signup requests per client IP per minute.
	// Zero disables the limiter.
	AuthRateLimit int
}

// Deps are the collaborators the handlers call.
type Deps struct {
	// Storer is the user directory. Required.
	Storer storage.Driver

	// Completer produces chat replies. Nil means no provider key is
	// configured and /api/chat answers 500.
	Completer llm.Completer

	// Persona supplies the system turn. Nil sends conversations unchanged
	// apart from dropping client system turns.
	Persona persona.Source

	// Hasher hashes and checks passwords. Required.
	Hasher *auth.PasswordHasher

	// Tokens issues and verifies session tokens. Required.
	Tokens interface {
		auth.Issuer
		auth.Verifier
	}

	// Events receives a chat event per request. Optional.
	Events *worker.Pool
}
