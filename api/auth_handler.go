package api

import (
	"encoding/json"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/lillylive/lilly/pkg/auth"
	"github.com/lillylive/lilly/pkg/storage"
)

const (
	errCredentialsRequired = "Email and password are required"
	errInvalidCredentials  = "Invalid email or password"
	errSomethingWentWrong  = "Something went wrong"
	errSignupFields        = "Nickname, email and password are required"
	errInvalidEmail        = "Email address is invalid"
	errPasswordTooLong     = "Password must be at most 72 bytes"
	errEmailTaken          = "An account with this email already exists"
	errUnauthorized        = "Unauthorized"
)

// CredentialsRequest is the body of /api/login and /api/signup.
type CredentialsRequest struct {
	Nickname string `json:"nickname,omitempty"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is returned by a successful login.
type LoginResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
}

// MeResponse describes the caller's verified session.
type MeResponse struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Nickname  string    `json:"nickname"`
	ExpiresAt time.Time `json:"expires_at"`
}

func parseCredentials(body []byte) (CredentialsRequest, bool) {
	var req CredentialsRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return req, false
	}
	req.Nickname = strings.TrimSpace(req.Nickname)
	req.Email = strings.TrimSpace(req.Email)
	return req, true
}

// handleLogin checks credentials and issues a session token. Unknown email
// and wrong password produce the same response.
func (s *Server) handleLogin(c *fiber.Ctx) error {
	req, ok := parseCredentials(c.Body())
	if !ok || req.Email == "" || req.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(errorBody(errCredentialsRequired))
	}

	user, err := s.deps.Storer.GetUserByEmail(c.UserContext(), req.Email)
	if err != nil {
		if storage.IsNotFound(err) {
			return c.Status(fiber.StatusUnauthorized).JSON(errorBody(errInvalidCredentials))
		}
		s.logger.Error("login lookup failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(errorBody(errSomethingWentWrong))
	}

	if !s.deps.Hasher.Compare(user.PasswordHash, req.Password) {
		return c.Status(fiber.StatusUnauthorized).JSON(errorBody(errInvalidCredentials))
	}

	token, err := s.deps.Tokens.Issue(auth.Identity{
		UserID:   user.ID,
		Email:    user.Email,
		Nickname: user.Nickname,
	})
	if err != nil {
		s.logger.Error("issuing token failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(errorBody(errSomethingWentWrong))
	}

	s.logger.Info("user logged in", "user_id", user.ID)
	return c.JSON(LoginResponse{Message: "Login successful", Token: token})
}

// handleSignup registers a new account and returns it without the hash.
func (s *Server) handleSignup(c *fiber.Ctx) error {
	req, ok := parseCredentials(c.Body())
	if !ok || req.Nickname == "" || req.Email == "" || req.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(errorBody(errSignupFields))
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorBody(errInvalidEmail))
	}

	hash, err := s.deps.Hasher.Hash(req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return c.Status(fiber.StatusBadRequest).JSON(errorBody(errPasswordTooLong))
		}
		s.logger.Error("hashing password failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(errorBody(errSomethingWentWrong))
	}

	user, err := s.deps.Storer.CreateUser(c.UserContext(), &storage.User{
		Nickname:     req.Nickname,
		Email:        req.Email,
		PasswordHash: hash,
	})
	if err != nil {
		if errors.Is(err, storage.ErrEmailTaken) {
			return c.Status(fiber.StatusConflict).JSON(errorBody(errEmailTaken))
		}
		s.logger.Error("creating user failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(errorBody(errSomethingWentWrong))
	}

	s.logger.Info("user signed up", "user_id", user.ID)
	return c.Status(fiber.StatusCreated).JSON(user)
}

// handleMe verifies the bearer token and echoes its claims.
func (s *Server) handleMe(c *fiber.Ctx) error {
	header := c.Get(fiber.HeaderAuthorization)
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || strings.TrimSpace(token) == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(errorBody(errUnauthorized))
	}

	claims, err := s.deps.Tokens.Verify(strings.TrimSpace(token))
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(errorBody(errUnauthorized))
	}

	return c.JSON(MeResponse{
		UserID:    claims.UserID,
		Email:     claims.Email,
		Nickname:  claims.Nickname,
		ExpiresAt: claims.ExpiresAt,
	})
}
