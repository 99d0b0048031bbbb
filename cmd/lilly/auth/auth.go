// Package authcmder provides the signup, login, logout and whoami commands
// that manage the client session.
package authcmder

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/mail"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lillylive/lilly/pkg/cliui"
	"github.com/lillylive/lilly/pkg/client"
	"github.com/lillylive/lilly/pkg/config"
	"github.com/lillylive/lilly/pkg/session"
)

// prompter reads answers from the command's stdin and writes prompts to
// its stdout.
type prompter struct {
	out io.Writer
	in  *bufio.Reader
}

func newPrompter(cmd *cobra.Command) *prompter {
	return &prompter{out: cmd.OutOrStdout(), in: bufio.NewReader(cmd.InOrStdin())}
}

// value returns current when set, otherwise prompts with label.
func (p *prompter) value(current, label string) (string, error) {
	if v := strings.TrimSpace(current); v != "" {
		return v, nil
	}
	v, err := cliui.Prompt(p.out, p.in, label)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", strings.ToLower(strings.TrimSuffix(label, ":")), err)
	}
	return v, nil
}

func (p *prompter) password(label string) (string, error) {
	v, err := cliui.PromptPassword(p.out, p.in, label)
	if err != nil {
		return "", err
	}
	if v == "" {
		return "", errors.New("password cannot be empty")
	}
	return v, nil
}

func validateEmail(email string) error {
	if email == "" {
		return errors.New("email cannot be empty")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return fmt.Errorf("invalid email %q", email)
	}
	return nil
}

// env is what every session command needs: the session file and a client
// for the resolved server.
type env struct {
	sessions *session.Manager
	client   *client.Client
}

// newEnv resolves the server from --api-target, LILLY_CLIENT_API_TARGET and
// config.toml, and opens the session file in --config-dir.
func newEnv(cmd *cobra.Command) (*env, error) {
	configDir, _ := cmd.Flags().GetString("config-dir")

	v, err := config.InitViper(configDir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	config.BindRegisteredFlags(v, cmd, config.Flags, []string{config.FlagAPITarget})

	sessions, err := session.NewManager(configDir)
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}

	return &env{
		sessions: sessions,
		client:   client.New(v.GetString("client.api_target")),
	}, nil
}

// login exchanges credentials for a token and stores it.
func (e *env) login(ctx context.Context, w io.Writer, email, password string) (string, error) {
	var token string
	err := cliui.Step(w, "Signing in to "+e.client.BaseURL(), func() error {
		resp, err := e.client.Login(ctx, email, password)
		if err != nil {
			return err
		}
		token = resp.Token
		return nil
	})
	if err != nil {
		return "", describe(err)
	}

	if err := e.sessions.SaveToken(token, e.client.BaseURL()); err != nil {
		return "", fmt.Errorf("saving session: %w", err)
	}
	return token, nil
}

// describe turns a server error into the message shown to the user.
func describe(err error) error {
	var se *client.StatusError
	if errors.As(err, &se) && se.Message != "" {
		return errors.New(se.Message)
	}
	return err
}

func addAPITargetFlag(cmd *cobra.Command) {
	var target string
	config.AddStringFlag(cmd, config.Flags, config.FlagAPITarget, &target)
}
