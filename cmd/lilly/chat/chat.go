// Package chatcmder provides the chat command, a terminal front end for the
// lilly chat endpoint.
package chatcmder

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/lillylive/lilly/pkg/cliui"
	"github.com/lillylive/lilly/pkg/client"
	"github.com/lillylive/lilly/pkg/config"
	"github.com/lillylive/lilly/pkg/logger"
	"github.com/lillylive/lilly/pkg/session"
)

type chatCommander struct {
	apiTarget   string
	revealDelay uint
	plain       bool
	debug       bool
	configDir   string

	viper  *viper.Viper
	logger *slog.Logger
}

const chatLongDesc string = `Talk with Lilly.

Opens a conversation with the lilly server. Replies are revealed line by
line; set --reveal-delay-ms 0 to show them at once.

In the terminal UI, Enter sends and Alt+Enter or Ctrl+J inserts a newline.
Esc or Ctrl+C quits. When stdin is not a terminal, or with --plain, each
line is one message; end a line with \ to continue it on the next. /exit
quits.

Examples:
  lilly chat
  lilly chat --api-target https://lilly.example.com
  echo "I had a rough day" | lilly chat --plain`

const chatShortDesc string = "Talk with Lilly"

var chatFlags = []string{config.FlagAPITarget, config.FlagRevealDelay}

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			config.BindRegisteredFlags(v, cmd, config.Flags, chatFlags)
			cmder.apiTarget = v.GetString("client.api_target")
			cmder.revealDelay = v.GetUint("chat.reveal_delay_ms")
			cmder.viper = v
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			cmder.logger = logger.New(logger.WithDebug(cmder.debug), logger.WithWriter(cmd.ErrOrStderr()))
			return cmder.run(cmd)
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagAPITarget, &cmder.apiTarget)
	config.AddUintFlag(cmd, config.Flags, config.FlagRevealDelay, &cmder.revealDelay)
	cmd.Flags().BoolVar(&cmder.plain, "plain", false, "Use line mode even on a terminal")

	return cmd
}

func (c *chatCommander) run(cmd *cobra.Command) error {
	nickname := c.nickname()
	sender := client.New(c.apiTarget)
	delay := time.Duration(c.revealDelay) * time.Millisecond

	c.logger.Debug("starting chat", "api_target", sender.BaseURL(), "reveal_delay", delay)

	if c.plain || !cliui.IsInteractive() {
		return runLines(cmd.Context(), lineConfig{
			In:          cmd.InOrStdin(),
			Out:         cmd.OutOrStdout(),
			Sender:      sender,
			RevealDelay: delay,
			Nickname:    nickname,
			Logger:      c.logger,
		})
	}

	return runTUI(cmd.Context(), tuiConfig{
		Sender:      sender,
		RevealDelay: delay,
		Nickname:    nickname,
		Logger:      c.logger,
	})
}

// nickname returns the signed-in name for the header. Chat works signed
// out, so session problems only get logged.
func (c *chatCommander) nickname() string {
	sessions, err := session.NewManager(c.configDir)
	if err != nil {
		c.logger.Debug("session unavailable", "error", err)
		return ""
	}
	name, err := sessions.Nickname()
	if err != nil {
		c.logger.Debug("reading session", "error", err)
		return ""
	}
	return name
}
