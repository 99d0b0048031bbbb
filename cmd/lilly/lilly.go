// Package lillycmder is the root lilly command.
package lillycmder

import (
	"github.com/spf13/cobra"

	authcmder "github.com/lillylive/lilly/cmd/lilly/auth"
	chatcmder "github.com/lillylive/lilly/cmd/lilly/chat"
	configcmder "github.com/lillylive/lilly/cmd/lilly/config"
	servecmder "github.com/lillylive/lilly/cmd/lilly/serve"
	versioncmder "github.com/lillylive/lilly/cmd/version"
)

const lillyLongDesc string = `Lilly is a gentle mental-wellness chat companion.

Run the server and talk to Lilly using:
  lilly serve      Run the web server (landing page, chat and account API)
  lilly signup     Create an account
  lilly login      Sign in and store a session token
  lilly chat       Chat with Lilly in the terminal`

const lillyShortDesc string = "Lilly - wellness chat companion"

func NewLillyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "lilly",
		Short:        lillyShortDesc,
		Long:         lillyLongDesc,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to .lilly/ config directory")

	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(authcmder.NewSignupCmd())
	cmd.AddCommand(authcmder.NewLoginCmd())
	cmd.AddCommand(authcmder.NewLogoutCmd())
	cmd.AddCommand(authcmder.NewWhoamiCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
