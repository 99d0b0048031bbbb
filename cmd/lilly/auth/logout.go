package authcmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lillylive/lilly/pkg/cliui"
	"github.com/lillylive/lilly/pkg/session"
)

func NewLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			sessions, err := session.NewManager(configDir)
			if err != nil {
				return fmt.Errorf("loading session: %w", err)
			}

			if err := sessions.Clear(); err != nil {
				return fmt.Errorf("clearing session: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "\n  %s Signed out.\n\n", cliui.SuccessMark)
			return nil
		},
	}
}
