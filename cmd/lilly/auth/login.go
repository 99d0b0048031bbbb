package authcmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lillylive/lilly/pkg/auth"
	"github.com/lillylive/lilly/pkg/cliui"
)

const loginLongDesc string = `Sign in to a Lilly server.

The session token is stored in session.toml in the .lilly/ directory and is
valid for 7 days.

Examples:
  lilly login
  lilly login --email sam@example.com
  lilly login -a https://lilly.example.com`

const loginShortDesc string = "Sign in"

func NewLoginCmd() *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "login",
		Short: loginShortDesc,
		Long:  loginLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := newEnv(cmd)
			if err != nil {
				return err
			}

			p := newPrompter(cmd)
			if email, err = p.value(email, "Email:"); err != nil {
				return err
			}
			if err := validateEmail(email); err != nil {
				return err
			}
			password, err := p.password("Password:")
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			token, err := e.login(cmd.Context(), w, email, password)
			if err != nil {
				return err
			}

			name := email
			if claims, err := auth.DecodeUnverified(token); err == nil && claims.Nickname != "" {
				name = claims.Nickname
			}
			fmt.Fprintf(w, "\n  %s Welcome back, %s!\n\n", cliui.SuccessMark, cliui.NameStyle.Render(name))
			return nil
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "Account email")
	addAPITargetFlag(cmd)

	return cmd
}
