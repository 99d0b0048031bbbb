package authcmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lillylive/lilly/pkg/cliui"
	"github.com/lillylive/lilly/pkg/storage"
)

const signupLongDesc string = `Create a Lilly account and sign in.

Prompts for anything not given as a flag. The password is always read from
the terminal without echo, or from the first line of stdin when piped.

Examples:
  lilly signup
  lilly signup --nickname sam --email sam@example.com
  echo "$PASSWORD" | lilly signup -n sam -e sam@example.com`

const signupShortDesc string = "Create an account"

func NewSignupCmd() *cobra.Command {
	var nickname, email string
	var noLogin bool

	cmd := &cobra.Command{
		Use:   "signup",
		Short: signupShortDesc,
		Long:  signupLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := newEnv(cmd)
			if err != nil {
				return err
			}

			p := newPrompter(cmd)
			if nickname, err = p.value(nickname, "Nickname:"); err != nil {
				return err
			}
			if nickname == "" {
				return fmt.Errorf("nickname cannot be empty")
			}
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
			var user *storage.User
			err = cliui.Step(w, "Creating account", func() error {
				var serr error
				user, serr = e.client.Signup(cmd.Context(), nickname, email, password)
				return serr
			})
			if err != nil {
				return describe(err)
			}

			if noLogin {
				fmt.Fprintf(w, "\n  %s Account created for %s. Run 'lilly login' to sign in.\n\n",
					cliui.SuccessMark, cliui.NameStyle.Render(user.Nickname))
				return nil
			}

			if _, err := e.login(cmd.Context(), w, email, password); err != nil {
				return err
			}
			fmt.Fprintf(w, "\n  %s Welcome, %s!\n\n", cliui.SuccessMark, cliui.NameStyle.Render(user.Nickname))
			return nil
		},
	}

	cmd.Flags().StringVarP(&nickname, "nickname", "n", "", "Display name")
	cmd.Flags().StringVarP(&email, "email", "e", "", "Account email")
	cmd.Flags().BoolVar(&noLogin, "no-login", false, "Create the account without signing in")
	addAPITargetFlag(cmd)

	return cmd
}
