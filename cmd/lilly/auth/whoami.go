package authcmder

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/lillylive/lilly/pkg/cliui"
	"github.com/lillylive/lilly/pkg/client"
)

const whoamiLongDesc string = `Show the signed-in account.

The stored token is decoded locally. With --verify the server checks the
signature too, and a rejected session is cleared.`

func NewWhoamiCmd() *cobra.Command {
	var verify bool

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		Long:  whoamiLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := newEnv(cmd)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			claims, err := e.sessions.Current()
			if err != nil {
				return fmt.Errorf("reading session: %w", err)
			}
			if claims == nil {
				fmt.Fprintf(w, "\n  %s Not signed in.\n", cliui.DimStyle.Render("●"))
				fmt.Fprintf(w, "  Use 'lilly login' or 'lilly signup' to get started.\n\n")
				return nil
			}

			if verify {
				s, err := e.sessions.Load()
				if err != nil {
					return fmt.Errorf("reading session: %w", err)
				}
				c := e.client
				if s.APITarget != "" && !cmd.Flags().Changed("api-target") {
					c = client.New(s.APITarget)
				}

				err = cliui.Step(w, "Verifying with "+c.BaseURL(), func() error {
					_, err := c.Me(cmd.Context(), s.Token)
					return err
				})
				if client.IsStatus(err, http.StatusUnauthorized) {
					_ = e.sessions.Clear()
					return fmt.Errorf("session rejected by server, signed out")
				}
				if err != nil {
					return describe(err)
				}
			}

			fmt.Fprintf(w, "\n  %s\n\n", cliui.HeaderStyle.Render("Signed in"))
			fmt.Fprintf(w, "  %s  %s\n", cliui.KeyStyle.Render("nickname"), cliui.ValueStyle.Render(claims.Nickname))
			fmt.Fprintf(w, "  %s     %s\n", cliui.KeyStyle.Render("email"), cliui.ValueStyle.Render(claims.Email))
			fmt.Fprintf(w, "  %s   %s\n\n", cliui.KeyStyle.Render("expires"),
				cliui.ValueStyle.Render(claims.ExpiresAt.Local().Format(time.RFC1123)))
			return nil
		},
	}

	cmd.Flags().BoolVar(&verify, "verify", false, "Ask the server to verify the session")
	addAPITargetFlag(cmd)

	return cmd
}
