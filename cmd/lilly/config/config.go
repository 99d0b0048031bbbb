// Package configcmder provides the config command for managing persistent
// lilly configuration stored in the .lilly/ directory.
package configcmder

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lillylive/lilly/pkg/cliui"
	"github.com/lillylive/lilly/pkg/config"
)

const configLongDesc string = `Manage persistent lilly configuration.

Configuration is stored as config.toml in the .lilly/ directory and provides
default values for command flags. CLI flags and LILLY_* environment
variables always take precedence over config file values.

Keys use dotted notation matching the TOML section structure, for example
server.listen, storage.provider, openai.model, chat.reveal_delay_ms and
client.api_target. Run 'lilly config list' to see them all.

Secrets (openai.api_key, auth.jwt_secret, storage.target) are masked unless
--show-secrets is given.

Examples:
  lilly config set openai.assistant_id asst_123
  lilly config set storage.provider postgres
  lilly config get openai.model
  lilly config list`

const configShortDesc string = "Manage persistent lilly configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}

func validateKey(key string) error {
	if !config.IsValidConfigKey(key) {
		return fmt.Errorf("unknown config key: %q\n\nValid keys: %s",
			key, strings.Join(config.ValidConfigKeys(), ", "))
	}
	return nil
}

func completeKeys(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return config.ValidConfigKeys(), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

func printTarget(w io.Writer, cfger *config.Configer) {
	fmt.Fprintf(w, "\n  %s %s\n\n",
		cliui.KeyStyle.Render("Config file:"),
		cliui.DimStyle.Render(cfger.GetTarget()),
	)
}

// display returns value as it should be printed for key.
func display(key, value string, showSecrets bool) string {
	if !showSecrets && config.IsSecretKey(key) {
		return config.Mask(value)
	}
	return value
}
