package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tiroq/screenrec/internal/config"
	"github.com/tiroq/screenrec/internal/fileutil"
	"github.com/tiroq/screenrec/internal/output"
)

func NewInitConfigCmd(deps *Dependencies) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init-config",
		Short: "Write the current defaults to the config file",
		Long: "Write the effective defaults (built-ins plus SCREENREC_* overrides) to\n" +
			"~/.config/screenrec/config.toml so they can be edited.",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.FilePath()
			if path == "" {
				return fmt.Errorf("cannot determine config directory")
			}
			if fileutil.Exists(path) && !force {
				return fmt.Errorf("config already exists at %s; use --force to overwrite", path)
			}

			d := config.DefaultDefaults()
			if deps.Defaults != nil {
				d = *deps.Defaults
			}
			if err := config.Save(&d); err != nil {
				return fmt.Errorf("writing config: %w", err)
			}
			output.NewFormatter(cmd.OutOrStdout()).Success("Wrote: " + path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Replace an existing config file")
	return cmd
}
