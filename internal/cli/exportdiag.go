package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tiroq/screenrec/internal/diaglog"
	"github.com/tiroq/screenrec/internal/output"
	"github.com/tiroq/screenrec/internal/version"
)

func NewExportDiagCmd() *cobra.Command {
	var dest string

	cmd := &cobra.Command{
		Use:   "export-diag",
		Short: "Bundle the diagnostic log for a bug report",
		RunE: func(cmd *cobra.Command, args []string) error {
			diaglog.Version = version.Version

			path, n, err := diaglog.Export(diaglog.DefaultPath(), dest)
			if err != nil {
				if errors.Is(err, os.ErrNotExist) {
					return fmt.Errorf("%w (run with SCREENREC_DEBUG_RECORDING=true to enable logging)", err)
				}
				return err
			}
			output.NewFormatter(cmd.OutOrStdout()).Success(fmt.Sprintf("Wrote: %s (%d lines)", path, n))
			return nil
		},
	}
	cmd.Flags().StringVar(&dest, "dest", ".", "Directory receiving the bundle")
	return cmd
}
