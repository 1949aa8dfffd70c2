package cli

import (
	"github.com/spf13/cobra"

	"github.com/tiroq/screenrec/internal/config"
	"github.com/tiroq/screenrec/internal/version"
)

type Dependencies struct {
	Defaults *config.Defaults
}

func NewRootCmd(deps *Dependencies) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "screenrec",
		Short: "Record the screen and audio with ffmpeg or GNOME Shell",
		Long: "screenrec records the screen, an audio source, or both.\n" +
			"On X11 frames are grabbed with ffmpeg; on Wayland the GNOME Shell screencast service records\n" +
			"and the result is transcoded. Run 'screenrec record' in a terminal, or 'screenrec daemon'\n" +
			"and control it with 'screenrec start|stop|toggle|play|quit'.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.Version = version.Version
	rootCmd.SetVersionTemplate(version.Full() + "\n")

	rootCmd.AddCommand(NewRecordCmd(deps))
	rootCmd.AddCommand(NewDaemonCmd(deps))
	for _, c := range NewControlCmds() {
		rootCmd.AddCommand(c)
	}
	rootCmd.AddCommand(NewStatusCmd())
	rootCmd.AddCommand(NewDoctorCmd(deps))
	rootCmd.AddCommand(NewExportDiagCmd())
	rootCmd.AddCommand(NewInitConfigCmd(deps))

	return rootCmd
}
