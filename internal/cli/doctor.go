package cli

import (
	"fmt"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/tiroq/screenrec/internal/config"
	"github.com/tiroq/screenrec/internal/detector"
	"github.com/tiroq/screenrec/internal/output"
	"github.com/tiroq/screenrec/internal/screencast"
	"github.com/tiroq/screenrec/internal/validation"
)

func NewDoctorCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check prerequisites",
		RunE: func(cmd *cobra.Command, args []string) error {
			f := output.NewFormatter(cmd.OutOrStdout())
			ok := true

			check := func(name string, r *validation.ValidationResult) {
				f.SetupCheck(name, r.OK, r.Message)
				for _, w := range r.Warnings {
					f.Warning("  " + w)
				}
				if !r.OK {
					f.Fixes(r.Fixes)
					ok = false
				}
			}

			for _, tool := range detector.LookupTools("ffmpeg", "xdg-open") {
				if tool.Found {
					f.SetupCheck(tool.Name, true, tool.Path)
				} else {
					f.SetupCheck(tool.Name, false, "not found on PATH")
					ok = false
				}
			}

			if out, err := exec.Command("ffmpeg", "-version").Output(); err == nil {
				check("ffmpeg version", validation.ValidateFFmpegVersion(string(out)))
			}

			env, err := detector.NewEnvDetector().Detect()
			if err != nil {
				return err
			}
			session := env.SessionType
			if session == "" {
				session = "unknown"
			}
			f.SetupCheck("Session", true, fmt.Sprintf("%s (display %s), %s backend", session, env.Display, env.Backend))

			if env.Backend == detector.BackendCompositor {
				check("Compositor", validation.ValidateCompositor(pingCompositor()))
			}

			check("Output directory", validation.ValidateOutputDir(deps.Defaults.OutputDir))
			f.SetupCheck("Config file", true, config.FilePath())

			if ok {
				f.Success("\nAll prerequisites met. Ready to record!")
			} else {
				f.Warning("\nSome prerequisites are missing.")
			}
			return nil
		},
	}
}

func pingCompositor() error {
	c, err := screencast.Connect()
	if err != nil {
		return err
	}
	defer c.Close()
	return c.Ping()
}
