package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tiroq/screenrec/internal/detector"
	"github.com/tiroq/screenrec/internal/fileutil"
	"github.com/tiroq/screenrec/internal/ipc"
	"github.com/tiroq/screenrec/internal/output"
	"github.com/tiroq/screenrec/internal/pidfile"
	"github.com/tiroq/screenrec/internal/session"
)

var controlHelp = map[ipc.Command]string{
	ipc.CmdStart:  "Ask the daemon to start recording",
	ipc.CmdStop:   "Ask the daemon (or a foreground record) to stop and save",
	ipc.CmdToggle: "Start or stop depending on the current state",
	ipc.CmdPlay:   "Open the last finished recording",
	ipc.CmdQuit:   "Stop any recording and shut the daemon down",
}

// NewControlCmds returns one subcommand per daemon command
func NewControlCmds() []*cobra.Command {
	cmds := make([]*cobra.Command, 0, len(ipc.Commands))
	for _, c := range ipc.Commands {
		c := c
		cmds = append(cmds, &cobra.Command{
			Use:   string(c),
			Short: controlHelp[c],
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return sendCommand(c, output.NewFormatter(cmd.OutOrStdout()))
			},
		})
	}
	return cmds
}

func sendCommand(c ipc.Command, f *output.Formatter) error {
	if _, running := pidfile.Lookup(pidfile.DefaultPath("screenrec")); !running {
		if c == ipc.CmdPlay {
			return playLastRecording(f)
		}
		return fmt.Errorf("no screenrec daemon is running; start one with 'screenrec daemon'")
	}

	if err := ipc.WriteCommand(c); err != nil {
		return fmt.Errorf("failed to send %s: %w", c, err)
	}
	f.Sent(string(c))
	return nil
}

// playLastRecording opens the artifact named in the last status snapshot
func playLastRecording(f *output.Formatter) error {
	st, err := ipc.ReadStatus()
	if err != nil || st.LastRecording == "" || !fileutil.Exists(st.LastRecording) {
		return session.ErrNothingToPlay
	}
	if err := newLauncher(detector.NewEnvDetector()).Open(st.LastRecording); err != nil {
		return err
	}
	f.Info("Opening " + st.LastRecording)
	return nil
}

func NewStatusCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the daemon state and the last recording",
		RunE: func(cmd *cobra.Command, args []string) error {
			if asJSON {
				data, err := os.ReadFile(ipc.StatusPath())
				if err != nil {
					return fmt.Errorf("no status available: %w", err)
				}
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}

			f := output.NewFormatter(cmd.OutOrStdout())
			pid, running := pidfile.Lookup(pidfile.DefaultPath("screenrec"))

			view := output.StatusView{Daemon: running, PID: pid, State: "idle"}
			if st, err := ipc.ReadStatus(); err == nil {
				view.LastRecording = st.LastRecording
				view.LastError = st.LastError
				view.UpdatedAt = st.Timestamp
				// a snapshot left by a dead daemon only tells what happened last
				if running && st.PID == pid {
					view.State = st.State
					view.Backend = st.Backend
					view.Path = st.Path
					view.Duration = secondsToDuration(st.DurationSeconds)
					if st.Stage != nil {
						view.StageLabel, view.StageN, view.StageTotal = st.Stage.Label, st.Stage.N, st.Stage.Total
					}
				}
			}
			f.Status(view)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw status file")
	return cmd
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
