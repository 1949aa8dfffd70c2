package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tiroq/screenrec/internal/config"
	"github.com/tiroq/screenrec/internal/ipc"
	"github.com/tiroq/screenrec/internal/output"
	"github.com/tiroq/screenrec/internal/pidfile"
	"github.com/tiroq/screenrec/internal/session"
)

// recordFlags are layered over the config file defaults
type recordFlags struct {
	name         string
	outputDir    string
	format       string
	video        bool
	audio        bool
	audioSource  string
	region       string
	frameRate    float64
	delay        int
	noCursor     bool
	followCursor bool
	postCommand  string
	yes          bool
}

func (f *recordFlags) register(cmd *cobra.Command, d *config.Defaults) {
	fl := cmd.Flags()
	fl.StringVarP(&f.name, "name", "n", "", "File name without extension (default: current timestamp)")
	fl.StringVarP(&f.outputDir, "output-dir", "o", d.OutputDir, "Directory receiving the recording")
	fl.StringVarP(&f.format, "format", "f", d.Format, "Container/extension, e.g. mp4, mkv, webm, ogg")
	fl.BoolVar(&f.video, "video", d.RecordVideo, "Record the screen")
	fl.BoolVar(&f.audio, "audio", d.RecordAudio, "Record the audio source")
	fl.StringVar(&f.audioSource, "audio-source", d.AudioSource, "PulseAudio source to record")
	fl.StringVarP(&f.region, "region", "r", formatRegion(d.Region), "Area as x,y,width,height (empty: full screen)")
	fl.Float64Var(&f.frameRate, "framerate", d.FrameRate, "Frames per second")
	fl.IntVarP(&f.delay, "delay", "d", d.Delay, "Seconds to wait before the X11 grab starts")
	fl.BoolVar(&f.noCursor, "no-cursor", !d.DrawCursor, "Do not draw the mouse pointer")
	fl.BoolVar(&f.followCursor, "follow-cursor", d.FollowCursor, "X11 only: keep the pointer centered in the region")
	fl.StringVar(&f.postCommand, "post-command", d.PostCommand, "Shell command run after a successful recording")
	fl.BoolVarP(&f.yes, "yes", "y", false, "Overwrite an existing file without asking")
}

func (f *recordFlags) config() (config.RecordingConfig, error) {
	region, err := parseRegion(f.region)
	if err != nil {
		return config.RecordingConfig{}, err
	}
	return config.RecordingConfig{
		OutputDir:    f.outputDir,
		Name:         f.name,
		Format:       strings.TrimPrefix(f.format, "."),
		RecordVideo:  f.video,
		RecordAudio:  f.audio,
		AudioSource:  f.audioSource,
		DrawCursor:   !f.noCursor,
		FollowCursor: f.followCursor,
		FrameRate:    f.frameRate,
		Delay:        f.delay,
		PostCommand:  f.postCommand,
		Region:       region,
	}, nil
}

func NewRecordCmd(deps *Dependencies) *cobra.Command {
	var flags recordFlags

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record in the foreground until Ctrl+C or 'screenrec stop'",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.config()
			if err != nil {
				return fmt.Errorf("%w: %v", session.ErrConfig, err)
			}
			return runRecord(cmd.Context(), cfg, flags.yes)
		},
	}
	flags.register(cmd, deps.Defaults)
	return cmd
}

func runRecord(ctx context.Context, cfg config.RecordingConfig, yes bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	f := output.NewFormatter(os.Stdout)

	logs, err := openLogs("[screenrec-record]", nil)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer logs.Close()

	// the recorder owns cmd.txt while it runs, like the daemon
	pf, err := pidfile.New(pidfile.DefaultPath("screenrec"))
	if err != nil {
		return fmt.Errorf("cannot record while another screenrec owns the command file: %w", err)
	}
	defer pf.Remove()

	var confirmer session.Confirmer = session.StaticConfirmer(true)
	if !yes {
		confirmer = session.PromptConfirmer{In: os.Stdin, Out: os.Stdout}
	}
	status := ipc.NewStatusReporter(nil, logs.Err)
	progress := output.NewProgress(os.Stdout, output.IsTerminal(os.Stdout))

	a := newApp(logs, confirmer, session.MultiReporter{progress, status})
	defer a.Close()
	status.Bind(a.orch.Status)

	events := make(chan ipc.Command, 8)
	watcher := newCommandWatcher(logs, events)
	watcher.drain()
	go watcher.Run(ctx)
	forwardSignals(ctx, events, ipc.CmdStop, logs)

	if cfg.RecordVideo && cfg.Delay > 0 {
		f.Info(fmt.Sprintf("Starting in %ds...", cfg.Delay))
	}

	interrupted, err := startInterruptible(ctx, a.orch, cfg, events, logs)
	if err != nil {
		logFailure(logs, "Recording", err)
		if errors.Is(err, session.ErrConflictDeclined) {
			f.Info("Recording cancelled, existing file kept")
			return nil
		}
		if interrupted != "" {
			f.Info("Recording cancelled before it started")
			return nil
		}
		return err
	}
	status.SetLastAction("record")
	status.Publish()

	startedAt := time.Now()
	st := a.orch.Status()
	f.RecordingStarted(st.Path, string(st.Backend), cfg.RecordAudio)

	if interrupted == "" {
		f.WaitingForStop()
		interrupted = waitForStop(ctx, events, logs)
	}

	status.SetLastAction(string(interrupted))
	recorded := time.Since(startedAt)
	if err := a.orch.Stop(context.Background()); err != nil {
		logFailure(logs, "Recording", err)
		status.Publish()
		return err
	}
	status.Publish()

	f.RecordingSaved(st.Path, recorded)
	return nil
}

// waitForStop blocks until a stop, toggle or quit arrives
func waitForStop(ctx context.Context, events <-chan ipc.Command, logs *Logs) ipc.Command {
	for {
		select {
		case <-ctx.Done():
			return ipc.CmdStop
		case cmd := <-events:
			switch cmd {
			case ipc.CmdStop, ipc.CmdToggle, ipc.CmdQuit:
				return cmd
			default:
				logs.Out.Printf("Ignoring %s while recording in the foreground", cmd)
			}
		}
	}
}

func parseRegion(s string) (config.Region, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return config.Region{}, nil
	}
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return config.Region{}, fmt.Errorf("region %q must be x,y,width,height", s)
	}
	var v [4]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return config.Region{}, fmt.Errorf("region %q: %w", s, err)
		}
		v[i] = n
	}
	return config.Region{X: v[0], Y: v[1], Width: v[2], Height: v[3]}, nil
}

func formatRegion(r config.Region) string {
	if r == (config.Region{}) {
		return ""
	}
	return fmt.Sprintf("%d,%d,%d,%d", r.X, r.Y, r.Width, r.Height)
}
