package cli

import (
	"github.com/tiroq/screenrec/internal/detector"
	"github.com/tiroq/screenrec/internal/diaglog"
	"github.com/tiroq/screenrec/internal/encoder"
	"github.com/tiroq/screenrec/internal/playback"
	"github.com/tiroq/screenrec/internal/screencast"
	"github.com/tiroq/screenrec/internal/session"
	"github.com/tiroq/screenrec/internal/version"
)

// app is the wired orchestrator with the resources it holds open
type app struct {
	orch *session.Orchestrator
	diag *diaglog.Logger
	logs *Logs
	sc   *screencast.Client
}

func openDiagLog(logs *Logs) *diaglog.Logger {
	diaglog.Version = version.Version

	path := diaglog.DefaultPath()
	dl, err := diaglog.New(path)
	if err != nil {
		logs.Err.Printf("WARNING: could not open diagnostic log at %s: %v (continuing)", path, err)
		return diaglog.NewNoOp()
	}
	return dl
}

// newApp wires the production collaborators around an orchestrator
func newApp(logs *Logs, confirmer session.Confirmer, reporter session.ProgressReporter) *app {
	a := &app{logs: logs, diag: openDiagLog(logs)}

	runner := encoder.NewFFmpeg("ffmpeg")
	runner.SetLogger(a.diag)

	det := detector.NewEnvDetector()
	launcher := newLauncher(det)
	launcher.SetLogger(a.diag)

	a.orch = session.New(session.Options{
		Runner:     runner,
		Screencast: a.connectScreencast,
		Detector:   det,
		Confirmer:  confirmer,
		Reporter:   reporter,
		Shell:      playback.ExecStarter{},
		Opener:     launcher,
		Logger:     logs.Out,
		DiagLog:    a.diag,
	})
	return a
}

// newLauncher picks the player opener from one detection of the session
func newLauncher(det detector.Detector) *playback.Launcher {
	env, err := det.Detect()
	if err != nil {
		env = nil
	}
	return playback.NewLauncherFor(playback.ExecStarter{}, env)
}

// connectScreencast opens the session bus on the first compositor capture
func (a *app) connectScreencast() (screencast.Screencaster, error) {
	if a.sc != nil {
		return a.sc, nil
	}
	c, err := screencast.Connect()
	if err != nil {
		return nil, err
	}
	c.SetLogger(a.diag)
	a.sc = c
	return c, nil
}

func (a *app) Close() {
	if a.sc != nil {
		if err := a.sc.Close(); err != nil {
			a.logs.Err.Printf("Failed to close session bus: %v", err)
		}
	}
	_ = a.diag.Close()
}
