package main

import (
	"errors"
	"fmt"
	"os"

	child_process_manager "github.com/AgustinSRG/go-child-process-manager"

	"github.com/tiroq/screenrec/internal/cli"
	"github.com/tiroq/screenrec/internal/config"
	"github.com/tiroq/screenrec/internal/output"
	"github.com/tiroq/screenrec/internal/session"
	"github.com/tiroq/screenrec/internal/validation"
)

func main() {
	if err := run(); err != nil {
		formatter := output.NewFormatter(os.Stderr)
		formatter.Error(err.Error())
		if !errors.Is(err, session.ErrConfig) && !errors.Is(err, session.ErrNothingToPlay) {
			formatter.Fixes(validation.SuggestedFixes(err))
		}
		os.Exit(1)
	}
}

func run() error {
	// encoders must not outlive the recorder that owns them
	if err := child_process_manager.InitializeChildProcessManager(); err != nil {
		return fmt.Errorf("initializing child process manager: %w", err)
	}
	defer child_process_manager.DisposeChildProcessManager()

	defaults, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	deps := &cli.Dependencies{
		Defaults: defaults,
	}

	return cli.NewRootCmd(deps).Execute()
}
