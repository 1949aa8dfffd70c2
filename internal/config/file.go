package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// Defaults holds the user's persistent recording preferences. Command-line
// flags are layered on top of it to build a RecordingConfig.
type Defaults struct {
	OutputDir    string  `toml:"output_dir"`
	Format       string  `toml:"format"`
	RecordVideo  bool    `toml:"record_video"`
	RecordAudio  bool    `toml:"record_audio"`
	AudioSource  string  `toml:"audio_source"`
	DrawCursor   bool    `toml:"draw_cursor"`
	FollowCursor bool    `toml:"follow_cursor"`
	FrameRate    float64 `toml:"frame_rate"`
	Delay        int     `toml:"delay_seconds"`
	PostCommand  string  `toml:"post_command"`
	Overwrite    bool    `toml:"overwrite"` // daemon answer to the overwrite question
	Region       Region  `toml:"region"`
}

// DefaultDefaults returns the built-in preferences used when no config file exists.
func DefaultDefaults() Defaults {
	return Defaults{
		OutputDir:   defaultOutputDir(),
		Format:      "mp4",
		RecordVideo: true,
		RecordAudio: false,
		AudioSource: "default",
		DrawCursor:  true,
		FrameRate:   30,
	}
}

// Load reads ~/.config/screenrec/config.toml on top of the built-in defaults
// and applies SCREENREC_* environment overrides. A missing file is not an error.
func Load() (*Defaults, error) {
	d := DefaultDefaults()

	if path := FilePath(); path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, &d); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		}
	}

	applyEnvOverrides(&d)
	d.OutputDir = expandTilde(d.OutputDir)

	return &d, nil
}

// Save writes d to ~/.config/screenrec/config.toml.
func Save(d *Defaults) error {
	path := FilePath()
	if path == "" {
		return fmt.Errorf("cannot determine config directory")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := toml.NewEncoder(f).Encode(d); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// Recording builds the immutable per-session snapshot from the defaults.
func (d Defaults) Recording(name string) RecordingConfig {
	return RecordingConfig{
		OutputDir:    d.OutputDir,
		Name:         name,
		Format:       d.Format,
		RecordVideo:  d.RecordVideo,
		RecordAudio:  d.RecordAudio,
		AudioSource:  d.AudioSource,
		DrawCursor:   d.DrawCursor,
		FollowCursor: d.FollowCursor,
		FrameRate:    d.FrameRate,
		Delay:        d.Delay,
		PostCommand:  d.PostCommand,
		Region:       d.Region,
	}
}

// FilePath returns the config file location, honouring XDG_CONFIG_HOME.
func FilePath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "screenrec", "config.toml")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", "screenrec", "config.toml")
	}
	return ""
}

func applyEnvOverrides(d *Defaults) {
	if v := os.Getenv("SCREENREC_OUTPUT_DIR"); v != "" {
		d.OutputDir = v
	}
	if v := os.Getenv("SCREENREC_FORMAT"); v != "" {
		d.Format = strings.TrimPrefix(v, ".")
	}
	if v := os.Getenv("SCREENREC_AUDIO_SOURCE"); v != "" {
		d.AudioSource = v
	}
	if v := os.Getenv("SCREENREC_FRAME_RATE"); v != "" {
		if fr, err := strconv.ParseFloat(v, 64); err == nil {
			d.FrameRate = fr
		}
	}
}

func defaultOutputDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, "Videos")
	}
	return "."
}

func expandTilde(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
