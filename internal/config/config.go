package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

const (
	// DefaultSampleRate is the waveform rate every pipeline consumes.
	DefaultSampleRate = 16000

	defaultChunkSeconds  = 30
	defaultWindowSeconds = 5
	defaultBlockMS       = 1000
	defaultStateDirLinux = ".local/state/echoscript"
	defaultConfigDir     = ".config/echoscript"
)

// Config holds user configuration loaded from TOML.
type Config struct {
	Audio struct {
		DeviceName string `toml:"device_name"`
		SampleRate int    `toml:"sample_rate"`
		Channels   int    `toml:"channels"`
		BlockMS    int    `toml:"block_ms"`
	} `toml:"audio"`

	ASR struct {
		ModelDir string `toml:"model_dir"`
		Model    string `toml:"model"`
		Language string `toml:"language"` // empty or "auto" = detect
		Task     string `toml:"task"`     // transcribe, translate
	} `toml:"asr"`

	Pipeline struct {
		ChunkSeconds  int `toml:"chunk_seconds"`  // batch window
		WindowSeconds int `toml:"window_seconds"` // streaming accumulation
	} `toml:"pipeline"`

	VAD struct {
		Enabled        bool `toml:"enabled"`
		Aggressiveness int  `toml:"aggressiveness"`
	} `toml:"vad"`

	Media struct {
		FFmpegPath      string `toml:"ffmpeg_path"`
		YtDlpPath       string `toml:"ytdlp_path"`
		FFmpegExtraArgs string `toml:"ffmpeg_extra_args"` // shlex-split, appended before output path
	} `toml:"media"`

	Export struct {
		Format    string `toml:"format"` // txt, md, srt, docx
		OutputDir string `toml:"output_dir"`
	} `toml:"export"`

	Logging struct {
		Level  string `toml:"level"`  // debug, info, warn, error
		Format string `toml:"format"` // text, json
		Stdout bool   `toml:"stdout"`
	} `toml:"logging"`

	Paths struct {
		StateDir   string `toml:"state_dir"`
		LogPath    string `toml:"log_path"`
		ConfigPath string `toml:"-"`
	} `toml:"paths"`
}

// Default returns Config populated with defaults.
func Default() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	stateDir := filepath.Join(home, defaultStateDirLinux)
	// macOS prefers ~/Library/Application Support/echoscript for state/logs
	if isMac() {
		stateDir = filepath.Join(home, "Library", "Application Support", "echoscript")
	}

	cfg := &Config{}

	cfg.Audio.SampleRate = DefaultSampleRate
	cfg.Audio.Channels = 1
	cfg.Audio.BlockMS = defaultBlockMS

	cfg.ASR.ModelDir = filepath.Join(stateDir, "models")
	cfg.ASR.Model = "ggml-base.bin"
	cfg.ASR.Language = "auto"
	cfg.ASR.Task = "transcribe"

	cfg.Pipeline.ChunkSeconds = defaultChunkSeconds
	cfg.Pipeline.WindowSeconds = defaultWindowSeconds

	cfg.VAD.Enabled = false
	cfg.VAD.Aggressiveness = 2

	cfg.Export.Format = "txt"

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "text"
	cfg.Logging.Stdout = false

	cfg.Paths.StateDir = stateDir
	cfg.Paths.LogPath = filepath.Join(stateDir, "echoscript.log")

	return cfg, nil
}

// Load loads config from file, applying defaults.
func Load(path string) (*Config, error) {
	cfg, err := Default()
	if err != nil {
		return nil, err
	}

	if path == "" {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, defaultConfigDir, "config.toml")
	}

	// Read if exists; otherwise write template.
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return nil, err
			}
			if err := Save(cfg, path); err != nil {
				return nil, err
			}
			cfg.Paths.ConfigPath = path
			applyEnvOverrides(cfg)
			return cfg, validate(cfg)
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.Paths.ConfigPath = path
	applyEnvOverrides(cfg)
	return cfg, validate(cfg)
}

// Save writes cfg to path.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	out, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, out, 0o600)
}

// ModelPath resolves the configured model name inside the model dir.
func (c *Config) ModelPath() string {
	if strings.Contains(c.ASR.Model, string(os.PathSeparator)) {
		return c.ASR.Model
	}
	return filepath.Join(c.ASR.ModelDir, c.ASR.Model)
}

func validate(cfg *Config) error {
	if cfg.Audio.Channels != 1 {
		return fmt.Errorf("only mono input supported; set audio.channels = 1")
	}
	if cfg.Pipeline.ChunkSeconds <= 0 {
		return fmt.Errorf("pipeline.chunk_seconds must be positive (got %d)", cfg.Pipeline.ChunkSeconds)
	}
	if cfg.Pipeline.WindowSeconds <= 0 {
		return fmt.Errorf("pipeline.window_seconds must be positive (got %d)", cfg.Pipeline.WindowSeconds)
	}
	switch cfg.ASR.Task {
	case "transcribe", "translate":
	default:
		return fmt.Errorf("asr.task must be transcribe or translate (got %q)", cfg.ASR.Task)
	}
	if cfg.VAD.Aggressiveness < 0 || cfg.VAD.Aggressiveness > 3 {
		return fmt.Errorf("vad.aggressiveness must be 0-3 (got %d)", cfg.VAD.Aggressiveness)
	}
	return nil
}

func isMac() bool {
	return runtime.GOOS == "darwin"
}

// MustStatePaths ensures state dirs exist.
func MustStatePaths(cfg *Config) error {
	for _, p := range []string{cfg.Paths.StateDir, cfg.ASR.ModelDir, filepath.Dir(cfg.Paths.LogPath)} {
		if p == "" {
			continue
		}
		if err := os.MkdirAll(p, 0o755); err != nil {
			return err
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ECHOSCRIPT_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("ECHOSCRIPT_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("ECHOSCRIPT_MODEL"); v != "" {
		cfg.ASR.Model = v
	}
	if v := os.Getenv("ECHOSCRIPT_LANGUAGE"); v != "" {
		cfg.ASR.Language = v
	}
	if v := os.Getenv("ECHOSCRIPT_FFMPEG"); v != "" {
		cfg.Media.FFmpegPath = v
	}
	if v := os.Getenv("ECHOSCRIPT_YTDLP"); v != "" {
		cfg.Media.YtDlpPath = v
	}
	if v := os.Getenv("ECHOSCRIPT_VAD_ENABLED"); v != "" {
		cfg.VAD.Enabled = v != "0" && strings.ToLower(v) != "false"
	}
}
