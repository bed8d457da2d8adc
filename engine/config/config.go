package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/spaghettifunk/anima/engine/core"
	"github.com/spaghettifunk/anima/engine/math"
	"github.com/spaghettifunk/anima/engine/metadata"
)

/** @brief Per target export options, one table per target in the settings file. */
type TargetOptions struct {
	Blender metadata.ExportOptions `toml:"blender"`
	Unreal  metadata.ExportOptions `toml:"unreal"`
	Folder  metadata.ExportOptions `toml:"folder"`
}

/**
 * @brief Application settings. The pipeline treats them as read only and
 * takes one snapshot per batch.
 */
type Settings struct {
	/** @brief Root folder every artifact is written under. */
	ExportPath string `toml:"export_path"`
	/** @brief debug, info, warn or error. */
	LogLevel string `toml:"log_level"`
	/** @brief Number of concurrent artifact writers. */
	Workers int `toml:"workers"`
	/** @brief Capacity of the artifact job queue. */
	JobQueueSize int `toml:"job_queue_size"`
	/** @brief How long a probe waits for the receiver's answer. */
	ReadTimeout Duration `toml:"read_timeout"`

	Options TargetOptions `toml:"options"`
}

// Duration is a time.Duration written as a string such as "2s" in TOML.
type Duration time.Duration

func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(b), err)
	}
	*d = Duration(v)
	return nil
}

const (
	DefaultWorkers      = 4
	DefaultJobQueueSize = 256
	DefaultReadTimeout  = Duration(2 * time.Second)
)

// Default returns the settings used when no file exists.
func Default() *Settings {
	exportPath := filepath.Join(os.TempDir(), "anima-porter", "Exports")
	if home, err := os.UserHomeDir(); err == nil {
		exportPath = filepath.Join(home, "AnimaPorter", "Exports")
	}
	return &Settings{
		ExportPath:   exportPath,
		LogLevel:     core.InfoLevel.String(),
		Workers:      DefaultWorkers,
		JobQueueSize: DefaultJobQueueSize,
		ReadTimeout:  DefaultReadTimeout,
		Options: TargetOptions{
			Blender: metadata.DefaultExportOptions(),
			Unreal:  metadata.DefaultExportOptions(),
			Folder:  metadata.DefaultExportOptions(),
		},
	}
}

// Load reads the settings file at path on top of the defaults.
// A missing file yields the defaults.
func Load(path string) (*Settings, error) {
	s := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		core.LogDebug("settings file %s not found, using defaults", path)
		return s, nil
	}
	if err != nil {
		return nil, err
	}
	if err := toml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("validating %s: %w", path, err)
	}
	return s, nil
}

// Encode writes the settings as TOML.
func (s *Settings) Encode(w io.Writer) error {
	enc := toml.NewEncoder(w)
	enc.SetIndentTables(true)
	return enc.Encode(s)
}

// Save writes the settings to path as TOML.
func (s *Settings) Save(path string) error {
	var buf bytes.Buffer
	if err := s.Encode(&buf); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// Validate rejects unusable settings and clamps the level of detail of every target.
func (s *Settings) Validate() error {
	if s.ExportPath == "" {
		return fmt.Errorf("export_path is required")
	}
	if s.Workers < 1 {
		return fmt.Errorf("workers must be > 0")
	}
	if s.JobQueueSize < 0 {
		return fmt.Errorf("job_queue_size must be >= 0")
	}
	if s.ReadTimeout <= 0 {
		return fmt.Errorf("read_timeout must be > 0")
	}
	for _, o := range []*metadata.ExportOptions{&s.Options.Blender, &s.Options.Unreal, &s.Options.Folder} {
		o.LevelOfDetail = math.Clamp(o.LevelOfDetail, 0, metadata.MaxLevelOfDetail)
		if o.ScaleFactor <= 0 {
			o.ScaleFactor = 1.0
		}
	}
	return nil
}

// ExportOptions returns a copy of the options configured for target.
func (s *Settings) ExportOptions(target metadata.TargetType) (metadata.ExportOptions, error) {
	switch target {
	case metadata.TargetTypeBlender:
		return s.Options.Blender, nil
	case metadata.TargetTypeUnreal:
		return s.Options.Unreal, nil
	case metadata.TargetTypeFolder:
		return s.Options.Folder, nil
	default:
		return metadata.ExportOptions{}, fmt.Errorf("%s: %w", target, core.ErrUnknownTarget)
	}
}

// Snapshot returns a deep enough copy for one batch.
func (s *Settings) Snapshot() *Settings {
	cp := *s
	return &cp
}
