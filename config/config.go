// Package config loads the YAML run configuration shared by the binaries.
package config

import "errors"
import "fmt"
import "os"
import "path/filepath"

import "github.com/goccy/go-yaml"

import "github.com/neurlang/sincnet/layer/framesinc"
import "github.com/neurlang/sincnet/layer/sinc"
import "github.com/neurlang/sincnet/learning"
import "github.com/neurlang/sincnet/net/sincge2e"

// ErrInvalid is returned by Validate.
var ErrInvalid = errors.New("config: invalid")

// Config is the run configuration.
type Config struct {
	NSpeaker   int `yaml:"n_speaker"`
	SampleRate int `yaml:"sample_rate"`
	FixLen     int `yaml:"fix_len"` // seconds per utterance
	NGPU       int `yaml:"n_gpu"`

	Filters    int     `yaml:"sinc_filters"`
	KernelSize int     `yaml:"sinc_kernel_size"`
	Stride     int     `yaml:"sinc_stride"`
	MinLowHz   float64 `yaml:"sinc_min_low_hz"`
	MinBandHz  float64 `yaml:"sinc_min_band_hz"`
	FrameSize  int     `yaml:"frame_size"`

	EmbeddingDim int     `yaml:"embedding_dim"`
	LogEnergy    bool    `yaml:"log_energy"`
	InitWeight   float64 `yaml:"init_weight"`
	InitBias     float64 `yaml:"init_bias"`

	BatchSize    int     `yaml:"batch_size"`
	Epochs       int     `yaml:"epochs"`
	LearningRate float64 `yaml:"learning_rate"`
	ClipMin      float64 `yaml:"clip_min,omitempty"`
	ClipMax      float64 `yaml:"clip_max,omitempty"`
	ClipNorm     float64 `yaml:"clip_norm,omitempty"`
	Seed         uint64  `yaml:"seed"`
	Workers      int     `yaml:"workers,omitempty"`

	TrainDir string `yaml:"train_dir"`
	ValidDir string `yaml:"valid_dir,omitempty"`
	ModelDir string `yaml:"model_dir"`
	LogFile  string `yaml:"log_file,omitempty"`
}

// Default returns the configuration for 3 s utterances at 16 kHz.
func Default() *Config {
	model := sincge2e.DefaultConfig()
	s := model.Frames.Sinc
	return &Config{
		NSpeaker:     100,
		SampleRate:   s.SampleRate,
		FixLen:       model.Frames.FixLen,
		NGPU:         0,
		Filters:      s.Filters,
		KernelSize:   s.KernelSize,
		Stride:       s.Stride,
		MinLowHz:     s.MinLowHz,
		MinBandHz:    s.MinBandHz,
		FrameSize:    model.Frames.FrameSize,
		EmbeddingDim: model.EmbeddingDim,
		LogEnergy:    model.LogEnergy,
		InitWeight:   model.InitWeight,
		InitBias:     model.InitBias,
		BatchSize:    64,
		Epochs:       10,
		LearningRate: 0.01,
		ClipNorm:     3,
		Seed:         1,
		TrainDir:     "data/train",
		ModelDir:     "model",
	}
}

// Load reads a YAML file on top of Default.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration as YAML, creating parent directories.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks the fields the core components read.
func (c *Config) Validate() error {
	switch {
	case c.NSpeaker <= 0:
		return fmt.Errorf("%w: n_speaker %d", ErrInvalid, c.NSpeaker)
	case c.SampleRate <= 0:
		return fmt.Errorf("%w: sample_rate %d", ErrInvalid, c.SampleRate)
	case c.FixLen <= 0:
		return fmt.Errorf("%w: fix_len %d", ErrInvalid, c.FixLen)
	case c.NGPU < 0:
		return fmt.Errorf("%w: n_gpu %d", ErrInvalid, c.NGPU)
	case c.FrameSize <= 0 || (c.FixLen*c.SampleRate)%c.FrameSize != 0:
		return fmt.Errorf("%w: frame_size %d does not divide %d samples", ErrInvalid, c.FrameSize, c.FixLen*c.SampleRate)
	case c.BatchSize <= 0:
		return fmt.Errorf("%w: batch_size %d", ErrInvalid, c.BatchSize)
	case c.ClipMin > c.ClipMax:
		return fmt.Errorf("%w: clip_min %v > clip_max %v", ErrInvalid, c.ClipMin, c.ClipMax)
	}
	return nil
}

// Model returns the model configuration.
func (c *Config) Model() sincge2e.Config {
	return sincge2e.Config{
		Frames: framesinc.Config{
			Sinc: sinc.Config{
				Name:       "sinc",
				Filters:    c.Filters,
				KernelSize: c.KernelSize,
				Stride:     c.Stride,
				SampleRate: c.SampleRate,
				MinLowHz:   c.MinLowHz,
				MinBandHz:  c.MinBandHz,
				Threads:    c.Workers,
			},
			FrameSize: c.FrameSize,
			FixLen:    c.FixLen,
		},
		EmbeddingDim: c.EmbeddingDim,
		LogEnergy:    c.LogEnergy,
		InitWeight:   c.InitWeight,
		InitBias:     c.InitBias,
	}
}

// HyperParameters returns the optimiser settings.
func (c *Config) HyperParameters() *learning.HyperParameters {
	return &learning.HyperParameters{
		LearningRate: c.LearningRate,
		ClipMin:      c.ClipMin,
		ClipMax:      c.ClipMax,
		ClipNorm:     c.ClipNorm,
		Threads:      c.Workers,
		Epochs:       c.Epochs,
		BatchSize:    c.BatchSize,
		Seed:         c.Seed,
	}
}

// Path joins name onto ModelDir.
func (c *Config) Path(name string) string {
	return filepath.Join(c.ModelDir, name)
}
