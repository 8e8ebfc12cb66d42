package tubestitch

import (
	"fmt"

	"github.com/spf13/viper"
	"github.com/swdee/go-tubestitch/tube"
)

// Config holds all settings of an Engine
type Config struct {
	// NumFrames is the tubelet window length
	NumFrames int `mapstructure:"num_frames"`
	// NumClasses is the size of the class universe including background at
	// 0.  When zero it is taken from the number of labels in LabelsFile
	NumClasses int `mapstructure:"num_classes"`
	// LabelsFile is a text file with one class label per line, background
	// first
	LabelsFile string `mapstructure:"labels_file"`
	// NMS are the per class tubelet suppression settings
	NMS NMSConfig `mapstructure:"nms"`
	// ContinuityThreshold is the boundary frame IoU a tubelet must exceed to
	// continue an open track
	ContinuityThreshold float64 `mapstructure:"continuity_threshold"`
	// MinTrackScore drops finished tracks whose mean confidence is not above
	// it, zero emits every track
	MinTrackScore float64 `mapstructure:"min_track_score"`
	// EmitOpen adds a snapshot of the open tracks to every Result
	EmitOpen bool `mapstructure:"emit_open"`
	// Decode describes the detector output consumed by Engine.Decode
	Decode DecodeConfig `mapstructure:"decode"`
	// Log holds the logger settings
	Log LogConfig `mapstructure:"log"`
}

// NMSConfig holds tubelet NMS settings
type NMSConfig struct {
	IoUThreshold float64 `mapstructure:"iou_threshold"`
	TopK         int     `mapstructure:"top_k"`
}

// DecodeConfig holds the source video size and score cut off used when
// decoding raw detector rows
type DecodeConfig struct {
	ImageWidth  int     `mapstructure:"image_width"`
	ImageHeight int     `mapstructure:"image_height"`
	MinScore    float32 `mapstructure:"min_score"`
}

// LogConfig holds logger settings
type LogConfig struct {
	// Mode is "release" for JSON production logging, anything else gives
	// human readable development logging
	Mode string `mapstructure:"mode"`
}

// DefaultConfig returns the default configuration.  NumClasses has no default
// and must be set, or derived from a labels file by LoadConfig
func DefaultConfig() Config {
	return Config{
		NumFrames: 8,
		NMS: NMSConfig{
			IoUThreshold: 0.3,
			TopK:         10,
		},
		ContinuityThreshold: 0.2,
		Decode: DecodeConfig{
			ImageWidth:  1920,
			ImageHeight: 1080,
		},
		Log: LogConfig{
			Mode: "development",
		},
	}
}

// LoadConfig reads the YAML configuration file at path, applies defaults for
// missing keys, resolves the class count from the labels file when needed and
// validates the result
func LoadConfig(path string) (Config, error) {

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.NumClasses == 0 && cfg.LabelsFile != "" {

		labels, err := LoadLabels(cfg.LabelsFile)

		if err != nil {
			return Config{}, fmt.Errorf("failed to load labels: %w", err)
		}

		cfg.NumClasses = len(labels)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// setDefaults registers DefaultConfig values with viper
func setDefaults(v *viper.Viper) {

	def := DefaultConfig()

	v.SetDefault("num_frames", def.NumFrames)
	v.SetDefault("num_classes", def.NumClasses)
	v.SetDefault("labels_file", "")
	v.SetDefault("nms.iou_threshold", def.NMS.IoUThreshold)
	v.SetDefault("nms.top_k", def.NMS.TopK)
	v.SetDefault("continuity_threshold", def.ContinuityThreshold)
	v.SetDefault("min_track_score", def.MinTrackScore)
	v.SetDefault("emit_open", def.EmitOpen)
	v.SetDefault("decode.image_width", def.Decode.ImageWidth)
	v.SetDefault("decode.image_height", def.Decode.ImageHeight)
	v.SetDefault("decode.min_score", def.Decode.MinScore)
	v.SetDefault("log.mode", def.Log.Mode)
}

// Validate checks the configuration, errors wrap the tube package sentinel
// errors so they can be tested with errors.Is
func (c Config) Validate() error {

	if err := c.StitcherConfig().Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if c.MinTrackScore < 0 || c.MinTrackScore >= 1 {
		return fmt.Errorf("invalid config: min track score %v: %w", c.MinTrackScore,
			ErrInvalidMinTrackScore)
	}

	return nil
}

// StitcherConfig returns the tube.StitcherConfig for this configuration
func (c Config) StitcherConfig() tube.StitcherConfig {
	return tube.StitcherConfig{
		NumClasses: c.NumClasses,
		NMS: tube.NMSParams{
			NumFrames:    c.NumFrames,
			IoUThreshold: c.NMS.IoUThreshold,
			TopK:         c.NMS.TopK,
		},
		ContinuityThreshold: c.ContinuityThreshold,
	}
}

// DecodeParams returns the tube.DecodeParams for this configuration
func (c Config) DecodeParams() tube.DecodeParams {
	return tube.DecodeParams{
		NumFrames:   c.NumFrames,
		NumClasses:  c.NumClasses,
		ImageWidth:  c.Decode.ImageWidth,
		ImageHeight: c.Decode.ImageHeight,
		MinScore:    c.Decode.MinScore,
	}
}
