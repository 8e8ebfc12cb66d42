package tubestitch

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeFile writes content to name inside dir and returns the full path
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	return path
}

func TestLoadConfigDefaults(t *testing.T) {

	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", "num_classes: 5\n")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	want := DefaultConfig()
	want.NumClasses = 5

	assert.Equal(t, want, cfg)
}

func TestLoadConfigOverrides(t *testing.T) {

	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", `
num_frames: 4
num_classes: 3
nms:
  iou_threshold: 0.5
  top_k: 2
continuity_threshold: 0.5
min_track_score: 0.2
emit_open: true
log:
  mode: release
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.NumFrames)
	assert.Equal(t, 3, cfg.NumClasses)
	assert.Equal(t, 0.5, cfg.NMS.IoUThreshold)
	assert.Equal(t, 2, cfg.NMS.TopK)
	assert.Equal(t, 0.5, cfg.ContinuityThreshold)
	assert.Equal(t, 0.2, cfg.MinTrackScore)
	assert.True(t, cfg.EmitOpen)
	assert.Equal(t, "release", cfg.Log.Mode)
	assert.Equal(t, 1920, cfg.Decode.ImageWidth)
}

func TestLoadConfigClassesFromLabels(t *testing.T) {

	dir := t.TempDir()
	labels := writeFile(t, dir, "labels.txt", "background\nClosing\nEntering\n\n")
	path := writeFile(t, dir, "config.yaml", "labels_file: "+labels+"\n")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.NumClasses)
}

func TestLoadConfigErrors(t *testing.T) {

	dir := t.TempDir()

	_, err := LoadConfig(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	noClasses := writeFile(t, dir, "no_classes.yaml", "num_frames: 8\n")
	_, err = LoadConfig(noClasses)
	assert.True(t, errors.Is(err, ErrInvalidNumClasses), "got %v", err)

	badTopK := writeFile(t, dir, "bad_topk.yaml", "num_classes: 3\nnms:\n  top_k: 0\n")
	_, err = LoadConfig(badTopK)
	assert.True(t, errors.Is(err, ErrInvalidTopK), "got %v", err)

	missingLabels := writeFile(t, dir, "missing_labels.yaml", "labels_file: "+filepath.Join(dir, "nope.txt")+"\n")
	_, err = LoadConfig(missingLabels)
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {

	base := DefaultConfig()
	base.NumClasses = 3
	require.NoError(t, base.Validate())

	tests := []struct {
		name   string
		modify func(*Config)
		err    error
	}{
		{"iou zero", func(c *Config) { c.NMS.IoUThreshold = 0 }, ErrInvalidIoUThreshold},
		{"iou above one", func(c *Config) { c.NMS.IoUThreshold = 1.1 }, ErrInvalidIoUThreshold},
		{"top k negative", func(c *Config) { c.NMS.TopK = -3 }, ErrInvalidTopK},
		{"frames zero", func(c *Config) { c.NumFrames = 0 }, ErrInvalidNumFrames},
		{"continuity negative", func(c *Config) { c.ContinuityThreshold = -0.1 }, ErrInvalidContinuityThreshold},
		{"score filter one", func(c *Config) { c.MinTrackScore = 1 }, ErrInvalidMinTrackScore},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base
			tc.modify(&cfg)

			err := cfg.Validate()
			assert.True(t, errors.Is(err, tc.err), "got %v", err)
		})
	}
}
