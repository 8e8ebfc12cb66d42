package tubestitch

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadLabels(t *testing.T) {

	dir := t.TempDir()
	path := writeFile(t, dir, "labels.txt", "background\n  Talking  \nRiding\n\n\n")

	labels, err := LoadLabels(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"background", "Talking", "Riding"}, labels)

	_, err = LoadLabels(filepath.Join(dir, "missing.txt"))
	assert.Error(t, err)
}
