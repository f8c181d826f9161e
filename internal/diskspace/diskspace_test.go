package diskspace

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFreeBytes(t *testing.T) {
	free, err := NewChecker().FreeBytes(t.TempDir())
	require.NoError(t, err)
	assert.Positive(t, free)
}

func TestFreeBytesMissingPath(t *testing.T) {
	_, err := NewChecker().FreeBytes(filepath.Join(t.TempDir(), "does", "not", "exist"))
	assert.Error(t, err)
}
