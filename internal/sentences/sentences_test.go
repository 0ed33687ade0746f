package sentences

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_PicksFromBuiltin(t *testing.T) {
	p := Default()
	require.Equal(t, len(builtin), p.Len())
	for i := 0; i < 20; i++ {
		assert.Contains(t, builtin, p.Pick())
	}
}

func TestNew_TrimsAndRejectsEmpty(t *testing.T) {
	p, err := New([]string{"  hi  ", "", "   "})
	require.NoError(t, err)
	assert.Equal(t, 1, p.Len())
	assert.Equal(t, "hi", p.Pick())

	_, err = New([]string{" "})
	assert.True(t, errors.Is(err, ErrEmptyPool))
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sentences.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sentences:\n  - Clean code matters\n  - Type fast and accurate\n"), 0o600))

	p, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, p.Len())
	assert.Contains(t, []string{"Clean code matters", "Type fast and accurate"}, p.Pick())

	_, err = LoadFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte("sentences: [\n"), 0o600))
	_, err = LoadFile(path)
	assert.Error(t, err)
}
