package keys

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	priv, err := Generate()
	require.NoError(t, err)
	assert.Equal(t, KeyBits, priv.N.BitLen())
	assert.NoError(t, priv.Validate())
}

func TestSaveAndLoadPrivatePEM(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "server.key")

	priv, err := Generate()
	require.NoError(t, err)

	require.NoError(t, SavePrivatePEM(path, priv))

	loaded, err := LoadPrivatePEM(path)
	require.NoError(t, err)
	assert.Equal(t, priv.N, loaded.N)
	assert.Equal(t, priv.E, loaded.E)
}

func TestLoadOrCreate(t *testing.T) {
	dir := t.TempDir()
	privPath := filepath.Join(dir, "server.key")
	pubPath := filepath.Join(dir, "server.pub")

	first, err := LoadOrCreate(privPath, pubPath)
	require.NoError(t, err)

	second, err := LoadOrCreate(privPath, pubPath)
	require.NoError(t, err)

	assert.Equal(t, first.N, second.N, "second call must load the persisted key, not regenerate")
}
