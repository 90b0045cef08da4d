package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup_InlineValue(t *testing.T) {
	t.Setenv("PROMOREG_TEST_SECRET", "inline")
	assert.Equal(t, "inline", Lookup("PROMOREG_TEST_SECRET"))
}

func TestLookup_FileTakesPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secret")
	require.NoError(t, os.WriteFile(path, []byte("from-file\n"), 0o600))

	t.Setenv("PROMOREG_TEST_SECRET", "inline")
	t.Setenv("PROMOREG_TEST_SECRET_FILE", path)
	assert.Equal(t, "from-file", Lookup("PROMOREG_TEST_SECRET"))
}

func TestLookup_MissingFileFallsBack(t *testing.T) {
	t.Setenv("PROMOREG_TEST_SECRET", "inline")
	t.Setenv("PROMOREG_TEST_SECRET_FILE", filepath.Join(t.TempDir(), "absent"))
	assert.Equal(t, "inline", Lookup("PROMOREG_TEST_SECRET"))
}

func TestLookup_Unset(t *testing.T) {
	assert.Empty(t, Lookup("PROMOREG_TEST_SECRET_UNSET"))
}
