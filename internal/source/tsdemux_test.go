package source

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewTSPTSReaderMissingFile(t *testing.T) {
	_, err := newTSPTSReader(filepath.Join(t.TempDir(), "missing.ts"))
	assert.Error(t, err)
}

func TestNewTSPTSReaderRejectsGarbageContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.ts")
	assert.NoError(t, os.WriteFile(path, []byte("not an mpeg-ts file at all"), 0o644))

	_, err := newTSPTSReader(path)
	assert.Error(t, err, "a non-TS file must fail Initialize rather than silently producing no timestamps")
}
