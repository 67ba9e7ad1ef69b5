package artifact

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searchindex"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
)

func fixture(t *testing.T) *searchindex.Index {
	t.Helper()
	idx, err := searchindex.Load("../../searchindex/testdata/qnetvo_searchindex.js")
	require.NoError(t, err)
	return idx
}

func TestWriteAndOpen(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "qnetvo")
	w := NewWriter(dir, "", true)
	src := fixture(t)

	written, err := w.Write(src)
	require.NoError(t, err)
	path := written.Path
	assert.Equal(t, filepath.Join(dir, "searchindex.js"), path)

	idx, info, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, src, idx)
	assert.Len(t, info.Checksum, 64)
	assert.Equal(t, written.Checksum, info.Checksum)
	assert.Equal(t, written.Size, info.Size)
	assert.Positive(t, info.Size)

	gzIdx, gzInfo, err := Open(path + ".gz")
	require.NoError(t, err)
	assert.Equal(t, src, gzIdx)
	assert.Equal(t, info.Checksum, gzInfo.Checksum)
	assert.Less(t, gzInfo.Size, info.Size)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "no temp files left behind")
}

func TestWriteIsStable(t *testing.T) {
	w := NewWriter(t.TempDir(), "index.js", false)
	src := fixture(t)

	written, err := w.Write(src)
	require.NoError(t, err)
	path := written.Path
	_, first, err := Open(path)
	require.NoError(t, err)

	_, err = w.Write(src)
	require.NoError(t, err)
	_, second, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, first.Checksum, second.Checksum)

	_, err = os.Stat(path + ".gz")
	assert.True(t, os.IsNotExist(err))
}

func TestOpenRejectsMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "searchindex.js")
	require.NoError(t, os.WriteFile(path, []byte("Search.setIndex({\"docnames\":[\"a\"]})"), 0o644))

	_, info, err := Open(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrMalformedIndex))
	assert.NotEmpty(t, info.Checksum)

	_, _, err = Open(filepath.Join(t.TempDir(), "missing.js"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
