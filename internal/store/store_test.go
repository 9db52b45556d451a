package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mrc-ide/outpack-server/internal/hash"
	"github.com/mrc-ide/outpack-server/internal/layout"
	"github.com/mrc-ide/outpack-server/internal/upload"
)

func setupRoot(t *testing.T) string {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(layout.FilesDir(root), 0o755))
	return root
}

func TestPutFileIsIdempotent(t *testing.T) {
	root := setupRoot(t)
	data := []byte("Testing 123.")
	h := hash.Bytes(data, hash.Sha256)

	require.NoError(t, PutFile(root, upload.Buffered(data), h.String()))
	path, _ := layout.FilePath(root, h.String())
	got, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, data, got)

	// second call with identical content is a no-op success
	require.NoError(t, PutFile(root, upload.Buffered(data), h.String()))
	got, err = os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, data, got)
}

func TestPutFileValidatesHashFormat(t *testing.T) {
	root := setupRoot(t)
	err := PutFile(root, upload.Buffered([]byte("data")), "badhash")
	require.Error(t, err)
}

func TestPutFileAtomicOnHashMismatch(t *testing.T) {
	root := setupRoot(t)
	data := []byte("Testing 123.")

	err := PutFile(root, upload.Buffered(data), "md5:abcde")
	require.Error(t, err)

	exists, err := FileExists(root, "md5:abcde")
	require.NoError(t, err)
	require.False(t, exists)

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	for _, e := range entries {
		require.NotContains(t, e.Name(), "outpack-upload-")
	}
}

func TestMissing(t *testing.T) {
	root := setupRoot(t)
	data := []byte("hello")
	h := hash.Bytes(data, hash.Sha256)
	require.NoError(t, PutFile(root, upload.Buffered(data), h.String()))

	other := hash.Bytes([]byte("other"), hash.Sha256)
	missing, err := Missing(root, []string{h.String(), other.String()})
	require.NoError(t, err)
	require.Equal(t, []string{other.String()}, missing)
}

func TestEnumerate(t *testing.T) {
	root := setupRoot(t)
	data := []byte("hello")
	h := hash.Bytes(data, hash.Sha256)
	require.NoError(t, PutFile(root, upload.Buffered(data), h.String()))

	var found []Entry
	Enumerate(root, func(e Entry) { found = append(found, e) })
	require.Len(t, found, 1)
	require.Equal(t, h.String(), found[0].Hash)
	require.Equal(t, int64(len(data)), found[0].Size)
}

func TestPutFileStreamedSource(t *testing.T) {
	root := setupRoot(t)
	data := []byte("streamed content")
	h := hash.Bytes(data, hash.Sha256)

	tmpDir := t.TempDir()
	tmpPath := filepath.Join(tmpDir, "body")
	require.NoError(t, os.WriteFile(tmpPath, data, 0o644))

	require.NoError(t, PutFile(root, upload.Streamed(tmpPath), h.String()))
	exists, err := FileExists(root, h.String())
	require.NoError(t, err)
	require.True(t, exists)
}
