package metadata

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mrc-ide/outpack-server/internal/apperror"
	"github.com/mrc-ide/outpack-server/internal/hash"
	"github.com/mrc-ide/outpack-server/internal/layout"
	"github.com/mrc-ide/outpack-server/internal/location"
)

func writeDoc(t *testing.T, root, id, body string) {
	require.NoError(t, os.MkdirAll(layout.MetadataDir(root), 0o755))
	require.NoError(t, os.WriteFile(layout.MetadataPath(root, id), []byte(body), 0o644))
}

func TestGetByIDNotFound(t *testing.T) {
	root := t.TempDir()
	idx := NewIndex(16)
	_, err := idx.GetByID(root, "20170818-164830-33e0ab01")
	require.Error(t, err)
	e, ok := apperror.As(err)
	require.True(t, ok)
	require.Equal(t, apperror.NotFound, e.Kind)
	require.Contains(t, e.Detail, "does not exist")
}

func TestGetByIDAndRaw(t *testing.T) {
	root := t.TempDir()
	id := "20170818-164830-33e0ab01"
	writeDoc(t, root, id, `{"id":"20170818-164830-33e0ab01","name":"x"}`)

	idx := NewIndex(16)
	doc, err := idx.GetByID(root, id)
	require.NoError(t, err)
	require.Equal(t, "x", doc["name"])

	raw, err := idx.GetRaw(root, id)
	require.NoError(t, err)
	require.Equal(t, `{"id":"20170818-164830-33e0ab01","name":"x"}`, raw)
}

func TestCacheInvalidatesOnMutation(t *testing.T) {
	root := t.TempDir()
	id := "20170818-164830-33e0ab01"
	writeDoc(t, root, id, `{"name":"first"}`)

	idx := NewIndex(16)
	doc, err := idx.GetByID(root, id)
	require.NoError(t, err)
	require.Equal(t, "first", doc["name"])

	// simulate a second writer mutating the file on disk
	require.NoError(t, os.WriteFile(layout.MetadataPath(root, id), []byte(`{"name":"second, much longer value"}`), 0o644))

	doc, err = idx.GetByID(root, id)
	require.NoError(t, err)
	require.Equal(t, "second, much longer value", doc["name"])
}

func TestListSortedAndFiltered(t *testing.T) {
	root := t.TempDir()
	ids := []string{"20180818-164043-7cdcde4b", "20170818-164830-33e0ab01", "20170818-164847-7574883b"}
	for _, id := range ids {
		writeDoc(t, root, id, `{"id":"`+id+`"}`)
	}
	require.NoError(t, location.MarkPacketKnown(root, "20170818-164830-33e0ab01", "local", "sha256:abcd", 10))
	require.NoError(t, location.MarkPacketKnown(root, "20170818-164847-7574883b", "local", "sha256:abce", 20))

	idx := NewIndex(16)
	all, err := idx.List(root, nil)
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, "20170818-164830-33e0ab01", all[0]["id"])
	require.Equal(t, "20170818-164847-7574883b", all[1]["id"])
	require.Equal(t, "20180818-164043-7cdcde4b", all[2]["id"])

	since := 15.0
	filtered, err := idx.List(root, &since)
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	require.Equal(t, "20170818-164847-7574883b", filtered[0]["id"])
}

func TestMissingIDs(t *testing.T) {
	root := t.TempDir()
	writeDoc(t, root, "20180818-164043-7cdcde4b", `{}`)

	idx := NewIndex(16)
	missing, err := idx.MissingIDs(root, []string{"20180818-164043-7cdcde4b", "20170818-164830-33e0ab02"}, false)
	require.NoError(t, err)
	require.Equal(t, []string{"20170818-164830-33e0ab02"}, missing)
}

func TestIDsDigestStableUnderPermutation(t *testing.T) {
	root := t.TempDir()
	ids := []string{
		"20170818-164830-33e0ab01",
		"20170818-164847-7574883b",
		"20180220-095832-16a4bbed",
		"20180818-164043-7cdcde4b",
	}
	for _, id := range ids {
		writeDoc(t, root, id, `{}`)
	}

	idx := NewIndex(16)
	d1, err := idx.IDsDigest(root, hash.Sha256)
	require.NoError(t, err)

	root2 := t.TempDir()
	reversed := []string{ids[3], ids[2], ids[1], ids[0]}
	for _, id := range reversed {
		writeDoc(t, root2, id, `{}`)
	}
	idx2 := NewIndex(16)
	d2, err := idx2.IDsDigest(root2, hash.Sha256)
	require.NoError(t, err)

	require.Equal(t, d1.String(), d2.String())

	concatenated := ids[0] + ids[1] + ids[2] + ids[3]
	expected := hash.Bytes([]byte(concatenated), hash.Sha256)
	require.Equal(t, expected.String(), d1.String())
}

func TestIDsUnpackedUsesLocalLocation(t *testing.T) {
	root := t.TempDir()
	writeDoc(t, root, "20180818-164043-7cdcde4b", `{}`)
	writeDoc(t, root, "20170818-164830-33e0ab01", `{}`)
	require.NoError(t, location.MarkPacketKnown(root, "20170818-164830-33e0ab01", "local", "sha256:abcd", 1))

	idx := NewIndex(16)
	all, err := idx.IDs(root, false)
	require.NoError(t, err)
	require.Len(t, all, 2)

	unpacked, err := idx.IDs(root, true)
	require.NoError(t, err)
	require.Equal(t, []string{"20170818-164830-33e0ab01"}, unpacked)
}
