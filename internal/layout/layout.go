// Package layout maps logical identifiers (packet ids, file hashes,
// location names) to paths under a repository root. All functions here
// are pure: they do not touch the filesystem.
//
// The on-disk layout, relative to root:
//
//	.outpack/config.json
//	.outpack/metadata/<id>
//	.outpack/location/<location>/<id>
//	.outpack/files/<algorithm>/<hex[0:2]>/<hex[2:]>
package layout

import (
	"path/filepath"

	"github.com/mrc-ide/outpack-server/internal/hash"
)

// OutpackDir returns root/.outpack.
func OutpackDir(root string) string {
	return filepath.Join(root, ".outpack")
}

// ConfigPath returns root/.outpack/config.json.
func ConfigPath(root string) string {
	return filepath.Join(OutpackDir(root), "config.json")
}

// MetadataDir returns root/.outpack/metadata.
func MetadataDir(root string) string {
	return filepath.Join(OutpackDir(root), "metadata")
}

// MetadataPath returns root/.outpack/metadata/<id>.
func MetadataPath(root, id string) string {
	return filepath.Join(MetadataDir(root), id)
}

// LocationRoot returns root/.outpack/location.
func LocationRoot(root string) string {
	return filepath.Join(OutpackDir(root), "location")
}

// LocationDir returns root/.outpack/location/<location>.
func LocationDir(root, location string) string {
	return filepath.Join(LocationRoot(root), location)
}

// LocationEntryPath returns root/.outpack/location/<location>/<id>.
func LocationEntryPath(root, location, id string) string {
	return filepath.Join(LocationDir(root, location), id)
}

// FilesDir returns root/.outpack/files.
func FilesDir(root string) string {
	return filepath.Join(OutpackDir(root), "files")
}

// FilePath parses h and returns
// root/.outpack/files/<algorithm>/<hex[0:2]>/<hex[2:]>. It propagates
// any parse error from hash.Parse.
func FilePath(root string, h string) (string, error) {
	parsed, err := hash.Parse(h)
	if err != nil {
		return "", err
	}
	return FilePathForHash(root, parsed), nil
}

// FilePathForHash is FilePath for an already-parsed hash.Hash.
func FilePathForHash(root string, h hash.Hash) string {
	prefix := h.Hex
	if len(prefix) >= 2 {
		prefix = h.Hex[:2]
	}
	rest := ""
	if len(h.Hex) > 2 {
		rest = h.Hex[2:]
	}
	return filepath.Join(FilesDir(root), string(h.Algorithm), prefix, rest)
}

// LocalLocation is the reserved location name recording what this
// repository has itself.
const LocalLocation = "local"
