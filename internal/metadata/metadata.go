// Package metadata enumerates, filters, and retrieves packet metadata
// documents, and computes the id-set digest used to compare two
// repositories' contents.
package metadata

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/mrc-ide/outpack-server/internal/apperror"
	"github.com/mrc-ide/outpack-server/internal/hash"
	"github.com/mrc-ide/outpack-server/internal/layout"
	"github.com/mrc-ide/outpack-server/internal/location"
	"github.com/mrc-ide/outpack-server/internal/packetid"
)

type cachedDoc struct {
	modTime int64
	size    int64
	value   map[string]interface{}
}

// Index reads packet metadata documents, transparently caching parsed
// JSON keyed on absolute path. A cache hit is only used while the
// on-disk (mtime, size) it was recorded with still match, so it never
// hides a mutation made by another writer.
type Index struct {
	cache *lru.Cache[string, cachedDoc]
}

// NewIndex builds an Index with an in-memory document cache sized for
// up to capacity entries. A capacity of 0 disables caching.
func NewIndex(capacity int) *Index {
	if capacity <= 0 {
		return &Index{}
	}
	cache, err := lru.New[string, cachedDoc](capacity)
	if err != nil {
		// Only returns an error for a non-positive size, already
		// excluded above.
		panic(err)
	}
	return &Index{cache: cache}
}

func (idx *Index) readDocument(path string) (map[string]interface{}, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperror.New(apperror.NotFound, "packet with id '%s' does not exist", filepath.Base(path))
		}
		return nil, apperror.Wrap(err, apperror.Internal, "failed to stat '%s': %s", path, err)
	}

	key := path
	if abs, err := filepath.Abs(path); err == nil {
		key = abs
	}

	if idx.cache != nil {
		if cached, ok := idx.cache.Get(key); ok {
			if cached.modTime == info.ModTime().UnixNano() && cached.size == info.Size() {
				return cached.value, nil
			}
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.Internal, "failed to read '%s': %s", path, err)
	}
	var value map[string]interface{}
	if err := json.Unmarshal(data, &value); err != nil {
		return nil, apperror.Wrap(err, apperror.Internal, "failed to parse metadata document '%s': %s", path, err)
	}

	if idx.cache != nil {
		idx.cache.Add(key, cachedDoc{modTime: info.ModTime().UnixNano(), size: info.Size(), value: value})
	}
	return value, nil
}

// GetByID returns the parsed metadata document for id.
func (idx *Index) GetByID(root, id string) (map[string]interface{}, error) {
	return idx.readDocument(layout.MetadataPath(root, id))
}

// GetRaw returns the metadata document for id as the original bytes it
// was written with, so a caller can re-hash it.
func (idx *Index) GetRaw(root, id string) (string, error) {
	path := layout.MetadataPath(root, id)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "", apperror.New(apperror.NotFound, "packet with id '%s' does not exist", id)
		}
		return "", apperror.Wrap(err, apperror.Internal, "failed to stat '%s': %s", path, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", apperror.Wrap(err, apperror.Internal, "failed to read '%s': %s", path, err)
	}
	return string(data), nil
}

// List enumerates every stored metadata document, optionally restricted
// to packets whose local "known since" time is after since, sorted
// ascending by id.
func (idx *Index) List(root string, since *float64) ([]map[string]interface{}, error) {
	ids, err := idx.ids(root, false)
	if err != nil {
		return nil, err
	}

	if since != nil {
		entries, err := location.ReadLocation(root, layout.LocalLocation)
		if err != nil {
			return nil, err
		}
		known := make(map[string]float64, len(entries))
		for _, e := range entries {
			known[e.Packet] = e.Time
		}
		filtered := ids[:0]
		for _, id := range ids {
			if t, ok := known[id]; ok && t > *since {
				filtered = append(filtered, id)
			}
		}
		ids = filtered
	}

	sort.Strings(ids)

	docs := make([]map[string]interface{}, 0, len(ids))
	for _, id := range ids {
		doc, err := idx.GetByID(root, id)
		if err != nil {
			// A document listed moments ago that now fails to read or
			// parse means the repository itself is inconsistent.
			return nil, apperror.Wrap(err, apperror.Internal, "failed to read metadata for '%s': %s", id, err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// IDs returns the ids of every packet known to this repository: either
// every document stored under metadata/ (unpacked=false) or only those
// recorded in the local ledger, i.e. fully present locally
// (unpacked=true).
func (idx *Index) IDs(root string, unpacked bool) ([]string, error) {
	return idx.ids(root, unpacked)
}

func (idx *Index) ids(root string, unpacked bool) ([]string, error) {
	dir := layout.MetadataDir(root)
	if unpacked {
		dir = layout.LocationDir(root, layout.LocalLocation)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, apperror.Wrap(err, apperror.Internal, "failed to list '%s': %s", dir, err)
	}

	var ids []string
	for _, e := range entries {
		if e.IsDir() || !packetid.Valid(e.Name()) {
			continue
		}
		ids = append(ids, e.Name())
	}
	return ids, nil
}

// MissingIDs validates each wanted id and returns the subset not known
// to this repository, de-duplicated.
func (idx *Index) MissingIDs(root string, wanted []string, unpacked bool) ([]string, error) {
	known, err := idx.ids(root, unpacked)
	if err != nil {
		return nil, err
	}
	knownSet := make(map[string]struct{}, len(known))
	for _, id := range known {
		knownSet[id] = struct{}{}
	}

	seen := make(map[string]struct{}, len(wanted))
	var missing []string
	for _, raw := range wanted {
		id, err := packetid.Canonicalise(raw)
		if err != nil {
			return nil, err
		}
		if _, ok := knownSet[id]; ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		missing = append(missing, id)
	}
	return missing, nil
}

// IDsDigest hashes the sorted, concatenated (no separator) set of every
// packet id known to this repository using algo. It does not fall back
// to the repository's configured algorithm: algo must name a supported
// algorithm. The result is stable under any permutation of the input id
// set.
func (idx *Index) IDsDigest(root string, algo hash.Algorithm) (hash.Hash, error) {
	ids, err := idx.ids(root, false)
	if err != nil {
		return hash.Hash{}, err
	}
	sort.Strings(ids)

	var buf []byte
	for _, id := range ids {
		buf = append(buf, id...)
	}
	return hash.Bytes(buf, algo), nil
}
