// Package location implements the per-location ledger recording which
// packets a location is known to carry.
package location

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/mrc-ide/outpack-server/internal/apperror"
	"github.com/mrc-ide/outpack-server/internal/atomicfile"
	"github.com/mrc-ide/outpack-server/internal/layout"
	"github.com/mrc-ide/outpack-server/internal/packetid"
)

// Entry is one record in a location's ledger.
type Entry struct {
	Packet string  `json:"packet"`
	Time   float64 `json:"time"`
	Hash   string  `json:"hash"`
}

// ReadLocation reads every entry in root's ledger for location.
func ReadLocation(root, location string) ([]Entry, error) {
	return readDir(layout.LocationDir(root, location))
}

// ReadAll reads every location's ledger under root.
func ReadAll(root string) ([]Entry, error) {
	base := layout.LocationRoot(root)
	dirs, err := os.ReadDir(base)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, apperror.Wrap(err, apperror.Internal, "failed to read locations in '%s': %s", root, err)
	}

	var all []Entry
	for _, d := range dirs {
		if !d.IsDir() {
			continue
		}
		entries, err := readDir(filepath.Join(base, d.Name()))
		if err != nil {
			return nil, err
		}
		all = append(all, entries...)
	}
	return all, nil
}

func readDir(dir string) ([]Entry, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, apperror.Wrap(err, apperror.Internal, "failed to read location directory '%s': %s", dir, err)
	}

	var entries []Entry
	for _, f := range files {
		if f.IsDir() || !packetid.Valid(f.Name()) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, f.Name()))
		if err != nil {
			return nil, apperror.Wrap(err, apperror.Internal, "failed to read '%s': %s", f.Name(), err)
		}
		var entry Entry
		if err := json.Unmarshal(data, &entry); err != nil {
			return nil, apperror.Wrap(err, apperror.Internal, "failed to parse location entry '%s': %s", f.Name(), err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// MarkPacketKnown idempotently records that location has id at the
// given hash and time. A repeated write with identical content is a
// no-op; a write that would change an existing entry's content fails
// with apperror.AlreadyExists.
func MarkPacketKnown(root, id, location, h string, t float64) error {
	entry := Entry{Packet: id, Time: t, Hash: h}
	data, err := json.Marshal(entry)
	if err != nil {
		return apperror.Wrap(err, apperror.Internal, "failed to serialise location entry: %s", err)
	}

	dir := layout.LocationDir(root, location)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return apperror.Wrap(err, apperror.Internal, "failed to create location directory '%s': %s", dir, err)
	}

	path := layout.LocationEntryPath(root, location, id)
	return atomicfile.IdempotentCreate(path, data)
}
