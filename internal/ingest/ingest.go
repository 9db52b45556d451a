// Package ingest implements the repository's packet intake path:
// validating an uploaded metadata document against its claimed hash,
// checking that everything it references is present, and persisting it
// idempotently into the metadata store and local location ledger.
package ingest

import (
	"encoding/json"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/mrc-ide/outpack-server/internal/apperror"
	"github.com/mrc-ide/outpack-server/internal/atomicfile"
	"github.com/mrc-ide/outpack-server/internal/hash"
	"github.com/mrc-ide/outpack-server/internal/layout"
	"github.com/mrc-ide/outpack-server/internal/location"
	"github.com/mrc-ide/outpack-server/internal/metadata"
	"github.com/mrc-ide/outpack-server/internal/store"
)

// now returns the current time in fractional seconds since the epoch,
// the timestamp recorded in ledger entries.
var now = func() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}

type packetFile struct {
	Hash string `json:"hash"`
}

type packetDependency struct {
	Packet string `json:"packet"`
}

type document struct {
	ID      string             `json:"id"`
	Files   []packetFile       `json:"files"`
	Depends []packetDependency `json:"depends"`
}

func parseDocument(raw []byte) (document, error) {
	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return document{}, apperror.Wrap(err, apperror.InvalidInput, "failed to parse metadata document: %s", err)
	}
	if doc.ID == "" {
		return document{}, apperror.New(apperror.InvalidInput, "metadata document is missing an 'id' field")
	}
	return doc, nil
}

// AddPacket validates rawDocument against claimedHash, checks that every
// file and dependency it references is already present, and - only if
// every precondition holds - persists the document and marks it known
// in the local ledger. A precondition failure leaves the metadata store
// and ledger untouched.
func AddPacket(root string, rawDocument []byte, claimedHash string) error {
	doc, err := parseDocument(rawDocument)
	if err != nil {
		return err
	}

	expected, err := hash.Parse(claimedHash)
	if err != nil {
		return err
	}
	if err := hash.ValidateBytes(rawDocument, expected); err != nil {
		return errors.Wrapf(err, "failed to validate document hash for '%s'", doc.ID)
	}

	wantFiles := make([]string, len(doc.Files))
	for i, f := range doc.Files {
		wantFiles[i] = f.Hash
	}
	missingFiles, err := store.Missing(root, wantFiles)
	if err != nil {
		return errors.Wrapf(err, "failed to check file store for '%s'", doc.ID)
	}
	if len(missingFiles) > 0 {
		return apperror.New(apperror.InvalidInput,
			"Can't import metadata for %s, as files missing: %s", doc.ID, strings.Join(missingFiles, ", "))
	}

	wantDeps := make([]string, len(doc.Depends))
	for i, d := range doc.Depends {
		wantDeps[i] = d.Packet
	}
	idx := metadata.NewIndex(0)
	missingDeps, err := idx.MissingIDs(root, wantDeps, true)
	if err != nil {
		return errors.Wrapf(err, "failed to check dependencies for '%s'", doc.ID)
	}
	if len(missingDeps) > 0 {
		return apperror.New(apperror.InvalidInput,
			"Can't import metadata for %s, as dependencies missing: %s", doc.ID, strings.Join(missingDeps, ", "))
	}

	if err := writeMetadata(root, doc.ID, rawDocument); err != nil {
		return err
	}

	if err := location.MarkPacketKnown(root, doc.ID, layout.LocalLocation, claimedHash, now()); err != nil {
		return errors.Wrapf(err, "failed to record '%s' in the local location ledger", doc.ID)
	}

	return nil
}

// AddMetadata is the lower-privileged counterpart to AddPacket used by
// bulk-sync callers that have already verified file and dependency
// completeness out of band. It validates the document hash and
// persists the document, but does not check files or dependencies, and
// is not reachable from the HTTP surface.
func AddMetadata(root string, rawDocument []byte, claimedHash string) error {
	doc, err := parseDocument(rawDocument)
	if err != nil {
		return err
	}

	expected, err := hash.Parse(claimedHash)
	if err != nil {
		return err
	}
	if err := hash.ValidateBytes(rawDocument, expected); err != nil {
		return errors.Wrapf(err, "failed to validate document hash for '%s'", doc.ID)
	}

	return writeMetadata(root, doc.ID, rawDocument)
}

func writeMetadata(root, id string, rawDocument []byte) error {
	dir := layout.MetadataDir(root)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return apperror.Wrap(err, apperror.Internal, "failed to create metadata directory '%s': %s", dir, err)
	}
	path := layout.MetadataPath(root, id)
	if err := atomicfile.IdempotentCreate(path, rawDocument); err != nil {
		return errors.Wrapf(err, "failed to write metadata for '%s'", id)
	}
	return nil
}
