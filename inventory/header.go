package inventory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	ocflfs "github.com/fcrepo/ocfl-core/fs"
)

// InteractionModel classifies a Fedora resource's body.
type InteractionModel string

const (
	ModelContainer InteractionModel = "container" // RDF source
	ModelBinary    InteractionModel = "binary"     // non-RDF source
	ModelAG        InteractionModel = "archival-group"
)

// ServerManagedMode controls how server-managed triples are reconciled on
// write.
type ServerManagedMode string

const (
	Strict  ServerManagedMode = "STRICT"
	Relaxed ServerManagedMode = "RELAXED"
)

// Header is the sidecar metadata stored alongside every resource body in an
// OCFL object: interaction model, timestamps, digests, containment, and
// tombstone state. One Header exists per logical path per version.
type Header struct {
	ID               string            `json:"id"`
	ParentID         string            `json:"parentId,omitempty"`
	InteractionModel InteractionModel  `json:"interactionModel"`
	ArchivalGroup    bool              `json:"archivalGroup"`
	Deleted          bool              `json:"deleted"`
	CreatedAt        time.Time         `json:"createdAt"`
	LastModifiedAt   time.Time         `json:"lastModifiedAt"`
	MimeType         string            `json:"mimeType,omitempty"`
	Filename         string            `json:"filename,omitempty"`
	ContentSize      int64             `json:"contentSize,omitempty"`
	Digests          map[string]string `json:"digests,omitempty"`
	StateToken       string            `json:"stateToken"`
}

// SidecarPath returns the logical path for path's header sidecar, e.g.
// "C/fcr-container.nt.headers" for content path "C/fcr-container.nt".
func SidecarPath(contentPath string) string {
	return contentPath + ".headers"
}

// EncodeHeader serializes h as indented JSON, matching the teacher's
// practice of writing small JSON metadata documents with MarshalIndent for
// stable, diffable on-disk output.
func EncodeHeader(h *Header) ([]byte, error) {
	b, err := json.MarshalIndent(h, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding resource header: %w", err)
	}
	return b, nil
}

// DecodeHeader parses a header sidecar previously written by EncodeHeader.
func DecodeHeader(b []byte) (*Header, error) {
	var h Header
	if err := json.Unmarshal(b, &h); err != nil {
		return nil, fmt.Errorf("decoding resource header: %w", err)
	}
	return &h, nil
}

// ReadHeader reads and decodes the header sidecar for contentPath within
// dir.
func ReadHeader(ctx context.Context, fsys ocflfs.FS, dir, contentPath string) (*Header, error) {
	b, err := ocflfs.ReadAll(ctx, fsys, dir+"/"+SidecarPath(contentPath))
	if err != nil {
		return nil, err
	}
	return DecodeHeader(b)
}

// WriteHeader encodes and writes the header sidecar for contentPath within
// dir.
func WriteHeader(ctx context.Context, fsys ocflfs.WriteFS, dir, contentPath string, h *Header) error {
	b, err := EncodeHeader(h)
	if err != nil {
		return err
	}
	_, err = fsys.Write(ctx, dir+"/"+SidecarPath(contentPath), bytes.NewReader(b))
	return err
}
