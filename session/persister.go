package session

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fcrepo/ocfl-core/foi"
	"github.com/fcrepo/ocfl-core/inventory"
	"github.com/fcrepo/ocfl-core/osa"
	"github.com/fcrepo/ocfl-core/txnerr"
)

// resolveCreate works out the OCFL object id, root RID, and local subpath
// a create operation targets. A brand-new atomic resource or a new
// archival-group root maps 1:1 onto a fresh OCFL object named after its
// own RID. A child create resolves its parent's existing mapping and
// inherits the parent's OCFL object id and root RID.
func resolveCreate(ctx context.Context, s *Session, b base, archivalGroup bool) (ocflID, rootRID, local string, err error) {
	if b.ParentID == "" || archivalGroup {
		return b.RID, b.RID, "", nil
	}
	parent, err := s.index.Get(s.txnID, b.ParentID)
	if err != nil {
		return "", "", "", fmt.Errorf("resolving parent %q: %w", b.ParentID, err)
	}
	return parent.OCFLObjectID, parent.RootResourceID, localSubpath(b.RID, parent.RootResourceID), nil
}

func persistCreateRdfSource(ctx context.Context, s *Session, raw Operation) error {
	op := raw.(CreateRdfSourceOp)
	ocflID, rootRID, local, err := resolveCreate(ctx, s, op.base, op.ArchivalGroup)
	if err != nil {
		return err
	}
	oss := s.openOSS(ocflID)
	contentPath := joinContentPath(local, containerFileName)
	digestHex, size, err := oss.stageWrite(ctx, contentPath, op.Triples)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	model := inventory.ModelContainer
	if op.ArchivalGroup {
		model = inventory.ModelAG
	}
	hdr := &inventory.Header{
		ID:               op.RID,
		ParentID:         op.ParentID,
		InteractionModel: model,
		ArchivalGroup:    op.ArchivalGroup,
		CreatedAt:        now,
		LastModifiedAt:   now,
		ContentSize:      size,
		Digests:          map[string]string{s.digestAlg: digestHex},
		StateToken:       digestHex,
	}
	if err := oss.stageHeader(ctx, contentPath, hdr); err != nil {
		return err
	}
	return s.index.Add(s.txnID, foi.Entry{RID: op.RID, OCFLObjectID: ocflID, RootResourceID: rootRID})
}

func persistUpdateRdfSource(ctx context.Context, s *Session, raw Operation) error {
	op := raw.(UpdateRdfSourceOp)
	ocflID, _, local, err := s.resolve(ctx, op.RID)
	if err != nil {
		return err
	}
	oss := s.openOSS(ocflID)
	contentPath := joinContentPath(local, containerFileName)
	prev, _ := s.GetHeaders(ctx, op.RID)
	digestHex, size, err := oss.stageWrite(ctx, contentPath, op.Triples)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	hdr := &inventory.Header{
		ID:               op.RID,
		ParentID:         op.ParentID,
		InteractionModel: inventory.ModelContainer,
		CreatedAt:        now,
		LastModifiedAt:   now,
		ContentSize:      size,
		Digests:          map[string]string{s.digestAlg: digestHex},
		StateToken:       digestHex,
	}
	if prev != nil {
		hdr.CreatedAt = prev.CreatedAt
		hdr.ArchivalGroup = prev.ArchivalGroup
		hdr.InteractionModel = prev.InteractionModel
	}
	return oss.stageHeader(ctx, contentPath, hdr)
}

func persistCreateNonRdfSource(ctx context.Context, s *Session, raw Operation) error {
	op := raw.(CreateNonRdfSourceOp)
	ocflID, rootRID, local, err := resolveCreate(ctx, s, op.base, false)
	if err != nil {
		return err
	}
	oss := s.openOSS(ocflID)
	contentPath := joinContentPath(local, binaryContentName)
	digestHex, size, err := oss.stageWrite(ctx, contentPath, op.Content)
	if err != nil {
		return err
	}
	if op.ExpectedDigest != "" && !strings.EqualFold(op.ExpectedDigest, digestHex) {
		return &txnerr.DigestErr{Path: contentPath, Alg: s.digestAlg, Expected: op.ExpectedDigest, Got: digestHex}
	}
	now := time.Now().UTC()
	hdr := &inventory.Header{
		ID:               op.RID,
		ParentID:         op.ParentID,
		InteractionModel: inventory.ModelBinary,
		CreatedAt:        now,
		LastModifiedAt:   now,
		MimeType:         op.MimeType,
		Filename:         op.Filename,
		ContentSize:      size,
		Digests:          map[string]string{s.digestAlg: digestHex},
		StateToken:       digestHex,
	}
	if err := oss.stageHeader(ctx, contentPath, hdr); err != nil {
		return err
	}
	return s.index.Add(s.txnID, foi.Entry{RID: op.RID, OCFLObjectID: ocflID, RootResourceID: rootRID})
}

func persistUpdateNonRdfSource(ctx context.Context, s *Session, raw Operation) error {
	op := raw.(UpdateNonRdfSourceOp)
	ocflID, _, local, err := s.resolve(ctx, op.RID)
	if err != nil {
		return err
	}
	prev, _ := s.GetHeaders(ctx, op.RID)
	oss := s.openOSS(ocflID)
	contentPath := joinContentPath(local, binaryContentName)
	digestHex, size, err := oss.stageWrite(ctx, contentPath, op.Content)
	if err != nil {
		return err
	}
	if op.ExpectedDigest != "" && !strings.EqualFold(op.ExpectedDigest, digestHex) {
		return &txnerr.DigestErr{Path: contentPath, Alg: s.digestAlg, Expected: op.ExpectedDigest, Got: digestHex}
	}
	filename := op.Filename
	if filename == "" && prev != nil {
		filename = prev.Filename
	}
	now := time.Now().UTC()
	hdr := &inventory.Header{
		ID:               op.RID,
		ParentID:         op.ParentID,
		InteractionModel: inventory.ModelBinary,
		CreatedAt:        now,
		LastModifiedAt:   now,
		MimeType:         op.MimeType,
		Filename:         filename,
		ContentSize:      size,
		Digests:          map[string]string{s.digestAlg: digestHex},
		StateToken:       digestHex,
	}
	if prev != nil {
		hdr.CreatedAt = prev.CreatedAt
		if op.MimeType == "" {
			hdr.MimeType = prev.MimeType
		}
	}
	return oss.stageHeader(ctx, contentPath, hdr)
}

func persistDeleteResource(ctx context.Context, s *Session, raw Operation) error {
	op := raw.(DeleteResourceOp)
	ocflID, _, local, err := s.resolve(ctx, op.RID)
	if err != nil {
		return err
	}
	oss := s.openOSS(ocflID)

	if local == "" {
		// Atomic resource or archival-group root: tombstone in place.
		// The object stays in the store; only its staged delta changes.
		prev, _ := s.GetHeaders(ctx, op.RID)
		contentPath := containerFileName
		if prev != nil && prev.InteractionModel == inventory.ModelBinary {
			contentPath = binaryContentName
		}
		now := time.Now().UTC()
		hdr := &inventory.Header{
			ID:             op.RID,
			Deleted:        true,
			LastModifiedAt: now,
			StateToken:     fmt.Sprintf("tombstone-%d", now.UnixNano()),
		}
		if prev != nil {
			hdr.CreatedAt = prev.CreatedAt
			hdr.ParentID = prev.ParentID
			hdr.InteractionModel = prev.InteractionModel
			hdr.ArchivalGroup = prev.ArchivalGroup
		}
		empty := bytes.NewReader(nil)
		if _, _, err := oss.stageWrite(ctx, contentPath, io.Reader(empty)); err != nil {
			return err
		}
		return oss.stageHeader(ctx, contentPath, hdr)
	}

	// Archival-group child: remove its subpaths, leave the group alive.
	prev, _ := s.GetHeaders(ctx, op.RID)
	contentPath := joinContentPath(local, containerFileName)
	if prev != nil && prev.InteractionModel == inventory.ModelBinary {
		contentPath = joinContentPath(local, binaryContentName)
	}
	if err := oss.stageDelete(ctx, contentPath); err != nil {
		return err
	}
	return oss.stageDelete(ctx, inventory.SidecarPath(contentPath))
}

func persistPurgeResource(ctx context.Context, s *Session, raw Operation) error {
	op := raw.(PurgeResourceOp)
	ocflID, rootRID, local, err := s.resolve(ctx, op.RID)
	if err != nil {
		return err
	}
	if local != "" || rootRID != op.RID {
		return fmt.Errorf("resource %q is an archival-group child, purge is whole-object only: %w", op.RID, txnerr.ErrUnsupportedOperation)
	}
	oss := s.openOSS(ocflID)
	oss.schedulePurge()
	return s.index.Remove(s.txnID, op.RID)
}

func persistCreateVersion(ctx context.Context, s *Session, raw Operation) error {
	op := raw.(CreateVersionOp)
	ocflID, _, _, err := s.resolve(ctx, op.RID)
	if err != nil {
		return err
	}
	if !s.adapter.HasStagedChanges(ctx, ocflID) {
		return fmt.Errorf("object %q: no pending changes to promote to a version: %w", ocflID, txnerr.ErrInvalidState)
	}
	oss := s.openOSS(ocflID)
	oss.setMode(osa.NewVersion)
	return nil
}
