package session

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/fcrepo/ocfl-core/inventory"
	"github.com/fcrepo/ocfl-core/osa"
	"github.com/fcrepo/ocfl-core/txnerr"
)

// ossState is an Object Sub-Session's lifecycle state.
type ossState int

const (
	ossOpen ossState = iota
	ossPrepared
	ossCommitted
	ossClosed
)

// objectSubSession is the per-OCFL-object staging workspace within one
// storage session. Writes and deletes against distinct subpaths may arrive
// concurrently; the same subpath collapses to the most recent call.
type objectSubSession struct {
	id   string // OCFL object id
	mode osa.CommitMode
	osa  osa.ObjectStoreAdapter

	mu    sync.Mutex
	state ossState
	purge bool // whole object scheduled for removal at commit
}

func newObjectSubSession(id string, mode osa.CommitMode, adapter osa.ObjectStoreAdapter) *objectSubSession {
	return &objectSubSession{id: id, mode: mode, osa: adapter, state: ossOpen}
}

// stageWrite places bytes at subpath, replacing any previously staged
// write or delete at the same subpath.
func (o *objectSubSession) stageWrite(ctx context.Context, subpath string, r io.Reader) (string, int64, error) {
	o.mu.Lock()
	st := o.state
	o.mu.Unlock()
	if st != ossOpen {
		return "", 0, fmt.Errorf("object %q: %w", o.id, txnerr.ErrSessionClosed)
	}
	return o.osa.Write(ctx, o.id, subpath, r)
}

// stageDelete marks subpath for removal, discarding any staged write at
// the same subpath.
func (o *objectSubSession) stageDelete(ctx context.Context, subpath string) error {
	o.mu.Lock()
	st := o.state
	o.mu.Unlock()
	if st != ossOpen {
		return fmt.Errorf("object %q: %w", o.id, txnerr.ErrSessionClosed)
	}
	return o.osa.Delete(ctx, o.id, subpath)
}

// stageHeader encodes and stages h as the sidecar for contentPath.
func (o *objectSubSession) stageHeader(ctx context.Context, contentPath string, h *inventory.Header) error {
	b, err := inventory.EncodeHeader(h)
	if err != nil {
		return err
	}
	_, _, err = o.stageWrite(ctx, inventory.SidecarPath(contentPath), bytes.NewReader(b))
	return err
}

// schedulePurge marks the whole object for removal at commit time, in
// place of an ordinary prepare/commit of staged content.
func (o *objectSubSession) schedulePurge() {
	o.mu.Lock()
	o.purge = true
	o.mu.Unlock()
}

// setMode overrides this OSS's commit mode, used by CreateVersion to
// promote a mutable head to a durable version.
func (o *objectSubSession) setMode(mode osa.CommitMode) {
	o.mu.Lock()
	o.mode = mode
	o.mu.Unlock()
}

// read returns a handle for subpath in this object, delegating to the
// underlying store's Read. Staged content is written through the adapter
// rather than buffered in the OSS, and the adapter's Read serves committed
// content only, so bytes staged in this session are not returned.
func (o *objectSubSession) read(ctx context.Context, subpath string) (io.ReadCloser, error) {
	f, err := o.osa.Read(ctx, o.id, subpath)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// prepare validates and durably stages this object's pending changes
// without making them visible.
func (o *objectSubSession) prepare(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != ossOpen {
		return fmt.Errorf("object %q: %w", o.id, txnerr.ErrInvalidState)
	}
	if o.purge {
		o.state = ossPrepared
		return nil
	}
	if !o.osa.HasStagedChanges(ctx, o.id) {
		o.state = ossPrepared
		return nil
	}
	if err := o.osa.Prepare(ctx, o.id); err != nil {
		return &txnerr.PrepareFailedErr{ObjectID: o.id, Err: err}
	}
	o.state = ossPrepared
	return nil
}

// commit promotes this object's prepared changes.
func (o *objectSubSession) commit(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != ossPrepared {
		return fmt.Errorf("object %q: %w", o.id, txnerr.ErrInvalidState)
	}
	if o.purge {
		if err := o.osa.Purge(ctx, o.id); err != nil {
			return &txnerr.CommitFailedErr{ObjectID: o.id, Err: err}
		}
		o.state = ossCommitted
		return nil
	}
	if o.osa.HasStagedChanges(ctx, o.id) {
		if err := o.osa.Commit(ctx, o.id, o.mode); err != nil {
			return &txnerr.CommitFailedErr{ObjectID: o.id, Err: err}
		}
	}
	o.state = ossCommitted
	return nil
}

// close releases this OSS, discarding any uncommitted staged work.
func (o *objectSubSession) close(ctx context.Context) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != ossCommitted {
		_ = o.osa.Discard(ctx, o.id)
	}
	o.state = ossClosed
}

func (o *objectSubSession) committed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state == ossCommitted
}
