// Package ocfl implements osa.ObjectStoreAdapter against a storage root
// laid out per the OCFL specification: one NAMASTE-declared object
// directory per id, versions named v1, v2, ... under it, and an
// inventory.json manifest recording digests and content paths.
package ocfl

import (
	"bytes"
	"context"
	"fmt"
	"io"
	iofs "io/fs"
	"log/slog"
	"path"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fcrepo/ocfl-core/digest"
	ocflfs "github.com/fcrepo/ocfl-core/fs"
	"github.com/fcrepo/ocfl-core/inventory"
	"github.com/fcrepo/ocfl-core/logging"
	"github.com/fcrepo/ocfl-core/namaste"
	"github.com/fcrepo/ocfl-core/osa"
	"github.com/fcrepo/ocfl-core/txnerr"
)

const (
	mutableHeadDir = "extensions/0005-mutable-head/head"
	rootSpec       = namaste.Spec1_1
)

// Store is an osa.ObjectStoreAdapter backed by an ocflfs.CopyFS storage
// root.
type Store struct {
	fsys   ocflfs.CopyFS
	root   string
	layout osa.Layout
	alg    digest.Alg
	logger *slog.Logger

	mu    sync.Mutex
	stage map[string]*objectStage // id -> in-progress stage
}

// Option configures a Store.
type Option func(*Store)

// WithLayout overrides the storage root's id-to-path layout.
func WithLayout(l osa.Layout) Option {
	return func(s *Store) { s.layout = l }
}

// WithDigestAlgorithm overrides the digest algorithm used for new objects.
func WithDigestAlgorithm(alg digest.Alg) Option {
	return func(s *Store) { s.alg = alg }
}

// WithLogger attaches a structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// New returns a Store rooted at fsys.
func New(fsys ocflfs.CopyFS, root string, opts ...Option) *Store {
	s := &Store{
		fsys:   fsys,
		root:   root,
		layout: osa.DefaultLayout(),
		alg:    digest.SHA512,
		logger: logging.Disabled(),
		stage:  map[string]*objectStage{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// objectStage accumulates pending writes and deletes for one OCFL object
// between Write/Delete calls and the following Prepare/Commit/Discard.
// Writes and deletes are collapsed per logical path: the last call wins.
type objectStage struct {
	content map[string][]byte // logicalPath -> staged content
	deletes map[string]bool   // logicalPath -> true

	prepared bool
	newInv   *inventory.Inventory
	prevInv  *inventory.Inventory
	objDir   string
	isNew    bool
}

func newObjectStage() *objectStage {
	return &objectStage{content: map[string][]byte{}, deletes: map[string]bool{}}
}

func (s *Store) objPath(id string) (string, error) {
	rel, err := s.layout.Resolve(id)
	if err != nil {
		return "", err
	}
	return path.Join(s.root, rel), nil
}

func (s *Store) getStage(id string) *objectStage {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.stage[id]
	if st == nil {
		st = newObjectStage()
		s.stage[id] = st
	}
	return st
}

func (s *Store) Contains(ctx context.Context, id string) (bool, error) {
	dir, err := s.objPath(id)
	if err != nil {
		return false, err
	}
	entries, err := s.fsys.ReadDir(ctx, dir)
	if err != nil {
		if isNotExist(err) {
			return false, nil
		}
		return false, &txnerr.IOErr{Op: "readdir", Err: err}
	}
	_, err = namaste.Find(entries)
	return err == nil, nil
}

// readInventory loads the effective inventory for id: the mutable head if
// one is present, otherwise the object root inventory.
func (s *Store) readInventory(ctx context.Context, id string) (*inventory.Inventory, string, error) {
	dir, err := s.objPath(id)
	if err != nil {
		return nil, "", err
	}
	entries, err := s.fsys.ReadDir(ctx, dir)
	if err != nil {
		if isNotExist(err) {
			return nil, dir, txnerr.ErrNotFound
		}
		return nil, dir, &txnerr.IOErr{Op: "readdir", Err: err}
	}
	if _, err := namaste.Find(entries); err != nil {
		return nil, dir, txnerr.ErrNotFound
	}
	if headEntries, err := s.fsys.ReadDir(ctx, path.Join(dir, mutableHeadDir)); err == nil && len(headEntries) > 0 {
		if inv, err := inventory.Read(ctx, s.fsys, path.Join(dir, mutableHeadDir)); err == nil {
			return inv, dir, nil
		}
	}
	inv, err := inventory.Read(ctx, s.fsys, dir)
	if err != nil {
		return nil, dir, &txnerr.IOErr{Op: "read inventory", Err: err}
	}
	return inv, dir, nil
}

func (s *Store) Read(ctx context.Context, id, logicalPath string) (iofs.File, error) {
	inv, dir, err := s.readInventory(ctx, id)
	if err != nil {
		return nil, err
	}
	head := inv.HeadVersion()
	if head == nil {
		return nil, txnerr.ErrNotFound
	}
	d := head.State.DigestFor(logicalPath)
	if d == "" {
		return nil, txnerr.ErrNotFound
	}
	paths := inv.Manifest.Paths(d)
	if len(paths) == 0 {
		return nil, txnerr.ErrCorrupt
	}
	f, err := s.fsys.OpenFile(ctx, path.Join(dir, paths[0]))
	if err != nil {
		return nil, &txnerr.IOErr{Op: "open content", Err: err}
	}
	return f, nil
}

// ReadVersion opens a content file at logicalPath as it existed in version
// v of id's history, rather than only the head.
func (s *Store) ReadVersion(ctx context.Context, id string, v inventory.VNum, logicalPath string) (iofs.File, error) {
	inv, dir, err := s.readInventory(ctx, id)
	if err != nil {
		return nil, err
	}
	ver, ok := inv.Versions[v.String()]
	if !ok {
		return nil, txnerr.ErrNotFound
	}
	d := ver.State.DigestFor(logicalPath)
	if d == "" {
		return nil, txnerr.ErrNotFound
	}
	paths := inv.Manifest.Paths(d)
	if len(paths) == 0 {
		return nil, txnerr.ErrCorrupt
	}
	f, err := s.fsys.OpenFile(ctx, path.Join(dir, paths[0]))
	if err != nil {
		return nil, &txnerr.IOErr{Op: "open content", Err: err}
	}
	return f, nil
}

func (s *Store) ListVersions(ctx context.Context, id string) ([]osa.VersionInfo, error) {
	inv, _, err := s.readInventory(ctx, id)
	if err != nil {
		return nil, err
	}
	vnums := inv.VNums()
	out := make([]osa.VersionInfo, 0, len(vnums))
	for _, v := range vnums {
		ver := inv.Versions[v.String()]
		if ver == nil {
			continue
		}
		out = append(out, osa.VersionInfo{
			Num:     v,
			Created: ver.Created.Format(time.RFC3339),
			Message: ver.Message,
		})
	}
	return out, nil
}

func (s *Store) ManifestDigests(ctx context.Context, id string) (digest.Map, error) {
	inv, _, err := s.readInventory(ctx, id)
	if err != nil {
		if err == txnerr.ErrNotFound {
			return digest.NewMap(), nil
		}
		return nil, err
	}
	return inv.Manifest.Clone(), nil
}

func (s *Store) Write(ctx context.Context, id, logicalPath string, r io.Reader) (string, int64, error) {
	buf, err := io.ReadAll(r)
	if err != nil {
		return "", 0, &txnerr.IOErr{Op: "buffer staged write", Err: err}
	}
	d, err := digest.Digest(s.alg, bytes.NewReader(buf))
	if err != nil {
		return "", 0, err
	}
	st := s.getStage(id)
	s.mu.Lock()
	st.content[logicalPath] = buf
	delete(st.deletes, logicalPath)
	s.mu.Unlock()
	return d, int64(len(buf)), nil
}

func (s *Store) Delete(ctx context.Context, id, logicalPath string) error {
	st := s.getStage(id)
	s.mu.Lock()
	delete(st.content, logicalPath)
	st.deletes[logicalPath] = true
	s.mu.Unlock()
	return nil
}

func (s *Store) HasStagedChanges(ctx context.Context, id string) bool {
	s.mu.Lock()
	st := s.stage[id]
	hasPending := st != nil && (len(st.content) > 0 || len(st.deletes) > 0)
	s.mu.Unlock()
	if hasPending {
		return true
	}
	return s.hasMutableHead(ctx, id)
}

// hasMutableHead reports whether id currently has a non-empty mutable-head
// extension area on disk: content committed under MutableHead but not yet
// promoted to an immutable version by a NewVersion commit.
func (s *Store) hasMutableHead(ctx context.Context, id string) bool {
	dir, err := s.objPath(id)
	if err != nil {
		return false
	}
	entries, err := s.fsys.ReadDir(ctx, path.Join(dir, mutableHeadDir))
	if err != nil {
		return false
	}
	return len(entries) > 0
}

func (s *Store) Discard(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.stage, id)
	return nil
}

// Prepare builds the next inventory for id from its staged content and
// writes the staged bytes to their final content paths under the object
// directory. The new inventory is held in memory only, not written to
// disk, so the new state stays invisible until Commit writes it; a
// process restart between Prepare and Commit loses the prepared
// inventory and the staged set.
func (s *Store) Prepare(ctx context.Context, id string) error {
	st := s.getStage(id)
	hasNew := len(st.content) > 0 || len(st.deletes) > 0

	prev, dir, err := s.readInventory(ctx, id)
	isNew := false
	switch {
	case err == nil:
		st.prevInv = prev
	case err == txnerr.ErrNotFound:
		if !hasNew {
			return fmt.Errorf("object %q: %w", id, txnerr.ErrInvalidState)
		}
		isNew = true
		dir, err = s.objPath(id)
		if err != nil {
			return err
		}
	default:
		return err
	}
	st.isNew = isNew
	st.objDir = dir

	if !hasNew {
		// No new writes this call: the only legitimate reason to prepare
		// is promoting an on-disk mutable head left by a prior session.
		// readInventory already prefers that mutable-head inventory, with
		// Head and the pending version fully built and its content bytes
		// already durably written, so it can be reused as-is.
		if !s.hasMutableHead(ctx, id) {
			return fmt.Errorf("object %q: %w", id, txnerr.ErrInvalidState)
		}
		st.newInv = prev
		st.prepared = true
		return nil
	}

	var inv *inventory.Inventory
	var next inventory.VNum
	if isNew {
		inv = inventory.New(id, s.alg.ID(), rootSpec)
		next = inventory.V1
	} else {
		inv = cloneInventory(prev)
		next, err = prev.Head.Next()
		if err != nil {
			return &txnerr.PrepareFailedErr{ObjectID: id, Err: err}
		}
	}

	state := digest.NewMap()
	if !isNew {
		if hv := prev.HeadVersion(); hv != nil {
			for p, d := range hv.State.PathMap() {
				state.Add(d, p)
			}
		}
	}
	for p := range st.deletes {
		removeFromState(state, p)
	}
	for p, buf := range st.content {
		d, err := digest.Digest(s.alg, bytes.NewReader(buf))
		if err != nil {
			return &txnerr.PrepareFailedErr{ObjectID: id, Err: err}
		}
		removeFromState(state, p)
		state.Add(d, p)
		if len(inv.Manifest.Paths(d)) == 0 {
			contentPath := path.Join(next.String(), inv.ContentDirectory, p)
			inv.Manifest.Add(d, contentPath)
		}
	}

	inv.Head = next
	inv.Versions[next.String()] = &inventory.Version{
		Created: time.Now().UTC(),
		State:   state,
	}

	grp, gctx := errgroup.WithContext(ctx)
	grp.SetLimit(8)
	for _, p := range sortedContentKeys(st.content) {
		p, buf := p, st.content[p]
		d := state.DigestFor(p)
		contentPaths := inv.Manifest.Paths(d)
		if len(contentPaths) == 0 {
			continue
		}
		dst := path.Join(dir, contentPaths[0])
		grp.Go(func() error {
			_, err := s.fsys.Write(gctx, dst, bytes.NewReader(buf))
			return err
		})
	}
	if err := grp.Wait(); err != nil {
		return &txnerr.PrepareFailedErr{ObjectID: id, Err: err}
	}

	st.newInv = inv
	st.prepared = true
	return nil
}

// Commit promotes a prepared object stage by writing the NAMASTE
// declaration (new objects only) and the inventory, then clearing the
// stage. The content itself was already durably written during Prepare,
// so Commit's only remaining step is the inventory write that makes the
// new state visible.
func (s *Store) Commit(ctx context.Context, id string, mode osa.CommitMode) error {
	st := s.getStage(id)
	if !st.prepared {
		return fmt.Errorf("object %q: %w", id, txnerr.ErrInvalidState)
	}

	if st.isNew {
		decl := namaste.Declaration{Type: namaste.TypeObject, Version: rootSpec}
		if err := namaste.Write(ctx, s.fsys, st.objDir, decl); err != nil {
			return &txnerr.CommitFailedErr{ObjectID: id, Err: err}
		}
	}

	switch mode {
	case osa.MutableHead:
		headDir := path.Join(st.objDir, mutableHeadDir)
		if err := inventory.Write(ctx, s.fsys, headDir, st.newInv); err != nil {
			return &txnerr.CommitFailedErr{ObjectID: id, Err: err}
		}
	case osa.NewVersion:
		versionDir := path.Join(st.objDir, st.newInv.Head.String())
		if err := inventory.Write(ctx, s.fsys, versionDir, st.newInv); err != nil {
			return &txnerr.CommitFailedErr{ObjectID: id, Err: err}
		}
		if err := inventory.Write(ctx, s.fsys, st.objDir, st.newInv); err != nil {
			return &txnerr.CommitFailedErr{ObjectID: id, Err: err}
		}
		if err := s.fsys.RemoveAll(ctx, path.Join(st.objDir, mutableHeadDir)); err != nil && !isNotExist(err) {
			s.logger.WarnContext(ctx, "clearing mutable head after version commit", "id", id, "error", err)
		}
	default:
		return fmt.Errorf("object %q: %w: unknown commit mode %v", id, txnerr.ErrInvalidState, mode)
	}

	s.mu.Lock()
	delete(s.stage, id)
	s.mu.Unlock()
	return nil
}

func (s *Store) Purge(ctx context.Context, id string) error {
	dir, err := s.objPath(id)
	if err != nil {
		return err
	}
	if err := s.fsys.RemoveAll(ctx, dir); err != nil {
		return &txnerr.IOErr{Op: "purge", Err: err}
	}
	s.mu.Lock()
	delete(s.stage, id)
	s.mu.Unlock()
	return nil
}

// RevertVersion implements osa.VersionReverter by removing a version's
// directory and rewriting the object-root inventory back to the prior
// head. It is only safe when v is still the object's current head, which
// callers must ensure holds for the lifetime of a transaction.
func (s *Store) RevertVersion(ctx context.Context, id string, v inventory.VNum) error {
	inv, dir, err := s.readInventory(ctx, id)
	if err != nil {
		return err
	}
	if inv.Head != v {
		return fmt.Errorf("object %q: version %s is not the current head: %w", id, v, txnerr.ErrConflict)
	}
	if v.Num() == 1 {
		return s.fsys.RemoveAll(ctx, dir)
	}
	delete(inv.Versions, v.String())
	prevNum := v.Num() - 1
	var prev inventory.VNum
	for _, cand := range inv.VNums() {
		if cand.Num() == prevNum {
			prev = cand
		}
	}
	inv.Head = prev
	if err := s.fsys.RemoveAll(ctx, path.Join(dir, v.String())); err != nil {
		return &txnerr.IOErr{Op: "remove reverted version", Err: err}
	}
	return inventory.Write(ctx, s.fsys, dir, inv)
}

var _ osa.VersionReverter = (*Store)(nil)
var _ osa.VersionReader = (*Store)(nil)
var _ osa.ObjectStoreAdapter = (*Store)(nil)

func cloneInventory(inv *inventory.Inventory) *inventory.Inventory {
	out := &inventory.Inventory{
		ID:               inv.ID,
		Type:             inv.Type,
		DigestAlgorithm:  inv.DigestAlgorithm,
		Head:             inv.Head,
		ContentDirectory: inv.ContentDirectory,
		Manifest:         inv.Manifest.Clone(),
		Versions:         map[string]*inventory.Version{},
	}
	for k, v := range inv.Versions {
		out.Versions[k] = v
	}
	return out
}

func removeFromState(state digest.Map, logicalPath string) {
	d := state.DigestFor(logicalPath)
	if d == "" {
		return
	}
	paths := state.Paths(d)
	kept := paths[:0]
	for _, p := range paths {
		if p != logicalPath {
			kept = append(kept, p)
		}
	}
	if len(kept) == 0 {
		delete(state, d)
		return
	}
	state[d] = kept
}

func sortedContentKeys(m map[string][]byte) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func isNotExist(err error) bool {
	for err != nil {
		if err == iofs.ErrNotExist {
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
