// Package session implements the transactional storage session that
// mediates between logical resource operations and an OCFL-structured
// object store: persist dispatch, per-object sub-sessions, and two-phase
// commit/rollback.
package session

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fcrepo/ocfl-core/foi"
	"github.com/fcrepo/ocfl-core/inventory"
	"github.com/fcrepo/ocfl-core/logging"
	"github.com/fcrepo/ocfl-core/osa"
	"github.com/fcrepo/ocfl-core/txnerr"
)

// State is a storage session's lifecycle state.
type State int

const (
	Open State = iota
	CommitStarted
	PrepareFailed
	Committed
	CommitFailed
	RollingBack
	RolledBack
	RollbackFailed
)

func (s State) String() string {
	switch s {
	case Open:
		return "OPEN"
	case CommitStarted:
		return "COMMIT_STARTED"
	case PrepareFailed:
		return "PREPARE_FAILED"
	case Committed:
		return "COMMITTED"
	case CommitFailed:
		return "COMMIT_FAILED"
	case RollingBack:
		return "ROLLING_BACK"
	case RolledBack:
		return "ROLLED_BACK"
	case RollbackFailed:
		return "ROLLBACK_FAILED"
	default:
		return "UNKNOWN"
	}
}

type persisterFunc func(ctx context.Context, s *Session, op Operation) error

// defaultDispatch is the standard persister table: one handler per
// operation kind, injected into every session built by New.
var defaultDispatch = map[OperationKind]persisterFunc{
	OpCreateRdfSource:    persistCreateRdfSource,
	OpUpdateRdfSource:    persistUpdateRdfSource,
	OpCreateNonRdfSource: persistCreateNonRdfSource,
	OpUpdateNonRdfSource: persistUpdateNonRdfSource,
	OpDeleteResource:     persistDeleteResource,
	OpPurgeResource:      persistPurgeResource,
	OpCreateVersion:      persistCreateVersion,
}

// Session is the transactional facade over one or more OCFL objects: the
// Storage Session (SS) component.
type Session struct {
	txnID       string // empty means read-only/transient
	adapter     osa.ObjectStoreAdapter
	index       *foi.Index
	dispatch    map[OperationKind]persisterFunc
	defaultMode osa.CommitMode
	digestAlg   string
	drainTO     time.Duration
	logger      *slog.Logger

	mu                sync.Mutex
	state             State
	oss               map[string]*objectSubSession // ocfl object id -> OSS
	order             []string                     // insertion order, for diagnostics only
	committedSnapshot []string                     // object ids committed so far, for rollback
	gate              *arrivalGate
}

// Option configures a Session at construction.
type Option func(*Session)

// WithDefaultCommitMode sets the commit mode new OSS are created with.
func WithDefaultCommitMode(m osa.CommitMode) Option {
	return func(s *Session) { s.defaultMode = m }
}

// WithDigestAlgorithm sets the digest algorithm id used to validate
// caller-supplied fixity on non-RDF writes.
func WithDigestAlgorithm(id string) Option {
	return func(s *Session) { s.digestAlg = id }
}

// WithRollbackDrainTimeout overrides the bounded wait rollback uses to
// drain in-flight persists.
func WithRollbackDrainTimeout(d time.Duration) Option {
	return func(s *Session) { s.drainTO = d }
}

// WithLogger attaches a structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// New constructs a session. txnID empty denotes a read-only, transient
// session: Persist always fails; Commit and Rollback are no-ops.
func New(txnID string, adapter osa.ObjectStoreAdapter, index *foi.Index, opts ...Option) *Session {
	s := &Session{
		txnID:       txnID,
		adapter:     adapter,
		index:       index,
		dispatch:    defaultDispatch,
		defaultMode: osa.MutableHead,
		digestAlg:   "sha512",
		drainTO:     30 * time.Second,
		logger:      logging.Disabled(),
		state:       Open,
		oss:         map[string]*objectSubSession{},
		gate:        newArrivalGate(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ReadOnly reports whether this session has no transaction id.
func (s *Session) ReadOnly() bool { return s.txnID == "" }

// State returns the session's current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// openOSS returns (creating if absent) the sub-session for ocflID.
func (s *Session) openOSS(ocflID string) *objectSubSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	o := s.oss[ocflID]
	if o == nil {
		o = newObjectSubSession(ocflID, s.defaultMode, s.adapter)
		s.oss[ocflID] = o
		s.order = append(s.order, ocflID)
	}
	return o
}

// Persist routes op to its persister. Safe for concurrent use; the
// returned error is one of the kinds in package txnerr.
func (s *Session) Persist(ctx context.Context, op Operation) error {
	if s.ReadOnly() {
		return fmt.Errorf("session is read-only: %w", txnerr.ErrUnsupportedOperation)
	}
	s.mu.Lock()
	st := s.state
	s.mu.Unlock()
	if st != Open {
		return fmt.Errorf("session: %w", txnerr.ErrSessionClosed)
	}
	if err := s.gate.register(ctx); err != nil {
		return err
	}
	defer s.gate.depart()

	// re-check after registering: a commit/rollback may have raced us
	// between the first check and registering the arrival.
	s.mu.Lock()
	st = s.state
	s.mu.Unlock()
	if st != Open {
		return fmt.Errorf("session: %w", txnerr.ErrSessionClosed)
	}

	handler := s.dispatch[op.Kind()]
	if handler == nil {
		return fmt.Errorf("operation %v: %w", op.Kind(), txnerr.ErrUnsupportedOperation)
	}
	return handler(ctx, s, op)
}

// orderedIDs returns the touched OCFL object ids in ascending order, the
// deterministic sequence commit's prepare and commit passes visit them in.
func (s *Session) orderedIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.oss))
	for id := range s.oss {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Commit runs the session's two-phase commit: drain in-flight persists,
// prepare every touched OCFL object in deterministic order, commit each,
// then commit the index.
func (s *Session) Commit(ctx context.Context) error {
	if s.ReadOnly() {
		return nil
	}
	s.mu.Lock()
	if s.state != Open {
		err := fmt.Errorf("session: %w", txnerr.ErrInvalidState)
		s.mu.Unlock()
		return err
	}
	s.state = CommitStarted
	s.mu.Unlock()

	if err := s.gate.awaitZero(ctx); err != nil {
		return fmt.Errorf("waiting for in-flight persists: %w", err)
	}

	ids := s.orderedIDs()
	var committed []string

	for _, id := range ids {
		o := s.ossFor(id)
		if err := o.prepare(ctx); err != nil {
			s.setState(PrepareFailed)
			s.logger.ErrorContext(ctx, "prepare failed", "object", id, "error", err)
			return err
		}
	}

	for _, id := range ids {
		o := s.ossFor(id)
		if err := o.commit(ctx); err != nil {
			s.setState(CommitFailed)
			s.recordCommitted(committed)
			s.logger.ErrorContext(ctx, "commit failed", "object", id, "error", err)
			return err
		}
		committed = append(committed, id)
		o.close(ctx)
	}
	s.recordCommitted(committed)

	if s.index.HasPending(s.txnID) {
		if err := s.index.Commit(s.txnID); err != nil {
			s.setState(CommitFailed)
			return err
		}
	}

	s.setState(Committed)
	return nil
}

// recordCommitted adds ids to the committed set tracked across Commit for
// Rollback's committed-set logic.
func (s *Session) recordCommitted(ids []string) {
	s.mu.Lock()
	s.committedSnapshot = append(s.committedSnapshot, ids...)
	s.mu.Unlock()
}

func (s *Session) ossFor(id string) *objectSubSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.oss[id]
}

// Rollback aborts the session. Valid from Open, PrepareFailed, and
// CommitFailed. Objects already committed before a CommitFailed are
// tracked in the committed set; rolling them back is only possible for
// NEW_VERSION commits with an adapter that implements
// osa.VersionReverter.
func (s *Session) Rollback(ctx context.Context) error {
	if s.ReadOnly() {
		return nil
	}
	s.mu.Lock()
	st := s.state
	s.mu.Unlock()
	if st != Open && st != PrepareFailed && st != CommitFailed {
		return fmt.Errorf("session: %w", txnerr.ErrInvalidState)
	}

	if st == Open {
		drainCtx, cancel := context.WithTimeout(ctx, s.drainTO)
		defer cancel()
		if err := s.gate.awaitZero(drainCtx); err != nil {
			return &txnerr.DrainTimeoutErr{InFlight: int(s.gate.inFlight())}
		}
	}

	s.setState(RollingBack)

	s.mu.Lock()
	committedSet := make(map[string]bool, len(s.committedSnapshot))
	for _, id := range s.committedSnapshot {
		committedSet[id] = true
	}
	ossCopy := make(map[string]*objectSubSession, len(s.oss))
	for k, v := range s.oss {
		ossCopy[k] = v
	}
	s.mu.Unlock()

	var failures []txnerr.RollbackFailure
	for id, o := range ossCopy {
		if !committedSet[id] {
			o.close(ctx)
			continue
		}
		failures = append(failures, s.revertCommitted(ctx, id, o)...)
	}

	s.index.Rollback(s.txnID)

	if len(failures) > 0 {
		s.setState(RollbackFailed)
		return &txnerr.RollbackFailedErr{Failures: failures}
	}
	s.setState(RolledBack)
	return nil
}

func (s *Session) revertCommitted(ctx context.Context, id string, o *objectSubSession) []txnerr.RollbackFailure {
	if o.mode == osa.MutableHead {
		return []txnerr.RollbackFailure{{
			ObjectID: id,
			Reason:   "mutable head",
		}}
	}
	reverter, ok := s.adapter.(osa.VersionReverter)
	if !ok {
		return []txnerr.RollbackFailure{{
			ObjectID: id,
			Reason:   "adapter limitation",
		}}
	}
	versions, err := s.adapter.ListVersions(ctx, id)
	if err != nil || len(versions) == 0 {
		return []txnerr.RollbackFailure{{ObjectID: id, Reason: "io", Err: err}}
	}
	head := versions[len(versions)-1].Num
	if err := reverter.RevertVersion(ctx, id, head); err != nil {
		return []txnerr.RollbackFailure{{ObjectID: id, Reason: "io", Err: err}}
	}
	return nil
}

// GetHeaders returns the header sidecar for rid's current content.
func (s *Session) GetHeaders(ctx context.Context, rid string) (*inventory.Header, error) {
	ocflID, _, local, err := s.resolve(ctx, rid)
	if err != nil {
		return nil, err
	}
	contentPath := joinContentPath(local, containerFileName)
	f, err := s.adapter.Read(ctx, ocflID, inventory.SidecarPath(contentPath))
	if err != nil {
		contentPath = joinContentPath(local, binaryContentName)
		f, err = s.adapter.Read(ctx, ocflID, inventory.SidecarPath(contentPath))
		if err != nil {
			return nil, err
		}
	}
	defer f.Close()
	b, err := io.ReadAll(f)
	if err != nil {
		return nil, &txnerr.IOErr{Op: "read header", Err: err}
	}
	return inventory.DecodeHeader(b)
}

// GetTriples opens rid's RDF body.
func (s *Session) GetTriples(ctx context.Context, rid string) (io.ReadCloser, error) {
	ocflID, _, local, err := s.resolve(ctx, rid)
	if err != nil {
		return nil, err
	}
	return s.adapter.Read(ctx, ocflID, joinContentPath(local, containerFileName))
}

// GetBinary opens rid's binary body.
func (s *Session) GetBinary(ctx context.Context, rid string) (io.ReadCloser, error) {
	ocflID, _, local, err := s.resolve(ctx, rid)
	if err != nil {
		return nil, err
	}
	return s.adapter.Read(ctx, ocflID, joinContentPath(local, binaryContentName))
}

// ListVersions returns rid's owning OCFL object's version history.
func (s *Session) ListVersions(ctx context.Context, rid string) ([]osa.VersionInfo, error) {
	ocflID, _, _, err := s.resolve(ctx, rid)
	if err != nil {
		return nil, err
	}
	return s.adapter.ListVersions(ctx, ocflID)
}

// readAtVersion opens logicalPath as it existed in version v of ocflID,
// via the adapter's optional osa.VersionReader capability.
func (s *Session) readAtVersion(ctx context.Context, ocflID string, v inventory.VNum, logicalPath string) (io.ReadCloser, error) {
	reader, ok := s.adapter.(osa.VersionReader)
	if !ok {
		return nil, &txnerr.IOErr{Op: "read version", Err: txnerr.ErrUnsupportedOperation}
	}
	return reader.ReadVersion(ctx, ocflID, v, logicalPath)
}

// GetHeadersAtVersion returns the header sidecar for rid's content as of
// version v, per the adapter's memento support.
func (s *Session) GetHeadersAtVersion(ctx context.Context, rid string, v inventory.VNum) (*inventory.Header, error) {
	ocflID, _, local, err := s.resolve(ctx, rid)
	if err != nil {
		return nil, err
	}
	contentPath := joinContentPath(local, containerFileName)
	f, err := s.readAtVersion(ctx, ocflID, v, inventory.SidecarPath(contentPath))
	if err != nil {
		contentPath = joinContentPath(local, binaryContentName)
		f, err = s.readAtVersion(ctx, ocflID, v, inventory.SidecarPath(contentPath))
		if err != nil {
			return nil, err
		}
	}
	defer f.Close()
	b, err := io.ReadAll(f)
	if err != nil {
		return nil, &txnerr.IOErr{Op: "read header", Err: err}
	}
	return inventory.DecodeHeader(b)
}

// GetTriplesAtVersion opens rid's RDF body as of version v.
func (s *Session) GetTriplesAtVersion(ctx context.Context, rid string, v inventory.VNum) (io.ReadCloser, error) {
	ocflID, _, local, err := s.resolve(ctx, rid)
	if err != nil {
		return nil, err
	}
	return s.readAtVersion(ctx, ocflID, v, joinContentPath(local, containerFileName))
}

// GetBinaryAtVersion opens rid's binary body as of version v.
func (s *Session) GetBinaryAtVersion(ctx context.Context, rid string, v inventory.VNum) (io.ReadCloser, error) {
	ocflID, _, local, err := s.resolve(ctx, rid)
	if err != nil {
		return nil, err
	}
	return s.readAtVersion(ctx, ocflID, v, joinContentPath(local, binaryContentName))
}

// resolve looks up rid's OCFL mapping, preferring this session's staged
// view, and returns (ocflObjectID, rootRID, localSubpath).
func (s *Session) resolve(ctx context.Context, rid string) (string, string, string, error) {
	e, err := s.index.Get(s.txnID, rid)
	if err != nil {
		return "", "", "", err
	}
	return e.OCFLObjectID, e.RootResourceID, localSubpath(rid, e.RootResourceID), nil
}

const (
	containerFileName = "fcr-container.nt"
	binaryContentName = "fcr-content"
)

// localSubpath returns rid's path relative to its owning root resource,
// or "" if rid is itself the root.
func localSubpath(rid, rootRID string) string {
	if rid == rootRID {
		return ""
	}
	prefix := rootRID + "/"
	if strings.HasPrefix(rid, prefix) {
		return strings.TrimPrefix(rid, prefix)
	}
	return rid
}

// joinContentPath joins a (possibly empty) local subpath with a file
// name, matching the OCFL logical-path convention for archival-group
// members: "<child>/<file>" or just "<file>" at the object root.
func joinContentPath(local, file string) string {
	if local == "" {
		return file
	}
	return local + "/" + file
}
