// Package sessionmgr implements the Session Manager: a process-wide
// registry handing out storage sessions by transaction id and reclaiming
// abandoned staging directories.
package sessionmgr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fcrepo/ocfl-core/foi"
	"github.com/fcrepo/ocfl-core/logging"
	"github.com/fcrepo/ocfl-core/osa"
	"github.com/fcrepo/ocfl-core/session"
)

// entry tracks one live session plus its bookkeeping for orphan reaping.
type entry struct {
	sess       *session.Session
	stagingDir string
	opened     time.Time
}

// Manager hands out sessions keyed by transaction id, enforcing a single
// live session per id, and periodically reaps staging directories for
// sessions that were never committed or rolled back.
type Manager struct {
	adapter      osa.ObjectStoreAdapter
	index        *foi.Index
	stagingRoot  string
	orphanAfter  time.Duration
	sessionOpts  []session.Option
	logger       *slog.Logger

	mu       sync.Mutex
	sessions map[string]*entry
}

// Option configures a Manager.
type Option func(*Manager)

// WithOrphanTimeout sets how long after it was opened an uncommitted,
// unrolled-back session may stay registered before ReapOrphans reclaims
// its staging directory. The timeout counts from opening, not from the
// session's last activity.
func WithOrphanTimeout(d time.Duration) Option {
	return func(m *Manager) { m.orphanAfter = d }
}

// WithSessionOptions passes through options applied to every session this
// manager constructs.
func WithSessionOptions(opts ...session.Option) Option {
	return func(m *Manager) { m.sessionOpts = opts }
}

// WithLogger attaches a structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// New returns a Manager whose sessions share adapter and index, staging
// under stagingRoot.
func New(adapter osa.ObjectStoreAdapter, index *foi.Index, stagingRoot string, opts ...Option) *Manager {
	m := &Manager{
		adapter:     adapter,
		index:       index,
		stagingRoot: stagingRoot,
		orphanAfter: time.Hour,
		logger:      logging.Disabled(),
		sessions:    map[string]*entry{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Get returns the session for txnID, creating one with a fresh staging
// directory if none exists yet. An empty txnID returns a new transient,
// read-only session every call — it is never registered, since there is
// nothing to reap or to prevent concurrent writers on.
func (m *Manager) Get(txnID string) (*session.Session, error) {
	if txnID == "" {
		return session.New("", m.adapter, m.index, m.sessionOpts...), nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.sessions[txnID]; ok {
		return e.sess, nil
	}

	dir := filepath.Join(m.stagingRoot, txnID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating staging directory for transaction %q: %w", txnID, err)
	}
	sess := session.New(txnID, m.adapter, m.index, m.sessionOpts...)
	m.sessions[txnID] = &entry{sess: sess, stagingDir: dir, opened: time.Now()}
	return sess, nil
}

// NewTransaction allocates a fresh transaction id and returns its
// read-write session.
func (m *Manager) NewTransaction() (string, *session.Session, error) {
	id := uuid.NewString()
	sess, err := m.Get(id)
	if err != nil {
		return "", nil, err
	}
	return id, sess, nil
}

// Release drops txnID from the registry and removes its staging
// directory. Callers invoke this after a session reaches a terminal
// state (committed, rolled back, or rollback failed).
func (m *Manager) Release(txnID string) {
	m.mu.Lock()
	e, ok := m.sessions[txnID]
	delete(m.sessions, txnID)
	m.mu.Unlock()
	if !ok {
		return
	}
	if err := os.RemoveAll(e.stagingDir); err != nil {
		m.logger.Warn("removing staging directory", "txn", txnID, "dir", e.stagingDir, "error", err)
	}
}

// ReapOrphans releases every registered session whose staging directory
// has been open longer than the configured orphan timeout. A session that
// has not reached a terminal state is rolled back first so the underlying
// store is left consistent; one that already has is released as is.
func (m *Manager) ReapOrphans(ctx context.Context) {
	cutoff := time.Now().Add(-m.orphanAfter)
	m.mu.Lock()
	var stale []string
	for id, e := range m.sessions {
		if e.opened.Before(cutoff) {
			stale = append(stale, id)
		}
	}
	m.mu.Unlock()

	for _, id := range stale {
		m.mu.Lock()
		e, ok := m.sessions[id]
		m.mu.Unlock()
		if !ok {
			continue
		}
		switch e.sess.State() {
		case session.Committed, session.RolledBack, session.RollbackFailed:
			// already terminal; nothing to roll back
		default:
			if err := e.sess.Rollback(ctx); err != nil {
				m.logger.Warn("rolling back orphaned session", "txn", id, "error", err)
			}
		}
		m.Release(id)
	}
}

// Run starts a goroutine calling ReapOrphans on interval until ctx is
// canceled.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.ReapOrphans(ctx)
			}
		}
	}()
}
