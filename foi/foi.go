// Package foi implements the Fedora↔OCFL index: a persistent, transactional
// mapping from Fedora resource identifiers to the OCFL object and root
// resource that stores them. The index survives process restarts and
// participates in the storage session's commit: its staged changes are
// committed after the session's OCFL objects.
package foi

import (
	"encoding/json"
	"fmt"
	"sync"

	bolt "go.etcd.io/bbolt"

	"github.com/fcrepo/ocfl-core/txnerr"
)

var bucketResources = []byte("resources")

// Entry is the index record for one Fedora resource.
type Entry struct {
	RID            string `json:"rid"`
	OCFLObjectID   string `json:"ocflObjectId"`
	RootResourceID string `json:"rootResourceId"`
}

// pendingOp is one staged index mutation, applied on Commit and discarded
// on Rollback.
type pendingOp struct {
	remove bool
	entry  Entry
}

// Index is a bbolt-backed Fedora↔OCFL index. Writes are staged per
// transaction id and only applied to the database on Commit; a read sees
// its own transaction's staged changes and otherwise goes to the
// database, so a reader never observes a change that a concurrent
// transaction has not yet committed.
type Index struct {
	db *bolt.DB

	mu      sync.Mutex
	pending map[string][]pendingOp // txn id -> staged ops, in order
	staged  map[string]map[string]*Entry // txn id -> rid -> entry overlay
}

// Open opens (creating if needed) a bbolt database at path as the backing
// store for an Index.
func Open(path string) (*Index, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("opening index database: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketResources)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing index buckets: %w", err)
	}
	return &Index{
		db:      db,
		pending: map[string][]pendingOp{},
		staged:  map[string]map[string]*Entry{},
	}, nil
}

// Close closes the underlying database.
func (idx *Index) Close() error {
	return idx.db.Close()
}

// Get returns the entry for rid, preferring txn's uncommitted staged view
// if txn is non-empty and has a pending change for rid.
func (idx *Index) Get(txn, rid string) (*Entry, error) {
	if txn != "" {
		idx.mu.Lock()
		if overlay, ok := idx.staged[txn]; ok {
			e, staged := overlay[rid]
			idx.mu.Unlock()
			if staged {
				if e == nil {
					return nil, txnerr.ErrNotFound
				}
				return e, nil
			}
		} else {
			idx.mu.Unlock()
		}
	}
	var out *Entry
	err := idx.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketResources)
		data := b.Get([]byte(rid))
		if data == nil {
			return txnerr.ErrNotFound
		}
		var e Entry
		if err := json.Unmarshal(data, &e); err != nil {
			return fmt.Errorf("decoding index entry for %q: %w", rid, err)
		}
		out = &e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Add stages an upsert of entry under transaction txn.
func (idx *Index) Add(txn string, entry Entry) error {
	if txn == "" {
		return fmt.Errorf("index: transaction id is required to stage a write")
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.pending[txn] = append(idx.pending[txn], pendingOp{entry: entry})
	idx.overlay(txn)[entry.RID] = &entry
	return nil
}

// Remove stages removal of rid's entry under transaction txn.
func (idx *Index) Remove(txn, rid string) error {
	if txn == "" {
		return fmt.Errorf("index: transaction id is required to stage a write")
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.pending[txn] = append(idx.pending[txn], pendingOp{remove: true, entry: Entry{RID: rid}})
	idx.overlay(txn)[rid] = nil
	return nil
}

// overlay returns (creating if needed) txn's staged rid->entry view. Caller
// must hold idx.mu.
func (idx *Index) overlay(txn string) map[string]*Entry {
	m := idx.staged[txn]
	if m == nil {
		m = map[string]*Entry{}
		idx.staged[txn] = m
	}
	return m
}

// HasPending reports whether txn has any staged, uncommitted changes.
func (idx *Index) HasPending(txn string) bool {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return len(idx.pending[txn]) > 0
}

// Commit durably applies every op staged under txn, in staging order, then
// discards txn's staged state.
func (idx *Index) Commit(txn string) error {
	idx.mu.Lock()
	ops := idx.pending[txn]
	idx.mu.Unlock()
	if len(ops) == 0 {
		idx.discard(txn)
		return nil
	}
	err := idx.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketResources)
		for _, op := range ops {
			if op.remove {
				if err := b.Delete([]byte(op.entry.RID)); err != nil {
					return err
				}
				continue
			}
			data, err := json.Marshal(op.entry)
			if err != nil {
				return fmt.Errorf("encoding index entry for %q: %w", op.entry.RID, err)
			}
			if err := b.Put([]byte(op.entry.RID), data); err != nil {
				return err
			}
		}
		return nil
	})
	idx.discard(txn)
	if err != nil {
		return &txnerr.CommitFailedErr{ObjectID: "index:" + txn, Err: err}
	}
	return nil
}

// Rollback discards every op staged under txn without applying it.
func (idx *Index) Rollback(txn string) {
	idx.discard(txn)
}

func (idx *Index) discard(txn string) {
	idx.mu.Lock()
	delete(idx.pending, txn)
	delete(idx.staged, txn)
	idx.mu.Unlock()
}
