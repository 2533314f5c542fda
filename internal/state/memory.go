package state

import (
	"bytes"
	"context"
	"errors"
	"sync"

	"github.com/google/btree"
)

const memoryDegree = 32

// ErrClosed is returned by a closed Store.
var ErrClosed = errors.New("state store closed")

type entry struct {
	key   []byte
	value []byte
}

func entryLess(a, b entry) bool {
	return bytes.Compare(a.key, b.key) < 0
}

// Memory is an in-process Store backed by a copy-on-write B-tree. Updates
// run against a lazy clone that replaces the live tree only on success.
type Memory struct {
	writeMu sync.Mutex

	mu     sync.Mutex
	tree   *btree.BTreeG[entry]
	closed bool
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{tree: btree.NewG(memoryDegree, entryLess)}
}

func (m *Memory) snapshot() (*btree.BTreeG[entry], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	return m.tree.Clone(), nil
}

// View runs fn against a snapshot of the current state.
func (m *Memory) View(ctx context.Context, fn func(Reader) error) error {
	snap, err := m.snapshot()
	if err != nil {
		return err
	}
	return fn(&memoryTx{tree: snap})
}

// Update runs fn in a serialized write transaction.
func (m *Memory) Update(ctx context.Context, fn func(Tx) error) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	work, err := m.snapshot()
	if err != nil {
		return err
	}
	if err := fn(&memoryTx{tree: work}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.tree = work
	return nil
}

// Ping reports whether the store is open.
func (m *Memory) Ping(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	return nil
}

// Close drops the state.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.tree = btree.NewG(memoryDegree, entryLess)
	return nil
}

type memoryTx struct {
	tree *btree.BTreeG[entry]
}

func (t *memoryTx) Get(ctx context.Context, key []byte) ([]byte, error) {
	e, ok := t.tree.Get(entry{key: key})
	if !ok {
		return nil, ErrKeyNotFound
	}
	return clone(e.value), nil
}

func (t *memoryTx) Scan(ctx context.Context, prefix, after []byte, fn ScanFunc) error {
	start := prefix
	if after != nil && bytes.Compare(after, prefix) > 0 {
		start = after
	}

	var fnErr error
	t.tree.AscendGreaterOrEqual(entry{key: start}, func(e entry) bool {
		if !bytes.HasPrefix(e.key, prefix) {
			return false
		}
		if after != nil && bytes.Compare(e.key, after) <= 0 {
			return true
		}
		cont, err := fn(clone(e.key), clone(e.value))
		if err != nil {
			fnErr = err
			return false
		}
		return cont
	})
	return fnErr
}

func (t *memoryTx) Put(ctx context.Context, key, value []byte) error {
	t.tree.ReplaceOrInsert(entry{key: clone(key), value: clone(value)})
	return nil
}

func (t *memoryTx) Delete(ctx context.Context, key []byte) error {
	t.tree.Delete(entry{key: key})
	return nil
}
