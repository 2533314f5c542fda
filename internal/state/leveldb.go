package state

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	lerrors "github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// LevelDB is a persistent Store on an embedded LevelDB database. Writes go
// through LevelDB transactions, which exclude each other and every direct
// write until committed or discarded.
type LevelDB struct {
	db *leveldb.DB
}

// OpenLevelDB opens (or creates) the database at path, recovering it when
// the manifest is corrupted.
func OpenLevelDB(path string) (*LevelDB, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil && lerrors.IsCorrupted(err) {
		db, err = leveldb.RecoverFile(path, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("open leveldb %s: %w", path, err)
	}
	return &LevelDB{db: db}, nil
}

// View runs fn against a LevelDB snapshot.
func (l *LevelDB) View(ctx context.Context, fn func(Reader) error) error {
	snap, err := l.db.GetSnapshot()
	if err != nil {
		return fmt.Errorf("leveldb snapshot: %w", err)
	}
	defer snap.Release()
	return fn(&levelTx{r: snap})
}

// Update runs fn inside a LevelDB transaction, committing on success.
func (l *LevelDB) Update(ctx context.Context, fn func(Tx) error) error {
	tr, err := l.db.OpenTransaction()
	if err != nil {
		return fmt.Errorf("leveldb open transaction: %w", err)
	}
	if err := fn(&levelTx{r: tr, w: tr}); err != nil {
		tr.Discard()
		return err
	}
	if err := ctx.Err(); err != nil {
		tr.Discard()
		return err
	}
	if err := tr.Commit(); err != nil {
		return fmt.Errorf("leveldb commit: %w", err)
	}
	return nil
}

// Ping checks that the database is still open.
func (l *LevelDB) Ping(ctx context.Context) error {
	if _, err := l.db.GetProperty("leveldb.num-files-at-level0"); err != nil {
		return fmt.Errorf("leveldb ping: %w", err)
	}
	return nil
}

// Close closes the database.
func (l *LevelDB) Close() error {
	return l.db.Close()
}

type levelReader interface {
	Get(key []byte, ro *opt.ReadOptions) ([]byte, error)
	NewIterator(slice *util.Range, ro *opt.ReadOptions) iterator.Iterator
}

type levelWriter interface {
	Put(key, value []byte, wo *opt.WriteOptions) error
	Delete(key []byte, wo *opt.WriteOptions) error
}

type levelTx struct {
	r levelReader
	w levelWriter
}

func (t *levelTx) Get(ctx context.Context, key []byte) ([]byte, error) {
	value, err := t.r.Get(key, nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return nil, ErrKeyNotFound
		}
		return nil, fmt.Errorf("leveldb get: %w", err)
	}
	return value, nil
}

func (t *levelTx) Scan(ctx context.Context, prefix, after []byte, fn ScanFunc) error {
	it := t.r.NewIterator(util.BytesPrefix(prefix), nil)
	defer it.Release()

	var ok bool
	if after != nil && bytes.Compare(after, prefix) >= 0 {
		ok = it.Seek(after)
		if ok && bytes.Equal(it.Key(), after) {
			ok = it.Next()
		}
	} else {
		ok = it.First()
	}

	for ; ok; ok = it.Next() {
		cont, err := fn(clone(it.Key()), clone(it.Value()))
		if err != nil {
			return err
		}
		if !cont {
			break
		}
	}
	if err := it.Error(); err != nil {
		return fmt.Errorf("leveldb scan: %w", err)
	}
	return nil
}

func (t *levelTx) Put(ctx context.Context, key, value []byte) error {
	if t.w == nil {
		return errReadOnly
	}
	if err := t.w.Put(key, value, nil); err != nil {
		return fmt.Errorf("leveldb put: %w", err)
	}
	return nil
}

func (t *levelTx) Delete(ctx context.Context, key []byte) error {
	if t.w == nil {
		return errReadOnly
	}
	if err := t.w.Delete(key, nil); err != nil {
		return fmt.Errorf("leveldb delete: %w", err)
	}
	return nil
}

var errReadOnly = errors.New("write on read-only view")
