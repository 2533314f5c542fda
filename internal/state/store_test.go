package state

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func backends(t *testing.T) map[string]Store {
	t.Helper()

	level, err := OpenLevelDB(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = level.Close() })

	return map[string]Store{
		"memory":  NewMemory(),
		"leveldb": level,
	}
}

func put(t *testing.T, s Store, kv ...string) {
	t.Helper()
	require.NoError(t, s.Update(context.Background(), func(tx Tx) error {
		for i := 0; i+1 < len(kv); i += 2 {
			if err := tx.Put(context.Background(), []byte(kv[i]), []byte(kv[i+1])); err != nil {
				return err
			}
		}
		return nil
	}))
}

func scanKeys(t *testing.T, s Store, prefix, after string, limit int) []string {
	t.Helper()
	var afterKey []byte
	if after != "" {
		afterKey = []byte(after)
	}
	var keys []string
	require.NoError(t, s.View(context.Background(), func(r Reader) error {
		return r.Scan(context.Background(), []byte(prefix), afterKey, func(key, _ []byte) (bool, error) {
			keys = append(keys, string(key))
			return limit <= 0 || len(keys) < limit, nil
		})
	}))
	return keys
}

func TestGetPutDelete(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			put(t, s, "a", "1")

			require.NoError(t, s.View(ctx, func(r Reader) error {
				value, err := r.Get(ctx, []byte("a"))
				require.NoError(t, err)
				assert.Equal(t, "1", string(value))

				_, err = r.Get(ctx, []byte("missing"))
				assert.ErrorIs(t, err, ErrKeyNotFound)
				return nil
			}))

			require.NoError(t, s.Update(ctx, func(tx Tx) error {
				return tx.Delete(ctx, []byte("a"))
			}))
			require.NoError(t, s.View(ctx, func(r Reader) error {
				_, err := r.Get(ctx, []byte("a"))
				assert.ErrorIs(t, err, ErrKeyNotFound)
				return nil
			}))
		})
	}
}

func TestUpdateRollsBackOnError(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			put(t, s, "keep", "v1")

			boom := errors.New("boom")
			err := s.Update(ctx, func(tx Tx) error {
				require.NoError(t, tx.Put(ctx, []byte("keep"), []byte("v2")))
				require.NoError(t, tx.Put(ctx, []byte("new"), []byte("x")))

				// writes are visible inside the transaction
				value, err := tx.Get(ctx, []byte("keep"))
				require.NoError(t, err)
				assert.Equal(t, "v2", string(value))
				return boom
			})
			require.ErrorIs(t, err, boom)

			require.NoError(t, s.View(ctx, func(r Reader) error {
				value, err := r.Get(ctx, []byte("keep"))
				require.NoError(t, err)
				assert.Equal(t, "v1", string(value))

				_, err = r.Get(ctx, []byte("new"))
				assert.ErrorIs(t, err, ErrKeyNotFound)
				return nil
			}))
		})
	}
}

func TestScanOrderPrefixAndAfter(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			put(t, s,
				"object/c", "3",
				"object/a", "1",
				"object/b", "2",
				"objects", "x",
				"pin/a/addr1", "",
				"data/a", "z",
			)

			assert.Equal(t, []string{"object/a", "object/b", "object/c"}, scanKeys(t, s, "object/", "", 0))
			assert.Equal(t, []string{"object/c"}, scanKeys(t, s, "object/", "object/b", 0))
			assert.Equal(t, []string{"object/b", "object/c"}, scanKeys(t, s, "object/", "object/aa", 0))
			assert.Equal(t, []string{"object/a", "object/b"}, scanKeys(t, s, "object/", "", 2))
			assert.Empty(t, scanKeys(t, s, "object/", "object/c", 0))
			assert.Empty(t, scanKeys(t, s, "nothing/", "", 0))
			// an `after` below the prefix does not skip anything
			assert.Equal(t, []string{"object/a", "object/b", "object/c"}, scanKeys(t, s, "object/", "data/zzz", 0))
		})
	}
}

func TestScanCallbackError(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			put(t, s, "k/1", "a", "k/2", "b")
			boom := errors.New("stop")
			err := s.View(context.Background(), func(r Reader) error {
				return r.Scan(context.Background(), []byte("k/"), nil, func(key, _ []byte) (bool, error) {
					return false, boom
				})
			})
			assert.ErrorIs(t, err, boom)
		})
	}
}

func TestViewIsolatedFromLaterWrites(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	put(t, s, "k", "old")

	require.NoError(t, s.View(ctx, func(r Reader) error {
		put(t, s, "k", "new")
		value, err := r.Get(ctx, []byte("k"))
		require.NoError(t, err)
		assert.Equal(t, "old", string(value))
		return nil
	}))
}

func TestMemoryConcurrentUpdatesSerialize(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	put(t, s, "counter", "0")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Update(ctx, func(tx Tx) error {
				raw, err := tx.Get(ctx, []byte("counter"))
				if err != nil {
					return err
				}
				n, err := strconv.Atoi(string(raw))
				if err != nil {
					return err
				}
				return tx.Put(ctx, []byte("counter"), []byte(strconv.Itoa(n+1)))
			})
		}()
	}
	wg.Wait()

	require.NoError(t, s.View(ctx, func(r Reader) error {
		raw, err := r.Get(ctx, []byte("counter"))
		require.NoError(t, err)
		assert.Equal(t, "50", string(raw))
		return nil
	}))
}

func TestClosedMemory(t *testing.T) {
	s := NewMemory()
	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.Ping(context.Background()), ErrClosed)
	assert.ErrorIs(t, s.Update(context.Background(), func(Tx) error { return nil }), ErrClosed)
}

func TestLoadSave(t *testing.T) {
	type record struct {
		Name  string
		Count uint64
		Limit *uint64
	}
	s := NewMemory()
	ctx := context.Background()
	limit := uint64(7)

	require.NoError(t, s.Update(ctx, func(tx Tx) error {
		return Save(ctx, tx, []byte("rec"), record{Name: "a", Count: 3, Limit: &limit})
	}))
	require.NoError(t, s.View(ctx, func(r Reader) error {
		got, err := Load[record](ctx, r, []byte("rec"))
		require.NoError(t, err)
		assert.Equal(t, "a", got.Name)
		assert.Equal(t, uint64(3), got.Count)
		require.NotNil(t, got.Limit)
		assert.Equal(t, uint64(7), *got.Limit)
		return nil
	}))
}

func TestPrefixEnd(t *testing.T) {
	assert.Equal(t, []byte("object0"), prefixEnd([]byte("object/")))
	assert.Equal(t, []byte{0x02}, prefixEnd([]byte{0x01, 0xff}))
	assert.Nil(t, prefixEnd([]byte{0xff, 0xff}))
	assert.Nil(t, prefixEnd(nil))
}
