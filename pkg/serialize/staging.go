package serialize

import (
	"bufio"
	"encoding/binary"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// Staging is a local badger-backed scratch store the encoder can route
// large entity batches through, so a multi-gigabyte node or edge set never
// needs to be held in a single in-memory buffer before the writer's
// NODES/EDGES section is emitted. Grounded on the teacher's BadgerEngine
// key-prefix scheme (pkg/storage/badger.go): a one-byte section prefix plus
// a big-endian ordinal key, scanned back out in ascending order.
type Staging struct {
	db *badger.DB
}

// OpenStaging opens (or creates) a badger store at dir. dir == "" opens an
// in-memory instance, useful for tests and for snapshots small enough that
// staging to disk would only add latency.
func OpenStaging(dir string) (*Staging, error) {
	opts := badger.DefaultOptions(dir)
	opts = opts.WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("serialize: open staging store: %w", err)
	}
	return &Staging{db: db}, nil
}

func (s *Staging) Close() error { return s.db.Close() }

func stagingKey(section byte, ordinal uint64) []byte {
	key := make([]byte, 9)
	key[0] = section
	binary.BigEndian.PutUint64(key[1:], ordinal)
	return key
}

// put stores the already-encoded bytes for one entity under (section,
// ordinal), overwriting any previous value.
func (s *Staging) put(section byte, ordinal uint64, data []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(stagingKey(section, ordinal), data)
	})
}

// drain streams every value staged under section, in ascending ordinal
// order, into w, then deletes them.
func (s *Staging) drain(section byte, w *bufio.Writer) error {
	prefix := []byte{section}
	var keys [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			key := append([]byte(nil), item.Key()...)
			if err := item.Value(func(val []byte) error {
				_, err := w.Write(val)
				return err
			}); err != nil {
				return err
			}
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		for _, k := range keys {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}
