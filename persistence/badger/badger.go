// Package badger provides a persistence.Gateway backed by
// github.com/dgraph-io/badger, using a single-byte key-prefix scheme:
// "h" for the header slot and "s" + big-endian u32 for a space slot.
package badger

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/dgraph-io/badger"

	"github.com/fingon/go-nvramd/nlog"
	"github.com/fingon/go-nvramd/persistence"
)

var headerKey = []byte("h")

type Backend struct {
	db *badger.DB
}

var _ persistence.Gateway = &Backend{}

// New opens (creating if needed) a badger database under config.Directory.
func New(config persistence.Config) (persistence.Gateway, error) {
	if err := os.MkdirAll(config.Directory, 0700); err != nil {
		return nil, fmt.Errorf("badger: mkdir %s: %w", config.Directory, err)
	}
	opts := badger.DefaultOptions
	opts.Dir = config.Directory
	opts.ValueDir = config.Directory
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger: open %s: %w", config.Directory, err)
	}
	return &Backend{db: db}, nil
}

func spaceKey(index uint32) []byte {
	k := make([]byte, 5)
	k[0] = 's'
	binary.BigEndian.PutUint32(k[1:], index)
	return k
}

func (b *Backend) get(key []byte) ([]byte, error) {
	var out []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err == badger.ErrKeyNotFound {
			return persistence.ErrNotFound
		}
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	return out, err
}

func (b *Backend) put(key, value []byte) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
}

func (b *Backend) LoadHeader() ([]byte, error) {
	v, err := b.get(headerKey)
	if err != nil {
		return nil, err
	}
	nlog.Printf2("persistence/badger", "badger.LoadHeader %d bytes", len(v))
	return v, nil
}

func (b *Backend) StoreHeader(blob []byte) error {
	return b.put(headerKey, blob)
}

func (b *Backend) LoadSpace(index uint32) ([]byte, error) {
	return b.get(spaceKey(index))
}

func (b *Backend) StoreSpace(index uint32, blob []byte) error {
	return b.put(spaceKey(index), blob)
}

func (b *Backend) DeleteSpace(index uint32) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(spaceKey(index))
	})
}

func (b *Backend) Close() error {
	return b.db.Close()
}
