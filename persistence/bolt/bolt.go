// Package bolt provides a persistence.Gateway backed by
// github.com/coreos/bbolt, with a bucket for the header slot and a
// bucket for the sparse space slots keyed by their big-endian u32
// index.
package bolt

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	bolt "github.com/coreos/bbolt"

	"github.com/fingon/go-nvramd/nlog"
	"github.com/fingon/go-nvramd/persistence"
)

var headerBucket = []byte("header")
var spaceBucket = []byte("spaces")
var headerKey = []byte("header")

type Backend struct {
	db *bolt.DB
}

var _ persistence.Gateway = &Backend{}

// New opens (creating if needed) a bbolt database under config.Directory.
func New(config persistence.Config) (persistence.Gateway, error) {
	if err := os.MkdirAll(config.Directory, 0700); err != nil {
		return nil, fmt.Errorf("bolt: mkdir %s: %w", config.Directory, err)
	}
	path := filepath.Join(config.Directory, "nvram.bbolt")
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("bolt: open %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(headerBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(spaceBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("bolt: init buckets: %w", err)
	}
	return &Backend{db: db}, nil
}

func spaceKey(index uint32) []byte {
	k := make([]byte, 4)
	binary.BigEndian.PutUint32(k, index)
	return k
}

func (b *Backend) LoadHeader() ([]byte, error) {
	var out []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(headerBucket).Get(headerKey)
		if v == nil {
			return persistence.ErrNotFound
		}
		out = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	nlog.Printf2("persistence/bolt", "bolt.LoadHeader %d bytes", len(out))
	return out, nil
}

func (b *Backend) StoreHeader(blob []byte) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(headerBucket).Put(headerKey, blob)
	})
}

func (b *Backend) LoadSpace(index uint32) ([]byte, error) {
	var out []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(spaceBucket).Get(spaceKey(index))
		if v == nil {
			return persistence.ErrNotFound
		}
		out = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (b *Backend) StoreSpace(index uint32, blob []byte) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(spaceBucket).Put(spaceKey(index), blob)
	})
}

func (b *Backend) DeleteSpace(index uint32) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(spaceBucket).Delete(spaceKey(index))
	})
}

func (b *Backend) Close() error {
	return b.db.Close()
}
