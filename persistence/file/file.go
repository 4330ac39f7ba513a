// Package file provides a persistence.Gateway that stores the header
// and each space as a single flat file in a directory: "header.blob"
// and "space.<index>.blob".
package file

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fingon/go-nvramd/nlog"
	"github.com/fingon/go-nvramd/persistence"
)

type Backend struct {
	dir string
}

var _ persistence.Gateway = &Backend{}

// New ensures config.Directory exists and returns a Backend rooted there.
func New(config persistence.Config) (persistence.Gateway, error) {
	if err := os.MkdirAll(config.Directory, 0700); err != nil {
		return nil, fmt.Errorf("file: mkdir %s: %w", config.Directory, err)
	}
	return &Backend{dir: config.Directory}, nil
}

func (b *Backend) headerPath() string {
	return filepath.Join(b.dir, "header.blob")
}

func (b *Backend) spacePath(index uint32) string {
	return filepath.Join(b.dir, fmt.Sprintf("space.%d.blob", index))
}

func (b *Backend) load(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, persistence.ErrNotFound
	}
	return data, err
}

func (b *Backend) store(path string, blob []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, blob, 0600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func (b *Backend) LoadHeader() ([]byte, error) {
	v, err := b.load(b.headerPath())
	if err != nil {
		return nil, err
	}
	nlog.Printf2("persistence/file", "file.LoadHeader %d bytes", len(v))
	return v, nil
}

func (b *Backend) StoreHeader(blob []byte) error {
	return b.store(b.headerPath(), blob)
}

func (b *Backend) LoadSpace(index uint32) ([]byte, error) {
	return b.load(b.spacePath(index))
}

func (b *Backend) StoreSpace(index uint32, blob []byte) error {
	return b.store(b.spacePath(index), blob)
}

func (b *Backend) DeleteSpace(index uint32) error {
	err := os.Remove(b.spacePath(index))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func (b *Backend) Close() error {
	return nil
}
