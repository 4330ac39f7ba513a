// Package inmemory provides a map-backed persistence.Gateway. It backs
// the tests and is selectable by name through persistence/factory; it
// also supports
// injecting per-slot storage errors, used to drive the crash-consistency
// test scenarios.
package inmemory

import (
	"errors"
	"sync"

	"github.com/fingon/go-nvramd/persistence"
)

// slot mirrors the reference test harness's StorageSlot: a blob plus an
// independently toggleable injected error.
type slot struct {
	present bool
	blob    []byte
	erring  bool
}

// Backend is an in-memory persistence.Gateway with fault injection.
type Backend struct {
	mu     sync.Mutex
	header slot
	spaces map[uint32]*slot
}

var _ persistence.Gateway = &Backend{}

// New returns an empty Backend.
func New() *Backend {
	return &Backend{spaces: make(map[uint32]*slot)}
}

// NewGateway matches the factory callback signature Config ->
// (persistence.Gateway, error).
func NewGateway(persistence.Config) (persistence.Gateway, error) {
	return New(), nil
}

var errInjected = errors.New("inmemory: injected storage error")

// SetHeaderError toggles whether header stores fail. Loading the header
// is not affected, so an engine can still initialize while it is set.
func (b *Backend) SetHeaderError(erring bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.header.erring = erring
}

// SetSpaceError toggles whether operations on the given space slot fail.
// The slot is created (absent) if it does not exist yet.
func (b *Backend) SetSpaceError(index uint32, erring bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := b.spaceSlotLocked(index)
	s.erring = erring
}

func (b *Backend) spaceSlotLocked(index uint32) *slot {
	s, ok := b.spaces[index]
	if !ok {
		s = &slot{}
		b.spaces[index] = s
	}
	return s
}

func (b *Backend) LoadHeader() ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.header.present {
		return nil, persistence.ErrNotFound
	}
	out := make([]byte, len(b.header.blob))
	copy(out, b.header.blob)
	return out, nil
}

func (b *Backend) StoreHeader(blob []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.header.erring {
		return errInjected
	}
	b.header.blob = append([]byte(nil), blob...)
	b.header.present = true
	return nil
}

func (b *Backend) LoadSpace(index uint32) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := b.spaces[index]
	if s != nil && s.erring {
		return nil, errInjected
	}
	if s == nil || !s.present {
		return nil, persistence.ErrNotFound
	}
	out := make([]byte, len(s.blob))
	copy(out, s.blob)
	return out, nil
}

func (b *Backend) StoreSpace(index uint32, blob []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := b.spaceSlotLocked(index)
	if s.erring {
		return errInjected
	}
	s.blob = append([]byte(nil), blob...)
	s.present = true
	return nil
}

func (b *Backend) DeleteSpace(index uint32) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := b.spaces[index]
	if s != nil && s.erring {
		return errInjected
	}
	if s != nil {
		s.present = false
		s.blob = nil
	}
	return nil
}

func (b *Backend) Close() error {
	return nil
}
