// Package factory selects a concrete persistence.Gateway implementation
// by name, mirroring the pluggable-backend-by-name pattern used
// throughout the storage layer this module was adapted from.
package factory

import (
	"fmt"

	"github.com/fingon/go-nvramd/nlog"
	"github.com/fingon/go-nvramd/persistence"
	"github.com/fingon/go-nvramd/persistence/badger"
	"github.com/fingon/go-nvramd/persistence/bolt"
	"github.com/fingon/go-nvramd/persistence/file"
	"github.com/fingon/go-nvramd/persistence/inmemory"
)

type factoryCallback func(persistence.Config) (persistence.Gateway, error)

var backendFactories = map[string]factoryCallback{
	"inmemory": inmemory.NewGateway,
	"bolt":     bolt.New,
	"badger":   badger.New,
	"file":     file.New,
}

// List returns the registered backend names.
func List() []string {
	keys := make([]string, 0, len(backendFactories))
	for k := range backendFactories {
		keys = append(keys, k)
	}
	return keys
}

// New builds the named backend rooted at dir.
func New(name, dir string) (persistence.Gateway, error) {
	return NewWithConfig(name, persistence.Config{Directory: dir})
}

// NewWithConfig builds the named backend with a full Config.
func NewWithConfig(name string, config persistence.Config) (persistence.Gateway, error) {
	nlog.Printf2("persistence/factory", "factory.New %v %v", name, config)
	cb, ok := backendFactories[name]
	if !ok {
		return nil, fmt.Errorf("persistence/factory: unknown backend %q (have %v)", name, List())
	}
	return cb(config)
}
