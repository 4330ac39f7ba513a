// Package nlog is "maybe log": a thin wrapper of the standard 'log'
// package with two properties useful for tracing a request-driven
// service like nvramd:
//
//   - what to print is chosen at runtime via an env var or flag, and
//     what is not printed costs essentially nothing;
//   - each line is tagged with the calling goroutine id, so
//     interleaved subsystem traces (initializer, persistence backend,
//     transport) stay attributable during a single dispatched request.
//
// Subsystem tags are matched against the pattern once per tag and then
// cached in a sync.Map, so checking an already-resolved tag never
// blocks on the package mutex: only the first call for a given tag, and
// any call made before the pattern is resolved from the flag/env var,
// takes it for that check. A line that is actually printed still takes
// the mutex to compute its indentation and to write it.
package nlog

import (
	"flag"
	"fmt"
	"log"
	"os"
	"regexp"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/fingon/go-nvramd/internal/gid"
)

var logMode = log.Ltime | log.Lmicroseconds
var logger = log.New(os.Stderr, "", logMode)

const (
	StateUninitialized int32 = iota
	StateInitializing
	StateDisabled
	StateEnabled
)

var status int32 = StateUninitialized

var mutex sync.Mutex

var flagPattern *string
var pattern string
var patternRegexp *regexp.Regexp
var tagEnabled sync.Map // string -> bool
var minDepth int
var callers []uintptr

const maxDepth = 100

func init() {
	flagPattern = flag.String("nlog", "", "Enable logging based on the given subsystem-tag regular expression")
	reset()
}

func reset() {
	mutex.Lock()
	defer mutex.Unlock()
	atomic.StoreInt32(&status, StateUninitialized)
	minDepth = maxDepth
	callers = make([]uintptr, maxDepth)
	tagEnabled = sync.Map{}
}

// IsEnabled reports whether any tag is currently being logged.
func IsEnabled() bool {
	st := atomic.LoadInt32(&status)
	return st != StateDisabled
}

// SetLogger overrides the destination logger. The returned func restores
// the previous one.
func SetLogger(l *log.Logger) (undo func()) {
	mutex.Lock()
	defer mutex.Unlock()
	old := logger
	logger = l
	return func() {
		mutex.Lock()
		defer mutex.Unlock()
		logger = old
	}
}

// SetPattern overrides the NLOG pattern by hand. The returned func restores
// the previous one.
func SetPattern(p string) (undo func()) {
	mutex.Lock()
	defer mutex.Unlock()
	old := pattern
	initializeWithPatternLocked(p)
	return func() {
		mutex.Lock()
		defer mutex.Unlock()
		initializeWithPatternLocked(old)
	}
}

// initializeWithPatternLocked must be called with mutex held.
func initializeWithPatternLocked(p string) {
	if p == "" {
		atomic.StoreInt32(&status, StateDisabled)
		pattern = p
		return
	}
	patternRegexp = regexp.MustCompile(p)
	tagEnabled = sync.Map{}
	pattern = p
	atomic.StoreInt32(&status, StateEnabled)
}

func initialize() {
	mutex.Lock()
	defer mutex.Unlock()
	if !atomic.CompareAndSwapInt32(&status, StateUninitialized, StateInitializing) {
		return
	}
	p := os.Getenv("NLOG")
	if *flagPattern != "" {
		p = *flagPattern
	}
	initializeWithPatternLocked(p)
}

// Printf is a drop-in log.Printf replacement, tagged with the caller's
// package directory.
func Printf(format string, args ...interface{}) {
	st := atomic.LoadInt32(&status)
	if st == StateDisabled {
		return
	}
	_, file, _, ok := runtime.Caller(1)
	if !ok {
		return
	}
	Printf2(packageTag(file), format, args...)
}

// packageTag collapses a caller's source path down to its containing
// directory, so every file in one package shares a single cache entry
// instead of one per source file.
func packageTag(file string) string {
	if idx := strings.LastIndexByte(file, '/'); idx >= 0 {
		file = file[:idx]
		if idx2 := strings.LastIndexByte(file, '/'); idx2 >= 0 {
			return file[idx2+1:]
		}
		return file
	}
	return file
}

var dumpGids = true

// tagIsEnabled reports whether tag matches the active pattern,
// resolving and caching the answer on first use. Repeat calls for an
// already-resolved tag never touch mutex.
func tagIsEnabled(tag string) bool {
	if v, ok := tagEnabled.Load(tag); ok {
		return v.(bool)
	}
	mutex.Lock()
	defer mutex.Unlock()
	if v, ok := tagEnabled.Load(tag); ok {
		return v.(bool)
	}
	enabled := patternRegexp.Find([]byte(tag)) != nil
	tagEnabled.Store(tag, enabled)
	return enabled
}

// Printf2 logs format/args under the given subsystem tag (e.g.
// "nvram/initializer", "persistence/bolt"). No runtime.Caller cost.
func Printf2(tag string, format string, args ...interface{}) {
	st := atomic.LoadInt32(&status)
	if st == StateUninitialized {
		initialize()
		st = atomic.LoadInt32(&status)
	}
	if st != StateEnabled {
		return
	}
	if !tagIsEnabled(tag) {
		return
	}

	depth := logDepth()
	if depth > 0 {
		format = fmt.Sprint(strings.Repeat(".", depth), format)
	}
	if dumpGids {
		format = fmt.Sprintf("%8d %s", gid.Get(), format)
	}

	mutex.Lock()
	logger.Printf(format, args...)
	mutex.Unlock()
}

// logDepth tracks the shallowest call stack seen so far as the
// baseline, and returns how much deeper than that baseline the current
// call is, for indentation.
func logDepth() int {
	mutex.Lock()
	defer mutex.Unlock()
	depth := runtime.Callers(1, callers)
	if depth < minDepth {
		minDepth = depth
	}
	return depth - minDepth
}
