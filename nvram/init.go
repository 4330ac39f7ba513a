package nvram

import (
	"errors"

	"github.com/fingon/go-nvramd/nlog"
	"github.com/fingon/go-nvramd/persistence"
)

// ensureInitialized runs initialize() at most once per successful
// completion; a failed attempt leaves the engine "uninitialized" so the
// next request retries the whole procedure.
func (e *Engine) ensureInitialized() bool {
	if e.initialized {
		return true
	}
	ok := e.initialize()
	e.initialized = ok
	return ok
}

// initialize is the one-shot recovery pass: load the header, reconcile
// the provisional index against actual space-blob presence, repair any
// half-finished create/delete, and rebuild the SpaceTable.
func (e *Engine) initialize() bool {
	blob, err := e.gateway.LoadHeader()
	if errors.Is(err, persistence.ErrNotFound) {
		e.table.reset()
		e.disableCreate = false
		return true
	}
	if err != nil {
		nlog.Printf2("nvram/initializer", "load_header failed: %v", err)
		return false
	}

	header, decErr := DecodeHeader(blob)
	if decErr != nil {
		nlog.Printf2("nvram/initializer", "decode header failed: %v", decErr)
		return false
	}
	if header.Version > KnownVersion {
		nlog.Printf2("nvram/initializer", "refusing forward version %d > %d", header.Version, KnownVersion)
		return false
	}

	var provisionalInStorage bool
	if header.ProvisionalIndex != nil {
		_, spaceErr := e.gateway.LoadSpace(*header.ProvisionalIndex)
		switch {
		case spaceErr == nil:
			provisionalInStorage = true
		case errors.Is(spaceErr, persistence.ErrNotFound):
			provisionalInStorage = false
		default:
			nlog.Printf2("nvram/initializer", "load_space(provisional=%d) failed: %v; retaining conservatively", *header.ProvisionalIndex, spaceErr)
			provisionalInStorage = true
		}
	}

	if len(header.AllocatedIndices) > MaxSpaces {
		nlog.Printf2("nvram/initializer", "header names %d indices, exceeds MaxSpaces", len(header.AllocatedIndices))
		return false
	}

	e.table.reset()
	provisionalInAllocated := false
	for _, idx := range header.AllocatedIndices {
		isProvisional := header.ProvisionalIndex != nil && idx == *header.ProvisionalIndex
		if isProvisional {
			provisionalInAllocated = true
			if !provisionalInStorage {
				// The create never completed; pretend it never existed.
				continue
			}
		}
		e.table.append(idx)
	}

	if header.ProvisionalIndex != nil && !provisionalInAllocated && provisionalInStorage {
		if delErr := e.gateway.DeleteSpace(*header.ProvisionalIndex); delErr != nil {
			nlog.Printf2("nvram/initializer", "delete_space(half-deleted=%d) failed: %v", *header.ProvisionalIndex, delErr)
			return false
		}
	}

	e.disableCreate = header.hasFlag(FlagDisableCreate)

	if header.ProvisionalIndex != nil {
		// Opportunistic cleanup; failure here does not affect correctness,
		// since the invariants already hold without it (see I5).
		e.writeHeader(nil)
	}

	return true
}
