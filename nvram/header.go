package nvram

import "github.com/fingon/go-nvramd/nlog"

// writeHeader serializes the current in-memory allocated set and flags
// into a fresh NvramHeader carrying provisional as its provisional
// index, and commits it to the persistence layer.
func (e *Engine) writeHeader(provisional *uint32) Result {
	h := NvramHeader{
		Version:          KnownVersion,
		AllocatedIndices: e.table.indices(),
		ProvisionalIndex: provisional,
	}
	if e.disableCreate {
		h.Flags |= FlagDisableCreate
	}
	nlog.Printf2("nvram/header", "writeHeader provisional=%v indices=%v", provisional, h.AllocatedIndices)
	return ResultFromError(e.gateway.StoreHeader(EncodeHeader(h)))
}
