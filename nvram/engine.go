// Package nvram implements the access-controlled NVRAM space-management
// state machine: SpaceTable, HeaderManager, SpaceManager, and the
// Initializer that reconciles them against persistent storage at boot.
package nvram

import (
	"sync"

	"github.com/fingon/go-nvramd/persistence"
)

// Engine hosts the whole state machine against one persistence.Gateway.
// It is not reentrant: Dispatch takes an internal mutex for its duration,
// so the engine itself enforces the single-request-at-a-time scheduling
// model the specification assumes of its caller.
type Engine struct {
	mu            sync.Mutex
	gateway       persistence.Gateway
	table         table
	disableCreate bool
	initialized   bool
}

// NewEngine returns an Engine over gateway. Initialization is lazy: it
// happens on the first Dispatch call, not here.
func NewEngine(gateway persistence.Gateway) *Engine {
	return &Engine{gateway: gateway}
}

// Dispatch routes req to the matching operation and returns its result,
// running initialize() first if this is the first call (or the previous
// attempt failed).
func (e *Engine) Dispatch(req Request) Response {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.ensureInitialized() {
		return Response{Result: InternalError}
	}

	switch req.Command {
	case CommandGetInfo:
		return e.getInfo()

	case CommandCreateSpace:
		return Response{Result: e.createSpace(*req.CreateSpace)}

	case CommandGetSpaceInfo:
		info, res := e.getSpaceInfo(req.GetSpaceInfo.Index)
		return Response{Result: res, GetSpaceInfo: info}

	case CommandDeleteSpace:
		return Response{Result: e.deleteSpace(*req.DeleteSpace)}

	case CommandDisableCreate:
		return Response{Result: e.disableCreateOp()}

	case CommandWriteSpace:
		return Response{Result: e.writeSpace(*req.WriteSpace)}

	case CommandReadSpace:
		contents, res := e.readSpace(*req.ReadSpace)
		var rr *ReadSpaceResponse
		if res == Success {
			rr = &ReadSpaceResponse{Contents: contents}
		}
		return Response{Result: res, ReadSpace: rr}

	case CommandLockSpaceWrite:
		return Response{Result: e.lockSpaceWrite(*req.LockSpaceWrite)}

	case CommandLockSpaceRead:
		return Response{Result: e.lockSpaceRead(*req.LockSpaceRead)}

	default:
		return Response{Result: InvalidParameter}
	}
}
