package nvram

import "github.com/minio/sha256-simd"

// loadSpaceRecord resolves index against the SpaceTable and loads its
// persisted record, mapping persistence outcomes per §4.6: an index the
// table doesn't know about is SpaceDoesNotExist; any persistence failure
// for an index the table does know about is an invariant violation,
// reported as InternalError.
func (e *Engine) loadSpaceRecord(index uint32) (NvramSpace, *SpaceListEntry, Result) {
	pos := e.table.find(index)
	if pos < 0 {
		return NvramSpace{}, nil, SpaceDoesNotExist
	}
	entry := &e.table.entries[pos]
	blob, err := e.gateway.LoadSpace(index)
	if err != nil {
		return NvramSpace{}, nil, ResultFromError(err)
	}
	space, decErr := DecodeSpace(blob)
	if decErr != nil {
		return NvramSpace{}, nil, ResultFromError(decErr)
	}
	return space, entry, Success
}

func (e *Engine) getInfo() Response {
	n := e.table.count
	return Response{
		Result: Success,
		GetInfo: &GetInfoResponse{
			TotalSize:     uint64(MaxSpaces) * uint64(MaxSpaceSize),
			AvailableSize: uint64(MaxSpaces-n) * uint64(MaxSpaceSize),
			MaxSpaces:     MaxSpaces,
			SpaceList:     e.table.indices(),
		},
	}
}

func (e *Engine) createSpace(req CreateSpaceRequest) Result {
	if e.disableCreate {
		return OperationDisabled
	}
	if e.table.find(req.Index) >= 0 {
		return SpaceAlreadyExists
	}
	if e.table.count+1 > MaxSpaces {
		return InvalidParameter
	}
	if req.Size > MaxSpaceSize {
		return InvalidParameter
	}
	if len(req.AuthorizationValue) > MaxAuth {
		return InvalidParameter
	}
	if req.Controls & ^uint32(SupportedControls) != 0 {
		return InvalidParameter
	}
	if req.Controls&PersistentWriteLock != 0 && req.Controls&BootWriteLock != 0 {
		return InvalidParameter
	}

	if !e.table.append(req.Index) {
		return InvalidParameter
	}
	rollback := func() {
		if pos := e.table.find(req.Index); pos >= 0 {
			e.table.removeAt(pos)
		}
	}

	space := NvramSpace{
		Controls: req.Controls,
		Contents: make([]byte, req.Size),
	}
	if req.Controls&(WriteAuthorization|ReadAuthorization) != 0 {
		space.AuthorizationValue = append([]byte(nil), req.AuthorizationValue...)
	}

	index := req.Index
	if res := e.writeHeader(&index); res != Success {
		rollback()
		return res
	}
	if err := e.gateway.StoreSpace(req.Index, EncodeSpace(space)); err != nil {
		// The header still records the provisional index; the next boot's
		// Initializer will repair this since the space blob never landed.
		rollback()
		return ResultFromError(err)
	}
	return Success
}

func (e *Engine) getSpaceInfo(index uint32) (*GetSpaceInfoResponse, Result) {
	space, entry, res := e.loadSpaceRecord(index)
	if res != Success {
		return nil, res
	}
	readLocked := false
	if space.Controls&BootReadLock != 0 {
		readLocked = entry.BootReadLocked
	}
	writeLocked := false
	switch {
	case space.Controls&PersistentWriteLock != 0:
		writeLocked = space.writeLocked()
	case space.Controls&BootWriteLock != 0:
		writeLocked = entry.BootWriteLocked
	}
	return &GetSpaceInfoResponse{
		Size:        uint32(len(space.Contents)),
		Controls:    controlBits(space.Controls),
		ReadLocked:  readLocked,
		WriteLocked: writeLocked,
	}, Success
}

func (e *Engine) deleteSpace(req DeleteSpaceRequest) Result {
	space, _, res := e.loadSpaceRecord(req.Index)
	if res != Success {
		return res
	}
	if res := checkDeleteAuthorization(space, req.AuthorizationValue); res != Success {
		return res
	}

	index := req.Index
	if res := e.writeHeader(&index); res != Success {
		return res
	}
	if err := e.gateway.DeleteSpace(req.Index); err != nil {
		return ResultFromError(err)
	}
	if pos := e.table.find(req.Index); pos >= 0 {
		e.table.removeAt(pos)
	}
	if res := e.writeHeader(nil); res != Success {
		// Initializer will still recover correctly at the next boot: the
		// space blob is gone, the header still names it provisional.
		return res
	}
	return Success
}

func (e *Engine) disableCreateOp() Result {
	e.disableCreate = true
	return e.writeHeader(nil)
}

func (e *Engine) writeSpace(req WriteSpaceRequest) Result {
	space, entry, res := e.loadSpaceRecord(req.Index)
	if res != Success {
		return res
	}
	if res := checkWriteAccess(space, entry, req.AuthorizationValue); res != Success {
		return res
	}

	size := len(space.Contents)
	var newContents []byte
	if space.Controls&WriteExtend != 0 {
		digest := sha256.Sum256(append(append([]byte(nil), space.Contents...), req.Buffer...))
		newContents = make([]byte, size)
		copy(newContents, digest[:])
	} else {
		if len(req.Buffer) > size {
			return InvalidParameter
		}
		newContents = make([]byte, size)
		copy(newContents, req.Buffer)
	}
	space.Contents = newContents
	if err := e.gateway.StoreSpace(req.Index, EncodeSpace(space)); err != nil {
		return ResultFromError(err)
	}
	return Success
}

func (e *Engine) readSpace(req ReadSpaceRequest) ([]byte, Result) {
	space, entry, res := e.loadSpaceRecord(req.Index)
	if res != Success {
		return nil, res
	}
	if res := checkReadAccess(space, entry, req.AuthorizationValue); res != Success {
		return nil, res
	}
	return space.Contents, Success
}

func (e *Engine) lockSpaceWrite(req LockSpaceWriteRequest) Result {
	space, entry, res := e.loadSpaceRecord(req.Index)
	if res != Success {
		return res
	}
	if res := checkWriteAccess(space, entry, req.AuthorizationValue); res != Success {
		return res
	}
	switch {
	case space.Controls&PersistentWriteLock != 0:
		space.setWriteLocked()
		if err := e.gateway.StoreSpace(req.Index, EncodeSpace(space)); err != nil {
			return ResultFromError(err)
		}
		return Success
	case space.Controls&BootWriteLock != 0:
		entry.BootWriteLocked = true
		return Success
	default:
		return InvalidParameter
	}
}

func (e *Engine) lockSpaceRead(req LockSpaceReadRequest) Result {
	space, entry, res := e.loadSpaceRecord(req.Index)
	if res != Success {
		return res
	}
	if res := checkReadAccess(space, entry, req.AuthorizationValue); res != Success {
		return res
	}
	if space.Controls&BootReadLock == 0 {
		return InvalidParameter
	}
	entry.BootReadLocked = true
	return Success
}
