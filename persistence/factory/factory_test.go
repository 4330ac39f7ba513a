package factory

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stvp/assert"

	"github.com/fingon/go-nvramd/nvram"
	"github.com/fingon/go-nvramd/persistence"
)

// exerciseGateway runs the same sequence of operations against gw and
// fails t on any mismatch from the expected outcomes, so every registered
// backend can be driven through one shared script.
func exerciseGateway(t *testing.T, gw persistence.Gateway) {
	_, err := gw.LoadHeader()
	assert.True(t, errors.Is(err, persistence.ErrNotFound))

	assert.Equal(t, gw.StoreHeader([]byte("header-blob")), nil)
	blob, err := gw.LoadHeader()
	assert.Equal(t, err, nil)
	assert.Equal(t, blob, []byte("header-blob"))

	_, err = gw.LoadSpace(7)
	assert.True(t, errors.Is(err, persistence.ErrNotFound))

	assert.Equal(t, gw.StoreSpace(7, []byte("space-blob")), nil)
	blob, err = gw.LoadSpace(7)
	assert.Equal(t, err, nil)
	assert.Equal(t, blob, []byte("space-blob"))

	assert.Equal(t, gw.DeleteSpace(7), nil)
	_, err = gw.LoadSpace(7)
	assert.True(t, errors.Is(err, persistence.ErrNotFound))

	assert.Equal(t, gw.DeleteSpace(7), nil)
}

// TestBackendParity drives every registered backend through the same
// low-level CRUD script, so every persistence.Gateway observes
// identical blob-storage semantics no matter which one a deployment
// picks.
func TestBackendParity(t *testing.T) {
	dir := t.TempDir()
	for _, name := range List() {
		name := name
		t.Run(name, func(t *testing.T) {
			gw, err := NewWithConfig(name, persistence.Config{Directory: filepath.Join(dir, name)})
			assert.Equal(t, err, nil)
			defer gw.Close()
			exerciseGateway(t, gw)
		})
	}
}

func TestUnknownBackend(t *testing.T) {
	_, err := New("nonexistent", t.TempDir())
	assert.NotEqual(t, err, nil)
}

// exerciseEngineScenarios replays the engine-level scenarios that do
// not depend on fault injection (which only persistence/inmemory
// supports) against a fresh nvram.Engine over gw, so a new backend
// registered in backendFactories is automatically held to the same
// nvram.Result outcomes the core's own tests require of inmemory.
func exerciseEngineScenarios(t *testing.T, gw persistence.Gateway) {
	eng := nvram.NewEngine(gw)

	// fresh device
	resp := eng.Dispatch(nvram.Request{Command: nvram.CommandGetSpaceInfo, GetSpaceInfo: &nvram.GetSpaceInfoRequest{Index: 1}})
	assert.Equal(t, resp.Result, nvram.SpaceDoesNotExist)

	// create, inspect, duplicate rejected
	createResp := eng.Dispatch(nvram.Request{
		Command: nvram.CommandCreateSpace,
		CreateSpace: &nvram.CreateSpaceRequest{
			Index:    1,
			Size:     16,
			Controls: nvram.BootWriteLock,
		},
	})
	assert.Equal(t, createResp.Result, nvram.Success)

	resp = eng.Dispatch(nvram.Request{Command: nvram.CommandGetSpaceInfo, GetSpaceInfo: &nvram.GetSpaceInfoRequest{Index: 1}})
	assert.Equal(t, resp.Result, nvram.Success)
	assert.Equal(t, resp.GetSpaceInfo.Size, uint32(16))

	dup := eng.Dispatch(nvram.Request{
		Command:     nvram.CommandCreateSpace,
		CreateSpace: &nvram.CreateSpaceRequest{Index: 1, Size: 16},
	})
	assert.Equal(t, dup.Result, nvram.SpaceAlreadyExists)

	// oversize rejected
	oversize := eng.Dispatch(nvram.Request{
		Command:     nvram.CommandCreateSpace,
		CreateSpace: &nvram.CreateSpaceRequest{Index: 2, Size: nvram.MaxSpaceSize + 1},
	})
	assert.Equal(t, oversize.Result, nvram.InvalidParameter)

	// delete, then confirm it is gone from a freshly rebooted engine
	del := eng.Dispatch(nvram.Request{Command: nvram.CommandDeleteSpace, DeleteSpace: &nvram.DeleteSpaceRequest{Index: 1}})
	assert.Equal(t, del.Result, nvram.Success)

	eng2 := nvram.NewEngine(gw)
	resp = eng2.Dispatch(nvram.Request{Command: nvram.CommandGetSpaceInfo, GetSpaceInfo: &nvram.GetSpaceInfoRequest{Index: 1}})
	assert.Equal(t, resp.Result, nvram.SpaceDoesNotExist)
}

// exerciseHalfDeletedRecovery writes a header naming a provisional
// index whose space blob is absent, and confirms every backend's
// boot-time Initializer reconciles it identically.
func exerciseHalfDeletedRecovery(t *testing.T, gw persistence.Gateway) {
	five := uint32(5)
	h := nvram.NvramHeader{
		Version:          nvram.KnownVersion,
		AllocatedIndices: []uint32{5},
		ProvisionalIndex: &five,
	}
	assert.Equal(t, gw.StoreHeader(nvram.EncodeHeader(h)), nil)

	eng := nvram.NewEngine(gw)
	resp := eng.Dispatch(nvram.Request{Command: nvram.CommandGetSpaceInfo, GetSpaceInfo: &nvram.GetSpaceInfoRequest{Index: 5}})
	assert.Equal(t, resp.Result, nvram.SpaceDoesNotExist)

	info := eng.Dispatch(nvram.Request{Command: nvram.CommandGetInfo}).GetInfo
	assert.Equal(t, len(info.SpaceList), 0)
}

// exerciseTrailingBytesTolerance confirms a header/space blob with
// trailing bytes beyond the defined fields still decodes correctly,
// regardless of which backend stored it.
func exerciseTrailingBytesTolerance(t *testing.T, gw persistence.Gateway) {
	h := nvram.NvramHeader{Version: nvram.KnownVersion, AllocatedIndices: []uint32{9}}
	headerBlob := append(nvram.EncodeHeader(h), []byte("0123456789")...)
	assert.Equal(t, gw.StoreHeader(headerBlob), nil)

	spaceBlob := append(nvram.EncodeSpace(nvram.NvramSpace{Contents: make([]byte, 4)}), []byte("0123456789")...)
	assert.Equal(t, gw.StoreSpace(9, spaceBlob), nil)

	eng := nvram.NewEngine(gw)
	resp := eng.Dispatch(nvram.Request{Command: nvram.CommandGetSpaceInfo, GetSpaceInfo: &nvram.GetSpaceInfoRequest{Index: 9}})
	assert.Equal(t, resp.Result, nvram.Success)
	assert.Equal(t, resp.GetSpaceInfo.Size, uint32(4))
}

// TestEngineScenariosAcrossBackends replays the spec's scenarios that
// need no fault injection (including half-deleted recovery) through a
// real nvram.Engine for every registered backend, not just raw Gateway
// CRUD.
func TestEngineScenariosAcrossBackends(t *testing.T) {
	dir := t.TempDir()
	for _, name := range List() {
		name := name
		t.Run(name, func(t *testing.T) {
			t.Run("basic", func(t *testing.T) {
				gw, err := NewWithConfig(name, persistence.Config{Directory: filepath.Join(dir, name, "basic")})
				assert.Equal(t, err, nil)
				defer gw.Close()
				exerciseEngineScenarios(t, gw)
			})
			t.Run("half_deleted_recovery", func(t *testing.T) {
				gw, err := NewWithConfig(name, persistence.Config{Directory: filepath.Join(dir, name, "half_deleted")})
				assert.Equal(t, err, nil)
				defer gw.Close()
				exerciseHalfDeletedRecovery(t, gw)
			})
			t.Run("trailing_bytes_tolerance", func(t *testing.T) {
				gw, err := NewWithConfig(name, persistence.Config{Directory: filepath.Join(dir, name, "trailing")})
				assert.Equal(t, err, nil)
				defer gw.Close()
				exerciseTrailingBytesTolerance(t, gw)
			})
		})
	}
}
