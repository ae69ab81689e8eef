package mmap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gorustyt/navmeshmgr/common/rw"
	"github.com/gorustyt/navmeshmgr/detour"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func testParams() *detour.NavMeshParams {
	return &detour.NavMeshParams{
		Orig:       mgl32.Vec3{-533.33, 0, -533.33},
		TileWidth:  533.33,
		TileHeight: 533.33,
		MaxTiles:   64,
		MaxPolys:   128,
	}
}

func tilePayload(x, y, polys int32) []byte {
	header := &detour.DtMeshHeader{
		Magic:     detour.DT_NAVMESH_MAGIC,
		Version:   detour.DT_NAVMESH_VERSION,
		X:         x,
		Y:         y,
		PolyCount: polys,
		Bmin:      mgl32.Vec3{0, -10, 0},
		Bmax:      mgl32.Vec3{533.33, 40, 533.33},
	}
	return detour.EncodeNavMeshData(header, make([]byte, 64))
}

func validHeader(size int) MmapTileHeader {
	return MmapTileHeader{
		MmapMagic:   MMAP_MAGIC,
		DtVersion:   detour.DT_NAVMESH_VERSION,
		MmapVersion: MMAP_VERSION,
		Size:        uint32(size),
	}
}

func writeDataFile(t *testing.T, dir, name string, data []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "mmaps"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mmaps", name), data, 0o644))
}

func writeMapParams(t *testing.T, dir string, mapID uint32, params *detour.NavMeshParams) {
	t.Helper()
	w := rw.NewNavMeshDataBinWriter()
	params.ToBin(w)
	writeDataFile(t, dir, filepath.Base(mapParamsPath(dir, mapID)), w.GetWriteBytes())
}

func writeTileFile(t *testing.T, dir, name string, header MmapTileHeader, payload []byte) {
	t.Helper()
	w := rw.NewNavMeshDataBinWriter()
	header.ToBin(w)
	w.WriteBytes(payload)
	writeDataFile(t, dir, name, w.GetWriteBytes())
}

func writeMapTile(t *testing.T, dir string, mapID uint32, x, y int32, number uint32) {
	t.Helper()
	payload := tilePayload(x, y, 16)
	writeTileFile(t, dir, tileFileName(mapID, x, y, number), validHeader(len(payload)), payload)
}

func writeModel(t *testing.T, dir string, displayID uint32) {
	t.Helper()
	payload := tilePayload(0, 0, 8)
	writeTileFile(t, dir, modelFileName(displayID), validHeader(len(payload)), payload)
}

// observedLogger records everything from debug up and panics on Fatal
// instead of exiting.
func observedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core, zap.WithFatalHook(zapcore.WriteThenPanic)), logs
}

func newTestManager(t *testing.T, policy *Policy) (*Manager, *observer.ObservedLogs, string) {
	t.Helper()
	dir := t.TempDir()
	log, logs := observedLogger()
	return NewManager(dir, policy, log), logs, dir
}
