package mmap

import (
	"testing"

	"github.com/gorustyt/navmeshmgr/detour"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestLoadMapDataMissingFile(t *testing.T) {
	disabled := NewDisabledMaps()
	require.NoError(t, disabled.Init("30"))
	m, logs, _ := newTestManager(t, NewPolicy(true, disabled))

	// disabled map: no data is expected, so nothing is logged as an error
	err := m.LoadMapData(30, 0)
	require.ErrorIs(t, err, ErrFileNotFound)
	assert.Zero(t, logs.FilterLevelExact(zapcore.ErrorLevel).Len())

	err = m.LoadMapData(1, 0)
	require.ErrorIs(t, err, ErrFileNotFound)
	assert.Equal(t, 1, logs.FilterLevelExact(zapcore.ErrorLevel).FilterMessage("could not open mmap file").Len())
	assert.Zero(t, m.LoadedMapsCount())
}

func TestLoadMapDataTwice(t *testing.T) {
	m, _, dir := newTestManager(t, nil)
	writeMapParams(t, dir, 1, testParams())

	require.NoError(t, m.LoadMapData(1, 0))
	mesh := m.GetNavMesh(1, 0)
	require.NotNil(t, mesh)
	assert.Equal(t, int32(64), mesh.GetMaxTiles())

	require.NoError(t, m.LoadMapData(1, 0))
	assert.Same(t, mesh, m.GetNavMesh(1, 0))
	assert.Equal(t, 1, m.LoadedMapsCount())

	// another instance of the same map gets its own mesh
	require.NoError(t, m.LoadMapData(1, 7))
	assert.NotSame(t, mesh, m.GetNavMesh(1, 7))
	assert.Equal(t, 2, m.LoadedMapsCount())
}

func TestLoadMapDataRejectedParams(t *testing.T) {
	m, _, dir := newTestManager(t, nil)
	params := testParams()
	params.MaxTiles = 0
	writeMapParams(t, dir, 1, params)

	require.ErrorIs(t, m.LoadMapData(1, 0), ErrLibraryInit)
	assert.Nil(t, m.GetNavMesh(1, 0))
}

func TestLoadMapDataTruncatedParams(t *testing.T) {
	m, _, dir := newTestManager(t, nil)
	writeDataFile(t, dir, "001.mmap", []byte{1, 2, 3})

	require.ErrorIs(t, m.LoadMapData(1, 0), ErrTruncatedFile)
	assert.Zero(t, m.LoadedMapsCount())
}

func TestLoadMap(t *testing.T) {
	m, _, dir := newTestManager(t, nil)
	writeMapParams(t, dir, 1, testParams())
	writeMapTile(t, dir, 1, 32, 17, 0)

	require.NoError(t, m.LoadMap(1, 0, 32, 17, 0))
	assert.True(t, m.IsTileLoaded(1, 0, 32, 17))
	assert.False(t, m.IsTileLoaded(1, 1, 32, 17))
	assert.Equal(t, 1, m.LoadedTilesCount())
	assert.Equal(t, int32(1), m.GetNavMesh(1, 0).TileCount())
	assert.NotZero(t, m.GetNavMesh(1, 0).GetTileRefAt(32, 17, 0))
}

func TestLoadMapTwiceIsAlreadyLoaded(t *testing.T) {
	m, _, dir := newTestManager(t, nil)
	writeMapParams(t, dir, 1, testParams())
	writeMapTile(t, dir, 1, 32, 17, 0)

	require.NoError(t, m.LoadMap(1, 0, 32, 17, 0))
	require.ErrorIs(t, m.LoadMap(1, 0, 32, 17, 0), ErrAlreadyLoaded)
	assert.Equal(t, 1, m.LoadedTilesCount())
	assert.Equal(t, int32(1), m.GetNavMesh(1, 0).TileCount())
}

func TestLoadMapWithoutMapData(t *testing.T) {
	m, _, dir := newTestManager(t, nil)
	writeMapTile(t, dir, 1, 32, 17, 0)

	require.ErrorIs(t, m.LoadMap(1, 0, 32, 17, 0), ErrFileNotFound)
	assert.Zero(t, m.LoadedTilesCount())
}

func TestLoadMapMissingTileIsQuiet(t *testing.T) {
	m, logs, dir := newTestManager(t, nil)
	writeMapParams(t, dir, 1, testParams())

	require.ErrorIs(t, m.LoadMap(1, 0, 10, 10, 0), ErrFileNotFound)
	assert.Zero(t, logs.FilterLevelExact(zapcore.ErrorLevel).Len())
	assert.Equal(t, 1, logs.FilterMessage("could not open mmtile file").Len())
	assert.False(t, m.IsTileLoaded(1, 0, 10, 10))
}

func TestLoadMapVariant(t *testing.T) {
	m, _, dir := newTestManager(t, nil)
	writeMapParams(t, dir, 1, testParams())
	writeMapTile(t, dir, 1, 32, 17, 2)

	require.ErrorIs(t, m.LoadMap(1, 0, 32, 17, 0), ErrFileNotFound)
	require.NoError(t, m.LoadMap(1, 0, 32, 17, 2))
	assert.True(t, m.IsTileLoaded(1, 0, 32, 17))
}

func TestLoadMapBadHeaders(t *testing.T) {
	payload := tilePayload(32, 17, 16)
	badMagic := validHeader(len(payload))
	badMagic.MmapMagic = 0x4d4d4151
	badVersion := validHeader(len(payload))
	badVersion.MmapVersion = MMAP_VERSION + 1
	tooLong := validHeader(len(payload) + 10)

	tests := []struct {
		name    string
		header  MmapTileHeader
		payload []byte
		want    error
	}{
		{"bad magic", badMagic, payload, ErrBadMagic},
		{"version mismatch", badVersion, payload, ErrVersionMismatch},
		{"short payload", tooLong, payload, ErrTruncatedFile},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, logs, dir := newTestManager(t, nil)
			writeMapParams(t, dir, 1, testParams())
			writeTileFile(t, dir, tileFileName(1, 32, 17, 0), tt.header, tt.payload)

			require.ErrorIs(t, m.LoadMap(1, 0, 32, 17, 0), tt.want)
			assert.False(t, m.IsTileLoaded(1, 0, 32, 17))
			assert.Zero(t, m.LoadedTilesCount())
			assert.Zero(t, m.GetNavMesh(1, 0).TileCount())
			assert.Equal(t, 1, logs.FilterLevelExact(zapcore.ErrorLevel).Len())
		})
	}
}

func TestLoadMapShortHeader(t *testing.T) {
	m, _, dir := newTestManager(t, nil)
	writeMapParams(t, dir, 1, testParams())
	writeDataFile(t, dir, tileFileName(1, 32, 17, 0), []byte("MMAP"))

	require.ErrorIs(t, m.LoadMap(1, 0, 32, 17, 0), ErrTruncatedFile)
}

func TestLoadMapTileRejected(t *testing.T) {
	m, _, dir := newTestManager(t, nil)
	writeMapParams(t, dir, 1, testParams())

	// more polygons than the mesh allows per tile
	payload := tilePayload(32, 17, 1000)
	writeTileFile(t, dir, tileFileName(1, 32, 17, 0), validHeader(len(payload)), payload)
	// payload is not navmesh data at all
	junk := make([]byte, detour.DT_MESH_HEADER_SIZE)
	writeTileFile(t, dir, tileFileName(1, 33, 17, 0), validHeader(len(junk)), junk)

	require.ErrorIs(t, m.LoadMap(1, 0, 32, 17, 0), ErrTileRejected)
	require.ErrorIs(t, m.LoadMap(1, 0, 33, 17, 0), ErrTileRejected)
	assert.Zero(t, m.LoadedTilesCount())
	assert.False(t, m.IsTileLoaded(1, 0, 32, 17))
}

func TestUnloadMapNotLoaded(t *testing.T) {
	m, _, dir := newTestManager(t, nil)
	require.ErrorIs(t, m.UnloadMap(1, 0, 32, 17), ErrNotLoaded)

	writeMapParams(t, dir, 1, testParams())
	require.NoError(t, m.LoadMapData(1, 0))
	require.ErrorIs(t, m.UnloadMap(1, 0, 32, 17), ErrNotLoaded)
	assert.Equal(t, 1, m.LoadedMapsCount())
	assert.Zero(t, m.LoadedTilesCount())
}

func TestUnloadMap(t *testing.T) {
	m, _, dir := newTestManager(t, nil)
	writeMapParams(t, dir, 1, testParams())
	writeMapTile(t, dir, 1, 32, 17, 0)
	writeMapTile(t, dir, 1, 32, 18, 0)

	require.NoError(t, m.LoadMap(1, 0, 32, 17, 0))
	require.NoError(t, m.LoadMap(1, 0, 32, 18, 0))
	require.Equal(t, 2, m.LoadedTilesCount())

	require.NoError(t, m.UnloadMap(1, 0, 32, 17))
	assert.False(t, m.IsTileLoaded(1, 0, 32, 17))
	assert.True(t, m.IsTileLoaded(1, 0, 32, 18))
	assert.Equal(t, 1, m.LoadedTilesCount())
	assert.Zero(t, m.GetNavMesh(1, 0).GetTileRefAt(32, 17, 0))

	require.ErrorIs(t, m.UnloadMap(1, 0, 32, 17), ErrNotLoaded)
	assert.Equal(t, 1, m.LoadedTilesCount())

	// the freed slot can be reused
	require.NoError(t, m.LoadMap(1, 0, 32, 17, 0))
	assert.Equal(t, 2, m.LoadedTilesCount())
}

func TestUnloadMapRemovalFailureIsFatal(t *testing.T) {
	m, logs, dir := newTestManager(t, nil)
	writeMapParams(t, dir, 1, testParams())
	require.NoError(t, m.LoadMapData(1, 0))

	// a ref the mesh never handed out
	m.maps[PackInstanceID(1, 0)].tiles[PackTileID(5, 5)] = ^detour.DtTileRef(0)
	m.loadedTiles.Add(1)

	assert.Panics(t, func() { _ = m.UnloadMap(1, 0, 5, 5) })
	assert.Equal(t, 1, logs.FilterLevelExact(zapcore.FatalLevel).Len())
	assert.True(t, m.IsTileLoaded(1, 0, 5, 5))
	assert.Equal(t, 1, m.LoadedTilesCount())
}

func TestChangeTile(t *testing.T) {
	m, _, dir := newTestManager(t, nil)
	writeMapParams(t, dir, 1, testParams())
	writeMapTile(t, dir, 1, 32, 17, 0)
	writeMapTile(t, dir, 1, 32, 17, 1)

	// nothing to replace yet
	require.NoError(t, m.ChangeTile(1, 0, 32, 17, 0))
	first := m.GetNavMesh(1, 0).GetTileRefAt(32, 17, 0)
	require.NotZero(t, first)

	require.NoError(t, m.ChangeTile(1, 0, 32, 17, 1))
	second := m.GetNavMesh(1, 0).GetTileRefAt(32, 17, 0)
	assert.NotZero(t, second)
	assert.NotEqual(t, first, second)
	assert.Equal(t, 1, m.LoadedTilesCount())

	require.ErrorIs(t, m.ChangeTile(1, 0, 32, 17, 5), ErrFileNotFound)
	assert.False(t, m.IsTileLoaded(1, 0, 32, 17))
	assert.Zero(t, m.LoadedTilesCount())
}

func TestUnloadMapAll(t *testing.T) {
	m, _, dir := newTestManager(t, nil)
	writeMapParams(t, dir, 1, testParams())
	writeMapParams(t, dir, 2, testParams())
	for _, xy := range [][2]int32{{32, 17}, {32, 18}, {33, 17}} {
		writeMapTile(t, dir, 1, xy[0], xy[1], 0)
		writeMapTile(t, dir, 2, xy[0], xy[1], 0)
	}

	for _, xy := range [][2]int32{{32, 17}, {32, 18}, {33, 17}} {
		require.NoError(t, m.LoadMap(1, 0, xy[0], xy[1], 0))
	}
	require.NoError(t, m.LoadMap(1, 4, 32, 17, 0))
	require.NoError(t, m.LoadMap(2, 0, 32, 17, 0))
	require.NoError(t, m.LoadMap(2, 0, 33, 17, 0))
	require.NotNil(t, m.GetNavMeshQuery(1, 0))
	require.Equal(t, 6, m.LoadedTilesCount())

	assert.True(t, m.UnloadMapAll(1))
	assert.Equal(t, 2, m.LoadedTilesCount())
	assert.Nil(t, m.GetNavMesh(1, 0))
	assert.Nil(t, m.GetNavMesh(1, 4))
	assert.Nil(t, m.GetNavMeshQuery(1, 0))
	assert.False(t, m.IsTileLoaded(1, 0, 32, 17))
	assert.True(t, m.IsTileLoaded(2, 0, 33, 17))
	assert.Equal(t, 1, m.LoadedMapsCount())

	assert.False(t, m.UnloadMapAll(1))
	assert.False(t, m.UnloadMapAll(9))
	assert.Equal(t, 2, m.LoadedTilesCount())
}

func TestGetNavMeshQuery(t *testing.T) {
	m, _, dir := newTestManager(t, nil)
	assert.Nil(t, m.GetNavMeshQuery(1, 0))

	writeMapParams(t, dir, 1, testParams())
	require.NoError(t, m.LoadMapData(1, 0))

	q := m.GetNavMeshQuery(1, 0)
	require.NotNil(t, q)
	assert.Same(t, q, m.GetNavMeshQuery(1, 0))
	assert.Equal(t, int32(instanceQueryMaxNodes), q.GetNodePool().GetMaxNodes())
	assert.Equal(t, m.GetNavMesh(1, 0), q.GetAttachedNavMesh())
	assert.Equal(t, 1, m.Stats().InstanceQueries)
}

func TestUnloadMapInstance(t *testing.T) {
	m, _, dir := newTestManager(t, nil)
	require.ErrorIs(t, m.UnloadMapInstance(1, 0), ErrNotLoaded)

	writeMapParams(t, dir, 1, testParams())
	require.NoError(t, m.LoadMapData(1, 0))
	require.NoError(t, m.UnloadMapInstance(1, 0))

	q := m.GetNavMeshQuery(1, 0)
	require.NotNil(t, q)
	require.NoError(t, m.UnloadMapInstance(1, 0))
	assert.Zero(t, m.Stats().InstanceQueries)
	assert.NotSame(t, q, m.GetNavMeshQuery(1, 0))
	// the mesh stays
	assert.NotNil(t, m.GetNavMesh(1, 0))
}

func TestCloseReleasesEverything(t *testing.T) {
	m, logs, dir := newTestManager(t, nil)
	writeMapParams(t, dir, 1, testParams())
	writeMapTile(t, dir, 1, 32, 17, 0)
	writeModel(t, dir, 100)

	require.NoError(t, m.LoadMap(1, 0, 32, 17, 0))
	require.NoError(t, m.Models().LoadGameObject(100))

	m.Close()
	assert.Equal(t, 1, logs.FilterLevelExact(zapcore.WarnLevel).FilterMessage("closing with tiles still loaded").Len())
	assert.Equal(t, Stats{}, m.Stats())
	assert.Nil(t, m.GetNavMesh(1, 0))
	assert.Nil(t, m.Models().GetGONavMesh(100))
}

func TestCloseWhenEmptyIsQuiet(t *testing.T) {
	m, logs, _ := newTestManager(t, nil)
	m.Close()
	assert.Zero(t, logs.FilterLevelExact(zapcore.WarnLevel).Len())
}
