package mmap

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/gorustyt/navmeshmgr/detour"
	"go.uber.org/zap"
)

// Node pool size of the per-instance queries.
const instanceQueryMaxNodes = 1024

type mapData struct {
	navMesh *detour.DtNavMesh
	tiles   map[uint32]detour.DtTileRef       // PackTileID -> tile ref
	queries map[uint32]*detour.DtNavMeshQuery // instance id -> query
}

// destroy removes every tile from the mesh and drops the queries.
// Removal failures are logged; the mesh is discarded either way.
// It returns how many tiles were registered.
func (md *mapData) destroy(log *zap.Logger) int {
	n := len(md.tiles)
	for packed, ref := range md.tiles {
		if _, status := md.navMesh.RemoveTile(ref); status.DtStatusFailed() {
			x, y := UnpackTileID(packed)
			log.Error("could not unload mmtile from navmesh",
				zap.Int32("x", x), zap.Int32("y", y), zap.Error(status))
		}
		delete(md.tiles, packed)
	}
	clear(md.queries)
	md.navMesh = nil
	return n
}

// Manager keeps the navigation meshes of map instances and their tiles.
//
// Map operations expect one owner per map instance and take no locks. The
// loaded tile counter may be read from anywhere. The model store returned by
// Models is safe for concurrent use.
type Manager struct {
	log      *zap.Logger
	dataPath string
	policy   *Policy

	maps        map[uint64]*mapData
	loadedTiles atomic.Int32

	models   *ModelStore
	payloads *payloadPool
}

func NewManager(dataPath string, policy *Policy, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	if policy == nil {
		policy = NewPolicy(true, nil)
	}
	log = log.Named("mmap")
	payloads := &payloadPool{}
	return &Manager{
		log:      log,
		dataPath: dataPath,
		policy:   policy,
		maps:     make(map[uint64]*mapData),
		models:   newModelStore(dataPath, payloads, log),
		payloads: payloads,
	}
}

// Models returns the game object model store.
func (m *Manager) Models() *ModelStore {
	return m.models
}

// LoadMapData creates the navmesh of a map instance from its .mmap parameter
// file. Loading an instance that is already present succeeds.
func (m *Manager) LoadMapData(mapID, instanceID uint32) error {
	key := PackInstanceID(mapID, instanceID)
	if _, ok := m.maps[key]; ok {
		return nil
	}

	path := mapParamsPath(m.dataPath, mapID)
	params, err := readNavMeshParams(path)
	if err != nil {
		// a disabled map is allowed to have no data
		if !errors.Is(err, ErrFileNotFound) || m.policy.IsPathfindingEnabled(mapID, nil) {
			m.log.Error("could not open mmap file", zap.String("path", path), zap.Error(err))
		}
		return err
	}

	mesh, status := detour.NewDtNavMeshWithParams(params)
	if status.DtStatusFailed() {
		m.log.Error("failed to initialize navmesh",
			zap.Uint32("map", mapID), zap.Uint32("instance", instanceID), zap.Error(status))
		return fmt.Errorf("%w: map %03d: %v", ErrLibraryInit, mapID, status)
	}

	m.log.Debug("loaded mmap", zap.Uint32("map", mapID), zap.Uint32("instance", instanceID),
		zap.Int32("max_tiles", params.MaxTiles))
	m.maps[key] = &mapData{
		navMesh: mesh,
		tiles:   make(map[uint32]detour.DtTileRef),
		queries: make(map[uint32]*detour.DtNavMeshQuery),
	}
	return nil
}

// LoadMap adds tile (x, y) of a map instance, loading the map data first if
// needed. number selects an alternative tile file when not zero.
func (m *Manager) LoadMap(mapID, instanceID uint32, x, y int32, number uint32) error {
	if err := m.LoadMapData(mapID, instanceID); err != nil {
		return err
	}
	md := m.maps[PackInstanceID(mapID, instanceID)]

	packed := PackTileID(x, y)
	if _, ok := md.tiles[packed]; ok {
		m.log.Error("asked to load already loaded navmesh tile",
			zap.Uint32("map", mapID), zap.Int32("x", x), zap.Int32("y", y))
		return fmt.Errorf("%w: tile %03d[%02d,%02d]", ErrAlreadyLoaded, mapID, x, y)
	}

	path := mmapsPath(m.dataPath, tileFileName(mapID, x, y, number))
	header, payload, err := readTileFile(path, m.payloads)
	if err != nil {
		if errors.Is(err, ErrFileNotFound) {
			// most grids have no tile file
			m.log.Debug("could not open mmtile file", zap.String("path", path))
		} else {
			m.log.Error("bad mmtile file", zap.String("path", path), zap.Error(err))
		}
		return err
	}

	res := insertTile(md.navMesh, payload)
	if res.buffer == bufferReturned {
		m.payloads.put(payload)
	}
	if res.status.DtStatusFailed() {
		m.log.Error("could not load mmtile into navmesh", zap.String("path", path), zap.Error(res.status))
		return fmt.Errorf("%w: %s: %v", ErrTileRejected, path, res.status)
	}

	md.tiles[packed] = res.ref
	m.loadedTiles.Add(1)
	m.log.Debug("loaded mmtile", zap.Uint32("map", mapID), zap.Uint32("instance", instanceID),
		zap.Int32("x", x), zap.Int32("y", y), zap.Bool("liquids", header.UsesLiquids))
	return nil
}

// UnloadMap removes tile (x, y) of a map instance. A navmesh that refuses to
// release a tile it handed out is corrupt, and the process is stopped.
func (m *Manager) UnloadMap(mapID, instanceID uint32, x, y int32) error {
	md, ok := m.maps[PackInstanceID(mapID, instanceID)]
	if !ok {
		m.log.Debug("asked to unload not loaded navmesh map",
			zap.Uint32("map", mapID), zap.Uint32("instance", instanceID))
		return fmt.Errorf("%w: map %03d instance %d", ErrNotLoaded, mapID, instanceID)
	}

	packed := PackTileID(x, y)
	ref, ok := md.tiles[packed]
	if !ok {
		m.log.Debug("asked to unload not loaded navmesh tile",
			zap.Uint32("map", mapID), zap.Int32("x", x), zap.Int32("y", y))
		return fmt.Errorf("%w: tile %03d[%02d,%02d]", ErrNotLoaded, mapID, x, y)
	}

	if _, status := md.navMesh.RemoveTile(ref); status.DtStatusFailed() {
		m.log.Fatal("could not unload mmtile from navmesh",
			zap.Uint32("map", mapID), zap.Uint32("instance", instanceID),
			zap.Int32("x", x), zap.Int32("y", y), zap.Error(status))
		return status
	}

	delete(md.tiles, packed)
	m.loadedTiles.Add(-1)
	m.log.Debug("unloaded mmtile", zap.Uint32("map", mapID), zap.Uint32("instance", instanceID),
		zap.Int32("x", x), zap.Int32("y", y))
	return nil
}

// ChangeTile swaps the tile at (x, y) for the tile file selected by number.
func (m *Manager) ChangeTile(mapID, instanceID uint32, x, y int32, number uint32) error {
	if m.IsTileLoaded(mapID, instanceID, x, y) {
		if err := m.UnloadMap(mapID, instanceID, x, y); err != nil {
			return err
		}
	}
	return m.LoadMap(mapID, instanceID, x, y, number)
}

// UnloadMapAll destroys every instance of mapID with all of its tiles and
// queries. It reports whether anything was unloaded.
func (m *Manager) UnloadMapAll(mapID uint32) bool {
	unloaded := false
	for key, md := range m.maps {
		id, instanceID := UnpackInstanceID(key)
		if id != mapID {
			continue
		}
		n := md.destroy(m.log.With(zap.Uint32("map", mapID), zap.Uint32("instance", instanceID)))
		m.loadedTiles.Add(-int32(n))
		delete(m.maps, key)
		unloaded = true
		m.log.Debug("unloaded mmap", zap.Uint32("map", mapID), zap.Uint32("instance", instanceID),
			zap.Int("tiles", n))
	}
	if !unloaded {
		m.log.Debug("asked to unload not loaded navmesh map", zap.Uint32("map", mapID))
	}
	return unloaded
}

// UnloadMapInstance drops the cached query of an instance. Having no query
// cached is not an error.
func (m *Manager) UnloadMapInstance(mapID, instanceID uint32) error {
	md, ok := m.maps[PackInstanceID(mapID, instanceID)]
	if !ok {
		m.log.Debug("asked to unload not loaded navmesh map",
			zap.Uint32("map", mapID), zap.Uint32("instance", instanceID))
		return fmt.Errorf("%w: map %03d instance %d", ErrNotLoaded, mapID, instanceID)
	}
	if _, ok := md.queries[instanceID]; !ok {
		return nil
	}
	delete(md.queries, instanceID)
	m.log.Debug("unloaded navmesh query", zap.Uint32("map", mapID), zap.Uint32("instance", instanceID))
	return nil
}

// GetNavMeshQuery returns the query of a map instance, creating it on first
// use. It returns nil when the map is not loaded or the query cannot be built.
func (m *Manager) GetNavMeshQuery(mapID, instanceID uint32) *detour.DtNavMeshQuery {
	md, ok := m.maps[PackInstanceID(mapID, instanceID)]
	if !ok {
		return nil
	}
	if q, ok := md.queries[instanceID]; ok {
		return q
	}

	q, status := detour.NewDtNavMeshQuery(md.navMesh, instanceQueryMaxNodes)
	if status.DtStatusFailed() {
		m.log.Error("failed to initialize navmesh query",
			zap.Uint32("map", mapID), zap.Uint32("instance", instanceID), zap.Error(status))
		return nil
	}
	md.queries[instanceID] = q
	m.log.Debug("created navmesh query", zap.Uint32("map", mapID), zap.Uint32("instance", instanceID))
	return q
}

func (m *Manager) GetNavMesh(mapID, instanceID uint32) detour.IDtNavMesh {
	md, ok := m.maps[PackInstanceID(mapID, instanceID)]
	if !ok {
		return nil
	}
	return md.navMesh
}

func (m *Manager) IsTileLoaded(mapID, instanceID uint32, x, y int32) bool {
	md, ok := m.maps[PackInstanceID(mapID, instanceID)]
	if !ok {
		return false
	}
	_, ok = md.tiles[PackTileID(x, y)]
	return ok
}

// LoadedTilesCount is safe to call from any goroutine.
func (m *Manager) LoadedTilesCount() int {
	return int(m.loadedTiles.Load())
}

func (m *Manager) LoadedMapsCount() int {
	return len(m.maps)
}

func (m *Manager) IsPathfindingEnabled(mapID uint32, unit Unit) bool {
	return m.policy.IsPathfindingEnabled(mapID, unit)
}

// Close releases every map and model. Callers should have unloaded their
// tiles before; anything still resident is reported and released anyway.
func (m *Manager) Close() {
	if n := m.loadedTiles.Load(); n > 0 {
		m.log.Warn("closing with tiles still loaded", zap.Int32("tiles", n), zap.Int("maps", len(m.maps)))
	}
	for key, md := range m.maps {
		mapID, instanceID := UnpackInstanceID(key)
		n := md.destroy(m.log.With(zap.Uint32("map", mapID), zap.Uint32("instance", instanceID)))
		m.loadedTiles.Add(-int32(n))
		delete(m.maps, key)
	}
	m.models.Close()
}
