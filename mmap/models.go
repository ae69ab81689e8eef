package mmap

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gorustyt/navmeshmgr/detour"
	"go.uber.org/zap"
)

// Node pool size of the per-worker model queries. Model meshes are small but
// queried many times per call site.
const modelQueryMaxNodes = 2048

type modelData struct {
	navMesh *detour.DtNavMesh

	mu      sync.Mutex // held only while creating a query
	queries atomic.Pointer[map[WorkerID]*detour.DtNavMeshQuery]
}

func (md *modelData) cachedQuery(worker WorkerID) *detour.DtNavMeshQuery {
	queries := md.queries.Load()
	if queries == nil {
		return nil
	}
	return (*queries)[worker]
}

func (md *modelData) queryCount() int {
	queries := md.queries.Load()
	if queries == nil {
		return 0
	}
	return len(*queries)
}

// ModelStore keeps the single tile meshes of game object models and one
// query per worker and model. Lookups never block once a worker's query exists.
type ModelStore struct {
	log      *zap.Logger
	dataPath string
	payloads *payloadPool

	mu     sync.Mutex // serializes model loads
	models atomic.Pointer[map[uint32]*modelData]
}

func newModelStore(dataPath string, payloads *payloadPool, log *zap.Logger) *ModelStore {
	return &ModelStore{log: log, dataPath: dataPath, payloads: payloads}
}

func (s *ModelStore) lookup(displayID uint32) *modelData {
	models := s.models.Load()
	if models == nil {
		return nil
	}
	return (*models)[displayID]
}

// LoadGameObject builds the navmesh of a model from go%04d.mmtile. Loading a
// model twice succeeds.
func (s *ModelStore) LoadGameObject(displayID uint32) error {
	if s.lookup(displayID) != nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lookup(displayID) != nil {
		return nil
	}

	path := mmapsPath(s.dataPath, modelFileName(displayID))
	_, payload, err := readTileFile(path, s.payloads)
	if err != nil {
		if errors.Is(err, ErrFileNotFound) {
			s.log.Debug("could not open model mmtile file", zap.String("path", path))
		} else {
			s.log.Error("bad model mmtile file", zap.String("path", path), zap.Error(err))
		}
		return err
	}

	mesh, _, status := detour.NewDtNavMesh(payload, detour.DT_TILE_FREE_DATA)
	if status.DtStatusFailed() {
		s.payloads.put(payload)
		s.log.Error("failed to initialize model navmesh", zap.Uint32("display_id", displayID), zap.Error(status))
		return fmt.Errorf("%w: %s: %v", ErrLibraryInit, path, status)
	}

	next := make(map[uint32]*modelData)
	if cur := s.models.Load(); cur != nil {
		for id, md := range *cur {
			next[id] = md
		}
	}
	next[displayID] = &modelData{navMesh: mesh}
	s.models.Store(&next)
	s.log.Debug("loaded model mmtile", zap.Uint32("display_id", displayID))
	return nil
}

// LoadAllGameObjectModels loads every model in ids. Failures are logged and
// skipped. It returns how many of ids are loaded afterwards.
func (s *ModelStore) LoadAllGameObjectModels(ids []uint32) int {
	loaded := 0
	for _, id := range ids {
		if err := s.LoadGameObject(id); err == nil {
			loaded++
		}
	}
	s.log.Info("loaded game object models", zap.Int("loaded", loaded), zap.Int("requested", len(ids)))
	return loaded
}

// GetModelNavMeshQuery returns the query of worker for a model, creating it
// on first use. Each worker gets its own query; a query must not be shared
// between goroutines. It returns nil for a model that is not loaded.
func (s *ModelStore) GetModelNavMeshQuery(displayID uint32, worker WorkerID) *detour.DtNavMeshQuery {
	md := s.lookup(displayID)
	if md == nil {
		return nil
	}
	if q := md.cachedQuery(worker); q != nil {
		return q
	}

	md.mu.Lock()
	defer md.mu.Unlock()
	if q := md.cachedQuery(worker); q != nil {
		return q
	}

	q, status := detour.NewDtNavMeshQuery(md.navMesh, modelQueryMaxNodes)
	if status.DtStatusFailed() {
		s.log.Error("failed to initialize model navmesh query",
			zap.Uint32("display_id", displayID), zap.Stringer("worker", worker), zap.Error(status))
		return nil
	}

	next := make(map[WorkerID]*detour.DtNavMeshQuery)
	if cur := md.queries.Load(); cur != nil {
		for w, cq := range *cur {
			next[w] = cq
		}
	}
	next[worker] = q
	md.queries.Store(&next)
	s.log.Debug("created model navmesh query", zap.Uint32("display_id", displayID), zap.Stringer("worker", worker))
	return q
}

func (s *ModelStore) GetGONavMesh(displayID uint32) detour.IDtNavMesh {
	md := s.lookup(displayID)
	if md == nil {
		return nil
	}
	return md.navMesh
}

func (s *ModelStore) LoadedCount() int {
	models := s.models.Load()
	if models == nil {
		return 0
	}
	return len(*models)
}

// QueryCount is the number of cached queries over all models.
func (s *ModelStore) QueryCount() int {
	models := s.models.Load()
	if models == nil {
		return 0
	}
	n := 0
	for _, md := range *models {
		n += md.queryCount()
	}
	return n
}

// Close drops every model. Queries handed out earlier stay usable until
// their holders let go of them.
func (s *ModelStore) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.models.Store(nil)
}
