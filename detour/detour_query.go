package detour

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/gorustyt/navmeshmgr/common"
)

const (
	DT_QUERY_MAX_NODES  = 65535
	DT_TINY_NODE_POOL   = 64
	DT_TINY_NODE_HASHES = 32
)

// DtNavMeshQuery holds the scratch state for searches against one mesh.
// A query is not safe for concurrent use; give every caller its own.
type DtNavMeshQuery struct {
	m_nav          IDtNavMesh ///< Pointer to navmesh data.
	m_nodePool     *DtNodePool
	m_tinyNodePool *DtNodePool
}

// / Initializes the query object.
// /  @param[in]		nav			The DtNavMesh object to use for all queries.
// /  @param[in]		maxNodes	Maximum number of search nodes. [Limits: 0 < value <= 65535]
// / @returns The status flags for the query.
func NewDtNavMeshQuery(nav IDtNavMesh, maxNodes int32) (*DtNavMeshQuery, DtStatus) {
	if nav == nil || maxNodes <= 0 || maxNodes > DT_QUERY_MAX_NODES {
		return nil, DT_FAILURE | DT_INVALID_PARAM
	}
	hashSize := int32(common.NextPow2(uint32(maxNodes / 4)))
	if hashSize == 0 {
		hashSize = 1
	}
	query := &DtNavMeshQuery{
		m_nav:          nav,
		m_nodePool:     NewDtNodePool(maxNodes, hashSize),
		m_tinyNodePool: NewDtNodePool(DT_TINY_NODE_POOL, DT_TINY_NODE_HASHES),
	}
	return query, DT_SUCCESS
}

// / Gets the node pool.
func (query *DtNavMeshQuery) GetNodePool() *DtNodePool { return query.m_nodePool }

// / Gets the navigation mesh the query object is using.
func (query *DtNavMeshQuery) GetAttachedNavMesh() IDtNavMesh { return query.m_nav }

// IsValidPolyRef reports whether ref points into a currently loaded tile.
func (query *DtNavMeshQuery) IsValidPolyRef(ref DtPolyRef) bool {
	return query.m_nav.IsValidPolyRef(ref)
}

// FindTileAt returns the reference of the ground layer tile under pos.
func (query *DtNavMeshQuery) FindTileAt(pos mgl32.Vec3) (DtTileRef, DtStatus) {
	tx, ty := query.m_nav.CalcTileLoc(pos)
	ref := query.m_nav.GetTileRefAt(tx, ty, 0)
	if ref == 0 {
		return 0, DT_FAILURE | DT_INVALID_PARAM
	}
	return ref, DT_SUCCESS
}
