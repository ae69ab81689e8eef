package detour

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/gorustyt/navmeshmgr/common"
)

// DtNavMesh is a navigation mesh made of independently loaded tiles.
// It is not safe for concurrent mutation.
type DtNavMesh struct {
	m_params      NavMeshParams
	m_orig        mgl32.Vec3
	m_tileWidth   float32
	m_tileHeight  float32
	m_maxTiles    int32
	m_tileLutSize int32
	m_tileLutMask int32

	m_posLookup []*DtMeshTile
	m_nextFree  *DtMeshTile
	m_tiles     []*DtMeshTile
	m_tileCount int32
}

// / Initializes the navigation mesh for tiled use.
// /  @param[in]	params		Initialization parameters.
// / @return The status flags for the operation.
func NewDtNavMeshWithParams(params *NavMeshParams) (*DtNavMesh, DtStatus) {
	if params == nil || params.MaxTiles <= 0 || params.MaxPolys <= 0 ||
		params.TileWidth <= 0 || params.TileHeight <= 0 {
		return nil, DT_FAILURE | DT_INVALID_PARAM
	}
	if common.Ilog2(common.NextPow2(uint32(params.MaxTiles))) > DT_TILE_BITS ||
		common.Ilog2(common.NextPow2(uint32(params.MaxPolys))) > DT_POLY_BITS {
		return nil, DT_FAILURE | DT_INVALID_PARAM
	}

	mesh := &DtNavMesh{
		m_params:     *params,
		m_orig:       params.Orig,
		m_tileWidth:  params.TileWidth,
		m_tileHeight: params.TileHeight,
		m_maxTiles:   params.MaxTiles,
	}

	// Init tiles
	mesh.m_tileLutSize = int32(common.NextPow2(uint32(params.MaxTiles) / 4))
	if mesh.m_tileLutSize == 0 {
		mesh.m_tileLutSize = 1
	}
	mesh.m_tileLutMask = mesh.m_tileLutSize - 1
	mesh.m_posLookup = make([]*DtMeshTile, mesh.m_tileLutSize)
	mesh.m_tiles = make([]*DtMeshTile, mesh.m_maxTiles)
	for i := mesh.m_maxTiles - 1; i >= 0; i-- {
		mesh.m_tiles[i] = &DtMeshTile{salt: 1, index: uint32(i), Next: mesh.m_nextFree}
		mesh.m_nextFree = mesh.m_tiles[i]
	}
	return mesh, DT_SUCCESS
}

// / Initializes the navigation mesh for single tile use. The mesh parameters
// / are derived from the tile header.
func NewDtNavMesh(data []byte, flags int32) (*DtNavMesh, DtTileRef, DtStatus) {
	tile, status := DecodeNavMeshData(data)
	if status.DtStatusFailed() {
		return nil, 0, status
	}
	header := tile.Header

	params := NavMeshParams{
		Orig:       header.Bmin,
		TileWidth:  header.Bmax[0] - header.Bmin[0],
		TileHeight: header.Bmax[2] - header.Bmin[2],
		MaxTiles:   1,
		MaxPolys:   max(header.PolyCount, 1),
	}
	mesh, status := NewDtNavMeshWithParams(&params)
	if status.DtStatusFailed() {
		return nil, 0, status
	}
	ref, status := mesh.AddTile(data, flags, 0)
	if status.DtStatusFailed() {
		return nil, 0, status
	}
	return mesh, ref, status
}

func (mesh *DtNavMesh) GetParams() *NavMeshParams {
	return &mesh.m_params
}

func (mesh *DtNavMesh) GetMaxTiles() int32 {
	return mesh.m_maxTiles
}

// TileCount returns the number of occupied tile slots.
func (mesh *DtNavMesh) TileCount() int32 {
	return mesh.m_tileCount
}

// / @par
// /
// / The add operation will fail if the data is in the wrong format, the
// / allocated tile space is full, or there is a tile already at the
// / specified reference. On failure the caller keeps the data.
func (mesh *DtNavMesh) AddTile(data []byte, flags int32, lastRef DtTileRef) (DtTileRef, DtStatus) {
	tileData, status := DecodeNavMeshData(data)
	if status.DtStatusFailed() {
		return 0, status
	}
	header := tileData.Header

	// Do not allow adding more polygons than specified in the NavMesh's maxPolys constraint.
	if header.PolyCount > mesh.m_params.MaxPolys {
		return 0, DT_FAILURE | DT_INVALID_PARAM
	}
	// Make sure the location is free.
	if mesh.GetTileAt(header.X, header.Y, header.Layer) != nil {
		return 0, DT_FAILURE | DT_ALREADY_OCCUPIED
	}

	var tile *DtMeshTile
	if lastRef == 0 {
		if mesh.m_nextFree != nil {
			tile = mesh.m_nextFree
			mesh.m_nextFree = tile.Next
			tile.Next = nil
		}
	} else {
		// Try to relocate the tile to specific index with same salt.
		tileIndex := mesh.DecodePolyIdTile(DtPolyRef(lastRef))
		if tileIndex >= uint32(mesh.m_maxTiles) {
			return 0, DT_FAILURE | DT_OUT_OF_MEMORY
		}
		target := mesh.m_tiles[tileIndex]
		var prev *DtMeshTile
		tile = mesh.m_nextFree
		for tile != nil && tile != target {
			prev = tile
			tile = tile.Next
		}
		// Could not find the correct location.
		if tile != target {
			return 0, DT_FAILURE | DT_OUT_OF_MEMORY
		}
		if prev == nil {
			mesh.m_nextFree = tile.Next
		} else {
			prev.Next = tile.Next
		}
		tile.Next = nil
		// Restore salt.
		tile.salt = mesh.DecodePolyIdSalt(DtPolyRef(lastRef))
	}

	// Make sure we could allocate a tile.
	if tile == nil {
		return 0, DT_FAILURE | DT_OUT_OF_MEMORY
	}

	// Insert tile into the position lut.
	h := common.ComputeTileHash(header.X, header.Y, mesh.m_tileLutMask)
	tile.Next = mesh.m_posLookup[h]
	mesh.m_posLookup[h] = tile

	tile.Header = header
	tile.Data = tileData
	tile.Flags = flags
	mesh.m_tileCount++

	return mesh.GetTileRef(tile), DT_SUCCESS
}

// / @par
// /
// / This function returns the data for the tile so that, if desired,
// / it can be added back to the navigation mesh at a later point.
// / Tiles added with DT_TILE_FREE_DATA return nil: their data is released.
func (mesh *DtNavMesh) RemoveTile(ref DtTileRef) ([]byte, DtStatus) {
	if ref == 0 {
		return nil, DT_FAILURE | DT_INVALID_PARAM
	}
	tileIndex := mesh.DecodePolyIdTile(DtPolyRef(ref))
	tileSalt := mesh.DecodePolyIdSalt(DtPolyRef(ref))
	if tileIndex >= uint32(mesh.m_maxTiles) {
		return nil, DT_FAILURE | DT_INVALID_PARAM
	}
	tile := mesh.m_tiles[tileIndex]
	if tile.salt != tileSalt || tile.Header == nil {
		return nil, DT_FAILURE | DT_INVALID_PARAM
	}

	// Remove tile from hash lookup.
	h := common.ComputeTileHash(tile.Header.X, tile.Header.Y, mesh.m_tileLutMask)
	var prev *DtMeshTile
	cur := mesh.m_posLookup[h]
	for cur != nil {
		if cur == tile {
			if prev != nil {
				prev.Next = cur.Next
			} else {
				mesh.m_posLookup[h] = cur.Next
			}
			break
		}
		prev = cur
		cur = cur.Next
	}

	var data []byte
	if tile.Flags&DT_TILE_FREE_DATA == 0 {
		data = tile.Data.Raw
	}

	// Reset tile.
	tile.Header = nil
	tile.Data = nil
	tile.Flags = 0

	// Update salt, salt should never be zero.
	tile.salt = (tile.salt + 1) & ((1 << DT_SALT_BITS) - 1)
	if tile.salt == 0 {
		tile.salt++
	}

	// Add to free list.
	tile.Next = mesh.m_nextFree
	mesh.m_nextFree = tile
	mesh.m_tileCount--

	return data, DT_SUCCESS
}

func (mesh *DtNavMesh) GetTileAt(x, y, layer int32) *DtMeshTile {
	// Find tile based on hash.
	h := common.ComputeTileHash(x, y, mesh.m_tileLutMask)
	tile := mesh.m_posLookup[h]
	for tile != nil {
		if tile.Header != nil && tile.Header.X == x && tile.Header.Y == y && tile.Header.Layer == layer {
			return tile
		}
		tile = tile.Next
	}
	return nil
}

func (mesh *DtNavMesh) GetTileRefAt(x, y, layer int32) DtTileRef {
	return mesh.GetTileRef(mesh.GetTileAt(x, y, layer))
}

func (mesh *DtNavMesh) GetTileRef(tile *DtMeshTile) DtTileRef {
	if tile == nil {
		return 0
	}
	return DtTileRef(mesh.EncodePolyId(tile.salt, tile.index, 0))
}

func (mesh *DtNavMesh) GetTileByRef(ref DtTileRef) *DtMeshTile {
	if ref == 0 {
		return nil
	}
	tileIndex := mesh.DecodePolyIdTile(DtPolyRef(ref))
	tileSalt := mesh.DecodePolyIdSalt(DtPolyRef(ref))
	if tileIndex >= uint32(mesh.m_maxTiles) {
		return nil
	}
	tile := mesh.m_tiles[tileIndex]
	if tile.salt != tileSalt || tile.Header == nil {
		return nil
	}
	return tile
}

// CalcTileLoc returns the tile grid location containing pos.
func (mesh *DtNavMesh) CalcTileLoc(pos mgl32.Vec3) (tx, ty int32) {
	tx = common.Floor32((pos[0] - mesh.m_orig[0]) / mesh.m_tileWidth)
	ty = common.Floor32((pos[2] - mesh.m_orig[2]) / mesh.m_tileHeight)
	return tx, ty
}

func (mesh *DtNavMesh) IsValidPolyRef(ref DtPolyRef) bool {
	if ref == 0 {
		return false
	}
	salt, it, ip := mesh.DecodePolyId(ref)
	if it >= uint32(mesh.m_maxTiles) {
		return false
	}
	tile := mesh.m_tiles[it]
	if tile.salt != salt || tile.Header == nil {
		return false
	}
	return ip < uint32(tile.Header.PolyCount)
}

// / Derives a standard polygon reference.
func (mesh *DtNavMesh) EncodePolyId(salt, it, ip uint32) DtPolyRef {
	return DtPolyRef(salt)<<(DT_POLY_BITS+DT_TILE_BITS) | DtPolyRef(it)<<DT_POLY_BITS | DtPolyRef(ip)
}

// / Decodes a standard polygon reference.
func (mesh *DtNavMesh) DecodePolyId(ref DtPolyRef) (salt, it, ip uint32) {
	return mesh.DecodePolyIdSalt(ref), mesh.DecodePolyIdTile(ref), mesh.DecodePolyIdPoly(ref)
}

func (mesh *DtNavMesh) DecodePolyIdSalt(ref DtPolyRef) uint32 {
	const saltMask = DtPolyRef(1)<<DT_SALT_BITS - 1
	return uint32((ref >> (DT_POLY_BITS + DT_TILE_BITS)) & saltMask)
}

func (mesh *DtNavMesh) DecodePolyIdTile(ref DtPolyRef) uint32 {
	const tileMask = DtPolyRef(1)<<DT_TILE_BITS - 1
	return uint32((ref >> DT_POLY_BITS) & tileMask)
}

func (mesh *DtNavMesh) DecodePolyIdPoly(ref DtPolyRef) uint32 {
	const polyMask = DtPolyRef(1)<<DT_POLY_BITS - 1
	return uint32(ref & polyMask)
}
