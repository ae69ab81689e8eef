package detour

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/gorustyt/navmeshmgr/common/rw"
)

const (
	/// A magic number used to detect compatibility of navigation tile data.
	DT_NAVMESH_MAGIC = 'D'<<24 | 'N'<<16 | 'A'<<8 | 'V'

	/// A version number used to detect compatibility of navigation tile data.
	DT_NAVMESH_VERSION = 7

	/// The navigation mesh owns the tile memory and is responsible for freeing it.
	DT_TILE_FREE_DATA = 0x01
)

// Polygon and tile references are 64 bit: salt | tile index | poly index.
const (
	DT_SALT_BITS = 16
	DT_TILE_BITS = 28
	DT_POLY_BITS = 20
)

// Encoded sizes of the fixed records.
const (
	DT_NAVMESH_PARAMS_SIZE = 28
	DT_MESH_HEADER_SIZE    = 100
)

type DtPolyRef uint64
type DtTileRef uint64

// NavMeshParams defines a multi-tile navigation mesh. The values are used to
// allocate space when the mesh is created.
type NavMeshParams struct {
	Orig       mgl32.Vec3 // world space origin of tile (0,0)
	TileWidth  float32    // along the x-axis
	TileHeight float32    // along the z-axis
	MaxTiles   int32
	MaxPolys   int32 // per tile
}

func (d *NavMeshParams) FromBin(r *rw.ReaderWriter) *NavMeshParams {
	r.ReadFloat32s(d.Orig[:])
	d.TileWidth = r.ReadFloat32()
	d.TileHeight = r.ReadFloat32()
	d.MaxTiles = r.ReadInt32()
	d.MaxPolys = r.ReadInt32()
	return d
}

func (d *NavMeshParams) ToBin(w *rw.ReaderWriter) {
	w.WriteFloat32s(d.Orig[:])
	w.WriteFloat32(d.TileWidth)
	w.WriteFloat32(d.TileHeight)
	w.WriteInt32(d.MaxTiles)
	w.WriteInt32(d.MaxPolys)
}

// DtMeshHeader is the leading record of every tile's data.
type DtMeshHeader struct {
	Magic           int32
	Version         int32
	X               int32 // tile grid location (x, y, layer)
	Y               int32
	Layer           int32
	UserId          uint32
	PolyCount       int32
	VertCount       int32
	MaxLinkCount    int32
	DetailMeshCount int32
	DetailVertCount int32
	DetailTriCount  int32
	BvNodeCount     int32
	OffMeshConCount int32
	OffMeshBase     int32
	WalkableHeight  float32
	WalkableRadius  float32
	WalkableClimb   float32
	Bmin            mgl32.Vec3
	Bmax            mgl32.Vec3
	BvQuantFactor   float32
}

func (d *DtMeshHeader) ToBin(w *rw.ReaderWriter) {
	w.WriteInt32(d.Magic)
	w.WriteInt32(d.Version)
	w.WriteInt32(d.X)
	w.WriteInt32(d.Y)
	w.WriteInt32(d.Layer)
	w.WriteUInt32(d.UserId)
	w.WriteInt32(d.PolyCount)
	w.WriteInt32(d.VertCount)
	w.WriteInt32(d.MaxLinkCount)
	w.WriteInt32(d.DetailMeshCount)
	w.WriteInt32(d.DetailVertCount)
	w.WriteInt32(d.DetailTriCount)
	w.WriteInt32(d.BvNodeCount)
	w.WriteInt32(d.OffMeshConCount)
	w.WriteInt32(d.OffMeshBase)
	w.WriteFloat32(d.WalkableHeight)
	w.WriteFloat32(d.WalkableRadius)
	w.WriteFloat32(d.WalkableClimb)
	w.WriteFloat32s(d.Bmin[:])
	w.WriteFloat32s(d.Bmax[:])
	w.WriteFloat32(d.BvQuantFactor)
}

func (d *DtMeshHeader) FromBin(r *rw.ReaderWriter) *DtMeshHeader {
	d.Magic = r.ReadInt32()
	d.Version = r.ReadInt32()
	d.X = r.ReadInt32()
	d.Y = r.ReadInt32()
	d.Layer = r.ReadInt32()
	d.UserId = r.ReadUInt32()
	d.PolyCount = r.ReadInt32()
	d.VertCount = r.ReadInt32()
	d.MaxLinkCount = r.ReadInt32()
	d.DetailMeshCount = r.ReadInt32()
	d.DetailVertCount = r.ReadInt32()
	d.DetailTriCount = r.ReadInt32()
	d.BvNodeCount = r.ReadInt32()
	d.OffMeshConCount = r.ReadInt32()
	d.OffMeshBase = r.ReadInt32()
	d.WalkableHeight = r.ReadFloat32()
	d.WalkableRadius = r.ReadFloat32()
	d.WalkableClimb = r.ReadFloat32()
	r.ReadFloat32s(d.Bmin[:])
	r.ReadFloat32s(d.Bmax[:])
	d.BvQuantFactor = r.ReadFloat32()
	return d
}

// NavMeshData is one tile's data: the decoded header plus the raw buffer the
// header was read from. Everything past the header is opaque to this package.
type NavMeshData struct {
	Header *DtMeshHeader
	Raw    []byte
}

// DecodeNavMeshData reads and validates the tile header at the start of data.
func DecodeNavMeshData(data []byte) (*NavMeshData, DtStatus) {
	if len(data) < DT_MESH_HEADER_SIZE {
		return nil, DT_FAILURE | DT_INVALID_PARAM
	}
	header := (&DtMeshHeader{}).FromBin(rw.NewNavMeshDataBinReader(data[:DT_MESH_HEADER_SIZE]))
	if header.Magic != DT_NAVMESH_MAGIC {
		return nil, DT_FAILURE | DT_WRONG_MAGIC
	}
	if header.Version != DT_NAVMESH_VERSION {
		return nil, DT_FAILURE | DT_WRONG_VERSION
	}
	return &NavMeshData{Header: header, Raw: data}, DT_SUCCESS
}

// EncodeNavMeshData lays out a header followed by an opaque body.
func EncodeNavMeshData(header *DtMeshHeader, body []byte) []byte {
	w := rw.NewNavMeshDataBinWriter()
	header.ToBin(w)
	w.WriteBytes(body)
	return w.GetWriteBytes()
}

// DtMeshTile is one slot of the mesh tile array.
type DtMeshTile struct {
	salt  uint32 // counter describing modifications to the tile
	index uint32

	Header *DtMeshHeader
	Flags  int32
	Data   *NavMeshData
	Next   *DtMeshTile // next free tile, or next tile in the spatial grid
}

type IDtNavMesh interface {
	GetParams() *NavMeshParams
	/// Adds a tile to the navigation mesh. With DT_TILE_FREE_DATA the mesh
	/// keeps data on success; on failure data is untouched and stays with the caller.
	AddTile(data []byte, flags int32, lastRef DtTileRef) (result DtTileRef, status DtStatus)
	/// Removes the tile. The data is handed back only when the mesh did not own it.
	RemoveTile(ref DtTileRef) (data []byte, status DtStatus)
	GetTileAt(x, y, layer int32) *DtMeshTile
	GetTileRefAt(x, y, layer int32) DtTileRef
	GetTileByRef(ref DtTileRef) *DtMeshTile
	GetTileRef(tile *DtMeshTile) DtTileRef
	CalcTileLoc(pos mgl32.Vec3) (tx, ty int32)
	GetMaxTiles() int32
	TileCount() int32
	IsValidPolyRef(ref DtPolyRef) bool
}
