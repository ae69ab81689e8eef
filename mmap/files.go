package mmap

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/gorustyt/navmeshmgr/common/rw"
	"github.com/gorustyt/navmeshmgr/detour"
)

const (
	MMAP_MAGIC   = 0x4d4d4150 // 'MMAP'
	MMAP_VERSION = 8

	mmapTileHeaderSize = 20
)

// MmapTileHeader precedes the Detour tile data in every .mmtile file.
type MmapTileHeader struct {
	MmapMagic   uint32
	DtVersion   uint32
	MmapVersion uint32
	Size        uint32 // payload bytes following the header
	UsesLiquids bool
}

func (h *MmapTileHeader) FromBin(r *rw.ReaderWriter) *MmapTileHeader {
	h.MmapMagic = r.ReadUInt32()
	h.DtVersion = r.ReadUInt32()
	h.MmapVersion = r.ReadUInt32()
	h.Size = r.ReadUInt32()
	h.UsesLiquids = r.ReadUInt8() != 0
	r.Skip(3)
	return h
}

func (h *MmapTileHeader) ToBin(w *rw.ReaderWriter) {
	w.WriteUInt32(h.MmapMagic)
	w.WriteUInt32(h.DtVersion)
	w.WriteUInt32(h.MmapVersion)
	w.WriteUInt32(h.Size)
	if h.UsesLiquids {
		w.WriteUInt8(1)
	} else {
		w.WriteUInt8(0)
	}
	w.PadZero(3)
}

func mapParamsPath(dataPath string, mapID uint32) string {
	return filepath.Join(dataPath, "mmaps", fmt.Sprintf("%03d.mmap", mapID))
}

func tileFileName(mapID uint32, x, y int32, number uint32) string {
	if number == 0 {
		return fmt.Sprintf("%03d%02d%02d.mmtile", mapID, x, y)
	}
	return fmt.Sprintf("%03d%02d%02d_%02d.mmtile", mapID, x, y, number)
}

func modelFileName(displayID uint32) string {
	return fmt.Sprintf("go%04d.mmtile", displayID)
}

func mmapsPath(dataPath, name string) string {
	return filepath.Join(dataPath, "mmaps", name)
}

// readNavMeshParams reads the fixed parameter record of a map.
func readNavMeshParams(path string) (*detour.NavMeshParams, error) {
	f, err := openDataFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf := make([]byte, detour.DT_NAVMESH_PARAMS_SIZE)
	if _, err := io.ReadFull(f, buf); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrTruncatedFile, path, err)
	}
	r := rw.NewNavMeshDataBinReader(buf)
	params := (&detour.NavMeshParams{}).FromBin(r)
	return params, r.Err()
}

// readTileFile validates the mmtile header and reads the payload into a
// buffer from pool. On error no buffer is held.
func readTileFile(path string, pool *payloadPool) (*MmapTileHeader, []byte, error) {
	f, err := openDataFile(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	hbuf := make([]byte, mmapTileHeaderSize)
	if _, err := io.ReadFull(f, hbuf); err != nil {
		return nil, nil, fmt.Errorf("%w: %s: header: %v", ErrTruncatedFile, path, err)
	}
	header := (&MmapTileHeader{}).FromBin(rw.NewNavMeshDataBinReader(hbuf))
	if header.MmapMagic != MMAP_MAGIC {
		return header, nil, fmt.Errorf("%w: %s", ErrBadMagic, path)
	}
	if header.MmapVersion != MMAP_VERSION {
		return header, nil, fmt.Errorf("%w: %s was built with generator v%d, expected v%d",
			ErrVersionMismatch, path, header.MmapVersion, MMAP_VERSION)
	}

	payload := pool.get(int(header.Size))
	if _, err := io.ReadFull(f, payload); err != nil {
		pool.put(payload)
		return header, nil, fmt.Errorf("%w: %s: payload: %v", ErrTruncatedFile, path, err)
	}
	return header, payload, nil
}

func openDataFile(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrFileNotFound, path, err)
	}
	return f, nil
}

// payloadPool recycles tile buffers that a mesh refused. Buffers a mesh
// adopted are never put back.
type payloadPool struct {
	pool sync.Pool
}

func (p *payloadPool) get(size int) []byte {
	if b, ok := p.pool.Get().(*[]byte); ok && cap(*b) >= size {
		return (*b)[:size]
	}
	return make([]byte, size)
}

func (p *payloadPool) put(b []byte) {
	b = b[:0]
	p.pool.Put(&b)
}

type bufferDisposition int

const (
	// bufferAdopted: the mesh owns the payload now; the caller must not touch it.
	bufferAdopted bufferDisposition = iota
	// bufferReturned: the mesh refused the payload; the caller still owns it.
	bufferReturned
)

type tileInsertion struct {
	ref    detour.DtTileRef
	status detour.DtStatus
	buffer bufferDisposition
}

// insertTile hands payload to mesh and reports who owns it afterwards.
func insertTile(mesh detour.IDtNavMesh, payload []byte) tileInsertion {
	ref, status := mesh.AddTile(payload, detour.DT_TILE_FREE_DATA, 0)
	if status.DtStatusFailed() {
		return tileInsertion{status: status, buffer: bufferReturned}
	}
	return tileInsertion{ref: ref, status: status, buffer: bufferAdopted}
}
