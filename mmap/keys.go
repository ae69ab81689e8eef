package mmap

// PackTileID packs tile grid coordinates into one key. Both coordinates must
// fit in 16 bits; larger values collide.
func PackTileID(x, y int32) uint32 {
	return uint32(x)<<16 | uint32(y)
}

func UnpackTileID(id uint32) (x, y int32) {
	return int32(id >> 16), int32(id & 0x0000ffff)
}

// PackInstanceID packs a map id and an instance id into the key of one
// loaded mesh.
func PackInstanceID(mapID, instanceID uint32) uint64 {
	return uint64(mapID)<<32 | uint64(instanceID)
}

func UnpackInstanceID(key uint64) (mapID, instanceID uint32) {
	return uint32(key >> 32), uint32(key)
}
