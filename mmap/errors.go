package mmap

import "errors"

// Recoverable failures. Operations returning one of these leave the manager
// unchanged. Tile removal failures are not in this list: they stop the process.
var (
	ErrFileNotFound    = errors.New("mmap: file not found")
	ErrBadMagic        = errors.New("mmap: bad file magic")
	ErrVersionMismatch = errors.New("mmap: file version mismatch")
	ErrTruncatedFile   = errors.New("mmap: truncated file")
	ErrLibraryInit     = errors.New("mmap: navmesh initialization failed")
	ErrTileRejected    = errors.New("mmap: tile rejected by navmesh")
	ErrAlreadyLoaded   = errors.New("mmap: already loaded")
	ErrNotLoaded       = errors.New("mmap: not loaded")
)
