package mmap

import (
	"sync"

	"go.uber.org/zap"
)

type Options struct {
	// DataPath is the directory holding the mmaps/ folder.
	DataPath string
	// Enabled is the global pathfinding switch.
	Enabled bool
}

// Factory owns the process wide navigation state: one Manager and the
// disabled map set. Create it once at startup and pass it to whoever needs
// navigation data. Clear tears everything down; the next CreateOrGetManager
// starts from empty stores.
type Factory struct {
	opts Options
	log  *zap.Logger

	disabled *DisabledMaps
	policy   *Policy

	mu      sync.Mutex
	manager *Manager
}

func NewFactory(opts Options, log *zap.Logger) *Factory {
	if log == nil {
		log = zap.NewNop()
	}
	disabled := NewDisabledMaps()
	return &Factory{
		opts:     opts,
		log:      log,
		disabled: disabled,
		policy:   NewPolicy(opts.Enabled, disabled),
	}
}

func (f *Factory) CreateOrGetManager() *Manager {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.manager == nil {
		f.manager = NewManager(f.opts.DataPath, f.policy, f.log)
	}
	return f.manager
}

// PreventPathfindingOnMaps replaces the disabled map set with the comma
// separated ids in list.
func (f *Factory) PreventPathfindingOnMaps(list string) error {
	err := f.disabled.Init(list)
	if err != nil {
		f.log.Error("bad disabled map list", zap.String("list", list), zap.Error(err))
	}
	return err
}

func (f *Factory) IsPathfindingEnabled(mapID uint32, unit Unit) bool {
	return f.policy.IsPathfindingEnabled(mapID, unit)
}

func (f *Factory) DisabledMaps() []uint32 {
	return f.disabled.IDs()
}

func (f *Factory) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.manager != nil {
		f.manager.Close()
		f.manager = nil
	}
	f.disabled.Reset()
}
