package mmap

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
)

// DisabledMaps is the set of maps that never use pathfinding unless a unit
// overrides it. The set is replaced as a whole, so readers on other
// goroutines never see a partial update.
type DisabledMaps struct {
	ids atomic.Pointer[map[uint32]struct{}]
}

func NewDisabledMaps() *DisabledMaps {
	return &DisabledMaps{}
}

// Init replaces the set with the ids in a comma separated list. Blank entries
// are skipped. An entry that is not a number counts as map 0 and is reported
// in the returned error; the rest of the list is still applied.
func (d *DisabledMaps) Init(list string) error {
	ids := make(map[uint32]struct{})
	var bad []string
	for _, tok := range strings.Split(list, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		id, err := strconv.ParseUint(tok, 10, 32)
		if err != nil {
			bad = append(bad, tok)
		}
		ids[uint32(id)] = struct{}{}
	}
	d.ids.Store(&ids)
	if len(bad) > 0 {
		return fmt.Errorf("mmap: invalid map ids in disabled list: %s", strings.Join(bad, ","))
	}
	return nil
}

// Reset empties the set.
func (d *DisabledMaps) Reset() {
	d.ids.Store(nil)
}

func (d *DisabledMaps) Contains(mapID uint32) bool {
	ids := d.ids.Load()
	if ids == nil {
		return false
	}
	_, ok := (*ids)[mapID]
	return ok
}

// IDs returns the disabled ids in ascending order.
func (d *DisabledMaps) IDs() []uint32 {
	ids := d.ids.Load()
	if ids == nil {
		return nil
	}
	out := make([]uint32, 0, len(*ids))
	for id := range *ids {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
