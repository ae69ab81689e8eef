package mmap

import (
	"fmt"

	"github.com/gorustyt/navmeshmgr/common/message"
)

// Stats is a snapshot of what a Manager holds.
type Stats struct {
	LoadedMaps      int
	LoadedTiles     int
	InstanceQueries int
	LoadedModels    int
	ModelQueries    int
}

func (m *Manager) Stats() Stats {
	st := Stats{
		LoadedMaps:   len(m.maps),
		LoadedTiles:  m.LoadedTilesCount(),
		LoadedModels: m.models.LoadedCount(),
		ModelQueries: m.models.QueryCount(),
	}
	for _, md := range m.maps {
		st.InstanceQueries += len(md.queries)
	}
	return st
}

func (s Stats) fields() map[string]any {
	return map[string]any{
		"loaded_maps":      s.LoadedMaps,
		"loaded_tiles":     s.LoadedTiles,
		"instance_queries": s.InstanceQueries,
		"loaded_models":    s.LoadedModels,
		"model_queries":    s.ModelQueries,
	}
}

// Encode serializes s as a protobuf Struct.
func (s Stats) Encode() ([]byte, error) {
	return message.EncodeFields(s.fields())
}

func DecodeStats(data []byte) (Stats, error) {
	fields, err := message.DecodeFields(data)
	if err != nil {
		return Stats{}, err
	}
	var s Stats
	for name, dst := range map[string]*int{
		"loaded_maps":      &s.LoadedMaps,
		"loaded_tiles":     &s.LoadedTiles,
		"instance_queries": &s.InstanceQueries,
		"loaded_models":    &s.LoadedModels,
		"model_queries":    &s.ModelQueries,
	} {
		v, ok := fields[name].(float64)
		if !ok {
			return Stats{}, fmt.Errorf("mmap: stats field %q missing", name)
		}
		*dst = int(v)
	}
	return s, nil
}
