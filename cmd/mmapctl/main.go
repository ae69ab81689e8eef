// Command mmapctl loads navigation data the way the world server does and
// reports what ended up resident. It is used to check extracted mmaps.
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/gorustyt/navmeshmgr/config"
	"github.com/gorustyt/navmeshmgr/logging"
	"github.com/gorustyt/navmeshmgr/mmap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "mmapctl:", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath = flag.String("config", "", "yaml config file")
		dataPath   = flag.String("data", "", "data directory, overrides the config")
		mapID      = flag.Uint("map", 0, "map id")
		instanceID = flag.Uint("instance", 0, "instance id")
		tiles      = flag.String("tiles", "", "tiles to load: x,y[:number] separated by ';'")
		models     = flag.String("models", "", "comma separated game object display ids")
		statsOut   = flag.String("stats-out", "", "write a protobuf stats snapshot to this file")
	)
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			return err
		}
	}
	if *dataPath != "" {
		cfg.DataPath = *dataPath
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer log.Sync()

	factory := mmap.NewFactory(mmap.Options{DataPath: cfg.DataPath, Enabled: cfg.Mmap.Enabled}, log)
	defer factory.Clear()
	// bad ids are logged by the factory; the rest still applies
	_ = factory.PreventPathfindingOnMaps(cfg.Mmap.DisabledMaps)

	mgr := factory.CreateOrGetManager()
	id, inst := uint32(*mapID), uint32(*instanceID)

	if !factory.IsPathfindingEnabled(id, nil) {
		log.Info("pathfinding disabled for map", zap.Uint32("map", id))
	}
	if err := mgr.LoadMapData(id, inst); err != nil {
		return err
	}

	coords, err := parseTiles(*tiles)
	if err != nil {
		return err
	}
	for _, c := range coords {
		if err := mgr.LoadMap(id, inst, c.x, c.y, c.number); err != nil {
			log.Warn("tile not loaded", zap.Int32("x", c.x), zap.Int32("y", c.y), zap.Error(err))
		}
	}
	if mgr.GetNavMeshQuery(id, inst) == nil {
		return fmt.Errorf("no navmesh query for map %d instance %d", id, inst)
	}

	ids, err := parseIDs(*models)
	if err != nil {
		return err
	}
	if len(ids) > 0 {
		mgr.Models().LoadAllGameObjectModels(ids)
	}

	st := mgr.Stats()
	fmt.Printf("maps=%d tiles=%d instance_queries=%d models=%d model_queries=%d\n",
		st.LoadedMaps, st.LoadedTiles, st.InstanceQueries, st.LoadedModels, st.ModelQueries)

	if *statsOut != "" {
		data, err := st.Encode()
		if err != nil {
			return err
		}
		if err := os.WriteFile(*statsOut, data, 0o644); err != nil {
			return err
		}
	}

	mgr.UnloadMapAll(id)
	return nil
}

type tileCoord struct {
	x, y   int32
	number uint32
}

func parseTiles(s string) ([]tileCoord, error) {
	var out []tileCoord
	for _, tok := range strings.Split(s, ";") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		var c tileCoord
		xy, num, hasNum := strings.Cut(tok, ":")
		xs, ys, ok := strings.Cut(xy, ",")
		if !ok {
			return nil, fmt.Errorf("bad tile %q", tok)
		}
		x, err := strconv.ParseInt(strings.TrimSpace(xs), 10, 16)
		if err != nil {
			return nil, fmt.Errorf("bad tile %q: %w", tok, err)
		}
		y, err := strconv.ParseInt(strings.TrimSpace(ys), 10, 16)
		if err != nil {
			return nil, fmt.Errorf("bad tile %q: %w", tok, err)
		}
		c.x, c.y = int32(x), int32(y)
		if hasNum {
			n, err := strconv.ParseUint(strings.TrimSpace(num), 10, 32)
			if err != nil {
				return nil, fmt.Errorf("bad tile %q: %w", tok, err)
			}
			c.number = uint32(n)
		}
		out = append(out, c)
	}
	return out, nil
}

func parseIDs(s string) ([]uint32, error) {
	var out []uint32
	for _, tok := range strings.Split(s, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		id, err := strconv.ParseUint(tok, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("bad display id %q: %w", tok, err)
		}
		out = append(out, uint32(id))
	}
	return out, nil
}
