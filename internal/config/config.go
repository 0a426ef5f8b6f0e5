// Package config loads the scheduler's startup configuration: the
// configuration server's listen address, the packet pool's sizing, the
// debug CSV dump toggle and output directory, and the scheduler-parameter
// seed file.
package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"

	"github.com/klagrassa/prog-tm-bmv2/internal/configsrv"
	"github.com/klagrassa/prog-tm-bmv2/internal/serrors"
	"github.com/klagrassa/prog-tm-bmv2/internal/tm"
)

// Config is the scheduler's fully resolved startup configuration.
type Config struct {
	// ConfigListenAddr is the configuration server's listen address, e.g.
	// ":41200".
	ConfigListenAddr string

	// InitialHierarchyFile, if set, is a configuration document (the same
	// wire format the configuration server accepts) loaded at startup to
	// seed the active hierarchy, rather than starting with a single
	// pass-through node.
	InitialHierarchyFile string

	// SchedulerParamsFile, if set, is a YAML file mapping node id to the
	// scheduler_parameters register array seeded at node construction.
	SchedulerParamsFile string

	// Debug enables CSV packet-in/packet-out logging.
	Debug bool
	// DebugDir is the directory CSV dumps are written to when Debug is set.
	DebugDir string

	PoolCapacity int
	NBWorkers    int

	// MetricsAddr, if set, is the address an HTTP /metrics endpoint is
	// served on.
	MetricsAddr string
}

// Defaults returns a Config with the specification's default values.
func Defaults() Config {
	return Config{
		ConfigListenAddr: fmt.Sprintf(":%d", configsrv.DefaultPort),
		Debug:            false,
		DebugDir:         ".",
		PoolCapacity:     tm.DefaultPoolCapacity,
		NBWorkers:        tm.DefaultNBWorkers,
		MetricsAddr:      ":9090",
	}
}

// Load reads configuration from v, which the caller has already bound to
// command-line flags and, optionally, a config file via viper's own
// mechanisms (SetConfigFile / AddConfigPath / ReadInConfig).
func Load(v *viper.Viper) Config {
	cfg := Defaults()
	if s := v.GetString("listen"); s != "" {
		cfg.ConfigListenAddr = s
	}
	cfg.InitialHierarchyFile = v.GetString("initial-hierarchy")
	cfg.SchedulerParamsFile = v.GetString("scheduler-params")
	cfg.Debug = v.GetBool("debug")
	if s := v.GetString("debug-dir"); s != "" {
		cfg.DebugDir = s
	}
	if n := v.GetInt("pool-capacity"); n > 0 {
		cfg.PoolCapacity = n
	}
	if n := v.GetInt("nb-workers"); n > 0 {
		cfg.NBWorkers = n
	}
	if s := v.GetString("metrics-addr"); s != "" {
		cfg.MetricsAddr = s
	}
	return cfg
}

// schedulerParamsDoc mirrors the YAML seed file's shape:
//
//	<node-id>:
//	  <register-index>: [v0, v1, ...]
type schedulerParamsDoc map[string]map[string][]int64

// LoadSchedulerParams parses a scheduler-parameter seed file into the
// map[node id]map[register index][]int64 shape hierarchy.BuildOptions
// expects.
func LoadSchedulerParams(raw []byte) (map[int]map[int][]int64, error) {
	var doc schedulerParamsDoc
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, serrors.Wrap("decoding scheduler parameters file", err)
	}
	out := make(map[int]map[int][]int64, len(doc))
	for nodeKey, regs := range doc {
		nodeID, err := strconv.Atoi(strings.TrimSpace(nodeKey))
		if err != nil {
			return nil, serrors.Wrap("scheduler parameters file has non-integer node id", err, "key", nodeKey)
		}
		perNode := make(map[int][]int64, len(regs))
		for regKey, values := range regs {
			regIdx, err := strconv.Atoi(strings.TrimSpace(regKey))
			if err != nil {
				return nil, serrors.Wrap("scheduler parameters file has non-integer register index", err, "node", nodeID, "key", regKey)
			}
			perNode[regIdx] = values
		}
		out[nodeID] = perNode
	}
	return out, nil
}
