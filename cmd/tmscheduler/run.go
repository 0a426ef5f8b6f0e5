package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/klagrassa/prog-tm-bmv2/internal/action"
	"github.com/klagrassa/prog-tm-bmv2/internal/config"
	"github.com/klagrassa/prog-tm-bmv2/internal/configsrv"
	"github.com/klagrassa/prog-tm-bmv2/internal/egress"
	"github.com/klagrassa/prog-tm-bmv2/internal/hierarchy"
	"github.com/klagrassa/prog-tm-bmv2/internal/log"
	"github.com/klagrassa/prog-tm-bmv2/internal/schedulers"
	"github.com/klagrassa/prog-tm-bmv2/internal/tm"
)

func newRunCmd() *cobra.Command {
	v := viper.New()
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the scheduler's traffic manager and configuration server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runE(v)
		},
	}

	flags := cmd.Flags()
	flags.String("listen", "", "configuration server listen address (default :41200)")
	flags.String("initial-hierarchy", "", "configuration document to seed the initial hierarchy from")
	flags.String("scheduler-params", "", "YAML file of per-node scheduler parameters")
	flags.Bool("debug", false, "enable per-node CSV packet-in/packet-out dumps")
	flags.String("debug-dir", "", "directory CSV dumps are written to when --debug is set")
	flags.Int("pool-capacity", 0, "per-port packet pool capacity (default 1024)")
	flags.Int("nb-workers", 0, "number of packet pool worker shards (default 8)")
	flags.String("metrics-addr", "", "address to serve Prometheus metrics on (default :9090)")
	_ = v.BindPFlags(flags)

	return cmd
}

func runE(v *viper.Viper) error {
	cfg := config.Load(v)
	log.SetLevel(cfg.Debug)
	logger := log.Root().New("component", "tmscheduler")

	table := action.NewTable()
	schedulers.Register(table)

	paramsByNode := map[int]map[int][]int64{}
	if cfg.SchedulerParamsFile != "" {
		raw, err := os.ReadFile(cfg.SchedulerParamsFile)
		if err != nil {
			return err
		}
		paramsByNode, err = config.LoadSchedulerParams(raw)
		if err != nil {
			return err
		}
	}

	spec, err := initialSpec(cfg)
	if err != nil {
		return err
	}

	debugDir := ""
	if cfg.Debug {
		debugDir = cfg.DebugDir
	}

	initial, err := hierarchy.Build(spec, hierarchy.BuildOptions{
		Actions:      table,
		ParamsByNode: paramsByNode,
		DebugDir:     debugDir,
	})
	if err != nil {
		return err
	}

	egressBuf := egress.NewMemoryBuffer()
	manager := tm.New(initial, egressBuf, tm.Options{
		PoolCapacity: cfg.PoolCapacity,
		NBWorkers:    cfg.NBWorkers,
	})

	ctx, cancel := context.WithCancel(context.Background())
	ctx = log.CtxWith(ctx, logger)
	defer cancel()

	manager.Start(ctx)
	defer manager.Stop()

	listenAddr := cfg.ConfigListenAddr
	srv := configsrv.New(listenAddr)
	stopConfigSrv := make(chan struct{})
	configSrvDone := make(chan error, 1)
	go func() { configSrvDone <- srv.Run(stopConfigSrv) }()

	go manager.RunSupervisor(ctx, srv.Specs, tm.ReconfigOptions{
		Actions:      table,
		ParamsByNode: paramsByNode,
		DebugDir:     debugDir,
	})

	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		go func() {
			logger.Info("serving metrics", "addr", cfg.MetricsAddr)
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
				logger.Error("metrics server stopped", "err", err.Error())
			}
		}()
	}

	logger.Info("scheduler started", "config_listen", listenAddr)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig.String())
	case err := <-configSrvDone:
		if err != nil {
			logger.Error("configuration listener exited", "err", err.Error())
		}
	}

	close(stopConfigSrv)
	cancel()
	return nil
}

// initialSpec resolves the hierarchy the scheduler starts with: either the
// configuration document named by --initial-hierarchy, or a single FIFO
// root node bound to port 0.
func initialSpec(cfg config.Config) (*hierarchy.Spec, error) {
	if cfg.InitialHierarchyFile == "" {
		port := uint32(0)
		return &hierarchy.Spec{Nodes: []hierarchy.NodeSpec{
			{ID: 0, SchedulerType: "FIFO", Port: &port},
		}}, nil
	}
	raw, err := os.ReadFile(cfg.InitialHierarchyFile)
	if err != nil {
		return nil, err
	}
	return hierarchy.Parse(raw)
}
