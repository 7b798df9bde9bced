package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nick-enoent/maestro/pkg/controller"
	"github.com/nick-enoent/maestro/pkg/log"
	"github.com/nick-enoent/maestro/pkg/metrics"
	"github.com/nick-enoent/maestro/pkg/store"
	"github.com/spf13/cobra"
)

var (
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "ldms-monitor",
	Short:   "Run the reconciliation control loop against a cluster's datastore",
	Version: Version,
	RunE:    run,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("ldms-monitor version %s (%s)\n", Version, Commit))

	rootCmd.Flags().String("cluster", "", "path to cluster config file (cluster prefix + member list)")
	rootCmd.Flags().String("prefix", "", "override the datastore key prefix from --cluster")
	rootCmd.Flags().Bool("start-aggregators", false, "spawn aggregator daemons as local subprocesses before monitoring")
	rootCmd.Flags().String("log-dir", "./log", "directory for spawned aggregator log and pid files")
	rootCmd.Flags().String("data-dir", "./ldms-monitor-data", "directory for the local datastore mirror")
	rootCmd.Flags().String("metrics-addr", "127.0.0.1:9090", "address for the Prometheus /metrics endpoint")
	rootCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.Flags().Bool("log-json", false, "emit logs as JSON")
	rootCmd.Flags().Duration("dial-timeout", 5*time.Second, "datastore dial timeout")

	rootCmd.MarkFlagRequired("cluster")

	cobra.OnInitialize(initLogging)
}

func initLogging() {
	level, _ := rootCmd.Flags().GetString("log-level")
	jsonOut, _ := rootCmd.Flags().GetBool("log-json")
	log.Init(log.Config{Level: log.Level(level), JSONOutput: jsonOut})
}

func run(cmd *cobra.Command, args []string) error {
	clusterPath, _ := cmd.Flags().GetString("cluster")
	prefixOverride, _ := cmd.Flags().GetString("prefix")
	startAggregators, _ := cmd.Flags().GetBool("start-aggregators")
	logDir, _ := cmd.Flags().GetString("log-dir")
	dataDir, _ := cmd.Flags().GetString("data-dir")
	metricsAddr, _ := cmd.Flags().GetString("metrics-addr")
	dialTimeout, _ := cmd.Flags().GetDuration("dial-timeout")

	clusterCfg, err := store.LoadClusterConfig(clusterPath)
	if err != nil {
		return fmt.Errorf("load cluster config: %w", err)
	}

	prefix := clusterCfg.Prefix
	if prefixOverride != "" {
		prefix = prefixOverride
	}

	ds, err := clusterCfg.Dial(dialTimeout)
	if err != nil {
		return fmt.Errorf("connect to datastore at %s: %w", clusterCfg.Endpoint(), err)
	}
	defer ds.Close()

	cache, err := store.OpenCache(dataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to open local cache: %v\n", err)
		cache = nil
	} else {
		defer cache.Close()
	}

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		if err := http.ListenAndServe(metricsAddr, mux); err != nil {
			fmt.Fprintf(os.Stderr, "metrics server error: %v\n", err)
		}
	}()
	fmt.Printf("metrics endpoint: http://%s/metrics\n", metricsAddr)

	ctrl := controller.New(prefix, ds, cache)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- ctrl.MonitorForever(ctx, startAggregators, logDir)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		fmt.Println("shutting down...")
		ctrl.Stop()
		cancel()
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("monitor loop: %w", err)
		}
	}

	return nil
}
