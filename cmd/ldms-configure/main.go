package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/nick-enoent/maestro/pkg/controller"
	"github.com/nick-enoent/maestro/pkg/log"
	"github.com/nick-enoent/maestro/pkg/store"
	"github.com/nick-enoent/maestro/pkg/topology"
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
	Use:     "ldms-configure",
	Short:   "Push a declarative LDMS topology description into the cluster datastore",
	Version: Version,
	RunE:    run,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("ldms-configure version %s (%s)\n", Version, Commit))

	rootCmd.Flags().String("cluster", "", "path to cluster config file (cluster prefix + member list)")
	rootCmd.Flags().String("ldms_config", "", "path to the declarative topology description")
	rootCmd.Flags().String("prefix", "", "override the datastore key prefix from --cluster")
	rootCmd.Flags().Int("version", 4, "description syntax version (4 or 5)")
	rootCmd.Flags().Bool("dump", false, "print the expanded topology and exit without writing to the datastore")
	rootCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.Flags().Bool("log-json", false, "emit logs as JSON")
	rootCmd.Flags().Duration("dial-timeout", 5*time.Second, "datastore dial timeout")

	rootCmd.MarkFlagRequired("cluster")
	rootCmd.MarkFlagRequired("ldms_config")

	cobra.OnInitialize(initLogging)
}

func initLogging() {
	level, _ := rootCmd.Flags().GetString("log-level")
	jsonOut, _ := rootCmd.Flags().GetBool("log-json")
	log.Init(log.Config{Level: log.Level(level), JSONOutput: jsonOut})
}

func run(cmd *cobra.Command, args []string) error {
	clusterPath, _ := cmd.Flags().GetString("cluster")
	descPath, _ := cmd.Flags().GetString("ldms_config")
	prefixOverride, _ := cmd.Flags().GetString("prefix")
	dump, _ := cmd.Flags().GetBool("dump")
	dialTimeout, _ := cmd.Flags().GetDuration("dial-timeout")
	schemaVersion, _ := cmd.Flags().GetInt("version")
	if schemaVersion != 4 && schemaVersion != 5 {
		return fmt.Errorf("--version must be 4 or 5, got %d", schemaVersion)
	}

	clusterCfg, err := store.LoadClusterConfig(clusterPath)
	if err != nil {
		return fmt.Errorf("load cluster config: %w", err)
	}

	prefix := clusterCfg.Prefix
	if prefixOverride != "" {
		prefix = prefixOverride
	}

	if dump {
		return dumpDescription(descPath)
	}

	ds, err := clusterCfg.Dial(dialTimeout)
	if err != nil {
		return fmt.Errorf("connect to datastore at %s: %w", clusterCfg.Endpoint(), err)
	}
	defer ds.Close()

	cache, err := store.OpenCache("./ldms-configure-data")
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to open local cache: %v\n", err)
		cache = nil
	} else {
		defer cache.Close()
	}

	ctrl := controller.New(prefix, ds, cache)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := ctrl.ConfigureOnce(ctx, descPath); err != nil {
		return fmt.Errorf("configure: %w", err)
	}

	fmt.Printf("configuration pushed under /%s\n", prefix)
	return nil
}

func dumpDescription(descPath string) error {
	tree, err := topology.LoadDescription(descPath)
	if err != nil {
		return fmt.Errorf("load description: %w", err)
	}
	state, err := topology.Load(tree)
	if err != nil {
		return fmt.Errorf("validate description: %w", err)
	}

	fmt.Printf("hosts: %d\n", len(state.Hosts))
	for name, host := range state.Hosts {
		fmt.Printf("  %-20s %s:%s (xprt=%s auth=%s)\n", name, host.Addr, host.Port, host.Xprt, host.Auth.Name)
	}
	fmt.Printf("aggregator groups: %d\n", len(state.AggregatorsByGroup))
	for group, ag := range state.AggregatorsByGroup {
		fmt.Printf("  %-20s %d aggregators\n", group, len(ag.Aggregators))
	}
	fmt.Printf("sampler specs: %d\n", len(state.SamplersByKey))
	fmt.Printf("producer groups: %d\n", len(state.ProducersByGroup))
	fmt.Printf("updater groups: %d\n", len(state.UpdatersByGroup))
	fmt.Printf("store groups: %d\n", len(state.StoresByGroup))
	return nil
}
