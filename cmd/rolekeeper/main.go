package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"
	"go.opentelemetry.io/otel"
	"go.uber.org/automaxprocs/maxprocs"
	"k8s.io/klog/v2"

	"github.com/bft-labs/rolekeeper/internal/cliconfig"
	"github.com/bft-labs/rolekeeper/pkg/log"
	"github.com/bft-labs/rolekeeper/pkg/rolekeeper"
	"github.com/bft-labs/rolekeeper/plugins/inventorywatcher"
)

const helpDescription = `
Keep the master/slave role of your network devices in step with a
cluster-wide election.

Highlights:
  - One election per device: the elected controller promotes the device to master.
  - Local election for single controllers, Kubernetes Leases for clusters.
  - Devices come from a TOML or YAML inventory, reloaded on change with --watch.
  - The last known role of every device is kept in the state dir (see "rolekeeper status").
`

var longHelp = "rolekeeper\n\n" + strings.TrimSpace(helpDescription)

var exampleUsage = strings.TrimSpace(`
  rolekeeper --inventory /etc/rolekeeper/devices.toml
  rolekeeper --inventory devices.yaml --election kubernetes --namespace network --watch
  rolekeeper status
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	fallback, _ := cliconfig.NewLogger("info")

	root := &cobra.Command{
		Use:           "rolekeeper",
		Short:         "Coordinate the master/slave role of network devices across controllers",
		Long:          longHelp,
		Example:       exampleUsage,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadConfig(cmd, cfgPath, &cfg); err != nil {
				return err
			}

			// Validate and set derived defaults
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger, err := cliconfig.NewLogger(cfg.LogLevel)
			if err != nil {
				return err
			}
			return run(cfg, logger)
		},
	}

	// Flags
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.rolekeeper/config.toml)")
	root.PersistentFlags().StringVar(&cfg.StateDir, "state-dir", cfg.StateDir, "state directory for status.json (default: $HOME/.rolekeeper)")

	root.Flags().StringVar(&cfg.Inventory, "inventory", cfg.Inventory, "device inventory file (.toml, .yaml or .yml)")
	root.Flags().BoolVar(&cfg.Watch, "watch", cfg.Watch, "reload the inventory when the file changes")
	root.Flags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")

	root.Flags().StringVar(&cfg.Election, "election", cfg.Election, "election backend (local or kubernetes)")
	root.Flags().StringVar(&cfg.Namespace, "namespace", cfg.Namespace, "namespace of the device leases")
	root.Flags().StringVar(&cfg.LeasePrefix, "lease-prefix", cfg.LeasePrefix, "prefix of the device lease names")
	root.Flags().StringVar(&cfg.Identity, "identity", cfg.Identity, "lease holder identity (default: random per device)")
	root.Flags().StringVar(&cfg.Kubeconfig, "kubeconfig", cfg.Kubeconfig, "kubeconfig used outside of a cluster")
	root.Flags().DurationVar(&cfg.LeaseDuration, "lease-duration", cfg.LeaseDuration, "lease duration")
	root.Flags().DurationVar(&cfg.RenewDeadline, "renew-deadline", cfg.RenewDeadline, "time the leader keeps retrying to renew")
	root.Flags().DurationVar(&cfg.RetryPeriod, "retry-period", cfg.RetryPeriod, "interval between lease acquire attempts")

	root.Flags().IntVar(&cfg.Workers, "workers", cfg.Workers, "notification worker goroutines")
	root.Flags().IntVar(&cfg.QueueSize, "queue-size", cfg.QueueSize, "pending notification capacity")

	root.Flags().DurationVar(&cfg.HTTPTimeout, "timeout", cfg.HTTPTimeout, "HTTP timeout for device requests")
	root.Flags().Float64Var(&cfg.RateLimit, "rate-limit", cfg.RateLimit, "role requests per second per device (0 disables)")
	root.Flags().IntVar(&cfg.RateBurst, "rate-burst", cfg.RateBurst, "role request burst per device")

	root.AddCommand(newStatusCommand(&cfg, &cfgPath))

	if err := root.Execute(); err != nil {
		fallback.Error("rolekeeper", log.Err(err))
		os.Exit(1)
	}
}

// loadConfig applies the config file and ROLEKEEPER_* variables under the
// flags set on cmd.
func loadConfig(cmd *cobra.Command, cfgPath string, cfg *cliconfig.Config) error {
	cfgFile := cfgPath
	if cfgFile == "" {
		cfgFile = cliconfig.DefaultConfigPath()
	}

	// Build set of changed flags
	changed := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

	if cfgFile != "" && cliconfig.FileExists(cfgFile) {
		fc, err := cliconfig.LoadFileConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := cliconfig.ApplyFileConfig(cfg, fc, changed); err != nil {
			return err
		}
	}

	// Environment overrides the file but not flags
	if err := cliconfig.ApplyEnvConfig(cfg, changed); err != nil {
		return fmt.Errorf("load environment: %w", err)
	}
	return nil
}

func run(cfg cliconfig.Config, logger *log.ZerologAdapter) error {
	if _, err := maxprocs.Set(maxprocs.Logger(func(format string, args ...interface{}) {
		logger.Debug(fmt.Sprintf(format, args...))
	})); err != nil {
		logger.Warn("failed to set GOMAXPROCS", log.Err(err))
	}

	// client-go leader election logs through klog.
	klog.SetLogger(log.NewLogr(logger.With(log.String("component", "klog"))))

	logger.Info("configuration", log.Any("config", cfg))

	devices, err := cliconfig.LoadInventory(cfg.Inventory)
	if err != nil {
		return fmt.Errorf("load inventory: %w", err)
	}

	libCfg := rolekeeper.Config{
		Devices:       devices,
		StateDir:      cfg.StateDir,
		Election:      cfg.Election,
		Namespace:     cfg.Namespace,
		LeasePrefix:   cfg.LeasePrefix,
		Identity:      cfg.Identity,
		Kubeconfig:    cfg.Kubeconfig,
		LeaseDuration: cfg.LeaseDuration,
		RenewDeadline: cfg.RenewDeadline,
		RetryPeriod:   cfg.RetryPeriod,
		Workers:       cfg.Workers,
		QueueSize:     cfg.QueueSize,
		HTTPTimeout:   cfg.HTTPTimeout,
		RateLimit:     cfg.RateLimit,
		RateBurst:     cfg.RateBurst,
	}

	opts := []rolekeeper.Option{
		rolekeeper.WithLogger(logger),
		rolekeeper.WithMeterProvider(otel.GetMeterProvider()),
	}
	if cfg.Watch {
		watchCfg := inventorywatcher.DefaultConfig()
		watchCfg.Path = cfg.Inventory
		opts = append(opts, inventorywatcher.WithInventoryWatcher(watchCfg))
	}

	rk, err := rolekeeper.New(libCfg, opts...)
	if err != nil {
		return fmt.Errorf("create rolekeeper: %w", err)
	}

	// Setup signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	if err := rk.Start(ctx); err != nil {
		return fmt.Errorf("start rolekeeper: %w", err)
	}

	sig := <-sigCh
	logger.Info("received signal, stopping...", log.String("signal", sig.String()))

	if err := rk.Stop(); err != nil {
		return fmt.Errorf("stop rolekeeper: %w", err)
	}
	return nil
}
