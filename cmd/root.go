package cmd

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/wegman-software/lwgeom-go/internal/config"
	"github.com/wegman-software/lwgeom-go/internal/logger"
	"github.com/wegman-software/lwgeom-go/lwgeom"
)

var (
	cfg        = config.DefaultConfig()
	configFile string
	envFile    string
)

var rootCmd = &cobra.Command{
	Use:   "lwgeom",
	Short: "Geometry conversion and tile envelope toolkit",
	Long: `lwgeom converts geometries between WKT, EWKT, EWKB and GeoJSON and
computes map tile envelopes.

Settings are read from, in increasing priority:
  - built-in defaults
  - a YAML file given with --config
  - LWGEOM_* variables from a .env file, then from the environment
  - command line flags`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "YAML configuration file")
	pf.StringVar(&envFile, "env-file", ".env", "dotenv file with LWGEOM_* overrides (ignored when missing)")

	pf.BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "Enable verbose output")
	pf.StringVarP(&cfg.OutputDir, "output-dir", "o", cfg.OutputDir, "Directory for generated files")
	pf.IntVarP(&cfg.Workers, "workers", "j", cfg.Workers, "Number of parallel workers")
	pf.IntVar(&cfg.Precision, "precision", cfg.Precision, "Decimal digits in text output")

	// Logging and metrics flags
	pf.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "Path to log file for persistent logging (JSON format)")
	pf.DurationVar(&cfg.MetricsInterval, "metrics-interval", cfg.MetricsInterval, "Interval for system metrics logging (0 disables)")

	// Database flags (persistent so they're available to all subcommands)
	pf.StringVar(&cfg.DBHost, "db-host", cfg.DBHost, "PostgreSQL host")
	pf.IntVar(&cfg.DBPort, "db-port", cfg.DBPort, "PostgreSQL port")
	pf.StringVarP(&cfg.DBName, "db-name", "d", cfg.DBName, "PostgreSQL database name")
	pf.StringVarP(&cfg.DBUser, "db-user", "U", cfg.DBUser, "PostgreSQL user")
	pf.StringVarP(&cfg.DBPassword, "db-password", "W", cfg.DBPassword, "PostgreSQL password")
}

// loadConfig layers the config file and environment under the flags. Flags
// write straight into cfg, so the values given on the command line are
// captured first and replayed once the other sources are applied.
func loadConfig(cmd *cobra.Command, args []string) error {
	explicit := map[string]string{}
	cmd.Flags().Visit(func(f *pflag.Flag) {
		explicit[f.Name] = f.Value.String()
	})

	if configFile != "" {
		if err := cfg.LoadFile(configFile); err != nil {
			return err
		}
	}
	if err := cfg.ApplyEnv(envFile); err != nil {
		return err
	}
	for name, value := range explicit {
		if err := cmd.Flags().Set(name, value); err != nil {
			return err
		}
	}

	if cfg.LogFile != "" {
		logger.InitWithFile(cfg.Verbose, cfg.LogFile)
	} else {
		logger.Init(cfg.Verbose)
	}
	return cfg.Validate()
}

// newContext returns a geometry context logging engine notices through the
// global logger.
func newContext() *lwgeom.Context {
	return lwgeom.NewContext(lwgeom.WithLogger(logger.Get()))
}

func exitWithError(msg string, err error) {
	log := logger.Get()
	if err != nil {
		log.Error(msg, zap.Error(err))
	} else {
		log.Error(msg)
	}
	logger.Sync()
	os.Exit(1)
}

func elapsed(start time.Time) zap.Field {
	return zap.Duration("duration", time.Since(start).Round(time.Millisecond))
}
