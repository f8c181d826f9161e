package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Qubut/IP-Claim/packages/modis_fetcher/internal"
	"github.com/Qubut/IP-Claim/packages/modis_fetcher/internal/config"
	"github.com/Qubut/IP-Claim/packages/modis_fetcher/internal/telemetry"
)

var (
	cfgFile  string
	verbose  bool
	cfg      config.Config
	logger   *zap.SugaredLogger
	tracer   trace.Tracer
	meter    metric.Meter
	shutdown func(context.Context) error
	services *internal.Services
	render   *renderer
	Version  = "dev" // Set at build time: go build -ldflags "-X github.com/Qubut/IP-Claim/packages/modis_fetcher/cmd.Version=v1.0.0"
)

var RootCmd = &cobra.Command{
	Use:           "modis-fetcher",
	Short:         "Mirror MODIS granules from the LAADS archive by date and hour window",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile, cmd.Flags())
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		var logFile string
		if logDir := cfg.Log.LogDir; logDir != "" {
			if err := os.MkdirAll(logDir, 0o755); err != nil {
				return fmt.Errorf("create log directory: %w", err)
			}
			logFile = filepath.Join(logDir,
				fmt.Sprintf("modis-fetcher[%s].log", time.Now().Format("20060102-150405")))
		}

		teleCfg := telemetry.Config{
			Enabled:     cfg.Telemetry.Enabled,
			ServiceName: cfg.Telemetry.ServiceName,
			Exporter:    cfg.Telemetry.Exporter,
			Endpoint:    cfg.Telemetry.Endpoint,
			Protocol:    cfg.Telemetry.Protocol,
			Insecure:    cfg.Telemetry.Insecure,
			Headers:     cfg.Telemetry.Headers,
			LogFile:     logFile,
			LogLevel:    cfg.Log.LogLevel,
		}
		tracer, meter, logger, shutdown, err = telemetry.InitOTEL(teleCfg)
		if err != nil {
			return fmt.Errorf("init telemetry: %w", err)
		}

		minLevel := zapcore.InfoLevel
		if verbose {
			minLevel = zapcore.DebugLevel
		}
		render = newRenderer(os.Stdout, minLevel)
		services, err = internal.InitServices(cfg, tracer, logger, meter, render)
		if err != nil {
			return fmt.Errorf("init services: %w", err)
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if shutdown != nil {
			if err := shutdown(context.Background()); err != nil {
				logger.Errorw("shutdown error", "err", err)
				return err
			}
		}
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of modis-fetcher",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(Version)
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Config operations",
}

var printConfigCmd = &cobra.Command{
	Use:   "print",
	Short: "Print the current loaded configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal config: %w", err)
		}
		fmt.Println(string(data))
		return nil
	},
}

func init() {
	RootCmd.PersistentFlags().
		StringVar(&cfgFile, "config", "", "Path to config file (yaml/json/toml)")
	RootCmd.PersistentFlags().
		BoolVarP(&verbose, "verbose", "v", false, "Also print debug events")

	// Dotted names are bound to the config key of the same path.
	type flagDef struct {
		name, def, usage string
	}
	flags := []flagDef{
		{"log.log-level", "info", "Log level (debug/info/warn/error)"},
		{"log.log-dir", "logs", "Directory for JSON log files, empty to disable"},
		{"telemetry.enabled", "false", "Enable OpenTelemetry"},
		{"telemetry.exporter", "none", "Telemetry exporter (otlp|stdout|none)"},
		{"telemetry.endpoint", "localhost:4317", "OTLP endpoint (host:port)"},
		{"telemetry.protocol", "grpc", "OTLP protocol (grpc|http)"},
		{"server.base-url", config.DefaultBaseURL, "Archive base URL"},
		{"server.timeout", "30m", "Per request timeout (duration)"},
		{"server.concurrent-downloads", "0", "Concurrent downloads per day, 0 for unbounded"},
		{"download.directory", "data", "Default local destination"},
		{"download.mount-root", "/mnt", "Directory holding the named mounts"},
		{"download.match-policy", "bucket5", "Default match policy (bucket5|first)"},
		{"download.month-locale", "en", "Month folder language (en|it)"},
		{"download.min-free-mb", "0", "Abort when the destination has less free space, 0 disables"},
		{"download.report-csv", "", "Write a CSV run report to this path"},
	}
	for _, f := range flags {
		RootCmd.PersistentFlags().String(f.name, f.def, f.usage)
	}

	configCmd.AddCommand(printConfigCmd)

	RootCmd.AddCommand(downloadCmd)
	RootCmd.AddCommand(settingsCmd)
	RootCmd.AddCommand(versionCmd)
	RootCmd.AddCommand(configCmd)
}
