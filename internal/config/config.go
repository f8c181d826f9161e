package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const DefaultBaseURL = "https://ladsweb.modaps.eosdis.nasa.gov/archive/allData"

type Config struct {
	Log          Log       `mapstructure:"log"           validate:"required"`
	Telemetry    Telemetry `mapstructure:"telemetry"     validate:"required"`
	Server       Server    `mapstructure:"server"        validate:"required"`
	Download     Download  `mapstructure:"download"      validate:"required"`
	SettingsFile string    `mapstructure:"settings_file"`
}

type Log struct {
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	LogDir   string `mapstructure:"log_dir"`
}

type Telemetry struct {
	Enabled     bool              `mapstructure:"enabled"`
	Exporter    string            `mapstructure:"exporter"     validate:"oneof=otlp stdout none"`
	Endpoint    string            `mapstructure:"endpoint"`
	Protocol    string            `mapstructure:"protocol"     validate:"omitempty,oneof=grpc http"`
	Insecure    bool              `mapstructure:"insecure"`
	Headers     map[string]string `mapstructure:"headers"`
	ServiceName string            `mapstructure:"service_name" validate:"required"`
}

type Server struct {
	BaseURL             string        `mapstructure:"base_url"             validate:"required,url"`
	Timeout             time.Duration `mapstructure:"timeout"              validate:"required,gt=0"`
	ConcurrentDownloads int           `mapstructure:"concurrent_downloads" validate:"min=0,max=64"`
	MaxListingBytes     int64         `mapstructure:"max_listing_bytes"    validate:"min=0"`
	UserAgent           string        `mapstructure:"user_agent"`
}

type Download struct {
	Directory   string   `mapstructure:"directory"    validate:"required"`
	MountRoot   string   `mapstructure:"mount_root"`
	Mounts      []string `mapstructure:"mounts"`
	MatchPolicy string   `mapstructure:"match_policy" validate:"oneof=bucket5 first"`
	MonthLocale string   `mapstructure:"month_locale" validate:"oneof=en it"`
	MinFreeMB   uint64   `mapstructure:"min_free_mb"`
	HourStart   int      `mapstructure:"hour_start"   validate:"min=0,max=23,ltefield=HourEnd"`
	HourEnd     int      `mapstructure:"hour_end"     validate:"min=0,max=23"`
	Collections []string `mapstructure:"collections"  validate:"dive,required"`
	ReportCSV   string   `mapstructure:"report_csv"`
}

// Load reads configuration from file, environment (MODIS_ prefix, also from
// a .env file in the working directory) and flags, in rising precedence.
// Only flags whose names contain a dot are bound; "log.log-level" sets
// log.log_level.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvPrefix("MODIS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	// Flexible file loading
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.modis-fetcher")
		v.AddConfigPath("/etc/modis-fetcher")
		v.SetConfigType("yaml")
	}

	setDefaults(v)

	if flags != nil {
		var bindErr error
		flags.VisitAll(func(f *pflag.Flag) {
			if bindErr != nil || !strings.Contains(f.Name, ".") {
				return
			}
			bindErr = v.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f)
		})
		if bindErr != nil {
			return Config{}, fmt.Errorf("bind flags: %w", bindErr)
		}
	}

	err := v.ReadInConfig()
	if err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("config read error: %w", err)
		}
		// Not found is ok, use defaults/env
	}

	var cfg Config
	if err := v.UnmarshalExact(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal error: %w", err)
	}

	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return Config{}, fmt.Errorf("validation failed: %w", err)
	}
	if cfg.Telemetry.Enabled && cfg.Telemetry.Exporter == "otlp" && cfg.Telemetry.Endpoint == "" {
		return Config{}, fmt.Errorf("telemetry.endpoint is required when using otlp exporter")
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.log_level", "info")
	v.SetDefault("log.log_dir", "logs")
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.exporter", "none")
	v.SetDefault("telemetry.endpoint", "localhost:4317")
	v.SetDefault("telemetry.protocol", "grpc")
	v.SetDefault("telemetry.insecure", true)
	v.SetDefault("telemetry.headers", map[string]string{})
	v.SetDefault("telemetry.service_name", "modis-fetcher")
	v.SetDefault("server.base_url", DefaultBaseURL)
	v.SetDefault("server.timeout", 30*time.Minute)
	v.SetDefault("server.concurrent_downloads", 0)
	v.SetDefault("server.max_listing_bytes", 32<<20)
	v.SetDefault("server.user_agent", "modis-fetcher")
	v.SetDefault("download.directory", "data")
	v.SetDefault("download.mount_root", "/mnt")
	v.SetDefault("download.mounts", []string{"NAS29F79B", "NASFA8369"})
	v.SetDefault("download.match_policy", "bucket5")
	v.SetDefault("download.month_locale", "en")
	v.SetDefault("download.min_free_mb", 0)
	v.SetDefault("download.hour_start", 3)
	v.SetDefault("download.hour_end", 15)
	v.SetDefault("download.collections", []string{"MYD03", "MYD021KM", "MYD35_L2"})
	v.SetDefault("download.report_csv", "")
	v.SetDefault("settings_file", "")
}
