// Package settings persists the few user choices that survive between runs:
// the access token, the archive id and the destination folder name.
package settings

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	DefaultArchiveID         = "61"
	DefaultDestinationFolder = "Archivio_7"
)

type Settings struct {
	Token             string `mapstructure:"token"              json:"token"`
	ArchiveID         string `mapstructure:"archive_id"         json:"archive_id"`
	DestinationFolder string `mapstructure:"destination_folder" json:"destination_folder"`
}

func Defaults() Settings {
	return Settings{
		ArchiveID:         DefaultArchiveID,
		DestinationFolder: DefaultDestinationFolder,
	}
}

// Store reads and writes Settings as a JSON file.
type Store struct {
	path   string
	logger *zap.SugaredLogger
}

func NewStore(path string, logger *zap.SugaredLogger) *Store {
	return &Store{path: path, logger: logger}
}

func (s *Store) Path() string {
	return s.path
}

// Load returns the stored settings. A missing or unreadable file yields
// Defaults; blank fields are filled from Defaults as well.
func (s *Store) Load() Settings {
	def := Defaults()
	v := s.viper(def)
	if err := v.ReadInConfig(); err != nil {
		s.logger.Debugw("Using default settings", "path", s.path, "error", err)
		return def
	}
	var out Settings
	if err := v.Unmarshal(&out); err != nil {
		s.logger.Debugw("Settings file is malformed, using defaults", "path", s.path, "error", err)
		return def
	}
	if out.ArchiveID == "" {
		out.ArchiveID = def.ArchiveID
	}
	if out.DestinationFolder == "" {
		out.DestinationFolder = def.DestinationFolder
	}
	return out
}

// Save writes st and reports whether it reached disk. Failures are logged at
// debug and otherwise ignored.
func (s *Store) Save(st Settings) bool {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		s.logger.Debugw("Could not create settings directory", "path", s.path, "error", err)
		return false
	}
	v := s.viper(Defaults())
	v.SetConfigPermissions(0o600)
	v.Set("token", st.Token)
	v.Set("archive_id", st.ArchiveID)
	v.Set("destination_folder", st.DestinationFolder)
	if err := v.WriteConfigAs(s.path); err != nil {
		s.logger.Debugw("Could not save settings", "path", s.path, "error", err)
		return false
	}
	return true
}

func (s *Store) viper(def Settings) *viper.Viper {
	v := viper.New()
	v.SetConfigFile(s.path)
	v.SetConfigType("json")
	v.SetDefault("token", def.Token)
	v.SetDefault("archive_id", def.ArchiveID)
	v.SetDefault("destination_folder", def.DestinationFolder)
	return v
}

// DefaultPath is settings.json under the user config directory, or in the
// working directory when that is unknown.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "settings.json"
	}
	return filepath.Join(dir, "modis-fetcher", "settings.json")
}
