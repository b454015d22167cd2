package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// Mode constants
	ModeWatch   = "watch"
	ModeOnce    = "once"
	ModeConvert = "convert"

	// Storage backend constants
	StorageDropbox = "dropbox"
	StorageLocal   = "local"

	// Default values
	DefaultFolder       = "/PDFs_a_Convertir"
	DefaultPollInterval = 60 * time.Second
	DefaultLogLevel     = "info"
	DefaultLogFormat    = "text"
	DefaultMaxFileSize  = 100 * 1024 * 1024 // 100MB
	DefaultExclude      = "Nombre,Nº"

	// Directory permissions
	DefaultDirPerm = 0o750
)

// Config holds all configuration for the tabledrop converter
type Config struct {
	// Run configuration
	Mode         string // "watch", "once" or "convert"
	Folder       string
	Storage      string // "dropbox" or "local"
	LocalRoot    string
	PollInterval time.Duration
	StatePath    string // empty means in-memory state

	// Conversion configuration
	Exclude            string // comma-separated column names dropped from right pages
	FailOnMissingTable bool
	MaxFileSize        int64 // Maximum PDF file size in bytes

	// Application configuration
	Version   string
	LogLevel  string
	LogFormat string

	// Dropbox credentials, environment only
	DropboxToken        string
	DropboxAppKey       string
	DropboxAppSecret    string
	DropboxRefreshToken string
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Mode:               ModeWatch,
		Folder:             DefaultFolder,
		Storage:            StorageDropbox,
		PollInterval:       DefaultPollInterval,
		Exclude:            DefaultExclude,
		FailOnMissingTable: false,
		MaxFileSize:        DefaultMaxFileSize,
		Version:            "1.0.0",
		LogLevel:           DefaultLogLevel,
		LogFormat:          DefaultLogFormat,
	}
}

// LoadFromFlags parses command line flags and returns a configuration
func LoadFromFlags() (*Config, error) {
	cfg := DefaultConfig()

	setupViperEnvironment(cfg)
	defineCommandLineFlags(cfg)
	bindFlagsToViper()
	setupUsageMessage()

	// Check for version flag before parsing
	if err := checkVersionFlag(); err != nil {
		return nil, err
	}

	pflag.Parse()

	populateConfigFromViper(cfg)

	// Expand paths if needed
	if cfg.LocalRoot != "" {
		if expandedPath, err := filepath.Abs(cfg.LocalRoot); err == nil {
			cfg.LocalRoot = expandedPath
		}
	}
	if cfg.StatePath != "" {
		if expandedPath, err := filepath.Abs(cfg.StatePath); err == nil {
			cfg.StatePath = expandedPath
		}
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setupViperEnvironment configures viper with environment variables and defaults
func setupViperEnvironment(cfg *Config) {
	// Set environment variable prefix
	viper.SetEnvPrefix("TABLEDROP")
	viper.AutomaticEnv()

	// Define flags with Viper
	viper.SetDefault("mode", cfg.Mode)
	viper.SetDefault("folder", cfg.Folder)
	viper.SetDefault("storage", cfg.Storage)
	viper.SetDefault("localroot", cfg.LocalRoot)
	viper.SetDefault("interval", cfg.PollInterval)
	viper.SetDefault("state", cfg.StatePath)
	viper.SetDefault("exclude", cfg.Exclude)
	viper.SetDefault("strict", cfg.FailOnMissingTable)
	viper.SetDefault("loglevel", cfg.LogLevel)
	viper.SetDefault("logformat", cfg.LogFormat)
	viper.SetDefault("maxfilesize", cfg.MaxFileSize)

	// Credentials have no flags, they are read from the environment only
	viper.SetDefault("dropbox_token", "")
	viper.SetDefault("dropbox_app_key", "")
	viper.SetDefault("dropbox_app_secret", "")
	viper.SetDefault("dropbox_refresh_token", "")
}

// defineCommandLineFlags sets up all command line flags
func defineCommandLineFlags(cfg *Config) {
	pflag.String("mode", cfg.Mode, "Run mode: 'watch' to poll the folder, 'once' for a single sweep, 'convert' for one local file")
	pflag.String("folder", cfg.Folder, "Remote folder to watch for PDF files")
	pflag.String("storage", cfg.Storage, "Storage backend: 'dropbox' or 'local'")
	pflag.String("localroot", cfg.LocalRoot, "Root directory for the 'local' storage backend")
	pflag.Duration("interval", cfg.PollInterval, "Delay between polls in watch mode")
	pflag.String("state", cfg.StatePath, "Path to the processed-files database (empty keeps state in memory)")
	pflag.String("exclude", cfg.Exclude, "Comma-separated column names dropped from right pages")
	pflag.Bool("strict", cfg.FailOnMissingTable, "Fail the conversion when a left page has no detectable table")
	pflag.String("loglevel", cfg.LogLevel, "Log level (debug, info, warn, error)")
	pflag.String("logformat", cfg.LogFormat, "Log format (text, json)")
	pflag.Int64("maxfilesize", cfg.MaxFileSize, "Maximum PDF file size in bytes")
}

// bindFlagsToViper binds command line flags to viper configuration
func bindFlagsToViper() {
	_ = viper.BindPFlag("mode", pflag.Lookup("mode"))
	_ = viper.BindPFlag("folder", pflag.Lookup("folder"))
	_ = viper.BindPFlag("storage", pflag.Lookup("storage"))
	_ = viper.BindPFlag("localroot", pflag.Lookup("localroot"))
	_ = viper.BindPFlag("interval", pflag.Lookup("interval"))
	_ = viper.BindPFlag("state", pflag.Lookup("state"))
	_ = viper.BindPFlag("exclude", pflag.Lookup("exclude"))
	_ = viper.BindPFlag("strict", pflag.Lookup("strict"))
	_ = viper.BindPFlag("loglevel", pflag.Lookup("loglevel"))
	_ = viper.BindPFlag("logformat", pflag.Lookup("logformat"))
	_ = viper.BindPFlag("maxfilesize", pflag.Lookup("maxfilesize"))
}

// setupUsageMessage configures the custom usage message
func setupUsageMessage() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\ntabledrop - Converts table PDFs in a storage folder into spreadsheets\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                                          "+
			"# watch the default Dropbox folder\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --folder=/Reports --interval=5m          "+
			"# watch a custom folder every five minutes\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mode=once --storage=local --localroot=/srv/drop  # single local sweep\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mode=convert input.pdf [output.xlsx]   # convert one file, no storage\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  TABLEDROP_MODE                   Run mode\n")
		fmt.Fprintf(os.Stderr, "  TABLEDROP_FOLDER                 Watched folder\n")
		fmt.Fprintf(os.Stderr, "  TABLEDROP_STORAGE                Storage backend\n")
		fmt.Fprintf(os.Stderr, "  TABLEDROP_LOCALROOT              Local storage root\n")
		fmt.Fprintf(os.Stderr, "  TABLEDROP_INTERVAL               Poll interval\n")
		fmt.Fprintf(os.Stderr, "  TABLEDROP_STATE                  Processed-files database path\n")
		fmt.Fprintf(os.Stderr, "  TABLEDROP_EXCLUDE                Columns dropped from right pages\n")
		fmt.Fprintf(os.Stderr, "  TABLEDROP_STRICT                 Fail on missing left-page table\n")
		fmt.Fprintf(os.Stderr, "  TABLEDROP_LOGLEVEL               Log level\n")
		fmt.Fprintf(os.Stderr, "  TABLEDROP_LOGFORMAT              Log format\n")
		fmt.Fprintf(os.Stderr, "  TABLEDROP_MAXFILESIZE            Maximum file size\n")
		fmt.Fprintf(os.Stderr, "  TABLEDROP_DROPBOX_TOKEN          Dropbox access token\n")
		fmt.Fprintf(os.Stderr, "  TABLEDROP_DROPBOX_APP_KEY        Dropbox app key\n")
		fmt.Fprintf(os.Stderr, "  TABLEDROP_DROPBOX_APP_SECRET     Dropbox app secret\n")
		fmt.Fprintf(os.Stderr, "  TABLEDROP_DROPBOX_REFRESH_TOKEN  Dropbox refresh token\n")
	}
}

// checkVersionFlag checks if version flag was requested
func checkVersionFlag() error {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			return fmt.Errorf("version requested")
		}
	}
	return nil
}

// populateConfigFromViper fills the config struct with values from viper
func populateConfigFromViper(cfg *Config) {
	cfg.Mode = viper.GetString("mode")
	cfg.Folder = viper.GetString("folder")
	cfg.Storage = viper.GetString("storage")
	cfg.LocalRoot = viper.GetString("localroot")
	cfg.PollInterval = viper.GetDuration("interval")
	cfg.StatePath = viper.GetString("state")
	cfg.Exclude = viper.GetString("exclude")
	cfg.FailOnMissingTable = viper.GetBool("strict")
	cfg.LogLevel = viper.GetString("loglevel")
	cfg.LogFormat = viper.GetString("logformat")
	cfg.MaxFileSize = viper.GetInt64("maxfilesize")

	cfg.DropboxToken = viper.GetString("dropbox_token")
	cfg.DropboxAppKey = viper.GetString("dropbox_app_key")
	cfg.DropboxAppSecret = viper.GetString("dropbox_app_secret")
	cfg.DropboxRefreshToken = viper.GetString("dropbox_refresh_token")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate mode
	if c.Mode != ModeWatch && c.Mode != ModeOnce && c.Mode != ModeConvert {
		return errors.New("mode must be one of 'watch', 'once' or 'convert'")
	}

	// Storage only matters when files move through a backend
	if c.Mode != ModeConvert {
		if c.Storage != StorageDropbox && c.Storage != StorageLocal {
			return errors.New("storage must be either 'dropbox' or 'local'")
		}

		if c.Folder == "" {
			return errors.New("folder cannot be empty")
		}

		if c.Storage == StorageLocal {
			if c.LocalRoot == "" {
				return errors.New("localroot cannot be empty when storage is 'local'")
			}

			// Check if the local root exists, create if it doesn't
			if _, err := os.Stat(c.LocalRoot); os.IsNotExist(err) {
				if err := os.MkdirAll(c.LocalRoot, DefaultDirPerm); err != nil {
					return fmt.Errorf("cannot create local root %s: %w", c.LocalRoot, err)
				}
			} else if err != nil {
				return fmt.Errorf("cannot access local root %s: %w", c.LocalRoot, err)
			}
		}
	}

	// Validate poll interval (only for watch mode)
	if c.Mode == ModeWatch && c.PollInterval <= 0 {
		return errors.New("interval must be positive")
	}

	// Validate max file size
	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	// Validate log format
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("invalid log format: %s (must be 'text' or 'json')", c.LogFormat)
	}

	return nil
}

// ExcludeColumns returns the configured exclusion list as a slice
func (c *Config) ExcludeColumns() []string {
	if c.Exclude == "" {
		return nil
	}

	parts := strings.Split(c.Exclude, ",")
	names := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			names = append(names, trimmed)
		}
	}
	return names
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// String returns a string representation of the configuration
func (c *Config) String() string {
	return fmt.Sprintf("Config{Mode: %s, Storage: %s, Folder: %s, Interval: %s, LogLevel: %s, MaxFileSize: %d}",
		c.Mode, c.Storage, c.Folder, c.PollInterval, c.LogLevel, c.MaxFileSize)
}

// IsWatchMode returns true if the converter keeps polling the folder
func (c *Config) IsWatchMode() bool {
	return c.Mode == ModeWatch
}

// IsConvertMode returns true if a single local file is converted
func (c *Config) IsConvertMode() bool {
	return c.Mode == ModeConvert
}
