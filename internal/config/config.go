package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/N525610/broker-advice-extractor/internal/advice"
)

const (
	// Mode constants
	ModeCLI    = "cli"
	ModeStdio  = "stdio"
	ModeServer = "server"

	// Default values
	DefaultPort        = 8080
	DefaultHost        = "127.0.0.1"
	DefaultLogLevel    = "info"
	DefaultMaxFileSize = 100 * 1024 * 1024 // 100MB

	// Directory permissions
	DefaultDirPerm = 0o750

	// EnvPrefix prefixes every environment variable, e.g. BROKER_ADVICE_PORT
	EnvPrefix = "BROKER_ADVICE"
)

// ErrVersionRequested is returned by Load when --version is given
var ErrVersionRequested = errors.New("version requested")

// Config holds all configuration for the broker advice extractor
type Config struct {
	// Server configuration
	Mode string // "cli", "stdio" or "server"
	Host string
	Port int

	// Document configuration
	PDFDirectory string
	OutputPath   string
	JSON         bool
	Files        []string

	// Extraction configuration
	TaxonomyFile   string
	ColonRequired  bool
	MinPartyOffset int
	LookbackWindow int
	DateScanLines  int

	// Application configuration
	ConfigFile  string
	Version     string
	ServerName  string
	LogLevel    string
	MaxFileSize int64 // Maximum PDF file size in bytes

	taxonomy *advice.Taxonomy
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	currentDir, err := os.Getwd()
	if err != nil {
		currentDir = "."
	}

	opts := advice.DefaultOptions()
	return &Config{
		Mode:           ModeCLI,
		Host:           DefaultHost,
		Port:           DefaultPort,
		PDFDirectory:   currentDir,
		ColonRequired:  opts.Capture.ColonRequired,
		MinPartyOffset: opts.Party.MinOffset,
		LookbackWindow: opts.Party.LookbackWindow,
		DateScanLines:  opts.Capture.DateScanLines,
		Version:        "1.0.0",
		ServerName:     "broker-advice-extractor",
		LogLevel:       DefaultLogLevel,
		MaxFileSize:    DefaultMaxFileSize,
	}
}

// Load resolves configuration from args, BROKER_ADVICE_* environment
// variables and an optional --config YAML file, in that order of precedence.
// Usage is written to usage on --help.
func Load(args []string, usage io.Writer) (*Config, error) {
	cfg := DefaultConfig()

	if checkVersionFlag(args) {
		return nil, ErrVersionRequested
	}

	fs := pflag.NewFlagSet("broker-advice-extractor", pflag.ContinueOnError)
	fs.SetOutput(usage)
	defineCommandLineFlags(fs, cfg)
	setupUsageMessage(fs, usage)

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	v := setupViperEnvironment(cfg)
	if err := v.BindPFlags(fs); err != nil {
		return nil, fmt.Errorf("bind flags: %w", err)
	}

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	populateConfigFromViper(v, cfg)
	cfg.Files = fs.Args()

	// Expand paths if needed
	if cfg.PDFDirectory != "" {
		if expandedPath, err := filepath.Abs(cfg.PDFDirectory); err == nil {
			cfg.PDFDirectory = expandedPath
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// setupViperEnvironment configures viper with environment variables and defaults
func setupViperEnvironment(cfg *Config) *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("mode", cfg.Mode)
	v.SetDefault("host", cfg.Host)
	v.SetDefault("port", cfg.Port)
	v.SetDefault("dir", cfg.PDFDirectory)
	v.SetDefault("loglevel", cfg.LogLevel)
	v.SetDefault("maxfilesize", cfg.MaxFileSize)
	v.SetDefault("colon-required", cfg.ColonRequired)
	v.SetDefault("min-party-offset", cfg.MinPartyOffset)
	v.SetDefault("lookback-window", cfg.LookbackWindow)
	v.SetDefault("date-scan-lines", cfg.DateScanLines)
	return v
}

// defineCommandLineFlags sets up all command line flags
func defineCommandLineFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.String("mode", cfg.Mode, "Run mode: 'cli' to extract files, 'stdio' for MCP, 'server' for HTTP")
	fs.String("host", cfg.Host, "Server host address (server mode only)")
	fs.Int("port", cfg.Port, "Server port (server mode only)")
	fs.String("dir", cfg.PDFDirectory, "Directory containing broker advice PDFs (stdio and server modes)")
	fs.StringP("out", "o", "", "Workbook output directory, or an .xlsx file for a single PDF")
	fs.Bool("json", false, "Print results as JSON instead of Field: Value lines")
	fs.String("config", "", "Optional YAML configuration file")
	fs.String("taxonomy", "", "YAML taxonomy overriding the built-in field labels")
	fs.Bool("colon-required", cfg.ColonRequired, "Require a colon after field labels")
	fs.Int("min-party-offset", cfg.MinPartyOffset, "Ignore identifiers before this character offset (letterhead)")
	fs.Int("lookback-window", cfg.LookbackWindow, "Characters searched before an identifier for a party name")
	fs.Int("date-scan-lines", cfg.DateScanLines, "Lines scanned for an unlabeled contract date")
	fs.String("loglevel", cfg.LogLevel, "Log level (debug, info, warn, error)")
	fs.Int64("maxfilesize", cfg.MaxFileSize, "Maximum PDF file size in bytes")
}

// setupUsageMessage configures the custom usage message
func setupUsageMessage(fs *pflag.FlagSet, w io.Writer) {
	fs.Usage = func() {
		fmt.Fprintf(w, "Usage of %s:\n", fs.Name())
		fmt.Fprintf(w, "\nBroker Advice Extractor - turns broker advice PDFs into a Field/Value workbook\n\n")
		fmt.Fprintf(w, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(w, "\nExamples:\n")
		fmt.Fprintf(w, "  %s advice.pdf                          # print fields, write workbook beside the PDF\n", fs.Name())
		fmt.Fprintf(w, "  %s --out=exports ./inbox               # every PDF below ./inbox\n", fs.Name())
		fmt.Fprintf(w, "  %s --json advice.pdf                   # JSON output\n", fs.Name())
		fmt.Fprintf(w, "  %s --mode=stdio --dir=/path/to/pdfs    # MCP server\n", fs.Name())
		fmt.Fprintf(w, "  %s --mode=server --port=8081           # HTTP server\n", fs.Name())
		fmt.Fprintf(w, "\nEnvironment Variables:\n")
		fmt.Fprintf(w, "  %s_MODE, %s_HOST, %s_PORT, %s_DIR, %s_LOGLEVEL,\n",
			EnvPrefix, EnvPrefix, EnvPrefix, EnvPrefix, EnvPrefix)
		fmt.Fprintf(w, "  %s_MAXFILESIZE, %s_TAXONOMY, %s_MIN_PARTY_OFFSET, ...\n", EnvPrefix, EnvPrefix, EnvPrefix)
	}
}

// checkVersionFlag checks if version flag was requested
func checkVersionFlag(args []string) bool {
	for _, arg := range args {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			return true
		}
	}
	return false
}

// populateConfigFromViper fills the config struct with values from viper
func populateConfigFromViper(v *viper.Viper, cfg *Config) {
	cfg.Mode = v.GetString("mode")
	cfg.Host = v.GetString("host")
	cfg.Port = v.GetInt("port")
	cfg.PDFDirectory = v.GetString("dir")
	cfg.OutputPath = v.GetString("out")
	cfg.JSON = v.GetBool("json")
	cfg.ConfigFile = v.GetString("config")
	cfg.TaxonomyFile = v.GetString("taxonomy")
	cfg.ColonRequired = v.GetBool("colon-required")
	cfg.MinPartyOffset = v.GetInt("min-party-offset")
	cfg.LookbackWindow = v.GetInt("lookback-window")
	cfg.DateScanLines = v.GetInt("date-scan-lines")
	cfg.LogLevel = v.GetString("loglevel")
	cfg.MaxFileSize = v.GetInt64("maxfilesize")
}

// Validate checks if the configuration is valid and loads the taxonomy
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeCLI, ModeStdio, ModeServer:
	default:
		return errors.New("mode must be one of 'cli', 'stdio' or 'server'")
	}

	if c.Mode == ModeServer && (c.Port < 1 || c.Port > 65535) {
		return errors.New("port must be between 1 and 65535")
	}

	if c.Mode == ModeCLI && len(c.Files) == 0 {
		return errors.New("at least one PDF file or directory is required in cli mode")
	}

	if c.Mode == ModeStdio || c.Mode == ModeServer {
		if err := c.ensureDirectory(); err != nil {
			return err
		}
	}

	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}
	if c.MinPartyOffset < 0 {
		return errors.New("minimum party offset cannot be negative")
	}
	if c.LookbackWindow <= 0 {
		return errors.New("lookback window must be positive")
	}
	if c.DateScanLines <= 0 {
		return errors.New("date scan lines must be positive")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	t, err := advice.LoadTaxonomy(c.TaxonomyFile)
	if err != nil {
		return err
	}
	c.taxonomy = t
	return nil
}

func (c *Config) ensureDirectory() error {
	if c.PDFDirectory == "" {
		return errors.New("PDF directory cannot be empty")
	}

	// Check if PDF directory exists, create if it doesn't
	if _, err := os.Stat(c.PDFDirectory); os.IsNotExist(err) {
		if err := os.MkdirAll(c.PDFDirectory, DefaultDirPerm); err != nil {
			return fmt.Errorf("cannot create PDF directory %s: %w", c.PDFDirectory, err)
		}
	} else if err != nil {
		return fmt.Errorf("cannot access PDF directory %s: %w", c.PDFDirectory, err)
	}
	return nil
}

// Taxonomy returns the taxonomy loaded by Validate, or the built-in one
func (c *Config) Taxonomy() *advice.Taxonomy {
	if c.taxonomy == nil {
		return advice.DefaultTaxonomy()
	}
	return c.taxonomy
}

// ExtractOptions maps the heuristic settings onto extractor options
func (c *Config) ExtractOptions() advice.Options {
	opts := advice.DefaultOptions()
	opts.Capture.ColonRequired = c.ColonRequired
	opts.Capture.DateScanLines = c.DateScanLines
	opts.Party.MinOffset = c.MinPartyOffset
	opts.Party.LookbackWindow = c.LookbackWindow
	return opts
}

// Address returns the server address as host:port
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// String returns a string representation of the configuration
func (c *Config) String() string {
	return fmt.Sprintf("Config{Mode: %s, Host: %s, Port: %d, PDFDirectory: %s, LogLevel: %s, MaxFileSize: %d}",
		c.Mode, c.Host, c.Port, c.PDFDirectory, c.LogLevel, c.MaxFileSize)
}

// IsServerMode returns true if the HTTP server should run
func (c *Config) IsServerMode() bool {
	return c.Mode == ModeServer
}

// IsStdioMode returns true if the MCP stdio server should run
func (c *Config) IsStdioMode() bool {
	return c.Mode == ModeStdio
}

// IsCLIMode returns true if positional files should be extracted
func (c *Config) IsCLIMode() bool {
	return c.Mode == ModeCLI
}
