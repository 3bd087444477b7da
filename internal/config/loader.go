package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	// ConfigFileName is the base name for configuration files (without extension).
	ConfigFileName = "pricetag"

	// EnvPrefix is the prefix for environment variables.
	EnvPrefix = "PRICETAG"
)

// Loader handles loading configuration from various sources.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a loader on a fresh viper instance.
func NewLoader() *Loader {
	return &Loader{v: viper.New()}
}

// NewLoaderWith creates a loader on v, which may carry bound flags.
func NewLoaderWith(v *viper.Viper) *Loader {
	return &Loader{v: v}
}

// Load reads the first config file found on the search paths, environment
// variables and defaults, then validates the result.
func (l *Loader) Load() (*Config, error) {
	return l.LoadWithFile("")
}

// LoadWithFile is Load for a specific file. An empty path searches the
// standard locations; a missing file there is not an error.
func (l *Loader) LoadWithFile(configFile string) (*Config, error) {
	cfg, err := l.LoadWithFileWithoutValidation(configFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// LoadWithFileWithoutValidation loads configuration without validating it.
func (l *Loader) LoadWithFileWithoutValidation(configFile string) (*Config, error) {
	if configFile != "" {
		if _, err := os.Stat(configFile); os.IsNotExist(err) {
			return nil, fmt.Errorf("config file does not exist: %s", configFile)
		}
		l.v.SetConfigFile(configFile)
	} else {
		l.v.SetConfigName(ConfigFileName)
		l.v.SetConfigType("yaml")
		l.addConfigPaths()
	}

	l.setupEnvironmentVariables()
	l.setDefaults()

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := l.v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return &config, nil
}

// GetConfigFileUsed returns the path of the config file used.
func (l *Loader) GetConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// GetViper returns the underlying viper instance.
func (l *Loader) GetViper() *viper.Viper {
	return l.v
}

// addConfigPaths adds the standard configuration search paths.
func (l *Loader) addConfigPaths() {
	for _, p := range GetConfigSearchPaths() {
		l.v.AddConfigPath(p)
	}
}

// setupEnvironmentVariables maps keys like compose.band_color to
// PRICETAG_COMPOSE_BAND_COLOR.
func (l *Loader) setupEnvironmentVariables() {
	l.v.SetEnvPrefix(EnvPrefix)
	l.v.AutomaticEnv()
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
}

// setDefaults registers every key so that env lookups and unmarshaling see it.
func (l *Loader) setDefaults() {
	d := DefaultConfig()

	l.v.SetDefault("log_level", d.LogLevel)
	l.v.SetDefault("verbose", d.Verbose)
	l.v.SetDefault("markup", d.Markup)

	l.v.SetDefault("render.backend", d.Render.Backend)
	l.v.SetDefault("render.scale", d.Render.Scale)

	l.v.SetDefault("scan.text_backend", d.Scan.TextBackend)
	categories := make([]map[string]any, len(d.Scan.Categories))
	for i, c := range d.Scan.Categories {
		categories[i] = map[string]any{"keyword": c.Keyword, "name": c.Name}
	}
	l.v.SetDefault("scan.categories", categories)

	l.v.SetDefault("prices.header_marker", d.Prices.HeaderMarker)
	l.v.SetDefault("prices.sheet", d.Prices.Sheet)

	l.v.SetDefault("compose.band_height", d.Compose.BandHeight)
	l.v.SetDefault("compose.band_color", d.Compose.BandColor)
	l.v.SetDefault("compose.text_color", d.Compose.TextColor)
	l.v.SetDefault("compose.currency", d.Compose.Currency)
	l.v.SetDefault("compose.fonts", d.Compose.Fonts)
	l.v.SetDefault("compose.font_size", d.Compose.FontSize)
	l.v.SetDefault("compose.line_height", d.Compose.LineHeight)
	l.v.SetDefault("compose.fallback_line_height", d.Compose.FallbackLineHeight)
	l.v.SetDefault("compose.margin", d.Compose.Margin)

	l.v.SetDefault("pdf.user_password", d.PDF.UserPassword)
	l.v.SetDefault("pdf.owner_password", d.PDF.OwnerPassword)

	l.v.SetDefault("output.report", d.Output.Report)
	l.v.SetDefault("output.metrics_file", d.Output.MetricsFile)
	l.v.SetDefault("output.keep_work_dir", d.Output.KeepWorkDir)

	l.v.SetDefault("batch.recursive", d.Batch.Recursive)
	l.v.SetDefault("batch.continue_on_error", d.Batch.ContinueOnError)
	l.v.SetDefault("batch.suffix", d.Batch.Suffix)
}

// GenerateDefaultConfigFile writes the default configuration to filename
// (pricetag.yaml when empty).
func GenerateDefaultConfigFile(filename string) error {
	loader := NewLoaderWith(viper.New())
	loader.setDefaults()
	if filename == "" {
		filename = ConfigFileName + ".yaml"
	}
	return loader.v.WriteConfigAs(filename)
}

// GetConfigSearchPaths returns the paths where configuration files are searched.
func GetConfigSearchPaths() []string {
	paths := []string{"."}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, home)
	}
	if configDir, exists := os.LookupEnv("XDG_CONFIG_HOME"); exists {
		paths = append(paths, filepath.Join(configDir, ConfigFileName))
	} else if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", ConfigFileName))
	}

	return append(paths, filepath.Join("/etc", ConfigFileName))
}
