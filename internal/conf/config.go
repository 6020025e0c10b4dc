// Package conf handles loading and access of application settings.
package conf

import (
	"fmt"
	"sync"

	"github.com/spf13/viper"

	"github.com/tphakala/auditlog-go/internal/errors"
)

// SQLiteSettings holds SQLite database configuration
type SQLiteSettings struct {
	Enabled bool   // true to enable SQLite output
	Path    string // path to the SQLite database file
}

// MySQLSettings holds MySQL database configuration
type MySQLSettings struct {
	Enabled  bool   // true to enable MySQL output
	Username string // MySQL username
	Password string // MySQL password
	Host     string // MySQL host
	Port     string // MySQL port
	Database string // MySQL database name
}

// OutputSettings selects and configures the backing store
type OutputSettings struct {
	SQLite SQLiteSettings
	MySQL  MySQLSettings
}

// AuditlogSettings holds audit-log behavior configuration
type AuditlogSettings struct {
	// UseTextChangesFallback makes readers fall back to the legacy
	// changes_text column when the JSON changes column is empty. Can be
	// disabled once the changes migration has completed.
	UseTextChangesFallback bool
}

// LogSettings holds file logging configuration
type LogSettings struct {
	Path string // log file path, empty disables file logging
}

// Settings is the root configuration structure
type Settings struct {
	Debug bool // true to enable debug level logging

	Output   OutputSettings
	Auditlog AuditlogSettings
	Log      LogSettings
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Setting returns the current settings instance, or nil before Load.
func Setting() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// Load reads the configuration file and environment variables into Settings.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// initViper initializes viper with default values and reads the configuration file.
func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	viper.SetEnvPrefix("AUDITLOG")
	viper.AutomaticEnv()

	setDefaultConfig()

	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			// No config file present, defaults and environment apply
			return nil
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

// setDefaultConfig sets the default values for each configuration parameter.
func setDefaultConfig() {
	viper.SetDefault("debug", false)
	viper.SetDefault("output.sqlite.enabled", true)
	viper.SetDefault("output.sqlite.path", "auditlog.db")
	viper.SetDefault("output.mysql.enabled", false)
	viper.SetDefault("output.mysql.host", "localhost")
	viper.SetDefault("output.mysql.port", "3306")
	viper.SetDefault("auditlog.usetextchangesfallback", true)
	viper.SetDefault("log.path", "")
}

// ValidateSettings checks that the loaded settings describe a usable store.
func ValidateSettings(settings *Settings) error {
	if settings.Output.SQLite.Enabled && settings.Output.MySQL.Enabled {
		return errors.Newf("only one database output can be enabled at a time").
			Component("conf").
			Category(errors.CategoryConfiguration).
			Build()
	}

	if !settings.Output.SQLite.Enabled && !settings.Output.MySQL.Enabled {
		return errors.Newf("no database output enabled, enable either SQLite or MySQL").
			Component("conf").
			Category(errors.CategoryConfiguration).
			Build()
	}

	if settings.Output.SQLite.Enabled && settings.Output.SQLite.Path == "" {
		return errors.Newf("SQLite output enabled but no database path configured").
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("setting", "output.sqlite.path").
			Build()
	}

	if settings.Output.MySQL.Enabled {
		if settings.Output.MySQL.Username == "" || settings.Output.MySQL.Database == "" {
			return errors.Newf("MySQL output enabled but username or database is missing").
				Component("conf").
				Category(errors.CategoryConfiguration).
				Build()
		}
	}

	return nil
}
