package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/newsletter-api/internal/ciutil"
	"github.com/spf13/viper"
)

// Environment names the overlay file applied on top of base.yaml.
type Environment string

const (
	EnvironmentLocal      Environment = "local"
	EnvironmentProduction Environment = "production"
)

const (
	// EnvPrefix is prepended to every environment override,
	// e.g. NEWSLETTER_DATABASE__PORT for database.port.
	EnvPrefix = "NEWSLETTER"

	// EnvAppEnvironment selects the overlay file. Defaults to "local".
	EnvAppEnvironment = "APP_ENVIRONMENT"

	// EnvConfigDir points at the directory holding the YAML files.
	EnvConfigDir = "NEWSLETTER_CONFIG_DIR"

	configDirName = "configuration"
)

// ParseEnvironment converts the APP_ENVIRONMENT value into an Environment.
// An empty value means local.
func ParseEnvironment(s string) (Environment, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(EnvironmentLocal):
		return EnvironmentLocal, nil
	case string(EnvironmentProduction):
		return EnvironmentProduction, nil
	default:
		return "", fmt.Errorf(
			"%q is not a supported environment, use either %q or %q",
			s, EnvironmentLocal, EnvironmentProduction,
		)
	}
}

// Load reads configuration from the project's configuration directory,
// the APP_ENVIRONMENT overlay and NEWSLETTER_* environment variables.
// Environment variables take precedence over values from config files.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	return LoadFrom(configDir())
}

// LoadFrom is Load with an explicit configuration directory.
// Missing files are not an error; every key has a default.
func LoadFrom(dir string) (*Config, error) {
	env, err := ParseEnvironment(os.Getenv(EnvAppEnvironment))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", EnvAppEnvironment, err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigType("yaml")
	v.AddConfigPath(dir)

	v.SetConfigName("base")
	if err := v.ReadInConfig(); err != nil && !isNotFound(err) {
		return nil, fmt.Errorf("failed to read base configuration: %w", err)
	}

	v.SetConfigName(string(env))
	if err := v.MergeInConfig(); err != nil && !isNotFound(err) {
		return nil, fmt.Errorf("failed to read %s configuration: %w", env, err)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "__"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// DatabaseSettingsFromURL parses a libpq-style URL or DSN into settings.
// The harness uses it when DATABASE_URL is provided by CI.
func DatabaseSettingsFromURL(rawURL string) (DatabaseSettings, error) {
	pc, err := pgconn.ParseConfig(rawURL)
	if err != nil {
		return DatabaseSettings{}, fmt.Errorf("failed to parse database URL: %w", err)
	}

	return DatabaseSettings{
		Host:         pc.Host,
		Port:         int(pc.Port),
		Username:     pc.User,
		Password:     pc.Password,
		DatabaseName: pc.Database,
		RequireSSL:   pc.TLSConfig != nil,
	}, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("application.host", "127.0.0.1")
	v.SetDefault("application.port", 8000)
	v.SetDefault("application.log_level", "info")
	v.SetDefault("application.shutdown_timeout", "10s")

	v.SetDefault("database.host", "127.0.0.1")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.username", "postgres")
	v.SetDefault("database.password", "password")
	v.SetDefault("database.database_name", "newsletter")
	v.SetDefault("database.require_ssl", false)
	v.SetDefault("database.max_open_conns", 10)
}

func isNotFound(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound)
}

func configDir() string {
	if dir := os.Getenv(EnvConfigDir); dir != "" {
		return dir
	}

	root, err := ciutil.FindProjectRoot(nil)
	if err != nil {
		return configDirName
	}
	return filepath.Join(root, configDirName)
}
