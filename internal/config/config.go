package config

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"
)

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Application ApplicationSettings `mapstructure:"application" validate:"required"`
	Database    DatabaseSettings    `mapstructure:"database"    validate:"required"`
}

// ApplicationSettings contains all server-related configuration settings.
type ApplicationSettings struct {
	Host string `mapstructure:"host" validate:"required"`
	// Port 0 asks the OS for an ephemeral port.
	Port            int           `mapstructure:"port"             validate:"gte=0,lt=65536"`
	LogLevel        string        `mapstructure:"log_level"        validate:"required,oneof=debug info warn error"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

// Address returns the host:port pair the HTTP listener binds to.
func (s ApplicationSettings) Address() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// DatabaseSettings contains everything needed to reach the PostgreSQL server.
// The same settings describe both the application database and the
// administrative connection used by the test harness (see WithoutDB).
type DatabaseSettings struct {
	Host         string `mapstructure:"host"           validate:"required"`
	Port         int    `mapstructure:"port"           validate:"required,gt=0,lt=65536"`
	Username     string `mapstructure:"username"       validate:"required"`
	Password     string `mapstructure:"password"`
	DatabaseName string `mapstructure:"database_name"  validate:"required"`
	RequireSSL   bool   `mapstructure:"require_ssl"`
	MaxOpenConns int    `mapstructure:"max_open_conns" validate:"gte=0"`
}

// WithoutDB returns a connection string that does not select a database.
// The server falls back to the database named after the user, which is enough
// for CREATE DATABASE / DROP DATABASE and pg_stat_activity queries.
func (d DatabaseSettings) WithoutDB() string {
	return d.connectionURL("").String()
}

// WithDB returns a connection string for the configured database.
func (d DatabaseSettings) WithDB() string {
	return d.connectionURL(d.DatabaseName).String()
}

// ForDatabase returns a copy of the settings pointed at another database.
func (d DatabaseSettings) ForDatabase(name string) DatabaseSettings {
	d.DatabaseName = name
	return d
}

func (d DatabaseSettings) connectionURL(database string) *url.URL {
	u := &url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.Username, d.Password),
		Host:   net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
	}
	if database != "" {
		u.Path = "/" + database
	}

	q := url.Values{}
	if d.RequireSSL {
		q.Set("sslmode", "require")
	} else {
		q.Set("sslmode", "disable")
	}
	u.RawQuery = q.Encode()
	return u
}

// String describes the settings without leaking the password.
func (d DatabaseSettings) String() string {
	return fmt.Sprintf("postgres://%s@%s:%d/%s", d.Username, d.Host, d.Port, d.DatabaseName)
}
