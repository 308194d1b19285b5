package database

import "time"

// DefaultDriver is the driver identifier stored by earlier ODBC-based
// deployments. Connections always use the native TDS driver; the value is
// kept so existing configuration records round-trip unchanged.
const DefaultDriver = "ODBC Driver 18 for SQL Server"

// Config holds everything needed to open catalog sessions against one
// SQL Server instance.
type Config struct {
	Server   string `yaml:"server"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Driver   string `yaml:"driver"`

	// Connection attributes
	AppName                string `yaml:"app_name"`
	Encrypt                string `yaml:"encrypt"` // disable, false, true, strict
	TrustServerCertificate bool   `yaml:"trust_server_certificate"`

	// Pool tuning, per database
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`

	// Timeouts
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

// DefaultConfig returns the settings used when no configuration record
// exists: a local server reached with the stored default driver.
func DefaultConfig() *Config {
	return &Config{
		Server:                 "localhost",
		Port:                   1433,
		Driver:                 DefaultDriver,
		AppName:                "ODataSQL",
		Encrypt:                "disable",
		TrustServerCertificate: true,
		MaxOpenConns:           10,
		MaxIdleConns:           2,
		ConnMaxLifetime:        30 * time.Minute,
		ConnMaxIdleTime:        5 * time.Minute,
		ConnectTimeout:         15 * time.Second,
	}
}
