package config

import (
	"cmp"
	"fmt"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Bridge modes.
const (
	BridgeNone      = "none"
	BridgeNative    = "native"
	BridgeWebSocket = "websocket"
)

const (
	DefaultPort               = 8080
	DefaultSimulationLatency  = 150
	DefaultConnectTimeoutSecs = 10
)

type DBConfig struct {
	Type         string `yaml:"type" json:"type"`
	Host         string `yaml:"host" json:"host"`
	Port         int    `yaml:"port" json:"port"`
	Username     string `yaml:"username" json:"username"`
	Password     string `yaml:"password" json:"password"`
	DatabaseName string `yaml:"database_name" json:"database_name"`
	DSN          string `yaml:"dsn" json:"dsn"` // optional explicit DSN
}

// CredentialConfig is a saved remote connection served by the native bridge.
type CredentialConfig struct {
	ID       string   `yaml:"id" json:"id"`
	Name     string   `yaml:"name" json:"connectionName"`
	Database DBConfig `yaml:"database" json:"-"`
}

type ServerConfig struct {
	Port   int    `yaml:"port" json:"port"`
	WebDir string `yaml:"web_dir" json:"web_dir"`
}

type LogConfig struct {
	Level string `yaml:"level" json:"level"`
}

type BridgeConfig struct {
	Mode string `yaml:"mode" json:"mode"`
	// URL of the host's websocket endpoint when Mode is websocket.
	URL string `yaml:"url" json:"url"`
	// Href is announced to the host in the presence handshake.
	Href           string `yaml:"href" json:"href"`
	ConnectTimeout int    `yaml:"connect_timeout" json:"connect_timeout"`
}

type SimulatedConnection struct {
	ID      string `yaml:"id" json:"id"`
	Name    string `yaml:"name" json:"name"`
	Dialect string `yaml:"dialect" json:"dialect"`
}

type SimulationConfig struct {
	LatencyMs   *int                  `yaml:"latency_ms" json:"latency_ms"`
	Connections []SimulatedConnection `yaml:"connections" json:"connections"`
}

type EmbeddedConfig struct {
	// DataDir holds imported database files; empty means the OS temp dir.
	DataDir string `yaml:"data_dir" json:"data_dir"`
}

type AppConfig struct {
	Server           ServerConfig       `yaml:"server" json:"server"`
	Log              LogConfig          `yaml:"log" json:"log"`
	Bridge           BridgeConfig       `yaml:"bridge" json:"bridge"`
	Simulation       SimulationConfig   `yaml:"simulation" json:"simulation"`
	Embedded         EmbeddedConfig     `yaml:"embedded" json:"embedded"`
	Credentials      []CredentialConfig `yaml:"credentials" json:"credentials"`
	InsightOverrides map[string]string  `yaml:"insight_overrides" json:"insight_overrides"`
}

// LoadFile loads YAML config from path.
func LoadFile(path string) (AppConfig, error) {
	var cfg AppConfig
	f, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(f, &cfg); err != nil {
		return AppConfig{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// WithDefaults fills every unset field with its default.
func (c AppConfig) WithDefaults() AppConfig {
	c.Server.Port = cmp.Or(c.Server.Port, DefaultPort)
	c.Server.WebDir = cmp.Or(c.Server.WebDir, "web")
	c.Log.Level = cmp.Or(strings.ToLower(c.Log.Level), "info")
	c.Bridge.Mode = cmp.Or(strings.ToLower(strings.TrimSpace(c.Bridge.Mode)), BridgeNone)
	c.Bridge.ConnectTimeout = cmp.Or(c.Bridge.ConnectTimeout, DefaultConnectTimeoutSecs)
	if c.Simulation.LatencyMs == nil {
		latency := DefaultSimulationLatency
		c.Simulation.LatencyMs = &latency
	}
	for i := range c.Credentials {
		c.Credentials[i].Name = cmp.Or(c.Credentials[i].Name, c.Credentials[i].ID)
	}
	return c
}

// Validate reports configuration that cannot work.
func (c AppConfig) Validate() error {
	switch c.Bridge.Mode {
	case "", BridgeNone, BridgeNative:
	case BridgeWebSocket:
		if c.Bridge.URL == "" {
			return fmt.Errorf("bridge mode %q needs bridge.url", c.Bridge.Mode)
		}
	default:
		return fmt.Errorf("unknown bridge mode: %s", c.Bridge.Mode)
	}
	seen := map[string]bool{}
	for _, cred := range c.Credentials {
		if cred.ID == "" {
			return fmt.Errorf("credential without id")
		}
		if seen[cred.ID] {
			return fmt.Errorf("duplicate credential id: %s", cred.ID)
		}
		seen[cred.ID] = true
	}
	return nil
}

// NormalizeDriver maps common aliases to canonical keys (keeps backwards compat).
func NormalizeDriver(d string) string {
	switch strings.ToLower(strings.TrimSpace(d)) {
	case "postgresql", "pg", "postgres":
		return "postgres"
	case "mysql", "mariadb":
		return "mysql"
	case "sqlite", "sqlite3":
		return "sqlite"
	case "mssql", "sqlserver":
		return "sqlserver"
	case "mongodb", "mongo":
		return "mongodb"
	default:
		return strings.ToLower(d)
	}
}

// SupportedDriver reports whether a normalized driver is a database/sql driver linked in.
func SupportedDriver(d string) bool {
	switch d {
	case "postgres", "mysql", "sqlite", "sqlserver":
		return true
	}
	return false
}

// BuildDriverAndDSN produces a driver name and DSN string for supported DB types.
func BuildDriverAndDSN(db DBConfig) (driver string, dsn string, err error) {
	// If explicit DSN provided, user must also set Type to choose driver or we guess
	t := NormalizeDriver(db.Type)

	if db.DSN != "" {
		return t, db.DSN, nil
	}

	switch t {
	case "postgres":
		driver = "postgres"
		// simple URL form
		dsn = fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
			db.Username, db.Password, db.Host, db.Port, db.DatabaseName)
	case "mysql":
		driver = "mysql"
		dsn = fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
			db.Username, db.Password, db.Host, db.Port, db.DatabaseName)
	case "sqlite":
		driver = "sqlite"
		if db.DatabaseName == "" {
			return "", "", fmt.Errorf("sqlite needs a file path in database_name")
		}
		dsn = fmt.Sprintf("file:%s?mode=ro", db.DatabaseName)
	case "sqlserver":
		driver = "sqlserver"
		dsn = fmt.Sprintf("sqlserver://%s:%s@%s:%d?database=%s",
			db.Username, db.Password, db.Host, db.Port, db.DatabaseName)
	case "mongodb":
		driver = "mongodb"
		dsn = mongoURI(db)
	default:
		err = fmt.Errorf("unsupported database type: %s", db.Type)
	}
	return
}

func mongoURI(db DBConfig) string {
	host := cmp.Or(db.Host, "localhost")
	port := cmp.Or(db.Port, 27017)

	var credentials string
	if db.Username != "" {
		credentials = url.QueryEscape(db.Username)
		if db.Password != "" {
			credentials = fmt.Sprintf("%s:%s", credentials, url.QueryEscape(db.Password))
		}
		credentials += "@"
	}

	database := strings.TrimSpace(db.DatabaseName)
	if database != "" {
		database = "/" + database
	}
	return fmt.Sprintf("mongodb://%s%s:%d%s", credentials, host, port, database)
}
