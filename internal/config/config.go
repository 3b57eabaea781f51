// Package config loads console client and server settings from TOML with
// environment overrides.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/siebog/console/internal/logger"
)

// Client configures the console client.
type Client struct {
	// Host is host[:port] of the siebog server; the push endpoint is
	// derived from it.
	Host string `toml:"host"`
	// APIBase is the base URL of the agent REST API. Defaults to http://<Host>.
	APIBase         string   `toml:"api_base"`
	LogPath         string   `toml:"log_path"`
	RefreshInterval Duration `toml:"refresh_interval"`
	// HandshakeTimeout bounds the WebSocket opening handshake. Zero waits
	// until the dial context is done.
	HandshakeTimeout Duration `toml:"handshake_timeout"`
	Source           string   `toml:"-"`
}

// Server configures the console server.
type Server struct {
	Port    string `toml:"port"`
	DBPath  string `toml:"db_path"`
	Backlog int    `toml:"backlog"`
	// AllowedOrigins restricts which browser origins may open the console.
	// Empty allows every origin.
	AllowedOrigins []string `toml:"allowed_origins"`
	Source         string   `toml:"-"`
}

// File is the on-disk schema holding both sections.
type File struct {
	Client Client `toml:"client"`
	Server Server `toml:"server"`
}

// Duration is a time.Duration that reads "5s"-style TOML strings.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func DefaultClient() Client {
	return Client{
		Host:             "localhost:8080",
		LogPath:          logger.DefaultLogPath,
		RefreshInterval:  Duration(5 * time.Second),
		HandshakeTimeout: Duration(45 * time.Second),
	}
}

func DefaultServer() Server {
	return Server{
		Port:    "8080",
		DBPath:  "data/agents.db",
		Backlog: 100,
	}
}

func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".siebog", "console.toml")
}

// APIBaseURL returns APIBase, falling back to http://<Host>.
func (c Client) APIBaseURL() string {
	if c.APIBase != "" {
		return strings.TrimRight(c.APIBase, "/")
	}
	return "http://" + c.Host
}

// LoadClient reads the client section of path. A missing file yields defaults.
func LoadClient(path string) (Client, error) {
	f, source, err := load(path)
	cfg := f.Client
	cfg.Source = source
	if err != nil {
		return cfg, err
	}
	if env := strings.TrimSpace(os.Getenv("SIEBOG_HOST")); env != "" {
		cfg.Host = env
	}
	if env := strings.TrimSpace(os.Getenv("SIEBOG_API_BASE")); env != "" {
		cfg.APIBase = env
	}
	if env := strings.TrimSpace(os.Getenv("SIEBOG_LOG_PATH")); env != "" {
		cfg.LogPath = env
	}
	return cfg, nil
}

// LoadServer reads the server section of path. A missing file yields defaults.
func LoadServer(path string) (Server, error) {
	f, source, err := load(path)
	cfg := f.Server
	cfg.Source = source
	if err != nil {
		return cfg, err
	}
	if env := strings.TrimSpace(os.Getenv("PORT")); env != "" {
		cfg.Port = env
	}
	if env := strings.TrimSpace(os.Getenv("DB_PATH")); env != "" {
		cfg.DBPath = env
	}
	if env := strings.TrimSpace(os.Getenv("CONSOLE_BACKLOG")); env != "" {
		n, err := strconv.Atoi(env)
		if err != nil {
			return cfg, errors.New("CONSOLE_BACKLOG must be an integer")
		}
		cfg.Backlog = n
	}
	if env := strings.TrimSpace(os.Getenv("CONSOLE_ORIGINS")); env != "" {
		cfg.AllowedOrigins = splitList(env)
	}
	if cfg.Backlog < 0 {
		return cfg, errors.New("backlog must not be negative")
	}
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func load(path string) (File, string, error) {
	f := File{Client: DefaultClient(), Server: DefaultServer()}
	if path == "" {
		path = DefaultPath()
	}
	if path == "" {
		return f, "", nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return f, path, nil
		}
		return f, path, err
	}
	if err := toml.Unmarshal(content, &f); err != nil {
		return f, path, err
	}
	return f, path, nil
}
