package app

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"
)

// Config controls runtime behavior for the client.
type Config struct {
	ServerURL string
	Demo      bool
	// ContentDir holds demo content packs. Only read when Demo is set.
	ContentDir     string
	LogPath        string
	DataDir        string
	RequestTimeout time.Duration
	UI             UIConfig
}

type UIConfig struct {
	StyleVariant string
	Debug        bool
}

func DefaultConfig() Config {
	return Config{
		ServerURL:      "http://127.0.0.1:8000",
		RequestTimeout: 30 * time.Second,
		UI: UIConfig{
			StyleVariant: "matrix",
		},
	}
}

func (c *Config) Validate() error {
	if c.ServerURL == "" {
		return errors.New("server URL is required")
	}
	u, err := url.Parse(c.ServerURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid server URL %q", c.ServerURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid server URL scheme %q", u.Scheme)
	}

	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 30 * time.Second
	}

	switch c.UI.StyleVariant {
	case "", "matrix", "midnight", "amber":
	default:
		return fmt.Errorf("invalid ui style variant %q", c.UI.StyleVariant)
	}
	if c.UI.StyleVariant == "" {
		c.UI.StyleVariant = "matrix"
	}

	if c.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return errors.New("cannot resolve user home directory")
		}
		c.DataDir = filepath.Join(home, ".local", "share", "hackterm")
	}

	return nil
}
