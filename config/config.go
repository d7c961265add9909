package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Config is what the app persists between runs.
type Config struct {
	RPCURLs     []RPCUrl `json:"rpc_urls"`
	KeystoreDir string   `json:"keystore_dir,omitempty"`
	Logger      bool     `json:"logger"`
}

// RPCUrl represents an RPC endpoint
type RPCUrl struct {
	Name   string `json:"name"`
	URL    string `json:"url"`
	Active bool   `json:"active"`
}

// Page identifies a top-level screen.
type Page int

const (
	PageTipJar Page = iota
	PageOwner
	PageSettings
)

func (p Page) String() string {
	switch p {
	case PageTipJar:
		return "Tip Jar"
	case PageOwner:
		return "Owner"
	case PageSettings:
		return "Settings"
	}
	return "Unknown"
}

// Load reads the config from the specified path
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	return cfg, nil
}

// Save writes the config to the specified path
func Save(path string, cfg Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// DefaultConfig points at a local node.
func DefaultConfig() Config {
	return Config{
		RPCURLs: []RPCUrl{
			{
				Name:   "Local Node",
				URL:    "http://127.0.0.1:8545",
				Active: true,
			},
			{
				Name: "Sepolia (publicnode)",
				URL:  "https://ethereum-sepolia-rpc.publicnode.com",
			},
		},
		Logger: false,
	}
}

// LoadOrCreate loads config from path, or writes a default one if the
// file does not exist. A file that does not parse is left alone and the
// defaults are returned.
func LoadOrCreate(path string) Config {
	cfg, err := Load(path)
	if err == nil {
		return cfg
	}
	if os.IsNotExist(err) {
		cfg = DefaultConfig()
		_ = Save(path, cfg)
		return cfg
	}
	return DefaultConfig()
}

// ActiveRPC returns the URL of the active endpoint, or "".
func (c Config) ActiveRPC() string {
	for _, r := range c.RPCURLs {
		if r.Active {
			return r.URL
		}
	}
	return ""
}

// Activate marks the endpoint at idx active and every other inactive.
func (c *Config) Activate(idx int) bool {
	if idx < 0 || idx >= len(c.RPCURLs) {
		return false
	}
	for i := range c.RPCURLs {
		c.RPCURLs[i].Active = i == idx
	}
	return true
}

// AddRPC appends an endpoint. The first endpoint added becomes active.
func (c *Config) AddRPC(name, url string) error {
	name, url = strings.TrimSpace(name), strings.TrimSpace(url)
	if url == "" {
		return fmt.Errorf("rpc url is required")
	}
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") &&
		!strings.HasPrefix(url, "ws://") && !strings.HasPrefix(url, "wss://") {
		return fmt.Errorf("rpc url must start with http(s):// or ws(s)://")
	}
	for _, r := range c.RPCURLs {
		if strings.EqualFold(r.URL, url) {
			return fmt.Errorf("rpc url already configured")
		}
	}
	if name == "" {
		name = url
	}
	c.RPCURLs = append(c.RPCURLs, RPCUrl{Name: name, URL: url, Active: len(c.RPCURLs) == 0})
	return nil
}

// RemoveRPC deletes the endpoint at idx. Removing the active endpoint
// activates the first remaining one.
func (c *Config) RemoveRPC(idx int) bool {
	if idx < 0 || idx >= len(c.RPCURLs) {
		return false
	}
	wasActive := c.RPCURLs[idx].Active
	c.RPCURLs = append(c.RPCURLs[:idx], c.RPCURLs[idx+1:]...)
	if wasActive && len(c.RPCURLs) > 0 {
		c.RPCURLs[0].Active = true
	}
	return true
}
