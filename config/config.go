// Package config provides configuration loading for littrfix using TOML.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Fixup cycle settings
type Fixer struct {
	IntervalMillis int    `toml:"intervalMillis"`
	Sanitize       bool   `toml:"sanitize"` // clean post markup before linkifying
	Location       string `toml:"location"` // page URL used for sharing
}

// Routes of the links generated for hashtags and mentions
type Routes struct {
	Hashtag string `toml:"hashtag"`
	User    string `toml:"user"`
}

// Selectors of the page parts the fixer touches
type Selectors struct {
	Text        string `toml:"text"`
	Anchors     string `toml:"anchors"`
	ShareTarget string `toml:"shareTarget"`
	ModeSwitch  string `toml:"modeSwitch"`
	Username    string `toml:"username"`
	Password    string `toml:"password"`
	Submit      string `toml:"submit"`
}

// Live event stream settings
type Live struct {
	URL   string `toml:"url"` // empty disables the stream
	Token string `toml:"token"`
}

// Network status settings
type Network struct {
	ProbeURL        string `toml:"probeUrl"` // empty disables probing
	IntervalSeconds int    `toml:"intervalSeconds"`
}

// Preference store settings
type Prefs struct {
	Backend     string `toml:"backend"` // "memory", "file" or "redis"
	Path        string `toml:"path"`
	RedisAddr   string `toml:"redisAddr"`
	RedisPrefix string `toml:"redisPrefix"`
}

// HTTP fetching settings
type Fetcher struct {
	UserAgent      string `toml:"userAgent"`
	TimeoutSeconds int    `toml:"timeoutSeconds"`
	ChromePath     string `toml:"chromePath"`
	JavaScript     bool   `toml:"javascript"` // render pages in Chrome
}

// Share settings
type Share struct {
	Dir  string `toml:"dir"` // where QR PNGs go when not on a terminal
	Size int    `toml:"size"`
}

// Logging settings
type Log struct {
	Level string `toml:"level"`
}

// Config is the main configuration struct
type Config struct {
	Fixer     Fixer     `toml:"fixer"`
	Routes    Routes    `toml:"routes"`
	Selectors Selectors `toml:"selectors"`
	Live      Live      `toml:"live"`
	Network   Network   `toml:"network"`
	Prefs     Prefs     `toml:"prefs"`
	Fetcher   Fetcher   `toml:"fetcher"`
	Share     Share     `toml:"share"`
	Log       Log       `toml:"log"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Fixer: Fixer{
			IntervalMillis: 250,
		},
		Routes: Routes{
			Hashtag: "/flow/hashtags/",
			User:    "/flow/users/",
		},
		Selectors: Selectors{
			Text:        "#table-flow article span",
			Anchors:     "#table-flow a",
			ShareTarget: "#nav-top > dialog > img",
			ModeSwitch:  "#dark-mode-switch",
			Username:    "body > div > main > div:nth-child(6) > input",
			Password:    "body > div > main > div:nth-child(7) > input",
			Submit:      "body > div > main > button:nth-child(8)",
		},
		Network: Network{
			IntervalSeconds: 5,
		},
		Prefs: Prefs{
			Backend:     "file",
			RedisAddr:   "localhost:6379",
			RedisPrefix: "littrfix:",
		},
		Fetcher: Fetcher{
			UserAgent:      "littrfix/1.0",
			TimeoutSeconds: 30,
		},
		Share: Share{
			Size: 256,
		},
		Log: Log{
			Level: "info",
		},
	}
}

// Interval returns the fixup cycle period.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.Fixer.IntervalMillis) * time.Millisecond
}

// ProbeInterval returns the network probe period.
func (c *Config) ProbeInterval() time.Duration {
	return time.Duration(c.Network.IntervalSeconds) * time.Second
}

// Timeout returns the fetch timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Fetcher.TimeoutSeconds) * time.Second
}

// Validate reports settings that cannot work.
func (c *Config) Validate() error {
	switch c.Prefs.Backend {
	case "memory", "file", "redis":
	default:
		return fmt.Errorf("unknown prefs backend %q", c.Prefs.Backend)
	}
	if c.Fixer.IntervalMillis <= 0 {
		return fmt.Errorf("fixer interval must be positive, got %dms", c.Fixer.IntervalMillis)
	}
	return nil
}

// configDir returns the configuration directory path.
func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "littrfix"), nil
}

// ConfigPath returns the path to the user's config file.
func ConfigPath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load loads configuration, layering user config on top of defaults.
// Returns the default config if no user config exists.
func Load() (*Config, error) {
	configPath, err := ConfigPath()
	if err != nil {
		return Default(), nil // Return defaults if we can't determine path
	}
	return LoadFile(configPath)
}

// LoadFile layers the config at path on top of defaults. A missing file
// gives the defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	userCfg, err := loadFromTOML(path)
	if err != nil {
		return nil, fmt.Errorf("loading config from %s: %w", path, err)
	}

	cfg = merge(cfg, userCfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// loadFromTOML loads a TOML config file and returns the config.
func loadFromTOML(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config TOML: %w", err)
	}
	return &cfg, nil
}

// merge layers user config on top of defaults.
// Only non-zero values from user config override defaults.
func merge(defaults, user *Config) *Config {
	result := *defaults

	// Fixer
	if user.Fixer.IntervalMillis != 0 {
		result.Fixer.IntervalMillis = user.Fixer.IntervalMillis
	}
	if user.Fixer.Sanitize {
		result.Fixer.Sanitize = true
	}
	mergeString(&result.Fixer.Location, user.Fixer.Location)

	// Routes
	mergeString(&result.Routes.Hashtag, user.Routes.Hashtag)
	mergeString(&result.Routes.User, user.Routes.User)

	// Selectors
	mergeString(&result.Selectors.Text, user.Selectors.Text)
	mergeString(&result.Selectors.Anchors, user.Selectors.Anchors)
	mergeString(&result.Selectors.ShareTarget, user.Selectors.ShareTarget)
	mergeString(&result.Selectors.ModeSwitch, user.Selectors.ModeSwitch)
	mergeString(&result.Selectors.Username, user.Selectors.Username)
	mergeString(&result.Selectors.Password, user.Selectors.Password)
	mergeString(&result.Selectors.Submit, user.Selectors.Submit)

	// Live
	mergeString(&result.Live.URL, user.Live.URL)
	mergeString(&result.Live.Token, user.Live.Token)

	// Network
	mergeString(&result.Network.ProbeURL, user.Network.ProbeURL)
	if user.Network.IntervalSeconds != 0 {
		result.Network.IntervalSeconds = user.Network.IntervalSeconds
	}

	// Prefs
	mergeString(&result.Prefs.Backend, user.Prefs.Backend)
	mergeString(&result.Prefs.Path, user.Prefs.Path)
	mergeString(&result.Prefs.RedisAddr, user.Prefs.RedisAddr)
	mergeString(&result.Prefs.RedisPrefix, user.Prefs.RedisPrefix)

	// Fetcher
	mergeString(&result.Fetcher.UserAgent, user.Fetcher.UserAgent)
	if user.Fetcher.TimeoutSeconds != 0 {
		result.Fetcher.TimeoutSeconds = user.Fetcher.TimeoutSeconds
	}
	mergeString(&result.Fetcher.ChromePath, user.Fetcher.ChromePath)
	if user.Fetcher.JavaScript {
		result.Fetcher.JavaScript = true
	}

	// Share
	mergeString(&result.Share.Dir, user.Share.Dir)
	if user.Share.Size != 0 {
		result.Share.Size = user.Share.Size
	}

	mergeString(&result.Log.Level, user.Log.Level)

	return &result
}

func mergeString(dst *string, src string) {
	if src != "" {
		*dst = src
	}
}

// DefaultTOML returns the default configuration as a TOML string.
// Used by init-config to generate a user config file.
func DefaultTOML() string {
	return `# littrfix configuration
# Save to ~/.config/littrfix/config.toml and customize
# Only include settings you want to change from defaults

# Fixup cycle
[fixer]
intervalMillis = 250          # How often the page is patched
sanitize = false              # Clean post markup before linkifying
location = ""                 # Page URL used when sharing (empty = file or fetch URL)

# Links generated for #hashtags and @mentions
[routes]
hashtag = "/flow/hashtags/"
user = "/flow/users/"

# Page parts the fixer touches
[selectors]
text = "#table-flow article span"
anchors = "#table-flow a"
shareTarget = "#nav-top > dialog > img"
modeSwitch = "#dark-mode-switch"
username = "body > div > main > div:nth-child(6) > input"
password = "body > div > main > div:nth-child(7) > input"
submit = "body > div > main > button:nth-child(8)"

# Live event stream (empty url = disabled)
[live]
url = ""                      # e.g. "https://www.littr.eu/api/flow/live"
token = ""                    # Sent as X-Auth-Token

# Online/offline status (empty probeUrl = disabled)
[network]
probeUrl = ""
intervalSeconds = 5

# Where the colour mode preference is kept
[prefs]
backend = "file"              # "memory", "file" or "redis"
path = ""                     # File backend path (empty = ~/.config/littrfix/prefs.json)
redisAddr = "localhost:6379"
redisPrefix = "littrfix:"

# HTTP fetching settings
[fetcher]
userAgent = "littrfix/1.0"
timeoutSeconds = 30
chromePath = ""               # Path to Chrome/Chromium for JS rendering (empty = auto-detect)
javascript = false            # Render pages in Chrome before patching

# Share QR codes
[share]
dir = ""                      # PNG output directory when not on a terminal (empty = temp dir)
size = 256

[log]
level = "info"                # debug, info, warn, error
`
}

// FormatError wraps a config loading error for display, keeping the
// original error reachable through errors.Is and errors.As.
func FormatError(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("configuration error:\n\n%w", err)
}
