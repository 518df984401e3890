package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const appName = "pagebridge"

type Config struct {
	Extension  ExtensionConfig  `mapstructure:"extension"`
	Browser    BrowserConfig    `mapstructure:"browser"`
	Extraction ExtractionConfig `mapstructure:"extraction"`
	Network    NetworkConfig    `mapstructure:"network"`
	Server     ServerConfig     `mapstructure:"server"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// ExtensionConfig locates the modules of both contexts. Names are relative to Root.
type ExtensionConfig struct {
	Root           string `mapstructure:"root"`
	ContentScript  string `mapstructure:"content_script"`
	ContentPayload string `mapstructure:"content_payload"`
	PopupScript    string `mapstructure:"popup_script"`
	PopupPayload   string `mapstructure:"popup_payload"`
}

type BrowserConfig struct {
	Default string               `mapstructure:"default"`
	Cookies BrowserCookiesConfig `mapstructure:"cookies"`
}

type BrowserCookiesConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Exclude []string `mapstructure:"exclude"`
}

type ExtractionConfig struct {
	DefaultMode      string       `mapstructure:"default_mode"`
	EnableJavaScript string       `mapstructure:"enable_javascript"`
	JSTimeout        int          `mapstructure:"js_timeout"`
	WaitForSelector  string       `mapstructure:"wait_for_selector"`
	Reader           ReaderConfig `mapstructure:"reader"`
}

// ReaderConfig configures the remote reader extraction mode
type ReaderConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

type NetworkConfig struct {
	Timeout         int    `mapstructure:"timeout"`
	UserAgent       string `mapstructure:"user_agent"`
	BrowserAgent    string `mapstructure:"browser_agent"`
	FollowRedirects bool   `mapstructure:"follow_redirects"`
	Retries         int    `mapstructure:"retries"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

func Default() *Config {
	return &Config{
		Extension: ExtensionConfig{
			Root:           "",
			ContentScript:  "content.js",
			ContentPayload: "content_rules.yaml",
			PopupScript:    "popup.js",
			PopupPayload:   "popup_settings.yaml",
		},
		Browser: BrowserConfig{
			Default: "auto",
			Cookies: BrowserCookiesConfig{
				Enabled: false,
				Exclude: []string{},
			},
		},
		Extraction: ExtractionConfig{
			DefaultMode:      "Readability",
			EnableJavaScript: "auto",
			JSTimeout:        15,
			WaitForSelector:  "",
			Reader: ReaderConfig{
				BaseURL: "https://r.jina.ai/",
			},
		},
		Network: NetworkConfig{
			Timeout:         30,
			UserAgent:       "",
			BrowserAgent:    "auto",
			FollowRedirects: true,
			Retries:         3,
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:8231",
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// Dir returns $XDG_CONFIG_HOME/pagebridge (or ~/.config/pagebridge)
func Dir() (string, error) {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("error finding home directory: %w", err)
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, appName), nil
}

// DefaultPath returns the default config file location
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load reads configFile, or config.toml from the config directory when
// configFile is empty. A missing default file is not an error.
func Load(configFile string) (*Config, error) {
	cfg := Default()
	v := viper.New()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		dir, err := Dir()
		if err != nil {
			return cfg, err
		}
		v.AddConfigPath(dir)
		v.SetConfigType("toml")
		v.SetConfigName("config")
	}

	setDefaults(v, cfg)
	v.SetEnvPrefix("PAGEBRIDGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return cfg, fmt.Errorf("error reading config file: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return cfg, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if cfg.Extension.Root == "" {
		dir, err := Dir()
		if err != nil {
			return cfg, err
		}
		cfg.Extension.Root = filepath.Join(dir, "extension")
	}

	return cfg, nil
}

// setDefaults registers every key so Unmarshal sees environment overrides
// (PAGEBRIDGE_SERVER_ADDR, PAGEBRIDGE_EXTRACTION_READER_API_KEY, ...) even
// when the config file does not mention them.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("extension.root", cfg.Extension.Root)
	v.SetDefault("extension.content_script", cfg.Extension.ContentScript)
	v.SetDefault("extension.content_payload", cfg.Extension.ContentPayload)
	v.SetDefault("extension.popup_script", cfg.Extension.PopupScript)
	v.SetDefault("extension.popup_payload", cfg.Extension.PopupPayload)

	v.SetDefault("browser.default", cfg.Browser.Default)
	v.SetDefault("browser.cookies.enabled", cfg.Browser.Cookies.Enabled)
	v.SetDefault("browser.cookies.exclude", cfg.Browser.Cookies.Exclude)

	v.SetDefault("extraction.default_mode", cfg.Extraction.DefaultMode)
	v.SetDefault("extraction.enable_javascript", cfg.Extraction.EnableJavaScript)
	v.SetDefault("extraction.js_timeout", cfg.Extraction.JSTimeout)
	v.SetDefault("extraction.wait_for_selector", cfg.Extraction.WaitForSelector)
	v.SetDefault("extraction.reader.api_key", cfg.Extraction.Reader.APIKey)
	v.SetDefault("extraction.reader.base_url", cfg.Extraction.Reader.BaseURL)

	v.SetDefault("network.timeout", cfg.Network.Timeout)
	v.SetDefault("network.user_agent", cfg.Network.UserAgent)
	v.SetDefault("network.browser_agent", cfg.Network.BrowserAgent)
	v.SetDefault("network.follow_redirects", cfg.Network.FollowRedirects)
	v.SetDefault("network.retries", cfg.Network.Retries)

	v.SetDefault("server.addr", cfg.Server.Addr)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.file", cfg.Logging.File)
}

func (c *Config) CreateExampleConfig(configPath string) error {
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	exampleContent := `# pagebridge configuration file

[extension]
# Directory holding module payloads (empty = $XDG_CONFIG_HOME/pagebridge/extension)
root = ""
content_script = "content.js"
content_payload = "content_rules.yaml"
popup_script = "popup.js"
popup_payload = "popup_settings.yaml"

[browser]
# Browser to read cookies from for the hosted page
default = "auto"  # auto, chrome, firefox, safari, zen

[browser.cookies]
enabled = false   # send local browser cookies when fetching the page
exclude = []      # domains never sent cookies

[extraction]
default_mode = "Readability"  # Readability, Basic, Reader
enable_javascript = "auto"    # auto, always, never
js_timeout = 15               # seconds to wait for Chrome rendering
wait_for_selector = ""        # CSS selector to wait for (optional)

[extraction.reader]
api_key = ""                  # optional, raises reader rate limits
base_url = "https://r.jina.ai/"

[network]
timeout = 30                  # seconds
user_agent = ""               # custom user agent (empty = rotate)
browser_agent = "auto"        # auto, chrome, firefox, safari, edge
follow_redirects = true
retries = 3                   # attempts for /fetch-html

[server]
addr = "127.0.0.1:8231"

[logging]
level = "info"                # debug, info, warn, error
file = ""                     # log file path (empty = stderr only)
`

	return os.WriteFile(configPath, []byte(exampleContent), 0644)
}
