package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the application configuration.
type Config struct {
	ServerPort string `mapstructure:"SERVER_PORT"`
	LogLevel   string `mapstructure:"LOG_LEVEL"`
	LogFormat  string `mapstructure:"LOG_FORMAT"`

	UserAgent      string `mapstructure:"USER_AGENT"`
	AgentName      string `mapstructure:"AGENT_NAME"`
	PollIntervalMS int    `mapstructure:"POLL_INTERVAL_MS"`
	FetchTimeout   int    `mapstructure:"FETCH_TIMEOUT_SECONDS"`
	MaxRedirects   int    `mapstructure:"MAX_REDIRECTS"`
	MaxBodyBytes   int64  `mapstructure:"MAX_BODY_BYTES"`
	FetchMode      string `mapstructure:"FETCH_MODE"`
	ProxyURLs      string `mapstructure:"PROXY_URLS"`
	SeedURLs       string `mapstructure:"SEED_URLS"`

	RobotsCacheSize int `mapstructure:"ROBOTS_CACHE_SIZE"`
	RobotsCacheTTL  int `mapstructure:"ROBOTS_CACHE_TTL_SECONDS"`

	Frontier      string `mapstructure:"FRONTIER"`
	FrontierOrder string `mapstructure:"FRONTIER_ORDER"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	Storage          string `mapstructure:"STORAGE"`
	PostgresHost     string `mapstructure:"POSTGRES_HOST"`
	PostgresPort     string `mapstructure:"POSTGRES_PORT"`
	PostgresUser     string `mapstructure:"POSTGRES_USER"`
	PostgresPassword string `mapstructure:"POSTGRES_PASSWORD"`
	PostgresDB       string `mapstructure:"POSTGRES_DB"`
	SQLitePath       string `mapstructure:"SQLITE_PATH"`

	ExtractFields       string `mapstructure:"EXTRACT_FIELDS"`
	ExtractLinkSelector string `mapstructure:"EXTRACT_LINK_SELECTOR"`
	FollowExternal      bool   `mapstructure:"FOLLOW_EXTERNAL"`
}

var defaults = map[string]any{
	"SERVER_PORT":              "8080",
	"LOG_LEVEL":                "info",
	"LOG_FORMAT":               "json",
	"USER_AGENT":               "polite-crawler (crawler@example.org)",
	"AGENT_NAME":               "polite-crawler",
	"POLL_INTERVAL_MS":         2000,
	"FETCH_TIMEOUT_SECONDS":    30,
	"MAX_REDIRECTS":            10,
	"MAX_BODY_BYTES":           10 << 20,
	"FETCH_MODE":               "http",
	"PROXY_URLS":               "",
	"SEED_URLS":                "",
	"ROBOTS_CACHE_SIZE":        0,
	"ROBOTS_CACHE_TTL_SECONDS": 0,
	"FRONTIER":                 "memory",
	"FRONTIER_ORDER":           "fifo",
	"REDIS_ADDR":               "localhost:6379",
	"REDIS_PASSWORD":           "",
	"REDIS_DB":                 0,
	"STORAGE":                  "log",
	"POSTGRES_HOST":            "localhost",
	"POSTGRES_PORT":            "5432",
	"POSTGRES_USER":            "user",
	"POSTGRES_PASSWORD":        "password",
	"POSTGRES_DB":              "crawler",
	"SQLITE_PATH":              "crawler.db",
	"EXTRACT_FIELDS":           "title=title",
	"EXTRACT_LINK_SELECTOR":    "a[href]",
	"FOLLOW_EXTERNAL":          false,
}

// Load reads configuration from an optional .env file and the environment.
func Load() (*Config, error) {
	return load(viper.New(), ".env")
}

func load(v *viper.Viper, file string) (*Config, error) {
	v.SetConfigFile(file)
	v.SetConfigType("env")
	v.AutomaticEnv()

	// Attempt to read the .env file, but don't fail if it's not present
	// This allows configuration purely through environment variables in production
	_ = v.ReadInConfig()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// PollInterval is the delay between two crawl steps. Non-positive values
// fall back to the default of 2000 ms.
func (c *Config) PollInterval() time.Duration {
	if c.PollIntervalMS <= 0 {
		return time.Duration(defaults["POLL_INTERVAL_MS"].(int)) * time.Millisecond
	}
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}

// FetchTimeoutDuration bounds every network call made by the fetch client.
func (c *Config) FetchTimeoutDuration() time.Duration {
	return time.Duration(c.FetchTimeout) * time.Second
}

// RobotsCacheTTLDuration is zero when robots policies never expire.
func (c *Config) RobotsCacheTTLDuration() time.Duration {
	return time.Duration(c.RobotsCacheTTL) * time.Second
}

// Seeds splits SEED_URLS on commas and whitespace.
func (c *Config) Seeds() []string {
	return splitList(c.SeedURLs)
}

// Proxies splits PROXY_URLS on commas and whitespace.
func (c *Config) Proxies() []string {
	return splitList(c.ProxyURLs)
}

// Fields parses EXTRACT_FIELDS ("name=selector;name=selector") in order.
// Selectors may contain commas, so pairs are separated by semicolons.
func (c *Config) Fields() [][2]string {
	var out [][2]string
	for _, pair := range strings.Split(c.ExtractFields, ";") {
		name, sel, ok := strings.Cut(pair, "=")
		name, sel = strings.TrimSpace(name), strings.TrimSpace(sel)
		if !ok || name == "" || sel == "" {
			continue
		}
		out = append(out, [2]string{name, sel})
	}
	return out
}

func splitList(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\n' || r == '\t'
	})
}
