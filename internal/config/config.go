package config

import (
	"os"
	"time"

	"github.com/go-yaml/yaml"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

type Config struct {
	Server   Server   `yaml:"server"`
	Slack    Slack    `yaml:"slack"`
	Zoom     Zoom     `yaml:"zoom"`
	Roulette Roulette `yaml:"roulette"`
}

type Server struct {
	Port          int    `yaml:"port"`
	LogLevel      string `yaml:"logLevel"` // debug, info, warn, error
	EnableTrace   bool   `yaml:"enableTrace"`
	TraceEndpoint string `yaml:"traceEndpoint"`
	RedisAddr     string `yaml:"redisAddr"` // empty disables event publishing
	RedisPassword string `yaml:"redisPassword"`
	RedisDB       int    `yaml:"redisDB"`
	EventChannel  string `yaml:"eventChannel"`
}

type Slack struct {
	BotToken      string  `yaml:"botToken"`
	SigningSecret string  `yaml:"signingSecret"`
	APIURL        string  `yaml:"apiURL"`
	PresenceRate  float64 `yaml:"presenceRate"` // presence lookups per second, 0 is unlimited
	PresenceBurst int     `yaml:"presenceBurst"`
}

type Zoom struct {
	APIKey        string        `yaml:"apiKey"`
	APISecret     string        `yaml:"apiSecret"`
	BaseURL       string        `yaml:"baseURL"`
	TokenLifetime time.Duration `yaml:"tokenLifetime"`
}

type Roulette struct {
	Topic             string            `yaml:"topic"`
	ExcludedAccounts  []string          `yaml:"excludedAccounts"`
	Contacts          map[string]string `yaml:"contacts"`
	ContactDomain     string            `yaml:"contactDomain"`
	IncludeRestricted bool              `yaml:"includeRestricted"`
	MaxGroupSize      int               `yaml:"maxGroupSize"`
	CallTimeout       time.Duration     `yaml:"callTimeout"`
	DispatchLimit     int               `yaml:"dispatchLimit"`
	DirectoryRefresh  time.Duration     `yaml:"directoryRefresh"` // 0 keeps the startup snapshot
}

// Load reads the yaml file at path. ${VAR} references are expanded from the
// environment, which is seeded from a .env file next to the process when present.
func Load(path string) (Config, error) {
	err := godotenv.Load()
	if err != nil && !os.IsNotExist(err) {
		return Config{}, errors.Wrap(err, "failed to load .env")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	config, err := Parse(raw)
	if err != nil {
		return Config{}, errors.Wrapf(err, "failed to parse %s", path)
	}

	return config, nil
}

func Parse(raw []byte) (Config, error) {
	var config Config
	err := yaml.Unmarshal([]byte(os.ExpandEnv(string(raw))), &config)
	if err != nil {
		return Config{}, err
	}

	config.applyDefaults()

	err = config.Validate()
	if err != nil {
		return Config{}, err
	}

	return config, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8000
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if c.Slack.PresenceBurst == 0 {
		c.Slack.PresenceBurst = 1
	}
	if c.Zoom.TokenLifetime == 0 {
		c.Zoom.TokenLifetime = time.Hour
	}
	if c.Roulette.Topic == "" {
		c.Roulette.Topic = "Roulette"
	}
	if c.Roulette.MaxGroupSize == 0 {
		c.Roulette.MaxGroupSize = 6
	}
	if c.Roulette.CallTimeout == 0 {
		c.Roulette.CallTimeout = 10 * time.Second
	}
	if c.Roulette.DispatchLimit == 0 {
		c.Roulette.DispatchLimit = 4
	}
}

func (c Config) Validate() error {
	if c.Slack.BotToken == "" {
		return errors.New("slack.botToken is required")
	}
	if c.Slack.SigningSecret == "" {
		return errors.New("slack.signingSecret is required")
	}
	if c.Zoom.APIKey == "" || c.Zoom.APISecret == "" {
		return errors.New("zoom.apiKey and zoom.apiSecret are required")
	}
	if c.Roulette.MaxGroupSize < 2 {
		return errors.Errorf("roulette.maxGroupSize must be at least 2, got %d", c.Roulette.MaxGroupSize)
	}
	if c.Server.EnableTrace && c.Server.TraceEndpoint == "" {
		return errors.New("server.traceEndpoint is required when tracing is enabled")
	}
	return nil
}
