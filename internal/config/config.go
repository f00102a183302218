package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config represents the application configuration
type Config struct {
	Server struct {
		Port int `koanf:"port"`
	} `koanf:"server"`

	Cache struct {
		Capacity int `koanf:"capacity"`
	} `koanf:"cache"`

	Providers map[string]map[string]interface{} `koanf:"providers"`
}

// LoadConfig loads the configuration from a file, falling back to default
// locations, with REVIEWDECK_ environment variables taking precedence.
func LoadConfig(configPath string) (*Config, error) {
	var k = koanf.New(".")

	// Set up default configuration
	k.Load(confmap.Provider(map[string]interface{}{
		"server.port":    8090,
		"cache.capacity": 40,
	}, "."), nil)

	// Load from TOML file if it exists
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), toml.Parser()); err != nil {
			return nil, fmt.Errorf("error loading config: %w", err)
		}
	} else {
		defaultPaths := []string{"./reviewdeck.toml", "$HOME/.reviewdeck.toml"}
		for _, path := range defaultPaths {
			path = os.ExpandEnv(path)
			if _, err := os.Stat(path); err == nil {
				if err := k.Load(file.Provider(path), toml.Parser()); err == nil {
					break
				}
			}
		}
	}

	// Load from environment variables with prefix REVIEWDECK_
	k.Load(env.Provider("REVIEWDECK_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "REVIEWDECK_")), "_", ".", -1)
	}), nil)

	// Unmarshal into Config struct
	var config Config
	if err := k.Unmarshal("", &config); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	return &config, nil
}

// ProviderString returns a string setting from a provider's config block.
func (c *Config) ProviderString(provider, key string) string {
	block, ok := c.Providers[provider]
	if !ok {
		return ""
	}
	value, _ := block[key].(string)
	return value
}

// InitConfig initializes a new configuration file
func InitConfig(configPath string) error {
	// Check if file already exists
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("configuration file already exists at %s", configPath)
	}

	sampleConfig := `# ReviewDeck Configuration

[server]
port = 8090

[cache]
# Number of derived-data results kept in memory.
capacity = 40

[providers.github]
token = "your-github-token"

[providers.bitbucket]
email = "you@example.com"
token = "your-bitbucket-app-password"
`

	return os.WriteFile(configPath, []byte(sampleConfig), 0644)
}

// Validate validates the configuration
func Validate(config *Config) error {
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("server port %d is out of range", config.Server.Port)
	}

	if config.Cache.Capacity <= 0 {
		return fmt.Errorf("cache capacity must be positive")
	}

	for name, block := range config.Providers {
		switch name {
		case "github":
			// Token is optional for public repositories.
		case "bitbucket":
			if _, ok := block["email"]; !ok {
				return fmt.Errorf("bitbucket email is required")
			}
			if _, ok := block["token"]; !ok {
				return fmt.Errorf("bitbucket token is required")
			}
		default:
			return fmt.Errorf("unknown provider %q in configuration", name)
		}
	}

	return nil
}
