// File: backend/internal/config/config.go
package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"
)

const (
	DefaultPort                    = "8080"
	DefaultRateLimitRPS            = 5.0
	DefaultRateLimitBurst          = 10
	DefaultSystemAPIKeyPlaceholder = "SET_A_REAL_KEY_IN_CONFIG_OR_ENV_a3f8c2e1b7d94f60"
)

type ServerConfig struct {
	Port            string  `json:"port"`
	APIKey          string  `json:"apiKey"`
	RateLimitRPS    float64 `json:"rateLimitRps,omitempty"`
	RateLimitBurst  int     `json:"rateLimitBurst,omitempty"`
	HistoryFilePath string  `json:"historyFilePath,omitempty"`
}

type ResolverConfig struct {
	Resolvers           []string `json:"resolvers"`
	UseSystemResolvers  bool     `json:"useSystemResolvers"`
	QueryTimeoutSeconds int      `json:"queryTimeoutSeconds"`
	TLSTimeoutSeconds   int      `json:"tlsTimeoutSeconds"`
}

type FetcherConfig struct {
	UserAgent             string `json:"userAgent,omitempty"`
	RequestTimeoutSeconds int    `json:"requestTimeoutSeconds"`
	MaxRedirects          int    `json:"maxRedirects"`
	MaxBodyBytes          int64  `json:"maxBodyBytes,omitempty"`
}

type RegistrationConfig struct {
	LookupTimeoutSeconds int `json:"lookupTimeoutSeconds"`
}

type AppConfig struct {
	Server       ServerConfig       `json:"server"`
	Resolver     ResolverConfig     `json:"resolver"`
	Fetcher      FetcherConfig      `json:"fetcher"`
	Registration RegistrationConfig `json:"registration"`
	RulesetPath  string             `json:"rulesetPath,omitempty"`

	loadedFromPath string
}

func (ac *AppConfig) GetLoadedFromPath() string { return ac.loadedFromPath }

func (ac *AppConfig) QueryTimeout() time.Duration {
	return time.Duration(ac.Resolver.QueryTimeoutSeconds) * time.Second
}
func (ac *AppConfig) TLSTimeout() time.Duration {
	return time.Duration(ac.Resolver.TLSTimeoutSeconds) * time.Second
}
func (ac *AppConfig) FetchTimeout() time.Duration {
	return time.Duration(ac.Fetcher.RequestTimeoutSeconds) * time.Second
}
func (ac *AppConfig) RegistrationTimeout() time.Duration {
	return time.Duration(ac.Registration.LookupTimeoutSeconds) * time.Second
}

func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:            DefaultPort,
			APIKey:          DefaultSystemAPIKeyPlaceholder,
			RateLimitRPS:    DefaultRateLimitRPS,
			RateLimitBurst:  DefaultRateLimitBurst,
			HistoryFilePath: "scan_history.json",
		},
		Resolver: ResolverConfig{
			Resolvers:           []string{"1.1.1.1:53", "8.8.8.8:53"},
			UseSystemResolvers:  false,
			QueryTimeoutSeconds: 6,
			TLSTimeoutSeconds:   8,
		},
		Fetcher: FetcherConfig{
			RequestTimeoutSeconds: 12,
			MaxRedirects:          7,
		},
		Registration: RegistrationConfig{
			LookupTimeoutSeconds: 8,
		},
	}
}

// Load reads the main config file, falling back to defaults. A missing file
// is not an error: defaults are used and saved so the operator has a file to
// edit. Environment variables PHISHSCAN_PORT, PHISHSCAN_API_KEY and
// PHISHSCAN_HISTORY_FILE override the corresponding file values.
func Load(mainConfigPath string) (*AppConfig, error) {
	if mainConfigPath == "" {
		mainConfigPath = "config.json"
		log.Printf("Config: Main config path empty, using default: %s", mainConfigPath)
	}

	appConfig := DefaultConfig()
	data, err := os.ReadFile(mainConfigPath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("Config: Main config file '%s' not found. Using defaults and attempting to save.", mainConfigPath)
			appConfig.loadedFromPath = mainConfigPath
			if saveErr := Save(appConfig, mainConfigPath); saveErr != nil {
				log.Printf("Config: Failed to save default config file '%s': %v", mainConfigPath, saveErr)
			}
		} else {
			log.Printf("Config: Error reading main config '%s': %v. Using defaults.", mainConfigPath, err)
		}
	} else if errUnmarshal := json.Unmarshal(data, appConfig); errUnmarshal != nil {
		return nil, fmt.Errorf("error unmarshalling main config '%s': %w", mainConfigPath, errUnmarshal)
	}
	appConfig.loadedFromPath = mainConfigPath

	if appConfig.Server.Port == "" {
		appConfig.Server.Port = DefaultPort
	}
	if appConfig.Server.RateLimitRPS <= 0 {
		appConfig.Server.RateLimitRPS = DefaultRateLimitRPS
	}
	if appConfig.Server.RateLimitBurst <= 0 {
		appConfig.Server.RateLimitBurst = DefaultRateLimitBurst
	}

	applyEnvOverrides(appConfig)
	return appConfig, nil
}

func applyEnvOverrides(cfg *AppConfig) {
	if port := os.Getenv("PHISHSCAN_PORT"); port != "" {
		log.Printf("Config: Overriding server port from PHISHSCAN_PORT: %s", port)
		cfg.Server.Port = port
	}
	if key := os.Getenv("PHISHSCAN_API_KEY"); key != "" {
		log.Printf("Config: Overriding API key from PHISHSCAN_API_KEY")
		cfg.Server.APIKey = key
	}
	if path := os.Getenv("PHISHSCAN_HISTORY_FILE"); path != "" {
		log.Printf("Config: Overriding history file path from PHISHSCAN_HISTORY_FILE: %s", path)
		cfg.Server.HistoryFilePath = path
	}
}

func Save(cfg *AppConfig, filePath string) error {
	if filePath == "" {
		return fmt.Errorf("cannot save config, file path is empty")
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal app config to JSON: %w", err)
	}
	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write app config to file '%s': %w", filePath, err)
	}
	log.Printf("Config: Successfully saved main configuration to '%s'", filePath)
	return nil
}
