// Package config handles configuration loading, validation, and persistence
// for the EchoRelay central server.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"
)

const (
	DefaultConfigDir  = "config"
	DefaultConfigFile = "config.json"
	DefaultAPIPort    = 777
)

// Config is the root configuration structure for EchoRelay.
type Config struct {
	mu       sync.RWMutex
	path     string
	firstRun bool

	Relay       RelayData       `json:"relay"`
	Application ApplicationData `json:"application_data"`
}

// RelayData contains the relay's service configuration.
type RelayData struct {
	// Server identity
	Name string `json:"relay_name"`
	// PublicAddress is advertised to clients in place of a game server's
	// peer address when the server registered from a private network.
	PublicAddress string `json:"relay_public_address"`

	// Listener
	ListenAddress string `json:"relay_listen_address"`
	APIPort       int    `json:"relay_api_port"`

	ServerDB ServerDBConfig `json:"serverdb"`
	// GameTypeLimits overrides the built-in per-gametype player limits,
	// keyed by gametype name.
	GameTypeLimits map[string]GameTypeLimits `json:"gametype_limits"`
}

// ServerDBConfig holds game server registration settings.
type ServerDBConfig struct {
	// APIKey, when set, must match the api_key query parameter of every
	// registering game server connection.
	APIKey string `json:"api_key"`
	// ValidateEndpoints probes a game server's advertised UDP endpoint
	// before accepting its registration.
	ValidateEndpoints bool `json:"validate_endpoints"`
	// ProbeTimeoutSec bounds each endpoint liveness probe.
	ProbeTimeoutSec int `json:"probe_timeout_sec"`
	// OperationTimeoutSec bounds session operations on one game server.
	OperationTimeoutSec int `json:"operation_timeout_sec"`
}

// GameTypeLimits is the configurable form of a player-limit policy entry.
type GameTypeLimits struct {
	TotalPlayerLimit                 int  `json:"total_player_limit"`
	FixedActiveGameParticipantTarget *int `json:"fixed_active_game_participant_target,omitempty"`
}

// ApplicationData contains operator-facing application configuration.
type ApplicationData struct {
	MQTT     MQTTConfig     `json:"mqtt"`
	Security SecurityConfig `json:"security"`
	Logging  LoggingConfig  `json:"logging"`
}

// MQTTConfig holds MQTT telemetry settings.
type MQTTConfig struct {
	Enabled   bool   `json:"enabled"`
	BrokerURL string `json:"broker_url"`
	Port      int    `json:"port"`
	UseTLS    bool   `json:"use_tls"`
	CertFile  string `json:"cert_file"`
	KeyFile   string `json:"key_file"`
	CAFile    string `json:"ca_file"`
	ClientID  string `json:"client_id"`
	TopicRoot string `json:"topic_root"`
}

// SecurityConfig holds security-related settings for the API surface.
type SecurityConfig struct {
	TLSEnabled     bool     `json:"tls_enabled"`
	TLSCertFile    string   `json:"tls_cert_file"`
	TLSKeyFile     string   `json:"tls_key_file"`
	AllowedOrigins []string `json:"allowed_origins"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level     string `json:"level"`
	Directory string `json:"directory"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	activeTarget := 8
	return &Config{
		Relay: RelayData{
			Name:          "echorelay",
			ListenAddress: "0.0.0.0",
			APIPort:       DefaultAPIPort,
			ServerDB: ServerDBConfig{
				ValidateEndpoints:   true,
				ProbeTimeoutSec:     3,
				OperationTimeoutSec: 10,
			},
			GameTypeLimits: map[string]GameTypeLimits{
				"echo_arena":  {TotalPlayerLimit: 16, FixedActiveGameParticipantTarget: &activeTarget},
				"echo_combat": {TotalPlayerLimit: 16, FixedActiveGameParticipantTarget: &activeTarget},
			},
		},
		Application: ApplicationData{
			MQTT: MQTTConfig{
				Port:      8883,
				UseTLS:    true,
				TopicRoot: "echorelay",
			},
			Logging: LoggingConfig{
				Level:     "info",
				Directory: "logs",
			},
		},
	}
}

// Load reads configuration from a JSON file.
func Load(configDir string) (*Config, error) {
	configPath := filepath.Join(configDir, DefaultConfigFile)

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Info().Str("path", configPath).Msg("config file not found, creating default")
			cfg := DefaultConfig()
			cfg.path = configPath
			cfg.firstRun = true
			if saveErr := cfg.Save(); saveErr != nil {
				return nil, fmt.Errorf("failed to save default config: %w", saveErr)
			}
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	cfg := DefaultConfig() // Start with defaults, then overlay
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}

	cfg.path = configPath
	log.Info().Str("path", configPath).Msg("configuration loaded")

	// Re-save config to persist any new default fields added in code updates.
	// This ensures config.json always reflects the complete set of options.
	if saveErr := cfg.Save(); saveErr != nil {
		log.Warn().Err(saveErr).Msg("failed to re-save config with updated defaults")
	}

	return cfg, nil
}

// Save writes the current configuration to disk.
func (c *Config) Save() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	// Ensure config directory exists
	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(c.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	log.Debug().Str("path", c.path).Msg("configuration saved")
	return nil
}

// GetRelayData returns a copy of the relay configuration.
func (c *Config) GetRelayData() RelayData {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Relay
}

// SetRelayData updates the relay configuration.
func (c *Config) SetRelayData(data RelayData) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Relay = data
}

// GetApplicationData returns a copy of the application data configuration.
func (c *Config) GetApplicationData() ApplicationData {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Application
}

// SetApplicationData updates the application data configuration.
func (c *Config) SetApplicationData(data ApplicationData) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Application = data
}

// UpdateRelayField updates a specific field in the relay configuration.
func (c *Config) UpdateRelayField(key string, value interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Marshal current relay data to map
	data, _ := json.Marshal(c.Relay)
	m := make(map[string]interface{})
	json.Unmarshal(data, &m)

	// Update field
	m[key] = value

	// Unmarshal back
	updated, _ := json.Marshal(m)
	if err := json.Unmarshal(updated, &c.Relay); err != nil {
		return fmt.Errorf("failed to update field %s: %w", key, err)
	}

	return nil
}

// UpdateAppField updates a specific field in application data.
func (c *Config) UpdateAppField(key string, value interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, _ := json.Marshal(c.Application)
	m := make(map[string]interface{})
	json.Unmarshal(data, &m)

	m[key] = value

	updated, _ := json.Marshal(m)
	if err := json.Unmarshal(updated, &c.Application); err != nil {
		return fmt.Errorf("failed to update field %s: %w", key, err)
	}

	return nil
}

// Path returns the config file path.
// IsFirstRun reports whether Load created the config file from defaults.
func (c *Config) IsFirstRun() bool {
	return c.firstRun
}

func (c *Config) Path() string {
	return c.path
}
