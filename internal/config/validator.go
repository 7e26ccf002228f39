package config

import (
	"fmt"
	"net"
	"net/netip"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation error [%s]: %s", e.Field, e.Message)
}

// ValidationResult holds the results of configuration validation.
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationError
}

// IsValid returns true if there are no validation errors.
func (r *ValidationResult) IsValid() bool {
	return len(r.Errors) == 0
}

// AddError adds a validation error.
func (r *ValidationResult) AddError(field, message string) {
	r.Errors = append(r.Errors, ValidationError{Field: field, Message: message})
}

// AddWarning adds a validation warning.
func (r *ValidationResult) AddWarning(field, message string) {
	r.Warnings = append(r.Warnings, ValidationError{Field: field, Message: message})
}

// Validate performs comprehensive validation of the configuration.
func Validate(cfg *Config) *ValidationResult {
	result := &ValidationResult{}

	validateRelayData(&cfg.Relay, result)
	validateApplicationData(&cfg.Application, result)

	return result
}

func validateRelayData(data *RelayData, result *ValidationResult) {
	validatePort(data.APIPort, "relay.relay_api_port", result)

	if strings.TrimSpace(data.ListenAddress) != "" {
		if _, err := netip.ParseAddr(data.ListenAddress); err != nil {
			result.AddError("relay.relay_listen_address",
				fmt.Sprintf("invalid listen address: %s", data.ListenAddress))
		}
	}

	if strings.TrimSpace(data.PublicAddress) != "" {
		addr, err := netip.ParseAddr(data.PublicAddress)
		if err != nil {
			result.AddError("relay.relay_public_address",
				fmt.Sprintf("invalid public address: %s", data.PublicAddress))
		} else if addr.IsPrivate() || addr.IsLoopback() {
			result.AddWarning("relay.relay_public_address",
				fmt.Sprintf("public address %s is not routable, NAT'd game servers will be unreachable", addr))
		}
	}

	if data.ServerDB.APIKey == "" {
		result.AddWarning("relay.serverdb.api_key",
			"no api key set, any game server may register")
	}

	if data.ServerDB.ValidateEndpoints && data.ServerDB.ProbeTimeoutSec < 1 {
		result.AddError("relay.serverdb.probe_timeout_sec",
			"probe timeout must be at least 1 second when endpoint validation is enabled")
	}
	if data.ServerDB.OperationTimeoutSec < 1 {
		result.AddError("relay.serverdb.operation_timeout_sec",
			"operation timeout must be at least 1 second")
	}

	for name, limits := range data.GameTypeLimits {
		field := fmt.Sprintf("relay.gametype_limits.%s", name)
		if limits.TotalPlayerLimit < 1 || limits.TotalPlayerLimit > 255 {
			result.AddError(field,
				fmt.Sprintf("total player limit %d out of range (1-255)", limits.TotalPlayerLimit))
		}
		if limits.FixedActiveGameParticipantTarget != nil &&
			*limits.FixedActiveGameParticipantTarget > limits.TotalPlayerLimit {
			result.AddError(field, "fixed active participant target exceeds total player limit")
		}
	}
}

func validateApplicationData(data *ApplicationData, result *ValidationResult) {
	// MQTT
	if data.MQTT.Enabled {
		if strings.TrimSpace(data.MQTT.BrokerURL) == "" {
			result.AddError("application_data.mqtt.broker_url", "MQTT broker URL is required when enabled")
		}
		if data.MQTT.Port < 1 || data.MQTT.Port > 65535 {
			result.AddError("application_data.mqtt.port", "invalid MQTT port")
		}
	}

	// Security
	if data.Security.TLSEnabled {
		if strings.TrimSpace(data.Security.TLSCertFile) == "" {
			result.AddError("application_data.security.tls_cert_file",
				"TLS certificate file is required when TLS is enabled")
		}
		if strings.TrimSpace(data.Security.TLSKeyFile) == "" {
			result.AddError("application_data.security.tls_key_file",
				"TLS key file is required when TLS is enabled")
		}
	}

	// Logging
	switch strings.ToLower(data.Logging.Level) {
	case "", "trace", "debug", "info", "warn", "error":
	default:
		result.AddError("application_data.logging.level",
			fmt.Sprintf("unknown log level: %s", data.Logging.Level))
	}
}

func validatePort(port int, field string, result *ValidationResult) {
	if port < 1 || port > 65535 {
		result.AddError(field, fmt.Sprintf("invalid port number: %d (must be 1-65535)", port))
		return
	}
	if port < 1024 {
		result.AddWarning(field,
			fmt.Sprintf("port %d is a privileged port, may require elevated permissions", port))
	}
}

// IsPortAvailable checks if a port is available for binding.
func IsPortAvailable(port int) bool {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return false
	}
	ln.Close()
	return true
}
