package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// RunSetupWizard guides the operator through first-time configuration.
func RunSetupWizard(cfg *Config) error {
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("╔══════════════════════════════════════════════╗")
	fmt.Println("║         EchoRelay - First Run Setup          ║")
	fmt.Println("╠══════════════════════════════════════════════╣")
	fmt.Println("║  Welcome! Let's configure your relay.        ║")
	fmt.Println("╚══════════════════════════════════════════════╝")
	fmt.Println()

	fmt.Println("── Relay Identity ──")

	cfg.Relay.Name = promptString(reader, "Relay name", cfg.Relay.Name)
	cfg.Relay.PublicAddress = promptString(reader,
		"Public IP address (used for NAT'd game servers, blank to skip)", cfg.Relay.PublicAddress)

	fmt.Println()
	fmt.Println("── Network ──")

	cfg.Relay.ListenAddress = promptString(reader, "Listen address", cfg.Relay.ListenAddress)
	cfg.Relay.APIPort = promptInt(reader, "Service/API port", cfg.Relay.APIPort)

	fmt.Println()
	fmt.Println("── Game Server Registration ──")

	cfg.Relay.ServerDB.APIKey = promptString(reader,
		"Registration api key (blank allows any server)", cfg.Relay.ServerDB.APIKey)
	cfg.Relay.ServerDB.ValidateEndpoints = promptBool(reader,
		"Probe game server endpoints before accepting registration",
		cfg.Relay.ServerDB.ValidateEndpoints)

	fmt.Println()
	fmt.Println("── MQTT Telemetry ──")

	cfg.Application.MQTT.Enabled = promptBool(reader, "Enable MQTT telemetry", cfg.Application.MQTT.Enabled)
	if cfg.Application.MQTT.Enabled {
		cfg.Application.MQTT.BrokerURL = promptString(reader, "MQTT broker URL", cfg.Application.MQTT.BrokerURL)
		cfg.Application.MQTT.Port = promptInt(reader, "MQTT broker port", cfg.Application.MQTT.Port)
	}

	// Validate before saving
	result := Validate(cfg)
	if !result.IsValid() {
		fmt.Println("\n⚠ Configuration has errors:")
		for _, e := range result.Errors {
			fmt.Printf("  - [%s] %s\n", e.Field, e.Message)
		}
		retry := promptString(reader, "Would you like to try again? (yes/no)", "yes")
		if strings.ToLower(retry) == "yes" {
			return RunSetupWizard(cfg)
		}
		return fmt.Errorf("configuration validation failed")
	}

	for _, w := range result.Warnings {
		log.Warn().Str("field", w.Field).Msg(w.Message)
	}

	// Save configuration
	if err := cfg.Save(); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	fmt.Println()
	fmt.Println("✓ Configuration saved successfully!")
	fmt.Println("  EchoRelay will now start with your configuration.")
	fmt.Println()

	return nil
}

func promptString(reader *bufio.Reader, prompt string, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("  %s [%s]: ", prompt, defaultVal)
	} else {
		fmt.Printf("  %s: ", prompt)
	}

	input, _ := reader.ReadString('\n')
	input = strings.TrimSpace(input)

	if input == "" {
		return defaultVal
	}
	return input
}

func promptInt(reader *bufio.Reader, prompt string, defaultVal int) int {
	fmt.Printf("  %s [%d]: ", prompt, defaultVal)

	input, _ := reader.ReadString('\n')
	input = strings.TrimSpace(input)

	if input == "" {
		return defaultVal
	}

	val, err := strconv.Atoi(input)
	if err != nil {
		fmt.Printf("    Invalid number, using default: %d\n", defaultVal)
		return defaultVal
	}
	return val
}

func promptBool(reader *bufio.Reader, prompt string, defaultVal bool) bool {
	defaultStr := "no"
	if defaultVal {
		defaultStr = "yes"
	}

	fmt.Printf("  %s [%s]: ", prompt, defaultStr)

	input, _ := reader.ReadString('\n')
	input = strings.TrimSpace(strings.ToLower(input))

	if input == "" {
		return defaultVal
	}

	return input == "yes" || input == "y" || input == "true" || input == "1"
}
