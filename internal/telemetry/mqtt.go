// Package telemetry publishes registry and session lifecycle events over
// MQTT for external monitoring.
package telemetry

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"os"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/Xenomega/EchoRelay-sub000/internal/config"
	"github.com/Xenomega/EchoRelay-sub000/internal/events"
	"github.com/Xenomega/EchoRelay-sub000/internal/util"
)

// MQTT topic suffixes, published under the configured topic root.
const (
	TopicAdmin    = "relay/admin"
	TopicStatus   = "relay/status"
	TopicRegistry = "game_server/registry"
	TopicSession  = "game_server/session"
	TopicPlayers  = "game_server/players"
)

// MQTTHandler manages the MQTT connection and publishes telemetry events.
type MQTTHandler struct {
	cfg      *config.Config
	eventBus *events.EventBus
	client   mqtt.Client
	root     string
	logger   zerolog.Logger

	// Metadata included in every message
	metadata map[string]interface{}
}

// NewMQTTHandler creates a new MQTT telemetry handler.
func NewMQTTHandler(cfg *config.Config, eventBus *events.EventBus) (*MQTTHandler, error) {
	mqttCfg := cfg.GetApplicationData().MQTT

	if !mqttCfg.Enabled {
		return nil, fmt.Errorf("MQTT is disabled")
	}

	// Build system metadata
	sysInfo := util.GetSystemInfo()
	metadata := map[string]interface{}{
		"hostname":    sysInfo.Hostname,
		"platform":    sysInfo.Platform,
		"relay_name":  cfg.GetRelayData().Name,
		"app_version": "1.0.0",
	}

	root := mqttCfg.TopicRoot
	if root == "" {
		root = "echorelay"
	}

	handler := &MQTTHandler{
		cfg:      cfg,
		eventBus: eventBus,
		root:     root,
		metadata: metadata,
		logger:   util.ComponentLogger("mqtt"),
	}

	// Configure MQTT client
	opts := mqtt.NewClientOptions()
	scheme := "tcp"
	if mqttCfg.UseTLS {
		scheme = "ssl"
	}
	opts.AddBroker(fmt.Sprintf("%s://%s:%d", scheme, mqttCfg.BrokerURL, mqttCfg.Port))

	if mqttCfg.ClientID != "" {
		opts.SetClientID(mqttCfg.ClientID)
	} else {
		opts.SetClientID(fmt.Sprintf("echorelay-%s", sysInfo.Hostname))
	}

	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(30 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetCleanSession(false)

	// TLS configuration
	if mqttCfg.UseTLS {
		tlsConfig := &tls.Config{
			MinVersion: tls.VersionTLS12,
		}

		if mqttCfg.CAFile != "" {
			caCert, err := os.ReadFile(mqttCfg.CAFile)
			if err != nil {
				return nil, fmt.Errorf("failed to read MQTT CA file: %w", err)
			}
			pool := x509.NewCertPool()
			if !pool.AppendCertsFromPEM(caCert) {
				return nil, fmt.Errorf("no certificates parsed from MQTT CA file")
			}
			tlsConfig.RootCAs = pool
		}

		// mTLS: load client certificate
		if mqttCfg.CertFile != "" && mqttCfg.KeyFile != "" {
			cert, err := tls.LoadX509KeyPair(mqttCfg.CertFile, mqttCfg.KeyFile)
			if err != nil {
				return nil, fmt.Errorf("failed to load MQTT TLS certificate: %w", err)
			}
			tlsConfig.Certificates = []tls.Certificate{cert}
		}

		opts.SetTLSConfig(tlsConfig)
	}

	// Connection callbacks
	opts.SetOnConnectHandler(func(client mqtt.Client) {
		handler.logger.Info().Msg("connected to broker")
	})

	opts.SetConnectionLostHandler(func(client mqtt.Client, err error) {
		handler.logger.Warn().Err(err).Msg("connection lost")
	})

	handler.client = mqtt.NewClient(opts)

	return handler, nil
}

// Start connects to the MQTT broker and subscribes to events.
func (h *MQTTHandler) Start(ctx context.Context) error {
	mqttCfg := h.cfg.GetApplicationData().MQTT
	h.logger.Info().
		Str("broker", mqttCfg.BrokerURL).
		Int("port", mqttCfg.Port).
		Msg("connecting to broker")

	token := h.client.Connect()
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("MQTT connect failed: %w", token.Error())
	}

	// Subscribe to EventBus events for publishing
	h.subscribeEvents()

	// Block until context cancelled
	<-ctx.Done()

	h.PublishShutdown()
	h.client.Disconnect(5000)
	h.logger.Info().Msg("disconnected")

	return nil
}

// subscribeEvents registers event handlers for MQTT publishing.
func (h *MQTTHandler) subscribeEvents() {
	h.eventBus.Subscribe(events.EventServerRegistered, "mqtt.serverRegistered", h.onRegistryEvent("registered"))
	h.eventBus.Subscribe(events.EventServerUnregistered, "mqtt.serverUnregistered", h.onRegistryEvent("unregistered"))
	h.eventBus.Subscribe(events.EventSessionStarted, "mqtt.sessionStarted", h.onSessionEvent("session_started"))
	h.eventBus.Subscribe(events.EventSessionEnded, "mqtt.sessionEnded", h.onSessionEvent("session_ended"))
	h.eventBus.Subscribe(events.EventSessionLockChanged, "mqtt.sessionLock", h.onSessionEvent("session_lock_changed"))
	h.eventBus.Subscribe(events.EventPlayersAdded, "mqtt.playersAdded", h.onPlayerEvent("players_added"))
	h.eventBus.Subscribe(events.EventPlayerRemoved, "mqtt.playerRemoved", h.onPlayerEvent("player_removed"))
	h.eventBus.Subscribe(events.EventPlayerKicked, "mqtt.playerKicked", h.onPlayerEvent("player_kicked"))
	h.eventBus.Subscribe(events.EventNotifyMQTT, "mqtt.notify", h.onNotify)
}

// publish sends a JSON message to an MQTT topic below the topic root.
func (h *MQTTHandler) publish(topic string, payload interface{}) {
	if !h.client.IsConnected() {
		return
	}

	// Merge metadata with payload
	msg := h.buildMessage(payload)

	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Warn().Err(err).Str("topic", topic).Msg("failed to marshal message")
		return
	}

	token := h.client.Publish(h.root+"/"+topic, 1, false, data) // QoS 1
	go func() {
		token.Wait()
		if token.Error() != nil {
			h.logger.Warn().Err(token.Error()).Str("topic", topic).Msg("publish failed")
		}
	}()
}

// buildMessage combines metadata with the event payload.
func (h *MQTTHandler) buildMessage(payload interface{}) map[string]interface{} {
	msg := make(map[string]interface{})

	// Add metadata
	for k, v := range h.metadata {
		msg[k] = v
	}

	// Add payload
	msg["payload"] = payload
	msg["timestamp"] = time.Now().UTC().Format(time.RFC3339)

	return msg
}

// Event handlers

func (h *MQTTHandler) onRegistryEvent(kind string) events.HandlerFunc {
	return func(ctx context.Context, event events.Event) error {
		h.publish(TopicRegistry, map[string]interface{}{
			"event": kind,
			"data":  event.Payload,
		})
		return nil
	}
}

func (h *MQTTHandler) onSessionEvent(kind string) events.HandlerFunc {
	return func(ctx context.Context, event events.Event) error {
		h.publish(TopicSession, map[string]interface{}{
			"event": kind,
			"data":  event.Payload,
		})
		return nil
	}
}

func (h *MQTTHandler) onPlayerEvent(kind string) events.HandlerFunc {
	return func(ctx context.Context, event events.Event) error {
		h.publish(TopicPlayers, map[string]interface{}{
			"event": kind,
			"data":  event.Payload,
		})
		return nil
	}
}

func (h *MQTTHandler) onNotify(ctx context.Context, event events.Event) error {
	h.publish(TopicStatus, event.Payload)
	return nil
}

// PublishShutdown sends a shutdown message to the MQTT broker.
func (h *MQTTHandler) PublishShutdown() {
	h.publish(TopicAdmin, map[string]interface{}{
		"event":     "shutdown",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
