package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/Xenomega/EchoRelay-sub000/internal/config"
	"github.com/Xenomega/EchoRelay-sub000/internal/events"
)

// handleGetConfig returns the full current configuration.
func (s *Server) handleGetConfig(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"relay":            s.cfg.GetRelayData(),
		"application_data": s.cfg.GetApplicationData(),
	})
}

// handleSetRelayData updates the relay configuration.
func (s *Server) handleSetRelayData(c *gin.Context) {
	var relayData config.RelayData
	if err := c.ShouldBindJSON(&relayData); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	prev := s.cfg.GetRelayData()
	s.cfg.SetRelayData(relayData)

	if result := config.Validate(s.cfg); !result.IsValid() {
		s.cfg.SetRelayData(prev)
		c.JSON(http.StatusBadRequest, gin.H{"error": result.Errors[0].Error()})
		return
	}

	if err := s.cfg.Save(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save config"})
		return
	}

	// Emit config changed event
	s.eventBus.Emit(c.Request.Context(), events.Event{
		Type:   events.EventConfigChanged,
		Source: "api",
		Payload: events.ConfigChangedPayload{
			Section: "relay",
		},
	})

	log.Info().Msg("API: relay data updated")

	c.JSON(http.StatusOK, gin.H{
		"status": "updated",
		"data":   s.cfg.GetRelayData(),
	})
}

// handleSetAppData updates application configuration.
func (s *Server) handleSetAppData(c *gin.Context) {
	var appData config.ApplicationData
	if err := c.ShouldBindJSON(&appData); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	prev := s.cfg.GetApplicationData()
	s.cfg.SetApplicationData(appData)

	if result := config.Validate(s.cfg); !result.IsValid() {
		s.cfg.SetApplicationData(prev)
		c.JSON(http.StatusBadRequest, gin.H{"error": result.Errors[0].Error()})
		return
	}

	if err := s.cfg.Save(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save config"})
		return
	}

	s.eventBus.Emit(c.Request.Context(), events.Event{
		Type:   events.EventConfigChanged,
		Source: "api",
		Payload: events.ConfigChangedPayload{
			Section: "application_data",
		},
	})

	c.JSON(http.StatusOK, gin.H{
		"status": "updated",
	})
}
