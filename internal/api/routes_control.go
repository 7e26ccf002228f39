package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Xenomega/EchoRelay-sub000/internal/serverdb"
)

// lookupServer resolves the server_id URL parameter to a registered game
// server, writing the error response itself on failure.
func (s *Server) lookupServer(c *gin.Context) (*serverdb.GameServer, bool) {
	serverID, err := strconv.ParseUint(c.Param("server_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid server id"})
		return nil, false
	}

	server, ok := s.svc.Registry().GetByID(serverID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "server not registered", "server_id": serverID})
		return nil, false
	}
	return server, true
}

// handleEndSession ends the active session on a game server.
func (s *Server) handleEndSession(c *gin.Context) {
	server, ok := s.lookupServer(c)
	if !ok {
		return
	}

	if !server.SessionStarted() {
		c.JSON(http.StatusConflict, gin.H{"error": "no active session", "server_id": server.ServerID()})
		return
	}

	if err := server.EndSession(c.Request.Context()); err != nil {
		log.Error().Err(err).Uint64("server_id", server.ServerID()).Msg("API: failed to end session")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	log.Info().Uint64("server_id", server.ServerID()).Msg("API: session ended")
	c.JSON(http.StatusOK, gin.H{
		"status":    "ended",
		"server_id": server.ServerID(),
	})
}

// handleLockSession locks a game server's session against new players.
func (s *Server) handleLockSession(c *gin.Context) {
	server, ok := s.lookupServer(c)
	if !ok {
		return
	}

	server.SetLockedStatus(c.Request.Context(), true)
	c.JSON(http.StatusOK, gin.H{
		"status":    "locked",
		"server_id": server.ServerID(),
	})
}

// handleUnlockSession reopens a game server's session to new players.
func (s *Server) handleUnlockSession(c *gin.Context) {
	server, ok := s.lookupServer(c)
	if !ok {
		return
	}

	server.SetLockedStatus(c.Request.Context(), false)
	c.JSON(http.StatusOK, gin.H{
		"status":    "unlocked",
		"server_id": server.ServerID(),
	})
}

// handleKickPlayer tells a game server to disconnect one player session.
func (s *Server) handleKickPlayer(c *gin.Context) {
	server, ok := s.lookupServer(c)
	if !ok {
		return
	}

	playerSession, err := uuid.Parse(c.Param("player_session"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid player session id"})
		return
	}

	if _, ok := server.PlayerPeer(playerSession); !ok {
		c.JSON(http.StatusNotFound, gin.H{
			"error":          "player session not found",
			"player_session": playerSession.String(),
		})
		return
	}

	if err := server.KickPlayer(c.Request.Context(), playerSession); err != nil {
		log.Error().Err(err).Uint64("server_id", server.ServerID()).Msg("API: failed to kick player")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	log.Info().
		Uint64("server_id", server.ServerID()).
		Str("player_session", playerSession.String()).
		Msg("API: player kicked")

	c.JSON(http.StatusOK, gin.H{
		"status":         "kicked",
		"server_id":      server.ServerID(),
		"player_session": playerSession.String(),
	})
}

// handleDisconnectServer closes a game server's connection, dropping its
// registration.
func (s *Server) handleDisconnectServer(c *gin.Context) {
	server, ok := s.lookupServer(c)
	if !ok {
		return
	}

	// Closing the peer ends its read loop, which removes the registration.
	if err := server.Peer().Close(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	log.Info().Uint64("server_id", server.ServerID()).Msg("API: game server disconnected")
	c.JSON(http.StatusOK, gin.H{
		"status":    "disconnected",
		"server_id": server.ServerID(),
	})
}
