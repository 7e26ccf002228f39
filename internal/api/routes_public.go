package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Xenomega/EchoRelay-sub000/internal/util"
)

// Version is the relay release version reported by the API.
const Version = "1.0.0"

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "echorelay",
		"version": Version,
	})
}

// handleGetServerInfo returns basic relay information.
func (s *Server) handleGetServerInfo(c *gin.Context) {
	relay := s.cfg.GetRelayData()
	sysInfo := util.GetSystemInfo()
	localAddr, _ := util.GetLocalIP()

	c.JSON(http.StatusOK, gin.H{
		"relay_name":         relay.Name,
		"public_address":     relay.PublicAddress,
		"local_address":      localAddr,
		"registered_servers": s.svc.Registry().Count(),
		"uptime_sec":         int(time.Since(s.startedAt).Seconds()),
		"platform":           sysInfo.Platform,
		"cpu_model":          sysInfo.CPUModel,
		"cpu_cores":          sysInfo.CPUCores,
		"total_memory_mb":    sysInfo.TotalMemory,
	})
}

// handleGetVersion returns the relay version.
func (s *Server) handleGetVersion(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"version": Version,
		"name":    "EchoRelay",
	})
}
