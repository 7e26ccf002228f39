package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Xenomega/EchoRelay-sub000/internal/serverdb"
	"github.com/Xenomega/EchoRelay-sub000/internal/util"
)

// serverView is the JSON shape of one registered game server.
type serverView struct {
	ServerID        uint64       `json:"server_id"`
	InternalAddress string       `json:"internal_address"`
	ExternalAddress string       `json:"external_address"`
	Port            uint16       `json:"port"`
	Region          string       `json:"region_symbol"`
	VersionLock     int64        `json:"version_lock"`
	Session         *sessionView `json:"session,omitempty"`
}

type sessionView struct {
	SessionID   string `json:"session_id"`
	LobbyType   string `json:"lobby_type"`
	GameType    *int64 `json:"gametype_symbol,omitempty"`
	Level       *int64 `json:"level_symbol,omitempty"`
	Channel     string `json:"channel"`
	Locked      bool   `json:"locked"`
	PlayerCount int    `json:"player_count"`
	PlayerLimit int    `json:"player_limit"`
}

func viewOf(server *serverdb.GameServer) serverView {
	view := serverView{
		ServerID:        server.ServerID(),
		InternalAddress: server.InternalAddress().String(),
		ExternalAddress: server.ExternalAddress().String(),
		Port:            server.Port(),
		Region:          server.RegionSymbol().String(),
		VersionLock:     server.VersionLock(),
	}
	state := server.SessionState()
	if state.ID != nil {
		view.Session = &sessionView{
			SessionID:   state.ID.String(),
			LobbyType:   state.LobbyType.String(),
			GameType:    state.GameTypeSymbol,
			Level:       state.LevelSymbol,
			Channel:     state.Channel.String(),
			Locked:      state.Locked,
			PlayerCount: state.PlayerCount,
			PlayerLimit: state.Limits.TotalPlayerLimit,
		}
	}
	return view
}

// handleGetServers returns all registered game servers and their sessions.
func (s *Server) handleGetServers(c *gin.Context) {
	servers := s.svc.Registry().All()
	views := make([]serverView, 0, len(servers))
	for _, server := range servers {
		views = append(views, viewOf(server))
	}
	c.JSON(http.StatusOK, gin.H{
		"servers": views,
		"total":   len(views),
	})
}

// handleGetServer returns one registered game server by id.
func (s *Server) handleGetServer(c *gin.Context) {
	server, ok := s.lookupServer(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, viewOf(server))
}

// handleGetTotalServers returns registry occupancy counts.
func (s *Server) handleGetTotalServers(c *gin.Context) {
	servers := s.svc.Registry().All()
	inSession := 0
	players := 0
	for _, server := range servers {
		if server.SessionStarted() {
			inSession++
		}
		players += server.PlayerCount()
	}
	c.JSON(http.StatusOK, gin.H{
		"total":      len(servers),
		"in_session": inSession,
		"players":    players,
	})
}

// handleGetCPUUsage returns current system CPU usage.
func (s *Server) handleGetCPUUsage(c *gin.Context) {
	usage, err := util.GetCPUUsage()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"cpu_percent": usage,
	})
}

// handleGetMemoryUsage returns current system memory usage.
func (s *Server) handleGetMemoryUsage(c *gin.Context) {
	mem, err := util.GetMemoryUsage()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total_mb":     mem.Total,
		"used_mb":      mem.Used,
		"available_mb": mem.Available,
		"used_percent": mem.UsedPercent,
	})
}

// handleGetDiskUsage returns disk usage for the working directory.
func (s *Server) handleGetDiskUsage(c *gin.Context) {
	usage, err := util.GetDiskUsage(".")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total_gb":     usage.Total,
		"used_gb":      usage.Used,
		"free_gb":      usage.Free,
		"used_percent": usage.UsedPercent,
	})
}

// handleGetLogEntries returns recent log entries.
func (s *Server) handleGetLogEntries(c *gin.Context) {
	countStr := c.DefaultQuery("count", "100")
	count, err := strconv.Atoi(countStr)
	if err != nil || count < 1 {
		count = 100
	}
	if count > 1000 {
		count = 1000
	}

	logDir := s.cfg.GetApplicationData().Logging.Directory
	entries, err := readRecentLogEntries(logDir, count)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"entries": entries,
		"count":   len(entries),
	})
}

// logEntry is a parsed log entry for the API response.
type logEntry struct {
	Timestamp string                 `json:"timestamp"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// readRecentLogEntries reads and parses the most recent log entries from log files.
// Zerolog writes JSON lines; we parse them into structured objects for operators.
func readRecentLogEntries(logDir string, count int) ([]logEntry, error) {
	dirEntries, err := os.ReadDir(logDir)
	if err != nil {
		return nil, err
	}

	if len(dirEntries) == 0 {
		return []logEntry{}, nil
	}

	// Find the most recent log file
	var latestFile string
	for i := len(dirEntries) - 1; i >= 0; i-- {
		if !dirEntries[i].IsDir() && filepath.Ext(dirEntries[i].Name()) == ".log" {
			latestFile = filepath.Join(logDir, dirEntries[i].Name())
			break
		}
	}

	if latestFile == "" {
		return []logEntry{}, nil
	}

	// Read file content
	data, err := os.ReadFile(latestFile)
	if err != nil {
		return nil, err
	}

	lines := strings.Split(string(data), "\n")

	// Take last N lines
	start := len(lines) - count
	if start < 0 {
		start = 0
	}

	// Known zerolog internal fields to exclude from "fields"
	knownKeys := map[string]bool{
		"level": true, "time": true, "message": true,
		"caller": true, "app": true,
	}

	result := make([]logEntry, 0, count)
	for _, line := range lines[start:] {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		// Parse the JSON line
		var raw map[string]interface{}
		if err := json.Unmarshal([]byte(line), &raw); err != nil {
			// Not valid JSON — include as a plain message
			result = append(result, logEntry{Message: line})
			continue
		}

		entry := logEntry{
			Level:   stringFromMap(raw, "level"),
			Message: stringFromMap(raw, "message"),
		}

		// Parse timestamp (zerolog uses "time" field)
		if t, ok := raw["time"]; ok {
			entry.Timestamp = fmt.Sprintf("%v", t)
		}

		// Collect remaining fields
		extra := make(map[string]interface{})
		for k, v := range raw {
			if !knownKeys[k] {
				extra[k] = v
			}
		}
		if len(extra) > 0 {
			entry.Fields = extra
		}

		result = append(result, entry)
	}

	return result, nil
}

// stringFromMap extracts a string value from a map, returning "" if missing.
func stringFromMap(m map[string]interface{}, key string) string {
	if v, ok := m[key]; ok {
		return fmt.Sprintf("%v", v)
	}
	return ""
}
