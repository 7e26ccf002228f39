// Package cli implements the interactive operator console. It provides
// live registry status display and session management commands over the
// same registry the websocket service runs against.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/olekukonko/tablewriter"
	"github.com/rs/zerolog/log"

	"github.com/Xenomega/EchoRelay-sub000/internal/config"
	"github.com/Xenomega/EchoRelay-sub000/internal/events"
	"github.com/Xenomega/EchoRelay-sub000/internal/serverdb"
)

// CLI provides an interactive command-line interface.
type CLI struct {
	cfg      *config.Config
	eventBus *events.EventBus
	registry *serverdb.Registry
}

// NewCLI creates a new CLI handler.
func NewCLI(cfg *config.Config, eventBus *events.EventBus, registry *serverdb.Registry) *CLI {
	return &CLI{
		cfg:      cfg,
		eventBus: eventBus,
		registry: registry,
	}
}

// Start begins the interactive CLI loop.
func (c *CLI) Start(ctx context.Context) {
	fmt.Println("\nRelay CLI ready. Type 'help' for available commands.")
	fmt.Println("─────────────────────────────────────────────────────")

	// Simple line reader for cross-platform compatibility
	reader := newLineReader()
	if reader == nil {
		log.Warn().Msg("CLI: failed to initialize line reader, CLI disabled")
		<-ctx.Done()
		return
	}
	defer reader.Close()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := reader.ReadLine("relay> ")
		if err != nil {
			if err == io.EOF {
				return
			}
			continue
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		parts := strings.Fields(line)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		if err := c.execute(ctx, cmd, args); err != nil {
			fmt.Printf("Error: %v\n", err)
		}
	}
}

// execute processes a single CLI command.
func (c *CLI) execute(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "help", "h", "?":
		c.printHelp()
	case "status", "s":
		c.printStatus(args)
	case "endsession", "end":
		return c.cmdEndSession(ctx, args)
	case "lock":
		return c.cmdSetLock(ctx, args, true)
	case "unlock":
		return c.cmdSetLock(ctx, args, false)
	case "kick":
		return c.cmdKickPlayer(ctx, args)
	case "disconnect", "dc":
		return c.cmdDisconnect(args)
	case "setconfig":
		return c.cmdSetConfig(args)
	case "quit", "exit", "q":
		fmt.Println("Shutting down relay...")
		c.eventBus.Emit(ctx, events.Event{
			Type:   events.EventShutdown,
			Source: "cli",
		})
	default:
		fmt.Printf("Unknown command: '%s'. Type 'help' for available commands.\n", cmd)
	}
	return nil
}

// printHelp displays available commands.
func (c *CLI) printHelp() {
	fmt.Println("\n╔══════════════════════════════════════════════════════════════╗")
	fmt.Println("║                      Relay CLI Commands                      ║")
	fmt.Println("╠══════════════════════════════════════════════════════════════╣")
	fmt.Println("║  status [id]        Show all servers or a specific server   ║")
	fmt.Println("║  endsession <id>    End a game server's session             ║")
	fmt.Println("║  lock <id>          Lock a session to new players           ║")
	fmt.Println("║  unlock <id>        Unlock a session                        ║")
	fmt.Println("║  kick <id> <uuid>   Kick a player session from a server     ║")
	fmt.Println("║  disconnect <id>    Disconnect a game server                ║")
	fmt.Println("║  setconfig <k> <v>  Update a configuration value            ║")
	fmt.Println("║  quit               Shutdown the relay                      ║")
	fmt.Println("║  help               Show this help message                  ║")
	fmt.Println("╚══════════════════════════════════════════════════════════════╝")
	fmt.Println()
}

// printStatus displays registered servers in a formatted table.
func (c *CLI) printStatus(args []string) {
	if len(args) > 0 {
		server, err := c.lookupServer(args)
		if err != nil {
			fmt.Println(err)
			return
		}
		c.printServerDetail(server)
		return
	}

	servers := c.registry.All()
	fmt.Println()

	tw := tablewriter.NewWriter(os.Stdout)
	tw.SetHeader([]string{"Server ID", "Endpoint", "Region", "Session", "Lobby", "Players", "Locked"})
	tw.SetBorder(true)
	tw.SetAutoWrapText(false)

	for _, server := range servers {
		state := server.SessionState()

		session := "-"
		lobby := "-"
		players := "-"
		locked := "-"
		if state.ID != nil {
			session = state.ID.String()
			lobby = state.LobbyType.String()
			players = fmt.Sprintf("%d/%d", state.PlayerCount, state.Limits.TotalPlayerLimit)
			locked = fmt.Sprintf("%v", state.Locked)
		}

		tw.Append([]string{
			fmt.Sprintf("%d", server.ServerID()),
			fmt.Sprintf("%s:%d", server.ExternalAddress(), server.Port()),
			server.RegionSymbol().String(),
			session,
			lobby,
			players,
			locked,
		})
	}

	tw.Render()
	fmt.Printf("%d server(s) registered\n\n", len(servers))
}

// printServerDetail prints detailed info for a single server.
func (c *CLI) printServerDetail(server *serverdb.GameServer) {
	state := server.SessionState()

	fmt.Printf("\n  Server ID:    %d\n", server.ServerID())
	fmt.Printf("  Internal:     %s\n", server.InternalAddress())
	fmt.Printf("  External:     %s:%d\n", server.ExternalAddress(), server.Port())
	fmt.Printf("  Region:       %s\n", server.RegionSymbol())
	fmt.Printf("  Version Lock: %d\n", server.VersionLock())

	if state.ID == nil {
		fmt.Println("  Session:      none")
		fmt.Println()
		return
	}

	fmt.Printf("  Session:      %s\n", state.ID)
	fmt.Printf("  Lobby Type:   %s\n", state.LobbyType)
	fmt.Printf("  Channel:      %s\n", state.Channel)
	if state.GameTypeSymbol != nil {
		fmt.Printf("  Game Type:    %d\n", *state.GameTypeSymbol)
	}
	if state.LevelSymbol != nil {
		fmt.Printf("  Level:        %d\n", *state.LevelSymbol)
	}
	fmt.Printf("  Locked:       %v\n", state.Locked)
	fmt.Printf("  Players:      %d/%d\n", state.PlayerCount, state.Limits.TotalPlayerLimit)

	players := server.Players()
	if len(players) > 0 {
		fmt.Println("  Player Sessions:")
		for _, player := range players {
			fmt.Printf("    - %s\n", player.PlayerSession)
		}
	}
	fmt.Println()
}

func (c *CLI) cmdEndSession(ctx context.Context, args []string) error {
	server, err := c.lookupServer(args)
	if err != nil {
		return err
	}

	if !server.SessionStarted() {
		return fmt.Errorf("server %d has no session", server.ServerID())
	}

	if err := server.EndSession(ctx); err != nil {
		return err
	}
	fmt.Printf("Session ended on server %d\n", server.ServerID())
	return nil
}

func (c *CLI) cmdSetLock(ctx context.Context, args []string, locked bool) error {
	server, err := c.lookupServer(args)
	if err != nil {
		return err
	}

	server.SetLockedStatus(ctx, locked)
	if locked {
		fmt.Printf("Session locked on server %d\n", server.ServerID())
	} else {
		fmt.Printf("Session unlocked on server %d\n", server.ServerID())
	}
	return nil
}

func (c *CLI) cmdKickPlayer(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: kick <server_id> <player_session>")
	}

	server, err := c.lookupServer(args)
	if err != nil {
		return err
	}

	playerSession, err := uuid.Parse(args[1])
	if err != nil {
		return fmt.Errorf("invalid player session: %s", args[1])
	}

	if _, ok := server.PlayerPeer(playerSession); !ok {
		return fmt.Errorf("player session %s not found on server %d", playerSession, server.ServerID())
	}

	if err := server.KickPlayer(ctx, playerSession); err != nil {
		return err
	}
	fmt.Printf("Kicked player %s from server %d\n", playerSession, server.ServerID())
	return nil
}

func (c *CLI) cmdDisconnect(args []string) error {
	server, err := c.lookupServer(args)
	if err != nil {
		return err
	}

	// Closing the peer ends its read loop, which removes the registration.
	if err := server.Peer().Close(); err != nil {
		return err
	}
	fmt.Printf("Disconnected server %d\n", server.ServerID())
	return nil
}

func (c *CLI) cmdSetConfig(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: setconfig <key> <value>")
	}

	key := args[0]
	value := strings.Join(args[1:], " ")

	if err := c.cfg.UpdateRelayField(key, value); err != nil {
		return err
	}

	if err := c.cfg.Save(); err != nil {
		return err
	}

	fmt.Printf("Config updated: %s = %s\n", key, value)
	return nil
}

func (c *CLI) lookupServer(args []string) (*serverdb.GameServer, error) {
	if len(args) < 1 {
		return nil, fmt.Errorf("server id required")
	}
	serverID, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid server id: %s", args[0])
	}
	server, ok := c.registry.GetByID(serverID)
	if !ok {
		return nil, fmt.Errorf("server %d is not registered", serverID)
	}
	return server, nil
}

// lineReader is a simple cross-platform line reader.
type lineReader struct {
	scanner *bufio.Scanner
}

func newLineReader() *lineReader {
	return &lineReader{scanner: bufio.NewScanner(os.Stdin)}
}

func (lr *lineReader) ReadLine(prompt string) (string, error) {
	fmt.Print(prompt)
	if !lr.scanner.Scan() {
		if err := lr.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return lr.scanner.Text(), nil
}

func (lr *lineReader) Close() error { return nil }
