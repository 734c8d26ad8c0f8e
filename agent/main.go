package main

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"huddle/internal/assist"
	"huddle/internal/board"
	"huddle/internal/channel"
	"huddle/internal/config"
	"huddle/internal/discovery"
	"huddle/internal/engine"
	"huddle/internal/identity"
	"huddle/internal/logging"
	"huddle/internal/tui"
	"huddle/internal/widget"
)

const discoverAttempts = 3

func main() {
	if err := mainInner(); err != nil {
		fmt.Fprintln(os.Stderr, "huddle:", err)
		os.Exit(1)
	}
}

func mainInner() error {
	configPath := flag.String("config", "", "path to an agent config file (.toml or .yaml)")
	relayAddr := flag.String("relay", "", "relay address, overrides the config file")
	boardID := flag.String("board", "", "board to join; a new board is created when empty")
	profile := flag.String("profile", "", "identity profile, overrides the config file")
	discover := flag.Bool("discover", false, "find a relay on the local network over mDNS")
	name := flag.String("name", "", "display name to use when this profile has none yet")
	flag.Parse()

	cfg, err := config.LoadAgent(*configPath)
	if err != nil {
		return err
	}
	if *relayAddr != "" {
		cfg.Relay = *relayAddr
	}
	if *profile != "" {
		cfg.Profile = *profile
	}
	if *discover {
		cfg.Discover = true
	}

	logFile, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()
	logger := logging.ConfigureFile("huddle-agent", logFile)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	relay := cfg.Relay
	if cfg.Discover {
		fmt.Println("looking for a relay on the local network...")
		relay, err = discovery.Find(ctx, cfg.DiscoverTimeout(), discoverAttempts, logger)
		if err != nil {
			return err
		}
	}

	store, err := identity.OpenBoltStore(cfg.IdentityPath, cfg.Profile)
	if err != nil {
		return err
	}
	defer store.Close()
	ident := identity.NewManager(store, nil, logger)
	if _, err := ident.Ensure(namePrompt(*name)); err != nil {
		return err
	}

	id := strings.TrimSpace(*boardID)
	if id == "" {
		id = newBoardID()
		fmt.Printf("created board %s\n", id)
	}

	conn, err := channel.Dial(ctx, relay, id, logger)
	if err != nil {
		return err
	}

	assistant, err := assist.NewClient(relay, nil)
	if err != nil {
		return err
	}

	var program *tea.Program
	editor := tui.NewCodeEditor(nil)
	focus := &tui.FocusState{}
	session := engine.New(conn, editor, ident, engine.Options{
		BoardID:   id,
		Debounce:  cfg.Debounce(),
		EchoGrace: cfg.EchoGrace(),
		Focus:     focus,
		Video:     &widget.JitsiCall{Base: cfg.JitsiBase, Opener: browserOpener(logger)},
		Assistant: assistant,
		OnUpdate:  func(v board.View) { program.Send(tui.ViewMsg(v)) },
	}, logger)

	program = tea.NewProgram(tui.New(session, editor, focus, session.Editor().Ready), tea.WithAltScreen())
	editor.Bind(program.Send)

	go func() {
		err := session.Run(ctx)
		if err != nil {
			logger.Error().Err(err).Msg("session ended")
		}
		program.Send(tui.SessionEndedMsg{Err: err})
	}()

	_, runErr := program.Run()
	cancel()
	<-session.Done()
	if runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) {
		return fmt.Errorf("run ui: %w", runErr)
	}
	fmt.Printf("left board %s\n", id)
	return nil
}

// namePrompt asks on the terminal unless a name was given on the command
// line. It only runs for a profile with no stored identity.
func namePrompt(preset string) identity.Prompter {
	return func() (string, error) {
		if n := strings.TrimSpace(preset); n != "" {
			return n, nil
		}
		fmt.Print("your name: ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return "", fmt.Errorf("read name: %w", err)
		}
		return strings.TrimSpace(line), nil
	}
}

// newBoardID returns ten base36 characters.
func newBoardID() string {
	u := uuid.New()
	id := strconv.FormatUint(binary.BigEndian.Uint64(u[:8]), 36)
	for len(id) < 10 {
		id = "0" + id
	}
	return id[:10]
}

// browserOpener hands call links to the desktop's URL handler. When none is
// available the link is logged so it can be opened by hand.
func browserOpener(logger zerolog.Logger) func(string) error {
	return func(link string) error {
		var cmd *exec.Cmd
		switch runtime.GOOS {
		case "darwin":
			cmd = exec.Command("open", link)
		case "windows":
			cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", link)
		default:
			cmd = exec.Command("xdg-open", link)
		}
		if err := cmd.Start(); err != nil {
			logger.Warn().Err(err).Str("link", link).Msg("could not open browser")
			return fmt.Errorf("open %s: %w", link, err)
		}
		go func() { _ = cmd.Wait() }()
		return nil
	}
}
