package tui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"huddle/internal/assist"
)

type CommandKind int

const (
	CmdChat CommandKind = iota
	CmdTask
	CmdDone
	CmdUndo
	CmdRemove
	CmdAssign
	CmdName
	CmdLink
	CmdCall
	CmdHangup
	CmdAI
	CmdQuit
)

// Command is one parsed line from the command bar.
type Command struct {
	Kind   CommandKind
	Text   string
	Pos    int
	Action assist.Action
}

var ErrEmptyCommand = errors.New("nothing to do")

// ParseCommand turns a command bar line into a Command. Lines that do not
// start with a slash are chat messages.
func ParseCommand(line string) (Command, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Command{}, ErrEmptyCommand
	}
	if !strings.HasPrefix(line, "/") {
		return Command{Kind: CmdChat, Text: line}, nil
	}
	verb, rest, _ := strings.Cut(line[1:], " ")
	rest = strings.TrimSpace(rest)

	switch strings.ToLower(verb) {
	case "task":
		if rest == "" {
			return Command{}, fmt.Errorf("usage: /task <text>")
		}
		return Command{Kind: CmdTask, Text: rest}, nil
	case "done", "undo", "rm":
		pos, err := position(rest)
		if err != nil {
			return Command{}, fmt.Errorf("usage: /%s <n>", verb)
		}
		kind := map[string]CommandKind{"done": CmdDone, "undo": CmdUndo, "rm": CmdRemove}[strings.ToLower(verb)]
		return Command{Kind: kind, Pos: pos}, nil
	case "assign":
		rawPos, name, _ := strings.Cut(rest, " ")
		pos, err := position(rawPos)
		name = strings.TrimSpace(name)
		if err != nil || name == "" {
			return Command{}, fmt.Errorf("usage: /assign <n> <name>")
		}
		return Command{Kind: CmdAssign, Pos: pos, Text: name}, nil
	case "name":
		if rest == "" {
			return Command{}, fmt.Errorf("usage: /name <new name>")
		}
		return Command{Kind: CmdName, Text: rest}, nil
	case "link":
		return Command{Kind: CmdLink, Text: rest}, nil
	case "call":
		return Command{Kind: CmdCall}, nil
	case "hangup":
		return Command{Kind: CmdHangup}, nil
	case "ai":
		action, err := assist.ParseAction(rest)
		if err != nil {
			return Command{}, fmt.Errorf("usage: /ai analyze|refactor|comments")
		}
		return Command{Kind: CmdAI, Action: action}, nil
	case "quit", "q":
		return Command{Kind: CmdQuit}, nil
	}
	return Command{}, fmt.Errorf("unknown command /%s", verb)
}

func position(raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return 0, fmt.Errorf("bad task number %q", raw)
	}
	return n, nil
}
