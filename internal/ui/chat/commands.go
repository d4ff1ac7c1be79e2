// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/cradle-tui/internal/app"
	"github.com/jeranaias/cradle-tui/internal/config"
	"github.com/jeranaias/cradle-tui/internal/model"
)

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// Command is one slash command.
type Command struct {
	Name        string
	Aliases     []string
	Args        string
	Description string
	Run         func(m *Model, args []string) tea.Cmd
}

// Commands returns the built-in commands in help order.
func Commands() []Command {
	return []Command{
		{
			Name:        "new",
			Aliases:     []string{"n"},
			Description: "start a new conversation",
			Run: func(m *Model, _ []string) tea.Cmd {
				m.do(func(c *app.Controller) { c.NewConversation() })
				return nil
			},
		},
		{
			Name:        "back",
			Aliases:     []string{"b"},
			Description: "go back in history",
			Run: func(m *Model, _ []string) tea.Cmd {
				m.do(func(c *app.Controller) { c.Back() })
				return nil
			},
		},
		{
			Name:        "forward",
			Aliases:     []string{"f"},
			Description: "go forward in history",
			Run: func(m *Model, _ []string) tea.Cmd {
				m.do(func(c *app.Controller) { c.Forward() })
				return nil
			},
		},
		{
			Name:        "go",
			Args:        "<fragment>",
			Description: "navigate to a fragment such as #chat/c_12",
			Run: func(m *Model, args []string) tea.Cmd {
				if len(args) == 0 {
					return status("usage: /go <fragment>")
				}
				fragment := args[0]
				m.do(func(c *app.Controller) { c.Navigate(fragment) })
				return nil
			},
		},
		{
			Name:        "open",
			Aliases:     []string{"o"},
			Args:        "<n|id>",
			Description: "open a conversation by list position or id",
			Run: func(m *Model, args []string) tea.Cmd {
				if len(args) == 0 {
					return status("usage: /open <n|id>")
				}
				id, err := resolveConversation(m, args[0])
				if err != nil {
					return status(err.Error())
				}
				m.do(func(c *app.Controller) { c.Select(id) })
				return nil
			},
		},
		{
			Name:        "list",
			Aliases:     []string{"ls"},
			Description: "toggle the conversation list",
			Run: func(m *Model, _ []string) tea.Cmd {
				m.showSidebar = !m.showSidebar
				if !m.showSidebar {
					m.setSidebarFocus(false)
				}
				m.layout()
				return nil
			},
		},
		{
			Name:        "refresh",
			Description: "reload the conversation list",
			Run: func(m *Model, _ []string) tea.Cmd {
				m.do(func(c *app.Controller) { c.Refresh() })
				return nil
			},
		},
		{
			Name:        "delay",
			Args:        "<duration>",
			Description: "set the playback pace, e.g. 10ms",
			Run: func(m *Model, args []string) tea.Cmd {
				if len(args) == 0 {
					return status("usage: /delay <duration>")
				}
				var d config.Duration
				if err := d.UnmarshalText([]byte(args[0])); err != nil || d <= 0 {
					return status("invalid duration " + strconv.Quote(args[0]))
				}
				m.do(func(c *app.Controller) { c.SetCharDelay(d.Std()) })
				return status("playback delay " + d.String())
			},
		},
		{
			Name:        "help",
			Aliases:     []string{"h", "?"},
			Description: "toggle key help",
			Run: func(m *Model, _ []string) tea.Cmd {
				m.showHelp = !m.showHelp
				m.layout()
				return status(CommandSummary())
			},
		},
		{
			Name:        "quit",
			Aliases:     []string{"q", "exit"},
			Description: "exit cradle",
			Run: func(*Model, []string) tea.Cmd {
				return tea.Quit
			},
		},
	}
}

// LookupCommand finds a command by name or alias.
func LookupCommand(name string) (Command, bool) {
	name = strings.ToLower(strings.TrimPrefix(name, "/"))
	for _, c := range Commands() {
		if c.Name == name {
			return c, true
		}
		for _, a := range c.Aliases {
			if a == name {
				return c, true
			}
		}
	}
	return Command{}, false
}

// ParseCommand splits "/name arg..." into its name and arguments.
func ParseCommand(input string) (name string, args []string, ok bool) {
	input = strings.TrimSpace(input)
	if !strings.HasPrefix(input, "/") {
		return "", nil, false
	}
	fields := strings.Fields(input[1:])
	if len(fields) == 0 {
		return "", nil, false
	}
	return strings.ToLower(fields[0]), fields[1:], true
}

// CommandSummary lists command names on one line.
func CommandSummary() string {
	cmds := Commands()
	names := make([]string, len(cmds))
	for i, c := range cmds {
		names[i] = "/" + c.Name
	}
	return strings.Join(names, " ")
}

func (m *Model) runCommand(input string) tea.Cmd {
	name, args, ok := ParseCommand(input)
	if !ok {
		return status("type a command after /")
	}
	cmd, found := LookupCommand(name)
	if !found {
		return status(fmt.Sprintf("unknown command /%s (try /help)", name))
	}
	m.log.Debug().Str("command", cmd.Name).Strs("args", args).Msg("slash command")
	return cmd.Run(m, args)
}

// resolveConversation maps a 1-based list position or a literal id.
func resolveConversation(m *Model, arg string) (model.ID, error) {
	if n, err := strconv.Atoi(arg); err == nil {
		if n < 1 || n > len(m.snap.Conversations) {
			return "", fmt.Errorf("no conversation #%d", n)
		}
		return m.snap.Conversations[n-1].ID, nil
	}
	return model.ID(strings.TrimPrefix(arg, "#chat/")), nil
}

func status(text string) tea.Cmd {
	return func() tea.Msg { return StatusMsg(text) }
}
