// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeranaias/cradle-tui/internal/config"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// skipConfig marks commands that must work with a broken config file.
const skipConfig = "cradle/skip-config"

// options holds global flags, streams and the resolved configuration.
type options struct {
	configPath string
	url        string
	token      string
	theme      string
	charDelay  time.Duration
	noStream   bool
	verbose    bool

	in  io.Reader
	out io.Writer
	err io.Writer

	cfg *config.Config
}

// Execute runs the command line against the process streams.
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}

// NewRootCommand builds the cradle command tree.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&options{in: os.Stdin, out: os.Stdout, err: os.Stderr})
}

func newRootCommand(o *options) *cobra.Command {
	root := &cobra.Command{
		Use:   "cradle",
		Short: "Terminal client for the cradle parenting assistant",
		Long: `cradle talks to a cradle chat service from the terminal.

Run without arguments to open the full-screen chat. Replies are revealed
at a steady pace while they stream in; conversations are saved by the
service and listed in the sidebar.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Annotations[skipConfig] != "" {
				return nil
			}
			return o.loadConfig(cmd)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			if isTerminal() {
				return o.runTUI(cmd.Context())
			}
			return o.runChat(cmd.Context(), nil)
		},
	}
	root.SetIn(o.in)
	root.SetOut(o.out)
	root.SetErr(o.err)

	flags := root.PersistentFlags()
	flags.StringVarP(&o.configPath, "config", "c", "", "config file (default ~/.cradle/config.toml)")
	flags.StringVar(&o.url, "url", "", "chat service base URL")
	flags.StringVar(&o.token, "token", "", "bearer token for the chat service")
	flags.StringVar(&o.theme, "theme", "", "color theme: dark, light or auto")
	flags.DurationVar(&o.charDelay, "char-delay", 0, "delay between revealed characters")
	flags.BoolVar(&o.noStream, "no-stream", false, "never use incremental replies")
	flags.BoolVarP(&o.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		newChatCommand(o),
		newAskCommand(o),
		newConversationsCommand(o),
		newConfigCommand(o),
		newVersionCommand(o),
	)
	return root
}

// loadConfig resolves the configuration: file, then CRADLE_* variables,
// then flags.
func (o *options) loadConfig(cmd *cobra.Command) error {
	var (
		cfg *config.Config
		err error
	)
	if o.configPath != "" {
		cfg, err = config.LoadFromPath(o.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("url") {
		cfg.Server.BaseURL = o.url
	}
	if flags.Changed("token") {
		cfg.Server.Token = o.token
	}
	if flags.Changed("theme") {
		cfg.UI.Theme = o.theme
	}
	if flags.Changed("char-delay") {
		cfg.Playback.CharDelay = config.Duration(o.charDelay)
	}
	if o.noStream {
		cfg.Stream.Enabled = false
	}
	if o.verbose {
		cfg.Log.Level = "debug"
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}
	config.SetGlobal(cfg)
	o.cfg = cfg
	return nil
}

// configFile is the file in use, whether or not it exists.
func (o *options) configFile() (string, error) {
	if o.configPath != "" {
		return o.configPath, nil
	}
	return config.ConfigPathTOML()
}

func newVersionCommand(o *options) *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print version information",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipConfig: "true"},
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(o.out, "cradle %s\n", Version)
			fmt.Fprintf(o.out, "  commit: %s\n", GitCommit)
			fmt.Fprintf(o.out, "  built:  %s\n", BuildDate)
			fmt.Fprintf(o.out, "  go:     %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
		},
	}
}
