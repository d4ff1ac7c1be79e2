// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/cradle-tui/internal/config"
)

func newConfigCommand(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or change configuration",
		Long: fmt.Sprintf(`Inspect or change configuration.

Keys use dot notation:
  %s`, strings.Join(config.Keys(), "\n  ")),
	}

	skip := map[string]string{skipConfig: "true"}
	var force bool

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration (token redacted)",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			fmt.Fprintln(o.out, o.cfg.String())
			return nil
		},
	}
	path := &cobra.Command{
		Use:         "path",
		Short:       "Print the config file path",
		Args:        cobra.NoArgs,
		Annotations: skip,
		RunE: func(*cobra.Command, []string) error {
			p, err := o.configFile()
			if err != nil {
				return err
			}
			fmt.Fprintln(o.out, p)
			return nil
		},
	}
	initCmd := &cobra.Command{
		Use:         "init",
		Short:       "Write a config file with default values",
		Args:        cobra.NoArgs,
		Annotations: skip,
		RunE: func(*cobra.Command, []string) error {
			p, err := o.configFile()
			if err != nil {
				return err
			}
			if _, err := os.Stat(p); err == nil && !force {
				return usageError{fmt.Sprintf("%s already exists (use --force to overwrite)", p)}
			}
			if err := os.MkdirAll(filepath.Dir(p), 0700); err != nil {
				return commandError("config", "init", err)
			}
			if err := config.SaveTOML(config.Default(), p); err != nil {
				return commandError("config", "init", err)
			}
			fmt.Fprintf(o.out, "wrote %s\n", p)
			return nil
		},
	}
	initCmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")

	get := &cobra.Command{
		Use:   "get <key>",
		Short: "Print one effective value",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			v, err := o.cfg.Get(args[0])
			if err != nil {
				return usageError{err.Error()}
			}
			fmt.Fprintln(o.out, v)
			return nil
		},
	}
	set := &cobra.Command{
		Use:         "set <key> <value>",
		Short:       "Change one value in the config file",
		Args:        cobra.ExactArgs(2),
		Annotations: skip,
		RunE: func(_ *cobra.Command, args []string) error {
			return o.setConfigValue(args[0], args[1])
		},
	}

	cmd.AddCommand(show, path, initCmd, get, set)
	return cmd
}

// setConfigValue edits the file only; environment and flag overrides are
// not written back.
func (o *options) setConfigValue(key, value string) error {
	p, err := o.configFile()
	if err != nil {
		return err
	}

	cfg := config.Default()
	if _, statErr := os.Stat(p); statErr == nil {
		if err := config.LoadTOML(cfg, p); err != nil {
			return commandError("config", "set", err)
		}
	} else if !errors.Is(statErr, os.ErrNotExist) {
		return commandError("config", "set", statErr)
	}

	if err := cfg.Set(key, value); err != nil {
		return usageError{err.Error()}
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0700); err != nil {
		return commandError("config", "set", err)
	}
	if err := config.SaveTOML(cfg, p); err != nil {
		return commandError("config", "set", err)
	}
	fmt.Fprintf(o.out, "%s = %s\n", key, value)
	return nil
}
