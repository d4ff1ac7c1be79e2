// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/jeranaias/cradle-tui/internal/chatapi"
	"github.com/jeranaias/cradle-tui/internal/directory"
	"github.com/jeranaias/cradle-tui/internal/export"
	"github.com/jeranaias/cradle-tui/internal/model"
	"github.com/jeranaias/cradle-tui/internal/util"
)

func newConversationsCommand(o *options) *cobra.Command {
	var (
		asJSON    bool
		exportFmt string
		outputDir string
	)
	cmd := &cobra.Command{
		Use:     "conversations [id]",
		Aliases: []string{"ls"},
		Short:   "List saved conversations, or print one",
		Example: `  cradle conversations
  cradle conversations c_12
  cradle conversations c_12 --export md -o ~/notes`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := directory.NewClient(directory.Config{
				BaseURL: o.cfg.Server.BaseURL,
				Timeout: o.cfg.Server.Timeout.Std(),
				Tokens:  chatapi.StaticToken(o.cfg.Server.Token),
			})
			if len(args) == 1 {
				id := model.ID(args[0])
				if exportFmt != "" {
					return o.exportConversation(cmd, dir, id, exportFmt, outputDir)
				}
				return o.printConversation(cmd, dir, id, asJSON)
			}
			if exportFmt != "" {
				return usageError{"--export needs a conversation id"}
			}
			return o.listConversations(cmd, dir, asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	cmd.Flags().StringVar(&exportFmt, "export", "", "write the conversation to a file: md or json")
	cmd.Flags().StringVarP(&outputDir, "output", "o", ".", "directory for --export")
	return cmd
}

func (o *options) listConversations(cmd *cobra.Command, dir *directory.Client, asJSON bool) error {
	convs, err := dir.Conversations(cmd.Context())
	if err != nil {
		return commandError("conversations", "list", err)
	}
	if asJSON {
		return writeJSON(o, convs)
	}
	if len(convs) == 0 {
		fmt.Fprintln(o.out, "No saved conversations.")
		return nil
	}

	r := lipgloss.NewRenderer(o.out)
	r.SetColorProfile(colorProfile())
	head := r.NewStyle().Bold(true)
	dim := r.NewStyle().Faint(true)

	idWidth := len("ID")
	for _, c := range convs {
		if w := util.StringWidth(c.ID.String()); w > idWidth {
			idWidth = w
		}
	}
	fmt.Fprintln(o.out, head.Render(util.PadWidth("ID", idWidth)+"  "+util.PadWidth("UPDATED", 16)+"  TITLE"))
	for _, c := range convs {
		updated := "-"
		if !c.UpdatedAt.IsZero() {
			updated = c.UpdatedAt.Local().Format("2006-01-02 15:04")
		}
		fmt.Fprintln(o.out, util.PadWidth(c.ID.String(), idWidth)+"  "+
			dim.Render(util.PadWidth(updated, 16))+"  "+
			util.TruncateWidth(c.DisplayTitle(), 60))
	}
	return nil
}

func (o *options) printConversation(cmd *cobra.Command, dir *directory.Client, id model.ID, asJSON bool) error {
	msgs, err := dir.Messages(cmd.Context(), id)
	if err != nil {
		return commandError("conversations", "show", err)
	}
	if asJSON {
		return writeJSON(o, msgs)
	}
	for _, m := range msgs {
		fmt.Fprintf(o.out, "%s: %s\n", strings.ToLower(m.Role.DisplayName()), m.Content)
	}
	return nil
}

func (o *options) exportConversation(cmd *cobra.Command, dir *directory.Client, id model.ID, format, outputDir string) error {
	opts := export.DefaultOptions()
	opts.OutputDir = outputDir
	exporter, err := export.ForFormat(format, opts)
	if err != nil {
		return usageError{err.Error()}
	}

	msgs, err := dir.Messages(cmd.Context(), id)
	if err != nil {
		return commandError("conversations", "export", err)
	}
	conv := export.Conversation{ID: id, Messages: msgs}
	// The title lives in the list; a failed lookup only loses the title.
	if convs, err := dir.Conversations(cmd.Context()); err == nil {
		for _, c := range convs {
			if c.ID == id {
				conv.Title = c.Title
				conv.UpdatedAt = c.UpdatedAt
				break
			}
		}
	}

	path, err := export.ToFile(conv, exporter, opts)
	if err != nil {
		return commandError("conversations", "export", err)
	}
	fmt.Fprintf(o.out, "exported %s\n", path)
	return nil
}

func writeJSON(o *options, v any) error {
	enc := json.NewEncoder(o.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
