// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jeranaias/hirechat/internal/intent"
	"github.com/jeranaias/hirechat/internal/util"
)

func newCommandsCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "commands",
		Short: "List the navigation commands the classifier recognizes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			catalogue := intent.Catalogue()
			if asJSON {
				return writeJSON(cmd, catalogue)
			}

			width := 0
			for _, e := range catalogue {
				width = max(width, util.StringWidth(e.ID))
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, TitleStyle.Render("Commands"))
			for _, e := range catalogue {
				fmt.Fprintf(out, "  %s  %s\n", RenderLabel(e.ID, width), DimStyle.Render(e.Description))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the catalogue as JSON")
	return cmd
}
