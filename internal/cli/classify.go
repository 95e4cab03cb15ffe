// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/hirechat/internal/intent"
)

func newClassifyCmd(flags *globalFlags) *cobra.Command {
	var (
		noFallback bool
		verbose    bool
	)

	cmd := &cobra.Command{
		Use:   "classify <utterance...>",
		Short: "Classify an utterance and print the result as JSON",
		Example: `  hirechat classify "show me saved jobs"
  hirechat classify switch to marcus
  hirechat classify --no-fallback "what's the weather like"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			a, err := newApp(flags)
			if err != nil {
				return err
			}
			defer func() {
				if cerr := a.Close(context.WithoutCancel(cmd.Context())); err == nil {
					err = cerr
				}
			}()

			if !noFallback {
				if err := a.openModel(cmd.Context()); err != nil {
					return err
				}
			}
			classifier := a.newClassifier()

			result := classifier.Classify(cmd.Context(), strings.Join(args, " "))
			if verbose {
				fmt.Fprintln(cmd.ErrOrStderr(), DimStyle.Render(describeResult(result)))
			}
			return writeJSON(cmd, result)
		},
	}

	cmd.Flags().BoolVar(&noFallback, "no-fallback", false, "never consult the model")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print the deciding stage to stderr")
	return cmd
}

// describeResult names the pipeline stage and tier that produced r.
func describeResult(r intent.Result) string {
	return fmt.Sprintf("stage=%s tier=%s confidence=%.2f", r.Stage, r.Tier, r.Confidence)
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
