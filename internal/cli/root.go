// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information, set at build time with -ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	configPath string
	logLevel   string
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	return execute(newRootCmd())
}

func execute(cmd *cobra.Command) int {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, ErrorStyle.Render("Error:"), err)
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	cmd := &cobra.Command{
		Use:   "hirechat",
		Short: "Recruiting chat: intent routing and conversation history",
		Long: `hirechat decides whether a chat utterance is a navigation command or a
message, and keeps per-agent and per-candidate conversation history.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "config file (default ~/.hirechat/config.toml)")
	pf.StringVar(&flags.logLevel, "log-level", "", "override logging.level")

	cmd.AddCommand(
		newServeCmd(flags),
		newClassifyCmd(flags),
		newChatCmd(flags),
		newHistoryCmd(flags),
		newClearCmd(flags),
		newCommandsCmd(),
		newVersionCmd(),
	)
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "hirechat %s (commit %s, built %s)\n", Version, GitCommit, BuildDate)
		},
	}
}
