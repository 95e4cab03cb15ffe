// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Command hirechat routes recruiting chat utterances to navigation
// commands and keeps per-participant conversation history.
package main

import (
	"os"

	"github.com/jeranaias/hirechat/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
