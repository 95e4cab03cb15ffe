// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jeranaias/hirechat/internal/ledger"
)

func newClearCmd(flags *globalFlags) *cobra.Command {
	var typ, participant string

	cmd := &cobra.Command{
		Use:     "clear",
		Short:   "Remove every message from a conversation",
		Example: `  hirechat clear --type candidate --participant liam-oconnor`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			key, err := conversationKey(typ, participant)
			if err != nil {
				return err
			}

			a, err := newApp(flags)
			if err != nil {
				return err
			}
			defer func() {
				if cerr := a.Close(context.WithoutCancel(cmd.Context())); err == nil {
					err = cerr
				}
			}()
			if err := a.openLedger(cmd.Context()); err != nil {
				return err
			}

			conv, ok := a.ledger.Get(key)
			if !ok {
				return fmt.Errorf("no conversation %s", key.ID())
			}
			if err := a.ledger.Clear(key); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%d messages removed)\n",
				SuccessStyle.Render("Cleared"), key.ID(), len(conv.Messages))
			return nil
		},
	}

	cmd.Flags().StringVar(&typ, "type", ledger.TypeAgent, "conversation type (agent or candidate)")
	cmd.Flags().StringVarP(&participant, "participant", "p", "", "participant id")
	_ = cmd.MarkFlagRequired("participant")
	return cmd
}
