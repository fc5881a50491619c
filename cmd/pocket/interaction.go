package main

import (
	"fmt"
	"strings"

	"github.com/rnistala/pocket-sync/internal/schema"
	"github.com/spf13/cobra"
)

var logCmd = &cobra.Command{
	Use:   "log <contact-id> <type> [notes...]",
	Short: "Record an interaction with a contact",
	Long: `Record an interaction. The record is persisted locally first and
uploaded immediately when online; offline it stays queued for the next
sync pass.

Types: call, whatsapp, email, meeting, ticket.

  pocket log C-100 call "asked about renewal pricing"
  pocket log C-100 meeting --followup "next tuesday" quarterly review`,
	Args: cobra.MinimumNArgs(2),
	RunE: runLog,
}

func init() {
	logCmd.Flags().String("followup", "", "follow-up date (natural language accepted)")
	rootCmd.AddCommand(logCmd)
}

func runLog(cmd *cobra.Command, args []string) error {
	eng, err := openEngine(cmd.Context())
	if err != nil {
		return err
	}
	defer eng.Close()

	typ := schema.InteractionType(args[1])
	if !schema.ValidInteractionType(typ) {
		return fmt.Errorf("unknown interaction type %q (want call, whatsapp, email, meeting, or ticket)", args[1])
	}

	in := schema.NewInteraction(args[0], typ, strings.Join(args[2:], " "))
	if followup, _ := cmd.Flags().GetString("followup"); followup != "" {
		date, err := parseDate(followup)
		if err != nil {
			return err
		}
		in.FollowupOn = date
	}
	if err := in.Validate(); err != nil {
		return err
	}

	recorded, err := eng.orch.RecordInteraction(cmd.Context(), in)
	if err != nil {
		return err
	}

	if recorded.SyncStatus == schema.SyncStatusSynced {
		fmt.Printf("Logged %s with %s (uploaded, server id %s)\n", recorded.Type, recorded.ContactID, recorded.ServerID)
	} else {
		fmt.Printf("Logged %s with %s (queued for upload)\n", recorded.Type, recorded.ContactID)
	}
	return nil
}
