package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run a sync pass against the remote system",
	Long: `Run a sync pass: upload dirty interactions and pending tickets, then
download the authoritative record sets and merge them into the local cache.

By default every entity type syncs. Use --entity to sync just one:

  pocket sync                        # everything
  pocket sync --entity tickets       # tickets only
  pocket sync --entity interactions  # flush + merge interactions only`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().String("entity", "", "sync a single entity type (contacts, interactions, tickets, orders)")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	eng, err := openEngine(cmd.Context())
	if err != nil {
		return err
	}
	defer eng.Close()

	if !eng.cfg.Identity.Active() {
		return fmt.Errorf("no identity configured; set identity.user_id in pocket.yaml")
	}
	if eng.cfg.API.Root == "" {
		return fmt.Errorf("no API endpoint configured; set api.root in pocket.yaml")
	}

	ctx := cmd.Context()
	entity, _ := cmd.Flags().GetString("entity")
	switch entity {
	case "":
		err = eng.orch.FullSync(ctx)
	case "contacts":
		err = eng.orch.SyncContacts(ctx)
	case "interactions":
		err = eng.orch.SyncInteractions(ctx)
	case "tickets":
		err = eng.orch.SyncTickets(ctx)
	case "orders":
		err = eng.orch.SyncOrders(ctx)
	default:
		return fmt.Errorf("unknown entity %q (want contacts, interactions, tickets, or orders)", entity)
	}
	if err != nil {
		return err
	}

	st, err := eng.orch.Stats(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Synced: %d contacts, %d interactions (%d dirty), %d tickets (%d pending), %d orders\n",
		st.Contacts, st.Interactions, st.DirtyInteractions, st.Tickets, st.PendingTickets, st.Orders)
	return nil
}
