package main

import (
	"fmt"
	"io"
	"log"

	"github.com/rnistala/pocket-sync/internal/netwatch"
	"github.com/rnistala/pocket-sync/internal/ui"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show identity, connectivity, and sync state",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	eng, err := openEngine(cmd.Context())
	if err != nil {
		return err
	}
	defer eng.Close()

	ctx := cmd.Context()
	st, err := eng.orch.Stats(ctx)
	if err != nil {
		return err
	}

	fmt.Println(ui.Title.Render("pocket status"))

	if eng.cfg.Identity.Active() {
		fmt.Println(ui.Field("identity", eng.cfg.Identity.UserID))
		if eng.cfg.Identity.Company != "" {
			fmt.Println(ui.Field("company", eng.cfg.Identity.Company))
		}
		if eng.cfg.Identity.Restricted {
			fmt.Println(ui.Muted.Render("  (restricted: company-scoped sync)"))
		}
	} else {
		fmt.Println(ui.Field("identity", ui.Muted.Render("not configured")))
	}
	fmt.Println(ui.Field("endpoint", valueOr(eng.cfg.API.Root, "not configured")))

	// One-shot reachability probe; quiet logger so the probe result
	// doesn't double-report on stderr.
	pc := probeConfig(eng.cfg, log.New(io.Discard, "", 0))
	if pc.ProbeURL != "" && netwatch.New(pc).Check(ctx) {
		fmt.Println(ui.Field("network", ui.Online.Render("online")))
	} else {
		fmt.Println(ui.Field("network", ui.Offline.Render("offline")))
	}

	fmt.Println()
	fmt.Println(ui.Field("contacts", st.Contacts))
	fmt.Println(ui.Field("interactions", fmt.Sprintf("%d (%s dirty)", st.Interactions, ui.Dirty.Render(fmt.Sprint(st.DirtyInteractions)))))
	fmt.Println(ui.Field("tickets", fmt.Sprintf("%d (%s pending)", st.Tickets, ui.Dirty.Render(fmt.Sprint(st.PendingTickets)))))
	fmt.Println(ui.Field("orders", st.Orders))

	if st.LastSync.IsZero() {
		fmt.Println(ui.Field("last sync", ui.Muted.Render("never")))
	} else {
		fmt.Println(ui.Field("last sync", st.LastSync.Local().Format("2006-01-02 15:04:05")))
	}
	return nil
}

func valueOr(v, fallback string) string {
	if v == "" {
		return ui.Muted.Render(fallback)
	}
	return v
}
