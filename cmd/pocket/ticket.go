package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"github.com/rnistala/pocket-sync/internal/notify"
	"github.com/rnistala/pocket-sync/internal/schema"
	syncpkg "github.com/rnistala/pocket-sync/internal/sync"
	"github.com/rnistala/pocket-sync/internal/ui"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var ticketCmd = &cobra.Command{
	Use:   "ticket",
	Short: "Create, close, and list support tickets",
}

var ticketNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Create a ticket",
	Long: `Create a support ticket. Without flags an interactive form collects
the fields; with flags it runs non-interactively:

  pocket ticket new
  pocket ticket new --contact C-100 --type HW --description "printer jammed"`,
	RunE: runTicketNew,
}

var ticketCloseCmd = &cobra.Command{
	Use:   "close <ticket-id>",
	Short: "Close a ticket",
	Long: `Close a ticket by its server-issued ticket id (or local numeric id
for tickets not yet uploaded). The close date defaults to now and accepts
natural language:

  pocket ticket close TKT-4711
  pocket ticket close TKT-4711 --date "last friday" --remarks "replaced fuser"`,
	Args: cobra.ExactArgs(1),
	RunE: runTicketClose,
}

var ticketListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tickets",
	RunE:  runTicketList,
}

func init() {
	ticketNewCmd.Flags().String("contact", "", "contact id the ticket belongs to")
	ticketNewCmd.Flags().String("type", "", "issue type code (GEN, HW, SW, ...)")
	ticketNewCmd.Flags().String("description", "", "problem description")
	ticketNewCmd.Flags().Bool("priority", false, "flag as priority")
	ticketNewCmd.Flags().StringSlice("screenshot", nil, "screenshot file to attach (repeatable)")

	ticketCloseCmd.Flags().String("date", "", "close date (natural language accepted, default: now)")
	ticketCloseCmd.Flags().String("remarks", "", "closing remarks")
	ticketCloseCmd.Flags().String("root-cause", "", "root cause")

	ticketListCmd.Flags().String("status", "", "filter by status (OPEN, IN PROGRESS, CLOSED, CLIENT QUERY)")

	ticketCmd.AddCommand(ticketNewCmd, ticketCloseCmd, ticketListCmd)
	rootCmd.AddCommand(ticketCmd)
}

func runTicketNew(cmd *cobra.Command, args []string) error {
	eng, err := openEngine(cmd.Context())
	if err != nil {
		return err
	}
	defer eng.Close()
	ctx := cmd.Context()

	contact, _ := cmd.Flags().GetString("contact")
	issueType, _ := cmd.Flags().GetString("type")
	description, _ := cmd.Flags().GetString("description")
	priority, _ := cmd.Flags().GetBool("priority")
	screenshots, _ := cmd.Flags().GetStringSlice("screenshot")

	interactive := term.IsTerminal(int(os.Stdin.Fd())) && (contact == "" || description == "")
	if interactive {
		if issueType == "" {
			issueType = schema.DefaultIssueType
		}
		var opts []huh.Option[string]
		for _, code := range schema.IssueTypeCodes() {
			opts = append(opts, huh.NewOption(fmt.Sprintf("%s (%s)", schema.IssueTypeLabel(code), code), code))
		}
		form := huh.NewForm(huh.NewGroup(
			huh.NewInput().Title("Contact id").Value(&contact),
			huh.NewSelect[string]().Title("Issue type").Options(opts...).Value(&issueType),
			huh.NewText().Title("Description").Value(&description),
			huh.NewConfirm().Title("Priority?").Value(&priority),
		))
		if err := form.Run(); err != nil {
			return err
		}
	}

	if issueType == "" {
		issueType = schema.DefaultIssueType
	}
	if !schema.KnownIssueType(issueType) {
		return fmt.Errorf("unknown issue type %q (known: %v)", issueType, schema.IssueTypeCodes())
	}

	t := schema.NewTicket(contact, issueType, description)
	t.Priority = priority
	for _, path := range screenshots {
		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read screenshot %s: %w", path, err)
		}
		t.Screenshots = append(t.Screenshots, string(raw))
	}
	if err := t.Validate(); err != nil {
		return err
	}
	if err := eng.store.InsertTicket(ctx, t); err != nil {
		return err
	}
	fmt.Printf("Created ticket %s (%s)\n", t.Identity, schema.IssueTypeLabel(t.IssueType))

	dispatchTicketEvent(cmd, eng, notify.EventTicketCreated, t)
	attemptTicketSync(cmd, eng)
	return nil
}

func runTicketClose(cmd *cobra.Command, args []string) error {
	eng, err := openEngine(cmd.Context())
	if err != nil {
		return err
	}
	defer eng.Close()
	ctx := cmd.Context()

	t, err := findTicket(cmd, eng, args[0])
	if err != nil {
		return err
	}

	dateText, _ := cmd.Flags().GetString("date")
	closedDate, err := parseDate(dateText)
	if err != nil {
		return err
	}
	if remarks, _ := cmd.Flags().GetString("remarks"); remarks != "" {
		t.Remarks = remarks
	}
	if rootCause, _ := cmd.Flags().GetString("root-cause"); rootCause != "" {
		t.RootCause = rootCause
	}

	if err := t.Transition(schema.StatusClosed, closedDate); err != nil {
		return err
	}
	if err := eng.store.UpsertTicket(ctx, t); err != nil {
		return err
	}
	fmt.Printf("Closed ticket %s\n", args[0])

	dispatchTicketEvent(cmd, eng, notify.EventTicketClosed, t)
	attemptTicketSync(cmd, eng)
	return nil
}

func runTicketList(cmd *cobra.Command, args []string) error {
	eng, err := openEngine(cmd.Context())
	if err != nil {
		return err
	}
	defer eng.Close()

	tickets, err := eng.store.Tickets(cmd.Context())
	if err != nil {
		return err
	}

	filter, _ := cmd.Flags().GetString("status")
	shown := 0
	for _, t := range tickets {
		if filter != "" && t.Status != schema.TicketStatus(filter) {
			continue
		}
		shown++
		id := t.TicketID
		if id == "" {
			id = t.Identity.String()
		}
		line := fmt.Sprintf("%-16s %-12s %-6s %s", id, t.Status, t.IssueType, t.Description)
		if t.SyncStatus != schema.SyncStatusSynced {
			line += " " + ui.Dirty.Render("[pending]")
		}
		fmt.Println(line)
	}
	if shown == 0 {
		fmt.Println(ui.Muted.Render("no tickets"))
	}
	return nil
}

// findTicket resolves a ticket by server ticket id, falling back to the
// numeric local identity for tickets that were never uploaded.
func findTicket(cmd *cobra.Command, eng *engine, key string) (schema.Ticket, error) {
	tickets, err := eng.store.Tickets(cmd.Context())
	if err != nil {
		return schema.Ticket{}, err
	}
	for _, t := range tickets {
		if t.TicketID != "" && t.TicketID == key {
			return t, nil
		}
	}
	if id, err := strconv.ParseInt(key, 10, 64); err == nil {
		for _, t := range tickets {
			if t.Identity.ID == id {
				return t, nil
			}
		}
	}
	return schema.Ticket{}, fmt.Errorf("ticket %q not found", key)
}

// parseDate accepts RFC3339, a plain date, or natural language ("last
// friday"). Empty means now.
func parseDate(text string) (string, error) {
	if text == "" {
		return time.Now().Format(time.RFC3339), nil
	}
	if ts, err := time.Parse(time.RFC3339, text); err == nil {
		return ts.Format(time.RFC3339), nil
	}
	if ts, err := time.Parse("2006-01-02", text); err == nil {
		return ts.Format(time.RFC3339), nil
	}

	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	result, err := w.Parse(text, time.Now())
	if err != nil || result == nil {
		return "", fmt.Errorf("could not parse date %q", text)
	}
	return result.Time.Format(time.RFC3339), nil
}

// dispatchTicketEvent best-effort notifies the configured webhook. A
// failed notification never fails the command; the ticket is unchanged.
func dispatchTicketEvent(cmd *cobra.Command, eng *engine, event notify.Event, t schema.Ticket) {
	if eng.cfg.NotifyURL == "" {
		return
	}
	d := notify.NewHTTPDispatcher(eng.cfg.NotifyURL, eng.logger)
	recipients := []string{eng.cfg.Identity.Email}
	if err := d.Dispatch(cmd.Context(), event, eng.cfg.Identity.UserID, recipients, t); err != nil {
		notify.Warn(eng.logger, event, err)
	}
}

// attemptTicketSync pushes the change upstream right away when possible.
// Offline or unauthenticated, the ticket simply stays pending.
func attemptTicketSync(cmd *cobra.Command, eng *engine) {
	err := eng.orch.SyncTickets(cmd.Context())
	if err != nil && !errors.Is(err, syncpkg.ErrSyncInFlight) {
		eng.logger.Printf("WARNING: ticket sync failed, ticket stays pending: %v", err)
	}
}
