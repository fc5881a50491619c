package main

import (
	"fmt"
	"os"

	"github.com/rnistala/pocket-sync/internal/migrate"
	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the local cache to JSONL or YAML",
	Long: `Export every local record for backup or for moving a workspace
between machines.

  pocket export > backup.jsonl
  pocket export --format yaml -o snapshot.yaml`,
	RunE: runExport,
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import a JSONL export into the local cache",
	Long: `Import records from a JSONL export. Existing records with matching
ids are overwritten; bad lines are reported but do not abort the import.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	exportCmd.Flags().String("format", "jsonl", "export format (jsonl or yaml)")
	exportCmd.Flags().StringP("output", "o", "", "output file (default: stdout)")
	rootCmd.AddCommand(exportCmd, importCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	eng, err := openEngine(cmd.Context())
	if err != nil {
		return err
	}
	defer eng.Close()

	out := os.Stdout
	if path, _ := cmd.Flags().GetString("output"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", path, err)
		}
		defer f.Close()
		out = f
	}

	format, _ := cmd.Flags().GetString("format")
	switch format {
	case "jsonl":
		return migrate.ToJSONL(cmd.Context(), eng.store, out)
	case "yaml":
		return migrate.ToYAML(cmd.Context(), eng.store, out)
	default:
		return fmt.Errorf("unknown format %q (want jsonl or yaml)", format)
	}
}

func runImport(cmd *cobra.Command, args []string) error {
	eng, err := openEngine(cmd.Context())
	if err != nil {
		return err
	}
	defer eng.Close()

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", args[0], err)
	}
	defer f.Close()

	result, err := migrate.FromJSONL(cmd.Context(), eng.store, f)
	if err != nil {
		return err
	}

	fmt.Printf("Imported: %d contacts, %d interactions, %d tickets, %d orders\n",
		result.Contacts, result.Interactions, result.Tickets, result.Orders)
	for _, msg := range result.Errors {
		fmt.Fprintf(os.Stderr, "WARNING: %s\n", msg)
	}
	return nil
}
