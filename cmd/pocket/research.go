package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/rnistala/pocket-sync/internal/research"
	"github.com/rnistala/pocket-sync/internal/ui"
	"github.com/spf13/cobra"
)

var researchCmd = &cobra.Command{
	Use:   "research <company>",
	Short: "Look up background information about a company",
	Long: `Look up a business profile for a company using the Anthropic API.
Requires ANTHROPIC_API_KEY in the environment.

  pocket research "Acme Corp"
  pocket research "Acme Corp" --city Pune`,
	Args: cobra.ExactArgs(1),
	RunE: runResearch,
}

func init() {
	researchCmd.Flags().String("city", "", "scope the lookup to a city")
	researchCmd.Flags().String("model", "", "override the model")
	rootCmd.AddCommand(researchCmd)
}

func runResearch(cmd *cobra.Command, args []string) error {
	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if apiKey == "" {
		return fmt.Errorf("ANTHROPIC_API_KEY is not set")
	}

	city, _ := cmd.Flags().GetString("city")
	model, _ := cmd.Flags().GetString("model")

	report, err := research.New(apiKey, model).Lookup(cmd.Context(), args[0], city)
	if errors.Is(err, research.ErrRateLimited) {
		return fmt.Errorf("lookup rate limited; try again later")
	}
	if err != nil {
		return err
	}

	fmt.Println(ui.Title.Render(report.Company))
	if report.City != "" {
		fmt.Println(ui.Muted.Render(report.City))
	}
	fmt.Println()
	fmt.Println(report.Body)
	return nil
}
