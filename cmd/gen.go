package cmd

import (
	"fmt"

	"github.com/pagelens/pagelens/tracegen"
	"github.com/spf13/cobra"
)

var (
	genEntries int
	genSeed    int64
	genPage    string
)

var genCmd = &cobra.Command{
	Use:   "gen <output-file>",
	Short: "Generate a synthetic capture file",
	Long: `Generate a reproducible synthetic resource-timing capture and write it
as an interchange document. Useful for demos and for exercising compare
without a real browser capture.`,
	Args: cobra.ExactArgs(1),
	Example: `  pagelens gen sample.har
  pagelens gen sample.har --entries 100 --seed 42 --page https://shop.example.com/`,
	RunE: runGen,
}

func init() {
	genCmd.Flags().IntVar(&genEntries, "entries", 25, "Number of resource loads to generate")
	genCmd.Flags().Int64Var(&genSeed, "seed", 0, "Random seed (0 = from clock)")
	genCmd.Flags().StringVar(&genPage, "page", "https://example.com/", "Page URL for the capture")

	rootCmd.AddCommand(genCmd)
}

func runGen(cmd *cobra.Command, args []string) error {
	opts := tracegen.GenerateOptions{
		EventCount:   genEntries,
		Seed:         genSeed,
		PageURL:      genPage,
		WithMetadata: true,
	}

	result, err := tracegen.WriteCapture(args[0], opts)
	if err != nil {
		return fmt.Errorf("generation failed: %w", err)
	}

	GetLogger().Info("capture generated",
		"file", args[0],
		"entries", len(result.Events),
		"page", result.PageURL)
	return nil
}
