package cmd

import (
	"fmt"
	"os"

	"github.com/pagelens/pagelens/engine"
	"github.com/pagelens/pagelens/harlog"
	"github.com/spf13/cobra"
)

var (
	compareDurationThreshold float64
	compareSizeThreshold     int64
	compareOut               string
)

var compareCmd = &cobra.Command{
	Use:   "compare <live-file> <baseline-file>",
	Short: "Diff a live capture against a baseline and classify regressions",
	Long: `Import two interchange capture files, treat the second as the baseline,
and compare every live record against its baseline counterpart by
(url, initiator type). Records that regressed beyond the configured
thresholds are flagged; the annotated capture can be written back out.`,
	Args: cobra.ExactArgs(2),
	Example: `  pagelens compare live.har baseline.har
  pagelens compare live.har baseline.har --duration-threshold 150 --out annotated.har`,
	RunE: runCompare,
}

func init() {
	compareCmd.Flags().Float64Var(&compareDurationThreshold, "duration-threshold", 0, "Absolute duration delta in ms that counts as significant (default from config)")
	compareCmd.Flags().Int64Var(&compareSizeThreshold, "size-threshold", 0, "Absolute transfer-size delta in bytes that counts as significant (default from config)")
	compareCmd.Flags().StringVar(&compareOut, "out", "", "Write the comparison-annotated live capture to this file")

	rootCmd.AddCommand(compareCmd)
}

func runCompare(cmd *cobra.Command, args []string) error {
	thresholds := configuredThresholds()
	if compareDurationThreshold > 0 {
		thresholds.Duration = compareDurationThreshold
	}
	if compareSizeThreshold > 0 {
		thresholds.Size = compareSizeThreshold
	}

	live, liveDoc, err := loadCapture(args[0], thresholds)
	if err != nil {
		return err
	}
	defer live.Close()

	baseline, _, err := loadCapture(args[1], thresholds)
	if err != nil {
		return err
	}
	defer baseline.Close()

	const baselineID = "baseline"
	live.Baselines().Save(baselineID, baseline.Records())

	records := live.Records()
	if err := live.Baselines().Compare(records, baselineID, thresholds); err != nil {
		return fmt.Errorf("comparison failed: %w", err)
	}

	printComparison(cmd, records, thresholds)

	if compareOut != "" {
		doc := harlog.Export(records, live.NavigationMetrics(), liveDoc.PageURL, "pagelens")
		f, err := os.Create(compareOut)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		if err := harlog.Write(f, doc); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		GetLogger().Info("annotated capture written", "file", compareOut)
	}

	return nil
}

func printComparison(cmd *cobra.Command, records []*engine.RequestRecord, thresholds engine.Thresholds) {
	out := cmd.OutOrStdout()

	var matched, regressed, improved int
	for _, rec := range records {
		cmp := rec.BaselineComparison
		if cmp == nil {
			continue
		}
		matched++
		switch cmp.Status {
		case engine.StatusRegressed:
			regressed++
		case engine.StatusImproved:
			improved++
		}
	}

	fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf(
		"compared %d records (%d matched baseline) — thresholds: %.0fms / %d bytes",
		len(records), matched, thresholds.Duration, thresholds.Size)))

	for _, rec := range records {
		cmp := rec.BaselineComparison
		if cmp == nil || cmp.AlertLevel == engine.AlertNone {
			continue
		}

		pct := "n/a"
		if cmp.PercentageChange != nil {
			pct = fmt.Sprintf("%+.1f%%", *cmp.PercentageChange)
		}

		style := alertStyle(string(cmp.AlertLevel))
		fmt.Fprintln(out, style.Render(fmt.Sprintf("[%s] %-9s %8.1fms -> %8.1fms (%+.1fms, %s)  %s",
			cmp.AlertLevel,
			cmp.Status,
			cmp.BaselineValue,
			cmp.CurrentValue,
			cmp.Difference,
			pct,
			rec.Raw.Name)))
	}

	summary := fmt.Sprintf("%d regressed, %d improved, %d neutral", regressed, improved, matched-regressed-improved)
	if regressed > 0 {
		fmt.Fprintln(out, criticalStyle.Render(summary))
	} else {
		fmt.Fprintln(out, improvedStyle.Render(summary))
	}

	for _, alert := range engine.CollectAlerts(records) {
		GetLogger().Debug("alert raised",
			"level", string(alert.Result.AlertLevel),
			"url", alert.Name,
			"difference_ms", alert.Result.Difference)
	}
}
