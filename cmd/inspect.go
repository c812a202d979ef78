package cmd

import (
	"fmt"
	"strings"

	"github.com/pagelens/pagelens/engine"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
)

var (
	inspectSearch      string
	inspectType        string
	inspectDomain      string
	inspectStatus      string
	inspectMinDuration float64
	inspectMaxDuration float64
	inspectThirdParty  string
	inspectCached      string
	inspectSortKey     string
	inspectDesc        bool
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <capture-file>",
	Short: "Filter, sort and list the records of a capture",
	Long: `Import an interchange capture file and print its request records,
optionally narrowed by filters and ordered by a sort key. All filters
combine with AND.`,
	Args: cobra.ExactArgs(1),
	Example: `  pagelens inspect capture.har
  pagelens inspect capture.har --search analytics --third-party yes
  pagelens inspect capture.har --status 4xx --sort duration --desc`,
	RunE: runInspect,
}

func init() {
	inspectCmd.Flags().StringVar(&inspectSearch, "search", "", "Case-insensitive text match on url/type/protocol")
	inspectCmd.Flags().StringVar(&inspectType, "type", "", "Exact initiator type (script, img, css, ...)")
	inspectCmd.Flags().StringVar(&inspectDomain, "domain", "", "Host or parent domain of the resource")
	inspectCmd.Flags().StringVar(&inspectStatus, "status", "", "Status bucket: 2xx, 3xx, 4xx or 5xx")
	inspectCmd.Flags().Float64Var(&inspectMinDuration, "min-duration", 0, "Minimum total duration in ms")
	inspectCmd.Flags().Float64Var(&inspectMaxDuration, "max-duration", 0, "Maximum total duration in ms")
	inspectCmd.Flags().StringVar(&inspectThirdParty, "third-party", "", "Restrict to third-party (yes) or first-party (no)")
	inspectCmd.Flags().StringVar(&inspectCached, "cached", "", "Restrict to cache hits (yes) or misses (no)")
	inspectCmd.Flags().StringVar(&inspectSortKey, "sort", "startTime", "Sort key: name, type, domain, startTime, duration, ttfb, size, status")
	inspectCmd.Flags().BoolVar(&inspectDesc, "desc", false, "Sort descending")

	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	session, _, err := loadCapture(args[0], configuredThresholds())
	if err != nil {
		return err
	}
	defer session.Close()

	criteria, err := inspectCriteria()
	if err != nil {
		return err
	}

	records := engine.ApplyFilters(session.Records(), criteria)

	direction := engine.Ascending
	if inspectDesc {
		direction = engine.Descending
	}
	sorter := engine.NewSorter(language.Und)
	records = sorter.Sort(records, engine.SortKey(inspectSortKey), direction)

	printRecords(cmd, session.PageURL(), records)
	return nil
}

func inspectCriteria() (engine.FilterCriteria, error) {
	criteria := engine.FilterCriteria{
		Search:        inspectSearch,
		InitiatorType: inspectType,
		Domain:        inspectDomain,
		StatusBucket:  inspectStatus,
	}

	if inspectMinDuration > 0 {
		v := inspectMinDuration
		criteria.MinDuration = &v
	}
	if inspectMaxDuration > 0 {
		v := inspectMaxDuration
		criteria.MaxDuration = &v
	}

	var err error
	if criteria.ThirdParty, err = parseTriState(inspectThirdParty); err != nil {
		return criteria, fmt.Errorf("invalid --third-party value: %w", err)
	}
	if criteria.Cached, err = parseTriState(inspectCached); err != nil {
		return criteria, fmt.Errorf("invalid --cached value: %w", err)
	}

	return criteria, nil
}

func parseTriState(v string) (engine.TriState, error) {
	switch strings.ToLower(v) {
	case "":
		return engine.Any, nil
	case "yes", "true":
		return engine.Yes, nil
	case "no", "false":
		return engine.No, nil
	default:
		return engine.Any, fmt.Errorf("want yes or no, got %q", v)
	}
}

func printRecords(cmd *cobra.Command, pageURL string, records []*engine.RequestRecord) {
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("%s — %d records", pageURL, len(records))))
	fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("%-8s %-10s %9s %9s %10s  %s",
		"STATUS", "TYPE", "DUR(ms)", "TTFB(ms)", "SIZE", "URL")))

	for _, rec := range records {
		status := "-"
		if rec.StatusCode != nil {
			status = fmt.Sprintf("%d", *rec.StatusCode)
		}

		line := fmt.Sprintf("%-8s %-10s %9.1f %9.1f %10d  %s",
			status,
			rec.Raw.InitiatorType,
			rec.Timing.Total,
			rec.Timing.TimeToFirstByte,
			rec.Raw.TransferSize,
			rec.Raw.Name)

		if rec.ThirdParty {
			line = subtleStyle.Render(line)
		}
		fmt.Fprintln(out, line)
	}
}
