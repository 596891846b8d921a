package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"salgsmotor/internal/orchestrator"
	"salgsmotor/internal/platform/metrics"
)

var syncFlags struct {
	dryRun         bool
	force          bool
	resolveMissing bool
	workers        int
	only           string
	format         string
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Enrich every CRM company and write recommendations back",
	Long: "Lists the company records in the CRM, enriches each one, evaluates the sales\n" +
		"rules and writes changed fields, a pipeline item and an update log entry.\n" +
		"With --dry-run nothing is written and the planned changes are reported.",
	Args: cobra.NoArgs,
	RunE: runSync,
}

func init() {
	f := syncCmd.Flags()
	f.BoolVar(&syncFlags.dryRun, "dry-run", false, "Plan changes without writing to the CRM")
	f.BoolVar(&syncFlags.force, "force", false, "Ignore fresh cache entries and re-fetch every source")
	f.BoolVar(&syncFlags.resolveMissing, "resolve-missing", false, "Search the registry by name for records without an organization number")
	f.IntVar(&syncFlags.workers, "workers", 0, "Companies processed concurrently (default from config)")
	f.StringVar(&syncFlags.only, "only", "", "Process only the record with this organization number")
	f.StringVar(&syncFlags.format, "format", "text", "Output format: text or json")
}

func runSync(cmd *cobra.Command, _ []string) error {
	if syncFlags.format != "text" && syncFlags.format != "json" {
		return fmt.Errorf("unknown format %q (want text or json)", syncFlags.format)
	}
	cfg, log, err := loadConfig(true)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	a, err := newApp(ctx, cfg, log, true)
	if err != nil {
		return err
	}
	defer a.Close()

	summary, err := a.orch.Run(ctx, orchestrator.Options{
		DryRun:         syncFlags.dryRun,
		Force:          syncFlags.force,
		ResolveMissing: syncFlags.resolveMissing || cfg.Sync.ResolveMissing,
		Workers:        syncFlags.workers,
		Only:           syncFlags.only,
	})
	if summary != nil {
		if pushErr := metrics.Push(ctx, cfg.Metrics.PushgatewayURL, cfg.Metrics.Job, summary.RunID, a.registry); pushErr != nil {
			log.Warn("push metrics failed", "error", pushErr)
		}
		out := cmd.OutOrStdout()
		if syncFlags.format == "json" {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			if encErr := enc.Encode(summary); encErr != nil {
				return encErr
			}
		} else {
			printSummary(out, summary)
		}
	}
	return err
}

func printSummary(out io.Writer, s *orchestrator.Summary) {
	mode := "live"
	if s.DryRun {
		mode = "dry-run"
	}
	fmt.Fprintf(out, "Run %s (%s), %d candidates in %s\n\n",
		s.RunID, mode, s.Candidates, s.FinishedAt.Sub(s.StartedAt).Round(time.Millisecond))

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "COMPANY\tORGNR\tSTATUS\tWRITTEN\tPIPELINE\tNOTE")
	for _, c := range s.Companies {
		written, pipeline := 0, "-"
		if c.Sync != nil {
			written = len(c.Sync.Written)
			pipeline = string(c.Sync.Pipeline)
		}
		note := c.Reason
		if c.Degraded {
			note = joinNote(note, "stale cache")
		}
		if c.Discovered {
			note = joinNote(note, "orgnr found by name")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
			c.Company, dash(c.OrgNumber), c.Status, written, pipeline, dash(note))
	}
	_ = tw.Flush()

	if s.DryRun {
		printPlanned(out, s.Companies)
	}

	fmt.Fprintf(out, "\n%d success, %d partial, %d skipped, %d failed\n",
		s.Count(orchestrator.StatusSuccess),
		s.Count(orchestrator.StatusPartial),
		s.Count(orchestrator.StatusSkipped),
		s.Count(orchestrator.StatusFailed),
	)
	if s.Aborted {
		fmt.Fprintln(out, "run aborted before every company was processed")
	}
}

// printPlanned lists the writes a dry run would have made.
func printPlanned(out io.Writer, companies []orchestrator.CompanyResult) {
	for _, c := range companies {
		if c.Sync == nil || (len(c.Sync.Written) == 0 && c.Sync.PipelineItem == nil) {
			continue
		}
		fmt.Fprintf(out, "\n%s (%s)\n", c.Company, dash(c.OrgNumber))
		for _, w := range c.Sync.Written {
			fmt.Fprintf(out, "  %s = %s\n", w.Field, oneLine(w.Value))
		}
		if item := c.Sync.PipelineItem; item != nil {
			fmt.Fprintf(out, "  pipeline item %q (%s)\n", item.Name, item.Status)
		}
	}
}

func oneLine(s string) string {
	return strings.ReplaceAll(s, "\n", " | ")
}

func joinNote(a, b string) string {
	if a == "" {
		return b
	}
	return a + "; " + b
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
