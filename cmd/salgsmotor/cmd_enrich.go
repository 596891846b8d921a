package main

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"salgsmotor/internal/enrichment/models"
	"salgsmotor/internal/orchestrator"
)

var enrichFlags struct {
	force  bool
	format string
}

var enrichCmd = &cobra.Command{
	Use:   "enrich ORGNR",
	Short: "Enrich one company and show its recommendations without touching the CRM",
	Args:  cobra.ExactArgs(1),
	RunE:  runEnrich,
}

func init() {
	f := enrichCmd.Flags()
	f.BoolVar(&enrichFlags.force, "force", false, "Ignore a fresh cache entry and re-fetch every source")
	f.StringVar(&enrichFlags.format, "format", "text", "Output format: text or json")
}

func runEnrich(cmd *cobra.Command, args []string) error {
	if enrichFlags.format != "text" && enrichFlags.format != "json" {
		return fmt.Errorf("unknown format %q (want text or json)", enrichFlags.format)
	}
	cfg, log, err := loadConfig(false)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	a, err := newApp(ctx, cfg, log, false)
	if err != nil {
		return err
	}
	defer a.Close()

	p, err := a.orch.Preview(ctx, args[0], enrichFlags.force)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if enrichFlags.format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(p)
	}
	printPreview(out, p)
	return nil
}

func printPreview(out io.Writer, p *orchestrator.Preview) {
	b := p.Bundle
	fmt.Fprintf(out, "%s (%s)\n", dash(b.CompanyName()), p.OrgNumber)

	source := "fetched"
	if p.FromCache {
		source = "cache"
	}
	if p.Degraded {
		source = "stale cache, sources unavailable"
	}
	fmt.Fprintf(out, "Data: %s, %s\n\n", source, p.FetchedAt.Format("2006-01-02 15:04"))

	if r := b.Registry; r != nil {
		line(out, "Form", r.OrganizationForm)
		line(out, "Municipality", r.Municipality)
		line(out, "Industry", r.Industry)
		if r.Employees != nil {
			line(out, "Employees", strconv.Itoa(*r.Employees))
		}
		if r.FoundedOn != nil {
			line(out, "Founded", r.FoundedOn.Format("2006-01-02"))
		}
	}
	if r := b.Registry; r != nil && r.Website != "" {
		line(out, "Website", r.Website)
	} else if b.DiscoveredWebsite != "" {
		line(out, "Website", b.DiscoveredWebsite+" (directory listing)")
	}
	if reg := b.Registration; reg != nil {
		line(out, "Registrar", reg.Registrar)
		if reg.RegisteredAt != nil {
			line(out, "Domain since", reg.RegisteredAt.Format("2006-01-02"))
		}
		if reg.ExpiresAt != nil {
			line(out, "Domain expires", reg.ExpiresAt.Format("2006-01-02"))
		}
	}
	if c := b.Contact; c != nil {
		line(out, "Email", c.Email)
		if c.Email != "" {
			line(out, "Email provider", string(c.ProviderClass))
		}
		line(out, "Phone", c.Phone)
	}
	if f := b.Financial; f != nil {
		line(out, "Rating", f.Rating)
		line(out, "Profile", f.Description)
	}
	if d := b.DomainHealth; d != nil {
		if d.TLSValid != nil {
			line(out, "TLS valid", yesNo(*d.TLSValid))
		}
		if d.TLSExpiresAt != nil {
			line(out, "TLS expires", d.TLSExpiresAt.Format("2006-01-02"))
		}
		if d.Reachable {
			line(out, "Mail server", yesNo(d.HasMX))
		}
		line(out, "Technologies", strings.Join(d.Technologies, ", "))
	}
	if w := b.WebsiteAnalysis; w != nil {
		line(out, "Site review", w.Summary)
	}
	if s := b.Social; s.HasProfiles() {
		networks := make([]string, 0, len(s.Profiles))
		for n := range s.Profiles {
			networks = append(networks, n)
		}
		slices.Sort(networks)
		line(out, "Social", strings.Join(networks, ", "))
	}
	for _, src := range sortedSources(b.SourceErrors) {
		line(out, "Unavailable", fmt.Sprintf("%s: %s", src, b.SourceErrors[src]))
	}

	fmt.Fprintln(out, "\nRecommendations:")
	if len(p.Recommendations) == 0 {
		fmt.Fprintln(out, "  none")
	}
	for _, r := range p.Recommendations {
		fmt.Fprintf(out, "  %d. [%s] %s\n", r.Priority, r.Category, r.Rationale)
	}
	if p.Note != "" {
		fmt.Fprintf(out, "\nNote:\n  %s\n", p.Note)
	}
}

func line(out io.Writer, label, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(out, "%-15s %s\n", label+":", value)
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func sortedSources(m map[models.Source]string) []models.Source {
	out := make([]models.Source, 0, len(m))
	for src := range m {
		out = append(out, src)
	}
	slices.Sort(out)
	return out
}
