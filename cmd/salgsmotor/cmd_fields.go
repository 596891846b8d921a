package main

import (
	"fmt"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"salgsmotor/internal/crm"
	"salgsmotor/internal/crmsync"
)

var fieldsCmd = &cobra.Command{
	Use:   "fields",
	Short: "List the CRM's custom fields and which of them the sync writes",
	Long: "Prints every custom field defined in Less Annoying CRM with its id, so the\n" +
		"ids can be copied into the fields section of the configuration file.",
	Args: cobra.NoArgs,
	RunE: runFields,
}

func runFields(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadConfig(true)
	if err != nil {
		return err
	}
	mapping, err := crmsync.ParseFieldMapping(cfg.Fields)
	if err != nil {
		return err
	}
	client, err := newCRMClient(cfg, log)
	if err != nil {
		return err
	}

	fields, err := client.ListCustomFields(cmd.Context())
	if err != nil {
		return err
	}
	slices.SortFunc(fields, func(a, b crm.CustomField) int {
		if c := strings.Compare(a.RecordType, b.RecordType); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	})

	mappedTo := make(map[crm.FieldID]crmsync.Field)
	for _, f := range crmsync.Fields() {
		if id, ok := mapping.ID(f); ok {
			mappedTo[id] = f
		}
	}

	out := cmd.OutOrStdout()
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tRECORD TYPE\tNAME\tTYPE\tMAPPED AS")
	for _, f := range fields {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", f.ID, dash(f.RecordType), f.Name, dash(f.Type), dash(string(mappedTo[f.ID])))
	}
	_ = tw.Flush()

	var unmapped []string
	for _, f := range crmsync.Fields() {
		if _, ok := mapping.ID(f); !ok {
			unmapped = append(unmapped, string(f))
		}
	}
	if len(unmapped) > 0 {
		fmt.Fprintf(out, "\nNot mapped (skipped during sync): %s\n", strings.Join(unmapped, ", "))
	}
	return nil
}
