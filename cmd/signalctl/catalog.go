package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/origo/signalcheck/internal/assessment"
)

type catalogRow struct {
	Step     int                  `json:"step"`
	ID       string               `json:"id"`
	Category assessment.Category  `json:"category"`
	Kind     assessment.InputKind `json:"kind"`
	Weight   int                  `json:"weight"`
	Text     string               `json:"text"`
	Options  []assessment.Option  `json:"options,omitempty"`
}

func newCatalogCmd(g *globals) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "List the questions in presentation order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := g.catalog()
			if err != nil {
				return err
			}

			rows := make([]catalogRow, 0, c.Len())
			for i := range c.Len() {
				q := c.At(i)
				rows = append(rows, catalogRow{
					Step:     i + 1,
					ID:       q.ID,
					Category: q.Category,
					Kind:     q.Kind,
					Weight:   q.Weight,
					Text:     q.Text,
					Options:  q.Options,
				})
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(rows)
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "STEP\tID\tCATEGORY\tKIND\tOPTIONS\tTEXT")
			for _, r := range rows {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", r.Step, r.ID, r.Category, r.Kind, optionSummary(r.Options), r.Text)
			}
			fmt.Fprintf(tw, "\nmax score: %d\n", c.MaxScore())
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the catalog as JSON")
	return cmd
}

func optionSummary(opts []assessment.Option) string {
	if len(opts) == 0 {
		return "-"
	}
	parts := make([]string, len(opts))
	for i, o := range opts {
		parts[i] = fmt.Sprintf("%s=%d", o.Label, o.Value)
	}
	return strings.Join(parts, ", ")
}
