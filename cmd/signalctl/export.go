package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/origo/signalcheck/internal/assessment"
	"github.com/origo/signalcheck/internal/leads"
)

const (
	formatCSV  = "csv"
	formatXLSX = "xlsx"
)

func newExportCmd(g *globals) *cobra.Command {
	var (
		format string
		output string
		query  string
		tier   string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export stored assessments as CSV or XLSX",
		Long: `Export writes every stored assessment, newest first, in the same layout
as the admin download. Output goes to stdout unless --out names a file;
--out with an empty value picks the dated default name.`,
		Example: `  signalctl export > leads.csv
  signalctl export --format xlsx --out ""
  signalctl export --tier partial --query acme`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != formatCSV && format != formatXLSX {
				return fmt.Errorf("unknown format %q (want %s or %s)", format, formatCSV, formatXLSX)
			}

			f := leads.Filter{Query: query}
			if tier != "" {
				t, err := assessment.ParseTier(tier)
				if err != nil {
					return err
				}
				f.Tier = t
			}

			c, err := g.catalog()
			if err != nil {
				return err
			}
			db, err := g.openDB(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			store := leads.NewStore(db, c)
			records, err := store.List(cmd.Context(), f)
			if err != nil {
				return fmt.Errorf("listing leads: %w", err)
			}

			out := cmd.OutOrStdout()
			toFile := cmd.Flags().Changed("out")
			if toFile {
				if output == "" {
					output = leads.ExportFilename(time.Now(), format)
				}
				file, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("creating %s: %w", output, err)
				}
				defer file.Close()
				out = file
			}

			if err := writeExport(out, store, records, format); err != nil {
				return err
			}
			if toFile {
				fmt.Fprintf(cmd.ErrOrStderr(), "exported %d assessments to %s\n", len(records), output)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", formatCSV, "output format: csv or xlsx")
	cmd.Flags().StringVarP(&output, "out", "o", "", "write to this file instead of stdout")
	cmd.Flags().StringVarP(&query, "query", "q", "", "only leads whose name, email, role or industry contains this")
	cmd.Flags().StringVar(&tier, "tier", "", "only leads in this tier (label or slug)")
	return cmd
}

func writeExport(w io.Writer, store *leads.Store, records []leads.Record, format string) error {
	if format == formatCSV {
		return store.WriteCSV(w, records)
	}
	buf, err := store.XLSX(records, slog.Default())
	if err != nil {
		return err
	}
	_, err = buf.WriteTo(w)
	return err
}
