package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/leadforge/leadforge-cli/internal/outreach"
)

var (
	exportFormat string
	exportOut    string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export stored leads to CSV or XLSX",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		tr := outreach.New(st)

		switch exportFormat {
		case "csv":
			out := exportOut
			if out == "" {
				out = "leads.csv"
			}
			f, err := os.Create(out)
			if err != nil {
				return eris.Wrapf(err, "create %s", out)
			}
			defer f.Close() //nolint:errcheck
			if err := tr.ExportCSV(cmd.Context(), f); err != nil {
				return err
			}
			cmd.Printf("Exported leads to %s\n", out)
		case "xlsx":
			out := exportOut
			if out == "" {
				out = "leads.xlsx"
			}
			if err := tr.ExportXLSX(cmd.Context(), out); err != nil {
				return err
			}
			cmd.Printf("Exported leads to %s\n", out)
		default:
			return eris.Errorf("unknown export format %q (csv or xlsx)", exportFormat)
		}
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "csv", "export format (csv, xlsx)")
	exportCmd.Flags().StringVarP(&exportOut, "output", "o", "", "output file path")
	rootCmd.AddCommand(exportCmd)
}
