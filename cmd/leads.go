package main

import (
	"fmt"
	"html/template"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/leadforge/leadforge-cli/internal/model"
	"github.com/leadforge/leadforge-cli/internal/store"
)

var (
	leadsStatus   string
	leadsSearchID int64
	leadsLimit    int
	leadsStats    bool
	leadsHTML     string
)

var leadsCmd = &cobra.Command{
	Use:   "leads",
	Short: "Report on stored leads",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if leadsStats {
			return printStats(cmd, st)
		}

		leads, err := st.ListLeads(ctx, store.LeadFilter{
			WebsiteStatus: model.WebsiteStatus(leadsStatus),
			SearchID:      leadsSearchID,
			Limit:         leadsLimit,
		})
		if err != nil {
			return err
		}

		if leadsHTML != "" {
			stats, err := st.Stats(ctx)
			if err != nil {
				return err
			}
			if err := writeHTMLReport(leadsHTML, leads, stats); err != nil {
				return err
			}
			cmd.Printf("Wrote report for %d leads to %s\n", len(leads), leadsHTML)
			return nil
		}

		if len(leads) == 0 {
			cmd.Println("No leads stored yet. Run `leadforge find` first.")
			return nil
		}
		printLeads(cmd, leads)
		return nil
	},
}

var titler = cases.Title(language.English)

// statusLabel turns a snake_case enum value into a display label.
func statusLabel[T ~string](v T) string {
	return titler.String(strings.ReplaceAll(string(v), "_", " "))
}

func printLeads(cmd *cobra.Command, leads []model.Lead) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSCORE\tNAME\tLOCATION\tRATING\tWEBSITE\tSTAGE")
	for _, lead := range leads {
		fmt.Fprintf(w, "%d\t%d\t%s\t%s\t%.1f (%d)\t%s\t%s\n",
			lead.ID, lead.LeadScore, lead.Name, lead.Location,
			lead.Rating, lead.ReviewCount,
			statusLabel(lead.WebsiteStatus), statusLabel(lead.OutreachStage))
	}
	w.Flush() //nolint:errcheck
}

func printStats(cmd *cobra.Command, st store.Store) error {
	stats, err := st.Stats(cmd.Context())
	if err != nil {
		return err
	}

	cmd.Printf("Total businesses: %d\n", stats.TotalBusinesses)
	for _, status := range []model.WebsiteStatus{
		model.WebsiteStatusNone, model.WebsiteStatusSocialOnly,
		model.WebsiteStatusHasWebsite, model.WebsiteStatusBroken,
	} {
		if n := stats.ByStatus[status]; n > 0 {
			cmd.Printf("  %s: %d\n", statusLabel(status), n)
		}
	}
	cmd.Printf("Demos created: %d\n", stats.DemosCreated)
	cmd.Printf("Outreach attempts: %d\n", stats.OutreachAttempts)
	cmd.Printf("Responses received: %d (%.1f%%)\n", stats.ResponsesReceived, stats.ResponseRate())
	return nil
}

var reportTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>Lead Report</title>
  <style>
    body { font-family: Arial, sans-serif; margin: 2rem; color: #1f2430; }
    h1 { margin-bottom: 0.25rem; }
    .meta { color: #5b6472; margin-bottom: 1.5rem; }
    table { border-collapse: collapse; width: 100%; }
    th, td { border: 1px solid #d0d5dd; padding: 0.5rem 0.75rem; text-align: left; }
    th { background: #f2f4f7; }
    tr:nth-child(even) td { background: #fafafa; }
  </style>
</head>
<body>
  <h1>Lead Report</h1>
  <p class="meta">Generated {{.GeneratedAt}} &middot; {{.Stats.TotalBusinesses}} businesses on record,
    {{.Stats.DemosCreated}} demos, {{.Stats.OutreachAttempts}} outreach attempts
    ({{printf "%.1f" .Stats.ResponseRate}}% answered)</p>
  <table>
    <tr><th>ID</th><th>Score</th><th>Name</th><th>Location</th><th>Rating</th><th>Website</th><th>Stage</th></tr>
    {{range .Rows}}
    <tr>
      <td>{{.ID}}</td><td>{{.LeadScore}}</td><td>{{.Name}}</td><td>{{.Location}}</td>
      <td>{{printf "%.1f" .Rating}} ({{.ReviewCount}})</td>
      <td>{{.StatusLabel}}</td><td>{{.StageLabel}}</td>
    </tr>
    {{end}}
  </table>
</body>
</html>
`))

type reportRow struct {
	model.Lead
	StatusLabel string
	StageLabel  string
}

// writeHTMLReport renders a static, shareable leads report to path.
func writeHTMLReport(path string, leads []model.Lead, stats *model.Stats) error {
	rows := make([]reportRow, 0, len(leads))
	for _, lead := range leads {
		rows = append(rows, reportRow{
			Lead:        lead,
			StatusLabel: statusLabel(lead.WebsiteStatus),
			StageLabel:  statusLabel(lead.OutreachStage),
		})
	}

	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "create report %s", path)
	}
	defer f.Close() //nolint:errcheck

	return reportTemplate.Execute(f, struct {
		GeneratedAt string
		Stats       *model.Stats
		Rows        []reportRow
	}{
		GeneratedAt: time.Now().Format("2006-01-02 15:04"),
		Stats:       stats,
		Rows:        rows,
	})
}

func init() {
	leadsCmd.Flags().StringVar(&leadsStatus, "status", "", "filter by website status (no_website, social_only, has_website)")
	leadsCmd.Flags().Int64Var(&leadsSearchID, "search", 0, "filter by search id")
	leadsCmd.Flags().IntVar(&leadsLimit, "limit", 0, "maximum leads to show")
	leadsCmd.Flags().BoolVar(&leadsStats, "stats", false, "show store-wide statistics instead")
	leadsCmd.Flags().StringVar(&leadsHTML, "html", "", "write a static HTML report to this path instead")
	rootCmd.AddCommand(leadsCmd)
}
