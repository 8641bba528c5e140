package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/leadforge/leadforge-cli/internal/model"
	"github.com/leadforge/leadforge-cli/internal/pipeline"
)

var (
	findCategory string
	findLocation string
	findLimit    int
	findDemos    bool
	findMulti    bool
	findLinkedIn bool
	findClutch   bool
	findIndustry string
)

// validateFindFlags checks the flag combination before any work starts.
// With --linkedin, --category carries the role to X-Ray for ("Owner",
// "Bid Manager").
func validateFindFlags() error {
	modes := 0
	for _, on := range []bool{findMulti, findLinkedIn, findClutch} {
		if on {
			modes++
		}
	}
	if modes > 1 {
		return eris.New("--multi-location, --linkedin and --clutch are mutually exclusive")
	}
	if findCategory == "" {
		return eris.New("--category is required")
	}
	if findLinkedIn && findIndustry == "" {
		return eris.New("--industry is required with --linkedin")
	}
	if findLocation == "" && !findMulti && !findLinkedIn && !findClutch {
		return eris.New("--location is required (or use --multi-location/--linkedin/--clutch)")
	}
	return nil
}

var findCmd = &cobra.Command{
	Use:   "find",
	Short: "Discover and qualify new leads",
	Long: `Searches Google Maps for local businesses in a category and location,
scores them as website leads, and saves the valid ones.

With --linkedin or --clutch the search runs against the expert channel
instead: decision-maker profiles (--category is the role, --industry the
sector) or agency listings.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		if err := validateFindFlags(); err != nil {
			return err
		}

		ctx := cmd.Context()
		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		opts := []pipeline.Option{pipeline.WithReporter(cmdReporter{cmd})}
		if findDemos {
			gen, err := newDemoGenerator()
			if err != nil {
				return err
			}
			opts = append(opts, pipeline.WithDemoGenerator(gen, cfg.Demo.TopN))
		}
		p := newPipeline(st, opts...)

		var sum *pipeline.Summary
		switch {
		case findLinkedIn:
			sum, err = p.RunExpert(ctx, model.SourceLinkedIn, findCategory, findIndustry, findLocation, findLimit)
		case findClutch:
			sum, err = p.RunExpert(ctx, model.SourceClutch, "", findCategory, findLocation, findLimit)
		case findMulti:
			sum, err = p.RunMultiLocation(ctx, findCategory, cfg.Search.Locations, findLimit, findDemos)
		default:
			sum, err = p.Run(ctx, findCategory, findLocation, findLimit, findDemos)
		}
		if err != nil {
			return err
		}

		if len(sum.Leads) > 0 {
			printLeads(cmd, sum.Leads)
		}
		return nil
	},
}

func init() {
	findCmd.Flags().StringVarP(&findCategory, "category", "c", "", "business category (or role with --linkedin)")
	findCmd.Flags().StringVarP(&findLocation, "location", "l", "", "location to search in")
	findCmd.Flags().IntVar(&findLimit, "limit", 20, "maximum results per search")
	findCmd.Flags().BoolVar(&findDemos, "demos", false, "generate demo websites for the top leads")
	findCmd.Flags().BoolVar(&findMulti, "multi-location", false, "sweep all configured locations")
	findCmd.Flags().BoolVar(&findLinkedIn, "linkedin", false, "search LinkedIn for decision makers")
	findCmd.Flags().BoolVar(&findClutch, "clutch", false, "search Clutch for agencies")
	findCmd.Flags().StringVar(&findIndustry, "industry", "", "industry for LinkedIn search")
	rootCmd.AddCommand(findCmd)
}
