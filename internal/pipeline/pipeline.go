// Package pipeline orchestrates a discovery run: search the chosen engine,
// normalize and validate the results, persist the valid leads, and
// optionally generate demo sites for the best of them.
package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/leadforge/leadforge-cli/internal/demo"
	"github.com/leadforge/leadforge-cli/internal/model"
	"github.com/leadforge/leadforge-cli/internal/normalize"
	"github.com/leadforge/leadforge-cli/internal/store"
	"github.com/leadforge/leadforge-cli/internal/validate"
	"github.com/leadforge/leadforge-cli/pkg/serpapi"
)

// defaultDemoTopN caps demo generation to the highest-scoring leads of a run.
const defaultDemoTopN = 5

// Reporter receives human-readable progress lines during a run. Both the CLI
// and the dashboard stream satisfy it.
type Reporter interface {
	Printf(format string, args ...any)
}

type nopReporter struct{}

func (nopReporter) Printf(string, ...any) {}

// DemoGenerator renders and records a demo site for a stored lead.
type DemoGenerator interface {
	GenerateAndSave(ctx context.Context, lead model.Lead, st store.Store) (*model.Demo, error)
}

// Summary is the outcome of one discovery run.
type Summary struct {
	SearchID int64
	Found    int
	Valid    int
	Saved    int
	Super    int
	Demos    int
	Leads    []model.Lead
}

// Pipeline wires the search client, validator, store and demo generator
// into a single runnable unit.
type Pipeline struct {
	store     store.Store
	client    serpapi.Client
	norm      *normalize.Normalizer
	validator *validate.Validator
	generator DemoGenerator
	demoTopN  int
	out       Reporter
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithDemoGenerator enables demo generation for up to topN leads per run.
func WithDemoGenerator(g DemoGenerator, topN int) Option {
	return func(p *Pipeline) {
		p.generator = g
		if topN > 0 {
			p.demoTopN = topN
		}
	}
}

// WithReporter directs progress output to r.
func WithReporter(r Reporter) Option {
	return func(p *Pipeline) {
		p.out = r
	}
}

// New builds a Pipeline.
func New(st store.Store, client serpapi.Client, norm *normalize.Normalizer, validator *validate.Validator, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:     st,
		client:    client,
		norm:      norm,
		validator: validator,
		demoTopN:  defaultDemoTopN,
		out:       nopReporter{},
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Run executes a Google Maps discovery for one category and location.
func (p *Pipeline) Run(ctx context.Context, category, location string, limit int, genDemos bool) (*Summary, error) {
	searchID, err := p.store.CreateSearch(ctx, category, location, string(model.SourceGoogleMaps))
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: record search")
	}
	sum := &Summary{SearchID: searchID}

	p.out.Printf("Searching Google Maps for %q in %s...", category, location)
	results, err := p.client.MapsSearch(ctx, serpapi.MapsQuery{
		Query:    category,
		Location: location,
		Limit:    limit,
	})
	if err != nil {
		// Provider failures end the run with zero results; there is no retry.
		p.out.Printf("Search failed: %v", err)
		zap.S().Warnw("maps search failed", "category", category, "location", location, "error", err)
		return sum, nil
	}
	sum.Found = len(results)
	if len(results) == 0 {
		p.out.Printf("No businesses found for %q in %s.", category, location)
		return sum, nil
	}
	p.out.Printf("Found %d businesses, validating...", len(results))

	leads := make([]model.Lead, 0, len(results))
	for _, r := range results {
		lead := p.validator.Apply(p.norm.MapsLead(r, category, location))
		lead.SearchID = &searchID
		leads = append(leads, lead)
	}

	return p.finishRun(ctx, sum, leads, genDemos)
}

// RunExpert executes a LinkedIn or Clutch organic search for decision makers
// and agencies. Only linkedin and clutch sources are accepted. For LinkedIn,
// role is the job title the X-Ray query quotes ("Owner", "Bid Manager");
// Clutch searches ignore it.
func (p *Pipeline) RunExpert(ctx context.Context, source model.Source, role, industry, location string, limit int) (*Summary, error) {
	if !source.Expert() {
		return nil, eris.Errorf("pipeline: source %q is not an expert channel", source)
	}
	if source == model.SourceLinkedIn && role == "" {
		return nil, eris.New("pipeline: linkedin search needs a role")
	}

	query := expertQuery(source, role, industry, location)
	searchID, err := p.store.CreateSearch(ctx, strings.TrimSpace(role+" "+industry), location, string(source))
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: record search")
	}
	sum := &Summary{SearchID: searchID}

	p.out.Printf("Searching %s for %q in %s...", source, industry, location)
	results, err := p.client.WebSearch(ctx, serpapi.WebQuery{Query: query, Limit: limit})
	if err != nil {
		p.out.Printf("Search failed: %v", err)
		zap.S().Warnw("expert search failed", "source", source, "industry", industry, "error", err)
		return sum, nil
	}
	sum.Found = len(results)
	if len(results) == 0 {
		p.out.Printf("No %s results for %q in %s.", source, industry, location)
		return sum, nil
	}
	p.out.Printf("Found %d profiles, validating...", len(results))

	leads := make([]model.Lead, 0, len(results))
	for _, r := range results {
		var lead model.Lead
		if source == model.SourceLinkedIn {
			lead = p.norm.LinkedInLead(r, industry, location)
		} else {
			lead = p.norm.ClutchLead(r, industry, location)
		}
		lead = p.validator.Apply(lead)
		lead.SearchID = &searchID
		leads = append(leads, lead)
	}

	// Expert channels never produce demo sites.
	return p.finishRun(ctx, sum, leads, false)
}

// RunMultiLocation sweeps one category across several locations, then
// generates demos for the top-scored stored leads overall.
func (p *Pipeline) RunMultiLocation(ctx context.Context, category string, locations []string, limitPerLocation int, genDemos bool) (*Summary, error) {
	total := &Summary{SearchID: -1}
	for _, loc := range locations {
		sum, err := p.Run(ctx, category, loc, limitPerLocation, false)
		if err != nil {
			p.out.Printf("Skipping %s: %v", loc, err)
			zap.S().Warnw("location run failed", "location", loc, "error", err)
			continue
		}
		total.Found += sum.Found
		total.Valid += sum.Valid
		total.Saved += sum.Saved
		total.Super += sum.Super
		total.Leads = append(total.Leads, sum.Leads...)
	}

	if genDemos && p.generator != nil {
		// Candidates are the best stored leads regardless of website status;
		// ListLeads already orders by score.
		stored, err := p.store.ListLeads(ctx, store.LeadFilter{Limit: p.demoTopN})
		if err != nil {
			return total, eris.Wrap(err, "pipeline: list leads for demos")
		}
		total.Demos = p.generateDemos(ctx, stored)
	}

	p.out.Printf("Sweep complete: %d found, %d valid, %d saved across %d locations.",
		total.Found, total.Valid, total.Saved, len(locations))
	return total, nil
}

// finishRun persists validated leads and optionally renders demos, filling
// in the summary counters.
func (p *Pipeline) finishRun(ctx context.Context, sum *Summary, leads []model.Lead, genDemos bool) (*Summary, error) {
	valid := p.validator.FilterValid(leads)
	sum.Valid = len(valid)
	if len(valid) == 0 {
		p.out.Printf("No valid leads this run.")
		return sum, nil
	}

	for i := range valid {
		id, err := p.store.InsertLead(ctx, valid[i])
		if err != nil {
			p.out.Printf("Could not save %s: %v", valid[i].Name, err)
			zap.S().Warnw("lead save failed", "name", valid[i].Name, "error", err)
			continue
		}
		valid[i].ID = id
		sum.Saved++
		if valid[i].IsSuperLead {
			sum.Super++
		}
		sum.Leads = append(sum.Leads, valid[i])
	}
	p.out.Printf("Saved %d of %d valid leads (%d super).", sum.Saved, sum.Valid, sum.Super)

	if genDemos && p.generator != nil {
		sum.Demos = p.generateDemos(ctx, sum.Leads)
	}
	return sum, nil
}

// generateDemos renders demo sites for up to demoTopN of the given leads,
// skipping failures. Leads are expected in descending score order.
func (p *Pipeline) generateDemos(ctx context.Context, leads []model.Lead) int {
	n := p.demoTopN
	if n > len(leads) {
		n = len(leads)
	}
	var made int
	for _, lead := range leads[:n] {
		d, err := p.generator.GenerateAndSave(ctx, lead, p.store)
		if err != nil {
			p.out.Printf("Demo for %s failed: %v", lead.Name, err)
			zap.S().Warnw("demo generation failed", "name", lead.Name, "error", err)
			continue
		}
		p.out.Printf("Demo ready for %s: %s", lead.Name, d.DemoURL)
		made++
	}
	return made
}

func expertQuery(source model.Source, role, industry, location string) string {
	var q string
	switch source {
	case model.SourceLinkedIn:
		q = fmt.Sprintf(`site:linkedin.com/in %q %q`, role, industry)
		if location != "" {
			q += fmt.Sprintf(" %q", location)
		}
	default:
		q = strings.TrimSpace(fmt.Sprintf("site:clutch.co %s %s", industry, location))
	}
	return q
}

var _ DemoGenerator = (*demo.Generator)(nil)
