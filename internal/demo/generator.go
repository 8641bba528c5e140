// Package demo renders static demo websites for leads from a small set of
// category-matched HTML templates.
package demo

import (
	"context"
	"embed"
	"html/template"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/leadforge/leadforge-cli/internal/model"
	"github.com/leadforge/leadforge-cli/internal/store"
)

//go:embed templates/*.html templates/styles.css
var templateFS embed.FS

// Rule maps category keywords to a template. Rules are evaluated in order;
// the first keyword found as a substring of the lead's category wins.
type Rule struct {
	Keywords []string `yaml:"keywords"`
	Template string   `yaml:"template"`
}

// defaultTemplate is used when no rule matches.
const defaultTemplate = "service"

// DefaultRules is the built-in category classifier.
var DefaultRules = []Rule{
	{Keywords: []string{"restaurant", "food", "cafe", "burger", "pizza"}, Template: "restaurant"},
	{Keywords: []string{"tech", "repair", "computer", "phone", "electronic"}, Template: "tech_repair"},
}

// LoadRules reads a rule list from a YAML file.
func LoadRules(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "demo: read rules file %s", path)
	}
	var rules []Rule
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, eris.Wrapf(err, "demo: parse rules file %s", path)
	}
	return rules, nil
}

// Generator renders demo pages into an output directory.
type Generator struct {
	outputDir string
	rules     []Rule
	tmpl      *template.Template
}

// Option configures a Generator.
type Option func(*Generator)

// WithRules overrides the built-in template selection rules.
func WithRules(rules []Rule) Option {
	return func(g *Generator) {
		g.rules = rules
	}
}

// New creates a Generator writing into outputDir, creating it if needed.
func New(outputDir string, opts ...Option) (*Generator, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "demo: create output dir %s", outputDir)
	}

	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, eris.Wrap(err, "demo: parse templates")
	}

	g := &Generator{
		outputDir: outputDir,
		rules:     DefaultRules,
		tmpl:      tmpl,
	}
	for _, o := range opts {
		o(g)
	}
	return g, nil
}

// SelectTemplate picks the template for a lead's category: ordered keyword
// rules, first match wins, default fallback.
func (g *Generator) SelectTemplate(category string) string {
	category = strings.ToLower(category)
	for _, rule := range g.rules {
		for _, kw := range rule.Keywords {
			if strings.Contains(category, kw) {
				return rule.Template
			}
		}
	}
	return defaultTemplate
}

// pageContext is the flat render context. Fields absent from the lead
// render as their zero value.
type pageContext struct {
	BusinessName     string
	BusinessCategory string
	Location         string
	Address          string
	Phone            string
	Rating           float64
	ReviewCount      int
	Website          string
	GoogleMapsURL    string
}

// Generate renders a demo page for the lead and returns the written file
// path along with the template used.
func (g *Generator) Generate(lead model.Lead) (string, string, error) {
	name := g.SelectTemplate(lead.Category)

	ctx := pageContext{
		BusinessName:     lead.Name,
		BusinessCategory: lead.Category,
		Location:         lead.Location,
		Address:          lead.Address,
		Phone:            lead.Phone,
		Rating:           lead.Rating,
		ReviewCount:      lead.ReviewCount,
		Website:          lead.Website,
		GoogleMapsURL:    lead.GoogleMapsURL,
	}
	if ctx.BusinessName == "" {
		ctx.BusinessName = "Your Business"
	}
	if ctx.GoogleMapsURL == "" {
		ctx.GoogleMapsURL = "#"
	}

	outPath := filepath.Join(g.outputDir, sanitizeFilename(lead.Name)+".html")
	f, err := os.Create(outPath)
	if err != nil {
		return "", "", eris.Wrapf(err, "demo: create %s", outPath)
	}
	defer f.Close() //nolint:errcheck

	if err := g.tmpl.ExecuteTemplate(f, name+".html", ctx); err != nil {
		return "", "", eris.Wrapf(err, "demo: render %s", name)
	}

	if err := g.copyStylesheet(); err != nil {
		return "", "", err
	}

	return outPath, name, nil
}

// GenerateAndSave renders a demo and records it against the lead.
func (g *Generator) GenerateAndSave(ctx context.Context, lead model.Lead, st store.Store) (*model.Demo, error) {
	path, name, err := g.Generate(lead)
	if err != nil {
		return nil, err
	}

	d := model.Demo{
		BusinessID:   lead.ID,
		TemplateUsed: name,
		DemoURL:      DemoURL(path),
		LocalPath:    path,
	}
	id, err := st.InsertDemo(ctx, d)
	if err != nil {
		return nil, eris.Wrapf(err, "demo: record demo for %s", lead.Name)
	}
	d.ID = id
	return &d, nil
}

func (g *Generator) copyStylesheet() error {
	css, err := templateFS.ReadFile("templates/styles.css")
	if err != nil {
		return eris.Wrap(err, "demo: read stylesheet")
	}
	dest := filepath.Join(g.outputDir, "styles.css")
	if err := os.WriteFile(dest, css, 0o644); err != nil {
		return eris.Wrapf(err, "demo: write stylesheet %s", dest)
	}
	return nil
}

// DemoURL returns a local viewing URL for a generated page. A deployed
// setup would swap this for the published URL.
func DemoURL(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return "file://" + abs
}

// sanitizeFilename converts a business name into a safe, stable filename.
func sanitizeFilename(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('_')
		}
	}
	safe := b.String()
	for strings.Contains(safe, "__") {
		safe = strings.ReplaceAll(safe, "__", "_")
	}
	if safe == "" {
		safe = "demo"
	}
	if len(safe) > 50 {
		safe = safe[:50]
	}
	return safe
}
