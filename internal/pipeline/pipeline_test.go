package pipeline

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadforge/leadforge-cli/internal/config"
	"github.com/leadforge/leadforge-cli/internal/model"
	"github.com/leadforge/leadforge-cli/internal/normalize"
	"github.com/leadforge/leadforge-cli/internal/store"
	"github.com/leadforge/leadforge-cli/internal/validate"
	"github.com/leadforge/leadforge-cli/pkg/serpapi"
)

type fakeClient struct {
	mapsResults []serpapi.MapsResult
	mapsErr     error
	webResults  []serpapi.OrganicResult
	webErr      error

	lastMaps serpapi.MapsQuery
	lastWeb  serpapi.WebQuery
}

func (c *fakeClient) MapsSearch(_ context.Context, q serpapi.MapsQuery) ([]serpapi.MapsResult, error) {
	c.lastMaps = q
	return c.mapsResults, c.mapsErr
}

func (c *fakeClient) WebSearch(_ context.Context, q serpapi.WebQuery) ([]serpapi.OrganicResult, error) {
	c.lastWeb = q
	return c.webResults, c.webErr
}

type fakeStore struct {
	nextID    int64
	searches  []model.Search
	leads     []model.Lead
	demos     []model.Demo
	failNames map[string]bool
	listed    []model.Lead
	lastList  store.LeadFilter
}

func (s *fakeStore) CreateSearch(_ context.Context, query, location, engine string) (int64, error) {
	s.nextID++
	s.searches = append(s.searches, model.Search{ID: s.nextID, Query: query, Location: location, Engine: engine})
	return s.nextID, nil
}

func (s *fakeStore) RecentSearches(context.Context, int) ([]model.Search, error) {
	return s.searches, nil
}

func (s *fakeStore) InsertLead(_ context.Context, lead model.Lead) (int64, error) {
	if s.failNames[lead.Name] {
		return 0, eris.New("store: insert lead: disk full")
	}
	s.nextID++
	lead.ID = s.nextID
	s.leads = append(s.leads, lead)
	return s.nextID, nil
}

func (s *fakeStore) GetLead(context.Context, int64) (*model.Lead, error) { return nil, nil }

func (s *fakeStore) ListLeads(_ context.Context, filter store.LeadFilter) ([]model.Lead, error) {
	s.lastList = filter
	return s.listed, nil
}

func (s *fakeStore) InsertDemo(_ context.Context, d model.Demo) (int64, error) {
	s.nextID++
	d.ID = s.nextID
	s.demos = append(s.demos, d)
	return s.nextID, nil
}

func (s *fakeStore) InsertOutreach(context.Context, model.OutreachEvent) (int64, error) {
	return 0, nil
}

func (s *fakeStore) UpdateOutreachResponse(context.Context, int64, string, string) error {
	return nil
}

func (s *fakeStore) OutreachHistory(context.Context, int64) ([]model.OutreachEvent, error) {
	return nil, nil
}

func (s *fakeStore) Stats(context.Context) (*model.Stats, error) { return &model.Stats{}, nil }
func (s *fakeStore) Migrate(context.Context) error               { return nil }
func (s *fakeStore) Close() error                                { return nil }

type fakeGenerator struct {
	failNames map[string]bool
	generated []string
}

func (g *fakeGenerator) GenerateAndSave(ctx context.Context, lead model.Lead, st store.Store) (*model.Demo, error) {
	if g.failNames[lead.Name] {
		return nil, eris.New("demo: render failed")
	}
	g.generated = append(g.generated, lead.Name)
	id, err := st.InsertDemo(ctx, model.Demo{BusinessID: lead.ID, TemplateUsed: "service"})
	if err != nil {
		return nil, err
	}
	return &model.Demo{ID: id, BusinessID: lead.ID, DemoURL: "file:///demos/" + lead.Name + ".html"}, nil
}

type lineRecorder struct {
	lines []string
}

func (r *lineRecorder) Printf(format string, args ...any) {
	r.lines = append(r.lines, fmt.Sprintf(format, args...))
}

func (r *lineRecorder) joined() string { return strings.Join(r.lines, "\n") }

func newTestPipeline(st store.Store, client serpapi.Client, opts ...Option) *Pipeline {
	validator := validate.New(config.Thresholds{
		MinRating:     4.0,
		MinReviews:    20,
		SocialDomains: []string{"facebook.com", "instagram.com"},
	})
	return New(st, client, normalize.New("GB"), validator, opts...)
}

func mapsResult(name, phone string, rating float64, reviews int) serpapi.MapsResult {
	return serpapi.MapsResult{
		Title:   name,
		Address: "1 High St",
		Phone:   phone,
		Rating:  rating,
		Reviews: reviews,
	}
}

func TestRun_SavesValidLeads(t *testing.T) {
	st := &fakeStore{}
	client := &fakeClient{mapsResults: []serpapi.MapsResult{
		mapsResult("Good Barber", "+441611234567", 4.6, 80),
		mapsResult("Better Barber", "+441617654321", 4.9, 200),
		mapsResult("No Phone Barber", "", 4.8, 90),
	}}
	out := &lineRecorder{}
	p := newTestPipeline(st, client, WithReporter(out))

	sum, err := p.Run(context.Background(), "barber", "Manchester UK", 20, false)
	require.NoError(t, err)

	assert.Equal(t, 3, sum.Found)
	assert.Equal(t, 2, sum.Valid)
	assert.Equal(t, 2, sum.Saved)
	require.Len(t, sum.Leads, 2)

	// Highest score first.
	assert.Equal(t, "Better Barber", sum.Leads[0].Name)
	assert.Positive(t, sum.Leads[0].ID)

	require.Len(t, st.searches, 1)
	assert.Equal(t, "google_maps", st.searches[0].Engine)
	for _, lead := range st.leads {
		require.NotNil(t, lead.SearchID)
		assert.Equal(t, sum.SearchID, *lead.SearchID)
	}

	assert.Equal(t, "barber", client.lastMaps.Query)
	assert.Equal(t, "Manchester UK", client.lastMaps.Location)
	assert.Contains(t, out.joined(), "Saved 2 of 2 valid leads")
}

func TestRun_NoResultsShortCircuits(t *testing.T) {
	st := &fakeStore{}
	p := newTestPipeline(st, &fakeClient{}, WithReporter(&lineRecorder{}))

	sum, err := p.Run(context.Background(), "barber", "Nowhere", 20, true)
	require.NoError(t, err)
	assert.Equal(t, 0, sum.Found)
	assert.Empty(t, st.leads)
	assert.Empty(t, st.demos)
}

func TestRun_NoValidLeadsShortCircuits(t *testing.T) {
	st := &fakeStore{}
	client := &fakeClient{mapsResults: []serpapi.MapsResult{
		mapsResult("No Phone A", "", 4.8, 90),
		mapsResult("No Phone B", "", 4.2, 40),
	}}
	out := &lineRecorder{}
	p := newTestPipeline(st, client, WithReporter(out))

	sum, err := p.Run(context.Background(), "barber", "Manchester UK", 20, false)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Found)
	assert.Equal(t, 0, sum.Valid)
	assert.Empty(t, st.leads)
	assert.Contains(t, out.joined(), "No valid leads")
}

func TestRun_SearchErrorEndsRunEmpty(t *testing.T) {
	st := &fakeStore{}
	client := &fakeClient{mapsErr: eris.New("serpapi: api error: quota exceeded")}
	out := &lineRecorder{}
	p := newTestPipeline(st, client, WithReporter(out))

	sum, err := p.Run(context.Background(), "barber", "Manchester UK", 20, false)
	require.NoError(t, err)
	assert.Equal(t, 0, sum.Found)
	assert.Empty(t, st.leads)
	assert.Contains(t, out.joined(), "quota exceeded")
}

func TestRun_SaveFailureSkipsLead(t *testing.T) {
	st := &fakeStore{failNames: map[string]bool{"Cursed Cafe": true}}
	client := &fakeClient{mapsResults: []serpapi.MapsResult{
		mapsResult("Cursed Cafe", "+441611111111", 4.5, 60),
		mapsResult("Fine Cafe", "+441612222222", 4.5, 60),
	}}
	out := &lineRecorder{}
	p := newTestPipeline(st, client, WithReporter(out))

	sum, err := p.Run(context.Background(), "cafe", "Leeds UK", 20, false)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Valid)
	assert.Equal(t, 1, sum.Saved)
	require.Len(t, sum.Leads, 1)
	assert.Equal(t, "Fine Cafe", sum.Leads[0].Name)
	assert.Contains(t, out.joined(), "Could not save Cursed Cafe")
}

func TestRun_DemosCappedToTopN(t *testing.T) {
	var results []serpapi.MapsResult
	for i := 0; i < 7; i++ {
		results = append(results, mapsResult(fmt.Sprintf("Lead %d", i), "+44161000000"+fmt.Sprint(i), 4.5, 60))
	}
	st := &fakeStore{}
	gen := &fakeGenerator{}
	p := newTestPipeline(st, &fakeClient{mapsResults: results},
		WithDemoGenerator(gen, 0), WithReporter(&lineRecorder{}))

	sum, err := p.Run(context.Background(), "barber", "Manchester UK", 20, true)
	require.NoError(t, err)
	assert.Equal(t, 7, sum.Saved)
	assert.Equal(t, defaultDemoTopN, sum.Demos)
	assert.Len(t, gen.generated, defaultDemoTopN)
}

func TestRun_DemoFailureDoesNotAbort(t *testing.T) {
	st := &fakeStore{}
	gen := &fakeGenerator{failNames: map[string]bool{"Lead A": true}}
	client := &fakeClient{mapsResults: []serpapi.MapsResult{
		mapsResult("Lead A", "+441611111111", 4.9, 200),
		mapsResult("Lead B", "+441612222222", 4.5, 60),
	}}
	p := newTestPipeline(st, client, WithDemoGenerator(gen, 5), WithReporter(&lineRecorder{}))

	sum, err := p.Run(context.Background(), "barber", "Manchester UK", 20, true)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Saved)
	assert.Equal(t, 1, sum.Demos)
	assert.Equal(t, []string{"Lead B"}, gen.generated)
}

func TestRunExpert_LinkedIn(t *testing.T) {
	st := &fakeStore{}
	client := &fakeClient{webResults: []serpapi.OrganicResult{
		{Title: "Jane Smith - Owner at Smith Plumbing", Link: "https://linkedin.com/in/janesmith", Snippet: "Plumbing services"},
		{Title: "Acme Heating", Link: "https://linkedin.com/in/acme", Snippet: "Heating"},
	}}
	p := newTestPipeline(st, client, WithReporter(&lineRecorder{}))

	sum, err := p.RunExpert(context.Background(), model.SourceLinkedIn, "Owner", "plumbing", "Manchester", 10)
	require.NoError(t, err)

	assert.Contains(t, client.lastWeb.Query, "site:linkedin.com/in")
	assert.Contains(t, client.lastWeb.Query, `"Owner"`)
	assert.Contains(t, client.lastWeb.Query, `"plumbing"`)
	assert.Contains(t, client.lastWeb.Query, `"Manchester"`)
	require.Len(t, st.searches, 1)
	assert.Equal(t, "linkedin", st.searches[0].Engine)
	assert.Equal(t, "Owner plumbing", st.searches[0].Query)

	// Expert-source leads are always valid with a floor score.
	assert.Equal(t, 2, sum.Valid)
	assert.Equal(t, 2, sum.Saved)
	for _, lead := range sum.Leads {
		assert.GreaterOrEqual(t, lead.LeadScore, 85)
		assert.Equal(t, model.SourceLinkedIn, lead.Source)
	}
}

func TestRunExpert_Clutch(t *testing.T) {
	st := &fakeStore{}
	client := &fakeClient{webResults: []serpapi.OrganicResult{
		{Title: "BrightWeb Reviews", Link: "https://clutch.co/profile/brightweb", Snippet: "Top rated agency"},
	}}
	p := newTestPipeline(st, client, WithReporter(&lineRecorder{}))

	sum, err := p.RunExpert(context.Background(), model.SourceClutch, "", "web design", "London", 10)
	require.NoError(t, err)

	assert.Contains(t, client.lastWeb.Query, "site:clutch.co")
	require.Len(t, st.searches, 1)
	assert.Equal(t, "clutch", st.searches[0].Engine)
	require.Len(t, sum.Leads, 1)
	assert.Equal(t, "BrightWeb", sum.Leads[0].Name)
}

func TestRunExpert_RejectsNonExpertSource(t *testing.T) {
	p := newTestPipeline(&fakeStore{}, &fakeClient{})

	_, err := p.RunExpert(context.Background(), model.SourceGoogleMaps, "Owner", "plumbing", "Manchester", 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not an expert channel")
}

func TestRunExpert_LinkedInRequiresRole(t *testing.T) {
	p := newTestPipeline(&fakeStore{}, &fakeClient{})

	_, err := p.RunExpert(context.Background(), model.SourceLinkedIn, "", "plumbing", "Manchester", 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "needs a role")
}

func TestRunMultiLocation_AggregatesAndGeneratesDemos(t *testing.T) {
	st := &fakeStore{
		listed: []model.Lead{
			{ID: 1, Name: "Stored A", WebsiteStatus: model.WebsiteStatusNone},
			{ID: 2, Name: "Stored B", WebsiteStatus: model.WebsiteStatusSocialOnly},
		},
	}
	client := &fakeClient{mapsResults: []serpapi.MapsResult{
		mapsResult("Lead", "+441611234567", 4.5, 60),
	}}
	gen := &fakeGenerator{}
	p := newTestPipeline(st, client, WithDemoGenerator(gen, 5), WithReporter(&lineRecorder{}))

	sum, err := p.RunMultiLocation(context.Background(), "barber",
		[]string{"Manchester UK", "Leeds UK"}, 20, true)
	require.NoError(t, err)

	// One identical result per location.
	assert.Equal(t, 2, sum.Found)
	assert.Equal(t, 2, sum.Saved)
	assert.Len(t, st.searches, 2)

	// Demos come from the stored top-scored leads, whatever their website
	// status; a top social_only lead still gets one.
	assert.Equal(t, 2, sum.Demos)
	assert.Equal(t, []string{"Stored A", "Stored B"}, gen.generated)
	assert.Equal(t, model.WebsiteStatus(""), st.lastList.WebsiteStatus)
	assert.Equal(t, 5, st.lastList.Limit)
}
