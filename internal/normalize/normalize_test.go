package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/leadforge/leadforge-cli/internal/model"
	"github.com/leadforge/leadforge-cli/pkg/serpapi"
)

func TestMapsLead_Defaults(t *testing.T) {
	n := New("GB")
	lead := n.MapsLead(serpapi.MapsResult{}, "barber", "Manchester UK")

	assert.Equal(t, "Unknown", lead.Name)
	assert.Equal(t, "barber", lead.Category)
	assert.Equal(t, "Manchester UK", lead.Location)
	assert.Equal(t, 0.0, lead.Rating)
	assert.Equal(t, 0, lead.ReviewCount)
	assert.Empty(t, lead.Phone)
	assert.Empty(t, lead.Website)
	assert.Empty(t, lead.GoogleMapsURL)
	assert.Equal(t, model.SourceGoogleMaps, lead.Source)
}

func TestMapsLead_URLFallbackChain(t *testing.T) {
	n := New("GB")

	tests := []struct {
		name   string
		result serpapi.MapsResult
		want   string
	}{
		{
			name:   "direct link wins",
			result: serpapi.MapsResult{Link: "https://maps.google.com/x", PlaceID: "p1", Title: "A", Address: "B"},
			want:   "https://maps.google.com/x",
		},
		{
			name:   "place id second",
			result: serpapi.MapsResult{PlaceID: "p1", Title: "A", Address: "B"},
			want:   "https://www.google.com/maps/place/?q=place_id:p1",
		},
		{
			name:   "name plus address third",
			result: serpapi.MapsResult{Title: "Cut Above", Address: "1 High St"},
			want:   "https://www.google.com/maps/search/?api=1&query=Cut+Above+1+High+St",
		},
		{
			name:   "address without name yields empty",
			result: serpapi.MapsResult{Address: "1 High St"},
			want:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lead := n.MapsLead(tt.result, "barber", "Manchester UK")
			assert.Equal(t, tt.want, lead.GoogleMapsURL)
		})
	}
}

func TestMapsLead_PhoneNormalization(t *testing.T) {
	n := New("GB")

	lead := n.MapsLead(serpapi.MapsResult{Title: "X", Phone: "0161 496 0123"}, "barber", "Manchester UK")
	assert.Equal(t, "+441614960123", lead.Phone)

	// Unparseable numbers are kept verbatim rather than dropped.
	lead = n.MapsLead(serpapi.MapsResult{Title: "X", Phone: "call us!"}, "barber", "Manchester UK")
	assert.Equal(t, "call us!", lead.Phone)
}

func TestLinkedInLead_NameFromTitle(t *testing.T) {
	n := New("GB")
	lead := n.LinkedInLead(serpapi.OrganicResult{
		Title:   "Jane Doe - Bid Manager - Acme | LinkedIn",
		Link:    "https://linkedin.com/in/janedoe",
		Snippet: "Bid Manager at Acme",
	}, "Civil Engineering", "Manchester UK")

	assert.Equal(t, "Jane Doe", lead.Name)
	assert.Equal(t, "Civil Engineering", lead.Category)
	assert.Equal(t, "Manchester UK", lead.Location)
	assert.Equal(t, "https://linkedin.com/in/janedoe", lead.Website)
	assert.Equal(t, model.SourceLinkedIn, lead.Source)
	assert.Contains(t, lead.Notes, "Bid Manager at Acme")
}

func TestLinkedInLead_NoLocation(t *testing.T) {
	n := New("GB")
	lead := n.LinkedInLead(serpapi.OrganicResult{Title: "plain title"}, "IT", "")

	assert.Equal(t, "Unknown", lead.Name)
	assert.Equal(t, "LinkedIn", lead.Location)
	assert.Equal(t, "Remote/LinkedIn", lead.Address)
}

func TestClutchLead_NameParsing(t *testing.T) {
	n := New("GB")
	lead := n.ClutchLead(serpapi.OrganicResult{
		Title: "Acme Digital Reviews - Manchester - 12 Reviews | Clutch.co",
		Link:  "https://clutch.co/profile/acme",
	}, "UX Design", "")

	assert.Equal(t, "Acme Digital", lead.Name)
	assert.Equal(t, "Clutch", lead.Location)
	assert.Equal(t, "Check Clutch Profile", lead.Address)
	assert.Equal(t, model.SourceClutch, lead.Source)
}
