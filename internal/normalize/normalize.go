// Package normalize maps provider-specific search results into canonical
// lead records. It performs no network calls and never fails: absent fields
// get defaults.
package normalize

import (
	"net/url"
	"strings"

	"github.com/nyaruka/phonenumbers"

	"github.com/leadforge/leadforge-cli/internal/model"
	"github.com/leadforge/leadforge-cli/pkg/serpapi"
)

// Normalizer converts raw search results into model.Lead records.
type Normalizer struct {
	phoneRegion string
}

// New creates a Normalizer. phoneRegion is the default region used to parse
// national-format phone numbers (e.g. "GB", "US").
func New(phoneRegion string) *Normalizer {
	return &Normalizer{phoneRegion: phoneRegion}
}

// MapsLead builds a canonical lead from a Google Maps listing and the query
// context it was found under.
func (n *Normalizer) MapsLead(r serpapi.MapsResult, category, location string) model.Lead {
	name := r.Title
	if name == "" {
		name = "Unknown"
	}

	return model.Lead{
		Name:          name,
		Category:      category,
		Location:      location,
		Address:       r.Address,
		Phone:         n.normalizePhone(r.Phone),
		Rating:        r.Rating,
		ReviewCount:   r.Reviews,
		Website:       r.Website,
		GoogleMapsURL: mapsURL(r),
		Source:        model.SourceGoogleMaps,
	}
}

// LinkedInLead builds a lead from a LinkedIn X-Ray organic result. Profile
// titles follow "Name - Job Title - Company | LinkedIn".
func (n *Normalizer) LinkedInLead(r serpapi.OrganicResult, industry, location string) model.Lead {
	name := "Unknown"
	if idx := strings.Index(r.Title, " - "); idx > 0 {
		name = r.Title[:idx]
	}

	loc := location
	addr := location
	if loc == "" {
		loc = "LinkedIn"
		addr = "Remote/LinkedIn"
	}

	return model.Lead{
		Name:     name,
		Category: industry,
		Location: loc,
		Address:  addr,
		Website:  r.Link,
		Source:   model.SourceLinkedIn,
		Notes:    "Title: " + r.Title + "\nSnippet: " + r.Snippet,
	}
}

// ClutchLead builds a lead from a Clutch directory organic result. Titles
// follow "Company Name - Location - Reviews | Clutch.co".
func (n *Normalizer) ClutchLead(r serpapi.OrganicResult, category, location string) model.Lead {
	name := r.Title
	if idx := strings.Index(name, " - "); idx > 0 {
		name = name[:idx]
	}
	name = strings.ReplaceAll(name, " Reviews", "")
	if name == "" {
		name = "Unknown"
	}

	loc := location
	if loc == "" {
		loc = "Clutch"
	}

	return model.Lead{
		Name:     name,
		Category: category,
		Location: loc,
		Address:  "Check Clutch Profile",
		Website:  r.Link,
		Source:   model.SourceClutch,
		Notes:    r.Snippet,
	}
}

// normalizePhone formats a number to E.164 when it parses cleanly and keeps
// the raw string otherwise, so a weird-but-present number still counts as a
// contact.
func (n *Normalizer) normalizePhone(raw string) string {
	if raw == "" {
		return ""
	}
	num, err := phonenumbers.Parse(raw, n.phoneRegion)
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return raw
	}
	return phonenumbers.Format(num, phonenumbers.E164)
}

// mapsURL builds a maps-viewer URL with fallback priority: the provider's
// direct link, a place-id URL, a search URL encoded from name+address, or
// empty.
func mapsURL(r serpapi.MapsResult) string {
	if r.Link != "" {
		return r.Link
	}
	if r.PlaceID != "" {
		return "https://www.google.com/maps/place/?q=place_id:" + r.PlaceID
	}
	if r.Title != "" && r.Address != "" {
		q := url.QueryEscape(r.Title + " " + r.Address)
		return "https://www.google.com/maps/search/?api=1&query=" + q
	}
	return ""
}
