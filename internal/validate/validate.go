// Package validate implements the lead qualification engine: website
// presence classification, scoring, validity and outreach staging.
package validate

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/leadforge/leadforge-cli/internal/config"
	"github.com/leadforge/leadforge-cli/internal/model"
)

// Super-lead thresholds are fixed, unlike the configurable validity
// thresholds.
const (
	superLeadMinRating  = 4.7
	superLeadMinReviews = 50
)

// expertScoreFloor is the minimum score for expert-channel leads.
const expertScoreFloor = 85

// Validator derives a lead's qualification fields from its raw data and the
// configured thresholds. Pure computation, no I/O.
type Validator struct {
	thresholds config.Thresholds
}

// New creates a Validator with the given thresholds.
func New(t config.Thresholds) *Validator {
	return &Validator{thresholds: t}
}

// Apply returns a copy of the lead with WebsiteStatus, LeadScore,
// IsValidLead, IsSuperLead, OutreachStage and ValidationNotes derived.
func (v *Validator) Apply(lead model.Lead) model.Lead {
	ratingOK := lead.Rating >= v.thresholds.MinRating
	reviewsOK := lead.ReviewCount >= v.thresholds.MinReviews

	lead.WebsiteStatus = v.WebsiteStatus(lead.Website)
	lead.LeadScore = v.score(lead, ratingOK, reviewsOK, lead.WebsiteStatus)
	lead.IsValidLead = v.isValid(lead, ratingOK, reviewsOK)
	lead.IsSuperLead = lead.IsValidLead &&
		lead.Rating >= superLeadMinRating &&
		lead.ReviewCount >= superLeadMinReviews
	lead.OutreachStage = stage(lead)
	lead.ValidationNotes = v.notes(lead, ratingOK, reviewsOK)

	return lead
}

// WebsiteStatus classifies a website URL. Reachability probing is disabled,
// so "broken" is never returned.
func (v *Validator) WebsiteStatus(website string) model.WebsiteStatus {
	if website == "" {
		return model.WebsiteStatusNone
	}

	parsed, err := url.Parse(strings.ToLower(website))
	domain := strings.ToLower(website)
	if err == nil {
		domain = parsed.Host
		if domain == "" {
			domain = parsed.Path
		}
	}

	for _, social := range v.thresholds.SocialDomains {
		if strings.Contains(domain, social) {
			return model.WebsiteStatusSocialOnly
		}
	}
	return model.WebsiteStatusHasWebsite
}

// isValid applies the validity rule. Expert-channel leads are always valid;
// local businesses need a phone number and at least one of the two
// threshold checks to pass.
func (v *Validator) isValid(lead model.Lead, ratingOK, reviewsOK bool) bool {
	if lead.Source.Expert() {
		return true
	}
	return lead.Phone != "" && (ratingOK || reviewsOK)
}

// stage determines the outreach stage. A valid lead with no known owner is
// blocked before super-lead promotion applies.
func stage(lead model.Lead) model.OutreachStage {
	if lead.IsValidLead && lead.OwnerName == "" {
		return model.StageBlockedNoOwner
	}
	if lead.IsSuperLead {
		return model.StageSuperLead
	}
	return model.StageLead
}

// score computes the 0-100 lead score. The additive sum can exceed 100
// before clamping.
func (v *Validator) score(lead model.Lead, ratingOK, reviewsOK bool, status model.WebsiteStatus) int {
	score := 0

	if ratingOK {
		score += 20
	}
	if reviewsOK {
		score += 20
	}

	switch {
	case lead.Rating >= 4.5:
		score += 15
	case lead.Rating >= 4.2:
		score += 10
	}

	switch {
	case lead.ReviewCount >= 100:
		score += 20
	case lead.ReviewCount >= 50:
		score += 15
	case lead.ReviewCount >= 30:
		score += 10
	}

	switch status {
	case model.WebsiteStatusNone:
		score += 35
	case model.WebsiteStatusSocialOnly:
		score += 25
	case model.WebsiteStatusBroken:
		score += 15
	case model.WebsiteStatusHasWebsite:
		score += 5
	}

	if lead.Source.Expert() && score < expertScoreFloor {
		score = expertScoreFloor
	}

	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}
	return score
}

// notes builds a human-readable summary of threshold misses, missing
// contact data and the website classification. Not consumed by any
// downstream logic.
func (v *Validator) notes(lead model.Lead, ratingOK, reviewsOK bool) string {
	var parts []string

	if !ratingOK {
		parts = append(parts, fmt.Sprintf("Rating below %.1f", v.thresholds.MinRating))
	}
	if !reviewsOK {
		parts = append(parts, fmt.Sprintf("Reviews below %d", v.thresholds.MinReviews))
	}
	if lead.Phone == "" {
		parts = append(parts, "No phone number on record")
	}

	switch lead.WebsiteStatus {
	case model.WebsiteStatusNone:
		parts = append(parts, "No website - prime prospect")
	case model.WebsiteStatusSocialOnly:
		parts = append(parts, "Social media only - good prospect")
	case model.WebsiteStatusBroken:
		parts = append(parts, "Broken website - potential prospect")
	default:
		parts = append(parts, "Has website - weak prospect")
	}

	return strings.Join(parts, " | ")
}

// FilterValid validates each lead independently, keeps the valid ones and
// returns them ordered by score descending. The sort is stable: equal
// scores keep their original relative order.
func (v *Validator) FilterValid(leads []model.Lead) []model.Lead {
	var valid []model.Lead
	for _, lead := range leads {
		validated := v.Apply(lead)
		if validated.IsValidLead {
			valid = append(valid, validated)
		}
	}

	sort.SliceStable(valid, func(i, j int) bool {
		return valid[i].LeadScore > valid[j].LeadScore
	})
	return valid
}
