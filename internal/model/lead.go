package model

import (
	"time"
)

// WebsiteStatus classifies a lead's web presence.
type WebsiteStatus string

const (
	WebsiteStatusNone       WebsiteStatus = "no_website"
	WebsiteStatusSocialOnly WebsiteStatus = "social_only"
	WebsiteStatusHasWebsite WebsiteStatus = "has_website"
	// WebsiteStatusBroken is reserved for unreachable sites. Reachability
	// probing is disabled by default, so the validator never produces it.
	WebsiteStatusBroken WebsiteStatus = "broken"
)

// OutreachStage gates whether a lead is ready for contact.
type OutreachStage string

const (
	StageLead           OutreachStage = "lead"
	StageBlockedNoOwner OutreachStage = "blocked_no_owner"
	StageSuperLead      OutreachStage = "super_lead"
)

// Source identifies the discovery channel a lead came from.
type Source string

const (
	SourceGoogleMaps Source = "google_maps"
	SourceLinkedIn   Source = "linkedin"
	SourceClutch     Source = "clutch"
)

// Expert reports whether the source is an expert channel (role or directory
// search). Expert-channel leads bypass the contact-based validity rule.
func (s Source) Expert() bool {
	return s == SourceLinkedIn || s == SourceClutch
}

// ContactMethod is how an outreach attempt was made.
type ContactMethod string

const (
	MethodEmail    ContactMethod = "email"
	MethodPhone    ContactMethod = "phone"
	MethodWhatsApp ContactMethod = "whatsapp"
	MethodInPerson ContactMethod = "in_person"
)

// Lead is the canonical record for a discovered business or professional.
//
// WebsiteStatus, LeadScore, IsValidLead, IsSuperLead and OutreachStage are
// pure functions of the remaining fields plus the configured thresholds;
// they are set by the validator and never independently.
type Lead struct {
	ID              int64         `json:"id"`
	Name            string        `json:"name"`
	Category        string        `json:"category"`
	Location        string        `json:"location"`
	Address         string        `json:"address"`
	Phone           string        `json:"phone"`
	Rating          float64       `json:"rating"`
	ReviewCount     int           `json:"review_count"`
	Website         string        `json:"website,omitempty"`
	WebsiteStatus   WebsiteStatus `json:"website_status"`
	GoogleMapsURL   string        `json:"google_maps_url,omitempty"`
	LeadScore       int           `json:"lead_score"`
	IsValidLead     bool          `json:"is_valid_lead"`
	IsSuperLead     bool          `json:"is_super_lead"`
	ValidationNotes string        `json:"validation_notes,omitempty"`
	OwnerName       string        `json:"owner_name,omitempty"`
	LastReviewDate  string        `json:"last_review_date,omitempty"`
	OutreachStage   OutreachStage `json:"outreach_stage"`
	ReviewSnippets  string        `json:"review_snippets,omitempty"`
	DiscoveredDate  time.Time     `json:"discovered_date"`
	Source          Source        `json:"source"`
	SearchID        *int64        `json:"search_id,omitempty"`
	Notes           string        `json:"notes,omitempty"`
}

// Search records a single pipeline invocation. Immutable after creation;
// leads reference it for grouping.
type Search struct {
	ID        int64     `json:"id"`
	Query     string    `json:"query"`
	Location  string    `json:"location"`
	Engine    string    `json:"engine"`
	Timestamp time.Time `json:"timestamp"`
}

// Demo records a generated demo website for a lead. Never mutated.
type Demo struct {
	ID           int64     `json:"id"`
	BusinessID   int64     `json:"business_id"`
	TemplateUsed string    `json:"template_used"`
	DemoURL      string    `json:"demo_url,omitempty"`
	LocalPath    string    `json:"local_path,omitempty"`
	CreatedDate  time.Time `json:"created_date"`
}

// OutreachEvent records a contact attempt for a lead. Append-only except
// for the response fields, which UpdateOutreachResponse may set later.
type OutreachEvent struct {
	ID               int64         `json:"id"`
	BusinessID       int64         `json:"business_id"`
	ContactDate      time.Time     `json:"contact_date"`
	Method           ContactMethod `json:"method"`
	Status           string        `json:"status"`
	ResponseReceived bool          `json:"response_received"`
	Notes            string        `json:"notes,omitempty"`
}

// Stats aggregates store-wide counters.
type Stats struct {
	TotalBusinesses   int                   `json:"total_businesses"`
	ByStatus          map[WebsiteStatus]int `json:"by_status"`
	DemosCreated      int                   `json:"demos_created"`
	OutreachAttempts  int                   `json:"outreach_attempts"`
	ResponsesReceived int                   `json:"responses_received"`
}

// ResponseRate returns the percentage of outreach attempts that received a
// response, 0 when nothing has been attempted.
func (s Stats) ResponseRate() float64 {
	if s.OutreachAttempts == 0 {
		return 0
	}
	return float64(s.ResponsesReceived) / float64(s.OutreachAttempts) * 100
}
