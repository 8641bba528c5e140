// Package outreach tracks contact attempts against stored leads and drafts
// the messages to send them.
package outreach

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/leadforge/leadforge-cli/internal/model"
	"github.com/leadforge/leadforge-cli/internal/store"
)

// Tracker provides outreach operations on top of the store.
type Tracker struct {
	store store.Store
}

// New creates a Tracker.
func New(st store.Store) *Tracker {
	return &Tracker{store: st}
}

// validMethods guards against typoed contact methods from the CLI.
var validMethods = map[model.ContactMethod]bool{
	model.MethodEmail:    true,
	model.MethodPhone:    true,
	model.MethodWhatsApp: true,
	model.MethodInPerson: true,
}

// LogContact records a new contact attempt for a lead. The lead must exist.
func (t *Tracker) LogContact(ctx context.Context, businessID int64, method model.ContactMethod, notes string) (int64, error) {
	if !validMethods[method] {
		return 0, eris.Errorf("outreach: unknown contact method %q", method)
	}
	lead, err := t.store.GetLead(ctx, businessID)
	if err != nil {
		return 0, eris.Wrapf(err, "outreach: look up lead %d", businessID)
	}
	if lead == nil {
		return 0, eris.Errorf("outreach: lead %d not found", businessID)
	}

	id, err := t.store.InsertOutreach(ctx, model.OutreachEvent{
		BusinessID: businessID,
		Method:     method,
		Notes:      notes,
	})
	if err != nil {
		return 0, eris.Wrapf(err, "outreach: log contact for lead %d", businessID)
	}
	return id, nil
}

// UpdateResponse marks an outreach attempt as answered with the given status.
func (t *Tracker) UpdateResponse(ctx context.Context, outreachID int64, status, notes string) error {
	return t.store.UpdateOutreachResponse(ctx, outreachID, status, notes)
}

// History returns a lead's outreach events, newest first.
func (t *Tracker) History(ctx context.Context, businessID int64) ([]model.OutreachEvent, error) {
	return t.store.OutreachHistory(ctx, businessID)
}

// Followup pairs a lead with its most recent unanswered contact attempt.
// NeverContacted marks leads with no outreach on record at all; for those
// LastContact is zero and DaysSince counts from discovery.
type Followup struct {
	Lead           model.Lead
	LastContact    model.OutreachEvent
	DaysSince      int
	NeverContacted bool
}

// PendingFollowups returns leads that still need attention: never contacted,
// or whose latest outreach got no response and is at least daysSince days old.
func (t *Tracker) PendingFollowups(ctx context.Context, daysSince int) ([]Followup, error) {
	leads, err := t.store.ListLeads(ctx, store.LeadFilter{})
	if err != nil {
		return nil, eris.Wrap(err, "outreach: list leads")
	}

	var due []Followup
	now := time.Now().UTC()
	for _, lead := range leads {
		history, err := t.store.OutreachHistory(ctx, lead.ID)
		if err != nil {
			return nil, eris.Wrapf(err, "outreach: history for lead %d", lead.ID)
		}
		if len(history) == 0 {
			age := int(now.Sub(lead.DiscoveredDate).Hours() / 24)
			due = append(due, Followup{Lead: lead, DaysSince: age, NeverContacted: true})
			continue
		}
		last := history[0]
		if last.ResponseReceived {
			continue
		}
		age := int(now.Sub(last.ContactDate).Hours() / 24)
		if age >= daysSince {
			due = append(due, Followup{Lead: lead, LastContact: last, DaysSince: age})
		}
	}
	return due, nil
}

// Stats returns store-wide outreach counters.
func (t *Tracker) Stats(ctx context.Context) (*model.Stats, error) {
	return t.store.Stats(ctx)
}

// MessageKind selects a drafted message template.
type MessageKind string

const (
	MessageInitial  MessageKind = "initial"
	MessageFollowup MessageKind = "followup"
	MessageDemo     MessageKind = "demo"
)

// Message drafts an outreach message for a lead. demoURL is only used by the
// demo message and may be empty otherwise.
func (t *Tracker) Message(lead model.Lead, kind MessageKind, demoURL string) (string, error) {
	switch kind {
	case MessageInitial:
		return fmt.Sprintf(
			"Hi! I came across %s while looking at %s businesses in %s. "+
				"You have a great reputation (%.1f stars from %d reviews), but I noticed "+
				"you don't have a website, which means many potential customers can't find you online. "+
				"I build affordable websites for local businesses. Would you be open to a quick chat?",
			lead.Name, lead.Category, lead.Location, lead.Rating, lead.ReviewCount), nil
	case MessageFollowup:
		return fmt.Sprintf(
			"Hi again! Just following up on my earlier message about a website for %s. "+
				"I'd still love to show you what's possible. No obligation at all, just a quick look.",
			lead.Name), nil
	case MessageDemo:
		if demoURL == "" {
			return "", eris.New("outreach: demo message needs a demo URL")
		}
		return fmt.Sprintf(
			"Hi! I went ahead and built a free demo website for %s so you can see "+
				"exactly what you'd be getting: %s. If you like it, it can be live under "+
				"your own domain within days.",
			lead.Name, demoURL), nil
	default:
		return "", eris.Errorf("outreach: unknown message kind %q", kind)
	}
}

var csvHeader = []string{
	"id", "name", "category", "location", "phone", "rating", "reviews",
	"website_status", "lead_score", "outreach_stage", "source", "discovered",
}

// ExportCSV writes all stored leads as CSV.
func (t *Tracker) ExportCSV(ctx context.Context, w io.Writer) error {
	leads, err := t.store.ListLeads(ctx, store.LeadFilter{})
	if err != nil {
		return eris.Wrap(err, "outreach: list leads for export")
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return eris.Wrap(err, "outreach: write csv header")
	}
	for _, lead := range leads {
		row := leadRow(lead)
		if err := cw.Write(row); err != nil {
			return eris.Wrapf(err, "outreach: write csv row for %s", lead.Name)
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "outreach: flush csv")
}

// ExportXLSX writes all stored leads as a spreadsheet at path.
func (t *Tracker) ExportXLSX(ctx context.Context, path string) error {
	leads, err := t.store.ListLeads(ctx, store.LeadFilter{})
	if err != nil {
		return eris.Wrap(err, "outreach: list leads for export")
	}

	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Leads")
	if err != nil {
		return eris.Wrap(err, "outreach: add sheet")
	}

	header := sheet.AddRow()
	for _, col := range csvHeader {
		header.AddCell().SetString(col)
	}
	for _, lead := range leads {
		row := sheet.AddRow()
		for _, val := range leadRow(lead) {
			row.AddCell().SetString(val)
		}
	}

	if err := file.Save(path); err != nil {
		return eris.Wrapf(err, "outreach: save %s", path)
	}
	return nil
}

func leadRow(lead model.Lead) []string {
	return []string{
		strconv.FormatInt(lead.ID, 10),
		lead.Name,
		lead.Category,
		lead.Location,
		lead.Phone,
		strconv.FormatFloat(lead.Rating, 'f', 1, 64),
		strconv.Itoa(lead.ReviewCount),
		string(lead.WebsiteStatus),
		strconv.Itoa(lead.LeadScore),
		string(lead.OutreachStage),
		string(lead.Source),
		lead.DiscoveredDate.UTC().Format("2006-01-02"),
	}
}
