package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/leadforge/leadforge-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS searches (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	query     TEXT NOT NULL,
	location  TEXT,
	engine    TEXT,
	timestamp DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS businesses (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	name             TEXT NOT NULL,
	category         TEXT,
	location         TEXT,
	address          TEXT,
	phone            TEXT,
	rating           REAL,
	review_count     INTEGER,
	website          TEXT,
	website_status   TEXT,
	google_maps_url  TEXT,
	lead_score       INTEGER,
	is_valid_lead    BOOLEAN,
	validation_notes TEXT,
	owner_name       TEXT,
	last_review_date TEXT,
	outreach_stage   TEXT DEFAULT 'lead',
	review_snippets  TEXT,
	discovered_date  DATETIME NOT NULL DEFAULT (datetime('now')),
	source           TEXT DEFAULT 'google_maps',
	notes            TEXT
);

CREATE TABLE IF NOT EXISTS demos (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	business_id   INTEGER NOT NULL REFERENCES businesses(id),
	template_used TEXT,
	demo_url      TEXT,
	local_path    TEXT,
	created_date  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS outreach (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	business_id       INTEGER NOT NULL REFERENCES businesses(id),
	contact_date      DATETIME NOT NULL DEFAULT (datetime('now')),
	method            TEXT,
	status            TEXT,
	response_received BOOLEAN DEFAULT 0,
	notes             TEXT
);

CREATE INDEX IF NOT EXISTS idx_businesses_status ON businesses(website_status);
CREATE INDEX IF NOT EXISTS idx_businesses_score ON businesses(lead_score);
CREATE INDEX IF NOT EXISTS idx_demos_business_id ON demos(business_id);
CREATE INDEX IF NOT EXISTS idx_outreach_business_id ON outreach(business_id);
`

// Migrate creates the schema. Safe to call repeatedly: table creation is
// IF NOT EXISTS, and the forward migration that adds search_id to an
// older businesses table tolerates the column already existing.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteMigration); err != nil {
		return eris.Wrap(err, "sqlite: migrate")
	}

	_, err := s.db.ExecContext(ctx,
		`ALTER TABLE businesses ADD COLUMN search_id INTEGER REFERENCES searches(id)`)
	if err != nil && !strings.Contains(err.Error(), "duplicate column") {
		return eris.Wrap(err, "sqlite: add search_id column")
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateSearch(ctx context.Context, query, location, engine string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO searches (query, location, engine, timestamp) VALUES (?, ?, ?, ?)`,
		query, location, engine, time.Now().UTC(),
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: insert search")
	}
	id, err := res.LastInsertId()
	return id, eris.Wrap(err, "sqlite: search id")
}

func (s *SQLiteStore) RecentSearches(ctx context.Context, limit int) ([]model.Search, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, query, location, engine, timestamp FROM searches ORDER BY timestamp DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: recent searches")
	}
	defer rows.Close()

	var searches []model.Search
	for rows.Next() {
		var sr model.Search
		var location, engine sql.NullString
		if err := rows.Scan(&sr.ID, &sr.Query, &location, &engine, &sr.Timestamp); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan search")
		}
		sr.Location = location.String
		sr.Engine = engine.String
		searches = append(searches, sr)
	}
	return searches, eris.Wrap(rows.Err(), "sqlite: recent searches iterate")
}

const leadColumns = `id, name, category, location, address, phone, rating, review_count,
	website, website_status, google_maps_url, lead_score, is_valid_lead,
	validation_notes, owner_name, last_review_date, outreach_stage,
	review_snippets, discovered_date, source, search_id, notes`

func (s *SQLiteStore) InsertLead(ctx context.Context, lead model.Lead) (int64, error) {
	if lead.OutreachStage == "" {
		lead.OutreachStage = model.StageLead
	}
	if lead.Source == "" {
		lead.Source = model.SourceGoogleMaps
	}
	discovered := lead.DiscoveredDate
	if discovered.IsZero() {
		discovered = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO businesses
		 (name, category, location, address, phone, rating, review_count,
		  website, website_status, google_maps_url, lead_score, is_valid_lead,
		  validation_notes, owner_name, last_review_date, outreach_stage,
		  review_snippets, discovered_date, source, search_id, notes)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		lead.Name, lead.Category, lead.Location, lead.Address, lead.Phone,
		lead.Rating, lead.ReviewCount, nullStr(lead.Website),
		string(lead.WebsiteStatus), lead.GoogleMapsURL, lead.LeadScore,
		lead.IsValidLead, lead.ValidationNotes, nullStr(lead.OwnerName),
		nullStr(lead.LastReviewDate), string(lead.OutreachStage),
		nullStr(lead.ReviewSnippets), discovered, string(lead.Source),
		nullID(lead.SearchID), lead.Notes,
	)
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: insert lead %s", lead.Name)
	}
	id, err := res.LastInsertId()
	return id, eris.Wrap(err, "sqlite: lead id")
}

func (s *SQLiteStore) GetLead(ctx context.Context, id int64) (*model.Lead, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+leadColumns+` FROM businesses WHERE id = ?`, id)
	lead, err := scanLead(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get lead %d", id)
	}
	return lead, nil
}

func (s *SQLiteStore) ListLeads(ctx context.Context, filter LeadFilter) ([]model.Lead, error) {
	builder := sq.Select(leadColumns).
		From("businesses").
		OrderBy("lead_score DESC", "discovered_date DESC")

	if filter.WebsiteStatus != "" {
		builder = builder.Where(sq.Eq{"website_status": string(filter.WebsiteStatus)})
	}
	if filter.SearchID != 0 {
		builder = builder.Where(sq.Eq{"search_id": filter.SearchID})
	}
	if filter.Limit > 0 {
		builder = builder.Limit(uint64(filter.Limit))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: build lead query")
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list leads")
	}
	defer rows.Close()

	var leads []model.Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan lead")
		}
		leads = append(leads, *lead)
	}
	return leads, eris.Wrap(rows.Err(), "sqlite: list leads iterate")
}

func (s *SQLiteStore) InsertDemo(ctx context.Context, demo model.Demo) (int64, error) {
	created := demo.CreatedDate
	if created.IsZero() {
		created = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO demos (business_id, template_used, demo_url, local_path, created_date)
		 VALUES (?, ?, ?, ?, ?)`,
		demo.BusinessID, demo.TemplateUsed, nullStr(demo.DemoURL), nullStr(demo.LocalPath), created,
	)
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: insert demo for business %d", demo.BusinessID)
	}
	id, err := res.LastInsertId()
	return id, eris.Wrap(err, "sqlite: demo id")
}

func (s *SQLiteStore) InsertOutreach(ctx context.Context, ev model.OutreachEvent) (int64, error) {
	contact := ev.ContactDate
	if contact.IsZero() {
		contact = time.Now().UTC()
	}
	if ev.Status == "" {
		ev.Status = "sent"
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO outreach (business_id, contact_date, method, status, response_received, notes)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		ev.BusinessID, contact, string(ev.Method), ev.Status, ev.ResponseReceived, ev.Notes,
	)
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: insert outreach for business %d", ev.BusinessID)
	}
	id, err := res.LastInsertId()
	return id, eris.Wrap(err, "sqlite: outreach id")
}

// UpdateOutreachResponse is the model's only mutation path: it marks an
// existing outreach event as answered.
func (s *SQLiteStore) UpdateOutreachResponse(ctx context.Context, id int64, status, notes string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE outreach SET status = ?, response_received = 1, notes = ? WHERE id = ?`,
		status, notes, id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update outreach %d", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Errorf("sqlite: outreach %d not found", id)
	}
	return nil
}

func (s *SQLiteStore) OutreachHistory(ctx context.Context, businessID int64) ([]model.OutreachEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, business_id, contact_date, method, status, response_received, notes
		 FROM outreach WHERE business_id = ? ORDER BY contact_date DESC`,
		businessID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: outreach history")
	}
	defer rows.Close()

	var events []model.OutreachEvent
	for rows.Next() {
		var ev model.OutreachEvent
		var method, status, notes sql.NullString
		if err := rows.Scan(&ev.ID, &ev.BusinessID, &ev.ContactDate, &method, &status, &ev.ResponseReceived, &notes); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan outreach")
		}
		ev.Method = model.ContactMethod(method.String)
		ev.Status = status.String
		ev.Notes = notes.String
		events = append(events, ev)
	}
	return events, eris.Wrap(rows.Err(), "sqlite: outreach iterate")
}

func (s *SQLiteStore) Stats(ctx context.Context) (*model.Stats, error) {
	stats := &model.Stats{ByStatus: map[model.WebsiteStatus]int{}}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM businesses`).
		Scan(&stats.TotalBusinesses); err != nil {
		return nil, eris.Wrap(err, "sqlite: count businesses")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT website_status, COUNT(*) FROM businesses GROUP BY website_status`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: count by status")
	}
	defer rows.Close()
	for rows.Next() {
		var status sql.NullString
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan status count")
		}
		stats.ByStatus[model.WebsiteStatus(status.String)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: status counts iterate")
	}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM demos`).
		Scan(&stats.DemosCreated); err != nil {
		return nil, eris.Wrap(err, "sqlite: count demos")
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM outreach`).
		Scan(&stats.OutreachAttempts); err != nil {
		return nil, eris.Wrap(err, "sqlite: count outreach")
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM outreach WHERE response_received = 1`).
		Scan(&stats.ResponsesReceived); err != nil {
		return nil, eris.Wrap(err, "sqlite: count responses")
	}

	return stats, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanLead(row scanner) (*model.Lead, error) {
	var lead model.Lead
	var website, status, ownerName, lastReview, reviewSnippets, notes sql.NullString
	var category, location, address, phone, mapsURL, validationNotes sql.NullString
	var stage, source sql.NullString
	var searchID sql.NullInt64

	err := row.Scan(
		&lead.ID, &lead.Name, &category, &location, &address, &phone,
		&lead.Rating, &lead.ReviewCount, &website, &status, &mapsURL,
		&lead.LeadScore, &lead.IsValidLead, &validationNotes, &ownerName,
		&lastReview, &stage, &reviewSnippets, &lead.DiscoveredDate,
		&source, &searchID, &notes,
	)
	if err != nil {
		return nil, err
	}

	lead.Category = category.String
	lead.Location = location.String
	lead.Address = address.String
	lead.Phone = phone.String
	lead.Website = website.String
	lead.WebsiteStatus = model.WebsiteStatus(status.String)
	lead.GoogleMapsURL = mapsURL.String
	lead.ValidationNotes = validationNotes.String
	lead.OwnerName = ownerName.String
	lead.LastReviewDate = lastReview.String
	lead.OutreachStage = model.OutreachStage(stage.String)
	lead.ReviewSnippets = reviewSnippets.String
	lead.Source = model.Source(source.String)
	lead.Notes = notes.String
	if searchID.Valid {
		lead.SearchID = &searchID.Int64
	}
	return &lead, nil
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullID(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}
