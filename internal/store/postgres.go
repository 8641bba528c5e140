package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/leadforge/leadforge-cli/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock satisfies it
// for unit tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool. It backs the remote managed
// deployment; connection credentials and tokens travel in the URL.
type PostgresStore struct {
	pool Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS searches (
	id        BIGSERIAL PRIMARY KEY,
	query     TEXT NOT NULL,
	location  TEXT,
	engine    TEXT,
	timestamp TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS businesses (
	id               BIGSERIAL PRIMARY KEY,
	name             TEXT NOT NULL,
	category         TEXT,
	location         TEXT,
	address          TEXT,
	phone            TEXT,
	rating           DOUBLE PRECISION,
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
	discovered_date  TIMESTAMPTZ NOT NULL DEFAULT now(),
	source           TEXT DEFAULT 'google_maps',
	notes            TEXT
);

CREATE TABLE IF NOT EXISTS demos (
	id            BIGSERIAL PRIMARY KEY,
	business_id   BIGINT NOT NULL REFERENCES businesses(id),
	template_used TEXT,
	demo_url      TEXT,
	local_path    TEXT,
	created_date  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS outreach (
	id                BIGSERIAL PRIMARY KEY,
	business_id       BIGINT NOT NULL REFERENCES businesses(id),
	contact_date      TIMESTAMPTZ NOT NULL DEFAULT now(),
	method            TEXT,
	status            TEXT,
	response_received BOOLEAN DEFAULT false,
	notes             TEXT
);

ALTER TABLE businesses ADD COLUMN IF NOT EXISTS search_id BIGINT REFERENCES searches(id);

CREATE INDEX IF NOT EXISTS idx_businesses_status ON businesses(website_status);
CREATE INDEX IF NOT EXISTS idx_businesses_score ON businesses(lead_score);
CREATE INDEX IF NOT EXISTS idx_demos_business_id ON demos(business_id);
CREATE INDEX IF NOT EXISTS idx_outreach_business_id ON outreach(business_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) CreateSearch(ctx context.Context, query, location, engine string) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO searches (query, location, engine) VALUES ($1, $2, $3) RETURNING id`,
		query, location, engine,
	).Scan(&id)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: insert search")
	}
	return id, nil
}

func (s *PostgresStore) RecentSearches(ctx context.Context, limit int) ([]model.Search, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, query, location, engine, timestamp FROM searches ORDER BY timestamp DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: recent searches")
	}
	defer rows.Close()

	var searches []model.Search
	for rows.Next() {
		var sr model.Search
		var location, engine sql.NullString
		if err := rows.Scan(&sr.ID, &sr.Query, &location, &engine, &sr.Timestamp); err != nil {
			return nil, eris.Wrap(err, "postgres: scan search")
		}
		sr.Location = location.String
		sr.Engine = engine.String
		searches = append(searches, sr)
	}
	return searches, eris.Wrap(rows.Err(), "postgres: recent searches iterate")
}

func (s *PostgresStore) InsertLead(ctx context.Context, lead model.Lead) (int64, error) {
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

	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO businesses
		 (name, category, location, address, phone, rating, review_count,
		  website, website_status, google_maps_url, lead_score, is_valid_lead,
		  validation_notes, owner_name, last_review_date, outreach_stage,
		  review_snippets, discovered_date, source, search_id, notes)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
		         $15, $16, $17, $18, $19, $20, $21)
		 RETURNING id`,
		lead.Name, lead.Category, lead.Location, lead.Address, lead.Phone,
		lead.Rating, lead.ReviewCount, nullStr(lead.Website),
		string(lead.WebsiteStatus), lead.GoogleMapsURL, lead.LeadScore,
		lead.IsValidLead, lead.ValidationNotes, nullStr(lead.OwnerName),
		nullStr(lead.LastReviewDate), string(lead.OutreachStage),
		nullStr(lead.ReviewSnippets), discovered, string(lead.Source),
		nullID(lead.SearchID), lead.Notes,
	).Scan(&id)
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: insert lead %s", lead.Name)
	}
	return id, nil
}

func (s *PostgresStore) GetLead(ctx context.Context, id int64) (*model.Lead, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+leadColumns+` FROM businesses WHERE id = $1`, id)
	lead, err := scanLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get lead %d", id)
	}
	return lead, nil
}

func (s *PostgresStore) ListLeads(ctx context.Context, filter LeadFilter) ([]model.Lead, error) {
	builder := sq.Select(leadColumns).
		From("businesses").
		OrderBy("lead_score DESC", "discovered_date DESC").
		PlaceholderFormat(sq.Dollar)

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
		return nil, eris.Wrap(err, "postgres: build lead query")
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list leads")
	}
	defer rows.Close()

	var leads []model.Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan lead")
		}
		leads = append(leads, *lead)
	}
	return leads, eris.Wrap(rows.Err(), "postgres: list leads iterate")
}

func (s *PostgresStore) InsertDemo(ctx context.Context, demo model.Demo) (int64, error) {
	created := demo.CreatedDate
	if created.IsZero() {
		created = time.Now().UTC()
	}
	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO demos (business_id, template_used, demo_url, local_path, created_date)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		demo.BusinessID, demo.TemplateUsed, nullStr(demo.DemoURL), nullStr(demo.LocalPath), created,
	).Scan(&id)
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: insert demo for business %d", demo.BusinessID)
	}
	return id, nil
}

func (s *PostgresStore) InsertOutreach(ctx context.Context, ev model.OutreachEvent) (int64, error) {
	contact := ev.ContactDate
	if contact.IsZero() {
		contact = time.Now().UTC()
	}
	if ev.Status == "" {
		ev.Status = "sent"
	}
	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO outreach (business_id, contact_date, method, status, response_received, notes)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		ev.BusinessID, contact, string(ev.Method), ev.Status, ev.ResponseReceived, ev.Notes,
	).Scan(&id)
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: insert outreach for business %d", ev.BusinessID)
	}
	return id, nil
}

func (s *PostgresStore) UpdateOutreachResponse(ctx context.Context, id int64, status, notes string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE outreach SET status = $1, response_received = true, notes = $2 WHERE id = $3`,
		status, notes, id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update outreach %d", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: outreach %d not found", id)
	}
	return nil
}

func (s *PostgresStore) OutreachHistory(ctx context.Context, businessID int64) ([]model.OutreachEvent, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, business_id, contact_date, method, status, response_received, notes
		 FROM outreach WHERE business_id = $1 ORDER BY contact_date DESC`,
		businessID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: outreach history")
	}
	defer rows.Close()

	var events []model.OutreachEvent
	for rows.Next() {
		var ev model.OutreachEvent
		var method, status, notes sql.NullString
		if err := rows.Scan(&ev.ID, &ev.BusinessID, &ev.ContactDate, &method, &status, &ev.ResponseReceived, &notes); err != nil {
			return nil, eris.Wrap(err, "postgres: scan outreach")
		}
		ev.Method = model.ContactMethod(method.String)
		ev.Status = status.String
		ev.Notes = notes.String
		events = append(events, ev)
	}
	return events, eris.Wrap(rows.Err(), "postgres: outreach iterate")
}

func (s *PostgresStore) Stats(ctx context.Context) (*model.Stats, error) {
	stats := &model.Stats{ByStatus: map[model.WebsiteStatus]int{}}

	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM businesses`).
		Scan(&stats.TotalBusinesses); err != nil {
		return nil, eris.Wrap(err, "postgres: count businesses")
	}

	rows, err := s.pool.Query(ctx,
		`SELECT website_status, COUNT(*) FROM businesses GROUP BY website_status`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: count by status")
	}
	defer rows.Close()
	for rows.Next() {
		var status sql.NullString
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, eris.Wrap(err, "postgres: scan status count")
		}
		stats.ByStatus[model.WebsiteStatus(status.String)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: status counts iterate")
	}

	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM demos`).
		Scan(&stats.DemosCreated); err != nil {
		return nil, eris.Wrap(err, "postgres: count demos")
	}
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM outreach`).
		Scan(&stats.OutreachAttempts); err != nil {
		return nil, eris.Wrap(err, "postgres: count outreach")
	}
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM outreach WHERE response_received`).
		Scan(&stats.ResponsesReceived); err != nil {
		return nil, eris.Wrap(err, "postgres: count responses")
	}

	return stats, nil
}
