package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/attestix/compliance-cli/internal/db"
	"github.com/attestix/compliance-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the hottest pipeline operations.
var preparedStatements = map[string]string{
	"get_document":       `SELECT id, org_id, filename, mime_type, storage_key, extraction_status, created_at FROM documents WHERE id = $1`,
	"get_scan":           `SELECT id, org_id, control_id, status, model, prompt_version, created_at, updated_at FROM scans WHERE id = $1`,
	"start_scan_run":     `UPDATE scans SET status = $1, model = $2, prompt_version = $3, updated_at = $4 WHERE id = $5`,
	"update_scan_status": `UPDATE scans SET status = $1, updated_at = $2 WHERE id = $3`,
	"list_pages":         `SELECT id, document_id, page_num, text, created_at FROM document_pages WHERE document_id = $1 ORDER BY page_num, created_at`,
	"list_requirements":  `SELECT id, control_id, code, text FROM requirements WHERE control_id = $1 ORDER BY code`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, maxConns, minConns int32) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	if maxConns <= 0 {
		maxConns = 10
	}
	if minConns <= 0 {
		minConns = 2
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS documents (
	id                TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	org_id            TEXT NOT NULL,
	filename          TEXT NOT NULL,
	mime_type         TEXT NOT NULL,
	storage_key       TEXT NOT NULL,
	extraction_status TEXT NOT NULL DEFAULT 'pending',
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS document_pages (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	document_id TEXT NOT NULL REFERENCES documents(id),
	page_num    INTEGER NOT NULL,
	text        TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS controls (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	code        TEXT NOT NULL,
	name        TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS requirements (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	control_id TEXT NOT NULL REFERENCES controls(id),
	code       TEXT NOT NULL,
	text       TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS evidence_links (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	org_id      TEXT NOT NULL,
	document_id TEXT NOT NULL REFERENCES documents(id),
	control_id  TEXT NOT NULL REFERENCES controls(id),
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS scans (
	id             TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	org_id         TEXT NOT NULL,
	control_id     TEXT NOT NULL REFERENCES controls(id),
	status         TEXT NOT NULL DEFAULT 'queued',
	model          TEXT NOT NULL DEFAULT '',
	prompt_version TEXT NOT NULL DEFAULT '',
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS scan_results (
	id             TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	scan_id        TEXT NOT NULL REFERENCES scans(id),
	requirement_id TEXT NOT NULL REFERENCES requirements(id),
	outcome        TEXT NOT NULL,
	confidence     TEXT NOT NULL DEFAULT '',
	rationale_json TEXT NOT NULL DEFAULT '""',
	citations_json TEXT NOT NULL DEFAULT '[]',
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS gaps (
	id                       TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	scan_id                  TEXT NOT NULL REFERENCES scans(id),
	requirement_id           TEXT NOT NULL REFERENCES requirements(id),
	gap_summary              TEXT NOT NULL,
	recommended_actions_json TEXT NOT NULL DEFAULT '[]',
	created_at               TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_document_pages_document_id ON document_pages(document_id, page_num);
CREATE INDEX IF NOT EXISTS idx_requirements_control_id ON requirements(control_id);
CREATE INDEX IF NOT EXISTS idx_evidence_links_org_control ON evidence_links(org_id, control_id);
CREATE INDEX IF NOT EXISTS idx_scans_status ON scans(status);
CREATE INDEX IF NOT EXISTS idx_scans_created_at ON scans(created_at);
CREATE INDEX IF NOT EXISTS idx_scan_results_scan_id ON scan_results(scan_id);
CREATE INDEX IF NOT EXISTS idx_gaps_scan_id ON gaps(scan_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateDocument(ctx context.Context, doc *model.Document) error {
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	if doc.ExtractionStatus == "" {
		doc.ExtractionStatus = model.ExtractionStatusPending
	}
	doc.CreatedAt = time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO documents (id, org_id, filename, mime_type, storage_key, extraction_status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		doc.ID, doc.OrgID, doc.Filename, doc.MimeType, doc.StorageKey, string(doc.ExtractionStatus), doc.CreatedAt,
	)
	return eris.Wrap(err, "postgres: insert document")
}

func (s *PostgresStore) GetDocument(ctx context.Context, id string) (*model.Document, error) {
	var d model.Document
	err := s.pool.QueryRow(ctx,
		`SELECT id, org_id, filename, mime_type, storage_key, extraction_status, created_at FROM documents WHERE id = $1`,
		id,
	).Scan(&d.ID, &d.OrgID, &d.Filename, &d.MimeType, &d.StorageKey, &d.ExtractionStatus, &d.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "postgres: document %s", id)
		}
		return nil, eris.Wrapf(err, "postgres: get document %s", id)
	}
	return &d, nil
}

func (s *PostgresStore) SetDocumentExtractionStatus(ctx context.Context, id string, status model.ExtractionStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE documents SET extraction_status = $1 WHERE id = $2`,
		string(status), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: set extraction status %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "postgres: document %s", id)
	}
	return nil
}

func (s *PostgresStore) SavePages(ctx context.Context, documentID string, pages []model.DocumentPage) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin save pages")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	now := time.Now().UTC()
	rows := make([][]any, 0, len(pages))
	for _, p := range pages {
		id := p.ID
		if id == "" {
			id = uuid.New().String()
		}
		rows = append(rows, []any{id, documentID, p.PageNum, p.Text, now})
	}

	if _, err := db.CopyFrom(ctx, tx, "document_pages",
		[]string{"id", "document_id", "page_num", "text", "created_at"}, rows); err != nil {
		return eris.Wrapf(err, "postgres: copy pages for document %s", documentID)
	}

	tag, err := tx.Exec(ctx,
		`UPDATE documents SET extraction_status = $1 WHERE id = $2`,
		string(model.ExtractionStatusExtracted), documentID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: mark document extracted %s", documentID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "postgres: document %s", documentID)
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit save pages")
}

func (s *PostgresStore) ListDocumentPages(ctx context.Context, documentID string) ([]model.DocumentPage, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, document_id, page_num, text, created_at FROM document_pages WHERE document_id = $1 ORDER BY page_num, created_at`,
		documentID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list pages for document %s", documentID)
	}
	defer rows.Close()

	var pages []model.DocumentPage
	for rows.Next() {
		var p model.DocumentPage
		if err := rows.Scan(&p.ID, &p.DocumentID, &p.PageNum, &p.Text, &p.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan page")
		}
		pages = append(pages, p)
	}
	return pages, eris.Wrap(rows.Err(), "postgres: iterate pages")
}

func (s *PostgresStore) GetControl(ctx context.Context, id string) (*model.Control, error) {
	var c model.Control
	err := s.pool.QueryRow(ctx,
		`SELECT id, code, name, description FROM controls WHERE id = $1`,
		id,
	).Scan(&c.ID, &c.Code, &c.Name, &c.Description)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "postgres: control %s", id)
		}
		return nil, eris.Wrapf(err, "postgres: get control %s", id)
	}
	return &c, nil
}

func (s *PostgresStore) ListRequirements(ctx context.Context, controlID string) ([]model.Requirement, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, control_id, code, text FROM requirements WHERE control_id = $1 ORDER BY code`,
		controlID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list requirements for control %s", controlID)
	}
	defer rows.Close()

	var reqs []model.Requirement
	for rows.Next() {
		var r model.Requirement
		if err := rows.Scan(&r.ID, &r.ControlID, &r.Code, &r.Text); err != nil {
			return nil, eris.Wrap(err, "postgres: scan requirement")
		}
		reqs = append(reqs, r)
	}
	return reqs, eris.Wrap(rows.Err(), "postgres: iterate requirements")
}

func (s *PostgresStore) ListEvidenceLinks(ctx context.Context, orgID, controlID string) ([]model.EvidenceLink, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT el.id, el.org_id, el.document_id, el.control_id, el.created_at, d.filename
		 FROM evidence_links el
		 JOIN documents d ON d.id = el.document_id
		 WHERE el.org_id = $1 AND el.control_id = $2
		 ORDER BY el.created_at`,
		orgID, controlID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list evidence links")
	}
	defer rows.Close()

	var links []model.EvidenceLink
	for rows.Next() {
		var l model.EvidenceLink
		if err := rows.Scan(&l.ID, &l.OrgID, &l.DocumentID, &l.ControlID, &l.CreatedAt, &l.DocumentName); err != nil {
			return nil, eris.Wrap(err, "postgres: scan evidence link")
		}
		links = append(links, l)
	}
	return links, eris.Wrap(rows.Err(), "postgres: iterate evidence links")
}

func (s *PostgresStore) CreateScan(ctx context.Context, scan *model.Scan) error {
	if scan.ID == "" {
		scan.ID = uuid.New().String()
	}
	if scan.Status == "" {
		scan.Status = model.ScanStatusQueued
	}
	now := time.Now().UTC()
	scan.CreatedAt = now
	scan.UpdatedAt = now

	_, err := s.pool.Exec(ctx,
		`INSERT INTO scans (id, org_id, control_id, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		scan.ID, scan.OrgID, scan.ControlID, string(scan.Status), scan.CreatedAt, scan.UpdatedAt,
	)
	return eris.Wrap(err, "postgres: insert scan")
}

func (s *PostgresStore) GetScan(ctx context.Context, id string) (*model.Scan, error) {
	var sc model.Scan
	err := s.pool.QueryRow(ctx,
		`SELECT id, org_id, control_id, status, model, prompt_version, created_at, updated_at FROM scans WHERE id = $1`,
		id,
	).Scan(&sc.ID, &sc.OrgID, &sc.ControlID, &sc.Status, &sc.Model, &sc.PromptVersion, &sc.CreatedAt, &sc.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "postgres: scan %s", id)
		}
		return nil, eris.Wrapf(err, "postgres: get scan %s", id)
	}
	return &sc, nil
}

func (s *PostgresStore) StartScanRun(ctx context.Context, id, modelID, promptVersion string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE scans SET status = $1, model = $2, prompt_version = $3, updated_at = $4 WHERE id = $5`,
		string(model.ScanStatusProcessing), modelID, promptVersion, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: start scan run %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "postgres: scan %s", id)
	}
	return nil
}

func (s *PostgresStore) UpdateScanStatus(ctx context.Context, id string, status model.ScanStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE scans SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update scan status %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "postgres: scan %s", id)
	}
	return nil
}

func (s *PostgresStore) SaveScanOutput(ctx context.Context, scanID string, results []model.ScanResult, gaps []model.Gap) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin save scan output")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	now := time.Now().UTC()
	for _, r := range results {
		id := r.ID
		if id == "" {
			id = uuid.New().String()
		}
		_, err := tx.Exec(ctx,
			`INSERT INTO scan_results (id, scan_id, requirement_id, outcome, confidence, rationale_json, citations_json, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			id, scanID, r.RequirementID, r.Outcome, r.Confidence, r.RationaleJSON, r.CitationsJSON, now,
		)
		if err != nil {
			return eris.Wrapf(err, "postgres: insert result for requirement %s", r.RequirementID)
		}
	}

	for _, g := range gaps {
		id := g.ID
		if id == "" {
			id = uuid.New().String()
		}
		_, err := tx.Exec(ctx,
			`INSERT INTO gaps (id, scan_id, requirement_id, gap_summary, recommended_actions_json, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			id, scanID, g.RequirementID, g.Summary, g.RecommendedActionsJSON, now,
		)
		if err != nil {
			return eris.Wrapf(err, "postgres: insert gap for requirement %s", g.RequirementID)
		}
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit scan output")
}

func (s *PostgresStore) ListScanResults(ctx context.Context, scanID string) ([]model.ScanResult, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, scan_id, requirement_id, outcome, confidence, rationale_json, citations_json, created_at
		 FROM scan_results WHERE scan_id = $1 ORDER BY created_at, requirement_id`,
		scanID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list results for scan %s", scanID)
	}
	defer rows.Close()

	var results []model.ScanResult
	for rows.Next() {
		var r model.ScanResult
		if err := rows.Scan(&r.ID, &r.ScanID, &r.RequirementID, &r.Outcome, &r.Confidence, &r.RationaleJSON, &r.CitationsJSON, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan result row")
		}
		results = append(results, r)
	}
	return results, eris.Wrap(rows.Err(), "postgres: iterate results")
}

func (s *PostgresStore) ListGaps(ctx context.Context, scanID string) ([]model.Gap, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, scan_id, requirement_id, gap_summary, recommended_actions_json, created_at
		 FROM gaps WHERE scan_id = $1 ORDER BY created_at, requirement_id`,
		scanID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list gaps for scan %s", scanID)
	}
	defer rows.Close()

	var gaps []model.Gap
	for rows.Next() {
		var g model.Gap
		if err := rows.Scan(&g.ID, &g.ScanID, &g.RequirementID, &g.Summary, &g.RecommendedActionsJSON, &g.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan gap row")
		}
		gaps = append(gaps, g)
	}
	return gaps, eris.Wrap(rows.Err(), "postgres: iterate gaps")
}

func (s *PostgresStore) DeleteScansBefore(ctx context.Context, cutoff time.Time) (int, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: begin cleanup")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const terminalScans = `SELECT id FROM scans WHERE created_at < $1 AND status IN ('completed', 'failed')`

	if _, err := tx.Exec(ctx,
		`DELETE FROM scan_results WHERE scan_id IN (`+terminalScans+`)`, cutoff,
	); err != nil {
		return 0, eris.Wrap(err, "postgres: cleanup scan results")
	}
	if _, err := tx.Exec(ctx,
		`DELETE FROM gaps WHERE scan_id IN (`+terminalScans+`)`, cutoff,
	); err != nil {
		return 0, eris.Wrap(err, "postgres: cleanup gaps")
	}

	tag, err := tx.Exec(ctx,
		`DELETE FROM scans WHERE created_at < $1 AND status IN ('completed', 'failed')`, cutoff,
	)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: cleanup scans")
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "postgres: commit cleanup")
	}
	return int(tag.RowsAffected()), nil
}
