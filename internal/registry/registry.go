package registry

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/raysh454/mdinject/internal/document"
	"github.com/raysh454/mdinject/internal/logging"
)

//go:embed schema.sql
var schemaFS embed.FS

var (
	ErrPageNotFound = errors.New("page not found")
	ErrPageExists   = errors.New("page already exists")
	ErrInvalidHTML  = errors.New("invalid page html")
)

// Registry stores host pages and the log of injections into them.
// Fetched Markdown is never stored.
type Registry struct {
	db     *sql.DB
	logger logging.Logger
}

// Open opens (creating if needed) the SQLite database at path and sets the
// pragmas the registry relies on.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open registry database: %w", err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma %q: %w", pragma, err)
		}
	}
	return db, nil
}

// NewRegistry returns a Registry and runs migrations from schema.sql.
func NewRegistry(db *sql.DB, logger logging.Logger) (*Registry, error) {
	if db == nil {
		return nil, fmt.Errorf("db is nil")
	}
	if logger == nil {
		logger = logging.NopLogger{}
	}

	schemaSQL, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return nil, fmt.Errorf("failed to read schema.sql: %w", err)
	}
	if _, err := db.Exec(string(schemaSQL)); err != nil {
		return nil, fmt.Errorf("failed to execute schema: %w", err)
	}

	return &Registry{db: db, logger: logger.With(logging.Field{Key: "component", Value: "registry"})}, nil
}

// normalizeSlug makes a slug safe and simple.
func normalizeSlug(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	s = strings.ReplaceAll(s, " ", "-")
	var b strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') ||
			(r >= '0' && r <= '9') ||
			r == '-' || r == '_' || r == '.' {
			b.WriteRune(r)
		}
	}
	out := b.String()
	if out == "" {
		out = uuid.New().String()[:8]
	}
	return out
}

// CreatePage stores a new host page. The html must parse as a document.
func (r *Registry) CreatePage(ctx context.Context, slug, name, baseURL, html string) (*Page, error) {
	if name == "" && slug != "" {
		name = slug
	}
	if slug == "" {
		slug = normalizeSlug(name)
	} else {
		slug = normalizeSlug(slug)
	}
	if name == "" {
		name = slug
	}
	if _, err := document.ParseString(html); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidHTML, err)
	}

	if _, err := r.GetPage(ctx, slug); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrPageExists, slug)
	} else if !errors.Is(err, ErrPageNotFound) {
		return nil, err
	}

	p := &Page{
		ID:        uuid.New().String(),
		Slug:      slug,
		Name:      name,
		BaseURL:   strings.TrimSpace(baseURL),
		HTML:      html,
		CreatedAt: time.Now().Unix(),
	}
	p.UpdatedAt = p.CreatedAt

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO pages (id, slug, name, base_url, html, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Slug, p.Name, p.BaseURL, p.HTML, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert page: %w", err)
	}
	r.logger.Debug("created page", logging.Field{Key: "slug", Value: p.Slug})
	return p, nil
}

const pageColumns = `id, slug, name, base_url, html, created_at, updated_at`

func scanPage(row interface{ Scan(...any) error }) (*Page, error) {
	var p Page
	if err := row.Scan(&p.ID, &p.Slug, &p.Name, &p.BaseURL, &p.HTML, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetPage resolves a page by slug, falling back to id.
func (r *Registry) GetPage(ctx context.Context, identifier string) (*Page, error) {
	p, err := scanPage(r.db.QueryRowContext(ctx,
		`SELECT `+pageColumns+` FROM pages WHERE slug = ? LIMIT 1`, normalizeSlug(identifier)))
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	p, err = scanPage(r.db.QueryRowContext(ctx,
		`SELECT `+pageColumns+` FROM pages WHERE id = ? LIMIT 1`, identifier))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPageNotFound
		}
		return nil, err
	}
	return p, nil
}

// ListPages returns all pages, newest first, without their html.
func (r *Registry) ListPages(ctx context.Context) ([]Page, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+pageColumns+` FROM pages ORDER BY created_at DESC, slug`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Page
	for rows.Next() {
		p, err := scanPage(rows)
		if err != nil {
			return nil, err
		}
		p.HTML = ""
		out = append(out, *p)
	}
	return out, rows.Err()
}

// UpdatePageHTML replaces the stored html of a page.
func (r *Registry) UpdatePageHTML(ctx context.Context, pageID, html string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE pages SET html = ?, updated_at = ? WHERE id = ?`,
		html, time.Now().Unix(), pageID,
	)
	if err != nil {
		return fmt.Errorf("update page: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrPageNotFound
	}
	return nil
}

// RecordInjection appends an injection to the log, assigning an id if empty.
func (r *Registry) RecordInjection(ctx context.Context, inj *Injection) error {
	if inj == nil {
		return fmt.Errorf("injection is nil")
	}
	if inj.ID == "" {
		inj.ID = uuid.New().String()
	}
	if inj.ChangesJSON == "" {
		inj.ChangesJSON = "{}"
	}
	changed := 0
	if inj.Changed {
		changed = 1
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO injections
             (id, page_id, element_id, source_url, status, error, status_code, bytes, changed, changes_json, started_at, ended_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inj.ID, inj.PageID, inj.ElementID, inj.SourceURL, string(inj.Status), inj.Error,
		inj.StatusCode, inj.Bytes, changed, inj.ChangesJSON, inj.StartedAt, inj.EndedAt,
	)
	if err != nil {
		return fmt.Errorf("insert injection: %w", err)
	}
	return nil
}

// ListInjections returns the most recent injections for a page (slug or id).
// A non-positive limit means 50.
func (r *Registry) ListInjections(ctx context.Context, pageIdentifier string, limit int) ([]Injection, error) {
	page, err := r.GetPage(ctx, pageIdentifier)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, page_id, element_id, source_url, status, error, status_code, bytes, changed, changes_json, started_at, ended_at
         FROM injections
         WHERE page_id = ?
         ORDER BY started_at DESC, rowid DESC
         LIMIT ?`,
		page.ID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Injection
	for rows.Next() {
		var inj Injection
		var status string
		var changed int
		if err := rows.Scan(&inj.ID, &inj.PageID, &inj.ElementID, &inj.SourceURL, &status, &inj.Error,
			&inj.StatusCode, &inj.Bytes, &changed, &inj.ChangesJSON, &inj.StartedAt, &inj.EndedAt); err != nil {
			return nil, err
		}
		inj.Status = InjectionStatus(status)
		inj.Changed = changed == 1
		out = append(out, inj)
	}
	return out, rows.Err()
}
