package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/telecheck/internal/config"
	"github.com/nao1215/telecheck/internal/model"
)

// FileName is the database file created inside the database directory.
const FileName = "telecheck.db"

// timeLayout is fixed width so that stored times sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// ErrReportNotFound is returned when no report matches a query.
var ErrReportNotFound = errors.New("report not found")

// HistoryDB stores analysis reports per site.
// A single connection is used since SQLite allows one writer.
type HistoryDB struct {
	db     *sql.DB
	dbPath string
}

// Options configures HistoryDB behavior.
type Options struct {
	// CreateIfNotExists creates the directory and database file if they
	// don't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the history database in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		if err := os.MkdirAll(dbDir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		dsn = dbPath + "?mode=rwc"
	} else if _, err := os.Stat(dbPath); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s: %w", dbPath, err)
		}
		return nil, fmt.Errorf("failed to check database path: %w", err)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	hdb := &HistoryDB{db: db, dbPath: dbPath}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}
	if err := hdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return hdb, nil
}

// Path returns the database file path.
func (h *HistoryDB) Path() string {
	return h.dbPath
}

// Close closes the database connection.
func (h *HistoryDB) Close() error {
	return h.db.Close()
}

func (h *HistoryDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS reports (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		site TEXT NOT NULL,
		site_url TEXT NOT NULL,
		analyzed_at TEXT NOT NULL,
		overall_score INTEGER NOT NULL,
		pages_analyzed INTEGER NOT NULL,
		partial INTEGER NOT NULL DEFAULT 0,
		summary TEXT,
		report_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_reports_site ON reports(site);
	CREATE INDEX IF NOT EXISTS idx_reports_analyzed_at ON reports(analyzed_at);

	-- One row per category per report, for score trends
	CREATE TABLE IF NOT EXISTS category_scores (
		report_id INTEGER NOT NULL REFERENCES reports(id) ON DELETE CASCADE,
		category TEXT NOT NULL,
		score INTEGER NOT NULL,
		findings INTEGER NOT NULL,
		PRIMARY KEY (report_id, category)
	);
	`
	_, err := h.db.ExecContext(context.Background(), schema)
	return err
}

// ReportMetadata summarizes a stored report without decoding it.
type ReportMetadata struct {
	ID            int64
	Site          string
	SiteURL       string
	AnalyzedAt    time.Time
	OverallScore  int
	PagesAnalyzed int
	Partial       bool
	Summary       model.Summary
}

// SaveReport stores a report and returns its ID. The site key is derived
// from report.SiteURL, so "https://www.clinic.example/" and
// "clinic.example" share one history.
func (h *HistoryDB) SaveReport(ctx context.Context, report *model.Report) (int64, error) {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize report: %w", err)
	}
	summaryJSON, err := json.Marshal(report.Summary)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize summary: %w", err)
	}

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, `
	INSERT INTO reports (site, site_url, analyzed_at, overall_score, pages_analyzed, partial, summary, report_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		config.SiteKey(report.SiteURL),
		report.SiteURL,
		report.DateAnalyzed.UTC().Format(timeLayout),
		report.OverallScore,
		report.PagesAnalyzed,
		report.Coverage.Partial,
		string(summaryJSON),
		string(reportJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save report: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read report id: %w", err)
	}

	for _, cs := range report.CategoryScores {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO category_scores (report_id, category, score, findings) VALUES (?, ?, ?, ?)`,
			id, string(cs.Category), cs.Score, cs.Findings,
		); err != nil {
			return 0, fmt.Errorf("failed to save category score: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit report: %w", err)
	}
	return id, nil
}

// GetLatestReport returns the most recent report for a site.
func (h *HistoryDB) GetLatestReport(ctx context.Context, site string) (*model.Report, error) {
	var reportJSON string
	err := h.db.QueryRowContext(ctx, `
	SELECT report_json FROM reports
	WHERE site = ?
	ORDER BY analyzed_at DESC, id DESC
	LIMIT 1
	`, config.SiteKey(site)).Scan(&reportJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrReportNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	return decodeReport(reportJSON)
}

// GetReportByID returns the report stored under id.
func (h *HistoryDB) GetReportByID(ctx context.Context, id int64) (*model.Report, error) {
	var reportJSON string
	err := h.db.QueryRowContext(ctx, `SELECT report_json FROM reports WHERE id = ?`, id).Scan(&reportJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrReportNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report %d: %w", id, err)
	}
	return decodeReport(reportJSON)
}

// ListSites returns every site with at least one stored report.
func (h *HistoryDB) ListSites(ctx context.Context) ([]string, error) {
	rows, err := h.db.QueryContext(ctx, `SELECT DISTINCT site FROM reports ORDER BY site`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sites: %w", err)
	}
	defer rows.Close()

	var sites []string
	for rows.Next() {
		var site string
		if err := rows.Scan(&site); err != nil {
			return nil, fmt.Errorf("failed to scan site: %w", err)
		}
		sites = append(sites, site)
	}
	return sites, rows.Err()
}

// GetHistory returns all reports for a site, newest first. Reports that
// no longer decode are skipped.
func (h *HistoryDB) GetHistory(ctx context.Context, site string) ([]*model.Report, error) {
	rows, err := h.db.QueryContext(ctx, `
	SELECT report_json FROM reports
	WHERE site = ?
	ORDER BY analyzed_at DESC, id DESC
	`, config.SiteKey(site))
	if err != nil {
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	defer rows.Close()

	var reports []*model.Report
	for rows.Next() {
		var reportJSON string
		if err := rows.Scan(&reportJSON); err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		report, err := decodeReport(reportJSON)
		if err != nil {
			continue
		}
		reports = append(reports, report)
	}
	return reports, rows.Err()
}

// GetHistoryWithMetadata returns report metadata for a site, newest first.
func (h *HistoryDB) GetHistoryWithMetadata(ctx context.Context, site string) ([]ReportMetadata, error) {
	rows, err := h.db.QueryContext(ctx, `
	SELECT id, site, site_url, analyzed_at, overall_score, pages_analyzed, partial, summary
	FROM reports
	WHERE site = ?
	ORDER BY analyzed_at DESC, id DESC
	`, config.SiteKey(site))
	if err != nil {
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	defer rows.Close()

	var results []ReportMetadata
	for rows.Next() {
		var (
			meta        ReportMetadata
			analyzedAt  string
			summaryJSON sql.NullString
		)
		if err := rows.Scan(&meta.ID, &meta.Site, &meta.SiteURL, &analyzedAt,
			&meta.OverallScore, &meta.PagesAnalyzed, &meta.Partial, &summaryJSON); err != nil {
			return nil, fmt.Errorf("failed to scan metadata: %w", err)
		}
		meta.AnalyzedAt = parseTimestamp(analyzedAt)
		if summaryJSON.Valid && summaryJSON.String != "" {
			// A corrupt summary leaves zero counts; the report itself is intact.
			_ = json.Unmarshal([]byte(summaryJSON.String), &meta.Summary)
		}
		results = append(results, meta)
	}
	return results, rows.Err()
}

// ScorePoint is one category score at one point in time.
type ScorePoint struct {
	ReportID   int64
	AnalyzedAt time.Time
	Score      int
	Findings   int
}

// GetScoreTrend returns a category's scores for a site, oldest first.
func (h *HistoryDB) GetScoreTrend(ctx context.Context, site string, category model.Category) ([]ScorePoint, error) {
	rows, err := h.db.QueryContext(ctx, `
	SELECT r.id, r.analyzed_at, c.score, c.findings
	FROM category_scores c
	JOIN reports r ON r.id = c.report_id
	WHERE r.site = ? AND c.category = ?
	ORDER BY r.analyzed_at ASC, r.id ASC
	`, config.SiteKey(site), string(category))
	if err != nil {
		return nil, fmt.Errorf("failed to get score trend: %w", err)
	}
	defer rows.Close()

	var points []ScorePoint
	for rows.Next() {
		var (
			p          ScorePoint
			analyzedAt string
		)
		if err := rows.Scan(&p.ReportID, &analyzedAt, &p.Score, &p.Findings); err != nil {
			return nil, fmt.Errorf("failed to scan score: %w", err)
		}
		p.AnalyzedAt = parseTimestamp(analyzedAt)
		points = append(points, p)
	}
	return points, rows.Err()
}

func decodeReport(reportJSON string) (*model.Report, error) {
	var report model.Report
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}
	return &report, nil
}

// timestampFormats contains the timestamp formats accepted when reading.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	timeLayout,
	time.RFC3339Nano,
	"2006-01-02 15:04:05", // SQLite CURRENT_TIMESTAMP
	"2006-01-02T15:04:05",
}

// parseTimestamp returns the zero time if no format matches.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
