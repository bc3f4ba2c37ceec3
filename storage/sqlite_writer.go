package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"price-matcher/models"
	"price-matcher/utils"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS product_listings (
	id                 INTEGER PRIMARY KEY AUTOINCREMENT,
	source             TEXT    NOT NULL,
	primary_key        TEXT    NOT NULL,
	original_title     TEXT    NOT NULL,
	brand              TEXT    NOT NULL,
	model              TEXT    NOT NULL DEFAULT '',
	cpu_type           TEXT    NOT NULL,
	ram_gb             INTEGER,
	storage            TEXT    NOT NULL,
	screen_size_inches REAL,
	price              TEXT,
	currency           TEXT    NOT NULL,
	url                TEXT    NOT NULL DEFAULT '',
	group_key          TEXT,
	scraped_at         TIMESTAMP,
	updated_at         TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE (source, primary_key)
);
CREATE INDEX IF NOT EXISTS idx_product_listings_group_key ON product_listings(group_key);

CREATE TABLE IF NOT EXISTS product_groups (
	group_key     TEXT PRIMARY KEY,
	group_type    TEXT    NOT NULL,
	brand         TEXT    NOT NULL,
	model         TEXT    NOT NULL DEFAULT '',
	sources       TEXT    NOT NULL,
	product_count INTEGER NOT NULL,
	run_id        TEXT    NOT NULL DEFAULT '',
	created_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS product_comparisons (
	group_key          TEXT PRIMARY KEY,
	group_type         TEXT    NOT NULL,
	brand              TEXT    NOT NULL,
	model              TEXT    NOT NULL DEFAULT '',
	cpu_type           TEXT    NOT NULL,
	ram_gb             INTEGER,
	storage            TEXT    NOT NULL,
	screen_size_inches REAL,
	source_prices      TEXT    NOT NULL,
	min_price          TEXT    NOT NULL,
	max_price          TEXT    NOT NULL,
	savings            TEXT    NOT NULL,
	savings_percentage TEXT    NOT NULL,
	cheapest_source    TEXT    NOT NULL,
	deal_rating        TEXT    NOT NULL,
	product_count      INTEGER NOT NULL,
	source_count       INTEGER NOT NULL,
	run_id             TEXT    NOT NULL DEFAULT '',
	created_at         TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// SQLiteWriter persists a run to a local SQLite file with the same tables as
// the PostgreSQL sink. Prices are stored as decimal text so they round-trip
// exactly.
type SQLiteWriter struct {
	db     *sql.DB
	logger *utils.Logger
}

// NewSQLiteWriter opens (or creates) the database at path and applies the
// schema.
func NewSQLiteWriter(ctx context.Context, path string, logger *utils.Logger) (*SQLiteWriter, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("sqlite: create dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, p := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlite: %s: %w", p, err)
		}
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: migrate: %w", err)
	}

	return &SQLiteWriter{db: db, logger: logger}, nil
}

// Write stores the run in one transaction: listings are upserted on
// (source, primary_key), groups and comparisons replaced.
func (sw *SQLiteWriter) Write(ctx context.Context, result *models.RunResult) error {
	tx, err := sw.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin: %w", err)
	}
	defer tx.Rollback()

	keys := groupKeys(result)
	listingStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO product_listings (source, primary_key, original_title, brand, model, cpu_type,
			ram_gb, storage, screen_size_inches, price, currency, url, group_key, scraped_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT (source, primary_key) DO UPDATE SET
			original_title = excluded.original_title,
			price          = excluded.price,
			currency       = excluded.currency,
			url            = excluded.url,
			group_key      = excluded.group_key,
			scraped_at     = excluded.scraped_at,
			updated_at     = CURRENT_TIMESTAMP`)
	if err != nil {
		return fmt.Errorf("sqlite: prepare listings: %w", err)
	}
	defer listingStmt.Close()
	for _, l := range result.Listings {
		if _, err := listingStmt.ExecContext(ctx, listingArgs(l, keys[l])...); err != nil {
			return fmt.Errorf("sqlite: upsert listing %s/%s: %w", l.Source, l.PrimaryKey, err)
		}
	}

	for _, stmt := range []string{"DELETE FROM product_comparisons", "DELETE FROM product_groups"} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlite: %s: %w", stmt, err)
		}
	}

	groupStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO product_groups (group_key, group_type, brand, model, sources, product_count, run_id)
		VALUES (?,?,?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("sqlite: prepare groups: %w", err)
	}
	defer groupStmt.Close()
	for _, g := range result.Groups {
		if _, err := groupStmt.ExecContext(ctx, groupArgs(g, runID(result))...); err != nil {
			return fmt.Errorf("sqlite: insert group %s: %w", g.GroupKey, err)
		}
	}

	cmpStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO product_comparisons (group_key, group_type, brand, model, cpu_type, ram_gb, storage,
			screen_size_inches, source_prices, min_price, max_price, savings, savings_percentage,
			cheapest_source, deal_rating, product_count, source_count, run_id)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("sqlite: prepare comparisons: %w", err)
	}
	defer cmpStmt.Close()
	for _, c := range result.Comparisons {
		args, err := comparisonArgs(c, runID(result))
		if err != nil {
			return fmt.Errorf("sqlite: %w", err)
		}
		if _, err := cmpStmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("sqlite: insert comparison %s: %w", c.GroupKey, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit: %w", err)
	}
	sw.logger.Info("[sqlite] Stored %d listings, %d groups, %d comparisons",
		len(result.Listings), len(result.Groups), len(result.Comparisons))
	return nil
}

// FetchListingCounts returns the number of stored listings per source.
func (sw *SQLiteWriter) FetchListingCounts(ctx context.Context) (map[string]int, error) {
	rows, err := sw.db.QueryContext(ctx, `SELECT source, COUNT(*) FROM product_listings GROUP BY source`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: fetch counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var source string
		var n int
		if err := rows.Scan(&source, &n); err != nil {
			return nil, fmt.Errorf("sqlite: scan row: %w", err)
		}
		counts[source] = n
	}
	return counts, rows.Err()
}

func (sw *SQLiteWriter) Close() error {
	return sw.db.Close()
}
