package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	_ "github.com/lib/pq"

	"price-matcher/models"
	"price-matcher/utils"
)

const listingBatchSize = 50

// PostgresWriter persists a run to PostgreSQL. Listings are upserted on
// (source, primary_key); groups and comparisons are rebuilt on every run.
type PostgresWriter struct {
	db     *sql.DB
	logger *utils.Logger
}

// NewPostgresWriter opens a connection to PostgreSQL, waits for it to accept
// connections, runs schema migrations and returns a ready-to-use writer.
func NewPostgresWriter(ctx context.Context, dsn string, retry *utils.RetryConfig, logger *utils.Logger) (*PostgresWriter, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	if err := retry.Do(ctx, "postgres ping", func() error { return db.PingContext(ctx) }); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: %w", err)
	}

	pw := &PostgresWriter{db: db, logger: logger}
	if err := pw.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	return pw, nil
}

func (pw *PostgresWriter) migrate(ctx context.Context) error {
	_, err := pw.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS product_listings (
			id                 SERIAL PRIMARY KEY,
			source             VARCHAR(50)   NOT NULL,
			primary_key        VARCHAR(16)   NOT NULL,
			original_title     TEXT          NOT NULL,
			brand              VARCHAR(50)   NOT NULL,
			model              TEXT          NOT NULL DEFAULT '',
			cpu_type           VARCHAR(50)   NOT NULL,
			ram_gb             INTEGER,
			storage            VARCHAR(50)   NOT NULL,
			screen_size_inches NUMERIC(4,1),
			price              NUMERIC(14,2),
			currency           VARCHAR(3)    NOT NULL,
			url                TEXT          NOT NULL DEFAULT '',
			group_key          VARCHAR(18),
			scraped_at         TIMESTAMPTZ,
			updated_at         TIMESTAMPTZ   NOT NULL DEFAULT NOW(),
			UNIQUE (source, primary_key)
		);

		CREATE INDEX IF NOT EXISTS idx_product_listings_primary_key ON product_listings(primary_key);
		CREATE INDEX IF NOT EXISTS idx_product_listings_group_key   ON product_listings(group_key);
		CREATE INDEX IF NOT EXISTS idx_product_listings_brand       ON product_listings(brand);

		CREATE TABLE IF NOT EXISTS product_groups (
			group_key     VARCHAR(18) PRIMARY KEY,
			group_type    VARCHAR(10) NOT NULL,
			brand         VARCHAR(50) NOT NULL,
			model         TEXT        NOT NULL DEFAULT '',
			sources       TEXT        NOT NULL,
			product_count INTEGER     NOT NULL,
			run_id        VARCHAR(36) NOT NULL DEFAULT '',
			created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS product_comparisons (
			group_key          VARCHAR(18) PRIMARY KEY,
			group_type         VARCHAR(10) NOT NULL,
			brand              VARCHAR(50) NOT NULL,
			model              TEXT        NOT NULL DEFAULT '',
			cpu_type           VARCHAR(50) NOT NULL,
			ram_gb             INTEGER,
			storage            VARCHAR(50) NOT NULL,
			screen_size_inches NUMERIC(4,1),
			source_prices      JSONB       NOT NULL,
			min_price          NUMERIC(14,2) NOT NULL,
			max_price          NUMERIC(14,2) NOT NULL,
			savings            NUMERIC(14,2) NOT NULL,
			savings_percentage NUMERIC(7,2)  NOT NULL,
			cheapest_source    VARCHAR(50) NOT NULL,
			deal_rating        VARCHAR(10) NOT NULL,
			product_count      INTEGER     NOT NULL,
			source_count       INTEGER     NOT NULL,
			run_id             VARCHAR(36) NOT NULL DEFAULT '',
			created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_product_comparisons_savings ON product_comparisons(savings DESC);
	`)
	return err
}

// Write upserts the listings in batches, then replaces groups and
// comparisons in a single transaction.
func (pw *PostgresWriter) Write(ctx context.Context, result *models.RunResult) error {
	listings := dedupeListings(result.Listings)
	keys := groupKeys(result)

	for i := 0; i < len(listings); i += listingBatchSize {
		end := i + listingBatchSize
		if end > len(listings) {
			end = len(listings)
		}
		if err := pw.upsertBatch(ctx, listings[i:end], keys); err != nil {
			return fmt.Errorf("postgres: upsert listings: %w", err)
		}
	}
	pw.logger.Info("[postgres] Upserted %d listings", len(listings))

	if err := pw.rebuild(ctx, result); err != nil {
		return fmt.Errorf("postgres: rebuild groups: %w", err)
	}
	pw.logger.Info("[postgres] Stored %d groups and %d comparisons", len(result.Groups), len(result.Comparisons))
	return nil
}

const listingColumns = 14

func (pw *PostgresWriter) upsertBatch(ctx context.Context, batch []*models.StandardizedListing, keys map[*models.StandardizedListing]string) error {
	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]interface{}, 0, len(batch)*listingColumns)

	for idx, l := range batch {
		base := idx * listingColumns
		placeholders := make([]string, listingColumns)
		for c := range placeholders {
			placeholders[c] = fmt.Sprintf("$%d", base+c+1)
		}
		valueStrings = append(valueStrings, "("+strings.Join(placeholders, ",")+")")
		valueArgs = append(valueArgs, listingArgs(l, keys[l])...)
	}

	query := fmt.Sprintf(`
		INSERT INTO product_listings (source, primary_key, original_title, brand, model, cpu_type,
			ram_gb, storage, screen_size_inches, price, currency, url, group_key, scraped_at)
		VALUES %s
		ON CONFLICT (source, primary_key) DO UPDATE SET
			original_title     = EXCLUDED.original_title,
			price              = EXCLUDED.price,
			currency           = EXCLUDED.currency,
			url                = EXCLUDED.url,
			group_key          = EXCLUDED.group_key,
			scraped_at         = EXCLUDED.scraped_at,
			updated_at         = NOW()
	`, strings.Join(valueStrings, ","))

	_, err := pw.db.ExecContext(ctx, query, valueArgs...)
	return err
}

func (pw *PostgresWriter) rebuild(ctx context.Context, result *models.RunResult) error {
	tx, err := pw.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range []string{"DELETE FROM product_comparisons", "DELETE FROM product_groups"} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}

	groupStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO product_groups (group_key, group_type, brand, model, sources, product_count, run_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`)
	if err != nil {
		return err
	}
	defer groupStmt.Close()
	for _, g := range result.Groups {
		if _, err := groupStmt.ExecContext(ctx, groupArgs(g, runID(result))...); err != nil {
			return fmt.Errorf("group %s: %w", g.GroupKey, err)
		}
	}

	cmpStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO product_comparisons (group_key, group_type, brand, model, cpu_type, ram_gb, storage,
			screen_size_inches, source_prices, min_price, max_price, savings, savings_percentage,
			cheapest_source, deal_rating, product_count, source_count, run_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)`)
	if err != nil {
		return err
	}
	defer cmpStmt.Close()
	for _, c := range result.Comparisons {
		args, err := comparisonArgs(c, runID(result))
		if err != nil {
			return err
		}
		if _, err := cmpStmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("comparison %s: %w", c.GroupKey, err)
		}
	}

	return tx.Commit()
}

// FetchListingCounts returns the number of stored listings per source.
func (pw *PostgresWriter) FetchListingCounts(ctx context.Context) (map[string]int, error) {
	rows, err := pw.db.QueryContext(ctx, `
		SELECT source, COUNT(*)
		FROM product_listings
		GROUP BY source
		ORDER BY source
	`)
	if err != nil {
		return nil, fmt.Errorf("postgres: fetch counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var source string
		var n int
		if err := rows.Scan(&source, &n); err != nil {
			return nil, fmt.Errorf("postgres: scan row: %w", err)
		}
		counts[source] = n
	}
	return counts, rows.Err()
}

func (pw *PostgresWriter) Close() error {
	return pw.db.Close()
}

// dedupeListings keeps the last listing per (source, primary_key): a
// multi-row upsert may not touch the same row twice.
func dedupeListings(listings []*models.StandardizedListing) []*models.StandardizedListing {
	index := make(map[[2]string]int, len(listings))
	out := make([]*models.StandardizedListing, 0, len(listings))
	for _, l := range listings {
		k := [2]string{l.Source, l.PrimaryKey}
		if i, ok := index[k]; ok {
			out[i] = l
			continue
		}
		index[k] = len(out)
		out = append(out, l)
	}
	return out
}

func listingArgs(l *models.StandardizedListing, groupKey string) []interface{} {
	return []interface{}{
		l.Source, l.PrimaryKey, l.OriginalTitle, l.Brand, l.Model, l.CPUType,
		l.RAMGB, l.Storage, l.ScreenSizeInches, l.Price, l.Currency, l.URL,
		nullString(groupKey), l.ScrapedAt,
	}
}

func groupArgs(g *models.ProductGroup, runID string) []interface{} {
	rep := g.Members[0]
	return []interface{}{
		g.GroupKey, string(g.GroupType), rep.Brand, rep.Model,
		strings.Join(g.Sources, ","), g.ProductCount, runID,
	}
}

func comparisonArgs(c *models.ComparisonResult, runID string) ([]interface{}, error) {
	prices, err := json.Marshal(c.SourcePrices)
	if err != nil {
		return nil, fmt.Errorf("encode source prices for %s: %w", c.GroupKey, err)
	}
	return []interface{}{
		c.GroupKey, string(c.GroupType), c.Brand, c.Model, c.CPUType, c.RAMGB, c.Storage,
		c.ScreenSizeInches, string(prices), c.MinPrice, c.MaxPrice, c.Savings, c.SavingsPercentage,
		c.CheapestSource, string(c.DealRating), c.ProductCount, c.SourceCount, runID,
	}, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
