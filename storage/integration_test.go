//go:build integration

package storage

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/nats-io/nats.go"

	"price-matcher/config"
	"price-matcher/models"
	"price-matcher/utils"
)

func testRetry() *utils.RetryConfig {
	return &utils.RetryConfig{MaxAttempts: 3, BaseDelay: 200 * time.Millisecond, Logger: newTestLogger()}
}

func TestPostgresWriterIntegration(t *testing.T) {
	cfg := config.Load()
	ctx := context.Background()

	pw, err := NewPostgresWriter(ctx, cfg.DSN(), testRetry(), newTestLogger())
	if err != nil {
		t.Fatalf("NewPostgresWriter: %v", err)
	}
	defer pw.Close()

	if err := pw.Write(ctx, sampleResult()); err != nil {
		t.Fatalf("first Write: %v", err)
	}
	second := sampleResult()
	second.Listings[0].Price = price("43000")
	if err := pw.Write(ctx, second); err != nil {
		t.Fatalf("second Write: %v", err)
	}

	counts, err := pw.FetchListingCounts(ctx)
	if err != nil {
		t.Fatalf("FetchListingCounts: %v", err)
	}
	if counts["jumia"] < 1 || counts["laptopclinic"] < 1 || counts["masoko"] < 1 {
		t.Errorf("unexpected counts: %v", counts)
	}

	var p string
	if err := pw.db.QueryRowContext(ctx,
		`SELECT price::text FROM product_listings WHERE source = 'jumia' AND primary_key = 'A1B2C3D4E5F60718'`).Scan(&p); err != nil {
		t.Fatal(err)
	}
	if p != "43000.00" {
		t.Errorf("price not upserted: %q", p)
	}
}

func TestNATSPublisherIntegration(t *testing.T) {
	url := os.Getenv("NATS_URL")
	if url == "" {
		url = nats.DefaultURL
	}
	ctx := context.Background()

	sub, err := nats.Connect(url)
	if err != nil {
		t.Fatalf("nats connect: %v", err)
	}
	defer sub.Close()

	ch := make(chan *nats.Msg, 4)
	s, err := sub.ChanSubscribe("integ.comparisons", ch)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer s.Unsubscribe()
	if err := sub.Flush(); err != nil {
		t.Fatal(err)
	}

	p, err := NewNATSPublisher(ctx, url, "integ.comparisons", testRetry(), newTestLogger())
	if err != nil {
		t.Fatalf("NewNATSPublisher: %v", err)
	}
	defer p.Close()

	if err := p.Write(ctx, sampleResult()); err != nil {
		t.Fatalf("Write: %v", err)
	}

	select {
	case msg := <-ch:
		var c models.ComparisonResult
		if err := json.Unmarshal(msg.Data, &c); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if c.GroupKey != "A1B2C3D4E5F60718" {
			t.Errorf("group key = %q", c.GroupKey)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for comparison")
	}
}
