package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"NewsLens/internal/config"
)

const seedDocument = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Seed Channel</title>
  <link>https://seed.example.com</link>
  <description>Startup coverage</description>
  <language>en</language>
</channel>
</rss>`

func TestSeedFeeds(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(seedDocument))
	}))
	defer server.Close()

	cfg := config.Config{
		Database: config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "app.db")},
		Feeds:    []config.FeedSeed{{URL: server.URL + "/feed.xml", Category: "world"}},
	}

	application, err := New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	defer application.Close()

	if err := application.seedFeeds(context.Background()); err != nil {
		t.Fatalf("seedFeeds error: %v", err)
	}

	feeds, err := application.store.Feeds.ListActive(context.Background())
	if err != nil {
		t.Fatalf("ListActive error: %v", err)
	}
	if len(feeds) != 1 {
		t.Fatalf("expected one subscribed feed, got %d", len(feeds))
	}
	if feeds[0].Title != "Seed Channel" || feeds[0].Category != "world" {
		t.Fatalf("unexpected seeded feed: %+v", feeds[0])
	}

	if err := application.seedFeeds(context.Background()); err != nil {
		t.Fatalf("second seedFeeds error: %v", err)
	}
	feeds, err = application.store.Feeds.ListActive(context.Background())
	if err != nil {
		t.Fatalf("ListActive error: %v", err)
	}
	if len(feeds) != 1 {
		t.Fatalf("seeding must not duplicate subscriptions, got %d feeds", len(feeds))
	}
}
