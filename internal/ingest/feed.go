package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	readability "github.com/go-shiori/go-readability"
	"github.com/mmcdole/gofeed"

	"NewsLens/internal/config"
	"NewsLens/internal/domain"
	"NewsLens/internal/ports"
)

const userAgent = "NewsLens/1.0"

var (
	// ErrFeedUnreachable covers transport failures and non-2xx statuses
	// when pulling a feed document.
	ErrFeedUnreachable = errors.New("feed unreachable")

	// ErrFeedMalformed covers documents that cannot be parsed as RSS or
	// Atom at all.
	ErrFeedMalformed = errors.New("feed malformed")
)

// Ingestor pulls feed documents and normalizes their entries into
// candidates: HTML stripped, whitespace collapsed, fingerprint computed.
type Ingestor struct {
	client       *http.Client
	parser       *gofeed.Parser
	clock        ports.Clock
	logger       *slog.Logger
	fetchFull    bool
	minBodyRunes int
	readTimeout  time.Duration
}

// NewIngestor wires an HTTP client; a nil client gets the configured
// fetch timeout.
func NewIngestor(client *http.Client, clock ports.Clock, cfg config.IngestConfig, logger *slog.Logger) *Ingestor {
	timeout := cfg.Timeout()
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	minRunes := cfg.MinBodyRunes
	if minRunes <= 0 {
		minRunes = 200
	}
	return &Ingestor{
		client:       client,
		parser:       gofeed.NewParser(),
		clock:        clock,
		logger:       logger,
		fetchFull:    cfg.FetchFullContent,
		minBodyRunes: minRunes,
		readTimeout:  timeout,
	}
}

var _ ports.FeedSource = (*Ingestor)(nil)

// Fetch pulls one feed document and returns its usable entries. Entries
// without any identity (link or GUID) or without any text are dropped
// and reported through the skipped count.
func (in *Ingestor) Fetch(ctx context.Context, feed domain.Feed) ([]domain.Candidate, int, error) {
	parsed, err := in.fetchDocument(ctx, feed.URL)
	if err != nil {
		return nil, 0, err
	}

	candidates := make([]domain.Candidate, 0, len(parsed.Items))
	skipped := 0
	for _, item := range parsed.Items {
		candidate, ok := in.candidate(item)
		if !ok {
			skipped++
			in.logger.Debug("skipping unusable entry", "feed", feed.URL, "title", item.Title)
			continue
		}
		candidates = append(candidates, candidate)
	}

	return candidates, skipped, nil
}

// Probe fetches a feed URL and returns its channel metadata so new
// subscriptions can be stored with a readable title.
func (in *Ingestor) Probe(ctx context.Context, url string) (domain.FeedInfo, error) {
	parsed, err := in.fetchDocument(ctx, url)
	if err != nil {
		return domain.FeedInfo{}, err
	}

	return domain.FeedInfo{
		Title:       strings.TrimSpace(parsed.Title),
		Description: strings.TrimSpace(parsed.Description),
		SiteURL:     strings.TrimSpace(parsed.Link),
		Language:    strings.TrimSpace(parsed.Language),
	}, nil
}

func (in *Ingestor) fetchDocument(ctx context.Context, url string) (*gofeed.Feed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrFeedUnreachable, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := in.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFeedUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s returned %s", ErrFeedUnreachable, url, resp.Status)
	}

	parsed, err := in.parser.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFeedMalformed, err)
	}

	return parsed, nil
}

func (in *Ingestor) candidate(item *gofeed.Item) (domain.Candidate, bool) {
	link := strings.TrimSpace(item.Link)
	guid := strings.TrimSpace(item.GUID)
	if link == "" && guid == "" {
		return domain.Candidate{}, false
	}

	title := CollapseWhitespace(item.Title)

	body := item.Content
	if strings.TrimSpace(body) == "" {
		body = item.Description
	}
	body = HTMLToText(body)

	if title == "" && body == "" {
		return domain.Candidate{}, false
	}

	if in.fetchFull && link != "" && utf8.RuneCountInString(body) < in.minBodyRunes {
		if full := in.fullText(link); utf8.RuneCountInString(full) > utf8.RuneCountInString(body) {
			body = full
		}
	}

	published := in.clock.Now()
	if item.PublishedParsed != nil {
		published = *item.PublishedParsed
	} else if item.UpdatedParsed != nil {
		published = *item.UpdatedParsed
	}

	candidate := domain.Candidate{
		Title:       title,
		Body:        body,
		Link:        link,
		GUID:        guid,
		Author:      itemAuthor(item),
		PublishedAt: published.UTC(),
	}
	candidate.Fingerprint = Fingerprint(candidate)

	return candidate, true
}

// fullText pulls the article page and runs readability extraction for
// feeds that only publish teaser-length descriptions.
func (in *Ingestor) fullText(link string) string {
	article, err := readability.FromURL(link, in.readTimeout)
	if err != nil {
		in.logger.Debug("full content fetch failed", "url", link, "error", err)
		return ""
	}
	return CollapseWhitespace(article.TextContent)
}

func itemAuthor(item *gofeed.Item) string {
	if len(item.Authors) > 0 && item.Authors[0] != nil {
		return strings.TrimSpace(item.Authors[0].Name)
	}
	if item.Author != nil {
		return strings.TrimSpace(item.Author.Name)
	}
	return ""
}
