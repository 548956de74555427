package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"NewsLens/internal/domain"
	"NewsLens/internal/ports"
)

const schema = `
CREATE TABLE IF NOT EXISTS articles (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    fingerprint     TEXT    NOT NULL UNIQUE,
    feed_id         INTEGER NOT NULL DEFAULT 0,
    title           TEXT    NOT NULL,
    content         TEXT    NOT NULL DEFAULT '',
    url             TEXT    NOT NULL DEFAULT '',
    author          TEXT    NOT NULL DEFAULT '',
    source          TEXT    NOT NULL DEFAULT '',
    published_at    INTEGER NOT NULL DEFAULT 0,
    category        TEXT    NOT NULL DEFAULT 'uncategorized',
    sentiment       TEXT    NOT NULL DEFAULT 'neutral',
    importance      TEXT    NOT NULL DEFAULT 'medium',
    topics          TEXT    NOT NULL DEFAULT '[]',
    summary         TEXT    NOT NULL DEFAULT '',
    bias_score      REAL    NOT NULL DEFAULT 0,
    bias_confidence REAL    NOT NULL DEFAULT 0,
    bias_rationale  TEXT    NOT NULL DEFAULT '',
    relevance       REAL    NOT NULL DEFAULT 1,
    degraded        INTEGER NOT NULL DEFAULT 0,
    is_read         INTEGER NOT NULL DEFAULT 0,
    created_at      INTEGER NOT NULL,
    updated_at      INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_articles_category  ON articles(category);
CREATE INDEX IF NOT EXISTS idx_articles_relevance ON articles(relevance);
CREATE INDEX IF NOT EXISTS idx_articles_published ON articles(published_at);

CREATE TABLE IF NOT EXISTS feeds (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    url          TEXT    NOT NULL UNIQUE,
    title        TEXT    NOT NULL DEFAULT '',
    site_url     TEXT    NOT NULL DEFAULT '',
    description  TEXT    NOT NULL DEFAULT '',
    language     TEXT    NOT NULL DEFAULT '',
    category     TEXT    NOT NULL DEFAULT '',
    active       INTEGER NOT NULL DEFAULT 1,
    last_fetched INTEGER NOT NULL DEFAULT 0,
    created_at   INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS category_preferences (
    category TEXT PRIMARY KEY,
    keywords TEXT    NOT NULL DEFAULT '{}',
    active   INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS user_interactions (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    article_id INTEGER NOT NULL REFERENCES articles(id),
    kind       TEXT    NOT NULL,
    value      REAL    NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_interactions_article ON user_interactions(article_id);
CREATE INDEX IF NOT EXISTS idx_interactions_created ON user_interactions(created_at);
`

const articleColumns = "id, fingerprint, feed_id, title, content, url, author, source, published_at, " +
	"category, sentiment, importance, topics, summary, bias_score, bias_confidence, bias_rationale, " +
	"relevance, degraded, is_read, created_at, updated_at"

const feedColumns = "id, url, title, site_url, description, language, category, active, last_fetched, created_at"

// upsertArticle writes one article atomically, keyed by fingerprint.
// Conflicting rows keep their summary, read state and created_at so a
// refresh cycle can never wipe cached summaries or read tracking.
const upsertArticle = `
INSERT INTO articles (fingerprint, feed_id, title, content, url, author, source, published_at,
                      category, sentiment, importance, topics, summary, bias_score, bias_confidence,
                      bias_rationale, relevance, degraded, is_read, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(fingerprint) DO UPDATE SET
    feed_id         = excluded.feed_id,
    title           = excluded.title,
    content         = excluded.content,
    url             = excluded.url,
    author          = excluded.author,
    source          = excluded.source,
    published_at    = excluded.published_at,
    category        = excluded.category,
    sentiment       = excluded.sentiment,
    importance      = excluded.importance,
    topics          = excluded.topics,
    bias_score      = excluded.bias_score,
    bias_confidence = excluded.bias_confidence,
    bias_rationale  = excluded.bias_rationale,
    relevance       = excluded.relevance,
    degraded        = excluded.degraded,
    updated_at      = excluded.updated_at
RETURNING id`

const upsertPreference = `
INSERT INTO category_preferences (category, keywords, active)
VALUES (?, ?, ?)
ON CONFLICT(category) DO UPDATE SET
    keywords = excluded.keywords,
    active   = excluded.active`

// Store bundles the per-aggregate repositories over one SQLite file.
type Store struct {
	Articles     *ArticleStore
	Feeds        *FeedStore
	Preferences  *PreferenceStore
	Interactions *InteractionStore

	db *sql.DB
}

// Open creates (or reuses) the database file and applies the schema.
// The connection pool is capped at one connection: SQLite allows a
// single writer and the busy timeout covers short contention.
func Open(path string, clock ports.Clock) (*Store, error) {
	dsn := "file:" + path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{
		Articles:     &ArticleStore{db: db, clock: clock},
		Feeds:        &FeedStore{db: db, clock: clock},
		Preferences:  &PreferenceStore{db: db},
		Interactions: &InteractionStore{db: db, clock: clock},
		db:           db,
	}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// ArticleStore persists articles keyed by fingerprint.
type ArticleStore struct {
	db    *sql.DB
	clock ports.Clock
}

var _ ports.ArticleRepository = (*ArticleStore)(nil)

// FindByFingerprint returns the stored article with this fingerprint,
// or nil when none exists.
func (s *ArticleStore) FindByFingerprint(ctx context.Context, fingerprint string) (*domain.Article, error) {
	query, args, err := sq.Select(articleColumns).
		From("articles").
		Where(sq.Eq{"fingerprint": fingerprint}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	article, err := scanArticle(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find by fingerprint: %w", err)
	}
	return &article, nil
}

// Upsert writes the article keyed by fingerprint and returns its row
// id. The article's ID and timestamps are filled in place.
func (s *ArticleStore) Upsert(ctx context.Context, article *domain.Article) (int64, error) {
	now := s.clock.Now()
	if article.CreatedAt.IsZero() {
		article.CreatedAt = now
	}
	article.UpdatedAt = now

	topics, err := json.Marshal(emptyIfNil(article.Topics))
	if err != nil {
		return 0, fmt.Errorf("marshal topics: %w", err)
	}

	var id int64
	err = s.db.QueryRowContext(ctx, upsertArticle,
		article.Fingerprint,
		article.FeedID,
		article.Title,
		article.Content,
		article.URL,
		article.Author,
		article.Source,
		toUnix(article.PublishedAt),
		article.Category,
		article.Sentiment,
		article.Importance,
		string(topics),
		article.Summary,
		article.BiasScore,
		article.BiasConfidence,
		article.BiasRationale,
		article.Relevance,
		boolToInt(article.Degraded),
		boolToInt(article.Read),
		toUnix(article.CreatedAt),
		toUnix(article.UpdatedAt),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert article: %w", err)
	}

	article.ID = id
	return id, nil
}

// Get loads one article by row id.
func (s *ArticleStore) Get(ctx context.Context, id int64) (domain.Article, error) {
	query, args, err := sq.Select(articleColumns).
		From("articles").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return domain.Article{}, fmt.Errorf("build query: %w", err)
	}

	article, err := scanArticle(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Article{}, fmt.Errorf("article %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Article{}, fmt.Errorf("get article: %w", err)
	}
	return article, nil
}

// List returns articles matching the filter, most relevant first and
// newest first within equal relevance.
func (s *ArticleStore) List(ctx context.Context, filter domain.ArticleFilter) ([]domain.Article, error) {
	builder := sq.Select(articleColumns).
		From("articles").
		OrderBy("relevance DESC", "published_at DESC")

	if filter.Category != "" {
		builder = builder.Where(sq.Eq{"category": filter.Category})
	}
	if filter.MinRelevance > 0 {
		builder = builder.Where(sq.GtOrEq{"relevance": filter.MinRelevance})
	}
	if filter.Read != nil {
		builder = builder.Where(sq.Eq{"is_read": boolToInt(*filter.Read)})
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	builder = builder.Limit(uint64(limit))
	if filter.Offset > 0 {
		builder = builder.Offset(uint64(filter.Offset))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}
	defer rows.Close()

	var articles []domain.Article
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		articles = append(articles, article)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return articles, nil
}

// SaveSummary stores the cached summary for one article.
func (s *ArticleStore) SaveSummary(ctx context.Context, id int64, summary string) error {
	return s.update(ctx, id, "summary", summary)
}

// SaveRelevance stores a recomputed relevance score.
func (s *ArticleStore) SaveRelevance(ctx context.Context, id int64, relevance float64) error {
	return s.update(ctx, id, "relevance", relevance)
}

// SetRead flips the read marker of one article.
func (s *ArticleStore) SetRead(ctx context.Context, id int64, read bool) error {
	return s.update(ctx, id, "is_read", boolToInt(read))
}

func (s *ArticleStore) update(ctx context.Context, id int64, column string, value any) error {
	query, args, err := sq.Update("articles").
		Set(column, value).
		Set("updated_at", toUnix(s.clock.Now())).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update article: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("article %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

// ReadStats counts read and unread articles.
func (s *ArticleStore) ReadStats(ctx context.Context) (domain.ReadStats, error) {
	var stats domain.ReadStats
	row := s.db.QueryRowContext(ctx, `SELECT COUNT(*), COALESCE(SUM(is_read), 0) FROM articles`)
	if err := row.Scan(&stats.Total, &stats.Read); err != nil {
		return domain.ReadStats{}, fmt.Errorf("read stats: %w", err)
	}
	stats.Unread = stats.Total - stats.Read
	return stats, nil
}

// FeedStore manages the subscribed feed set.
type FeedStore struct {
	db    *sql.DB
	clock ports.Clock
}

var _ ports.FeedRepository = (*FeedStore)(nil)

// ListActive returns feeds currently enabled for refresh cycles.
func (s *FeedStore) ListActive(ctx context.Context) ([]domain.Feed, error) {
	query, args, err := sq.Select(feedColumns).
		From("feeds").
		Where(sq.Eq{"active": 1}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list feeds: %w", err)
	}
	defer rows.Close()

	var feeds []domain.Feed
	for rows.Next() {
		feed, err := scanFeed(rows)
		if err != nil {
			return nil, fmt.Errorf("scan feed: %w", err)
		}
		feeds = append(feeds, feed)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return feeds, nil
}

// FindByURL returns the feed subscribed under this URL, or nil.
func (s *FeedStore) FindByURL(ctx context.Context, url string) (*domain.Feed, error) {
	query, args, err := sq.Select(feedColumns).
		From("feeds").
		Where(sq.Eq{"url": url}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	feed, err := scanFeed(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find feed: %w", err)
	}
	return &feed, nil
}

// Insert subscribes a new feed and returns its id.
func (s *FeedStore) Insert(ctx context.Context, feed domain.Feed) (int64, error) {
	if feed.CreatedAt.IsZero() {
		feed.CreatedAt = s.clock.Now()
	}

	query, args, err := sq.Insert("feeds").
		Columns("url", "title", "site_url", "description", "language", "category", "active", "last_fetched", "created_at").
		Values(feed.URL, feed.Title, feed.SiteURL, feed.Description, feed.Language, feed.Category,
			boolToInt(feed.Active), toUnix(feed.LastFetched), toUnix(feed.CreatedAt)).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("insert feed: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// UpdateLastFetched records when a feed was last pulled successfully.
func (s *FeedStore) UpdateLastFetched(ctx context.Context, feedID int64, fetched time.Time) error {
	query, args, err := sq.Update("feeds").
		Set("last_fetched", toUnix(fetched)).
		Where(sq.Eq{"id": feedID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update last fetched: %w", err)
	}
	return nil
}

// PreferenceStore holds per-category keyword boosts.
type PreferenceStore struct {
	db *sql.DB
}

var _ ports.PreferenceRepository = (*PreferenceStore)(nil)

// List returns active preferences, optionally narrowed to one category.
func (s *PreferenceStore) List(ctx context.Context, category string) ([]domain.Preference, error) {
	builder := sq.Select("category, keywords, active").
		From("category_preferences").
		Where(sq.Eq{"active": 1}).
		OrderBy("category")
	if category != "" {
		builder = builder.Where(sq.Eq{"category": category})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list preferences: %w", err)
	}
	defer rows.Close()

	var prefs []domain.Preference
	for rows.Next() {
		var pref domain.Preference
		var raw string
		var active int
		if err := rows.Scan(&pref.Category, &raw, &active); err != nil {
			return nil, fmt.Errorf("scan preference: %w", err)
		}
		if err := json.Unmarshal([]byte(raw), &pref.Keywords); err != nil {
			return nil, fmt.Errorf("unmarshal keywords for %s: %w", pref.Category, err)
		}
		pref.Active = active != 0
		prefs = append(prefs, pref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return prefs, nil
}

// Upsert stores the keyword boosts for one category.
func (s *PreferenceStore) Upsert(ctx context.Context, pref domain.Preference) error {
	keywords, err := json.Marshal(pref.Keywords)
	if err != nil {
		return fmt.Errorf("marshal keywords: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, upsertPreference, pref.Category, string(keywords), boolToInt(pref.Active)); err != nil {
		return fmt.Errorf("upsert preference: %w", err)
	}
	return nil
}

// Delete removes the preference for one category.
func (s *PreferenceStore) Delete(ctx context.Context, category string) error {
	query, args, err := sq.Delete("category_preferences").
		Where(sq.Eq{"category": category}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete preference: %w", err)
	}
	return nil
}

// InteractionStore records reader interactions.
type InteractionStore struct {
	db    *sql.DB
	clock ports.Clock
}

var _ ports.InteractionRepository = (*InteractionStore)(nil)

// Record stores one reader interaction.
func (s *InteractionStore) Record(ctx context.Context, interaction domain.Interaction) error {
	if interaction.CreatedAt.IsZero() {
		interaction.CreatedAt = s.clock.Now()
	}

	query, args, err := sq.Insert("user_interactions").
		Columns("article_id", "kind", "value", "created_at").
		Values(interaction.ArticleID, string(interaction.Kind), interaction.Value, toUnix(interaction.CreatedAt)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("record interaction: %w", err)
	}
	return nil
}

// List returns interactions by article or by article category, oldest
// first.
func (s *InteractionStore) List(ctx context.Context, q domain.InteractionQuery) ([]domain.Interaction, error) {
	builder := sq.Select("i.id, i.article_id, i.kind, i.value, i.created_at").
		From("user_interactions AS i").
		OrderBy("i.created_at")

	switch {
	case q.ArticleID > 0:
		builder = builder.Where(sq.Eq{"i.article_id": q.ArticleID})
	case q.Category != "":
		builder = builder.
			Join("articles AS a ON a.id = i.article_id").
			Where(sq.Eq{"a.category": q.Category})
	}
	if !q.Since.IsZero() {
		builder = builder.Where(sq.GtOrEq{"i.created_at": toUnix(q.Since)})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list interactions: %w", err)
	}
	defer rows.Close()

	var interactions []domain.Interaction
	for rows.Next() {
		var interaction domain.Interaction
		var kind string
		var created int64
		if err := rows.Scan(&interaction.ID, &interaction.ArticleID, &kind, &interaction.Value, &created); err != nil {
			return nil, fmt.Errorf("scan interaction: %w", err)
		}
		interaction.Kind = domain.InteractionKind(kind)
		interaction.CreatedAt = fromUnix(created)
		interactions = append(interactions, interaction)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return interactions, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArticle(row rowScanner) (domain.Article, error) {
	var article domain.Article
	var topics string
	var published, created, updated int64
	var degraded, isRead int

	err := row.Scan(
		&article.ID,
		&article.Fingerprint,
		&article.FeedID,
		&article.Title,
		&article.Content,
		&article.URL,
		&article.Author,
		&article.Source,
		&published,
		&article.Category,
		&article.Sentiment,
		&article.Importance,
		&topics,
		&article.Summary,
		&article.BiasScore,
		&article.BiasConfidence,
		&article.BiasRationale,
		&article.Relevance,
		&degraded,
		&isRead,
		&created,
		&updated,
	)
	if err != nil {
		return domain.Article{}, err
	}

	if err := json.Unmarshal([]byte(topics), &article.Topics); err != nil {
		return domain.Article{}, fmt.Errorf("unmarshal topics: %w", err)
	}
	article.PublishedAt = fromUnix(published)
	article.CreatedAt = fromUnix(created)
	article.UpdatedAt = fromUnix(updated)
	article.Degraded = degraded != 0
	article.Read = isRead != 0

	return article, nil
}

func scanFeed(row rowScanner) (domain.Feed, error) {
	var feed domain.Feed
	var active int
	var fetched, created int64

	err := row.Scan(
		&feed.ID,
		&feed.URL,
		&feed.Title,
		&feed.SiteURL,
		&feed.Description,
		&feed.Language,
		&feed.Category,
		&active,
		&fetched,
		&created,
	)
	if err != nil {
		return domain.Feed{}, err
	}

	feed.Active = active != 0
	feed.LastFetched = fromUnix(fetched)
	feed.CreatedAt = fromUnix(created)
	return feed, nil
}

func emptyIfNil(topics []string) []string {
	if topics == nil {
		return []string{}
	}
	return topics
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func toUnix(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UTC().Unix()
}

func fromUnix(v int64) time.Time {
	if v == 0 {
		return time.Time{}
	}
	return time.Unix(v, 0).UTC()
}
