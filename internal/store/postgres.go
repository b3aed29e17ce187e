package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/topicradar/topicradar/internal/logger"
	"github.com/topicradar/topicradar/internal/model"
)

// PostgresStore persists topics and cached results per tenant. Keyword sets
// and item lists are stored as JSONB documents, so the rolling windows stay
// opaque to the schema.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(connectionString string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	ps := &PostgresStore{db: db}
	if err := ps.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	logger.Info("postgres store connected")
	return ps, nil
}

func (ps *PostgresStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS user_topics (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		name TEXT NOT NULL,
		keywords JSONB NOT NULL DEFAULT '{}',
		negative_keywords JSONB NOT NULL DEFAULT '[]',
		icon TEXT NOT NULL DEFAULT '',
		display_order INTEGER NOT NULL DEFAULT 999,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_user_topics_user_id ON user_topics(user_id);

	CREATE TABLE IF NOT EXISTS topic_cache (
		user_id TEXT NOT NULL,
		topic_id TEXT NOT NULL,
		domestic_news JSONB NOT NULL DEFAULT '[]',
		intl_news JSONB NOT NULL DEFAULT '[]',
		summary TEXT NOT NULL DEFAULT '',
		summary_updated_at TIMESTAMPTZ,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (user_id, topic_id)
	);

	CREATE INDEX IF NOT EXISTS idx_topic_cache_user_id ON topic_cache(user_id);
	`

	if _, err := ps.db.Exec(schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

func (ps *PostgresStore) Topics(ctx context.Context, tenantID string) ([]model.Topic, error) {
	rows, err := ps.db.QueryContext(ctx, `
		SELECT id, user_id, name, keywords, negative_keywords, icon, display_order
		FROM user_topics
		WHERE user_id = $1
		ORDER BY display_order, created_at
	`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("query topics: %w", err)
	}
	defer rows.Close()

	var topics []model.Topic
	for rows.Next() {
		topic, err := scanTopic(rows)
		if err != nil {
			logger.Warn("skipping unreadable topic row", "error", err)
			continue
		}
		topics = append(topics, topic)
	}
	return topics, rows.Err()
}

func (ps *PostgresStore) GetTopic(ctx context.Context, tenantID, topicID string) (model.Topic, error) {
	row := ps.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, keywords, negative_keywords, icon, display_order
		FROM user_topics
		WHERE id = $1
	`, topicID)

	topic, err := scanTopic(row)
	if err == sql.ErrNoRows {
		return model.Topic{}, ErrNotFound
	}
	if err != nil {
		return model.Topic{}, fmt.Errorf("query topic: %w", err)
	}
	if topic.OwnerID != tenantID {
		return model.Topic{}, ErrNotOwner
	}
	return topic, nil
}

func (ps *PostgresStore) CreateTopic(ctx context.Context, topic model.Topic) error {
	keywords, negatives, err := marshalKeywords(topic)
	if err != nil {
		return err
	}

	_, err = ps.db.ExecContext(ctx, `
		INSERT INTO user_topics (id, user_id, name, keywords, negative_keywords, icon, display_order)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, topic.ID, topic.OwnerID, topic.Name, keywords, negatives, topic.Icon, topic.DisplayOrder)
	if err != nil {
		return fmt.Errorf("insert topic: %w", err)
	}
	return nil
}

func (ps *PostgresStore) UpdateTopic(ctx context.Context, tenantID, topicID string, upd TopicUpdate) error {
	topic, err := ps.GetTopic(ctx, tenantID, topicID)
	if err != nil {
		return err
	}
	applyUpdate(&topic, upd)

	keywords, negatives, err := marshalKeywords(topic)
	if err != nil {
		return err
	}

	_, err = ps.db.ExecContext(ctx, `
		UPDATE user_topics
		SET name = $1, keywords = $2, negative_keywords = $3, icon = $4, display_order = $5
		WHERE id = $6 AND user_id = $7
	`, topic.Name, keywords, negatives, topic.Icon, topic.DisplayOrder, topicID, tenantID)
	if err != nil {
		return fmt.Errorf("update topic: %w", err)
	}
	return nil
}

func (ps *PostgresStore) DeleteTopic(ctx context.Context, tenantID, topicID string) error {
	if _, err := ps.GetTopic(ctx, tenantID, topicID); err != nil {
		return err
	}

	_, err := ps.db.ExecContext(ctx,
		`DELETE FROM user_topics WHERE id = $1 AND user_id = $2`, topicID, tenantID)
	if err != nil {
		return fmt.Errorf("delete topic: %w", err)
	}
	return nil
}

func (ps *PostgresStore) LoadCache(ctx context.Context, tenantID string) (map[string]CachedTopic, error) {
	rows, err := ps.db.QueryContext(ctx, `
		SELECT topic_id, domestic_news, intl_news, summary, summary_updated_at
		FROM topic_cache
		WHERE user_id = $1
	`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("query topic cache: %w", err)
	}
	defer rows.Close()

	out := make(map[string]CachedTopic)
	for rows.Next() {
		var (
			topicID          string
			domestic, intl   []byte
			summaryText      string
			summaryUpdatedAt sql.NullTime
			cached           CachedTopic
		)
		if err := rows.Scan(&topicID, &domestic, &intl, &summaryText, &summaryUpdatedAt); err != nil {
			logger.Warn("skipping unreadable cache row", "error", err)
			continue
		}
		if err := json.Unmarshal(domestic, &cached.Domestic); err != nil {
			logger.Warn("skipping malformed domestic cache", "topic", topicID, "error", err)
			continue
		}
		if err := json.Unmarshal(intl, &cached.International); err != nil {
			logger.Warn("skipping malformed international cache", "topic", topicID, "error", err)
			continue
		}
		cached.Summary = model.SummaryRecord{Text: summaryText}
		if summaryUpdatedAt.Valid {
			cached.Summary.UpdatedAt = summaryUpdatedAt.Time
		}
		out[topicID] = cached
	}
	return out, rows.Err()
}

func (ps *PostgresStore) SaveTopicCache(ctx context.Context, tenantID, topicID string, cached CachedTopic) error {
	domestic, err := json.Marshal(emptyIfNil(cached.Domestic))
	if err != nil {
		return fmt.Errorf("marshal domestic items: %w", err)
	}
	intl, err := json.Marshal(emptyIfNil(cached.International))
	if err != nil {
		return fmt.Errorf("marshal international items: %w", err)
	}

	var summaryUpdatedAt interface{}
	if !cached.Summary.UpdatedAt.IsZero() {
		summaryUpdatedAt = cached.Summary.UpdatedAt
	}

	_, err = ps.db.ExecContext(ctx, `
		INSERT INTO topic_cache (user_id, topic_id, domestic_news, intl_news, summary, summary_updated_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (user_id, topic_id) DO UPDATE SET
			domestic_news = EXCLUDED.domestic_news,
			intl_news = EXCLUDED.intl_news,
			summary = EXCLUDED.summary,
			summary_updated_at = EXCLUDED.summary_updated_at,
			updated_at = NOW()
	`, tenantID, topicID, domestic, intl, cached.Summary.Text, summaryUpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert topic cache: %w", err)
	}
	return nil
}

func (ps *PostgresStore) DeleteTopicCache(ctx context.Context, tenantID, topicID string) error {
	_, err := ps.db.ExecContext(ctx,
		`DELETE FROM topic_cache WHERE user_id = $1 AND topic_id = $2`, tenantID, topicID)
	if err != nil {
		return fmt.Errorf("delete topic cache: %w", err)
	}
	return nil
}

func (ps *PostgresStore) Close() error {
	return ps.db.Close()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTopic(row rowScanner) (model.Topic, error) {
	var (
		topic              model.Topic
		keywords, negative []byte
	)
	err := row.Scan(&topic.ID, &topic.OwnerID, &topic.Name, &keywords, &negative, &topic.Icon, &topic.DisplayOrder)
	if err != nil {
		return model.Topic{}, err
	}
	if err := json.Unmarshal(keywords, &topic.Keywords); err != nil {
		return model.Topic{}, fmt.Errorf("decode keywords: %w", err)
	}
	if err := json.Unmarshal(negative, &topic.NegativeKeywords); err != nil {
		return model.Topic{}, fmt.Errorf("decode negative keywords: %w", err)
	}
	return topic, nil
}

func marshalKeywords(topic model.Topic) (keywords, negatives []byte, err error) {
	keywords, err = json.Marshal(topic.Keywords)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal keywords: %w", err)
	}
	if topic.NegativeKeywords == nil {
		topic.NegativeKeywords = []string{}
	}
	negatives, err = json.Marshal(topic.NegativeKeywords)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal negative keywords: %w", err)
	}
	return keywords, negatives, nil
}

func emptyIfNil(items []model.NewsItem) []model.NewsItem {
	if items == nil {
		return []model.NewsItem{}
	}
	return items
}
