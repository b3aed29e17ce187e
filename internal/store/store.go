// Package store persists topic definitions and per-topic cached results.
// Two implementations exist: a JSON file pair for single-tenant mode and a
// Postgres document store for multi-tenant mode.
package store

import (
	"context"
	"errors"

	"github.com/topicradar/topicradar/internal/model"
)

var (
	// ErrNotFound signals an operation on a topic id that does not exist.
	ErrNotFound = errors.New("topic not found")
	// ErrNotOwner signals a mutation attempt by a caller who does not own
	// the topic.
	ErrNotOwner = errors.New("not topic owner")
)

// CachedTopic is the persisted result snapshot for one topic.
type CachedTopic struct {
	Domestic      []model.NewsItem    `json:"domestic_news"`
	International []model.NewsItem    `json:"intl_news"`
	Summary       model.SummaryRecord `json:"summary"`
}

// TopicUpdate carries partial topic mutations. Nil fields are left as-is.
type TopicUpdate struct {
	Name             *string
	Keywords         model.KeywordSets
	NegativeKeywords *[]string
	Icon             *string
	DisplayOrder     *int
}

// Store is the persistence collaborator. Absence of cached records is a
// normal cold start, not an error.
type Store interface {
	// Topics returns the tenant's topic definitions.
	Topics(ctx context.Context, tenantID string) ([]model.Topic, error)
	// GetTopic returns one topic or ErrNotFound.
	GetTopic(ctx context.Context, tenantID, topicID string) (model.Topic, error)
	// CreateTopic stores a new topic definition.
	CreateTopic(ctx context.Context, topic model.Topic) error
	// UpdateTopic mutates a topic after verifying ownership.
	UpdateTopic(ctx context.Context, tenantID, topicID string, upd TopicUpdate) error
	// DeleteTopic removes a topic after verifying ownership.
	DeleteTopic(ctx context.Context, tenantID, topicID string) error

	// LoadCache bulk-reads all cached results for a tenant.
	LoadCache(ctx context.Context, tenantID string) (map[string]CachedTopic, error)
	// SaveTopicCache upserts one topic's cached results.
	SaveTopicCache(ctx context.Context, tenantID, topicID string, cached CachedTopic) error
	// DeleteTopicCache drops one topic's cached results.
	DeleteTopicCache(ctx context.Context, tenantID, topicID string) error
}

func applyUpdate(topic *model.Topic, upd TopicUpdate) {
	if upd.Name != nil {
		topic.Name = *upd.Name
	}
	if upd.Keywords != nil {
		topic.Keywords = upd.Keywords
	}
	if upd.NegativeKeywords != nil {
		topic.NegativeKeywords = *upd.NegativeKeywords
	}
	if upd.Icon != nil {
		topic.Icon = *upd.Icon
	}
	if upd.DisplayOrder != nil {
		topic.DisplayOrder = *upd.DisplayOrder
	}
}
