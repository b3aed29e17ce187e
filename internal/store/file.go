package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/topicradar/topicradar/internal/model"
)

// FileStore keeps topics and cached results in a JSON file pair. Used in
// single-tenant mode; every tenantID argument is ignored. Both files are
// rewritten wholesale on mutation.
type FileStore struct {
	topicsPath   string
	snapshotPath string

	mu     sync.Mutex
	topics map[string]model.Topic
	cache  map[string]CachedTopic
}

// NewFileStore opens the store, reading both files if they exist. Missing
// files mean a cold start, not an error.
func NewFileStore(topicsPath, snapshotPath string) (*FileStore, error) {
	fs := &FileStore{
		topicsPath:   topicsPath,
		snapshotPath: snapshotPath,
		topics:       make(map[string]model.Topic),
		cache:        make(map[string]CachedTopic),
	}
	if err := readJSONFile(topicsPath, &fs.topics); err != nil {
		return nil, fmt.Errorf("load topics file: %w", err)
	}
	if err := readJSONFile(snapshotPath, &fs.cache); err != nil {
		return nil, fmt.Errorf("load snapshot file: %w", err)
	}

	// Old topic files carry the id only as the map key.
	for id, topic := range fs.topics {
		if topic.ID == "" {
			topic.ID = id
			fs.topics[id] = topic
		}
	}
	return fs, nil
}

func (fs *FileStore) Topics(ctx context.Context, tenantID string) ([]model.Topic, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	out := make([]model.Topic, 0, len(fs.topics))
	for _, topic := range fs.topics {
		out = append(out, topic)
	}
	return out, nil
}

func (fs *FileStore) GetTopic(ctx context.Context, tenantID, topicID string) (model.Topic, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	topic, ok := fs.topics[topicID]
	if !ok {
		return model.Topic{}, ErrNotFound
	}
	return topic, nil
}

func (fs *FileStore) CreateTopic(ctx context.Context, topic model.Topic) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	fs.topics[topic.ID] = topic
	return fs.saveTopics()
}

func (fs *FileStore) UpdateTopic(ctx context.Context, tenantID, topicID string, upd TopicUpdate) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	topic, ok := fs.topics[topicID]
	if !ok {
		return ErrNotFound
	}
	applyUpdate(&topic, upd)
	fs.topics[topicID] = topic
	return fs.saveTopics()
}

func (fs *FileStore) DeleteTopic(ctx context.Context, tenantID, topicID string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if _, ok := fs.topics[topicID]; !ok {
		return ErrNotFound
	}
	delete(fs.topics, topicID)
	return fs.saveTopics()
}

func (fs *FileStore) LoadCache(ctx context.Context, tenantID string) (map[string]CachedTopic, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	out := make(map[string]CachedTopic, len(fs.cache))
	for id, cached := range fs.cache {
		out[id] = cached
	}
	return out, nil
}

func (fs *FileStore) SaveTopicCache(ctx context.Context, tenantID, topicID string, cached CachedTopic) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	fs.cache[topicID] = cached
	return fs.saveSnapshot()
}

func (fs *FileStore) DeleteTopicCache(ctx context.Context, tenantID, topicID string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	delete(fs.cache, topicID)
	return fs.saveSnapshot()
}

func (fs *FileStore) saveTopics() error {
	return writeJSONFile(fs.topicsPath, fs.topics)
}

func (fs *FileStore) saveSnapshot() error {
	return writeJSONFile(fs.snapshotPath, fs.cache)
}

func readJSONFile(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

func writeJSONFile(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
