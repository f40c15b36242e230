// Package redisstore backs the fingerprint and section-header stores with
// Redis, for deployments that already run one.
package redisstore

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/vitaehq/vitae/internal/domain"
)

const (
	fingerprintPrefix = "vitae:fingerprint:"
	headerPrefix      = "vitae:headers:"
)

// Store implements domain.FingerprintStore and domain.SectionHeaderStore on a
// Redis client.
type Store struct {
	rdb *redis.Client
}

// New parses redisURL, verifies connectivity and returns a Store.
func New(ctx context.Context, redisURL string) (*Store, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis.ParseURL(%q): %w", redisURL, err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Store{rdb: client}, nil
}

// Close releases the underlying client.
func (s *Store) Close() error {
	return s.rdb.Close()
}

// Lookup returns the parser job handle recorded for a fingerprint.
func (s *Store) Lookup(ctx context.Context, fingerprint string) (string, bool, error) {
	handle, err := s.rdb.Get(ctx, fingerprintPrefix+fingerprint).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return handle, true, nil
}

// Record stores a fingerprint/handle pair. SetNX keeps the mapping
// append-only: an existing entry is never overwritten.
func (s *Store) Record(ctx context.Context, fingerprint, handle string) error {
	return s.rdb.SetNX(ctx, fingerprintPrefix+fingerprint, handle, 0).Err()
}

// Increment bumps each section header's frequency in the job title's sorted
// set.
func (s *Store) Increment(ctx context.Context, jobTitle string, headers []string) error {
	key := headerPrefix + jobTitle
	pipe := s.rdb.Pipeline()
	for _, header := range headers {
		pipe.ZIncrBy(ctx, key, 1, header)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// Top returns the most frequent section headers for a job title.
func (s *Store) Top(ctx context.Context, jobTitle string, limit int) ([]domain.HeaderCount, error) {
	entries, err := s.rdb.ZRevRangeWithScores(ctx, headerPrefix+jobTitle, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}

	counts := make([]domain.HeaderCount, 0, len(entries))
	for _, entry := range entries {
		header, ok := entry.Member.(string)
		if !ok {
			continue
		}
		counts = append(counts, domain.HeaderCount{
			Header:    header,
			Frequency: int64(entry.Score),
		})
	}
	return counts, nil
}
