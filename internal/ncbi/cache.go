package ncbi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// ErrNotCached is returned when a record is not in the cache.
var ErrNotCached = errors.New("record not cached")

// Cache stores raw records keyed by accession and indexed by taxid.
type Cache interface {
	PutRecords(ctx context.Context, records []RawRecord) error
	GetRecords(ctx context.Context, accessions []string) ([]RawRecord, error)
	AccessionsByTaxid(ctx context.Context, taxid int) ([]string, error)
	Close() error
}

// RedisCache implements Cache on Redis. All keys are namespaced with prefix.
type RedisCache struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisCache creates a cache client for the Redis server at addr.
func NewRedisCache(opts *redis.Options, prefix string) (*RedisCache, error) {
	if prefix == "" {
		return nil, fmt.Errorf("cache prefix cannot be empty")
	}
	return &RedisCache{rdb: redis.NewClient(opts), prefix: prefix}, nil
}

func (c *RedisCache) recordKey(accession string) string {
	return c.prefix + ":record:" + accession
}

func (c *RedisCache) taxidKey(taxid int) string {
	return c.prefix + ":taxid:" + strconv.Itoa(taxid)
}

// Ping verifies Redis connectivity.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// PutRecords stores records. Records that cannot be attributed to a taxid are
// stored without being indexed.
func (c *RedisCache) PutRecords(ctx context.Context, records []RawRecord) error {
	pipe := c.rdb.TxPipeline()
	for _, r := range records {
		if r.Accession == "" {
			return &MalformedRecordError{Field: "accession", Reason: "missing"}
		}
		b, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("marshal record %s: %w", r.Accession, err)
		}
		pipe.Set(ctx, c.recordKey(r.Accession), b, 0)
		if src, err := parseSource(r.Features); err == nil {
			pipe.SAdd(ctx, c.taxidKey(src.Taxid), r.Accession)
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("write records to redis: %w", err)
	}
	return nil
}

// GetRecords returns the cached records for accessions, in the same order.
// It fails with ErrNotCached if any accession is missing.
func (c *RedisCache) GetRecords(ctx context.Context, accessions []string) ([]RawRecord, error) {
	if len(accessions) == 0 {
		return nil, nil
	}
	keys := make([]string, len(accessions))
	for i, acc := range accessions {
		keys[i] = c.recordKey(acc)
	}
	vals, err := c.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("read records from redis: %w", err)
	}
	out := make([]RawRecord, 0, len(vals))
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNotCached, accessions[i])
		}
		var r RawRecord
		if err := json.Unmarshal([]byte(s), &r); err != nil {
			return nil, fmt.Errorf("decode cached record %s: %w", accessions[i], err)
		}
		out = append(out, r)
	}
	return out, nil
}

// AccessionsByTaxid returns the sorted accessions cached for a taxid.
func (c *RedisCache) AccessionsByTaxid(ctx context.Context, taxid int) ([]string, error) {
	accs, err := c.rdb.SMembers(ctx, c.taxidKey(taxid)).Result()
	if err != nil {
		return nil, fmt.Errorf("read taxid index: %w", err)
	}
	sort.Strings(accs)
	return accs, nil
}

// Close closes the Redis connection.
func (c *RedisCache) Close() error {
	return c.rdb.Close()
}
