package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/synaptica-ai/prelude-parser/pkg/common/logger"
	"github.com/synaptica-ai/prelude-parser/pkg/flatfile"
)

const keyPrefix = "flatfile:"

// DatasetCache keeps parsed datasets in Redis keyed by the checksum of the
// export they came from, qualified by the parse settings in Variant.
type DatasetCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

func New(client redis.Cmdable, ttl time.Duration) *DatasetCache {
	return &DatasetCache{client: client, ttl: ttl}
}

// Checksum is the hex SHA-256 of an export.
func Checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Variant qualifies a checksum with the required metadata fields the
// dataset was parsed under. Without required fields it is the checksum.
func Variant(checksum string, required []string) string {
	if len(required) == 0 {
		return checksum
	}
	names := append([]string(nil), required...)
	sort.Strings(names)
	return checksum + ":required=" + strings.Join(names, ",")
}

func Key(id string) string {
	return keyPrefix + id
}

// Get returns the cached dataset for id, a checksum or Variant. A miss is
// (nil, false, nil).
func (c *DatasetCache) Get(ctx context.Context, id string) (*flatfile.Dataset, bool, error) {
	key := Key(id)
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		logger.Log.WithField("key", key).Debug("dataset cache miss")
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading %s: %w", key, err)
	}
	ds, err := flatfile.DecodeDataset(data)
	if err != nil {
		return nil, false, fmt.Errorf("decoding %s: %w", key, err)
	}
	return ds, true, nil
}

func (c *DatasetCache) Set(ctx context.Context, id string, ds *flatfile.Dataset) error {
	data, err := flatfile.EncodeDataset(ds)
	if err != nil {
		return err
	}
	key := Key(id)
	logger.Log.WithFields(map[string]interface{}{
		"key":  key,
		"size": len(data),
	}).Debug("caching dataset")
	return c.client.Set(ctx, key, data, c.ttl).Err()
}
