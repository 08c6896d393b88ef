// Copyright 2019 Google Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package reference

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/googlegenomics/bands/internal/genomics"
)

const redisKeyPrefix = "bands:contigs:"

// Cache is the subset of the redis client used by RedisCache.
type Cache interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// RedisCache is a Service that shares contig lists fetched from another
// Service between processes through redis.  The cache is best effort: redis
// failures fall back to the underlying service.
type RedisCache struct {
	service Service
	cache   Cache
	ttl     time.Duration
}

// NewRedisCache returns a service caching the contig lists of service in
// cache for ttl.  A zero ttl keeps entries until they are evicted.
func NewRedisCache(service Service, cache Cache, ttl time.Duration) *RedisCache {
	return &RedisCache{service, cache, ttl}
}

// ReferenceGenomes returns the genomes of the underlying service.
func (c *RedisCache) ReferenceGenomes(ctx context.Context) ([]genomics.ReferenceGenome, error) {
	return c.service.ReferenceGenomes(ctx)
}

// Contigs returns the contig list of genome from redis, or from the
// underlying service on a miss.
func (c *RedisCache) Contigs(ctx context.Context, genome genomics.ReferenceGenome) ([]genomics.Contig, error) {
	key := redisKeyPrefix + string(genome)
	if cached, err := c.cache.Get(ctx, key).Result(); err == nil {
		var contigs []genomics.Contig
		if err := json.Unmarshal([]byte(cached), &contigs); err == nil {
			return contigs, nil
		}
	}

	contigs, err := c.service.Contigs(ctx, genome)
	if err != nil {
		return nil, err
	}
	if encoded, err := json.Marshal(contigs); err == nil {
		c.cache.Set(ctx, key, encoded, c.ttl)
	}
	return contigs, nil
}
