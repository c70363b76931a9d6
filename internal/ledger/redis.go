// Copyright 2025 SirSeer, LLC
//
// Licensed under the Business Source License 1.1 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://mariadb.com/bsl11
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ledger

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// seedBatch bounds the members sent in one SADD.
const seedBatch = 500

// Redis is a Ledger stored in a Redis set, one set per title.
type Redis struct {
	c   redis.Cmdable
	key string
}

// NewRedisClient opens a client for addr.
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
}

// NewRedis creates a ledger under the key "<prefix>:<titleID>".
func NewRedis(c redis.Cmdable, prefix, titleID string) *Redis {
	return &Redis{c: c, key: prefix + ":" + titleID}
}

// Key returns the Redis key of the seen-set.
func (r *Redis) Key() string {
	return r.key
}

// Seed implements Ledger.
func (r *Redis) Seed(ctx context.Context, ids []string) error {
	batch := make([]interface{}, 0, seedBatch)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := r.c.SAdd(ctx, r.key, batch...).Err(); err != nil {
			return fmt.Errorf("failed to seed ledger %s: %w", r.key, err)
		}
		batch = batch[:0]
		return nil
	}

	for _, id := range ids {
		if id == "" {
			continue
		}
		batch = append(batch, id)
		if len(batch) == seedBatch {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	return flush()
}

// IsNew implements Ledger.
func (r *Redis) IsNew(ctx context.Context, id string) (bool, error) {
	seen, err := r.c.SIsMember(ctx, r.key, id).Result()
	if err != nil {
		return false, fmt.Errorf("failed to query ledger %s: %w", r.key, err)
	}
	return !seen, nil
}

// MarkSeen implements Ledger.
func (r *Redis) MarkSeen(ctx context.Context, id string) error {
	if err := r.c.SAdd(ctx, r.key, id).Err(); err != nil {
		return fmt.Errorf("failed to update ledger %s: %w", r.key, err)
	}
	return nil
}

// Len implements Ledger.
func (r *Redis) Len(ctx context.Context) (int, error) {
	n, err := r.c.SCard(ctx, r.key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to size ledger %s: %w", r.key, err)
	}
	return int(n), nil
}
