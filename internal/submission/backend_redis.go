package submission

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// appendScript writes a record only if its id is not yet indexed.
// KEYS: ids zset, record key, team set. ARGV: id, document.
const appendScript = `
	if redis.call("zscore", KEYS[1], ARGV[1]) then
		return 0
	end
	redis.call("set", KEYS[2], ARGV[2])
	redis.call("zadd", KEYS[1], ARGV[1], ARGV[1])
	redis.call("sadd", KEYS[3], ARGV[1])
	return 1
`

// RedisBackend stores each record as a JSON document. A sorted set of ids is
// the unique index and a set per team is the secondary index.
type RedisBackend struct {
	client *redis.Client
	prefix string
}

var _ Backend = (*RedisBackend)(nil)

func NewRedisBackend(client *redis.Client, prefix string) *RedisBackend {
	if prefix == "" {
		prefix = "hunt:submissions"
	}
	return &RedisBackend{client: client, prefix: prefix}
}

func (b *RedisBackend) idsKey() string               { return b.prefix + ":ids" }
func (b *RedisBackend) recordKey(id int64) string    { return fmt.Sprintf("%s:record:%d", b.prefix, id) }
func (b *RedisBackend) teamKey(teamID string) string { return b.prefix + ":team:" + teamID }

// NextID queries the highest indexed id on every call so it stays correct
// across restarts.
func (b *RedisBackend) NextID(ctx context.Context) (int64, error) {
	top, err := b.client.ZRevRangeWithScores(ctx, b.idsKey(), 0, 0).Result()
	if err != nil {
		return 0, storageErr("query max id", err)
	}
	if len(top) == 0 {
		return 1, nil
	}
	return int64(top[0].Score) + 1, nil
}

func (b *RedisBackend) Append(ctx context.Context, rec Record) error {
	doc, err := json.Marshal(rec)
	if err != nil {
		return storageErr("encode record", err)
	}
	keys := []string{b.idsKey(), b.recordKey(rec.ID), b.teamKey(rec.TeamID)}
	added, err := b.client.Eval(ctx, appendScript, keys, rec.ID, doc).Int64()
	if err != nil {
		return storageErr("append record", err)
	}
	if added == 0 {
		return ErrDuplicateID
	}
	return nil
}

func (b *RedisBackend) Query(ctx context.Context, teamID string) ([]Record, error) {
	var members []string
	var err error
	if teamID == "" {
		members, err = b.client.ZRange(ctx, b.idsKey(), 0, -1).Result()
	} else {
		members, err = b.client.SMembers(ctx, b.teamKey(teamID)).Result()
	}
	if err != nil {
		return nil, storageErr("query ids", err)
	}
	if len(members) == 0 {
		return []Record{}, nil
	}

	keys := make([]string, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			return nil, storageErr("parse id", err)
		}
		keys = append(keys, b.recordKey(id))
	}
	docs, err := b.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, storageErr("load records", err)
	}

	records := make([]Record, 0, len(docs))
	for _, d := range docs {
		s, ok := d.(string)
		if !ok {
			continue
		}
		var rec Record
		if err := json.Unmarshal([]byte(s), &rec); err != nil {
			return nil, storageErr("decode record", err)
		}
		records = append(records, rec)
	}
	sortByID(records)
	return records, nil
}

// ResetAll drops the id index, every record and every team index.
func (b *RedisBackend) ResetAll(ctx context.Context) error {
	for _, pattern := range []string{b.prefix + ":record:*", b.prefix + ":team:*"} {
		var cursor uint64
		for {
			keys, next, err := b.client.Scan(ctx, cursor, pattern, 200).Result()
			if err != nil {
				return storageErr("scan records", err)
			}
			if len(keys) > 0 {
				if err := b.client.Del(ctx, keys...).Err(); err != nil {
					return storageErr("delete records", err)
				}
			}
			cursor = next
			if cursor == 0 {
				break
			}
		}
	}
	return storageErr("delete id index", b.client.Del(ctx, b.idsKey()).Err())
}

// Close is a no-op; the client is owned by the caller.
func (b *RedisBackend) Close() error { return nil }
