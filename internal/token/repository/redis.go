package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"member-auth-service/internal/token/domain"
)

const (
	memberKeyPrefix = "refresh:member:"
	tokenKeyPrefix  = "refresh:token:"
)

// Keys are not given a TTL: an expired token must still be readable so the
// service can report it as expired rather than missing. Storage stays bounded
// at one pair of keys per member.
const saveTokenScript = `
local prev = redis.call("HGET", KEYS[1], "token")
if prev and prev ~= ARGV[1] then
  redis.call("DEL", "refresh:token:" .. prev)
end
redis.call("HSET", KEYS[1],
  "token", ARGV[1],
  "expires_at", ARGV[2],
  "created_at", ARGV[3],
  "updated_at", ARGV[4])
redis.call("SET", KEYS[2], ARGV[5])
return 1
`

var saveTokenLua = redis.NewScript(saveTokenScript)

// RedisRepository persists refresh tokens in Redis: a hash per member plus a
// token value index. Save runs as a Lua script so replacing a member's token
// and re-pointing the index is atomic; a concurrent rotation race resolves to
// last writer wins.
type RedisRepository struct {
	client *redis.Client
}

// NewRedisRepository returns a refresh token repository backed by the given Redis client.
func NewRedisRepository(client *redis.Client) *RedisRepository {
	return &RedisRepository{client: client}
}

// GetByToken returns the refresh token with the given token value, or nil if not found.
func (r *RedisRepository) GetByToken(ctx context.Context, token string) (*domain.RefreshToken, error) {
	memberID, err := r.client.Get(ctx, tokenKeyPrefix+token).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis error: %w", err)
	}
	t, err := r.GetByMemberID(ctx, memberID)
	if err != nil {
		return nil, err
	}
	// Guard against a stale index entry left by a failed write.
	if t == nil || t.Token != token {
		return nil, nil
	}
	return t, nil
}

// GetByMemberID returns the member's refresh token, or nil if the member has none.
func (r *RedisRepository) GetByMemberID(ctx context.Context, memberID string) (*domain.RefreshToken, error) {
	fields, err := r.client.HGetAll(ctx, memberKeyPrefix+memberID).Result()
	if err != nil {
		return nil, fmt.Errorf("redis error: %w", err)
	}
	if len(fields) == 0 {
		return nil, nil
	}

	t := &domain.RefreshToken{MemberID: memberID, Token: fields["token"]}
	if t.ExpiresAt, err = time.Parse(time.RFC3339Nano, fields["expires_at"]); err != nil {
		return nil, fmt.Errorf("redis: corrupt expires_at for member %s: %w", memberID, err)
	}
	if t.CreatedAt, err = time.Parse(time.RFC3339Nano, fields["created_at"]); err != nil {
		return nil, fmt.Errorf("redis: corrupt created_at for member %s: %w", memberID, err)
	}
	if t.UpdatedAt, err = time.Parse(time.RFC3339Nano, fields["updated_at"]); err != nil {
		return nil, fmt.Errorf("redis: corrupt updated_at for member %s: %w", memberID, err)
	}
	return t, nil
}

// Save upserts the refresh token keyed by member id and re-points the token
// value index, removing the index entry of any replaced token.
func (r *RedisRepository) Save(ctx context.Context, t *domain.RefreshToken) error {
	keys := []string{memberKeyPrefix + t.MemberID, tokenKeyPrefix + t.Token}
	args := []interface{}{
		t.Token,
		t.ExpiresAt.UTC().Format(time.RFC3339Nano),
		t.CreatedAt.UTC().Format(time.RFC3339Nano),
		t.UpdatedAt.UTC().Format(time.RFC3339Nano),
		t.MemberID,
	}
	if err := saveTokenLua.Run(ctx, r.client, keys, args...).Err(); err != nil {
		return fmt.Errorf("redis error: %w", err)
	}
	return nil
}
