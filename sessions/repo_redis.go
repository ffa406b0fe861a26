package sessions

import (
	"context"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// keyPrefix matches the key layout the main application uses for login
// sessions.
const keyPrefix = "pollverse:session:"

// RedisRepo reads login sessions from the Redis store the main application
// maintains.
type RedisRepo struct {
	client *redis.Client
}

func NewRedisRepo(client *redis.Client) *RedisRepo {
	return &RedisRepo{client: client}
}

func (r *RedisRepo) UserID(ctx context.Context, sessionID string) (string, error) {
	if sessionID == "" {
		return "", SessionNotFoundErr
	}
	userID, err := r.client.Get(ctx, keyPrefix+sessionID).Result()
	if errors.Is(err, redis.Nil) {
		return "", SessionNotFoundErr
	}
	if err != nil {
		return "", errors.Wrap(err, "[RedisRepo.UserID] redis get")
	}
	if userID == "" {
		return "", SessionNotFoundErr
	}
	return userID, nil
}
