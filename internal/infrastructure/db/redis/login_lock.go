package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	lockTTL       = 5 * time.Second
	lockRetryWait = 25 * time.Millisecond
)

// releaseScript deletes the lock only when it still holds our fencing
// value, so an instance that stalled past the TTL cannot release a lease
// that has since moved on.
const releaseScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0`

// LoginLock implements ports.PrincipalLocker with a Redis SET NX lease,
// serializing the revoke+record pair of login across service instances.
// Key format: login_lock:<principal_id>
type LoginLock struct {
	client *redis.Client
}

func NewLoginLock(client *redis.Client) *LoginLock {
	return &LoginLock{client: client}
}

// Lock acquires the principal's lease, retrying until ctx is done. The TTL
// bounds how long a crashed holder can block the account's logins.
func (l *LoginLock) Lock(ctx context.Context, principalID string) (func(), error) {
	key := l.key(principalID)
	fence := uuid.NewString()

	for {
		ok, err := l.client.SetNX(ctx, key, fence, lockTTL).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire login lock: %w", err)
		}
		if ok {
			break
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("acquire login lock: %w", ctx.Err())
		case <-time.After(lockRetryWait):
		}
	}

	release := func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), lockTTL)
		defer cancel()
		_ = l.client.Eval(releaseCtx, releaseScript, []string{key}, fence).Err()
	}
	return release, nil
}

func (l *LoginLock) key(principalID string) string {
	return "login_lock:" + principalID
}
